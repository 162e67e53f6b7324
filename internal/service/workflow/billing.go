package workflow

import (
	"context"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	taskCreatingBilling    = "Creating Billing Request"
	taskUpdatingBilling    = "Updating Billing Request"
	taskUpdatingInvoice    = "Updating Invoice"
	taskBillingWithPayment = "Creating/Updating Billing with Payment Request"
)

var paymentDateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// Billing выставляет и обновляет счета.
type Billing struct {
	caller
	markets  Markets
	now      func() time.Time
	location *time.Location
}

// NewBilling создаёт сценарий счетов.
func NewBilling(markets Markets, transport Transport, options ...Option) *Billing {
	opts := buildOptions("billing-workflow", options)
	return &Billing{
		caller:   caller{transport: transport, logger: opts.Logger},
		markets:  markets,
		now:      opts.Clock,
		location: opts.Location,
	}
}

// Create выставляет счёт пользователю. Рыночные правила решают, годится ли найденный контрагент.
func (b *Billing) Create(ctx context.Context, order domain.SaleOrder) (result domain.TaskResult) {
	defer recoverAs(b.logger, taskCreatingBilling, &result)

	res, err := b.create(ctx, order)
	if err != nil {
		b.logger.WithError(err).WithField("user_id", order.UserID).Error("billing request failed")
		return domain.FailedResult(taskCreatingBilling, err.Error())
	}
	return res
}

func (b *Billing) create(ctx context.Context, order domain.SaleOrder) (domain.TaskResult, error) {
	handler, err := b.markets.HandlerFor(order.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	partner, err := handler.TryGetBusinessPartner(ctx, order.UserID, order.FiscalID, order.PlanType)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if !handler.Rules().CanCreateBilling(partner) {
		return domain.FailedResult(taskCreatingBilling, fmt.Sprintf("Failed at generating billing request for the user: %d.", order.UserID)), nil
	}

	document := order.SaleOrderDocument
	document.CardCode = partner.CardCode

	cfg := handler.Config()
	res, _, err := b.call(ctx, handler, http.MethodPost, cfg.URL(cfg.BillingEndpoint), document, taskCreatingBilling)
	return res, err
}

// Update обновляет статус оплаты счёта и при одобренной транзакции
// создаёт входящий платёж, если рынок этого требует.
func (b *Billing) Update(ctx context.Context, order domain.SaleOrder) (result domain.TaskResult) {
	defer recoverAs(b.logger, taskUpdatingBilling, &result)

	res, err := b.update(ctx, order)
	if err != nil {
		b.logger.WithError(err).WithField("invoice_id", order.InvoiceID).Error("billing update failed")
		return domain.FailedResult(taskUpdatingBilling, err.Error())
	}
	return res
}

func (b *Billing) update(ctx context.Context, order domain.SaleOrder) (domain.TaskResult, error) {
	handler, err := b.markets.HandlerFor(order.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	invoice, err := handler.TryGetInvoiceByInvoiceIDAndOrigin(ctx, order.InvoiceID, order.Origin)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if !handler.Rules().CanUpdateBilling(invoice) {
		return domain.FailedResult(taskUpdatingBilling, fmt.Sprintf("Failed at updating billing request for the invoice: %d.", order.InvoiceID)), nil
	}

	cfg := handler.Config()
	patch := domain.InvoiceUpdate{
		CardErrorCode:   order.CardErrorCode,
		CardErrorDetail: order.CardErrorDetail,
		InvoiceID:       order.InvoiceID,
	}
	res, _, err := b.call(ctx, handler, http.MethodPatch, cfg.URL(fmt.Sprintf("%s(%d)", cfg.BillingEndpoint, invoice.DocEntry)), patch, taskUpdatingInvoice)
	if err != nil || !res.IsSuccessful {
		return res, err
	}

	if !order.TransactionApproved || !cfg.NeedCreateIncomingPayments {
		return res, nil
	}

	payment, err := handler.Rules().MapIncomingPayment(*invoice, order.TransferReference, b.paymentDate(order.PaymentDate))
	if err != nil {
		return domain.FailedResult(taskBillingWithPayment, err.Error()), nil
	}

	res, _, err = b.call(ctx, handler, http.MethodPost, cfg.URL(cfg.IncomingPaymentsEndpoint), payment, taskBillingWithPayment)
	if err == nil && !res.IsSuccessful {
		b.logger.WithFields(log.Fields{
			"invoice_id": order.InvoiceID,
			"response":   res.SapResponseContent,
		}).Error("incoming payment rejected")
	}
	return res, err
}

func (b *Billing) paymentDate(raw string) time.Time {
	for _, layout := range paymentDateLayouts {
		if t, err := time.ParseInLocation(layout, raw, b.location); err == nil {
			return t
		}
	}
	return b.now()
}
