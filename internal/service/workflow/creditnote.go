package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	taskCreatingCreditNote   = "Creating Credit Note Request"
	taskUpdatingCreditNoteRq = "Updating Credit Note Request"
	taskUpdatingCreditNote   = "Updating Credit Note"
	taskCancelingCreditNote  = "Canceling Credit Note Request"
	taskCancelCreditNote     = "Canceling Credit Note"
	taskCreditNoteRefund     = "Creating Credit Note with Refund Request"
)

// CreditNotes создаёт, обновляет и отменяет кредит-ноты.
// Три точки входа независимы и разделяют только кэш сессий рынков.
type CreditNotes struct {
	caller
	markets  Markets
	now      func() time.Time
	location *time.Location
}

// NewCreditNotes создаёт сценарий кредит-нот.
func NewCreditNotes(markets Markets, transport Transport, options ...Option) *CreditNotes {
	opts := buildOptions("credit-note-workflow", options)
	return &CreditNotes{
		caller:   caller{transport: transport, logger: opts.Logger},
		markets:  markets,
		now:      opts.Clock,
		location: opts.Location,
	}
}

// Create выписывает кредит-ноту к существующему счёту; для одобренного возврата
// сразу создаёт исходящий платёж.
func (c *CreditNotes) Create(ctx context.Context, req domain.CreditNoteRequest) (result domain.TaskResult) {
	defer recoverAs(c.logger, taskCreatingCreditNote, &result)

	res, err := c.create(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithField("invoice_id", req.InvoiceID).Error("credit note create failed")
		return domain.FailedResult(taskCreatingCreditNote, err.Error())
	}
	return res
}

func (c *CreditNotes) create(ctx context.Context, req domain.CreditNoteRequest) (domain.TaskResult, error) {
	handler, err := c.markets.HandlerFor(req.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	invoice, err := handler.TryGetInvoiceByInvoiceIDAndOrigin(ctx, req.InvoiceID, req.Origin)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if invoice == nil {
		return domain.FailedResult(taskCreatingCreditNote, fmt.Sprintf("Credit Note could'n create to SAP because the invoice does not exist: '%d'.", req.InvoiceID)), nil
	}

	cfg := handler.Config()
	document := mapCreditNote(handler.Market(), *invoice, req, c.now().In(c.location))
	res, _, err := c.call(ctx, handler, http.MethodPost, cfg.URL(cfg.CreditNotesEndpoint), document, taskCreatingCreditNote)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if !res.IsSuccessful {
		c.logger.WithField("response", res.SapResponseContent).Error("credit note rejected")
		return res, nil
	}
	if !req.IsApprovedRefund() {
		return res, nil
	}

	var created domain.CreditNote
	if err := json.Unmarshal([]byte(res.SapResponseContent), &created); err != nil {
		return domain.TaskResult{}, fmt.Errorf("decode created credit note: %w", err)
	}
	return c.refund(ctx, handler, created, req.TransferReference)
}

// UpdatePaymentStatus обновляет статус оплаты кредит-ноты; для одобренного возврата
// создаёт исходящий платёж.
func (c *CreditNotes) UpdatePaymentStatus(ctx context.Context, req domain.CreditNoteRequest) (result domain.TaskResult) {
	defer recoverAs(c.logger, taskUpdatingCreditNoteRq, &result)

	res, err := c.updatePaymentStatus(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithField("credit_note_id", req.CreditNoteID).Error("credit note update failed")
		return domain.FailedResult(taskUpdatingCreditNoteRq, err.Error())
	}
	return res
}

func (c *CreditNotes) updatePaymentStatus(ctx context.Context, req domain.CreditNoteRequest) (domain.TaskResult, error) {
	handler, err := c.markets.HandlerFor(req.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	note, err := handler.TryGetCreditNoteByCreditNoteID(ctx, req.CreditNoteID)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if note == nil {
		return domain.FailedResult(taskUpdatingCreditNoteRq, fmt.Sprintf("Credit Note could'n update to SAP because the credit note does not exist: '%d'.", req.CreditNoteID)), nil
	}

	cfg := handler.Config()
	url := cfg.URL(fmt.Sprintf("%s(%d)", cfg.CreditNotesEndpoint, note.DocEntry))
	res, _, err := c.call(ctx, handler, http.MethodPatch, url, mapCreditNoteUpdate(req), taskUpdatingCreditNote)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if !res.IsSuccessful {
		c.logger.WithField("response", res.SapResponseContent).Error("credit note update rejected")
		return res, nil
	}
	if !req.IsApprovedRefund() {
		return res, nil
	}
	return c.refund(ctx, handler, *note, req.TransferReference)
}

// Cancel отменяет кредит-ноту.
func (c *CreditNotes) Cancel(ctx context.Context, req domain.CancelCreditNoteRequest) (result domain.TaskResult) {
	defer recoverAs(c.logger, taskCancelingCreditNote, &result)

	res, err := c.cancel(ctx, req)
	if err != nil {
		c.logger.WithError(err).WithField("credit_note_id", req.CreditNoteID).Error("credit note cancel failed")
		return domain.FailedResult(taskCancelingCreditNote, err.Error())
	}
	return res
}

func (c *CreditNotes) cancel(ctx context.Context, req domain.CancelCreditNoteRequest) (domain.TaskResult, error) {
	handler, err := c.markets.HandlerFor(req.BillingSystemID)
	if err != nil {
		return domain.TaskResult{}, err
	}

	note, err := handler.TryGetCreditNoteByCreditNoteID(ctx, req.CreditNoteID)
	if err != nil {
		return domain.TaskResult{}, err
	}
	if note == nil {
		return domain.FailedResult(taskCancelingCreditNote, fmt.Sprintf("Credit Note could'n cancel to SAP because the credit note does not exist: '%d'.", req.CreditNoteID)), nil
	}

	cfg := handler.Config()
	url := cfg.URL(fmt.Sprintf("%s(%d)/Cancel", cfg.CreditNotesEndpoint, note.DocEntry))
	res, _, err := c.call(ctx, handler, http.MethodPost, url, nil, taskCancelCreditNote)
	if err == nil && !res.IsSuccessful {
		c.logger.WithField("response", res.SapResponseContent).Error("credit note cancel rejected")
	}
	return res, err
}

// refund создаёт исходящий платёж по кредит-ноте.
func (c *CreditNotes) refund(ctx context.Context, handler domain.MarketTaskHandler, note domain.CreditNote, transferReference string) (domain.TaskResult, error) {
	payment, err := handler.Rules().MapOutgoingPayment(note, transferReference, c.now())
	if err != nil {
		return domain.FailedResult(taskCreditNoteRefund, err.Error()), nil
	}

	cfg := handler.Config()
	res, _, err := c.call(ctx, handler, http.MethodPost, cfg.URL(cfg.OutgoingPaymentEndpoint), payment, taskCreditNoteRefund)
	if err == nil && !res.IsSuccessful {
		c.logger.WithFields(log.Fields{
			"doc_entry": note.DocEntry,
			"response":  res.SapResponseContent,
		}).Error("outgoing payment rejected")
	}
	return res, err
}
