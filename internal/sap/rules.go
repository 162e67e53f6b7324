package sap

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	paymentDateLayout   = "2006-01-02"
	usDocCurrency       = "$"
	usTransferAccount   = "1.1.01.2.003"
	usCashFlowClass     = "Cobros por ventas Doppler"
	customerDocType     = "rCustomer"
	invoiceDocumentType = "it_Invoice"
	creditNoteDocType   = "it_CredItnote"
	electronicInvoicing = "1"
)

// RulesFor возвращает правила рынка. loc — часовой пояс дат платёжных документов.
func RulesFor(market string, loc *time.Location) (domain.MarketRules, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch market {
	case domain.MarketAR:
		return arRules{}, nil
	case domain.MarketUS:
		return usRules{location: loc}, nil
	default:
		return nil, fmt.Errorf("%w: no rules for %s", domain.ErrMarketNotImplemented, market)
	}
}

// arRules — Аргентина: счёт требует CUIT, контакты помечаются для электронных счетов,
// платёжные документы не создаются.
type arRules struct{}

func (arRules) CanCreateBilling(partner *domain.BusinessPartner) bool {
	return partner != nil && partner.FederalTaxID != ""
}

func (arRules) CanUpdateBilling(invoice *domain.Invoice) bool {
	return invoice != nil
}

func (arRules) ShapeContactDiff(diff []domain.ContactEmployee) []domain.ContactEmployee {
	shaped := make([]domain.ContactEmployee, 0, len(diff))
	for _, ce := range diff {
		shaped = append(shaped, domain.ContactEmployee{
			Email:               ce.Email,
			CardCode:            ce.CardCode,
			EmailGroupCode:      ce.EmailGroupCode,
			Name:                ce.Name,
			Active:              ce.Active,
			InternalCode:        ce.InternalCode,
			ElectronicInvoicing: electronicInvoicing,
		})
	}
	return shaped
}

func (arRules) MapIncomingPayment(domain.Invoice, string, time.Time) (domain.Payment, error) {
	return domain.Payment{}, fmt.Errorf("%w: incoming payment for %s", domain.ErrPaymentNotSupported, domain.MarketAR)
}

func (arRules) MapOutgoingPayment(domain.CreditNote, string, time.Time) (domain.Payment, error) {
	return domain.Payment{}, fmt.Errorf("%w: outgoing payment for %s", domain.ErrPaymentNotSupported, domain.MarketAR)
}

// usRules — США: достаточно найденного контрагента, платежи переводом на фиксированный счёт.
type usRules struct {
	location *time.Location
}

func (usRules) CanCreateBilling(partner *domain.BusinessPartner) bool {
	return partner != nil
}

func (usRules) CanUpdateBilling(invoice *domain.Invoice) bool {
	return invoice != nil
}

func (usRules) ShapeContactDiff(diff []domain.ContactEmployee) []domain.ContactEmployee {
	return diff
}

func (r usRules) MapIncomingPayment(invoice domain.Invoice, transferReference string, paymentDate time.Time) (domain.Payment, error) {
	return r.payment(paymentDate, invoice.CardCode, transferReference, "Incoming Payments", domain.PaymentInvoice{
		SumApplied:  invoice.DocTotal,
		DocEntry:    invoice.DocEntry,
		InvoiceType: invoiceDocumentType,
	}), nil
}

func (r usRules) MapOutgoingPayment(note domain.CreditNote, transferReference string, paymentDate time.Time) (domain.Payment, error) {
	return r.payment(paymentDate, note.CardCode, transferReference, "Outgoing Payments", domain.PaymentInvoice{
		SumApplied:  note.DocTotal,
		DocEntry:    note.DocEntry,
		InvoiceType: creditNoteDocType,
	}), nil
}

func (r usRules) payment(date time.Time, cardCode, transferReference, remarks string, doc domain.PaymentInvoice) domain.Payment {
	day := date.In(r.location).Format(paymentDateLayout)
	return domain.Payment{
		DocDate:           day,
		TransferDate:      day,
		TaxDate:           day,
		CardCode:          cardCode,
		DocType:           customerDocType,
		DocCurrency:       usDocCurrency,
		TransferAccount:   usTransferAccount,
		TransferSum:       doc.SumApplied,
		JournalRemarks:    fmt.Sprintf("%s - %s", remarks, cardCode),
		TransferReference: transferReference,
		CashFlowClass:     usCashFlowClass,
		PaymentInvoices:   []domain.PaymentInvoice{doc},
	}
}
