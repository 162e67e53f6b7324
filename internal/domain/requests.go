package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditNoteType различает возврат денег и кредит без возврата.
type CreditNoteType int

const (
	CreditNoteTypeRefund   CreditNoteType = 1
	CreditNoteTypeNoRefund CreditNoteType = 2
)

// CreditNoteRequest — payload задач CreateCreditNote и UpdateCreditNote.
// Create использует InvoiceID/Amount, update — CreditNoteID и статус платежа.
type CreditNoteRequest struct {
	InvoiceID           int             `json:"invoiceId" validate:"required"`
	Origin              string          `json:"origin,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	ClientID            int             `json:"clientId" validate:"required"`
	BillingSystemID     int             `json:"billingSystemId" validate:"required"`
	Type                CreditNoteType  `json:"type" validate:"oneof=1 2"`
	Reason              string          `json:"reason,omitempty"`
	CreditNoteID        int             `json:"creditNoteId" validate:"required"`
	CardErrorCode       string          `json:"cardErrorCode,omitempty"`
	CardErrorDetail     string          `json:"cardErrorDetail,omitempty"`
	TransactionApproved bool            `json:"transactionApproved"`
	TransferReference   string          `json:"transferReference,omitempty"`
}

// IsApprovedRefund сообщает, что после записи кредит-ноты нужен исходящий платёж.
func (r CreditNoteRequest) IsApprovedRefund() bool {
	return r.Type == CreditNoteTypeRefund && r.TransactionApproved
}

// CancelCreditNoteRequest — payload задачи CancelCreditNote.
type CancelCreditNoteRequest struct {
	CreditNoteID    int `json:"creditNoteId" validate:"required"`
	BillingSystemID int `json:"billingSystemId" validate:"required"`
}

// DopplerUser — пользователь системы учёта, из которого строится карточка контрагента.
type DopplerUser struct {
	ID                 int      `json:"id" validate:"required"`
	FirstName          string   `json:"firstName" validate:"required_without=LastName"`
	LastName           string   `json:"lastName"`
	Email              string   `json:"email" validate:"required,email"`
	PhoneNumber        string   `json:"phoneNumber,omitempty"`
	FederalTaxID       string   `json:"federalTaxId,omitempty"`
	BillingEmails      []string `json:"billingEmails,omitempty"`
	BillingAddress     string   `json:"billingAddress,omitempty"`
	BillingZip         string   `json:"billingZip,omitempty"`
	BillingCity        string   `json:"billingCity,omitempty"`
	BillingCountryCode string   `json:"billingCountryCode,omitempty"`
	BillingStateID     string   `json:"billingStateId,omitempty"`
	County             string   `json:"county,omitempty"`
	PlanType           *int     `json:"planType,omitempty" validate:"required"`
	IsClientManager    bool     `json:"isClientManager"`
	ClientManagerType  int      `json:"clientManagerType,omitempty"`
	IsFromRelay        bool     `json:"isFromRelay"`
	Canceled           bool     `json:"canceled"`
	Blocked            bool     `json:"blocked"`
	BillingSystemID    int      `json:"billingSystemId" validate:"required"`
}

// CurrencyRate — payload задачи CurrencyRate.
type CurrencyRate struct {
	Date         time.Time       `json:"date" validate:"required"`
	CurrencyCode string          `json:"currencyCode" validate:"required"`
	CurrencyName string          `json:"currencyName,omitempty"`
	SaleValue    decimal.Decimal `json:"saleValue"`
}
