package domain

import "github.com/shopspring/decimal"

func init() {
	// ERP принимает суммы только числами.
	decimal.MarshalJSONWithoutQuotes = true
}

// BusinessPartner — карточка контрагента в ERP.
// Пустые поля не сериализуются: PATCH должен быть разреженным.
type BusinessPartner struct {
	CardCode         string            `json:"CardCode,omitempty"`
	CardName         string            `json:"CardName,omitempty"`
	CardType         string            `json:"CardType,omitempty"`
	GroupCode        int               `json:"GroupCode,omitempty"`
	FederalTaxID     string            `json:"FederalTaxID,omitempty"`
	Currency         string            `json:"Currency,omitempty"`
	EmailAddress     string            `json:"EmailAddress,omitempty"`
	AliasName        string            `json:"AliasName,omitempty"`
	ContactPerson    string            `json:"ContactPerson,omitempty"`
	Phone1           string            `json:"Phone1,omitempty"`
	FatherCard       string            `json:"FatherCard,omitempty"`
	CreateDate       string            `json:"CreateDate,omitempty"`
	Properties15     string            `json:"Properties15,omitempty"`
	Canceled         string            `json:"U_DPL_CANCELED,omitempty"`
	Suspended        string            `json:"U_DPL_SUSPENDED,omitempty"`
	ContactEmployees []ContactEmployee `json:"ContactEmployees,omitempty"`
	BPAddresses      []Address         `json:"BPAddresses,omitempty"`
}

// Exists сообщает, что карточка уже создана в ERP.
func (bp *BusinessPartner) Exists() bool {
	return bp != nil && bp.CreateDate != ""
}

// ContactEmployee — контактное лицо контрагента.
type ContactEmployee struct {
	CardCode            string `json:"CardCode,omitempty"`
	Name                string `json:"Name,omitempty"`
	Email               string `json:"E_Mail,omitempty"`
	EmailGroupCode      string `json:"EmailGroupCode,omitempty"`
	Active              string `json:"Active,omitempty"`
	InternalCode        int    `json:"InternalCode,omitempty"`
	ElectronicInvoicing string `json:"U_BOY_85_ECAT,omitempty"`
}

// Address — адрес контрагента (bill to / ship to).
type Address struct {
	AddressName string `json:"AddressName,omitempty"`
	Street      string `json:"Street,omitempty"`
	ZipCode     string `json:"ZipCode,omitempty"`
	City        string `json:"City,omitempty"`
	County      string `json:"County,omitempty"`
	Country     string `json:"Country,omitempty"`
	State       string `json:"State,omitempty"`
	AddressType string `json:"AddressType,omitempty"`
	BPCode      string `json:"BPCode,omitempty"`
	RowNum      int    `json:"RowNum"`
}

// DocumentLine — строка счёта.
type DocumentLine struct {
	TaxCode         string          `json:"TaxCode,omitempty"`
	ItemCode        string          `json:"ItemCode,omitempty"`
	Quantity        decimal.Decimal `json:"Quantity"`
	UnitPrice       decimal.Decimal `json:"UnitPrice"`
	Currency        string          `json:"Currency,omitempty"`
	FreeText        string          `json:"FreeText,omitempty"`
	CostingCode     string          `json:"CostingCode,omitempty"`
	CostingCode2    string          `json:"CostingCode2,omitempty"`
	CostingCode3    string          `json:"CostingCode3,omitempty"`
	CostingCode4    string          `json:"CostingCode4,omitempty"`
	DiscountPercent decimal.Decimal `json:"DiscountPercent"`
}

// SaleOrderDocument — тело счёта, которое уходит в ERP как есть.
type SaleOrderDocument struct {
	CardCode         string         `json:"CardCode,omitempty"`
	DocDate          string         `json:"DocDate,omitempty"`
	DocDueDate       string         `json:"DocDueDate,omitempty"`
	TaxDate          string         `json:"TaxDate,omitempty"`
	NumAtCard        string         `json:"NumAtCard,omitempty"`
	Comments         string         `json:"Comments,omitempty"`
	RecurringService string         `json:"U_DPL_RECURRING_SERV,omitempty"`
	FirstPurchase    string         `json:"U_DPL_FIRST_PURCHASE,omitempty"`
	CardHolder       string         `json:"U_DPL_CARD_HOLDER,omitempty"`
	CardNumber       string         `json:"U_DPL_CARD_NUMBER,omitempty"`
	CardType         string         `json:"U_DPL_CARD_TYPE,omitempty"`
	CardErrorCode    string         `json:"U_DPL_CARD_ERROR_COD,omitempty"`
	CardErrorDetail  string         `json:"U_DPL_CARD_ERROR_DET,omitempty"`
	InvoiceID        int            `json:"U_DPL_INV_ID,omitempty"`
	DocumentLines    []DocumentLine `json:"DocumentLines,omitempty"`
}

// SaleOrder — payload задач BillingRequest и UpdateBilling:
// документ для ERP плюс поля, нужные только для маршрутизации и follow-up шагов.
type SaleOrder struct {
	SaleOrderDocument

	UserID              int    `json:"userId" validate:"required"`
	FiscalID            string `json:"fiscalId,omitempty"`
	PlanType            int    `json:"planType"`
	BillingSystemID     int    `json:"billingSystemId" validate:"required"`
	Origin              string `json:"origin,omitempty"`
	TransactionApproved bool   `json:"transactionApproved"`
	TransferReference   string `json:"transferReference,omitempty"`
	PaymentDate         string `json:"paymentDate,omitempty"`
}

// InvoiceUpdate — разреженный PATCH счёта при обновлении статуса оплаты.
type InvoiceUpdate struct {
	CardErrorCode   string `json:"U_DPL_CARD_ERROR_COD,omitempty"`
	CardErrorDetail string `json:"U_DPL_CARD_ERROR_DET,omitempty"`
	InvoiceID       int    `json:"U_DPL_INV_ID,omitempty"`
}

// InvoiceLine — строка счёта в ответе ERP.
type InvoiceLine struct {
	LineNum int `json:"LineNum"`
	DocumentLine
}

// Invoice — снимок счёта, прочитанный из ERP.
type Invoice struct {
	CardCode         string          `json:"CardCode"`
	DocEntry         int             `json:"DocEntry"`
	DocNum           int             `json:"DocNum"`
	DocDate          string          `json:"DocDate"`
	DocTotal         decimal.Decimal `json:"DocTotal"`
	TaxDate          string          `json:"TaxDate"`
	NumAtCard        string          `json:"NumAtCard"`
	RecurringService string          `json:"U_DPL_RECURRING_SERV"`
	CardHolder       string          `json:"U_DPL_CARD_HOLDER"`
	CardNumber       string          `json:"U_DPL_CARD_NUMBER"`
	CardType         string          `json:"U_DPL_CARD_TYPE"`
	CardErrorCode    string          `json:"U_DPL_CARD_ERROR_COD"`
	CardErrorDetail  string          `json:"U_DPL_CARD_ERROR_DET"`
	InvoiceID        int             `json:"U_DPL_INV_ID"`
	DocumentLines    []InvoiceLine   `json:"DocumentLines"`
}

// CreditNote — снимок кредит-ноты из ERP (поиск или ответ на создание).
type CreditNote struct {
	CardCode     string          `json:"CardCode"`
	DocEntry     int             `json:"DocEntry"`
	DocNum       int             `json:"DocNum"`
	DocDate      string          `json:"DocDate"`
	DocTotal     decimal.Decimal `json:"DocTotal"`
	CreditNoteID int             `json:"U_DPL_CN_ID"`
}

// CreditNoteLine — строка кредит-ноты.
// Base* ссылаются на строку исходного счёта и заполняются только для типа NoRefund.
type CreditNoteLine struct {
	TaxCode      string          `json:"TaxCode,omitempty"`
	ItemCode     string          `json:"ItemCode,omitempty"`
	Quantity     decimal.Decimal `json:"Quantity"`
	UnitPrice    decimal.Decimal `json:"UnitPrice"`
	Currency     string          `json:"Currency,omitempty"`
	FreeText     string          `json:"FreeText,omitempty"`
	CostingCode  string          `json:"CostingCode,omitempty"`
	CostingCode2 string          `json:"CostingCode2,omitempty"`
	CostingCode3 string          `json:"CostingCode3,omitempty"`
	CostingCode4 string          `json:"CostingCode4,omitempty"`
	BaseType     *int            `json:"BaseType,omitempty"`
	BaseEntry    *int            `json:"BaseEntry,omitempty"`
	BaseLine     *int            `json:"BaseLine,omitempty"`
	ReturnReason int             `json:"ReturnReason"`
}

// CreditNoteDocument — тело создания кредит-ноты.
type CreditNoteDocument struct {
	CardCode         string           `json:"CardCode,omitempty"`
	DocDate          string           `json:"DocDate,omitempty"`
	DocDueDate       string           `json:"DocDueDate,omitempty"`
	TaxDate          string           `json:"TaxDate,omitempty"`
	NumAtCard        string           `json:"NumAtCard,omitempty"`
	RecurringService string           `json:"U_DPL_RECURRING_SERV,omitempty"`
	CardHolder       string           `json:"U_DPL_CARD_HOLDER,omitempty"`
	CardNumber       string           `json:"U_DPL_CARD_NUMBER,omitempty"`
	CardType         string           `json:"U_DPL_CARD_TYPE,omitempty"`
	CardErrorCode    string           `json:"U_DPL_CARD_ERROR_COD,omitempty"`
	CardErrorDetail  string           `json:"U_DPL_CARD_ERROR_DET,omitempty"`
	CreditNoteID     int              `json:"U_DPL_CN_ID,omitempty"`
	DocumentLines    []CreditNoteLine `json:"DocumentLines,omitempty"`
}

// CreditNoteUpdate — разреженный PATCH кредит-ноты.
type CreditNoteUpdate struct {
	CardErrorCode   string `json:"U_DPL_CARD_ERROR_COD,omitempty"`
	CardErrorDetail string `json:"U_DPL_CARD_ERROR_DET,omitempty"`
	CreditNoteID    int    `json:"U_DPL_CN_ID,omitempty"`
}

// PaymentInvoice — документ, закрываемый платежом.
type PaymentInvoice struct {
	LineNum     int             `json:"LineNum"`
	SumApplied  decimal.Decimal `json:"SumApplied"`
	DocEntry    int             `json:"DocEntry"`
	InvoiceType string          `json:"InvoiceType"`
}

// Payment — входящий или исходящий платёж в ERP.
type Payment struct {
	DocDate           string           `json:"DocDate"`
	TransferDate      string           `json:"TransferDate"`
	TaxDate           string           `json:"TaxDate"`
	CardCode          string           `json:"CardCode"`
	DocType           string           `json:"DocType"`
	DocCurrency       string           `json:"DocCurrency"`
	TransferAccount   string           `json:"TransferAccount"`
	TransferSum       decimal.Decimal  `json:"TransferSum"`
	JournalRemarks    string           `json:"JournalRemarks"`
	TransferReference string           `json:"TransferReference,omitempty"`
	CashFlowClass     string           `json:"U_ClaseCashfloCaja,omitempty"`
	PaymentInvoices   []PaymentInvoice `json:"PaymentInvoices"`
}

// CurrencyRateDocument — тело вызова установки курса.
type CurrencyRateDocument struct {
	Currency string `json:"Currency"`
	Rate     string `json:"Rate"`
	RateDate string `json:"RateDate"`
}
