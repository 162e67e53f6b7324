package domain

import "strings"

// Коды рынков.
const (
	MarketAR = "AR"
	MarketUS = "US"
)

// MarketConfig — неизменяемые настройки ERP для одного рынка.
type MarketConfig struct {
	Code                       string
	BaseURL                    string
	BusinessPartnerEndpoint    string
	BillingEndpoint            string
	CreditNotesEndpoint        string
	IncomingPaymentsEndpoint   string
	OutgoingPaymentEndpoint    string
	CurrencyRateEndpoint       string
	NeedCreateIncomingPayments bool
}

// URL склеивает базовый адрес и путь ресурса ровно через один слэш.
func (c MarketConfig) URL(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Credentials — учётные данные для логина в ERP.
type Credentials struct {
	CompanyDB string `json:"CompanyDB"`
	Password  string `json:"Password"`
	UserName  string `json:"UserName"`
}
