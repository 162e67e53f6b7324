package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// EnvPrefix — префикс переменных окружения сервиса.
const EnvPrefix = "SAPRELAY"

// MarketSettings — подключение к ERP одного рынка.
type MarketSettings struct {
	BaseURL                    string `envconfig:"BASE_URL"`
	BusinessPartnerEndpoint    string `envconfig:"BUSINESS_PARTNER_ENDPOINT"`
	BillingEndpoint            string `envconfig:"BILLING_ENDPOINT"`
	CreditNotesEndpoint        string `envconfig:"CREDIT_NOTES_ENDPOINT"`
	IncomingPaymentsEndpoint   string `envconfig:"INCOMING_PAYMENTS_ENDPOINT"`
	OutgoingPaymentEndpoint    string `envconfig:"OUTGOING_PAYMENT_ENDPOINT"`
	CurrencyRateEndpoint       string `envconfig:"CURRENCY_RATE_ENDPOINT"`
	NeedCreateIncomingPayments bool   `envconfig:"NEED_CREATE_INCOMING_PAYMENTS"`
}

// Config описывает настройки запуска ретранслятора.
type Config struct {
	MetricsAddr  string        `envconfig:"METRICS_ADDR"`
	LogLevel     string        `envconfig:"LOG_LEVEL"`
	LogFormat    string        `envconfig:"LOG_FORMAT"`
	IdleInterval time.Duration `envconfig:"IDLE_INTERVAL"`

	HTTPTimeout        time.Duration `envconfig:"HTTP_TIMEOUT"`
	SessionTTL         time.Duration `envconfig:"SESSION_TTL"`
	InsecureSkipVerify bool          `envconfig:"INSECURE_SKIP_VERIFY"`
	CompanyDB          string        `envconfig:"COMPANY_DB"`
	UserName           string        `envconfig:"USER_NAME"`
	Password           string        `envconfig:"PASSWORD"`
	MaxAccountsPerUser int           `envconfig:"MAX_ACCOUNTS_PER_USER"`
	DefaultMarket      string        `envconfig:"DEFAULT_MARKET"`
	InvoicesTimeZone   string        `envconfig:"INVOICES_TIME_ZONE"`

	AR MarketSettings `envconfig:"AR"`
	US MarketSettings `envconfig:"US"`

	QueueBacklogThreshold int           `envconfig:"QUEUE_BACKLOG_THRESHOLD"`
	HeartbeatMaxAge       time.Duration `envconfig:"HEARTBEAT_MAX_AGE"`

	KafkaBrokers            []string `envconfig:"KAFKA_BROKERS"`
	KafkaResultsTopic       string   `envconfig:"KAFKA_RESULTS_TOPIC"`
	KafkaNotificationsTopic string   `envconfig:"KAFKA_NOTIFICATIONS_TOPIC"`
	KafkaRequestsTopic      string   `envconfig:"KAFKA_REQUESTS_TOPIC"`
	KafkaGroupID            string   `envconfig:"KAFKA_GROUP_ID"`

	PostgresDSN         string        `envconfig:"POSTGRES_DSN"`
	PostgresAutoMigrate bool          `envconfig:"POSTGRES_AUTO_MIGRATE"`
	ResultRetention     time.Duration `envconfig:"RESULT_RETENTION"`
	RetentionInterval   time.Duration `envconfig:"RETENTION_INTERVAL"`
}

// DefaultConfig возвращает значения по умолчанию. Адреса ERP не заданы.
func DefaultConfig() Config {
	return Config{
		MetricsAddr:             ":9090",
		LogLevel:                "info",
		LogFormat:               "text",
		IdleInterval:            3 * time.Second,
		HTTPTimeout:             60 * time.Second,
		SessionTTL:              30 * time.Minute,
		InsecureSkipVerify:      true,
		MaxAccountsPerUser:      10,
		DefaultMarket:           domain.MarketAR,
		InvoicesTimeZone:        "America/Argentina/Buenos_Aires",
		AR:                      defaultMarketSettings(false),
		US:                      defaultMarketSettings(true),
		QueueBacklogThreshold:   1000,
		HeartbeatMaxAge:         5 * time.Minute,
		KafkaResultsTopic:       "sapsync.task.results",
		KafkaNotificationsTopic: "sapsync.notifications",
		KafkaRequestsTopic:      "sapsync.task.requests",
		KafkaGroupID:            "sap-relay",
		PostgresAutoMigrate:     true,
		ResultRetention:         30 * 24 * time.Hour,
		RetentionInterval:       time.Hour,
	}
}

func defaultMarketSettings(needIncomingPayments bool) MarketSettings {
	return MarketSettings{
		BusinessPartnerEndpoint:    "BusinessPartners",
		BillingEndpoint:            "Invoices",
		CreditNotesEndpoint:        "CreditNotes",
		IncomingPaymentsEndpoint:   "IncomingPayments",
		OutgoingPaymentEndpoint:    "VendorPayments",
		CurrencyRateEndpoint:       "SBOBobService_SetCurrencyRate",
		NeedCreateIncomingPayments: needIncomingPayments,
	}
}

// LoadConfig читает переменные SAPRELAY_* поверх DefaultConfig.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error
	if c.IdleInterval <= 0 {
		errs = append(errs, errors.New("idle interval must be positive"))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("http timeout must be positive"))
	}
	if c.MaxAccountsPerUser <= 0 {
		errs = append(errs, errors.New("max accounts per user must be positive"))
	}
	if _, err := time.LoadLocation(c.InvoicesTimeZone); err != nil {
		errs = append(errs, fmt.Errorf("invoices time zone %q: %w", c.InvoicesTimeZone, err))
	}

	markets := c.Markets()
	if len(markets) == 0 {
		errs = append(errs, errors.New("at least one market base url must be configured"))
	}
	configured := false
	for _, m := range markets {
		if m.Code == c.DefaultMarket {
			configured = true
		}
	}
	if len(markets) > 0 && !configured {
		errs = append(errs, fmt.Errorf("default market %q is not configured", c.DefaultMarket))
	}

	if len(c.KafkaBrokers) > 0 && (c.KafkaResultsTopic == "" || c.KafkaNotificationsTopic == "") {
		errs = append(errs, errors.New("kafka results and notifications topics are required when brokers are set"))
	}
	if c.PostgresDSN != "" && c.ResultRetention < 0 {
		errs = append(errs, errors.New("result retention must not be negative"))
	}
	return errors.Join(errs...)
}

// Markets возвращает настройки рынков с заданным базовым адресом.
func (c Config) Markets() []domain.MarketConfig {
	var out []domain.MarketConfig
	for _, m := range []struct {
		code     string
		settings MarketSettings
	}{
		{domain.MarketAR, c.AR},
		{domain.MarketUS, c.US},
	} {
		if m.settings.BaseURL == "" {
			continue
		}
		out = append(out, domain.MarketConfig{
			Code:                       m.code,
			BaseURL:                    m.settings.BaseURL,
			BusinessPartnerEndpoint:    m.settings.BusinessPartnerEndpoint,
			BillingEndpoint:            m.settings.BillingEndpoint,
			CreditNotesEndpoint:        m.settings.CreditNotesEndpoint,
			IncomingPaymentsEndpoint:   m.settings.IncomingPaymentsEndpoint,
			OutgoingPaymentEndpoint:    m.settings.OutgoingPaymentEndpoint,
			CurrencyRateEndpoint:       m.settings.CurrencyRateEndpoint,
			NeedCreateIncomingPayments: m.settings.NeedCreateIncomingPayments,
		})
	}
	return out
}

// Credentials возвращает учётные данные сервисного пользователя ERP.
func (c Config) Credentials() domain.Credentials {
	return domain.Credentials{
		CompanyDB: c.CompanyDB,
		UserName:  c.UserName,
		Password:  c.Password,
	}
}

// KafkaEnabled сообщает, заданы ли брокеры Kafka.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// PostgresEnabled сообщает, задан ли DSN PostgreSQL.
func (c Config) PostgresEnabled() bool {
	return c.PostgresDSN != ""
}
