package workflow

import (
	"context"
	"net/http"
	"strings"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	taskSettingCurrencyRate = "Setting Currency Rate"
	rateDateLayout          = "20060102"
)

// CurrencyRates публикует курс валюты в ERP рынка по умолчанию.
type CurrencyRates struct {
	caller
	markets Markets
	market  string
}

// NewCurrencyRates создаёт сценарий курсов валют.
func NewCurrencyRates(markets Markets, transport Transport, options ...Option) *CurrencyRates {
	opts := buildOptions("currency-rate-workflow", options)
	return &CurrencyRates{
		caller:  caller{transport: transport, logger: opts.Logger},
		markets: markets,
		market:  opts.DefaultMarket,
	}
}

// Set отправляет курс на следующий за rate.Date день.
func (c *CurrencyRates) Set(ctx context.Context, rate domain.CurrencyRate) (result domain.TaskResult) {
	defer recoverAs(c.logger, taskSettingCurrencyRate, &result)

	handler, err := c.markets.GetHandler(c.market)
	if err != nil {
		return domain.FailedResult(taskSettingCurrencyRate, err.Error())
	}

	cfg := handler.Config()
	res, _, err := c.call(ctx, handler, http.MethodPost, cfg.URL(cfg.CurrencyRateEndpoint), mapCurrencyRate(rate), taskSettingCurrencyRate)
	if err != nil {
		c.logger.WithError(err).WithField("currency", rate.CurrencyCode).Error("currency rate failed")
		return domain.FailedResult(taskSettingCurrencyRate, err.Error())
	}
	return res
}

// mapCurrencyRate: песо публикуется как курс доллара, ставка округляется до сотых.
func mapCurrencyRate(rate domain.CurrencyRate) domain.CurrencyRateDocument {
	currency := strings.ToUpper(rate.CurrencyCode)
	if currency == "ARS" {
		currency = "USD"
	}
	return domain.CurrencyRateDocument{
		Currency: currency,
		Rate:     rate.SaleValue.RoundBank(2).String(),
		RateDate: rate.Date.AddDate(0, 0, 1).Format(rateDateLayout),
	}
}
