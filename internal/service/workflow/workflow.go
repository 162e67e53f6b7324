// Package workflow содержит многошаговые сценарии задач ERP:
// поиск снимка → решение → запись → условный follow-up шаг.
// Любая ошибка или паника внутри сценария превращается в неуспешный TaskResult.
package workflow

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
	"github.com/vladislavdragonenkov/sapsync/internal/sap"
)

// Transport отправляет запрос в ERP с cookie сессии.
type Transport interface {
	Send(ctx context.Context, method, url string, body any, session *domain.Session) (sap.Response, error)
}

// Markets выдаёт обработчики рынков.
type Markets interface {
	HandlerFor(billingSystemID int) (domain.MarketTaskHandler, error)
	GetHandler(code string) (domain.MarketTaskHandler, error)
}

// Options задаёт общие параметры сценариев.
type Options struct {
	Logger        *log.Entry
	Clock         func() time.Time
	Location      *time.Location
	DefaultMarket string
}

// Option настраивает сценарий.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// WithLocation задаёт часовой пояс дат документов.
func WithLocation(loc *time.Location) Option {
	return func(opts *Options) {
		opts.Location = loc
	}
}

// WithDefaultMarket задаёт рынок задач без billing system (курсы валют).
func WithDefaultMarket(code string) Option {
	return func(opts *Options) {
		opts.DefaultMarket = code
	}
}

func buildOptions(component string, options []Option) Options {
	opts := Options{}
	for _, option := range options {
		option(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = log.WithField("component", component)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.DefaultMarket == "" {
		opts.DefaultMarket = domain.MarketAR
	}
	return opts
}

// caller выполняет один шаг сценария против ERP рынка.
type caller struct {
	transport Transport
	logger    *log.Entry
}

// call берёт сессию рынка, отправляет запрос и оборачивает ответ в TaskResult с именем taskName.
func (c caller) call(ctx context.Context, handler domain.MarketTaskHandler, method, url string, body any, taskName string) (domain.TaskResult, sap.Response, error) {
	session, err := handler.StartSession(ctx)
	if err != nil {
		return domain.TaskResult{}, sap.Response{}, err
	}

	resp, err := c.transport.Send(ctx, method, url, body, &session)
	if err != nil {
		return domain.TaskResult{}, sap.Response{}, err
	}

	if !resp.OK() {
		c.logger.WithFields(log.Fields{
			"market": handler.Market(),
			"status": resp.StatusCode,
			"step":   taskName,
		}).Warn("sap rejected request")
	}

	return domain.TaskResult{
		IsSuccessful:       resp.OK(),
		TaskName:           taskName,
		SapResponseContent: resp.Body,
	}, resp, nil
}

// recoverAs превращает панику сценария в неуспешный результат.
// Вызывается через defer с указателем на именованный результат.
func recoverAs(logger *log.Entry, taskName string, result *domain.TaskResult) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).Error("workflow panicked")
		*result = domain.FailedResult(taskName, fmt.Sprintf("%v", r))
	}
}
