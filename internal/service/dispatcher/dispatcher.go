// Package dispatcher исполняет задачи из очереди по одной, в порядке поступления.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
	"github.com/vladislavdragonenkov/sapsync/internal/metrics"
	"github.com/vladislavdragonenkov/sapsync/internal/service/workflow"
)

const defaultIdleInterval = 3 * time.Second

// Router выбирает сценарий для задачи.
type Router interface {
	Route(task domain.Task) (workflow.HandlerFunc, error)
}

// MarketResolver определяет рынок задачи для логов и записей о результате.
type MarketResolver interface {
	ResolveMarket(billingSystemID int) (string, error)
}

// Options задаёт параметры диспетчера.
type Options struct {
	Logger        *log.Entry
	IdleInterval  time.Duration
	Notifier      domain.Notifier
	Sinks         []domain.ResultSink
	Metrics       *metrics.TaskMetrics
	Markets       MarketResolver
	DefaultMarket string
	Clock         func() time.Time
}

// Option настраивает Dispatcher.
type Option func(*Options)

// WithLogger задаёт logger диспетчера.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithIdleInterval задаёт паузу между проверками пустой очереди.
func WithIdleInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.IdleInterval = interval
	}
}

// WithNotifier задаёт канал оповещений о сбоях.
func WithNotifier(notifier domain.Notifier) Option {
	return func(opts *Options) {
		opts.Notifier = notifier
	}
}

// WithSinks добавляет получателей записей о результатах.
func WithSinks(sinks ...domain.ResultSink) Option {
	return func(opts *Options) {
		opts.Sinks = append(opts.Sinks, sinks...)
	}
}

// WithMetrics задаёт коллекторы метрик.
func WithMetrics(m *metrics.TaskMetrics) Option {
	return func(opts *Options) {
		opts.Metrics = m
	}
}

// WithMarkets задаёт резолвер рынка. Курсы валют относятся к defaultMarket.
func WithMarkets(markets MarketResolver, defaultMarket string) Option {
	return func(opts *Options) {
		opts.Markets = markets
		opts.DefaultMarket = defaultMarket
	}
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = now
	}
}

// Dispatcher — единственный потребитель очереди.
// Состояния: Draining (очередь не пуста) и Idle (ожидание IdleInterval).
type Dispatcher struct {
	queue         domain.TaskQueue
	router        Router
	logger        *log.Entry
	idleInterval  time.Duration
	notifier      domain.Notifier
	sinks         []domain.ResultSink
	metrics       *metrics.TaskMetrics
	markets       MarketResolver
	defaultMarket string
	now           func() time.Time

	heartbeat atomic.Int64
	processed atomic.Int64
}

// New создаёт диспетчер.
func New(queue domain.TaskQueue, router Router, options ...Option) *Dispatcher {
	opts := Options{IdleInterval: defaultIdleInterval}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "dispatcher")
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = defaultIdleInterval
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewTaskMetrics()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Dispatcher{
		queue:         queue,
		router:        router,
		logger:        logger,
		idleInterval:  opts.IdleInterval,
		notifier:      opts.Notifier,
		sinks:         opts.Sinks,
		metrics:       opts.Metrics,
		markets:       opts.Markets,
		defaultMarket: opts.DefaultMarket,
		now:           opts.Clock,
	}
}

// Run обрабатывает очередь до отмены ctx.
// Задача, начатая до отмены, доводится до конца; новые не берутся.
func (d *Dispatcher) Run(ctx context.Context) {
	if d.queue == nil || d.router == nil {
		d.logger.Warn("dispatcher is disabled: queue or router is nil")
		return
	}

	d.logger.WithField("idle_interval", d.idleInterval).Info("dispatcher started")
	defer d.logger.Info("dispatcher stopped")

	for {
		if ctx.Err() != nil {
			return
		}
		if d.ProcessOnce(ctx) {
			continue
		}

		d.metrics.RecordIdle()
		timer := time.NewTimer(d.idleInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// ProcessOnce извлекает и исполняет одну задачу. Возвращает false, если очередь пуста.
func (d *Dispatcher) ProcessOnce(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	d.heartbeat.Store(d.now().UnixNano())

	task, ok := d.queue.TryDequeue()
	d.metrics.SetQueueDepth(d.queue.Len())
	if !ok {
		return false
	}

	d.execute(ctx, task)
	d.processed.Add(1)
	return true
}

// LastHeartbeat возвращает время последней итерации цикла.
func (d *Dispatcher) LastHeartbeat() time.Time {
	nanos := d.heartbeat.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

// Processed возвращает число извлечённых из очереди задач.
func (d *Dispatcher) Processed() int64 {
	return d.processed.Load()
}

func (d *Dispatcher) execute(ctx context.Context, task domain.Task) {
	startedAt := d.now()
	market := d.marketOf(task)
	logger := d.logger.WithFields(log.Fields{
		"task_id":   task.ID,
		"task_type": task.Type.String(),
		"market":    market,
	})

	handler, err := d.router.Route(task)
	if err != nil {
		logger.WithError(err).Error("task dropped: no workflow for task")
		d.metrics.RecordTask(task.Type.String(), metrics.OutcomeRejected, 0)
		d.notify(ctx, logger, fmt.Sprintf("Task %s (%s) was dropped: %v", task.ID, task.Type, err))
		return
	}

	result, panicked := d.invoke(ctx, handler, task)
	finishedAt := d.now()
	duration := finishedAt.Sub(startedAt)
	logger = logger.WithField("duration", duration)

	outcome := metrics.OutcomeSucceeded
	switch {
	case panicked:
		outcome = metrics.OutcomePanicked
		d.metrics.RecordPanic()
	case !result.IsSuccessful:
		outcome = metrics.OutcomeFailed
	}
	d.metrics.RecordTask(task.Type.String(), outcome, duration)

	if result.IsSuccessful {
		logger.Infof("Succeeded at %s.", result.TaskName)
	} else {
		message := fmt.Sprintf("Failed at %s, SAP response was %s", result.TaskName, result.SapResponseContent)
		logger.Error(message)
		d.notify(ctx, logger, message)
	}

	d.record(ctx, logger, domain.TaskRecord{
		ID:         task.ID,
		TaskType:   task.Type,
		Market:     market,
		Result:     result,
		StartedAt:  startedAt.UTC(),
		FinishedAt: finishedAt.UTC(),
	})
}

func (d *Dispatcher) invoke(ctx context.Context, handler workflow.HandlerFunc, task domain.Task) (result domain.TaskResult, panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			result = domain.FailedResult(task.Type.String(), fmt.Sprintf("unexpected error: %v", r))
		}
	}()
	return handler(ctx, task), false
}

func (d *Dispatcher) marketOf(task domain.Task) string {
	if task.CurrencyRate != nil {
		return d.defaultMarket
	}
	if d.markets == nil {
		return ""
	}
	market, err := d.markets.ResolveMarket(task.BillingSystemID())
	if err != nil {
		return ""
	}
	return market
}

func (d *Dispatcher) notify(ctx context.Context, logger *log.Entry, message string) {
	if d.notifier == nil {
		return
	}
	if err := d.notifier.Notify(context.WithoutCancel(ctx), message); err != nil {
		logger.WithError(err).Warn("failed to send failure notification")
	}
}

func (d *Dispatcher) record(ctx context.Context, logger *log.Entry, record domain.TaskRecord) {
	sinkCtx := context.WithoutCancel(ctx)
	for _, sink := range d.sinks {
		if err := sink.Record(sinkCtx, record); err != nil {
			logger.WithError(err).Warn("failed to record task result")
		}
	}
}
