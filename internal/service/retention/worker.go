// Package retention периодически удаляет устаревшие результаты задач из хранилища.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	defaultInterval  = time.Hour
	defaultBatchSize = 500
	defaultMaxAge    = 30 * 24 * time.Hour
)

var (
	retentionRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sapsync_result_retention_runs_total",
		Help: "Total number of task result retention runs grouped by result.",
	}, []string{"result"})
	retentionDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sapsync_result_retention_deleted_total",
		Help: "Total number of deleted task result records.",
	})
	retentionLastDeleted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "sapsync_result_retention_last_deleted",
		Help: "Number of task result records deleted during the last run.",
	})
)

// Options задаёт параметры воркера.
type Options struct {
	Logger    *log.Entry
	Interval  time.Duration
	BatchSize int
	MaxAge    time.Duration
	Clock     func() time.Time
}

// Option настраивает Worker.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithInterval задаёт паузу между запусками.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер одной порции удаления.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithMaxAge задаёт срок хранения результата.
func WithMaxAge(maxAge time.Duration) Option {
	return func(opts *Options) {
		opts.MaxAge = maxAge
	}
}

// WithClock подменяет источник текущего времени.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Worker удаляет результаты задач старше MaxAge.
type Worker struct {
	pruner    domain.ResultPruner
	logger    *log.Entry
	interval  time.Duration
	batchSize int
	maxAge    time.Duration
	now       func() time.Time
}

// NewWorker создаёт воркер очистки.
func NewWorker(pruner domain.ResultPruner, options ...Option) *Worker {
	opts := Options{
		Interval:  defaultInterval,
		BatchSize: defaultBatchSize,
		MaxAge:    defaultMaxAge,
		Clock:     time.Now,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "result-retention")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = defaultMaxAge
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Worker{
		pruner:    pruner,
		logger:    logger,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		maxAge:    opts.MaxAge,
		now:       opts.Clock,
	}
}

// Run выполняет очистку сразу и затем раз в interval до отмены ctx.
func (w *Worker) Run(ctx context.Context) {
	if w.pruner == nil {
		w.logger.Warn("result retention is disabled: pruner is nil")
		return
	}

	w.prune(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.prune(ctx)
		}
	}
}

func (w *Worker) prune(ctx context.Context) {
	before := w.now().UTC().Add(-w.maxAge)
	deleted, err := w.Prune(ctx, before)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		retentionRunsTotal.WithLabelValues("error").Inc()
		w.logger.WithError(err).Warn("result retention run failed")
		return
	}

	retentionRunsTotal.WithLabelValues("ok").Inc()
	retentionLastDeleted.Set(float64(deleted))
	if deleted > 0 {
		w.logger.WithFields(log.Fields{
			"deleted": deleted,
			"before":  before.Format(time.RFC3339),
		}).Info("result retention completed")
	}
}

// Prune удаляет все записи, завершённые раньше before, порциями batchSize.
func (w *Worker) Prune(ctx context.Context, before time.Time) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := w.pruner.DeleteFinishedBefore(ctx, before, w.batchSize)
		if err != nil {
			return total, err
		}

		total += deleted
		if deleted > 0 {
			retentionDeletedTotal.Add(float64(deleted))
		}
		if deleted < w.batchSize {
			return total, nil
		}
	}
}
