// Package app собирает ретранслятор задач ERP из конфигурации и управляет его жизненным циклом.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	healthcheck "github.com/vladislavdragonenkov/sapsync/internal/health"
	"github.com/vladislavdragonenkov/sapsync/internal/service/retention"
	"github.com/vladislavdragonenkov/sapsync/internal/storage/postgres"
)

// Run собирает компоненты и обрабатывает задачи до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	logger := log.WithField("component", "app")

	deps := relayDeps{Logger: logger}

	producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
	if err == nil && producer != nil {
		deps.Sinks = append(deps.Sinks, newResultPublisher(producer, cfg))
		deps.Notifiers = append(deps.Notifiers, newKafkaNotifier(producer, cfg))
	}
	defer closeKafka(producer, logger)

	store, err := initPostgres(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closePostgres(store, logger)
	var results *postgres.ResultRepository
	if store != nil {
		results = postgres.NewResultRepository(store)
		deps.Sinks = append(deps.Sinks, results)
	}

	r, err := buildRelay(cfg, deps)
	if err != nil {
		return err
	}
	if store != nil {
		r.health.RegisterChecker("postgres", healthcheck.PingChecker("postgres", store.Ping))
	}

	consumer, err := initKafkaConsumer(ctx, cfg, r.intake, logger)
	if err != nil {
		logger.WithError(err).Warn("failed to start kafka consumer, continuing without task requests from kafka")
	}
	defer stopKafkaConsumer(consumer, logger)

	metricsSrv := startMetricsServer(ctx, cfg.MetricsAddr, logger, r.health)

	logger.WithField("markets", r.registry.Markets()).Info("relay started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.dispatcher.Run(gctx)
		return nil
	})
	if results != nil && cfg.ResultRetention > 0 {
		worker := retention.NewWorker(results,
			retention.WithLogger(logger.WithField("component", "result-retention")),
			retention.WithInterval(cfg.RetentionInterval),
			retention.WithMaxAge(cfg.ResultRetention),
		)
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	err = g.Wait()
	logger.WithFields(log.Fields{
		"processed": r.dispatcher.Processed(),
		"pending":   r.queue.Len(),
	}).Info("получен сигнал остановки, диспетчер остановлен")
	shutdownHTTP(metricsSrv, logger)

	if err != nil {
		return err
	}
	return ctx.Err()
}

// startMetricsServer запускает HTTP-обработчики /metrics, /healthz и /livez.
func startMetricsServer(ctx context.Context, addr string, logger *log.Entry, healthHandler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/healthz", healthHandler)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Infof("метрики доступны по адресу %s/metrics", addr)
		logger.Infof("health checks: %s/healthz, %s/livez", addr, addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("metrics server failed")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownHTTP(srv, logger)
	}()

	return srv
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
