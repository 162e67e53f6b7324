package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/app"
	"github.com/vladislavdragonenkov/sapsync/internal/version"
)

// setupLogger настраивает формат и уровень логирования сервиса.
func setupLogger(level, format string) error {
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	lvl, err := log.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		log.SetLevel(log.InfoLevel)
		return err
	}
	log.SetLevel(lvl)
	return nil
}

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		_ = setupLogger(app.DefaultConfig().LogLevel, app.DefaultConfig().LogFormat)
		log.WithError(err).Fatal("некорректная конфигурация")
	}
	if err := setupLogger(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.WithError(err).WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"version":      version.String(),
		"metrics_addr": cfg.MetricsAddr,
		"markets":      len(cfg.Markets()),
		"kafka":        cfg.KafkaEnabled(),
		"postgres":     cfg.PostgresEnabled(),
	}).Info("запускаем sap-relay")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("sap-relay остановлен")
}
