// Package notify содержит реализации domain.Notifier.
package notify

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// LogNotifier пишет оповещения в лог уровня warn.
type LogNotifier struct {
	logger *log.Entry
}

// NewLogNotifier создаёт LogNotifier.
func NewLogNotifier(logger *log.Entry) *LogNotifier {
	if logger == nil {
		logger = log.WithField("component", "notifier")
	}
	return &LogNotifier{logger: logger}
}

// Notify логирует сообщение.
func (n *LogNotifier) Notify(_ context.Context, message string) error {
	n.logger.WithField("notification", true).Warn(message)
	return nil
}

// Multi рассылает оповещение всем получателям; ошибки объединяются.
type Multi []domain.Notifier

// Notify вызывает каждый notifier, даже если предыдущий вернул ошибку.
func (m Multi) Notify(ctx context.Context, message string) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = Multi(nil)
)
