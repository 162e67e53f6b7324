package kafka

import (
	"context"
	"time"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// Notifier публикует оповещения о сбоях в Kafka.
type Notifier struct {
	publisher EventPublisher
	topic     string
	now       func() time.Time
}

// NewNotifier создаёт Notifier. Пустой topic заменяется на TopicNotifications.
func NewNotifier(publisher EventPublisher, topic string) *Notifier {
	if topic == "" {
		topic = TopicNotifications
	}
	return &Notifier{publisher: publisher, topic: topic, now: time.Now}
}

// Notify публикует сообщение.
func (n *Notifier) Notify(_ context.Context, message string) error {
	event := NewNotificationEvent(message, n.now())
	return n.publisher.PublishEvent(n.topic, event.EventID, event.EventType, event)
}

var _ domain.Notifier = (*Notifier)(nil)
