package kafka

import (
	"context"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// ResultPublisher — sink, публикующий записи о задачах в Kafka.
type ResultPublisher struct {
	publisher EventPublisher
	topic     string
}

// NewResultPublisher создаёт sink. Пустой topic заменяется на TopicTaskResults.
func NewResultPublisher(publisher EventPublisher, topic string) *ResultPublisher {
	if topic == "" {
		topic = TopicTaskResults
	}
	return &ResultPublisher{publisher: publisher, topic: topic}
}

// Record публикует запись с ключом по типу задачи.
func (p *ResultPublisher) Record(_ context.Context, record domain.TaskRecord) error {
	event := NewTaskResultEvent(record)
	return p.publisher.PublishEvent(p.topic, event.TaskType, event.EventType, event)
}

var _ domain.ResultSink = (*ResultPublisher)(nil)
