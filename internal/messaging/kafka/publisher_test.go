package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

type publishedEvent struct {
	topic     string
	key       string
	eventType EventType
	event     any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishEvent(topic, key string, eventType EventType, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{topic: topic, key: key, eventType: eventType, event: event})
	return p.err
}

func TestResultPublisher_Record(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	sink := NewResultPublisher(publisher, "")

	now := time.Now().UTC()
	err := sink.Record(context.Background(), domain.TaskRecord{
		ID:         "task-1",
		TaskType:   domain.TaskTypeBillingRequest,
		Market:     "AR",
		Result:     domain.TaskResult{IsSuccessful: true, TaskName: "Creating Billing Request"},
		StartedAt:  now,
		FinishedAt: now.Add(time.Second),
	})
	require.NoError(t, err)

	require.Len(t, publisher.events, 1)
	got := publisher.events[0]
	assert.Equal(t, TopicTaskResults, got.topic)
	assert.Equal(t, "BillingRequest", got.key)
	assert.Equal(t, EventTypeTaskSucceeded, got.eventType)

	event, ok := got.event.(*TaskResultEvent)
	require.True(t, ok)
	assert.Equal(t, "task-1", event.TaskID)
	assert.Equal(t, "AR", event.Market)
}

func TestResultPublisher_PropagatesError(t *testing.T) {
	t.Parallel()

	sink := NewResultPublisher(&recordingPublisher{err: errors.New("broker down")}, "custom.results")
	err := sink.Record(context.Background(), domain.TaskRecord{TaskType: domain.TaskTypeCurrencyRate})
	require.Error(t, err)
}

func TestNotifier_Notify(t *testing.T) {
	t.Parallel()

	publisher := &recordingPublisher{}
	notifier := NewNotifier(publisher, "ops.alerts")
	notifier.now = func() time.Time { return time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC) }

	require.NoError(t, notifier.Notify(context.Background(), "Failed at Updating Invoice, SAP response was {}"))

	require.Len(t, publisher.events, 1)
	got := publisher.events[0]
	assert.Equal(t, "ops.alerts", got.topic)
	assert.Equal(t, EventTypeNotification, got.eventType)

	event, ok := got.event.(*NotificationEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID, got.key)
	assert.Equal(t, "Failed at Updating Invoice, SAP response was {}", event.Message)
	assert.Equal(t, 2024, event.Timestamp.Year())
}
