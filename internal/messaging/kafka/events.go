package kafka

import (
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// EventType определяет тип исходящего события.
type EventType string

const (
	EventTypeTaskSucceeded EventType = "task.succeeded"
	EventTypeTaskFailed    EventType = "task.failed"
	EventTypeNotification  EventType = "notification"
)

// Topics для Kafka
const (
	TopicTaskResults   = "sapsync.task.results"
	TopicNotifications = "sapsync.notifications"
	TopicTaskRequests  = "sapsync.task.requests"
)

// HeaderEventType дублирует тип события в заголовке сообщения.
const HeaderEventType = "x-event-type"

// TaskResultEvent — результат обработки задачи, публикуемый в TopicTaskResults.
type TaskResultEvent struct {
	EventID    string            `json:"event_id"`
	EventType  EventType         `json:"event_type"`
	TaskID     string            `json:"task_id"`
	TaskType   string            `json:"task_type"`
	Market     string            `json:"market,omitempty"`
	Result     domain.TaskResult `json:"result"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DurationMs int64             `json:"duration_ms"`
}

// NewTaskResultEvent строит событие из записи о задаче.
func NewTaskResultEvent(record domain.TaskRecord) *TaskResultEvent {
	eventType := EventTypeTaskSucceeded
	if !record.Result.IsSuccessful {
		eventType = EventTypeTaskFailed
	}
	return &TaskResultEvent{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		TaskID:     record.ID,
		TaskType:   record.TaskType.String(),
		Market:     record.Market,
		Result:     record.Result,
		StartedAt:  record.StartedAt,
		FinishedAt: record.FinishedAt,
		DurationMs: record.Duration().Milliseconds(),
	}
}

// NotificationEvent — оповещение о сбое для внешних каналов (чат, алертинг).
type NotificationEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotificationEvent создаёт оповещение с текущим временем.
func NewNotificationEvent(message string, now time.Time) *NotificationEvent {
	return &NotificationEvent{
		EventID:   uuid.NewString(),
		EventType: EventTypeNotification,
		Message:   message,
		Timestamp: now.UTC(),
	}
}

// TaskRequest — входящее сообщение из TopicTaskRequests.
// Заполняется payload, соответствующий TaskType.
type TaskRequest struct {
	TaskType         domain.TaskType                 `json:"taskType"`
	Billing          *domain.SaleOrder               `json:"billing,omitempty"`
	CreditNote       *domain.CreditNoteRequest       `json:"creditNote,omitempty"`
	CancelCreditNote *domain.CancelCreditNoteRequest `json:"cancelCreditNote,omitempty"`
	User             *domain.DopplerUser             `json:"user,omitempty"`
	CurrencyRate     *domain.CurrencyRate            `json:"currencyRate,omitempty"`
}

// Task превращает сообщение в задачу очереди.
func (r TaskRequest) Task() domain.Task {
	return domain.Task{
		Type:             r.TaskType,
		Billing:          r.Billing,
		CreditNote:       r.CreditNote,
		CancelCreditNote: r.CancelCreditNote,
		User:             r.User,
		CurrencyRate:     r.CurrencyRate,
	}
}
