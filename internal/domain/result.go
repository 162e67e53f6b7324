package domain

import "time"

// TaskResult — терминальный результат обработки одной задачи.
type TaskResult struct {
	IsSuccessful       bool    `json:"isSuccessful"`
	TaskName           string  `json:"taskName"`
	SapResponseContent string  `json:"sapResponseContent"`
	IDUser             *string `json:"idUser,omitempty"`
}

// FailedResult собирает неуспешный результат с локально сформированным сообщением.
func FailedResult(taskName, content string) TaskResult {
	return TaskResult{TaskName: taskName, SapResponseContent: content}
}

// WithUser возвращает копию результата с идентификатором пользователя.
func (r TaskResult) WithUser(id string) TaskResult {
	r.IDUser = &id
	return r
}

// TaskRecord — запись о выполненной задаче для sink-ов (память, postgres, kafka).
type TaskRecord struct {
	ID         string     `json:"id"`
	TaskType   TaskType   `json:"task_type"`
	Market     string     `json:"market,omitempty"`
	Result     TaskResult `json:"result"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Duration возвращает длительность выполнения задачи.
func (r TaskRecord) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
