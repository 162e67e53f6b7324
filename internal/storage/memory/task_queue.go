package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

// compactThreshold — после стольких извлечённых задач хвост слайса переносится в начало.
const compactThreshold = 1024

// TaskQueue — неограниченная FIFO-очередь задач, безопасная для конкурентных продюсеров.
// Извлекает задачи единственный потребитель (диспетчер).
type TaskQueue struct {
	mu    sync.Mutex
	items []domain.Task
	head  int
	now   func() time.Time
}

// NewTaskQueue создаёт пустую очередь.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{now: time.Now}
}

// Enqueue добавляет задачу в конец очереди. Не блокирует на внешних ресурсах и не возвращает ошибок.
func (q *TaskQueue) Enqueue(task domain.Task) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = q.now().UTC()
	}

	q.mu.Lock()
	q.items = append(q.items, task)
	q.mu.Unlock()
}

// TryDequeue извлекает задачу из головы очереди.
func (q *TaskQueue) TryDequeue() (domain.Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.head >= len(q.items) {
		return domain.Task{}, false
	}

	task := q.items[q.head]
	q.items[q.head] = domain.Task{}
	q.head++

	switch {
	case q.head == len(q.items):
		q.items = q.items[:0]
		q.head = 0
	case q.head >= compactThreshold && q.head*2 >= len(q.items):
		remaining := copy(q.items, q.items[q.head:])
		q.items = q.items[:remaining]
		q.head = 0
	}

	return task, true
}

// Len возвращает количество ожидающих задач.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

var _ domain.TaskQueue = (*TaskQueue)(nil)
