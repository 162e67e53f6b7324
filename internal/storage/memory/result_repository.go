package memory

import (
	"context"
	"sync"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const defaultResultCapacity = 1000

// ResultStats — агрегаты по записанным результатам.
type ResultStats struct {
	Succeeded int
	Failed    int
}

// resultRepositoryInMemory хранит последние результаты задач в кольцевом буфере.
type resultRepositoryInMemory struct {
	mu      sync.RWMutex
	records []domain.TaskRecord
	next    int
	full    bool
	stats   ResultStats
}

// NewResultRepository создаёт in-memory sink на capacity последних записей.
func NewResultRepository(capacity int) *resultRepositoryInMemory {
	if capacity <= 0 {
		capacity = defaultResultCapacity
	}
	return &resultRepositoryInMemory{records: make([]domain.TaskRecord, capacity)}
}

// Record сохраняет запись, вытесняя самую старую при переполнении.
func (r *resultRepositoryInMemory) Record(_ context.Context, record domain.TaskRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[r.next] = record
	r.next = (r.next + 1) % len(r.records)
	if r.next == 0 {
		r.full = true
	}

	if record.Result.IsSuccessful {
		r.stats.Succeeded++
	} else {
		r.stats.Failed++
	}
	return nil
}

// List возвращает до limit последних записей, начиная с самой новой.
func (r *resultRepositoryInMemory) List(limit int) []domain.TaskRecord {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = len(r.records)
	}
	if limit <= 0 || limit > size {
		limit = size
	}

	result := make([]domain.TaskRecord, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (r.next - i + len(r.records)) % len(r.records)
		result = append(result, r.records[idx])
	}
	return result
}

// Stats возвращает счётчики успешных и неуспешных задач за всё время работы.
func (r *resultRepositoryInMemory) Stats() ResultStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.stats
}

var _ domain.ResultSink = (*resultRepositoryInMemory)(nil)
