package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

func billingTask(userID int) domain.Task {
	return domain.NewBillingTask(domain.SaleOrder{UserID: userID, BillingSystemID: 9})
}

func TestTaskQueue_FIFO(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue()
	for i := 1; i <= 5; i++ {
		q.Enqueue(billingTask(i))
	}
	if q.Len() != 5 {
		t.Fatalf("expected 5 pending tasks, got %d", q.Len())
	}

	for i := 1; i <= 5; i++ {
		task, ok := q.TryDequeue()
		if !ok {
			t.Fatalf("expected task %d", i)
		}
		if task.Billing.UserID != i {
			t.Fatalf("expected user %d, got %d", i, task.Billing.UserID)
		}
		if task.ID == "" || task.EnqueuedAt.IsZero() {
			t.Fatalf("expected id and enqueue time to be stamped: %+v", task)
		}
	}

	if _, ok := q.TryDequeue(); ok {
		t.Fatal("expected empty queue")
	}
}

func TestTaskQueue_KeepsExplicitID(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue()
	task := billingTask(1)
	task.ID = "fixed"
	q.Enqueue(task)

	got, ok := q.TryDequeue()
	if !ok || got.ID != "fixed" {
		t.Fatalf("unexpected task: %+v ok=%v", got, ok)
	}
}

func TestTaskQueue_ConcurrentProducersPreserveOrder(t *testing.T) {
	t.Parallel()

	const (
		producers   = 8
		perProducer = 500
	)

	q := NewTaskQueue()
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				task := billingTask(i)
				task.ID = fmt.Sprintf("%d-%d", p, i)
				task.Billing.PlanType = p
				q.Enqueue(task)
			}
		}(p)
	}
	wg.Wait()

	if q.Len() != producers*perProducer {
		t.Fatalf("expected %d tasks, got %d", producers*perProducer, q.Len())
	}

	last := make(map[int]int, producers)
	for p := 0; p < producers; p++ {
		last[p] = -1
	}
	count := 0
	for {
		task, ok := q.TryDequeue()
		if !ok {
			break
		}
		count++
		producer := task.Billing.PlanType
		if task.Billing.UserID != last[producer]+1 {
			t.Fatalf("producer %d out of order: got %d after %d", producer, task.Billing.UserID, last[producer])
		}
		last[producer] = task.Billing.UserID
	}
	if count != producers*perProducer {
		t.Fatalf("expected to drain %d tasks, got %d", producers*perProducer, count)
	}
}

func TestTaskQueue_CompactsAfterManyDequeues(t *testing.T) {
	t.Parallel()

	q := NewTaskQueue()
	total := compactThreshold*2 + 10
	for i := 0; i < total; i++ {
		q.Enqueue(billingTask(i))
	}
	for i := 0; i < compactThreshold+5; i++ {
		if _, ok := q.TryDequeue(); !ok {
			t.Fatalf("unexpected empty queue at %d", i)
		}
	}
	// Добавление после сжатия не должно ломать порядок.
	q.Enqueue(billingTask(total))

	expected := compactThreshold + 5
	for {
		task, ok := q.TryDequeue()
		if !ok {
			break
		}
		if task.Billing.UserID != expected {
			t.Fatalf("expected user %d, got %d", expected, task.Billing.UserID)
		}
		expected++
	}
	if expected != total+1 {
		t.Fatalf("expected to drain up to %d, stopped at %d", total+1, expected)
	}
}
