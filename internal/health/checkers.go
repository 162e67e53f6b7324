package health

import (
	"context"
	"fmt"
	"time"
)

// PingChecker — проверка внешней зависимости (например, PostgreSQL).
func PingChecker(name string, ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) Check {
		start := time.Now()
		err := ping(ctx)
		check := Check{Name: name, Status: StatusHealthy, DurationMs: time.Since(start).Milliseconds()}
		if err != nil {
			check.Status = StatusUnhealthy
			check.Message = err.Error()
		}
		return check
	})
}

// QueueBacklogChecker помечает состояние degraded, когда очередь длиннее threshold.
// Очередь не ограничена, поэтому backlog никогда не делает процесс unhealthy.
func QueueBacklogChecker(length func() int, threshold int) Checker {
	return CheckerFunc(func(context.Context) Check {
		n := length()
		check := Check{Name: "queue", Status: StatusHealthy, Message: fmt.Sprintf("%d pending", n)}
		if threshold > 0 && n > threshold {
			check.Status = StatusDegraded
		}
		return check
	})
}

// HeartbeatChecker помечает диспетчер unhealthy, если цикл не отмечался дольше maxAge.
// maxAge должен превышать idle-интервал плюс время самой долгой задачи.
func HeartbeatChecker(last func() time.Time, maxAge time.Duration, now func() time.Time) Checker {
	if now == nil {
		now = time.Now
	}
	return CheckerFunc(func(context.Context) Check {
		check := Check{Name: "dispatcher", Status: StatusHealthy}
		beat := last()
		switch {
		case beat.IsZero():
			check.Status = StatusDegraded
			check.Message = "dispatcher has not started"
		case now().Sub(beat) > maxAge:
			check.Status = StatusUnhealthy
			check.Message = fmt.Sprintf("last heartbeat %s ago", now().Sub(beat).Round(time.Second))
		}
		return check
	})
}
