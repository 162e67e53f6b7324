package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/sapsync/internal/domain"
)

const (
	insertTaskResultSQL = `
INSERT INTO task_results (task_id, task_type, market, task_name, is_successful, sap_response, id_user, started_at, finished_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	deleteFinishedBeforeSQL = `
DELETE FROM task_results
WHERE id IN (
	SELECT id FROM task_results
	WHERE finished_at < $1
	ORDER BY id
	LIMIT $2
)`
)

// ResultRepository хранит историю обработанных задач в task_results.
type ResultRepository struct {
	db *sql.DB
}

// NewResultRepository создаёт репозиторий поверх открытого Store.
func NewResultRepository(store *Store) *ResultRepository {
	return &ResultRepository{db: store.DB()}
}

// Record сохраняет запись о задаче.
func (r *ResultRepository) Record(ctx context.Context, record domain.TaskRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	var idUser sql.NullString
	if record.Result.IDUser != nil {
		idUser = sql.NullString{String: *record.Result.IDUser, Valid: true}
	}

	if _, err := r.db.ExecContext(ctx, insertTaskResultSQL,
		record.ID,
		int(record.TaskType),
		record.Market,
		record.Result.TaskName,
		record.Result.IsSuccessful,
		record.Result.SapResponseContent,
		idUser,
		record.StartedAt,
		record.FinishedAt,
	); err != nil {
		return fmt.Errorf("insert task result %s: %w", record.ID, err)
	}
	return nil
}

// DeleteFinishedBefore удаляет не больше limit записей, завершённых раньше before.
func (r *ResultRepository) DeleteFinishedBefore(ctx context.Context, before time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, defaultOpTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, deleteFinishedBeforeSQL, before.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("delete task results before %s: %w", before.UTC().Format(time.RFC3339), err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete task results rows affected: %w", err)
	}
	return int(affected), nil
}

var (
	_ domain.ResultSink   = (*ResultRepository)(nil)
	_ domain.ResultPruner = (*ResultRepository)(nil)
)
