package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streaky/streakd/internal/domain"
)

const queueColumns = `id, user_id, batch_id, status, retry_count, requeue_count,
	error_message, created_at, started_at, completed_at`

type pgQueueRepository struct {
	pool *pgxpool.Pool
}

// NewPgQueueRepository returns a QueueRepository backed by PostgreSQL.
func NewPgQueueRepository(pool *pgxpool.Pool) QueueRepository {
	return &pgQueueRepository{pool: pool}
}

func (r *pgQueueRepository) Insert(ctx context.Context, item *domain.QueueItem) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reminder_queue
			(id, user_id, batch_id, status, retry_count, requeue_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID, item.UserID, item.BatchID, item.Status,
		item.RetryCount, item.RequeueCount, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert queue item: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) GetByID(ctx context.Context, id string) (*domain.QueueItem, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+queueColumns+`
		FROM reminder_queue WHERE id = $1`, id)

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return item, err
}

func (r *pgQueueRepository) InitializeBatch(ctx context.Context, batchID string, items []*domain.QueueItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, item := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO reminder_queue
				(id, user_id, batch_id, status, retry_count, requeue_count, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			item.ID, item.UserID, batchID, item.Status,
			item.RetryCount, item.RequeueCount, item.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert batch item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// ClaimNext selects and transitions the next pending item in one statement.
// FOR UPDATE SKIP LOCKED makes concurrent claimants skip rows another
// transaction is claiming, so no two callers ever receive the same item.
func (r *pgQueueRepository) ClaimNext(ctx context.Context, batchID string) (*domain.QueueItem, error) {
	var row pgx.Row
	if batchID == "" {
		row = r.pool.QueryRow(ctx, `
			UPDATE reminder_queue
			SET status = 'processing', started_at = now()
			WHERE id = (
				SELECT id FROM reminder_queue
				WHERE status = 'pending'
				ORDER BY created_at ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+queueColumns)
	} else {
		row = r.pool.QueryRow(ctx, `
			UPDATE reminder_queue
			SET status = 'processing', started_at = now()
			WHERE id = (
				SELECT id FROM reminder_queue
				WHERE status = 'pending' AND batch_id = $1
				ORDER BY created_at ASC
				LIMIT 1
				FOR UPDATE SKIP LOCKED
			)
			RETURNING `+queueColumns, batchID)
	}

	item, err := scanQueueItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQueueEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("claim next: %w", err)
	}
	return item, nil
}

func (r *pgQueueRepository) MarkProcessing(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE reminder_queue
		SET status = 'processing', started_at = now()
		WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("mark processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *pgQueueRepository) MarkCompleted(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_queue
		SET status = 'completed', completed_at = now()
		WHERE id = $1 AND status = 'processing'`, id)
	if err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) MarkFailed(ctx context.Context, id, errMsg string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE reminder_queue
		SET status = 'failed', error_message = $1, completed_at = now(),
		    retry_count = retry_count + 1
		WHERE id = $2 AND status IN ('pending', 'processing')`,
		truncateError(errMsg), id)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

func (r *pgQueueRepository) RequeueStale(ctx context.Context, timeout time.Duration, maxRequeues int) (int, int, error) {
	cutoff := time.Now().UTC().Add(-timeout)

	// Items past the requeue bound are permanently failed instead of
	// cycling pending <-> processing forever.
	failedTag, err := r.pool.Exec(ctx, `
		UPDATE reminder_queue
		SET status = 'failed', error_message = 'processing timed out',
		    completed_at = now(), retry_count = retry_count + 1
		WHERE status = 'processing' AND started_at < $1 AND requeue_count >= $2`,
		cutoff, maxRequeues)
	if err != nil {
		return 0, 0, fmt.Errorf("fail stale items: %w", err)
	}

	requeuedTag, err := r.pool.Exec(ctx, `
		UPDATE reminder_queue
		SET status = 'pending', started_at = NULL,
		    requeue_count = requeue_count + 1
		WHERE status = 'processing' AND started_at < $1 AND requeue_count < $2`,
		cutoff, maxRequeues)
	if err != nil {
		return 0, 0, fmt.Errorf("requeue stale items: %w", err)
	}

	return int(requeuedTag.RowsAffected()), int(failedTag.RowsAffected()), nil
}

func (r *pgQueueRepository) BatchProgress(ctx context.Context, batchID string) (*domain.BatchProgress, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM reminder_queue
		WHERE batch_id = $1
		GROUP BY status`, batchID)
	if err != nil {
		return nil, fmt.Errorf("batch progress: %w", err)
	}
	defer rows.Close()

	progress := &domain.BatchProgress{BatchID: batchID}
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan batch progress: %w", err)
		}
		switch status {
		case domain.StatusPending:
			progress.Pending = count
		case domain.StatusProcessing:
			progress.Processing = count
		case domain.StatusCompleted:
			progress.Completed = count
		case domain.StatusFailed:
			progress.Failed = count
		}
		progress.Total += count
	}
	return progress, rows.Err()
}

func (r *pgQueueRepository) CountByStatus(ctx context.Context) (map[domain.Status]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM reminder_queue
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.Status]int)
	for rows.Next() {
		var status domain.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func (r *pgQueueRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM reminder_queue WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete old queue items: %w", err)
	}
	return tag.RowsAffected(), nil
}

// scanQueueItem reads a single queue row from any pgx row type.
func scanQueueItem(row pgx.Row) (*domain.QueueItem, error) {
	var item domain.QueueItem
	err := row.Scan(
		&item.ID, &item.UserID, &item.BatchID, &item.Status,
		&item.RetryCount, &item.RequeueCount, &item.ErrorMessage,
		&item.CreatedAt, &item.StartedAt, &item.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
