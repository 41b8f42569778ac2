package repository

import (
	"context"
	"time"

	"github.com/streaky/streakd/internal/domain"
)

// maxErrorLen bounds the error_message column so a pathological upstream
// response cannot bloat the queue table.
const maxErrorLen = 512

// QueueRepository defines all persistence operations for queue items.
// The pgx implementation is in pg_queue_repo.go.
// Tests use a hand-written mock (mock_queue_repo.go).
//
// The store is the only shared mutable resource in the system: every
// status transition below is a conditional update, and ClaimNext is the
// sole synchronization mechanism between concurrent dispatchers.
type QueueRepository interface {
	Insert(ctx context.Context, item *domain.QueueItem) error
	GetByID(ctx context.Context, id string) (*domain.QueueItem, error)

	// InitializeBatch persists all items of one batch in a single
	// transaction, so a batch is either fully enqueued or not at all.
	InitializeBatch(ctx context.Context, batchID string, items []*domain.QueueItem) error

	// ClaimNext atomically transitions the oldest pending item (optionally
	// scoped to a batch; empty string means any) to processing and returns
	// it. Exactly one caller receives any given item. Returns
	// domain.ErrQueueEmpty when no pending rows remain.
	ClaimNext(ctx context.Context, batchID string) (*domain.QueueItem, error)

	// MarkProcessing is the conditional pending -> processing transition
	// for a known item id. The boolean reports whether this caller won the
	// claim; false means another worker already holds (or finished) it.
	MarkProcessing(ctx context.Context, id string) (bool, error)

	// MarkCompleted transitions processing -> completed. Terminal items
	// are never touched.
	MarkCompleted(ctx context.Context, id string) error

	// MarkFailed transitions to failed with the captured error message
	// (truncated) and increments retry_count. Terminal items are never
	// touched.
	MarkFailed(ctx context.Context, id, errMsg string) error

	// RequeueStale recovers items stuck in processing longer than the
	// timeout: back to pending with started_at cleared, up to maxRequeues
	// times per item, after which the item is failed with a timeout
	// message. Returns (requeued, failed) counts.
	RequeueStale(ctx context.Context, timeout time.Duration, maxRequeues int) (int, int, error)

	// BatchProgress aggregates item counts per status for one batch.
	BatchProgress(ctx context.Context, batchID string) (*domain.BatchProgress, error)

	// CountByStatus is the global queue snapshot used for observability.
	CountByStatus(ctx context.Context) (map[domain.Status]int, error)

	// DeleteOlderThan removes rows created before the cutoff and returns
	// how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func truncateError(msg string) string {
	if len(msg) > maxErrorLen {
		return msg[:maxErrorLen]
	}
	return msg
}
