package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/repository"
	"github.com/streaky/streakd/internal/worker"
)

// BatchDispatcher drains one batch. Implemented by worker.Dispatcher.
type BatchDispatcher interface {
	Dispatch(ctx context.Context, batchID string) worker.DispatchStats
}

// CycleService coordinates batch initialization and fan-out dispatch.
// Both triggers — the daily schedule and the manual endpoint — go
// through RunCycle, so they produce the exact same sequence.
type CycleService struct {
	queue      repository.QueueRepository
	users      repository.UserRepository
	dispatcher BatchDispatcher
	logger     *zap.Logger

	// workerCtx outlives the triggering request: dispatch continues in
	// the background after RunCycle returns and is cancelled only on
	// shutdown.
	workerCtx context.Context

	onBatch func()
}

// NewCycleService constructs the service. onBatch is optional (nil = no-op).
func NewCycleService(
	queue repository.QueueRepository,
	users repository.UserRepository,
	dispatcher BatchDispatcher,
	workerCtx context.Context,
	logger *zap.Logger,
	onBatch func(),
) *CycleService {
	if onBatch == nil {
		onBatch = func() {}
	}
	return &CycleService{
		queue: queue, users: users, dispatcher: dispatcher,
		workerCtx: workerCtx, logger: logger, onBatch: onBatch,
	}
}

// RunCycle expands the active user list into queue rows under a fresh
// batch id and starts the dispatcher. It returns as soon as the batch
// is persisted; processing continues in the background and progress is
// observable through Progress.
func (s *CycleService) RunCycle(ctx context.Context) (string, int, error) {
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return "", 0, fmt.Errorf("list targets: %w", err)
	}
	if len(ids) == 0 {
		return "", 0, domain.ErrNoTargets
	}

	batchID := uuid.New().String()
	now := time.Now().UTC()

	items := make([]*domain.QueueItem, len(ids))
	for i, userID := range ids {
		items[i] = &domain.QueueItem{
			ID:        uuid.New().String(),
			UserID:    userID,
			BatchID:   batchID,
			Status:    domain.StatusPending,
			CreatedAt: now,
		}
	}

	if err := s.queue.InitializeBatch(ctx, batchID, items); err != nil {
		return "", 0, fmt.Errorf("initialize batch: %w", err)
	}

	s.onBatch()
	s.logger.Info("batch initialized",
		zap.String("batch_id", batchID),
		zap.Int("users", len(ids)),
	)

	go func() {
		stats := s.dispatcher.Dispatch(s.workerCtx, batchID)
		s.logger.Info("batch dispatched",
			zap.String("batch_id", batchID),
			zap.Int("completed", stats.Completed),
			zap.Int("failed", stats.Failed),
			zap.Int("skipped", stats.Skipped),
		)
	}()

	return batchID, len(ids), nil
}

// Progress aggregates the batch's per-status counts. Unknown batch ids
// yield zero counts, mirroring the aggregation (there is no batch row
// to miss).
func (s *CycleService) Progress(ctx context.Context, batchID string) (*domain.BatchProgress, error) {
	return s.queue.BatchProgress(ctx, batchID)
}

// QueueStats returns the global item count per status.
func (s *CycleService) QueueStats(ctx context.Context) (map[domain.Status]int, error) {
	return s.queue.CountByStatus(ctx)
}
