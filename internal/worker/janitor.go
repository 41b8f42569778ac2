package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/repository"
)

// Janitor deletes queue rows older than the retention window. Batches
// are implicit groupings of queue rows, so this is also batch cleanup.
type Janitor struct {
	queue         repository.QueueRepository
	interval      time.Duration
	retentionDays int
	logger        *zap.Logger

	onCleaned func(rows int64)
}

// NewJanitor constructs a janitor. onCleaned is optional (nil = no-op).
func NewJanitor(
	queue repository.QueueRepository,
	interval time.Duration,
	retentionDays int,
	logger *zap.Logger,
	onCleaned func(int64),
) *Janitor {
	if onCleaned == nil {
		onCleaned = func(int64) {}
	}
	return &Janitor{
		queue: queue, interval: interval, retentionDays: retentionDays,
		logger: logger, onCleaned: onCleaned,
	}
}

// Run ticks every interval and deletes rows past retention.
// Stops cleanly when ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("janitor started",
		zap.Duration("interval", j.interval),
		zap.Int("retention_days", j.retentionDays),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("janitor stopping")
			return
		case <-ticker.C:
			j.poll(ctx)
		}
	}
}

func (j *Janitor) poll(ctx context.Context) {
	cutoff := time.Now().UTC().AddDate(0, 0, -j.retentionDays)
	deleted, err := j.queue.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		j.logger.Error("janitor poll error", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.onCleaned(deleted)
		j.logger.Info("cleaned up old queue rows", zap.Int64("deleted", deleted))
	}
}
