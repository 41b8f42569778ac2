package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/repository"
)

// Reaper requeues items stuck in processing past the timeout, recovering
// work lost to a crashed worker. It runs on its own schedule, independent
// of any batch.
//
// A slow (not crashed) worker whose item gets requeued can lead to the
// same user being notified twice for one day; that is a documented risk,
// not a queue bug — the claim itself stays exclusive.
type Reaper struct {
	queue       repository.QueueRepository
	interval    time.Duration
	timeout     time.Duration
	maxRequeues int
	logger      *zap.Logger

	onRequeued func(requeued, failed int)
}

// NewReaper constructs a reaper. onRequeued is optional (nil = no-op).
func NewReaper(
	queue repository.QueueRepository,
	interval, timeout time.Duration,
	maxRequeues int,
	logger *zap.Logger,
	onRequeued func(requeued, failed int),
) *Reaper {
	if onRequeued == nil {
		onRequeued = func(int, int) {}
	}
	return &Reaper{
		queue: queue, interval: interval, timeout: timeout,
		maxRequeues: maxRequeues, logger: logger, onRequeued: onRequeued,
	}
}

// Run ticks every interval and recovers any stale items.
// Stops cleanly when ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reaper started",
		zap.Duration("interval", r.interval),
		zap.Duration("timeout", r.timeout),
	)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopping")
			return
		case <-ticker.C:
			r.poll(ctx)
		}
	}
}

func (r *Reaper) poll(ctx context.Context) {
	requeued, failed, err := r.queue.RequeueStale(ctx, r.timeout, r.maxRequeues)
	if err != nil {
		r.logger.Error("reaper poll error", zap.Error(err))
		return
	}
	if requeued > 0 || failed > 0 {
		r.onRequeued(requeued, failed)
		r.logger.Info("recovered stale items",
			zap.Int("requeued", requeued),
			zap.Int("failed_permanently", failed),
		)
	}
}
