package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
)

// CycleRunner starts one reminder cycle: initialize a batch for all
// active users and dispatch it. Implemented by service.CycleService.
type CycleRunner interface {
	RunCycle(ctx context.Context) (batchID string, users int, err error)
}

// CycleWorker is the time-based trigger: it fires one cycle per day when
// the configured reminder hour (UTC) is reached. The manual HTTP trigger
// goes through the same RunCycle path, so double-triggering within one
// period is the operator's call, not prevented here.
type CycleWorker struct {
	runner   CycleRunner
	interval time.Duration
	hourUTC  int
	logger   *zap.Logger

	lastRunDay string
}

func NewCycleWorker(runner CycleRunner, interval time.Duration, hourUTC int, logger *zap.Logger) *CycleWorker {
	return &CycleWorker{runner: runner, interval: interval, hourUTC: hourUTC, logger: logger}
}

// Run ticks every interval and fires a cycle when due.
// Stops cleanly when ctx is cancelled.
func (cw *CycleWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(cw.interval)
	defer ticker.Stop()

	cw.logger.Info("cycle worker started",
		zap.Int("reminder_hour_utc", cw.hourUTC),
		zap.Duration("interval", cw.interval),
	)

	for {
		select {
		case <-ctx.Done():
			cw.logger.Info("cycle worker stopping")
			return
		case <-ticker.C:
			cw.tick(ctx, time.Now().UTC())
		}
	}
}

func (cw *CycleWorker) tick(ctx context.Context, now time.Time) {
	if now.Hour() != cw.hourUTC {
		return
	}
	day := now.Format("2006-01-02")
	if day == cw.lastRunDay {
		return
	}
	cw.lastRunDay = day

	batchID, users, err := cw.runner.RunCycle(ctx)
	if errors.Is(err, domain.ErrNoTargets) {
		cw.logger.Info("no active users, cycle skipped")
		return
	}
	if err != nil {
		cw.logger.Error("scheduled cycle failed", zap.Error(err))
		// Allow a retry on the next tick within the same hour.
		cw.lastRunDay = ""
		return
	}
	cw.logger.Info("scheduled cycle started",
		zap.String("batch_id", batchID),
		zap.Int("users", users),
	)
}
