package worker

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/repository"
)

// DispatchStats summarises one fan-out run.
type DispatchStats struct {
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Dispatcher turns a batch of N pending items into N independent
// Processor invocations: a bounded set of goroutines each loops on the
// atomic claim until the queue reports empty. The claim is the only
// synchronization between goroutines (and between processes), so no two
// ever hold the same item.
//
// One item's failure never stops the loop — fault isolation comes from
// each item being its own claim/process/mark sequence.
type Dispatcher struct {
	queue     repository.QueueRepository
	proc      *Processor
	workers   int
	maxClaims int // per-goroutine budget, guards a runaway loop if claim semantics break
	logger    *zap.Logger
}

func NewDispatcher(
	queue repository.QueueRepository,
	proc *Processor,
	workers, maxClaims int,
	logger *zap.Logger,
) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	return &Dispatcher{
		queue: queue, proc: proc,
		workers: workers, maxClaims: maxClaims,
		logger: logger,
	}
}

// Dispatch drains the batch (empty batchID means any pending item) and
// blocks until every claimed item has been processed.
func (d *Dispatcher) Dispatch(ctx context.Context, batchID string) DispatchStats {
	var (
		mu    sync.Mutex
		stats DispatchStats
		wg    sync.WaitGroup
	)

	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			log := d.logger.With(zap.Int("dispatch_worker", id), zap.String("batch_id", batchID))
			d.claimLoop(ctx, batchID, log, func(res ProcessResult) {
				mu.Lock()
				defer mu.Unlock()
				switch res.Outcome {
				case OutcomeCompleted:
					stats.Completed++
				case OutcomeFailed:
					stats.Failed++
				default:
					stats.Skipped++
				}
			})
		}(i)
	}

	wg.Wait()
	d.logger.Info("dispatch finished",
		zap.String("batch_id", batchID),
		zap.Int("completed", stats.Completed),
		zap.Int("failed", stats.Failed),
		zap.Int("skipped", stats.Skipped),
	)
	return stats
}

func (d *Dispatcher) claimLoop(ctx context.Context, batchID string, log *zap.Logger, tally func(ProcessResult)) {
	for n := 0; n < d.maxClaims; n++ {
		if ctx.Err() != nil {
			return
		}

		item, err := d.queue.ClaimNext(ctx, batchID)
		if errors.Is(err, domain.ErrQueueEmpty) {
			return
		}
		if err != nil {
			log.Error("claim failed", zap.Error(err))
			return
		}

		res, err := d.proc.Process(ctx, item.ID)
		if err != nil {
			// Store unavailable for this item; keep claiming the rest.
			log.Error("process error", zap.String("queue_item_id", item.ID), zap.Error(err))
			continue
		}
		tally(res)
	}
	log.Warn("claim budget exhausted", zap.Int("max_claims", d.maxClaims))
}
