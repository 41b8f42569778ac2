package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/service"
)

// CronHandler exposes the manual trigger and batch observability
// endpoints. All routes sit behind the X-Cron-Secret middleware.
type CronHandler struct {
	svc    *service.CycleService
	logger *zap.Logger
}

func NewCronHandler(svc *service.CycleService, logger *zap.Logger) *CronHandler {
	return &CronHandler{svc: svc, logger: logger}
}

// Dispatch handles POST /api/v1/cron/dispatch
//
// Fires the same batch-initialize -> dispatch sequence as the daily
// schedule and returns immediately with the new batch id; progress is
// polled separately.
func (h *CronHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	batchID, users, err := h.svc.RunCycle(r.Context())
	if errors.Is(err, domain.ErrNoTargets) {
		respondJSON(w, http.StatusOK, map[string]any{
			"dispatched": false,
			"message":    "no active users to check",
		})
		return
	}
	if err != nil {
		h.logger.Error("manual cycle failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]any{
		"dispatched": true,
		"batch_id":   batchID,
		"users":      users,
	})
}

// BatchProgress handles GET /api/v1/cron/batches/{id}
func (h *CronHandler) BatchProgress(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "id")
	progress, err := h.svc.Progress(r.Context(), batchID)
	if err != nil {
		h.logger.Error("batch progress failed", zap.String("batch_id", batchID), zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"batch_id":   batchID,
		"progress":   progress,
		"percentage": progress.Percentage(),
	})
}

// QueueStats handles GET /api/v1/queue/stats
func (h *CronHandler) QueueStats(w http.ResponseWriter, r *http.Request) {
	counts, err := h.svc.QueueStats(r.Context())
	if err != nil {
		h.logger.Error("queue stats failed", zap.Error(err))
		mapError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"pending":    counts[domain.StatusPending],
		"processing": counts[domain.StatusProcessing],
		"completed":  counts[domain.StatusCompleted],
		"failed":     counts[domain.StatusFailed],
	})
}
