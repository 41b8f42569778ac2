package domain

import (
	"math"
	"time"
)

// Status tracks the lifecycle of a queue item.
// Items only move forward: pending -> processing -> completed/failed.
// The one exception is the reaper, which moves a timed-out processing
// item back to pending.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further status mutation is allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// QueueItem is one unit of work: check one user's contributions and
// notify them if needed. Owned exclusively by the queue store; mutated
// only through its state-transition operations.
type QueueItem struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	BatchID      string     `json:"batch_id"`
	Status       Status     `json:"status"`
	RetryCount   int        `json:"retry_count"`
	RequeueCount int        `json:"requeue_count"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// BatchProgress is the per-status breakdown of one batch, derived by
// aggregation — batches have no row of their own.
type BatchProgress struct {
	BatchID    string `json:"batch_id"`
	Pending    int    `json:"pending"`
	Processing int    `json:"processing"`
	Completed  int    `json:"completed"`
	Failed     int    `json:"failed"`
	Total      int    `json:"total"`
}

// Percentage returns how much of the batch has reached a terminal
// status, rounded to the nearest whole percent.
func (p BatchProgress) Percentage() int {
	if p.Total == 0 {
		return 0
	}
	return int(math.Round(float64(p.Completed+p.Failed) / float64(p.Total) * 100))
}
