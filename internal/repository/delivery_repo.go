package repository

import (
	"context"

	"github.com/streaky/streakd/internal/domain"
)

// DeliveryLogRepository records one row per channel attempt, success or
// failure, for operator inspection.
type DeliveryLogRepository interface {
	Insert(ctx context.Context, log *domain.DeliveryLog) error
	RecentByUser(ctx context.Context, userID string, limit int) ([]*domain.DeliveryLog, error)
}
