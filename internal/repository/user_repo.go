package repository

import (
	"context"

	"github.com/streaky/streakd/internal/domain"
)

// UserRepository is the read-only user directory the core depends on.
// Account management (signup, preference updates) lives outside this
// service and is not represented here.
type UserRepository interface {
	// GetByID returns an active user, or domain.ErrUserNotFound for
	// missing or deactivated accounts.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// ListActiveIDs returns every active user id, the input to batch
	// initialization.
	ListActiveIDs(ctx context.Context) ([]string, error)
}
