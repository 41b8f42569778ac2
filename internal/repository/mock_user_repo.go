package repository

import (
	"context"
	"sync"

	"github.com/streaky/streakd/internal/domain"
)

// MockUserRepository is an in-memory UserRepository for unit tests.
type MockUserRepository struct {
	mu    sync.RWMutex
	users map[string]*domain.User
	order []string

	GetByIDErr error
	ListErr    error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[string]*domain.User)}
}

// Add registers a user; inactive users are stored but never returned.
func (m *MockUserRepository) Add(u *domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *u
	m.users[u.ID] = &clone
	m.order = append(m.order, u.ID)
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok || !u.IsActive {
		return nil, domain.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (m *MockUserRepository) ListActiveIDs(_ context.Context) ([]string, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for _, id := range m.order {
		if m.users[id].IsActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
