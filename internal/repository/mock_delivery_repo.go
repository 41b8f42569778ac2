package repository

import (
	"context"
	"sync"

	"github.com/streaky/streakd/internal/domain"
)

// MockDeliveryLogRepository is an in-memory DeliveryLogRepository for tests.
type MockDeliveryLogRepository struct {
	mu   sync.Mutex
	logs []*domain.DeliveryLog

	InsertErr error
}

func NewMockDeliveryLogRepository() *MockDeliveryLogRepository {
	return &MockDeliveryLogRepository{}
}

func (m *MockDeliveryLogRepository) Insert(_ context.Context, log *domain.DeliveryLog) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *log
	m.logs = append(m.logs, &clone)
	return nil
}

func (m *MockDeliveryLogRepository) RecentByUser(_ context.Context, userID string, limit int) ([]*domain.DeliveryLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*domain.DeliveryLog
	for i := len(m.logs) - 1; i >= 0 && len(result) < limit; i-- {
		if m.logs[i].UserID == userID {
			clone := *m.logs[i]
			result = append(result, &clone)
		}
	}
	return result, nil
}

// All returns every recorded log in insertion order (test helper).
func (m *MockDeliveryLogRepository) All() []*domain.DeliveryLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.DeliveryLog, len(m.logs))
	for i, l := range m.logs {
		clone := *l
		result[i] = &clone
	}
	return result
}
