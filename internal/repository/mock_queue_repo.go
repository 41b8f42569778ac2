package repository

import (
	"context"
	"sync"
	"time"

	"github.com/streaky/streakd/internal/domain"
)

// MockQueueRepository is a hand-written, in-memory implementation of
// QueueRepository used in unit tests. No mock-generation library needed.
//
// A single mutex around every operation reproduces the store's claim
// contract: find-oldest-pending and the transition to processing happen
// as one step, so concurrent claimants never receive the same item.
type MockQueueRepository struct {
	mu    sync.Mutex
	items map[string]*domain.QueueItem
	order []string // insertion order; ties on CreatedAt resolve FIFO

	// Optional error overrides — set in tests to simulate failure paths.
	InsertErr    error
	GetByIDErr   error
	ClaimNextErr error
}

func NewMockQueueRepository() *MockQueueRepository {
	return &MockQueueRepository{items: make(map[string]*domain.QueueItem)}
}

func (m *MockQueueRepository) Insert(_ context.Context, item *domain.QueueItem) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *item
	m.items[item.ID] = &clone
	m.order = append(m.order, item.ID)
	return nil
}

func (m *MockQueueRepository) GetByID(_ context.Context, id string) (*domain.QueueItem, error) {
	if m.GetByIDErr != nil {
		return nil, m.GetByIDErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *item
	return &clone, nil
}

func (m *MockQueueRepository) InitializeBatch(_ context.Context, batchID string, items []*domain.QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		clone := *item
		clone.BatchID = batchID
		m.items[item.ID] = &clone
		m.order = append(m.order, item.ID)
	}
	return nil
}

func (m *MockQueueRepository) ClaimNext(_ context.Context, batchID string) (*domain.QueueItem, error) {
	if m.ClaimNextErr != nil {
		return nil, m.ClaimNextErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range m.order {
		item := m.items[id]
		if item.Status != domain.StatusPending {
			continue
		}
		if batchID != "" && item.BatchID != batchID {
			continue
		}
		now := time.Now().UTC()
		item.Status = domain.StatusProcessing
		item.StartedAt = &now
		clone := *item
		return &clone, nil
	}
	return nil, domain.ErrQueueEmpty
}

func (m *MockQueueRepository) MarkProcessing(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok || item.Status != domain.StatusPending {
		return false, nil
	}
	now := time.Now().UTC()
	item.Status = domain.StatusProcessing
	item.StartedAt = &now
	return true, nil
}

func (m *MockQueueRepository) MarkCompleted(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok && item.Status == domain.StatusProcessing {
		now := time.Now().UTC()
		item.Status = domain.StatusCompleted
		item.CompletedAt = &now
	}
	return nil
}

func (m *MockQueueRepository) MarkFailed(_ context.Context, id, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok && !item.Status.IsTerminal() {
		now := time.Now().UTC()
		msg := truncateError(errMsg)
		item.Status = domain.StatusFailed
		item.ErrorMessage = &msg
		item.CompletedAt = &now
		item.RetryCount++
	}
	return nil
}

func (m *MockQueueRepository) RequeueStale(_ context.Context, timeout time.Duration, maxRequeues int) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().UTC().Add(-timeout)
	var requeued, failed int
	for _, item := range m.items {
		if item.Status != domain.StatusProcessing || item.StartedAt == nil || !item.StartedAt.Before(cutoff) {
			continue
		}
		if item.RequeueCount >= maxRequeues {
			now := time.Now().UTC()
			msg := "processing timed out"
			item.Status = domain.StatusFailed
			item.ErrorMessage = &msg
			item.CompletedAt = &now
			item.RetryCount++
			failed++
			continue
		}
		item.Status = domain.StatusPending
		item.StartedAt = nil
		item.RequeueCount++
		requeued++
	}
	return requeued, failed, nil
}

// SetStartedAt overrides an item's claim timestamp so tests can age
// in-flight items without sleeping.
func (m *MockQueueRepository) SetStartedAt(id string, at *time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[id]; ok {
		item.StartedAt = at
	}
}

func (m *MockQueueRepository) BatchProgress(_ context.Context, batchID string) (*domain.BatchProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	progress := &domain.BatchProgress{BatchID: batchID}
	for _, item := range m.items {
		if item.BatchID != batchID {
			continue
		}
		switch item.Status {
		case domain.StatusPending:
			progress.Pending++
		case domain.StatusProcessing:
			progress.Processing++
		case domain.StatusCompleted:
			progress.Completed++
		case domain.StatusFailed:
			progress.Failed++
		}
		progress.Total++
	}
	return progress, nil
}

func (m *MockQueueRepository) CountByStatus(_ context.Context) (map[domain.Status]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[domain.Status]int)
	for _, item := range m.items {
		counts[item.Status]++
	}
	return counts, nil
}

func (m *MockQueueRepository) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var deleted int64
	remaining := m.order[:0]
	for _, id := range m.order {
		if m.items[id].CreatedAt.Before(cutoff) {
			delete(m.items, id)
			deleted++
			continue
		}
		remaining = append(remaining, id)
	}
	m.order = remaining
	return deleted, nil
}
