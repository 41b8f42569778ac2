package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/repository"
	"github.com/streaky/streakd/internal/service"
	"github.com/streaky/streakd/internal/worker"
)

// fakeDispatcher records dispatched batch ids and signals when called.
type fakeDispatcher struct {
	mu      sync.Mutex
	batches []string
	called  chan struct{}
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{called: make(chan struct{}, 8)}
}

func (f *fakeDispatcher) Dispatch(_ context.Context, batchID string) worker.DispatchStats {
	f.mu.Lock()
	f.batches = append(f.batches, batchID)
	f.mu.Unlock()
	f.called <- struct{}{}
	return worker.DispatchStats{}
}

func (f *fakeDispatcher) dispatched() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.batches...)
}

func activeUser(id string) *domain.User {
	return &domain.User{ID: id, GithubUsername: "gh-" + id, IsActive: true}
}

func TestRunCycle_InitializesAndDispatches(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	users := repository.NewMockUserRepository()
	users.Add(activeUser("u1"))
	users.Add(activeUser("u2"))
	users.Add(activeUser("u3"))
	users.Add(&domain.User{ID: "u4", GithubUsername: "gh-u4", IsActive: false})

	disp := newFakeDispatcher()
	svc := service.NewCycleService(queue, users, disp, context.Background(), zap.NewNop(), nil)

	batchID, count, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batchID == "" {
		t.Fatal("expected a batch id")
	}
	if count != 3 {
		t.Fatalf("expected 3 targets (inactive excluded), got %d", count)
	}

	progress, err := svc.Progress(context.Background(), batchID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if progress.Total != 3 || progress.Pending != 3 {
		t.Fatalf("batch not fully pending after init: %+v", progress)
	}

	select {
	case <-disp.called:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher never invoked")
	}
	if got := disp.dispatched(); len(got) != 1 || got[0] != batchID {
		t.Fatalf("dispatcher got %v, want [%s]", got, batchID)
	}
}

func TestRunCycle_NoActiveUsers(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	users := repository.NewMockUserRepository()
	disp := newFakeDispatcher()
	svc := service.NewCycleService(queue, users, disp, context.Background(), zap.NewNop(), nil)

	_, _, err := svc.RunCycle(context.Background())
	if !errors.Is(err, domain.ErrNoTargets) {
		t.Fatalf("expected ErrNoTargets, got %v", err)
	}

	select {
	case <-disp.called:
		t.Fatal("dispatcher must not run for an empty cycle")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunCycle_ListFailure(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	users := repository.NewMockUserRepository()
	users.ListErr = errors.New("db down")

	svc := service.NewCycleService(queue, users, newFakeDispatcher(), context.Background(), zap.NewNop(), nil)
	if _, _, err := svc.RunCycle(context.Background()); err == nil {
		t.Fatal("expected error when listing targets fails")
	}
}

func TestRunCycle_DistinctBatches(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	users := repository.NewMockUserRepository()
	users.Add(activeUser("u1"))

	disp := newFakeDispatcher()
	svc := service.NewCycleService(queue, users, disp, context.Background(), zap.NewNop(), nil)

	first, _, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Fatal("each cycle must mint a fresh batch id")
	}

	counts, _ := svc.QueueStats(context.Background())
	if counts[domain.StatusPending] != 2 {
		t.Fatalf("expected 2 pending items across batches, got %d", counts[domain.StatusPending])
	}
}

func TestRunCycle_BatchHookFires(t *testing.T) {
	queue := repository.NewMockQueueRepository()
	users := repository.NewMockUserRepository()
	users.Add(activeUser("u1"))

	var hooks int
	svc := service.NewCycleService(queue, users, newFakeDispatcher(), context.Background(), zap.NewNop(), func() { hooks++ })

	if _, _, err := svc.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if hooks != 1 {
		t.Fatalf("expected batch hook to fire once, got %d", hooks)
	}
}
