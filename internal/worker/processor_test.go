package worker_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/encryption"
	"github.com/streaky/streakd/internal/notify"
	"github.com/streaky/streakd/internal/ratelimiter"
	"github.com/streaky/streakd/internal/repository"
	"github.com/streaky/streakd/internal/worker"
)

// fakeChecker returns canned contribution data, or an error per username.
type fakeChecker struct {
	contributions int
	streak        int
	errs          map[string]error

	mu    sync.Mutex
	calls int
}

func (f *fakeChecker) ContributionsToday(_ context.Context, _, username string) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if err := f.errs[username]; err != nil {
		return 0, err
	}
	return f.contributions, nil
}

func (f *fakeChecker) CurrentStreak(_ context.Context, _, username string) (int, error) {
	if err := f.errs[username]; err != nil {
		return 0, err
	}
	return f.streak, nil
}

func (f *fakeChecker) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeDiscord and fakeTelegram count sends and can be forced to fail.
type fakeDiscord struct {
	mu    sync.Mutex
	sent  int
	fail  bool
	lasts domain.ReminderMessage
}

func (f *fakeDiscord) Send(_ context.Context, _ string, msg domain.ReminderMessage) notify.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	f.lasts = msg
	if f.fail {
		return notify.Result{Success: false, Err: "webhook returned 404"}
	}
	return notify.Result{Success: true}
}

func (f *fakeDiscord) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

type fakeTelegram struct {
	mu   sync.Mutex
	sent int
	fail bool
}

func (f *fakeTelegram) Send(_ context.Context, _, _ string, _ domain.ReminderMessage) notify.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	if f.fail {
		return notify.Result{Success: false, Err: "telegram: chat not found"}
	}
	return notify.Result{Success: true}
}

func (f *fakeTelegram) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

type fixture struct {
	queue      *repository.MockQueueRepository
	users      *repository.MockUserRepository
	deliveries *repository.MockDeliveryLogRepository
	crypt      *encryption.Service
	checker    *fakeChecker
	discord    *fakeDiscord
	telegram   *fakeTelegram
	proc       *worker.Processor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	crypt, err := encryption.New("unit-test-key")
	if err != nil {
		t.Fatalf("encryption.New: %v", err)
	}
	f := &fixture{
		queue:      repository.NewMockQueueRepository(),
		users:      repository.NewMockUserRepository(),
		deliveries: repository.NewMockDeliveryLogRepository(),
		crypt:      crypt,
		checker:    &fakeChecker{contributions: 3, streak: 12, errs: map[string]error{}},
		discord:    &fakeDiscord{},
		telegram:   &fakeTelegram{},
	}
	f.proc = worker.NewProcessor(
		f.queue, f.users, f.deliveries,
		f.crypt, f.checker, f.discord, f.telegram,
		ratelimiter.New(1000),
		zap.NewNop(),
		nil, nil,
	)
	return f
}

func ptr(s string) *string { return &s }

// addUser registers an active user with an encrypted token and both
// delivery channels, and enqueues one pending item for them.
func (f *fixture) addUser(t *testing.T, id, username string) *domain.QueueItem {
	t.Helper()
	sealed, err := f.crypt.Encrypt("ghp_" + username)
	if err != nil {
		t.Fatalf("encrypt token: %v", err)
	}
	f.users.Add(&domain.User{
		ID:             id,
		GithubUsername: username,
		GithubPAT:      &sealed,
		DiscordWebhook: ptr("https://discord.example/webhook/" + id),
		TelegramToken:  ptr("bot-token"),
		TelegramChatID: ptr("chat-" + id),
		IsActive:       true,
	})
	item := &domain.QueueItem{
		ID:        "item-" + id,
		UserID:    id,
		BatchID:   "batch-1",
		Status:    domain.StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := f.queue.Insert(context.Background(), item); err != nil {
		t.Fatalf("insert item: %v", err)
	}
	return item
}

func TestProcess_HappyPath(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeCompleted {
		t.Fatalf("expected completed, got %s (%s)", res.Outcome, res.Reason)
	}

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("item status %s, want completed", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed item must have completed_at")
	}
	if f.discord.sendCount() != 1 || f.telegram.sendCount() != 1 {
		t.Fatalf("expected one send per channel, got discord=%d telegram=%d",
			f.discord.sendCount(), f.telegram.sendCount())
	}

	logs := f.deliveries.All()
	if len(logs) != 2 {
		t.Fatalf("expected 2 delivery logs, got %d", len(logs))
	}
	for _, l := range logs {
		if l.Status != domain.DeliverySent {
			t.Fatalf("expected sent status, got %s for %s", l.Status, l.Channel)
		}
	}
}

// Processing a terminal item again must not contact any channel.
func TestProcess_Idempotent(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")
	ctx := context.Background()

	if _, err := f.proc.Process(ctx, item.ID); err != nil {
		t.Fatalf("first run: %v", err)
	}

	res, err := f.proc.Process(ctx, item.ID)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if res.Outcome != worker.OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
	if f.discord.sendCount() != 1 || f.telegram.sendCount() != 1 {
		t.Fatal("repeat invocation must not send again")
	}
	if len(f.deliveries.All()) != 2 {
		t.Fatal("repeat invocation must not log deliveries again")
	}
}

// A channel failure is recorded but never fails the item, and the other
// channel is still attempted.
func TestProcess_PartialChannelFailure(t *testing.T) {
	f := newFixture(t)
	f.discord.fail = true
	item := f.addUser(t, "u1", "octocat")

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeCompleted {
		t.Fatalf("expected completed despite channel failure, got %s", res.Outcome)
	}
	if f.telegram.sendCount() != 1 {
		t.Fatal("telegram must still be attempted after discord fails")
	}

	var sent, failed int
	for _, l := range f.deliveries.All() {
		switch l.Status {
		case domain.DeliverySent:
			sent++
		case domain.DeliveryFailed:
			failed++
			if l.Channel != domain.ChannelDiscord {
				t.Fatalf("failure logged on wrong channel: %s", l.Channel)
			}
			if l.ErrorMessage == nil || *l.ErrorMessage == "" {
				t.Fatal("failed delivery must carry the error")
			}
		}
	}
	if sent != 1 || failed != 1 {
		t.Fatalf("expected 1 sent / 1 failed, got %d / %d", sent, failed)
	}
}

func TestProcess_MissingCredentialFailsItem(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")

	// Strip the token after enqueueing.
	u, _ := f.users.GetByID(context.Background(), "u1")
	u.GithubPAT = nil
	f.users.Add(u)

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}

	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("item status %s, want failed", got.Status)
	}
	if got.ErrorMessage == nil {
		t.Fatal("failed item must record the error")
	}
	if f.discord.sendCount() != 0 || f.telegram.sendCount() != 0 {
		t.Fatal("no delivery may be attempted without credentials")
	}
}

func TestProcess_BadCiphertextFailsItem(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")

	u, _ := f.users.GetByID(context.Background(), "u1")
	u.GithubPAT = ptr("not base64!!")
	f.users.Add(u)

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	got, _ := f.queue.GetByID(context.Background(), item.ID)
	if got.ErrorMessage == nil || *got.ErrorMessage != domain.ErrDecryption.Error() {
		t.Fatalf("expected decryption failure on the item, got %v", got.ErrorMessage)
	}
	if f.checker.callCount() != 0 {
		t.Fatal("upstream must not be called with an unopenable token")
	}
}

func TestProcess_GithubErrorFailsItem(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")
	f.checker.errs["octocat"] = domain.ErrRateLimited

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeFailed {
		t.Fatalf("expected failed, got %s", res.Outcome)
	}
	if f.discord.sendCount() != 0 {
		t.Fatal("no delivery on a failed check")
	}
}

// A worker that loses the pending->processing race skips the item.
func TestProcess_LostClaimSkips(t *testing.T) {
	f := newFixture(t)
	item := f.addUser(t, "u1", "octocat")
	ctx := context.Background()

	// Another worker wins the claim, then finishes.
	if won, _ := f.queue.MarkProcessing(ctx, item.ID); !won {
		t.Fatal("setup: claim should succeed")
	}
	_ = f.queue.MarkCompleted(ctx, item.ID)

	res, err := f.proc.Process(ctx, item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", res.Outcome)
	}
	if f.discord.sendCount() != 0 {
		t.Fatal("a lost claim must not deliver")
	}
}

func TestProcess_SingleChannelUser(t *testing.T) {
	f := newFixture(t)
	sealed, _ := f.crypt.Encrypt("ghp_solo")
	f.users.Add(&domain.User{
		ID:             "u2",
		GithubUsername: "solo",
		GithubPAT:      &sealed,
		TelegramToken:  ptr("bot-token"),
		TelegramChatID: ptr("chat-u2"),
		IsActive:       true,
	})
	item := &domain.QueueItem{
		ID: "item-u2", UserID: "u2", BatchID: "b",
		Status: domain.StatusPending, CreatedAt: time.Now().UTC(),
	}
	_ = f.queue.Insert(context.Background(), item)

	res, err := f.proc.Process(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != worker.OutcomeCompleted {
		t.Fatalf("expected completed, got %s", res.Outcome)
	}
	if f.discord.sendCount() != 0 || f.telegram.sendCount() != 1 {
		t.Fatalf("only telegram should be used: discord=%d telegram=%d",
			f.discord.sendCount(), f.telegram.sendCount())
	}
}
