package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streaky/streakd/internal/domain"
	"github.com/streaky/streakd/internal/github"
	"github.com/streaky/streakd/internal/notify"
	"github.com/streaky/streakd/internal/ratelimiter"
	"github.com/streaky/streakd/internal/repository"
)

// Outcome is the final disposition of one Process call.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped covers every no-op path: the item was already
	// completed, already failed, or claimed by another worker.
	OutcomeSkipped Outcome = "skipped"
)

// ProcessResult reports what happened to one queue item.
type ProcessResult struct {
	Outcome Outcome
	Reason  string
}

// Decrypter opens the encrypted GitHub token stored on the user record.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// Processor performs the domain check for one claimed queue item:
// load the user, decrypt their token, fetch contribution data, compose
// the reminder, deliver it per channel, and record the final status.
//
// Process is idempotent: invoking it again on a terminal item is a
// no-op, and losing the claim race to another worker is a skip, never
// a failure.
type Processor struct {
	queue      repository.QueueRepository
	users      repository.UserRepository
	deliveries repository.DeliveryLogRepository
	crypt      Decrypter
	checker    github.ContributionChecker
	discord    notify.DiscordSender
	telegram   notify.TelegramSender
	limiter    *ratelimiter.ChannelLimiters
	logger     *zap.Logger

	// Hooks for metrics — injected by main so the processor stays metrics-agnostic.
	onItem     func(outcome string, latency time.Duration)
	onDelivery func(ch domain.Channel, success bool)
}

// NewProcessor constructs a processor. onItem and onDelivery are optional
// (nil = no-op).
func NewProcessor(
	queue repository.QueueRepository,
	users repository.UserRepository,
	deliveries repository.DeliveryLogRepository,
	crypt Decrypter,
	checker github.ContributionChecker,
	discord notify.DiscordSender,
	telegram notify.TelegramSender,
	limiter *ratelimiter.ChannelLimiters,
	logger *zap.Logger,
	onItem func(string, time.Duration),
	onDelivery func(domain.Channel, bool),
) *Processor {
	if onItem == nil {
		onItem = func(string, time.Duration) {}
	}
	if onDelivery == nil {
		onDelivery = func(domain.Channel, bool) {}
	}
	return &Processor{
		queue: queue, users: users, deliveries: deliveries,
		crypt: crypt, checker: checker,
		discord: discord, telegram: telegram,
		limiter: limiter, logger: logger,
		onItem: onItem, onDelivery: onDelivery,
	}
}

// Process runs the per-item state machine. The returned error is non-nil
// only for store failures; domain failures are captured on the item
// itself and reported through the result.
func (p *Processor) Process(ctx context.Context, itemID string) (ProcessResult, error) {
	start := time.Now()
	log := p.logger.With(zap.String("queue_item_id", itemID))

	item, err := p.queue.GetByID(ctx, itemID)
	if err != nil {
		return ProcessResult{}, fmt.Errorf("load queue item: %w", err)
	}

	// Resolve the item's claim. Terminal states make repeat invocations
	// a no-op; a pending item must be won through the conditional update.
	switch item.Status {
	case domain.StatusCompleted:
		log.Debug("item already completed, skipping")
		return ProcessResult{Outcome: OutcomeSkipped, Reason: "already completed"}, nil
	case domain.StatusFailed:
		log.Debug("item already failed, skipping")
		return ProcessResult{Outcome: OutcomeSkipped, Reason: "already failed"}, nil
	case domain.StatusPending:
		claimed, err := p.queue.MarkProcessing(ctx, item.ID)
		if err != nil {
			return ProcessResult{}, fmt.Errorf("claim item: %w", err)
		}
		if !claimed {
			log.Debug("lost claim race", zap.String("user_id", item.UserID))
			return ProcessResult{Outcome: OutcomeSkipped, Reason: "taken by another worker"}, nil
		}
	case domain.StatusProcessing:
		// Claimed by the dispatcher that handed it to us.
	}

	msg, user, checkErr := p.check(ctx, item.UserID)
	if checkErr != nil {
		log.Warn("domain check failed",
			zap.String("user_id", item.UserID),
			zap.Error(checkErr),
		)
		if err := p.queue.MarkFailed(ctx, item.ID, checkErr.Error()); err != nil {
			return ProcessResult{}, fmt.Errorf("mark failed: %w", err)
		}
		p.onItem(string(OutcomeFailed), time.Since(start))
		return ProcessResult{Outcome: OutcomeFailed, Reason: checkErr.Error()}, nil
	}

	// Channel failures are recorded per channel and never fail the item:
	// the domain check succeeded, which is what the item tracks.
	p.deliver(ctx, user, msg, log)

	if err := p.queue.MarkCompleted(ctx, item.ID); err != nil {
		return ProcessResult{}, fmt.Errorf("mark completed: %w", err)
	}

	elapsed := time.Since(start)
	p.onItem(string(OutcomeCompleted), elapsed)
	log.Info("item processed",
		zap.String("user_id", item.UserID),
		zap.Int("contributions_today", msg.ContributionsToday),
		zap.Int("current_streak", msg.CurrentStreak),
		zap.Duration("latency", elapsed),
	)
	return ProcessResult{Outcome: OutcomeCompleted}, nil
}

// check resolves the user, their credentials, and today's contribution
// data, and composes the reminder message. Each step is independently
// fallible and any failure fails the item.
func (p *Processor) check(ctx context.Context, userID string) (domain.ReminderMessage, *domain.User, error) {
	user, err := p.users.GetByID(ctx, userID)
	if err != nil {
		return domain.ReminderMessage{}, nil, err
	}

	if user.GithubPAT == nil || *user.GithubPAT == "" {
		return domain.ReminderMessage{}, nil, fmt.Errorf("%w: %s", domain.ErrCredentialMissing, user.GithubUsername)
	}

	token, err := p.crypt.Decrypt(*user.GithubPAT)
	if err != nil {
		return domain.ReminderMessage{}, nil, err
	}

	contributions, err := p.checker.ContributionsToday(ctx, token, user.GithubUsername)
	if err != nil {
		return domain.ReminderMessage{}, nil, fmt.Errorf("contributions for %s: %w", user.GithubUsername, err)
	}

	streak, err := p.checker.CurrentStreak(ctx, token, user.GithubUsername)
	if err != nil {
		return domain.ReminderMessage{}, nil, fmt.Errorf("streak for %s: %w", user.GithubUsername, err)
	}

	return domain.ComposeReminder(user.GithubUsername, contributions, streak), user, nil
}

// deliver attempts every configured channel. One channel's failure does
// not prevent attempting the other.
func (p *Processor) deliver(ctx context.Context, user *domain.User, msg domain.ReminderMessage, log *zap.Logger) {
	if user.HasDiscord() {
		if err := p.limiter.Wait(ctx, domain.ChannelDiscord); err != nil {
			return // ctx cancelled, shutting down
		}
		res := p.discord.Send(ctx, *user.DiscordWebhook, msg)
		p.recordDelivery(ctx, user.ID, domain.ChannelDiscord, res, log)
	}

	if user.HasTelegram() {
		if err := p.limiter.Wait(ctx, domain.ChannelTelegram); err != nil {
			return
		}
		res := p.telegram.Send(ctx, *user.TelegramToken, *user.TelegramChatID, msg)
		p.recordDelivery(ctx, user.ID, domain.ChannelTelegram, res, log)
	}
}

func (p *Processor) recordDelivery(ctx context.Context, userID string, ch domain.Channel, res notify.Result, log *zap.Logger) {
	p.onDelivery(ch, res.Success)

	entry := &domain.DeliveryLog{
		ID:      uuid.New().String(),
		UserID:  userID,
		Channel: ch,
		Status:  domain.DeliverySent,
		SentAt:  time.Now().UTC(),
	}
	if !res.Success {
		entry.Status = domain.DeliveryFailed
		entry.ErrorMessage = &res.Err
		log.Warn("delivery failed",
			zap.String("channel", string(ch)),
			zap.String("error", res.Err),
		)
	}

	// A logging failure must not stop processing.
	if err := p.deliveries.Insert(ctx, entry); err != nil {
		log.Error("failed to record delivery", zap.String("channel", string(ch)), zap.Error(err))
	}
}
