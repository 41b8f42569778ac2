package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	// ErrQueueEmpty signals normal termination of a claim loop, not a failure.
	ErrQueueEmpty = errors.New("queue empty")

	// ErrAlreadyClaimed means another worker won the claim race; the item
	// is skipped, not failed.
	ErrAlreadyClaimed = errors.New("queue item already claimed")

	ErrNotFound          = errors.New("not found")
	ErrUserNotFound      = errors.New("user not found or inactive")
	ErrCredentialMissing = errors.New("no GitHub token configured")
	ErrDecryption        = errors.New("credential decryption failed")
	ErrRateLimited       = errors.New("GitHub API rate limit exceeded")
	ErrNoTargets         = errors.New("no active users to check")
	ErrUnauthorized      = errors.New("unauthorized")
)
