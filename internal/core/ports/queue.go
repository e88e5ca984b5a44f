package ports

import (
	"context"
	"time"

	"github.com/loomery/identity-system/internal/core/domain"
)

// LinkPublisher enqueues one durable linking message per account creation.
// Publishing happens after the account row is committed and must never fail
// the caller's creation path.
type LinkPublisher interface {
	PublishLink(ctx context.Context, msg domain.LinkingMessage) error
}

// NotificationService processes one linking message body end-to-end:
// parse, resolve, send. The caller acknowledges the message afterwards
// regardless of the returned error, so delivery stays best-effort.
type NotificationService interface {
	Process(ctx context.Context, body string) error
}

// RetryPolicy controls repeated attempts against unreliable collaborators
// (broker publish, handle lookup). The zero value means a single attempt
// with no backoff, which preserves the historical fire-and-forget behavior.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
}

// NoRetry is the default policy: one attempt, no backoff.
var NoRetry = RetryPolicy{MaxAttempts: 1}

// Attempts normalizes MaxAttempts to at least one.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay returns how long to wait before the given (1-based) retry attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if p.Backoff == nil {
		return 0
	}
	return p.Backoff(attempt)
}
