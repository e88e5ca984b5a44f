package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loomery/identity-system/internal/api/metrics"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// bodyField is the single stream entry field carrying the comma wire format.
const bodyField = "body"

// Publisher appends linking messages to the stream. It is an explicitly
// constructed, injected client — never a process-wide singleton — so tests
// substitute it with a fake.
type Publisher struct {
	rdb    *redis.Client
	stream string
	retry  ports.RetryPolicy
	log    zerolog.Logger
}

func NewPublisher(rdb *redis.Client, stream string, retry ports.RetryPolicy, log zerolog.Logger) *Publisher {
	return &Publisher{rdb: rdb, stream: stream, retry: retry, log: log}
}

// PublishLink appends one durable entry for the message. Attempts follow the
// injected retry policy (default: one). The caller treats any returned error
// as a lost notification, never as a failed account creation.
func (p *Publisher) PublishLink(ctx context.Context, msg domain.LinkingMessage) error {
	var lastErr error
	for attempt := 1; attempt <= p.retry.Attempts(); attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.retry.Delay(attempt)):
			}
		}

		err := p.rdb.XAdd(ctx, &redis.XAddArgs{
			Stream: p.stream,
			Values: map[string]interface{}{bodyField: msg.Body()},
		}).Err()
		if err == nil {
			metrics.LinkMessagesPublishedTotal.WithLabelValues("ok").Inc()
			p.log.Debug().
				Str("stream", p.stream).
				Str("account_id", msg.AccountID).
				Msg("linking message published")
			return nil
		}
		lastErr = err
	}

	metrics.LinkMessagesPublishedTotal.WithLabelValues("error").Inc()
	return fmt.Errorf("publish to %s: %w", p.stream, lastErr)
}

var _ ports.LinkPublisher = (*Publisher)(nil)
