package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/loomery/identity-system/internal/api/metrics"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

const readBlock = 5 * time.Second

// Consumer runs the receive-process-acknowledge loop against the stream's
// consumer group. Messages are handled one at a time; acknowledgment happens
// after processing, success or failure alike, so a crash mid-processing
// causes redelivery (at-least-once) while handled messages are never
// redelivered. Each instance registers under a unique consumer name, so
// running several workers is safe.
type Consumer struct {
	rdb      *redis.Client
	stream   string
	group    string
	consumer string
	handler  ports.NotificationService
	log      zerolog.Logger
}

func NewConsumer(rdb *redis.Client, stream, group string, handler ports.NotificationService, log zerolog.Logger) *Consumer {
	return &Consumer{
		rdb:      rdb,
		stream:   stream,
		group:    group,
		consumer: "worker-" + uuid.NewString()[:8],
		handler:  handler,
		log:      log,
	}
}

// Run blocks until ctx is cancelled. The consumer group is created on first
// use; an already-existing group is fine.
func (c *Consumer) Run(ctx context.Context) error {
	if err := c.ensureGroup(ctx); err != nil {
		return err
	}

	c.log.Info().
		Str("stream", c.stream).
		Str("group", c.group).
		Str("consumer", c.consumer).
		Msg("worker listening for linking messages")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.consumer,
			Streams:  []string{c.stream, ">"},
			Count:    1,
			Block:    readBlock,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out, nothing pending
			}
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("stream read failed")
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				c.process(ctx, msg)
			}
		}
	}
}

// process handles one entry and always acknowledges it afterwards: delivery
// is best-effort, and a failed message is logged and dropped rather than
// poisoning the group's pending list.
func (c *Consumer) process(ctx context.Context, msg redis.XMessage) {
	start := time.Now()

	body, _ := msg.Values[bodyField].(string)
	err := c.handler.Process(ctx, body)

	metrics.NotificationProcessingDuration.Observe(time.Since(start).Seconds())
	metrics.NotificationsProcessedTotal.WithLabelValues(outcome(err)).Inc()

	if err != nil {
		c.log.Warn().Err(err).Str("message_id", msg.ID).Msg("linking message dropped")
	}

	if err := c.rdb.XAck(ctx, c.stream, c.group, msg.ID).Err(); err != nil {
		c.log.Error().Err(err).Str("message_id", msg.ID).Msg("ack failed, message will be redelivered")
	}
}

func (c *Consumer) ensureGroup(ctx context.Context) error {
	err := c.rdb.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

func isBusyGroup(err error) bool {
	return err != nil && strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "sent"
	case errors.Is(err, domain.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, domain.ErrChatNotFound):
		return "unresolved"
	default:
		return "send_failed"
	}
}
