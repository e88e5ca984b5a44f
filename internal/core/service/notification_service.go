package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

const welcomeTemplate = "Hi, %s! Welcome to our service!"

// NotificationService handles one linking message end-to-end: parse the
// payload, resolve the telegram handle to a chat, send the welcome message.
// Every failure is terminal for the message — the consumer acknowledges it
// either way, so delivery is best-effort and duplicate sends after a
// redelivery are tolerated.
type NotificationService struct {
	messenger ports.MessengerClient
	retry     ports.RetryPolicy
	log       zerolog.Logger
}

// NewNotificationService wires the messenger client with a retry policy for
// the direct lookup. Pass ports.NoRetry to keep single-attempt behavior.
func NewNotificationService(messenger ports.MessengerClient, retry ports.RetryPolicy, log zerolog.Logger) *NotificationService {
	return &NotificationService{messenger: messenger, retry: retry, log: log}
}

// Process consumes one message body.
//
//   - Malformed payloads are dropped: a body that does not carry exactly two
//     fields can never become deliverable, so retrying is pointless.
//   - Resolution is two-stage: direct handle lookup first, then a scan of the
//     platform's recent updates for a message from the handle.
//   - Send failures are logged, not retried.
func (s *NotificationService) Process(ctx context.Context, body string) error {
	msg, err := domain.ParseLinkingMessage(body)
	if err != nil {
		s.log.Warn().Str("body", body).Msg("dropping malformed linking message")
		return err
	}

	chatID, err := s.resolve(ctx, msg.TelegramUsername)
	if err != nil {
		s.log.Warn().Err(err).
			Str("account_id", msg.AccountID).
			Str("telegram_username", msg.TelegramUsername).
			Msg("could not resolve telegram handle, account stays unnotified")
		return fmt.Errorf("resolve %s: %w", msg.TelegramUsername, err)
	}

	text := fmt.Sprintf(welcomeTemplate, msg.TelegramUsername)
	if err := s.messenger.SendMessage(ctx, chatID, text); err != nil {
		s.log.Error().Err(err).
			Str("account_id", msg.AccountID).
			Int64("chat_id", chatID).
			Msg("welcome message send failed")
		return fmt.Errorf("send welcome: %w", err)
	}

	s.log.Info().
		Str("account_id", msg.AccountID).
		Str("telegram_username", msg.TelegramUsername).
		Int64("chat_id", chatID).
		Msg("welcome message sent")
	return nil
}

// resolve maps a handle to a chat id. The direct lookup runs under the retry
// policy; a definitive "not found" skips remaining attempts and falls back to
// the recent-updates scan.
func (s *NotificationService) resolve(ctx context.Context, username string) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts(); attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(s.retry.Delay(attempt)):
			}
		}

		chatID, err := s.messenger.ChatID(ctx, username)
		if err == nil {
			return chatID, nil
		}
		lastErr = err
		if errors.Is(err, domain.ErrChatNotFound) {
			break
		}
		s.log.Debug().Err(err).Int("attempt", attempt).Str("telegram_username", username).Msg("direct chat lookup failed")
	}

	if !errors.Is(lastErr, domain.ErrChatNotFound) {
		return 0, lastErr
	}

	s.log.Debug().Str("telegram_username", username).Msg("direct lookup missed, scanning recent updates")
	return s.messenger.RecentChatID(ctx, username)
}
