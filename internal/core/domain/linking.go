package domain

import (
	"errors"
	"strings"
)

// LinkDelimiter separates the two fields of a linking message body.
// Telegram usernames cannot contain a comma, so the format is unambiguous;
// anything that does not split into exactly two non-empty fields is malformed
// and must be dropped, not retried.
const LinkDelimiter = ","

var ErrMalformedMessage = errors.New("malformed linking message")

// ErrChatNotFound is the recoverable resolution miss: the messaging platform
// does not know the handle (yet). It triggers the recent-updates fallback.
var ErrChatNotFound = errors.New("chat not found")

// LinkingMessage instructs the notification worker to resolve and notify a
// telegram handle for a freshly created account. The handle is carried raw,
// exactly as the user supplied it.
type LinkingMessage struct {
	AccountID        string
	TelegramUsername string
}

// Body renders the queue wire format "<account_id>,<telegram_username>".
func (m LinkingMessage) Body() string {
	return m.AccountID + LinkDelimiter + m.TelegramUsername
}

// ParseLinkingMessage decodes a queue body. It fails with ErrMalformedMessage
// unless the body contains exactly two non-empty fields.
func ParseLinkingMessage(body string) (LinkingMessage, error) {
	parts := strings.Split(body, LinkDelimiter)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return LinkingMessage{}, ErrMalformedMessage
	}
	return LinkingMessage{AccountID: parts[0], TelegramUsername: parts[1]}, nil
}
