package ports

import "context"

// IdentityProvider abstracts the federated OAuth provider: it turns an
// authorization code into an externally verified email address.
type IdentityProvider interface {
	AuthorizeURL() string
	ResolveEmail(ctx context.Context, code string) (string, error)
}

// MessengerClient abstracts the messaging platform used for welcome
// notifications. ChatID is the direct resolution path and reports a miss
// with domain.ErrChatNotFound; RecentChatID is the fallback that scans the
// platform's recent updates for a message from the handle.
type MessengerClient interface {
	ChatID(ctx context.Context, username string) (int64, error)
	RecentChatID(ctx context.Context, username string) (int64, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
}
