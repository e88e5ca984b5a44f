package ports

import (
	"context"
	"time"

	"github.com/loomery/identity-system/internal/core/domain"
)

// TokenService issues and verifies signed, self-contained session tokens.
// Verification is pure: no server-side state, no revocation list.
type TokenService interface {
	Issue(subject string, ttl time.Duration) (string, error)
	// Verify returns the claims or one of domain.ErrTokenMalformed,
	// domain.ErrTokenSignature, domain.ErrTokenExpired.
	Verify(token string) (*domain.Claims, error)
}

// FederatedResult is the outcome of reconciling a federated identity.
// When Matched, Token is a fresh session token and Account is the local
// account. Otherwise Token is a short-lived provisioning token authorizing
// completion of account creation for the email it carries.
type FederatedResult struct {
	Matched bool
	Token   string
	Account *domain.Account
}

// AuthService implements the identity reconciliation flows: direct
// registration and login, federated login, and provisioning completion.
type AuthService interface {
	// Register creates a standard account, records a login event, enqueues a
	// linking message, and returns the account with a session token.
	// Fails with domain.ErrEmailTaken / domain.ErrHandleTaken on conflicts.
	Register(ctx context.Context, email, password, telegramUsername, ip string) (*domain.Account, string, error)

	// Login verifies credentials against the stored bcrypt hash. Unknown
	// email and wrong password are indistinguishable: both return
	// domain.ErrInvalidCredentials.
	Login(ctx context.Context, email, password, ip string) (string, *domain.Account, error)

	// FederatedLogin reconciles an externally verified email with the store.
	FederatedLogin(ctx context.Context, email, ip string) (*FederatedResult, error)

	// CompleteProvisioning finishes account creation authorized by a
	// provisioning token. It re-checks for an existing account to guard
	// against the create race between federated login and completion.
	CompleteProvisioning(ctx context.Context, token, password, confirm, telegramUsername, ip string) (*domain.Account, string, error)
}

// AccountService covers identity-scoped reads and the privileged admin
// mutations gated by the access guard.
type AccountService interface {
	List(ctx context.Context) ([]domain.Account, error)
	// CreateWithRole is the privileged creation path; unlike Register it
	// accepts an explicit role.
	CreateWithRole(ctx context.Context, email, password, telegramUsername, role, ip string) (*domain.Account, error)
	Delete(ctx context.Context, id string) error
	LoginHistory(ctx context.Context, email string) ([]domain.LoginEvent, error)
	// CurrentRole resolves the subject's role from the store at call time.
	// Roles are never trusted from token claims: they can change after a
	// token was issued.
	CurrentRole(ctx context.Context, email string) (string, error)
}
