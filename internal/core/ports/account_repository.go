package ports

import (
	"context"

	"github.com/loomery/identity-system/internal/core/domain"
)

// AccountRepository defines the persistence interface for accounts.
// Uniqueness of email and telegram handle is enforced by the store and
// surfaced as domain.ErrEmailTaken / domain.ErrHandleTaken.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) (*domain.Account, error)
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	List(ctx context.Context) ([]domain.Account, error)
	// Delete removes the account and, as a store-level cascade, every login
	// event that references it. Other accounts' events are untouched.
	Delete(ctx context.Context, id string) error
}

// LoginEventRepository persists the append-only authentication log.
type LoginEventRepository interface {
	Record(ctx context.Context, event *domain.LoginEvent) error
	ListByAccount(ctx context.Context, accountID string) ([]domain.LoginEvent, error)
}
