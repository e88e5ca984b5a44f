package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// AccountService serves identity-scoped reads and the privileged account
// mutations. It is also where the access guard resolves a subject's current
// role, so a role change takes effect before any previously issued token
// expires.
type AccountService struct {
	accounts ports.AccountRepository
	events   ports.LoginEventRepository
	queue    ports.LinkPublisher
	log      zerolog.Logger
}

func NewAccountService(
	accounts ports.AccountRepository,
	events ports.LoginEventRepository,
	queue ports.LinkPublisher,
	log zerolog.Logger,
) *AccountService {
	return &AccountService{
		accounts: accounts,
		events:   events,
		queue:    queue,
		log:      log,
	}
}

func (s *AccountService) List(ctx context.Context) ([]domain.Account, error) {
	return s.accounts.List(ctx)
}

// CreateWithRole is the privileged creation path. It mirrors direct
// registration (account → login event → linking message) but accepts an
// explicit role and issues no session token: the admin stays logged in as
// themselves.
func (s *AccountService) CreateWithRole(ctx context.Context, email, password, telegramUsername, role, ip string) (*domain.Account, error) {
	if email == "" || password == "" || telegramUsername == "" {
		return nil, domain.ErrInvalidCredentials
	}
	if !domain.ValidRole(role) {
		return nil, domain.ErrInvalidRole
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.Create(ctx, &domain.Account{
		Email:            email,
		PasswordHash:     string(hash),
		TelegramUsername: telegramUsername,
		Role:             role,
		CreatedAt:        time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}

	event := &domain.LoginEvent{
		AccountID: account.ID,
		Timestamp: time.Now().UTC(),
		Origin:    domain.OriginAdmin,
		IPAddress: ip,
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("account_id", account.ID).Msg("failed to record login event")
	}

	msg := domain.LinkingMessage{AccountID: account.ID, TelegramUsername: telegramUsername}
	if err := s.queue.PublishLink(ctx, msg); err != nil {
		s.log.Error().Err(err).Str("account_id", account.ID).Msg("failed to publish linking message")
	}

	return account, nil
}

// Delete removes an account; the store cascades the removal to its login
// events.
func (s *AccountService) Delete(ctx context.Context, id string) error {
	return s.accounts.Delete(ctx, id)
}

// LoginHistory lists the authentication log for the account owning email.
func (s *AccountService) LoginHistory(ctx context.Context, email string) ([]domain.LoginEvent, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	return s.events.ListByAccount(ctx, account.ID)
}

// CurrentRole reads the stored role at call time. Token claims never carry
// authority here.
func (s *AccountService) CurrentRole(ctx context.Context, email string) (string, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	return account.Role, nil
}

var _ ports.AccountService = (*AccountService)(nil)
