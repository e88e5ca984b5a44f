package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// AuthService reconciles inbound identities with the credential store and
// mints the tokens that come out of every successful flow.
type AuthService struct {
	accounts ports.AccountRepository
	events   ports.LoginEventRepository
	tokens   ports.TokenService
	queue    ports.LinkPublisher
	log      zerolog.Logger
}

func NewAuthService(
	accounts ports.AccountRepository,
	events ports.LoginEventRepository,
	tokens ports.TokenService,
	queue ports.LinkPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		accounts: accounts,
		events:   events,
		tokens:   tokens,
		queue:    queue,
		log:      log,
	}
}

// Register creates a standard account from direct registration. On success a
// login event is recorded, a linking message is enqueued, and a session token
// is issued. Store-enforced uniqueness surfaces as domain.ErrEmailTaken or
// domain.ErrHandleTaken.
func (s *AuthService) Register(ctx context.Context, email, password, telegramUsername, ip string) (*domain.Account, string, error) {
	if email == "" || password == "" || telegramUsername == "" {
		return nil, "", domain.ErrInvalidCredentials
	}

	account, err := s.createAccount(ctx, email, password, telegramUsername, domain.RoleStandard, domain.OriginPassword, ip)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(account.Email, domain.SessionTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Login verifies a direct credential pair. Account-not-found and
// wrong-password both collapse into domain.ErrInvalidCredentials so a caller
// cannot enumerate registered emails through this path.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (string, *domain.Account, error) {
	if email == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	s.recordLogin(ctx, account.ID, domain.OriginPassword, ip)

	token, err := s.tokens.Issue(account.Email, domain.SessionTokenTTL)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// FederatedLogin reconciles an email the identity provider has already
// verified. An existing account yields an authenticated session; an unknown
// email yields a 15-minute provisioning token and no account — creation only
// happens through the explicit completion step.
func (s *AuthService) FederatedLogin(ctx context.Context, email, ip string) (*ports.FederatedResult, error) {
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	if account != nil {
		s.recordLogin(ctx, account.ID, domain.OriginFederated, ip)
		token, err := s.tokens.Issue(account.Email, domain.SessionTokenTTL)
		if err != nil {
			return nil, err
		}
		return &ports.FederatedResult{Matched: true, Token: token, Account: account}, nil
	}

	token, err := s.tokens.Issue(email, domain.ProvisioningTokenTTL)
	if err != nil {
		return nil, err
	}
	return &ports.FederatedResult{Matched: false, Token: token}, nil
}

// CompleteProvisioning turns a pending federated identity into an account.
// The provisioning token authorizes creation for exactly the email it
// carries; the lookup is repeated here because the account may have been
// created between federated login and completion.
func (s *AuthService) CompleteProvisioning(ctx context.Context, token, password, confirm, telegramUsername, ip string) (*domain.Account, string, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return nil, "", err
	}
	if password == "" || telegramUsername == "" {
		return nil, "", domain.ErrInvalidCredentials
	}
	if password != confirm {
		return nil, "", domain.ErrPasswordMismatch
	}

	if _, err := s.accounts.FindByEmail(ctx, claims.Subject); err == nil {
		return nil, "", domain.ErrAccountExists
	} else if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, "", err
	}

	account, err := s.createAccount(ctx, claims.Subject, password, telegramUsername, domain.RoleStandard, domain.OriginProvisioning, ip)
	if err != nil {
		return nil, "", err
	}

	session, err := s.tokens.Issue(account.Email, domain.SessionTokenTTL)
	if err != nil {
		return nil, "", err
	}
	return account, session, nil
}

// createAccount is the shared terminal shape of every creation path:
// hash → insert → login event → linking message. The three writes are
// independent operations; only the insert can fail the caller.
func (s *AuthService) createAccount(ctx context.Context, email, password, telegramUsername, role, origin, ip string) (*domain.Account, error) {
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

	s.recordLogin(ctx, account.ID, origin, ip)
	s.publishLink(ctx, account.ID, telegramUsername)

	return account, nil
}

// recordLogin appends to the authentication log. A failed insert is logged
// and swallowed: the user is authenticated either way.
func (s *AuthService) recordLogin(ctx context.Context, accountID, origin, ip string) {
	event := &domain.LoginEvent{
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
		Origin:    origin,
		IPAddress: ip,
	}
	if err := s.events.Record(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("account_id", accountID).Msg("failed to record login event")
	}
}

// publishLink enqueues the linking message after the account row is
// committed. A broker failure here loses the notification but must not fail
// account creation.
func (s *AuthService) publishLink(ctx context.Context, accountID, telegramUsername string) {
	msg := domain.LinkingMessage{AccountID: accountID, TelegramUsername: telegramUsername}
	if err := s.queue.PublishLink(ctx, msg); err != nil {
		s.log.Error().Err(err).
			Str("account_id", accountID).
			Str("telegram_username", telegramUsername).
			Msg("failed to publish linking message")
	}
}

var _ ports.AuthService = (*AuthService)(nil)
