package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/loomery/identity-system/internal/core/domain"
)

// stubStore implements AccountRepository and LoginEventRepository in memory,
// including the store-level cascade on delete.
type stubStore struct {
	accounts map[string]*domain.Account // keyed by email
	events   []domain.LoginEvent
	nextID   int
}

func newStubStore() *stubStore {
	return &stubStore{accounts: make(map[string]*domain.Account)}
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

func (s *stubStore) Create(_ context.Context, account *domain.Account) (*domain.Account, error) {
	if _, exists := s.accounts[account.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	for _, a := range s.accounts {
		if a.TelegramUsername == account.TelegramUsername {
			return nil, domain.ErrHandleTaken
		}
	}
	s.nextID++
	created := cloneAccount(account)
	created.ID = fmt.Sprintf("acc-%d", s.nextID)
	s.accounts[created.Email] = cloneAccount(created)
	return created, nil
}

func (s *stubStore) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	if a, ok := s.accounts[email]; ok {
		return cloneAccount(a), nil
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubStore) FindByID(_ context.Context, id string) (*domain.Account, error) {
	for _, a := range s.accounts {
		if a.ID == id {
			return cloneAccount(a), nil
		}
	}
	return nil, domain.ErrAccountNotFound
}

func (s *stubStore) List(_ context.Context) ([]domain.Account, error) {
	var out []domain.Account
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *stubStore) Delete(_ context.Context, id string) error {
	for email, a := range s.accounts {
		if a.ID == id {
			delete(s.accounts, email)
			kept := s.events[:0]
			for _, e := range s.events {
				if e.AccountID != id {
					kept = append(kept, e)
				}
			}
			s.events = kept
			return nil
		}
	}
	return domain.ErrAccountNotFound
}

func (s *stubStore) Record(_ context.Context, event *domain.LoginEvent) error {
	s.events = append(s.events, *event)
	return nil
}

func (s *stubStore) ListByAccount(_ context.Context, accountID string) ([]domain.LoginEvent, error) {
	var out []domain.LoginEvent
	for _, e := range s.events {
		if e.AccountID == accountID {
			out = append(out, e)
		}
	}
	return out, nil
}

// stubPublisher captures linking messages; Err makes every publish fail.
type stubPublisher struct {
	msgs []domain.LinkingMessage
	err  error
}

func (p *stubPublisher) PublishLink(_ context.Context, msg domain.LinkingMessage) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, msg)
	return nil
}

func newAuthFixture() (*AuthService, *stubStore, *stubPublisher, *TokenService) {
	store := newStubStore()
	pub := &stubPublisher{}
	tokens := NewTokenService("test-secret")
	svc := NewAuthService(store, store, tokens, pub, zerolog.Nop())
	return svc, store, pub, tokens
}

func TestAuthService_Register_Success(t *testing.T) {
	svc, store, pub, tokens := newAuthFixture()

	account, token, err := svc.Register(context.Background(), "a@x.com", "pw123", "@alice", "127.0.0.1")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if account.Email != "a@x.com" || account.Role != domain.RoleStandard {
		t.Fatalf("unexpected account: %+v", account)
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte("pw123")) != nil {
		t.Fatalf("stored hash does not match password")
	}

	claims, err := tokens.Verify(token)
	if err != nil {
		t.Fatalf("session token invalid: %v", err)
	}
	if claims.Subject != "a@x.com" {
		t.Fatalf("unexpected token subject: %s", claims.Subject)
	}

	if len(store.events) != 1 || store.events[0].Origin != domain.OriginPassword {
		t.Fatalf("expected one password login event, got %+v", store.events)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].TelegramUsername != "@alice" {
		t.Fatalf("expected one linking message for @alice, got %+v", pub.msgs)
	}
	if pub.msgs[0].AccountID != account.ID {
		t.Fatalf("linking message account id mismatch: %s vs %s", pub.msgs[0].AccountID, account.ID)
	}
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, store, _, _ := newAuthFixture()

	if _, _, err := svc.Register(context.Background(), "a@x.com", "pw1", "@alice", ""); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, _, err := svc.Register(context.Background(), "a@x.com", "pw2", "@other", "")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(store.accounts) != 1 {
		t.Fatalf("expected exactly one account, got %d", len(store.accounts))
	}
}

func TestAuthService_Register_PublishFailureDoesNotFailCreation(t *testing.T) {
	svc, store, pub, _ := newAuthFixture()
	pub.err = errors.New("broker down")

	account, token, err := svc.Register(context.Background(), "a@x.com", "pw", "@alice", "")
	if err != nil {
		t.Fatalf("register failed because of publish error: %v", err)
	}
	if account == nil || token == "" {
		t.Fatalf("expected account and token despite broker outage")
	}
	if len(store.accounts) != 1 {
		t.Fatalf("account row missing")
	}
}

func TestAuthService_Login_AfterRegister(t *testing.T) {
	svc, _, _, tokens := newAuthFixture()

	if _, _, err := svc.Register(context.Background(), "carol@x.com", "s3cret", "@carol", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	token, account, err := svc.Login(context.Background(), "carol@x.com", "s3cret", "")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if account.Email != "carol@x.com" {
		t.Fatalf("unexpected account: %+v", account)
	}
	claims, err := tokens.Verify(token)
	if err != nil || claims.Subject != "carol@x.com" {
		t.Fatalf("token does not verify back to email: %v %v", claims, err)
	}
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, _, _ = svc.Register(context.Background(), "dave@x.com", "goodpass", "@dave", "")
	_, _, err := svc.Login(context.Background(), "dave@x.com", "badpass", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownEmailIndistinguishable(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	_, _, err := svc.Login(context.Background(), "ghost@x.com", "pw", "")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email must look like bad credentials, got %v", err)
	}
}

func TestAuthService_FederatedLogin_Match(t *testing.T) {
	svc, store, _, tokens := newAuthFixture()

	_, _, _ = svc.Register(context.Background(), "fed@x.com", "pw", "@fed", "")
	eventsBefore := len(store.events)

	result, err := svc.FederatedLogin(context.Background(), "fed@x.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("federated login failed: %v", err)
	}
	if !result.Matched || result.Account == nil {
		t.Fatalf("expected a match, got %+v", result)
	}
	claims, err := tokens.Verify(result.Token)
	if err != nil || claims.Subject != "fed@x.com" {
		t.Fatalf("session token invalid: %v", err)
	}
	if len(store.events) != eventsBefore+1 || store.events[len(store.events)-1].Origin != domain.OriginFederated {
		t.Fatalf("expected a federated login event")
	}
}

func TestAuthService_FederatedLogin_NoMatchNeverCreatesAccount(t *testing.T) {
	svc, store, _, tokens := newAuthFixture()

	result, err := svc.FederatedLogin(context.Background(), "new@x.com", "")
	if err != nil {
		t.Fatalf("federated login failed: %v", err)
	}
	if result.Matched {
		t.Fatalf("expected no match")
	}
	if len(store.accounts) != 0 {
		t.Fatalf("federated login must not create accounts")
	}
	claims, err := tokens.Verify(result.Token)
	if err != nil || claims.Subject != "new@x.com" {
		t.Fatalf("provisioning token invalid: %v", err)
	}
}

func TestAuthService_CompleteProvisioning_Success(t *testing.T) {
	svc, store, pub, tokens := newAuthFixture()

	result, _ := svc.FederatedLogin(context.Background(), "new@x.com", "")

	account, session, err := svc.CompleteProvisioning(context.Background(), result.Token, "pw123", "pw123", "@newbie", "")
	if err != nil {
		t.Fatalf("provisioning failed: %v", err)
	}
	if account.Email != "new@x.com" || account.Role != domain.RoleStandard {
		t.Fatalf("unexpected account: %+v", account)
	}
	claims, err := tokens.Verify(session)
	if err != nil || claims.Subject != "new@x.com" {
		t.Fatalf("session token invalid: %v", err)
	}
	if len(store.events) != 1 || store.events[0].Origin != domain.OriginProvisioning {
		t.Fatalf("expected one provisioning login event, got %+v", store.events)
	}
	if len(pub.msgs) != 1 || pub.msgs[0].TelegramUsername != "@newbie" {
		t.Fatalf("expected linking message for @newbie, got %+v", pub.msgs)
	}
}

func TestAuthService_CompleteProvisioning_ExpiredToken(t *testing.T) {
	svc, store, _, tokens := newAuthFixture()

	expired, err := tokens.Issue("late@x.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	_, _, err = svc.CompleteProvisioning(context.Background(), expired, "pw", "pw", "@late", "")
	if !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if len(store.accounts) != 0 {
		t.Fatalf("expired token must not create an account")
	}
}

func TestAuthService_CompleteProvisioning_TamperedToken(t *testing.T) {
	svc, store, _, _ := newAuthFixture()

	forged, err := NewTokenService("other-secret").Issue("evil@x.com", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	_, _, err = svc.CompleteProvisioning(context.Background(), forged, "pw", "pw", "@evil", "")
	if !errors.Is(err, domain.ErrTokenSignature) {
		t.Fatalf("expected ErrTokenSignature, got %v", err)
	}
	if len(store.accounts) != 0 {
		t.Fatalf("forged token must not create an account")
	}
}

func TestAuthService_CompleteProvisioning_RaceWithExistingAccount(t *testing.T) {
	svc, _, _, _ := newAuthFixture()

	result, _ := svc.FederatedLogin(context.Background(), "race@x.com", "")

	// Account created between federated login and completion.
	if _, _, err := svc.Register(context.Background(), "race@x.com", "pw", "@racer", ""); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, _, err := svc.CompleteProvisioning(context.Background(), result.Token, "pw2", "pw2", "@other", "")
	if !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestAuthService_CompleteProvisioning_PasswordMismatch(t *testing.T) {
	svc, store, _, _ := newAuthFixture()

	result, _ := svc.FederatedLogin(context.Background(), "mm@x.com", "")
	_, _, err := svc.CompleteProvisioning(context.Background(), result.Token, "one", "two", "@mm", "")
	if !errors.Is(err, domain.ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if len(store.accounts) != 0 {
		t.Fatalf("mismatched passwords must not create an account")
	}
}
