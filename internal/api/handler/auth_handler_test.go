package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
	"github.com/loomery/identity-system/internal/core/service"
)

// stubAuthService scripts each flow with a function field; unset flows fail
// the test loudly when reached.
type stubAuthService struct {
	registerFn  func(email, password, handle string) (*domain.Account, string, error)
	loginFn     func(email, password string) (string, *domain.Account, error)
	federatedFn func(email string) (*ports.FederatedResult, error)
	completeFn  func(token, password, confirm, handle string) (*domain.Account, string, error)
}

func (s *stubAuthService) Register(_ context.Context, email, password, handle, _ string) (*domain.Account, string, error) {
	return s.registerFn(email, password, handle)
}

func (s *stubAuthService) Login(_ context.Context, email, password, _ string) (string, *domain.Account, error) {
	return s.loginFn(email, password)
}

func (s *stubAuthService) FederatedLogin(_ context.Context, email, _ string) (*ports.FederatedResult, error) {
	return s.federatedFn(email)
}

func (s *stubAuthService) CompleteProvisioning(_ context.Context, token, password, confirm, handle, _ string) (*domain.Account, string, error) {
	return s.completeFn(token, password, confirm, handle)
}

type stubProvider struct {
	authorizeURL string
	email        string
	err          error
}

func (p *stubProvider) AuthorizeURL() string { return p.authorizeURL }

func (p *stubProvider) ResolveEmail(context.Context, string) (string, error) {
	return p.email, p.err
}

func postForm(path string, form url.Values) (*httptest.ResponseRecorder, echo.Context) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func TestAuthHandler_Register_RedirectsWithToken(t *testing.T) {
	auth := &stubAuthService{
		registerFn: func(email, password, handle string) (*domain.Account, string, error) {
			if email != "a@x.com" || password != "pw" || handle != "@alice" {
				t.Fatalf("unexpected args: %s %s %s", email, password, handle)
			}
			return &domain.Account{ID: "acc-1", Email: email, Role: domain.RoleStandard}, "tok-123", nil
		},
	}
	h := NewAuthHandler(auth, service.NewTokenService("s"), &stubProvider{})

	rec, c := postForm("/register", url.Values{
		"email":             {"a@x.com"},
		"password":          {"pw"},
		"telegram_username": {"@alice"},
	})
	if err := h.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login-history?token=tok-123" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}

func TestAuthHandler_Register_DuplicateSurfacesDomainError(t *testing.T) {
	auth := &stubAuthService{
		registerFn: func(string, string, string) (*domain.Account, string, error) {
			return nil, "", domain.ErrEmailTaken
		},
	}
	h := NewAuthHandler(auth, service.NewTokenService("s"), &stubProvider{})

	_, c := postForm("/register", url.Values{
		"email":             {"a@x.com"},
		"password":          {"pw"},
		"telegram_username": {"@alice"},
	})
	if err := h.Register(c); !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken to propagate, got %v", err)
	}
}

func TestAuthHandler_Register_MissingFields(t *testing.T) {
	h := NewAuthHandler(&stubAuthService{}, service.NewTokenService("s"), &stubProvider{})

	_, c := postForm("/register", url.Values{"email": {"a@x.com"}})
	err := h.Register(c)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on missing fields, got %v", err)
	}
}

func TestAuthHandler_Login_AdminLandsOnListing(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(email, password string) (string, *domain.Account, error) {
			return "tok-admin", &domain.Account{Email: email, Role: domain.RoleAdmin}, nil
		},
	}
	h := NewAuthHandler(auth, service.NewTokenService("s"), &stubProvider{})

	rec, c := postForm("/login", url.Values{"email": {"root@x.com"}, "password": {"pw"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/admin?token=tok-admin" {
		t.Fatalf("admin should land on /admin, got %s", loc)
	}
}

func TestAuthHandler_Login_StandardLandsOnHistory(t *testing.T) {
	auth := &stubAuthService{
		loginFn: func(email, password string) (string, *domain.Account, error) {
			return "tok-std", &domain.Account{Email: email, Role: domain.RoleStandard}, nil
		},
	}
	h := NewAuthHandler(auth, service.NewTokenService("s"), &stubProvider{})

	rec, c := postForm("/login", url.Values{"email": {"u@x.com"}, "password": {"pw"}})
	if err := h.Login(c); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login-history?token=tok-std" {
		t.Fatalf("standard user should land on history, got %s", loc)
	}
}

func TestAuthHandler_LoginForm_ExposesProviderURL(t *testing.T) {
	provider := &stubProvider{authorizeURL: "https://oauth.example/authorize?client_id=abc"}
	h := NewAuthHandler(&stubAuthService{}, service.NewTokenService("s"), provider)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	if err := h.LoginForm(e.NewContext(req, rec)); err != nil {
		t.Fatalf("LoginForm failed: %v", err)
	}
	if !strings.Contains(rec.Body.String(), provider.authorizeURL) {
		t.Fatalf("login form does not expose the authorize url: %s", rec.Body.String())
	}
}

func TestAuthHandler_SetPasswordForm_RejectsExpiredToken(t *testing.T) {
	tokens := service.NewTokenService("s")
	expired, err := tokens.Issue("late@x.com", -time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	h := NewAuthHandler(&stubAuthService{}, tokens, &stubProvider{})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/set-password?token="+url.QueryEscape(expired), nil)
	rec := httptest.NewRecorder()
	if err := h.SetPasswordForm(e.NewContext(req, rec)); !errors.Is(err, domain.ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestAuthHandler_SetPassword_RedirectsWithSessionToken(t *testing.T) {
	auth := &stubAuthService{
		completeFn: func(token, password, confirm, handle string) (*domain.Account, string, error) {
			if token != "prov-tok" || password != "pw" || confirm != "pw" || handle != "@newbie" {
				t.Fatalf("unexpected args: %s %s %s %s", token, password, confirm, handle)
			}
			return &domain.Account{Email: "new@x.com", Role: domain.RoleStandard}, "sess-tok", nil
		},
	}
	h := NewAuthHandler(auth, service.NewTokenService("s"), &stubProvider{})

	rec, c := postForm("/set-password", url.Values{
		"token":             {"prov-tok"},
		"password":          {"pw"},
		"confirm_password":  {"pw"},
		"telegram_username": {"@newbie"},
	})
	if err := h.SetPassword(c); err != nil {
		t.Fatalf("SetPassword failed: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login-history?token=sess-tok" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}
