package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

func getCallback(t *testing.T, h *OAuthHandler, target string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return rec, h.Callback(e.NewContext(req, rec))
}

func TestOAuthHandler_Callback_MissingCode(t *testing.T) {
	h := NewOAuthHandler(&stubProvider{}, &stubAuthService{})

	_, err := getCallback(t, h, "/auth/yandex")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without code, got %v", err)
	}
}

func TestOAuthHandler_Callback_MatchedAccount(t *testing.T) {
	auth := &stubAuthService{
		federatedFn: func(email string) (*ports.FederatedResult, error) {
			if email != "fed@x.com" {
				t.Fatalf("unexpected email: %s", email)
			}
			return &ports.FederatedResult{
				Matched: true,
				Token:   "sess-tok",
				Account: &domain.Account{Email: email, Role: domain.RoleStandard},
			}, nil
		},
	}
	h := NewOAuthHandler(&stubProvider{email: "fed@x.com"}, auth)

	rec, err := getCallback(t, h, "/auth/yandex?code=abc123")
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/login-history?token=sess-tok" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}

func TestOAuthHandler_Callback_UnknownEmailGoesToProvisioning(t *testing.T) {
	auth := &stubAuthService{
		federatedFn: func(email string) (*ports.FederatedResult, error) {
			return &ports.FederatedResult{Matched: false, Token: "prov-tok"}, nil
		},
	}
	h := NewOAuthHandler(&stubProvider{email: "new@x.com"}, auth)

	rec, err := getCallback(t, h, "/auth/yandex?code=abc123")
	if err != nil {
		t.Fatalf("Callback failed: %v", err)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/set-password?token=prov-tok" {
		t.Fatalf("unexpected redirect: %s", loc)
	}
}

func TestOAuthHandler_Callback_ProviderFailure(t *testing.T) {
	h := NewOAuthHandler(&stubProvider{err: domain.ErrProviderAuth}, &stubAuthService{})

	_, err := getCallback(t, h, "/auth/yandex?code=bad")
	if !errors.Is(err, domain.ErrProviderAuth) {
		t.Fatalf("expected ErrProviderAuth, got %v", err)
	}
}
