package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/core/service"
)

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func runAuth(t *testing.T, req *http.Request) (echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	tokens := service.NewTokenService("mw-secret")
	return c, Auth(tokens)(okHandler)(c)
}

func issueToken(t *testing.T, subject string, ttl time.Duration) string {
	t.Helper()
	token, err := service.NewTokenService("mw-secret").Issue(subject, ttl)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	return token
}

func assertHTTPError(t *testing.T, err error, code int) {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	if he.Code != code {
		t.Fatalf("expected status %d, got %d (%v)", code, he.Code, he.Message)
	}
}

func TestAuth_MissingToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/login-history", nil)
	_, err := runAuth(t, req)
	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestAuth_BearerHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/login-history", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user@x.com", time.Minute))

	c, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("auth rejected a valid bearer token: %v", err)
	}
	if email, _ := c.Get(CtxEmail).(string); email != "user@x.com" {
		t.Fatalf("email not injected into context: %q", email)
	}
}

func TestAuth_QueryParamToken(t *testing.T) {
	token := issueToken(t, "query@x.com", time.Minute)
	req := httptest.NewRequest(http.MethodGet, "/login-history?token="+url.QueryEscape(token), nil)

	c, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("auth rejected a valid query token: %v", err)
	}
	if email, _ := c.Get(CtxEmail).(string); email != "query@x.com" {
		t.Fatalf("email not injected into context: %q", email)
	}
	if raw, _ := c.Get(CtxToken).(string); raw != token {
		t.Fatalf("raw token not injected into context")
	}
}

func TestAuth_FormToken(t *testing.T) {
	token := issueToken(t, "form@x.com", time.Minute)
	form := url.Values{"token": {token}}
	req := httptest.NewRequest(http.MethodPost, "/admin/add-user", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	c, err := runAuth(t, req)
	if err != nil {
		t.Fatalf("auth rejected a valid form token: %v", err)
	}
	if email, _ := c.Get(CtxEmail).(string); email != "form@x.com" {
		t.Fatalf("email not injected into context: %q", email)
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/login-history", nil)
	req.Header.Set("Authorization", "Bearer "+issueToken(t, "user@x.com", -time.Minute))

	_, err := runAuth(t, req)
	assertHTTPError(t, err, http.StatusUnauthorized)
}

func TestAuth_TamperedToken(t *testing.T) {
	forged, err := service.NewTokenService("other-secret").Issue("user@x.com", time.Minute)
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/login-history", nil)
	req.Header.Set("Authorization", "Bearer "+forged)

	_, err = runAuth(t, req)
	assertHTTPError(t, err, http.StatusUnauthorized)
}
