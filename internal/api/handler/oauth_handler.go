package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/api/metrics"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// OAuthHandler terminates the federated login flow: code exchange at the
// provider, then identity reconciliation against the credential store.
type OAuthHandler struct {
	provider    ports.IdentityProvider
	authService ports.AuthService
}

func NewOAuthHandler(provider ports.IdentityProvider, authService ports.AuthService) *OAuthHandler {
	return &OAuthHandler{provider: provider, authService: authService}
}

// Callback handles the provider redirect carrying the authorization code.
// A matched email authenticates immediately (role-routed landing); an
// unknown email is sent to provisioning with a short-lived token. The
// provider never creates an account by itself.
//
// @Summary      Federated login callback
// @Tags         auth
// @Param        code  query  string  true  "Authorization code"
// @Success      303
// @Failure      400  {object}  map[string]string
// @Router       /auth/yandex [get]
func (h *OAuthHandler) Callback(c echo.Context) error {
	code := c.QueryParam("code")
	if code == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "authorization code is missing")
	}

	email, err := h.provider.ResolveEmail(c.Request().Context(), code)
	if err != nil {
		return err
	}

	result, err := h.authService.FederatedLogin(c.Request().Context(), email, c.RealIP())
	if err != nil {
		return err
	}

	if result.Matched {
		metrics.LoginsTotal.WithLabelValues(domain.OriginFederated).Inc()
		return c.Redirect(http.StatusSeeOther, roleLanding(result.Account.Role, result.Token))
	}

	return c.Redirect(http.StatusSeeOther, "/set-password?token="+url.QueryEscape(result.Token))
}
