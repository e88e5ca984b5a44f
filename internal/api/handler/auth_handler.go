package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/api/metrics"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// AuthHandler serves direct registration, direct login, and provisioning
// completion. Successful flows answer with a redirect carrying the freshly
// minted token as a query parameter, mirroring the browser-driven shape of
// the system.
type AuthHandler struct {
	authService ports.AuthService
	tokens      ports.TokenService
	provider    ports.IdentityProvider
}

func NewAuthHandler(authService ports.AuthService, tokens ports.TokenService, provider ports.IdentityProvider) *AuthHandler {
	return &AuthHandler{authService: authService, tokens: tokens, provider: provider}
}

type registerRequest struct {
	Email            string `json:"email"             form:"email"             validate:"required,email"`
	Password         string `json:"password"          form:"password"          validate:"required"`
	TelegramUsername string `json:"telegram_username" form:"telegram_username" validate:"required"`
}

type loginRequest struct {
	Email    string `json:"email"    form:"email"    validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

type setPasswordRequest struct {
	Token            string `json:"token"             form:"token"             validate:"required"`
	Password         string `json:"password"          form:"password"          validate:"required"`
	ConfirmPassword  string `json:"confirm_password"  form:"confirm_password"  validate:"required"`
	TelegramUsername string `json:"telegram_username" form:"telegram_username" validate:"required"`
}

// RegisterForm describes the registration endpoint for clients that expect a
// rendered form (templating is out of scope, the shape is JSON).
func (h *AuthHandler) RegisterForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "POST email, password and telegram_username to create an account",
	})
}

// Register creates a standard account and redirects with a session token.
//
// @Summary      Register a new account
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        email              formData  string  true  "Email"
// @Param        password           formData  string  true  "Password"
// @Param        telegram_username  formData  string  true  "Telegram handle"
// @Success      303
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, token, err := h.authService.Register(c.Request().Context(), req.Email, req.Password, req.TelegramUsername, c.RealIP())
	if err != nil {
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues("register").Inc()
	metrics.LoginsTotal.WithLabelValues(domain.OriginPassword).Inc()

	return c.Redirect(http.StatusSeeOther, "/login-history?token="+url.QueryEscape(token))
}

// LoginForm returns the federated authorize URL alongside the endpoint
// description, the way the original login page exposed the provider button.
func (h *AuthHandler) LoginForm(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message":          "POST email and password to sign in",
		"yandex_login_url": h.provider.AuthorizeURL(),
	})
}

// Login verifies credentials and redirects role-routed: admins land on the
// account listing, everyone else on their login history.
//
// @Summary      Login with email and password
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        email     formData  string  true  "Email"
// @Param        password  formData  string  true  "Password"
// @Success      303
// @Failure      401  {object}  map[string]string
// @Router       /login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	token, account, err := h.authService.Login(c.Request().Context(), req.Email, req.Password, c.RealIP())
	if err != nil {
		return err
	}

	metrics.LoginsTotal.WithLabelValues(domain.OriginPassword).Inc()

	return c.Redirect(http.StatusSeeOther, roleLanding(account.Role, token))
}

// SetPasswordForm verifies the provisioning token up front so an expired
// link fails before the user types anything, then echoes the token back for
// the completion POST.
func (h *AuthHandler) SetPasswordForm(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "token is missing")
	}
	if _, err := h.tokens.Verify(token); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "POST password, confirm_password and telegram_username with this token to finish account creation",
		"token":   token,
	})
}

// SetPassword completes provisioning after a federated login found no local
// account.
//
// @Summary      Complete provisioning
// @Tags         auth
// @Accept       x-www-form-urlencoded
// @Param        token              formData  string  true  "Provisioning token"
// @Param        password           formData  string  true  "Password"
// @Param        confirm_password   formData  string  true  "Password confirmation"
// @Param        telegram_username  formData  string  true  "Telegram handle"
// @Success      303
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /set-password [post]
func (h *AuthHandler) SetPassword(c echo.Context) error {
	var req setPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, token, err := h.authService.CompleteProvisioning(
		c.Request().Context(),
		req.Token, req.Password, req.ConfirmPassword, req.TelegramUsername, c.RealIP(),
	)
	if err != nil {
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues("provisioning").Inc()
	metrics.LoginsTotal.WithLabelValues(domain.OriginProvisioning).Inc()

	return c.Redirect(http.StatusSeeOther, "/login-history?token="+url.QueryEscape(token))
}

// roleLanding picks the post-login destination for a role.
func roleLanding(role, token string) string {
	if role == domain.RoleAdmin {
		return "/admin?token=" + url.QueryEscape(token)
	}
	return "/login-history?token=" + url.QueryEscape(token)
}
