package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/api/middleware"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// UserHandler serves identity-scoped reads for the authenticated subject.
type UserHandler struct {
	accountService ports.AccountService
}

func NewUserHandler(accountService ports.AccountService) *UserHandler {
	return &UserHandler{accountService: accountService}
}

type historyResponse struct {
	Email   string              `json:"email"`
	History []domain.LoginEvent `json:"history"`
}

// LoginHistory lists the caller's authentication log.
//
// @Summary      Login history for the authenticated account
// @Tags         users
// @Produce      json
// @Success      200  {object}  historyResponse
// @Failure      401  {object}  map[string]string
// @Router       /login-history [get]
func (h *UserHandler) LoginHistory(c echo.Context) error {
	email, _ := c.Get(middleware.CtxEmail).(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	events, err := h.accountService.LoginHistory(c.Request().Context(), email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyResponse{Email: email, History: events})
}

// Me returns the caller's identity, proving the token gate works.
//
// @Summary      Authenticated caller identity
// @Tags         users
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	email, _ := c.Get(middleware.CtxEmail).(string)
	if email == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return c.JSON(http.StatusOK, map[string]string{
		"message": "access granted",
		"user":    email,
	})
}
