package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/api/metrics"
	"github.com/loomery/identity-system/internal/api/middleware"
	"github.com/loomery/identity-system/internal/core/domain"
	"github.com/loomery/identity-system/internal/core/ports"
)

// AdminHandler serves the privileged account mutations. Routes using it sit
// behind the admin guard, which re-checks the stored role per request.
type AdminHandler struct {
	accountService ports.AccountService
}

func NewAdminHandler(accountService ports.AccountService) *AdminHandler {
	return &AdminHandler{accountService: accountService}
}

type addUserRequest struct {
	Email            string `json:"email"             form:"email"             validate:"required,email"`
	Password         string `json:"password"          form:"password"          validate:"required"`
	TelegramUsername string `json:"telegram_username" form:"telegram_username" validate:"required"`
	Role             string `json:"role"              form:"role"              validate:"required,oneof=standard admin"`
}

type deleteUserRequest struct {
	UserID string `json:"user_id" form:"user_id" validate:"required"`
}

type listAccountsResponse struct {
	Users []domain.Account `json:"users"`
}

// List returns every account.
//
// @Summary      List all accounts
// @Tags         admin
// @Produce      json
// @Success      200  {object}  listAccountsResponse
// @Failure      403  {object}  map[string]string
// @Router       /admin [get]
func (h *AdminHandler) List(c echo.Context) error {
	accounts, err := h.accountService.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listAccountsResponse{Users: accounts})
}

// AddUser creates an account with an explicit role and redirects back to the
// listing.
//
// @Summary      Create an account with a chosen role
// @Tags         admin
// @Accept       x-www-form-urlencoded
// @Success      303
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /admin/add-user [post]
func (h *AdminHandler) AddUser(c echo.Context) error {
	var req addUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	_, err := h.accountService.CreateWithRole(
		c.Request().Context(),
		req.Email, req.Password, req.TelegramUsername, req.Role, c.RealIP(),
	)
	if err != nil {
		return err
	}

	metrics.AccountsCreatedTotal.WithLabelValues("admin").Inc()
	metrics.LoginsTotal.WithLabelValues(domain.OriginAdmin).Inc()

	return h.backToListing(c)
}

// DeleteUser removes an account; its login events go with it (store cascade).
//
// @Summary      Delete an account
// @Tags         admin
// @Accept       x-www-form-urlencoded
// @Success      303
// @Failure      404  {object}  map[string]string
// @Router       /admin/delete-user [post]
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	var req deleteUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.accountService.Delete(c.Request().Context(), req.UserID); err != nil {
		return err
	}
	return h.backToListing(c)
}

// backToListing redirects to the account listing, re-attaching the admin's
// own token so the follow-up GET stays authenticated.
func (h *AdminHandler) backToListing(c echo.Context) error {
	token, _ := c.Get(middleware.CtxToken).(string)
	return c.Redirect(http.StatusSeeOther, "/admin?token="+url.QueryEscape(token))
}
