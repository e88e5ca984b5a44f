package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/loomery/identity-system/internal/core/ports"
)

// Context keys populated by the Auth middleware.
const (
	CtxEmail = "email"
	CtxToken = "token"
)

// Auth verifies the session token and injects the subject email into the
// request context. The token is accepted from the Authorization header
// (Bearer), the "token" query parameter, or a "token" form field — the
// redirect-based flows carry it as a parameter, API clients as a header.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := extractToken(c)
			if raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token is missing")
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
			}

			c.Set(CtxEmail, claims.Subject)
			c.Set(CtxToken, raw)
			return next(c)
		}
	}
}

func extractToken(c echo.Context) string {
	if h := c.Request().Header.Get("Authorization"); h != "" {
		parts := strings.SplitN(h, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
	}
	if t := c.QueryParam("token"); t != "" {
		return t
	}
	return c.FormValue("token")
}
