package domain

import (
	"errors"
	"time"
)

const (
	RoleStandard = "standard"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the two supported roles.
func ValidRole(role string) bool {
	return role == RoleStandard || role == RoleAdmin
}

var ErrInvalidCredentials = errors.New("invalid credentials")
var ErrAccountNotFound = errors.New("account not found")
var ErrEmailTaken = errors.New("email already registered")
var ErrHandleTaken = errors.New("telegram handle already linked")
var ErrAccountExists = errors.New("account already exists")
var ErrPasswordMismatch = errors.New("passwords do not match")
var ErrInvalidRole = errors.New("invalid role")
var ErrForbidden = errors.New("access forbidden")
var ErrProviderAuth = errors.New("provider authorization failed")

// Account models an authenticated actor in the system.
//
// Email is the natural lookup key; both Email and TelegramUsername are unique
// at the store level. Role defaults to RoleStandard and only changes through
// the privileged admin path.
type Account struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	TelegramUsername string    `json:"telegram_username"`
	Role             string    `json:"role"`
	CreatedAt        time.Time `json:"created_at"`
}
