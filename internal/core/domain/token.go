package domain

import (
	"errors"
	"time"
)

// Token lifetimes. Session tokens authenticate a logged-in subject;
// provisioning tokens only authorize completing account creation for the
// email they carry after a federated login found no local match.
const (
	SessionTokenTTL      = 30 * time.Minute
	ProvisioningTokenTTL = 15 * time.Minute
)

// Token verification failures, distinguished at the service boundary so
// callers can tell a forgery from a stale token from garbage input.
var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenSignature = errors.New("token signature invalid")
	ErrTokenExpired   = errors.New("token expired")
)

// Claims is the verified content of a session or provisioning token.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}
