package domain

import "time"

// Login event origins. One event is recorded per successful authentication,
// labelled with the path that produced it.
const (
	OriginPassword     = "password"
	OriginFederated    = "yandex"
	OriginProvisioning = "provisioning"
	OriginAdmin        = "admin"
)

// LoginEvent is an append-only record of a successful authentication.
// Events are owned by their Account and removed with it (store-level cascade).
type LoginEvent struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Timestamp time.Time `json:"timestamp"`
	Origin    string    `json:"origin"`
	IPAddress string    `json:"ip_address"`
}
