package models

import "time"

// RefreshToken is a persisted refresh token. Rows are created on login and
// deleted on logout, rotation or expiry sweep; they are never updated.
type RefreshToken struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
