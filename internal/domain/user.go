package domain

import (
	"encoding/json"
	"time"
)

// User is a registered member of the problem board. The password hash is
// never serialized.
type User struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// ResetToken is the persisted side of a password-reset credential. Only the
// SHA-256 hash of the token is stored; the plaintext exists solely in the
// reset email.
type ResetToken struct {
	ID        int64      `json:"id"`
	UserID    int64      `json:"user_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Session wraps a user together with a freshly issued bearer token. Returned
// by signup and login.
type Session struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}
