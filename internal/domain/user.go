package domain

import (
	"time"
)

// User represents a registered account.
//
// RefreshToken holds the single currently-valid refresh token for the
// account, or the empty string when no session is active. It is never
// serialized to clients.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenPair holds an access and refresh token pair. It is transient: the
// refresh token half is persisted on the user row, nothing else is retained.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
