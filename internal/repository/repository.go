package repository

import (
	"context"

	"github.com/playtube/user-service/internal/domain"
)

// UserRepository defines the persistence contract for accounts and their
// single refresh-token session slot.
type UserRepository interface {
	// Create inserts a new user. Returns a conflict error if the username
	// or email is already taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByUsernameOrEmail retrieves the user matching either the given
	// username or the given email address.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)

	// Update modifies the user's profile fields (full name, email).
	Update(ctx context.Context, user *domain.User) error

	// UpdatePassword replaces the stored password hash.
	UpdatePassword(ctx context.Context, id, passwordHash string) error

	// SetRefreshToken stores the given refresh token on the user,
	// overwriting any previous one.
	SetRefreshToken(ctx context.Context, id, token string) error

	// RotateRefreshToken replaces the stored refresh token with next only if
	// it still equals expected. A concurrent rotation that already consumed
	// expected makes this fail with a conflict error instead of losing the
	// update.
	RotateRefreshToken(ctx context.Context, id, expected, next string) error

	// ClearRefreshToken removes the stored refresh token, ending the session.
	ClearRefreshToken(ctx context.Context, id string) error
}
