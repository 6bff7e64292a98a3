package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/playtube/user-service/internal/auth"
	"github.com/playtube/user-service/internal/domain"
	"github.com/playtube/user-service/internal/repository"
	apperrors "github.com/playtube/user-service/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// EventPublisher publishes user domain events. Publishing failures are logged
// but never fail the operation that triggered them.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, user *domain.User) error
	PublishUserLoggedIn(ctx context.Context, user *domain.User) error
	PublishPasswordChanged(ctx context.Context, userID, email string) error
}

// AuthService implements the credential-verification and token-lifecycle
// operations: register, login, refresh, logout, change-password, plus the
// profile reads and updates behind an authenticated identity.
type AuthService struct {
	userRepo repository.UserRepository
	codec    *auth.TokenCodec
	producer EventPublisher
	logger   *slog.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(
	userRepo repository.UserRepository,
	codec *auth.TokenCodec,
	producer EventPublisher,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		codec:    codec,
		producer: producer,
		logger:   logger,
	}
}

// --- Input types ---

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FullName string
	Email    string
	Username string
	Password string
}

// LoginInput holds the parameters for user login. At least one of Username
// or Email must be supplied.
type LoginInput struct {
	Username string
	Email    string
	Password string
}

// UpdateAccountInput holds the parameters for updating account details.
type UpdateAccountInput struct {
	FullName string
	Email    string
}

// --- Operations ---

// Register creates a new account and returns the sanitized profile. No
// session is started; the caller logs in separately.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.TrimSpace(input.Email)
	username := strings.ToLower(strings.TrimSpace(input.Username))

	if fullName == "" || email == "" || username == "" || input.Password == "" {
		return nil, apperrors.InvalidInput("All fields are required")
	}

	// Existence check by username OR email. The unique constraints in the
	// store back this up for the race where two registrations interleave.
	if existing, err := s.userRepo.GetByUsernameOrEmail(ctx, username, email); err == nil && existing != nil {
		return nil, apperrors.Conflict("User with email or username already exists")
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("check existing user: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, nil
}

// Login authenticates by username or email plus password. On success a new
// token pair is minted and the refresh token is persisted on the account,
// overwriting any previous session.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*domain.User, *domain.TokenPair, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	email := strings.TrimSpace(input.Email)

	if username == "" && email == "" {
		return nil, nil, apperrors.InvalidInput("Username or email is required")
	}
	if input.Password == "" {
		return nil, nil, apperrors.InvalidInput("Password is required")
	}

	user, err := s.userRepo.GetByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, apperrors.NotFound("User does not exist")
		}
		return nil, nil, fmt.Errorf("lookup user: %w", err)
	}

	// bcrypt compares in constant time; a malformed stored hash reports as
	// a mismatch rather than an internal error.
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, nil, apperrors.Unauthorized("Invalid user credentials")
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	if err := s.userRepo.SetRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return nil, nil, fmt.Errorf("persist refresh token: %w", err)
	}
	user.RefreshToken = tokens.RefreshToken

	if err := s.producer.PublishUserLoggedIn(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.logged_in event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return user, tokens, nil
}

// Refresh exchanges a valid, unconsumed refresh token for a new token pair.
// Each issued refresh token is single-use: once rotated, presenting the old
// token again fails even though its signature and expiry are still good.
func (s *AuthService) Refresh(ctx context.Context, incomingToken string) (*domain.TokenPair, error) {
	if incomingToken == "" {
		return nil, apperrors.Unauthorized("Unauthorized request")
	}

	claims, err := s.codec.VerifyRefreshToken(incomingToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, apperrors.Unauthorized("Refresh token has expired")
		}
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("Invalid refresh token")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	// Reuse detection: the incoming token must equal the one stored value
	// byte for byte. A rotated-away token is cryptographically valid but no
	// longer trusted.
	if user.RefreshToken == "" || user.RefreshToken != incomingToken {
		return nil, apperrors.Unauthorized("Refresh token is expired or used")
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("generate tokens: %w", err)
	}

	// Conditional replace: if a concurrent refresh consumed the token
	// between the read above and this write, reject instead of overwriting.
	if err := s.userRepo.RotateRefreshToken(ctx, user.ID, incomingToken, tokens.RefreshToken); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return nil, apperrors.Unauthorized("Refresh token is expired or used")
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "tokens refreshed",
		slog.String("user_id", user.ID),
	)

	return tokens, nil
}

// Logout clears the account's stored refresh token, ending the session.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearRefreshToken(ctx, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.Unauthorized("Invalid user")
		}
		return fmt.Errorf("clear refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged out",
		slog.String("user_id", userID),
	)

	return nil
}

// ChangePassword verifies the old password and replaces the stored hash.
// The stored refresh token is cleared as well, so the live session cannot
// outlast the credentials that created it.
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return apperrors.InvalidInput("All fields are required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.NotFound("User does not exist")
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return apperrors.InvalidInput("Invalid old password")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if err := s.userRepo.ClearRefreshToken(ctx, user.ID); err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.ErrorContext(ctx, "failed to revoke session after password change",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if err := s.producer.PublishPasswordChanged(ctx, user.ID, user.Email); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password_changed event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// GetCurrentUser retrieves the authenticated user's profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("User does not exist")
		}
		return nil, fmt.Errorf("get current user: %w", err)
	}
	return user, nil
}

// UpdateAccountDetails updates the non-security profile fields.
func (s *AuthService) UpdateAccountDetails(ctx context.Context, userID string, input UpdateAccountInput) (*domain.User, error) {
	fullName := strings.TrimSpace(input.FullName)
	email := strings.TrimSpace(input.Email)

	if fullName == "" || email == "" {
		return nil, apperrors.InvalidInput("All fields are required")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("User does not exist")
		}
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	user.FullName = fullName
	user.Email = email

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "account details updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// generateTokenPair mints an access/refresh token pair for the user. The
// caller is responsible for persisting the refresh token half.
func (s *AuthService) generateTokenPair(user *domain.User) (*domain.TokenPair, error) {
	accessToken, err := s.codec.GenerateAccessToken(user.ID, user.Username, user.Email)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, err := s.codec.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	return &domain.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
