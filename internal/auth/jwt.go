package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kind tags embedded in the signed payload. Verification checks the tag
// so an access token can never be replayed as a refresh token or vice versa.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

// Verification failures collapse to exactly these two causes.
var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrTokenExpired = errors.New("token has expired")
)

// Claims represents the JWT claims for an access token.
type Claims struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// RefreshClaims represents the JWT claims for a refresh token.
type RefreshClaims struct {
	UserID    string `json:"user_id"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

// TokenCodec signs and verifies access and refresh tokens. The two kinds use
// independent secrets and lifetimes, so compromising one secret cannot forge
// tokens of the other kind.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewTokenCodec creates a codec with explicit secrets and lifetimes. Secrets
// are injected here rather than read from the process environment so the
// codec is testable in isolation.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessTTL returns the configured access token lifetime.
func (c *TokenCodec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL returns the configured refresh token lifetime.
func (c *TokenCodec) RefreshTTL() time.Duration { return c.refreshTTL }

// GenerateAccessToken creates a signed access token carrying the user's
// identity for ordinary authenticated requests. Access tokens are stateless
// and never persisted.
func (c *TokenCodec) GenerateAccessToken(userID, username, email string) (string, error) {
	now := time.Now().UTC()
	claims := &Claims{
		UserID:    userID,
		Username:  username,
		Email:     email,
		TokenType: KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			Issuer:    "user-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.accessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}

	return signedToken, nil
}

// GenerateRefreshToken creates a signed refresh token containing only the userID.
func (c *TokenCodec) GenerateRefreshToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := &RefreshClaims{
		UserID:    userID,
		TokenType: KindRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			// jti keeps tokens minted within the same second distinct,
			// which rotation depends on.
			ID:        uuid.New().String(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
			Issuer:    "user-service",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(c.refreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}

	return signedToken, nil
}

// VerifyAccessToken parses and validates an access token, returning the claims.
// Failures are reported as ErrTokenExpired or ErrInvalidToken; a token that
// fails the signature check is invalid regardless of its claimed expiry.
func (c *TokenCodec) VerifyAccessToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	if err := c.verify(tokenString, claims, c.accessSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != KindAccess {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token, returning the claims.
func (c *TokenCodec) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(tokenString, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	if claims.TokenType != KindRefresh {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (c *TokenCodec) verify(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
