package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCodec(t *testing.T) *TokenCodec {
	t.Helper()
	return NewTokenCodec("test-access-secret", "test-refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestGenerateAndVerifyAccessToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.GenerateAccessToken("user-1", "alice", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := codec.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, KindAccess, claims.TokenType)
}

func TestGenerateAndVerifyRefreshToken(t *testing.T) {
	codec := newTestCodec(t)

	token, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	claims, err := codec.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, KindRefresh, claims.TokenType)
}

func TestVerifyRejectsWrongKind(t *testing.T) {
	codec := newTestCodec(t)

	accessToken, err := codec.GenerateAccessToken("user-1", "alice", "alice@example.com")
	require.NoError(t, err)
	refreshToken, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	// A refresh token must not be accepted where an access token is expected,
	// and vice versa. The secrets differ, so the signature check fails first.
	_, err = codec.VerifyAccessToken(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.VerifyRefreshToken(accessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsKindEvenWithSharedSecret(t *testing.T) {
	// With identical secrets the signature check passes, so the token_type
	// claim is the only thing keeping the kinds apart.
	codec := NewTokenCodec("same-secret", "same-secret", time.Minute, time.Minute)

	refreshToken, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(refreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	codec := newTestCodec(t)
	other := NewTokenCodec("different-access", "different-refresh", time.Minute, time.Minute)

	token, err := codec.GenerateAccessToken("user-1", "alice", "alice@example.com")
	require.NoError(t, err)

	_, err = other.VerifyAccessToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyExpiredToken(t *testing.T) {
	codec := NewTokenCodec("test-access-secret", "test-refresh-secret", -time.Minute, -time.Minute)

	accessToken, err := codec.GenerateAccessToken("user-1", "alice", "alice@example.com")
	require.NoError(t, err)
	refreshToken, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	_, err = codec.VerifyAccessToken(accessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = codec.VerifyRefreshToken(refreshToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestVerifyGarbageToken(t *testing.T) {
	codec := newTestCodec(t)

	_, err := codec.VerifyAccessToken("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.VerifyRefreshToken("")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshTokensAreDistinct(t *testing.T) {
	codec := newTestCodec(t)

	// Rotation relies on consecutive tokens differing even when minted within
	// the same second.
	first, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)
	second, err := codec.GenerateRefreshToken("user-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}
