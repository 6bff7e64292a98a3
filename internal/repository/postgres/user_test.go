package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playtube/user-service/internal/domain"
	apperrors "github.com/playtube/user-service/pkg/errors"
)

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewUserRepository(mock), mock
}

func userRows(u *domain.User) *pgxmock.Rows {
	var refreshToken *string
	if u.RefreshToken != "" {
		refreshToken = &u.RefreshToken
	}
	return pgxmock.NewRows([]string{
		"id", "username", "email", "full_name", "password_hash", "refresh_token", "created_at", "updated_at",
	}).AddRow(u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, refreshToken, u.CreatedAt, u.UpdatedAt)
}

func sampleUser() *domain.User {
	now := time.Now().UTC()
	return &domain.User{
		ID:           "user-1",
		Username:     "alice",
		Email:        "alice@example.com",
		FullName:     "Alice Example",
		PasswordHash: "$2a$04$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestCreateUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), u))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserUniqueViolation(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WithArgs(u.ID, u.Username, u.Email, u.FullName, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE 23505)`))

	err := repo.Create(context.Background(), u)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Contains(t, err.Error(), "User with email or username already exists")
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()
	u.RefreshToken = "stored-token"

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, username, email, full_name, password_hash, refresh_token, created_at, updated_at FROM users WHERE id = $1`)).
		WithArgs("user-1").
		WillReturnRows(userRows(u))

	got, err := repo.GetByID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "stored-token", got.RefreshToken)
}

func TestGetByIDNullRefreshToken(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT`)).
		WithArgs("user-1").
		WillReturnRows(userRows(u))

	got, err := repo.GetByID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Empty(t, got.RefreshToken, "NULL refresh_token scans to empty string")
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT`)).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "username", "email", "full_name", "password_hash", "refresh_token", "created_at", "updated_at",
		}))

	_, err := repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestGetByUsernameOrEmail(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectQuery(regexp.QuoteMeta(`WHERE username = $1 OR email = $2`)).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(userRows(u))

	got, err := repo.GetByUsernameOrEmail(context.Background(), "alice", "alice@example.com")

	require.NoError(t, err)
	assert.Equal(t, "user-1", got.ID)
}

func TestSetRefreshToken(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("new-token", pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetRefreshToken(context.Background(), "user-1", "new-token"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshToken(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = $1, updated_at = $2 WHERE id = $3 AND refresh_token = $4`)).
		WithArgs("next-token", pgxmock.AnyArg(), "user-1", "current-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.RotateRefreshToken(context.Background(), "user-1", "current-token", "next-token")

	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRotateRefreshTokenConflict(t *testing.T) {
	repo, mock := newMockRepo(t)

	// The guard matches nothing when the stored token was already rotated.
	mock.ExpectExec(regexp.QuoteMeta(`AND refresh_token = $4`)).
		WithArgs("next-token", pgxmock.AnyArg(), "user-1", "stale-token").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.RotateRefreshToken(context.Background(), "user-1", "stale-token", "next-token")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestClearRefreshToken(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = NULL, updated_at = $1 WHERE id = $2`)).
		WithArgs(pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.ClearRefreshToken(context.Background(), "user-1"))
}

func TestClearRefreshTokenUnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET refresh_token = NULL`)).
		WithArgs(pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.ClearRefreshToken(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdatePassword(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("$2a$12$newhash", pgxmock.AnyArg(), "user-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "user-1", "$2a$12$newhash"))
}

func TestUpdateUser(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()
	u.FullName = "Alice B. Example"

	mock.ExpectExec(regexp.QuoteMeta(`SET full_name = $1, email = $2, updated_at = $3`)).
		WithArgs(u.FullName, u.Email, pgxmock.AnyArg(), u.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.Update(context.Background(), u))
}

func TestUpdateUserEmailConflict(t *testing.T) {
	repo, mock := newMockRepo(t)
	u := sampleUser()

	mock.ExpectExec(regexp.QuoteMeta(`SET full_name = $1, email = $2, updated_at = $3`)).
		WithArgs(u.FullName, u.Email, pgxmock.AnyArg(), u.ID).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE 23505)`))

	err := repo.Update(context.Background(), u)

	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}
