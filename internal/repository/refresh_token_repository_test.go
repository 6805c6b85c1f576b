package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tokenColumns = []string{"id", "user_id", "token", "expires_at", "created_at", "revoked"}

func newTokenRepo(t *testing.T) (RefreshTokenRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRefreshTokenRepository(db), mock
}

func TestRefreshTokenRepository_FindRevoked(t *testing.T) {
	repo, mock := newTokenRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM refresh_tokens").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(tokenColumns).
			AddRow(uuid.NewString(), uuid.NewString(), "tok", now.Add(time.Hour), now, true))

	_, err := repo.FindByToken(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestRefreshTokenRepository_RevokeMissing(t *testing.T) {
	repo, mock := newTokenRepo(t)
	mock.ExpectExec("UPDATE refresh_tokens").WithArgs("nope").WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Revoke(context.Background(), "nope"), ErrRefreshTokenNotFound)
}

func TestRefreshTokenRepository_DeleteExpired(t *testing.T) {
	repo, mock := newTokenRepo(t)
	cutoff := time.Now()
	mock.ExpectExec("DELETE FROM refresh_tokens").WithArgs(cutoff).WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := repo.DeleteExpired(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)
}
