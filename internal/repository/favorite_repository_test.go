package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"fireplay/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var favoriteColumns = []string{"id", "user_id", "game_id", "game_name", "game_slug", "game_image", "game_rating", "game_price", "added_at"}

func newFavoriteRepo(t *testing.T) (FavoriteRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFavoriteRepository(db), mock
}

func TestFavoriteRepository_CreateUsesCompositeKey(t *testing.T) {
	repo, mock := newFavoriteRepo(t)
	fav := domain.NewFavoriteItem(testUserID, domain.Game{ID: 12, Name: "Hades", Slug: "hades", Rating: 4.4, Price: 24.5}, time.Now())

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WithArgs(testUserID+"_12", testUserID, 12, "Hades", "hades", "", 4.4, 24.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), &fav))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFavoriteRepository_DeleteMissing(t *testing.T) {
	repo, mock := newFavoriteRepo(t)
	mock.ExpectExec("DELETE FROM favorites").
		WithArgs(testUserID + "_5").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), testUserID, 5)
	assert.ErrorIs(t, err, ErrFavoriteNotFound)
}

func TestFavoriteRepository_Find(t *testing.T) {
	repo, mock := newFavoriteRepo(t)
	added := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery("FROM favorites").
		WithArgs(testUserID + "_12").
		WillReturnRows(sqlmock.NewRows(favoriteColumns).
			AddRow(testUserID+"_12", testUserID, 12, "Hades", "hades", "img", 4.4, 24.5, added))

	fav, err := repo.Find(context.Background(), testUserID, 12)
	require.NoError(t, err)
	assert.Equal(t, "Hades", fav.GameName)
	assert.Equal(t, added, fav.AddedAt)

	mock.ExpectQuery("FROM favorites").WillReturnError(sql.ErrNoRows)
	_, err = repo.Find(context.Background(), testUserID, 13)
	assert.ErrorIs(t, err, ErrFavoriteNotFound)
}

func TestFavoriteRepository_ListByUser(t *testing.T) {
	repo, mock := newFavoriteRepo(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY added_at DESC")).
		WithArgs(testUserID).
		WillReturnRows(sqlmock.NewRows(favoriteColumns).
			AddRow(testUserID+"_2", testUserID, 2, "B", "b", "", 3.0, 19.99, now).
			AddRow(testUserID+"_1", testUserID, 1, "A", "a", "", 4.5, 59.99, now.Add(-time.Hour)))

	favs, err := repo.ListByUser(context.Background(), testUserID)
	require.NoError(t, err)
	require.Len(t, favs, 2)
	assert.Equal(t, 2, favs[0].GameID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
