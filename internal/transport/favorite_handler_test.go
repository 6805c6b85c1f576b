package transport

import (
	"encoding/json"
	"net/http"
	"testing"

	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hadesBody = `{"id":1,"slug":"hades","name":"Hades","price":24.99,"rating":4.6}`

func decodeToggle(t *testing.T, body []byte) service.ToggleResult {
	t.Helper()
	var res service.ToggleResult
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func TestFavorites_ToggleRoundTrip(t *testing.T) {
	sf := newStorefront(t)
	token := tokenFor(t, "user-1")

	w := sf.do(http.MethodPost, "/api/favorites/toggle", token, hadesBody)
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeToggle(t, w.Body.Bytes())
	assert.True(t, res.IsFavorite)
	assert.Equal(t, service.Notice{Kind: service.NoticeSuccess, Message: "Hades added to favorites"}, res.Notice)

	w = sf.do(http.MethodGet, "/api/favorites", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []domain.FavoriteItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, "user-1_1", items[0].ID)

	w = sf.do(http.MethodGet, "/api/favorites/1", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"game_id":1,"is_favorite":true}`, w.Body.String())

	w = sf.do(http.MethodPost, "/api/favorites/toggle", token, hadesBody)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeToggle(t, w.Body.Bytes()).IsFavorite)
}

func TestFavorites_AnonymousToggleRedirects(t *testing.T) {
	sf := newStorefront(t)

	w := sf.do(http.MethodPost, "/api/favorites/toggle", "", hadesBody)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/login?redirect=game/hades", resp.Error.Details["redirect"])
}

func TestFavorites_RollbackIsReported(t *testing.T) {
	sf := newStorefront(t)
	token := tokenFor(t, "user-1")
	sf.favRepo.mu.Lock()
	sf.favRepo.failSave = true
	sf.favRepo.mu.Unlock()

	w := sf.do(http.MethodPost, "/api/favorites/toggle", token, hadesBody)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var resp middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "favorite-rolled-back", resp.Error.Code)
	assert.Equal(t, "Could not add Hades to favorites", resp.Error.Message)
	assert.Equal(t, false, resp.Error.Details["is_favorite"])

	w = sf.do(http.MethodGet, "/api/favorites/1", token, "")
	assert.JSONEq(t, `{"game_id":1,"is_favorite":false}`, w.Body.String())
}

func TestFavorites_Remove(t *testing.T) {
	sf := newStorefront(t)
	token := tokenFor(t, "user-1")

	assert.Equal(t, http.StatusNotFound, sf.do(http.MethodDelete, "/api/favorites/1", token, "").Code)

	sf.do(http.MethodPost, "/api/favorites/toggle", token, hadesBody)
	w := sf.do(http.MethodDelete, "/api/favorites/1", token, "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decodeToggle(t, w.Body.Bytes())
	assert.False(t, res.IsFavorite)
	assert.Equal(t, "Hades removed from favorites", res.Notice.Message)

	w = sf.do(http.MethodGet, "/api/favorites", token, "")
	assert.JSONEq(t, `[]`, w.Body.String())
}
