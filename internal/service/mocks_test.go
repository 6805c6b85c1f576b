package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"fireplay/internal/cache"
	"fireplay/internal/domain"
	"fireplay/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errRemoteDown = errors.New("remote store unavailable")

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(user.Email)
	if _, exists := m.users[email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[strings.ToLower(email)]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key, token := range m.tokens {
		if token.Revoked || token.ExpiresAt.Before(before) {
			delete(m.tokens, key)
			n++
		}
	}
	return n, nil
}

type mockCartRepository struct {
	mu       sync.Mutex
	carts    map[string][]domain.CartItem
	replaces int
	batches  []int
	failList bool
	failSave bool
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{carts: make(map[string][]domain.CartItem)}
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errRemoteDown
	}
	items := append([]domain.CartItem{}, m.carts[userID]...)
	return items, nil
}

func (m *mockCartRepository) ReplaceAll(ctx context.Context, userID string, items []domain.CartItem, batchSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errRemoteDown
	}
	m.replaces++
	m.batches = append(m.batches, batchSize)
	m.carts[userID] = append([]domain.CartItem{}, items...)
	return nil
}

func (m *mockCartRepository) DeleteByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

func (m *mockCartRepository) replaceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaces
}

func (m *mockCartRepository) stored(userID string) []domain.CartItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem{}, m.carts[userID]...)
}

func (m *mockCartRepository) setFailures(list, save bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failList = list
	m.failSave = save
}

type mockFavoriteRepository struct {
	mu       sync.Mutex
	items    map[string]domain.FavoriteItem
	failList bool
	failSave bool
	// gate, when set, blocks writes until it is closed
	gate chan struct{}
	// createDelay slows down Create only
	createDelay time.Duration
}

func newMockFavoriteRepository() *mockFavoriteRepository {
	return &mockFavoriteRepository{items: make(map[string]domain.FavoriteItem)}
}

func (m *mockFavoriteRepository) wait() {
	m.mu.Lock()
	gate := m.gate
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}
}

func (m *mockFavoriteRepository) Create(ctx context.Context, favorite *domain.FavoriteItem) error {
	m.wait()
	m.mu.Lock()
	delay := m.createDelay
	m.mu.Unlock()
	time.Sleep(delay)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errRemoteDown
	}
	if _, ok := m.items[favorite.ID]; !ok {
		m.items[favorite.ID] = *favorite
	}
	return nil
}

func (m *mockFavoriteRepository) Delete(ctx context.Context, userID string, gameID int) error {
	m.wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errRemoteDown
	}
	id := domain.FavoriteID(userID, gameID)
	if _, ok := m.items[id]; !ok {
		return repository.ErrFavoriteNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockFavoriteRepository) Find(ctx context.Context, userID string, gameID int) (*domain.FavoriteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[domain.FavoriteID(userID, gameID)]
	if !ok {
		return nil, repository.ErrFavoriteNotFound
	}
	return &item, nil
}

func (m *mockFavoriteRepository) ListByUser(ctx context.Context, userID string) ([]domain.FavoriteItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failList {
		return nil, errRemoteDown
	}
	items := []domain.FavoriteItem{}
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *mockFavoriteRepository) has(userID string, gameID int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.items[domain.FavoriteID(userID, gameID)]
	return ok
}

func (q *writeQueue) idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tails) == 0
}

type mockContactRepository struct {
	mu       sync.Mutex
	messages []domain.ContactMessage
}

func (m *mockContactRepository) Create(ctx context.Context, msg *domain.ContactMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, *msg)
	return nil
}

// newTestCache starts an in-memory redis and a slot store on top of it
func newTestCache(t *testing.T) (*cache.Store, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewStore(client, 0), mr, client
}

func testGame(id int, price float64) domain.Game {
	return domain.Game{
		ID:     id,
		Slug:   "game-" + uuid.NewString()[:8],
		Name:   "Game",
		Price:  price,
		Rating: 4.2,
	}
}
