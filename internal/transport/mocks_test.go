package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"fireplay/internal/cache"
	"fireplay/internal/catalog"
	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/repository"
	"fireplay/internal/service"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

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
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
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
	return 0, nil
}

type mockCartRepository struct {
	mu    sync.Mutex
	carts map[string][]domain.CartItem
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CartItem{}, m.carts[userID]...), nil
}

func (m *mockCartRepository) ReplaceAll(ctx context.Context, userID string, items []domain.CartItem, batchSize int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.carts[userID] = append([]domain.CartItem{}, items...)
	return nil
}

func (m *mockCartRepository) DeleteByUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.carts, userID)
	return nil
}

type mockFavoriteRepository struct {
	mu       sync.Mutex
	items    map[string]domain.FavoriteItem
	failSave bool
}

func (m *mockFavoriteRepository) Create(ctx context.Context, favorite *domain.FavoriteItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errRemoteDown
	}
	m.items[favorite.ID] = *favorite
	return nil
}

func (m *mockFavoriteRepository) Delete(ctx context.Context, userID string, gameID int) error {
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
	items := []domain.FavoriteItem{}
	for _, item := range m.items {
		if item.UserID == userID {
			items = append(items, item)
		}
	}
	return items, nil
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

// fakeCatalog serves a fixed set of games
type fakeCatalog struct {
	games []domain.Game
	err   error
}

func (f *fakeCatalog) page(page, pageSize int, games []domain.Game) (*catalog.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	page, pageSize = catalog.NormalizePage(page, pageSize)
	if len(games) > pageSize {
		games = games[:pageSize]
	}
	return &catalog.Page{Results: games, Count: len(f.games), Page: page, PageSize: pageSize, TotalPages: 1}, nil
}

func (f *fakeCatalog) ListPopular(ctx context.Context, page, pageSize int) (*catalog.Page, error) {
	return f.page(page, pageSize, f.games)
}

func (f *fakeCatalog) ListNewReleases(ctx context.Context, page, pageSize int) (*catalog.Page, error) {
	return f.page(page, pageSize, f.games)
}

func (f *fakeCatalog) ListDiscounted(ctx context.Context, page, pageSize int) (*catalog.Page, error) {
	var deals []domain.Game
	for _, g := range f.games {
		if g.IsDiscounted() {
			deals = append(deals, g)
		}
	}
	return f.page(page, pageSize, deals)
}

func (f *fakeCatalog) Search(ctx context.Context, p catalog.SearchParams) (*catalog.Page, error) {
	var hits []domain.Game
	for _, g := range f.games {
		if strings.Contains(strings.ToLower(g.Name), strings.ToLower(p.Term)) {
			hits = append(hits, g)
		}
	}
	return f.page(p.Page, p.PageSize, hits)
}

func (f *fakeCatalog) GetDetails(ctx context.Context, slug string) (*domain.GameDetails, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, g := range f.games {
		if g.Slug == slug {
			return &domain.GameDetails{Game: g, DescriptionRaw: "A game."}, nil
		}
	}
	return nil, catalog.ErrGameNotFound
}

func (f *fakeCatalog) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	return []domain.Genre{{ID: 4, Name: "Action", Slug: "action"}}, f.err
}

func (f *fakeCatalog) ListPlatforms(ctx context.Context) ([]domain.PlatformRef, error) {
	return []domain.PlatformRef{{ID: 4, Name: "PC", Slug: "pc"}}, f.err
}

func testGames() []domain.Game {
	pct := 20
	orig := 50.0
	return []domain.Game{
		{ID: 1, Slug: "hades", Name: "Hades", Price: 24.99, Rating: 4.6},
		{ID: 2, Slug: "celeste", Name: "Celeste", Price: 19.99, Rating: 4.5},
		{ID: 3, Slug: "portal-2", Name: "Portal 2", Price: 40, Rating: 4.7, OriginalPrice: &orig, DiscountPercent: &pct},
		{ID: 4, Slug: "inside", Name: "Inside", Price: 14.99, Rating: 4.3},
		{ID: 5, Slug: "limbo", Name: "Limbo", Price: 9.99, Rating: 4.1},
	}
}

// storefront is the full router over in-memory repositories and miniredis
type storefront struct {
	router    *chi.Mux
	mr        *miniredis.Miniredis
	catalog   *fakeCatalog
	carts     service.CartService
	favRepo   *mockFavoriteRepository
	contacts  *mockContactRepository
	users     service.UserService
	checkouts service.CheckoutService
}

func newStorefront(t *testing.T) *storefront {
	t.Helper()
	logger := zap.NewNop()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := cache.NewStore(client, 0)

	cat := &fakeCatalog{games: testGames()}
	favRepo := &mockFavoriteRepository{items: make(map[string]domain.FavoriteItem)}
	contacts := &mockContactRepository{}

	users := service.NewUserService(newMockUserRepository(), newMockRefreshTokenRepository(),
		service.NewLoginThrottle(client, 5, 15*time.Minute), service.TokenOptions{Secret: testSecret}, logger)
	carts := service.NewCartService(&mockCartRepository{carts: make(map[string][]domain.CartItem)}, store,
		service.CartOptions{SyncDelay: time.Hour}, logger)
	t.Cleanup(func() { _ = carts.Flush(context.Background()) })
	favorites := service.NewFavoriteService(favRepo, store, time.Second, logger)
	checkouts := service.NewCheckoutService(carts, -1, logger)

	auth := middleware.AuthMiddleware(testSecret, logger)
	optional := middleware.OptionalAuth(testSecret, logger)

	r := chi.NewRouter()
	NewUserHandler(users, logger).RegisterRoutes(r, auth)
	NewCatalogHandler(cat, favorites, logger).RegisterRoutes(r, optional)
	NewCartHandler(carts, checkouts, cat, logger).RegisterRoutes(r, auth, optional)
	NewFavoriteHandler(favorites, logger).RegisterRoutes(r, auth, optional)
	NewContactHandler(service.NewContactService(contacts, logger), logger).RegisterRoutes(r, optional)

	return &storefront{
		router:    r,
		mr:        mr,
		catalog:   cat,
		carts:     carts,
		favRepo:   favRepo,
		contacts:  contacts,
		users:     users,
		checkouts: checkouts,
	}
}

func (s *storefront) do(method, path, token string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// tokenFor signs an access token the way the user service does
func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    "user",
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}
