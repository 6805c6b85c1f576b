package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fireplay/internal/cache"
	"fireplay/internal/domain"
	"fireplay/internal/metrics"
	"fireplay/internal/repository"

	"go.uber.org/zap"
)

const (
	DefaultCartSyncDelay = time.Second
	cartSyncTimeout      = 10 * time.Second
)

var ErrCartItemNotFound = errors.New("game is not in the cart")

// CartCache is the per-user slot every cart mutation is written to first
type CartCache interface {
	GetCart(ctx context.Context, userID string) (*cache.Envelope[domain.CartItem], error)
	SetCart(ctx context.Context, userID string, items []domain.CartItem) error
	DeleteCart(ctx context.Context, userID string) error
}

// CartService defines the interface for cart business logic
type CartService interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Add(ctx context.Context, userID string, game domain.Game, quantity int) (*domain.Cart, error)
	Remove(ctx context.Context, userID string, gameID int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, userID string, gameID, quantity int) (*domain.Cart, error)
	Clear(ctx context.Context, userID string) error
	// Flush writes every pending mirror now and waits for running ones
	Flush(ctx context.Context) error
}

// CartOptions tunes the remote mirror
type CartOptions struct {
	SyncDelay time.Duration
	BatchSize int
}

type pendingSync struct {
	timer *time.Timer
}

type cartService struct {
	repo   repository.CartRepository
	cache  CartCache
	logger *zap.Logger
	opts   CartOptions
	now    func() time.Time

	locks *keyedMutex

	mu      sync.Mutex
	pending map[string]*pendingSync
	// users whose last mirror failed; their remote rows are behind the slot
	stale   map[string]bool
	running sync.WaitGroup
}

// NewCartService creates a new instance of CartService
func NewCartService(repo repository.CartRepository, cartCache CartCache, opts CartOptions, logger *zap.Logger) CartService {
	if opts.SyncDelay <= 0 {
		opts.SyncDelay = DefaultCartSyncDelay
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = repository.DefaultCartBatchSize
	}

	return &cartService{
		repo:    repo,
		cache:   cartCache,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
		locks:   newKeyedMutex(),
		pending: make(map[string]*pendingSync),
		stale:   make(map[string]bool),
	}
}

// Get prefers the remote copy unless a mirror is pending or failed, in which
// case the cache slot is newer. A failing remote read falls back to the cache.
func (s *cartService) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if !s.remoteBehind(userID) {
		items, err := s.repo.ListByUser(ctx, userID)
		if err == nil {
			if err := s.cache.SetCart(ctx, userID, items); err != nil {
				s.logger.Warn("Failed to refresh cart cache", zap.String("user_id", userID), zap.Error(err))
			}
			return &domain.Cart{UserID: userID, Items: items, UpdatedAt: s.now().UTC()}, nil
		}
		s.logger.Warn("Remote cart unavailable, serving cached copy", zap.String("user_id", userID), zap.Error(err))
	}

	env, err := s.cache.GetCart(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return &domain.Cart{UserID: userID, Items: []domain.CartItem{}, UpdatedAt: s.now().UTC()}, nil
		}
		return nil, fmt.Errorf("failed to read cart: %w", err)
	}

	return &domain.Cart{UserID: userID, Items: env.Data, UpdatedAt: env.Timestamp}, nil
}

// Add inserts a game or raises its quantity, never above MaxCartQuantity
func (s *cartService) Add(ctx context.Context, userID string, game domain.Game, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		quantity = domain.ClampQuantity(quantity)
		if i := cart.Find(game.ID); i >= 0 {
			cart.Items[i].Quantity = domain.ClampQuantity(cart.Items[i].Quantity + quantity)
			return nil
		}
		cart.Items = append(cart.Items, domain.NewCartItem(game, quantity))
		return nil
	})
}

// Remove deletes a game from the cart; removing an absent game is a no-op
func (s *cartService) Remove(ctx context.Context, userID string, gameID int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		if i := cart.Find(gameID); i >= 0 {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
		}
		return nil
	})
}

// SetQuantity replaces a line item's quantity, clamped to the allowed range
func (s *cartService) SetQuantity(ctx context.Context, userID string, gameID, quantity int) (*domain.Cart, error) {
	return s.mutate(ctx, userID, func(cart *domain.Cart) error {
		i := cart.Find(gameID)
		if i < 0 {
			return ErrCartItemNotFound
		}
		cart.Items[i].Quantity = domain.ClampQuantity(quantity)
		return nil
	})
}

// Clear empties the cart
func (s *cartService) Clear(ctx context.Context, userID string) error {
	_, err := s.mutate(ctx, userID, func(cart *domain.Cart) error {
		cart.Items = []domain.CartItem{}
		return nil
	})
	return err
}

func (s *cartService) mutate(ctx context.Context, userID string, change func(*domain.Cart) error) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	items, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{UserID: userID, Items: items}
	if err := change(cart); err != nil {
		return nil, err
	}

	if err := s.cache.SetCart(ctx, userID, cart.Items); err != nil {
		return nil, fmt.Errorf("failed to save cart: %w", err)
	}
	cart.UpdatedAt = s.now().UTC()

	s.schedule(userID)

	return cart.Clone(), nil
}

// load returns the working copy for a mutation. The cache slot is always at
// least as fresh as the remote rows; on a miss the remote copy seeds it.
func (s *cartService) load(ctx context.Context, userID string) ([]domain.CartItem, error) {
	env, err := s.cache.GetCart(ctx, userID)
	if err == nil {
		return env.Data, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("Failed to read cart cache", zap.String("user_id", userID), zap.Error(err))
		if errors.Is(err, cache.ErrCorruptSlot) {
			_ = s.cache.DeleteCart(ctx, userID)
		}
	}

	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	return items, nil
}

func (s *cartService) remoteBehind(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[userID]
	return ok || s.stale[userID]
}

func (s *cartService) setStale(userID string, stale bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if stale {
		s.stale[userID] = true
	} else {
		delete(s.stale, userID)
	}
}

// schedule (re)starts the debounce timer of a user's mirror
func (s *cartService) schedule(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.pending[userID]; ok && p.timer.Stop() {
		s.running.Done()
	}

	p := &pendingSync{}
	s.running.Add(1)
	p.timer = time.AfterFunc(s.opts.SyncDelay, func() {
		defer s.running.Done()

		ctx, cancel := context.WithTimeout(context.Background(), cartSyncTimeout)
		defer cancel()
		s.sync(ctx, userID, p)
	})
	s.pending[userID] = p
}

// sync rewrites the remote rows from the cache slot. The pending entry is
// cleared under the user lock so Get never reads rows older than the slot.
func (s *cartService) sync(ctx context.Context, userID string, p *pendingSync) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	s.mu.Lock()
	if s.pending[userID] == p {
		delete(s.pending, userID)
	}
	s.mu.Unlock()

	env, err := s.cache.GetCart(ctx, userID)
	if err != nil {
		metrics.RecordCartSync("failure")
		s.setStale(userID, true)
		s.logger.Error("Failed to read cart for mirroring", zap.String("user_id", userID), zap.Error(err))
		return
	}

	if err := s.repo.ReplaceAll(ctx, userID, env.Data, s.opts.BatchSize); err != nil {
		metrics.RecordCartSync("failure")
		s.setStale(userID, true)
		s.logger.Error("Failed to mirror cart", zap.String("user_id", userID), zap.Error(err))
		return
	}

	s.setStale(userID, false)
	metrics.RecordCartSync("success")
	s.logger.Debug("Cart mirrored",
		zap.String("user_id", userID),
		zap.Int("items", len(env.Data)),
	)
}

func (s *cartService) Flush(ctx context.Context) error {
	s.mu.Lock()
	stopped := make(map[string]*pendingSync)
	for userID, p := range s.pending {
		if p.timer.Stop() {
			s.running.Done()
			stopped[userID] = p
		}
	}
	s.mu.Unlock()

	for userID, p := range stopped {
		s.sync(ctx, userID, p)
	}

	done := make(chan struct{})
	go func() {
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for cart mirrors: %w", ctx.Err())
	}
}
