package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fireplay/internal/cache"
	"fireplay/internal/domain"
	"fireplay/internal/metrics"
	"fireplay/internal/repository"

	"go.uber.org/zap"
)

const DefaultFavoritesTimeout = 3 * time.Second

// FavoritesCache is the per-user favorites slot
type FavoritesCache interface {
	GetFavorites(ctx context.Context, userID string) (*cache.Envelope[domain.FavoriteItem], error)
	SetFavorites(ctx context.Context, userID string, items []domain.FavoriteItem) error
	DeleteFavorites(ctx context.Context, userID string) error
}

// Notice kinds shown to the user after a favorites change
const (
	NoticeSuccess = "success"
	NoticeInfo    = "info"
	NoticeError   = "error"
)

// Notice is the user-facing message describing a change
type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ToggleResult is the favorite state after a toggle or removal
type ToggleResult struct {
	GameID     int    `json:"game_id"`
	IsFavorite bool   `json:"is_favorite"`
	Pending    bool   `json:"pending"`
	Notice     Notice `json:"notice"`
}

// FavoriteService defines the interface for favorites business logic
type FavoriteService interface {
	IsFavorite(ctx context.Context, userID string, gameID int) (bool, error)
	Toggle(ctx context.Context, userID string, game domain.Game) (*ToggleResult, error)
	List(ctx context.Context, userID string) ([]domain.FavoriteItem, error)
	Remove(ctx context.Context, userID string, gameID int) (*ToggleResult, error)
}

type favoriteService struct {
	repo    repository.FavoriteRepository
	cache   FavoritesCache
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
	locks   *keyedMutex
	writes  *writeQueue
}

// NewFavoriteService creates a new instance of FavoriteService. timeout bounds
// how long a toggle waits for the remote write before reporting it pending.
func NewFavoriteService(repo repository.FavoriteRepository, favCache FavoritesCache, timeout time.Duration, logger *zap.Logger) FavoriteService {
	if timeout <= 0 {
		timeout = DefaultFavoritesTimeout
	}
	return &favoriteService{
		repo:    repo,
		cache:   favCache,
		logger:  logger,
		timeout: timeout,
		now:     time.Now,
		locks:   newKeyedMutex(),
		writes:  newWriteQueue(),
	}
}

// IsFavorite answers from today's cache slot, otherwise reloads the user's
// favorites. If the reload fails the single remote record decides.
func (s *favoriteService) IsFavorite(ctx context.Context, userID string, gameID int) (bool, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	if items, ok := s.cached(ctx, userID); ok {
		return indexOfGame(items, gameID) >= 0, nil
	}

	items, err := s.reload(ctx, userID)
	if err == nil {
		return indexOfGame(items, gameID) >= 0, nil
	}

	if _, err := s.repo.Find(ctx, userID, gameID); err != nil {
		if errors.Is(err, repository.ErrFavoriteNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return true, nil
}

// List serves today's cache slot or reloads from the remote store. A stale
// slot is still served when the remote store is unreachable.
func (s *favoriteService) List(ctx context.Context, userID string) ([]domain.FavoriteItem, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	return s.list(ctx, userID)
}

// Toggle flips the favorite state of a game optimistically
func (s *favoriteService) Toggle(ctx context.Context, userID string, game domain.Game) (*ToggleResult, error) {
	var (
		added    bool
		previous domain.FavoriteItem
		queued   queuedWrite
	)

	op := Optimistic[bool]{
		Apply: func(ctx context.Context) (bool, error) {
			unlock := s.locks.Lock(userID)
			defer unlock()

			items, err := s.list(ctx, userID)
			if err != nil {
				return false, err
			}

			if i := indexOfGame(items, game.ID); i >= 0 {
				previous = items[i]
				items = append(items[:i:i], items[i+1:]...)
			} else {
				added = true
				previous = domain.NewFavoriteItem(userID, game, s.now().UTC())
				items = append([]domain.FavoriteItem{previous}, items...)
			}

			if err := s.cache.SetFavorites(ctx, userID, items); err != nil {
				return false, fmt.Errorf("failed to save favorites: %w", err)
			}
			queued = s.queue(userID, game.ID)
			return added, nil
		},
		Remote: func(ctx context.Context) error {
			queued.wait()
			if added {
				return s.repo.Create(ctx, &previous)
			}
			err := s.repo.Delete(ctx, userID, game.ID)
			if errors.Is(err, repository.ErrFavoriteNotFound) {
				return nil
			}
			return err
		},
		Compensate: func(ctx context.Context) error {
			if added {
				return s.evict(ctx, userID, game.ID)
			}
			return s.restore(ctx, userID, previous)
		},
		Settled: func(remoteErr, compensateErr error) {
			queued.done()
			s.settled(userID, game.ID)(remoteErr, compensateErr)
		},
	}

	outcome, err := op.Run(ctx, s.timeout)
	return s.result(game.ID, game.Name, outcome, err)
}

// Remove deletes a favorite optimistically
func (s *favoriteService) Remove(ctx context.Context, userID string, gameID int) (*ToggleResult, error) {
	var (
		previous domain.FavoriteItem
		queued   queuedWrite
	)

	op := Optimistic[bool]{
		Apply: func(ctx context.Context) (bool, error) {
			unlock := s.locks.Lock(userID)
			defer unlock()

			items, err := s.list(ctx, userID)
			if err != nil {
				return false, err
			}

			i := indexOfGame(items, gameID)
			if i < 0 {
				return false, repository.ErrFavoriteNotFound
			}
			previous = items[i]
			items = append(items[:i:i], items[i+1:]...)

			if err := s.cache.SetFavorites(ctx, userID, items); err != nil {
				return false, fmt.Errorf("failed to save favorites: %w", err)
			}
			queued = s.queue(userID, gameID)
			return false, nil
		},
		Remote: func(ctx context.Context) error {
			queued.wait()
			err := s.repo.Delete(ctx, userID, gameID)
			if errors.Is(err, repository.ErrFavoriteNotFound) {
				return nil
			}
			return err
		},
		Compensate: func(ctx context.Context) error {
			return s.restore(ctx, userID, previous)
		},
		Settled: func(remoteErr, compensateErr error) {
			queued.done()
			s.settled(userID, gameID)(remoteErr, compensateErr)
		},
	}

	outcome, err := op.Run(ctx, s.timeout)
	if errors.Is(err, repository.ErrFavoriteNotFound) {
		return nil, err
	}
	return s.result(gameID, previous.GameName, outcome, err)
}

// queuedWrite is a reserved position in a favorite's remote write order
type queuedWrite struct {
	prev    <-chan struct{}
	release func()
}

// queue must be called with the user lock held so remote writes follow the
// order of the cache changes.
func (s *favoriteService) queue(userID string, gameID int) queuedWrite {
	prev, release := s.writes.enqueue(domain.FavoriteID(userID, gameID))
	return queuedWrite{prev: prev, release: release}
}

func (q queuedWrite) wait() {
	if q.prev != nil {
		<-q.prev
	}
}

func (q queuedWrite) done() {
	if q.release != nil {
		q.release()
	}
}

func (s *favoriteService) result(gameID int, name string, outcome Outcome[bool], err error) (*ToggleResult, error) {
	if err != nil && !errors.Is(err, ErrRolledBack) {
		return nil, err
	}

	res := &ToggleResult{GameID: gameID, IsFavorite: outcome.State, Pending: outcome.Pending}
	switch {
	case err != nil:
		res.IsFavorite = !outcome.State
		if outcome.State {
			res.Notice = Notice{Kind: NoticeError, Message: fmt.Sprintf("Could not add %s to favorites", name)}
		} else {
			res.Notice = Notice{Kind: NoticeError, Message: fmt.Sprintf("Could not remove %s from favorites", name)}
		}
		return res, err
	case outcome.Pending:
		metrics.RecordFavoriteToggle("pending")
		res.Notice = Notice{Kind: NoticeInfo, Message: fmt.Sprintf("Saving %s, this is taking longer than usual", name)}
	case outcome.State:
		res.Notice = Notice{Kind: NoticeSuccess, Message: fmt.Sprintf("%s added to favorites", name)}
	default:
		res.Notice = Notice{Kind: NoticeInfo, Message: fmt.Sprintf("%s removed from favorites", name)}
	}
	return res, nil
}

func (s *favoriteService) settled(userID string, gameID int) func(error, error) {
	return func(remoteErr, compensateErr error) {
		if remoteErr == nil {
			metrics.RecordFavoriteToggle("success")
			return
		}

		metrics.RecordFavoriteToggle("rolled_back")
		s.logger.Error("Favorite write failed, local change rolled back",
			zap.String("user_id", userID),
			zap.Int("game_id", gameID),
			zap.Error(remoteErr),
		)
		if compensateErr != nil {
			s.logger.Error("Failed to roll back favorite",
				zap.String("user_id", userID),
				zap.Int("game_id", gameID),
				zap.Error(compensateErr),
			)
		}
	}
}

// list must be called with the user lock held
func (s *favoriteService) list(ctx context.Context, userID string) ([]domain.FavoriteItem, error) {
	if items, ok := s.cached(ctx, userID); ok {
		return items, nil
	}

	items, err := s.reload(ctx, userID)
	if err == nil {
		return items, nil
	}

	if env, cerr := s.cache.GetFavorites(ctx, userID); cerr == nil {
		s.logger.Warn("Remote favorites unavailable, serving stale cache",
			zap.String("user_id", userID),
			zap.Time("cached_at", env.Timestamp),
			zap.Error(err),
		)
		return env.Data, nil
	}
	return nil, err
}

// cached returns the slot when it was written today
func (s *favoriteService) cached(ctx context.Context, userID string) ([]domain.FavoriteItem, bool) {
	env, err := s.cache.GetFavorites(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrCorruptSlot) {
			_ = s.cache.DeleteFavorites(ctx, userID)
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Failed to read favorites cache", zap.String("user_id", userID), zap.Error(err))
		}
		return nil, false
	}
	if !env.SameDay(s.now()) {
		return nil, false
	}
	return env.Data, true
}

func (s *favoriteService) reload(ctx context.Context, userID string) ([]domain.FavoriteItem, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load favorites: %w", err)
	}
	if err := s.cache.SetFavorites(ctx, userID, items); err != nil {
		s.logger.Warn("Failed to refresh favorites cache", zap.String("user_id", userID), zap.Error(err))
	}
	return items, nil
}

func (s *favoriteService) evict(ctx context.Context, userID string, gameID int) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	env, err := s.cache.GetFavorites(ctx, userID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil
		}
		return err
	}
	if i := indexOfGame(env.Data, gameID); i >= 0 {
		return s.cache.SetFavorites(ctx, userID, append(env.Data[:i:i], env.Data[i+1:]...))
	}
	return nil
}

func (s *favoriteService) restore(ctx context.Context, userID string, item domain.FavoriteItem) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	var items []domain.FavoriteItem
	env, err := s.cache.GetFavorites(ctx, userID)
	switch {
	case err == nil:
		items = env.Data
	case !errors.Is(err, cache.ErrCacheMiss):
		return err
	}

	if indexOfGame(items, item.GameID) >= 0 {
		return nil
	}
	return s.cache.SetFavorites(ctx, userID, append([]domain.FavoriteItem{item}, items...))
}

func indexOfGame(items []domain.FavoriteItem, gameID int) int {
	for i, item := range items {
		if item.GameID == gameID {
			return i
		}
	}
	return -1
}
