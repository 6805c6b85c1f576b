// Package cache keeps the per-user cart and favorites slots in Redis. A slot
// holds the full collection as one JSON blob stamped with its write time.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fireplay/internal/domain"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCacheMiss   = errors.New("cache miss")
	ErrCorruptSlot = errors.New("cache slot is not valid json")
)

const (
	cartKeyPrefix      = "cart_"
	favoritesKeyPrefix = "fireplay_favorites_"
)

// Envelope is the stored shape of a slot
type Envelope[T any] struct {
	Data      []T       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// SameDay reports whether the envelope was written on the same UTC day as now
func (e *Envelope[T]) SameDay(now time.Time) bool {
	a, b := e.Timestamp.UTC(), now.UTC()
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Store reads and writes user slots
type Store struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a slot store. A zero ttl keeps slots until overwritten.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl, now: time.Now}
}

// CartKey is the slot key of a user's cart
func CartKey(userID string) string {
	return cartKeyPrefix + userID
}

// FavoritesKey is the slot key of a user's favorites
func FavoritesKey(userID string) string {
	return favoritesKeyPrefix + userID
}

func (s *Store) GetCart(ctx context.Context, userID string) (*Envelope[domain.CartItem], error) {
	return get[domain.CartItem](ctx, s.client, CartKey(userID))
}

func (s *Store) SetCart(ctx context.Context, userID string, items []domain.CartItem) error {
	return set(ctx, s.client, CartKey(userID), items, s.now(), s.ttl)
}

func (s *Store) DeleteCart(ctx context.Context, userID string) error {
	return s.del(ctx, CartKey(userID))
}

func (s *Store) GetFavorites(ctx context.Context, userID string) (*Envelope[domain.FavoriteItem], error) {
	return get[domain.FavoriteItem](ctx, s.client, FavoritesKey(userID))
}

func (s *Store) SetFavorites(ctx context.Context, userID string, items []domain.FavoriteItem) error {
	return set(ctx, s.client, FavoritesKey(userID), items, s.now(), s.ttl)
}

func (s *Store) DeleteFavorites(ctx context.Context, userID string) error {
	return s.del(ctx, FavoritesKey(userID))
}

// Ping checks the redis connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) del(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete slot %s: %w", key, err)
	}
	return nil
}

func get[T any](ctx context.Context, client *redis.Client, key string) (*Envelope[T], error) {
	raw, err := client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read slot %s: %w", key, err)
	}

	env := &Envelope[T]{}
	if err := json.Unmarshal(raw, env); err != nil {
		return nil, fmt.Errorf("failed to decode slot %s: %w: %v", key, ErrCorruptSlot, err)
	}
	if env.Data == nil {
		env.Data = []T{}
	}
	return env, nil
}

func set[T any](ctx context.Context, client *redis.Client, key string, data []T, now time.Time, ttl time.Duration) error {
	if data == nil {
		data = []T{}
	}
	raw, err := json.Marshal(Envelope[T]{Data: data, Timestamp: now.UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode slot %s: %w", key, err)
	}
	if err := client.Set(ctx, key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write slot %s: %w", key, err)
	}
	return nil
}
