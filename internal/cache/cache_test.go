package cache

import (
	"context"
	"testing"
	"time"

	"fireplay/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type StoreTestSuite struct {
	suite.Suite
	mr    *miniredis.Miniredis
	store *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.mr = miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: s.mr.Addr()})
	s.store = NewStore(client, time.Hour)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func (s *StoreTestSuite) TestCartRoundTrip() {
	ctx := context.Background()
	items := []domain.CartItem{{ID: 1, Name: "A", Price: 40, Quantity: 3}}

	s.Require().NoError(s.store.SetCart(ctx, "u1", items))

	env, err := s.store.GetCart(ctx, "u1")
	s.Require().NoError(err)
	s.Equal(items, env.Data)
	s.True(s.mr.Exists("cart_u1"))
	s.Equal(time.Hour, s.mr.TTL("cart_u1"))
}

func (s *StoreTestSuite) TestSlotsAreNamespacedByUser() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetFavorites(ctx, "alice", []domain.FavoriteItem{{ID: "alice_1", GameID: 1}}))

	_, err := s.store.GetFavorites(ctx, "bob")
	s.ErrorIs(err, ErrCacheMiss)

	env, err := s.store.GetFavorites(ctx, "alice")
	s.Require().NoError(err)
	s.Len(env.Data, 1)
	s.True(s.mr.Exists("fireplay_favorites_alice"))
}

func (s *StoreTestSuite) TestEmptySlotDecodesToEmptySlice() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetCart(ctx, "u1", nil))

	env, err := s.store.GetCart(ctx, "u1")
	s.Require().NoError(err)
	s.NotNil(env.Data)
	s.Empty(env.Data)
}

func (s *StoreTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetCart(ctx, "u1", []domain.CartItem{{ID: 1, Quantity: 1}}))
	s.Require().NoError(s.store.DeleteCart(ctx, "u1"))

	_, err := s.store.GetCart(ctx, "u1")
	s.ErrorIs(err, ErrCacheMiss)
}

func (s *StoreTestSuite) TestCorruptSlot() {
	s.Require().NoError(s.mr.Set("cart_u1", "{not json"))

	_, err := s.store.GetCart(context.Background(), "u1")
	s.ErrorIs(err, ErrCorruptSlot)
	s.NotErrorIs(err, ErrCacheMiss)
}

func TestEnvelopeSameDay(t *testing.T) {
	noon := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	env := &Envelope[int]{Timestamp: noon}

	assert.True(t, env.SameDay(noon.Add(11*time.Hour)))
	assert.False(t, env.SameDay(noon.Add(12*time.Hour)))
	assert.False(t, env.SameDay(noon.AddDate(1, 0, 0)))
}

func TestKeys(t *testing.T) {
	require.Equal(t, "cart_42", CartKey("42"))
	require.Equal(t, "fireplay_favorites_42", FavoritesKey("42"))
}
