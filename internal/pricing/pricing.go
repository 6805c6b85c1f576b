// Package pricing decorates catalog games with made-up prices. The metadata
// API has no commercial data, so everything here is demo behaviour and must
// not be mistaken for a pricing engine.
package pricing

import (
	"math/rand/v2"
	"sync"

	"fireplay/internal/domain"

	"github.com/shopspring/decimal"
)

// DiscountTiers are the percentages a discounted game can carry
var DiscountTiers = []int{10, 15, 20, 25, 30, 50}

const (
	premiumPrice  = 59.99
	standardPrice = 39.99
	budgetPrice   = 19.99

	// maxJitter is subtracted (scaled by a random factor) from the tier price
	maxJitter = 5.0
)

// PriceSimulator assigns a display price to a game
type PriceSimulator interface {
	Decorate(game domain.Game) domain.Game
}

// RandomPricer prices games by rating tier with random jitter. Two fetches of
// the same game may yield different prices.
type RandomPricer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomPricer creates a pricer; a nil source uses a randomly seeded one
func NewRandomPricer(src rand.Source) *RandomPricer {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &RandomPricer{rng: rand.New(src)}
}

// BasePrice returns the undiscounted tier price for a rating
func BasePrice(rating float64) float64 {
	switch {
	case rating > 4:
		return premiumPrice
	case rating > 3:
		return standardPrice
	default:
		return budgetPrice
	}
}

// Decorate sets Price and, for discounted games, OriginalPrice and DiscountPercent
func (p *RandomPricer) Decorate(game domain.Game) domain.Game {
	p.mu.Lock()
	jitter := p.rng.Float64() * maxJitter
	p.mu.Unlock()

	game.Price = roundCents(BasePrice(game.Rating) - jitter)
	game.OriginalPrice = nil
	game.DiscountPercent = nil

	if pct, ok := DiscountFor(game.ID); ok {
		original := OriginalPrice(game.Price, pct)
		game.OriginalPrice = &original
		game.DiscountPercent = &pct
	}

	return game
}

// DecorateAll prices every game in place and returns the slice
func DecorateAll(p PriceSimulator, games []domain.Game) []domain.Game {
	for i := range games {
		games[i] = p.Decorate(games[i])
	}
	return games
}

// DiscountFor reports the discount of a game. Only ids divisible by 3 are
// discounted and the tier is derived from the id, so a game keeps its
// discount across fetches.
func DiscountFor(gameID int) (int, bool) {
	if gameID <= 0 || gameID%3 != 0 {
		return 0, false
	}
	seed := gameID % 100
	return DiscountTiers[seed%len(DiscountTiers)], true
}

// OriginalPrice backs out the pre-discount price from a discounted one
func OriginalPrice(discounted float64, pct int) float64 {
	if pct <= 0 || pct >= 100 {
		return roundCents(discounted)
	}
	factor := decimal.NewFromInt(int64(100 - pct)).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(discounted).Div(factor).Round(2).InexactFloat64()
}

// DiscountedPrice applies a percentage to a price
func DiscountedPrice(price float64, pct int) float64 {
	factor := decimal.NewFromInt(int64(100 - pct)).Div(decimal.NewFromInt(100))
	return decimal.NewFromFloat(price).Mul(factor).Round(2).InexactFloat64()
}

func roundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
