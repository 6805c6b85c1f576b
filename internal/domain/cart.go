package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// MinCartQuantity and MaxCartQuantity bound every line item
	MinCartQuantity = 1
	MaxCartQuantity = 10
)

// CartItem is a game in a user's cart
type CartItem struct {
	ID              int        `json:"id"`
	Slug            string     `json:"slug"`
	Name            string     `json:"name"`
	BackgroundImage string     `json:"background_image"`
	Price           float64    `json:"price"`
	Genres          []Genre    `json:"genres"`
	Rating          float64    `json:"rating"`
	Released        string     `json:"released"`
	Platforms       []Platform `json:"platforms"`
	Quantity        int        `json:"quantity"`
}

// NewCartItem creates a line item for a game with a clamped quantity
func NewCartItem(game Game, quantity int) CartItem {
	return CartItem{
		ID:              game.ID,
		Slug:            game.Slug,
		Name:            game.Name,
		BackgroundImage: game.BackgroundImage,
		Price:           game.Price,
		Genres:          game.Genres,
		Rating:          game.Rating,
		Released:        game.Released,
		Platforms:       game.Platforms,
		Quantity:        ClampQuantity(quantity),
	}
}

// LineTotal returns price times quantity rounded to cents
func (i CartItem) LineTotal() float64 {
	return decimal.NewFromFloat(i.Price).
		Mul(decimal.NewFromInt(int64(i.Quantity))).
		Round(2).
		InexactFloat64()
}

// ClampQuantity bounds a quantity to [MinCartQuantity, MaxCartQuantity]
func ClampQuantity(quantity int) int {
	if quantity < MinCartQuantity {
		return MinCartQuantity
	}
	if quantity > MaxCartQuantity {
		return MaxCartQuantity
	}
	return quantity
}

// Cart is the in-progress order of one user
type Cart struct {
	UserID    string     `json:"user_id"`
	Items     []CartItem `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Find returns the index of a game in the cart or -1
func (c *Cart) Find(gameID int) int {
	for i, item := range c.Items {
		if item.ID == gameID {
			return i
		}
	}
	return -1
}

// TotalItems is the sum of all quantities
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// Subtotal is the sum of price times quantity as a decimal
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total.Round(2)
}

// TotalPrice is the sum of price times quantity
func (c *Cart) TotalPrice() float64 {
	return c.Subtotal().InexactFloat64()
}

// Clone returns a deep copy of the item slice
func (c *Cart) Clone() *Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	return &Cart{UserID: c.UserID, Items: items, UpdatedAt: c.UpdatedAt}
}
