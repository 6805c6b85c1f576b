package domain

import (
	"fmt"
	"time"
)

// FavoriteItem is a game saved by a user
type FavoriteItem struct {
	ID         string    `json:"id" db:"id"`
	UserID     string    `json:"user_id" db:"user_id"`
	GameID     int       `json:"game_id" db:"game_id"`
	GameName   string    `json:"game_name" db:"game_name"`
	GameSlug   string    `json:"game_slug" db:"game_slug"`
	GameImage  string    `json:"game_image" db:"game_image"`
	GameRating float64   `json:"game_rating" db:"game_rating"`
	GamePrice  float64   `json:"game_price" db:"game_price"`
	AddedAt    time.Time `json:"added_at" db:"added_at"`
}

// FavoriteID derives the record key; one favorite per user per game
func FavoriteID(userID string, gameID int) string {
	return fmt.Sprintf("%s_%d", userID, gameID)
}

// NewFavoriteItem builds a favorite record for a game
func NewFavoriteItem(userID string, game Game, addedAt time.Time) FavoriteItem {
	return FavoriteItem{
		ID:         FavoriteID(userID, game.ID),
		UserID:     userID,
		GameID:     game.ID,
		GameName:   game.Name,
		GameSlug:   game.Slug,
		GameImage:  game.BackgroundImage,
		GameRating: game.Rating,
		GamePrice:  game.Price,
		AddedAt:    addedAt,
	}
}
