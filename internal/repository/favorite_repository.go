package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"fireplay/internal/domain"
)

var ErrFavoriteNotFound = errors.New("favorite not found")

// FavoriteRepository defines the interface for favorite data access.
// Records are keyed by {userId}_{gameId}, so a user holds a game at most once.
type FavoriteRepository interface {
	Create(ctx context.Context, favorite *domain.FavoriteItem) error
	Delete(ctx context.Context, userID string, gameID int) error
	Find(ctx context.Context, userID string, gameID int) (*domain.FavoriteItem, error)
	ListByUser(ctx context.Context, userID string) ([]domain.FavoriteItem, error)
}

type favoriteRepository struct {
	db *sql.DB
}

// NewFavoriteRepository creates a new instance of FavoriteRepository
func NewFavoriteRepository(db *sql.DB) FavoriteRepository {
	return &favoriteRepository{db: db}
}

// Create stores a favorite; storing an existing one is a no-op
func (r *favoriteRepository) Create(ctx context.Context, favorite *domain.FavoriteItem) error {
	query := `
		INSERT INTO favorites (id, user_id, game_id, game_name, game_slug, game_image, game_rating, game_price, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		domain.FavoriteID(favorite.UserID, favorite.GameID),
		favorite.UserID,
		favorite.GameID,
		favorite.GameName,
		favorite.GameSlug,
		favorite.GameImage,
		favorite.GameRating,
		favorite.GamePrice,
		favorite.AddedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create favorite: %w", err)
	}

	return nil
}

func (r *favoriteRepository) Delete(ctx context.Context, userID string, gameID int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM favorites WHERE id = $1`, domain.FavoriteID(userID, gameID))
	if err != nil {
		return fmt.Errorf("failed to delete favorite: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrFavoriteNotFound
	}

	return nil
}

func (r *favoriteRepository) Find(ctx context.Context, userID string, gameID int) (*domain.FavoriteItem, error) {
	query := `
		SELECT id, user_id, game_id, game_name, game_slug, game_image, game_rating, game_price, added_at
		FROM favorites
		WHERE id = $1
	`

	favorite := &domain.FavoriteItem{}
	err := r.db.QueryRowContext(ctx, query, domain.FavoriteID(userID, gameID)).Scan(
		&favorite.ID,
		&favorite.UserID,
		&favorite.GameID,
		&favorite.GameName,
		&favorite.GameSlug,
		&favorite.GameImage,
		&favorite.GameRating,
		&favorite.GamePrice,
		&favorite.AddedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFavoriteNotFound
		}
		return nil, fmt.Errorf("failed to find favorite: %w", err)
	}

	return favorite, nil
}

// ListByUser returns the user's favorites, newest first
func (r *favoriteRepository) ListByUser(ctx context.Context, userID string) ([]domain.FavoriteItem, error) {
	query := `
		SELECT id, user_id, game_id, game_name, game_slug, game_image, game_rating, game_price, added_at
		FROM favorites
		WHERE user_id = $1
		ORDER BY added_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites: %w", err)
	}
	defer rows.Close()

	favorites := []domain.FavoriteItem{}
	for rows.Next() {
		var favorite domain.FavoriteItem
		if err := rows.Scan(
			&favorite.ID,
			&favorite.UserID,
			&favorite.GameID,
			&favorite.GameName,
			&favorite.GameSlug,
			&favorite.GameImage,
			&favorite.GameRating,
			&favorite.GamePrice,
			&favorite.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan favorite: %w", err)
		}
		favorites = append(favorites, favorite)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating favorites: %w", err)
	}

	return favorites, nil
}
