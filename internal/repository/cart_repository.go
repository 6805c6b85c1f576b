package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fireplay/internal/domain"
)

// DefaultCartBatchSize is how many line items are written per INSERT
const DefaultCartBatchSize = 10

// CartRepository is the remote copy of user carts. Rows are keyed by
// {userId}_{gameId}.
type CartRepository interface {
	ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error)
	ReplaceAll(ctx context.Context, userID string, items []domain.CartItem, batchSize int) error
	DeleteByUser(ctx context.Context, userID string) error
}

type cartRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db, now: time.Now}
}

// ListByUser returns the user's line items in insertion order
func (r *cartRepository) ListByUser(ctx context.Context, userID string) ([]domain.CartItem, error) {
	query := `
		SELECT game_id, game_slug, game_name, game_image, game_price, genres, rating, released, platforms, quantity
		FROM carts
		WHERE user_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var (
			item      domain.CartItem
			genres    []byte
			platforms []byte
		)
		err := rows.Scan(
			&item.ID,
			&item.Slug,
			&item.Name,
			&item.BackgroundImage,
			&item.Price,
			&genres,
			&item.Rating,
			&item.Released,
			&platforms,
			&item.Quantity,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart item: %w", err)
		}
		if err := json.Unmarshal(genres, &item.Genres); err != nil {
			return nil, fmt.Errorf("failed to decode cart item genres: %w", err)
		}
		if err := json.Unmarshal(platforms, &item.Platforms); err != nil {
			return nil, fmt.Errorf("failed to decode cart item platforms: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	return items, nil
}

// ReplaceAll deletes the user's rows and rewrites them in batches inside a
// single transaction, so readers never observe a half-written cart
func (r *cartRepository) ReplaceAll(ctx context.Context, userID string, items []domain.CartItem, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultCartBatchSize
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cart transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	updatedAt := r.now().UTC()
	for start := 0; start < len(items); start += batchSize {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}

		query, args, err := buildCartInsert(userID, items[start:end], start, updatedAt)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to write cart batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cart: %w", err)
	}

	return nil
}

// DeleteByUser removes every line item of the user
func (r *cartRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM carts WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// columns written per line item
const cartInsertColumns = 14

func buildCartInsert(userID string, batch []domain.CartItem, offset int, updatedAt time.Time) (string, []interface{}, error) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO carts (id, user_id, game_id, game_slug, game_name, game_image, game_price, genres, rating, released, platforms, quantity, position, updated_at) VALUES `)

	args := make([]interface{}, 0, len(batch)*cartInsertColumns)
	for i, item := range batch {
		genres, err := json.Marshal(nonNilGenres(item.Genres))
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode genres: %w", err)
		}
		platforms, err := json.Marshal(nonNilPlatforms(item.Platforms))
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode platforms: %w", err)
		}

		if i > 0 {
			sb.WriteString(", ")
		}
		base := len(args)
		sb.WriteString("(")
		for col := 1; col <= cartInsertColumns; col++ {
			if col > 1 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", base+col)
		}
		sb.WriteString(")")

		args = append(args,
			domain.FavoriteID(userID, item.ID),
			userID,
			item.ID,
			item.Slug,
			item.Name,
			item.BackgroundImage,
			item.Price,
			string(genres),
			item.Rating,
			item.Released,
			string(platforms),
			domain.ClampQuantity(item.Quantity),
			offset+i,
			updatedAt,
		)
	}

	return sb.String(), args, nil
}

func nonNilGenres(g []domain.Genre) []domain.Genre {
	if g == nil {
		return []domain.Genre{}
	}
	return g
}

func nonNilPlatforms(p []domain.Platform) []domain.Platform {
	if p == nil {
		return []domain.Platform{}
	}
	return p
}
