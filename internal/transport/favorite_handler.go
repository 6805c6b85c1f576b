package transport

import (
	"errors"
	"net/http"

	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/repository"
	"fireplay/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ToggleFavoriteRequest carries the game the heart button was pressed on
type ToggleFavoriteRequest struct {
	ID              int     `json:"id" validate:"required,gt=0"`
	Slug            string  `json:"slug" validate:"required"`
	Name            string  `json:"name" validate:"required"`
	BackgroundImage string  `json:"background_image"`
	Price           float64 `json:"price" validate:"gte=0"`
	Rating          float64 `json:"rating"`
}

// FavoriteStatusResponse answers whether one game is a favorite
type FavoriteStatusResponse struct {
	GameID     int  `json:"game_id"`
	IsFavorite bool `json:"is_favorite"`
}

// FavoriteHandler serves the favorites list and the heart toggle
type FavoriteHandler struct {
	favorites service.FavoriteService
	logger    *zap.Logger
}

// NewFavoriteHandler creates a FavoriteHandler
func NewFavoriteHandler(favorites service.FavoriteService, logger *zap.Logger) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites, logger: logger}
}

// RegisterRoutes registers the favorites routes
func (h *FavoriteHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/favorites", func(r chi.Router) {
		r.With(optionalAuth).Post("/toggle", h.Toggle)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.List)
			r.Get("/{gameID}", h.Status)
			r.Delete("/{gameID}", h.Remove)
		})
	})
}

func (h *FavoriteHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	items, err := h.favorites.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list favorites", zap.Error(err), zap.String("user_id", userID))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "favorites are unavailable right now")
		return
	}
	if items == nil {
		items = []domain.FavoriteItem{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, items)
}

func (h *FavoriteHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	fav, err := h.favorites.IsFavorite(r.Context(), userID, gameID)
	if err != nil {
		h.logger.Error("Failed to check favorite", zap.Error(err), zap.Int("game_id", gameID))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "favorites are unavailable right now")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, FavoriteStatusResponse{GameID: gameID, IsFavorite: fav})
}

// Toggle flips the heart. A slow save answers 202 with the optimistic state.
func (h *FavoriteHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleFavoriteRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondUnauthenticated(w, "Sign in to save favorites", middleware.LoginRedirect(req.Slug))
		return
	}

	res, err := h.favorites.Toggle(r.Context(), userID, domain.Game{
		ID:              req.ID,
		Slug:            req.Slug,
		Name:            req.Name,
		BackgroundImage: req.BackgroundImage,
		Price:           req.Price,
		Rating:          req.Rating,
	})
	h.respondToggle(w, res, err)
}

func (h *FavoriteHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	res, err := h.favorites.Remove(r.Context(), userID, gameID)
	if errors.Is(err, repository.ErrFavoriteNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "game is not in your favorites")
		return
	}
	h.respondToggle(w, res, err)
}

func (h *FavoriteHandler) respondToggle(w http.ResponseWriter, res *service.ToggleResult, err error) {
	switch {
	case errors.Is(err, service.ErrRolledBack):
		h.logger.Warn("Favorite change rolled back", zap.Error(err), zap.Int("game_id", res.GameID))
		middleware.RespondWithErrorCode(w, http.StatusBadGateway, "favorite-rolled-back", res.Notice.Message, map[string]interface{}{
			"game_id":     res.GameID,
			"is_favorite": res.IsFavorite,
			"notice":      res.Notice,
		})
	case err != nil:
		h.logger.Error("Failed to change favorite", zap.Error(err))
		middleware.RespondWithError(w, http.StatusServiceUnavailable, "favorites are unavailable right now")
	case res.Pending:
		middleware.RespondWithJSON(w, http.StatusAccepted, res)
	default:
		middleware.RespondWithJSON(w, http.StatusOK, res)
	}
}
