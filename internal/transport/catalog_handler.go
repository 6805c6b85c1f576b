package transport

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"fireplay/internal/catalog"
	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Catalog is the read side of the game metadata API
type Catalog interface {
	ListPopular(ctx context.Context, page, pageSize int) (*catalog.Page, error)
	ListNewReleases(ctx context.Context, page, pageSize int) (*catalog.Page, error)
	ListDiscounted(ctx context.Context, page, pageSize int) (*catalog.Page, error)
	Search(ctx context.Context, p catalog.SearchParams) (*catalog.Page, error)
	GetDetails(ctx context.Context, slug string) (*domain.GameDetails, error)
	ListGenres(ctx context.Context) ([]domain.Genre, error)
	ListPlatforms(ctx context.Context) ([]domain.PlatformRef, error)
}

// GameDetailsResponse is a game page; IsFavorite is only set for signed-in
// shoppers
type GameDetailsResponse struct {
	*domain.GameDetails
	IsFavorite *bool `json:"is_favorite,omitempty"`
}

// CatalogHandler serves game listings and details
type CatalogHandler struct {
	catalog   Catalog
	favorites service.FavoriteService
	logger    *zap.Logger
}

// NewCatalogHandler creates a CatalogHandler. favorites may be nil.
func NewCatalogHandler(c Catalog, favorites service.FavoriteService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{catalog: c, favorites: favorites, logger: logger}
}

// RegisterRoutes registers the public catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/games", func(r chi.Router) {
		r.Get("/", h.ListPopular)
		r.Get("/search", h.Search)
		r.Get("/new", h.ListNewReleases)
		r.Get("/deals", h.ListDiscounted)
		r.With(optionalAuth).Get("/{slug}", h.GetDetails)
	})
	r.Get("/api/genres", h.ListGenres)
	r.Get("/api/platforms", h.ListPlatforms)
}

func (h *CatalogHandler) ListPopular(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, h.catalog.ListPopular)
}

func (h *CatalogHandler) ListNewReleases(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, h.catalog.ListNewReleases)
}

func (h *CatalogHandler) ListDiscounted(w http.ResponseWriter, r *http.Request) {
	h.respondPage(w, r, h.catalog.ListDiscounted)
}

func (h *CatalogHandler) respondPage(w http.ResponseWriter, r *http.Request, list func(context.Context, int, int) (*catalog.Page, error)) {
	page, pageSize := catalog.NormalizePage(queryInt(r, "page"), queryInt(r, "page_size"))
	result, err := list(r.Context(), page, pageSize)
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Search filters games by term, genres and platforms.
// Query: search, genres=4,51, platforms=1,18, ordering, page, page_size.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.catalog.Search(r.Context(), catalog.SearchParams{
		Term:      q.Get("search"),
		Page:      queryInt(r, "page"),
		PageSize:  queryInt(r, "page_size"),
		Genres:    parseIDList(q.Get("genres")),
		Platforms: parseIDList(q.Get("platforms")),
		Ordering:  q.Get("ordering"),
	})
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// GetDetails returns a single game page
func (h *CatalogHandler) GetDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.catalog.GetDetails(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}

	resp := GameDetailsResponse{GameDetails: details}
	if userID, ok := middleware.GetUserID(r.Context()); ok && h.favorites != nil {
		fav, err := h.favorites.IsFavorite(r.Context(), userID, details.ID)
		if err != nil {
			// the page still renders without the heart state
			h.logger.Warn("Failed to resolve favorite state", zap.Error(err), zap.Int("game_id", details.ID))
		} else {
			resp.IsFavorite = &fav
		}
	}

	middleware.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *CatalogHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.catalog.ListGenres(r.Context())
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, genres)
}

func (h *CatalogHandler) ListPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.catalog.ListPlatforms(r.Context())
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, platforms)
}

// parseIDList reads "4,51,x" as [4 51]; malformed entries are skipped
func parseIDList(raw string) []int {
	var ids []int
	for _, part := range strings.Split(raw, ",") {
		if id, err := strconv.Atoi(strings.TrimSpace(part)); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}
