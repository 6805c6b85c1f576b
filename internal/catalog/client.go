// Package catalog talks to the RAWG game metadata API and returns games
// decorated with simulated prices.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fireplay/internal/domain"
	"fireplay/internal/metrics"
	"fireplay/internal/pricing"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

const (
	DefaultPageSize = 9
	MaxPageSize     = 40
	// MaxPages caps how deep a listing can be paged
	MaxPages = 10

	DefaultOrdering = "-rating"
)

var validOrderings = map[string]bool{
	"-rating":     true,
	"rating":      true,
	"-released":   true,
	"released":    true,
	"name":        true,
	"-name":       true,
	"-added":      true,
	"-metacritic": true,
}

// Options configures a Client
type Options struct {
	BaseURL        string
	APIKey         string
	Timeout        time.Duration
	RequestsPerSec float64
	CacheTTL       time.Duration
	HTTPClient     *http.Client
}

// SearchParams narrows a game listing
type SearchParams struct {
	Term      string
	Page      int
	PageSize  int
	Genres    []int
	Platforms []int
	Ordering  string
}

// Page is one page of games plus pagination metadata
type Page struct {
	Results    []domain.Game `json:"results"`
	Count      int           `json:"count"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	HasNext    bool          `json:"has_next"`
}

type listResponse struct {
	Count    int           `json:"count"`
	Next     *string       `json:"next"`
	Previous *string       `json:"previous"`
	Results  []domain.Game `json:"results"`
}

type screenshotsResponse struct {
	Results []domain.Screenshot `json:"results"`
}

type genresResponse struct {
	Results []domain.Genre `json:"results"`
}

type platformsResponse struct {
	Results []domain.PlatformRef `json:"results"`
}

// Client fetches games from the metadata API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	pricer     pricing.PriceSimulator
	logger     *zap.Logger

	genres    *expirable.LRU[string, []domain.Genre]
	platforms *expirable.LRU[string, []domain.PlatformRef]
	details   *expirable.LRU[string, domain.GameDetails]
}

// NewClient creates a catalog client. Generated prices are never cached;
// only the raw metadata is.
func NewClient(opts Options, pricer pricing.PriceSimulator, logger *zap.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSec > 0 {
		limit = rate.Limit(opts.RequestsPerSec)
	}

	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = time.Hour
	}

	return &Client{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		pricer:     pricer,
		logger:     logger,
		genres:     expirable.NewLRU[string, []domain.Genre](1, nil, ttl),
		platforms:  expirable.NewLRU[string, []domain.PlatformRef](1, nil, ttl),
		details:    expirable.NewLRU[string, domain.GameDetails](256, nil, ttl),
	}
}

// NormalizePage clamps a page number and size to the supported range
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPages {
		page = MaxPages
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

// NormalizeOrdering falls back to the default ordering for unknown values
func NormalizeOrdering(ordering string) string {
	if validOrderings[ordering] {
		return ordering
	}
	return DefaultOrdering
}

// ListPopular returns games ordered by rating
func (c *Client) ListPopular(ctx context.Context, page, pageSize int) (*Page, error) {
	return c.Search(ctx, SearchParams{Page: page, PageSize: pageSize, Ordering: DefaultOrdering})
}

// ListNewReleases returns games ordered by release date, newest first
func (c *Client) ListNewReleases(ctx context.Context, page, pageSize int) (*Page, error) {
	return c.Search(ctx, SearchParams{Page: page, PageSize: pageSize, Ordering: "-released"})
}

// ListDiscounted returns the popular games that currently carry a discount
func (c *Client) ListDiscounted(ctx context.Context, page, pageSize int) (*Page, error) {
	result, err := c.ListPopular(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	discounted := make([]domain.Game, 0, len(result.Results))
	for _, game := range result.Results {
		if game.IsDiscounted() {
			discounted = append(discounted, game)
		}
	}
	result.Results = discounted
	return result, nil
}

// Search returns a filtered page of games
func (c *Client) Search(ctx context.Context, p SearchParams) (*Page, error) {
	page, pageSize := NormalizePage(p.Page, p.PageSize)
	ordering := p.Ordering
	if ordering == "" {
		ordering = DefaultOrdering
	}
	ordering = NormalizeOrdering(ordering)

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("page_size", strconv.Itoa(pageSize))
	params.Set("ordering", ordering)
	if term := strings.TrimSpace(p.Term); term != "" {
		params.Set("search", term)
	}
	if len(p.Genres) > 0 {
		params.Set("genres", joinIDs(p.Genres))
	}
	if len(p.Platforms) > 0 {
		params.Set("platforms", joinIDs(p.Platforms))
	}

	c.logger.Debug("Fetching games",
		zap.String("search", p.Term),
		zap.Int("page", page),
		zap.Int("page_size", pageSize),
		zap.String("ordering", ordering),
	)

	var resp listResponse
	if err := c.getJSON(ctx, "games", "/games", params, &resp); err != nil {
		return nil, err
	}

	games := make([]domain.Game, len(resp.Results))
	for i, game := range resp.Results {
		games[i] = normalizeGame(game)
	}
	pricing.DecorateAll(c.pricer, games)

	totalPages := (resp.Count + pageSize - 1) / pageSize
	if totalPages > MaxPages {
		totalPages = MaxPages
	}
	if totalPages < 1 {
		totalPages = 1
	}

	return &Page{
		Results:    games,
		Count:      resp.Count,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
		HasNext:    resp.Next != nil && page < totalPages,
	}, nil
}

// GetDetails returns a game with description, credits and screenshots
func (c *Client) GetDetails(ctx context.Context, slug string) (*domain.GameDetails, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrGameNotFound
	}

	if cached, ok := c.details.Get(slug); ok {
		details := cached
		details.Game = c.pricer.Decorate(details.Game)
		return &details, nil
	}

	var (
		details     domain.GameDetails
		screenshots screenshotsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "game_details", "/games/"+url.PathEscape(slug), nil, &details)
	})
	g.Go(func() error {
		return c.getJSON(gctx, "screenshots", "/games/"+url.PathEscape(slug)+"/screenshots", nil, &screenshots)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	details.Game = normalizeGame(details.Game)
	details.Screenshots = screenshots.Results
	if details.Screenshots == nil {
		details.Screenshots = []domain.Screenshot{}
	}
	if details.Developers == nil {
		details.Developers = []domain.Developer{}
	}
	if details.Publishers == nil {
		details.Publishers = []domain.Publisher{}
	}

	c.details.Add(slug, details)

	details.Game = c.pricer.Decorate(details.Game)
	return &details, nil
}

// ListGenres returns the genre vocabulary used for filtering
func (c *Client) ListGenres(ctx context.Context) ([]domain.Genre, error) {
	if genres, ok := c.genres.Get("all"); ok {
		return genres, nil
	}

	var resp genresResponse
	if err := c.getJSON(ctx, "genres", "/genres", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []domain.Genre{}
	}

	c.genres.Add("all", resp.Results)
	return resp.Results, nil
}

// ListPlatforms returns the platform vocabulary used for filtering
func (c *Client) ListPlatforms(ctx context.Context) ([]domain.PlatformRef, error) {
	if platforms, ok := c.platforms.Get("all"); ok {
		return platforms, nil
	}

	var resp platformsResponse
	if err := c.getJSON(ctx, "platforms", "/platforms", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		resp.Results = []domain.PlatformRef{}
	}

	c.platforms.Add("all", resp.Results)
	return resp.Results, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, path string, params url.Values, out interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		metrics.RecordCatalogFetch(endpoint, "throttled")
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("%w: failed to build request: %v", ErrCatalogUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Catalog request failed", zap.String("endpoint", endpoint), zap.Error(err))
		metrics.RecordCatalogFetch(endpoint, "transport_error")
		return fmt.Errorf("%w: %v", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RecordCatalogFetch(endpoint, "transport_error")
		return fmt.Errorf("%w: failed to read response: %v", ErrCatalogUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		metrics.RecordCatalogFetch(endpoint, "not_found")
		return ErrGameNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := gjson.GetBytes(body, "detail").String()
		if detail == "" {
			detail = gjson.GetBytes(body, "error").String()
		}
		c.logger.Error("Catalog returned an error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", detail),
		)
		metrics.RecordCatalogFetch(endpoint, "http_error")
		return fmt.Errorf("%w: status %d: %s", ErrCatalogUnavailable, resp.StatusCode, detail)
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.logger.Error("Failed to decode catalog response", zap.String("endpoint", endpoint), zap.Error(err))
		metrics.RecordCatalogFetch(endpoint, "decode_error")
		return fmt.Errorf("%w: failed to decode response: %v", ErrCatalogUnavailable, err)
	}

	metrics.RecordCatalogFetch(endpoint, "ok")
	return nil
}

func normalizeGame(game domain.Game) domain.Game {
	if game.Platforms == nil {
		game.Platforms = []domain.Platform{}
	}
	if game.Genres == nil {
		game.Genres = []domain.Genre{}
	}
	return game
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}
