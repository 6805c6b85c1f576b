package transport

import (
	"context"
	"errors"
	"net/http"

	"fireplay/internal/domain"
	"fireplay/internal/middleware"
	"fireplay/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RecommendationCount is how many popular games the cart page asks for
const RecommendationCount = 4

// AddToCartRequest carries the game exactly as the shopper saw it, including
// the simulated price
type AddToCartRequest struct {
	ID              int               `json:"id" validate:"required,gt=0"`
	Slug            string            `json:"slug" validate:"required"`
	Name            string            `json:"name" validate:"required"`
	BackgroundImage string            `json:"background_image"`
	Price           float64           `json:"price" validate:"gte=0"`
	Rating          float64           `json:"rating"`
	Released        string            `json:"released"`
	Genres          []domain.Genre    `json:"genres"`
	Platforms       []domain.Platform `json:"platforms"`
	Quantity        int               `json:"quantity"`
}

func (req AddToCartRequest) game() domain.Game {
	return domain.Game{
		ID:              req.ID,
		Slug:            req.Slug,
		Name:            req.Name,
		BackgroundImage: req.BackgroundImage,
		Price:           req.Price,
		Rating:          req.Rating,
		Released:        req.Released,
		Genres:          req.Genres,
		Platforms:       req.Platforms,
	}
}

// UpdateQuantityRequest sets a line item quantity; values are clamped to [1, 10]
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CouponRequest names a coupon code, which may be empty at checkout
type CouponRequest struct {
	Code string `json:"code"`
}

// CartResponse is a cart with its derived totals
type CartResponse struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice float64           `json:"total_price"`
}

func newCartResponse(cart *domain.Cart) CartResponse {
	items := cart.Items
	if items == nil {
		items = []domain.CartItem{}
	}
	return CartResponse{Items: items, TotalItems: cart.TotalItems(), TotalPrice: cart.TotalPrice()}
}

// CartHandler serves the cart, coupons, checkout and cart recommendations
type CartHandler struct {
	carts    service.CartService
	checkout service.CheckoutService
	catalog  Catalog
	logger   *zap.Logger
}

// NewCartHandler creates a CartHandler
func NewCartHandler(carts service.CartService, checkout service.CheckoutService, c Catalog, logger *zap.Logger) *CartHandler {
	return &CartHandler{carts: carts, checkout: checkout, catalog: c, logger: logger}
}

// RegisterRoutes registers the cart routes. Adding an item uses optional
// auth so anonymous shoppers get a redirect back to the game they were on.
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuth func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.With(optionalAuth).Post("/items", h.AddItem)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/", h.GetCart)
			r.Delete("/", h.ClearCart)
			r.Put("/items/{gameID}", h.UpdateQuantity)
			r.Delete("/items/{gameID}", h.RemoveItem)
			r.Post("/coupon", h.ApplyCoupon)
			r.Post("/checkout", h.Checkout)
			r.Get("/recommendations", h.Recommendations)
		})
	})
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.respondCartError(w, err, "failed to load cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart))
}

// AddItem adds a game or raises its quantity, capped at 10
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		middleware.RespondUnauthenticated(w, "Sign in to add games to your cart", middleware.LoginRedirect(req.Slug))
		return
	}

	cart, err := h.carts.Add(r.Context(), userID, req.game(), req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "failed to add game to cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}
	var req UpdateQuantityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cart, err := h.carts.SetQuantity(r.Context(), userID, gameID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "failed to update quantity")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	gameID, ok := gameIDParam(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Remove(r.Context(), userID, gameID)
	if err != nil {
		h.respondCartError(w, err, "failed to remove game from cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(cart))
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.carts.Clear(r.Context(), userID); err != nil {
		h.respondCartError(w, err, "failed to clear cart")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, newCartResponse(&domain.Cart{UserID: userID}))
}

// ApplyCoupon prices the current cart with a coupon without placing an order
func (h *CartHandler) ApplyCoupon(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CouponRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.checkout.Quote(r.Context(), userID, req.Code)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCoupon) {
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "invalid-coupon", "Invalid coupon code", map[string]interface{}{
				"subtotal": result.Subtotal,
				"total":    result.Total,
			})
			return
		}
		h.respondCartError(w, err, "failed to apply coupon")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

// Checkout simulates payment and empties the cart
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	var req CouponRequest
	if r.ContentLength != 0 && !decodeBody(w, r, &req) {
		return
	}

	receipt, err := h.checkout.Checkout(r.Context(), userID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "empty-cart", "Your cart is empty", nil)
		case errors.Is(err, service.ErrInvalidCoupon):
			middleware.RespondWithErrorCode(w, http.StatusBadRequest, "invalid-coupon", "Invalid coupon code", nil)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.logger.Info("Checkout abandoned", zap.String("user_id", userID))
			middleware.RespondWithError(w, http.StatusServiceUnavailable, "checkout was interrupted, your cart was not charged")
		default:
			h.respondCartError(w, err, "failed to complete checkout")
		}
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, receipt)
}

// Recommendations lists popular games that are not already in the cart
func (h *CartHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	cart, err := h.carts.Get(r.Context(), userID)
	if err != nil {
		h.respondCartError(w, err, "failed to load cart")
		return
	}

	page, err := h.catalog.ListPopular(r.Context(), 1, RecommendationCount)
	if err != nil {
		respondCatalogError(w, err, h.logger)
		return
	}

	games := make([]domain.Game, 0, len(page.Results))
	for _, game := range page.Results {
		if cart.Find(game.ID) < 0 {
			games = append(games, game)
		}
	}
	middleware.RespondWithJSON(w, http.StatusOK, games)
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, service.ErrCartItemNotFound) {
		middleware.RespondWithError(w, http.StatusNotFound, "game is not in the cart")
		return
	}
	h.logger.Error(message, zap.Error(err))
	middleware.RespondWithError(w, http.StatusInternalServerError, message)
}
