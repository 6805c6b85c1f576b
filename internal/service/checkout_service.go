package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fireplay/internal/domain"
	"fireplay/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultCheckoutDelay = 2 * time.Second

var ErrEmptyCart = errors.New("cart is empty")

// CheckoutService simulates placing an order for the current cart
type CheckoutService interface {
	// Quote applies a coupon to the user's current subtotal
	Quote(ctx context.Context, userID, couponCode string) (*domain.CouponResult, error)
	// Checkout waits for the simulated payment, empties the cart and
	// returns a receipt. Nothing about the order is stored.
	Checkout(ctx context.Context, userID, couponCode string) (*domain.CheckoutReceipt, error)
}

type checkoutService struct {
	carts  CartService
	delay  time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewCheckoutService creates a new instance of CheckoutService. A negative
// delay disables the wait.
func NewCheckoutService(carts CartService, delay time.Duration, logger *zap.Logger) CheckoutService {
	if delay == 0 {
		delay = DefaultCheckoutDelay
	}
	return &checkoutService{carts: carts, delay: delay, logger: logger, now: time.Now}
}

func (s *checkoutService) Quote(ctx context.Context, userID, couponCode string) (*domain.CouponResult, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	result, err := ApplyCoupon(couponCode, cart.Subtotal())
	if err != nil {
		return &result, err
	}
	return &result, nil
}

func (s *checkoutService) Checkout(ctx context.Context, userID, couponCode string) (*domain.CheckoutReceipt, error) {
	cart, err := s.carts.Get(ctx, userID)
	if err != nil {
		metrics.RecordCheckout("error")
		return nil, err
	}
	if len(cart.Items) == 0 {
		metrics.RecordCheckout("empty")
		return nil, ErrEmptyCart
	}

	subtotal := cart.Subtotal()
	receipt := &domain.CheckoutReceipt{
		Items:      cart.Items,
		TotalItems: cart.TotalItems(),
		Subtotal:   subtotal.InexactFloat64(),
		Total:      subtotal.InexactFloat64(),
	}

	if strings.TrimSpace(couponCode) != "" {
		coupon, err := ApplyCoupon(couponCode, subtotal)
		if err != nil {
			metrics.RecordCheckout("invalid_coupon")
			return nil, err
		}
		receipt.Coupon = &coupon
		receipt.Discount = coupon.Discount
		receipt.Total = coupon.Total
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			metrics.RecordCheckout("cancelled")
			return nil, ctx.Err()
		}
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		metrics.RecordCheckout("error")
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	receipt.Reference = newOrderReference()
	receipt.PlacedAt = s.now().UTC()

	metrics.RecordCheckout("success")
	s.logger.Info("Checkout completed",
		zap.String("user_id", userID),
		zap.String("reference", receipt.Reference),
		zap.Int("items", receipt.TotalItems),
		zap.Float64("total", receipt.Total),
	)

	return receipt, nil
}

// newOrderReference returns FP- followed by eight upper-case hex digits
func newOrderReference() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "FP-" + strings.ToUpper(id[:8])
}
