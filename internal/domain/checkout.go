package domain

import "time"

// CouponResult is the outcome of applying a coupon to a subtotal
type CouponResult struct {
	Code     string  `json:"code"`
	Percent  int     `json:"percent"`
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Total    float64 `json:"total"`
}

// CheckoutReceipt confirms a simulated order; nothing about it is stored
type CheckoutReceipt struct {
	Reference  string        `json:"reference"`
	Items      []CartItem    `json:"items"`
	TotalItems int           `json:"total_items"`
	Subtotal   float64       `json:"subtotal"`
	Discount   float64       `json:"discount"`
	Total      float64       `json:"total"`
	Coupon     *CouponResult `json:"coupon,omitempty"`
	PlacedAt   time.Time     `json:"placed_at"`
}
