package service

import (
	"errors"
	"strings"

	"fireplay/internal/domain"

	"github.com/shopspring/decimal"
)

var ErrInvalidCoupon = errors.New("invalid coupon code")

// coupons maps upper-cased codes to their discount percentage
var coupons = map[string]int{
	"FIREPLAY10": 10,
	"OFERTAMAYO": 15,
}

// CouponPercent returns the discount percentage of a code, ignoring case
func CouponPercent(code string) (int, bool) {
	pct, ok := coupons[strings.ToUpper(strings.TrimSpace(code))]
	return pct, ok
}

// ApplyCoupon discounts a subtotal. Unknown codes return ErrInvalidCoupon
// together with an undiscounted result.
func ApplyCoupon(code string, subtotal decimal.Decimal) (domain.CouponResult, error) {
	subtotal = subtotal.Round(2)
	result := domain.CouponResult{
		Code:     strings.ToUpper(strings.TrimSpace(code)),
		Subtotal: subtotal.InexactFloat64(),
		Total:    subtotal.InexactFloat64(),
	}

	pct, ok := CouponPercent(code)
	if !ok {
		return result, ErrInvalidCoupon
	}

	discount := subtotal.Mul(decimal.NewFromInt(int64(pct))).Div(decimal.NewFromInt(100)).Round(2)
	result.Percent = pct
	result.Discount = discount.InexactFloat64()
	result.Total = subtotal.Sub(discount).InexactFloat64()

	return result, nil
}
