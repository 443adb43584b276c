package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Simplici0/campbill/internal/pricing"
)

var (
	// ErrUnknownCoupon is returned when a request names a coupon code that
	// does not exist.
	ErrUnknownCoupon = errors.New("unknown coupon code")
	// ErrInvalidAdjustment is returned for a partner margin below 0 or a
	// discount outside 0..100.
	ErrInvalidAdjustment = errors.New("invalid price adjustment")
)

// Coupon grants a percentage discount on the grand total.
type Coupon struct {
	Code               string  `json:"code"`
	DiscountPercentage float64 `json:"discount_percentage"`
}

// CouponSource resolves coupon codes. Implementations return an error
// matching ErrUnknownCoupon for codes they do not hold.
type CouponSource interface {
	GetCoupon(ctx context.Context, code string) (Coupon, error)
}

// NormalizeCouponCode trims and upper-cases a code so lookups ignore case.
func NormalizeCouponCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCoupon checks that a coupon can be stored.
func ValidateCoupon(c Coupon) error {
	if c.Code == "" {
		return fmt.Errorf("%w: coupon code is required", ErrInvalidAdjustment)
	}
	return validatePercent("discount_percentage", c.DiscountPercentage, 100)
}

func validatePercent(field string, v, upper float64) error {
	if _, ok := pricing.Finite(v); !ok || v < 0 || v > upper {
		return fmt.Errorf("%w: %s must be a number between 0 and %v", ErrInvalidAdjustment, field, upper)
	}
	return nil
}

// adjustments resolves the partner margin and discount of a request. A
// coupon's discount replaces the entered one.
func (s *Service) adjustments(ctx context.Context, req Request) (margin, discount float64, err error) {
	if err := validatePercent("partner_margin", req.PartnerMargin, 1000); err != nil {
		return 0, 0, err
	}
	if err := validatePercent("discount", req.Discount, 100); err != nil {
		return 0, 0, err
	}

	code := NormalizeCouponCode(req.CouponCode)
	if code == "" {
		return req.PartnerMargin, req.Discount, nil
	}
	if s.coupons == nil {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownCoupon, code)
	}
	coupon, err := s.coupons.GetCoupon(ctx, code)
	if err != nil {
		if errors.Is(err, ErrUnknownCoupon) {
			return 0, 0, err
		}
		return 0, 0, fmt.Errorf("load coupon %s: %w", code, err)
	}
	return req.PartnerMargin, coupon.DiscountPercentage, nil
}
