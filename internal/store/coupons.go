package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Simplici0/campbill/internal/billing"
)

// errCouponNotFound matches both ErrNotFound and billing.ErrUnknownCoupon.
var errCouponNotFound = fmt.Errorf("%w: %w", ErrNotFound, billing.ErrUnknownCoupon)

// GetCoupon looks up a discount coupon by code, ignoring case.
func (s *SQLite) GetCoupon(ctx context.Context, code string) (billing.Coupon, error) {
	var c billing.Coupon
	err := s.db.QueryRowContext(ctx, `
		SELECT code, discount_percentage
		FROM discount_coupons
		WHERE code = ?
	`, billing.NormalizeCouponCode(code)).Scan(&c.Code, &c.DiscountPercentage)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Coupon{}, errCouponNotFound
	}
	if err != nil {
		return billing.Coupon{}, fmt.Errorf("query coupon: %w", err)
	}
	return c, nil
}

// ListCoupons returns every coupon ordered by code.
func (s *SQLite) ListCoupons(ctx context.Context) ([]billing.Coupon, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT code, discount_percentage
		FROM discount_coupons
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]billing.Coupon, 0)
	for rows.Next() {
		var c billing.Coupon
		if err := rows.Scan(&c.Code, &c.DiscountPercentage); err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}

	return coupons, nil
}

// UpsertCoupon creates or replaces a coupon. Codes are stored upper-case.
func (s *SQLite) UpsertCoupon(ctx context.Context, c billing.Coupon) error {
	c.Code = billing.NormalizeCouponCode(c.Code)
	if err := billing.ValidateCoupon(c); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO discount_coupons (code, discount_percentage)
		VALUES (?, ?)
		ON CONFLICT(code) DO UPDATE SET
			discount_percentage = excluded.discount_percentage,
			updated_at = CURRENT_TIMESTAMP
	`, c.Code, c.DiscountPercentage)
	if err != nil {
		return fmt.Errorf("upsert coupon %q: %w", c.Code, err)
	}
	return nil
}
