package store

import (
	"context"
	"fmt"

	"github.com/Simplici0/campbill/internal/pricing"
)

// RateRow is one entry of the rate catalog.
type RateRow struct {
	Service   string           `json:"service"`
	Rate      pricing.BaseRate `json:"rate"`
	UpdatedAt string           `json:"updated_at"`
}

// Rates returns the base rates of every service in the catalog.
func (s *SQLite) Rates(ctx context.Context) (map[string]pricing.BaseRate, error) {
	rows, err := s.ListRates(ctx)
	if err != nil {
		return nil, err
	}

	rates := make(map[string]pricing.BaseRate, len(rows))
	for _, row := range rows {
		rates[row.Service] = row.Rate
	}
	return rates, nil
}

// ListRates returns the rate catalog ordered by service name.
func (s *SQLite) ListRates(ctx context.Context) ([]RateRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, salary, incentive, misc, equipment, consumables, reporting, flat_price, hard_copy_price, updated_at
		FROM service_rates
		ORDER BY service
	`)
	if err != nil {
		return nil, fmt.Errorf("query service rates: %w", err)
	}
	defer rows.Close()

	result := make([]RateRow, 0)
	for rows.Next() {
		var row RateRow
		r := &row.Rate
		if err := rows.Scan(
			&row.Service,
			&r.Salary,
			&r.Incentive,
			&r.Misc,
			&r.Equipment,
			&r.Consumables,
			&r.Reporting,
			&r.FlatPrice,
			&r.HardCopyPrice,
			&row.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan service rate: %w", err)
		}
		result = append(result, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate service rates: %w", err)
	}

	tiers, err := s.priceRanges(ctx)
	if err != nil {
		return nil, err
	}
	for i := range result {
		result[i].Rate.Tiers = tiers[result[i].Service]
	}

	return result, nil
}

// priceRanges returns the volume tiers of every service, smallest first.
func (s *SQLite) priceRanges(ctx context.Context) (map[string][]pricing.PriceRange, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT service, max_cases, price
		FROM price_ranges
		ORDER BY service, max_cases
	`)
	if err != nil {
		return nil, fmt.Errorf("query price ranges: %w", err)
	}
	defer rows.Close()

	tiers := make(map[string][]pricing.PriceRange)
	for rows.Next() {
		var (
			service string
			t       pricing.PriceRange
		)
		if err := rows.Scan(&service, &t.MaxCases, &t.Price); err != nil {
			return nil, fmt.Errorf("scan price range: %w", err)
		}
		tiers[service] = append(tiers[service], t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price ranges: %w", err)
	}

	return tiers, nil
}

// UpsertRate creates or replaces the base rates of a service, volume tiers
// included.
func (s *SQLite) UpsertRate(ctx context.Context, service string, r pricing.BaseRate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rate update: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO service_rates (
			service, salary, incentive, misc, equipment, consumables, reporting, flat_price, hard_copy_price
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(service) DO UPDATE SET
			salary = excluded.salary,
			incentive = excluded.incentive,
			misc = excluded.misc,
			equipment = excluded.equipment,
			consumables = excluded.consumables,
			reporting = excluded.reporting,
			flat_price = excluded.flat_price,
			hard_copy_price = excluded.hard_copy_price,
			updated_at = CURRENT_TIMESTAMP
	`,
		service,
		r.Salary,
		r.Incentive,
		r.Misc,
		r.Equipment,
		r.Consumables,
		r.Reporting,
		r.FlatPrice,
		r.HardCopyPrice,
	)
	if err != nil {
		return fmt.Errorf("upsert service rate %q: %w", service, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM price_ranges WHERE service = ?`, service); err != nil {
		return fmt.Errorf("clear price ranges of %q: %w", service, err)
	}
	for _, t := range r.Tiers {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO price_ranges (service, max_cases, price)
			VALUES (?, ?, ?)
			ON CONFLICT(service, max_cases) DO UPDATE SET price = excluded.price
		`, service, t.MaxCases, t.Price); err != nil {
			return fmt.Errorf("insert price range of %q: %w", service, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit rate update: %w", err)
	}
	return nil
}
