package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/campbill/internal/billing"
)

// createdAtLayout keeps stored timestamps in lexicographic order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// RecordListItem is the list view of a billing record.
type RecordListItem struct {
	BillingNumber string  `json:"billing_number"`
	CompanyName   string  `json:"company_name"`
	GrandTotal    float64 `json:"grand_total"`
	CreatedAt     string  `json:"created_at"`
}

// SaveRecord persists a finalized billing record.
func (s *SQLite) SaveRecord(ctx context.Context, rec billing.Record) error {
	campJSON, err := json.Marshal(rec.Camp)
	if err != nil {
		return fmt.Errorf("encode camp metadata: %w", err)
	}
	itemsJSON, err := json.Marshal(rec.LineItems)
	if err != nil {
		return fmt.Errorf("encode line items: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO billing_records (
			id, billing_number, company_id, company_name, camp_json, line_items_json,
			subtotal, partner_margin, discount, coupon_code, grand_total, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID.String(),
		rec.BillingNumber,
		rec.Camp.CompanyID,
		rec.Camp.CompanyName,
		string(campJSON),
		string(itemsJSON),
		rec.Subtotal,
		rec.PartnerMargin,
		rec.Discount,
		rec.CouponCode,
		rec.GrandTotal,
		rec.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		return fmt.Errorf("insert billing record: %w", err)
	}
	return nil
}

// GetRecord loads a billing record by its billing number.
func (s *SQLite) GetRecord(ctx context.Context, billingNumber string) (billing.Record, error) {
	var (
		rec       billing.Record
		id        string
		campJSON  string
		itemsJSON string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, billing_number, camp_json, line_items_json,
			subtotal, partner_margin, discount, coupon_code, grand_total, created_at
		FROM billing_records
		WHERE billing_number = ?
	`, billingNumber).Scan(
		&id, &rec.BillingNumber, &campJSON, &itemsJSON,
		&rec.Subtotal, &rec.PartnerMargin, &rec.Discount, &rec.CouponCode, &rec.GrandTotal, &createdAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return billing.Record{}, ErrNotFound
	}
	if err != nil {
		return billing.Record{}, fmt.Errorf("query billing record: %w", err)
	}

	if rec.ID, err = uuid.Parse(id); err != nil {
		return billing.Record{}, fmt.Errorf("parse record id: %w", err)
	}
	if err := json.Unmarshal([]byte(campJSON), &rec.Camp); err != nil {
		return billing.Record{}, fmt.Errorf("decode camp metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(itemsJSON), &rec.LineItems); err != nil {
		return billing.Record{}, fmt.Errorf("decode line items: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return billing.Record{}, fmt.Errorf("parse created_at: %w", err)
	}
	return rec, nil
}

// ListRecords returns billing records newest first, optionally filtered by a
// substring of the billing number or company name.
func (s *SQLite) ListRecords(ctx context.Context, query string) ([]RecordListItem, error) {
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT billing_number, company_name, grand_total, created_at
		FROM billing_records
		WHERE (? = '' OR billing_number LIKE ? OR company_name LIKE ?)
		ORDER BY created_at DESC, billing_number DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query billing records: %w", err)
	}
	defer rows.Close()

	items := make([]RecordListItem, 0)
	for rows.Next() {
		var item RecordListItem
		if err := rows.Scan(&item.BillingNumber, &item.CompanyName, &item.GrandTotal, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan billing record: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate billing records: %w", err)
	}

	return items, nil
}
