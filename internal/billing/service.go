// Package billing turns priced camp services into numbered billing records.
package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Simplici0/campbill/internal/pricing"
)

// ErrNoServices is returned when a request carries no services to bill.
var ErrNoServices = errors.New("no services to bill")

// RateSource supplies the base rates of every catalog service.
type RateSource interface {
	Rates(ctx context.Context) (map[string]pricing.BaseRate, error)
}

// RecordStore persists finalized billing records.
type RecordStore interface {
	SaveRecord(ctx context.Context, rec Record) error
}

// Request is the billable content of one camp.
type Request struct {
	Camp   CampMetadata                 `json:"camp"`
	Inputs map[string]pricing.CaseInput `json:"inputs"`
	Markup map[string]float64           `json:"markup"`
	// PartnerMargin and Discount are percentages applied to the subtotal.
	// A valid CouponCode replaces Discount with the coupon's.
	PartnerMargin float64 `json:"partner_margin"`
	Discount      float64 `json:"discount"`
	CouponCode    string  `json:"coupon_code"`
}

// Preview is a priced camp that has not been numbered.
type Preview struct {
	Costs   pricing.CampCosts `json:"costs"`
	Summary Summary           `json:"summary"`
}

// Submission is the outcome of a successful submit.
type Submission struct {
	Record   Record            `json:"record"`
	Warnings []pricing.Warning `json:"warnings"`
	Failed   []string          `json:"failed"`
}

// Service runs the aggregate, summarize, number and persist pipeline.
type Service struct {
	catalog *pricing.Catalog
	rates   RateSource
	numbers *Generator
	records RecordStore
	coupons CouponSource
	now     func() time.Time
}

// NewService wires a billing service.
func NewService(catalog *pricing.Catalog, rates RateSource, numbers *Generator, records RecordStore) *Service {
	return &Service{
		catalog: catalog,
		rates:   rates,
		numbers: numbers,
		records: records,
		now:     time.Now,
	}
}

// WithCoupons lets requests redeem coupon codes held by src.
func (s *Service) WithCoupons(src CouponSource) *Service {
	s.coupons = src
	return s
}

// Preview prices a camp and summarizes it without consuming a billing number.
func (s *Service) Preview(ctx context.Context, req Request) (Preview, error) {
	margin, discount, err := s.adjustments(ctx, req)
	if err != nil {
		return Preview{}, err
	}
	rates, err := s.rates.Rates(ctx)
	if err != nil {
		return Preview{}, fmt.Errorf("load service rates: %w", err)
	}
	preview := price(s.catalog, rates, req)
	preview.Summary = preview.Summary.Adjust(margin, discount)
	return preview, nil
}

// Submit prices, summarizes, numbers and persists a camp's billing record.
// A number is consumed as soon as it is generated: when saving fails the
// returned record still carries it and must not be regenerated.
func (s *Service) Submit(ctx context.Context, req Request) (Submission, error) {
	if len(req.Inputs) == 0 {
		return Submission{}, ErrNoServices
	}

	preview, err := s.Preview(ctx, req)
	if err != nil {
		return Submission{}, err
	}

	number, err := s.numbers.Generate(ctx)
	if err != nil {
		return Submission{}, fmt.Errorf("generate billing number: %w", err)
	}

	sub := Submission{
		Record:   NewRecord(number, req.Camp, preview.Summary, s.now()),
		Warnings: preview.Costs.Warnings,
		Failed:   preview.Costs.FailedNames(),
	}
	sub.Record.CouponCode = NormalizeCouponCode(req.CouponCode)
	if err := s.records.SaveRecord(ctx, sub.Record); err != nil {
		return sub, fmt.Errorf("save billing record %s: %w", number, err)
	}
	return sub, nil
}

func price(catalog *pricing.Catalog, rates map[string]pricing.BaseRate, req Request) Preview {
	costs := pricing.Aggregate(catalog, req.Inputs, rates)

	caseCounts := make(map[string]int, len(req.Inputs))
	for name, in := range req.Inputs {
		caseCounts[name] = max(in.TotalCase, 0)
	}

	return Preview{
		Costs:   costs,
		Summary: Summarize(costs.Breakdowns, req.Markup, caseCounts),
	}
}
