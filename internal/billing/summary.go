package billing

import (
	"math"
	"sort"

	"github.com/Simplici0/campbill/internal/pricing"
)

// DefaultMarkup applies when no markup was entered for a service.
const DefaultMarkup = 1.0

// LineItem is one billed service of a camp.
type LineItem struct {
	Service          string  `json:"service"`
	TotalCase        int     `json:"total_case"`
	UnitPrice        float64 `json:"unit_price"`
	Markup           float64 `json:"markup"`
	RevisedUnitPrice float64 `json:"revised_unit_price"`
	TotalPrice       float64 `json:"total_price"`
	// Unavailable is set when a price was not a finite number and is
	// reported as 0.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Summary is the priced, not yet numbered, content of a billing record.
type Summary struct {
	LineItems []LineItem `json:"line_items"`
	// Subtotal is the sum of the line item totals.
	Subtotal float64 `json:"subtotal"`
	// PartnerMargin and Discount are percentages applied to Subtotal.
	PartnerMargin float64 `json:"partner_margin"`
	Discount      float64 `json:"discount"`
	GrandTotal    float64 `json:"grand_total"`
	// Unavailable is set when a total was not a finite number and is
	// reported as 0.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Adjust applies a partner margin and a discount, both percentages, to the
// subtotal: grand total = subtotal × (100+margin)/100 × (100-discount)/100.
// Margins below 0 count as 0; discounts are kept within 0..100.
func (s Summary) Adjust(partnerMargin, discount float64) Summary {
	partnerMargin = percent(partnerMargin, math.Inf(1))
	discount = percent(discount, 100)

	s.PartnerMargin = partnerMargin
	s.Discount = discount
	grand := s.Subtotal
	if partnerMargin != 0 {
		grand = grand * (100 + partnerMargin) / 100
	}
	if discount != 0 {
		grand = grand * (100 - discount) / 100
	}
	var ok bool
	s.GrandTotal, ok = pricing.Finite(grand)
	if !ok {
		s.Unavailable = true
	}
	return s
}

func percent(v, upper float64) float64 {
	if _, ok := pricing.Finite(v); !ok || v < 0 {
		return 0
	}
	return math.Min(v, upper)
}

// Summarize applies per-service markups to unit prices and totals the camp.
// One line item is produced per service in caseCounts, ordered by name. A
// service without a breakdown is billed at 0 and flagged unavailable.
func Summarize(breakdowns map[string]pricing.Breakdown, markup map[string]float64, caseCounts map[string]int) Summary {
	names := make([]string, 0, len(caseCounts))
	for name := range caseCounts {
		names = append(names, name)
	}
	sort.Strings(names)

	summary := Summary{LineItems: make([]LineItem, 0, len(names))}
	for _, name := range names {
		b, ok := breakdowns[name]
		item := lineItem(name, b, markupFor(markup, name), caseCounts[name])
		if !ok {
			item.Unavailable = true
		}
		summary.LineItems = append(summary.LineItems, item)
		summary.Subtotal += item.TotalPrice
	}

	var ok bool
	if summary.Subtotal, ok = pricing.Finite(summary.Subtotal); !ok {
		summary.Unavailable = true
	}
	summary.GrandTotal = summary.Subtotal
	return summary
}

func lineItem(service string, b pricing.Breakdown, markup float64, totalCase int) LineItem {
	if totalCase < 0 {
		totalCase = 0
	}
	item := LineItem{
		Service:     service,
		TotalCase:   totalCase,
		UnitPrice:   b.UnitPrice,
		Markup:      markup,
		Unavailable: b.Unavailable,
	}

	var ok bool
	if item.RevisedUnitPrice, ok = pricing.Finite(b.UnitPrice * markup); !ok {
		item.Unavailable = true
	}
	if item.TotalPrice, ok = pricing.Finite(item.RevisedUnitPrice * float64(totalCase)); !ok {
		item.Unavailable = true
	}
	if _, ok = pricing.Finite(item.UnitPrice); !ok {
		item.UnitPrice = 0
		item.Unavailable = true
	}
	return item
}

// markupFor returns the entered markup, or DefaultMarkup when the markup is
// absent, negative or not a finite number.
func markupFor(markup map[string]float64, service string) float64 {
	m, ok := markup[service]
	if !ok {
		return DefaultMarkup
	}
	if _, finite := pricing.Finite(m); !finite || m < 0 {
		return DefaultMarkup
	}
	return m
}
