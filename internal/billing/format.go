package billing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/campbill/internal/pricing"
)

// Round2 rounds an amount half away from zero to two decimal places.
// Non-finite amounts round to 0.
func Round2(amount float64) decimal.Decimal {
	v, ok := pricing.Finite(amount)
	if !ok {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(2)
}

// FormatAmount formats an amount with exactly two decimals, e.g. "1591.20".
// Non-finite amounts format as "0.00".
func FormatAmount(amount float64) string {
	return Round2(amount).StringFixed(2)
}

// FormatINR formats an amount in Indian Rupee notation, grouping digits the
// Indian way after the last three (₹1,23,45,678.90).
func FormatINR(amount float64) string {
	raw := FormatAmount(amount)
	negative := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	intPart, decPart, _ := strings.Cut(raw, ".")
	result := "₹" + groupIndian(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

func groupIndian(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]
	for len(remaining) > 2 {
		result = remaining[len(remaining)-2:] + "," + result
		remaining = remaining[:len(remaining)-2]
	}
	if len(remaining) > 0 {
		result = remaining + "," + result
	}
	return result
}
