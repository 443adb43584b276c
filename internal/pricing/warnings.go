package pricing

import (
	"fmt"
	"math"
)

// WarningKind classifies a non-fatal problem found while pricing a service.
type WarningKind string

const (
	// KindClamped marks a negative or non-numeric input replaced by 0.
	KindClamped WarningKind = "clamped"
	// KindMissingRate marks a service priced with all-zero base rates
	// because the rate catalog had no entry for it.
	KindMissingRate WarningKind = "missing_rate"
	// KindNumericGuard marks a derived figure that was not finite and is
	// reported as 0.
	KindNumericGuard WarningKind = "numeric_guard"
	// KindCaseLimit marks a daily case count above the service limit.
	KindCaseLimit WarningKind = "case_limit"
)

// Warning is a non-fatal problem attached to one service.
type Warning struct {
	Service string      `json:"service"`
	Field   string      `json:"field,omitempty"`
	Kind    WarningKind `json:"kind"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s: %s", w.Service, w.Kind)
	}
	return fmt.Sprintf("%s.%s: %s", w.Service, w.Field, w.Kind)
}

type warningSink struct {
	service  string
	warnings []Warning
}

func (s *warningSink) add(field string, kind WarningKind) {
	s.warnings = append(s.warnings, Warning{Service: s.service, Field: field, Kind: kind})
}

// amount clamps a negative, NaN or infinite amount to 0.
func (s *warningSink) amount(field string, v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		s.add(field, KindClamped)
		return 0
	}
	return v
}

// count clamps a negative count to 0.
func (s *warningSink) count(field string, v int) int {
	if v < 0 {
		s.add(field, KindClamped)
		return 0
	}
	return v
}

// Finite reports v, or 0 and false when v is NaN or infinite.
func Finite(v float64) (float64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
