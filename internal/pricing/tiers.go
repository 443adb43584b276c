package pricing

import "sort"

// PriceRange is one volume tier of a flat-priced service: camps with at most
// MaxCases cases pay Price per case.
type PriceRange struct {
	MaxCases int     `json:"max_cases"`
	Price    float64 `json:"price"`
}

// TierPrice returns the per-case price of the smallest tier that covers
// totalCase. It reports false when no tier does.
func TierPrice(tiers []PriceRange, totalCase int) (float64, bool) {
	if len(tiers) == 0 {
		return 0, false
	}
	sorted := make([]PriceRange, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].MaxCases < sorted[j].MaxCases })

	for _, t := range sorted {
		if totalCase <= t.MaxCases {
			return t.Price, true
		}
	}
	return 0, false
}

func sanitizeTiers(sink *warningSink, tiers []PriceRange) []PriceRange {
	if len(tiers) == 0 {
		return nil
	}
	out := make([]PriceRange, len(tiers))
	for i, t := range tiers {
		out[i] = PriceRange{
			MaxCases: sink.count("tier_max_cases", t.MaxCases),
			Price:    sink.amount("tier_price", t.Price),
		}
	}
	return out
}
