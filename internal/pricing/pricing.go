// Package pricing turns per-service camp inputs and catalog base rates into
// cost breakdowns and unit prices.
package pricing

const (
	// OverheadFactor is the organizational overhead applied to direct costs.
	OverheadFactor = 1.5
	// MarginFactor is the margin layered on top of overhead.
	MarginFactor = 1.3
	// BandCap is the largest case count a volume-banded service amortizes over.
	BandCap = 100
)

// BaseRate holds the catalog rates of one service.
type BaseRate struct {
	Salary      float64 `json:"salary"`
	Incentive   float64 `json:"incentive"`
	Misc        float64 `json:"misc"`
	Equipment   float64 `json:"equipment"`
	Consumables float64 `json:"consumables"`
	Reporting   float64 `json:"reporting"`
	// FlatPrice is the list price of a flat-priced service.
	FlatPrice float64 `json:"flat_price"`
	// HardCopyPrice is the per-case price of a printed report.
	HardCopyPrice float64 `json:"hard_copy_price"`
	// Tiers replaces FlatPrice with a volume-dependent price when one of
	// them covers the camp's case count.
	Tiers []PriceRange `json:"tiers,omitempty"`
}

// CaseInput represents the operator-entered figures for one service of a camp.
type CaseInput struct {
	TotalCase      int     `json:"total_case"`
	NumberOfDays   int     `json:"number_of_days"`
	ReportTypeCost float64 `json:"report_type_cost"`
	Travel         float64 `json:"travel"`
	Stay           float64 `json:"stay"`
	Food           float64 `json:"food"`
	// FlatPrice overrides the catalog list price of a flat-priced service.
	FlatPrice *float64 `json:"flat_price,omitempty"`
}

// Breakdown contains every intermediate value of a service's price.
type Breakdown struct {
	Service        string      `json:"service"`
	Mode           PricingMode `json:"mode"`
	Salary         float64     `json:"salary"`
	Incentive      float64     `json:"incentive"`
	Consumables    float64     `json:"consumables"`
	Reporting      float64     `json:"reporting"`
	Misc           float64     `json:"misc"`
	Equipment      float64     `json:"equipment"`
	Travel         float64     `json:"travel"`
	Stay           float64     `json:"stay"`
	Food           float64     `json:"food"`
	ReportTypeCost float64     `json:"report_type_cost"`
	Overhead       float64     `json:"overhead"`
	TPrice         float64     `json:"t_price"`
	UnitPrice      float64     `json:"unit_price"`
	// Unavailable is set when a derived figure was not a finite number and
	// has been reported as 0.
	Unavailable bool `json:"unavailable,omitempty"`
}

// Result groups a breakdown with the warnings raised while computing it.
type Result struct {
	Breakdown Breakdown
	Warnings  []Warning
}

// Calculate computes the cost breakdown and unit price of one service.
func Calculate(svc Service, in CaseInput, rate BaseRate) Result {
	sink := &warningSink{service: svc.Name}
	in = sanitizeInput(sink, in)
	rate = sanitizeRate(sink, rate)

	var b Breakdown
	if svc.Mode == ModeFlatOverride {
		b = calculateFlat(sink, svc, in, rate)
	} else {
		b = calculateFormula(svc, in, rate)
	}
	guardBreakdown(sink, &b)

	return Result{Breakdown: b, Warnings: sink.warnings}
}

func calculateFormula(svc Service, in CaseInput, rate BaseRate) Breakdown {
	rule := svc.Rule
	salary := rule.deriveSalary(rate.Salary, rule.countBasis(in.TotalCase, in.NumberOfDays))
	consumables := rule.deriveConsumables(rate.Consumables, in.TotalCase)
	reporting := rule.deriveReporting(rate.Reporting, in.TotalCase)
	incentive := rule.deriveIncentive(rate.Incentive, in.NumberOfDays)

	direct := salary + incentive + rate.Misc + rate.Equipment + in.ReportTypeCost +
		consumables + reporting + in.Travel + in.Stay + in.Food
	overhead := direct * OverheadFactor
	tPrice := overhead * MarginFactor

	return Breakdown{
		Service:        svc.Name,
		Mode:           svc.Mode,
		Salary:         salary,
		Incentive:      incentive,
		Consumables:    consumables,
		Reporting:      reporting,
		Misc:           rate.Misc,
		Equipment:      rate.Equipment,
		Travel:         in.Travel,
		Stay:           in.Stay,
		Food:           in.Food,
		ReportTypeCost: in.ReportTypeCost,
		Overhead:       overhead,
		TPrice:         tPrice,
		UnitPrice:      unitPrice(svc.Mode, tPrice, in.TotalCase),
	}
}

// calculateFlat prices a flat-rate service: the operator override wins over
// the matching volume tier, which wins over the catalog list price. Every
// formula field stays 0.
func calculateFlat(sink *warningSink, svc Service, in CaseInput, rate BaseRate) Breakdown {
	tPrice := rate.FlatPrice
	if p, ok := TierPrice(rate.Tiers, in.TotalCase); ok {
		tPrice = p
	}
	if in.FlatPrice != nil {
		tPrice = sink.amount("flat_price", *in.FlatPrice)
	}
	return Breakdown{
		Service:   svc.Name,
		Mode:      ModeFlatOverride,
		TPrice:    tPrice,
		UnitPrice: tPrice,
	}
}

func unitPrice(mode PricingMode, tPrice float64, totalCase int) float64 {
	if totalCase <= 0 {
		return 0
	}
	divisor := totalCase
	if mode == ModeVolumeBanded && totalCase >= BandCap {
		divisor = BandCap
	}
	return tPrice / float64(divisor)
}

func guardBreakdown(sink *warningSink, b *Breakdown) {
	fields := []struct {
		name string
		v    *float64
	}{
		{"salary", &b.Salary},
		{"incentive", &b.Incentive},
		{"consumables", &b.Consumables},
		{"reporting", &b.Reporting},
		{"overhead", &b.Overhead},
		{"t_price", &b.TPrice},
		{"unit_price", &b.UnitPrice},
	}
	for _, f := range fields {
		if v, ok := Finite(*f.v); !ok {
			*f.v = v
			b.Unavailable = true
			sink.add(f.name, KindNumericGuard)
		}
	}
}

func sanitizeInput(sink *warningSink, in CaseInput) CaseInput {
	in.TotalCase = sink.count("total_case", in.TotalCase)
	in.NumberOfDays = sink.count("number_of_days", in.NumberOfDays)
	in.ReportTypeCost = sink.amount("report_type_cost", in.ReportTypeCost)
	in.Travel = sink.amount("travel", in.Travel)
	in.Stay = sink.amount("stay", in.Stay)
	in.Food = sink.amount("food", in.Food)
	return in
}

func sanitizeRate(sink *warningSink, rate BaseRate) BaseRate {
	rate.Salary = sink.amount("salary_rate", rate.Salary)
	rate.Incentive = sink.amount("incentive_rate", rate.Incentive)
	rate.Misc = sink.amount("misc_rate", rate.Misc)
	rate.Equipment = sink.amount("equipment_rate", rate.Equipment)
	rate.Consumables = sink.amount("consumables_rate", rate.Consumables)
	rate.Reporting = sink.amount("reporting_rate", rate.Reporting)
	rate.FlatPrice = sink.amount("flat_price", rate.FlatPrice)
	rate.HardCopyPrice = sink.amount("hard_copy_price", rate.HardCopyPrice)
	rate.Tiers = sanitizeTiers(sink, rate.Tiers)
	return rate
}
