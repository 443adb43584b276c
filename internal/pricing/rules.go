package pricing

// SalaryBasis selects the count that staffing cost scales with.
type SalaryBasis int

const (
	// SalaryPerDay multiplies the salary rate by the number of camp days.
	SalaryPerDay SalaryBasis = iota
	// SalaryPerCase multiplies the salary rate by the number of cases.
	SalaryPerCase
)

func (b SalaryBasis) String() string {
	switch b {
	case SalaryPerDay:
		return "per_day"
	case SalaryPerCase:
		return "per_case"
	default:
		return "unknown"
	}
}

// Rule describes how a service's base rates scale into direct costs.
// Consumables and reporting always scale with the case count and the
// incentive always scales with the number of days; only the salary basis
// differs between services.
type Rule struct {
	Salary SalaryBasis
}

// DaysBasedSalary is the rule shared by almost every service.
var DaysBasedSalary = Rule{Salary: SalaryPerDay}

// CaseBasedSalary is used by services staffed per examined case.
var CaseBasedSalary = Rule{Salary: SalaryPerCase}

// countBasis returns the count the salary rate is multiplied by.
func (r Rule) countBasis(totalCase, numberOfDays int) int {
	if r.Salary == SalaryPerCase {
		return totalCase
	}
	return numberOfDays
}

func (r Rule) deriveSalary(rate float64, countBasis int) float64 {
	return rate * float64(countBasis)
}

func (r Rule) deriveConsumables(rate float64, totalCase int) float64 {
	return rate * float64(totalCase)
}

func (r Rule) deriveReporting(rate float64, totalCase int) float64 {
	return rate * float64(totalCase)
}

func (r Rule) deriveIncentive(rate float64, numberOfDays int) float64 {
	return rate * float64(numberOfDays)
}
