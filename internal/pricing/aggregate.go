package pricing

import "sort"

// CampCosts is the cost table of one camp.
type CampCosts struct {
	Breakdowns map[string]Breakdown `json:"breakdowns"`
	// Failed holds the services that could not be priced at all, keyed by
	// name. The other services are still priced.
	Failed   map[string]error `json:"-"`
	Warnings []Warning        `json:"warnings"`
}

// FailedNames returns the services that could not be priced, sorted.
func (c CampCosts) FailedNames() []string {
	names := make([]string, 0, len(c.Failed))
	for name := range c.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Aggregate prices every service present in inputs. A service missing from
// rates is priced with all-zero rates; a service missing from the catalog is
// reported in Failed without affecting the others.
func Aggregate(cat *Catalog, inputs map[string]CaseInput, rates map[string]BaseRate) CampCosts {
	costs := CampCosts{
		Breakdowns: make(map[string]Breakdown, len(inputs)),
		Failed:     make(map[string]error),
		Warnings:   []Warning{},
	}

	names := make([]string, 0, len(inputs))
	for name := range inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc, err := cat.Lookup(name)
		if err != nil {
			costs.Failed[name] = err
			continue
		}

		rate, ok := rates[name]
		if !ok {
			costs.Warnings = append(costs.Warnings, Warning{Service: name, Kind: KindMissingRate})
		}

		result := Calculate(svc, inputs[name], rate)
		costs.Breakdowns[name] = result.Breakdown
		costs.Warnings = append(costs.Warnings, result.Warnings...)
	}

	return costs
}
