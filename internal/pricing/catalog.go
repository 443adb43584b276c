package pricing

import (
	"fmt"
	"sort"
)

// PricingMode tags how a service's unit price is produced.
type PricingMode int

const (
	// ModeFormula derives the unit price from the cost formula over all cases.
	ModeFormula PricingMode = iota
	// ModeVolumeBanded derives the unit price from the cost formula but
	// amortizes it over at most BandCap cases.
	ModeVolumeBanded
	// ModeFlatOverride bypasses the formula; the unit price is a flat figure.
	ModeFlatOverride
)

func (m PricingMode) String() string {
	switch m {
	case ModeFormula:
		return "formula"
	case ModeVolumeBanded:
		return "volume_banded"
	case ModeFlatOverride:
		return "flat_override"
	default:
		return "unknown"
	}
}

// MarshalText renders the mode by name in JSON payloads.
func (m PricingMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *PricingMode) UnmarshalText(text []byte) error {
	switch string(text) {
	case "formula":
		*m = ModeFormula
	case "volume_banded":
		*m = ModeVolumeBanded
	case "flat_override":
		*m = ModeFlatOverride
	default:
		return fmt.Errorf("unknown pricing mode %q", text)
	}
	return nil
}

// Service is one entry of the service catalog.
type Service struct {
	Name string
	Mode PricingMode
	Rule Rule
	// DailyCaseLimit is the largest case-per-day figure a single team can
	// handle. Zero means unlimited.
	DailyCaseLimit int
}

// ConfigurationError reports a service that has no catalog entry.
type ConfigurationError struct {
	Service string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("service %q has no pricing rule", e.Service)
}

// Catalog maps service names to their pricing definition.
type Catalog struct {
	services map[string]Service
}

// NewCatalog builds a catalog from the given services. Later entries with
// the same name replace earlier ones.
func NewCatalog(services ...Service) *Catalog {
	c := &Catalog{services: make(map[string]Service, len(services))}
	for _, s := range services {
		c.services[s.Name] = s
	}
	return c
}

// Lookup returns the catalog entry for an exact service name.
func (c *Catalog) Lookup(name string) (Service, error) {
	if c != nil {
		if s, ok := c.services[name]; ok {
			return s, nil
		}
	}
	return Service{}, &ConfigurationError{Service: name}
}

// Names returns every service name in the catalog, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FlatPriced lists the lab tests billed at a flat per-case figure.
var FlatPriced = []string{
	"CBC",
	"Complete Hemogram",
	"Hemoglobin",
	"Urine Routine",
	"Stool Examination",
	"Lipid Profile",
	"Kidney Profile",
	"LFT",
	"KFT",
	"Random Blood Glucose",
	"Blood Grouping",
}

// DefaultCatalog returns the catalog of services offered at health camps.
func DefaultCatalog() *Catalog {
	services := []Service{
		{Name: "X-ray", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 200},
		{Name: "Coordinator", Mode: ModeFormula, Rule: DaysBasedSalary},
		{Name: "ECG", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 100},
		{Name: "Form 7", Mode: ModeFormula, Rule: CaseBasedSalary},
		{Name: "PFT", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 200},
		{Name: "Doctor Consultation", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 100},
		{Name: "Dental Consultation", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 125},
		{Name: "BMD", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 150},
		{Name: "Tetanus Vaccine", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 125},
		{Name: "Typhoid Vaccine", Mode: ModeFormula, Rule: DaysBasedSalary, DailyCaseLimit: 125},

		{Name: "Vitals", Mode: ModeVolumeBanded, Rule: DaysBasedSalary, DailyCaseLimit: 150},
		{Name: "Optometry", Mode: ModeVolumeBanded, Rule: DaysBasedSalary, DailyCaseLimit: 150},
		{Name: "Audiometry", Mode: ModeVolumeBanded, Rule: DaysBasedSalary, DailyCaseLimit: 125},
	}
	for _, name := range FlatPriced {
		s := Service{Name: name, Mode: ModeFlatOverride}
		if name == "CBC" {
			s.DailyCaseLimit = 120
		}
		services = append(services, s)
	}
	return NewCatalog(services...)
}
