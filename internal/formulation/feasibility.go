package formulation

import (
	"math"
)

const (
	NutrientCP  = "CP"
	NutrientTDN = "TDN"
)

// Report summarizes the nutrient ceilings of an ingredient set.
type Report struct {
	MaxCP      float64 `json:"maxCP"`
	MaxTDN     float64 `json:"maxTDN"`
	MaxCPFrom  string  `json:"maxCPFrom"`
	MaxTDNFrom string  `json:"maxTDNFrom"`
	Feasible   bool    `json:"feasible"`
}

// Ceilings returns the highest CP and TDN among the ingredients. A blend is a
// weighted average, so no mix can exceed these values.
func Ceilings(ingredients []Ingredient) (Report, error) {
	if len(ingredients) == 0 {
		return Report{}, invalidf("ingredients", 0, "at least one ingredient is required")
	}
	report := Report{MaxCP: math.Inf(-1), MaxTDN: math.Inf(-1)}
	for _, ing := range ingredients {
		if ing.CP > report.MaxCP {
			report.MaxCP = ing.CP
			report.MaxCPFrom = ing.Name
		}
		if ing.TDN > report.MaxTDN {
			report.MaxTDN = ing.TDN
			report.MaxTDNFrom = ing.Name
		}
	}
	return report, nil
}

// Check is a necessary-condition test run before solving. It fails with an
// *InfeasibleTargetError when a minimum exceeds the best single ingredient.
// Passing does not guarantee the solver will succeed.
func Check(ingredients []Ingredient, targets NutrientTargets) (Report, error) {
	report, err := Ceilings(ingredients)
	if err != nil {
		return report, err
	}
	if targets.CPMin > report.MaxCP {
		return report, &InfeasibleTargetError{
			Nutrient:   NutrientCP,
			Required:   targets.CPMin,
			Achievable: report.MaxCP,
			Best:       report.MaxCPFrom,
		}
	}
	if targets.TDNMin > report.MaxTDN {
		return report, &InfeasibleTargetError{
			Nutrient:   NutrientTDN,
			Required:   targets.TDNMin,
			Achievable: report.MaxTDN,
			Best:       report.MaxTDNFrom,
		}
	}
	report.Feasible = true
	return report, nil
}

// CheckBounds flags bounds that make the total-weight equality unsatisfiable
// for n ingredients regardless of nutrients.
func CheckBounds(n int, targets NutrientTargets, policy BoundsPolicy) error {
	if n <= 0 {
		return invalidf("ingredients", n, "at least one ingredient is required")
	}
	if err := policy.Validate(); err != nil {
		return err
	}
	total := targets.TotalWeightKg
	lower := policy.Lower(total)
	if lower*float64(n) > total {
		return invalidf("bounds.min", policy.Min,
			"minimum of %g kg for each of %d ingredients exceeds the total weight of %g kg", lower, n, total)
	}
	if upper := policy.Upper(total); upper*float64(n) < total {
		return invalidf("bounds.max", policy.Max,
			"maximum of %g kg for each of %d ingredients cannot reach the total weight of %g kg", upper, n, total)
	}
	return nil
}
