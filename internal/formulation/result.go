package formulation

import "strings"

// Line is the solved weight and cost of one ingredient.
type Line struct {
	Ingredient Ingredient `json:"ingredient"`
	WeightKg   float64    `json:"weightKg"`
	Cost       float64    `json:"cost"`
}

// Result is a presentation-ready formulation. Values are exact; rounding is
// left to the output layer.
type Result struct {
	Method        string  `json:"method"`
	Lines         []Line  `json:"lines"`
	TotalCost     float64 `json:"totalCost"`
	TotalWeightKg float64 `json:"totalWeightKg"`
	CP            float64 `json:"cp"`
	TDN           float64 `json:"tdn"`
}

// Interpret pairs a successful solution with the ingredients it was built
// from. Columns are matched by name as well as position.
func Interpret(ingredients []Ingredient, solution Solution) (*Result, error) {
	if !solution.Success {
		return nil, solution.Err()
	}
	if len(solution.Weights) != len(ingredients) {
		return nil, &MismatchedLengthError{Weights: len(solution.Weights), Ingredients: len(ingredients)}
	}
	if solution.Columns != nil {
		if len(solution.Columns) != len(ingredients) {
			return nil, &MismatchedLengthError{Weights: len(solution.Columns), Ingredients: len(ingredients)}
		}
		for i, ing := range ingredients {
			if !strings.EqualFold(solution.Columns[i], ing.Name) {
				return nil, &MismatchedLengthError{
					Weights:     len(solution.Weights),
					Ingredients: len(ingredients),
					Column:      solution.Columns[i],
					Ingredient:  ing.Name,
				}
			}
		}
	}

	result := &Result{
		Method: solution.Method,
		Lines:  make([]Line, len(ingredients)),
	}
	var cpMass, tdnMass float64
	for i, ing := range ingredients {
		w := solution.Weights[i]
		cost := w * float64(ing.Price)
		result.Lines[i] = Line{Ingredient: ing, WeightKg: w, Cost: cost}
		result.TotalCost += cost
		result.TotalWeightKg += w
		cpMass += w * ing.CP
		tdnMass += w * ing.TDN
	}
	if result.TotalWeightKg > 0 {
		result.CP = cpMass / result.TotalWeightKg
		result.TDN = tdnMass / result.TotalWeightKg
	}
	return result, nil
}

// Supplied returns the batch sums CP·x and TDN·x that the nutrient minimums
// constrain. CP and TDN on the Result are the same sums divided by the total
// weight.
func (r *Result) Supplied() (cp, tdn float64) {
	for _, line := range r.Lines {
		cp += line.WeightKg * line.Ingredient.CP
		tdn += line.WeightKg * line.Ingredient.TDN
	}
	return cp, tdn
}

// Weight returns the solved weight of the named ingredient.
func (r *Result) Weight(name string) (float64, bool) {
	for _, line := range r.Lines {
		if strings.EqualFold(line.Ingredient.Name, name) {
			return line.WeightKg, true
		}
	}
	return 0, false
}

// Weights returns the solved weights keyed by ingredient name.
func (r *Result) Weights() map[string]float64 {
	weights := make(map[string]float64, len(r.Lines))
	for _, line := range r.Lines {
		weights[line.Ingredient.Name] = line.WeightKg
	}
	return weights
}
