package formulation

import (
	"fmt"
	"strings"
)

// Bound is the weight range of a single LP column.
type Bound struct {
	Lower float64
	Upper float64
}

// Model is the canonical LP: minimize C·x subject to AUb·x <= BUb,
// AEq·x = BEq and Bounds. Columns[i] names the ingredient of column i.
type Model struct {
	Columns []string
	C       []float64
	AUb     [][]float64
	BUb     []float64
	AEq     [][]float64
	BEq     []float64
	Bounds  []Bound
}

// Build converts the ingredients and targets into an LP. Ingredient order
// fixes the column order. Minimums are negated into the solver's <= form.
func Build(ingredients []Ingredient, targets NutrientTargets, policy BoundsPolicy) (*Model, error) {
	n := len(ingredients)
	if n == 0 {
		return nil, invalidf("ingredients", 0, "at least one ingredient is required")
	}
	if err := targets.Validate(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, n)
	for _, ing := range ingredients {
		if err := ing.Validate(); err != nil {
			return nil, err
		}
		key := strings.ToLower(ing.Name)
		if _, dup := seen[key]; dup {
			return nil, invalidf("name", ing.Name, "ingredient %s is listed more than once", ing.Name)
		}
		seen[key] = struct{}{}
	}

	if err := CheckBounds(n, targets, policy); err != nil {
		return nil, err
	}

	model := &Model{
		Columns: make([]string, n),
		C:       make([]float64, n),
		AUb:     [][]float64{make([]float64, n), make([]float64, n)},
		BUb:     []float64{-targets.CPMin, -targets.TDNMin},
		AEq:     [][]float64{make([]float64, n)},
		BEq:     []float64{targets.TotalWeightKg},
		Bounds:  make([]Bound, n),
	}

	bound := Bound{
		Lower: policy.Lower(targets.TotalWeightKg),
		Upper: policy.Upper(targets.TotalWeightKg),
	}
	for i, ing := range ingredients {
		model.Columns[i] = ing.Name
		model.C[i] = float64(ing.Price)
		model.AUb[0][i] = -ing.CP
		model.AUb[1][i] = -ing.TDN
		model.AEq[0][i] = 1
		model.Bounds[i] = bound
	}

	return model, nil
}

// Size is the number of columns.
func (m *Model) Size() int {
	return len(m.C)
}

// Validate checks the shape invariants every solver backend relies on.
func (m *Model) Validate() error {
	if m == nil {
		return invalidf("model", nil, "model cannot be nil")
	}
	n := len(m.C)
	if n == 0 {
		return invalidf("model.c", 0, "model has no columns")
	}
	if len(m.Bounds) != n || len(m.Columns) != n {
		return invalidf("model.bounds", len(m.Bounds), "model has %d costs, %d bounds and %d column names", n, len(m.Bounds), len(m.Columns))
	}
	if len(m.AUb) != 2 || len(m.BUb) != 2 {
		return invalidf("model.aUb", len(m.AUb), "model must have exactly 2 inequality rows, got %d", len(m.AUb))
	}
	if len(m.AEq) != 1 || len(m.BEq) != 1 {
		return invalidf("model.aEq", len(m.AEq), "model must have exactly 1 equality row, got %d", len(m.AEq))
	}
	for i, row := range append(append([][]float64{}, m.AUb...), m.AEq...) {
		if len(row) != n {
			return invalidf("model.row", i, "constraint row %d has %d coefficients, expected %d", i, len(row), n)
		}
	}
	for i, b := range m.Bounds {
		if b.Lower > b.Upper {
			return invalidf("model.bounds", i, "column %s has lower bound %g above upper bound %g", m.Columns[i], b.Lower, b.Upper)
		}
	}
	return nil
}

func (m *Model) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "minimize %v·x\n", m.C)
	for i := range m.AUb {
		fmt.Fprintf(&sb, "  %v·x <= %g\n", m.AUb[i], m.BUb[i])
	}
	for i := range m.AEq {
		fmt.Fprintf(&sb, "  %v·x = %g\n", m.AEq[i], m.BEq[i])
	}
	for i, b := range m.Bounds {
		fmt.Fprintf(&sb, "  %g <= %s <= %g\n", b.Lower, m.Columns[i], b.Upper)
	}
	return sb.String()
}
