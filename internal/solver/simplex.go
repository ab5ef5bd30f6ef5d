package solver

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/pkg/constants"
)

const (
	// simplexTolerance is the reduced-cost tolerance handed to lp.Simplex.
	simplexTolerance = 1e-10
	// feasibilityTolerance bounds the constraint violation accepted in a
	// returned point.
	feasibilityTolerance = 1e-6
	// rowSlack loosens each shifted inequality so a minimum that a column
	// meets exactly is not lost to round-off. It stays below
	// feasibilityTolerance, so verifyPoint still holds the original rows.
	rowSlack = feasibilityTolerance / 4
)

// Simplex solves models with gonum's dense simplex implementation.
type Simplex struct {
	tol float64
}

// NewSimplex returns the default backend.
func NewSimplex() *Simplex {
	return &Simplex{tol: simplexTolerance}
}

// Method implements formulation.Solver.
func (s *Simplex) Method() string {
	return constants.SolverSimplex
}

// standardForm is the model rewritten as min c·z s.t. A z = b, z >= 0, where
// z = [x - lower, inequality slacks, upper-bound slacks]. Inequality and
// upper-bound rows are widened by rowSlack.
type standardForm struct {
	c     []float64
	a     *mat.Dense
	b     []float64
	lower []float64
}

func toStandardForm(m *formulation.Model) (*standardForm, error) {
	n := m.Size()
	lower := make([]float64, n)
	var capped []int
	for i, bound := range m.Bounds {
		if math.IsInf(bound.Lower, 0) {
			return nil, fmt.Errorf("column %s has no finite lower bound", m.Columns[i])
		}
		lower[i] = bound.Lower
		if !math.IsInf(bound.Upper, 1) {
			capped = append(capped, i)
		}
	}

	nUb := len(m.AUb)
	rows := nUb + len(m.AEq) + len(capped)
	cols := n + nUb + len(capped)

	sf := &standardForm{
		c:     make([]float64, cols),
		a:     mat.NewDense(rows, cols, nil),
		b:     make([]float64, rows),
		lower: lower,
	}
	copy(sf.c, m.C)

	row := 0
	for k, coefs := range m.AUb {
		for i, v := range coefs {
			sf.a.Set(row, i, v)
		}
		sf.a.Set(row, n+k, 1)
		sf.b[row] = m.BUb[k] - floats.Dot(coefs, lower) + rowSlack
		row++
	}
	for k, coefs := range m.AEq {
		for i, v := range coefs {
			sf.a.Set(row, i, v)
		}
		sf.b[row] = m.BEq[k] - floats.Dot(coefs, lower)
		row++
	}
	for j, i := range capped {
		sf.a.Set(row, i, 1)
		sf.a.Set(row, n+nUb+j, 1)
		sf.b[row] = m.Bounds[i].Upper - lower[i] + rowSlack
		row++
	}

	return sf, nil
}

// Solve implements formulation.Solver. Failures carry gonum's error text.
func (s *Simplex) Solve(m *formulation.Model) (solution formulation.Solution) {
	if err := m.Validate(); err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	sf, err := toStandardForm(m)
	if err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	// lp.Simplex panics on malformed dimensions.
	defer func() {
		if r := recover(); r != nil {
			solution = formulation.Failed(s.Method(), fmt.Sprint(r))
		}
	}()

	_, z, err := lp.Simplex(sf.c, sf.a, sf.b, s.tol, nil)
	if err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	n := m.Size()
	x := make([]float64, n)
	for i := range x {
		x[i] = z[i] + sf.lower[i]
	}

	if err := verifyPoint(m, x); err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	return formulation.Solution{
		Method:    s.Method(),
		Success:   true,
		Columns:   append([]string(nil), m.Columns...),
		Weights:   x,
		Objective: floats.Dot(m.C, x),
	}
}

// verifyPoint rejects a point that violates the model beyond tolerance.
func verifyPoint(m *formulation.Model, x []float64) error {
	for k, coefs := range m.AUb {
		if lhs := floats.Dot(coefs, x); lhs > m.BUb[k]+feasibilityTolerance {
			return fmt.Errorf("numerical difficulty: inequality row %d violated (%g > %g)", k, lhs, m.BUb[k])
		}
	}
	for k, coefs := range m.AEq {
		if lhs := floats.Dot(coefs, x); math.Abs(lhs-m.BEq[k]) > feasibilityTolerance {
			return fmt.Errorf("numerical difficulty: equality row %d violated (%g != %g)", k, lhs, m.BEq[k])
		}
	}
	for i, b := range m.Bounds {
		if x[i] < b.Lower-feasibilityTolerance || x[i] > b.Upper+feasibilityTolerance {
			return fmt.Errorf("numerical difficulty: %s = %g outside [%g, %g]", m.Columns[i], x[i], b.Lower, b.Upper)
		}
	}
	return nil
}
