//go:build lpsolve

package solver

import (
	"fmt"
	"math"

	"github.com/costela/golpa"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/pkg/constants"
)

func init() {
	Register(constants.SolverLPSolve, func() formulation.Solver { return NewLPSolve() })
}

// LPSolve solves models with lp_solve 5.5 through cgo. Build with
// -tags lpsolve and liblpsolve55 installed.
type LPSolve struct{}

// NewLPSolve returns the lp_solve backend.
func NewLPSolve() *LPSolve {
	return &LPSolve{}
}

// Method implements formulation.Solver.
func (s *LPSolve) Method() string {
	return constants.SolverLPSolve
}

// Solve implements formulation.Solver. Failures carry golpa's SolveError text.
func (s *LPSolve) Solve(m *formulation.Model) formulation.Solution {
	if err := m.Validate(); err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	model, err := golpa.NewModel("feedmix", golpa.Minimize)
	if err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	vars := make([]*golpa.Variable, m.Size())
	for i, name := range m.Columns {
		b := m.Bounds[i]
		v, err := model.AddDefinedVariable(name, golpa.ContinuousVariable, m.C[i], b.Lower, b.Upper)
		if err != nil {
			return formulation.Failed(s.Method(), fmt.Sprintf("adding column %s: %v", name, err))
		}
		vars[i] = v
	}

	for k, coefs := range m.AUb {
		if err := model.AddConstraint(math.Inf(-1), m.BUb[k], vars, coefs); err != nil {
			return formulation.Failed(s.Method(), fmt.Sprintf("adding inequality row %d: %v", k, err))
		}
	}
	for k, coefs := range m.AEq {
		if err := model.AddConstraint(m.BEq[k], m.BEq[k], vars, coefs); err != nil {
			return formulation.Failed(s.Method(), fmt.Sprintf("adding equality row %d: %v", k, err))
		}
	}

	res, err := model.Solve()
	if err != nil {
		return formulation.Failed(s.Method(), err.Error())
	}

	x := make([]float64, len(vars))
	for i, v := range vars {
		x[i] = res.Value(v)
	}

	return formulation.Solution{
		Method:    s.Method(),
		Success:   true,
		Columns:   append([]string(nil), m.Columns...),
		Weights:   x,
		Objective: res.ObjectiveValue(),
	}
}
