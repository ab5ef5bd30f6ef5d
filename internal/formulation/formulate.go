package formulation

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Request is the input of one formulation run.
type Request struct {
	Ingredients []Ingredient
	Targets     NutrientTargets
	Bounds      BoundsPolicy
}

// Formulator runs the check, build, solve and interpret stages in order.
// It holds no per-run state and may be shared between goroutines as long as
// the Solver may be.
type Formulator struct {
	logger *zap.Logger
	solver Solver
}

// NewFormulator constructs a Formulator around the given solver backend.
func NewFormulator(logger *zap.Logger, solver Solver) (*Formulator, error) {
	if solver == nil {
		return nil, fmt.Errorf("solver cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Formulator{logger: logger, solver: solver}, nil
}

// Method names the solver backend in use.
func (f *Formulator) Method() string {
	return f.solver.Method()
}

// Formulate runs the whole pipeline. The interpreter is only reached when the
// solver reports success; a failed solve surfaces as *SolverFailure.
func (f *Formulator) Formulate(req Request) (*Result, error) {
	report, err := Check(req.Ingredients, req.Targets)
	if err != nil {
		f.logger.Info("nutrient targets unreachable",
			zap.String("op", "formulation.Formulate"),
			zap.Int("ingredients", len(req.Ingredients)),
			zap.Float64("maxCP", report.MaxCP),
			zap.Float64("maxTDN", report.MaxTDN),
			zap.Error(err),
		)
		return nil, err
	}

	model, err := Build(req.Ingredients, req.Targets, req.Bounds)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("solving formulation model",
		zap.String("op", "formulation.Formulate"),
		zap.String("method", f.solver.Method()),
		zap.Strings("columns", model.Columns),
		zap.Stringer("bounds", req.Bounds),
	)

	start := time.Now()
	solution := f.solver.Solve(model)
	elapsed := time.Since(start)

	if err := solution.Err(); err != nil {
		f.logger.Warn("solver did not find a formulation",
			zap.String("op", "formulation.Formulate"),
			zap.String("method", solution.Method),
			zap.String("reason", solution.Message),
			zap.Duration("duration", elapsed),
		)
		return nil, err
	}

	result, err := Interpret(req.Ingredients, solution)
	if err != nil {
		return nil, err
	}

	f.logger.Debug("formulation solved",
		zap.String("op", "formulation.Formulate"),
		zap.String("method", solution.Method),
		zap.Float64("totalCost", result.TotalCost),
		zap.Float64("totalWeightKg", result.TotalWeightKg),
		zap.Duration("duration", elapsed),
	)

	return result, nil
}
