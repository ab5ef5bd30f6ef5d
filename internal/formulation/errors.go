package formulation

import (
	"errors"
	"fmt"
)

// InvalidModelError reports malformed input: an empty ingredient set,
// negative values or bounds that make the model infeasible by construction.
// It is never retried.
type InvalidModelError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *InvalidModelError) Error() string {
	return "invalid model: " + e.Reason
}

func invalidf(field string, value interface{}, format string, args ...interface{}) *InvalidModelError {
	return &InvalidModelError{Field: field, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// InfeasibleTargetError reports a nutrient minimum that no blend of the
// selected ingredients can reach.
type InfeasibleTargetError struct {
	Nutrient   string
	Required   float64
	Achievable float64
	// Best is the ingredient holding the highest value of the nutrient.
	Best string
}

func (e *InfeasibleTargetError) Error() string {
	return fmt.Sprintf("%s requirement %.2f%% exceeds the maximum %.2f%% achievable with the selected ingredients",
		e.Nutrient, e.Required, e.Achievable)
}

// SolverFailure carries the solver's own message for a non-successful solve.
type SolverFailure struct {
	Method  string
	Message string
}

func (e *SolverFailure) Error() string {
	return fmt.Sprintf("optimization failed (%s): %s", e.Method, e.Message)
}

// MismatchedLengthError signals that a solution does not line up with the
// ingredients it is interpreted against. It indicates a programming error.
type MismatchedLengthError struct {
	Weights     int
	Ingredients int
	Column      string
	Ingredient  string
}

func (e *MismatchedLengthError) Error() string {
	if e.Column != "" || e.Ingredient != "" {
		return fmt.Sprintf("solution column %q does not match ingredient %q", e.Column, e.Ingredient)
	}
	return fmt.Sprintf("solution has %d weights for %d ingredients", e.Weights, e.Ingredients)
}

// IsRecoverable reports whether the caller may retry the pipeline with a
// different ingredient set, targets or bounds.
func IsRecoverable(err error) bool {
	var infeasible *InfeasibleTargetError
	var failure *SolverFailure
	return errors.As(err, &infeasible) || errors.As(err, &failure)
}
