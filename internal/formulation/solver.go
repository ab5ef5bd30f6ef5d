package formulation

// Solution is the normalized outcome of one solve. On success Weights holds
// one value per model column; on failure Message carries the backend's
// reason verbatim.
type Solution struct {
	Method    string
	Success   bool
	Columns   []string
	Weights   []float64
	Objective float64
	Message   string
}

// Solver runs an LP backend over a built Model. Implementations must not
// retry or alter the model.
type Solver interface {
	Method() string
	Solve(model *Model) Solution
}

// Failed builds an unsuccessful Solution.
func Failed(method, message string) Solution {
	return Solution{Method: method, Message: message}
}

// Err converts an unsuccessful Solution into a *SolverFailure.
func (s Solution) Err() error {
	if s.Success {
		return nil
	}
	return &SolverFailure{Method: s.Method, Message: s.Message}
}
