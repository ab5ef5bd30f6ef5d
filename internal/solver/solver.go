// Package solver provides the LP backends behind formulation.Solver.
package solver

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iwvelando/feedmix/internal/formulation"
	"github.com/iwvelando/feedmix/pkg/constants"
)

// Factory constructs a backend.
type Factory func() formulation.Solver

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{
		constants.SolverSimplex: func() formulation.Solver { return NewSimplex() },
	}
)

// Register makes a backend available to New. Backends that depend on
// optional system libraries register themselves from init.
func Register(method string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(method)] = factory
}

// New returns the backend registered under method. An empty method selects
// the default backend.
func New(method string) (formulation.Solver, error) {
	key := strings.ToLower(strings.TrimSpace(method))
	if key == "" {
		key = constants.DefaultSolver
	}

	registryMu.RLock()
	factory, ok := registry[key]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown solver method %q (available: %s)", method, strings.Join(Methods(), ", "))
	}
	return factory(), nil
}

// Methods lists the registered backends.
func Methods() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	methods := make([]string, 0, len(registry))
	for method := range registry {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}
