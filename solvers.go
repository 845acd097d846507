//==============================================================================
// solvers: External solver boundary
// 01   Feb. 11, 2026   Initial version

// Package coniclifts implements no interior-point or first-order method of
// its own. Solvers are external collaborators: anything that can accept an
// assembled system "A*x + b in K" with a linear minimization cost and
// report a status, a primal point, and an objective value can be
// registered here and selected by name.

package coniclifts

import (
	"sort"

	"github.com/pkg/errors"
)

// SolverResult is the report an external solver hands back for one
// assembled system.
type SolverResult struct {
	Status    string    // one of the solve statuses in problem.go
	X         []float64 // primal point over the column space, may be empty
	Objective float64   // optimal value of the minimization problem
}

// Solver is the capability an external conic solver must provide.
type Solver interface {
	// Name identifies the solver in the registry and in diagnostics.
	Name() string

	// Solve processes one assembled system. The call is synchronous and
	// may be long-running; cancellation and timeouts are the solver's
	// responsibility.
	Solve(sys *ConicSystem) (*SolverResult, error)
}

var solverRegistry = make(map[string]Solver)

// RegisterSolver makes a solver selectable by its name. Registering a
// second solver under the same name replaces the first.
// In case the solver reports an empty name, function returns an error.
func RegisterSolver(s Solver) error {
	if s == nil || s.Name() == "" {
		return errors.Errorf("cannot register a solver without a name")
	}
	solverRegistry[s.Name()] = s
	return nil
}

// DeregisterSolver removes a solver from the registry. Removing a name
// that is not registered is a no-op.
func DeregisterSolver(name string) {
	delete(solverRegistry, name)
}

// InstalledSolvers returns the registered solver names in sorted order.
func InstalledSolvers() []string {
	names := make([]string, 0, len(solverRegistry))
	for name := range solverRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookupSolver resolves a solver name against the registry.
// In case the name is not registered, function returns an error.
func lookupSolver(name string) (Solver, error) {
	s, ok := solverRegistry[name]
	if !ok {
		return nil, errors.Errorf("solver %q is not installed (installed: %v)",
			name, InstalledSolvers())
	}
	return s, nil
}
