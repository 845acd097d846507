//==============================================================================
// problem: Conic-form assembly and solver delegation
// 01   Feb. 11, 2026   Initial version
// 02   Mar.  3, 2026   Statistics split out coordinate counts per cone family

// A Problem gathers an objective and a set of constraints, canonicalizes
// nonlinear convex terms by epigraph substitution, and concatenates every
// compiled fragment into one global system "A*x + b in K" whose columns
// are indexed by scalar-variable id. Solving is delegated to an external
// solver looked up by name; this package ships no solver of its own.

package coniclifts

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Optimization senses.
const (
	Minimize = "min"
	Maximize = "max"
)

// Solve statuses, mirrored from the solver's report.
const (
	StatusSolved     = "solved"
	StatusInaccurate = "inaccurate"
	StatusFailed     = "failed"
)

//==============================================================================
// ASSEMBLED SYSTEMS
//==============================================================================

// ConicSystem is the assembled form of a whole problem: the concatenation
// of every compiled fragment, plus the minimization cost vector derived
// from the objective. Duplicate (row, col) coordinate pairs accumulate
// additively on materialization.
type ConicSystem struct {
	AVals []float64 // coefficient values, parallel to ARows/ACols
	ARows []int     // global row indices
	ACols []int     // column indices: scalar-variable ids
	B     []float64 // dense offset vector
	K     []Cone    // cone blocks covering all rows in order

	Cost      []float64 // minimization cost vector over the column space
	ObjOffset float64   // constant term of the objective

	NumRows int // total rows across fragments
	NumCols int // column-space size at assembly time

	Variables []*Variable // every model and auxiliary variable, deduplicated
}

// DenseA materializes the coefficient matrix as a dense gonum matrix,
// accumulating duplicate coordinates. Intended for small-problem
// diagnostics and tests; returns nil when the system has no rows or no
// columns.
func (sys *ConicSystem) DenseA() *mat.Dense {
	if sys.NumRows == 0 || sys.NumCols == 0 {
		return nil
	}
	a := mat.NewDense(sys.NumRows, sys.NumCols, nil)
	for k := range sys.AVals {
		r, c := sys.ARows[k], sys.ACols[k]
		a.Set(r, c, a.At(r, c)+sys.AVals[k])
	}
	return a
}

//==============================================================================
// STATISTICS
//==============================================================================

// Statistics summarizes an assembled conic system: overall dimensions plus
// coordinate counts broken out per primitive cone family.
type Statistics struct {
	NumRows            int // rows of the assembled system
	NumCols            int // columns (scalar variables allocated)
	NumElements        int // nonzero coordinate entries
	NumCones           int // cone blocks
	NumZeroRows        int // rows covered by zero cones
	NumNonnegRows      int // rows covered by nonnegative-orthant cones
	NumSecondOrderRows int // rows covered by second-order cones
	NumExponentialRows int // rows covered by exponential cones
}

// GetStatistics fills the statistics structure for the problem's assembled
// system, compiling the problem first if that has not happened yet.
// In case compilation fails, function returns an error.
func (p *Problem) GetStatistics(stats *Statistics) error {
	sys, err := p.Compile()
	if err != nil {
		return errors.Wrap(err, "GetStatistics failed to compile")
	}

	stats.NumRows = sys.NumRows
	stats.NumCols = sys.NumCols
	stats.NumElements = len(sys.AVals)
	stats.NumCones = len(sys.K)
	stats.NumZeroRows = 0
	stats.NumNonnegRows = 0
	stats.NumSecondOrderRows = 0
	stats.NumExponentialRows = 0

	for _, cone := range sys.K {
		switch cone.Type {
		case ZeroConeTag:
			stats.NumZeroRows += cone.Len
		case NonnegConeTag:
			stats.NumNonnegRows += cone.Len
		case SecondOrderConeTag:
			stats.NumSecondOrderRows += cone.Len
		case ExponentialConeTag:
			stats.NumExponentialRows += cone.Len
		}
	} // End for all cone blocks

	return nil
}

//==============================================================================
// PROBLEMS
//==============================================================================

// Problem is an optimization problem over coniclifts constraints. The
// symbolic description is immutable after construction except for the
// canonicalization pass run by Compile, which performs epigraph
// substitution in place on elementwise inequality constraints.
type Problem struct {
	Sense       string       // Minimize or Maximize
	Objective   Expression   // size-1 objective expression
	Constraints []Constraint // symbolic constraints

	Status string  // status after the last Solve
	Value  float64 // objective value after the last Solve

	sys *ConicSystem // cached assembly, built once per compilation
}

// NewProblem creates a problem with the given sense, scalar objective, and
// constraints. Compilation is deferred until Compile or Solve.
func NewProblem(sense string, objective Expression, constraints []Constraint) *Problem {
	return &Problem{
		Sense:       sense,
		Objective:   objective.Ravel(),
		Constraints: constraints,
		Status:      "",
		Value:       math.NaN(),
	}
}

// epigraphSubstitute replaces every nonlinear atom of se with that atom's
// epigraph auxiliary variable, returning the epigraph fragments created.
// The caller is responsible for having verified curvature, so that the
// substitution relaxes nothing.
func epigraphSubstitute(se *ScalarExpression) ([]*ConicData, error) {
	var atoms []term
	for _, t := range se.terms {
		if !t.atom.IsVariable() {
			atoms = append(atoms, t)
		}
	}
	var fragments []*ConicData
	for _, t := range atoms {
		var cd *ConicData
		var err error
		switch a := t.atom.(type) {
		case *Exponential:
			cd, err = a.EpigraphConicForm()
		case *Vector2Norm:
			cd, err = a.EpigraphConicForm()
		default:
			err = errors.Errorf("unknown nonlinear atom kind")
		}
		if err != nil {
			return nil, errors.Wrap(err, "epigraph substitution failed")
		}
		se.addTerm(t.atom, -t.coeff) // prunes the atom's term
		se.addTerm(cd.AuxVar, t.coeff)
		fragments = append(fragments, cd)
	}
	return fragments, nil
}

// canonicalize runs epigraph substitution over the objective and every
// elementwise inequality that has not yet been checked, and returns the
// epigraph fragments plus the auxiliary variables they introduced.
// In case a constraint or the objective has the wrong curvature for its
// role, function returns an error.
func (p *Problem) canonicalize() ([]*ConicData, []*Variable, error) {
	var fragments []*ConicData
	var auxVars []*Variable

	if p.Objective.Size() != 1 {
		return nil, nil, errors.Errorf("objective must be scalar, got size %d", p.Objective.Size())
	}
	if p.Sense == Minimize && !p.Objective.IsConvex() {
		return nil, nil, errors.Errorf("cannot canonicalize a nonconvex minimization objective")
	}
	if p.Sense == Maximize && !p.Objective.IsConcave() {
		return nil, nil, errors.Errorf("cannot canonicalize a nonconcave maximization objective")
	}
	frags, err := epigraphSubstitute(p.Objective.At(0))
	if err != nil {
		return nil, nil, errors.Wrap(err, "objective canonicalization failed")
	}
	fragments = append(fragments, frags...)

	for _, con := range p.Constraints {
		ec, ok := con.(*ElementwiseConstraint)
		if !ok || ec.EpigraphChecked {
			continue
		}
		if !ec.Expr.IsConvex() {
			return nil, nil, errors.Errorf("cannot canonicalize constraint %s: not convex", ec.Name())
		}
		for i := 0; i < ec.Expr.Size(); i++ {
			frags, err := epigraphSubstitute(ec.Expr.At(i))
			if err != nil {
				return nil, nil, errors.Wrapf(err, "canonicalization of %s failed", ec.Name())
			}
			fragments = append(fragments, frags...)
		}
		ec.EpigraphChecked = true
	} // End for all constraints

	for _, cd := range fragments {
		if cd.AuxVar != nil && cd.AuxVar.parent != nil {
			auxVars = append(auxVars, cd.AuxVar.parent)
		}
	}
	return fragments, auxVars, nil
}

// Compile canonicalizes the problem and concatenates every fragment into
// one conic system: row indices are offset block by block, cone lists are
// appended in the same order as row blocks, and the column space is sized
// from the current value of the variable-id counter. The assembly is cached
// and reused by later calls.
// In case canonicalization or any fragment emission fails, function
// returns an error.
func (p *Problem) Compile() (*ConicSystem, error) {
	if p.sys != nil {
		return p.sys, nil
	}

	fragments, auxVars, err := p.canonicalize()
	if err != nil {
		return nil, errors.Wrap(err, "Compile failed to canonicalize")
	}
	for _, con := range p.Constraints {
		cds, err := con.ConicForm()
		if err != nil {
			return nil, errors.Wrapf(err, "Compile failed on constraint %s", con.Name())
		}
		fragments = append(fragments, cds...)
	}

	sys := &ConicSystem{}
	for _, cd := range fragments {
		offset := sys.NumRows
		for k := range cd.AVals {
			sys.ARows = append(sys.ARows, cd.ARows[k]+offset)
			sys.ACols = append(sys.ACols, cd.ACols[k])
			sys.AVals = append(sys.AVals, cd.AVals[k])
		}
		sys.B = append(sys.B, cd.B...)
		sys.K = append(sys.K, cd.K...)
		sys.NumRows += cd.NumRows()
	} // End for all fragments
	sys.NumCols = CurrVariableCount()

	// Minimization cost vector from the (now affine) objective.
	sys.Cost = make([]float64, sys.NumCols)
	obj := p.Objective.At(0)
	sign := 1.0
	if p.Sense == Maximize {
		sign = -1
	}
	for _, t := range obj.terms {
		sv, ok := t.atom.(*ScalarVariable)
		if !ok {
			return nil, errors.Errorf("objective is not affine after canonicalization")
		}
		sys.Cost[sv.id] = sign * t.coeff
	}
	sys.ObjOffset = sign * obj.offset

	sys.Variables = p.collectVariables(auxVars)
	p.sys = sys
	return sys, nil
}

// collectVariables gathers the objective's, constraints', and epigraph
// auxiliaries' vector variables, deduplicated and in first-seen order.
func (p *Problem) collectVariables(auxVars []*Variable) []*Variable {
	seen := make(map[*Variable]bool)
	var out []*Variable
	add := func(vs []*Variable) {
		for _, v := range vs {
			if v != nil && !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	add(p.Objective.Variables())
	for _, con := range p.Constraints {
		add(con.Variables())
	}
	add(auxVars)
	return out
}

// Variables returns the problem's variables as of the last compilation,
// compiling first if needed. Errors during compilation yield nil.
func (p *Problem) Variables() []*Variable {
	sys, err := p.Compile()
	if err != nil {
		return nil
	}
	return sys.Variables
}

// Solve compiles the problem, delegates the assembled system to the named
// solver, and maps the returned primal values back onto the model's
// variables. The solver call is synchronous and may be long-running;
// timeouts are the solver's responsibility. The problem's Status and Value
// fields reflect the outcome.
// In case the solver is not installed, the compilation fails, or the solver
// reports failure, function returns an error.
func (p *Problem) Solve(solverName string) error {
	solver, err := lookupSolver(solverName)
	if err != nil {
		return errors.Wrap(err, "Solve failed")
	}
	sys, err := p.Compile()
	if err != nil {
		return errors.Wrap(err, "Solve failed to compile")
	}

	result, err := solver.Solve(sys)
	if err != nil {
		p.Status = StatusFailed
		return errors.Wrapf(err, "solver %s failed", solver.Name())
	}
	p.Status = result.Status

	if len(result.X) > 0 {
		for _, v := range sys.Variables {
			for _, sv := range v.scalars {
				if sv.id < len(result.X) {
					sv.SetValue(result.X[sv.id])
				}
			}
		}
		p.Value = p.Objective.At(0).Value()
	} else {
		sign := 1.0
		if p.Sense == Maximize {
			sign = -1
		}
		p.Value = sign * result.Objective
	}

	if p.Status == StatusFailed {
		return errors.Errorf("solver %s reported failure", solver.Name())
	}
	return nil
}
