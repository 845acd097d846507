//==============================================================================
// problem_test: Assembly, canonicalization, and solver-boundary tests

package coniclifts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// stubSolver records the system it was handed and replies with a canned
// result.
type stubSolver struct {
	name   string
	result *SolverResult
	err    error
	gotSys *ConicSystem
}

func (s *stubSolver) Name() string { return s.name }

func (s *stubSolver) Solve(sys *ConicSystem) (*SolverResult, error) {
	s.gotSys = sys
	return s.result, s.err
}

//==============================================================================

func TestCompileAffineEquality(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	lhs := x.AsExpr().Scale(2).Add(Constant([]float64{1, -1}))
	con, err := NewElementwiseConstraint(lhs, Constant([]float64{3, 1}), OpEq)
	require.NoError(t, err)

	prob := NewProblem(Minimize, ConstantScalar(0), []Constraint{con})
	sys, err := prob.Compile()
	require.NoError(t, err)

	assert.Equal(t, 2, sys.NumRows)
	assert.Equal(t, 2, sys.NumCols)
	assert.Equal(t, []Cone{{Type: ZeroConeTag, Len: 2}}, sys.K)

	// x* = (1, 1) satisfies the constraint, so A*x* + B must vanish.
	a := sys.DenseA()
	require.NotNil(t, a)
	point := []float64{1, 1}
	for r := 0; r < sys.NumRows; r++ {
		row := sys.B[r]
		for c := 0; c < sys.NumCols; c++ {
			row += a.At(r, c) * point[c]
		}
		assert.Equal(t, 0.0, row, "row %d should vanish at the solution", r)
	}

	// The cached assembly is reused.
	again, err := prob.Compile()
	require.NoError(t, err)
	assert.Same(t, sys, again)
}

func TestCanonicalizationSubstitutesEpigraphs(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	wse, err := WeightedSumExp([]float64{1}, x.AsExpr())
	require.NoError(t, err)
	con, err := NewElementwiseConstraint(wse, ConstantScalar(2), OpLe)
	require.NoError(t, err)
	require.False(t, con.EpigraphChecked)

	prob := NewProblem(Minimize, ConstantScalar(0), []Constraint{con})

	var stats Statistics
	require.NoError(t, prob.GetStatistics(&stats))

	// One exponential-cone epigraph fragment plus the affine residual row.
	assert.Equal(t, 4, stats.NumRows)
	assert.Equal(t, 2, stats.NumCones)
	assert.Equal(t, 3, stats.NumExponentialRows)
	assert.Equal(t, 1, stats.NumNonnegRows)

	// Substitution rewrote the constraint in place.
	assert.True(t, con.EpigraphChecked)
	assert.True(t, con.Expr.IsAffine())
}

func TestCanonicalizationRejectsWrongCurvature(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	wse, err := WeightedSumExp([]float64{1}, x.AsExpr())
	require.NoError(t, err)

	// Maximizing a convex objective is rejected.
	prob := NewProblem(Maximize, wse, nil)
	_, err = prob.Compile()
	require.Error(t, err)

	// A concave left-hand side of "<=" is rejected.
	con, err := NewElementwiseConstraint(wse.Neg(), ConstantScalar(0), OpLe)
	require.NoError(t, err)
	prob = NewProblem(Minimize, ConstantScalar(0), []Constraint{con})
	_, err = prob.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not convex")
}

func TestSolveUnknownSolver(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	prob := NewProblem(Minimize, x.AsExpr(), nil)
	err := prob.Solve("no-such-solver")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not installed")
}

func TestSolveMapsPrimalOntoVariables(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	con, err := NewElementwiseConstraint(ConstantScalar(1), x.AsExpr(), OpLe)
	require.NoError(t, err)

	stub := &stubSolver{
		name: "mapstub",
		result: &SolverResult{
			Status:    StatusSolved,
			X:         []float64{1.5},
			Objective: 1.5,
		},
	}
	require.NoError(t, RegisterSolver(stub))
	defer DeregisterSolver(stub.name)

	prob := NewProblem(Minimize, x.AsExpr(), []Constraint{con})
	require.NoError(t, prob.Solve("mapstub"))

	assert.Equal(t, StatusSolved, prob.Status)
	assert.Equal(t, 1.5, prob.Value)
	assert.Equal(t, []float64{1.5}, x.Value())

	require.NotNil(t, stub.gotSys)
	assert.Equal(t, []float64{1}, stub.gotSys.Cost)
}

func TestSolveReportedFailure(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	stub := &stubSolver{
		name:   "failstub",
		result: &SolverResult{Status: StatusFailed},
	}
	require.NoError(t, RegisterSolver(stub))
	defer DeregisterSolver(stub.name)

	prob := NewProblem(Minimize, x.AsExpr(), nil)
	err := prob.Solve("failstub")
	require.Error(t, err)
	assert.Equal(t, StatusFailed, prob.Status)
}

func TestMaximizeNegatesCost(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	con, err := NewElementwiseConstraint(x.AsExpr(), ConstantScalar(1), OpLe)
	require.NoError(t, err)

	stub := &stubSolver{
		name: "maxstub",
		result: &SolverResult{
			Status: StatusSolved,
			X:      []float64{1},
		},
	}
	require.NoError(t, RegisterSolver(stub))
	defer DeregisterSolver(stub.name)

	prob := NewProblem(Maximize, x.AsExpr(), []Constraint{con})
	require.NoError(t, prob.Solve("maxstub"))

	// The assembled cost is always a minimization vector.
	assert.Equal(t, []float64{-1}, stub.gotSys.Cost)
	assert.Equal(t, 1.0, prob.Value)
}

func TestStatisticsForSageModel(t *testing.T) {
	ResetVariableCounters()

	alpha := mat.NewDense(3, 2, []float64{0, 0, 1, 0, 0, 1})
	c0 := NewVariable(1, "c0")
	c := Hstack(c0.AsExpr(), Constant([]float64{1, 1}))
	con, err := NewPrimalOrdinarySageCone(c, alpha, "stats", nil)
	require.NoError(t, err)

	prob := NewProblem(Minimize, ConstantScalar(0), []Constraint{con})
	var stats Statistics
	require.NoError(t, prob.GetStatistics(&stats))

	// One AGE certificate with a 2-term cover: two exponential cones plus
	// the epigraph-sum row, a 2-row exponent equality, and one sum-to-c row.
	assert.Equal(t, 10, stats.NumRows)
	assert.Equal(t, 5, stats.NumCones)
	assert.Equal(t, 6, stats.NumExponentialRows)
	assert.Equal(t, 2, stats.NumZeroRows)
	assert.Equal(t, 2, stats.NumNonnegRows)

	// Columns: c0, two multipliers, two epigraphs, three decomposition slots.
	assert.Equal(t, 8, stats.NumCols)
}
