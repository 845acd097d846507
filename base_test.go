//==============================================================================
// base_test: Scalar and vector algebra tests

package coniclifts

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVariableIDsAreContiguous(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(3, "x")
	y := NewVariable(2, "y")

	for i, sv := range x.ScalarVariables() {
		assert.Equal(t, i, sv.ID())
	}
	for i, sv := range y.ScalarVariables() {
		assert.Equal(t, 3+i, sv.ID())
	}
	assert.Equal(t, 5, CurrVariableCount())
}

func TestScalarExpressionMergesAndPrunes(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	sv := x.ScalarVariables()[0]

	se := scalarFromAtom(sv, 2)
	se.addTerm(sv, 3)
	require.Equal(t, 1, se.NumTerms())
	assert.Equal(t, 5.0, se.Coeff(sv))

	// Cancelling the coefficient must remove the term entirely.
	se.addTerm(sv, -5)
	assert.Equal(t, 0, se.NumTerms())
	assert.True(t, se.IsConstant())

	// Adding an explicit zero must not create a term.
	se.addTerm(sv, 0)
	assert.Equal(t, 0, se.NumTerms())
}

func TestExpressionArithmetic(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	e := x.AsExpr()

	diff := e.Sub(e)
	require.Equal(t, 2, diff.Size())
	for i := 0; i < diff.Size(); i++ {
		assert.True(t, diff.At(i).IsConstant(), "entry %d should have no atoms", i)
		assert.Equal(t, 0.0, diff.At(i).Offset())
	}

	combo := e.Scale(2).Add(Constant([]float64{1, -1}))
	require.NoError(t, x.SetValue([]float64{3, 4}))
	assert.Equal(t, []float64{7, 7}, combo.Value())

	total := combo.Sum()
	require.Equal(t, 1, total.Size())
	assert.Equal(t, 14.0, total.Value()[0])
}

func TestExpressionBroadcast(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(3, "x")
	e := x.AsExpr().Sub(ConstantScalar(1))
	require.Equal(t, 3, e.Size())
	require.NoError(t, x.SetValue([]float64{1, 2, 3}))
	assert.Equal(t, []float64{0, 1, 2}, e.Value())
}

func TestExpressionReshape(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(6, "x")
	e := x.AsExpr()

	r, err := e.Reshape(2, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, r.Shape())
	assert.Equal(t, []int{6}, r.Ravel().Shape())

	_, err = e.Reshape(4, 2)
	assert.Error(t, err)
}

func TestVariablesDeduplicated(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	e := x.AsExpr().Add(x.AsExpr())

	vars := e.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, "x", vars[0].Name())

	svs := e.At(0).Variables()
	require.Len(t, svs, 1)
	assert.Equal(t, 0, svs[0].ID())
}

func TestCurvatureQueries(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	affine := x.AsExpr()
	assert.True(t, affine.IsAffine())
	assert.True(t, affine.IsConvex())
	assert.True(t, affine.IsConcave())

	wse, err := WeightedSumExp([]float64{1}, x.AsExpr())
	require.NoError(t, err)
	assert.False(t, wse.IsAffine())
	assert.True(t, wse.IsConvex())
	assert.False(t, wse.IsConcave())

	neg := wse.Neg()
	assert.False(t, neg.IsConvex())
	assert.True(t, neg.IsConcave())
}

func TestUnsetVariableValueIsNaN(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	assert.True(t, math.IsNaN(x.AsExpr().Value()[0]))
}
