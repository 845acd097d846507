//==============================================================================
// elementwise_test: Constraint compiler tests

package coniclifts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestElementwiseOperatorValidation(t *testing.T) {
	ResetVariableCounters()
	x := NewVariable(1, "x")

	tests := []struct {
		operator  string
		wantErr   bool
		canonical string
	}{
		{operator: "==", canonical: OpEq},
		{operator: "<=", canonical: OpLe},
		{operator: ">=", canonical: OpLe},
		{operator: "<", wantErr: true},
		{operator: "!=", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.operator, func(t *testing.T) {
			con, err := NewElementwiseConstraint(x.AsExpr(), ConstantScalar(0), tc.operator)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.canonical, con.Operator)
		})
	}
}

func TestGreaterEqualNormalization(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	bound := Constant([]float64{1, 2})

	// "x >= bound" and "bound <= x" must compile to identical fragments.
	geCon, err := NewElementwiseConstraint(x.AsExpr(), bound, OpGe)
	require.NoError(t, err)
	leCon, err := NewElementwiseConstraint(bound, x.AsExpr(), OpLe)
	require.NoError(t, err)

	geCon.EpigraphChecked = true
	leCon.EpigraphChecked = true
	geCd, err := geCon.ConicForm()
	require.NoError(t, err)
	leCd, err := leCon.ConicForm()
	require.NoError(t, err)

	require.Len(t, geCd, 1)
	require.Len(t, leCd, 1)
	assert.Equal(t, leCd[0].AVals, geCd[0].AVals)
	assert.Equal(t, leCd[0].ARows, geCd[0].ARows)
	assert.Equal(t, leCd[0].ACols, geCd[0].ACols)
	assert.Equal(t, leCd[0].B, geCd[0].B)
	assert.Equal(t, []Cone{{Type: NonnegConeTag, Len: 2}}, geCd[0].K)
}

func TestEqualityCompilesToZeroCone(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	expr := x.AsExpr().Scale(2).Add(Constant([]float64{1, -1}))
	z := Constant([]float64{3, 1})

	con, err := NewElementwiseConstraint(expr, z, OpEq)
	require.NoError(t, err)
	assert.True(t, con.EpigraphChecked)
	assert.True(t, con.IsAffine())

	cds, err := con.ConicForm()
	require.NoError(t, err)
	require.Len(t, cds, 1)
	cd := cds[0]
	assert.Equal(t, []Cone{{Type: ZeroConeTag, Len: 2}}, cd.K)

	// At x* = (1, 1) the expression equals z, so scattered rows must be
	// exactly zero: A*x + b == 0 under the emission sign convention.
	require.NoError(t, x.SetValue([]float64{1, 1}))
	rows := make([]float64, len(cd.B))
	copy(rows, cd.B)
	svs := x.ScalarVariables()
	for k := range cd.AVals {
		for _, sv := range svs {
			if sv.ID() == cd.ACols[k] {
				rows[cd.ARows[k]] += cd.AVals[k] * sv.Value()
			}
		}
	}
	assert.Equal(t, []float64{0, 0}, rows)
}

func TestPrematureCompilationFails(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")
	wse, err := WeightedSumExp([]float64{1}, x.AsExpr())
	require.NoError(t, err)

	con, err := NewElementwiseConstraint(wse, ConstantScalar(2), OpLe)
	require.NoError(t, err)
	assert.False(t, con.EpigraphChecked)
	assert.False(t, con.IsAffine())

	_, err = con.ConicForm()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "epigraph")
}

func TestViolation(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(1, "x")

	tests := []struct {
		name     string
		operator string
		value    float64
		want     float64
	}{
		{name: "le satisfied", operator: OpLe, value: -0.5, want: 0},
		{name: "le boundary", operator: OpLe, value: 0, want: 0},
		{name: "le violated by one", operator: OpLe, value: 1, want: 1},
		{name: "ge violated", operator: OpGe, value: -2, want: 2},
		{name: "eq violated", operator: OpEq, value: 0.25, want: 0.25},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			con, err := NewElementwiseConstraint(x.AsExpr(), ConstantScalar(0), tc.operator)
			require.NoError(t, err)
			require.NoError(t, x.SetValue([]float64{tc.value}))
			assert.InDelta(t, tc.want, con.Violation(nil), 1e-12)
		})
	}
}

func TestViolationCustomNorm(t *testing.T) {
	ResetVariableCounters()

	x := NewVariable(2, "x")
	con, err := NewElementwiseConstraint(x.AsExpr(), Constant([]float64{0, 0}), OpLe)
	require.NoError(t, err)
	require.NoError(t, x.SetValue([]float64{3, 4}))

	// Default reduction is the Euclidean norm for vector residuals.
	assert.InDelta(t, 5.0, con.Violation(nil), 1e-12)

	sumNorm := func(r []float64) float64 {
		total := 0.0
		for _, v := range r {
			total += v
		}
		return total
	}
	assert.InDelta(t, 7.0, con.Violation(sumNorm), 1e-12)
}

func TestConstantRowEmitsOffsetOnly(t *testing.T) {
	ResetVariableCounters()

	con, err := NewElementwiseConstraint(ConstantScalar(3), ConstantScalar(3), OpEq)
	require.NoError(t, err)
	cds, err := con.ConicForm()
	require.NoError(t, err)

	cd := cds[0]
	assert.Empty(t, cd.AVals)
	assert.Equal(t, []float64{0}, cd.B)
	assert.Equal(t, []Cone{{Type: ZeroConeTag, Len: 1}}, cd.K)
}
