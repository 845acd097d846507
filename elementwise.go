//==============================================================================
// elementwise: Compiler for elementwise (in)equality constraints
// 01   Feb. 11, 2026   Initial version
// 02   Mar.  3, 2026   Dropped sentinel zero entries for constant rows

package coniclifts

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Operator tokens accepted by NewElementwiseConstraint.
const (
	OpEq = "=="
	OpLe = "<="
	OpGe = ">="
)

// ElementwiseConstraint relates two expressions entrywise by one of the
// operators "==", "<=", ">=". The constructor canonicalizes the operator
// direction so the internal representation is always "expr == 0" or
// "expr <= 0"; for ">=", the stored expression is rhs - lhs.
//
// Equalities are compiled directly. Inequalities may hold nonlinear convex
// terms and must pass through epigraph substitution (see problem.go) before
// ConicForm may be called; the EpigraphChecked flag records whether that
// pass has run.
type ElementwiseConstraint struct {
	id              int
	name            string
	Lhs             Expression
	Rhs             Expression
	initialOperator string     // operator as given at construction
	Operator        string     // canonical operator, "==" or "<="
	Expr            Expression // canonical raveled expression
	EpigraphChecked bool
}

// NewElementwiseConstraint builds the canonical form of "lhs operator rhs".
// In case the operator token is not one of "==", "<=", ">=", function
// returns an error.
func NewElementwiseConstraint(lhs, rhs Expression, operator string) (*ElementwiseConstraint, error) {
	c := &ElementwiseConstraint{
		id:              elementwiseConstraintCount,
		Lhs:             lhs,
		Rhs:             rhs,
		initialOperator: operator,
	}
	elementwiseConstraintCount++
	c.name = fmt.Sprintf("Elementwise[%d]", c.id)

	switch operator {
	case OpEq:
		c.Expr = lhs.Sub(rhs).Ravel()
		c.Operator = OpEq
		c.EpigraphChecked = true
	case OpGe:
		c.Expr = rhs.Sub(lhs).Ravel()
		c.Operator = OpLe
	case OpLe:
		c.Expr = lhs.Sub(rhs).Ravel()
		c.Operator = OpLe
	default:
		return nil, errors.Errorf("unsupported elementwise operator %q", operator)
	}
	return c, nil
}

// Name returns the constraint's diagnostic name.
func (c *ElementwiseConstraint) Name() string { return c.name }

// Variables returns the vector Variables appearing in the canonical
// expression.
func (c *ElementwiseConstraint) Variables() []*Variable {
	return c.Expr.Variables()
}

// IsAffine reports whether the constraint compiles without epigraph
// substitution. Equalities are affine by construction (the curvature check
// happens in the front end); inequalities are affine iff their canonical
// expression holds no nonlinear atoms.
func (c *ElementwiseConstraint) IsAffine() bool {
	if c.Operator == OpEq {
		return true
	}
	return c.Expr.IsAffine()
}

func (c *ElementwiseConstraint) IsElementwise() bool   { return true }
func (c *ElementwiseConstraint) IsSetMembership() bool { return false }

// ConicForm compiles the canonical constraint into a single fragment whose
// cone is the zero cone for "==" and the nonnegative orthant for "<=".
//
// Signs on coefficients and offsets are inverted on emission: flipping signs
// does not affect the zero cone, and it converts "expr <= 0" into
// "-expr >= 0", matching the orthant's convention. Rows with no variable
// atoms contribute offset entries only; the assembler sizes the column
// space from the variable counter, so no placeholder coefficient is needed.
//
// In case epigraph substitution has not yet confirmed the expression is
// affine, function returns an error: that is a caller-protocol violation,
// not a data problem.
func (c *ElementwiseConstraint) ConicForm() ([]*ConicData, error) {
	if !c.EpigraphChecked {
		return nil, errors.Errorf("%s: cannot compile before epigraph substitution", c.name)
	}
	m := c.Expr.Size()
	tag := ZeroConeTag
	if c.Operator == OpLe {
		tag = NonnegConeTag
	}
	cd := &ConicData{
		B: make([]float64, m),
		K: []Cone{{Type: tag, Len: m}},
	}
	for i := 0; i < m; i++ {
		if err := cd.scatterScalar(i, c.Expr.At(i), -1); err != nil {
			return nil, errors.Wrapf(err, "%s failed to emit row", c.name)
		}
	}
	return []*ConicData{cd}, nil
}

// Violation computes the primal residual of the constraint at the current
// variable values, independently of any solver, and reduces it to a scalar
// with the supplied norm. A nil norm selects the default reduction:
// absolute value for a length-1 residual, Euclidean norm otherwise.
// The residual is max(0, lhs-rhs) for "<=", min(0, lhs-rhs) for ">=", and
// |lhs-rhs| for "==". Exactly satisfied constraints report zero.
func (c *ElementwiseConstraint) Violation(norm func([]float64) float64) float64 {
	if norm == nil {
		norm = defaultResidualNorm
	}
	vals := c.Lhs.Sub(c.Rhs).Ravel().Value()
	residual := make([]float64, len(vals))
	for i, v := range vals {
		switch c.initialOperator {
		case OpLe:
			residual[i] = math.Max(0, v)
		case OpGe:
			residual[i] = math.Min(0, v)
		default:
			residual[i] = math.Abs(v)
		}
	}
	return norm(residual)
}

// defaultResidualNorm reduces a residual vector to a magnitude: absolute
// value when the residual has one entry, Euclidean norm otherwise.
func defaultResidualNorm(r []float64) float64 {
	if len(r) == 1 {
		return math.Abs(r[0])
	}
	return floats.Norm(r, 2)
}
