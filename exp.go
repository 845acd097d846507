//==============================================================================
// exp: Exponential epigraph atom
// 01   Feb. 11, 2026   Initial version

// This file defines the Exponential atom, representing the epigraph of
// e^x for an affine scalar argument x, and the WeightedSumExp helper for
// building nonnegative combinations of exponentials.

package coniclifts

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
)

//==============================================================================
// EXPONENTIAL ATOM
//==============================================================================

// Exponential represents the epigraph of "e^x" for an affine scalar
// argument x. The atom owns a lazily created auxiliary variable holding its
// epigraph value; the auxiliary is cached so that repeated conic-form
// requests refer to the same column.
type Exponential struct {
	id     int               // instance counter, per atom type
	arg    *ScalarExpression // affine argument x
	auxVar *ScalarVariable   // epigraph variable, nil until first lift
}

// NewExponential creates the atom for the epigraph of e^x.
// In case the argument is not affine, function returns an error.
func NewExponential(x *ScalarExpression) (*Exponential, error) {
	if !x.IsAffine() {
		return nil, errors.Errorf("Exponential requires an affine argument")
	}
	a := &Exponential{id: exponentialCount, arg: x.Clone()}
	exponentialCount++
	return a, nil
}

// Arg returns the affine argument of the atom.
func (a *Exponential) Arg() *ScalarExpression { return a.arg }

func (a *Exponential) key() atomKey        { return atomKey{kindExponential, a.id} }
func (a *Exponential) IsVariable() bool    { return false }
func (a *Exponential) IsConvexAtom() bool  { return true }
func (a *Exponential) IsConcaveAtom() bool { return false }

// ScalarVariables returns the unknowns appearing in the atom's argument.
func (a *Exponential) ScalarVariables() []*ScalarVariable {
	return a.arg.Variables()
}

// EpigraphConicForm lifts the atom into the exponential-cone fragment
// "(x, aux, 1) in K_exp", which encodes e^x <= aux. The auxiliary variable
// is created on the first call and reused afterwards, so the lifted
// representation is idempotent.
// In case emission fails, function returns an error.
func (a *Exponential) EpigraphConicForm() (*ConicData, error) {
	if a.auxVar == nil {
		v := NewVariable(1, fmt.Sprintf("_exp_epi_[%d]_", a.id))
		a.auxVar = v.scalars[0]
	}
	cd := &ConicData{
		B:      make([]float64, 3),
		K:      []Cone{{Type: ExponentialConeTag, Len: 3}},
		AuxVar: a.auxVar,
	}

	// First coordinate: the affine argument x.
	if err := cd.scatterScalar(0, a.arg, 1); err != nil {
		return nil, errors.Wrap(err, "Exponential epigraph failed")
	}

	// Second coordinate: the epigraph variable.
	cd.ARows = append(cd.ARows, 1)
	cd.ACols = append(cd.ACols, a.auxVar.id)
	cd.AVals = append(cd.AVals, 1)

	// Third coordinate: the constant one (perspective normalization).
	cd.B[2] = 1

	return cd, nil
}

// Value evaluates e^x at the current variable values, independently of any
// solver. NaN propagates from unset variables.
func (a *Exponential) Value() float64 {
	return math.Exp(a.arg.Value())
}

//==============================================================================
// WEIGHTED SUMS OF EXPONENTIALS
//==============================================================================

// WeightedSumExp returns the size-1 expression

//	sum( c[i] * e^{x[i]} )

// over the raveled entries of x. Zero weights contribute no atom.
// The weights must be nonnegative: the epigraph of a signomial with
// negative terms is not convex and cannot be lifted here.
// In case of negative weights or a size mismatch, function returns an error.
func WeightedSumExp(c []float64, x Expression) (Expression, error) {
	flat := x.Ravel()
	if len(c) != flat.Size() {
		return Expression{}, errors.Errorf("WeightedSumExp got %d weights for %d arguments",
			len(c), flat.Size())
	}
	se := newScalarExpression()
	for i, ci := range c {
		if ci < 0 {
			return Expression{}, errors.Errorf("WeightedSumExp requires nonnegative weights, got %v", ci)
		}
		if ci == 0 {
			continue
		}
		atom, err := NewExponential(flat.At(i))
		if err != nil {
			return Expression{}, errors.Wrapf(err, "WeightedSumExp failed on argument %d", i)
		}
		se.addTerm(atom, ci)
	}
	return wrapScalars([]*ScalarExpression{se}), nil
}
