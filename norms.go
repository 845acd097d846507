//==============================================================================
// norms: Euclidean norm epigraph atom
// 01   Feb. 11, 2026   Initial version

package coniclifts

import (
	"fmt"

	"github.com/pkg/errors"
)

// Vector2Norm represents the epigraph of the Euclidean norm of a vector of
// affine scalar arguments. The atom has no direct evaluation; after a solve,
// callers read the epigraph variable's value instead.
type Vector2Norm struct {
	id     int                 // instance counter, per atom type
	args   []*ScalarExpression // affine arguments
	auxVar *ScalarVariable     // epigraph variable, nil until first lift
}

// NewVector2Norm creates the atom for the epigraph of ||x||_2 over the
// raveled entries of x.
// In case any entry is not affine, function returns an error.
func NewVector2Norm(x Expression) (*Vector2Norm, error) {
	flat := x.Ravel()
	args := make([]*ScalarExpression, flat.Size())
	for i := 0; i < flat.Size(); i++ {
		se := flat.At(i)
		if !se.IsAffine() {
			return nil, errors.Errorf("Vector2Norm requires affine arguments, entry %d is not", i)
		}
		args[i] = se.Clone()
	}
	a := &Vector2Norm{id: vector2NormCount, args: args}
	vector2NormCount++
	return a, nil
}

func (a *Vector2Norm) key() atomKey        { return atomKey{kindVector2Norm, a.id} }
func (a *Vector2Norm) IsVariable() bool    { return false }
func (a *Vector2Norm) IsConvexAtom() bool  { return true }
func (a *Vector2Norm) IsConcaveAtom() bool { return false }

// ScalarVariables returns the unknowns appearing in the atom's arguments,
// deduplicated by id and in first-seen order.
func (a *Vector2Norm) ScalarVariables() []*ScalarVariable {
	seen := make(map[int]bool)
	var out []*ScalarVariable
	for _, arg := range a.args {
		for _, sv := range arg.Variables() {
			if !seen[sv.id] {
				seen[sv.id] = true
				out = append(out, sv)
			}
		}
	}
	return out
}

// EpigraphConicForm lifts the atom into the second-order-cone fragment
// "(aux, x) in K_soc" of length len(x)+1, which encodes ||x||_2 <= aux.
// The auxiliary variable is created on the first call and reused afterwards.
// In case emission fails, function returns an error.
func (a *Vector2Norm) EpigraphConicForm() (*ConicData, error) {
	if a.auxVar == nil {
		v := NewVariable(1, fmt.Sprintf("_vec2norm_epi_[%d]_", a.id))
		a.auxVar = v.scalars[0]
	}
	m := len(a.args) + 1
	cd := &ConicData{
		B:      make([]float64, m),
		K:      []Cone{{Type: SecondOrderConeTag, Len: m}},
		AuxVar: a.auxVar,
	}

	// First coordinate: the norm bound.
	cd.ARows = append(cd.ARows, 0)
	cd.ACols = append(cd.ACols, a.auxVar.id)
	cd.AVals = append(cd.AVals, 1)

	// Remaining coordinates: the affine arguments.
	for i, arg := range a.args {
		if err := cd.scatterScalar(i+1, arg, 1); err != nil {
			return nil, errors.Wrap(err, "Vector2Norm epigraph failed")
		}
	}
	return cd, nil
}
