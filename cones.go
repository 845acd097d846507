//==============================================================================
// cones: Cone descriptors and conic-form fragments
// 01   Feb. 11, 2026   Initial version
// 02   Mar.  3, 2026   Removed sentinel zero entries; columns now sized from
//                      the variable counter by the assembler

// Every compiled constraint contributes one or more ConicData fragments.
// A fragment asserts "A*x + B in K", where A is scattered from parallel
// coordinate lists, x indexes the global column space by scalar-variable
// id, and K is a product of primitive cones. The assembler in problem.go
// concatenates fragments by offsetting row indices and appending cone
// lists; it sizes the column space from CurrVariableCount, so fragments
// never need placeholder entries for all-constant rows.

package coniclifts

import "github.com/pkg/errors"

//==============================================================================
// CONE DESCRIPTORS
//==============================================================================

// Cone type tags. The vocabulary is fixed; solvers receiving an assembled
// system must interpret exactly these four primitive cones.
const (
	ZeroConeTag        byte = '0' // equality (each coordinate is zero)
	NonnegConeTag      byte = '+' // nonnegative orthant
	SecondOrderConeTag byte = 'S' // ||x[1:]||_2 <= x[0]
	ExponentialConeTag byte = 'e' // 3-dim, e^{x0/x2} <= x1/x2, x2 = 1 here
)

// Cone describes one block of a primitive cone product: a type tag paired
// with the number of coordinates in the block.
type Cone struct {
	Type byte // one of the cone type tags above
	Len  int  // number of coordinates in this block
}

//==============================================================================
// CONIC DATA FRAGMENTS
//==============================================================================

// ConicData is the compiled form of one constraint fragment. Duplicate
// (row, col) pairs in the coordinate lists accumulate additively when the
// matrix is materialized.
type ConicData struct {
	AVals  []float64       // coefficient values, parallel to ARows/ACols
	ARows  []int           // row indices, local to this fragment
	ACols  []int           // column indices: scalar-variable ids
	B      []float64       // dense offset vector, one entry per row
	K      []Cone          // cone blocks covering the rows in order
	AuxVar *ScalarVariable // epigraph auxiliary, nil for most fragments
}

// NumRows returns the number of rows the fragment contributes.
func (cd *ConicData) NumRows() int { return len(cd.B) }

// scatterScalar writes "scale * se" into row r of the fragment: coefficients
// go to the coordinate lists, the offset accumulates into B[r].
// In case the expression holds a non-variable atom, function returns an error.
func (cd *ConicData) scatterScalar(r int, se *ScalarExpression, scale float64) error {
	for _, t := range se.terms {
		if !t.atom.IsVariable() {
			return errors.Errorf("cannot emit row %d: expression is not affine", r)
		}
		sv := t.atom.(*ScalarVariable)
		cd.ARows = append(cd.ARows, r)
		cd.ACols = append(cd.ACols, sv.id)
		cd.AVals = append(cd.AVals, scale*t.coeff)
	}
	cd.B[r] += scale * se.offset
	return nil
}

// vectorConicForm compiles the fragment "expr in K(tag)" for a single cone
// block spanning every entry of expr: tag '+' asserts expr >= 0 entrywise,
// tag '0' asserts expr == 0 entrywise.
// In case any entry is not affine, function returns an error.
func vectorConicForm(expr Expression, tag byte) (*ConicData, error) {
	flat := expr.Ravel()
	m := flat.Size()
	cd := &ConicData{
		B: make([]float64, m),
		K: []Cone{{Type: tag, Len: m}},
	}
	for i := 0; i < m; i++ {
		if err := cd.scatterScalar(i, flat.At(i), 1); err != nil {
			return nil, errors.Wrap(err, "vectorConicForm failed to emit row")
		}
	}
	return cd, nil
}
