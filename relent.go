//==============================================================================
// relent: Precompiled relative-entropy fragment
// 01   Feb. 11, 2026   Initial version

// The relative-entropy cone is not primitive; it is assembled here from
// exponential cones. The identity used throughout is
//
//	x*log(x/y) <= t   <=>   (-t, y, x) in K_exp,
//
// which follows from the exponential-cone standard e^{u0/u2} <= u1/u2
// with u0 = -t, u1 = y, u2 = x.

package coniclifts

import "github.com/pkg/errors"

// SumRelEnt compiles the constraint
//
//	sum_j x[j]*log(x[j]/y[j]) <= z
//
// into one fragment: an exponential-cone triple per element, bounding each
// summand by the epigraph variable epi[j], plus a single nonnegative-orthant
// row asserting z - sum(epi) >= 0. The epi variable is supplied by the
// caller so that it can be reported among the constraint's variables.
// In case of size mismatches or non-affine inputs, function returns an error.
func SumRelEnt(x *Variable, y Expression, z *ScalarExpression, epi *Variable) (*ConicData, error) {
	yFlat := y.Ravel()
	n := x.Len()
	if yFlat.Size() != n || epi.Len() != n {
		return nil, errors.Errorf("SumRelEnt size mismatch: x=%d y=%d epi=%d",
			n, yFlat.Size(), epi.Len())
	}
	if !z.IsAffine() {
		return nil, errors.Errorf("SumRelEnt requires an affine bound")
	}

	cd := &ConicData{B: make([]float64, 3*n+1)}

	for j := 0; j < n; j++ {
		r := 3 * j

		// First coordinate: -epi[j].
		cd.ARows = append(cd.ARows, r)
		cd.ACols = append(cd.ACols, epi.scalars[j].id)
		cd.AVals = append(cd.AVals, -1)

		// Second coordinate: y[j].
		if err := cd.scatterScalar(r+1, yFlat.At(j), 1); err != nil {
			return nil, errors.Wrapf(err, "SumRelEnt failed on element %d", j)
		}

		// Third coordinate: x[j].
		cd.ARows = append(cd.ARows, r+2)
		cd.ACols = append(cd.ACols, x.scalars[j].id)
		cd.AVals = append(cd.AVals, 1)

		cd.K = append(cd.K, Cone{Type: ExponentialConeTag, Len: 3})
	}

	// Final row: z - sum(epi) >= 0.
	last := 3 * n
	if err := cd.scatterScalar(last, z, 1); err != nil {
		return nil, errors.Wrap(err, "SumRelEnt failed on bound row")
	}
	for j := 0; j < n; j++ {
		cd.ARows = append(cd.ARows, last)
		cd.ACols = append(cd.ACols, epi.scalars[j].id)
		cd.AVals = append(cd.AVals, -1)
	}
	cd.K = append(cd.K, Cone{Type: NonnegConeTag, Len: 1})

	return cd, nil
}
