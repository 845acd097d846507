//==============================================================================
// sage: Primal ordinary SAGE cone membership
// 01   Feb. 11, 2026   Initial version
// 02   Mar.  3, 2026   Presolve cover refinement made unconditional

// This file implements the constraint "c in C_SAGE(alpha)": the vector c
// is certified to lie in the SAGE cone induced by the exponent matrix
// alpha by decomposing it into per-term AGE vectors, each verifiable with
// one relative-entropy inequality and one linear equality. The presolve
// helper ExpCoverHelper bounds the size of each certificate; without it,
// every AGE cone would carry auxiliary variables sized to the full
// exponent matrix.

package coniclifts

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//==============================================================================
// PRESOLVE: EXPONENT COVERS
//==============================================================================

// ExpCoverHelper is the presolve result for one SAGE constraint. For each
// term index i needing its own AGE certificate, Expcovers[i] selects which
// of the m terms participate in that certificate.
//
// Index sets:
//   - UI holds the indices that need their own AGE cone: coordinates of c
//     that are non-constant, plus fixed negative constants.
//   - NI holds the structurally trivial coordinates: entries of c that are
//     fixed constants. A fixed nonnegative constant needs no certificate at
//     all; a fixed negative constant appears in both UI and NI, and its AGE
//     vector is pinned to the constant rather than to a fresh variable.
//
// Construction is deterministic: identical (alpha, c, covers) inputs always
// produce identical Expcovers.
type ExpCoverHelper struct {
	Alpha     *mat.Dense     // exponent matrix, one row per term
	C         Expression     // coefficient vector under the SAGE constraint
	M         int            // number of terms (rows of Alpha)
	N         int            // number of variables (columns of Alpha)
	Expcovers map[int][]bool // cover selector per index in UI
	UI        []int          // indices needing their own AGE cone, ascending
	NI        []int          // fixed-constant indices, ascending
	isNI      []bool         // membership mask for NI
	negConst  []bool         // fixed negative constant coordinates
}

// NewExpCoverHelper classifies the coordinates of c and builds the per-term
// covers. When covers is nil, a default cover is constructed for every index
// in UI and then shrunk by a sign-agreement heuristic on the exponent
// matrix; when covers is provided, it is validated and used as given
// (except that an index never covers itself).
// In case of dimension mismatches or malformed covers, function returns
// an error.
func NewExpCoverHelper(alpha *mat.Dense, c Expression, covers map[int][]bool) (*ExpCoverHelper, error) {
	m, n := alpha.Dims()
	flat := c.Ravel()
	if flat.Size() != m {
		return nil, errors.Errorf("alpha has %d rows but c has %d entries", m, flat.Size())
	}
	ech := &ExpCoverHelper{
		Alpha:    alpha,
		C:        flat,
		M:        m,
		N:        n,
		isNI:     make([]bool, m),
		negConst: make([]bool, m),
	}

	for i := 0; i < m; i++ {
		se := flat.At(i)
		if se.IsConstant() {
			ech.NI = append(ech.NI, i)
			ech.isNI[i] = true
			if se.Offset() < 0 {
				ech.negConst[i] = true
				ech.UI = append(ech.UI, i)
			}
		} else {
			ech.UI = append(ech.UI, i)
		}
	}

	if covers != nil {
		ech.Expcovers = make(map[int][]bool, len(ech.UI))
		for _, i := range ech.UI {
			cov, ok := covers[i]
			if !ok {
				return nil, errors.Errorf("covers is missing an entry for index %d", i)
			}
			if len(cov) != m {
				return nil, errors.Errorf("cover for index %d has length %d, want %d", i, len(cov), m)
			}
			own := make([]bool, m)
			copy(own, cov)
			own[i] = false
			ech.Expcovers[i] = own
		}
	} else {
		ech.Expcovers = ech.defaultExpCovers()
	}
	return ech, nil
}

// defaultExpCovers builds the standard covers: every term participates in
// every certificate except the certified index itself and any fixed
// negative coordinate (a negative coefficient cannot support an AGE
// certificate). The covers are then refined by a deterministic heuristic:
// when the exponent matrix is entrywise nonnegative and contains a zero
// row, a covered term whose exponent signs agree with the certified term's
// exponents everywhere cannot tighten that certificate and is dropped.
func (ech *ExpCoverHelper) defaultExpCovers() map[int][]bool {
	covers := make(map[int][]bool, len(ech.UI))
	for _, i := range ech.UI {
		cov := make([]bool, ech.M)
		for j := 0; j < ech.M; j++ {
			cov[j] = !ech.negConst[j]
		}
		cov[i] = false
		covers[i] = cov
	}

	zeroLoc, ok := ech.zeroRowLocation()
	if !ok {
		return covers
	}
	rowI := make([]float64, ech.N)
	rowJ := make([]float64, ech.N)
	for _, i := range ech.UI {
		if i == zeroLoc {
			continue
		}
		mat.Row(rowI, i, ech.Alpha)
		cov := covers[i]
		for j := 0; j < ech.M; j++ {
			if !cov[j] || j == zeroLoc {
				continue
			}
			mat.Row(rowJ, j, ech.Alpha)
			if floats.Dot(rowI, rowJ) == absDot(rowI, rowJ) {
				cov[j] = false
			}
		}
	}
	return covers
}

// zeroRowLocation returns the index of the first all-zero row of Alpha,
// provided the whole matrix is entrywise nonnegative.
func (ech *ExpCoverHelper) zeroRowLocation() (int, bool) {
	zeroLoc := -1
	for i := 0; i < ech.M; i++ {
		rowSum := 0.0
		for j := 0; j < ech.N; j++ {
			v := ech.Alpha.At(i, j)
			if v < 0 {
				return 0, false
			}
			rowSum += v
		}
		if rowSum == 0 && zeroLoc < 0 {
			zeroLoc = i
		}
	}
	return zeroLoc, zeroLoc >= 0
}

// absDot returns the dot product of the entrywise absolute values.
func absDot(a, b []float64) float64 {
	total := 0.0
	for i := range a {
		total += math.Abs(a[i]) * math.Abs(b[i])
	}
	return total
}

// coverIndices returns the indices selected by a boolean cover, ascending.
func coverIndices(cov []bool) []int {
	var out []int
	for j, sel := range cov {
		if sel {
			out = append(out, j)
		}
	}
	return out
}

//==============================================================================
// PRIMAL ORDINARY SAGE CONE
//==============================================================================

// PrimalOrdinarySageCone represents the constraint that a vector c belongs
// to the primal ordinary SAGE cone induced by the exponent matrix alpha.
// It maintains the summand AGE vectors and the auxiliary variables needed
// to express the membership in terms of coniclifts primitives. A presolve
// based on constant components of c and geometric properties of the rows
// of alpha is applied at construction.
type PrimalOrdinarySageCone struct {
	name string

	// Alpha is the exponent matrix; one row per term of c.
	Alpha *mat.Dense

	// C is the vector subject to the SAGE membership constraint.
	C Expression

	// M and N are the row and column counts of Alpha.
	M, N int

	// Ech is the presolve result governing certificate sizes.
	Ech *ExpCoverHelper

	// NuVars[i] holds the certificate multipliers for the i-th AGE cone,
	// sized to the i-th cover.
	NuVars map[int]*Variable

	// CVars[i] determines the i-th summand of the SAGE decomposition of C;
	// its length can be strictly smaller than M.
	CVars map[int]*Variable

	// RelentEpiVars[i] holds the relative-entropy epigraph auxiliaries for
	// the i-th AGE cone.
	RelentEpiVars map[int]*Variable

	// AgeVectors[i] is the lifted, length-M view of CVars[i]. Feasible
	// values of the auxiliaries make AgeVectors[i] a member of the i-th AGE
	// cone, with the vectors summing to C on non-constant coordinates.
	AgeVectors map[int]Expression

	variables []*Variable
}

// NewPrimalOrdinarySageCone builds the SAGE membership constraint for c
// against alpha, running the cover presolve and allocating the auxiliary
// variables its certificates need. Passing a non-nil covers map skips the
// default cover construction.
// In case of dimension mismatches or malformed covers, function returns
// an error.
func NewPrimalOrdinarySageCone(c Expression, alpha *mat.Dense, name string, covers map[int][]bool) (*PrimalOrdinarySageCone, error) {
	m, n := alpha.Dims()
	ech, err := NewExpCoverHelper(alpha, c, covers)
	if err != nil {
		return nil, errors.Wrapf(err, "SAGE constraint %s failed presolve", name)
	}
	s := &PrimalOrdinarySageCone{
		name:          name,
		Alpha:         alpha,
		C:             c.Ravel(),
		M:             m,
		N:             n,
		Ech:           ech,
		NuVars:        make(map[int]*Variable),
		CVars:         make(map[int]*Variable),
		RelentEpiVars: make(map[int]*Variable),
		AgeVectors:    make(map[int]Expression),
	}
	s.variables = s.C.Variables()
	s.initializeVariables()
	return s, nil
}

// initializeVariables allocates the certificate auxiliaries. With M <= 2
// the cone degenerates to the nonnegative orthant and no auxiliaries are
// needed.
func (s *PrimalOrdinarySageCone) initializeVariables() {
	if s.M <= 2 {
		return
	}
	for _, i := range s.Ech.UI {
		nuLen := len(coverIndices(s.Ech.Expcovers[i]))
		if nuLen > 0 {
			nu := NewVariable(nuLen, fmt.Sprintf("nu^(%d)_%s", i, s.name))
			s.NuVars[i] = nu
			epi := NewVariable(nuLen, fmt.Sprintf("_relent_epi_^(%d)_%s", i, s.name))
			s.RelentEpiVars[i] = epi
		}
		cLen := nuLen
		if !s.Ech.isNI[i] {
			cLen++
		}
		if cLen > 0 {
			s.CVars[i] = NewVariable(cLen, fmt.Sprintf("c^(%d)_%s", i, s.name))
		}
	}
	for _, i := range s.Ech.UI {
		if v, ok := s.NuVars[i]; ok {
			s.variables = append(s.variables, v)
		}
		if v, ok := s.CVars[i]; ok {
			s.variables = append(s.variables, v)
		}
		if v, ok := s.RelentEpiVars[i]; ok {
			s.variables = append(s.variables, v)
		}
	}
}

// buildAlignedAgeVectors lifts each CVars[i] into a length-M expression
// that is zero outside the i-th cover and position i. Position i holds the
// original constant C[i] when i is structurally trivial, and the last slot
// of CVars[i] otherwise. The construction is idempotent.
func (s *PrimalOrdinarySageCone) buildAlignedAgeVectors() {
	if len(s.AgeVectors) > 0 {
		return
	}
	for _, i := range s.Ech.UI {
		data := make([]*ScalarExpression, s.M)
		for t := range data {
			data[t] = scalarConst(0)
		}
		cov := coverIndices(s.Ech.Expcovers[i])
		var cexpr Expression
		if cv, ok := s.CVars[i]; ok {
			cexpr = cv.AsExpr()
		}
		for k, j := range cov {
			data[j] = cexpr.At(k)
		}
		if s.Ech.isNI[i] {
			data[i] = s.C.At(i).Clone()
		} else {
			data[i] = cexpr.At(cexpr.Size() - 1)
		}
		s.AgeVectors[i] = wrapScalars(data)
	}
}

// Name returns the constraint's diagnostic name.
func (s *PrimalOrdinarySageCone) Name() string { return s.name }

// Variables returns the variables appearing in C plus every certificate
// auxiliary, in a deterministic order.
func (s *PrimalOrdinarySageCone) Variables() []*Variable {
	out := make([]*Variable, len(s.variables))
	copy(out, s.variables)
	return out
}

// IsAffine reports false: SAGE membership always compiles through its own
// conic decomposition, never as a plain affine fragment.
func (s *PrimalOrdinarySageCone) IsAffine() bool { return false }

func (s *PrimalOrdinarySageCone) IsElementwise() bool   { return false }
func (s *PrimalOrdinarySageCone) IsSetMembership() bool { return true }

// ConicForm compiles the SAGE membership into fragments. With M <= 2 the
// cone coincides with the nonnegative orthant and a single "C >= 0"
// fragment is emitted. Otherwise, each index in UI contributes a
// relative-entropy fragment and a linear-equality fragment (or a single
// nonnegativity row when its cover is empty), followed by one fragment
// asserting that the AGE vectors sum to at most C on the non-constant
// coordinates. The "<=" suffices because the SAGE cone is closed under
// addition from the nonnegative orthant, and it is cheaper to satisfy
// numerically than exact equality.
func (s *PrimalOrdinarySageCone) ConicForm() ([]*ConicData, error) {
	if s.M <= 2 {
		cd, err := vectorConicForm(s.C, NonnegConeTag)
		if err != nil {
			return nil, errors.Wrapf(err, "%s failed to emit orthant fragment", s.name)
		}
		return []*ConicData{cd}, nil
	}

	s.buildAlignedAgeVectors()
	var coneData []*ConicData

	for _, i := range s.Ech.UI {
		cov := coverIndices(s.Ech.Expcovers[i])
		if len(cov) == 0 {
			// Degenerate certificate: a single nonnegative coordinate.
			entry := wrapScalars([]*ScalarExpression{s.AgeVectors[i].At(i)})
			cd, err := vectorConicForm(entry, NonnegConeTag)
			if err != nil {
				return nil, errors.Wrapf(err, "%s failed on degenerate index %d", s.name, i)
			}
			coneData = append(coneData, cd)
			continue
		}

		// Relative-entropy inequality:
		//   sum( nu * log(nu / (e * age[cov])) ) <= -age[i].
		ySel := make([]*ScalarExpression, len(cov))
		for k, j := range cov {
			ySel[k] = s.AgeVectors[i].At(j).Scale(math.E)
		}
		z := s.AgeVectors[i].At(i).Scale(-1)
		cd, err := SumRelEnt(s.NuVars[i], wrapScalars(ySel), z, s.RelentEpiVars[i])
		if err != nil {
			return nil, errors.Wrapf(err, "%s failed on relative-entropy fragment %d", s.name, i)
		}
		coneData = append(coneData, cd)

		// Linear equality tying the certificate to the exponent geometry:
		//   (alpha[cov,:] - alpha[i,:])^T * nu == 0.
		coneData = append(coneData, s.exponentEqualityFragment(i, cov))
	}

	if sum := s.ageVectorsSumToC(); sum != nil {
		cd, err := vectorConicForm(wrapScalars(sum), NonnegConeTag)
		if err != nil {
			return nil, errors.Wrapf(err, "%s failed on sum fragment", s.name)
		}
		coneData = append(coneData, cd)
	}
	return coneData, nil
}

// exponentEqualityFragment emits the zero-cone fragment
// "(alpha[cov,:] - alpha[i,:])^T * nu == 0" for the i-th certificate.
func (s *PrimalOrdinarySageCone) exponentEqualityFragment(i int, cov []int) *ConicData {
	nu := s.NuVars[i]
	cd := &ConicData{
		B: make([]float64, s.N),
		K: []Cone{{Type: ZeroConeTag, Len: s.N}},
	}
	for k, j := range cov {
		for r := 0; r < s.N; r++ {
			v := s.Alpha.At(j, r) - s.Alpha.At(i, r)
			if v != 0 {
				cd.ARows = append(cd.ARows, r)
				cd.ACols = append(cd.ACols, nu.scalars[k].id)
				cd.AVals = append(cd.AVals, v)
			}
		}
	}
	return cd
}

// ageVectorsSumToC builds the rows "C[t] - sum_i AgeVectors[i][t] >= 0"
// over the non-constant coordinates t. Returns nil when every coordinate
// of C is constant.
func (s *PrimalOrdinarySageCone) ageVectorsSumToC() []*ScalarExpression {
	var rows []*ScalarExpression
	for t := 0; t < s.M; t++ {
		if s.Ech.isNI[t] {
			continue
		}
		row := s.C.At(t).Clone()
		for _, i := range s.Ech.UI {
			row.addScaled(s.AgeVectors[i].At(t), -1)
		}
		rows = append(rows, row)
	}
	return rows
}

//==============================================================================
// VIOLATION DIAGNOSTICS
//==============================================================================

// Violation measures how far the current value of C is from the SAGE cone.
//
// With rough set, a cheap surrogate is computed from the current values of
// the certificate auxiliaries: the gap in the "AGE vectors sum to C"
// inequality plus, per certificate, a closed-form relative-entropy residual
// combined with the norm of the linear-equality residual. If any per-term
// residual is non-finite, the surrogate falls back to the exact projection
// for the total.
//
// Without rough, the exact Euclidean distance from C's value to the cone is
// computed by solving a small projection subproblem through the named
// solver; this is relatively expensive and intended for final-answer
// validation. Vector residuals are reduced with the infinity norm when
// normOrd is math.Inf(1), and with the normOrd-norm otherwise.
// In case a required solver is unavailable or fails, function returns
// an error.
func (s *PrimalOrdinarySageCone) Violation(normOrd float64, rough bool, solverName string) (float64, error) {
	cvals := s.C.Value()
	if s.M <= 2 {
		residual := make([]float64, len(cvals))
		for i, v := range cvals {
			residual[i] = math.Min(0, v)
		}
		return vecNorm(residual, normOrd), nil
	}
	if allNonneg(cvals) {
		// The SAGE cone contains the nonnegative orthant.
		return 0, nil
	}
	if !rough {
		return ProjectToSageCone(cvals, s.Alpha, solverName)
	}

	s.buildAlignedAgeVectors()

	// Gap in "AGE vectors sum to <= C".
	residual := make([]float64, s.M)
	copy(residual, cvals)
	ageVals := make(map[int][]float64, len(s.Ech.UI))
	for _, i := range s.Ech.UI {
		ageVals[i] = s.AgeVectors[i].Value()
		floats.Sub(residual, ageVals[i])
	}
	for t := range residual {
		if residual[t] > 0 {
			residual[t] = 0
		}
	}
	sumToCViol := vecNorm(residual, normOrd)

	// Per-certificate residuals.
	ageViols := make([]float64, len(s.Ech.UI))
	degenerate := false
	for idx, i := range s.Ech.UI {
		ageViols[idx] = s.ageViolation(i, normOrd, ageVals[i])
		if math.IsInf(ageViols[idx], 0) || math.IsNaN(ageViols[idx]) {
			degenerate = true
		}
	}

	if degenerate {
		total := sumToCViol
		for _, v := range ageViols {
			if !math.IsInf(v, 0) && !math.IsNaN(v) {
				total += v
			}
		}
		dist, err := ProjectToSageCone(cvals, s.Alpha, solverName)
		if err != nil {
			return 0, errors.Wrapf(err, "%s rough violation hit degenerate numerics", s.name)
		}
		return total + dist, nil
	}
	return sumToCViol + floats.Max(ageViols), nil
}

// ageViolation computes the residual of the i-th AGE certificate at the
// current auxiliary values. ci holds the current value of AgeVectors[i].
func (s *PrimalOrdinarySageCone) ageViolation(i int, normOrd float64, ci []float64) float64 {
	cov := coverIndices(s.Ech.Expcovers[i])
	if len(cov) == 0 {
		v := ci[i]
		return math.Abs(math.Min(0, v))
	}
	x := s.NuVars[i].Value()
	for k := range x {
		if x[k] < 0 {
			x[k] = 0
		}
	}
	relentRes := -ci[i]
	eqRes := make([]float64, s.N)
	for k, j := range cov {
		relentRes += relEntr(x[k], math.E*ci[j])
		for r := 0; r < s.N; r++ {
			eqRes[r] += (s.Alpha.At(j, r) - s.Alpha.At(i, r)) * x[k]
		}
	}
	relentViol := math.Abs(math.Max(relentRes, 0))
	return relentViol + vecNorm(eqRes, normOrd)
}

// relEntr is the elementwise relative entropy x*log(x/y), with the closure
// conventions 0*log(0/y) = 0 for y >= 0 and +Inf outside the domain.
func relEntr(x, y float64) float64 {
	switch {
	case x > 0 && y > 0:
		return x * math.Log(x/y)
	case x == 0 && y >= 0:
		return 0
	default:
		return math.Inf(1)
	}
}

// ProjectToSageCone returns the Euclidean distance from item to the SAGE
// cone induced by alpha. An entrywise nonnegative item is inside the cone
// and returns zero immediately; otherwise a minimum-distance subproblem
//
//	minimize ||item - c'||_2  subject to  c' in C_SAGE(alpha)
//
// is compiled and delegated to the named solver.
// In case the solver is unavailable or fails, function returns an error.
func ProjectToSageCone(item []float64, alpha *mat.Dense, solverName string) (float64, error) {
	if allNonneg(item) {
		return 0, nil
	}
	cVar := NewVariable(len(item), "_proj_c_")
	tVar := NewVariable(1, "_proj_t_")
	diff := Constant(item).Sub(cVar.AsExpr())
	normAtom, err := NewVector2Norm(diff)
	if err != nil {
		return 0, errors.Wrap(err, "projection failed to build norm atom")
	}
	normExpr := wrapScalars([]*ScalarExpression{scalarFromAtom(normAtom, 1)})
	normCon, err := NewElementwiseConstraint(normExpr, tVar.AsExpr(), OpLe)
	if err != nil {
		return 0, errors.Wrap(err, "projection failed to build norm constraint")
	}
	sageCon, err := NewPrimalOrdinarySageCone(cVar.AsExpr(), alpha, "_proj_sage_", nil)
	if err != nil {
		return 0, errors.Wrap(err, "projection failed to build SAGE constraint")
	}
	prob := NewProblem(Minimize, tVar.AsExpr(), []Constraint{normCon, sageCon})
	if err = prob.Solve(solverName); err != nil {
		return 0, errors.Wrap(err, "projection subproblem failed")
	}
	return prob.Value, nil
}

// allNonneg reports whether every entry is nonnegative. NaN entries are not
// nonnegative.
func allNonneg(vals []float64) bool {
	for _, v := range vals {
		if !(v >= 0) {
			return false
		}
	}
	return true
}

// vecNorm reduces a residual vector: the infinity norm when ord is +Inf,
// the ord-norm otherwise.
func vecNorm(r []float64, ord float64) float64 {
	if len(r) == 0 {
		return 0
	}
	if math.IsInf(ord, 1) {
		worst := 0.0
		for _, v := range r {
			worst = math.Max(worst, math.Abs(v))
		}
		return worst
	}
	return floats.Norm(r, ord)
}
