//==============================================================================
// base: Scalar and vector algebra layer
// 01   Feb. 11, 2026   Initial version
// 02   Mar.  3, 2026   Zero-coefficient pruning moved into addTerm

// This file defines the atomic unknowns (ScalarVariable, Variable), the
// affine scalar expressions built over them (ScalarExpression), and the
// vector expressions (Expression) that the constraint compilers consume.
// Nonlinear atoms live in their own files (exp.go, norms.go) and plug in
// through the ScalarAtom interface defined here.

package coniclifts

import (
	"math"

	"github.com/pkg/errors"
)

//==============================================================================
// ATOM KINDS AND ID ALLOCATION
//==============================================================================

// atomKind enumerates the closed set of atom variants. Curvature queries and
// value evaluation dispatch on this tag rather than on open-ended subtyping.
type atomKind int

const (
	kindVariable atomKind = iota // atomic unknown
	kindExponential              // epigraph of e^x
	kindVector2Norm              // epigraph of ||x||_2
)

// atomKey identifies an atom inside a coefficient map. Scalar variables are
// numbered by the process-wide variable counter; each nonlinear atom type
// keeps its own instance counter, so the kind tag is part of the key.
type atomKey struct {
	kind atomKind
	id   int
}

// Package global counters. Scalar variable ids double as column indices of
// the assembled coefficient matrix and are never reused. Sequential use only;
// callers running concurrent compilations must synchronize externally.
var scalarVariableCount int
var exponentialCount int
var vector2NormCount int
var elementwiseConstraintCount int

// nextScalarVariableID returns a fresh column index.
func nextScalarVariableID() int {
	id := scalarVariableCount
	scalarVariableCount++
	return id
}

// CurrVariableCount returns the number of scalar variables created so far.
// The assembled conic system has exactly this many columns.
func CurrVariableCount() int {
	return scalarVariableCount
}

// ResetVariableCounters resets all package global counters to zero. It must
// only be called at the start of a fresh top-level compilation, or for test
// isolation; resetting mid-compilation corrupts the shared column space.
func ResetVariableCounters() {
	scalarVariableCount = 0
	exponentialCount = 0
	vector2NormCount = 0
	elementwiseConstraintCount = 0
}

//==============================================================================
// SCALAR ATOM INTERFACE
//==============================================================================

// ScalarAtom is the capability shared by everything a ScalarExpression may
// hold a coefficient against: atomic unknowns and nonlinear epigraph atoms.
// The set of implementations is closed (see atomKind).
type ScalarAtom interface {
	// key returns the identifier used for coefficient-map bookkeeping.
	key() atomKey

	// IsVariable reports whether the atom is an atomic unknown. An
	// expression is affine iff every atom it holds is a variable.
	IsVariable() bool

	// IsConvexAtom and IsConcaveAtom report the curvature of the atom
	// itself. Variables are both (affine).
	IsConvexAtom() bool
	IsConcaveAtom() bool

	// ScalarVariables returns the atomic unknowns reachable from the atom,
	// in a deterministic order. For a variable, that is the variable itself.
	ScalarVariables() []*ScalarVariable
}

// atomValue evaluates an atom at the current variable values. Dispatch is a
// type switch over the closed atom set. A Vector2Norm atom has no direct
// evaluation (callers read its epigraph variable instead) and yields NaN.
func atomValue(a ScalarAtom) float64 {
	switch at := a.(type) {
	case *ScalarVariable:
		return at.Value()
	case *Exponential:
		return at.Value()
	default:
		return math.NaN()
	}
}

//==============================================================================
// SCALAR VARIABLE
//==============================================================================

// ScalarVariable is an atomic unknown. Its id is assigned from the process
// global counter at construction and doubles as the column index of the
// variable in any conic system assembled afterwards.
type ScalarVariable struct {
	id     int       // process-wide unique id; column index
	parent *Variable // vector variable this scalar belongs to
	index  int       // position of this scalar within parent
	value  float64   // last assigned value, NaN until set
}

// newScalarVariable allocates the next column index for a scalar belonging
// to the given parent vector variable.
func newScalarVariable(parent *Variable, index int) *ScalarVariable {
	return &ScalarVariable{
		id:     nextScalarVariableID(),
		parent: parent,
		index:  index,
		value:  math.NaN(),
	}
}

// ID returns the column index of this scalar variable.
func (sv *ScalarVariable) ID() int { return sv.id }

// Parent returns the vector Variable this scalar belongs to.
func (sv *ScalarVariable) Parent() *Variable { return sv.parent }

// Value returns the last value assigned to this variable, or NaN if no
// value has been assigned yet.
func (sv *ScalarVariable) Value() float64 { return sv.value }

// SetValue records a solved or candidate value on the variable. Values are
// diagnostic state only; they never influence compilation.
func (sv *ScalarVariable) SetValue(v float64) { sv.value = v }

func (sv *ScalarVariable) key() atomKey       { return atomKey{kindVariable, sv.id} }
func (sv *ScalarVariable) IsVariable() bool   { return true }
func (sv *ScalarVariable) IsConvexAtom() bool { return true }
func (sv *ScalarVariable) IsConcaveAtom() bool {
	return true
}
func (sv *ScalarVariable) ScalarVariables() []*ScalarVariable {
	return []*ScalarVariable{sv}
}

//==============================================================================
// VECTOR VARIABLE
//==============================================================================

// Variable is a named vector of scalar unknowns. It is the user-facing unit
// of variable creation; all ids within one Variable are consecutive.
type Variable struct {
	name    string            // identifies the variable in diagnostics
	scalars []*ScalarVariable // underlying atomic unknowns
}

// NewVariable creates a vector variable with n fresh scalar unknowns. Ids
// are drawn from the process-wide counter, so variables created later always
// occupy later columns.
func NewVariable(n int, name string) *Variable {
	v := &Variable{name: name, scalars: make([]*ScalarVariable, n)}
	for i := 0; i < n; i++ {
		v.scalars[i] = newScalarVariable(v, i)
	}
	return v
}

// Name returns the name given to the variable at construction.
func (v *Variable) Name() string { return v.name }

// Len returns the number of scalar unknowns in the variable.
func (v *Variable) Len() int { return len(v.scalars) }

// ScalarVariables returns the underlying scalar unknowns in index order.
func (v *Variable) ScalarVariables() []*ScalarVariable {
	out := make([]*ScalarVariable, len(v.scalars))
	copy(out, v.scalars)
	return out
}

// AsExpr returns the vector expression whose i-th entry is the i-th scalar
// unknown with coefficient one.
func (v *Variable) AsExpr() Expression {
	data := make([]*ScalarExpression, len(v.scalars))
	for i, sv := range v.scalars {
		data[i] = scalarFromAtom(sv, 1)
	}
	return Expression{shape: []int{len(data)}, data: data}
}

// SetValue assigns one value to each scalar unknown of the variable.
// In case of a length mismatch, function returns an error.
func (v *Variable) SetValue(vals []float64) error {
	if len(vals) != len(v.scalars) {
		return errors.Errorf("Variable %s has length %d, got %d values",
			v.name, len(v.scalars), len(vals))
	}
	for i, sv := range v.scalars {
		sv.SetValue(vals[i])
	}
	return nil
}

// Value returns the currently assigned values of the variable, with NaN in
// any position that has not been assigned.
func (v *Variable) Value() []float64 {
	out := make([]float64, len(v.scalars))
	for i, sv := range v.scalars {
		out[i] = sv.Value()
	}
	return out
}

//==============================================================================
// SCALAR EXPRESSION
//==============================================================================

// term is one (atom, coefficient) pair of a ScalarExpression.
type term struct {
	atom  ScalarAtom
	coeff float64
}

// ScalarExpression is an affine combination of atoms plus a constant offset.
// Terms are kept in insertion order with unique atom keys, and a term whose
// coefficient becomes zero is pruned, so iteration order and content are
// deterministic functions of the algebra that produced the expression.
type ScalarExpression struct {
	terms  []term
	pos    map[atomKey]int // atom key -> index into terms
	offset float64
}

// newScalarExpression returns the zero expression.
func newScalarExpression() *ScalarExpression {
	return &ScalarExpression{pos: make(map[atomKey]int)}
}

// scalarConst returns the constant expression with the given offset.
func scalarConst(v float64) *ScalarExpression {
	se := newScalarExpression()
	se.offset = v
	return se
}

// scalarFromAtom returns the expression "coeff * atom".
func scalarFromAtom(a ScalarAtom, coeff float64) *ScalarExpression {
	se := newScalarExpression()
	se.addTerm(a, coeff)
	return se
}

// addTerm merges "coeff * atom" into the expression, pruning the term if the
// merged coefficient is exactly zero. This is the only mutation point of the
// coefficient map, which keeps the no-zero-terms invariant in one place.
func (se *ScalarExpression) addTerm(a ScalarAtom, coeff float64) {
	k := a.key()
	if i, ok := se.pos[k]; ok {
		se.terms[i].coeff += coeff
		if se.terms[i].coeff == 0 {
			se.removeAt(i)
		}
		return
	}
	if coeff == 0 {
		return
	}
	se.pos[k] = len(se.terms)
	se.terms = append(se.terms, term{atom: a, coeff: coeff})
}

// removeAt deletes the term at index i and reindexes the positions of the
// terms that followed it.
func (se *ScalarExpression) removeAt(i int) {
	delete(se.pos, se.terms[i].atom.key())
	se.terms = append(se.terms[:i], se.terms[i+1:]...)
	for j := i; j < len(se.terms); j++ {
		se.pos[se.terms[j].atom.key()] = j
	}
}

// Clone returns a deep copy of the expression.
func (se *ScalarExpression) Clone() *ScalarExpression {
	out := newScalarExpression()
	out.offset = se.offset
	out.terms = make([]term, len(se.terms))
	copy(out.terms, se.terms)
	for k, i := range se.pos {
		out.pos[k] = i
	}
	return out
}

// Offset returns the constant offset of the expression.
func (se *ScalarExpression) Offset() float64 { return se.offset }

// NumTerms returns the number of atoms carrying a nonzero coefficient.
func (se *ScalarExpression) NumTerms() int { return len(se.terms) }

// IsConstant reports whether the expression holds no atoms at all.
func (se *ScalarExpression) IsConstant() bool { return len(se.terms) == 0 }

// Coeff returns the coefficient the expression holds against the given atom
// (zero if the atom is absent).
func (se *ScalarExpression) Coeff(a ScalarAtom) float64 {
	if i, ok := se.pos[a.key()]; ok {
		return se.terms[i].coeff
	}
	return 0
}

// addScaled merges "scale * other" into the receiver.
func (se *ScalarExpression) addScaled(other *ScalarExpression, scale float64) {
	for _, t := range other.terms {
		se.addTerm(t.atom, scale*t.coeff)
	}
	se.offset += scale * other.offset
}

// Add returns the sum of the receiver and other as a new expression.
func (se *ScalarExpression) Add(other *ScalarExpression) *ScalarExpression {
	out := se.Clone()
	out.addScaled(other, 1)
	return out
}

// Sub returns the difference of the receiver and other as a new expression.
func (se *ScalarExpression) Sub(other *ScalarExpression) *ScalarExpression {
	out := se.Clone()
	out.addScaled(other, -1)
	return out
}

// Scale returns the receiver multiplied by the scalar c.
func (se *ScalarExpression) Scale(c float64) *ScalarExpression {
	out := newScalarExpression()
	if c == 0 {
		return out
	}
	out.offset = c * se.offset
	for _, t := range se.terms {
		out.addTerm(t.atom, c*t.coeff)
	}
	return out
}

// IsAffine reports whether every atom of the expression is a variable.
func (se *ScalarExpression) IsAffine() bool {
	for _, t := range se.terms {
		if !t.atom.IsVariable() {
			return false
		}
	}
	return true
}

// IsConvex reports whether the expression is convex. Affine terms are both
// convex and concave; a nonlinear atom contributes its own curvature when
// its coefficient is positive, and the opposite curvature when negative.
func (se *ScalarExpression) IsConvex() bool {
	for _, t := range se.terms {
		if t.atom.IsVariable() {
			continue
		}
		if t.coeff > 0 && !t.atom.IsConvexAtom() {
			return false
		}
		if t.coeff < 0 && !t.atom.IsConcaveAtom() {
			return false
		}
	}
	return true
}

// IsConcave reports whether the expression is concave, by the sign-aware
// rule mirroring IsConvex.
func (se *ScalarExpression) IsConcave() bool {
	for _, t := range se.terms {
		if t.atom.IsVariable() {
			continue
		}
		if t.coeff > 0 && !t.atom.IsConcaveAtom() {
			return false
		}
		if t.coeff < 0 && !t.atom.IsConvexAtom() {
			return false
		}
	}
	return true
}

// Variables returns the scalar unknowns reachable from all atoms of the
// expression, deduplicated by id and in first-seen order.
func (se *ScalarExpression) Variables() []*ScalarVariable {
	seen := make(map[int]bool)
	var out []*ScalarVariable
	for _, t := range se.terms {
		for _, sv := range t.atom.ScalarVariables() {
			if !seen[sv.id] {
				seen[sv.id] = true
				out = append(out, sv)
			}
		}
	}
	return out
}

// Value evaluates the expression at the current variable values. Entries
// involving unset variables evaluate to NaN.
func (se *ScalarExpression) Value() float64 {
	val := se.offset
	for _, t := range se.terms {
		val += t.coeff * atomValue(t.atom)
	}
	return val
}

//==============================================================================
// VECTOR EXPRESSION
//==============================================================================

// Expression is an ordered multi-dimensional array of scalar expressions.
// Data is stored flat in row-major order; most compilation paths operate on
// the raveled view. Arithmetic panics on shape mismatches, following the
// convention of gonum's mat package for programmer errors; user-input
// validation errors are returned by the constraint and atom constructors.
type Expression struct {
	shape []int
	data  []*ScalarExpression
}

// Constant returns the one-dimensional expression holding the given values
// as constants.
func Constant(vals []float64) Expression {
	data := make([]*ScalarExpression, len(vals))
	for i, v := range vals {
		data[i] = scalarConst(v)
	}
	return Expression{shape: []int{len(vals)}, data: data}
}

// ConstantScalar returns a size-1 expression holding the given constant.
func ConstantScalar(v float64) Expression {
	return Constant([]float64{v})
}

// wrapScalars builds a one-dimensional expression around the given scalar
// expressions without copying them.
func wrapScalars(data []*ScalarExpression) Expression {
	return Expression{shape: []int{len(data)}, data: data}
}

// Size returns the total number of scalar entries.
func (e Expression) Size() int { return len(e.data) }

// Shape returns a copy of the expression's shape.
func (e Expression) Shape() []int {
	out := make([]int, len(e.shape))
	copy(out, e.shape)
	return out
}

// At returns the scalar expression at flat index i of the raveled view.
func (e Expression) At(i int) *ScalarExpression { return e.data[i] }

// SetAt replaces the scalar expression at flat index i.
func (e Expression) SetAt(i int, se *ScalarExpression) { e.data[i] = se }

// Ravel returns a one-dimensional view of the expression. The underlying
// scalar expressions are shared, not copied.
func (e Expression) Ravel() Expression {
	return Expression{shape: []int{len(e.data)}, data: e.data}
}

// Reshape returns a view of the expression with the given shape.
// In case the shape does not match the entry count, function returns an error.
func (e Expression) Reshape(shape ...int) (Expression, error) {
	n := 1
	for _, d := range shape {
		n *= d
	}
	if n != len(e.data) {
		return Expression{}, errors.Errorf("cannot reshape %d entries to %v", len(e.data), shape)
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return Expression{shape: s, data: e.data}, nil
}

// Clone returns a deep copy of the expression.
func (e Expression) Clone() Expression {
	data := make([]*ScalarExpression, len(e.data))
	for i, se := range e.data {
		data[i] = se.Clone()
	}
	s := make([]int, len(e.shape))
	copy(s, e.shape)
	return Expression{shape: s, data: data}
}

// broadcastPair returns raveled, equal-length views of a and b, broadcasting
// a size-1 operand against the other. Panics if the sizes are incompatible.
func broadcastPair(a, b Expression) (Expression, Expression) {
	if a.Size() == b.Size() {
		return a.Ravel(), b.Ravel()
	}
	if a.Size() == 1 {
		data := make([]*ScalarExpression, b.Size())
		for i := range data {
			data[i] = a.data[0]
		}
		return wrapScalars(data), b.Ravel()
	}
	if b.Size() == 1 {
		data := make([]*ScalarExpression, a.Size())
		for i := range data {
			data[i] = b.data[0]
		}
		return a.Ravel(), wrapScalars(data)
	}
	panic(errors.Errorf("coniclifts: size mismatch %d vs %d", a.Size(), b.Size()))
}

// Add returns the elementwise sum of the receiver and other.
func (e Expression) Add(other Expression) Expression {
	a, b := broadcastPair(e, other)
	data := make([]*ScalarExpression, a.Size())
	for i := range data {
		data[i] = a.data[i].Add(b.data[i])
	}
	return wrapScalars(data)
}

// Sub returns the elementwise difference of the receiver and other.
func (e Expression) Sub(other Expression) Expression {
	a, b := broadcastPair(e, other)
	data := make([]*ScalarExpression, a.Size())
	for i := range data {
		data[i] = a.data[i].Sub(b.data[i])
	}
	return wrapScalars(data)
}

// Neg returns the elementwise negation of the receiver.
func (e Expression) Neg() Expression {
	return e.Scale(-1)
}

// Scale returns the receiver multiplied elementwise by the scalar c.
func (e Expression) Scale(c float64) Expression {
	data := make([]*ScalarExpression, len(e.data))
	for i, se := range e.data {
		data[i] = se.Scale(c)
	}
	return wrapScalars(data)
}

// Sum returns the size-1 expression holding the sum of all entries.
func (e Expression) Sum() Expression {
	total := newScalarExpression()
	for _, se := range e.data {
		total.addScaled(se, 1)
	}
	return wrapScalars([]*ScalarExpression{total})
}

// Hstack concatenates one-dimensional expressions into a single vector.
func Hstack(exprs ...Expression) Expression {
	var data []*ScalarExpression
	for _, e := range exprs {
		data = append(data, e.data...)
	}
	return wrapScalars(data)
}

// IsAffine reports whether every entry of the expression is affine.
func (e Expression) IsAffine() bool {
	for _, se := range e.data {
		if !se.IsAffine() {
			return false
		}
	}
	return true
}

// IsConvex reports whether every entry of the expression is convex.
func (e Expression) IsConvex() bool {
	for _, se := range e.data {
		if !se.IsConvex() {
			return false
		}
	}
	return true
}

// IsConcave reports whether every entry of the expression is concave.
func (e Expression) IsConcave() bool {
	for _, se := range e.data {
		if !se.IsConcave() {
			return false
		}
	}
	return true
}

// Variables returns the vector Variables reachable from all entries,
// deduplicated and in first-seen order.
func (e Expression) Variables() []*Variable {
	seen := make(map[*Variable]bool)
	var out []*Variable
	for _, se := range e.data {
		for _, sv := range se.Variables() {
			if sv.parent != nil && !seen[sv.parent] {
				seen[sv.parent] = true
				out = append(out, sv.parent)
			}
		}
	}
	return out
}

// Value evaluates every entry at the current variable values. Entries
// involving unset variables evaluate to NaN.
func (e Expression) Value() []float64 {
	out := make([]float64, len(e.data))
	for i, se := range e.data {
		out[i] = se.Value()
	}
	return out
}
