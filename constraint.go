//==============================================================================
// constraint: Common constraint capability
// 01   Feb. 11, 2026   Initial version

package coniclifts

// Constraint is the capability shared by every symbolic constraint the
// assembler can compile: elementwise (in)equalities and set-membership
// constraints such as the SAGE cone.
type Constraint interface {
	// Name identifies the constraint in diagnostics and in the names of any
	// auxiliary variables created during compilation.
	Name() string

	// Variables returns the vector Variables appearing in the constraint,
	// including auxiliaries created for its conic representation.
	Variables() []*Variable

	// IsAffine reports whether the constraint can be compiled without any
	// epigraph substitution.
	IsAffine() bool

	// IsElementwise and IsSetMembership discriminate the two families.
	IsElementwise() bool
	IsSetMembership() bool

	// ConicForm compiles the constraint into fragments asserting
	// "A*x + B in K" over the global column space.
	ConicForm() ([]*ConicData, error)
}
