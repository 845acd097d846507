// 01   Feb. 11, 2026   Initial version uploaded to github
// 02   Mar.  3, 2026   Expanded after comments on the SAGE presolve section

/*
Package coniclifts provides a suite of Go language tools for compiling
symbolic convex-optimization models into the sparse-matrix, cone-list
representation "A*x + b in K" consumed by generic conic solvers. It is
intended for two sets of users: (i) researchers working on signomial and
polynomial optimization via SAGE relaxations, and (ii) users wanting easy
Go access to conic modeling without writing coordinate-format matrices by
hand.

Some of the main capabilities include:
  - scalar and vector affine expressions over atomic variables
  - nonlinear atoms (exponential, Euclidean norm) with epigraph lifting
  - elementwise equality and inequality constraints
  - SAGE cone membership constraints with a sparsity-cover presolve
  - assembly of compiled fragments into one global conic system

Expressions

Every model is built from Variables. A Variable is a named vector of
scalar unknowns, each of which receives a process-wide unique integer id
at construction. Those ids double as column indices of the assembled
coefficient matrix, so a model compiled from several independent
constraints always shares one contiguous column space.

Arithmetic on expressions keeps them in affine form: a ScalarExpression
is a mapping from atoms to coefficients plus a constant offset, and
combining two expressions merges coefficients on the same atom and prunes
any term whose coefficient becomes zero. Nonlinear structure enters only
through atoms such as Exponential and Vector2Norm, which report their own
curvature and know how to lift themselves into conic form with a fresh
auxiliary variable.

Constraints

Two constraint families are provided. ElementwiseConstraint relates two
expressions by "==", "<=" or ">=", normalizing the operator direction at
construction so the compiled form is always "expr == 0" or "expr <= 0".
PrimalOrdinarySageCone constrains a coefficient vector to the SAGE cone
induced by a matrix of exponent vectors; it decomposes the vector into
per-term AGE certificates using relative-entropy cones, after a presolve
step that bounds the size of each certificate.

Presolving

The SAGE presolve is implemented by ExpCoverHelper. For each term that
needs its own AGE cone it computes a boolean "cover" selecting which other
terms participate in that certificate. Covers are shrunk by a
deterministic sign-agreement heuristic on the exponent matrix; without
this reduction every certificate would carry auxiliary variables sized to
the full exponent matrix.

Interacting with Solvers

Package coniclifts does not implement a solver. A compiled Problem is
handed to an external solver through the Solver interface, looked up by
name in a registry populated with RegisterSolver. Algorithmic researchers
can write their own experimental solvers and use the coniclifts functions
to build a model, compile it, evaluate constraint violations at a point,
and map a solution vector back onto model variables.

For example, the code could include the following:

	x := coniclifts.NewVariable(2, "x")
	con, err := coniclifts.NewElementwiseConstraint(x.AsExpr(), coniclifts.Constant([]float64{1, 2}), "<=")
	if err != nil {
		fmt.Printf("coniclifts returned the following error: %s\n", err)
		return
	}
	prob := coniclifts.NewProblem(coniclifts.Minimize, x.AsExpr().Sum(), []coniclifts.Constraint{con})
	if err = prob.Solve("mysolver"); err != nil {
		fmt.Printf("coniclifts returned the following error: %s\n", err)
		return
	}

Tutorial and Function Exerciser

The executable provided with the package (clrun) illustrates how the
coniclifts package is used: it reads a model description from a YAML file,
compiles the SAGE membership constraint, and reports statistics about the
assembled conic system.
*/
package coniclifts
