package constraint

import (
	"context"
)

// Result is a Solver's verdict.
type Result int

const (
	// Unknown means the Solver couldn't decide.  The engine
	// treats Unknown as satisfiable so that no branch is lost.
	Unknown Result = iota
	Sat
	Unsat
)

func (r Result) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Solver decides satisfiability of Constraints.
//
// Theory reasoning (arithmetic, etc.) lives behind this interface.
// The Constraint given to Check has already been simplified.
type Solver interface {
	Check(ctx context.Context, c *Constraint) (Result, error)
}

// SolverFunc lets a function be a Solver.
type SolverFunc func(ctx context.Context, c *Constraint) (Result, error)

func (f SolverFunc) Check(ctx context.Context, c *Constraint) (Result, error) {
	return f(ctx, c)
}

// SyntacticSolver only knows what simplification found.
type SyntacticSolver struct{}

func (s *SyntacticSolver) Check(ctx context.Context, c *Constraint) (Result, error) {
	if c.IsFalse() {
		return Unsat, nil
	}
	if c.IsSolved() {
		return Sat, nil
	}
	return Unknown, nil
}

// DefaultSolver is used when nobody specifies a Solver.
var DefaultSolver Solver = &SyntacticSolver{}

// IsUnsatisfiable simplifies the Constraint and then asks the
// Solver.  Returns the simplified Constraint, too.
//
// A nil Solver means DefaultSolver.
func (c *Constraint) IsUnsatisfiable(ctx context.Context, s Solver) (bool, *Constraint, error) {
	d := c.Simplify()
	if d.IsFalse() {
		return true, d, nil
	}
	if s == nil {
		s = DefaultSolver
	}
	r, err := s.Check(ctx, d)
	if err != nil {
		return false, d, err
	}
	return r == Unsat, d, nil
}
