package rewrite

import (
	"context"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/core"
)

// ClaimPolicy decides how a Search uses claims, which are rules that
// have been established elsewhere.
type ClaimPolicy interface {
	// Cut returns a successor that replaces all the ordinary
	// successors of the state, or nil if no claim applies.
	//
	// The used claims have already been applied along the path to
	// the state.
	Cut(ctx context.Context, state *core.ConstrainedTerm, claims []*core.Rule, used []*core.Rule) (*Successor, error)
}

// CutPolicy applies the first claim (in order) whose left side
// matches the whole state with a satisfiable constraint.  The claim's
// right side becomes the state's only successor.  A claim is never
// applied twice along the same path.
type CutPolicy struct {
	// Solver decides satisfiability.  Defaults to
	// constraint.DefaultSolver.
	Solver constraint.Solver
}

// DefaultClaimPolicy is used by a Search with claims but no Policy.
var DefaultClaimPolicy ClaimPolicy = &CutPolicy{}

func (p *CutPolicy) Cut(ctx context.Context, state *core.ConstrainedTerm, claims []*core.Rule, used []*core.Rule) (*Successor, error) {
	c, err := check(state)
	if err != nil {
		return nil, err
	}

	s := &Symbolic{Solver: p.Solver}
	m := c.Definition.Matcher()
	keep := keepVars(state)

CLAIMS:
	for _, claim := range claims {
		for _, u := range used {
			if u == claim {
				continue CLAIMS
			}
		}
		in := claim.Freshen(c)
		for _, res := range m.MatchConstrained(in.LHS, state.Term, nil) {
			succ, err := s.advance(ctx, state, nil, in, res, keep)
			if err != nil {
				return nil, err
			}
			if succ != nil {
				return succ, nil
			}
		}
	}

	return nil, nil
}
