package rewrite

import (
	"context"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/match"
	"github.com/Comcast/kexec/term"
)

// Symbolic rewrites terms with variables under a path constraint.
//
// A rule applies to a subterm when the rule's left side matches it
// symbolically.  The obligations of the match and the rule's
// (instantiated) side conditions are conjoined with the state's
// constraint, and the branch survives if the Solver doesn't find the
// result unsatisfiable.
type Symbolic struct {
	// Solver decides satisfiability.  Defaults to
	// constraint.DefaultSolver.
	Solver constraint.Solver
}

// NewSymbolic makes a Symbolic rewriter with the given Solver, which
// can be nil.
func NewSymbolic(s constraint.Solver) *Symbolic {
	return &Symbolic{
		Solver: s,
	}
}

func (r *Symbolic) solver() constraint.Solver {
	if r.Solver == nil {
		return constraint.DefaultSolver
	}
	return r.Solver
}

// Rewrite follows the first successor until there aren't any.  When
// more than one rule has a successor, a NonExhaustiveMatch warning is
// reported (unless the Definition is Unordered).
func (r *Symbolic) Rewrite(ctx context.Context, state *core.ConstrainedTerm, bound int) (*core.ConstrainedTerm, core.StopReason, error) {
	return run(ctx, r, state, bound)
}

// Successors computes every surviving way any rule applies anywhere,
// ordered by rule priority and then by position.
//
// Positions holding a variable are skipped: a rule isn't applied to
// an unknown term.  Owise rules are only considered at a position
// where no other rule applies.
func (r *Symbolic) Successors(ctx context.Context, state *core.ConstrainedTerm) ([]*Successor, error) {
	c, err := check(state)
	if err != nil {
		return nil, err
	}
	d := c.Definition
	m := d.Matcher()
	keep := keepVars(state)
	ps := positions(state.Term)

	applied := make(map[string]bool, len(ps))
	var acc []*Successor
	for _, rule := range d.TransitionRules() {
		for _, pos := range ps {
			if _, is := pos.t.(term.Variable); is {
				continue
			}
			if !applies(rule, pos.t) {
				continue
			}
			k := pathKey(pos.path)
			if rule.Owise() && applied[k] {
				continue
			}
			in := rule.Freshen(c)
			for _, res := range m.MatchConstrained(in.LHS, pos.t, nil) {
				succ, err := r.advance(ctx, state, pos.path, in, res, keep)
				if err != nil {
					return nil, err
				}
				if succ == nil {
					continue
				}
				acc = append(acc, succ)
				applied[k] = true
			}
		}
	}
	return acc, nil
}

// conjoin adds the instantiated and evaluated side conditions and the
// match obligations to the state's constraint.  Returns nil if the
// result is unsatisfiable.
func (r *Symbolic) conjoin(ctx context.Context, state *core.ConstrainedTerm, conds []constraint.Equality, res *match.Result) (*constraint.Constraint, error) {
	c := state.Context
	cons := state.Constraint
	if cons == nil {
		cons = constraint.New(c.Definition.Matcher().ConstraintSignature())
	}
	cons = cons.Merge(res.Constraint)

	var eqs []constraint.Equality
	for _, e := range conds {
		left, err := c.Evaluate(ctx, res.Subst.Apply(e.Left))
		if err != nil {
			return nil, err
		}
		right, err := c.Evaluate(ctx, res.Subst.Apply(e.Right))
		if err != nil {
			return nil, err
		}
		if left.Equal(right) {
			continue
		}
		eqs = append(eqs, constraint.Equality{Left: left, Right: right})
	}
	cons = cons.AddAll(eqs...)

	unsat, cons, err := cons.IsUnsatisfiable(ctx, r.solver())
	if err != nil {
		return nil, err
	}
	if unsat {
		return nil, nil
	}
	return cons, nil
}

// advance makes the successor for one match of a rule instance at a
// position, or returns nil if the branch is unsatisfiable.
func (r *Symbolic) advance(ctx context.Context, state *core.ConstrainedTerm, p term.Path, in *core.Instance, res *match.Result, keep func(term.Variable) bool) (*Successor, error) {
	c := state.Context
	m := c.Definition.Matcher()

	cons, err := r.conjoin(ctx, state, in.Conditions, res)
	if err != nil {
		return nil, err
	}
	if cons == nil {
		c.Stats.Pruned++
		return nil, nil
	}

	rhs := m.Normalize(res.Subst.Apply(in.RHS))
	next := cons.Apply(term.Replace(state.Term, p, rhs))
	if next, err = c.Evaluate(ctx, m.Normalize(next)); err != nil {
		return nil, err
	}

	return &Successor{
		State: &core.ConstrainedTerm{
			Term:       next,
			Constraint: cons.Project(keep),
			Context:    c,
		},
		Rule:  in.Rule,
		Path:  p,
		Subst: in.Original(res.Subst),
	}, nil
}

// Goal matches the goal symbolically.  The first match whose
// obligations are satisfiable with the state's constraint wins.
func (r *Symbolic) Goal(ctx context.Context, state *core.ConstrainedTerm, goal *core.Instance) (term.Substitution, *constraint.Constraint, bool, error) {
	c, err := check(state)
	if err != nil {
		return nil, nil, false, err
	}
	m := c.Definition.Matcher()
	for _, res := range m.MatchConstrained(goal.LHS, state.Term, nil) {
		cons, err := r.conjoin(ctx, state, goal.Conditions, res)
		if err != nil {
			return nil, nil, false, err
		}
		if cons == nil {
			continue
		}
		bs := make(term.Substitution, len(res.Subst))
		for v, t := range res.Subst {
			bs[v] = cons.Apply(t)
		}
		return bs, cons, true, nil
	}
	return nil, nil, false, nil
}
