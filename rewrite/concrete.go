package rewrite

import (
	"context"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"
)

// Concrete rewrites by plain matching.  Constraints are carried along
// but never consulted.
//
// A Concrete has no state of its own, so one can serve any number of
// concurrent runs.
type Concrete struct{}

// NewConcrete makes a Concrete rewriter.
func NewConcrete() *Concrete {
	return &Concrete{}
}

// firing is a rule instance that applies at a position.
type firing struct {
	rule *core.Rule
	in   *core.Instance
	bs   term.Substitution
}

// fire tries the rule at the subterm.  Returns the first match whose
// side conditions hold, or every such match if all is true.
func fire(ctx context.Context, c *core.Context, r *core.Rule, s term.Term, all bool) ([]*firing, error) {
	m := c.Definition.Matcher()
	in := r.Freshen(c)
	var acc []*firing
	for _, bs := range m.Match(in.LHS, s) {
		bs, ok, err := c.Holds(ctx, in.Conditions, bs)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		acc = append(acc, &firing{
			rule: r,
			in:   in,
			bs:   bs,
		})
		if !all {
			break
		}
	}
	return acc, nil
}

// replace puts the instantiated and evaluated right side of the
// firing at the path.
func (f *firing) replace(ctx context.Context, c *core.Context, t term.Term, p term.Path) (term.Term, error) {
	m := c.Definition.Matcher()
	rhs, err := c.Evaluate(ctx, m.Normalize(f.bs.Apply(f.in.RHS)))
	if err != nil {
		return nil, err
	}
	return m.Normalize(term.Replace(t, p, rhs)), nil
}

// Rewrite applies the first rule, in priority order, that applies
// anywhere, at the first position (in pre-order) where it applies,
// and repeats.
//
// When more than one rule applies, a NonExhaustiveMatch warning is
// reported (unless the Definition is Unordered) and the first one is
// used.
func (r *Concrete) Rewrite(ctx context.Context, state *core.ConstrainedTerm, bound int) (*core.ConstrainedTerm, core.StopReason, error) {
	c, err := check(state)
	if err != nil {
		return nil, core.InternalError, err
	}

	t := state.Term
	done := func(reason core.StopReason) (*core.ConstrainedTerm, core.StopReason, error) {
		return &core.ConstrainedTerm{
			Term:       t,
			Constraint: state.Constraint,
			Context:    c,
		}, reason, nil
	}

	for steps := 0; bound < 0 || steps < bound; steps++ {
		next, err := r.step(ctx, c, t)
		if err != nil {
			return nil, core.InternalError, err
		}
		if next == nil {
			return done(core.Done)
		}
		t = next
		c.Stats.Steps++
	}

	return done(core.Limited)
}

// RewriteTerm is Rewrite for a bare term.
func (r *Concrete) RewriteTerm(ctx context.Context, c *core.Context, t term.Term, bound int) (term.Term, core.StopReason, error) {
	st, reason, err := r.Rewrite(ctx, core.NewConstrainedTerm(t, c), bound)
	if err != nil {
		return nil, reason, err
	}
	return st.Term, reason, nil
}

// step returns nil when the term is a normal form.
func (r *Concrete) step(ctx context.Context, c *core.Context, t term.Term) (term.Term, error) {
	d := c.Definition
	ps := positions(t)
	var (
		chosen  *firing
		at      position
		enabled []*core.Rule
		paths   []term.Path
	)
	for _, rule := range d.TransitionRules() {
		if chosen != nil && (rule.Owise() || d.Unordered) {
			break
		}
		for _, pos := range ps {
			if !applies(rule, pos.t) {
				continue
			}
			fs, err := fire(ctx, c, rule, pos.t, false)
			if err != nil {
				return nil, err
			}
			if 0 == len(fs) {
				continue
			}
			if chosen == nil {
				chosen = fs[0]
				at = pos
			}
			enabled = append(enabled, rule)
			paths = append(paths, pos.path)
			break
		}
	}
	if chosen == nil {
		return nil, nil
	}
	if 1 < len(enabled) {
		warn(c, t, enabled, paths)
	}
	return chosen.replace(ctx, c, t, at.path)
}

// Successors returns every way any rule applies anywhere, ordered by
// rule priority and then by position.  Owise rules are only
// considered at a position where no other rule applies.
func (r *Concrete) Successors(ctx context.Context, state *core.ConstrainedTerm) ([]*Successor, error) {
	c, err := check(state)
	if err != nil {
		return nil, err
	}
	d := c.Definition
	ps := positions(state.Term)

	applied := make(map[string]bool, len(ps))
	var acc []*Successor
	for _, rule := range d.TransitionRules() {
		for _, pos := range ps {
			if !applies(rule, pos.t) {
				continue
			}
			k := pathKey(pos.path)
			if rule.Owise() && applied[k] {
				continue
			}
			fs, err := fire(ctx, c, rule, pos.t, true)
			if err != nil {
				return nil, err
			}
			for _, f := range fs {
				next, err := f.replace(ctx, c, state.Term, pos.path)
				if err != nil {
					return nil, err
				}
				acc = append(acc, &Successor{
					State: &core.ConstrainedTerm{
						Term:       next,
						Constraint: state.Constraint,
						Context:    c,
					},
					Rule:  rule,
					Path:  pos.path,
					Subst: f.in.Original(f.bs),
				})
				applied[k] = true
			}
		}
	}
	return acc, nil
}

// Goal matches the goal by plain matching.
func (r *Concrete) Goal(ctx context.Context, state *core.ConstrainedTerm, goal *core.Instance) (term.Substitution, *constraint.Constraint, bool, error) {
	c, err := check(state)
	if err != nil {
		return nil, nil, false, err
	}
	m := c.Definition.Matcher()
	for _, bs := range m.Match(goal.LHS, state.Term) {
		bs, ok, err := c.Holds(ctx, goal.Conditions, bs)
		if err != nil {
			return nil, nil, false, err
		}
		if ok {
			return bs, state.Constraint, true, nil
		}
	}
	return nil, nil, false, nil
}
