package core

import (
	"context"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/term"
)

// Evaluate evaluates the function symbols in the term, innermost
// first.
//
// An application of a function symbol is given to the symbol's Hook
// (if any) and then to the symbol's function rules in order.  If the
// Hook declines and no rule applies, the application stays as it is.
// That's normal when the arguments aren't ground.  A function symbol
// with neither rules nor a Hook gives an UnresolvedFunction error
// (or MissingHook if it was declared as a hook).
//
// Results of ground applications are cached in the Context.
func (c *Context) Evaluate(ctx context.Context, t term.Term) (term.Term, error) {
	if c.Definition == nil {
		return nil, &NotCompiled{Definition: &Definition{}}
	}
	if !c.Definition.compiled {
		return nil, &NotCompiled{Definition: c.Definition}
	}
	return c.eval(ctx, t, 0)
}

func (c *Context) eval(ctx context.Context, t term.Term, depth int) (term.Term, error) {
	if 0 < c.MaxEvalDepth && c.MaxEvalDepth < depth {
		return nil, TooDeep
	}

	a, is := t.(*term.App)
	if !is {
		return t, nil
	}

	var kids []term.Term
	for i, kid := range a.Kids {
		y, err := c.eval(ctx, kid, depth+1)
		if err != nil {
			return nil, err
		}
		if kids == nil {
			if y == kid {
				continue
			}
			kids = make([]term.Term, len(a.Kids))
			copy(kids, a.Kids[:i])
		}
		kids[i] = y
	}
	if kids != nil {
		a = term.NewApp(a.Name, kids...)
	}

	d := c.Definition
	if !d.IsFunction(a.Name) {
		if kids == nil {
			return t, nil
		}
		return d.Matcher().Normalize(a), nil
	}

	var key string
	if a.Ground() {
		key = term.Key(a)
		if x, have := c.memo[key]; have {
			return x, nil
		}
	}

	x, err := c.call(ctx, a, depth)
	if err != nil {
		return nil, err
	}
	if key != "" {
		c.memo[key] = x
	}
	return x, nil
}

func (c *Context) call(ctx context.Context, a *term.App, depth int) (term.Term, error) {
	d := c.Definition

	h := d.Hook(a.Name)
	if h != nil {
		x, err := h.Apply(ctx, a.Kids)
		if err != nil {
			return nil, err
		}
		if x != nil {
			c.Stats.Evaluations++
			return c.eval(ctx, x, depth+1)
		}
	}

	rules := d.FunctionRules(a.Name)
	if 0 == len(rules) {
		if h == nil {
			if d.Symbol(a.Name).Has(AttrHook) {
				return nil, &MissingHook{Label: a.Name}
			}
			return nil, &UnresolvedFunction{
				Label: a.Name,
				Term:  a.String(),
			}
		}
		return a, nil
	}

	m := d.Matcher()
	for _, owise := range []bool{false, true} {
		for _, r := range rules {
			if r.Owise() != owise {
				continue
			}
			in := r.Freshen(c)
			for _, bs := range m.Match(in.LHS, a) {
				bs, ok, err := c.holds(ctx, in.Conditions, bs, depth)
				if err != nil {
					return nil, err
				}
				if !ok {
					continue
				}
				c.Stats.Evaluations++
				return c.eval(ctx, m.Normalize(bs.Apply(in.RHS)), depth+1)
			}
		}
	}

	return a, nil
}

// Holds checks side conditions under the given substitution.
//
// Each condition's sides are instantiated and evaluated, and then the
// left side is matched against the right.  A left side with unbound
// variables can bind them, so a condition can compute a value for a
// variable that only appears on the right side of the rule.  Returns
// the extended substitution.
func (c *Context) Holds(ctx context.Context, conds []constraint.Equality, bs term.Substitution) (term.Substitution, bool, error) {
	return c.holds(ctx, conds, bs, 0)
}

func (c *Context) holds(ctx context.Context, conds []constraint.Equality, bs term.Substitution, depth int) (term.Substitution, bool, error) {
	m := c.Definition.Matcher()
	for _, e := range conds {
		l, err := c.eval(ctx, bs.Apply(e.Left), depth+1)
		if err != nil {
			return nil, false, err
		}
		r, err := c.eval(ctx, bs.Apply(e.Right), depth+1)
		if err != nil {
			return nil, false, err
		}
		if l.Equal(r) {
			continue
		}
		bss := m.Match(l, r)
		if 0 == len(bss) {
			return bs, false, nil
		}
		bs = bs.Compose(bss[0])
	}
	return bs, true, nil
}
