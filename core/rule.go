package core

import (
	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/match"
	"github.com/Comcast/kexec/term"
)

// Rule is a rewrite rule: when the left side matches and the side
// conditions hold, the matched subterm is replaced by the
// instantiated right side.
//
// Left, Right, and the Requires are raw configurations (see
// term.RawBuilder).  Compile turns them into Terms.
type Rule struct {
	Name string `json:"name,omitempty" yaml:",omitempty"`
	Doc  string `json:"doc,omitempty" yaml:",omitempty"`

	Left  interface{} `json:"lhs"`
	Right interface{} `json:"rhs"`

	// Requires are side conditions.  Each one is an equality that
	// has to hold after the match substitution is applied and
	// function symbols are evaluated.
	Requires []*Condition `json:"requires,omitempty" yaml:",omitempty"`

	Attributes []string `json:"attributes,omitempty" yaml:",omitempty"`

	// Source and Location optionally say where this rule came
	// from.  Diagnostics about the rule use them.
	Source   diagnostics.Source    `json:"source,omitempty" yaml:",omitempty"`
	Location *diagnostics.Location `json:"location,omitempty" yaml:",omitempty"`

	compiled bool
	lhs      term.Term
	rhs      term.Term
	requires []constraint.Equality
	vars     []term.Variable
	locals   []term.Variable
}

// Condition is a side condition Left = Right.
type Condition struct {
	Left  interface{} `json:"left"`
	Right interface{} `json:"right"`
}

// NewRule makes a compiled Rule from Terms.
func NewRule(name string, lhs, rhs term.Term, requires ...constraint.Equality) *Rule {
	r := &Rule{
		Name:     name,
		Left:     term.ToRaw(lhs),
		Right:    term.ToRaw(rhs),
		lhs:      lhs,
		rhs:      rhs,
		requires: requires,
	}
	for _, e := range requires {
		r.Requires = append(r.Requires, &Condition{
			Left:  term.ToRaw(e.Left),
			Right: term.ToRaw(e.Right),
		})
	}
	r.analyze()
	r.compiled = true
	return r
}

// Copy makes a shallow copy that isn't compiled.
func (r *Rule) Copy() *Rule {
	if r == nil {
		return nil
	}
	return &Rule{
		Name:       r.Name,
		Doc:        r.Doc,
		Left:       r.Left,
		Right:      r.Right,
		Requires:   append([]*Condition(nil), r.Requires...),
		Attributes: append([]string(nil), r.Attributes...),
		Source:     r.Source,
		Location:   r.Location,
	}
}

// Compile builds the Rule's terms.
func (r *Rule) Compile(b term.Builder) error {
	if b == nil {
		b = term.DefaultBuilder
	}
	lhs, err := b.Term(r.Left)
	if err != nil {
		return &MalformedRule{Rule: r, Err: err}
	}
	rhs, err := b.Term(r.Right)
	if err != nil {
		return &MalformedRule{Rule: r, Err: err}
	}
	requires := make([]constraint.Equality, 0, len(r.Requires))
	for _, c := range r.Requires {
		if c == nil {
			continue
		}
		left, err := b.Term(c.Left)
		if err != nil {
			return &MalformedRule{Rule: r, Err: err}
		}
		right, err := b.Term(c.Right)
		if err != nil {
			return &MalformedRule{Rule: r, Err: err}
		}
		requires = append(requires, constraint.Equality{Left: left, Right: right})
	}
	r.lhs, r.rhs, r.requires = lhs, rhs, requires
	r.analyze()
	r.compiled = true
	return nil
}

func (r *Rule) analyze() {
	ts := make([]term.Term, 0, 2+2*len(r.requires))
	ts = append(ts, r.lhs, r.rhs)
	for _, e := range r.requires {
		ts = append(ts, e.Left, e.Right)
	}
	seen := make(map[term.Variable]bool)
	r.vars = nil
	for _, t := range ts {
		for _, v := range term.Vars(t) {
			if !seen[v] {
				seen[v] = true
				r.vars = append(r.vars, v)
			}
		}
	}
	inLeft := make(map[term.Variable]bool)
	for _, v := range term.Vars(r.lhs) {
		inLeft[v] = true
	}
	r.locals = nil
	for _, v := range r.vars {
		if !inLeft[v] {
			r.locals = append(r.locals, v)
		}
	}
}

// Compiled reports if the Rule's terms have been built.
func (r *Rule) Compiled() bool {
	return r.compiled
}

// LHS is the compiled left side.
func (r *Rule) LHS() term.Term {
	return r.lhs
}

// RHS is the compiled right side.
func (r *Rule) RHS() term.Term {
	return r.rhs
}

// Conditions are the compiled side conditions.
func (r *Rule) Conditions() []constraint.Equality {
	return r.requires
}

// Vars are all the rule's variables in order of first occurrence.
func (r *Rule) Vars() []term.Variable {
	return r.vars
}

// Locals are the variables that don't appear in the left side.
func (r *Rule) Locals() []term.Variable {
	return r.locals
}

// Has reports if the rule has the given attribute.
func (r *Rule) Has(attr string) bool {
	for _, a := range r.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// Owise reports if the rule has the owise attribute.
func (r *Rule) Owise() bool {
	return r.Has(AttrOwise)
}

// Instance is a freshened copy of a Rule's terms for one match
// attempt.
type Instance struct {
	Rule       *Rule
	LHS        term.Term
	RHS        term.Term
	Conditions []constraint.Equality

	// Renaming maps the rule's own variables to the fresh ones.
	Renaming term.Substitution
}

// Freshen renames all the rule's variables using the Context's
// counter.
func (r *Rule) Freshen(c *Context) *Instance {
	if 0 == len(r.vars) {
		return &Instance{
			Rule:       r,
			LHS:        r.lhs,
			RHS:        r.rhs,
			Conditions: r.requires,
		}
	}
	ts := make([]term.Term, 0, 2+2*len(r.requires))
	ts = append(ts, r.lhs, r.rhs)
	for _, e := range r.requires {
		ts = append(ts, e.Left, e.Right)
	}
	fresh, renaming := match.Freshen(c.Fresh, ts...)
	conds := make([]constraint.Equality, len(r.requires))
	for i := range conds {
		conds[i] = constraint.Equality{
			Left:  fresh[2+2*i],
			Right: fresh[3+2*i],
		}
	}
	return &Instance{
		Rule:       r,
		LHS:        fresh[0],
		RHS:        fresh[1],
		Conditions: conds,
		Renaming:   renaming,
	}
}

// Original maps a substitution for the instance's variables back to
// the rule's own variable names.
func (in *Instance) Original(s term.Substitution) term.Substitution {
	if len(in.Renaming) == 0 {
		return s
	}
	back := make(map[term.Variable]term.Variable, len(in.Renaming))
	for v, w := range in.Renaming {
		back[w.(term.Variable)] = v
	}
	acc := make(term.Substitution, len(s))
	for v, t := range s {
		if orig, have := back[v]; have {
			acc[orig] = t
		} else {
			acc[v] = t
		}
	}
	return acc
}

// Report makes a diagnostics.Report located at this rule.
func (r *Rule) Report(t diagnostics.Type, g diagnostics.Group, msg string) *diagnostics.Report {
	rep := diagnostics.New(t, g, msg)
	if r.Source != "" || r.Location != nil {
		rep.At(r.Source, r.Location)
	}
	return rep
}

func (r *Rule) String() string {
	if !r.compiled {
		return r.Name
	}
	s := r.lhs.String() + " => " + r.rhs.String()
	for i, e := range r.requires {
		if i == 0 {
			s += " requires "
		} else {
			s += " and "
		}
		s += e.String()
	}
	return s
}
