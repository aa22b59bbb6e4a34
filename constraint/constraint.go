/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package constraint provides path constraints: conjunctions of
// equalities between terms together with the substitution for the
// part that has already been solved.
//
// A Constraint is never modified after it's returned.  Add, Merge,
// and Simplify all return new Constraints, so the branches of a
// symbolic execution can share their common prefix.
package constraint

import (
	"sort"
	"strings"

	"github.com/Comcast/kexec/term"
)

// Signature tells the simplifier which labels are free constructors.
//
// Two applications of distinct constructors can never be equal, and
// an equality between applications of the same constructor holds
// exactly when their arguments are pairwise equal.  Nothing is known
// about other labels (functions, collections), so equalities
// involving them are kept as residue.
type Signature interface {
	IsConstructor(label string) bool
}

// AllConstructors is a Signature that treats every label as a free
// constructor.
var AllConstructors = allConstructors{}

type allConstructors struct{}

func (s allConstructors) IsConstructor(label string) bool {
	return true
}

// Equality is the obligation Left = Right.
type Equality struct {
	Left  term.Term
	Right term.Term
}

func (e Equality) String() string {
	return e.Left.String() + " = " + e.Right.String()
}

// Key is a canonical rendering that doesn't depend on orientation.
func (e Equality) Key() string {
	l, r := term.Key(e.Left), term.Key(e.Right)
	if r < l {
		l, r = r, l
	}
	return l + "=" + r
}

// Constraint is a conjunction of Equalities plus a solved
// Substitution.
type Constraint struct {
	sig Signature

	// pending are equalities that haven't been simplified yet.
	pending []Equality

	// residue are simplified equalities that couldn't be solved.
	residue []Equality

	// solved maps variables to terms that don't mention any
	// solved variable.
	solved term.Substitution

	falsified bool
}

// New returns the trivially true Constraint.
//
// A nil Signature means AllConstructors.
func New(sig Signature) *Constraint {
	if sig == nil {
		sig = AllConstructors
	}
	return &Constraint{
		sig:    sig,
		solved: term.NewSubstitution(),
	}
}

// False returns a Constraint that's already known to be false.
func False(sig Signature) *Constraint {
	c := New(sig)
	c.falsified = true
	return c
}

func (c *Constraint) copy() *Constraint {
	return &Constraint{
		sig:       c.sig,
		pending:   append([]Equality(nil), c.pending...),
		residue:   append([]Equality(nil), c.residue...),
		solved:    c.solved.Copy(),
		falsified: c.falsified,
	}
}

// Add returns a new Constraint with the given equality conjoined.
//
// The result isn't simplified.
func (c *Constraint) Add(left, right term.Term) *Constraint {
	return c.AddAll(Equality{left, right})
}

// AddAll returns a new Constraint with the given equalities
// conjoined.
func (c *Constraint) AddAll(eqs ...Equality) *Constraint {
	if len(eqs) == 0 {
		return c
	}
	d := c.copy()
	d.pending = append(d.pending, eqs...)
	return d
}

// Merge returns the conjunction of the two Constraints.  The result
// isn't simplified.
func (c *Constraint) Merge(other *Constraint) *Constraint {
	if other == nil || other.IsTrue() {
		return c
	}
	d := c.copy()
	if other.falsified {
		d.falsified = true
		return d
	}
	for _, v := range other.solved.Vars() {
		d.pending = append(d.pending, Equality{v, other.solved[v]})
	}
	d.pending = append(d.pending, other.residue...)
	d.pending = append(d.pending, other.pending...)
	return d
}

// Simplify solves what it can by syntactic unification.
//
// Variables are bound when they are equated with a term that doesn't
// contain them.  Applications of constructors are decomposed, and a
// clash between distinct constructors (or constants) makes the
// Constraint false.  Everything else stays as residue.
func (c *Constraint) Simplify() *Constraint {
	if c.falsified || len(c.pending) == 0 {
		return c
	}

	d := &Constraint{
		sig:    c.sig,
		solved: c.solved.Copy(),
	}

	work := make([]Equality, 0, len(c.pending)+len(c.residue))
	work = append(work, c.pending...)
	work = append(work, c.residue...)

	for 0 < len(work) {
		e := work[0]
		work = work[1:]

		l, r := d.solved.Apply(e.Left), d.solved.Apply(e.Right)
		if l.Equal(r) {
			continue
		}

		if v, is := l.(term.Variable); is {
			if !d.bind(v, r, &work) {
				return False(c.sig)
			}
			continue
		}
		if v, is := r.(term.Variable); is {
			if !d.bind(v, l, &work) {
				return False(c.sig)
			}
			continue
		}

		_, lIsConst := l.(*term.Constant)
		_, rIsConst := r.(*term.Constant)
		switch {
		case lIsConst && rIsConst:
			// Equal constants were dropped above.
			return False(c.sig)
		case lIsConst:
			if d.sig.IsConstructor(r.Label()) {
				return False(c.sig)
			}
			d.residue = append(d.residue, Equality{l, r})
		case rIsConst:
			if d.sig.IsConstructor(l.Label()) {
				return False(c.sig)
			}
			d.residue = append(d.residue, Equality{l, r})
		default:
			lcons, rcons := d.sig.IsConstructor(l.Label()), d.sig.IsConstructor(r.Label())
			if !lcons || !rcons {
				d.residue = append(d.residue, Equality{l, r})
				continue
			}
			la, ra := l.Args(), r.Args()
			if l.Label() != r.Label() || len(la) != len(ra) {
				return False(c.sig)
			}
			for i := range la {
				work = append(work, Equality{la[i], ra[i]})
			}
		}
	}

	return d
}

// bind records v = t.  Returns false if the binding can never hold.
func (d *Constraint) bind(v term.Variable, t term.Term, work *[]Equality) bool {
	if v.IsAnonymous() {
		return true
	}
	if w, is := t.(term.Variable); is && w.IsAnonymous() {
		return true
	}
	if term.Occurs(v, t) {
		if d.constructorPath(v, t) {
			return false
		}
		d.residue = append(d.residue, Equality{v, t})
		return true
	}

	b := term.Substitution{v: t}
	for w, u := range d.solved {
		d.solved[w] = b.Apply(u)
	}
	d.solved[v] = t

	// Earlier residue might simplify now.
	if 0 < len(d.residue) {
		*work = append(*work, d.residue...)
		d.residue = nil
	}
	return true
}

// constructorPath reports if v occurs in t beneath only constructors,
// in which case v = t has no finite solution.
func (d *Constraint) constructorPath(v term.Variable, t term.Term) bool {
	switch vv := t.(type) {
	case term.Variable:
		return vv == v
	case *term.App:
		if !d.sig.IsConstructor(vv.Name) {
			return false
		}
		for _, kid := range vv.Kids {
			if d.constructorPath(v, kid) {
				return true
			}
		}
	}
	return false
}

// IsFalse reports if simplification has found a contradiction.
//
// Call Simplify first.
func (c *Constraint) IsFalse() bool {
	return c.falsified
}

// IsTrue reports if the Constraint has no obligations at all.
func (c *Constraint) IsTrue() bool {
	return !c.falsified && len(c.pending) == 0 && len(c.residue) == 0 && len(c.solved) == 0
}

// IsSolved reports if everything has been reduced to a substitution.
func (c *Constraint) IsSolved() bool {
	return !c.falsified && len(c.pending) == 0 && len(c.residue) == 0
}

// Substitution returns a copy of the solved part.
func (c *Constraint) Substitution() term.Substitution {
	return c.solved.Copy()
}

// Apply applies the solved part to the term.
func (c *Constraint) Apply(t term.Term) term.Term {
	return c.solved.Apply(t)
}

// Equalities returns the unsolved obligations.
func (c *Constraint) Equalities() []Equality {
	acc := make([]Equality, 0, len(c.residue)+len(c.pending))
	acc = append(acc, c.residue...)
	return append(acc, c.pending...)
}

// Key returns a canonical string for deduplicating states.
func (c *Constraint) Key() string {
	if c == nil {
		return "true"
	}
	if c.falsified {
		return "false"
	}
	var acc []string
	for _, v := range c.solved.Vars() {
		acc = append(acc, term.Key(v)+"="+term.Key(c.solved[v]))
	}
	for _, e := range c.Equalities() {
		acc = append(acc, e.Key())
	}
	sort.Strings(acc)
	return strings.Join(acc, "&")
}

func (c *Constraint) String() string {
	if c.falsified {
		return "false"
	}
	if c.IsTrue() {
		return "true"
	}
	var acc []string
	for _, v := range c.solved.Vars() {
		acc = append(acc, v.String()+" = "+c.solved[v].String())
	}
	for _, e := range c.Equalities() {
		acc = append(acc, e.String())
	}
	return strings.Join(acc, " /\\ ")
}

// Project returns a copy that only keeps the solved bindings of the
// variables that satisfy keep.  Unsolved equalities are all kept.
//
// Rewriting uses this to forget the bindings of a rule's fresh
// variables once they have been applied, so that states reached by
// different paths can be recognized as the same state.
func (c *Constraint) Project(keep func(term.Variable) bool) *Constraint {
	d := c.copy()
	for v := range d.solved {
		if !keep(v) {
			delete(d.solved, v)
		}
	}
	return d
}

// Signature returns the Signature the Constraint was made with.
func (c *Constraint) Signature() Signature {
	return c.sig
}
