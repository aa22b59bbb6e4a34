/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package match implements the core pattern matcher.
//
// Match does ground matching: a pattern's variables bind to subterms
// of the subject, and a mismatch means no match.  MatchConstrained
// does the symbolic version: where ground matching would fail
// because the subject isn't known well enough, an equality is
// recorded instead, and the caller decides what to do with the
// resulting Constraint.
//
// Both report failure as an empty result, never as an error.
package match

import (
	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/term"
)

// Kind says how the arguments of a label are matched.
type Kind int

const (
	// Free labels have ordered, fixed-arity arguments.
	Free Kind = iota

	// List labels are associative: list(a, list(b, c)) is
	// list(a, b, c).
	List

	// Bag labels are associative and commutative.
	Bag
)

func (k Kind) String() string {
	switch k {
	case List:
		return "list"
	case Bag:
		return "bag"
	default:
		return "free"
	}
}

// Collection describes a List or Bag label.
type Collection struct {
	Kind Kind

	// Sort is the sort of the collection itself.  A pattern
	// variable with this sort that appears directly among the
	// collection's arguments is a rest variable: it matches the
	// (possibly empty) remainder of the collection.
	Sort string
}

type Matcher struct {
	// Collections gives the labels that aren't Free.
	//
	// List decomposition: the pattern elements before the rest
	// variable match a prefix of the subject, the ones after match
	// a suffix, and the rest variable gets the segment in between
	// (as an application of the same label).  Without a rest
	// variable, the arities must agree.
	//
	// Bag decomposition: the pattern elements (other than the rest
	// variable) are matched left to right.  Each one is tried
	// against every subject element that hasn't been consumed
	// yet, in ascending index order, and every viable assignment is
	// reported in that order.  The rest variable gets the unconsumed
	// elements in their original order.  Without a rest variable,
	// the sizes must agree.
	//
	// In both cases only the first rest variable counts.  Any other
	// variable of the collection's sort is an ordinary element.
	Collections map[string]Collection

	// Signature is used by MatchConstrained to decide when a
	// mismatch is final.  A clash between two constructors is; a
	// clash involving a function symbol or a subject variable
	// becomes an equality.  Nil means every label is a
	// constructor.
	Signature constraint.Signature
}

// DefaultMatcher has no collections.
var DefaultMatcher = &Matcher{}

// Result is one way that a pattern matched a subject.
type Result struct {
	Subst term.Substitution

	// Constraint holds the equalities that must hold for the
	// match to be real.  It's not simplified.  Ground matching
	// always gives the trivially true Constraint.
	Constraint *constraint.Constraint
}

// state is a partial match.  A state is owned by one branch, so
// it's modified in place; the bag decomposition copies states before
// branching.
type state struct {
	bs  term.Substitution
	eqs []constraint.Equality
}

func (st *state) copy() *state {
	return &state{
		bs:  st.bs.Copy(),
		eqs: append([]constraint.Equality(nil), st.eqs...),
	}
}

// Match attempts to match the given subject with the given pattern.
// Returns an array of Substitutions.
//
// Note that this function can return multiple substitutions.  This
// ambiguity is introduced when a pattern contains a collection.
func (m *Matcher) Match(pattern, subject term.Term) []term.Substitution {
	return m.Matches(pattern, subject, nil)
}

// Matches is a version of Match that takes initial bindings.
//
// Those initial bindings are not modified.
func (m *Matcher) Matches(pattern, subject term.Term, initial term.Substitution) []term.Substitution {
	sts := m.start(pattern, subject, initial, false)
	acc := make([]term.Substitution, 0, len(sts))
	for _, st := range sts {
		acc = append(acc, st.bs)
	}
	return acc
}

// MatchConstrained is the symbolic version of Match.
func (m *Matcher) MatchConstrained(pattern, subject term.Term, initial term.Substitution) []*Result {
	sts := m.start(pattern, subject, initial, true)
	acc := make([]*Result, 0, len(sts))
	for _, st := range sts {
		eqs := make([]constraint.Equality, len(st.eqs))
		for i, e := range st.eqs {
			eqs[i] = constraint.Equality{
				Left:  st.bs.Apply(e.Left),
				Right: e.Right,
			}
		}
		acc = append(acc, &Result{
			Subst:      st.bs,
			Constraint: constraint.New(m.ConstraintSignature()).AddAll(eqs...),
		})
	}
	return acc
}

func (m *Matcher) start(pattern, subject term.Term, initial term.Substitution, symbolic bool) []*state {
	st := &state{}
	if initial == nil {
		st.bs = term.NewSubstitution()
	} else {
		st.bs = initial.Copy()
	}
	return m.match(pattern, subject, st, symbolic)
}

// ConstraintSignature is the Signature for Constraints built from
// this Matcher's results.  Collections aren't free constructors, so
// equalities between them aren't decomposed.
func (m *Matcher) ConstraintSignature() constraint.Signature {
	return collectionAware{m}
}

type collectionAware struct {
	m *Matcher
}

func (s collectionAware) IsConstructor(label string) bool {
	if _, is := s.m.Collections[label]; is {
		return false
	}
	return s.m.Signature == nil || s.m.Signature.IsConstructor(label)
}

// isFunction reports if an application of the label could equal a
// term with a different label.  Collections can't: a collection is
// never equal to an application of some other label.
func (m *Matcher) isFunction(label string) bool {
	if _, is := m.Collections[label]; is {
		return false
	}
	return m.Signature != nil && !m.Signature.IsConstructor(label)
}

// postpone records pattern = subject when symbolic.
func (m *Matcher) postpone(pattern, subject term.Term, st *state, symbolic bool) []*state {
	if !symbolic {
		return nil
	}
	st.eqs = append(st.eqs, constraint.Equality{
		Left:  pattern,
		Right: subject,
	})
	return []*state{st}
}

// match extends the given state, which it may modify.
func (m *Matcher) match(p, s term.Term, st *state, symbolic bool) []*state {
	switch vv := p.(type) {
	case term.Variable:
		if vv.IsAnonymous() {
			return []*state{st}
		}
		if b, have := st.bs[vv]; have {
			if b.Equal(s) {
				return []*state{st}
			}
			return m.postpone(b, s, st, symbolic)
		}
		st.bs[vv] = s
		return []*state{st}

	case *term.Constant:
		if vv.Equal(s) {
			return []*state{st}
		}
		switch s.(type) {
		case term.Variable:
			return m.postpone(p, s, st, symbolic)
		case *term.App:
			if m.isFunction(s.Label()) {
				return m.postpone(p, s, st, symbolic)
			}
		}
		return nil

	case *term.App:
		switch sv := s.(type) {
		case term.Variable:
			return m.postpone(p, s, st, symbolic)
		case *term.App:
			if vv.Name != sv.Name {
				if m.isFunction(vv.Name) || m.isFunction(sv.Name) {
					return m.postpone(p, s, st, symbolic)
				}
				return nil
			}
			if c, is := m.Collections[vv.Name]; is && c.Kind != Free {
				return m.collection(c, vv, sv, st, symbolic)
			}
			if len(vv.Kids) != len(sv.Kids) {
				return nil
			}
			return m.matchAll(vv.Kids, sv.Kids, []*state{st}, symbolic)
		default:
			if m.isFunction(vv.Name) {
				return m.postpone(p, s, st, symbolic)
			}
			return nil
		}
	}
	return nil
}

// matchAll matches the patterns pairwise against the subjects,
// extending each of the given states.
func (m *Matcher) matchAll(ps, ss []term.Term, sts []*state, symbolic bool) []*state {
	for i, p := range ps {
		var acc []*state
		for _, st := range sts {
			acc = append(acc, m.match(p, ss[i], st, symbolic)...)
		}
		if 0 == len(acc) {
			return nil
		}
		sts = acc
	}
	return sts
}

// restVariable finds the first variable with the collection's sort.
func restVariable(c Collection, xs []term.Term) int {
	if c.Sort == "" {
		return -1
	}
	for i, x := range xs {
		if v, is := x.(term.Variable); is && v.Sort == c.Sort {
			return i
		}
	}
	return -1
}

func (m *Matcher) collection(c Collection, p, s *term.App, st *state, symbolic bool) []*state {
	// A subject with its own rest variable can't be decomposed
	// without knowing what that variable stands for.
	if symbolic && 0 <= restVariable(c, s.Kids) {
		return m.postpone(p, s, st, symbolic)
	}

	r := restVariable(c, p.Kids)
	n, k := len(p.Kids), len(s.Kids)

	if r < 0 {
		if n != k {
			return nil
		}
		if c.Kind == List {
			return m.matchAll(p.Kids, s.Kids, []*state{st}, symbolic)
		}
		return m.bag(p.Kids, nil, p.Name, s.Kids, st, symbolic)
	}

	if k < n-1 {
		return nil
	}

	rest := p.Kids[r].(term.Variable)

	if c.Kind == List {
		suffix := n - 1 - r
		sts := m.matchAll(p.Kids[:r], s.Kids[:r], []*state{st}, symbolic)
		sts = m.matchAll(p.Kids[r+1:], s.Kids[k-suffix:], sts, symbolic)
		segment := term.NewApp(p.Name, s.Kids[r:k-suffix]...)
		var acc []*state
		for _, st := range sts {
			acc = append(acc, m.match(rest, segment, st, symbolic)...)
		}
		return acc
	}

	fixed := make([]term.Term, 0, n-1)
	fixed = append(fixed, p.Kids[:r]...)
	fixed = append(fixed, p.Kids[r+1:]...)
	return m.bag(fixed, &rest, p.Name, s.Kids, st, symbolic)
}

// bag does the backtracking bag decomposition.
func (m *Matcher) bag(fixed []term.Term, rest *term.Variable, label string, elems []term.Term, st *state, symbolic bool) []*state {
	type branch struct {
		st   *state
		used []bool
	}

	branches := []branch{{st, make([]bool, len(elems))}}

	for _, p := range fixed {
		var next []branch
		for _, b := range branches {
			for j, e := range elems {
				if b.used[j] {
					continue
				}
				for _, ext := range m.match(p, e, b.st.copy(), symbolic) {
					used := make([]bool, len(b.used))
					copy(used, b.used)
					used[j] = true
					next = append(next, branch{ext, used})
				}
			}
		}
		if 0 == len(next) {
			return nil
		}
		branches = next
	}

	var acc []*state
	for _, b := range branches {
		left := make([]term.Term, 0, len(elems))
		for j, e := range elems {
			if !b.used[j] {
				left = append(left, e)
			}
		}
		if rest == nil {
			if 0 == len(left) {
				acc = append(acc, b.st)
			}
			continue
		}
		acc = append(acc, m.match(*rest, term.NewApp(label, left...), b.st, symbolic)...)
	}

	return dedup(acc)
}

// dedup removes states that are the same as an earlier state.
// Different assignments of bag elements can give the same bindings
// when the subject has duplicate elements.
func dedup(sts []*state) []*state {
	if len(sts) < 2 {
		return sts
	}
	seen := make(map[string]bool, len(sts))
	acc := sts[:0]
	for _, st := range sts {
		k := st.key()
		if seen[k] {
			continue
		}
		seen[k] = true
		acc = append(acc, st)
	}
	return acc
}

func (st *state) key() string {
	s := st.bs.String()
	for _, e := range st.eqs {
		s += "&" + e.Key()
	}
	return s
}

// Normalize flattens nested applications of List and Bag labels.
//
// Instantiating a pattern can put a collection (say, the value of a
// rest variable) directly inside another application of the same
// label.  Normalize splices it in.
func (m *Matcher) Normalize(t term.Term) term.Term {
	if 0 == len(m.Collections) {
		return t
	}
	return term.Flatten(t, func(label string) bool {
		c, is := m.Collections[label]
		return is && c.Kind != Free
	})
}

// Freshen renames all the variables in the given terms with the given
// function.  Returns the renamed terms and the renaming.
//
// Rules are freshened this way before every match attempt so that
// their variables can't collide with variables in the subject.
func Freshen(fresh func(term.Variable) term.Variable, ts ...term.Term) ([]term.Term, term.Substitution) {
	var vs []term.Variable
	seen := make(map[term.Variable]bool)
	for _, t := range ts {
		for _, v := range term.Vars(t) {
			if !seen[v] {
				seen[v] = true
				vs = append(vs, v)
			}
		}
	}
	renaming := term.Rename(vs, fresh)
	acc := make([]term.Term, len(ts))
	for i, t := range ts {
		acc[i] = renaming.Apply(t)
	}
	return acc, renaming
}
