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

// Package rewrite applies the transition rules of a core.Definition.
//
// There are two Rewriters.  Concrete rewrites ground terms by plain
// matching and ignores constraints.  Symbolic rewrites terms with
// variables under a path constraint, splitting into one branch per
// way a rule can apply and pruning the branches whose constraints
// are unsatisfiable.
//
// Either one can drive a Search, which explores the states reachable
// from an initial state breadth-first and reports the ones that match
// a goal pattern.
package rewrite

import (
	"context"
	"strconv"
	"strings"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"
)

// Stepper computes the states that are one rewrite step away from a
// given state.
type Stepper interface {
	// Successors returns the successors in a fixed order: by
	// rule priority, then by position in pre-order, then by
	// match.  No successors means the state is a normal form.
	Successors(ctx context.Context, state *core.ConstrainedTerm) ([]*Successor, error)

	// Goal matches the (freshened) goal pattern against the state.
	// Returns the match substitution and the state's constraint
	// conjoined with any obligations of the match.
	Goal(ctx context.Context, state *core.ConstrainedTerm, goal *core.Instance) (term.Substitution, *constraint.Constraint, bool, error)
}

// Rewriter is a Stepper that can also run.
type Rewriter interface {
	Stepper

	// Rewrite takes up to bound steps (or any number if bound is
	// negative) and returns the last state.
	Rewrite(ctx context.Context, state *core.ConstrainedTerm, bound int) (*core.ConstrainedTerm, core.StopReason, error)
}

// Successor is one way a state can take a step.
type Successor struct {
	State *core.ConstrainedTerm

	// Rule is the rule (or claim) that was applied.
	Rule *core.Rule

	// Path is the position where the rule was applied.
	Path term.Path

	// Subst is the match substitution in terms of the rule's own
	// variables.
	Subst term.Substitution
}

type position struct {
	path term.Path
	t    term.Term
}

// positions lists the subterms in pre-order.
func positions(t term.Term) []position {
	var acc []position
	term.Walk(t, func(p term.Path, x term.Term) bool {
		acc = append(acc, position{
			path: append(term.Path{}, p...),
			t:    x,
		})
		return true
	})
	return acc
}

func check(state *core.ConstrainedTerm) (*core.Context, error) {
	if state == nil || state.Context == nil || state.Context.Definition == nil {
		return nil, NoContext
	}
	c := state.Context
	if !c.Definition.Compiled() {
		return nil, &core.NotCompiled{Definition: c.Definition}
	}
	return c, nil
}

// run is the single-run loop: take the first successor until there
// aren't any.
func run(ctx context.Context, s Stepper, state *core.ConstrainedTerm, bound int) (*core.ConstrainedTerm, core.StopReason, error) {
	c, err := check(state)
	if err != nil {
		return nil, core.InternalError, err
	}
	for steps := 0; bound < 0 || steps < bound; steps++ {
		succs, err := s.Successors(ctx, state)
		if err != nil {
			return nil, core.InternalError, err
		}
		if 0 == len(succs) {
			return state, core.Done, nil
		}
		c.Stats.Branches += len(succs)
		if !c.Definition.Unordered {
			var (
				enabled []*core.Rule
				paths   []term.Path
				seen    = make(map[*core.Rule]bool, len(succs))
			)
			for _, succ := range succs {
				// A single run stops looking at owise rules
				// once a regular one applies.
				if seen[succ.Rule] || (succ.Rule.Owise() && !succs[0].Rule.Owise()) {
					continue
				}
				seen[succ.Rule] = true
				enabled = append(enabled, succ.Rule)
				paths = append(paths, succ.Path)
			}
			if 1 < len(enabled) {
				warn(c, state.Term, enabled, paths)
			}
		}
		state = succs[0].State
		c.Stats.Steps++
	}
	return state, core.Limited, nil
}

// warn reports a NonExhaustiveMatch for the rules that were enabled,
// each at the given path.  The report is located at the common path
// if there is one.
func warn(c *core.Context, t term.Term, rules []*core.Rule, paths []term.Path) {
	var p term.Path
	at := t
	if samePath(paths) {
		p = paths[0]
		at = term.At(t, p)
	}
	e := nonExhaustive(at, p, rules)
	c.ReportOnce(e.Key(), e.Report())
}

func samePath(paths []term.Path) bool {
	k := pathKey(paths[0])
	for _, p := range paths[1:] {
		if pathKey(p) != k {
			return false
		}
	}
	return true
}

func pathKey(p term.Path) string {
	var b strings.Builder
	for i, n := range p {
		if 0 < i {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// applies reports if the rule's left side could match at the
// subterm, judging by labels only.
func applies(r *core.Rule, t term.Term) bool {
	lhs := r.LHS()
	if _, is := lhs.(term.Variable); is {
		return true
	}
	if _, is := t.(term.Variable); is {
		return false
	}
	return lhs.Label() == t.Label()
}

// keepVars returns a predicate for the variables of the state, which
// are the only ones whose bindings a successor's constraint needs.
func keepVars(state *core.ConstrainedTerm) func(term.Variable) bool {
	vs := make(map[term.Variable]bool)
	for _, v := range term.Vars(state.Term) {
		vs[v] = true
	}
	if state.Constraint != nil {
		for v := range state.Constraint.Substitution() {
			vs[v] = true
		}
		for _, e := range state.Constraint.Equalities() {
			for _, v := range term.Vars(e.Left) {
				vs[v] = true
			}
			for _, v := range term.Vars(e.Right) {
				vs[v] = true
			}
		}
	}
	return func(v term.Variable) bool {
		return vs[v]
	}
}
