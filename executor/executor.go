/* Copyright 2019 Comcast Cable Communications Management, LLC
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package executor is the entry point for running programs against a
// Definition.
//
// An Executor builds the initial term from a raw configuration,
// evaluates its function symbols, and then hands it to the rewriter
// selected by Options.PatternMatching.  Run and Step return the final
// state.  Search returns the reachable states that match a Pattern.
package executor

import (
	"context"
	"errors"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/rewrite"
	"github.com/Comcast/kexec/term"
	"github.com/Comcast/kexec/util"
)

// Options configures an Executor.
type Options struct {
	// PatternMatching selects the concrete rewriter.  Otherwise
	// the symbolic rewriter is used.
	PatternMatching bool `json:"patternMatching,omitempty" yaml:",omitempty"`

	// Solver decides satisfiability for the symbolic rewriter.
	// Defaults to constraint.DefaultSolver.
	Solver constraint.Solver `json:"-" yaml:"-"`

	// Builder turns raw configurations into Terms.  Defaults to
	// term.DefaultBuilder.
	Builder term.Builder `json:"-" yaml:"-"`

	// Unparser renders results.  Defaults to a TextUnparser.
	Unparser term.Unparser `json:"-" yaml:"-"`

	// Diagnostics, if not nil, also gets every report from every
	// call.
	Diagnostics *diagnostics.Sink `json:"-" yaml:"-"`

	// Claims makes Search use the Definition's claims.
	Claims bool `json:"claims,omitempty" yaml:",omitempty"`

	// Graph makes Search record the states and steps it explored.
	Graph bool `json:"graph,omitempty" yaml:",omitempty"`
}

// Executor runs raw configurations against a Definition.
//
// An Executor can be used by concurrent goroutines.  Each call gets
// its own core.Context.
type Executor struct {
	Definer  core.Definer
	Options  Options
	Rewriter rewrite.Rewriter
}

// New makes an Executor.
//
// The Definer can be a *core.Definition or something like a
// core.UpdatableDefinition.  Its Definition must be compiled by the
// time it's used.
func New(def core.Definer, opts Options) *Executor {
	if opts.Builder == nil {
		opts.Builder = term.DefaultBuilder
	}
	if opts.Unparser == nil {
		opts.Unparser = &term.TextUnparser{}
	}
	var r rewrite.Rewriter
	if opts.PatternMatching {
		r = rewrite.NewConcrete()
	} else {
		r = rewrite.NewSymbolic(opts.Solver)
	}
	return &Executor{
		Definer:  def,
		Options:  opts,
		Rewriter: r,
	}
}

// Run rewrites the configuration until no rule applies.
func (e *Executor) Run(ctx context.Context, raw interface{}) (*Result, error) {
	return e.Step(ctx, raw, -1)
}

// Step takes at most n steps.  A negative n means no limit.
func (e *Executor) Step(ctx context.Context, raw interface{}, n int) (*Result, error) {
	c, err := e.context()
	if err != nil {
		return nil, err
	}
	defer e.forward(c)

	initial, err := e.initial(ctx, c, raw)
	if err != nil {
		return nil, err
	}

	util.Logf("executor step %d %s\n", n, initial)

	final, reason, err := e.Rewriter.Rewrite(ctx, initial, n)
	if err != nil {
		return nil, e.fail(c, err)
	}

	out, err := e.Options.Unparser.Render(final.Term)
	if err != nil {
		return nil, e.fail(c, err)
	}

	r := &Result{
		State:          final,
		Term:           final.Term,
		RawOutput:      out,
		Stats:          c.Stats,
		StoppedBecause: reason,
		Diagnostics:    c.Diagnostics.Reports(),
	}
	if !final.Constraint.IsTrue() {
		r.Constraint = final.Constraint.String()
	}
	return r, nil
}

// Search explores the states reachable from the configuration and
// returns the ones that match the pattern.
//
// A nil bound or depth means no limit.  A nil pattern means
// DefaultPattern().  The info, which can be nil, is passed through
// to each SearchResult.
func (e *Executor) Search(ctx context.Context, bound, depth *int, st rewrite.SearchType, pattern *Pattern, raw interface{}, info *CompilationInfo) (*SearchResults, error) {
	b, d := -1, -1
	if bound != nil {
		b = *bound
	}
	if depth != nil {
		d = *depth
	}
	if pattern == nil {
		pattern = DefaultPattern()
	}

	c, err := e.context()
	if err != nil {
		return nil, err
	}
	defer e.forward(c)

	initial, err := e.initial(ctx, c, raw)
	if err != nil {
		return nil, err
	}

	goal, err := pattern.rule(e.Options.Builder)
	if err != nil {
		return nil, e.fail(c, err)
	}

	s := &rewrite.Search{
		Stepper: e.Rewriter,
		Type:    st,
		Bound:   b,
		Depth:   d,
	}
	if e.Options.Claims {
		s.Claims = c.Definition.Claims
	}
	if e.Options.Graph {
		s.Graph = rewrite.NewGraph()
	}

	util.Logf("executor search %s bound %d depth %d %s\n", st, b, d, initial)

	hits, err := s.Run(ctx, initial, goal)
	if err != nil {
		return nil, e.fail(c, err)
	}

	acc := make([]*SearchResult, 0, len(hits))
	for _, h := range hits {
		sr, err := e.searchResult(pattern, h, info)
		if err != nil {
			return nil, e.fail(c, err)
		}
		acc = append(acc, sr)
	}

	return &SearchResults{
		Results:          acc,
		Graph:            s.Graph,
		IsDefaultPattern: pattern.isDefault,
		Stats:            c.Stats,
		Diagnostics:      c.Diagnostics.Reports(),
	}, nil
}

func (e *Executor) searchResult(pattern *Pattern, h *rewrite.Hit, info *CompilationInfo) (*SearchResult, error) {
	bs := h.Subst
	if info != nil && 0 < len(info.Vars) {
		bs = make(map[string]term.Term, len(info.Vars))
		for _, name := range info.Vars {
			if x, have := h.Subst[name]; have {
				bs[name] = x
			}
		}
	}

	// The witness is the pattern's body (not the synthetic rule)
	// instantiated by the bindings.
	body, err := pattern.body(e.Options.Builder)
	if err != nil {
		return nil, err
	}
	state := term.SubstituteByName(h.Subst, body)

	out, err := e.Options.Unparser.Render(state)
	if err != nil {
		return nil, err
	}

	sr := &SearchResult{
		State:     state,
		RawOutput: out,
		Subst:     bs,
		Depth:     h.Depth,
		Info:      info,
	}
	if !h.State.Constraint.IsTrue() {
		sr.Constraint = h.State.Constraint.String()
	}
	return sr, nil
}

// context checks the current Definition and makes a Context for one
// call.
func (e *Executor) context() (*core.Context, error) {
	var def *core.Definition
	if e.Definer != nil {
		def = e.Definer.Definition()
	}
	if def == nil || !def.Compiled() {
		err := diagnostics.Wrap(diagnostics.Error, diagnostics.Critical, &core.NotCompiled{Definition: def})
		if e.Options.Diagnostics != nil {
			e.Options.Diagnostics.Add(err)
		}
		return nil, err
	}
	return core.NewContext(def), nil
}

// initial builds and evaluates the starting state.
func (e *Executor) initial(ctx context.Context, c *core.Context, raw interface{}) (*core.ConstrainedTerm, error) {
	t, err := e.Options.Builder.Term(raw)
	if err != nil {
		return nil, e.fail(c, err)
	}
	if t, err = c.Evaluate(ctx, t); err != nil {
		return nil, e.fail(c, err)
	}
	t = c.Definition.Matcher().Normalize(t)
	return core.NewConstrainedTerm(t, c), nil
}

// fail turns an error into a Report, adds it to the Context's
// diagnostics, and returns it.
func (e *Executor) fail(c *core.Context, err error) error {
	r := Classify(err)
	c.Report(r)
	return r
}

// forward copies the Context's reports to Options.Diagnostics.
func (e *Executor) forward(c *core.Context) {
	if e.Options.Diagnostics == nil {
		return
	}
	for _, r := range c.Diagnostics.Reports() {
		e.Options.Diagnostics.Add(r)
	}
}

// Classify wraps an error in a Report with the right Group.
//
// A malformed configuration or a Definition that isn't compiled is
// Critical.  Everything else, such as a function symbol that can't
// be evaluated, is Internal.
func Classify(err error) *diagnostics.Report {
	var (
		mc *term.MalformedConfiguration
		nc *core.NotCompiled
	)
	if errors.As(err, &mc) || errors.As(err, &nc) {
		return diagnostics.Wrap(diagnostics.Error, diagnostics.Critical, err)
	}
	return diagnostics.Wrap(diagnostics.Error, diagnostics.Internal, err)
}
