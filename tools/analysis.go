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

// Package tools has utilities for looking at Definitions and search
// spaces: static analysis, Graphviz and Mermaid renderings, and HTML
// documentation.
package tools

import (
	"sort"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/term"
)

// DefinitionAnalysis is the result of Analyze.
type DefinitionAnalysis struct {
	def *core.Definition

	Symbols         int
	TransitionRules int
	FunctionRules   int
	Claims          int

	// UselessRules are the rules whose left side's label can't
	// appear in any state reachable from the given initial
	// terms.  Only computed when initial terms are given.
	UselessRules []string `json:",omitempty" yaml:",omitempty"`

	// UnresolvedFunctions are function symbols with neither
	// function rules nor a hook.
	UnresolvedFunctions []string `json:",omitempty" yaml:",omitempty"`

	// MissingHooks are symbols declared as hooks that have no
	// compiled Hook.
	MissingHooks []string `json:",omitempty" yaml:",omitempty"`

	// Interpreters are the interpreters the symbols' hook
	// sources use.
	Interpreters []string `json:",omitempty" yaml:",omitempty"`

	// Reports has a diagnostic for each problem found.
	Reports []*diagnostics.Report `json:",omitempty" yaml:",omitempty"`
}

// Analyze checks a compiled Definition.
//
// If initial terms are given, rules that can never fire starting
// from them are reported.  The reachable labels are approximated by
// closing the initial terms' labels under the right sides (and side
// conditions) of the rules whose left sides have reachable labels.
func Analyze(def *core.Definition, initial ...term.Term) (*DefinitionAnalysis, error) {
	if !def.Compiled() {
		return nil, &core.NotCompiled{Definition: def}
	}

	a := &DefinitionAnalysis{
		def:             def,
		Symbols:         len(def.Symbols),
		TransitionRules: len(def.TransitionRules()),
		Claims:          len(def.Claims),
	}

	interpreters := make(map[string]bool)
	for label, s := range def.Symbols {
		a.FunctionRules += len(def.FunctionRules(label))

		if s.Hook != nil {
			interpreters[s.Hook.Interpreter] = true
		}

		switch {
		case s.Has(core.AttrHook) && def.Hook(label) == nil:
			a.MissingHooks = append(a.MissingHooks, label)
		case def.IsFunction(label) && def.Hook(label) == nil && 0 == len(def.FunctionRules(label)):
			a.UnresolvedFunctions = append(a.UnresolvedFunctions, label)
		}
	}
	a.Interpreters = keysToStringSlice(interpreters)
	sort.Strings(a.MissingHooks)
	sort.Strings(a.UnresolvedFunctions)

	for _, label := range a.MissingHooks {
		a.Reports = append(a.Reports, diagnostics.Newf(diagnostics.MissingHook, diagnostics.Compiler,
			"no hook for %s", label))
	}
	for _, label := range a.UnresolvedFunctions {
		a.Reports = append(a.Reports, diagnostics.Newf(diagnostics.UnresolvedFunctionSymbol, diagnostics.Compiler,
			"no rules or hook for function symbol %s", label))
	}

	if 0 < len(initial) {
		reachable := Reachable(def, initial...)
		for _, r := range def.TransitionRules() {
			if isVar(r.LHS()) {
				continue
			}
			if reachable[r.LHS().Label()] {
				continue
			}
			a.UselessRules = append(a.UselessRules, r.Name)
			a.Reports = append(a.Reports, r.Report(diagnostics.UselessRule, diagnostics.Compiler,
				"rule "+r.Name+" can never apply"))
		}
	}

	return a, nil
}

// Reachable returns the labels that can appear in states reachable
// from the initial terms.  It's an over-approximation.
func Reachable(def *core.Definition, initial ...term.Term) map[string]bool {
	acc := make(map[string]bool)
	var todo []string
	add := func(t term.Term) {
		term.Walk(t, func(p term.Path, x term.Term) bool {
			if isVar(x) {
				return true
			}
			if label := x.Label(); !acc[label] {
				acc[label] = true
				todo = append(todo, label)
			}
			return true
		})
	}
	fire := func(r *core.Rule) {
		add(r.RHS())
		for _, e := range r.Conditions() {
			add(e.Left)
			add(e.Right)
		}
	}

	for _, t := range initial {
		add(t)
	}

	// Rules with a variable on the left can fire anywhere.
	for _, r := range def.TransitionRules() {
		if isVar(r.LHS()) {
			fire(r)
		}
	}

	for 0 < len(todo) {
		label := todo[0]
		todo = todo[1:]
		rules := def.RulesFor(label)
		if def.IsFunction(label) {
			rules = def.FunctionRules(label)
		}
		for _, r := range rules {
			fire(r)
		}
	}

	return acc
}

func isVar(t term.Term) bool {
	_, is := t.(term.Variable)
	return is
}

// keysToStringSlice converts the keys from a map into a sorted slice
// of strings.
func keysToStringSlice(m map[string]bool) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)
	return list
}
