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

package tools

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/rewrite"
)

type MermaidOpts struct {
	// ShowConditions will result in an edge label that includes
	// the JSON representation of the rule's side conditions.
	ShowConditions bool `json:"showConditions"`

	// FunctionFill is the fill color of for function symbol
	// nodes.
	FunctionFill string `json:"functionFill,omitempty"`

	// HitFill is the fill color for search hits.
	HitFill string `json:"hitFill,omitempty"`
}

// DefaultMermaidOpts are used when Mermaid gets nil options.
var DefaultMermaidOpts = &MermaidOpts{
	ShowConditions: true,
	FunctionFill:   "#bcf2db",
	HitFill:        "#f98b8b",
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given Definition's rules.  The graph is the same as the
// one Dot makes.
func Mermaid(def *core.Definition, w io.Writer, opts *MermaidOpts) error {
	if !def.Compiled() {
		return &core.NotCompiled{Definition: def}
	}
	if opts == nil {
		opts = DefaultMermaidOpts
	}

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	node := func(label string) string {
		if nid, already := nids[label]; already {
			return nid
		}
		nid := fmt.Sprintf("n%d", len(nids))
		nids[label] = nid

		if label != "*" && def.IsFunction(label) {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, quote(label))
			if opts.FunctionFill != "" {
				fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.FunctionFill)
			}
		} else {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, quote(label))
		}
		return nid
	}

	edge := func(r *core.Rule) error {
		from, to := "*", "*"
		if !isVar(r.LHS()) {
			from = r.LHS().Label()
		}
		if !isVar(r.RHS()) {
			to = r.RHS().Label()
		}
		label := r.Name
		if opts.ShowConditions && 0 < len(r.Requires) {
			js, err := json.Marshal(r.Requires)
			if err != nil {
				return err
			}
			label += "<pre>" + string(js) + "</pre>"
		}
		fmt.Fprintf(w, "  %s -- \"%s\" --> %s\n", node(from), quote(label), node(to))
		return nil
	}

	for _, r := range def.TransitionRules() {
		if err := edge(r); err != nil {
			return err
		}
	}
	for _, label := range sortedLabels(def) {
		for _, r := range def.FunctionRules(label) {
			if err := edge(r); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(w, "\n")
	return nil
}

// SearchMermaid makes a Mermaid input file for a search graph.
func SearchMermaid(g *rewrite.Graph, w io.Writer, opts *MermaidOpts) error {
	if opts == nil {
		opts = DefaultMermaidOpts
	}

	fmt.Fprintf(w, "graph TB\n")
	for _, s := range g.States {
		label := s.Term
		if s.Constraint != "" {
			label += " | " + s.Constraint
		}
		fmt.Fprintf(w, "  s%d(\"%s\")\n", s.Id, quote(label))
		if g.IsHit(s.Id) && opts.HitFill != "" {
			fmt.Fprintf(w, "  style s%d fill:%s\n", s.Id, opts.HitFill)
		}
	}
	for _, st := range g.Steps {
		fmt.Fprintf(w, "  s%d -- \"%s\" --> s%d\n", st.From, quote(st.Rule), st.To)
	}

	fmt.Fprintf(w, "\n")
	return nil
}

func quote(s string) string {
	return strings.Replace(s, `"`, `'`, -1)
}
