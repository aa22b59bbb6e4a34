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

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/rewrite"

	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given Definition.
//
// Nodes are the labels at the roots of the rules' sides.  Each
// transition rule is an edge from its left side's label to its right
// side's label.  Function symbols get their own shape.  If highlight
// is the name of a rule, that rule's edge is red.
func Dot(def *core.Definition, w io.Writer, highlight string) error {
	if !def.Compiled() {
		return &core.NotCompiled{Definition: def}
	}

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	nids := make(map[string]string)
	var labels []string
	node := func(label string) string {
		if nid, have := nids[label]; have {
			return nid
		}
		nid := fmt.Sprintf("n%d", len(nids))
		nids[label] = nid
		labels = append(labels, label)
		return nid
	}

	edge := func(r *core.Rule, color string) {
		from, to := "*", "*"
		if !isVar(r.LHS()) {
			from = r.LHS().Label()
		}
		if !isVar(r.RHS()) {
			to = r.RHS().Label()
		}
		label := r.Name
		if 0 < len(r.Requires) {
			label += `<BR ALIGN="LEFT"/>` + yamlLabel(r.Requires)
		}
		if r.Name == highlight {
			color = "red"
		}
		fmt.Fprintf(w, "  %s -> %s [ color=\"%s\" label = <%s> ]\n",
			node(from), node(to), color, label)
	}

	for _, r := range def.TransitionRules() {
		edge(r, "black")
	}
	for _, label := range sortedLabels(def) {
		for _, r := range def.FunctionRules(label) {
			edge(r, "#2d93ad")
		}
	}

	for _, label := range labels {
		fillcolor := "#99ddc8"
		shape := "record"
		switch {
		case label == "*":
			fillcolor = "#dddddd"
		case def.IsFunction(label):
			fillcolor = "#2d93ad"
			shape = "note"
		}
		doc := ""
		if s := def.Symbol(label); s != nil && s.Doc != "" {
			doc = s.Doc
			if 40 < len(doc) {
				if period := strings.Index(doc, ". "); 0 < period {
					doc = doc[0 : period+1]
				}
			}
			doc = "<BR/><FONT POINT-SIZE='8'>" + escapeHTML(doc) + "</FONT>"
		}
		fmt.Fprintf(w, "  %s [shape=\"%s\", style=\"filled\", fillcolor=\"%s\", label=<%s%s> ]\n",
			nids[label], shape, fillcolor, escapeHTML(label), doc)
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// SearchDot makes a Graphviz dot file for what a Search explored.
//
// Hits are red.  The initial state is bold.
func SearchDot(g *rewrite.Graph, w io.Writer) error {
	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB]
  node [shape="box" style="rounded,filled" fillcolor="#99ddc8"]
  edge [fontsize = "10"]
`)

	for _, s := range g.States {
		label := escapeHTML(s.Term)
		if s.Constraint != "" {
			label += "<BR/><FONT POINT-SIZE='8'>" + escapeHTML(s.Constraint) + "</FONT>"
		}
		style := "rounded,filled"
		if s.Id == 0 {
			style += ",bold"
		}
		fillcolor := "#99ddc8"
		if g.IsHit(s.Id) {
			fillcolor = "#f98b8b"
		}
		fmt.Fprintf(w, "  s%d [style=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			s.Id, style, fillcolor, label)
	}

	for _, st := range g.Steps {
		fmt.Fprintf(w, "  s%d -> s%d [ label = <%s> ]\n", st.From, st.To, escapeHTML(st.Rule))
	}

	fmt.Fprintf(w, "}\n")
	return nil
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.
func PNG(def *core.Definition, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err = Dot(def, dotfile, highlight); err != nil {
		dotfile.Close()
		return pngname, err
	}
	if err = dotfile.Close(); err != nil {
		return pngname, err
	}
	cmd := "dot -Tpng -Gstart=1 " + dotname + " > " + pngname
	if err := exec.Command("bash", "-c", cmd).Run(); err != nil {
		return pngname, err
	}
	return pngname, nil
}

func yamlLabel(x interface{}) string {
	bs, err := yaml.Marshal(x)
	if err != nil {
		return escapeHTML(err.Error())
	}
	s := escapeHTML(strings.TrimSpace(string(bs)))
	return `<FONT POINT-SIZE="8">` + strings.Replace(s, "\n", `<BR ALIGN="LEFT"/>`, -1) + `</FONT>`
}

func escapeHTML(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

func sortedLabels(def *core.Definition) []string {
	acc := make([]string, 0, len(def.Symbols))
	for label := range def.Symbols {
		acc = append(acc, label)
	}
	sort.Strings(acc)
	return acc
}
