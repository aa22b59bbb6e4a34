package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/interpreters"
	"github.com/Comcast/kexec/tools"

	"github.com/jsccast/yaml"
)

// Mod is a subcommand.  F gets the parsed (uncompiled) definition.
type Mod interface {
	F(def *core.Definition, out io.Writer) error
	Doc() string
	Flags() *flag.FlagSet
}

var Mods = map[string]Mod{
	"yamltojson": &YAMLToJSON{},
	"jsontoyaml": &JSONToYAML{},
	"html":       &HTML{},
	"dot":        &Dot{},
	"mermaid":    &Mermaid{},
	"analyze":    &Analyzer{},
	"addRule":    &AddRule{},
}

// common flags
var dir = "."

func modNames() []string {
	acc := make([]string, 0, len(Mods))
	for name := range Mods {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

type UnknownSubcommand struct {
	Name string
}

func (e *UnknownSubcommand) Error() string {
	return fmt.Sprintf("unknown subcommand %q", e.Name)
}

// Do runs the named subcommand with the given args on the definition
// read from in.
func Do(name string, args []string, in io.Reader, out io.Writer) error {
	mod, have := Mods[name]
	if !have {
		return &UnknownSubcommand{Name: name}
	}

	fs := mod.Flags()
	if fs.Lookup("dir") == nil {
		fs.StringVar(&dir, "dir", ".", "directory for %inline files")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	bs, err := tools.ReadAllWithInlines(in, dir)
	if err != nil {
		return err
	}
	if 0 == len(bs) {
		return errors.New("no definition on stdin")
	}

	def, err := core.ParseDefinition(bs)
	if err != nil {
		return err
	}

	return mod.F(def, out)
}

func compile(def *core.Definition) error {
	return def.Compile(context.Background(), interpreters.StandardWithLibraries(dir), true)
}

type YAMLToJSON struct {
	pretty bool
	fs     *flag.FlagSet
}

func (m *YAMLToJSON) Doc() string {
	return "Renders the definition as JSON."
}

func (m *YAMLToJSON) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("yamltojson", flag.ContinueOnError)
		m.fs.BoolVar(&m.pretty, "p", false, "pretty-print")
	}
	return m.fs
}

func (m *YAMLToJSON) F(def *core.Definition, out io.Writer) error {
	var (
		bs  []byte
		err error
	)
	if m.pretty {
		bs, err = json.MarshalIndent(def, "", "  ")
	} else {
		bs, err = json.Marshal(def)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n", bs)
	return err
}

type JSONToYAML struct {
	fs *flag.FlagSet
}

func (m *JSONToYAML) Doc() string {
	return "Renders the definition as YAML."
}

func (m *JSONToYAML) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("jsontoyaml", flag.ContinueOnError)
	}
	return m.fs
}

func (m *JSONToYAML) F(def *core.Definition, out io.Writer) error {
	return writeYAML(def, out)
}

// writeYAML goes through JSON to get the JSON field names.
func writeYAML(x interface{}, out io.Writer) error {
	y, err := core.Canonicalize(x)
	if err != nil {
		return err
	}
	bs, err := yaml.Marshal(y)
	if err != nil {
		return err
	}
	_, err = out.Write(bs)
	return err
}

type HTML struct {
	graph bool
	css   string
	fs    *flag.FlagSet
}

func (m *HTML) Doc() string {
	return "Renders the definition's documentation as an HTML page."
}

func (m *HTML) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("html", flag.ContinueOnError)
		m.fs.BoolVar(&m.graph, "graph", false, "include the graph script")
		m.fs.StringVar(&m.css, "css", "", "CSS file URL")
	}
	return m.fs
}

func (m *HTML) F(def *core.Definition, out io.Writer) error {
	var css []string
	if m.css != "" {
		css = []string{m.css}
	}
	return tools.RenderDefinitionPage(def, out, css, m.graph)
}

type Dot struct {
	highlight string
	fs        *flag.FlagSet
}

func (m *Dot) Doc() string {
	return "Renders the definition's rules as a Graphviz graph."
}

func (m *Dot) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("dot", flag.ContinueOnError)
		m.fs.StringVar(&m.highlight, "highlight", "", "name of a rule to highlight")
	}
	return m.fs
}

func (m *Dot) F(def *core.Definition, out io.Writer) error {
	if err := compile(def); err != nil {
		return err
	}
	return tools.Dot(def, out, m.highlight)
}

type Mermaid struct {
	conditions bool
	fs         *flag.FlagSet
}

func (m *Mermaid) Doc() string {
	return "Renders the definition's rules as a Mermaid graph."
}

func (m *Mermaid) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("mermaid", flag.ContinueOnError)
		m.fs.BoolVar(&m.conditions, "conditions", true, "show side conditions")
	}
	return m.fs
}

func (m *Mermaid) F(def *core.Definition, out io.Writer) error {
	if err := compile(def); err != nil {
		return err
	}
	opts := *tools.DefaultMermaidOpts
	opts.ShowConditions = m.conditions
	return tools.Mermaid(def, out, &opts)
}

type Analyzer struct {
	initial string
	fs      *flag.FlagSet
}

func (m *Analyzer) Doc() string {
	return "Checks the definition for missing hooks, unresolved functions, and (given -initial) useless rules."
}

func (m *Analyzer) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("analyze", flag.ContinueOnError)
		m.fs.StringVar(&m.initial, "initial", "", "initial configuration (YAML or JSON)")
	}
	return m.fs
}

func (m *Analyzer) F(def *core.Definition, out io.Writer) error {
	if err := compile(def); err != nil {
		return err
	}
	var inits []interface{}
	if m.initial != "" {
		x, err := parseRaw(m.initial)
		if err != nil {
			return err
		}
		inits = append(inits, x)
	}
	ts, err := buildAll(inits)
	if err != nil {
		return err
	}
	a, err := tools.Analyze(def, ts...)
	if err != nil {
		return err
	}
	return writeYAML(a, out)
}

// AddRule appends a rule and writes the definition as YAML.
type AddRule struct {
	name, lhs, rhs string
	owise          bool
	fs             *flag.FlagSet
}

func (m *AddRule) Doc() string {
	return "Adds a rule to the definition."
}

func (m *AddRule) Flags() *flag.FlagSet {
	if m.fs == nil {
		m.fs = flag.NewFlagSet("addRule", flag.ContinueOnError)
		m.fs.StringVar(&m.name, "name", "", "rule name")
		m.fs.StringVar(&m.lhs, "lhs", "", "left side (YAML or JSON)")
		m.fs.StringVar(&m.rhs, "rhs", "", "right side (YAML or JSON)")
		m.fs.BoolVar(&m.owise, "owise", false, "make it an owise rule")
	}
	return m.fs
}

func (m *AddRule) F(def *core.Definition, out io.Writer) error {
	if m.lhs == "" || m.rhs == "" {
		return errors.New("need -lhs and -rhs")
	}
	for _, r := range def.Rules {
		if m.name != "" && r.Name == m.name {
			return fmt.Errorf("rule %q exists", m.name)
		}
	}
	lhs, err := parseRaw(m.lhs)
	if err != nil {
		return err
	}
	rhs, err := parseRaw(m.rhs)
	if err != nil {
		return err
	}
	r := &core.Rule{
		Name:  m.name,
		Left:  lhs,
		Right: rhs,
	}
	if m.owise {
		r.Attributes = []string{core.AttrOwise}
	}
	def.Rules = append(def.Rules, r)

	// Make sure the result is still good.
	if err = compile(def); err != nil {
		return err
	}

	return writeYAML(def, out)
}
