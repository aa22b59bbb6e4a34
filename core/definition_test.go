package core

import (
	"context"
	"errors"
	"testing"

	. "github.com/Comcast/kexec/util/testutil"
)

var peanoYAML = `
name: peano
version: "1"
symbols:
  add:
    attributes: [function]
  isz:
    attributes: [function]
  bag:
    sort: Bag
    attributes: [bag]
rules:
- name: addz
  lhs: {add: [z, "?N"]}
  rhs: "?N"
- name: adds
  lhs: {add: [{s: ["?M"]}, "?N"]}
  rhs: {s: [{add: ["?M", "?N"]}]}
- name: other
  lhs: {isz: ["?"]}
  rhs: false
  attributes: [owise]
- name: isz
  lhs: {isz: [z]}
  rhs: true
- name: double
  lhs: {double: ["?X"]}
  rhs: {add: ["?X", "?X"]}
- name: any
  lhs: "?X"
  rhs: "?X"
  attributes: [owise]
- name: bagged
  lhs: {bag: ["?X", "?R:Bag"]}
  rhs: {bag: ["?R:Bag"]}
`

func peano(t *testing.T) *Definition {
	def, err := ParseDefinition([]byte(peanoYAML))
	if err != nil {
		t.Fatal(err)
	}
	if err = def.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	return def
}

func names(rs []*Rule) []string {
	acc := make([]string, len(rs))
	for i, r := range rs {
		acc[i] = r.Name
	}
	return acc
}

func TestParseDefinition(t *testing.T) {
	def := peano(t)

	if def.Name != "peano" || def.Version != "1" {
		t.Fatal(JS(def))
	}

	if !def.IsFunction("add") || def.IsFunction("s") {
		t.Fatal("function symbols")
	}
	if def.IsConstructor("bag") || def.IsConstructor("add") || !def.IsConstructor("s") {
		t.Fatal("constructors")
	}

	if got := JS(names(def.FunctionRules("add"))); got != `["addz","adds"]` {
		t.Fatal(got)
	}
	if got := JS(names(def.FunctionRules("isz"))); got != `["other","isz"]` {
		t.Fatal(got)
	}
	if got := JS(names(def.TransitionRules())); got != `["double","bagged","any"]` {
		t.Fatal(got)
	}
}

func TestRulesFor(t *testing.T) {
	def := peano(t)

	tests := []struct {
		label string
		want  string
	}{
		{"double", `["double","any"]`},
		{"bag", `["bagged","any"]`},
		{"nothing", `["any"]`},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			if got := JS(names(def.RulesFor(tt.label))); got != tt.want {
				t.Fatalf("got %s, wanted %s", got, tt.want)
			}
		})
	}
}

func TestRuleAnalysis(t *testing.T) {
	r := &Rule{
		Name:  "r",
		Left:  Dwimjs(`{"f":["?X"]}`),
		Right: Dwimjs(`{"g":["?X","?Y"]}`),
		Requires: []*Condition{
			{
				Left:  "?Y",
				Right: Dwimjs(`{"h":["?X"]}`),
			},
		},
	}
	if err := r.Compile(nil); err != nil {
		t.Fatal(err)
	}
	if got := JS(r.Vars()); got != `["?X","?Y"]` {
		t.Fatal(got)
	}
	if locals := r.Locals(); len(locals) != 1 || locals[0].Name != "Y" {
		t.Fatal(locals)
	}
	if s := r.String(); s != "f(?X) => g(?X, ?Y) requires ?Y = h(?X)" {
		t.Fatal(s)
	}
}

func TestUnordered(t *testing.T) {
	def := &Definition{
		Unordered: true,
		Rules: []*Rule{
			{Name: "c", Left: "x", Right: "c"},
			{Name: "a", Left: "x", Right: "a"},
			{Name: "b", Left: "x", Right: "b"},
		},
	}
	if err := def.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	if got := JS(names(def.RulesFor("x"))); got != `["a","b","c"]` {
		t.Fatal(got)
	}
}

func TestCompileMalformedRule(t *testing.T) {
	def := &Definition{
		Rules: []*Rule{
			{Left: "a", Right: Dwimjs(`{"f":[],"g":[]}`)},
		},
	}
	err := def.Compile(context.Background(), nil, true)
	var mr *MalformedRule
	if !errors.As(err, &mr) {
		t.Fatalf("wanted a *MalformedRule, not %#v", err)
	}
	if mr.Rule.Name != "rule0" {
		t.Fatal(mr.Rule.Name)
	}
	if def.Compiled() {
		t.Fatal("shouldn't be compiled")
	}
}

func TestCompileBadHook(t *testing.T) {
	def := &Definition{
		Name: "bad",
		Symbols: map[string]*Symbol{
			"f": {
				Attributes: []string{AttrHook},
				Hook: &HookSource{
					Interpreter: "cobol",
					Source:      "MOVE A TO B",
				},
			},
		},
	}
	err := def.Compile(context.Background(), nil, true)
	var bh *BadHook
	if !errors.As(err, &bh) {
		t.Fatalf("wanted a *BadHook, not %#v", err)
	}
	if !errors.Is(err, InterpreterNotFound) {
		t.Fatal(err)
	}
}

func TestCopy(t *testing.T) {
	def := peano(t)
	c := def.Copy("2")
	if c.Compiled() {
		t.Fatal("copy shouldn't be compiled")
	}
	if c.Version != "2" || len(c.Rules) != len(def.Rules) {
		t.Fatal(JS(c))
	}
	if c.Rules[0] == def.Rules[0] {
		t.Fatal("rules weren't copied")
	}
	if err := c.Compile(context.Background(), nil, false); err != nil {
		t.Fatal(err)
	}
}

func TestUpdatableDefinition(t *testing.T) {
	ctx := context.Background()
	abc, err := ABCDefinition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	u := NewUpdatableDefinition(abc)
	if u.Definition() != abc {
		t.Fatal("initial")
	}

	uncompiled := abc.Copy("")
	if err := u.SetDefinition(uncompiled); err == nil {
		t.Fatal("should have complained")
	}

	choice, err := ChoiceDefinition(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err = u.SetDefinition(choice); err != nil {
		t.Fatal(err)
	}
	var d Definer = u
	if d.Definition().Name != "choice" {
		t.Fatal(d.Definition().Name)
	}
}
