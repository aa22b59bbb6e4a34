package main

import (
	"context"
	"testing"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/match"
	. "github.com/Comcast/kexec/util/testutil"
)

func TestMatch(t *testing.T) {
	def, err := core.ParseDefinition([]byte(`
symbols:
  bag: {sort: Bag, attributes: [bag]}
  g: {attributes: [function]}
`))
	if err != nil {
		t.Fatal(err)
	}
	if err = def.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		m        *match.Matcher
		pattern  string
		subject  string
		symbolic bool
		want     string
	}{
		{"simple", match.DefaultMatcher, `{"f":["?X","a"]}`, `{"f":["b","a"]}`, false, `[{"X":"b"}]`},
		{"nonlinear", match.DefaultMatcher, `{"f":["?X","?X"]}`, `{"f":["b","c"]}`, false, `[]`},
		{"bag", def.Matcher(), `{"bag":["?X","?R:Bag"]}`, `{"bag":["a","b"]}`, false, `[{"R":{"bag":["b"]},"X":"a"},{"R":{"bag":["a"]},"X":"b"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := parseTerm(tt.pattern)
			if err != nil {
				t.Fatal(err)
			}
			s, err := parseTerm(tt.subject)
			if err != nil {
				t.Fatal(err)
			}
			got := Match(tt.m, p, s, tt.symbolic)
			var want []map[string]interface{}
			for _, x := range Dwimjs(tt.want).([]interface{}) {
				want = append(want, x.(map[string]interface{}))
			}
			ok, err := Same(want, got, true)
			if err != nil {
				t.Fatal(err)
			}
			if !ok {
				t.Fatalf("got %s", JS(got))
			}
		})
	}
}

func TestMatchSymbolic(t *testing.T) {
	p, _ := parseTerm(`{"f":["?X","?X"]}`)
	s, _ := parseTerm(`{"f":["?Y","b"]}`)
	got := Match(match.DefaultMatcher, p, s, true)
	if len(got) != 1 {
		t.Fatal(JS(got))
	}
}

func TestWithoutHooks(t *testing.T) {
	syms := map[string]*core.Symbol{
		"f": {Sort: "Int", Hook: &core.HookSource{Interpreter: "cobol"}},
		"g": nil,
	}
	got := withoutHooks(syms)
	if got["f"].Hook != nil || got["f"].Sort != "Int" || syms["f"].Hook == nil {
		t.Fatal(JS(got))
	}
}
