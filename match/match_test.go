package match

import (
	"strings"
	"testing"

	"github.com/Comcast/kexec/term"
	. "github.com/Comcast/kexec/util/testutil"
)

func tm(js string) term.Term {
	return term.MustBuild(Dwimjs(js))
}

func render(bss []term.Substitution) string {
	acc := make([]string, len(bss))
	for i, bs := range bss {
		acc[i] = bs.String()
	}
	return strings.Join(acc, " ")
}

func TestMatch(t *testing.T) {
	m := &Matcher{
		Collections: map[string]Collection{
			"list": {List, "List"},
			"bag":  {Bag, "Bag"},
		},
	}

	tests := []struct {
		name    string
		pattern string
		subject string
		want    string
	}{
		{
			name:    "basic",
			pattern: `{"f":["?X","a"]}`,
			subject: `{"f":["b","a"]}`,
			want:    "{?X -> b}",
		},
		{
			name:    "repeated variable",
			pattern: `{"f":["?X","?X"]}`,
			subject: `{"f":["b","c"]}`,
			want:    "",
		},
		{
			name:    "repeated variable agrees",
			pattern: `{"f":["?X","?X"]}`,
			subject: `{"f":[{"g":["b"]},{"g":["b"]}]}`,
			want:    "{?X -> g(b)}",
		},
		{
			name:    "label mismatch",
			pattern: `{"f":["?X"]}`,
			subject: `{"g":["b"]}`,
			want:    "",
		},
		{
			name:    "arity mismatch",
			pattern: `{"f":["?X"]}`,
			subject: `{"f":["b","c"]}`,
			want:    "",
		},
		{
			name:    "anonymous",
			pattern: `{"f":["?","?"]}`,
			subject: `{"f":["b","c"]}`,
			want:    "{}",
		},
		{
			name:    "constant types",
			pattern: `{"f":["1"]}`,
			subject: `{"f":[1]}`,
			want:    "",
		},
		{
			name:    "list exact",
			pattern: `{"list":["?X","b"]}`,
			subject: `{"list":["a","b"]}`,
			want:    "{?X -> a}",
		},
		{
			name:    "list arity",
			pattern: `{"list":["?X"]}`,
			subject: `{"list":["a","b"]}`,
			want:    "",
		},
		{
			name:    "list rest",
			pattern: `{"list":["?X","?R:List","?Y"]}`,
			subject: `{"list":["a","b","c","d"]}`,
			want:    "{?R:List -> list(b, c), ?X -> a, ?Y -> d}",
		},
		{
			name:    "list empty rest",
			pattern: `{"list":["?X","?R:List"]}`,
			subject: `{"list":["a"]}`,
			want:    "{?R:List -> list(), ?X -> a}",
		},
		{
			name:    "list too short",
			pattern: `{"list":["?X","?Y","?R:List"]}`,
			subject: `{"list":["a"]}`,
			want:    "",
		},
		{
			name:    "bag order",
			pattern: `{"bag":["?X","?R:Bag"]}`,
			subject: `{"bag":["a","b","c"]}`,
			want:    "{?R:Bag -> bag(b, c), ?X -> a} {?R:Bag -> bag(a, c), ?X -> b} {?R:Bag -> bag(a, b), ?X -> c}",
		},
		{
			name:    "bag fixed",
			pattern: `{"bag":["c","?X"]}`,
			subject: `{"bag":["a","c"]}`,
			want:    "{?X -> a}",
		},
		{
			name:    "bag size",
			pattern: `{"bag":["?X"]}`,
			subject: `{"bag":["a","c"]}`,
			want:    "",
		},
		{
			name:    "bag duplicates",
			pattern: `{"bag":["?X","?R:Bag"]}`,
			subject: `{"bag":["a","a"]}`,
			want:    "{?R:Bag -> bag(a), ?X -> a}",
		},
		{
			name:    "bag nested",
			pattern: `{"bag":[{"k":["?X"]},"?R:Bag"]}`,
			subject: `{"bag":[{"s":[1]},{"k":[2]}]}`,
			want:    "{?R:Bag -> bag(s(1)), ?X -> 2}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(m.Match(tm(tt.pattern), tm(tt.subject)))
			if got != tt.want {
				t.Fatalf("got %q, wanted %q", got, tt.want)
			}
		})
	}
}

func TestMatchInitialBindings(t *testing.T) {
	initial := term.Substitution{
		term.NewVariable("X", ""): term.NewConstant("b"),
	}
	bss := DefaultMatcher.Matches(tm(`{"f":["?X","?Y"]}`), tm(`{"f":["b","c"]}`), initial)
	if render(bss) != "{?X -> b, ?Y -> c}" {
		t.Fatal(render(bss))
	}
	if len(initial) != 1 {
		t.Fatal("initial bindings were modified")
	}
	if 0 != len(DefaultMatcher.Matches(tm(`{"f":["?X"]}`), tm(`{"f":["c"]}`), initial)) {
		t.Fatal("should not have matched")
	}
}

type sig map[string]bool

func (s sig) IsConstructor(label string) bool {
	return !s[label]
}

func TestMatchConstrained(t *testing.T) {
	m := &Matcher{
		Signature: sig{"plus": true},
		Collections: map[string]Collection{
			"bag": {Bag, "Bag"},
		},
	}

	tests := []struct {
		name    string
		pattern string
		subject string
		n       int
		eqs     string
		unsat   bool
	}{
		{
			name:    "repeated variable",
			pattern: `{"f":["?X","?X"]}`,
			subject: `{"f":["b","c"]}`,
			n:       1,
			eqs:     "b = c",
			unsat:   true,
		},
		{
			name:    "subject variable",
			pattern: `{"f":[{"g":["?X"]}]}`,
			subject: `{"f":["?S"]}`,
			n:       1,
			eqs:     "g(?X) = ?S",
		},
		{
			name:    "constructor clash",
			pattern: `{"f":[{"g":["?X"]}]}`,
			subject: `{"f":[{"h":[]}]}`,
			n:       0,
		},
		{
			name:    "function",
			pattern: `{"f":[3]}`,
			subject: `{"f":[{"plus":["?N",1]}]}`,
			n:       1,
			eqs:     "3 = plus(?N, 1)",
		},
		{
			name:    "bag with variable subject",
			pattern: `{"bag":["a","?R:Bag"]}`,
			subject: `{"bag":["?S","b"]}`,
			n:       1,
			eqs:     "a = ?S",
		},
		{
			name:    "bag with rest subject",
			pattern: `{"bag":["a","?R:Bag"]}`,
			subject: `{"bag":["?T:Bag","b"]}`,
			n:       1,
			eqs:     "bag(a, ?R:Bag) = bag(?T:Bag, b)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := m.MatchConstrained(tm(tt.pattern), tm(tt.subject), nil)
			if len(rs) != tt.n {
				t.Fatalf("got %d results", len(rs))
			}
			if tt.n == 0 {
				return
			}
			eqs := rs[0].Constraint.Equalities()
			acc := make([]string, len(eqs))
			for i, e := range eqs {
				acc[i] = e.String()
			}
			if got := strings.Join(acc, ", "); got != tt.eqs {
				t.Fatalf("got %q, wanted %q", got, tt.eqs)
			}
			if rs[0].Constraint.Simplify().IsFalse() != tt.unsat {
				t.Fatal(rs[0].Constraint.Simplify())
			}
		})
	}
}

func TestFreshen(t *testing.T) {
	n := 0
	fresh := func(v term.Variable) term.Variable {
		n++
		return term.NewVariable(v.Name+"_"+JS(n), v.Sort)
	}
	ts, renaming := Freshen(fresh, tm(`{"f":["?X","?Y"]}`), tm(`{"g":["?Y","?Z:Int"]}`))
	if ts[0].String() != "f(?X_1, ?Y_2)" || ts[1].String() != "g(?Y_2, ?Z_3:Int)" {
		t.Fatal(ts)
	}
	if len(renaming) != 3 {
		t.Fatal(renaming)
	}
}

func TestNormalize(t *testing.T) {
	m := &Matcher{
		Collections: map[string]Collection{
			"list": {List, "List"},
		},
	}
	got := m.Normalize(tm(`{"f":[{"list":["a",{"list":["b"]}]}]}`))
	if got.String() != "f(list(a, b))" {
		t.Fatal(got)
	}
}
