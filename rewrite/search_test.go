package rewrite

import (
	"context"
	"sort"
	"testing"

	"github.com/Comcast/kexec/core"
	. "github.com/Comcast/kexec/util/testutil"
)

func search(t *testing.T, s *Search, initial *core.ConstrainedTerm, goal *core.Rule) []string {
	hits, err := s.Run(context.Background(), initial, goal)
	if err != nil {
		t.Fatal(err)
	}
	acc := make([]string, len(hits))
	for i, h := range hits {
		acc[i] = h.State.String()
	}
	return acc
}

func TestSearchTypes(t *testing.T) {
	def := choice(t)

	tests := []struct {
		st    SearchType
		bound int
		depth int
		want  string
	}{
		{Star, -1, -1, `["s","l","r","done"]`},
		{Plus, -1, -1, `["l","r","done"]`},
		{OneStep, -1, -1, `["l","r"]`},
		{Final, -1, -1, `["done"]`},
		{Star, -1, 1, `["s","l","r"]`},
		{Star, 1, -1, `["s","l","r"]`},
		{Star, 0, -1, `["s"]`},
		{Final, -1, 1, `[]`},
		{Final, 1, 2, `[]`},
		{Final, 2, 2, `["done"]`},
		{OneStep, -1, 0, `[]`},
	}

	for name, r := range rewriters {
		for _, tt := range tests {
			t.Run(name+" "+tt.st.String(), func(t *testing.T) {
				s := &Search{
					Stepper: r,
					Type:    tt.st,
					Bound:   tt.bound,
					Depth:   tt.depth,
				}
				got := search(t, s, state(def, `"s"`), nil)
				if got == nil {
					got = []string{}
				}
				if JS(got) != tt.want {
					t.Fatalf("bound %d depth %d: got %s, wanted %s", tt.bound, tt.depth, JS(got), tt.want)
				}
			})
		}
	}
}

func TestSearchStarComplete(t *testing.T) {
	def := defn(t, `
symbols:
  bag: {sort: Bag, attributes: [bag]}
rules:
- name: drop
  lhs: {bag: ["?X", "?R:Bag"]}
  rhs: {bag: ["?R:Bag"]}
`)

	for name, r := range rewriters {
		t.Run(name, func(t *testing.T) {
			init := state(def, `{"bag":["a","b","c"]}`)
			star := search(t, &Search{Stepper: r, Type: Star, Bound: -1, Depth: -1}, init, nil)

			// Every sub-bag, each exactly once.
			if len(star) != 8 {
				t.Fatal(JS(star))
			}
			seen := make(map[string]bool)
			for _, s := range star {
				if seen[s] {
					t.Fatalf("%s reported twice", s)
				}
				seen[s] = true
			}
			if init.Context.Stats.Visited != 8 {
				t.Fatal(init.Context.Stats.Visited)
			}

			init = state(def, `{"bag":["a","b","c"]}`)
			final := search(t, &Search{Stepper: r, Type: Final, Bound: -1, Depth: -1}, init, nil)
			if JS(final) != `["bag()"]` {
				t.Fatal(JS(final))
			}
			for _, f := range final {
				if !seen[f] {
					t.Fatalf("final %s not in star", f)
				}
			}
		})
	}
}

func TestSearchFinalStuck(t *testing.T) {
	def := defn(t, `
rules:
- {name: fa, lhs: {f: [a]}, rhs: {g: [a]}}
- {name: fb, lhs: {f: [b]}, rhs: c}
- {name: ga, lhs: {g: [a]}, rhs: d}
`)
	ctx := context.Background()
	r := NewSymbolic(nil)
	init := state(def, `{"f":["?X"]}`)

	hits, err := (&Search{Stepper: r, Type: Final, Bound: -1, Depth: -1}).Run(ctx, init, nil)
	if err != nil {
		t.Fatal(err)
	}
	var acc []string
	for _, h := range hits {
		acc = append(acc, h.State.String())
		succs, err := r.Successors(ctx, h.State)
		if err != nil {
			t.Fatal(err)
		}
		if 0 < len(succs) {
			t.Fatalf("%s isn't stuck", h.State)
		}
	}
	sort.Strings(acc)
	if JS(acc) != `["c /\\ ?X = b","d /\\ ?X = a"]` {
		t.Fatal(JS(acc))
	}
}

func TestSearchConstraintSoundness(t *testing.T) {
	def := defn(t, `
rules:
- {name: fa, lhs: {f: [a, "?Y"]}, rhs: {g: ["?Y"]}}
- {name: fb, lhs: {f: [b, "?Y"]}, rhs: {h: ["?Y", "?Y"]}}
- {name: gh, lhs: {g: [{k: ["?Z"]}]}, rhs: {done: ["?Z"]}}
`)
	ctx := context.Background()
	initial := Dwimterm(`{"f":["?X",{"k":["?W"]}]}`)

	hits, err := (&Search{Stepper: NewSymbolic(nil), Type: Final, Bound: -1, Depth: -1}).Run(ctx, core.NewConstrainedTerm(initial, core.NewContext(def)), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatal(len(hits))
	}

	// Instantiating the initial state by a hit's constraint and
	// then rewriting concretely gives the hit's term.
	for _, h := range hits {
		inst := h.State.Constraint.Apply(initial)
		c := core.NewContext(def)
		got, _, err := NewConcrete().RewriteTerm(ctx, c, inst, -1)
		if err != nil {
			t.Fatal(err)
		}
		if !got.Equal(h.State.Term) {
			t.Fatalf("%s gave %s, not %s", inst, got, h.State.Term)
		}
	}
}

func TestSearchGoal(t *testing.T) {
	def := choice(t)
	goal := core.NewRule("goal", Dwimterm(`"?X"`), Dwimterm(`{"generatedTop":[]}`))

	for name, r := range rewriters {
		t.Run(name, func(t *testing.T) {
			hits, err := (&Search{Stepper: r, Type: Final, Bound: -1, Depth: -1}).Run(context.Background(), state(def, `"s"`), goal)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 1 {
				t.Fatal(len(hits))
			}
			if JS(hits[0].Subst) != `{"X":"done"}` {
				t.Fatal(JS(hits[0].Subst))
			}
			if hits[0].Depth != 2 {
				t.Fatal(hits[0].Depth)
			}
		})
	}

	// A goal that only matches some states.
	def = defn(t, `
rules:
- {name: r0, lhs: {n: [z]}, rhs: {n: [{s: [z]}]}}
- {name: r1, lhs: {n: [{s: ["?X"]}]}, rhs: {m: ["?X"]}}
`)
	goal = core.NewRule("goal", Dwimterm(`{"n":[{"s":["?Y"]}]}`), Dwimterm(`{"generatedTop":[]}`))
	for name, r := range rewriters {
		t.Run(name, func(t *testing.T) {
			hits, err := (&Search{Stepper: r, Type: Star, Bound: -1, Depth: -1}).Run(context.Background(), state(def, `{"n":["z"]}`), goal)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 1 || JS(hits[0].Subst) != `{"Y":"z"}` {
				t.Fatal(len(hits))
			}
		})
	}
}

func TestSearchSymbolicGoal(t *testing.T) {
	def := defn(t, `
rules:
- {name: fa, lhs: {f: [a]}, rhs: {g: [a]}}
- {name: fb, lhs: {f: [b]}, rhs: {g: [b]}}
`)
	goal := core.NewRule("goal", Dwimterm(`{"g":["a"]}`), Dwimterm(`{"generatedTop":[]}`))
	hits := search(t, &Search{Stepper: NewSymbolic(nil), Type: Final, Bound: -1, Depth: -1}, state(def, `{"f":["?X"]}`), goal)
	if JS(hits) != `["g(a) /\\ ?X = a"]` {
		t.Fatal(JS(hits))
	}

	// The goal's obligations are conjoined with the state's.
	goal = core.NewRule("goal", Dwimterm(`{"h":["a"]}`), Dwimterm(`{"generatedTop":[]}`))
	hits = search(t, &Search{Stepper: NewSymbolic(nil), Type: Star, Bound: -1, Depth: -1}, state(def, `{"h":["?Y"]}`), goal)
	if JS(hits) != `["h(?Y) /\\ ?Y = a"]` {
		t.Fatal(JS(hits))
	}
}

func TestSearchClaims(t *testing.T) {
	def := defn(t, `
rules:
- {name: grow, lhs: {n: ["?X"]}, rhs: {n: [{s: ["?X"]}]}}
- {name: pq, lhs: {p: ["?X"]}, rhs: {q: ["?X"]}}
claims:
- {name: cut, lhs: {n: ["?X"]}, rhs: done}
- {name: bump, lhs: {p: ["?X"]}, rhs: {p: [{s: ["?X"]}]}}
`)
	ctx := context.Background()

	t.Run("without", func(t *testing.T) {
		got := search(t, &Search{Stepper: NewConcrete(), Type: Star, Bound: 3, Depth: -1}, state(def, `{"n":["z"]}`), nil)
		if len(got) != 4 {
			t.Fatal(JS(got))
		}
	})

	t.Run("cut", func(t *testing.T) {
		s := &Search{
			Stepper: NewConcrete(),
			Type:    Star,
			Bound:   3,
			Depth:   -1,
			Claims:  def.Claims,
		}
		got := search(t, s, state(def, `{"n":["z"]}`), nil)
		if JS(got) != `["n(z)","done"]` {
			t.Fatal(JS(got))
		}
	})

	t.Run("once per path", func(t *testing.T) {
		for name, r := range rewriters {
			s := &Search{
				Stepper: r,
				Type:    Final,
				Bound:   -1,
				Depth:   -1,
				Claims:  def.Claims,
				Policy:  &CutPolicy{},
			}
			hits, err := s.Run(ctx, state(def, `{"p":["z"]}`), nil)
			if err != nil {
				t.Fatal(err)
			}
			if len(hits) != 1 || hits[0].State.Term.String() != "q(s(z))" {
				t.Fatalf("%s: %s", name, JS(len(hits)))
			}
		}
	})
}

func TestSearchGraph(t *testing.T) {
	def := choice(t)
	g := NewGraph()
	s := &Search{
		Stepper: NewConcrete(),
		Type:    Final,
		Bound:   -1,
		Depth:   -1,
		Graph:   g,
	}
	search(t, s, state(def, `"s"`), nil)

	if len(g.States) != 4 || len(g.Steps) != 4 {
		t.Fatal(JS(g))
	}
	var steps []string
	for _, step := range g.Steps {
		steps = append(steps, g.States[step.From].Term+" "+step.Rule+" "+g.States[step.To].Term)
	}
	if JS(steps) != `["s left l","s right r","l l done","r r done"]` {
		t.Fatal(JS(steps))
	}
	if !g.IsHit(3) || g.IsHit(0) {
		t.Fatal(JS(g.Hits))
	}
}

func TestParseSearchType(t *testing.T) {
	for _, st := range []SearchType{OneStep, Plus, Star, Final} {
		got, err := ParseSearchType(st.String())
		if err != nil {
			t.Fatal(err)
		}
		if got != st {
			t.Fatal(got)
		}
	}
	if _, err := ParseSearchType("=>?"); err == nil {
		t.Fatal("should have complained")
	}
	var st SearchType
	if err := st.UnmarshalText([]byte("final")); err != nil || st != Final {
		t.Fatal(st, err)
	}
}
