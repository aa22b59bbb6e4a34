package core

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/term"
	. "github.com/Comcast/kexec/util/testutil"
)

func TestEvaluate(t *testing.T) {
	def := peano(t)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "constructor",
			in:   `{"s":["z"]}`,
			want: "s(z)",
		},
		{
			name: "add",
			in:   `{"add":[{"s":["z"]},{"s":["z"]}]}`,
			want: "s(s(z))",
		},
		{
			name: "nested",
			in:   `{"double":[{"add":[{"s":["z"]},"z"]}]}`,
			want: "double(s(z))",
		},
		{
			name: "stuck",
			in:   `{"add":["?X","z"]}`,
			want: "add(?X, z)",
		},
		{
			name: "partially stuck",
			in:   `{"add":[{"s":["?X"]},"z"]}`,
			want: "s(add(?X, z))",
		},
		{
			name: "regular before owise",
			in:   `{"isz":["z"]}`,
			want: "true",
		},
		{
			name: "owise",
			in:   `{"isz":[{"s":["z"]}]}`,
			want: "false",
		},
		{
			name: "bag flattened",
			in:   `{"bag":["a",{"bag":[{"add":["z","b"]},"c"]}]}`,
			want: "bag(a, b, c)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewContext(def)
			got, err := c.Evaluate(context.Background(), Dwimterm(tt.in))
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Fatalf("got %s, wanted %s", got, tt.want)
			}
		})
	}
}

func TestEvaluateUnchangedIsShared(t *testing.T) {
	def := peano(t)
	c := NewContext(def)
	x := Dwimterm(`{"f":[{"g":["a"]},"b"]}`)
	got, err := c.Evaluate(context.Background(), x)
	if err != nil {
		t.Fatal(err)
	}
	if got != x {
		t.Fatal("copied a term without function symbols")
	}
}

func TestEvaluateErrors(t *testing.T) {
	def := &Definition{
		Name: "broken",
		Symbols: map[string]*Symbol{
			"f": {Attributes: []string{AttrFunction}},
			"h": {Attributes: []string{AttrHook}},
		},
	}
	if err := def.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}

	t.Run("unresolved", func(t *testing.T) {
		_, err := NewContext(def).Evaluate(context.Background(), Dwimterm(`{"g":[{"f":["a"]}]}`))
		var uf *UnresolvedFunction
		if !errors.As(err, &uf) {
			t.Fatalf("wanted *UnresolvedFunction, not %#v", err)
		}
		if uf.Label != "f" || uf.Term != "f(a)" {
			t.Fatal(JS(uf))
		}
	})

	t.Run("missing hook", func(t *testing.T) {
		_, err := NewContext(def).Evaluate(context.Background(), Dwimterm(`{"h":[]}`))
		var mh *MissingHook
		if !errors.As(err, &mh) {
			t.Fatalf("wanted *MissingHook, not %#v", err)
		}
	})

	t.Run("not compiled", func(t *testing.T) {
		_, err := NewContext(def.Copy("")).Evaluate(context.Background(), Dwimterm(`"a"`))
		var nc *NotCompiled
		if !errors.As(err, &nc) {
			t.Fatalf("wanted *NotCompiled, not %#v", err)
		}
	})
}

func TestEvaluateTooDeep(t *testing.T) {
	def := &Definition{
		Symbols: map[string]*Symbol{
			"loop": {Attributes: []string{AttrFunction}},
		},
		Rules: []*Rule{
			{
				Left:  Dwimjs(`{"loop":["?X"]}`),
				Right: Dwimjs(`{"loop":["?X"]}`),
			},
		},
	}
	if err := def.Compile(context.Background(), nil, true); err != nil {
		t.Fatal(err)
	}
	c := NewContext(def)
	c.MaxEvalDepth = 50
	if _, err := c.Evaluate(context.Background(), Dwimterm(`{"loop":["a"]}`)); err != TooDeep {
		t.Fatal(err)
	}
}

func TestEvaluateHooks(t *testing.T) {
	ctx := context.Background()
	def, err := CounterDefinition(ctx)
	if err != nil {
		t.Fatal(err)
	}

	calls := 0
	dec := def.Hooks["dec"]
	def.hooks["dec"] = FuncHook(func(ctx context.Context, args []term.Term) (term.Term, error) {
		calls++
		return dec.Apply(ctx, args)
	})

	c := NewContext(def)
	for i := 0; i < 3; i++ {
		got, err := c.Evaluate(ctx, Dwimterm(`{"count":[{"dec":[3]}]}`))
		if err != nil {
			t.Fatal(err)
		}
		if got.String() != "count(2)" {
			t.Fatal(got)
		}
	}
	if calls != 1 {
		t.Fatalf("hook called %d times", calls)
	}

	// The hook declines for a variable.
	got, err := c.Evaluate(ctx, Dwimterm(`{"dec":["?N"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.String() != "dec(?N)" {
		t.Fatal(got)
	}
}

func TestHolds(t *testing.T) {
	def := peano(t)
	c := NewContext(def)

	y := term.NewVariable("Y", "")
	conds := []constraint.Equality{
		{
			Left:  y,
			Right: Dwimterm(`{"add":[{"s":["z"]},"?X"]}`),
		},
		{
			Left:  Dwimterm(`{"isz":["?X"]}`),
			Right: term.NewConstant(true),
		},
	}
	bs := term.NewSubstitution().Extend(term.NewVariable("X", ""), term.NewConstant("z"))

	got, ok, err := c.Holds(context.Background(), conds, bs)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Fatal("should hold")
	}
	if got[y].String() != "s(z)" {
		t.Fatal(got)
	}

	bs = term.NewSubstitution().Extend(term.NewVariable("X", ""), Dwimterm(`{"s":["z"]}`))
	if _, ok, err = c.Holds(context.Background(), conds, bs); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("shouldn't hold")
	}
}

func TestFresh(t *testing.T) {
	c := NewContext(nil)
	x := c.Fresh(term.NewVariable("X", "Int"))
	y := c.Fresh(term.NewVariable("X", "Int"))
	if x.String() != "?X_1:Int" || y.String() != "?X_2:Int" {
		t.Fatal(x, y)
	}
}

func TestRuleFreshen(t *testing.T) {
	r := NewRule("r",
		Dwimterm(`{"f":["?X","?"]}`),
		Dwimterm(`{"g":["?X"]}`))
	c := NewContext(nil)
	in := r.Freshen(c)
	if in.LHS.String() != "f(?X_1, ?)" || in.RHS.String() != "g(?X_1)" {
		t.Fatal(in.LHS, in.RHS)
	}
	s := in.Original(term.Substitution{
		term.NewVariable("X_1", ""): term.NewConstant("a"),
	})
	if s.String() != "{?X -> a}" {
		t.Fatal(s)
	}
}

func TestConstrainedTerm(t *testing.T) {
	def := peano(t)
	c := NewContext(def)
	ct := NewConstrainedTerm(Dwimterm(`{"f":["?X"]}`), c)
	if ct.String() != "f(?X)" {
		t.Fatal(ct)
	}
	other := &ConstrainedTerm{
		Term:       ct.Term,
		Constraint: ct.Constraint.Add(term.NewVariable("X", ""), term.NewConstant("a")).Simplify(),
		Context:    c,
	}
	if ct.Key() == other.Key() {
		t.Fatal("keys collide")
	}
	if other.String() != "f(?X) /\\ ?X = a" {
		t.Fatal(other)
	}
}
