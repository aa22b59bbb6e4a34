package constraint

import (
	"context"
	"testing"

	"github.com/Comcast/kexec/term"
	. "github.com/Comcast/kexec/util/testutil"
)

type sig map[string]bool

func (s sig) IsConstructor(label string) bool {
	return !s[label]
}

func tm(js string) term.Term {
	return term.MustBuild(Dwimjs(js))
}

func TestSimplify(t *testing.T) {
	functions := sig{"plus": true}

	tests := []struct {
		name    string
		eqs     [][2]string
		unsat   bool
		solved  string
		residue int
	}{
		{
			name:  "distinct constants",
			eqs:   [][2]string{{`"b"`, `"c"`}},
			unsat: true,
		},
		{
			name:   "same constants",
			eqs:    [][2]string{{`"b"`, `"b"`}},
			solved: "{}",
		},
		{
			name:   "bind",
			eqs:    [][2]string{{`"?X"`, `{"f":["a"]}`}},
			solved: "{?X -> f(a)}",
		},
		{
			name:   "decompose",
			eqs:    [][2]string{{`{"f":["?X","b"]}`, `{"f":["a","?Y"]}`}},
			solved: "{?X -> a, ?Y -> b}",
		},
		{
			name:  "clash",
			eqs:   [][2]string{{`{"f":["?X"]}`, `{"g":["a"]}`}},
			unsat: true,
		},
		{
			name:  "arity",
			eqs:   [][2]string{{`{"f":["?X"]}`, `{"f":["a","b"]}`}},
			unsat: true,
		},
		{
			name:   "chain",
			eqs:    [][2]string{{`"?X"`, `"?Y"`}, {`"?Y"`, `"a"`}},
			solved: "{?X -> a, ?Y -> a}",
		},
		{
			name:  "transitive clash",
			eqs:   [][2]string{{`"?X"`, `"a"`}, {`"?X"`, `"b"`}},
			unsat: true,
		},
		{
			name:  "occurs under constructor",
			eqs:   [][2]string{{`"?X"`, `{"f":["?X"]}`}},
			unsat: true,
		},
		{
			name:    "occurs under function",
			eqs:     [][2]string{{`"?X"`, `{"plus":["?X",1]}`}},
			solved:  "{}",
			residue: 1,
		},
		{
			name:    "function residue",
			eqs:     [][2]string{{`{"plus":["?X",1]}`, `3`}},
			solved:  "{}",
			residue: 1,
		},
		{
			name:   "residue instantiated",
			eqs:    [][2]string{{`{"plus":["?X",1]}`, `"?Y"`}, {`"?X"`, `2`}},
			solved: "{?X -> 2, ?Y -> plus(2, 1)}",
		},
		{
			name:   "anonymous",
			eqs:    [][2]string{{`"?"`, `"a"`}},
			solved: "{}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(functions)
			for _, eq := range tt.eqs {
				c = c.Add(tm(eq[0]), tm(eq[1]))
			}
			c = c.Simplify()
			if c.IsFalse() != tt.unsat {
				t.Fatalf("IsFalse %v: %s", c.IsFalse(), c)
			}
			if tt.unsat {
				return
			}
			if got := c.Substitution(); got.String() != tt.solved {
				t.Fatalf("got %s, wanted %s", got, tt.solved)
			}
			if n := len(c.Equalities()); n != tt.residue {
				t.Fatalf("residue %d: %s", n, c)
			}
		})
	}
}

func TestImmutable(t *testing.T) {
	c := New(nil).Add(tm(`"?X"`), tm(`"a"`)).Simplify()
	d := c.Add(tm(`"?X"`), tm(`"b"`)).Simplify()
	if !d.IsFalse() {
		t.Fatal(d)
	}
	if c.IsFalse() || c.Substitution().String() != "{?X -> a}" {
		t.Fatal(c)
	}
}

func TestMerge(t *testing.T) {
	c := New(nil).Add(tm(`"?X"`), tm(`"a"`)).Simplify()
	d := New(nil).Add(tm(`"?X"`), tm(`"?Y"`)).Simplify()
	m := c.Merge(d).Simplify()
	if m.IsFalse() {
		t.Fatal(m)
	}
	if m.Apply(tm(`"?Y"`)).String() != "a" {
		t.Fatal(m)
	}

	e := New(nil).Add(tm(`"?Y"`), tm(`"b"`))
	if !m.Merge(e).Simplify().IsFalse() {
		t.Fatal("should be false")
	}
}

func TestKeyOrder(t *testing.T) {
	c := New(nil).Add(tm(`"?X"`), tm(`"a"`)).Add(tm(`"?Y"`), tm(`"b"`)).Simplify()
	d := New(nil).Add(tm(`"?Y"`), tm(`"b"`)).Add(tm(`"?X"`), tm(`"a"`)).Simplify()
	if c.Key() != d.Key() {
		t.Fatal(c.Key(), d.Key())
	}
}

func TestIsUnsatisfiable(t *testing.T) {
	ctx := context.Background()

	c := New(nil).Add(tm(`"b"`), tm(`"c"`))
	unsat, _, err := c.IsUnsatisfiable(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !unsat {
		t.Fatal("b = c should be unsatisfiable")
	}

	never := SolverFunc(func(ctx context.Context, c *Constraint) (Result, error) {
		if 0 < len(c.Equalities()) {
			return Unsat, nil
		}
		return Sat, nil
	})
	d := New(sig{"plus": true}).Add(tm(`{"plus":[1,1]}`), tm(`3`))
	if unsat, _, _ = d.IsUnsatisfiable(ctx, nil); unsat {
		t.Fatal("syntactic solver can't know that")
	}
	if unsat, _, _ = d.IsUnsatisfiable(ctx, never); !unsat {
		t.Fatal("solver wasn't consulted")
	}
}

func TestProject(t *testing.T) {
	x := term.NewVariable("X", "")
	y := term.NewVariable("Y", "")
	c := New(nil).Add(x, term.NewConstant("a")).Add(y, term.NewConstant("b")).Simplify()
	p := c.Project(func(v term.Variable) bool { return v == x })
	if p.String() != "?X = a" {
		t.Fatal(p)
	}
	if c.String() != "?X = a /\\ ?Y = b" {
		t.Fatal("original changed", c)
	}
}
