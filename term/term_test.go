package term

import (
	"encoding/json"
	"testing"
)

// These can't come from util/testutil, which imports this package.

func dwimjs(s string) interface{} {
	var x interface{}
	if err := json.Unmarshal([]byte(s), &x); err != nil {
		panic(err)
	}
	return x
}

func js(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		panic(err)
	}
	return string(bs)
}

func TestBuild(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
		err  bool
	}{
		{
			name: "constant",
			raw:  `"a"`,
			want: "a",
		},
		{
			name: "number",
			raw:  `3`,
			want: "3",
		},
		{
			name: "variable",
			raw:  `"?X"`,
			want: "?X",
		},
		{
			name: "sorted variable",
			raw:  `"?N:Int"`,
			want: "?N:Int",
		},
		{
			name: "application",
			raw:  `{"f":["?X","a",{"g":[]}]}`,
			want: "f(?X, a, g())",
		},
		{
			name: "shorthand",
			raw:  `{"s":{"s":0}}`,
			want: "s(s(0))",
		},
		{
			name: "two labels",
			raw:  `{"f":[],"g":[]}`,
			err:  true,
		},
		{
			name: "variable label",
			raw:  `{"?f":[]}`,
			err:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(dwimjs(tt.raw))
			if tt.err {
				if err == nil {
					t.Fatalf("expected an error but got %s", got)
				}
				if _, is := err.(*MalformedConfiguration); !is {
					t.Fatalf("wanted a *MalformedConfiguration, not a %T", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got.String() != tt.want {
				t.Fatalf("got %s, wanted %s", got, tt.want)
			}
			again, err := Build(dwimjs(js(ToRaw(got))))
			if err != nil {
				t.Fatal(err)
			}
			if !again.Equal(got) {
				t.Fatalf("round trip gave %s", again)
			}
		})
	}
}

func TestApplySharing(t *testing.T) {
	x := NewVariable("X", "")
	g := MustBuild(dwimjs(`{"g":["a","b"]}`))
	f := NewApp("f", g, x)

	s := NewSubstitution().Extend(x, NewConstant("c"))
	got := s.Apply(f)
	if got.String() != "f(g(a, b), c)" {
		t.Fatal(got)
	}
	if got.Args()[0] != g {
		t.Fatal("unchanged subterm was copied")
	}
	if f.String() != "f(g(a, b), ?X)" {
		t.Fatal("input was modified")
	}

	if NewSubstitution().Apply(f) != Term(f) {
		t.Fatal("empty substitution copied the term")
	}
}

func TestResolve(t *testing.T) {
	x := NewVariable("X", "")
	y := NewVariable("Y", "")
	s := Substitution{
		x: NewApp("f", y),
		y: NewConstant("a"),
	}
	s.Resolve()
	if s[x].String() != "f(a)" {
		t.Fatal(s)
	}
}

func TestReplace(t *testing.T) {
	f := MustBuild(dwimjs(`{"f":[{"g":["a"]},{"h":["b"]}]}`))
	got := Replace(f, Path{1, 0}, NewConstant("c"))
	if got.String() != "f(g(a), h(c))" {
		t.Fatal(got)
	}
	if got.Args()[0] != f.Args()[0] {
		t.Fatal("sibling was copied")
	}
	if At(got, Path{1, 0}).String() != "c" {
		t.Fatal("At")
	}
	if At(got, Path{3}) != nil {
		t.Fatal("At should fail")
	}
}

func TestWalkOrder(t *testing.T) {
	f := MustBuild(dwimjs(`{"f":[{"g":["a"]},"b"]}`))
	var acc []string
	Walk(f, func(p Path, t Term) bool {
		acc = append(acc, t.Label())
		return true
	})
	if js(acc) != `["f","g","a","b"]` {
		t.Fatal(js(acc))
	}
}

func TestFlatten(t *testing.T) {
	l := MustBuild(dwimjs(`{"list":["a",{"list":["b",{"list":[]}]},"c"]}`))
	got := Flatten(l, func(label string) bool { return label == "list" })
	if got.String() != "list(a, b, c)" {
		t.Fatal(got)
	}
}

func TestVars(t *testing.T) {
	f := MustBuild(dwimjs(`{"f":["?X",{"g":["?Y","?X","?"]}]}`))
	vs := Vars(f)
	if len(vs) != 2 || vs[0].Name != "X" || vs[1].Name != "Y" {
		t.Fatal(vs)
	}
	if f.Ground() {
		t.Fatal("not ground")
	}
}

func TestKeyDistinguishesTypes(t *testing.T) {
	if Key(NewConstant("3")) == Key(NewConstant(3)) {
		t.Fatal("string and number collide")
	}
	if Key(NewVariable("X", "Int")) == Key(NewVariable("X", "")) {
		t.Fatal("sorts collide")
	}
}

func TestSubstituteByName(t *testing.T) {
	body := MustBuild(dwimjs(`{"state":["?X:Int","?Y"]}`))
	got := SubstituteByName(map[string]Term{
		"X": NewConstant(1),
	}, body)
	if got.String() != "state(1, ?Y)" {
		t.Fatal(got)
	}
}

func TestMarshalJSON(t *testing.T) {
	x := MustBuild(dwimjs(`{"f":["?X:Int",1,"a",{"g":[]}]}`))
	if got := js(x); got != `{"f":["?X:Int",1,"a",{"g":[]}]}` {
		t.Fatal(got)
	}
	if got := js(map[string]Term{"X": NewConstant(true)}); got != `{"X":true}` {
		t.Fatal(got)
	}
}
