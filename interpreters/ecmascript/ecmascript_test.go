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

package ecmascript

import (
	"context"
	"testing"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"
	. "github.com/Comcast/kexec/util/testutil"
)

func exec(t *testing.T, i *Interpreter, code interface{}, args ...term.Term) term.Term {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	x, err := i.Exec(ctx, args, code, compiled)
	if err != nil {
		t.Fatal(err)
	}
	return x
}

func TestHookSimple(t *testing.T) {
	x := exec(t, NewInterpreter(), `return {likes:["chips"]};`)
	if x == nil || x.String() != "likes(chips)" {
		t.Fatal(x)
	}
}

func TestHookArgs(t *testing.T) {
	tests := []struct {
		code string
		args []term.Term
		want string
	}{
		{`return _.args[0] + _.args[1];`, []term.Term{term.NewConstant(1), term.NewConstant(2)}, "3"},
		{`return _.args.length;`, nil, "0"},
		{`return {pair:[_.args[1], _.args[0]]};`, []term.Term{Dwimterm(`{"f":["a"]}`), Dwimterm(`"b"`)}, "pair(b, f(a))"},
		{`return null;`, nil, "null"},
		{`return _.args[0] === "tacos";`, []term.Term{term.NewConstant("tacos")}, "true"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			x := exec(t, NewInterpreter(), tt.code, tt.args...)
			if x == nil {
				t.Fatal("declined")
			}
			if x.String() != tt.want {
				t.Fatalf("got %s, wanted %s", x, tt.want)
			}
		})
	}
}

func TestHookDeclines(t *testing.T) {
	if x := exec(t, NewInterpreter(), `return;`); x != nil {
		t.Fatal(x)
	}

	// Variables in the arguments mean the code doesn't even run.
	if x := exec(t, NewInterpreter(), `likes + tacos;`, Dwimterm(`{"f":["?X"]}`)); x != nil {
		t.Fatal(x)
	}

	i := NewInterpreter()
	i.Symbolic = true
	x := exec(t, i, `return {seen:[_.args[0]]};`, Dwimterm(`"?X:Int"`))
	if x == nil || x.String() != "seen(?X:Int)" {
		t.Fatal(x)
	}
}

func TestHookTimeout(t *testing.T) {
	code := `for (;;) { _.sleep(10); }`

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	i := NewInterpreter()
	i.Test = true

	compiled, err := i.Compile(ctx, code)
	if err != nil {
		t.Fatal(err)
	}

	if _, err = i.Exec(ctx, nil, code, compiled); err == nil {
		t.Fatal("didn't timeout")
	}
	msg := err.Error()
	if msg != InterruptedMessage {
		t.Fatalf("surprised by \"%s\"", msg)
	}
}

func TestHookError(t *testing.T) {
	code := `likes + tacos;`

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	i := NewInterpreter()
	if _, err := i.Exec(ctx, nil, code, nil); err == nil {
		t.Fatal("didn't protest")
	}

	if _, err := i.Compile(ctx, 42); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestCronNext(t *testing.T) {
	from := time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)
	next, err := CronNext("0 0 * * *", from)
	if err != nil {
		t.Fatal(err)
	}
	if next != 1577923200000 {
		t.Fatal(next)
	}

	if _, err = CronNext("bad", from); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestHookCronNext(t *testing.T) {
	i := NewInterpreter()
	i.Extended = true
	x := exec(t, i, `return _.cronNext("0 0 * * *", 0);`)
	if c, is := x.(*term.Constant); !is || c.Value != float64(86400000) {
		t.Fatal(x)
	}

	ctx := context.Background()
	code := `return _.cronNext("bad");`
	if _, err := i.Exec(ctx, nil, code, nil); err == nil {
		t.Fatal("didn't protest")
	}

	// Not Extended.
	if _, err := NewInterpreter().Exec(ctx, nil, `return _.cronNext("0 0 * * *");`, nil); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestHookMatch(t *testing.T) {
	i := NewInterpreter()
	i.Extended = true
	x := exec(t, i, `return _.match({f:["?X","a"]}, _.args[0])[0].X;`, Dwimterm(`{"f":["b","a"]}`))
	if x == nil || x.String() != "b" {
		t.Fatal(x)
	}

	x = exec(t, i, `return _.match({f:["?X","?X"]}, {f:["b","c"]}).length;`)
	if x == nil || x.String() != "0" {
		t.Fatal(x)
	}
}

func TestHookRequires(t *testing.T) {
	i := NewInterpreter()
	i.LibraryProvider = MakeMapLibraryProvider(map[string]string{
		"chips": `function bar() { return "chips"; }`,
	})

	src := map[string]interface{}{
		"code":     `return {likes:[bar()]};`,
		"requires": []interface{}{"chips"},
	}
	x := exec(t, i, src)
	if x == nil || x.String() != "likes(chips)" {
		t.Fatal(x)
	}

	src["requires"] = "tacos"
	if _, err := i.Compile(context.Background(), src); err == nil {
		t.Fatal("didn't protest")
	}
}

func TestHookInDefinition(t *testing.T) {
	def := &core.Definition{
		Name: "arith",
		Symbols: map[string]*core.Symbol{
			"plus": {
				Sort:       "Int",
				Attributes: []string{core.AttrHook},
				Hook: &core.HookSource{
					Interpreter: "ecmascript",
					Source:      `return _.args[0] + _.args[1];`,
				},
			},
		},
	}
	ctx := context.Background()
	is := core.InterpretersMap{
		"ecmascript": NewInterpreter(),
	}
	if err := def.Compile(ctx, is, true); err != nil {
		t.Fatal(err)
	}

	x, err := core.NewContext(def).Evaluate(ctx, Dwimterm(`{"s":[{"plus":[1,{"plus":[2,3]}]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if x.String() != "s(6)" {
		t.Fatal(x)
	}

	// plus(?X, 1) stays put.
	if x, err = core.NewContext(def).Evaluate(ctx, Dwimterm(`{"plus":["?X",1]}`)); err != nil {
		t.Fatal(err)
	}
	if x.String() != "plus(?X, 1)" {
		t.Fatal(x)
	}
}

func benchmarkCompiling(b *testing.B, compiling bool) {

	// We have a lot of code, but we only use a little of it.

	code := `

function radians (num) {
  return num * Math.PI / 180;
}

function haversine (lon1,lat1,lon2,lat2) {
  var R = 6371;
  var dLat = radians(lat2-lat1);
  var dLon = radians(lon2-lon1);
  var lat1 = radians(lat1);
  var lat2 = radians(lat2);
  var a = Math.sin(dLat/2) * Math.sin(dLat/2) + Math.sin(dLon/2) * Math.sin(dLon/2) * Math.cos(lat1) * Math.cos(lat2);
  var c = 2 * Math.atan2(Math.sqrt(a), Math.sqrt(1-a));
  var d = R * c;
  return d;
}

function bar() { return "chips"; }

return {likes:[bar(), _.args[0]]};
`

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	i := NewInterpreter()

	var compiled interface{}
	if compiling {
		var err error
		if compiled, err = i.Compile(ctx, code); err != nil {
			b.Fatal(err)
		}
	}

	args := []term.Term{term.NewConstant("tacos")}

	b.ResetTimer()

	for n := 0; n < b.N; n++ {
		if _, err := i.Exec(context.Background(), args, code, compiled); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkPrecompile(b *testing.B) {
	benchmarkCompiling(b, true)
}

func BenchmarkNoPrecompile(b *testing.B) {
	benchmarkCompiling(b, false)
}
