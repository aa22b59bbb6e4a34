// Package native provides built-in hooks implemented in Go.
//
// A HookSource with interpreter "native" names a builtin, such as
// "INT.add", as its source.  Builtins decline (return a nil Term)
// when they get arguments of the wrong types, which includes
// arguments that contain variables.
package native

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"

	"github.com/gorhill/cronexpr"
)

// Builtin is a Go implementation of a function symbol.
type Builtin func(ctx context.Context, args []term.Term) (term.Term, error)

// Builtins maps names to implementations.
type Builtins map[string]Builtin

// Standard is the default set of builtins.
var Standard = Builtins{
	"INT.add": arith2(func(x, y float64) (float64, bool) { return x + y, true }),
	"INT.sub": arith2(func(x, y float64) (float64, bool) { return x - y, true }),
	"INT.mul": arith2(func(x, y float64) (float64, bool) { return x * y, true }),
	"INT.div": arith2(func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		return math.Trunc(x / y), true
	}),
	"INT.mod": arith2(func(x, y float64) (float64, bool) {
		if y == 0 {
			return 0, false
		}
		return math.Mod(x, y), true
	}),
	"INT.lt": compare(func(x, y float64) bool { return x < y }),
	"INT.le": compare(func(x, y float64) bool { return x <= y }),
	"INT.gt": compare(func(x, y float64) bool { return x > y }),
	"INT.ge": compare(func(x, y float64) bool { return x >= y }),

	"BOOL.and": logic2(func(x, y bool) bool { return x && y }),
	"BOOL.or":  logic2(func(x, y bool) bool { return x || y }),
	"BOOL.not": func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 1 {
			return nil, nil
		}
		x, ok := boolean(args[0])
		if !ok {
			return nil, nil
		}
		return term.NewConstant(!x), nil
	},

	"K.eq": func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 2 || !args[0].Ground() || !args[1].Ground() {
			return nil, nil
		}
		return term.NewConstant(args[0].Equal(args[1])), nil
	},

	"STRING.concat": func(ctx context.Context, args []term.Term) (term.Term, error) {
		var b strings.Builder
		for _, arg := range args {
			s, ok := str(arg)
			if !ok {
				return nil, nil
			}
			b.WriteString(s)
		}
		return term.NewConstant(b.String()), nil
	},
	"STRING.length": func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 1 {
			return nil, nil
		}
		s, ok := str(args[0])
		if !ok {
			return nil, nil
		}
		return term.NewConstant(len([]rune(s))), nil
	},

	// TIME.cronNext(expr, ms) is the next time (Unix
	// milliseconds) after ms for the crontab expression.
	"TIME.cronNext": func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 2 {
			return nil, nil
		}
		expr, ok := str(args[0])
		if !ok {
			return nil, nil
		}
		ms, ok := number(args[1])
		if !ok {
			return nil, nil
		}
		c, err := cronexpr.Parse(expr)
		if err != nil {
			return nil, err
		}
		from := time.Unix(0, int64(ms)*int64(time.Millisecond)).UTC()
		next := c.Next(from)
		if next.IsZero() {
			return nil, fmt.Errorf("no next time for %q", expr)
		}
		return term.NewConstant(next.UnixNano() / int64(time.Millisecond)), nil
	},
}

func number(t term.Term) (float64, bool) {
	c, is := t.(*term.Constant)
	if !is {
		return 0, false
	}
	f, is := c.Value.(float64)
	return f, is
}

func boolean(t term.Term) (bool, bool) {
	c, is := t.(*term.Constant)
	if !is {
		return false, false
	}
	b, is := c.Value.(bool)
	return b, is
}

func str(t term.Term) (string, bool) {
	c, is := t.(*term.Constant)
	if !is {
		return "", false
	}
	s, is := c.Value.(string)
	return s, is
}

func arith2(f func(x, y float64) (float64, bool)) Builtin {
	return func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 2 {
			return nil, nil
		}
		x, ok := number(args[0])
		if !ok {
			return nil, nil
		}
		y, ok := number(args[1])
		if !ok {
			return nil, nil
		}
		z, ok := f(x, y)
		if !ok {
			return nil, nil
		}
		return term.NewConstant(z), nil
	}
}

func compare(f func(x, y float64) bool) Builtin {
	return func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 2 {
			return nil, nil
		}
		x, ok := number(args[0])
		if !ok {
			return nil, nil
		}
		y, ok := number(args[1])
		if !ok {
			return nil, nil
		}
		return term.NewConstant(f(x, y)), nil
	}
}

func logic2(f func(x, y bool) bool) Builtin {
	return func(ctx context.Context, args []term.Term) (term.Term, error) {
		if len(args) != 2 {
			return nil, nil
		}
		x, ok := boolean(args[0])
		if !ok {
			return nil, nil
		}
		y, ok := boolean(args[1])
		if !ok {
			return nil, nil
		}
		return term.NewConstant(f(x, y)), nil
	}
}

// UnknownBuiltin occurs when a HookSource names a builtin that
// doesn't exist.
type UnknownBuiltin struct {
	Name string
}

func (e *UnknownBuiltin) Error() string {
	return fmt.Sprintf("unknown builtin %q", e.Name)
}

// Interpreter implements core.Interpreter by looking up Builtins.
type Interpreter struct {
	// Builtins defaults to Standard.
	Builtins Builtins
}

// NewInterpreter makes an Interpreter with the Standard builtins.
func NewInterpreter() *Interpreter {
	return &Interpreter{
		Builtins: Standard,
	}
}

func (i *Interpreter) builtins() Builtins {
	if i.Builtins == nil {
		return Standard
	}
	return i.Builtins
}

// Compile resolves the builtin named by the source.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	name, is := src.(string)
	if !is {
		return nil, fmt.Errorf("bad native source (%T)", src)
	}
	b, have := i.builtins()[name]
	if !have {
		return nil, &UnknownBuiltin{Name: name}
	}
	return b, nil
}

func (i *Interpreter) Exec(ctx context.Context, args []term.Term, src interface{}, compiled interface{}) (term.Term, error) {
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	b, is := compiled.(Builtin)
	if !is {
		return nil, fmt.Errorf("native bad compilation: %T", compiled)
	}
	return b(ctx, args)
}

// Names returns the sorted names of the builtins.
func (bs Builtins) Names() []string {
	acc := make([]string, 0, len(bs))
	for name := range bs {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Hooks makes core.Hooks for the given symbols, which map labels to
// builtin names.  Useful for Definition.Hooks.
func (bs Builtins) Hooks(symbols map[string]string) (map[string]core.Hook, error) {
	acc := make(map[string]core.Hook, len(symbols))
	for label, name := range symbols {
		b, have := bs[name]
		if !have {
			return nil, &UnknownBuiltin{Name: name}
		}
		acc[label] = core.FuncHook(b)
	}
	return acc, nil
}

func init() {
	core.DefaultInterpreters["native"] = NewInterpreter()
}
