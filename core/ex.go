package core

import (
	"context"

	"github.com/Comcast/kexec/term"
)

// ABCDefinition makes an example Definition that's useful to have
// around: a => b and b => c.
func ABCDefinition(ctx context.Context) (*Definition, error) {
	def := &Definition{
		Name: "abc",
		Rules: []*Rule{
			{
				Name:  "ab",
				Left:  "a",
				Right: "b",
			},
			{
				Name:  "bc",
				Left:  "b",
				Right: "c",
			},
		},
	}

	if err := def.Compile(ctx, nil, true); err != nil {
		return nil, err
	}

	return def, nil
}

// ChoiceDefinition makes an example Definition with a
// nondeterministic choice: s => l, s => r, and then l => done and
// r => done.
func ChoiceDefinition(ctx context.Context) (*Definition, error) {
	def := &Definition{
		Name: "choice",
		Rules: []*Rule{
			{Name: "left", Left: "s", Right: "l"},
			{Name: "right", Left: "s", Right: "r"},
			{Name: "l", Left: "l", Right: "done"},
			{Name: "r", Left: "r", Right: "done"},
		},
	}

	if err := def.Compile(ctx, nil, true); err != nil {
		return nil, err
	}

	return def, nil
}

// CounterDefinition makes an example Definition that counts down
// using Go hooks:
//
//	count(?N) => count(dec(?N)) requires positive(?N) = true
//
// "dec" and "positive" decline when their argument isn't a number.
func CounterDefinition(ctx context.Context) (*Definition, error) {
	number := func(t term.Term) (float64, bool) {
		c, is := t.(*term.Constant)
		if !is {
			return 0, false
		}
		f, is := c.Value.(float64)
		return f, is
	}

	def := &Definition{
		Name: "counter",
		Symbols: map[string]*Symbol{
			"dec":      {Sort: "Int", Attributes: []string{AttrHook}},
			"positive": {Sort: "Bool", Attributes: []string{AttrHook}},
		},
		Rules: []*Rule{
			{
				Name:  "tick",
				Left:  map[string]interface{}{"count": []interface{}{"?N"}},
				Right: map[string]interface{}{"count": []interface{}{map[string]interface{}{"dec": []interface{}{"?N"}}}},
				Requires: []*Condition{
					{
						Left:  map[string]interface{}{"positive": []interface{}{"?N"}},
						Right: true,
					},
				},
			},
		},
		Hooks: map[string]Hook{
			"dec": FuncHook(func(ctx context.Context, args []term.Term) (term.Term, error) {
				if len(args) != 1 {
					return nil, nil
				}
				n, ok := number(args[0])
				if !ok {
					return nil, nil
				}
				return term.NewConstant(n - 1), nil
			}),
			"positive": FuncHook(func(ctx context.Context, args []term.Term) (term.Term, error) {
				if len(args) != 1 {
					return nil, nil
				}
				n, ok := number(args[0])
				if !ok {
					return nil, nil
				}
				return term.NewConstant(0 < n), nil
			}),
		},
	}

	if err := def.Compile(ctx, nil, true); err != nil {
		return nil, err
	}

	return def, nil
}
