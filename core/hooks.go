package core

import (
	"context"
	"errors"

	"github.com/Comcast/kexec/term"
)

var (
	// InterpreterNotFound occurs when you try to Compile a
	// HookSource, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used in HookSource.Compile if
	// given nil interpreters.
	DefaultInterpreters = InterpretersMap{}
)

// Hook is a built-in implementation of a function symbol.
//
// A Hook that returns a nil Term and no error declines: the
// application is left unevaluated.  Hooks do that when they get
// arguments they can't handle, such as variables.
type Hook interface {
	Apply(ctx context.Context, args []term.Term) (term.Term, error)
}

// FuncHook lets a Go function be a Hook.
type FuncHook func(ctx context.Context, args []term.Term) (term.Term, error)

func (f FuncHook) Apply(ctx context.Context, args []term.Term) (term.Term, error) {
	return f(ctx, args)
}

// Interpreter can optionally compile and execute code for Hooks.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code with the given arguments.  The
	// result of previous Compile() might be provided.
	Exec(ctx context.Context, args []term.Term, code interface{}, compiled interface{}) (term.Term, error)
}

// InterpretersMap maps interpreter names to Interpreters.
type InterpretersMap map[string]Interpreter

// Find returns the named interpreter or InterpreterNotFound.
func (m InterpretersMap) Find(name string) (Interpreter, error) {
	i, have := m[name]
	if !have {
		return nil, InterpreterNotFound
	}
	return i, nil
}

// HookSource can be compiled to a Hook.
type HookSource struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`
}

// Compile attempts to compile the HookSource into a Hook using the
// given interpreters, which defaults to DefaultInterpreters.
func (h *HookSource) Compile(ctx context.Context, interpreters InterpretersMap) (Hook, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, err := interpreters.Find(h.Interpreter)
	if err != nil {
		return nil, err
	}

	x, err := interpreter.Compile(ctx, h.Source)
	if err != nil {
		return nil, err
	}

	return FuncHook(func(ctx context.Context, args []term.Term) (term.Term, error) {
		return interpreter.Exec(ctx, args, h.Source, x)
	}), nil
}
