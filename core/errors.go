package core

// These errors are definition errors or failures of a run.  Match
// failures and unsatisfiable branches aren't errors at all.

import (
	"errors"
)

// NotCompiled occurs when a Definition is used before it has been
// Compile()ed.
type NotCompiled struct {
	Definition *Definition
}

func (e *NotCompiled) Error() string {
	if e.Definition == nil {
		return "no definition"
	}
	return `definition "` + e.Definition.Name + `" not compiled`
}

// MalformedRule occurs when a rule's terms can't be built.
type MalformedRule struct {
	Rule *Rule
	Err  error
}

func (e *MalformedRule) Error() string {
	return `rule "` + e.Rule.Name + `": ` + e.Err.Error()
}

func (e *MalformedRule) Unwrap() error {
	return e.Err
}

// BadHook occurs when a symbol's HookSource doesn't compile.
type BadHook struct {
	Definition *Definition
	Symbol     string
	Err        error
}

func (e *BadHook) Error() string {
	return `hook for "` + e.Symbol + `" in definition "` + e.Definition.Name + `": ` + e.Err.Error()
}

func (e *BadHook) Unwrap() error {
	return e.Err
}

// UnresolvedFunction occurs when a function symbol has neither
// function rules nor a hook.
type UnresolvedFunction struct {
	Label string
	Term  string
}

func (e *UnresolvedFunction) Error() string {
	return `unresolved function symbol "` + e.Label + `" in ` + e.Term
}

// MissingHook occurs when a symbol is declared with the hook
// attribute, but no Hook is available.
type MissingHook struct {
	Label string
}

func (e *MissingHook) Error() string {
	return `missing hook for "` + e.Label + `"`
}

// TooDeep occurs when evaluating function symbols recurses too much.
var TooDeep = errors.New("function evaluation too deep")
