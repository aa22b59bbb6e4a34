package core

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/Comcast/kexec/match"
	"github.com/Comcast/kexec/term"

	"github.com/jsccast/yaml"
)

// Symbol attributes.
const (
	// AttrFunction marks a symbol that's evaluated eagerly by
	// function rules or a hook.
	AttrFunction = "function"

	// AttrHook marks a function symbol that's implemented by a
	// Hook.
	AttrHook = "hook"

	// AttrList marks an associative collection label.
	AttrList = "list"

	// AttrBag marks an associative-commutative collection label.
	AttrBag = "bag"

	// AttrConstructor marks a free constructor.  Symbols are
	// constructors by default.
	AttrConstructor = "constructor"
)

// Rule attributes.
const (
	// AttrOwise marks a rule that's only tried at a position
	// after all the other rules have failed there.
	AttrOwise = "owise"
)

// Definition is a signature plus rewrite rules plus built-in hooks.
//
// A Definition should be Compiled before use.  After that, it's
// read-only, and it can be shared by any number of concurrent runs.
type Definition struct {
	// Name is the generic name for this definition.  Something
	// like "imp".
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Version is the version of this definition.  Something like
	// "1.2".
	Version string `json:"version,omitempty" yaml:",omitempty"`

	// Id should be a globally unique identifier (such as a hash
	// of a canonical representation of the Definition).
	//
	// This package does not read or write this value.
	Id string `json:"id,omitempty" yaml:",omitempty"`

	// Doc is general documentation about this definition.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Symbols declares the labels that need declaring.  A label
	// that isn't declared is a constructor.
	Symbols map[string]*Symbol `json:"symbols,omitempty" yaml:",omitempty"`

	// Rules is the ordered list of rewrite rules.
	//
	// Rules whose left side's label is a function symbol are
	// function rules.  They are used by Evaluate and not as
	// transitions.
	Rules []*Rule `json:"rules,omitempty" yaml:",omitempty"`

	// Claims are rules that have been established elsewhere.
	// Search can use them to cut branches.
	Claims []*Rule `json:"claims,omitempty" yaml:",omitempty"`

	// Unordered means the rules have no priority.  Rules are then
	// tried in the order of their names, which is deterministic.
	Unordered bool `json:"unordered,omitempty" yaml:",omitempty"`

	// Hooks are built-in implementations provided in Go.  They
	// take precedence over any Symbol.Hook.
	Hooks map[string]Hook `json:"-" yaml:"-"`

	compiled  bool
	ordered   []*Rule
	priority  []*Rule
	index     map[string][]*Rule
	wildcard  []*Rule
	functions map[string][]*Rule
	hooks     map[string]Hook
	matcher   *match.Matcher
}

// Symbol declares a label.
type Symbol struct {
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Sort is the result sort.  For a collection label, it's the
	// collection's sort, which identifies rest variables.
	Sort string `json:"sort,omitempty" yaml:",omitempty"`

	Attributes []string `json:"attributes,omitempty" yaml:",omitempty"`

	// Hook, if given, can be compiled into the Hook for this
	// symbol.
	Hook *HookSource `json:"hook,omitempty" yaml:",omitempty"`
}

// Has reports if the symbol has the given attribute.
func (s *Symbol) Has(attr string) bool {
	if s == nil {
		return false
	}
	for _, a := range s.Attributes {
		if a == attr {
			return true
		}
	}
	return false
}

// IsFunction reports if the symbol is evaluated eagerly.
func (s *Symbol) IsFunction() bool {
	return s.Has(AttrFunction) || s.Has(AttrHook) || (s != nil && s.Hook != nil)
}

// ParseDefinition reads a Definition in YAML or JSON.
//
// The Definition isn't compiled.
func ParseDefinition(bs []byte) (*Definition, error) {
	var x interface{}
	if err := yaml.Unmarshal(bs, &x); err != nil {
		return nil, err
	}
	x, err := StringMaps(x)
	if err != nil {
		return nil, err
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return nil, err
	}
	var def Definition
	if err = json.Unmarshal(js, &def); err != nil {
		return nil, err
	}
	return &def, nil
}

// Copy makes a copy of the Definition that isn't compiled.
//
// Rules and Symbols are copied shallowly.
func (d *Definition) Copy(version string) *Definition {
	if version == "" {
		version = d.Version
	}
	syms := make(map[string]*Symbol, len(d.Symbols))
	for name, s := range d.Symbols {
		syms[name] = s
	}
	rules := make([]*Rule, len(d.Rules))
	for i, r := range d.Rules {
		rules[i] = r.Copy()
	}
	claims := make([]*Rule, len(d.Claims))
	for i, r := range d.Claims {
		claims[i] = r.Copy()
	}
	hooks := make(map[string]Hook, len(d.Hooks))
	for name, h := range d.Hooks {
		hooks[name] = h
	}
	return &Definition{
		Name:      d.Name,
		Version:   version,
		Doc:       d.Doc,
		Symbols:   syms,
		Rules:     rules,
		Claims:    claims,
		Unordered: d.Unordered,
		Hooks:     hooks,
	}
}

// Compile builds the rules' terms, compiles the hooks, and indexes the
// rules.
//
// If force is false, hooks that have already been compiled are kept.
func (d *Definition) Compile(ctx context.Context, interpreters InterpretersMap, force bool) error {
	if d.compiled && !force {
		return nil
	}

	if d.Symbols == nil {
		d.Symbols = make(map[string]*Symbol)
	}

	hooks := make(map[string]Hook, len(d.Symbols))
	for name, s := range d.Symbols {
		if s == nil {
			s = &Symbol{}
			d.Symbols[name] = s
		}
		if s.Hook == nil {
			continue
		}
		if !force && d.hooks[name] != nil {
			hooks[name] = d.hooks[name]
			continue
		}
		h, err := s.Hook.Compile(ctx, interpreters)
		if err != nil {
			return &BadHook{
				Definition: d,
				Symbol:     name,
				Err:        err,
			}
		}
		hooks[name] = h
	}
	for name, h := range d.Hooks {
		hooks[name] = h
	}
	d.hooks = hooks

	for i, r := range d.Rules {
		if r.Name == "" {
			r.Name = "rule" + strconv.Itoa(i)
		}
		if err := r.Compile(term.DefaultBuilder); err != nil {
			return err
		}
	}
	for i, r := range d.Claims {
		if r.Name == "" {
			r.Name = "claim" + strconv.Itoa(i)
		}
		if err := r.Compile(term.DefaultBuilder); err != nil {
			return err
		}
	}

	d.ordered = append([]*Rule(nil), d.Rules...)
	if d.Unordered {
		sort.SliceStable(d.ordered, func(i, j int) bool {
			return d.ordered[i].Name < d.ordered[j].Name
		})
	}

	d.index = make(map[string][]*Rule)
	d.functions = make(map[string][]*Rule)
	d.wildcard = nil

	var transitions []*Rule
	for _, r := range d.ordered {
		label := r.lhs.Label()
		if _, is := r.lhs.(term.Variable); !is && d.IsFunction(label) {
			d.functions[label] = append(d.functions[label], r)
			continue
		}
		transitions = append(transitions, r)
	}

	// Owise rules go after everything else at a position.
	var regular, owise []*Rule
	for _, r := range transitions {
		if r.Owise() {
			owise = append(owise, r)
		} else {
			regular = append(regular, r)
		}
	}
	d.priority = append(regular, owise...)
	for _, rs := range [][]*Rule{regular, owise} {
		for _, r := range rs {
			if _, is := r.lhs.(term.Variable); is {
				d.wildcard = append(d.wildcard, r)
				for label := range d.index {
					d.index[label] = append(d.index[label], r)
				}
				continue
			}
			label := r.lhs.Label()
			if _, have := d.index[label]; !have {
				d.index[label] = append([]*Rule(nil), d.wildcard...)
			}
			d.index[label] = append(d.index[label], r)
		}
	}

	colls := make(map[string]match.Collection)
	for name, s := range d.Symbols {
		switch {
		case s.Has(AttrList):
			colls[name] = match.Collection{Kind: match.List, Sort: s.Sort}
		case s.Has(AttrBag):
			colls[name] = match.Collection{Kind: match.Bag, Sort: s.Sort}
		}
	}
	d.matcher = &match.Matcher{
		Collections: colls,
		Signature:   d,
	}

	d.compiled = true

	return nil
}

// Compiled reports if Compile has succeeded.
func (d *Definition) Compiled() bool {
	return d.compiled
}

// Symbol returns the declaration for the label, which might be nil.
func (d *Definition) Symbol(label string) *Symbol {
	return d.Symbols[label]
}

// IsFunction reports if the label is evaluated eagerly.
func (d *Definition) IsFunction(label string) bool {
	if _, have := d.Hooks[label]; have {
		return true
	}
	return d.Symbols[label].IsFunction()
}

// IsConstructor reports if the label is a free constructor.
//
// Function symbols and collection labels aren't.
func (d *Definition) IsConstructor(label string) bool {
	s := d.Symbols[label]
	if s == nil {
		_, have := d.Hooks[label]
		return !have
	}
	if s.IsFunction() || s.Has(AttrList) || s.Has(AttrBag) {
		return false
	}
	return true
}

// Matcher returns the Matcher configured with this Definition's
// collections.
func (d *Definition) Matcher() *match.Matcher {
	if d.matcher == nil {
		return match.DefaultMatcher
	}
	return d.matcher
}

// RulesFor returns the transition rules that could apply at a
// position with the given label, in the order they should be tried.
func (d *Definition) RulesFor(label string) []*Rule {
	if rs, have := d.index[label]; have {
		return rs
	}
	return d.wildcard
}

// TransitionRules returns all the rules that aren't function rules,
// in priority order: declaration order (or by name when Unordered)
// with owise rules last.
func (d *Definition) TransitionRules() []*Rule {
	return d.priority
}

// FunctionRules returns the function rules for the label.
func (d *Definition) FunctionRules(label string) []*Rule {
	return d.functions[label]
}

// Hook returns the compiled Hook for the label, if any.
func (d *Definition) Hook(label string) Hook {
	return d.hooks[label]
}

// Definition makes any Definition a Definer.
func (d *Definition) Definition() *Definition {
	return d
}
