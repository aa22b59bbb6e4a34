package executor

import (
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/rewrite"
	"github.com/Comcast/kexec/term"
)

// Result is what Run and Step return.
type Result struct {
	// State is the final state.
	State *core.ConstrainedTerm `json:"-" yaml:"-"`

	Term term.Term `json:"term"`

	// Constraint is the final path constraint, if it's not
	// trivially true.
	Constraint string `json:"constraint,omitempty" yaml:",omitempty"`

	// RawOutput is the final term as rendered by the Unparser.
	RawOutput string `json:"rawOutput"`

	Stats          *core.Stats           `json:"stats"`
	StoppedBecause core.StopReason       `json:"stoppedBecause"`
	Diagnostics    []*diagnostics.Report `json:"diagnostics,omitempty" yaml:",omitempty"`
}

// SearchResult is one state found by Search.
type SearchResult struct {
	// State is the pattern's body instantiated by Subst.
	State term.Term `json:"state"`

	RawOutput string `json:"rawOutput"`

	// Subst binds the pattern's variables by name.
	Subst map[string]term.Term `json:"subst"`

	// Constraint is the path constraint of the matching state,
	// if it's not trivially true.
	Constraint string `json:"constraint,omitempty" yaml:",omitempty"`

	// Depth is the number of steps from the initial state.
	Depth int `json:"depth"`

	Info *CompilationInfo `json:"info,omitempty" yaml:",omitempty"`
}

// SearchResults is what Search returns.
type SearchResults struct {
	Results []*SearchResult `json:"results"`

	// Graph is the explored search space if Options.Graph was
	// set.
	Graph *rewrite.Graph `json:"graph,omitempty" yaml:",omitempty"`

	// IsDefaultPattern is true when the search used
	// DefaultPattern(), which matches every state.
	IsDefaultPattern bool `json:"isDefaultPattern,omitempty" yaml:",omitempty"`

	Stats       *core.Stats           `json:"stats"`
	Diagnostics []*diagnostics.Report `json:"diagnostics,omitempty" yaml:",omitempty"`
}

// CompilationInfo describes where a search pattern came from.  It's
// handed back with each SearchResult.
type CompilationInfo struct {
	Source   diagnostics.Source    `json:"source,omitempty" yaml:",omitempty"`
	Location *diagnostics.Location `json:"location,omitempty" yaml:",omitempty"`

	// Vars, if not empty, restricts each SearchResult's Subst to
	// these variables.
	Vars []string `json:"vars,omitempty" yaml:",omitempty"`
}

// Pattern is a search goal: a raw configuration to match plus side
// conditions.
type Pattern struct {
	Body     interface{}       `json:"body"`
	Requires []*core.Condition `json:"requires,omitempty" yaml:",omitempty"`

	isDefault bool
}

// DefaultBody is the body of DefaultPattern.
var DefaultBody = "?B:Bag"

// DefaultPattern returns a Pattern that matches any state.
func DefaultPattern() *Pattern {
	return &Pattern{
		Body:      DefaultBody,
		isDefault: true,
	}
}

// NewPattern makes a Pattern from a raw body and optional side
// conditions.
func NewPattern(body interface{}, requires ...*core.Condition) *Pattern {
	return &Pattern{
		Body:     body,
		Requires: requires,
	}
}

// IsDefault reports if the Pattern came from DefaultPattern.
func (p *Pattern) IsDefault() bool {
	return p.isDefault
}

func (p *Pattern) body(b term.Builder) (term.Term, error) {
	return b.Term(p.Body)
}

// generatedTop is the right side of the rule made from a Pattern.
// Search never uses it.
func generatedTop() term.Term {
	return term.NewApp("generatedTop", term.NewApp(".Bag"))
}

// rule makes a Rule with the Pattern as its left side.
func (p *Pattern) rule(b term.Builder) (*core.Rule, error) {
	r := &core.Rule{
		Name:     "pattern",
		Left:     p.Body,
		Right:    term.ToRaw(generatedTop()),
		Requires: p.Requires,
	}
	if err := r.Compile(b); err != nil {
		return nil, err
	}
	return r, nil
}
