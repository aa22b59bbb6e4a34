package core

import (
	"strconv"

	"github.com/Comcast/kexec/constraint"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/term"
)

var (
	// DefaultMaxEvalDepth limits the recursion of Evaluate.
	DefaultMaxEvalDepth = 10000

	// MemoInitialCap is the initial capacity of a Context's
	// evaluation cache.
	MemoInitialCap = 64
)

// StopReason represents the possible reasons for a run to terminate.
type StopReason int

//go:generate stringer -type=StopReason

const (
	Done          StopReason = iota // Reached a normal form.
	Limited                         // Took the allowed number of steps.
	InternalError                   // What else to do?
)

func (r StopReason) String() string {
	switch r {
	case Done:
		return "Done"
	case Limited:
		return "Limited"
	case InternalError:
		return "InternalError"
	default:
		return "StopReason(" + strconv.Itoa(int(r)) + ")"
	}
}

func (r StopReason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Stats counts what a run did.
type Stats struct {
	// Steps is the number of rewrite steps taken.
	Steps int `json:"steps"`

	// Branches is the number of successor states generated.
	Branches int `json:"branches,omitempty" yaml:",omitempty"`

	// Pruned is the number of branches dropped because their
	// constraints were unsatisfiable.
	Pruned int `json:"pruned,omitempty" yaml:",omitempty"`

	// Visited is the number of distinct states a search
	// explored.
	Visited int `json:"visited,omitempty" yaml:",omitempty"`

	// Evaluations is the number of function applications
	// evaluated.
	Evaluations int `json:"evaluations,omitempty" yaml:",omitempty"`
}

// Context is the mutable state of one run or search.
//
// A Context must not be shared by concurrent runs.
type Context struct {
	Definition  *Definition
	Diagnostics *diagnostics.Sink
	Stats       *Stats

	// MaxEvalDepth limits the recursion of Evaluate.
	MaxEvalDepth int

	fresh  int
	memo   map[string]term.Term
	warned map[string]bool
}

// NewContext makes a Context for one run with the given Definition.
func NewContext(def *Definition) *Context {
	return &Context{
		Definition:   def,
		Diagnostics:  diagnostics.NewSink(),
		Stats:        &Stats{},
		MaxEvalDepth: DefaultMaxEvalDepth,
		memo:         make(map[string]term.Term, MemoInitialCap),
	}
}

// Fresh returns a variable that hasn't been used in this run, with the
// same sort as the given one.
func (c *Context) Fresh(v term.Variable) term.Variable {
	c.fresh++
	name := v.Name
	if v.IsAnonymous() {
		name = "_"
	}
	return term.NewVariable(name+"_"+strconv.Itoa(c.fresh), v.Sort)
}

// Report adds a diagnostic to the Context's sink.
func (c *Context) Report(r *diagnostics.Report) {
	c.Diagnostics.Add(r)
}

// ReportOnce is Report except that only the first diagnostic with a
// given key is added.  Returns true if the report was added.
func (c *Context) ReportOnce(key string, r *diagnostics.Report) bool {
	if c.warned == nil {
		c.warned = make(map[string]bool)
	}
	if c.warned[key] {
		return false
	}
	c.warned[key] = true
	c.Report(r)
	return true
}

// ConstrainedTerm is a term under a path constraint: it stands for
// all the instances of the term by solutions of the constraint.
type ConstrainedTerm struct {
	Term       term.Term
	Constraint *constraint.Constraint
	Context    *Context
}

// NewConstrainedTerm makes a ConstrainedTerm with a trivially true
// Constraint.
func NewConstrainedTerm(t term.Term, c *Context) *ConstrainedTerm {
	var sig constraint.Signature
	if c != nil && c.Definition != nil {
		sig = c.Definition.Matcher().ConstraintSignature()
	}
	return &ConstrainedTerm{
		Term:       t,
		Constraint: constraint.New(sig),
		Context:    c,
	}
}

// Key is a canonical string for the state.  Two states with the
// same Key are the same state.
func (ct *ConstrainedTerm) Key() string {
	return term.Key(ct.Term) + "|" + ct.Constraint.Key()
}

func (ct *ConstrainedTerm) String() string {
	if ct.Constraint == nil || ct.Constraint.IsTrue() {
		return ct.Term.String()
	}
	return ct.Term.String() + " /\\ " + ct.Constraint.String()
}
