package rewrite

import (
	"errors"
	"strconv"
	"strings"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/term"
)

// NonExhaustiveMatch describes a nondeterministic choice that a
// single run made arbitrarily: more than one rule could have been
// applied, and the first one was.
//
// This isn't returned as an error.  It's reported as a warning, and
// the run continues.
type NonExhaustiveMatch struct {
	// Term is the subterm where the choice was made.
	Term string

	// Path is the position of that subterm.  Nil when the choice
	// was among successors at different positions.
	Path term.Path

	// Rules are the names of the rules that applied, in the
	// order they were tried.  The first one was chosen.
	Rules []string

	rule *core.Rule
}

func (e *NonExhaustiveMatch) Error() string {
	return strconv.Itoa(len(e.Rules)) + " rules apply to " + e.Term + ": " + strings.Join(e.Rules, ", ")
}

// Key identifies the choice for deduplicating warnings.
func (e *NonExhaustiveMatch) Key() string {
	return "nonexhaustive:" + strings.Join(e.Rules, ",")
}

// Report makes the warning, located at the chosen rule if it has a
// location.
func (e *NonExhaustiveMatch) Report() *diagnostics.Report {
	msg := "nondeterministic choice: " + e.Error()
	if e.rule != nil {
		return e.rule.Report(diagnostics.NonExhaustiveMatch, diagnostics.Compiler, msg)
	}
	return diagnostics.New(diagnostics.NonExhaustiveMatch, diagnostics.Compiler, msg)
}

func nonExhaustive(t term.Term, p term.Path, rules []*core.Rule) *NonExhaustiveMatch {
	var names []string
	seen := make(map[*core.Rule]bool, len(rules))
	for _, r := range rules {
		if seen[r] {
			continue
		}
		seen[r] = true
		names = append(names, r.Name)
	}
	var path term.Path
	if p != nil {
		path = append(term.Path{}, p...)
	}
	return &NonExhaustiveMatch{
		Term:  t.String(),
		Path:  path,
		Rules: names,
		rule:  rules[0],
	}
}

// BadSearchType occurs when parsing an unknown search type.
type BadSearchType struct {
	Given string
}

func (e *BadSearchType) Error() string {
	return `bad search type "` + e.Given + `"`
}

// NoContext occurs when a state doesn't have a Context with a
// Definition.
var NoContext = errors.New("state has no context with a definition")
