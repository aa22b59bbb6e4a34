/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package diagnostics provides structured error and warning reports.
//
// A Report has a Type (which decides whether it's an error or a
// warning), a Group, a message, and optionally a Source and Location.
// When a Report has both, its rendering includes an excerpt of the
// source with the reported columns marked.
//
// Reports accumulate trace frames.  Consecutive identical frames are
// collapsed into one frame followed by " * n".
package diagnostics

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the kind of a Report.  Every Type other than Error is a
// warning.
type Type int

const (
	Error Type = iota
	NonExhaustiveMatch
	UndeletedTempDir
	MissingHookOCaml
	MissingSyntaxModule
	InvalidExitCode
	InvalidConfigVar
	FutureError
	UnusedVar
	ProofLint
	NonLRGrammar

	// FirstHidden separates the warnings that are shown by
	// default from the ones that come after it.
	FirstHidden

	MissingHook
	UselessRule
	UnresolvedFunctionSymbol
	MalformedMarkdown
	InvalidatedCache
	UnusedSymbol
)

var typeNames = []string{
	"ERROR",
	"NON_EXHAUSTIVE_MATCH",
	"UNDELETED_TEMP_DIR",
	"MISSING_HOOK_OCAML",
	"MISSING_SYNTAX_MODULE",
	"INVALID_EXIT_CODE",
	"INVALID_CONFIG_VAR",
	"FUTURE_ERROR",
	"UNUSED_VAR",
	"PROOF_LINT",
	"NON_LR_GRAMMAR",
	"FIRST_HIDDEN",
	"MISSING_HOOK",
	"USELESS_RULE",
	"UNRESOLVED_FUNCTION_SYMBOL",
	"MALFORMED_MARKDOWN",
	"INVALIDATED_CACHE",
	"UNUSED_SYMBOL",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return fmt.Sprintf("Type(%d)", int(t))
	}
	return typeNames[t]
}

// Hidden reports if warnings of this type are hidden by default.
func (t Type) Hidden() bool {
	return FirstHidden < t
}

func (t Type) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Type) UnmarshalText(bs []byte) error {
	s := string(bs)
	for i, name := range typeNames {
		if name == s {
			*t = Type(i)
			return nil
		}
	}
	return fmt.Errorf("unknown diagnostic type %q", s)
}

// Group is the part of the system a Report came from.
type Group int

const (
	OuterParser Group = iota
	InnerParser
	Compiler
	Lists
	Internal
	Critical
	Debugger
)

var groupLabels = map[Group]string{
	Compiler:    "Compiler",
	OuterParser: "Outer Parser",
	InnerParser: "Inner Parser",
	Lists:       "Lists",
	Internal:    "Internal",
	Critical:    "Critical",
	Debugger:    "Debugger",
}

// Label is the human-readable name of the Group.
func (g Group) Label() string {
	if s, have := groupLabels[g]; have {
		return s
	}
	return fmt.Sprintf("Group(%d)", int(g))
}

func (g Group) String() string {
	return g.Label()
}

func (g Group) MarshalText() ([]byte, error) {
	return []byte(g.Label()), nil
}

// Source names the file a Location refers to.
type Source string

func (s Source) String() string {
	return "Source(" + string(s) + ")"
}

// Location is a span of lines and columns.  Lines and columns start
// at one.  EndColumn is exclusive.
type Location struct {
	StartLine   int `json:"startLine"`
	StartColumn int `json:"startColumn"`
	EndLine     int `json:"endLine"`
	EndColumn   int `json:"endColumn"`
}

func (l *Location) String() string {
	return fmt.Sprintf("Location(%d,%d,%d,%d)", l.StartLine, l.StartColumn, l.EndLine, l.EndColumn)
}

// maxFrames is the most distinct trace frames a Report keeps.
const maxFrames = 1024

// Report is a structured error or warning.
//
// A Report implements error.
type Report struct {
	Type     Type      `json:"type"`
	Group    Group     `json:"group"`
	Message  string    `json:"message"`
	Source   Source    `json:"source,omitempty" yaml:",omitempty"`
	Location *Location `json:"location,omitempty" yaml:",omitempty"`

	// Err is the underlying error, if any.
	Err error `json:"-"`

	// Reader gets the lines of the Source.  If nil, the file is
	// read with DefaultReader.
	Reader SourceReader `json:"-"`

	trace     strings.Builder
	frames    int
	identical int
	lastFrame string
}

// New makes a Report.
func New(t Type, g Group, msg string) *Report {
	return &Report{
		Type:      t,
		Group:     g,
		Message:   msg,
		identical: 1,
	}
}

// Newf is New with a format.
func Newf(t Type, g Group, format string, args ...interface{}) *Report {
	return New(t, g, fmt.Sprintf(format, args...))
}

// CriticalError makes an Error in the Critical group.
func CriticalError(msg string) *Report {
	return New(Error, Critical, msg)
}

// Wrap makes a Report for the given error.  If the error already is
// (or wraps) a Report, that Report is returned.
func Wrap(t Type, g Group, err error) *Report {
	var r *Report
	if errors.As(err, &r) {
		return r
	}
	return New(t, g, err.Error()).WithError(err)
}

// WithError sets the underlying error.  Returns the Report.
func (r *Report) WithError(err error) *Report {
	r.Err = err
	return r
}

// At sets the Source and Location.  Returns the Report.
func (r *Report) At(src Source, loc *Location) *Report {
	r.Source = src
	r.Location = loc
	return r
}

// IsError reports if the Report's Type is Error.
func (r *Report) IsError() bool {
	return r.Type == Error
}

// AddTraceFrame appends a frame to the trace.
//
// A frame that's the same as the previous one just increments that
// frame's count.  After maxFrames distinct frames, frames are
// ignored.
func (r *Report) AddTraceFrame(frame string) {
	if maxFrames <= r.frames {
		return
	}
	if 0 < r.frames && frame == r.lastFrame {
		r.identical++
		return
	}
	if 1 < r.identical {
		fmt.Fprintf(&r.trace, " * %d", r.identical)
		r.identical = 1
	}
	r.trace.WriteString("\n  ")
	r.trace.WriteString(frame)
	r.lastFrame = frame
	r.frames++
}

// FormatTraceFrame is AddTraceFrame with a format.
func (r *Report) FormatTraceFrame(format string, args ...interface{}) {
	r.AddTraceFrame(fmt.Sprintf(format, args...))
}

func (r *Report) traceTail() string {
	if 1 < r.identical {
		return fmt.Sprintf(" * %d", r.identical)
	}
	return ""
}

// Trace returns the rendered trace.
func (r *Report) Trace() string {
	return r.trace.String() + r.traceTail()
}

func (r *Report) severity() string {
	if r.Type == Error {
		return "Error"
	}
	return "Warning"
}

// Format renders the Report.
//
// The verbose rendering also includes the chain of wrapped errors
// below Err.
func (r *Report) Format(verbose bool) string {
	var b strings.Builder
	b.WriteString("[" + r.severity() + "] " + r.Group.Label() + ": " + r.Message)
	if r.Err != nil {
		b.WriteString(" (" + simpleName(r.Err) + ": " + r.Err.Error() + ")")
		if verbose {
			for err := errors.Unwrap(r.Err); err != nil; err = errors.Unwrap(err) {
				b.WriteString("\n  caused by " + simpleName(err) + ": " + err.Error())
			}
		}
	}
	b.WriteString(r.Trace())
	if r.Source != "" {
		b.WriteString("\n\t" + r.Source.String())
	}
	if r.Location != nil {
		b.WriteString("\n\t" + r.Location.String())
	}
	if r.Source != "" && r.Location != nil {
		if text, ok := Excerpt(r.reader(), r.Source, r.Location); ok {
			b.WriteString(text)
		}
	}
	return b.String()
}

func (r *Report) String() string {
	return r.Format(false)
}

func (r *Report) Error() string {
	return r.Format(false)
}

func (r *Report) Unwrap() error {
	return r.Err
}

func (r *Report) reader() SourceReader {
	if r.Reader == nil {
		return DefaultReader
	}
	return r.Reader
}

// simpleName is the name of the error's type without the package or
// pointer.
func simpleName(err error) string {
	s := fmt.Sprintf("%T", err)
	s = strings.TrimLeft(s, "*")
	if i := strings.LastIndex(s, "."); 0 <= i {
		s = s[i+1:]
	}
	return s
}
