package term

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Builder constructs Terms from raw configurations.
//
// The raw configuration is whatever a loader produced.  RawBuilder
// handles data decoded from JSON or YAML.
type Builder interface {
	Term(raw interface{}) (Term, error)
}

// Unparser renders a Term as displayable text.
type Unparser interface {
	Render(Term) (string, error)
}

// MalformedConfiguration occurs when a raw configuration can't be
// turned into a Term.
type MalformedConfiguration struct {
	Raw    interface{}
	Reason string
}

func (e *MalformedConfiguration) Error() string {
	return "malformed configuration: " + e.Reason
}

// RawBuilder builds Terms from data decoded from JSON or YAML.
//
//	"?X"             a Variable named X with DefaultSort
//	"?X:Int"         a Variable named X with sort Int
//	"?"              the anonymous variable
//	"a", 3, true     Constants
//	{"f": [...]}     an App with label f and the given args
//	{"f": []}        a nullary App
//
// A single-key map whose value isn't an array is an App with one
// argument.
type RawBuilder struct {
	// Strict disables the one-argument shorthand.
	Strict bool
}

// DefaultBuilder is used by Build.
var DefaultBuilder = &RawBuilder{}

// Build calls DefaultBuilder.Term.
func Build(raw interface{}) (Term, error) {
	return DefaultBuilder.Term(raw)
}

// MustBuild is Build that panics on error.  For tests and examples.
func MustBuild(raw interface{}) Term {
	t, err := Build(raw)
	if err != nil {
		panic(err)
	}
	return t
}

// IsVariable reports if the string represents a variable.
//
// All variables start with a '?'.
func IsVariable(s string) bool {
	return strings.HasPrefix(s, "?")
}

// ParseVariable parses "?NAME" or "?NAME:SORT".
func ParseVariable(s string) Variable {
	s = strings.TrimPrefix(s, "?")
	if i := strings.LastIndex(s, ":"); 0 <= i {
		return NewVariable(s[:i], s[i+1:])
	}
	return NewVariable(s, "")
}

func (b *RawBuilder) Term(raw interface{}) (Term, error) {
	switch vv := raw.(type) {
	case Term:
		return vv, nil
	case nil, bool, float64, float32, int, int32, int64:
		return NewConstant(vv), nil
	case json.Number:
		f, err := vv.Float64()
		if err != nil {
			return nil, &MalformedConfiguration{raw, err.Error()}
		}
		return NewConstant(f), nil
	case string:
		if IsVariable(vv) {
			return ParseVariable(vv), nil
		}
		return NewConstant(vv), nil
	case map[string]interface{}:
		if len(vv) != 1 {
			return nil, &MalformedConfiguration{raw, fmt.Sprintf("application needs exactly one label (have %d)", len(vv))}
		}
		for label, x := range vv {
			return b.app(label, x, raw)
		}
	case map[interface{}]interface{}:
		// gopkg.in/yaml.v2 gives us these.
		if len(vv) != 1 {
			return nil, &MalformedConfiguration{raw, fmt.Sprintf("application needs exactly one label (have %d)", len(vv))}
		}
		for k, x := range vv {
			label, is := k.(string)
			if !is {
				return nil, &MalformedConfiguration{raw, fmt.Sprintf("bad label (%T)", k)}
			}
			return b.app(label, x, raw)
		}
	}
	return nil, &MalformedConfiguration{raw, fmt.Sprintf("unsupported type %T", raw)}
}

func (b *RawBuilder) app(label string, x interface{}, raw interface{}) (Term, error) {
	if label == "" || IsVariable(label) {
		return nil, &MalformedConfiguration{raw, `bad label "` + label + `"`}
	}
	xs, is := x.([]interface{})
	if !is {
		if b.Strict {
			return nil, &MalformedConfiguration{raw, `arguments for "` + label + `" aren't an array`}
		}
		xs = []interface{}{x}
	}
	args := make([]Term, len(xs))
	for i, x := range xs {
		t, err := b.Term(x)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	return NewApp(label, args...), nil
}

// ToRaw renders a Term in the raw format that RawBuilder reads.
func ToRaw(t Term) interface{} {
	switch vv := t.(type) {
	case *Constant:
		return vv.Value
	case Variable:
		if vv.IsAnonymous() {
			return "?"
		}
		return vv.String()
	case *App:
		xs := make([]interface{}, len(vv.Kids))
		for i, kid := range vv.Kids {
			xs[i] = ToRaw(kid)
		}
		return map[string]interface{}{
			vv.Name: xs,
		}
	default:
		return t.String()
	}
}

// TextUnparser renders terms in prefix notation: f(a, g(?X)).
type TextUnparser struct {
	// Quote makes string constants render as quoted strings so
	// that "3" and 3 are distinguishable.
	Quote bool
}

func (u *TextUnparser) Render(t Term) (string, error) {
	if !u.Quote {
		return t.String(), nil
	}
	var b strings.Builder
	u.write(&b, t)
	return b.String(), nil
}

func (u *TextUnparser) write(b *strings.Builder, t Term) {
	switch vv := t.(type) {
	case *Constant:
		if s, is := vv.Value.(string); is {
			fmt.Fprintf(b, "%q", s)
			return
		}
		b.WriteString(vv.Label())
	case *App:
		b.WriteString(vv.Name)
		b.WriteByte('(')
		for i, kid := range vv.Kids {
			if 0 < i {
				b.WriteString(", ")
			}
			u.write(b, kid)
		}
		b.WriteByte(')')
	default:
		b.WriteString(t.String())
	}
}

// Key returns a canonical string that distinguishes terms up to
// structural equality, including the types of constants.
func Key(t Term) string {
	var b strings.Builder
	key(&b, t)
	return b.String()
}

func key(b *strings.Builder, t Term) {
	switch vv := t.(type) {
	case *Constant:
		switch x := vv.Value.(type) {
		case string:
			fmt.Fprintf(b, "%q", x)
		default:
			b.WriteString(vv.Label())
		}
	case Variable:
		b.WriteString("?" + vv.Name + ":" + vv.Sort)
	case *App:
		fmt.Fprintf(b, "%q(", vv.Name)
		for i, kid := range vv.Kids {
			if 0 < i {
				b.WriteByte(',')
			}
			key(b, kid)
		}
		b.WriteByte(')')
	default:
		b.WriteString(t.String())
	}
}

// MarshalJSON renders the Constant in the raw format.
func (c *Constant) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}

// MarshalJSON renders the Variable in the raw format.
func (v Variable) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToRaw(v))
}

// MarshalJSON renders the App in the raw format.
func (a *App) MarshalJSON() ([]byte, error) {
	return json.Marshal(ToRaw(a))
}
