package term

import (
	"sort"
	"strings"
)

// Substitution is a map from Variables to their values.
type Substitution map[Variable]Term

func NewSubstitution() Substitution {
	return make(Substitution, 8)
}

// Copy makes a shallow copy of the Substitution.
func (s Substitution) Copy() Substitution {
	acc := make(Substitution, len(s)+1)
	for v, t := range s {
		acc[v] = t
	}
	return acc
}

// Extend adds a binding; modifies and returns the Substitution.
func (s Substitution) Extend(v Variable, t Term) Substitution {
	s[v] = t
	return s
}

// Apply replaces the bound variables in the given term.
//
// Subterms that don't change are shared with the input, so applying
// an empty Substitution (or any Substitution to a ground term)
// returns the term itself.
//
// Bindings are applied once.  Callers that bind variables to terms
// containing other bound variables should Resolve first.
func (s Substitution) Apply(t Term) Term {
	if len(s) == 0 || t.Ground() {
		return t
	}
	switch vv := t.(type) {
	case Variable:
		if x, have := s[vv]; have {
			return x
		}
		return t
	case *App:
		var kids []Term
		for i, kid := range vv.Kids {
			y := s.Apply(kid)
			if kids == nil {
				if y == kid {
					continue
				}
				kids = make([]Term, len(vv.Kids))
				copy(kids, vv.Kids[:i])
			}
			kids[i] = y
		}
		if kids == nil {
			return t
		}
		return NewApp(vv.Name, kids...)
	default:
		return t
	}
}

// Resolve applies the Substitution to its own values until no value
// mentions a bound variable.  Bindings that would be circular are
// left as they are.
func (s Substitution) Resolve() Substitution {
	for i := 0; i < len(s); i++ {
		changed := false
		for v, t := range s {
			u := s.Apply(t)
			if u != t && !Occurs(v, u) {
				s[v] = u
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return s
}

// Compose returns a Substitution equivalent to applying s and then
// other.
func (s Substitution) Compose(other Substitution) Substitution {
	acc := make(Substitution, len(s)+len(other))
	for v, t := range s {
		acc[v] = other.Apply(t)
	}
	for v, t := range other {
		if _, have := acc[v]; !have {
			acc[v] = t
		}
	}
	return acc
}

// Restrict returns the bindings for the given variables only.
func (s Substitution) Restrict(vs []Variable) Substitution {
	acc := make(Substitution, len(vs))
	for _, v := range vs {
		if t, have := s[v]; have {
			acc[v] = t
		}
	}
	return acc
}

// ByName returns the bindings keyed by variable name.
func (s Substitution) ByName() map[string]Term {
	acc := make(map[string]Term, len(s))
	for v, t := range s {
		acc[v.Name] = t
	}
	return acc
}

// Vars returns the bound variables sorted by name and then sort.
func (s Substitution) Vars() []Variable {
	acc := make([]Variable, 0, len(s))
	for v := range s {
		acc = append(acc, v)
	}
	sort.Slice(acc, func(i, j int) bool {
		if acc[i].Name == acc[j].Name {
			return acc[i].Sort < acc[j].Sort
		}
		return acc[i].Name < acc[j].Name
	})
	return acc
}

// String renders the bindings in a canonical order.
func (s Substitution) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range s.Vars() {
		if 0 < i {
			b.WriteString(", ")
		}
		b.WriteString(v.String())
		b.WriteString(" -> ")
		b.WriteString(s[v].String())
	}
	b.WriteByte('}')
	return b.String()
}

// Equal reports if the two Substitutions have the same bindings.
func (s Substitution) Equal(other Substitution) bool {
	if len(s) != len(other) {
		return false
	}
	for v, t := range s {
		u, have := other[v]
		if !have || !t.Equal(u) {
			return false
		}
	}
	return true
}

// SubstituteByName replaces variables by name.
//
// This function is the substitution-application collaborator used
// to turn search hits into witness terms: the bindings come keyed by
// name, and the variables in the pattern body can carry any sort.
func SubstituteByName(bs map[string]Term, t Term) Term {
	if len(bs) == 0 || t.Ground() {
		return t
	}
	switch vv := t.(type) {
	case Variable:
		if x, have := bs[vv.Name]; have {
			return x
		}
		return t
	case *App:
		kids := make([]Term, len(vv.Kids))
		for i, kid := range vv.Kids {
			kids[i] = SubstituteByName(bs, kid)
		}
		return NewApp(vv.Name, kids...)
	default:
		return t
	}
}

// Rename returns a Substitution that maps each of the given
// variables to the variable the function provides.
func Rename(vs []Variable, f func(Variable) Variable) Substitution {
	acc := make(Substitution, len(vs))
	for _, v := range vs {
		acc[v] = f(v)
	}
	return acc
}

// Path is the address of a subterm: a sequence of argument indexes
// starting at the root.
type Path []int

// At returns the subterm at the given path.  Returns nil if the path
// doesn't exist.
func At(t Term, p Path) Term {
	for _, i := range p {
		args := t.Args()
		if i < 0 || len(args) <= i {
			return nil
		}
		t = args[i]
	}
	return t
}

// Replace returns a term that is the given term except with the
// subterm at the given path replaced.  Only the spine from the root
// to the path is rebuilt.
func Replace(t Term, p Path, x Term) Term {
	if len(p) == 0 {
		return x
	}
	a, is := t.(*App)
	if !is || p[0] < 0 || len(a.Kids) <= p[0] {
		return t
	}
	kids := make([]Term, len(a.Kids))
	copy(kids, a.Kids)
	kids[p[0]] = Replace(kids[p[0]], p[1:], x)
	return NewApp(a.Name, kids...)
}

// Walk visits every subterm in pre-order (root first, then arguments
// left to right).  If the function returns false, the walk stops.
//
// The Path given to the function is reused; copy it to keep it.
func Walk(t Term, f func(Path, Term) bool) bool {
	return walk(t, make(Path, 0, 8), f)
}

func walk(t Term, p Path, f func(Path, Term) bool) bool {
	if !f(p, t) {
		return false
	}
	for i, kid := range t.Args() {
		if !walk(kid, append(p, i), f) {
			return false
		}
	}
	return true
}

// Flatten splices nested applications of the given associative
// labels into their parents, so that list(a, list(b, c)) becomes
// list(a, b, c).
func Flatten(t Term, assoc func(label string) bool) Term {
	a, is := t.(*App)
	if !is {
		return t
	}
	var (
		changed = false
		kids    = make([]Term, 0, len(a.Kids))
		flat    = assoc(a.Name)
	)
	for _, kid := range a.Kids {
		k := Flatten(kid, assoc)
		if k != kid {
			changed = true
		}
		if flat {
			if b, is := k.(*App); is && b.Name == a.Name {
				kids = append(kids, b.Kids...)
				changed = true
				continue
			}
		}
		kids = append(kids, k)
	}
	if !changed {
		return t
	}
	return NewApp(a.Name, kids...)
}
