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

// Package term provides immutable algebraic terms, variables, and
// substitutions.
//
// A Term is a Constant, a Variable, or an App (a label applied to an
// ordered sequence of Terms).  Terms are never modified after
// construction, so they can be shared freely.  Code that wants a
// different term builds a new one; Replace and Substitution.Apply
// rebuild only the spine that actually changes.
package term

import (
	"strconv"
	"strings"
)

// DefaultSort is the sort of a variable that doesn't declare one.
var DefaultSort = "K"

// Term is a node in an algebraic term tree.
type Term interface {
	// Label is the symbol at the root of the term.  A Variable
	// reports its name with a leading '?'.
	Label() string

	// Args returns the children.  Callers must not modify the
	// returned slice.
	Args() []Term

	// Equal reports structural equality.
	Equal(Term) bool

	// Ground reports if the term is variable-free.
	Ground() bool

	String() string
}

// Constant is a leaf carrying a Go value: a string, a float64, a
// bool, or nil.
type Constant struct {
	Value interface{}
}

// NewConstant makes a Constant after normalizing numbers to float64.
func NewConstant(x interface{}) *Constant {
	return &Constant{
		Value: fudge(x),
	}
}

// fudge is a hack to cast numbers to float64s.
func fudge(x interface{}) interface{} {
	switch vv := x.(type) {
	case float32:
		return float64(vv)
	case int64:
		return float64(vv)
	case int32:
		return float64(vv)
	case int:
		return float64(vv)
	default:
		return x
	}
}

func (c *Constant) Label() string {
	switch vv := c.Value.(type) {
	case string:
		return vv
	case float64:
		return strconv.FormatFloat(vv, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(vv)
	case nil:
		return "null"
	default:
		return "<opaque>"
	}
}

func (c *Constant) Args() []Term {
	return nil
}

func (c *Constant) Equal(t Term) bool {
	d, is := t.(*Constant)
	if !is {
		return false
	}
	return c == d || c.Value == d.Value
}

func (c *Constant) Ground() bool {
	return true
}

func (c *Constant) String() string {
	return c.Label()
}

// Variable is a named placeholder with a sort.
//
// Variables are values, and two Variables are the same variable when
// their names and sorts agree.
type Variable struct {
	Name string
	Sort string
}

// NewVariable makes a Variable, using DefaultSort if the given sort
// is empty.
func NewVariable(name, sort string) Variable {
	if sort == "" {
		sort = DefaultSort
	}
	return Variable{
		Name: name,
		Sort: sort,
	}
}

// IsAnonymous reports if this variable is the "don't care" variable,
// which matches anything and is never bound.
func (v Variable) IsAnonymous() bool {
	return v.Name == "" || v.Name == "_"
}

func (v Variable) Label() string {
	return "?" + v.Name
}

func (v Variable) Args() []Term {
	return nil
}

func (v Variable) Equal(t Term) bool {
	w, is := t.(Variable)
	return is && v == w
}

func (v Variable) Ground() bool {
	return false
}

func (v Variable) String() string {
	if v.Sort == "" || v.Sort == DefaultSort {
		return "?" + v.Name
	}
	return "?" + v.Name + ":" + v.Sort
}

// App is a label applied to an ordered sequence of Terms.
type App struct {
	Name string
	Kids []Term

	ground bool
}

// NewApp makes an App.  The given args are not copied.
func NewApp(label string, args ...Term) *App {
	ground := true
	for _, arg := range args {
		if !arg.Ground() {
			ground = false
			break
		}
	}
	return &App{
		Name:   label,
		Kids:   args,
		ground: ground,
	}
}

func (a *App) Label() string {
	return a.Name
}

func (a *App) Args() []Term {
	return a.Kids
}

func (a *App) Ground() bool {
	return a.ground
}

func (a *App) Equal(t Term) bool {
	b, is := t.(*App)
	if !is {
		return false
	}
	if a == b {
		return true
	}
	if a.Name != b.Name || len(a.Kids) != len(b.Kids) || a.ground != b.ground {
		return false
	}
	for i, kid := range a.Kids {
		if !kid.Equal(b.Kids[i]) {
			return false
		}
	}
	return true
}

func (a *App) String() string {
	var b strings.Builder
	writeTerm(&b, a)
	return b.String()
}

func writeTerm(b *strings.Builder, t Term) {
	a, is := t.(*App)
	if !is {
		b.WriteString(t.String())
		return
	}
	b.WriteString(a.Name)
	b.WriteByte('(')
	for i, kid := range a.Kids {
		if 0 < i {
			b.WriteString(", ")
		}
		writeTerm(b, kid)
	}
	b.WriteByte(')')
}

// Vars returns the variables of the term in order of first
// occurrence.  Anonymous variables are not reported.
func Vars(t Term) []Variable {
	if t.Ground() {
		return nil
	}
	seen := make(map[Variable]bool)
	return vars(t, seen, nil)
}

func vars(t Term, seen map[Variable]bool, acc []Variable) []Variable {
	if t.Ground() {
		return acc
	}
	switch vv := t.(type) {
	case Variable:
		if vv.IsAnonymous() || seen[vv] {
			return acc
		}
		seen[vv] = true
		return append(acc, vv)
	default:
		for _, kid := range t.Args() {
			acc = vars(kid, seen, acc)
		}
		return acc
	}
}

// Occurs reports if the variable appears in the term.
func Occurs(v Variable, t Term) bool {
	if t.Ground() {
		return false
	}
	if w, is := t.(Variable); is {
		return v == w
	}
	for _, kid := range t.Args() {
		if Occurs(v, kid) {
			return true
		}
	}
	return false
}

// Size counts the nodes in the term.
func Size(t Term) int {
	n := 1
	for _, kid := range t.Args() {
		n += Size(kid)
	}
	return n
}
