package match

// Fuzz patterns and subjects.  Match and then verify the results.

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/Comcast/kexec/term"
)

// Fuzz has parameters used to generate random patterns and subjects.
type Fuzz struct {
	Width       int
	Alphabet    string
	Labels      string
	VarAlphabet string
	MaxNumber   float64

	Strings float64
	Numbers float64
	Vars    float64
	Apps    float64
	Lists   float64
	Bags    float64

	// Rests is the probability that a generated collection gets a
	// rest variable.
	Rests float64

	// generated counts the number of atomic values generated.
	generated int64
}

// NoVars sets Vars and Rests to zero so that no variables will be
// generated.
func (f *Fuzz) NoVars() {
	f.Vars = 0
	f.Rests = 0
}

// NewFuzz returns a reasonable, general-purpose Fuzz.
func NewFuzz() *Fuzz {
	return &Fuzz{
		Width:       4,
		Alphabet:    "abc",
		Labels:      "fg",
		VarAlphabet: "XYZ",
		MaxNumber:   3,

		Strings: 3,
		Numbers: 1,
		Vars:    2,
		Apps:    2,
		Lists:   1,
		Bags:    1,
		Rests:   0.5,
	}
}

var fuzzMatcher = &Matcher{
	Collections: map[string]Collection{
		"list": {List, "List"},
		"bag":  {Bag, "Bag"},
	},
}

// Gen generates a random pattern or subject.
func (f *Fuzz) Gen(r *rand.Rand, d int) term.Term {
	m := f.Strings + f.Numbers + f.Vars
	if 0 < d {
		m += f.Apps + f.Lists + f.Bags
	}

	t := r.Float64() * m
	if t < f.Strings {
		f.generated++
		return term.NewConstant(string(f.Alphabet[r.Intn(len(f.Alphabet))]))
	} else if t < f.Strings+f.Numbers {
		f.generated++
		return term.NewConstant(float64(r.Intn(int(f.MaxNumber))))
	} else if t < f.Strings+f.Numbers+f.Vars {
		f.generated++
		return term.NewVariable(string(f.VarAlphabet[r.Intn(len(f.VarAlphabet))]), "")
	} else if t < f.Strings+f.Numbers+f.Vars+f.Apps {
		label := string(f.Labels[r.Intn(len(f.Labels))])
		return term.NewApp(label, f.genKids(r, d)...)
	} else if t < f.Strings+f.Numbers+f.Vars+f.Apps+f.Lists {
		return f.genCollection(r, d, "list", "List")
	} else {
		return f.genCollection(r, d, "bag", "Bag")
	}
}

func (f *Fuzz) genKids(r *rand.Rand, d int) []term.Term {
	xs := make([]term.Term, r.Intn(f.Width))
	for i := range xs {
		xs[i] = f.Gen(r, d-1)
	}
	return xs
}

func (f *Fuzz) genCollection(r *rand.Rand, d int, label, sort string) term.Term {
	xs := f.genKids(r, d)
	if r.Float64() < f.Rests {
		i := r.Intn(len(xs) + 1)
		xs = append(xs, nil)
		copy(xs[i+1:], xs[i:])
		xs[i] = term.NewVariable("R", sort)
	}
	return term.NewApp(label, xs...)
}

// TestMatchFuzz matches a bunch of patterns against a bunch of
// subjects.
//
// Verifies that every instantiated pattern matches its subject.
func TestMatchFuzz(t *testing.T) {
	var (
		pats       = 300
		subsPerPat = 300

		d = 3
		r = rand.New(rand.NewSource(42))
		p = NewFuzz()
		s = NewFuzz()

		matched     = 0
		attempted   = 0
		maxBindings = 0
	)
	s.NoVars()

	then := time.Now()
	for i := 0; i < pats; i++ {
		pat := p.Gen(r, d)
		for j := 0; j < subsPerPat; j++ {
			sub := fuzzMatcher.Normalize(s.Gen(r, d))
			bss := fuzzMatcher.Match(pat, sub)
			attempted++
			if 0 == len(bss) {
				continue
			}
			matched++
			if maxBindings < len(bss) {
				maxBindings = len(bss)
			}
			for _, bs := range bss {
				inst := fuzzMatcher.Normalize(bs.Apply(pat))
				if !inst.Ground() {
					t.Fatalf("%s with %s isn't ground: %s", pat, bs, inst)
				}
				if 0 == len(fuzzMatcher.Match(inst, sub)) {
					t.Fatalf("%s with %s gave %s, which doesn't match %s", pat, bs, inst, sub)
				}
			}
		}
	}
	elapsed := time.Now().Sub(then)

	fmt.Printf(`fuzzed      %d
matched     %f%%
elapsed     %fms
maxBindings %d
generated   %d
`,
		attempted,
		100*float64(matched)/float64(attempted),
		elapsed.Seconds()*1000,
		maxBindings,
		p.generated+s.generated)
}
