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

// Package main is a little command-line utility to invoke the matcher.
//
//	patmatch -p '{"f":["?X","a"]}' -s '{"f":["b","a"]}' -w '[{"X":"b"}]'
//	patmatch -d defn.yaml -p '{"bag":["a","?R:Bag"]}' -s '{"bag":["b","a"]}'
//	patmatch -symbolic -p '{"f":["?X","?X"]}' -s '{"f":["?Y","b"]}'
//
// A definition gives the matcher its list and bag labels.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/match"
	"github.com/Comcast/kexec/term"
)

func main() {
	var (
		subjectJS = flag.String("s", "", "subject in JSON")
		patternJS = flag.String("p", "", "pattern in JSON")
		wantJS    = flag.String("w", "", "wanted substitutions in JSON")
		defnFile  = flag.String("d", "", "optional definition (for collections)")
		symbolic  = flag.Bool("symbolic", false, "constrained matching")

		bench = flag.Int("bench", 0, "number of times to run (and report time)")

		verbose = flag.Bool("v", false, "verbosity")
	)

	flag.Parse()

	m := match.DefaultMatcher
	if *defnFile != "" {
		src, err := os.ReadFile(*defnFile)
		if err != nil {
			log.Fatal(err)
		}
		def, err := core.ParseDefinition(src)
		if err != nil {
			log.Fatal(err)
		}
		// Hooks aren't needed to match.
		def.Symbols = withoutHooks(def.Symbols)
		if err = def.Compile(context.Background(), nil, true); err != nil {
			log.Fatal(err)
		}
		m = def.Matcher()
	}

	pattern, err := parseTerm(*patternJS)
	if err != nil {
		log.Fatal(err)
	}
	subject, err := parseTerm(*subjectJS)
	if err != nil {
		log.Fatal(err)
	}

	if 0 < *bench {
		var stats runtime.MemStats
		runtime.ReadMemStats(&stats)
		allocs := stats.TotalAlloc
		then := time.Now()
		for i := 0; i < *bench; i++ {
			Match(m, pattern, subject, *symbolic)
		}
		elapsed := time.Now().Sub(then)
		meanNanos := elapsed.Nanoseconds() / int64(*bench)

		runtime.ReadMemStats(&stats)
		allocated := (stats.TotalAlloc - allocs) / uint64(*bench)

		log.Printf("%d iterations, %d mean ns/Match, %d mean bytes allocated per Match", *bench, meanNanos, allocated)
	}

	got := Match(m, pattern, subject, *symbolic)

	if *wantJS != "" {
		var want []map[string]interface{}
		if err := json.Unmarshal([]byte(*wantJS), &want); err != nil {
			log.Fatal(err)
		}
		ok, err := Same(want, got, *verbose)
		if err != nil {
			log.Fatal(err)
		}
		fmt.Printf("%v\n", ok)
		return
	}

	js, err := json.Marshal(got)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%s\n", js)
}

// Found is one match as reported by this command.
type Found struct {
	Subst      map[string]interface{} `json:"subst"`
	Constraint string                 `json:"constraint,omitempty"`
}

// Match runs the matcher and reports substitutions by variable name
// in the raw format.
func Match(m *match.Matcher, pattern, subject term.Term, symbolic bool) []*Found {
	acc := make([]*Found, 0, 4)
	raw := func(s term.Substitution) map[string]interface{} {
		bs := make(map[string]interface{}, len(s))
		for name, t := range s.ByName() {
			bs[name] = term.ToRaw(t)
		}
		return bs
	}
	if symbolic {
		for _, r := range m.MatchConstrained(pattern, subject, nil) {
			f := &Found{Subst: raw(r.Subst)}
			if r.Constraint != nil && !r.Constraint.IsTrue() {
				f.Constraint = r.Constraint.String()
			}
			acc = append(acc, f)
		}
		return acc
	}
	for _, s := range m.Match(pattern, subject) {
		acc = append(acc, &Found{Subst: raw(s)})
	}
	return acc
}

// Same checks that the wanted substitutions are exactly the ones
// found (ignoring order).
func Same(want []map[string]interface{}, got []*Found, verbose bool) (bool, error) {
	if len(want) != len(got) {
		if verbose {
			fmt.Printf("wanted %d, got %d\n", len(want), len(got))
		}
		return false, nil
	}
	used := make([]bool, len(got))
WANTED:
	for _, w := range want {
		wjs, err := json.Marshal(w)
		if err != nil {
			return false, err
		}
		for i, f := range got {
			if used[i] {
				continue
			}
			// encoding/json sorts map keys.
			gjs, err := json.Marshal(f.Subst)
			if err != nil {
				return false, err
			}
			if string(wjs) == string(gjs) {
				used[i] = true
				continue WANTED
			}
		}
		if verbose {
			fmt.Printf("didn't find %s\n", wjs)
		}
		return false, nil
	}
	return true, nil
}

func parseTerm(js string) (term.Term, error) {
	var x interface{}
	if err := json.Unmarshal([]byte(js), &x); err != nil {
		return nil, err
	}
	return term.Build(x)
}

func withoutHooks(syms map[string]*core.Symbol) map[string]*core.Symbol {
	acc := make(map[string]*core.Symbol, len(syms))
	for label, s := range syms {
		if s == nil {
			continue
		}
		c := *s
		c.Hook = nil
		acc[label] = &c
	}
	return acc
}
