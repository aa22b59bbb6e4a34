// Package main is a command-line utility to run, step, search, and
// analyze with a definition.
//
//	krun -d imp.yaml -i '{"run":[{"prog":["x"]}]}'
//	krun -d choice.yaml -op search -search '=>!' -i '"s"'
//	krun -d choice.yaml -op search -graph dot -i '"s"' | dot -Tpng > g.png
//
// The input can also come from stdin.  Inputs and definitions can be
// YAML or JSON.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
)

func main() {

	var (
		cfg = &Config{}

		timeout = flag.Duration("t", 0, "optional timeout")
	)

	flag.StringVar(&cfg.DefinitionFile, "d", "", "definition filename (YAML or JSON)")
	flag.StringVar(&cfg.Op, "op", "run", "run, step, search, or analyze")
	flag.StringVar(&cfg.Input, "i", "", "input configuration (YAML or JSON); stdin if empty")
	flag.IntVar(&cfg.Steps, "n", -1, "maximum steps for step (negative for no limit)")
	flag.StringVar(&cfg.SearchType, "search", "=>*", "search type: =>1, =>+, =>*, or =>!")
	flag.IntVar(&cfg.Bound, "bound", -1, "maximum number of search results")
	flag.IntVar(&cfg.Depth, "depth", -1, "maximum search depth")
	flag.StringVar(&cfg.Pattern, "pattern", "", "search pattern body (YAML or JSON)")
	flag.StringVar(&cfg.Requires, "requires", "", "search pattern side conditions as a list of {left:..., right:...}")
	flag.BoolVar(&cfg.PatternMatching, "concrete", false, "use the concrete rewriter")
	flag.BoolVar(&cfg.Claims, "claims", false, "use the definition's claims during search")
	flag.StringVar(&cfg.Graph, "graph", "", "render the search space as dot, mermaid, or json")
	flag.StringVar(&cfg.Format, "f", "text", "output format: text, json, or yaml")
	flag.StringVar(&cfg.DB, "db", "", "optional bolt database for definitions and run records")
	flag.StringVar(&cfg.Name, "name", "", "definition name for -db (defaults to the definition's name)")
	flag.StringVar(&cfg.LibDir, "lib", ".", "directory for ECMAScript libraries")
	flag.BoolVar(&cfg.Verbose, "v", false, "print diagnostics verbosely")

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	if 0 < *timeout {
		ctx, cancel = context.WithTimeout(context.Background(), *timeout)
	}
	defer cancel()

	var in io.Reader = os.Stdin
	if cfg.Input != "" {
		in = nil
	}

	if err := Run(ctx, cfg, in, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
