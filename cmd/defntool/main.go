// Package main is a tool for working with definitions.
//
// The definition is read from stdin as YAML or JSON, with
// '%inline("NAME")' expanded relative to -dir.
//
//	defntool yamltojson -p < imp.yaml
//	defntool html -graph < imp.yaml > imp.html
//	defntool dot -highlight tick < counter.yaml | dot -Tpng > counter.png
//	defntool addRule -name stop -lhs 'halt' -rhs 'done' < imp.yaml
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		Usage()
		os.Exit(1)
	}

	if err := Do(os.Args[1], os.Args[2:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		if _, is := err.(*UnknownSubcommand); is {
			Usage()
		}
		os.Exit(1)
	}
}

func Usage() {
	fmt.Printf("Subcommands:\n\n")
	for _, name := range modNames() {
		mod := Mods[name]
		mod.Flags().Usage()
		fmt.Println("  " + mod.Doc())
		fmt.Println()
	}
}
