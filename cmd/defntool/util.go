package main

import (
	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"

	"github.com/jsccast/yaml"
)

func parseRaw(s string) (interface{}, error) {
	var x interface{}
	if err := yaml.Unmarshal([]byte(s), &x); err != nil {
		return nil, err
	}
	return core.StringMaps(x)
}

func buildAll(xs []interface{}) ([]term.Term, error) {
	acc := make([]term.Term, 0, len(xs))
	for _, x := range xs {
		t, err := term.Build(x)
		if err != nil {
			return nil, err
		}
		acc = append(acc, t)
	}
	return acc, nil
}
