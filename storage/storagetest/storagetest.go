// Package storagetest checks Storage implementations.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Comcast/kexec/storage"
)

// DoubleSource is a small definition that uses a native hook.
var DoubleSource = []byte(`
name: double
symbols:
  double:
    sort: Int
    hook: {interpreter: native, source: INT.add}
rules:
- {name: go, lhs: {go: ["?N"]}, rhs: {done: [{double: ["?N", "?N"]}]}}
`)

// Exercise runs the same checks against any Storage.  Implementations
// call it from their tests.
func Exercise(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	if _, err := s.GetDefinition(ctx, "double"); err == nil {
		t.Fatal("found a definition that shouldn't exist")
	} else {
		var nf *storage.NotFound
		if !errors.As(err, &nf) {
			t.Fatal(err)
		}
	}

	if err := s.PutDefinition(ctx, "double", DoubleSource); err != nil {
		t.Fatal(err)
	}
	if err := s.PutDefinition(ctx, "another", []byte(`rules: []`)); err != nil {
		t.Fatal(err)
	}

	src, err := s.GetDefinition(ctx, "double")
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != string(DoubleSource) {
		t.Fatal(string(src))
	}

	names, err := s.ListDefinitions(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 || names[0] != "another" || names[1] != "double" {
		t.Fatal(names)
	}

	for _, op := range []string{"run", "step", "search"} {
		r := &storage.RunRecord{
			Definition: "double",
			Op:         op,
			Input:      map[string]interface{}{"go": []interface{}{float64(21)}},
			Outputs:    []string{"done(42)"},
			At:         time.Now().UTC(),
		}
		if err := s.WriteRun(ctx, r); err != nil {
			t.Fatal(err)
		}
		if r.Id == "" {
			t.Fatal("no id")
		}
	}

	runs, err := s.GetRuns(ctx, "double")
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatal(len(runs))
	}
	for i, op := range []string{"run", "step", "search"} {
		if runs[i].Op != op || runs[i].Outputs[0] != "done(42)" {
			t.Fatalf("%d: %#v", i, runs[i])
		}
	}
	if !(runs[0].Id < runs[1].Id && runs[1].Id < runs[2].Id) {
		t.Fatal("ids out of order")
	}

	if runs, err = s.GetRuns(ctx, "another"); err != nil {
		t.Fatal(err)
	}
	if 0 != len(runs) {
		t.Fatal(len(runs))
	}

	if err = s.RemDefinition(ctx, "double"); err != nil {
		t.Fatal(err)
	}
	if _, err = s.GetDefinition(ctx, "double"); err == nil {
		t.Fatal("still have it")
	}
	if runs, err = s.GetRuns(ctx, "double"); err != nil {
		t.Fatal(err)
	}
	if 0 != len(runs) {
		t.Fatal("still have runs")
	}
}
