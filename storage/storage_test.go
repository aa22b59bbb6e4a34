package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/interpreters/native"
	. "github.com/Comcast/kexec/storage"
	"github.com/Comcast/kexec/storage/storagetest"
)

func TestMemStorage(t *testing.T) {
	storagetest.Exercise(t, NewMemStorage())
}

func TestLoadDefinition(t *testing.T) {
	ctx := context.Background()
	s := NewMemStorage()
	if err := s.PutDefinition(ctx, "double", storagetest.DoubleSource); err != nil {
		t.Fatal(err)
	}

	is := core.InterpretersMap{"native": native.NewInterpreter()}
	def, err := LoadDefinition(ctx, s, "double", is)
	if err != nil {
		t.Fatal(err)
	}
	if !def.Compiled() || def.Name != "double" || def.Hook("double") == nil {
		t.Fatal(def.Name)
	}

	_, err = LoadDefinition(ctx, s, "nope", is)
	var nf *NotFound
	if !errors.As(err, &nf) || nf.Name != "nope" {
		t.Fatal(err)
	}
}
