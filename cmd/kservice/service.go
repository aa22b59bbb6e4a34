package main

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/executor"
	"github.com/Comcast/kexec/storage"
	"github.com/Comcast/kexec/term"
)

// Service runs ops against stored definitions.
//
// Definitions are loaded from Storage on first use and then cached.
// Every op runs with its own core.Context, so any number of ops can
// run concurrently.
type Service struct {
	Storage      storage.Storage
	Interpreters core.InterpretersMap

	// MaxSteps caps the steps of every run and the depth of
	// every search.  Zero or negative means no cap.
	MaxSteps int

	// Record says to write a storage.RunRecord for every op.
	Record bool

	sync.RWMutex
	defs map[string]*core.UpdatableDefinition
}

func NewService(s storage.Storage, interpreters core.InterpretersMap) *Service {
	return &Service{
		Storage:      s,
		Interpreters: interpreters,
		defs:         make(map[string]*core.UpdatableDefinition),
	}
}

// definition returns the cached definition or loads it from
// Storage.
func (s *Service) definition(ctx context.Context, name string) (*core.UpdatableDefinition, error) {
	s.RLock()
	u, have := s.defs[name]
	s.RUnlock()
	if have {
		return u, nil
	}

	def, err := storage.LoadDefinition(ctx, s.Storage, name, s.Interpreters)
	if err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()
	if u, have = s.defs[name]; have {
		// Somebody beat us.
		return u, nil
	}
	u = core.NewUpdatableDefinition(def)
	s.defs[name] = u
	return u, nil
}

// PutDefinition parses and compiles the source, stores it, and
// switches any cached definition to the new one.
func (s *Service) PutDefinition(ctx context.Context, name string, src []byte) (*core.Definition, error) {
	def, err := core.ParseDefinition(src)
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = name
	}
	if err = def.Compile(ctx, s.Interpreters, true); err != nil {
		return nil, err
	}
	if err = s.Storage.PutDefinition(ctx, name, src); err != nil {
		return nil, err
	}

	s.Lock()
	defer s.Unlock()
	if u, have := s.defs[name]; have {
		if err = u.SetDefinition(def); err != nil {
			return nil, err
		}
	} else {
		s.defs[name] = core.NewUpdatableDefinition(def)
	}
	log.Printf("Service.PutDefinition %s", name)
	return def, nil
}

// Executor makes an executor for the named definition.
func (s *Service) Executor(ctx context.Context, name string, opts executor.Options) (*executor.Executor, error) {
	u, err := s.definition(ctx, name)
	if err != nil {
		return nil, err
	}
	return executor.New(u, opts), nil
}

func (s *Service) capSteps(n int) int {
	if s.MaxSteps <= 0 {
		return n
	}
	if n < 0 || s.MaxSteps < n {
		return s.MaxSteps
	}
	return n
}

func (s *Service) writeRun(ctx context.Context, rec *storage.RunRecord) {
	if !s.Record {
		return
	}
	if err := s.Storage.WriteRun(ctx, rec); err != nil {
		log.Printf("Service.writeRun error %s", err)
	}
}

// Process parses an op from JSON, does it, and returns the op with
// its results.
func (s *Service) Process(ctx context.Context, message []byte) *SOp {
	var op SOp
	if err := json.Unmarshal(message, &op); err != nil {
		op.Error, op.Err = erred(err)
		return &op
	}
	if err := op.Do(ctx, s); err != nil {
		log.Println("op.Do error", err)
	}
	return &op
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

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	js, err := json.Marshal(&x)
	if err != nil {
		return err.Error()
	}
	return string(js)
}
