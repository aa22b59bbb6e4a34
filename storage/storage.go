// Package storage persists definitions and records of the runs made
// against them.
//
// Definitions are stored as their source (YAML or JSON) so that a
// stored definition can be read by anything that can read the
// original file.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Comcast/kexec/core"
)

// RunRecord is what's stored about one op.
type RunRecord struct {
	// Id is assigned by the Storage when the record is written.
	Id string `json:"id,omitempty" yaml:",omitempty"`

	Definition string `json:"definition"`

	// Op is "run", "step", or "search".
	Op string `json:"op"`

	// Input is the raw initial configuration.
	Input interface{} `json:"input,omitempty" yaml:",omitempty"`

	// Outputs are the rendered results.
	Outputs []string `json:"outputs,omitempty" yaml:",omitempty"`

	StoppedBecause string `json:"stoppedBecause,omitempty" yaml:",omitempty"`

	Stats *core.Stats `json:"stats,omitempty" yaml:",omitempty"`

	// Error is the error message if the op failed.
	Error string `json:"error,omitempty" yaml:",omitempty"`

	At time.Time `json:"at"`
}

// Storage is a persistence interface for definitions and run records.
type Storage interface {
	PutDefinition(ctx context.Context, name string, src []byte) error

	// GetDefinition returns NotFound if there's no definition
	// with that name.
	GetDefinition(ctx context.Context, name string) ([]byte, error)

	RemDefinition(ctx context.Context, name string) error

	ListDefinitions(ctx context.Context) ([]string, error)

	WriteRun(ctx context.Context, r *RunRecord) error

	// GetRuns returns the records for the definition in the order
	// they were written.
	GetRuns(ctx context.Context, definition string) ([]*RunRecord, error)
}

// NotFound is returned when a definition isn't stored.
type NotFound struct {
	Name string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("definition %q not found", e.Name)
}

// LoadDefinition gets the named definition's source, parses it, and
// compiles it with the given interpreters.
func LoadDefinition(ctx context.Context, s Storage, name string, interpreters core.InterpretersMap) (*core.Definition, error) {
	src, err := s.GetDefinition(ctx, name)
	if err != nil {
		return nil, err
	}
	def, err := core.ParseDefinition(src)
	if err != nil {
		return nil, err
	}
	if def.Name == "" {
		def.Name = name
	}
	if err = def.Compile(ctx, interpreters, true); err != nil {
		return nil, err
	}
	return def, nil
}

// MemStorage is a Storage that just keeps everything in memory.
type MemStorage struct {
	sync.Mutex

	defs map[string][]byte
	runs map[string][]*RunRecord
	n    int
}

func NewMemStorage() *MemStorage {
	return &MemStorage{
		defs: make(map[string][]byte),
		runs: make(map[string][]*RunRecord),
	}
}

func (s *MemStorage) PutDefinition(ctx context.Context, name string, src []byte) error {
	s.Lock()
	s.defs[name] = append([]byte(nil), src...)
	s.Unlock()
	return nil
}

func (s *MemStorage) GetDefinition(ctx context.Context, name string) ([]byte, error) {
	s.Lock()
	defer s.Unlock()
	src, have := s.defs[name]
	if !have {
		return nil, &NotFound{Name: name}
	}
	return src, nil
}

func (s *MemStorage) RemDefinition(ctx context.Context, name string) error {
	s.Lock()
	delete(s.defs, name)
	delete(s.runs, name)
	s.Unlock()
	return nil
}

func (s *MemStorage) ListDefinitions(ctx context.Context) ([]string, error) {
	s.Lock()
	acc := make([]string, 0, len(s.defs))
	for name := range s.defs {
		acc = append(acc, name)
	}
	s.Unlock()
	sort.Strings(acc)
	return acc, nil
}

func (s *MemStorage) WriteRun(ctx context.Context, r *RunRecord) error {
	s.Lock()
	defer s.Unlock()
	s.n++
	r.Id = RunId(uint64(s.n))
	s.runs[r.Definition] = append(s.runs[r.Definition], r)
	return nil
}

func (s *MemStorage) GetRuns(ctx context.Context, definition string) ([]*RunRecord, error) {
	s.Lock()
	defer s.Unlock()
	return append([]*RunRecord(nil), s.runs[definition]...), nil
}

// RunId formats a sequence number as a run id that sorts
// lexicographically.
func RunId(n uint64) string {
	return fmt.Sprintf("%016d", n)
}
