package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/executor"
	"github.com/Comcast/kexec/rewrite"
	"github.com/Comcast/kexec/storage"
	"github.com/Comcast/kexec/tools"
)

// SOp is a Service Operation.
//
// Only one of the operations should have value.  The response to an
// SOp is the same SOp with its results filled in.
type SOp struct {
	// Id is echoed back so a client can match responses to
	// requests.  Ops run concurrently, so responses can arrive
	// out of order.
	Id string `json:"id,omitempty" yaml:",omitempty"`

	Run             *RunOp           `json:"run,omitempty" yaml:",omitempty"`
	Step            *RunOp           `json:"step,omitempty" yaml:",omitempty"`
	Search          *SearchOp        `json:"search,omitempty" yaml:",omitempty"`
	PutDefinition   *PutDefinitionOp `json:"putDefinition,omitempty" yaml:",omitempty"`
	GetDefinition   *GetDefinitionOp `json:"getDefinition,omitempty" yaml:",omitempty"`
	ListDefinitions *ListOp          `json:"listDefinitions,omitempty" yaml:",omitempty"`
	Analyze         *AnalyzeOp       `json:"analyze,omitempty" yaml:",omitempty"`

	// Error will hold an error (if any) that results from
	// processing this operation.
	Error error `json:"-" yaml:"-"`

	// Err will hold a string representation of an error (if any)
	// that results from processing this operation.
	Err string `json:"err,omitempty" yaml:",omitempty"`
}

// erred is a utility function to return values to assign to operation
// Error and Err fields.
func erred(err error) (error, string) {
	if err == nil {
		return nil, ""
	}
	return err, err.Error()
}

// Do performs the operation.  The op's fields get the results, and
// any error is also recorded in the op.
func (o *SOp) Do(ctx context.Context, s *Service) error {

	var err error
	switch {
	case o.Run != nil:
		err = o.Run.Do(ctx, s, "run")
	case o.Step != nil:
		err = o.Step.Do(ctx, s, "step")
	case o.Search != nil:
		err = o.Search.Do(ctx, s)
	case o.PutDefinition != nil:
		err = o.PutDefinition.Do(ctx, s)
	case o.GetDefinition != nil:
		err = o.GetDefinition.Do(ctx, s)
	case o.ListDefinitions != nil:
		err = o.ListDefinitions.Do(ctx, s)
	case o.Analyze != nil:
		err = o.Analyze.Do(ctx, s)
	default:
		err = fmt.Errorf("not implemented: %s", JS(o))
	}

	if err != nil && o.Error == nil {
		o.Error, o.Err = erred(err)
	}

	return o.Error
}

// RunOp is a run or a step.
type RunOp struct {
	Definition string      `json:"definition"`
	Input      interface{} `json:"input"`

	// Steps is the maximum number of steps.  Negative (or
	// missing) means no limit other than the service's cap.  A
	// run ignores Steps.
	Steps *int `json:"steps,omitempty" yaml:",omitempty"`

	// PatternMatching selects the concrete rewriter.
	PatternMatching bool `json:"patternMatching,omitempty" yaml:",omitempty"`

	Result *executor.Result `json:"result,omitempty" yaml:",omitempty"`
}

func (o *RunOp) Do(ctx context.Context, s *Service, kind string) error {
	e, err := s.Executor(ctx, o.Definition, executor.Options{
		PatternMatching: o.PatternMatching,
	})
	if err != nil {
		return err
	}

	n := -1
	if kind == "step" && o.Steps != nil {
		n = *o.Steps
	}
	n = s.capSteps(n)

	o.Result, err = e.Step(ctx, o.Input, n)

	rec := s.record(o.Definition, kind, o.Input, err)
	if o.Result != nil {
		rec.Outputs = []string{o.Result.RawOutput}
		rec.StoppedBecause = o.Result.StoppedBecause.String()
		rec.Stats = o.Result.Stats
	}
	s.writeRun(ctx, rec)

	return err
}

// SearchOp is a search for states matching a pattern.
type SearchOp struct {
	Definition string      `json:"definition"`
	Input      interface{} `json:"input"`

	// Type is one of "=>1", "=>+", "=>*", "=>!".  Defaults to
	// "=>*".
	Type string `json:"type,omitempty" yaml:",omitempty"`

	Bound *int `json:"bound,omitempty" yaml:",omitempty"`
	Depth *int `json:"depth,omitempty" yaml:",omitempty"`

	// Pattern defaults to executor.DefaultPattern().
	Pattern *executor.Pattern `json:"pattern,omitempty" yaml:",omitempty"`

	// Vars, if given, restrict the reported substitutions.
	Vars []string `json:"vars,omitempty" yaml:",omitempty"`

	PatternMatching bool `json:"patternMatching,omitempty" yaml:",omitempty"`
	Claims          bool `json:"claims,omitempty" yaml:",omitempty"`
	Graph           bool `json:"graph,omitempty" yaml:",omitempty"`

	Results *executor.SearchResults `json:"results,omitempty" yaml:",omitempty"`
}

func (o *SearchOp) Do(ctx context.Context, s *Service) error {
	st := rewrite.Star
	if o.Type != "" {
		var err error
		if st, err = rewrite.ParseSearchType(o.Type); err != nil {
			return err
		}
	}

	e, err := s.Executor(ctx, o.Definition, executor.Options{
		PatternMatching: o.PatternMatching,
		Claims:          o.Claims,
		Graph:           o.Graph,
	})
	if err != nil {
		return err
	}

	depth := -1
	if o.Depth != nil {
		depth = *o.Depth
	}
	depth = s.capSteps(depth)

	var info *executor.CompilationInfo
	if 0 < len(o.Vars) {
		info = &executor.CompilationInfo{
			Vars: o.Vars,
		}
	}

	o.Results, err = e.Search(ctx, o.Bound, &depth, st, o.Pattern, o.Input, info)

	rec := s.record(o.Definition, "search", o.Input, err)
	if o.Results != nil {
		for _, r := range o.Results.Results {
			rec.Outputs = append(rec.Outputs, r.RawOutput)
		}
		rec.Stats = o.Results.Stats
	}
	s.writeRun(ctx, rec)

	return err
}

// PutDefinitionOp stores a definition, which is given as YAML or
// JSON source.  The definition must compile.  Runs that have already
// started with a previous version aren't affected.
type PutDefinitionOp struct {
	Name   string `json:"name"`
	Source string `json:"source"`

	// Analysis is the result of tools.Analyze on the new
	// definition.
	Analysis *tools.DefinitionAnalysis `json:"analysis,omitempty" yaml:",omitempty"`
}

func (o *PutDefinitionOp) Do(ctx context.Context, s *Service) error {
	if o.Name == "" {
		return errors.New("no definition name")
	}
	def, err := s.PutDefinition(ctx, o.Name, []byte(o.Source))
	if err != nil {
		return err
	}
	o.Analysis, err = tools.Analyze(def)
	return err
}

type GetDefinitionOp struct {
	Name       string           `json:"name"`
	Definition *core.Definition `json:"definition,omitempty" yaml:",omitempty"`
}

func (o *GetDefinitionOp) Do(ctx context.Context, s *Service) error {
	u, err := s.definition(ctx, o.Name)
	if err != nil {
		return err
	}
	o.Definition = u.Definition()
	return nil
}

type ListOp struct {
	Names []string `json:"names,omitempty" yaml:",omitempty"`
}

func (o *ListOp) Do(ctx context.Context, s *Service) error {
	var err error
	o.Names, err = s.Storage.ListDefinitions(ctx)
	return err
}

// AnalyzeOp runs tools.Analyze on a stored definition, optionally
// with initial configurations for reachability.
type AnalyzeOp struct {
	Definition string        `json:"definition"`
	Initial    []interface{} `json:"initial,omitempty" yaml:",omitempty"`

	Analysis *tools.DefinitionAnalysis `json:"analysis,omitempty" yaml:",omitempty"`
}

func (o *AnalyzeOp) Do(ctx context.Context, s *Service) error {
	u, err := s.definition(ctx, o.Definition)
	if err != nil {
		return err
	}
	def := u.Definition()
	inits, err := buildAll(o.Initial)
	if err != nil {
		return err
	}
	o.Analysis, err = tools.Analyze(def, inits...)
	return err
}

func (s *Service) record(definition, op string, input interface{}, err error) *storage.RunRecord {
	rec := &storage.RunRecord{
		Definition: definition,
		Op:         op,
		Input:      input,
		At:         time.Now().UTC(),
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
