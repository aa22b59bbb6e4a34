package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/diagnostics"
	"github.com/Comcast/kexec/executor"
	"github.com/Comcast/kexec/interpreters"
	"github.com/Comcast/kexec/rewrite"
	"github.com/Comcast/kexec/storage"
	"github.com/Comcast/kexec/storage/bolt"
	"github.com/Comcast/kexec/term"
	"github.com/Comcast/kexec/tools"

	"github.com/jsccast/yaml"
)

// Config is what the command line says to do.
type Config struct {
	DefinitionFile string
	Op             string
	Input          string

	Steps int

	SearchType string
	Bound      int
	Depth      int
	Pattern    string
	Requires   string
	Claims     bool
	Graph      string

	PatternMatching bool

	Format  string
	DB      string
	Name    string
	LibDir  string
	Verbose bool
}

// Run does what the Config says.  When cfg.Input is empty, the input
// is read from in.  Results go to out, and diagnostics go to errs.
func Run(ctx context.Context, cfg *Config, in io.Reader, out, errs io.Writer) error {
	if cfg.DefinitionFile == "" {
		return errors.New("no definition (-d)")
	}
	src, err := tools.ReadFileWithInlines(cfg.DefinitionFile)
	if err != nil {
		return err
	}
	def, err := core.ParseDefinition(src)
	if err != nil {
		return err
	}
	if err = def.Compile(ctx, interpreters.StandardWithLibraries(cfg.LibDir), true); err != nil {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = def.Name
	}

	var store storage.Storage
	if cfg.DB != "" {
		if name == "" {
			return errors.New("no definition name for -db")
		}
		bs, err := bolt.NewStorage(cfg.DB)
		if err != nil {
			return err
		}
		if err = bs.Open(ctx); err != nil {
			return err
		}
		defer bs.Close(ctx)
		if err = bs.PutDefinition(ctx, name, src); err != nil {
			return err
		}
		store = bs
	}

	var raw interface{}
	if cfg.Op != "analyze" || cfg.Input != "" {
		if raw, err = readInput(cfg.Input, in); err != nil {
			return err
		}
	}

	sink := diagnostics.NewSink()
	e := executor.New(def, executor.Options{
		PatternMatching: cfg.PatternMatching,
		Diagnostics:     sink,
		Claims:          cfg.Claims,
		Graph:           cfg.Graph != "",
	})

	rec := &storage.RunRecord{
		Definition: name,
		Op:         cfg.Op,
		Input:      raw,
		At:         time.Now().UTC(),
	}

	var result interface{}
	switch cfg.Op {
	case "run", "step":
		n := -1
		if cfg.Op == "step" {
			n = cfg.Steps
		}
		r, err := e.Step(ctx, raw, n)
		if err != nil {
			return record(ctx, store, rec, err)
		}
		rec.Outputs = []string{r.RawOutput}
		rec.StoppedBecause = r.StoppedBecause.String()
		rec.Stats = r.Stats
		result = r
		if cfg.Format == "text" {
			result = r.RawOutput
			if r.Constraint != "" {
				result = r.RawOutput + " " + r.Constraint
			}
		}

	case "search":
		rs, err := search(ctx, cfg, e, raw)
		if err != nil {
			return record(ctx, store, rec, err)
		}
		for _, r := range rs.Results {
			rec.Outputs = append(rec.Outputs, r.RawOutput)
		}
		rec.Stats = rs.Stats
		if cfg.Graph != "" {
			if err = graph(cfg.Graph, rs.Graph, out); err != nil {
				return err
			}
			break
		}
		result = rs
		if cfg.Format == "text" {
			lines := make([]string, len(rs.Results))
			for i, r := range rs.Results {
				lines[i] = r.RawOutput
				if r.Constraint != "" {
					lines[i] += " " + r.Constraint
				}
			}
			result = strings.Join(lines, "\n")
		}

	case "analyze":
		var inits []term.Term
		if raw != nil {
			t, err := term.Build(raw)
			if err != nil {
				return err
			}
			inits = append(inits, t)
		}
		a, err := tools.Analyze(def, inits...)
		if err != nil {
			return err
		}
		for _, r := range a.Reports {
			fmt.Fprintln(errs, r.Format(cfg.Verbose))
		}
		result = a
		if cfg.Format == "text" {
			result = fmt.Sprintf("%d symbols, %d transition rules, %d function rules, %d problems",
				a.Symbols, a.TransitionRules, a.FunctionRules, len(a.Reports))
		}
		// Not a run.
		store = nil

	default:
		return fmt.Errorf("unknown op %q", cfg.Op)
	}

	for _, r := range sink.Visible() {
		fmt.Fprintln(errs, r.Format(cfg.Verbose))
	}

	if err = record(ctx, store, rec, nil); err != nil {
		return err
	}

	if result == nil {
		return nil
	}
	return render(cfg.Format, result, out)
}

func search(ctx context.Context, cfg *Config, e *executor.Executor, raw interface{}) (*executor.SearchResults, error) {
	st, err := rewrite.ParseSearchType(cfg.SearchType)
	if err != nil {
		return nil, err
	}

	var pattern *executor.Pattern
	if cfg.Pattern != "" {
		body, err := parse(cfg.Pattern)
		if err != nil {
			return nil, err
		}
		var requires []*core.Condition
		if cfg.Requires != "" {
			x, err := parse(cfg.Requires)
			if err != nil {
				return nil, err
			}
			// Let encoding/json do the work.
			js, err := json.Marshal(x)
			if err != nil {
				return nil, err
			}
			if err = json.Unmarshal(js, &requires); err != nil {
				return nil, err
			}
		}
		pattern = executor.NewPattern(body, requires...)
	}

	return e.Search(ctx, &cfg.Bound, &cfg.Depth, st, pattern, raw, nil)
}

func graph(format string, g *rewrite.Graph, out io.Writer) error {
	switch format {
	case "dot":
		return tools.SearchDot(g, out)
	case "mermaid":
		return tools.SearchMermaid(g, out, nil)
	case "json":
		return render("json", g, out)
	default:
		return fmt.Errorf("unknown graph format %q", format)
	}
}

// record writes the run record if there's a store.  Returns the
// given error (if any).
func record(ctx context.Context, store storage.Storage, rec *storage.RunRecord, err error) error {
	if store == nil {
		return err
	}
	if err != nil {
		rec.Error = err.Error()
	}
	if werr := store.WriteRun(ctx, rec); werr != nil && err == nil {
		return werr
	}
	return err
}

func render(format string, x interface{}, out io.Writer) error {
	var (
		bs  []byte
		err error
	)
	switch format {
	case "text":
		if s, is := x.(string); is {
			bs = []byte(s)
			break
		}
		fallthrough
	case "json":
		bs, err = json.MarshalIndent(x, "", "  ")
	case "yaml":
		// Go through JSON to get the right field names.
		var js []byte
		if js, err = json.Marshal(x); err != nil {
			return err
		}
		var y interface{}
		if err = json.Unmarshal(js, &y); err != nil {
			return err
		}
		bs, err = yaml.Marshal(y)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return err
	}
	if 0 < len(bs) && bs[len(bs)-1] != '\n' {
		bs = append(bs, '\n')
	}
	_, err = out.Write(bs)
	return err
}

func readInput(s string, in io.Reader) (interface{}, error) {
	if s == "" {
		if in == nil {
			return nil, errors.New("no input")
		}
		bs, err := io.ReadAll(in)
		if err != nil {
			return nil, err
		}
		s = string(bs)
	}
	return parse(s)
}

// parse reads YAML (and therefore JSON).
func parse(s string) (interface{}, error) {
	var x interface{}
	if err := yaml.Unmarshal([]byte(s), &x); err != nil {
		return nil, err
	}
	return core.StringMaps(x)
}
