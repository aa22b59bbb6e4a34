package diagnostics

import (
	"sync"

	"github.com/Comcast/kexec/util"
)

// Sink collects Reports.
//
// A Sink is safe for concurrent use.
type Sink struct {
	sync.Mutex

	// ShowHidden makes Visible include warnings whose Type is
	// hidden by default.
	ShowHidden bool

	// Log makes Add log each Report with util.Logf.
	Log bool

	reports []*Report
}

func NewSink() *Sink {
	return &Sink{}
}

// Add records the Report.
func (s *Sink) Add(r *Report) {
	if s == nil || r == nil {
		return
	}
	s.Lock()
	s.reports = append(s.reports, r)
	s.Unlock()
	if s.Log {
		util.Logf("diagnostic %s", r)
	}
}

// Reports returns a copy of everything that's been added.
func (s *Sink) Reports() []*Report {
	if s == nil {
		return nil
	}
	s.Lock()
	defer s.Unlock()
	return append([]*Report(nil), s.reports...)
}

// Visible returns the Reports that should be shown: errors, default
// warnings, and (if ShowHidden) the other warnings.
func (s *Sink) Visible() []*Report {
	var acc []*Report
	for _, r := range s.Reports() {
		if r.Type.Hidden() && !s.ShowHidden {
			continue
		}
		acc = append(acc, r)
	}
	return acc
}

// Errors returns the Reports with Type Error.
func (s *Sink) Errors() []*Report {
	var acc []*Report
	for _, r := range s.Reports() {
		if r.IsError() {
			acc = append(acc, r)
		}
	}
	return acc
}

// Warnings returns the Reports that aren't errors.
func (s *Sink) Warnings() []*Report {
	var acc []*Report
	for _, r := range s.Reports() {
		if !r.IsError() {
			acc = append(acc, r)
		}
	}
	return acc
}

// Count returns the number of Reports of the given Type.
func (s *Sink) Count(t Type) int {
	n := 0
	for _, r := range s.Reports() {
		if r.Type == t {
			n++
		}
	}
	return n
}
