package rewrite

import (
	"github.com/Comcast/kexec/core"
)

// Graph records what a Search explored.
//
// States are indexed by the order in which they were first visited,
// so the initial state is 0.
type Graph struct {
	States []*GraphState `json:"states"`
	Steps  []*GraphStep  `json:"steps,omitempty" yaml:",omitempty"`

	// Hits are the indexes of the states that were reported.
	Hits []int `json:"hits,omitempty" yaml:",omitempty"`
}

// GraphState is a visited state.
type GraphState struct {
	Id    int                   `json:"id"`
	Depth int                   `json:"depth"`
	State *core.ConstrainedTerm `json:"-" yaml:"-"`

	// Term and Constraint are renderings of the State.
	Term       string `json:"term"`
	Constraint string `json:"constraint,omitempty" yaml:",omitempty"`
}

// GraphStep is a rewrite step from one state to another.  The target
// might have been visited already.
type GraphStep struct {
	From int    `json:"from"`
	To   int    `json:"to"`
	Rule string `json:"rule"`
}

// NewGraph makes an empty Graph.
func NewGraph() *Graph {
	return &Graph{}
}

func (g *Graph) addState(id int, st *core.ConstrainedTerm, depth int) {
	gs := &GraphState{
		Id:    id,
		Depth: depth,
		State: st,
		Term:  st.Term.String(),
	}
	if st.Constraint != nil && !st.Constraint.IsTrue() {
		gs.Constraint = st.Constraint.String()
	}
	g.States = append(g.States, gs)
}

func (g *Graph) addStep(from, to int, r *core.Rule) {
	name := ""
	if r != nil {
		name = r.Name
	}
	g.Steps = append(g.Steps, &GraphStep{
		From: from,
		To:   to,
		Rule: name,
	})
}

// IsHit reports if the state with the given index was reported.
func (g *Graph) IsHit(id int) bool {
	for _, h := range g.Hits {
		if h == id {
			return true
		}
	}
	return false
}
