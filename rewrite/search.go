package rewrite

import (
	"context"

	"github.com/Comcast/kexec/core"
	"github.com/Comcast/kexec/term"
)

// SearchType says which reachable states a Search reports.
type SearchType int

const (
	// OneStep (=>1) reports states exactly one step away.
	OneStep SearchType = iota

	// Plus (=>+) reports states one or more steps away.
	Plus

	// Star (=>*) reports states zero or more steps away.
	Star

	// Final (=>!) reports normal forms.
	Final
)

var searchTypes = []string{"=>1", "=>+", "=>*", "=>!"}

func (st SearchType) String() string {
	if st < 0 || len(searchTypes) <= int(st) {
		return "=>?"
	}
	return searchTypes[st]
}

func (st SearchType) MarshalText() ([]byte, error) {
	return []byte(st.String()), nil
}

func (st *SearchType) UnmarshalText(bs []byte) error {
	x, err := ParseSearchType(string(bs))
	if err != nil {
		return err
	}
	*st = x
	return nil
}

// ParseSearchType accepts "=>1", "=>+", "=>*", "=>!" as well as
// "one", "plus", "star", and "final".
func ParseSearchType(s string) (SearchType, error) {
	switch s {
	case "=>1", "one", "ONE":
		return OneStep, nil
	case "=>+", "plus", "PLUS":
		return Plus, nil
	case "=>*", "star", "STAR":
		return Star, nil
	case "=>!", "final", "FINAL":
		return Final, nil
	}
	return Star, &BadSearchType{s}
}

// Search explores reachable states breadth-first.
type Search struct {
	Stepper Stepper
	Type    SearchType

	// Bound caps the number of steps along any explored path.
	// Negative means no cap.
	Bound int

	// Depth caps the number of steps from the initial state at
	// which a state can be reported.  Negative means no cap.
	Depth int

	// Claims are tried before the ordinary rules at each state.
	Claims []*core.Rule

	// Policy says how Claims are used.  Defaults to
	// DefaultClaimPolicy.
	Policy ClaimPolicy

	// Graph, if not nil, records the explored states and steps.
	Graph *Graph
}

// Hit is a reported state.
type Hit struct {
	// State is the state with the goal's obligations conjoined
	// to its constraint.
	State *core.ConstrainedTerm

	// Subst is the goal's witness keyed by variable name.
	Subst map[string]term.Term

	// Depth is the number of steps from the initial state.
	Depth int
}

type node struct {
	state *core.ConstrainedTerm
	depth int
	used  []*core.Rule
	id    int
}

// limits returns the reporting depth and the exploration limit.
func (s *Search) limits() (int, int) {
	depth := s.Depth
	if s.Type == OneStep && (depth < 0 || 1 < depth) {
		depth = 1
	}
	limit := s.Bound
	if 0 <= depth && (limit < 0 || depth < limit) {
		limit = depth
	}
	return depth, limit
}

// Run searches from the initial state for states that match the
// goal's left side (with the goal's side conditions).  A nil goal
// matches everything.
//
// Each distinct state (term and constraint) is visited and reported
// at most once.  Hits come in breadth-first order.
func (s *Search) Run(ctx context.Context, initial *core.ConstrainedTerm, goal *core.Rule) ([]*Hit, error) {
	c, err := check(initial)
	if err != nil {
		return nil, err
	}

	depth, limit := s.limits()

	var (
		visited  = make(map[string]int)
		hits     []*Hit
		frontier []*node
		count    int
	)

	add := func(st *core.ConstrainedTerm, d int, used []*core.Rule) (*node, bool) {
		k := st.Key()
		if id, have := visited[k]; have {
			return &node{id: id}, false
		}
		id := count
		count++
		visited[k] = id
		c.Stats.Visited++
		if s.Graph != nil {
			s.Graph.addState(id, st, d)
		}
		return &node{
			state: st,
			depth: d,
			used:  used,
			id:    id,
		}, true
	}

	n, _ := add(initial, 0, nil)
	frontier = append(frontier, n)

	for 0 < len(frontier) {
		var next []*node
		for _, n := range frontier {
			expand := limit < 0 || n.depth < limit
			eligible := depth < 0 || n.depth <= depth

			var succs []*Successor
			if expand || (eligible && s.Type == Final) {
				if succs, err = s.successors(ctx, n); err != nil {
					return nil, err
				}
			}

			if eligible && s.reportable(n, succs) {
				h, err := s.hit(ctx, n, goal)
				if err != nil {
					return nil, err
				}
				if h != nil {
					hits = append(hits, h)
					if s.Graph != nil {
						s.Graph.Hits = append(s.Graph.Hits, n.id)
					}
				}
			}

			if !expand {
				continue
			}

			c.Stats.Branches += len(succs)
			for _, succ := range succs {
				used := n.used
				if s.isClaim(succ.Rule) {
					used = append(append([]*core.Rule(nil), n.used...), succ.Rule)
				}
				m, fresh := add(succ.State, n.depth+1, used)
				if s.Graph != nil {
					s.Graph.addStep(n.id, m.id, succ.Rule)
				}
				if fresh {
					next = append(next, m)
				}
			}
		}
		frontier = next
	}

	return hits, nil
}

func (s *Search) isClaim(r *core.Rule) bool {
	for _, claim := range s.Claims {
		if claim == r {
			return true
		}
	}
	return false
}

func (s *Search) successors(ctx context.Context, n *node) ([]*Successor, error) {
	if 0 < len(s.Claims) {
		p := s.Policy
		if p == nil {
			p = DefaultClaimPolicy
		}
		succ, err := p.Cut(ctx, n.state, s.Claims, n.used)
		if err != nil {
			return nil, err
		}
		if succ != nil {
			return []*Successor{succ}, nil
		}
	}
	return s.Stepper.Successors(ctx, n.state)
}

func (s *Search) reportable(n *node, succs []*Successor) bool {
	switch s.Type {
	case OneStep:
		return n.depth == 1
	case Plus:
		return 1 <= n.depth
	case Final:
		return 0 == len(succs)
	default:
		return true
	}
}

func (s *Search) hit(ctx context.Context, n *node, goal *core.Rule) (*Hit, error) {
	if goal == nil {
		return &Hit{
			State: n.state,
			Subst: map[string]term.Term{},
			Depth: n.depth,
		}, nil
	}

	in := goal.Freshen(n.state.Context)
	bs, cons, ok, err := s.Stepper.Goal(ctx, n.state, in)
	if err != nil || !ok {
		return nil, err
	}

	witness := make(map[string]term.Term)
	orig := in.Original(bs)
	for _, v := range goal.Vars() {
		if x, have := orig[v]; have {
			witness[v.Name] = x
		}
	}

	return &Hit{
		State: &core.ConstrainedTerm{
			Term:       n.state.Term,
			Constraint: cons,
			Context:    n.state.Context,
		},
		Subst: witness,
		Depth: n.depth,
	}, nil
}
