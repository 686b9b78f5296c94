package absint

import (
	"fmt"
	"strings"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
)

// AbstractState is the result of a fixpoint iteration over one method body.
// It is mutated only by the iteration that created it.
type AbstractState[D lattice.Domain[D]] struct {
	method     *cfg.Function
	graph      *cfg.Graph
	bot        D
	pre        map[*cfg.Node]D
	post       map[*cfg.Node]D
	iterations int
}

func newAbstractState[D lattice.Domain[D]](method *cfg.Function, graph *cfg.Graph, bot D) *AbstractState[D] {
	return &AbstractState[D]{
		method: method,
		graph:  graph,
		bot:    bot.ToBot(),
		pre:    make(map[*cfg.Node]D),
		post:   make(map[*cfg.Node]D),
	}
}

func (s *AbstractState[D]) Method() *cfg.Function { return s.method }

func (s *AbstractState[D]) Graph() *cfg.Graph { return s.graph }

// PreCondition is the state before the node executes. Unreached nodes are ⊥.
func (s *AbstractState[D]) PreCondition(node *cfg.Node) D {
	if v, found := s.pre[node]; found {
		return v
	}
	return s.bot
}

// PostCondition is the state after the node executes.
func (s *AbstractState[D]) PostCondition(node *cfg.Node) D {
	if v, found := s.post[node]; found {
		return v
	}
	return s.bot
}

// EntryState is the state the iteration was seeded with.
func (s *AbstractState[D]) EntryState() D {
	return s.PreCondition(s.graph.Entry())
}

// ReturnValue is the state reaching the exit node.
func (s *AbstractState[D]) ReturnValue() D {
	return s.PreCondition(s.graph.Exit())
}

// Iterations is the number of transfer function applications.
func (s *AbstractState[D]) Iterations() int { return s.iterations }

// Join computes the pointwise join of two states of the same method body.
func (s *AbstractState[D]) Join(o *AbstractState[D]) *AbstractState[D] {
	if s.graph != o.graph {
		panic(fmt.Sprintf("joining states of %s and %s", s.method.Name(), o.method.Name()))
	}

	res := newAbstractState(s.method, s.graph, s.bot)
	res.iterations = s.iterations + o.iterations
	for _, n := range s.graph.Nodes() {
		if v := s.PreCondition(n).Join(o.PreCondition(n)); !v.IsBot() {
			res.pre[n] = v
		}
		if v := s.PostCondition(n).Join(o.PostCondition(n)); !v.IsBot() {
			res.post[n] = v
		}
	}
	return res
}

func (s *AbstractState[D]) String() string {
	var sb strings.Builder
	sb.WriteString(s.method.String() + ":\n")
	for _, n := range s.graph.Nodes() {
		if _, found := s.pre[n]; !found {
			continue
		}
		fmt.Fprintf(&sb, "  %s\n    %s\n", n, s.pre[n])
	}
	return sb.String()
}
