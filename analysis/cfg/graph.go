package cfg

import (
	"fmt"
	"strings"

	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils/graph"
)

// Graph is the control-flow graph of a function body. It has a single entry
// and a single exit node. Once sealed, the graph is immutable.
type Graph struct {
	fun    *Function
	entry  *Node
	exit   *Node
	nodes  []*Node
	sealed bool
	order  *graph.DFSOrder[*Node]
	sccs   *graph.SCCDecomposition[*Node]
}

// NewGraph creates an unsealed graph with fresh entry and exit nodes.
func NewGraph(fun *Function) *Graph {
	g := &Graph{fun: fun}
	g.entry = g.AddNode(Nop{})
	g.exit = g.AddNode(Nop{})
	return g
}

func (g *Graph) Function() *Function { return g.fun }

func (g *Graph) Entry() *Node { return g.entry }

func (g *Graph) Exit() *Node { return g.exit }

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node { return g.nodes }

func (g *Graph) Len() int { return len(g.nodes) }

// Node returns the node with the given id.
func (g *Graph) Node(id int) *Node { return g.nodes[id] }

// AddNode adds a disconnected node. Formal parameters are immutable inside a
// body, so statements writing to a bare param#i path are rejected.
func (g *Graph) AddNode(s Stmt) *Node {
	if g.sealed {
		panic(fmt.Sprintf("adding node to sealed graph of %s", g.fun.name))
	}
	if p, ok := written(s); ok && p.Base().IsParam() && p.IsRoot() {
		panic(fmt.Sprintf("%s: assignment to parameter %s", g.fun.name, p.Key()))
	}
	if p, ok := written(s); ok && p.Base().IsReturn() {
		panic(fmt.Sprintf("%s: explicit assignment to %s", g.fun.name, p.Key()))
	}

	n := &Node{id: len(g.nodes), fun: g.fun, stmt: s}
	g.nodes = append(g.nodes, n)
	return n
}

// AddEdge connects from to to. Duplicate edges are ignored.
func (g *Graph) AddEdge(from, to *Node) {
	if g.sealed {
		panic(fmt.Sprintf("adding edge to sealed graph of %s", g.fun.name))
	}
	for _, s := range from.succs {
		if s == to {
			return
		}
	}
	from.succs = append(from.succs, to)
	to.preds = append(to.preds, from)
}

// Seal freezes the graph and installs it as the body of its function.
func (g *Graph) Seal() *Graph {
	if g.sealed {
		return g
	}
	for _, n := range g.nodes {
		if _, ok := n.stmt.(Return); ok && (len(n.succs) != 1 || n.succs[0] != g.exit) {
			panic(fmt.Sprintf("%s: return node %d must flow to the exit only", g.fun.name, n.id))
		}
	}
	if len(g.exit.succs) > 0 {
		panic(fmt.Sprintf("%s: exit node has successors", g.fun.name))
	}

	g.sealed = true
	order := g.asGraph().DFS(g.entry)
	sccs := g.asGraph().SCC([]*Node{g.entry})
	g.order, g.sccs = &order, &sccs
	g.fun.body = g
	return g
}

func (g *Graph) Sealed() bool { return g.sealed }

func (g *Graph) asGraph() graph.Graph[*Node] {
	return graph.OfHashable(func(n *Node) []*Node { return n.succs })
}

// Order returns the reverse post-order of the nodes reachable from the entry
// together with the loop heads. Sealed graphs compute it once.
func (g *Graph) Order() graph.DFSOrder[*Node] {
	if g.order != nil {
		return *g.order
	}
	return g.asGraph().DFS(g.entry)
}

// Before is the scheduling order of the fixpoint iteration: strongly
// connected components in topological order, and reverse post-order within
// a component. Loops are therefore stabilized before their exits are visited.
func (g *Graph) Before(a, b *Node) bool {
	if !g.sealed {
		panic(fmt.Sprintf("scheduling unsealed graph of %s", g.fun.name))
	}
	// Components are numbered in reverse topological order.
	ca, cb := g.sccs.ComponentOf(a), g.sccs.ComponentOf(b)
	if ca != cb {
		return ca > cb
	}
	return g.order.Index(a) < g.order.Index(b)
}

// Invokes returns the call-site nodes of the body.
func (g *Graph) Invokes() (res []*Node) {
	for _, n := range g.nodes {
		if _, ok := n.Invoke(); ok {
			res = append(res, n)
		}
	}
	return
}

// Locals returns the local bases referenced by the body.
func (g *Graph) Locals() map[loc.AccessPathBase]struct{} {
	res := map[loc.AccessPathBase]struct{}{}
	add := func(p loc.AccessPath) {
		if p.Base().IsLocal() {
			res[p.Base()] = struct{}{}
		}
	}
	for _, n := range g.nodes {
		if p, ok := written(n.stmt); ok {
			add(p)
		}
		switch s := n.stmt.(type) {
		case Assign:
			for _, p := range Paths(s.Src) {
				add(p)
			}
		case Return:
			if s.Value != nil {
				for _, p := range Paths(s.Value) {
					add(p)
				}
			}
		case *Invoke:
			for _, a := range s.Args() {
				for _, p := range Paths(a) {
					add(p)
				}
			}
		case Assume:
			add(s.Path)
		case Assert:
			add(s.Path)
		}
	}
	return res
}

func (g *Graph) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s(%s)\n", g.fun, strings.Join(g.fun.params, ", "))
	for _, n := range g.nodes {
		succs := make([]string, len(n.succs))
		for i, s := range n.succs {
			succs[i] = fmt.Sprint(s.id)
		}
		fmt.Fprintf(&sb, "  %d: %s -> [%s]\n", n.id, n.stmt, strings.Join(succs, ", "))
	}
	return sb.String()
}
