package graph

import (
	"golang.org/x/tools/go/callgraph"
	"golang.org/x/tools/go/ssa"
)

// Creates a Graph from a callgraph with *ssa.Functions as nodes.
// Duplicate edges in the callgraph are pruned.
func FromCallGraph(cg *callgraph.Graph) Graph[*ssa.Function] {
	return OfHashable(func(fun *ssa.Function) (ret []*ssa.Function) {
		node, found := cg.Nodes[fun]
		if !found {
			return
		}

		dedup := map[*ssa.Function]bool{}
		for _, edge := range node.Out {
			if seen := dedup[edge.Callee.Func]; !seen {
				dedup[edge.Callee.Func] = true
				ret = append(ret, edge.Callee.Func)
			}
		}
		return
	})
}
