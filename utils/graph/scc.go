package graph

// A DAG decomposition of a graph based on strongly connected components.
// The nodes in component i are guaranteed to only have edges to nodes in
// components with index j <= i, i.e. components are listed in reverse
// topological order.
type SCCDecomposition[T any] struct {
	Components [][]T
	comp       Mapper[T]
	Original   Graph[T]
}

// An alias for component type (in case representation changes)
type SCC = int

// ComponentOf returns the index of the component the node is a part of, or -1
// if the node was not reachable from the start nodes of the decomposition.
func (scc SCCDecomposition[T]) ComponentOf(node T) SCC {
	if comp, hasComp := scc.comp.Get(node); hasComp {
		return comp.(int)
	}
	return -1
}

// Cyclic reports whether the component contains a cycle. Singleton components
// are cyclic only if the node has a self-edge.
func (scc SCCDecomposition[T]) Cyclic(comp SCC) bool {
	nodes := scc.Components[comp]
	if len(nodes) > 1 {
		return true
	}
	for _, e := range scc.Original.Edges(nodes[0]) {
		if scc.ComponentOf(e) == comp {
			return true
		}
	}
	return false
}

// Compute the strongly connected components of the subgraph reachable from the
// provided start nodes.
func (G Graph[T]) SCC(startNodes []T) SCCDecomposition[T] {
	// Source:
	// https://github.com/kth-competitive-programming/kactl/blob/main/content/graph/SCC.h

	val, comp := G.mapFactory(), G.mapFactory()
	time := 0
	var z, cont []T
	var components [][]T

	var rec func(T)
	rec = func(node T) {
		time++
		low := time
		val.Set(node, low)
		stackH := len(z)
		z = append(z, node)

		for _, e := range G.Edges(node) {
			if _, hasComp := comp.Get(e); !hasComp {
				if _, visited := val.Get(e); !visited {
					rec(e)
				}

				eLow, _ := val.Get(e)
				if eLow.(int) < low {
					low = eLow.(int)
				}
			}
		}

		if oldLow, _ := val.Get(node); low == oldLow.(int) {
			for len(z) > stackH {
				x := z[len(z)-1]
				z = z[:len(z)-1]
				comp.Set(x, len(components))
				cont = append(cont, x)
			}

			components = append(components, cont)
			cont = nil
		}

		val.Set(node, low)
	}

	for _, node := range startNodes {
		if _, hasComp := comp.Get(node); !hasComp {
			rec(node)
		}
	}

	return SCCDecomposition[T]{
		Components: components,
		comp:       comp,
		Original:   G,
	}
}

// Returns a graph based on the SCC decomposition.
// Nodes are component indices (int).
func (scc SCCDecomposition[T]) ToGraph() Graph[SCC] {
	return OfHashable(func(compIdx SCC) (ret []SCC) {
		seen := map[int]bool{}
		for _, node := range scc.Components[compIdx] {
			for _, edge := range scc.Original.Edges(node) {
				ncomp := scc.ComponentOf(edge)
				if compIdx != ncomp && !seen[ncomp] {
					seen[ncomp] = true
					ret = append(ret, ncomp)
				}
			}
		}
		return
	})
}
