package graph

import W "github.com/cs-au-dk/absum/utils/worklist"

type traversalFunc[T any] func(node T) (stop bool)

// Performs a breadth-first search from the provided start nodes, calling the
// provided function (f) for every reachable node, stopping early if f returns
// true.
// Returns whether the search stopped early (as a result of f returning true).
func (G Graph[T]) BFSV(f traversalFunc[T], starts ...T) bool {
	visited := G.mapFactory()
	for _, start := range starts {
		visited.Set(start, true)
	}

	done := false
	W.StartV(starts, func(node T, add func(T)) {
		if done || f(node) {
			done = true
			return
		}

		for _, next := range G.Edges(node) {
			if _, found := visited.Get(next); !found {
				visited.Set(next, true)
				add(next)
			}
		}
	})

	return done
}

// Performs a breadth-first search from the provided start node, calling the
// provided function (f) for every reachable node, stopping early if f returns
// true.
func (G Graph[T]) BFS(start T, f traversalFunc[T]) bool {
	return G.BFSV(f, start)
}

// DFSOrder is the result of a depth-first traversal.
type DFSOrder[T any] struct {
	// Nodes in reverse post-order.
	RPO []T
	// Position of every reached node in RPO.
	index Mapper[T]
	// Targets of back edges, i.e. heads of natural and irreducible loops.
	loopHeads Mapper[T]
}

// Index returns the position of the node in reverse post-order, or -1 if the
// node was not reached.
func (o DFSOrder[T]) Index(node T) int {
	if i, found := o.index.Get(node); found {
		return i.(int)
	}
	return -1
}

// IsLoopHead reports whether the node is the target of a back edge.
func (o DFSOrder[T]) IsLoopHead(node T) bool {
	_, found := o.loopHeads.Get(node)
	return found
}

// DFS computes the reverse post-order of the nodes reachable from root and the
// targets of back edges discovered on the way.
func (G Graph[T]) DFS(root T) DFSOrder[T] {
	const (
		onStack = iota
		done
	)

	state := G.mapFactory()
	loopHeads := G.mapFactory()
	var post []T

	var rec func(T)
	rec = func(node T) {
		state.Set(node, onStack)
		for _, e := range G.Edges(node) {
			st, seen := state.Get(e)
			switch {
			case !seen:
				rec(e)
			case st.(int) == onStack:
				loopHeads.Set(e, true)
			}
		}
		state.Set(node, done)
		post = append(post, node)
	}
	rec(root)

	index := G.mapFactory()
	rpo := make([]T, len(post))
	for i, node := range post {
		j := len(post) - i - 1
		rpo[j] = node
		index.Set(node, j)
	}

	return DFSOrder[T]{rpo, index, loopHeads}
}
