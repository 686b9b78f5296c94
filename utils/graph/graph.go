package graph

/*
	Graph structures appear for method bodies (control-flow graphs), for the
	program call graph and for the summary graph produced by an analysis run.

	A Graph only requires the caller to provide a function describing the edge
	relation (and a key-value map factory for the node type). Edges are cached
	on first use, so the edge function is expected to be pure.
*/

type Mapper[K any] interface {
	Get(key K) (any, bool)
	Set(key K, value any)
}

type mapFactory[K any] func() Mapper[K]
type edgesOf[T any] func(node T) []T

type Graph[T any] struct {
	mapFactory  mapFactory[T]
	edgesOf     edgesOf[T]
	cachedEdges Mapper[T]
}

func (G Graph[T]) Edges(node T) []T {
	if cached, found := G.cachedEdges.Get(node); found {
		return cached.([]T)
	}

	es := G.edgesOf(node)
	G.cachedEdges.Set(node, es)
	return es
}

func Of[T any](mapFactory mapFactory[T], edgesOf edgesOf[T]) Graph[T] {
	return Graph[T]{
		mapFactory,
		edgesOf,
		mapFactory(),
	}
}

// Mapper implementation using Go's builtin maps
type mapMapper[K comparable] map[K]any

func (m mapMapper[K]) Get(key K) (any, bool) {
	value, ok := m[key]
	return value, ok
}

func (m mapMapper[K]) Set(key K, value any) {
	m[key] = value
}

func OfHashable[K comparable](edgesOf edgesOf[K]) Graph[K] {
	return Of(func() Mapper[K] { return mapMapper[K]{} }, edgesOf)
}
