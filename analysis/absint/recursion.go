package absint

import (
	"sort"
	"sync"

	"github.com/cs-au-dk/absum/analysis/cfg"

	uf "github.com/spakin/disjoint"
)

// RecursionGroups partitions methods found on recursive cycles into
// mutually recursive groups.
type RecursionGroups struct {
	mu       sync.Mutex
	elements map[*cfg.Function]*uf.Element
}

func NewRecursionGroups() *RecursionGroups {
	return &RecursionGroups{elements: make(map[*cfg.Function]*uf.Element)}
}

func (g *RecursionGroups) element(f *cfg.Function) *uf.Element {
	el, found := g.elements[f]
	if !found {
		el = uf.NewElement()
		el.Data = f
		g.elements[f] = el
	}
	return el
}

// AddCycle merges the methods of a cycle into one group.
func (g *RecursionGroups) AddCycle(cycle []*cfg.Function) {
	if len(cycle) == 0 {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	rep := g.element(cycle[0])
	for _, f := range cycle[1:] {
		uf.Union(rep, g.element(f))
	}
}

// Recursive reports whether the method was found on a cycle.
func (g *RecursionGroups) Recursive(f *cfg.Function) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, found := g.elements[f]
	return found
}

// SameGroup reports whether both methods are in the same group.
func (g *RecursionGroups) SameGroup(f1, f2 *cfg.Function) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	e1, found1 := g.elements[f1]
	e2, found2 := g.elements[f2]
	return found1 && found2 && e1.Find() == e2.Find()
}

// Groups returns every group with methods sorted by name. Groups are sorted
// by their first method.
func (g *RecursionGroups) Groups() [][]*cfg.Function {
	g.mu.Lock()
	defer g.mu.Unlock()

	sets := make(map[*uf.Element][]*cfg.Function)
	for f, el := range g.elements {
		rep := el.Find()
		sets[rep] = append(sets[rep], f)
	}

	res := make([][]*cfg.Function, 0, len(sets))
	for _, set := range sets {
		sort.Slice(set, func(i, j int) bool {
			return set[i].Name() < set[j].Name()
		})
		res = append(res, set)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i][0].Name() < res[j][0].Name()
	})
	return res
}
