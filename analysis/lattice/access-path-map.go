package lattice

import (
	"sort"
	"strings"

	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"

	"github.com/benbjohnson/immutable"
)

// AccessPathMap is a non-relational abstract store mapping access paths to
// intervals. Paths that are not bound map to ⊤, so the empty map is ⊤ and ⊤
// values are never stored. ⊥ (unreachable) is a distinguished element.
//
// The store also records which of its paths may denote the same object, see
// Alias. A store with more aliases is less precise.
type AccessPathMap struct {
	bot     bool
	mp      *immutable.Map[loc.AccessPath, Interval]
	aliases aliasSet
}

var _ Widenable[AccessPathMap] = AccessPathMap{}

// NewAccessPathMap returns the map that knows nothing, i.e. ⊤.
func NewAccessPathMap() AccessPathMap {
	return AccessPathMap{mp: utils.NewImmMap[loc.AccessPath, Interval]()}
}

// AccessPathMapBot returns the unreachable store.
func AccessPathMapBot() AccessPathMap {
	return AccessPathMap{bot: true, mp: utils.NewImmMap[loc.AccessPath, Interval]()}
}

func (m AccessPathMap) IsBot() bool { return m.bot }

func (m AccessPathMap) IsTop() bool { return !m.bot && m.mp.Len() == 0 && len(m.aliases) == 0 }

func (AccessPathMap) ToTop() AccessPathMap { return NewAccessPathMap() }
func (AccessPathMap) ToBot() AccessPathMap { return AccessPathMapBot() }

// Len is the number of bound paths.
func (m AccessPathMap) Len() int { return m.mp.Len() }

// Get returns the interval of the path. Unbound paths are ⊤, and every path
// of the ⊥ store is ⊥.
func (m AccessPathMap) Get(p loc.AccessPath) Interval {
	if m.bot {
		return IntervalBot()
	}
	if v, found := m.mp.Get(p); found {
		return v
	}
	return IntervalTop()
}

// Bound reports whether the path has a value other than ⊤.
func (m AccessPathMap) Bound(p loc.AccessPath) bool {
	_, found := m.mp.Get(p)
	return found
}

// Set binds the path to the interval. Binding ⊥ makes the whole store ⊥ and
// binding ⊤ forgets the path. The ⊥ store absorbs every update.
func (m AccessPathMap) Set(p loc.AccessPath, v Interval) AccessPathMap {
	switch {
	case m.bot:
		return m
	case v.IsBot():
		return AccessPathMapBot()
	case v.IsTop():
		m.mp = m.mp.Delete(p)
		return m
	}
	m.mp = m.mp.Set(p, v)
	return m
}

// Forget binds the path to ⊤.
func (m AccessPathMap) Forget(p loc.AccessPath) AccessPathMap {
	return m.Set(p, IntervalTop())
}

// ForgetPrefix binds every path with the given prefix to ⊤.
func (m AccessPathMap) ForgetPrefix(prefix loc.AccessPath) AccessPathMap {
	res := m
	m.ForEach(func(p loc.AccessPath, _ Interval) {
		if p.HasPrefix(prefix) {
			res = res.Forget(p)
		}
	})
	return res
}

// ForEach visits the bound paths in unspecified order.
func (m AccessPathMap) ForEach(do func(loc.AccessPath, Interval)) {
	it := m.mp.Iterator()
	for !it.Done() {
		p, v, _ := it.Next()
		do(p, v)
	}
}

// Paths returns the bound paths sorted by their textual form.
func (m AccessPathMap) Paths() []loc.AccessPath {
	paths := make([]loc.AccessPath, 0, m.mp.Len())
	m.ForEach(func(p loc.AccessPath, _ Interval) {
		paths = append(paths, p)
	})
	sort.Slice(paths, func(i, j int) bool { return paths[i].Less(paths[j]) })
	return paths
}

// PathsWithPrefix returns the sorted bound paths that have the prefix.
func (m AccessPathMap) PathsWithPrefix(prefix loc.AccessPath) (res []loc.AccessPath) {
	for _, p := range m.Paths() {
		if p.HasPrefix(prefix) {
			res = append(res, p)
		}
	}
	return
}

// Filter keeps the bindings satisfying the predicate.
func (m AccessPathMap) Filter(keep func(loc.AccessPath, Interval) bool) AccessPathMap {
	if m.bot {
		return m
	}
	res := m
	m.ForEach(func(p loc.AccessPath, v Interval) {
		if !keep(p, v) {
			res.mp = res.mp.Delete(p)
		}
	})
	return res
}

// Leq computes m1 ⊑ m2: every path bound in m2 is bound in m1 to a
// sub-interval, and every alias of m1 is an alias of m2.
func (m1 AccessPathMap) Leq(m2 AccessPathMap) bool {
	switch {
	case m1.bot:
		return true
	case m2.bot:
		return false
	case !m1.aliases.subsetOf(m2.aliases):
		return false
	}

	leq := true
	m2.ForEach(func(p loc.AccessPath, v2 Interval) {
		if leq {
			v1, found := m1.mp.Get(p)
			leq = found && v1.Leq(v2)
		}
	})
	return leq
}

func (m1 AccessPathMap) Eq(m2 AccessPathMap) bool {
	return m1.Leq(m2) && m2.Leq(m1)
}

// Join computes the pointwise join. Paths bound in only one of the maps are
// ⊤ in the other and are therefore dropped. The aliases are united.
func (m1 AccessPathMap) Join(m2 AccessPathMap) AccessPathMap {
	return m1.combine(m2, Interval.Join)
}

// Widen computes the pointwise interval widening.
func (m1 AccessPathMap) Widen(m2 AccessPathMap) AccessPathMap {
	return m1.combine(m2, Interval.Widen)
}

func (m1 AccessPathMap) combine(m2 AccessPathMap, op func(Interval, Interval) Interval) AccessPathMap {
	switch {
	case m1.bot:
		return m2
	case m2.bot:
		return m1
	}

	res := NewAccessPathMap()
	res.aliases = m1.aliases.union(m2.aliases)
	m1.ForEach(func(p loc.AccessPath, v1 Interval) {
		if v2, found := m2.mp.Get(p); found {
			res = res.Set(p, op(v1, v2))
		}
	})
	return res
}

func (m AccessPathMap) String() string {
	switch {
	case m.bot:
		return colorize.Const("⊥")
	case m.IsTop():
		return colorize.Const("⊤")
	}

	entries := make([]string, 0, m.mp.Len()+len(m.aliases))
	for _, p := range m.Paths() {
		entries = append(entries, colorize.Key(p.String())+" ↦ "+m.Get(p).String())
	}
	for _, a := range m.aliases {
		entries = append(entries, colorize.Key(a.a.String())+" ≡ "+colorize.Key(a.b.String()))
	}
	return "{ " + strings.Join(entries, ", ") + " }"
}
