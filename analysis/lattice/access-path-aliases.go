package lattice

import (
	"sort"

	loc "github.com/cs-au-dk/absum/analysis/location"
)

// aliasPair records that the objects denoted by a and b may be the same, so
// a.f and b.f may be the same location for every field suffix f.
type aliasPair struct {
	a, b loc.AccessPath
}

// aliasSet is a sorted set of normalized pairs. It is never mutated in place.
type aliasSet []aliasPair

func newAliasPair(a, b loc.AccessPath) aliasPair {
	if b.Less(a) {
		a, b = b, a
	}
	return aliasPair{a, b}
}

func (p aliasPair) less(o aliasPair) bool {
	if p.a != o.a {
		return p.a.Less(o.a)
	}
	return p.b.Less(o.b)
}

func (s aliasSet) find(p aliasPair) (int, bool) {
	i := sort.Search(len(s), func(i int) bool { return !s[i].less(p) })
	return i, i < len(s) && s[i] == p
}

func (s aliasSet) contains(p aliasPair) bool {
	_, found := s.find(p)
	return found
}

func (s aliasSet) add(p aliasPair) aliasSet {
	i, found := s.find(p)
	if found {
		return s
	}
	res := make(aliasSet, 0, len(s)+1)
	res = append(res, s[:i]...)
	res = append(res, p)
	return append(res, s[i:]...)
}

func (s aliasSet) subsetOf(o aliasSet) bool {
	if len(s) > len(o) {
		return false
	}
	for _, p := range s {
		if !o.contains(p) {
			return false
		}
	}
	return true
}

func (s aliasSet) union(o aliasSet) aliasSet {
	res := s
	for _, p := range o {
		res = res.add(p)
	}
	return res
}

// Alias records that the objects denoted by a and b may be the same. Writes
// through one of them then invalidate what is known about the other.
func (m AccessPathMap) Alias(a, b loc.AccessPath) AccessPathMap {
	if m.bot || a == b {
		return m
	}
	m.aliases = m.aliases.add(newAliasPair(a, b))
	return m
}

// MayAlias reports whether the objects denoted by a and b were recorded as
// possibly the same.
func (m AccessPathMap) MayAlias(a, b loc.AccessPath) bool {
	return m.aliases.contains(newAliasPair(a, b))
}

// Aliases visits every recorded pair.
func (m AccessPathMap) Aliases(do func(a, b loc.AccessPath)) {
	for _, p := range m.aliases {
		do(p.a, p.b)
	}
}

// WithoutAliases drops every alias, keeping the bindings.
func (m AccessPathMap) WithoutAliases() AccessPathMap {
	m.aliases = nil
	return m
}

// counterparts visits every pair in both orientations.
func (m AccessPathMap) counterparts(do func(x, y loc.AccessPath)) {
	for _, p := range m.aliases {
		do(p.a, p.b)
		do(p.b, p.a)
	}
}

// ForgetAliased forgets every path that may denote a location reached
// through p under another name.
func (m AccessPathMap) ForgetAliased(p loc.AccessPath) AccessPathMap {
	res := m
	m.counterparts(func(x, y loc.AccessPath) {
		switch {
		case p.HasPrefix(x):
			res = res.ForgetPrefix(p.Rebase(x, y))
		case x.HasPrefix(p):
			res = res.ForgetPrefix(y)
		}
	})
	return res
}

// ForgetAliasedFields is ForgetAliased restricted to the locations strictly
// below p. The value of p itself is left alone.
func (m AccessPathMap) ForgetAliasedFields(p loc.AccessPath) AccessPathMap {
	res := m
	m.counterparts(func(x, y loc.AccessPath) {
		switch {
		case p.HasPrefix(x):
			c := p.Rebase(x, y)
			res = res.Filter(func(q loc.AccessPath, _ Interval) bool {
				return q == c || !q.HasPrefix(c)
			})
		case x != p && x.HasPrefix(p):
			res = res.ForgetPrefix(y)
		}
	})
	return res
}
