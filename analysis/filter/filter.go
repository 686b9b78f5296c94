// Package filter decides which methods are never analyzed
// interprocedurally. Calls to skipped methods havoc the state reachable from
// the call instead of expanding the callee.
package filter

import (
	"regexp"
	"sort"
	"sync"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
)

// Manager is a method filter built from name patterns. It is safe for
// concurrent use; decisions are memoized per method.
type Manager struct {
	patterns     []*regexp.Regexp
	names        map[string]struct{}
	skipBodiless bool

	mu   sync.Mutex
	memo map[*cfg.Function]bool
	hits map[string]int
}

var _ absint.MethodFilter = (*Manager)(nil)

// NewManager creates a filter skipping methods whose name matches one of the
// patterns. Bodiless methods are skipped when skipBodiless is set.
func NewManager(patterns []*regexp.Regexp, skipBodiless bool) *Manager {
	return &Manager{
		patterns:     patterns,
		names:        make(map[string]struct{}),
		skipBodiless: skipBodiless,
		memo:         make(map[*cfg.Function]bool),
		hits:         make(map[string]int),
	}
}

// SkipName skips the methods with exactly the given names.
func (m *Manager) SkipName(names ...string) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range names {
		m.names[n] = struct{}{}
	}
	// Earlier decisions may be stale.
	m.memo = make(map[*cfg.Function]bool)
	return m
}

func (m *Manager) ShouldSkipMethod(method *cfg.Function) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	skip, found := m.memo[method]
	if !found {
		skip = m.decide(method)
		m.memo[method] = skip
	}
	if skip {
		m.hits[method.Name()]++
	}
	return skip
}

func (m *Manager) decide(method *cfg.Function) bool {
	if m.skipBodiless && !method.HasBody() {
		return true
	}
	if _, found := m.names[method.Name()]; found {
		return true
	}
	for _, r := range m.patterns {
		if r.MatchString(method.Name()) {
			return true
		}
	}
	return false
}

// Skipped returns the names of the methods skipped so far, sorted.
func (m *Manager) Skipped() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := make([]string, 0, len(m.hits))
	for n := range m.hits {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}

// Hits returns how often calls to the method were skipped.
func (m *Manager) Hits(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits[name]
}
