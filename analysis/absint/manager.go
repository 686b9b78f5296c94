package absint

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
	"github.com/cs-au-dk/absum/utils"

	"golang.org/x/sync/singleflight"
)

// repositoryEntry holds everything known about one method.
type repositoryEntry[D lattice.Domain[D]] struct {
	contexts    map[ContextKey][]Summary[D]
	callStrings map[ContextKey]CallString
	// Insertion order of contexts.
	order []ContextKey
	// Join of the callee states of every analyzed context. Only used for
	// reporting.
	aggregate *AbstractState[D]
}

type repositoryShard[D lattice.Domain[D]] struct {
	mu      sync.RWMutex
	entries map[*cfg.Function]*repositoryEntry[D]
}

// SummaryManager is the summary repository shared by every worker of an
// analysis.
type SummaryManager[D lattice.Domain[D]] struct {
	shards       []*repositoryShard[D]
	crossContext bool
	flights      singleflight.Group
}

func NewSummaryManager[D lattice.Domain[D]](shards int, crossContext bool) *SummaryManager[D] {
	if shards <= 0 {
		shards = 1
	}
	m := &SummaryManager[D]{
		shards:       make([]*repositoryShard[D], shards),
		crossContext: crossContext,
	}
	for i := range m.shards {
		m.shards[i] = &repositoryShard[D]{entries: make(map[*cfg.Function]*repositoryEntry[D])}
	}
	return m
}

func (m *SummaryManager[D]) shard(method *cfg.Function) *repositoryShard[D] {
	return m.shards[utils.HashString(method.Name())%uint32(len(m.shards))]
}

// entry must be called with the shard lock held for writing.
func (s *repositoryShard[D]) entry(method *cfg.Function) *repositoryEntry[D] {
	e, found := s.entries[method]
	if !found {
		e = &repositoryEntry[D]{
			contexts:    make(map[ContextKey][]Summary[D]),
			callStrings: make(map[ContextKey]CallString),
		}
		s.entries[method] = e
	}
	return e
}

// Lookup finds a finalized summary that subsumes the request. Summaries of
// the exact context are preferred.
func (m *SummaryManager[D]) Lookup(key ContextKey, request Summary[D]) (Summary[D], bool) {
	sh := m.shard(key.Method)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, found := sh.entries[key.Method]
	if !found {
		return nil, false
	}

	for _, s := range e.contexts[key] {
		if s.Subsumes(request) {
			return s, true
		}
	}

	if !m.crossContext {
		return nil, false
	}
	for _, k := range e.order {
		if k == key {
			continue
		}
		for _, s := range e.contexts[k] {
			if s.Subsumes(request) {
				return s, true
			}
		}
	}
	return nil, false
}

// Compute runs the computation of a summary for the request. Concurrent
// computations of the same context and precondition are performed once; the
// shared flag reports whether the result was computed by another caller.
func (m *SummaryManager[D]) Compute(
	key ContextKey,
	request Summary[D],
	compute func() (Summary[D], error),
) (res Summary[D], shared bool, err error) {
	flight := fmt.Sprintf("%p/%x/%d/%x",
		key.Method, key.Signature, key.Depth,
		utils.Fingerprint(request.PreCondition().String()))

	// singleflight also reports the flight as shared to the caller that ran it.
	var owner bool
	v, err, shared := m.flights.Do(flight, func() (any, error) {
		owner = true
		if s, found := m.Lookup(key, request); found {
			return s, nil
		}
		return compute()
	})
	shared = shared && !owner
	if err != nil {
		return nil, shared, err
	}

	res, ok := v.(Summary[D])
	if !ok {
		return nil, shared, fmt.Errorf("unexpected type from summary computation: got %T", v)
	}
	return res, shared, nil
}

// Put stores a finalized summary computed under the given call string. It
// reports whether the summary was added; summaries with a precondition
// equal to a stored one of the same context are dropped.
func (m *SummaryManager[D]) Put(key ContextKey, cs CallString, summary Summary[D]) bool {
	if !summary.IsFinalized() {
		panic(fmt.Sprintf("storing summary that is not finalized: %s", summary))
	}
	if summary.Target() != key.Method {
		panic(fmt.Sprintf("storing summary of %s under %s", summary.Target().Name(), key))
	}

	sh := m.shard(key.Method)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entry(key.Method)
	if prev, found := e.callStrings[key]; found {
		if !prev.Equal(cs) {
			panic(fmt.Sprintf("context key %s used for call strings %s and %s", key, prev, cs))
		}
	} else {
		e.callStrings[key] = cs
		e.order = append(e.order, key)
	}

	for _, s := range e.contexts[key] {
		if s.PreCondition().Eq(summary.PreCondition()) {
			return false
		}
	}
	e.contexts[key] = append(e.contexts[key], summary)
	return true
}

// JoinState joins a callee state into the aggregate state of the method.
func (m *SummaryManager[D]) JoinState(method *cfg.Function, state *AbstractState[D]) {
	sh := m.shard(method)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e := sh.entry(method)
	if e.aggregate == nil {
		e.aggregate = state
	} else {
		e.aggregate = e.aggregate.Join(state)
	}
}

// Aggregate returns the join of every analyzed state of the method.
func (m *SummaryManager[D]) Aggregate(method *cfg.Function) (*AbstractState[D], bool) {
	sh := m.shard(method)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	if e, found := sh.entries[method]; found && e.aggregate != nil {
		return e.aggregate, true
	}
	return nil, false
}

// Summaries returns the stored summaries of the method in insertion order.
func (m *SummaryManager[D]) Summaries(method *cfg.Function) (res []Summary[D]) {
	sh := m.shard(method)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	e, found := sh.entries[method]
	if !found {
		return nil
	}
	for _, k := range e.order {
		res = append(res, e.contexts[k]...)
	}
	return
}

// Contexts returns the context keys and call strings stored for the method.
func (m *SummaryManager[D]) Contexts(method *cfg.Function) map[ContextKey]CallString {
	sh := m.shard(method)
	sh.mu.RLock()
	defer sh.mu.RUnlock()

	res := make(map[ContextKey]CallString)
	if e, found := sh.entries[method]; found {
		for k, cs := range e.callStrings {
			res[k] = cs
		}
	}
	return res
}

// Methods returns every method with a repository entry, sorted by name.
func (m *SummaryManager[D]) Methods() (res []*cfg.Function) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for f := range sh.entries {
			res = append(res, f)
		}
		sh.mu.RUnlock()
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Name() < res[j].Name()
	})
	return
}

// Len is the number of stored summaries.
func (m *SummaryManager[D]) Len() (n int) {
	for _, sh := range m.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			for _, ss := range e.contexts {
				n += len(ss)
			}
		}
		sh.mu.RUnlock()
	}
	return
}
