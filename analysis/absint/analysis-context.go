package absint

import (
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
	"github.com/cs-au-dk/absum/utils"

	"github.com/sirupsen/logrus"
)

// Config bounds the interprocedural analysis.
type Config struct {
	// Calls from a stack of this depth are not analyzed.
	MaxCallStackDepth int
	// Length of the call strings distinguishing summary contexts.
	ContextDepth int
	// Visits of a loop head before widening is applied.
	WideningDelay int
	// Whether summaries computed for other calling contexts may be reused.
	CrossContextReuse bool
	// Number of roots analyzed concurrently.
	Workers int
	// Number of summary repository shards.
	Shards int
}

// DefaultConfig returns the configuration derived from the command line.
func DefaultConfig() Config {
	opts := utils.Opts()
	return Config{
		MaxCallStackDepth: opts.MaxCallStackDepth(),
		ContextDepth:      opts.ContextDepth(),
		WideningDelay:     opts.WideningDelay(),
		CrossContextReuse: opts.CrossContextReuse(),
		Workers:           opts.Workers(),
		Shards:            16,
	}
}

// CallResolver resolves the targets of call sites.
type CallResolver interface {
	Resolve(caller *cfg.Function, inv *cfg.Invoke) (*cfg.Function, bool)
}

// MethodFilter decides which methods are never analyzed interprocedurally.
type MethodFilter interface {
	ShouldSkipMethod(method *cfg.Function) bool
}

// CheckerManager consumes the final states of analyzed roots.
type CheckerManager[D lattice.Domain[D]] interface {
	RunCheckersOnSingleMethod(method *cfg.Function, state *AbstractState[D], graph *cfg.Graph)
}

// AnalysisContext bundles the collaborators of an analysis run. It is shared
// read-only between workers.
type AnalysisContext[D lattice.Domain[D]] struct {
	Program  CallResolver
	Graphs   cfg.GraphCache
	Filter   MethodFilter
	Checkers CheckerManager[D]
	Config   Config
	Log      *logrus.Entry
	// Nil when metrics are disabled.
	Metrics *Metrics
}

type noFilter struct{}

func (noFilter) ShouldSkipMethod(*cfg.Function) bool { return false }

type noCheckers[D lattice.Domain[D]] struct{}

func (noCheckers[D]) RunCheckersOnSingleMethod(*cfg.Function, *AbstractState[D], *cfg.Graph) {}

// withDefaults fills in absent optional collaborators.
func (actx *AnalysisContext[D]) withDefaults() *AnalysisContext[D] {
	res := *actx
	if res.Filter == nil {
		res.Filter = noFilter{}
	}
	if res.Checkers == nil {
		res.Checkers = noCheckers[D]{}
	}
	if res.Log == nil {
		res.Log = logrus.NewEntry(utils.Logger())
	}
	if res.Config.MaxCallStackDepth <= 0 {
		res.Config.MaxCallStackDepth = utils.DefaultMaxCallStackDepth
	}
	if res.Config.ContextDepth <= 0 {
		res.Config.ContextDepth = utils.DefaultContextDepth
	}
	if res.Config.Workers <= 0 {
		res.Config.Workers = 1
	}
	if res.Config.Shards <= 0 {
		res.Config.Shards = 1
	}
	return &res
}
