package absint_test

import (
	"fmt"
	"go/token"
	"sync"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"
)

func init() {
	utils.Opts().SetNoColorize(true)
}

type State = L.AccessPathMap

var path = loc.MustParse

// store builds a state from alternating path strings and intervals.
func store(bindings ...any) State {
	m := L.NewAccessPathMap()
	for i := 0; i < len(bindings); i += 2 {
		m = m.Set(path(bindings[i].(string)), bindings[i+1].(L.Interval))
	}
	return m
}

func testConfig() absint.Config {
	return absint.Config{
		MaxCallStackDepth: 8,
		ContextDepth:      2,
		WideningDelay:     3,
		CrossContextReuse: true,
		Workers:           1,
		Shards:            4,
	}
}

type skipNames map[string]bool

func (s skipNames) ShouldSkipMethod(f *cfg.Function) bool { return s[f.Name()] }

// recorder keeps the final states of roots.
type recorder struct {
	mu     sync.Mutex
	states map[string]*absint.AbstractState[State]
}

func (r *recorder) RunCheckersOnSingleMethod(f *cfg.Function, st *absint.AbstractState[State], _ *cfg.Graph) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.states == nil {
		r.states = make(map[string]*absint.AbstractState[State])
	}
	r.states[f.Name()] = st
}

type setup struct {
	prog    *cfg.Program
	entries map[string]State
	config  absint.Config
	filter  absint.MethodFilter
	checks  *recorder
	metrics *absint.Metrics
}

func newSetup(prog *cfg.Program) *setup {
	return &setup{
		prog:    prog,
		entries: map[string]State{},
		config:  testConfig(),
		checks:  &recorder{},
		metrics: absint.NewMetrics(),
	}
}

func (s *setup) context() *absint.AnalysisContext[State] {
	return &absint.AnalysisContext[State]{
		Program:  s.prog,
		Graphs:   s.prog,
		Filter:   s.filter,
		Checkers: s.checks,
		Config:   s.config,
		Metrics:  s.metrics,
	}
}

func (s *setup) transformer() *ops.Transformer {
	return ops.NewTransformer(func(f *cfg.Function) State {
		if m, found := s.entries[f.Name()]; found {
			return m
		}
		return L.NewAccessPathMap()
	})
}

func (s *setup) analyzer() *absint.Analyzer[State] {
	return absint.NewAnalyzer[State](s.context(), s.transformer(), ops.SummaryFactory{})
}

func (s *setup) outcomes(kind absint.OutcomeKind) int {
	return s.metrics.Outcomes()[kind]
}

func fun(prog *cfg.Program, name string) *cfg.Function {
	f, found := prog.Function(name)
	if !found {
		panic(fmt.Sprintf("no function %s", name))
	}
	return f
}

// incrementProgram builds
//
//	f(x) { t := 100; g(x) }
//	g(y) { y.v := y.v + 1; t := 5 }
func incrementProgram() *cfg.Program {
	f := cfg.NewFunction("f", "x")
	g := cfg.NewFunction("g", "y")

	cfg.NewBuilder(f).
		Assign(path("t"), cfg.Const{Value: 100}).
		Call("g", nil, cfg.Path(path("param#0"))).
		Build()

	cfg.NewBuilder(g).
		Assign(path("param#0.v"), cfg.BinOp{
			Op: token.ADD,
			X:  cfg.Path(path("param#0.v")),
			Y:  cfg.Const{Value: 1},
		}).
		Assign(path("t"), cfg.Const{Value: 5}).
		Build()

	return cfg.NewProgram(f, g)
}

// callers adds roots named by the given names, each calling callee with its
// first parameter.
func callers(prog *cfg.Program, callee string, names ...string) []*cfg.Function {
	roots := make([]*cfg.Function, len(names))
	for i, name := range names {
		f := cfg.NewFunction(name, "x")
		cfg.NewBuilder(f).Call(callee, nil, cfg.Path(path("param#0"))).Build()
		prog.Add(f)
		roots[i] = f
	}
	return roots
}
