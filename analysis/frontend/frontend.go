// Package frontend lowers SSA functions into the control-flow graphs
// analyzed by absint. Integer values, integer fields of structs reached
// through pointers, and integer globals are tracked by access paths. Other
// values are treated as unknown.
package frontend

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cs-au-dk/absum/analysis/cfg"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/pkgutil"
	"github.com/cs-au-dk/absum/utils"
	"github.com/cs-au-dk/absum/utils/graph"

	"github.com/sirupsen/logrus"
	"golang.org/x/tools/go/callgraph/static"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

var (
	// ErrExternal is returned for functions outside the analyzed packages.
	ErrExternal = errors.New("function is not analyzed")
	// ErrLowering is returned when a function body cannot be represented.
	ErrLowering = errors.New("cannot lower function")
)

// Frontend maps the functions of an SSA program to analysis methods. Bodies
// are lowered on demand and memoized.
type Frontend struct {
	prog    *ssa.Program
	program *cfg.Program
	graphs  *cfg.MemoGraphCache
	funs    map[*ssa.Function]*cfg.Function
	ssaFuns map[*cfg.Function]*ssa.Function
	local   func(*ssa.Function) bool
	log     *logrus.Entry
}

// Options configures the frontend.
type Options struct {
	// Local decides which functions have their bodies analyzed. Functions
	// outside the standard library are analyzed when nil.
	Local func(*ssa.Function) bool
	Log   *logrus.Entry
}

// New registers every function of the program.
func New(prog *ssa.Program, opts Options) *Frontend {
	fe := &Frontend{
		prog:    prog,
		program: cfg.NewProgram(),
		funs:    make(map[*ssa.Function]*cfg.Function),
		ssaFuns: make(map[*cfg.Function]*ssa.Function),
		local:   opts.Local,
		log:     opts.Log,
	}
	if fe.local == nil {
		fe.local = func(fn *ssa.Function) bool { return !pkgutil.CheckInGoroot(fn) }
	}
	if fe.log == nil {
		fe.log = logrus.NewEntry(utils.Logger())
	}

	all := make([]*ssa.Function, 0)
	for fn := range ssautil.AllFunctions(prog) {
		all = append(all, fn)
	}
	// Deterministic names for functions printing the same way.
	sort.Slice(all, func(i, j int) bool {
		si, sj := all[i].String(), all[j].String()
		if si != sj {
			return si < sj
		}
		return all[i].Pos() < all[j].Pos()
	})

	for _, fn := range all {
		name := fn.String()
		for i := 1; ; i++ {
			if _, taken := fe.program.Function(name); !taken {
				break
			}
			name = fmt.Sprintf("%s#%d", fn.String(), i)
		}

		params := make([]string, len(fn.Params))
		for i, p := range fn.Params {
			params[i] = p.Name()
		}
		f := cfg.NewFunction(name, params...)
		fe.program.Add(f)
		fe.funs[fn] = f
		fe.ssaFuns[f] = fn
	}

	fe.graphs = cfg.NewMemoGraphCache(fe.build)
	return fe
}

// Program resolves call sites of lowered bodies.
func (fe *Frontend) Program() *cfg.Program { return fe.program }

// Graphs provides the lowered bodies.
func (fe *Frontend) Graphs() *cfg.MemoGraphCache { return fe.graphs }

// Function returns the analysis method of an SSA function.
func (fe *Frontend) Function(fn *ssa.Function) (*cfg.Function, bool) {
	f, found := fe.funs[fn]
	return f, found
}

// SSA returns the SSA function of an analysis method.
func (fe *Frontend) SSA(f *cfg.Function) (*ssa.Function, bool) {
	fn, found := fe.ssaFuns[f]
	return fn, found
}

// Lookup finds a method by its full name, or else the first analyzed method
// with the given simple name.
func (fe *Frontend) Lookup(name string) (*cfg.Function, bool) {
	if f, found := fe.program.Function(name); found {
		return f, true
	}
	for _, f := range fe.program.Functions() {
		if fn := fe.ssaFuns[f]; fn.Name() == name && fn.Blocks != nil && fe.local(fn) {
			return f, true
		}
	}
	return nil, false
}

// Roots returns the analyzed functions that no other function calls
// according to the static call graph, sorted by name.
func (fe *Frontend) Roots() []*cfg.Function {
	callGraph := graph.FromCallGraph(static.CallGraph(fe.prog))

	called := map[*ssa.Function]bool{}
	for fn := range fe.funs {
		for _, callee := range callGraph.Edges(fn) {
			if callee != fn {
				called[callee] = true
			}
		}
	}

	var res []*cfg.Function
	for _, f := range fe.program.Functions() {
		fn := fe.ssaFuns[f]
		if fn.Blocks != nil && fn.Synthetic == "" && fe.local(fn) && !called[fn] {
			res = append(res, f)
		}
	}
	return res
}

func (fe *Frontend) build(f *cfg.Function) (g *cfg.Graph, err error) {
	fn, found := fe.ssaFuns[f]
	switch {
	case !found, !fe.local(fn):
		return nil, fmt.Errorf("%w: %s", ErrExternal, f.Name())
	case fn.Blocks == nil:
		return nil, fmt.Errorf("%s: %w", f.Name(), cfg.ErrNoBody)
	}

	defer func() {
		if r := recover(); r != nil {
			g, err = nil, fmt.Errorf("%w %s: %v", ErrLowering, f.Name(), r)
			fe.log.WithError(err).Warn("lowering failed")
		}
	}()

	g = newLowering(fe, fn, f).lower()
	fe.log.WithFields(logrus.Fields{
		"method": f.Name(),
		"nodes":  g.Len(),
	}).Trace("lowered")
	return g, nil
}

func (fe *Frontend) calleeName(fn *ssa.Function) string {
	if f, found := fe.funs[fn]; found {
		return f.Name()
	}
	return fn.String()
}

// StaticName is the name of the static access path of a global. Dots
// separate fields in access paths, so they are replaced in package paths.
func StaticName(g *ssa.Global) string {
	if g.Pkg == nil {
		return g.Name()
	}
	return strings.ReplaceAll(g.Pkg.Pkg.Path(), ".", "_") + "/" + g.Name()
}

func staticPath(g *ssa.Global) loc.AccessPath {
	return loc.StaticPath(StaticName(g))
}

// SSAProgram is the program the methods were lowered from.
func (fe *Frontend) SSAProgram() *ssa.Program { return fe.prog }
