package cfg

import (
	"fmt"
	"sort"

	"github.com/cs-au-dk/absum/utils/graph"
)

// Program is a closed set of functions. Call sites refer to callees by name
// and are resolved against the program.
type Program struct {
	funs map[string]*Function
}

func NewProgram(funs ...*Function) *Program {
	p := &Program{funs: make(map[string]*Function)}
	for _, f := range funs {
		p.Add(f)
	}
	return p
}

// Add registers a function. Names are unique within a program.
func (p *Program) Add(f *Function) {
	if _, found := p.funs[f.name]; found {
		panic(fmt.Sprintf("duplicate function %s", f.name))
	}
	p.funs[f.name] = f
}

// Function looks up a function by name.
func (p *Program) Function(name string) (*Function, bool) {
	f, found := p.funs[name]
	return f, found
}

// Functions returns every function sorted by name.
func (p *Program) Functions() []*Function {
	res := make([]*Function, 0, len(p.funs))
	for _, f := range p.funs {
		res = append(res, f)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].name < res[j].name })
	return res
}

// Resolve finds the target of a call site in the body of caller.
func (p *Program) Resolve(caller *Function, inv *Invoke) (*Function, bool) {
	f, found := p.funs[inv.callee]
	return f, found
}

// Callees returns the resolvable callees of the function, without duplicates.
func (p *Program) Callees(f *Function) (res []*Function) {
	if f.body == nil {
		return
	}
	seen := map[*Function]bool{}
	for _, n := range f.body.Invokes() {
		inv, _ := n.Invoke()
		if callee, ok := p.Resolve(f, inv); ok && !seen[callee] {
			seen[callee] = true
			res = append(res, callee)
		}
	}
	return
}

// CallGraph returns the call graph over the functions of the program.
func (p *Program) CallGraph() graph.Graph[*Function] {
	return graph.OfHashable(p.Callees)
}

// Roots returns the functions with bodies that are not called by any other
// function of the program, sorted by name.
func (p *Program) Roots() (res []*Function) {
	called := map[*Function]bool{}
	for _, f := range p.funs {
		for _, c := range p.Callees(f) {
			if c != f {
				called[c] = true
			}
		}
	}
	for _, f := range p.Functions() {
		if f.body != nil && !called[f] {
			res = append(res, f)
		}
	}
	return
}

// Reachable returns the functions transitively callable from the roots.
func (p *Program) Reachable(roots ...*Function) map[*Function]struct{} {
	res := map[*Function]struct{}{}
	p.CallGraph().BFSV(func(f *Function) bool {
		res[f] = struct{}{}
		return false
	}, roots...)
	return res
}
