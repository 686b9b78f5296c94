package frontend

import (
	"go/constant"
	"go/token"
	"go/types"

	"github.com/cs-au-dk/absum/analysis/cfg"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"

	"golang.org/x/tools/go/ssa"
)

// lowering translates one SSA function. Every block becomes a chain of
// nodes. Phi nodes become assignments on the incoming edges and branch
// conditions comparing a tracked value with a constant become assumptions.
type lowering struct {
	fe     *Frontend
	fn     *ssa.Function
	g      *cfg.Graph
	first  map[*ssa.BasicBlock]*cfg.Node
	last   map[*ssa.BasicBlock]*cfg.Node
	params map[*ssa.Parameter]int
	// Access paths of the memory denoted by pointer values.
	addrs map[ssa.Value]loc.AccessPath
}

func newLowering(fe *Frontend, fn *ssa.Function, f *cfg.Function) *lowering {
	l := &lowering{
		fe:     fe,
		fn:     fn,
		g:      cfg.NewGraph(f),
		first:  make(map[*ssa.BasicBlock]*cfg.Node),
		last:   make(map[*ssa.BasicBlock]*cfg.Node),
		params: make(map[*ssa.Parameter]int),
		addrs:  make(map[ssa.Value]loc.AccessPath),
	}
	for i, p := range fn.Params {
		l.params[p] = i
		if utils.IsStructPointer(p.Type()) {
			l.addrs[p] = loc.ParamPath(i)
		}
	}
	return l
}

func (l *lowering) lower() *cfg.Graph {
	// Addresses are resolved in dominator order so that operands are
	// known before their uses.
	// Blocks outside the dominator tree, e.g. the recover block, come last.
	for _, b := range append(l.fn.DomPreorder(), l.fn.Blocks...) {
		for _, instr := range b.Instrs {
			l.address(instr)
		}
	}

	for _, b := range l.fn.Blocks {
		l.block(b)
	}
	if len(l.fn.Blocks) > 0 {
		l.g.AddEdge(l.g.Entry(), l.first[l.fn.Blocks[0]])
	}

	for _, b := range l.fn.Blocks {
		if len(b.Instrs) == 0 {
			continue
		}
		switch t := b.Instrs[len(b.Instrs)-1].(type) {
		case *ssa.If:
			then, els := l.guards(t.Cond)
			l.edge(b, b.Succs[0], then)
			l.edge(b, b.Succs[1], els)
		case *ssa.Jump:
			l.edge(b, b.Succs[0], nil)
		case *ssa.Return:
			l.g.AddEdge(l.last[b], l.g.Exit())
		}
	}

	return l.g.Seal()
}

func (l *lowering) address(instr ssa.Instruction) {
	switch v := instr.(type) {
	case *ssa.Alloc:
		l.addrs[v] = loc.LocalPath(v.Name())
	case *ssa.FieldAddr:
		base, ok := l.addr(v.X)
		if !ok {
			return
		}
		st := v.X.Type().Underlying().(*types.Pointer).Elem().Underlying().(*types.Struct)
		l.addrs[v] = base.Field(st.Field(v.Field).Name())
	}
}

func (l *lowering) addr(v ssa.Value) (loc.AccessPath, bool) {
	if g, ok := v.(*ssa.Global); ok {
		return staticPath(g), true
	}
	p, ok := l.addrs[v]
	return p, ok
}

// path is the access path holding an integer value.
func (l *lowering) path(v ssa.Value) (loc.AccessPath, bool) {
	switch v := v.(type) {
	case *ssa.Parameter:
		return loc.ParamPath(l.params[v]), true
	case *ssa.Const, *ssa.FreeVar, *ssa.Global, *ssa.Function, *ssa.Builtin:
		return loc.AccessPath{}, false
	}
	if !utils.IsIntegral(v.Type()) || v.Name() == "" {
		return loc.AccessPath{}, false
	}
	return loc.LocalPath(v.Name()), true
}

func (l *lowering) expr(v ssa.Value) cfg.Expr {
	if c, ok := v.(*ssa.Const); ok {
		if c.Value != nil && c.Value.Kind() == constant.Int && utils.IsIntegral(c.Type()) {
			if i, exact := constant.Int64Val(c.Value); exact {
				return cfg.Const{Value: i}
			}
		}
		return cfg.Unknown{}
	}
	if utils.IsIntegral(v.Type()) {
		if p, ok := l.path(v); ok {
			return cfg.Path(p)
		}
		return cfg.Unknown{}
	}
	if p, ok := l.addr(v); ok {
		return cfg.Path(p)
	}
	return cfg.Unknown{}
}

func (l *lowering) block(b *ssa.BasicBlock) {
	var nodes []*cfg.Node
	for _, instr := range b.Instrs {
		for _, s := range l.stmts(instr) {
			nodes = append(nodes, l.g.AddNode(s))
		}
	}
	if len(nodes) == 0 {
		nodes = append(nodes, l.g.AddNode(cfg.Nop{}))
	}
	for i := 1; i < len(nodes); i++ {
		l.g.AddEdge(nodes[i-1], nodes[i])
	}
	l.first[b], l.last[b] = nodes[0], nodes[len(nodes)-1]
}

func (l *lowering) define(v ssa.Value, e cfg.Expr) []cfg.Stmt {
	p, ok := l.path(v)
	if !ok {
		return nil
	}
	if e == nil {
		return []cfg.Stmt{cfg.Havoc{Dst: p}}
	}
	return []cfg.Stmt{cfg.Assign{Dst: p, Src: e}}
}

func (l *lowering) stmts(instr ssa.Instruction) []cfg.Stmt {
	switch v := instr.(type) {
	case *ssa.Phi, *ssa.If, *ssa.Jump, *ssa.DebugRef, *ssa.FieldAddr:
		return nil

	case *ssa.Alloc:
		return l.zero(l.addrs[v], v.Type().Underlying().(*types.Pointer).Elem())

	case *ssa.BinOp:
		switch v.Op {
		case token.ADD, token.SUB, token.MUL:
			return l.define(v, cfg.BinOp{Op: v.Op, X: l.expr(v.X), Y: l.expr(v.Y)})
		}
		return l.define(v, nil)

	case *ssa.UnOp:
		switch v.Op {
		case token.SUB:
			return l.define(v, cfg.BinOp{Op: token.SUB, X: cfg.Const{Value: 0}, Y: l.expr(v.X)})
		case token.MUL:
			if p, ok := l.addr(v.X); ok {
				return l.define(v, cfg.Path(p))
			}
		}
		return l.define(v, nil)

	case *ssa.Convert:
		if utils.IsIntegral(v.X.Type()) {
			return l.define(v, l.expr(v.X))
		}
		return l.define(v, nil)

	case *ssa.ChangeType:
		return l.define(v, l.expr(v.X))

	case *ssa.Store:
		p, ok := l.addr(v.Addr)
		if !ok {
			return nil
		}
		elem := v.Addr.Type().Underlying().(*types.Pointer).Elem()
		if utils.IsIntegral(elem) {
			return []cfg.Stmt{cfg.Assign{Dst: p, Src: l.expr(v.Val)}}
		}
		return l.forget(p, elem)

	case *ssa.Call:
		return l.call(v)

	case *ssa.Return:
		if len(v.Results) == 1 && utils.IsIntegral(v.Results[0].Type()) {
			return []cfg.Stmt{cfg.Return{Value: l.expr(v.Results[0])}}
		}
		return []cfg.Stmt{cfg.Return{}}

	case ssa.Value:
		return l.define(v, nil)
	}
	return nil
}

// zero initializes fresh memory of the given type at p.
func (l *lowering) zero(p loc.AccessPath, typ types.Type) []cfg.Stmt {
	if utils.IsIntegral(typ) {
		return []cfg.Stmt{cfg.Assign{Dst: p, Src: cfg.Const{Value: 0}}}
	}
	res := []cfg.Stmt{cfg.Havoc{Dst: p}}
	if st, ok := typ.Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			if f := st.Field(i); utils.IsIntegral(f.Type()) {
				res = append(res, cfg.Assign{Dst: p.Field(f.Name()), Src: cfg.Const{Value: 0}})
			}
		}
	}
	return res
}

// forget overwrites the memory at p with unknown contents. Bare parameters
// are never written, so their fields are forgotten instead.
func (l *lowering) forget(p loc.AccessPath, typ types.Type) []cfg.Stmt {
	if !(p.Base().IsParam() && p.IsRoot()) {
		return []cfg.Stmt{cfg.Havoc{Dst: p}}
	}
	var res []cfg.Stmt
	if st, ok := typ.Underlying().(*types.Struct); ok {
		for i := 0; i < st.NumFields(); i++ {
			res = append(res, cfg.Havoc{Dst: p.Field(st.Field(i).Name())})
		}
	}
	return res
}

func (l *lowering) call(v *ssa.Call) []cfg.Stmt {
	common := v.Common()
	callee := common.StaticCallee()

	if callee != nil && callee.Name() == "assert" && len(common.Args) == 1 {
		if s, ok := l.assertion(common.Args[0]); ok {
			if pos := v.Pos(); pos.IsValid() {
				s.Pos = l.fn.Prog.Fset.Position(pos).String()
			}
			return []cfg.Stmt{s}
		}
	}

	args := make([]cfg.Expr, len(common.Args))
	for i, a := range common.Args {
		args[i] = l.expr(a)
	}

	var dst *loc.AccessPath
	if p, ok := l.path(v); ok {
		dst = &p
	}

	var name string
	switch {
	case callee != nil:
		name = l.fe.calleeName(callee)
	case common.IsInvoke():
		name = common.Method.FullName()
	default:
		// Unresolvable, e.g. builtins and closures.
		name = common.Value.String()
	}
	return []cfg.Stmt{cfg.NewInvoke(name, args, dst)}
}

// comparison decomposes "x op c" or "c op x" into a tracked path, an
// operator and a constant.
func (l *lowering) comparison(v ssa.Value) (p loc.AccessPath, op token.Token, c int64, ok bool) {
	bin, isBin := v.(*ssa.BinOp)
	if !isBin {
		return
	}
	switch bin.Op {
	case token.EQL, token.NEQ, token.LSS, token.LEQ, token.GTR, token.GEQ:
	default:
		return
	}

	x, y, op := bin.X, bin.Y, bin.Op
	if _, isConst := x.(*ssa.Const); isConst {
		x, y, op = y, x, mirror(op)
	}
	if !utils.IsIntegral(x.Type()) {
		return
	}
	cst, isConst := l.expr(y).(cfg.Const)
	if !isConst {
		return
	}
	if p, ok = l.path(x); !ok {
		return
	}
	return p, op, cst.Value, true
}

func (l *lowering) assertion(v ssa.Value) (cfg.Assert, bool) {
	p, op, c, ok := l.comparison(v)
	if !ok {
		return cfg.Assert{}, false
	}
	return cfg.Assert{Path: p, Op: op, Const: c}, true
}

// guards returns the assumptions of the true and false branch of a
// condition. Either is nil when nothing is learned.
func (l *lowering) guards(cond ssa.Value) (then, els cfg.Stmt) {
	if not, ok := cond.(*ssa.UnOp); ok && not.Op == token.NOT {
		els, then = l.guards(not.X)
		return
	}
	p, op, c, ok := l.comparison(cond)
	if !ok {
		return nil, nil
	}
	return cfg.Assume{Path: p, Op: op, Const: c}, cfg.Assume{Path: p, Op: negate(op), Const: c}
}

// edge connects the end of pred to the start of succ through the guard and
// the assignments of the phi nodes of succ.
func (l *lowering) edge(pred, succ *ssa.BasicBlock, guard cfg.Stmt) {
	cur := l.last[pred]
	step := func(s cfg.Stmt) {
		n := l.g.AddNode(s)
		l.g.AddEdge(cur, n)
		cur = n
	}

	if guard != nil {
		step(guard)
	}

	idx := -1
	for i, p := range succ.Preds {
		if p == pred {
			idx = i
			break
		}
	}

	var phis []*ssa.Phi
	parallel := false
	for _, instr := range succ.Instrs {
		phi, ok := instr.(*ssa.Phi)
		if !ok {
			break
		}
		if _, ok := l.path(phi); !ok {
			continue
		}
		phis = append(phis, phi)
		if e, ok := phi.Edges[idx].(*ssa.Phi); ok && e.Block() == succ {
			parallel = true
		}
	}

	// Phis reading each other are assigned through temporaries.
	if parallel {
		for _, phi := range phis {
			tmp := loc.LocalPath(phi.Name() + "'")
			step(cfg.Assign{Dst: tmp, Src: l.expr(phi.Edges[idx])})
		}
		for _, phi := range phis {
			p, _ := l.path(phi)
			step(cfg.Assign{Dst: p, Src: cfg.Path(loc.LocalPath(phi.Name() + "'"))})
		}
	} else {
		for _, phi := range phis {
			p, _ := l.path(phi)
			step(cfg.Assign{Dst: p, Src: l.expr(phi.Edges[idx])})
		}
	}

	l.g.AddEdge(cur, l.first[succ])
}

func mirror(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	}
	return op
}

func negate(op token.Token) token.Token {
	switch op {
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	}
	return op
}
