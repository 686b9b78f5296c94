package ops

import (
	"fmt"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
)

// Transformer gives the interval semantics of statements over access-path
// maps.
type Transformer struct {
	entry func(*cfg.Function) L.AccessPathMap
}

var _ absint.Transformer[L.AccessPathMap] = (*Transformer)(nil)

// NewTransformer creates a transformer. entry provides the initial state of
// roots and may be nil, in which case roots start at ⊤.
func NewTransformer(entry func(*cfg.Function) L.AccessPathMap) *Transformer {
	return &Transformer{entry}
}

func (t *Transformer) Initial(method *cfg.Function) L.AccessPathMap {
	if t.entry == nil {
		return L.NewAccessPathMap()
	}
	return t.entry(method)
}

func (t *Transformer) Transfer(node *cfg.Node, in L.AccessPathMap, cb absint.InvokeCallBack[L.AccessPathMap]) L.AccessPathMap {
	if in.IsBot() {
		return in
	}

	switch s := node.Stmt().(type) {
	case cfg.Nop:
		return in
	case cfg.Assign:
		return Store(in, s.Dst, s.Src)
	case cfg.Havoc:
		return in.ForgetPrefix(s.Dst).ForgetAliased(s.Dst)
	case cfg.Assume:
		return Refine(in, s.Path, s.Op, s.Const)
	case cfg.Assert:
		// Executions violating the assertion do not continue.
		return Refine(in, s.Path, s.Op, s.Const)
	case cfg.Return:
		if s.Value == nil {
			return in
		}
		return Store(in, loc.ReturnPath(), s.Value)
	case *cfg.Invoke:
		return t.invoke(node, s, in, cb)
	default:
		panic(fmt.Sprintf("unsupported statement %T", s))
	}
}

func (t *Transformer) invoke(node *cfg.Node, inv *cfg.Invoke, in L.AccessPathMap, cb absint.InvokeCallBack[L.AccessPathMap]) L.AccessPathMap {
	outcome := cb.HandleInvoke(absint.InvokeInput[L.AccessPathMap]{
		Node:         node,
		Invoke:       inv,
		PreCondition: in,
		Arguments:    Arguments(in, inv),
	})

	if outcome.IsOK() && outcome.Summary != nil {
		return outcome.Summary.Apply(in)
	}
	return Forget(in, inv)
}

// Forget gives up everything a call may modify: the paths reached through
// the actual arguments, every static, the destination and whatever may alias
// them.
func Forget(in L.AccessPathMap, inv *cfg.Invoke) L.AccessPathMap {
	var actuals []loc.AccessPath
	for i := range inv.Args() {
		if actual, ok := inv.ArgPath(i); ok {
			actuals = append(actuals, actual)
		}
	}
	dst, hasDst := inv.Dst()
	var dstp *loc.AccessPath
	if hasDst {
		dstp = &dst
	}

	return forgetAliased(in, actuals, dstp).Filter(func(p loc.AccessPath, _ L.Interval) bool {
		if p.Base().IsStatic() || (hasDst && p.HasPrefix(dst)) {
			return false
		}
		for _, actual := range actuals {
			if p != actual && p.HasPrefix(actual) {
				return false
			}
		}
		return true
	})
}
