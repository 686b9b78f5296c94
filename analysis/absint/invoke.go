package absint

import (
	"context"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
)

// InvokeInput describes a call site being analyzed.
type InvokeInput[D lattice.Domain[D]] struct {
	Context context.Context
	Caller  *cfg.Function
	Node    *cfg.Node
	Invoke  *cfg.Invoke
	// Target is the resolved callee. Handlers set it before consulting the
	// summary factory.
	Target *cfg.Function
	// PreCondition is the caller state at the call site.
	PreCondition D
	// Arguments holds, for every actual argument, the part of the caller
	// state describing it in the callee's naming scheme.
	Arguments []D
}

// InvokeCallBack is the call-site policy consulted by transformers.
type InvokeCallBack[D lattice.Domain[D]] interface {
	HandleInvoke(input InvokeInput[D]) InvokeOutcome[D]
}

// Transformer gives the abstract semantics of statements. Call sites are
// delegated to the callback.
type Transformer[D lattice.Domain[D]] interface {
	// Initial is the entry state of a method analyzed as a root.
	Initial(method *cfg.Function) D
	Transfer(node *cfg.Node, in D, cb InvokeCallBack[D]) D
}

// InvokeHandler resolves call sites and analyzes roots.
type InvokeHandler[D lattice.Domain[D]] interface {
	InvokeCallBack[D]
	HandleRootInvoke(ctx context.Context, root *cfg.Function) (*AbstractState[D], error)
}

// boundCallBack fills in the iteration-specific parts of call-site inputs.
type boundCallBack[D lattice.Domain[D]] struct {
	ctx    context.Context
	caller *cfg.Function
	node   *cfg.Node
	cb     InvokeCallBack[D]
}

func (b *boundCallBack[D]) HandleInvoke(input InvokeInput[D]) InvokeOutcome[D] {
	if input.Context == nil {
		input.Context = b.ctx
	}
	if input.Caller == nil {
		input.Caller = b.caller
	}
	if input.Node == nil {
		input.Node = b.node
	}
	if input.Invoke == nil && b.node != nil {
		input.Invoke, _ = b.node.Invoke()
	}
	return b.cb.HandleInvoke(input)
}
