package absint

import (
	"context"
	"errors"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
)

// ErrIntraprocedural is reported for every call site by the intraprocedural
// handler.
var ErrIntraprocedural = errors.New("calls are not analyzed")

// IntraInvokeHandler analyzes methods in isolation. Every call site fails,
// leaving it to the transformer to forget what the callee may modify.
type IntraInvokeHandler[D lattice.Domain[D]] struct {
	actx        *AnalysisContext[D]
	transformer Transformer[D]
}

func NewIntraInvokeHandler[D lattice.Domain[D]](actx *AnalysisContext[D], transformer Transformer[D]) *IntraInvokeHandler[D] {
	return &IntraInvokeHandler[D]{actx.withDefaults(), transformer}
}

func (h *IntraInvokeHandler[D]) HandleInvoke(input InvokeInput[D]) InvokeOutcome[D] {
	outcome := InvokeOutcome[D]{Kind: AnalysisFailed, Err: ErrIntraprocedural}
	if h.actx.Program != nil && input.Invoke != nil {
		outcome.Target, _ = h.actx.Program.Resolve(input.Caller, input.Invoke)
	}
	h.actx.Metrics.RecordOutcome(outcome.Kind)
	return outcome
}

// HandleRootInvoke analyzes the root and runs the checkers on its state. A
// root without a body yields a nil state.
func (h *IntraInvokeHandler[D]) HandleRootInvoke(ctx context.Context, root *cfg.Function) (*AbstractState[D], error) {
	graph := h.actx.Graphs.GetGraph(root)
	if graph == nil {
		return nil, nil
	}

	h.actx.Metrics.Expanded(root)
	state, err := NewFixpointIterator(h.actx, root, graph, h.transformer, h).RunFixpointIteration(ctx)
	if err != nil {
		return state, err
	}

	h.actx.Checkers.RunCheckersOnSingleMethod(root, state, graph)
	return state, nil
}
