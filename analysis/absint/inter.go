package absint

import (
	"context"
	"fmt"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"

	"github.com/sirupsen/logrus"
)

// InterInvokeHandler analyzes callees under the calling context and caches
// the resulting summaries. A handler owns its call stack and must only be
// used by one goroutine. The summary manager may be shared.
type InterInvokeHandler[D lattice.Domain[D]] struct {
	actx        *AnalysisContext[D]
	transformer Transformer[D]
	factory     SummaryFactory[D]
	manager     *SummaryManager[D]
	groups      *RecursionGroups
	stack       *CallStack
}

func NewInterInvokeHandler[D lattice.Domain[D]](
	actx *AnalysisContext[D],
	transformer Transformer[D],
	factory SummaryFactory[D],
	manager *SummaryManager[D],
	groups *RecursionGroups,
) *InterInvokeHandler[D] {
	actx = actx.withDefaults()
	if groups == nil {
		groups = NewRecursionGroups()
	}
	return &InterInvokeHandler[D]{
		actx:        actx,
		transformer: transformer,
		factory:     factory,
		manager:     manager,
		groups:      groups,
		stack:       NewCallStack(actx.Config.MaxCallStackDepth),
	}
}

// CallStack exposes the stack of the handler.
func (h *InterInvokeHandler[D]) CallStack() *CallStack { return h.stack }

func (h *InterInvokeHandler[D]) report(input InvokeInput[D], outcome InvokeOutcome[D]) InvokeOutcome[D] {
	h.actx.Metrics.RecordOutcome(outcome.Kind)

	if h.actx.Log.Logger.IsLevelEnabled(logrus.DebugLevel) {
		fields := logrus.Fields{
			"outcome": outcome.Kind.String(),
			"depth":   h.stack.Depth(),
		}
		if input.Caller != nil {
			fields["caller"] = input.Caller.Name()
		}
		if input.Node != nil {
			fields["site"] = input.Node.Label()
		}
		if outcome.Target != nil {
			fields["callee"] = outcome.Target.Name()
		}
		entry := h.actx.Log.WithFields(fields)
		if outcome.Err != nil {
			entry = entry.WithError(outcome.Err)
		}
		entry.Debug("call site resolved")
	}
	return outcome
}

// HandleInvoke resolves a call site to a summary of the callee.
func (h *InterInvokeHandler[D]) HandleInvoke(input InvokeInput[D]) InvokeOutcome[D] {
	ctx := input.Context
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return h.report(input, InvokeOutcome[D]{Kind: Cancelled, Err: err})
	}

	callee, found := h.actx.Program.Resolve(input.Caller, input.Invoke)
	if !found {
		return h.report(input, InvokeOutcome[D]{
			Kind: UnknownMethod,
			Err:  fmt.Errorf("unresolved callee %s", input.Invoke.Callee()),
		})
	}
	input.Target = callee

	if h.actx.Filter.ShouldSkipMethod(callee) {
		return h.report(input, InvokeOutcome[D]{
			Kind:    InSkipList,
			Summary: h.factory.SkippedSummary(input),
			Target:  callee,
		})
	}

	graph := h.actx.Graphs.GetGraph(callee)
	if graph == nil {
		return h.report(input, InvokeOutcome[D]{
			Kind:   AnalysisFailed,
			Target: callee,
			Err:    fmt.Errorf("%s: %w", callee.Name(), cfg.ErrNoBody),
		})
	}

	summary := h.factory.CreateSummary(input)
	cs := h.stack.CallString(h.actx.Config.ContextDepth, input.Node)
	key := ContextKeyOf(callee, cs, h.stack.Depth()+1)

	if cached, found := h.manager.Lookup(key, summary); found {
		summary.Reuse(cached)
		return h.report(input, InvokeOutcome[D]{Kind: CacheHit, Summary: summary, Target: callee})
	}

	// Cycles are reported before the depth bound, such that recursion is
	// classified the same way regardless of the maximum depth.
	if h.stack.Contains(callee) {
		h.groups.AddCycle(h.stack.Cycle(callee))
		return h.report(input, InvokeOutcome[D]{Kind: MutualRecursionCycle, Target: callee})
	}

	if h.stack.AtLimit() {
		return h.report(input, InvokeOutcome[D]{Kind: RecursionLimitOverflow, Target: callee})
	}

	compute := func() (Summary[D], error) {
		return h.computeSummary(ctx, key, cs, input.Node, graph, summary)
	}

	res, shared, err := h.manager.Compute(key, summary, compute)
	switch {
	case err == nil && res == summary:
		return h.report(input, InvokeOutcome[D]{Kind: SummaryComputed, Summary: summary, Target: callee})
	case err == nil && res.Subsumes(summary):
		summary.Reuse(res)
		return h.report(input, InvokeOutcome[D]{Kind: CacheHit, Summary: summary, Target: callee})
	case err != nil && !shared:
		return h.failure(input, callee, ctx, err)
	}

	// The shared computation is unusable for this request.
	if _, err := compute(); err != nil {
		return h.failure(input, callee, ctx, err)
	}
	return h.report(input, InvokeOutcome[D]{Kind: SummaryComputed, Summary: summary, Target: callee})
}

func (h *InterInvokeHandler[D]) failure(input InvokeInput[D], callee *cfg.Function, ctx context.Context, err error) InvokeOutcome[D] {
	kind := AnalysisFailed
	if ctx.Err() != nil {
		kind = Cancelled
	}
	return h.report(input, InvokeOutcome[D]{Kind: kind, Target: callee, Err: err})
}

// computeSummary analyzes the callee under the precondition of the summary,
// finalizes it and stores it.
func (h *InterInvokeHandler[D]) computeSummary(
	ctx context.Context,
	key ContextKey,
	cs CallString,
	site *cfg.Node,
	graph *cfg.Graph,
	summary Summary[D],
) (Summary[D], error) {
	callee := key.Method

	h.stack.Push(callee, site)
	defer h.stack.Pop()

	h.actx.Metrics.Expanded(callee)
	state, err := NewFixpointIterator(h.actx, callee, graph, h.transformer, h).
		RunFixpointIterationFrom(ctx, summary.PreCondition())
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", callee.Name(), err)
	}

	summary.Finalize(state)
	if h.manager.Put(key, cs, summary) {
		h.actx.Metrics.SummaryStored()
	}
	h.manager.JoinState(callee, state)
	return summary, nil
}

// HandleRootInvoke analyzes the root with its initial state and runs the
// checkers on the result. A root without a body yields a nil state.
func (h *InterInvokeHandler[D]) HandleRootInvoke(ctx context.Context, root *cfg.Function) (*AbstractState[D], error) {
	graph := h.actx.Graphs.GetGraph(root)
	if graph == nil {
		h.actx.Log.WithField("root", root.Name()).Debug("root has no body")
		return nil, nil
	}
	if h.stack.Depth() != 0 {
		panic(fmt.Sprintf("analyzing root %s on a non-empty call stack %s", root.Name(), h.stack))
	}

	h.stack.Push(root, nil)
	defer h.stack.Pop()

	h.actx.Metrics.Expanded(root)
	state, err := NewFixpointIterator(h.actx, root, graph, h.transformer, h).RunFixpointIteration(ctx)
	if err != nil {
		return state, err
	}

	h.manager.JoinState(root, state)
	h.actx.Checkers.RunCheckersOnSingleMethod(root, state, graph)
	return state, nil
}
