package absint

import (
	"context"
	"fmt"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
	"github.com/cs-au-dk/absum/utils/pq"
)

// FixpointIterator computes the least fixpoint of a transformer over one
// method body.
type FixpointIterator[D lattice.Domain[D]] struct {
	actx        *AnalysisContext[D]
	method      *cfg.Function
	graph       *cfg.Graph
	transformer Transformer[D]
	callback    InvokeCallBack[D]
}

func NewFixpointIterator[D lattice.Domain[D]](
	actx *AnalysisContext[D],
	method *cfg.Function,
	graph *cfg.Graph,
	transformer Transformer[D],
	callback InvokeCallBack[D],
) *FixpointIterator[D] {
	if graph == nil {
		panic(fmt.Sprintf("fixpoint iteration of %s without a body", method.Name()))
	}
	return &FixpointIterator[D]{actx, method, graph, transformer, callback}
}

// RunFixpointIteration analyzes the method as a root.
func (it *FixpointIterator[D]) RunFixpointIteration(ctx context.Context) (*AbstractState[D], error) {
	return it.RunFixpointIterationFrom(ctx, it.transformer.Initial(it.method))
}

// RunFixpointIterationFrom analyzes the method with the entry state pre.
// On cancellation the partial state is returned along with the context
// error.
func (it *FixpointIterator[D]) RunFixpointIterationFrom(ctx context.Context, pre D) (*AbstractState[D], error) {
	g := it.graph
	state := newAbstractState(it.method, g, pre)
	order := g.Order()
	delay := it.actx.Config.WideningDelay

	state.pre[g.Entry()] = pre
	queue := pq.Empty(g.Before)
	queue.Add(g.Entry())

	visits := make(map[*cfg.Node]int)
	cb := &boundCallBack[D]{ctx: ctx, caller: it.method, cb: it.callback}

	defer func() {
		it.actx.Metrics.AddIterations(state.iterations)
	}()

	for !queue.IsEmpty() {
		if err := ctx.Err(); err != nil {
			return state, err
		}

		node := queue.GetNext()
		in := state.pre[node]
		if in.IsBot() {
			continue
		}

		cb.node = node
		out := it.transformer.Transfer(node, in, cb)
		state.post[node] = out
		state.iterations++

		if out.IsBot() {
			continue
		}

		for _, succ := range node.Successors() {
			old, seen := state.pre[succ]
			if !seen {
				state.pre[succ] = out
				queue.Add(succ)
				continue
			}
			if out.Leq(old) {
				continue
			}

			next := old.Join(out)
			visits[succ]++
			if order.IsLoopHead(succ) && visits[succ] > delay {
				next = lattice.Widen(old, next)
			}
			state.pre[succ] = next
			queue.Add(succ)
		}
	}

	return state, nil
}
