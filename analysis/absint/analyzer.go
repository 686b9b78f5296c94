package absint

import (
	"context"
	"fmt"
	"time"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"

	"golang.org/x/sync/errgroup"
)

// Analyzer runs the analysis of roots with a shared summary repository.
type Analyzer[D lattice.Domain[D]] struct {
	actx        *AnalysisContext[D]
	transformer Transformer[D]
	factory     SummaryFactory[D]
	manager     *SummaryManager[D]
	groups      *RecursionGroups
	intra       bool
}

// NewAnalyzer creates an interprocedural analyzer.
func NewAnalyzer[D lattice.Domain[D]](actx *AnalysisContext[D], transformer Transformer[D], factory SummaryFactory[D]) *Analyzer[D] {
	actx = actx.withDefaults()
	return &Analyzer[D]{
		actx:        actx,
		transformer: transformer,
		factory:     factory,
		manager:     NewSummaryManager[D](actx.Config.Shards, actx.Config.CrossContextReuse),
		groups:      NewRecursionGroups(),
	}
}

// NewIntraAnalyzer creates an analyzer that does not analyze callees.
func NewIntraAnalyzer[D lattice.Domain[D]](actx *AnalysisContext[D], transformer Transformer[D]) *Analyzer[D] {
	a := NewAnalyzer[D](actx, transformer, nil)
	a.intra = true
	return a
}

func (a *Analyzer[D]) handler() InvokeHandler[D] {
	if a.intra {
		return NewIntraInvokeHandler(a.actx, a.transformer)
	}
	return NewInterInvokeHandler(a.actx, a.transformer, a.factory, a.manager, a.groups)
}

// AnalyzeMethod analyzes a single root. The state is nil if the root has no
// body.
func (a *Analyzer[D]) AnalyzeMethod(ctx context.Context, root *cfg.Function) (*AbstractState[D], error) {
	log := a.actx.Log.WithField("root", root.Name())
	log.Debug("analyzing root")

	start := time.Now()
	state, err := a.handler().HandleRootInvoke(ctx, root)
	a.actx.Metrics.RootDone(time.Since(start))
	if err != nil {
		return state, fmt.Errorf("analysis of %s: %w", root.Name(), err)
	}

	if state != nil {
		log.WithField("iterations", state.Iterations()).Debug("root analyzed")
	}
	return state, nil
}

// AnalyzeAll analyzes the roots with a bounded number of concurrent
// workers. The first error cancels the remaining roots.
func (a *Analyzer[D]) AnalyzeAll(ctx context.Context, roots []*cfg.Function) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(a.actx.Config.Workers)

	for _, root := range roots {
		root := root
		eg.Go(func() error {
			_, err := a.AnalyzeMethod(ctx, root)
			return err
		})
	}

	if err := eg.Wait(); err != nil {
		return err
	}

	a.actx.Log.WithField("summaries", a.manager.Len()).Infof("analyzed %d roots", len(roots))
	return nil
}

// Summaries is the summary repository of the analyzer.
func (a *Analyzer[D]) Summaries() *SummaryManager[D] { return a.manager }

func (a *Analyzer[D]) RecursionGroups() *RecursionGroups { return a.groups }

func (a *Analyzer[D]) Metrics() *Metrics { return a.actx.Metrics }
