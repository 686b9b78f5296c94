package checker

import (
	"context"
	"go/token"
	"testing"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/utils"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	utils.Opts().SetNoColorize(true)
}

// clampProgram builds
//
//	main(x) { r := clamp(x); assert r <= 10; assert r >= 5; assert r > 100; assert r == 0; return r }
//	clamp(y) { if y > 10 { return 10 }; return y }
func clampProgram() *cfg.Program {
	r := loc.MustParse("r")
	y := loc.MustParse("param#0")

	main := cfg.NewFunction("main", "x")
	cfg.NewBuilder(main).
		Call("clamp", &r, cfg.Path(y)).
		Assert(r, token.LEQ, 10).
		Assert(r, token.GEQ, 5).
		Assert(r, token.GTR, 100).
		Assert(r, token.EQL, 0).
		Return(cfg.Path(r)).
		Build()

	clamp := cfg.NewFunction("clamp", "y")
	cfg.NewBuilder(clamp).
		Branch(func(b *cfg.Builder) {
			b.Assume(y, token.GTR, 10).Return(cfg.Const{Value: 10})
		}, func(b *cfg.Builder) {
			b.Assume(y, token.LEQ, 10).Return(cfg.Path(y))
		}).
		Build()

	return cfg.NewProgram(main, clamp)
}

func analyze(t *testing.T, checkers *Manager[L.AccessPathMap], roots ...string) {
	prog := clampProgram()
	entry := L.NewAccessPathMap().Set(loc.ParamPath(0), L.NewInterval(0, 20))

	actx := &absint.AnalysisContext[L.AccessPathMap]{
		Program:  prog,
		Graphs:   prog,
		Checkers: checkers,
		Config: absint.Config{
			MaxCallStackDepth: 4,
			ContextDepth:      2,
			WideningDelay:     3,
			Workers:           1,
			Shards:            1,
		},
	}
	transformer := ops.NewTransformer(func(*cfg.Function) L.AccessPathMap { return entry })
	a := absint.NewAnalyzer[L.AccessPathMap](actx, transformer, ops.SummaryFactory{})

	for _, name := range roots {
		f, _ := prog.Function(name)
		_, err := a.AnalyzeMethod(context.Background(), f)
		require.NoError(t, err)
	}
}

func TestAssertChecker(t *testing.T) {
	logger, hook := test.NewNullLogger()
	m := NewManager[L.AccessPathMap](logrus.NewEntry(logger), AssertChecker{})
	analyze(t, m, "main")

	reports := m.Reports()
	require.Len(t, reports, 2, "%v", reports)

	assert.Equal(t, "warning: main:4: [assert] assert r >= 5 may fail: r ∈ [0, 10]", reports[0].String())
	assert.Equal(t, Error, reports[1].Severity)
	assert.Equal(t, 5, reports[1].Node)
	assert.Equal(t, 1, m.Count(Error))
	assert.Equal(t, 2, m.Count(Warning))

	require.Len(t, hook.AllEntries(), 2)
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)
	assert.Equal(t, "assert", hook.LastEntry().Data["checker"])
}

func TestAssertCheckerVerbose(t *testing.T) {
	m := NewManager[L.AccessPathMap](nil, AssertChecker{Verbose: true})
	analyze(t, m, "main")

	reports := m.Reports()
	require.Len(t, reports, 3)
	assert.Equal(t, Info, reports[0].Severity)
	assert.Equal(t, "assert r <= 10 holds", reports[0].Message)
	assert.Equal(t, 1, m.Count(Error))
}

func TestReturnRangeChecker(t *testing.T) {
	m := NewManager[L.AccessPathMap](nil, ReturnRangeChecker{})
	analyze(t, m, "main", "clamp")

	reports := m.Reports()
	require.Len(t, reports, 2)
	assert.Equal(t, "info: clamp: [return-range] returns [0, 10]", reports[0].String())
	assert.Equal(t, "info: main: [return-range] never returns", reports[1].String())
}

func TestSeverityString(t *testing.T) {
	assert.Equal(t, "warning", Warning.String())
	assert.Equal(t, "Severity(7)", Severity(7).String())
}
