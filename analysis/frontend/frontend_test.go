package frontend

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/checker"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/testutil"
	"github.com/cs-au-dk/absum/utils"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
)

func init() {
	utils.Opts().SetNoColorize(true)
}

func load(t *testing.T) *Frontend {
	t.Helper()
	return New(loadCounter(t).Prog, Options{Log: nullLog()})
}

func loadCounter(t *testing.T) testutil.LoadResult {
	return testutil.LoadPackageFromFile(t, "example.com/counter", filepath.Join("testdata", "counter.go"))
}

func nullLog() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func lookup(t *testing.T, fe *Frontend, name string) *cfg.Function {
	t.Helper()
	f, found := fe.Lookup(name)
	require.True(t, found, name)
	return f
}

func analyzer(fe *Frontend, checkers absint.CheckerManager[L.AccessPathMap]) *absint.Analyzer[L.AccessPathMap] {
	actx := &absint.AnalysisContext[L.AccessPathMap]{
		Program:  fe.Program(),
		Graphs:   fe.Graphs(),
		Checkers: checkers,
		Config: absint.Config{
			MaxCallStackDepth: 8,
			ContextDepth:      2,
			WideningDelay:     3,
			CrossContextReuse: true,
			Workers:           2,
			Shards:            4,
		},
	}
	return absint.NewAnalyzer[L.AccessPathMap](actx, ops.NewTransformer(nil), ops.SummaryFactory{})
}

func returned(t *testing.T, fe *Frontend, name string) string {
	t.Helper()
	state, err := analyzer(fe, nil).AnalyzeMethod(context.Background(), lookup(t, fe, name))
	require.NoError(t, err)
	require.NotNil(t, state)
	return state.ReturnValue().Get(loc.ReturnPath()).String()
}

func TestReturnedRanges(t *testing.T) {
	loadRes := loadCounter(t)
	fe := New(loadRes.Prog, Options{Log: nullLog()})

	nmgr := testutil.MakeNotesManager(t, loadRes)
	notes := nmgr.FindAllNotes("returns")
	require.Len(t, notes, 7)

	for _, note := range notes {
		note := note
		t.Run(note.Fun.Name(), func(t *testing.T) {
			f, found := fe.Function(note.Fun)
			require.True(t, found)
			assert.Equal(t, note.StringArg(t, 0), returned(t, fe, f.Name()))
		})
	}
}

func TestRoots(t *testing.T) {
	fe := load(t)

	var names []string
	for _, f := range fe.Roots() {
		fn, found := fe.SSA(f)
		require.True(t, found)
		names = append(names, fn.Name())
	}
	assert.Equal(t, []string{"checked", "fib", "run", "setTotal", "sum", "useClamp"}, names)
}

func TestLookup(t *testing.T) {
	fe := load(t)

	inc := lookup(t, fe, "(*example.com/counter.Counter).Inc")
	assert.Equal(t, []string{"c", "by"}, inc.Params())
	assert.Same(t, inc, lookup(t, fe, "Inc"))

	_, found := fe.Lookup("missing")
	assert.False(t, found)
}

func TestLoweredStatements(t *testing.T) {
	fe := load(t)
	inc := lookup(t, fe, "Inc")

	g := fe.Graphs().GetGraph(inc)
	require.NotNil(t, g)

	var stmts []string
	for _, n := range g.Nodes() {
		switch n.Stmt().(type) {
		case cfg.Assign, cfg.Return:
			stmts = append(stmts, n.Stmt().String())
		}
	}
	assert.Contains(t, stmts, "param#0.n := t2")
	assert.Contains(t, stmts, "static:example_com/counter/total := t4")
	assert.Same(t, g, fe.Graphs().GetGraph(inc), "Bodies are lowered once")
}

func TestAssertionsLowered(t *testing.T) {
	fe := load(t)
	reports := checker.NewManager[L.AccessPathMap](nil, checker.AssertChecker{}, checker.ReturnRangeChecker{})

	a := analyzer(fe, reports)
	require.NoError(t, a.AnalyzeAll(context.Background(), fe.Roots()))

	assert.Equal(t, 0, reports.Count(checker.Error))
	assert.Equal(t, 1, reports.Count(checker.Warning))

	var warning checker.Report
	for _, r := range reports.Reports() {
		if r.Severity == checker.Warning {
			warning = r
		}
	}
	assert.Equal(t, "assert", warning.Checker)
	assert.Contains(t, warning.Message, "may fail")
	assert.Contains(t, warning.Message, "counter.go:")
}

func TestExternalFunctions(t *testing.T) {
	fe := load(t)
	fe.local = func(fn *ssa.Function) bool { return fn.Name() != "clamp" }

	use := lookup(t, fe, "useClamp")
	assert.Equal(t, "[-∞, ∞]", returned(t, fe, use.Name()))

	f, found := fe.Program().Function("example.com/counter.clamp")
	require.True(t, found)
	assert.Nil(t, fe.Graphs().GetGraph(f))
	assert.ErrorIs(t, fe.Graphs().Err(f), ErrExternal)
}

func TestStandardLibraryIsExternal(t *testing.T) {
	res := testutil.LoadPackageFromSource(t, "example.com/shout", "shout.go", `package shout

import "strings"

func shout(s string) int {
	return len(strings.ToUpper(s))
}
`)
	fe := New(res.Prog, Options{Log: nullLog()})

	upper, found := fe.Program().Function("strings.ToUpper")
	require.True(t, found)
	assert.Nil(t, fe.Graphs().GetGraph(upper))
	assert.ErrorIs(t, fe.Graphs().Err(upper), ErrExternal)

	assert.NotNil(t, fe.Graphs().GetGraph(lookup(t, fe, "shout")))
}
