package absint_test

import (
	"context"
	"errors"
	"fmt"
	"go/token"
	"testing"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementThroughCall(t *testing.T) {
	prog := incrementProgram()
	s := newSetup(prog)
	s.entries["f"] = store("param#0.v", L.NewInterval(0, 10))

	state, err := s.analyzer().AnalyzeMethod(context.Background(), fun(prog, "f"))
	require.NoError(t, err)

	post := state.ReturnValue()
	assert.Equal(t, "{ param#0.v ↦ [1, 11], t ↦ [100, 100] }", post.String())
	assert.Equal(t, 1, s.outcomes(absint.SummaryComputed))
	assert.Same(t, state, s.checks.states["f"], "Checkers run on the root state")
}

func TestEscapePruning(t *testing.T) {
	prog := incrementProgram()
	s := newSetup(prog)
	s.entries["f"] = store("param#0.v", L.NewInterval(0, 10), "static:G", L.Singleton(3))

	a := s.analyzer()
	_, err := a.AnalyzeMethod(context.Background(), fun(prog, "f"))
	require.NoError(t, err)

	summaries := a.Summaries().Summaries(fun(prog, "g"))
	require.Len(t, summaries, 1)

	post := summaries[0].PostCondition()
	assert.False(t, post.IsBot())
	assert.True(t, post.Bound(path("static:G")), "Statics escape")
	for _, p := range post.Paths() {
		assert.True(t, ops.Escapes(p), "%s escapes the summary", p)
		assert.False(t, p.Base().IsLocal(), "Local %s escapes the summary", p)
	}
}

func TestSubsumingSummaryReuse(t *testing.T) {
	for _, crossContext := range []bool{true, false} {
		t.Run(fmt.Sprint("cross-context=", crossContext), func(t *testing.T) {
			prog := incrementProgram()
			roots := callers(prog, "g", "r1", "r2", "r3")

			s := newSetup(prog)
			s.config.CrossContextReuse = crossContext
			s.entries["r1"] = store("param#0.v", L.NewInterval(0, 10))
			s.entries["r2"] = store("param#0.v", L.NewInterval(2, 5))
			s.entries["r3"] = store("param#0.v", L.NewInterval(0, 20))

			a := s.analyzer()
			states := make([]*absint.AbstractState[State], len(roots))
			for i, r := range roots {
				var err error
				states[i], err = a.AnalyzeMethod(context.Background(), r)
				require.NoError(t, err)
			}

			v := path("param#0.v")
			if crossContext {
				assert.Equal(t, 1, s.outcomes(absint.CacheHit))
				assert.Equal(t, 2, s.outcomes(absint.SummaryComputed))
				// r2 reuses the summary computed for [0, 10].
				assert.Equal(t, L.NewInterval(1, 11), states[1].ReturnValue().Get(v))
			} else {
				assert.Equal(t, 0, s.outcomes(absint.CacheHit))
				assert.Equal(t, 3, s.outcomes(absint.SummaryComputed))
				assert.Equal(t, L.NewInterval(3, 6), states[1].ReturnValue().Get(v))
			}
			assert.Equal(t, L.NewInterval(1, 21), states[2].ReturnValue().Get(v))
		})
	}
}

func TestCacheHitWithinContext(t *testing.T) {
	// h calls g from a loop. The second iteration reaches the site with the
	// same precondition.
	h := cfg.NewFunction("h", "x")
	g := cfg.NewFunction("g", "y")
	cfg.NewBuilder(h).
		Assign(path("res"), cfg.Const{Value: 0}).
		Loop(func(b *cfg.Builder) {
			b.Assign(path("local"), cfg.Range{Low: 0, High: 3}).
				Call("g", path2("res"), cfg.Path(path("local")))
		}).
		Build()
	cfg.NewBuilder(g).Return(cfg.Path(path("param#0"))).Build()

	prog := cfg.NewProgram(h, g)
	s := newSetup(prog)
	state, err := s.analyzer().AnalyzeMethod(context.Background(), h)
	require.NoError(t, err)

	assert.Equal(t, 1, s.outcomes(absint.SummaryComputed))
	assert.Equal(t, 1, s.outcomes(absint.CacheHit))
	assert.Equal(t, L.NewInterval(0, 3), state.ReturnValue().Get(path("res")))
}

func path2(s string) *loc.AccessPath {
	p := path(s)
	return &p
}

func TestMutualRecursion(t *testing.T) {
	for depth := 2; depth <= 8; depth++ {
		t.Run(fmt.Sprint("max-depth=", depth), func(t *testing.T) {
			a := cfg.NewFunction("A", "x")
			b := cfg.NewFunction("B", "x")
			cfg.NewBuilder(a).Call("B", nil, cfg.Path(path("param#0"))).Build()
			cfg.NewBuilder(b).Call("A", nil, cfg.Path(path("param#0"))).Build()
			prog := cfg.NewProgram(a, b)

			s := newSetup(prog)
			s.config.MaxCallStackDepth = depth
			an := s.analyzer()
			_, err := an.AnalyzeMethod(context.Background(), a)
			require.NoError(t, err)

			assert.Equal(t, 1, s.outcomes(absint.MutualRecursionCycle))
			assert.Equal(t, 0, s.outcomes(absint.RecursionLimitOverflow))
			assert.Equal(t, 1, s.outcomes(absint.SummaryComputed))
			assert.True(t, an.RecursionGroups().SameGroup(a, b))
		})
	}
}

func TestAliasedArguments(t *testing.T) {
	// g(p, q) { p.v := 1; return q.v }
	readOther := func(g *cfg.Builder) {
		g.Assign(path("param#0.v"), cfg.Const{Value: 1}).
			Return(cfg.Path(path("param#1.v")))
	}
	// g(p, q) { p.v := 1; q.v := 2; return p.v }
	writeBoth := func(g *cfg.Builder) {
		g.Assign(path("param#0.v"), cfg.Const{Value: 1}).
			Assign(path("param#1.v"), cfg.Const{Value: 2}).
			Return(cfg.Path(path("param#0.v")))
	}
	// g(p) { p.v := 1; return static:G.v }
	readStatic := func(g *cfg.Builder) {
		g.Assign(path("param#0.v"), cfg.Const{Value: 1}).
			Return(cfg.Path(path("static:G.v")))
	}

	for _, test := range []struct {
		name   string
		body   func(*cfg.Builder)
		args   []string
		entry  State
		result L.Interval
		after  string
	}{
		{"write then read other", readOther, []string{"param#0", "param#0"},
			store("param#0.v", L.Singleton(5)), L.Singleton(1), "param#0.v"},
		{"write both", writeBoth, []string{"param#0", "param#0"},
			store("param#0.v", L.Singleton(5)), L.Singleton(2), "param#0.v"},
		{"static passed by address", readStatic, []string{"static:G"},
			store("static:G.v", L.Singleton(5)), L.Singleton(1), "static:G.v"},
	} {
		t.Run(test.name, func(t *testing.T) {
			f := cfg.NewFunction("f", "x")
			g := cfg.NewFunction("g", "p", "q")
			args := make([]cfg.Expr, len(test.args))
			for i, a := range test.args {
				args[i] = cfg.Path(path(a))
			}
			cfg.NewBuilder(f).Call("g", path2("r"), args...).Build()
			b := cfg.NewBuilder(g)
			test.body(b)
			b.Build()
			prog := cfg.NewProgram(f, g)

			s := newSetup(prog)
			s.entries["f"] = test.entry
			state, err := s.analyzer().AnalyzeMethod(context.Background(), f)
			require.NoError(t, err)
			require.Equal(t, 1, s.outcomes(absint.SummaryComputed))

			post := state.ReturnValue()
			r := post.Get(path("r"))
			assert.True(t, test.result.Leq(r), "%s ⋢ r = %s", test.result, r)
			after := post.Get(path(test.after))
			assert.True(t, test.result.Leq(after), "%s ⋢ %s = %s", test.result, test.after, after)
		})
	}
}

func TestSelfRecursion(t *testing.T) {
	// The root alone fills a call stack of depth 1, so the recursive call is
	// at the limit there.
	for _, depth := range []int{1, 2, 8} {
		t.Run(fmt.Sprint("max-depth=", depth), func(t *testing.T) {
			// r(x) { if ? { r(x) } ; x.f := 1 }
			r := cfg.NewFunction("r", "x")
			cfg.NewBuilder(r).
				Branch(func(b *cfg.Builder) {
					b.Call("r", nil, cfg.Path(path("param#0")))
				}, nil).
				Assign(path("param#0.f"), cfg.Const{Value: 1}).
				Build()
			prog := cfg.NewProgram(r)

			s := newSetup(prog)
			s.config.MaxCallStackDepth = depth
			s.entries["r"] = store("param#0.f", L.Singleton(7))
			an := s.analyzer()
			state, err := an.AnalyzeMethod(context.Background(), r)
			require.NoError(t, err)

			assert.Equal(t, 1, s.outcomes(absint.MutualRecursionCycle))
			assert.Equal(t, 0, s.outcomes(absint.RecursionLimitOverflow))
			assert.True(t, an.RecursionGroups().Recursive(r))
			assert.Equal(t, L.Singleton(1), state.ReturnValue().Get(path("param#0.f")))
		})
	}
}

func TestDepthBound(t *testing.T) {
	const n = 6
	funs := make([]*cfg.Function, n)
	for i := range funs {
		funs[i] = cfg.NewFunction(fmt.Sprint("c", i), "x")
	}
	for i, f := range funs {
		b := cfg.NewBuilder(f)
		if i+1 < n {
			b.Call(funs[i+1].Name(), nil, cfg.Path(path("param#0")))
		} else {
			b.Assign(path("param#0.f"), cfg.Const{Value: 42})
		}
		b.Build()
	}
	prog := cfg.NewProgram(funs...)

	s := newSetup(prog)
	s.config.MaxCallStackDepth = 3
	a := s.analyzer()
	_, err := a.AnalyzeMethod(context.Background(), funs[0])
	require.NoError(t, err)

	assert.Equal(t, 1, s.outcomes(absint.RecursionLimitOverflow))
	assert.Equal(t, 2, s.outcomes(absint.SummaryComputed))
	for i, f := range funs[1:] {
		expected := 0
		if i+1 < 3 {
			expected = 1
		}
		assert.Len(t, a.Summaries().Summaries(f), expected, f.Name())
	}
}

func TestSkipList(t *testing.T) {
	prog := incrementProgram()
	f, g := fun(prog, "f"), fun(prog, "g")

	s := newSetup(prog)
	s.filter = skipNames{"g": true}
	h := absint.NewInterInvokeHandler[State](
		s.context(), s.transformer(), ops.SummaryFactory{},
		absint.NewSummaryManager[State](1, true), nil)

	node := f.Body().Invokes()[0]
	inv, _ := node.Invoke()
	in := store("param#0.v", L.NewInterval(0, 10), "t", L.Singleton(100))

	outcome := h.HandleInvoke(absint.InvokeInput[State]{
		Context:      context.Background(),
		Caller:       f,
		Node:         node,
		Invoke:       inv,
		PreCondition: in,
	})
	require.Equal(t, absint.InSkipList, outcome.Kind)
	assert.Same(t, g, outcome.Target)
	assert.True(t, outcome.Summary.PreCondition().Eq(in))
	assert.Equal(t, 0, h.CallStack().Depth())
	assert.Zero(t, s.metrics.Functions()[g], "Skipped method was analyzed")

	// The call forgets what the callee may modify.
	after := outcome.Summary.Apply(in)
	assert.Equal(t, "{ t ↦ [100, 100] }", after.String())
}

func TestIdempotentAnalysis(t *testing.T) {
	run := func() (string, []string) {
		prog := incrementProgram()
		s := newSetup(prog)
		s.entries["f"] = store("param#0.v", L.NewInterval(0, 10))
		a := s.analyzer()
		state, err := a.AnalyzeMethod(context.Background(), fun(prog, "f"))
		require.NoError(t, err)

		var summaries []string
		for _, m := range a.Summaries().Methods() {
			for _, sum := range a.Summaries().Summaries(m) {
				summaries = append(summaries, sum.String())
			}
		}
		return state.String(), summaries
	}

	state1, sums1 := run()
	state2, sums2 := run()
	assert.Equal(t, state1, state2)
	assert.Equal(t, sums1, sums2)
	assert.NotEmpty(t, sums1)
}

func TestIntraprocedural(t *testing.T) {
	prog := incrementProgram()
	s := newSetup(prog)
	s.entries["f"] = store("param#0.v", L.NewInterval(0, 10))

	a := absint.NewIntraAnalyzer[State](s.context(), s.transformer())
	state, err := a.AnalyzeMethod(context.Background(), fun(prog, "f"))
	require.NoError(t, err)

	assert.Equal(t, 1, s.outcomes(absint.AnalysisFailed))
	assert.Equal(t, "{ t ↦ [100, 100] }", state.ReturnValue().String())
	assert.Zero(t, a.Summaries().Len())
}

func TestUnknownAndBodilessCallees(t *testing.T) {
	f := cfg.NewFunction("f", "x")
	ext := cfg.NewFunction("ext", "x")
	cfg.NewBuilder(f).
		Assign(path("param#0.v"), cfg.Const{Value: 1}).
		Call("missing", nil, cfg.Path(path("param#0"))).
		Assign(path("param#0.w"), cfg.Const{Value: 2}).
		Call("ext", path2("r"), cfg.Path(path("param#0"))).
		Build()
	prog := cfg.NewProgram(f, ext)

	s := newSetup(prog)
	a := s.analyzer()
	state, err := a.AnalyzeMethod(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 1, s.outcomes(absint.UnknownMethod))
	assert.Equal(t, 1, s.outcomes(absint.AnalysisFailed))
	assert.True(t, state.ReturnValue().IsTop())

	state, err = a.AnalyzeMethod(context.Background(), ext)
	assert.NoError(t, err, "A root without a body is not an error")
	assert.Nil(t, state)
}

func TestWideningAtLoopHeads(t *testing.T) {
	counter := func() *cfg.Function {
		f := cfg.NewFunction("counter")
		i := path("i")
		cfg.NewBuilder(f).
			Assign(i, cfg.Const{Value: 0}).
			Loop(func(b *cfg.Builder) {
				b.Assume(i, token.LSS, 10).
					Assign(i, cfg.BinOp{Op: token.ADD, X: cfg.Path(i), Y: cfg.Const{Value: 1}})
			}).
			Assume(i, token.GEQ, 10).
			Return(cfg.Path(i)).
			Build()
		return f
	}

	for _, test := range []struct {
		delay    int
		expected L.Interval
	}{
		{100, L.Singleton(10)},
		{0, L.IntervalOf(L.Finite(10), L.PlusInfinity())},
	} {
		f := counter()
		s := newSetup(cfg.NewProgram(f))
		s.config.WideningDelay = test.delay
		state, err := s.analyzer().AnalyzeMethod(context.Background(), f)
		require.NoError(t, err)
		assert.Equal(t, test.expected, state.ReturnValue().Get(loc.ReturnPath()), "delay %d", test.delay)
	}
}

func TestCancellation(t *testing.T) {
	prog := incrementProgram()
	s := newSetup(prog)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.analyzer().AnalyzeMethod(ctx, fun(prog, "f"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestAnalyzeAllConcurrently(t *testing.T) {
	prog := incrementProgram()
	var names []string
	for i := 0; i < 32; i++ {
		names = append(names, fmt.Sprint("root", i))
	}
	roots := callers(prog, "g", names...)

	s := newSetup(prog)
	s.config.Workers = 4
	for i, name := range names {
		s.entries[name] = store("param#0.v", L.NewInterval(0, int64(i%4)))
	}

	a := s.analyzer()
	require.NoError(t, a.AnalyzeAll(context.Background(), roots))

	assert.Equal(t, len(roots), s.outcomes(absint.SummaryComputed)+s.outcomes(absint.CacheHit))
	assert.GreaterOrEqual(t, s.outcomes(absint.SummaryComputed), 1)
	require.Len(t, s.checks.states, len(roots))
	for i, name := range names {
		v := s.checks.states[name].ReturnValue().Get(path("param#0.v"))
		assert.True(t, L.NewInterval(1, int64(i%4)+1).Leq(v), "%s: %s", name, v)
		assert.True(t, v.Leq(L.NewInterval(1, 4)), "%s: %s", name, v)
	}
}

func TestSummaryGraph(t *testing.T) {
	prog := incrementProgram()
	roots := callers(prog, "g", "r1")
	s := newSetup(prog)
	s.config.CrossContextReuse = false
	a := s.analyzer()
	require.NoError(t, a.AnalyzeAll(context.Background(), append(roots, fun(prog, "f"))))

	sg := a.SummaryGraph()
	names := []string{}
	for _, m := range sg.Methods() {
		names = append(names, m.Name())
	}
	assert.Equal(t, []string{"f", "g", "r1"}, names)
	assert.Equal(t, []*cfg.Function{fun(prog, "g")}, sg.Edges(fun(prog, "f")))

	dg := sg.ToDot("test", a.RecursionGroups())
	assert.Len(t, dg.Edges, 2)
}
