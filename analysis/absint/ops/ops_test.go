package ops_test

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"testing"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/absint/ops"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
	"github.com/cs-au-dk/absum/testutil"
	"github.com/cs-au-dk/absum/utils"
)

func init() {
	utils.Opts().SetNoColorize(true)
}

var path = loc.MustParse

func store(bindings ...any) L.AccessPathMap {
	m := L.NewAccessPathMap()
	for i := 0; i < len(bindings); i += 2 {
		m = m.Set(path(bindings[i].(string)), bindings[i+1].(L.Interval))
	}
	return m
}

func TestEval(t *testing.T) {
	st := store("x", L.NewInterval(1, 2), "y.f", L.Singleton(10))

	for _, test := range []struct {
		expr     cfg.Expr
		expected L.Interval
	}{
		{cfg.Const{Value: 4}, L.Singleton(4)},
		{cfg.Range{Low: -1, High: 1}, L.NewInterval(-1, 1)},
		{cfg.Path(path("x")), L.NewInterval(1, 2)},
		{cfg.Path(path("z")), L.IntervalTop()},
		{cfg.BinOp{Op: token.ADD, X: cfg.Path(path("x")), Y: cfg.Path(path("y.f"))}, L.NewInterval(11, 12)},
		{cfg.BinOp{Op: token.MUL, X: cfg.Path(path("x")), Y: cfg.Const{Value: -3}}, L.NewInterval(-6, -3)},
		{cfg.BinOp{Op: token.QUO, X: cfg.Path(path("x")), Y: cfg.Const{Value: 2}}, L.IntervalTop()},
		{cfg.Unknown{}, L.IntervalTop()},
	} {
		if res := ops.Eval(st, test.expr); !res.Eq(test.expected) {
			t.Errorf("%s: expected %s, got %s", test.expr, test.expected, res)
		}
	}

	if !ops.Eval(L.AccessPathMapBot(), cfg.Const{Value: 1}).IsBot() {
		t.Error("Evaluation in ⊥ is not ⊥")
	}
}

func TestStore(t *testing.T) {
	st := store("a.f", L.Singleton(1), "a.g.h", L.Singleton(2), "b", L.Singleton(3), "b.f", L.Singleton(4))

	for _, test := range []struct {
		dst      string
		src      cfg.Expr
		expected string
	}{
		{"b", cfg.Const{Value: 7}, "{ a.f ↦ [1, 1], a.g.h ↦ [2, 2], b ↦ [7, 7] }"},
		{"b", cfg.Path(path("a")), "{ a.f ↦ [1, 1], a.g.h ↦ [2, 2], b.f ↦ [1, 1], b.g.h ↦ [2, 2] }"},
		{"a.g", cfg.Path(path("b")), "{ a.f ↦ [1, 1], a.g ↦ [3, 3], a.g.f ↦ [4, 4], b ↦ [3, 3], b.f ↦ [4, 4] }"},
		{"c", cfg.Unknown{}, "{ a.f ↦ [1, 1], a.g.h ↦ [2, 2], b ↦ [3, 3], b.f ↦ [4, 4] }"},
	} {
		if res := ops.Store(st, path(test.dst), test.src); res.String() != test.expected {
			t.Errorf("%s := %s: expected %s, got %s", test.dst, test.src, test.expected, res)
		}
	}
}

func TestRefine(t *testing.T) {
	st := store("x", L.NewInterval(0, 10))

	if res := ops.Refine(st, path("x"), token.LSS, 5); !res.Get(path("x")).Eq(L.NewInterval(0, 4)) {
		t.Error("Expected x ∈ [0, 4], got", res)
	}
	if res := ops.Refine(st, path("x"), token.GTR, 10); !res.IsBot() {
		t.Error("Expected ⊥, got", res)
	}
	if res := ops.Refine(st, path("y"), token.GEQ, 3); res.Get(path("y")).String() != "[3, ∞]" {
		t.Error("Expected y ∈ [3, ∞], got", res)
	}
}

// cached is a finalized summary with a fixed postcondition.
type cached struct {
	absint.Summary[L.AccessPathMap]
	post L.AccessPathMap
}

func (c cached) IsFinalized() bool              { return true }
func (c cached) PostCondition() L.AccessPathMap { return c.post }

var g = cfg.NewFunction("g", "a", "b")

func summaryAt(inv *cfg.Invoke, in L.AccessPathMap) absint.Summary[L.AccessPathMap] {
	return ops.SummaryFactory{}.CreateSummary(absint.InvokeInput[L.AccessPathMap]{
		Invoke:       inv,
		Target:       g,
		PreCondition: in,
	})
}

func TestCreateSummary(t *testing.T) {
	dst := path("r")
	inv := cfg.NewInvoke("g", []cfg.Expr{
		cfg.Path(path("x")),
		cfg.BinOp{Op: token.ADD, X: cfg.Path(path("n")), Y: cfg.Const{Value: 1}},
	}, &dst)
	in := store("x", L.Singleton(1), "x.f", L.Singleton(2), "n", L.Singleton(5),
		"static:S.f", L.Singleton(6), "r", L.Singleton(0))

	s := summaryAt(inv, in)
	expected := "{ param#0 ↦ [1, 1], param#0.f ↦ [2, 2], param#1 ↦ [6, 6], static:S.f ↦ [6, 6] }"
	if pre := s.PreCondition().String(); pre != expected {
		t.Errorf("Expected precondition %s, got %s", expected, pre)
	}
	if s.IsFinalized() || !s.PostCondition().IsBot() {
		t.Error("Fresh summary is finalized")
	}
}

func TestApplySummary(t *testing.T) {
	dst := path("r")
	inv := cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("x")), cfg.Path(path("y.f"))}, &dst)
	in := store(
		"x", L.Singleton(1),
		"x.a", L.Singleton(2),
		"x.b", L.Singleton(3),
		"y.f.c", L.Singleton(4),
		"y.g", L.Singleton(5),
		"r.old", L.Singleton(6),
		"static:S", L.Singleton(7),
		"static:T", L.Singleton(8),
		"local", L.Singleton(9),
	)

	for _, test := range []struct {
		name     string
		post     L.AccessPathMap
		expected string
	}{
		{
			"strong update",
			store(
				"param#0.a", L.Singleton(20),
				"param#1.c", L.Singleton(40),
				"param#1.d", L.Singleton(41),
				"return#", L.Singleton(60),
				"return#.k", L.Singleton(61),
				"static:S", L.Singleton(70),
			),
			"{ local ↦ [9, 9], r ↦ [60, 60], r.k ↦ [61, 61], static:S ↦ [70, 70], " +
				"x ↦ [1, 1], x.a ↦ [20, 20], y.f.c ↦ [40, 40], y.f.d ↦ [41, 41], y.g ↦ [5, 5] }",
		},
		{
			"top",
			L.NewAccessPathMap(),
			"{ local ↦ [9, 9], x ↦ [1, 1], y.g ↦ [5, 5] }",
		},
		{
			"bottom",
			L.AccessPathMapBot(),
			"⊥",
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := summaryAt(inv, in)
			s.Reuse(cached{post: test.post})
			if res := s.Apply(in); res.String() != test.expected {
				t.Errorf("Expected\n%s\ngot\n%s", test.expected, res)
			}
		})
	}
}

func TestApplyJoinsAliasedArguments(t *testing.T) {
	inv := cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("x")), cfg.Path(path("x"))}, nil)
	in := store("x.f", L.Singleton(0))

	s := summaryAt(inv, in)
	s.Reuse(cached{post: store("param#0.f", L.Singleton(1), "param#1.f", L.Singleton(5))})
	if res := s.Apply(in); res.String() != "{ x.f ↦ [1, 5] }" {
		t.Error("Expected { x.f ↦ [1, 5] }, got", res)
	}
}

func TestFinalizeTwice(t *testing.T) {
	inv := cfg.NewInvoke("g", nil, nil)
	s := summaryAt(inv, L.NewAccessPathMap())
	s.Reuse(cached{post: L.NewAccessPathMap()})

	defer func() {
		if recover() == nil {
			t.Error("Finalizing twice did not panic")
		}
	}()
	s.Reuse(cached{post: L.NewAccessPathMap()})
}

func TestSubsumes(t *testing.T) {
	inv := cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("x"))}, nil)
	wide := summaryAt(inv, store("x.f", L.NewInterval(0, 10)))
	narrow := summaryAt(inv, store("x.f", L.NewInterval(2, 5)))
	unknown := summaryAt(inv, store())

	for _, test := range []struct {
		a, b     absint.Summary[L.AccessPathMap]
		expected bool
	}{
		{wide, narrow, true},
		{narrow, wide, false},
		{unknown, wide, true},
		{wide, unknown, false},
		{wide, wide, true},
	} {
		if test.a.Subsumes(test.b) != test.expected {
			t.Errorf("%s subsumes %s: expected %v", test.a, test.b, test.expected)
		}
	}

	other := ops.SummaryFactory{}.CreateSummary(absint.InvokeInput[L.AccessPathMap]{
		Invoke:       inv,
		Target:       cfg.NewFunction("h", "x"),
		PreCondition: store("x.f", L.NewInterval(2, 5)),
	})
	if wide.Subsumes(other) {
		t.Error("Summaries of different methods are comparable")
	}
}

// counterProgram builds
//
//	main() { static:cnt := 0; a.x := 3; r := inc(a); s := inc(a) }
//	inc(p) { p.x := p.x + 1; static:cnt := static:cnt + 1; return p.x }
func counterProgram() *cfg.Program {
	main := cfg.NewFunction("main")
	inc := cfg.NewFunction("inc", "p")

	r, s := path("r"), path("s")
	cfg.NewBuilder(main).
		Assign(path("static:cnt"), cfg.Const{Value: 0}).
		Assign(path("a.x"), cfg.Const{Value: 3}).
		Call("inc", &r, cfg.Path(path("a"))).
		Call("inc", &s, cfg.Path(path("a"))).
		Build()

	incr := func(p string) cfg.Expr {
		return cfg.BinOp{Op: token.ADD, X: cfg.Path(path(p)), Y: cfg.Const{Value: 1}}
	}
	cfg.NewBuilder(inc).
		Assign(path("param#0.x"), incr("param#0.x")).
		Assign(path("static:cnt"), incr("static:cnt")).
		Return(cfg.Path(path("param#0.x"))).
		Build()

	return cfg.NewProgram(main, inc)
}

func TestSummariesGolden(t *testing.T) {
	prog := counterProgram()
	main, _ := prog.Function("main")

	a := absint.NewAnalyzer[L.AccessPathMap](&absint.AnalysisContext[L.AccessPathMap]{
		Program: prog,
		Graphs:  prog,
		Config: absint.Config{
			MaxCallStackDepth: 4,
			ContextDepth:      2,
			CrossContextReuse: true,
		},
	}, ops.NewTransformer(nil), ops.SummaryFactory{})

	if _, err := a.AnalyzeMethod(context.Background(), main); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	for _, m := range a.Summaries().Methods() {
		fmt.Fprintln(&out, m.Name())
		if agg, found := a.Summaries().Aggregate(m); found {
			fmt.Fprintf(&out, "  exit: %s\n", agg.ReturnValue())
		}
		for _, s := range a.Summaries().Summaries(m) {
			fmt.Fprintf(&out, "  %s\n", s)
		}
	}

	testutil.Golden(t).Assert(t, t.Name(), out.Bytes())
}

func TestCreateSummaryRecordsAliases(t *testing.T) {
	args := func(paths ...string) []cfg.Expr {
		res := make([]cfg.Expr, len(paths))
		for i, p := range paths {
			res[i] = cfg.Path(path(p))
		}
		return res
	}
	callerAliased := store().Alias(path("param#0"), path("param#1"))

	for _, test := range []struct {
		name     string
		args     []cfg.Expr
		in       L.AccessPathMap
		expected string
	}{
		{"same object", args("x", "x"), store("x.v", L.Singleton(5)),
			"{ param#0.v ↦ [5, 5], param#1.v ↦ [5, 5], param#0 ≡ param#1 }"},
		{"nested object", args("x", "x.inner"), store(),
			"{ param#0.inner ≡ param#1 }"},
		{"static", args("static:G"), store("static:G.v", L.Singleton(5)),
			"{ param#0.v ↦ [5, 5], static:G.v ↦ [5, 5], param#0 ≡ static:G }"},
		{"aliased in caller", args("param#0", "param#1"), callerAliased,
			"{ param#0 ≡ param#1 }"},
		{"caller aliases stay in caller", args("y"), callerAliased, "⊤"},
		{"distinct objects", args("x", "y"), store("x.v", L.Singleton(5)),
			"{ param#0.v ↦ [5, 5] }"},
	} {
		t.Run(test.name, func(t *testing.T) {
			s := summaryAt(cfg.NewInvoke("g", test.args, nil), test.in)
			if pre := s.PreCondition().String(); pre != test.expected {
				t.Errorf("Expected precondition %s, got %s", test.expected, pre)
			}
		})
	}
}

func TestStoreForgetsAliases(t *testing.T) {
	in := store("param#0.v", L.Singleton(5), "param#1.v", L.Singleton(5)).
		Alias(path("param#0"), path("param#1"))

	res := ops.Store(in, path("param#1.v"), cfg.Const{Value: 2})
	if exp := "{ param#1.v ↦ [2, 2], param#0 ≡ param#1 }"; res.String() != exp {
		t.Errorf("Expected %s, got %s", exp, res)
	}
}

func TestApplyForgetsCallerAliases(t *testing.T) {
	inv := cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("param#0"))}, nil)
	in := store("param#0.v", L.Singleton(5), "param#1.v", L.Singleton(5)).
		Alias(path("param#0"), path("param#1"))

	s := summaryAt(inv, in)
	s.Reuse(cached{post: store("param#0.v", L.Singleton(1))})
	if res, exp := s.Apply(in).String(), "{ param#0.v ↦ [1, 1], param#0 ≡ param#1 }"; res != exp {
		t.Errorf("Expected %s, got %s", exp, res)
	}
	if res, exp := ops.Forget(in, inv).String(), "{ param#0 ≡ param#1 }"; res != exp {
		t.Errorf("Expected %s after a failed call, got %s", exp, res)
	}
}

func TestSubsumesAliasedRequest(t *testing.T) {
	distinct := summaryAt(
		cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("x")), cfg.Path(path("y"))}, nil),
		store("x.f", L.NewInterval(0, 10), "y.f", L.NewInterval(0, 10)))
	same := summaryAt(
		cfg.NewInvoke("g", []cfg.Expr{cfg.Path(path("x")), cfg.Path(path("x"))}, nil),
		store("x.f", L.NewInterval(0, 10)))

	if distinct.Subsumes(same) {
		t.Error("A summary for distinct arguments serves a call with aliased arguments")
	}
	if !same.Subsumes(distinct) {
		t.Error("A summary for aliased arguments should serve distinct arguments")
	}
}
