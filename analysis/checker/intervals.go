package checker

import (
	"fmt"

	"github.com/cs-au-dk/absum/analysis/absint"
	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
)

// AssertChecker classifies the assertions of a method. An assertion holds if
// every value reaching it satisfies the condition, fails if none does, and
// may fail otherwise. Unreachable assertions are not reported.
type AssertChecker struct {
	// Report proven assertions as well.
	Verbose bool
}

func (AssertChecker) Name() string { return "assert" }

func (c AssertChecker) Check(method *cfg.Function, state *absint.AbstractState[L.AccessPathMap], graph *cfg.Graph) (res []Report) {
	for _, n := range graph.Nodes() {
		s, ok := n.Stmt().(cfg.Assert)
		if !ok {
			continue
		}
		pre := state.PreCondition(n)
		if pre.IsBot() {
			continue
		}

		v := pre.Get(s.Path)
		report := Report{Checker: c.Name(), Method: method.Name(), Node: n.ID()}
		switch {
		case v.Satisfies(s.Op, s.Const):
			if !c.Verbose {
				continue
			}
			report.Severity = Info
			report.Message = fmt.Sprintf("%s holds", s)
		case v.Restrict(s.Op, s.Const).IsBot():
			report.Severity = Error
			report.Message = fmt.Sprintf("%s fails: %s ∈ %s", s, s.Path, v)
		default:
			report.Severity = Warning
			report.Message = fmt.Sprintf("%s may fail: %s ∈ %s", s, s.Path, v)
		}
		if s.Pos != "" {
			report.Message += " at " + s.Pos
		}
		res = append(res, report)
	}
	return
}

// ReturnRangeChecker reports the interval of the value returned by a root.
type ReturnRangeChecker struct{}

func (ReturnRangeChecker) Name() string { return "return-range" }

func (c ReturnRangeChecker) Check(method *cfg.Function, state *absint.AbstractState[L.AccessPathMap], _ *cfg.Graph) []Report {
	exit := state.ReturnValue()
	report := Report{Checker: c.Name(), Severity: Info, Method: method.Name(), Node: -1}
	switch {
	case exit.IsBot():
		report.Message = "never returns"
	case !exit.Bound(loc.ReturnPath()):
		return nil
	default:
		report.Message = fmt.Sprintf("returns %s", exit.Get(loc.ReturnPath()))
	}
	return []Report{report}
}
