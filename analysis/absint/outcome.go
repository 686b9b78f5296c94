package absint

import (
	"fmt"
	"strconv"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
	"github.com/cs-au-dk/absum/utils"
)

// OutcomeKind is the closed set of results of resolving a call site.
type OutcomeKind uint8

const (
	// SummaryComputed: the callee was analyzed under the call-site context.
	SummaryComputed OutcomeKind = iota
	// CacheHit: a previously computed summary subsumes the request.
	CacheHit
	// InSkipList: the callee is filtered; the summary only reflects the
	// caller state.
	InSkipList
	// UnknownMethod: the callee could not be resolved.
	UnknownMethod
	// RecursionLimitOverflow: the call stack is at its maximum depth.
	RecursionLimitOverflow
	// MutualRecursionCycle: the callee is already on the call stack.
	MutualRecursionCycle
	// AnalysisFailed: calls are not analyzed, or the callee has no body or
	// failed to be analyzed.
	AnalysisFailed
	// Cancelled: the analysis context was cancelled.
	Cancelled
)

var outcomeNames = [...]string{
	SummaryComputed:        "summary_computed",
	CacheHit:               "cache_hit",
	InSkipList:             "in_skip_list",
	UnknownMethod:          "unknown_method",
	RecursionLimitOverflow: "recursion_limit_overflow",
	MutualRecursionCycle:   "mutual_recursion_cycle",
	AnalysisFailed:         "analysis_failed",
	Cancelled:              "cancelled",
}

func (k OutcomeKind) String() string {
	if int(k) < len(outcomeNames) {
		return outcomeNames[k]
	}
	return "OutcomeKind(" + strconv.Itoa(int(k)) + ")"
}

// IsOK is true for outcomes that carry a usable summary.
func (k OutcomeKind) IsOK() bool {
	switch k {
	case SummaryComputed, CacheHit, InSkipList:
		return true
	}
	return false
}

// OutcomeKinds lists every outcome kind.
func OutcomeKinds() []OutcomeKind {
	res := make([]OutcomeKind, len(outcomeNames))
	for i := range res {
		res[i] = OutcomeKind(i)
	}
	return res
}

// InvokeOutcome is the result of handling a call site. Summary is only set
// for OK outcomes. Target is nil when the callee could not be resolved.
type InvokeOutcome[D lattice.Domain[D]] struct {
	Kind    OutcomeKind
	Summary Summary[D]
	Target  *cfg.Function
	Err     error
}

func (o InvokeOutcome[D]) IsOK() bool {
	return o.Kind.IsOK()
}

func (o InvokeOutcome[D]) String() string {
	str := utils.OutcomeString(o.Kind.String(), o.IsOK())
	if o.Target != nil {
		str += " " + o.Target.String()
	}
	if o.Err != nil {
		str += fmt.Sprintf(" (%v)", o.Err)
	}
	return str
}
