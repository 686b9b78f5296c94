package absint

import (
	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/analysis/lattice"
)

// Summary records that entering Target with PreCondition leads to
// PostCondition. Preconditions and postconditions are expressed in the
// callee's naming scheme; Apply renames them back into a caller's state.
type Summary[D lattice.Domain[D]] interface {
	Target() *cfg.Function
	// Site is the call-site node the summary was requested for.
	Site() *cfg.Node
	PreCondition() D
	// PostCondition is ⊥ until the summary is finalized.
	PostCondition() D
	IsFinalized() bool
	// Finalize builds the postcondition from the callee state, keeping only
	// information reachable from the arguments, statics and the return
	// value. Finalizing twice panics.
	Finalize(callee *AbstractState[D])
	// Reuse finalizes the summary with the postcondition of a cached summary
	// that subsumes it.
	Reuse(cached Summary[D])
	// Apply merges the postcondition into the caller state at Site.
	Apply(caller D) D
	// Subsumes reports whether the summary can soundly serve a request for
	// other: same target, and other's precondition ⊑ this precondition.
	Subsumes(other Summary[D]) bool
	String() string
}

// SummaryFactory projects caller states at call sites into summaries.
type SummaryFactory[D lattice.Domain[D]] interface {
	// CreateSummary builds an unfinalized summary whose precondition is the
	// callee-visible part of the caller state.
	CreateSummary(input InvokeInput[D]) Summary[D]
	// SkippedSummary builds a finalized summary for a callee that is not
	// analyzed. Its precondition is the caller precondition.
	SkippedSummary(input InvokeInput[D]) Summary[D]
}
