package absint

import (
	"strconv"
	"strings"

	"github.com/cs-au-dk/absum/analysis/cfg"
	"github.com/cs-au-dk/absum/utils"
)

// CallString is a k-limited sequence of call sites, most recent first.
// Call strings are immutable.
type CallString struct {
	sites []*cfg.Node
}

func (cs CallString) Len() int { return len(cs.sites) }

func (cs CallString) Sites() []*cfg.Node {
	return append([]*cfg.Node(nil), cs.sites...)
}

func (cs CallString) labels() []string {
	labels := make([]string, len(cs.sites))
	for i, s := range cs.sites {
		labels[i] = s.Label()
	}
	return labels
}

// Signature hashes the call string.
func (cs CallString) Signature() uint64 {
	return utils.Fingerprint(cs.labels()...)
}

// Equal compares call sites by identity.
func (cs CallString) Equal(o CallString) bool {
	if len(cs.sites) != len(o.sites) {
		return false
	}
	for i := range cs.sites {
		if cs.sites[i] != o.sites[i] {
			return false
		}
	}
	return true
}

func (cs CallString) String() string {
	if len(cs.sites) == 0 {
		return "ε"
	}
	return strings.Join(cs.labels(), " ← ")
}

// ContextKey identifies the calling context a summary was computed for.
type ContextKey struct {
	Method    *cfg.Function
	Signature uint64
	// Depth of the callee frame on the call stack.
	Depth int
}

// ContextKeyOf builds the key for analyzing method at the given stack depth
// under the call string.
func ContextKeyOf(method *cfg.Function, cs CallString, depth int) ContextKey {
	return ContextKey{method, cs.Signature(), depth}
}

func (k ContextKey) String() string {
	return k.Method.Name() + "@" + strconv.FormatUint(k.Signature, 16) + "/" + strconv.Itoa(k.Depth)
}
