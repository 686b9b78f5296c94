package lattice

import (
	"errors"

	"github.com/cs-au-dk/absum/utils"

	"github.com/fatih/color"
)

// colorize is used for pretty-printing lattice elements.
var colorize = struct {
	Element func(...interface{}) string
	Const   func(...interface{}) string
	Key     func(...interface{}) string
}{
	Element: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	},
	Const: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiRed).SprintFunc())(is...)
	},
	Key: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
}

var errUnsupportedOperation = errors.New("unsupported lattice operation")

// Domain is the contract every abstract domain used by the analysis engine
// satisfies. Elements are values: operations never mutate the receiver, and
// ToTop/ToBot return the extreme elements of the receiver's lattice instead
// of updating it in place.
type Domain[D any] interface {
	// Join computes the least upper bound d ⊔ o.
	Join(o D) D
	// Leq computes d ⊑ o, i.e. d is at least as precise as o.
	Leq(o D) bool
	// Eq computes d = o.
	Eq(o D) bool
	IsTop() bool
	IsBot() bool
	// ToTop returns ⊤ of the receiver's lattice.
	ToTop() D
	// ToBot returns ⊥ of the receiver's lattice.
	ToBot() D
	String() string
}

// Widenable domains provide a widening operator for lattices with infinite
// ascending chains. Widen(o) must be an upper bound of d and o, and every
// sequence x_{i+1} = x_i ∇ y_i must stabilize.
type Widenable[D any] interface {
	Domain[D]
	Widen(o D) D
}

// Widen applies widening if the domain supports it and falls back to join
// otherwise.
func Widen[D Domain[D]](a, b D) D {
	if w, ok := any(a).(Widenable[D]); ok {
		return w.Widen(b)
	}
	return a.Join(b)
}
