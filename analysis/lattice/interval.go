package lattice

import (
	"fmt"
	"go/token"
)

// Interval is a member of the interval lattice over ℤ ∪ {-∞, ∞}.
// ⊥ is represented by the empty interval [∞, -∞].
type Interval struct {
	low  Bound
	high Bound
}

var _ Widenable[Interval] = Interval{}

// IntervalTop is [-∞, ∞].
func IntervalTop() Interval {
	return Interval{MinusInfinity(), PlusInfinity()}
}

// IntervalBot is the empty interval.
func IntervalBot() Interval {
	return Interval{PlusInfinity(), MinusInfinity()}
}

// IntervalOf creates an interval with possibly infinite bounds. Empty
// intervals are normalized to ⊥.
func IntervalOf(low, high Bound) Interval {
	if high.Lt(low) {
		return IntervalBot()
	}
	return Interval{low, high}
}

// NewInterval creates an interval with finite bounds.
func NewInterval(low, high int64) Interval {
	return IntervalOf(Finite(low), Finite(high))
}

// Singleton is [c, c].
func Singleton(c int64) Interval {
	return NewInterval(c, c)
}

func (e Interval) Low() Bound  { return e.low }
func (e Interval) High() Bound { return e.high }

func (e Interval) IsBot() bool { return e.high.Lt(e.low) }

func (e Interval) IsTop() bool {
	return e.low == MinusInfinity() && e.high == PlusInfinity()
}

func (Interval) ToTop() Interval { return IntervalTop() }
func (Interval) ToBot() Interval { return IntervalBot() }

// IsConstant reports whether the interval contains exactly one value.
func (e Interval) IsConstant() bool {
	return !e.low.IsInfinite() && e.low == e.high
}

// Contains checks c ∈ e.
func (e Interval) Contains(c int64) bool {
	return e.low.Leq(Finite(c)) && Finite(c).Leq(e.high)
}

// Leq computes e1 ⊑ e2, i.e. interval inclusion.
func (e1 Interval) Leq(e2 Interval) bool {
	switch {
	case e1.IsBot():
		return true
	case e2.IsBot():
		return false
	}
	return e2.low.Leq(e1.low) && e1.high.Leq(e2.high)
}

func (e1 Interval) Eq(e2 Interval) bool {
	if e1.IsBot() || e2.IsBot() {
		return e1.IsBot() && e2.IsBot()
	}
	return e1 == e2
}

// Join takes the lowest of the lower bounds and the highest of the upper bounds.
func (e1 Interval) Join(e2 Interval) Interval {
	switch {
	case e1.IsBot():
		return e2
	case e2.IsBot():
		return e1
	}
	return Interval{e1.low.Min(e2.low), e1.high.Max(e2.high)}
}

// Meet computes e1 ⊓ e2.
func (e1 Interval) Meet(e2 Interval) Interval {
	return IntervalOf(e1.low.Max(e2.low), e1.high.Min(e2.high))
}

// Widen computes e1 ∇ e2 with the standard interval widening: unstable
// bounds jump to infinity.
func (e1 Interval) Widen(e2 Interval) Interval {
	switch {
	case e1.IsBot():
		return e2
	case e2.IsBot():
		return e1
	}

	res := e1
	if e2.low.Lt(e1.low) {
		res.low = MinusInfinity()
	}
	if e1.high.Lt(e2.high) {
		res.high = PlusInfinity()
	}
	return res
}

// Plus computes {a + b | a ∈ e1, b ∈ e2}.
func (e1 Interval) Plus(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return IntervalBot()
	}
	return Interval{e1.low.Plus(e2.low), e1.high.Plus(e2.high)}
}

// Neg computes {-a | a ∈ e}.
func (e Interval) Neg() Interval {
	if e.IsBot() {
		return e
	}
	return Interval{e.high.Neg(), e.low.Neg()}
}

// Minus computes {a - b | a ∈ e1, b ∈ e2}.
func (e1 Interval) Minus(e2 Interval) Interval {
	return e1.Plus(e2.Neg())
}

// Mult computes an over-approximation of {a * b | a ∈ e1, b ∈ e2}.
func (e1 Interval) Mult(e2 Interval) Interval {
	if e1.IsBot() || e2.IsBot() {
		return IntervalBot()
	}

	products := []Bound{
		e1.low.Mult(e2.low),
		e1.low.Mult(e2.high),
		e1.high.Mult(e2.low),
		e1.high.Mult(e2.high),
	}
	res := Interval{products[0], products[0]}
	for _, p := range products[1:] {
		res.low = res.low.Min(p)
		res.high = res.high.Max(p)
	}
	return res
}

// Binary applies the arithmetic operator. Unsupported operators yield ⊤.
func (e1 Interval) Binary(op token.Token, e2 Interval) Interval {
	switch op {
	case token.ADD:
		return e1.Plus(e2)
	case token.SUB:
		return e1.Minus(e2)
	case token.MUL:
		return e1.Mult(e2)
	}
	if e1.IsBot() || e2.IsBot() {
		return IntervalBot()
	}
	return IntervalTop()
}

// Restrict refines the interval with the constraint "x op c".
func (e Interval) Restrict(op token.Token, c int64) Interval {
	switch op {
	case token.EQL:
		return e.Meet(Singleton(c))
	case token.NEQ:
		switch {
		case e.IsConstant() && e.low.Value() == c:
			return IntervalBot()
		case e.low == Finite(c):
			return IntervalOf(Finite(c).Plus(Finite(1)), e.high)
		case e.high == Finite(c):
			return IntervalOf(e.low, Finite(c).Plus(Finite(-1)))
		}
		return e
	case token.LSS:
		return e.Meet(IntervalOf(MinusInfinity(), Finite(c).Plus(Finite(-1))))
	case token.LEQ:
		return e.Meet(IntervalOf(MinusInfinity(), Finite(c)))
	case token.GTR:
		return e.Meet(IntervalOf(Finite(c).Plus(Finite(1)), PlusInfinity()))
	case token.GEQ:
		return e.Meet(IntervalOf(Finite(c), PlusInfinity()))
	}
	panic(fmt.Errorf("%w: restricting with %s", errUnsupportedOperation, op))
}

// Satisfies reports whether every value of the interval satisfies "x op c".
// ⊥ satisfies everything.
func (e Interval) Satisfies(op token.Token, c int64) bool {
	return e.Restrict(negate(op), c).IsBot()
}

func negate(op token.Token) token.Token {
	switch op {
	case token.EQL:
		return token.NEQ
	case token.NEQ:
		return token.EQL
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	}
	panic(fmt.Errorf("%w: negating %s", errUnsupportedOperation, op))
}

func (e Interval) String() string {
	if e.IsBot() {
		return colorize.Const("⊥")
	}
	return "[" + colorize.Element(e.low.String()) + ", " + colorize.Element(e.high.String()) + "]"
}
