package lattice

import (
	"fmt"
	"math"
	"strconv"
)

type boundKind int8

const (
	minusInf boundKind = iota - 1
	finite
	plusInf
)

// Bound is a bound of an interval: an integer, -∞ or ∞.
// Bounds are comparable values.
type Bound struct {
	kind boundKind
	val  int64
}

// Finite creates a finite bound.
func Finite(c int64) Bound { return Bound{kind: finite, val: c} }

// PlusInfinity is ∞.
func PlusInfinity() Bound { return Bound{kind: plusInf} }

// MinusInfinity is -∞.
func MinusInfinity() Bound { return Bound{kind: minusInf} }

// IsInfinite is true for ±∞.
func (b Bound) IsInfinite() bool { return b.kind != finite }

// Value returns the value of a finite bound and panics otherwise.
func (b Bound) Value() int64 {
	if b.IsInfinite() {
		panic(fmt.Sprintf("bound %s is not finite", b))
	}
	return b.val
}

// Cmp returns -1, 0 or 1 when b is respectively smaller than, equal to or
// greater than o, with -∞ < c < ∞ for every c ∈ ℤ.
func (b Bound) Cmp(o Bound) int {
	switch {
	case b.kind < o.kind:
		return -1
	case b.kind > o.kind:
		return 1
	case b.kind != finite || b.val == o.val:
		return 0
	case b.val < o.val:
		return -1
	}
	return 1
}

func (b Bound) Leq(o Bound) bool { return b.Cmp(o) <= 0 }
func (b Bound) Lt(o Bound) bool  { return b.Cmp(o) < 0 }

func (b Bound) Max(o Bound) Bound {
	if b.Lt(o) {
		return o
	}
	return b
}

func (b Bound) Min(o Bound) Bound {
	if o.Lt(b) {
		return o
	}
	return b
}

func (b Bound) Neg() Bound {
	switch b.kind {
	case plusInf:
		return MinusInfinity()
	case minusInf:
		return PlusInfinity()
	}
	return Finite(-b.val)
}

// Plus computes b + o. Finite sums saturate to ±∞ on overflow.
// ∞ + (-∞) is undefined and panics; interval arithmetic never requests it.
func (b Bound) Plus(o Bound) Bound {
	switch {
	case b.kind == finite && o.kind == finite:
		s := b.val + o.val
		switch {
		case b.val > 0 && o.val > 0 && s < 0:
			return PlusInfinity()
		case b.val < 0 && o.val < 0 && s >= 0:
			return MinusInfinity()
		}
		return Finite(s)
	case b.kind != finite && o.kind != finite && b.kind != o.kind:
		panic("∞ - ∞")
	case b.kind != finite:
		return b
	}
	return o
}

// Mult computes b * o, where 0 * ±∞ = 0. Finite products saturate.
func (b Bound) Mult(o Bound) Bound {
	sign := func(x Bound) int {
		switch {
		case x.kind == plusInf || x.kind == finite && x.val > 0:
			return 1
		case x.kind == minusInf || x.kind == finite && x.val < 0:
			return -1
		}
		return 0
	}

	s := sign(b) * sign(o)
	switch {
	case s == 0:
		return Finite(0)
	case b.IsInfinite() || o.IsInfinite():
		if s > 0 {
			return PlusInfinity()
		}
		return MinusInfinity()
	}

	p := b.val * o.val
	if p/o.val != b.val || (b.val == -1 && o.val == math.MinInt64) || (o.val == -1 && b.val == math.MinInt64) {
		if s > 0 {
			return PlusInfinity()
		}
		return MinusInfinity()
	}
	return Finite(p)
}

func (b Bound) String() string {
	switch b.kind {
	case plusInf:
		return "∞"
	case minusInf:
		return "-∞"
	}
	return strconv.FormatInt(b.val, 10)
}
