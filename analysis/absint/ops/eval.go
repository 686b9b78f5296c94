package ops

import (
	"fmt"
	"go/token"

	"github.com/cs-au-dk/absum/analysis/cfg"
	L "github.com/cs-au-dk/absum/analysis/lattice"
	loc "github.com/cs-au-dk/absum/analysis/location"
)

// Eval computes the interval of an expression in the state.
func Eval(state L.AccessPathMap, e cfg.Expr) L.Interval {
	if state.IsBot() {
		return L.IntervalBot()
	}

	switch e := e.(type) {
	case cfg.Const:
		return L.Singleton(e.Value)
	case cfg.Range:
		return L.NewInterval(e.Low, e.High)
	case cfg.Ref:
		return state.Get(e.Path)
	case cfg.BinOp:
		x, y := Eval(state, e.X), Eval(state, e.Y)
		switch {
		case x.IsBot():
			return x
		case y.IsBot():
			return y
		}
		return x.Binary(e.Op, y)
	case cfg.Unknown, nil:
		return L.IntervalTop()
	default:
		panic(fmt.Sprintf("unsupported expression %T", e))
	}
}

// Store writes the value of src to dst. Everything reached through dst, or
// through a path that may alias it, is forgotten first. When src is a
// reference, the paths reached through it are copied below dst.
func Store(state L.AccessPathMap, dst loc.AccessPath, src cfg.Expr) L.AccessPathMap {
	if state.IsBot() {
		return state
	}

	v := Eval(state, src)

	var copied []loc.AccessPath
	var values []L.Interval
	if ref, ok := src.(cfg.Ref); ok {
		for _, p := range state.PathsWithPrefix(ref.Path) {
			if p != ref.Path {
				copied = append(copied, p.Rebase(ref.Path, dst))
				values = append(values, state.Get(p))
			}
		}
	}

	res := state.ForgetPrefix(dst).ForgetAliased(dst).Set(dst, v)
	for i, p := range copied {
		res = res.Set(p, values[i])
	}
	return res
}

// Refine restricts the state to executions where "p op c" holds. The result
// is ⊥ if no such execution exists.
func Refine(state L.AccessPathMap, p loc.AccessPath, op token.Token, c int64) L.AccessPathMap {
	if state.IsBot() {
		return state
	}
	return state.Set(p, state.Get(p).Restrict(op, c))
}
