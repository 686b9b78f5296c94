package cfg

import (
	"fmt"
	"go/token"
	"strconv"

	loc "github.com/cs-au-dk/absum/analysis/location"
)

// Expr is a side-effect free expression over access paths.
type Expr interface {
	isExpr()
	String() string
}

type (
	// Const is an integer literal.
	Const struct{ Value int64 }
	// Range is a non-deterministic integer in [Low, High].
	Range struct{ Low, High int64 }
	// Ref reads the value stored at an access path.
	Ref struct{ Path loc.AccessPath }
	// BinOp is an arithmetic operation.
	BinOp struct {
		Op   token.Token
		X, Y Expr
	}
	// Unknown is any value.
	Unknown struct{}
)

func (Const) isExpr()   {}
func (Range) isExpr()   {}
func (Ref) isExpr()     {}
func (BinOp) isExpr()   {}
func (Unknown) isExpr() {}

func (e Const) String() string { return strconv.FormatInt(e.Value, 10) }
func (e Range) String() string { return fmt.Sprintf("rand[%d, %d]", e.Low, e.High) }
func (e Ref) String() string   { return e.Path.String() }
func (e BinOp) String() string {
	return "(" + e.X.String() + " " + e.Op.String() + " " + e.Y.String() + ")"
}
func (Unknown) String() string { return "?" }

// Path is short-hand for a reference to the access path.
func Path(p loc.AccessPath) Expr { return Ref{p} }

// Paths returns the access paths read by the expression.
func Paths(e Expr) (res []loc.AccessPath) {
	switch e := e.(type) {
	case Ref:
		res = append(res, e.Path)
	case BinOp:
		res = append(Paths(e.X), Paths(e.Y)...)
	}
	return
}
