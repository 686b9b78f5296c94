package cfg

import (
	"fmt"
	"go/token"
	"strings"

	loc "github.com/cs-au-dk/absum/analysis/location"
)

// Stmt is the statement carried by a control-flow node.
type Stmt interface {
	isStmt()
	String() string
}

type (
	// Nop does nothing. Entry, exit and join points carry it.
	Nop struct{}
	// Assign stores the value of Src at Dst.
	Assign struct {
		Dst loc.AccessPath
		Src Expr
	}
	// Havoc forgets everything known about Dst and the paths reached through it.
	Havoc struct {
		Dst loc.AccessPath
	}
	// Assume restricts execution to states where "Path Op Const" holds.
	Assume struct {
		Path  loc.AccessPath
		Op    token.Token
		Const int64
	}
	// Assert is a check reported by the assertion checker.
	Assert struct {
		Path  loc.AccessPath
		Op    token.Token
		Const int64
		// Source position, if any.
		Pos string
	}
	// Return stores its value, if any, at return# and transfers control to
	// the exit node.
	Return struct {
		Value Expr
	}
)

func (Nop) isStmt()     {}
func (Assign) isStmt()  {}
func (Havoc) isStmt()   {}
func (Assume) isStmt()  {}
func (Assert) isStmt()  {}
func (Return) isStmt()  {}
func (*Invoke) isStmt() {}

func (Nop) String() string      { return "nop" }
func (s Assign) String() string { return s.Dst.String() + " := " + s.Src.String() }
func (s Havoc) String() string  { return "havoc " + s.Dst.String() }
func (s Assume) String() string {
	return fmt.Sprintf("assume %s %s %d", s.Path, s.Op, s.Const)
}
func (s Assert) String() string {
	return fmt.Sprintf("assert %s %s %d", s.Path, s.Op, s.Const)
}
func (s Return) String() string {
	if s.Value == nil {
		return "return"
	}
	return "return " + s.Value.String()
}

// Invoke is a call site. The callee is a method reference that is resolved
// against the program when the call is analyzed.
type Invoke struct {
	callee string
	args   []Expr
	dst    *loc.AccessPath
}

// NewInvoke creates a call site. dst may be nil when the result is unused.
func NewInvoke(callee string, args []Expr, dst *loc.AccessPath) *Invoke {
	return &Invoke{callee, append([]Expr(nil), args...), dst}
}

// Callee is the name of the method being called.
func (i *Invoke) Callee() string { return i.callee }

// Args returns the actual argument expressions.
func (i *Invoke) Args() []Expr { return i.args }

// Dst returns the access path receiving the result.
func (i *Invoke) Dst() (loc.AccessPath, bool) {
	if i.dst == nil {
		return loc.AccessPath{}, false
	}
	return *i.dst, true
}

// ArgPath returns the access path of the i'th actual argument if it is a
// plain reference.
func (i *Invoke) ArgPath(idx int) (loc.AccessPath, bool) {
	if ref, ok := i.args[idx].(Ref); ok {
		return ref.Path, true
	}
	return loc.AccessPath{}, false
}

func (i *Invoke) String() string {
	args := make([]string, len(i.args))
	for j, a := range i.args {
		args[j] = a.String()
	}
	call := "call " + i.callee + "(" + strings.Join(args, ", ") + ")"
	if i.dst != nil {
		return i.dst.String() + " := " + call
	}
	return call
}

// written returns the access path a statement writes to, if any.
func written(s Stmt) (loc.AccessPath, bool) {
	switch s := s.(type) {
	case Assign:
		return s.Dst, true
	case Havoc:
		return s.Dst, true
	case *Invoke:
		return s.Dst()
	}
	return loc.AccessPath{}, false
}
