package location

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/absum/utils"

	"github.com/fatih/color"
)

// colorize is used for pretty-printing.
var colorize = struct {
	Param  func(...interface{}) string
	Return func(...interface{}) string
	Static func(...interface{}) string
	Local  func(...interface{}) string
	Field  func(...interface{}) string
}{
	Param: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiGreen).SprintFunc())(is...)
	},
	Return: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiYellow).SprintFunc())(is...)
	},
	Static: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiBlue).SprintFunc())(is...)
	},
	Local: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiWhite).SprintFunc())(is...)
	},
	Field: func(is ...interface{}) string {
		return utils.CanColorize(color.New(color.FgHiCyan).SprintFunc())(is...)
	},
}

// BaseKind distinguishes the roots of access paths.
type BaseKind uint8

const (
	// Local bases are variables of the method being analyzed. They never
	// escape a summary.
	Local BaseKind = iota
	// Param bases denote the i'th formal parameter of a summarized method.
	Param
	// Return denotes the return value of a summarized method.
	Return
	// Static bases denote package-level variables, visible to every method.
	Static
)

func (k BaseKind) String() string {
	switch k {
	case Local:
		return "local"
	case Param:
		return "param"
	case Return:
		return "return"
	case Static:
		return "static"
	}
	return "BaseKind(" + strconv.Itoa(int(k)) + ")"
}

// AccessPathBase is the root of an access path. Parameter and return bases
// are synthetic: they only occur in summaries and are renamed whenever a
// summary crosses a procedure boundary.
type AccessPathBase struct {
	kind  BaseKind
	index int
	name  string
}

// ParamBase is the base for the i'th parameter.
func ParamBase(i int) AccessPathBase {
	if i < 0 {
		panic(fmt.Sprintf("negative parameter index %d", i))
	}
	return AccessPathBase{kind: Param, index: i}
}

// ReturnBase is the base for the return value.
func ReturnBase() AccessPathBase {
	return AccessPathBase{kind: Return}
}

// StaticBase is the base for the package-level variable with the given
// qualified name. Names may not contain '.', which separates fields.
func StaticBase(name string) AccessPathBase {
	if name == "" || strings.Contains(name, ".") {
		panic(fmt.Sprintf("invalid static name %q", name))
	}
	return AccessPathBase{kind: Static, name: name}
}

// LocalBase is the base for a local variable.
func LocalBase(name string) AccessPathBase {
	return AccessPathBase{kind: Local, name: name}
}

func (b AccessPathBase) Kind() BaseKind { return b.kind }

// Index of a parameter base. Meaningless for other kinds.
func (b AccessPathBase) Index() int { return b.index }

// Name of a static or local base.
func (b AccessPathBase) Name() string { return b.name }

func (b AccessPathBase) IsParam() bool  { return b.kind == Param }
func (b AccessPathBase) IsReturn() bool { return b.kind == Return }
func (b AccessPathBase) IsStatic() bool { return b.kind == Static }
func (b AccessPathBase) IsLocal() bool  { return b.kind == Local }

func (b AccessPathBase) Hash() uint32 {
	return utils.HashCombine(uint32(b.kind), uint32(b.index), utils.HashString(b.name))
}

func (b AccessPathBase) Equal(o AccessPathBase) bool {
	return b == o
}

// key is the uncoloured textual form, also accepted by Parse.
func (b AccessPathBase) key() string {
	switch b.kind {
	case Param:
		return "param#" + strconv.Itoa(b.index)
	case Return:
		return "return#"
	case Static:
		return "static:" + b.name
	}
	return b.name
}

func (b AccessPathBase) String() string {
	switch b.kind {
	case Param:
		return colorize.Param(b.key())
	case Return:
		return colorize.Return(b.key())
	case Static:
		return colorize.Static(b.key())
	}
	return colorize.Local(b.key())
}
