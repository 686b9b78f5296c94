package cfg

import (
	"errors"

	"github.com/cs-au-dk/absum/utils"
)

// ErrNoBody is returned when a body is requested for a method without one.
var ErrNoBody = errors.New("method has no body")

// Function is a unit of analysis. Functions are identified by pointer
// identity. Formal parameters are referred to as param#i inside the body.
type Function struct {
	name   string
	params []string
	body   *Graph
}

// NewFunction creates a bodiless function with the given parameter names.
func NewFunction(name string, params ...string) *Function {
	return &Function{name: name, params: params}
}

func (f *Function) Name() string { return f.name }

// Params returns the names of the formal parameters.
func (f *Function) Params() []string { return f.params }

func (f *Function) NumParams() int { return len(f.params) }

// Body returns the control-flow graph of the function, or nil for external
// functions.
func (f *Function) Body() *Graph { return f.body }

func (f *Function) HasBody() bool { return f.body != nil }

func (f *Function) String() string {
	return utils.FunString(f.name)
}
