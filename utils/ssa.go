package utils

import (
	"go/types"
)

// IsIntegral reports whether values of the type are integers (possibly behind
// a named type).
func IsIntegral(typ types.Type) bool {
	basic, ok := typ.Underlying().(*types.Basic)
	return ok && basic.Info()&types.IsInteger != 0
}

// IsStructPointer reports whether the type is a pointer to a struct, which is
// the only kind of pointer whose fields are tracked by access paths.
func IsStructPointer(typ types.Type) bool {
	ptr, ok := typ.Underlying().(*types.Pointer)
	if !ok {
		return false
	}
	_, ok = ptr.Elem().Underlying().(*types.Struct)
	return ok
}
