package location

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/cs-au-dk/absum/utils"
)

// AccessPath is a base followed by a (possibly empty) sequence of field
// selections, e.g. param#0.next.val. Access paths are comparable values.
type AccessPath struct {
	base AccessPathBase
	// Field names joined by '.'.
	fields string
}

// NewAccessPath constructs the access path base.f1.f2...
func NewAccessPath(base AccessPathBase, fields ...string) AccessPath {
	for _, f := range fields {
		if f == "" || strings.Contains(f, ".") {
			panic(fmt.Sprintf("invalid field name %q", f))
		}
	}
	return AccessPath{base, strings.Join(fields, ".")}
}

// ParamPath is short-hand for an access path rooted at the i'th parameter.
func ParamPath(i int, fields ...string) AccessPath {
	return NewAccessPath(ParamBase(i), fields...)
}

// ReturnPath is short-hand for an access path rooted at the return value.
func ReturnPath(fields ...string) AccessPath {
	return NewAccessPath(ReturnBase(), fields...)
}

// StaticPath is short-hand for an access path rooted at a package-level variable.
func StaticPath(name string, fields ...string) AccessPath {
	return NewAccessPath(StaticBase(name), fields...)
}

// LocalPath is short-hand for an access path rooted at a local variable.
func LocalPath(name string, fields ...string) AccessPath {
	return NewAccessPath(LocalBase(name), fields...)
}

func (p AccessPath) Base() AccessPathBase { return p.base }

// Fields returns the field selections of the path.
func (p AccessPath) Fields() []string {
	if p.fields == "" {
		return nil
	}
	return strings.Split(p.fields, ".")
}

// Depth is the number of field selections.
func (p AccessPath) Depth() int {
	if p.fields == "" {
		return 0
	}
	return strings.Count(p.fields, ".") + 1
}

// IsRoot reports whether the path has no field selections.
func (p AccessPath) IsRoot() bool {
	return p.fields == ""
}

// Field extends the path with a field selection.
func (p AccessPath) Field(f string) AccessPath {
	if f == "" || strings.Contains(f, ".") {
		panic(fmt.Sprintf("invalid field name %q", f))
	}
	if p.fields == "" {
		return AccessPath{p.base, f}
	}
	return AccessPath{p.base, p.fields + "." + f}
}

// Root drops all field selections.
func (p AccessPath) Root() AccessPath {
	return AccessPath{base: p.base}
}

// HasPrefix reports whether prefix is p itself or denotes a location that p
// is reached through.
func (p AccessPath) HasPrefix(prefix AccessPath) bool {
	if p.base != prefix.base {
		return false
	}
	switch {
	case prefix.fields == "":
		return true
	case p.fields == prefix.fields:
		return true
	default:
		return strings.HasPrefix(p.fields, prefix.fields+".")
	}
}

// RootedAt reports whether the base of the path is the given base.
func (p AccessPath) RootedAt(base AccessPathBase) bool {
	return p.base == base
}

// Rebase replaces the prefix of p by newPrefix. The path must have the prefix.
func (p AccessPath) Rebase(prefix, newPrefix AccessPath) AccessPath {
	if !p.HasPrefix(prefix) {
		panic(fmt.Sprintf("%s does not have prefix %s", p.key(), prefix.key()))
	}

	rest := strings.TrimPrefix(strings.TrimPrefix(p.fields, prefix.fields), ".")
	switch {
	case rest == "":
		return newPrefix
	case newPrefix.fields == "":
		return AccessPath{newPrefix.base, rest}
	default:
		return AccessPath{newPrefix.base, newPrefix.fields + "." + rest}
	}
}

func (p AccessPath) Hash() uint32 {
	return utils.HashCombine(p.base.Hash(), utils.HashString(p.fields))
}

func (p AccessPath) Equal(o AccessPath) bool {
	return p == o
}

func (p AccessPath) key() string {
	if p.fields == "" {
		return p.base.key()
	}
	return p.base.key() + "." + p.fields
}

// Key is the uncoloured textual form of the access path.
func (p AccessPath) Key() string {
	return p.key()
}

// Less orders access paths by their textual form.
func (p AccessPath) Less(o AccessPath) bool {
	return p.key() < o.key()
}

func (p AccessPath) String() string {
	var sb strings.Builder
	sb.WriteString(p.base.String())
	for _, f := range p.Fields() {
		sb.WriteString(".")
		sb.WriteString(colorize.Field(f))
	}
	return sb.String()
}

var ErrInvalidAccessPath = errors.New("invalid access path")

// Parse reads the uncoloured textual form of an access path:
//
//	param#<i>[.f...] | return#[.f...] | static:<name>[.f...] | <local>[.f...]
func Parse(s string) (AccessPath, error) {
	parts := strings.Split(s, ".")
	head, fields := parts[0], parts[1:]
	for _, f := range fields {
		if f == "" {
			return AccessPath{}, fmt.Errorf("%w: empty field in %q", ErrInvalidAccessPath, s)
		}
	}

	var base AccessPathBase
	switch {
	case head == "return#":
		base = ReturnBase()
	case strings.HasPrefix(head, "param#"):
		i, err := strconv.Atoi(strings.TrimPrefix(head, "param#"))
		if err != nil || i < 0 {
			return AccessPath{}, fmt.Errorf("%w: bad parameter index in %q", ErrInvalidAccessPath, s)
		}
		base = ParamBase(i)
	case strings.HasPrefix(head, "static:"):
		name := strings.TrimPrefix(head, "static:")
		if name == "" {
			return AccessPath{}, fmt.Errorf("%w: missing static name in %q", ErrInvalidAccessPath, s)
		}
		base = StaticBase(name)
	case head == "" || strings.ContainsAny(head, "#:"):
		return AccessPath{}, fmt.Errorf("%w: %q", ErrInvalidAccessPath, s)
	default:
		base = LocalBase(head)
	}

	return NewAccessPath(base, fields...), nil
}

// MustParse is like Parse but panics on malformed input.
func MustParse(s string) AccessPath {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}
