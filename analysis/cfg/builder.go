package cfg

import (
	"go/token"

	loc "github.com/cs-au-dk/absum/analysis/location"
)

// Builder constructs structured function bodies. Statements are appended to
// every open end of the body built so far.
type Builder struct {
	g     *Graph
	tails []*Node
	last  *Node
}

// NewBuilder starts a body for the function.
func NewBuilder(fun *Function) *Builder {
	g := NewGraph(fun)
	return &Builder{g: g, tails: []*Node{g.entry}}
}

func (b *Builder) add(s Stmt) *Builder {
	n := b.g.AddNode(s)
	for _, t := range b.tails {
		b.g.AddEdge(t, n)
	}
	b.tails = []*Node{n}
	b.last = n
	return b
}

// Last returns the most recently added node.
func (b *Builder) Last() *Node { return b.last }

func (b *Builder) Assign(dst loc.AccessPath, src Expr) *Builder {
	return b.add(Assign{dst, src})
}

func (b *Builder) Havoc(dst loc.AccessPath) *Builder {
	return b.add(Havoc{dst})
}

func (b *Builder) Assume(p loc.AccessPath, op token.Token, c int64) *Builder {
	return b.add(Assume{p, op, c})
}

func (b *Builder) Assert(p loc.AccessPath, op token.Token, c int64) *Builder {
	return b.add(Assert{Path: p, Op: op, Const: c})
}

// Call appends a call site. dst may be nil.
func (b *Builder) Call(callee string, dst *loc.AccessPath, args ...Expr) *Builder {
	return b.add(NewInvoke(callee, args, dst))
}

// Return appends a return statement. The body has no open ends afterwards.
func (b *Builder) Return(value Expr) *Builder {
	b.add(Return{value})
	b.g.AddEdge(b.last, b.g.exit)
	b.tails = nil
	return b
}

func (b *Builder) fork() *Builder {
	return &Builder{g: b.g, tails: append([]*Node(nil), b.tails...)}
}

// Branch builds two alternatives starting from the current open ends. The
// open ends of both alternatives are joined afterwards.
func (b *Builder) Branch(then, els func(*Builder)) *Builder {
	tb, eb := b.fork(), b.fork()
	if then != nil {
		then(tb)
	}
	if els != nil {
		els(eb)
	}

	b.tails = append(tb.tails, eb.tails...)
	return b.add(Nop{})
}

// Loop builds a loop whose head is a fresh join node. The body starts and
// ends at the head; the loop is left from the head.
func (b *Builder) Loop(body func(*Builder)) *Builder {
	b.add(Nop{})
	head := b.last

	bb := b.fork()
	body(bb)
	for _, t := range bb.tails {
		b.g.AddEdge(t, head)
	}

	b.tails = []*Node{head}
	b.last = head
	return b
}

// Build connects the open ends to the exit and seals the body.
func (b *Builder) Build() *Graph {
	for _, t := range b.tails {
		b.g.AddEdge(t, b.g.exit)
	}
	b.tails = nil
	return b.g.Seal()
}
