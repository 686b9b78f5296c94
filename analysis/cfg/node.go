package cfg

import (
	"strconv"

	"github.com/cs-au-dk/absum/utils"
)

// Node is a program point of a function body carrying one statement.
type Node struct {
	id    int
	fun   *Function
	stmt  Stmt
	succs []*Node
	preds []*Node
}

// ID is unique within the body of the function.
func (n *Node) ID() int { return n.id }

func (n *Node) Function() *Function { return n.fun }

func (n *Node) Stmt() Stmt { return n.stmt }

func (n *Node) Successors() []*Node { return n.succs }

func (n *Node) Predecessors() []*Node { return n.preds }

// Invoke returns the call site of the node, if it is one.
func (n *Node) Invoke() (*Invoke, bool) {
	inv, ok := n.stmt.(*Invoke)
	return inv, ok
}

// Label identifies the node within the program.
func (n *Node) Label() string {
	return n.fun.name + ":" + strconv.Itoa(n.id)
}

func (n *Node) String() string {
	return utils.NodeString(n.fun.name, n.id, n.stmt.String())
}
