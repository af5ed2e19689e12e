package chain

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// NodeID identifies a node within one Graph's arena.
type NodeID int

// NoNode is the ID of a node that has not been inserted into a graph.
const NoNode NodeID = -1

// Node is a classified reflective call.
//
// Nodes are created by the Matcher with ID NoNode and receive their ID on
// insertion. A node belongs to at most one graph.
type Node struct {
	Kind   Kind
	Insn   *ir.Insn          // Source instruction (top-level or wrapped)
	Args   []ir.Arg          // Operands, minus wrapped handle producers
	Result *ir.RegisterArg   // Result slot of Insn, nil if discarded

	// Root-only fields.
	ClassName string    // Statically known class name
	Class     *ir.Class // Resolved class, nil if the program does not define it

	id     NodeID
	parent NodeID
	succs  []NodeID

	// producer is the node for a handle-producing call wrapped directly in
	// this node's operands. Such a node is linked to its producer instead of
	// being looked up by def/use.
	producer *Node
}

func newNode(kind Kind, insn *ir.Insn, args []ir.Arg) *Node {
	return &Node{
		Kind:   kind,
		Insn:   insn,
		Args:   args,
		Result: insn.Result,
		id:     NoNode,
		parent: NoNode,
	}
}

// ID returns the node's arena index, or NoNode before insertion.
func (n *Node) ID() NodeID { return n.id }

// IsRoot reports whether the node starts a chain.
func (n *Node) IsRoot() bool { return n.Kind == KindForName }

// Resolved reports whether a root's class was found in the program.
func (n *Node) Resolved() bool { return n.Class != nil }

// Wrapped reports whether the node is linked to a producer wrapped in its
// own operands rather than through a register.
func (n *Node) Wrapped() bool { return n.producer != nil }

// ResultVar returns the SSA variable the node defines, or nil.
func (n *Node) ResultVar() *ir.SSAVar {
	if n.Result == nil {
		return nil
	}
	return n.Result.Var
}

// LinkVar returns the SSA variable of the node's first operand: the value
// its parent must define. Nil when the first operand is not a register.
func (n *Node) LinkVar() *ir.SSAVar {
	return ir.ArgVar(argAt(n.Args, 0))
}

func argAt(args []ir.Arg, i int) ir.Arg {
	if i < 0 || i >= len(args) {
		return nil
	}
	return args[i]
}
