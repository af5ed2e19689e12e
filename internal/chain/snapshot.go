package chain

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// Snapshot is an immutable copy of a graph's reachable nodes, taken for
// debug output. It holds no references into the method.
type Snapshot struct {
	Method string
	Nodes  []SnapshotNode // Depth-first, roots in insertion order
}

// SnapshotNode is one node of a Snapshot.
type SnapshotNode struct {
	ID       NodeID
	Parent   NodeID // NoNode for roots
	Depth    int
	Kind     Kind
	Insn     string // Text form of the source instruction
	Class    string // Roots only
	Resolved bool   // Roots only
	Wrapped  bool   // Linked through a wrapped operand
}

// Snapshot copies the reachable part of the graph.
func (g *Graph) Snapshot(method string) *Snapshot {
	s := &Snapshot{Method: method}
	g.Walk(func(n *Node, depth int) {
		s.Nodes = append(s.Nodes, SnapshotNode{
			ID:       n.id,
			Parent:   n.parent,
			Depth:    depth,
			Kind:     n.Kind,
			Insn:     ir.FormatInsn(n.Insn),
			Class:    n.ClassName,
			Resolved: n.Resolved(),
			Wrapped:  n.Wrapped(),
		})
	})
	return s
}

// Roots returns the number of roots in the snapshot.
func (s *Snapshot) Roots() int {
	count := 0
	for _, n := range s.Nodes {
		if n.Parent == NoNode {
			count++
		}
	}
	return count
}
