package chain

import (
	"golang.org/x/tools/container/intsets"

	"github.com/mpyw/reflectfold/internal/ir"
)

// Graph is the forest of reflective chains found in one method.
//
// # Structure
//
//	┌──────────────────────────────────────────────────────────────────┐
//	│  nodes  []*Node              arena, indexed by NodeID            │
//	│  roots  []NodeID             FORNAME nodes, in insertion order   │
//	│  set    intsets.Sparse       attached non-root nodes             │
//	│  byVar  map[*SSAVar]NodeID   result variable → attached node     │
//	└──────────────────────────────────────────────────────────────────┘
//
// A non-root node is attached to the node defining the SSA variable of its
// first operand. Because every SSA variable has exactly one definition,
// the byVar index finds the same parent a search over all trees would.
//
// A Graph is built, consulted and dropped within one method visit.
type Graph struct {
	nodes []*Node
	roots []NodeID
	set   intsets.Sparse
	byVar map[*ir.SSAVar]NodeID
}

// NewGraph creates an empty Graph.
func NewGraph() *Graph {
	return &Graph{byVar: make(map[*ir.SSAVar]NodeID)}
}

// =============================================================================
// Insertion
// =============================================================================

// Insert adds n to the graph.
//
// FORNAME nodes become roots. Any other node is appended as a successor of
// its parent: its wrapped producer if it has one, otherwise the attached node
// whose result variable is n's first operand. Returns false, leaving the
// graph unchanged, when no parent is attached.
func (g *Graph) Insert(n *Node) bool {
	if n == nil || n.id != NoNode {
		return false
	}
	if n.IsRoot() {
		g.add(n)
		g.roots = append(g.roots, n.id)
		return true
	}
	parent := g.findParent(n)
	if parent == nil {
		return false
	}
	g.add(n)
	g.link(parent, n)
	return true
}

// InsertChain inserts a producer→consumer sequence discovered inside one
// instruction. The head goes through Insert; each later entry is linked to
// the entry before it. If the head cannot be inserted, nothing is.
func (g *Graph) InsertChain(chain []*Node) bool {
	if len(chain) == 0 || !g.Insert(chain[0]) {
		return false
	}
	for i := 1; i < len(chain); i++ {
		n := chain[i]
		if n.id != NoNode || n.IsRoot() {
			continue
		}
		g.add(n)
		g.link(chain[i-1], n)
	}
	return true
}

func (g *Graph) add(n *Node) {
	n.id = NodeID(len(g.nodes))
	g.nodes = append(g.nodes, n)
	if v := n.ResultVar(); v != nil {
		g.byVar[v] = n.id
	}
}

func (g *Graph) link(parent, child *Node) {
	child.parent = parent.id
	parent.succs = append(parent.succs, child.id)
	g.set.Insert(int(child.id))
}

func (g *Graph) findParent(n *Node) *Node {
	if n.producer != nil {
		if g.attached(n.producer) {
			return n.producer
		}
		return nil
	}
	v := n.LinkVar()
	if v == nil {
		return nil
	}
	id, ok := g.byVar[v]
	if !ok {
		return nil
	}
	return g.nodes[id]
}

// attached reports whether n is a root or reachable from one.
// Roots are never removed.
func (g *Graph) attached(n *Node) bool {
	for cur := n; ; cur = g.nodes[cur.parent] {
		if cur.id == NoNode || int(cur.id) >= len(g.nodes) || g.nodes[cur.id] != cur {
			return false
		}
		if cur.IsRoot() {
			return true
		}
		if !g.set.Has(int(cur.id)) || cur.parent == NoNode {
			return false
		}
	}
}

// =============================================================================
// Removal
// =============================================================================

// Remove detaches n from the node set and from its parent.
// Its descendants stay linked to n and become unreachable.
func (g *Graph) Remove(n *Node) {
	if n == nil || n.id == NoNode || n.IsRoot() || !g.set.Has(int(n.id)) {
		return
	}
	g.set.Remove(int(n.id))
	if n.parent != NoNode {
		p := g.nodes[n.parent]
		for i, id := range p.succs {
			if id == n.id {
				p.succs = append(p.succs[:i:i], p.succs[i+1:]...)
				break
			}
		}
	}
	g.unindex(n)
}

// unindex drops the result variables of n's subtree from the parent index,
// so later insertions cannot attach below an unreachable node.
func (g *Graph) unindex(n *Node) {
	if v := n.ResultVar(); v != nil && g.byVar[v] == n.id {
		delete(g.byVar, v)
	}
	for _, id := range n.succs {
		g.unindex(g.nodes[id])
	}
}

// =============================================================================
// Queries
// =============================================================================

// ShouldOptimize reports whether the method is worth rewriting: at least one
// root exists and at least one attached node is a Method.invoke call.
// Chains ending in newInstance alone are left untouched.
func (g *Graph) ShouldOptimize() bool {
	if len(g.roots) == 0 {
		return false
	}
	for _, id := range g.set.AppendTo(nil) {
		if g.nodes[id].Kind == KindInvoke {
			return true
		}
	}
	return false
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Roots returns the roots in insertion order.
func (g *Graph) Roots() []*Node {
	roots := make([]*Node, len(g.roots))
	for i, id := range g.roots {
		roots[i] = g.nodes[id]
	}
	return roots
}

// Successors returns a copy of n's successors in insertion order.
func (g *Graph) Successors(n *Node) []*Node {
	succs := make([]*Node, len(n.succs))
	for i, id := range n.succs {
		succs[i] = g.nodes[id]
	}
	return succs
}

// Parent returns the node n is attached to, or nil for roots.
func (g *Graph) Parent(n *Node) *Node {
	if n.parent == NoNode {
		return nil
	}
	return g.nodes[n.parent]
}

// Len returns the number of attached non-root nodes.
func (g *Graph) Len() int {
	return g.set.Len()
}

// Contains reports whether n is an attached non-root node.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && n.id != NoNode && g.set.Has(int(n.id))
}

// Walk visits every root and its reachable descendants depth-first,
// in insertion order. depth is 0 for roots.
func (g *Graph) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, id := range n.succs {
			visit(g.nodes[id], depth+1)
		}
	}
	for _, id := range g.roots {
		visit(g.nodes[id], 0)
	}
}
