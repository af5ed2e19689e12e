package chain

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// ClassResolver looks classes up by fully-qualified name.
// *ir.Program implements it.
type ClassResolver interface {
	ResolveClass(name string) *ir.Class
}

// Matcher classifies instructions into reflective chain nodes.
//
// A wrapped handle producer (forName, getConstructor, getMethod, getField)
// never stays an operand of the node containing it. A wrapped newInstance or
// invoke does, so that rewriting the outer call keeps it, unless
// DropWrappedValues is set.
type Matcher struct {
	Resolver          ClassResolver
	DropWrappedValues bool
}

// NewMatcher creates a Matcher resolving FORNAME targets through r.
func NewMatcher(r ClassResolver) *Matcher {
	return &Matcher{Resolver: r}
}

// Classify appends to acc a node for insn and for every reflective call
// wrapped in its operands, in evaluation order: wrapped calls come before
// the call that contains them.
//
// Returns true if at least one node was appended. Instructions that are not
// recognized reflective calls are only scanned for wrapped calls.
func (m *Matcher) Classify(insn *ir.Insn, acc *[]*Node) bool {
	_, ok := m.classify(insn, acc)
	return ok
}

// classify returns the node built for insn itself (nil if insn is not a
// reflective call) and whether anything was appended to acc.
func (m *Matcher) classify(insn *ir.Insn, acc *[]*Node) (*Node, bool) {
	kind, ok := kindOf(insn)
	if !ok {
		return nil, m.scanWrapped(insn, acc)
	}

	if kind == KindForName {
		name, ok := ir.StringValue(insn.Arg(0))
		if !ok {
			return nil, m.scanWrapped(insn, acc)
		}
		n := newNode(KindForName, insn, insn.Args)
		n.ClassName = name
		if m.Resolver != nil {
			n.Class = m.Resolver.ResolveClass(name)
		}
		*acc = append(*acc, n)
		return n, true
	}

	var (
		args     []ir.Arg
		producer *Node
	)
	for _, a := range insn.Args {
		w, ok := a.(*ir.WrapArg)
		if !ok {
			args = append(args, a)
			continue
		}
		sub, _ := m.classify(w.Insn, acc)
		if sub == nil {
			args = append(args, a)
			continue
		}
		if !sub.Kind.IsHandle() {
			if !m.DropWrappedValues {
				args = append(args, a)
			}
			continue
		}
		if producer == nil {
			producer = sub
		}
	}

	n := newNode(kind, insn, args)
	n.producer = producer
	*acc = append(*acc, n)
	return n, true
}

// scanWrapped classifies the reflective calls wrapped in insn's operands.
func (m *Matcher) scanWrapped(insn *ir.Insn, acc *[]*Node) bool {
	found := false
	for _, a := range insn.Args {
		if w, ok := a.(*ir.WrapArg); ok {
			if _, ok := m.classify(w.Insn, acc); ok {
				found = true
			}
		}
	}
	return found
}
