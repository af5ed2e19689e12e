package chain

import (
	"github.com/apex/log"

	"github.com/mpyw/reflectfold/internal/ir"
)

// Devirtualizer rewrites the chains of one method's graph into direct calls.
//
// For every root:
//
//	FORNAME ─┬─ CONSTRUCTOR ── NEWINSTANCE*   buildInstance: new C.<init>(args)
//	         └─ GETMETHOD ──── INVOKE*        buildInvoke:   obj.m(args)
//
// then the root's own bootstrap instruction is removed. Roots whose class
// did not resolve skip both rewrites.
type Devirtualizer struct {
	method   *ir.Method
	graph    *Graph
	strategy Strategy
	log      log.Interface
}

// NewDevirtualizer creates a Devirtualizer mutating method according to graph.
func NewDevirtualizer(method *ir.Method, graph *Graph, strategy Strategy, logger log.Interface) *Devirtualizer {
	if strategy == nil {
		strategy = FirstMatch{}
	}
	return &Devirtualizer{
		method:   method,
		graph:    graph,
		strategy: strategy,
		log:      logger,
	}
}

// Run rewrites every root and records what it did in res.
func (d *Devirtualizer) Run(res *Result) {
	for _, root := range d.graph.Roots() {
		if root.Resolved() {
			d.buildInstance(root, res)
			d.buildInvoke(root, res)
		} else {
			d.skip(res, root, "class not found")
		}
		if d.method.RemoveInsn(root.Insn) {
			res.Removed++
		}
	}
}

// buildInstance rewrites Constructor.newInstance calls under root into
// direct constructions.
func (d *Devirtualizer) buildInstance(root *Node, res *Result) {
	for _, ctorNode := range d.graph.Successors(root) {
		if ctorNode.Kind != KindConstructor {
			continue
		}
		succs := d.graph.Successors(ctorNode)
		for _, inst := range succs {
			if inst.Kind != KindNewInstance {
				continue
			}
			args := Normalize(KindNewInstance, inst.Args)
			ctor := d.strategy.Constructor(root.Class, args)
			if ctor == nil {
				d.skip(res, inst, "no constructor of "+root.Class.Name+" matches")
				continue
			}
			repl := ir.NewConstructor(ctor.Ref, inst.Result, args...)
			if !d.method.ReplaceInsn(inst.Insn, repl) {
				d.skip(res, inst, "instruction no longer in method")
				continue
			}
			res.Constructions++
			d.log.WithFields(log.Fields{
				"class": root.Class.Name,
				"arity": ctor.Ref.Arity(),
			}).Debug("rewrote newInstance")
		}
		if len(succs) > 0 && d.method.RemoveInsn(ctorNode.Insn) {
			res.Removed++
		}
		d.graph.Remove(ctorNode)
	}
}

// buildInvoke rewrites Method.invoke calls under root into direct virtual
// calls.
func (d *Devirtualizer) buildInvoke(root *Node, res *Result) {
	for _, getMethod := range d.graph.Successors(root) {
		if getMethod.Kind != KindGetMethod {
			continue
		}
		name, ok := methodName(getMethod)
		if !ok {
			d.skip(res, getMethod, "method name not constant")
			continue
		}
		for _, inv := range d.graph.Successors(getMethod) {
			if inv.Kind != KindInvoke {
				continue
			}
			args := Normalize(KindInvoke, inv.Args)
			if len(args) == 0 {
				d.skip(res, inv, "no receiver")
				continue
			}
			target := d.strategy.Method(root.Class, name, args)
			if target == nil {
				d.skip(res, inv, "no method "+root.Class.Name+"."+name+" matches")
				continue
			}
			repl := ir.NewInvoke(ir.InvokeVirtual, target.Ref, inv.Result, args...)
			if !d.method.ReplaceInsn(inv.Insn, repl) {
				d.skip(res, inv, "instruction no longer in method")
				continue
			}
			res.Invocations++
			d.log.WithFields(log.Fields{
				"target": target.FullName(),
				"arity":  target.Ref.Arity(),
			}).Debug("rewrote invoke")
		}
		if d.method.RemoveInsn(getMethod.Insn) {
			res.Removed++
		}
		d.graph.Remove(getMethod)
	}
}

// methodName returns the constant name operand of a getMethod node: its
// first operand that is not a register.
func methodName(n *Node) (string, bool) {
	for _, a := range n.Args {
		if _, ok := a.(*ir.RegisterArg); ok {
			continue
		}
		return ir.StringValue(a)
	}
	return "", false
}

func (d *Devirtualizer) skip(res *Result, n *Node, reason string) {
	res.Skips = append(res.Skips, Skip{
		Kind:   n.Kind,
		Insn:   ir.FormatInsn(n.Insn),
		Reason: reason,
	})
	d.log.WithFields(log.Fields{
		"node":   n.Kind.String(),
		"reason": reason,
	}).Debug("left unrewritten")
}
