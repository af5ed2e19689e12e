// Package chain recognizes reflective call chains in a method body and
// rewrites them into direct calls.
//
// # Overview
//
// A reflective chain is a producer/consumer sequence of reflection API calls
// linked by SSA def/use:
//
//	┌───────────────────────────────────────────────────────────────────────┐
//	│  r0 = Class.forName("pkg.A")           FORNAME      (root)            │
//	│        │                                                              │
//	│        ├── r1 = r0.getConstructor(..)  CONSTRUCTOR                    │
//	│        │     └── r2 = r1.newInstance(..)      NEWINSTANCE ─▶ new A(..)│
//	│        │                                                              │
//	│        ├── r3 = r0.getMethod("run", ..)  GETMETHOD                    │
//	│        │     └── r4 = r3.invoke(obj, ..)      INVOKE ─▶ obj.run(..)   │
//	│        │                                                              │
//	│        └── r5 = r0.getField("f")       GETFIELD     (never rewritten) │
//	└───────────────────────────────────────────────────────────────────────┘
//
// # Pipeline
//
// The Analyzer drives one method at a time:
//
//  1. Matcher classifies every top-level instruction (and the reflective
//     calls wrapped in its operands) into Nodes.
//  2. Graph links the nodes into a forest, one tree per FORNAME root.
//  3. If Graph.ShouldOptimize, the Devirtualizer rewrites invocation sites
//     through a Strategy and removes the bootstrap instructions.
//  4. The graph is dropped.
//
// Nothing in this package outlives a single Analyzer.Analyze call, so
// distinct methods can be analyzed concurrently.
package chain

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// Kind is the reflective operation a node stands for.
type Kind int

const (
	// KindForName is Class.forName(String): the root of a chain.
	KindForName Kind = iota
	// KindConstructor is Class.getConstructor(Class[]).
	KindConstructor
	// KindGetMethod is Class.getMethod(String, Class[]).
	KindGetMethod
	// KindGetField is Class.getField(String).
	KindGetField
	// KindNewInstance is Constructor.newInstance(Object[]).
	KindNewInstance
	// KindInvoke is Method.invoke(Object, Object[]).
	KindInvoke
)

var kindNames = [...]string{
	KindForName:     "FORNAME",
	KindConstructor: "CONSTRUCTOR",
	KindGetMethod:   "GETMETHOD",
	KindGetField:    "GETFIELD",
	KindNewInstance: "NEWINSTANCE",
	KindInvoke:      "INVOKE",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "UNKNOWN"
}

// IsInvocation reports whether the kind is a call through a handle,
// i.e. the site a chain rewrite produces a direct call for.
func (k Kind) IsInvocation() bool {
	return k == KindNewInstance || k == KindInvoke
}

// IsHandle reports whether nodes of this kind produce a reflection object
// (class, constructor, method or field) rather than an application value.
func (k Kind) IsHandle() bool {
	switch k {
	case KindForName, KindConstructor, KindGetMethod, KindGetField:
		return true
	}
	return false
}

// HandleType returns the static type of the handle an invocation node
// is called through, or "" for other kinds.
func (k Kind) HandleType() string {
	switch k {
	case KindNewInstance:
		return ir.TypeConstructor
	case KindInvoke:
		return ir.TypeMethod
	}
	return ""
}

// =============================================================================
// Recognized Signatures
// =============================================================================

// signature is one recognized reflection API member.
type signature struct {
	member string
	arity  int
	kind   Kind
}

// signatures lists the recognized members by fully-qualified name and
// declared arity. Arity excludes the receiver.
var signatures = []signature{
	{"java.lang.Class.forName", 1, KindForName},
	{"java.lang.Class.getConstructor", 1, KindConstructor},
	{"java.lang.Class.getMethod", 2, KindGetMethod},
	{"java.lang.Class.getField", 1, KindGetField},
	{"java.lang.reflect.Constructor.newInstance", 1, KindNewInstance},
	{"java.lang.reflect.Method.invoke", 2, KindInvoke},
}

// kindOf classifies an instruction by its callee.
// Returns false for anything but a recognized invoke.
func kindOf(insn *ir.Insn) (Kind, bool) {
	if insn.Type != ir.InsnInvoke {
		return 0, false
	}
	for _, sig := range signatures {
		if insn.IsInvokeOf(sig.member, sig.arity) {
			return sig.kind, true
		}
	}
	return 0, false
}
