// Package ir provides the SSA instruction model consumed by reflectfold.
//
// # Overview
//
// The model mirrors what a bytecode decompiler hands to its passes after SSA
// construction: a Program of Classes, each Class declaring Methods, each
// Method with a body made of BasicBlocks holding Insns.
//
//	┌──────────────────────────────────────────────────────────────────────┐
//	│  Program ──▶ Class ──▶ Method ──▶ BasicBlock ──▶ Insn                │
//	│                                                   │                  │
//	│                                                   ├── Args []Arg     │
//	│                                                   │    ├ *RegisterArg│
//	│                                                   │    ├ *LiteralArg │
//	│                                                   │    └ *WrapArg    │
//	│                                                   └── Result         │
//	│                                                        *RegisterArg  │
//	└──────────────────────────────────────────────────────────────────────┘
//
// # Identity
//
// Instructions and SSA variables are compared by pointer identity, never by
// value. Two textually identical instructions at different positions are
// different instructions; replacement and removal act on one occurrence.
//
// # Text Form
//
// Programs can be parsed from and printed to a line-oriented text format
// (see Parse and Format). The format exists so passes can be driven and
// tested without a host decompiler.
package ir

import (
	"strings"
)

// Well-known type names used by the reflection pass.
const (
	TypeString      = "java.lang.String"
	TypeObject      = "java.lang.Object"
	TypeClass       = "java.lang.Class"
	TypeConstructor = "java.lang.reflect.Constructor"
	TypeMethod      = "java.lang.reflect.Method"
	TypeField       = "java.lang.reflect.Field"
	TypeInt         = "int"
	TypeVoid        = "void"

	// ConstructorName is the name every constructor is declared with.
	ConstructorName = "<init>"
)

// =============================================================================
// Method References
// =============================================================================

// MethodRef identifies a method by owner class, name and declared signature.
type MethodRef struct {
	Owner  string   // Fully-qualified owner class name
	Name   string   // Simple method name, "<init>" for constructors
	Params []string // Declared parameter types
	Return string   // Declared return type, empty when unknown
}

// FullName returns the fully-qualified member name, e.g. "java.lang.Class.forName".
func (r MethodRef) FullName() string {
	return r.Owner + "." + r.Name
}

// Arity returns the declared parameter count.
func (r MethodRef) Arity() int {
	return len(r.Params)
}

// IsConstructor reports whether the reference names a constructor.
func (r MethodRef) IsConstructor() bool {
	return r.Name == ConstructorName
}

// String returns the reference as written in the text form.
func (r MethodRef) String() string {
	return r.FullName() + "(" + strings.Join(r.Params, ", ") + ")"
}

// =============================================================================
// Program Structure
// =============================================================================

// Program is a set of classes indexed by fully-qualified name.
//
// The class table is read-only while passes run, so it can be shared by
// concurrent method visits.
type Program struct {
	Classes []*Class
	byName  map[string]*Class

	// Directives holds file-level comment directives (before the first class).
	Directives []string
}

// NewProgram creates an empty Program.
func NewProgram() *Program {
	return &Program{byName: make(map[string]*Class)}
}

// AddClass appends a class and indexes it by name.
// A later class with the same name shadows the earlier one for resolution.
func (p *Program) AddClass(c *Class) {
	if p.byName == nil {
		p.byName = make(map[string]*Class)
	}
	p.Classes = append(p.Classes, c)
	p.byName[c.Name] = c
}

// ResolveClass looks up a class by its original fully-qualified name.
// Returns nil when the program does not define the class.
func (p *Program) ResolveClass(name string) *Class {
	if p == nil {
		return nil
	}
	return p.byName[name]
}

// Methods returns every method with a body, in declaration order.
func (p *Program) Methods() []*Method {
	var methods []*Method
	for _, c := range p.Classes {
		for _, m := range c.Methods {
			if m.HasBody() {
				methods = append(methods, m)
			}
		}
	}
	return methods
}

// Class is a class definition with its declared members.
type Class struct {
	Name    string
	Super   string
	Methods []*Method
}

// AddMethod declares a method on the class.
func (c *Class) AddMethod(m *Method) {
	m.Class = c
	m.Ref.Owner = c.Name
	c.Methods = append(c.Methods, m)
}

// Constructors returns the declared constructors in declaration order.
func (c *Class) Constructors() []*Method {
	var ctors []*Method
	for _, m := range c.Methods {
		if m.IsConstructor() {
			ctors = append(ctors, m)
		}
	}
	return ctors
}

// =============================================================================
// Method and Blocks
// =============================================================================

// Method is a declared method, optionally with an SSA body.
type Method struct {
	Class  *Class
	Ref    MethodRef
	Params []*SSAVar // Registers holding "this" and the arguments on entry
	Blocks []*BasicBlock

	// Directives holds comment directives attached to the method header.
	Directives []string

	vars   []*SSAVar
	byName map[string]*SSAVar
	body   bool
}

// NewMethod creates a method declaration without a body.
func NewMethod(name string, params []string, ret string) *Method {
	return &Method{
		Ref: MethodRef{Name: name, Params: params, Return: ret},
	}
}

// FullName returns the fully-qualified method name.
func (m *Method) FullName() string {
	return m.Ref.FullName()
}

// IsConstructor reports whether the method is a constructor.
func (m *Method) IsConstructor() bool {
	return m.Ref.IsConstructor()
}

// HasBody reports whether the method has an instruction stream.
func (m *Method) HasBody() bool {
	return m.body
}

// AddBlock appends a new basic block to the method body.
func (m *Method) AddBlock() *BasicBlock {
	m.body = true
	b := &BasicBlock{ID: len(m.Blocks), method: m}
	m.Blocks = append(m.Blocks, b)
	return b
}

// Var returns the SSA variable with the given name, creating it on first use.
// Names are unique per method; the text form uses "r<N>".
func (m *Method) Var(name string) *SSAVar {
	if m.byName == nil {
		m.byName = make(map[string]*SSAVar)
	}
	if v, ok := m.byName[name]; ok {
		return v
	}
	v := &SSAVar{ID: len(m.vars), Name: name}
	m.vars = append(m.vars, v)
	m.byName[name] = v
	return v
}

// Vars returns all SSA variables known to the method.
func (m *Method) Vars() []*SSAVar {
	return m.vars
}

// BasicBlock is a straight-line sequence of instructions.
type BasicBlock struct {
	ID    int
	Succs []*BasicBlock
	Insns []*Insn

	method *Method
}

// Method returns the method the block belongs to.
func (b *BasicBlock) Method() *Method {
	return b.method
}

// Append adds an instruction at the end of the block.
func (b *BasicBlock) Append(insn *Insn) {
	b.Insns = append(b.Insns, insn)
}

// =============================================================================
// SSA Variables
// =============================================================================

// SSAVar is the unique definition identity of a value within a method.
type SSAVar struct {
	ID   int    // Dense per-method index
	Name string // Register name, e.g. "r3"
	Type string // Static type of the defined value, empty when unknown
}

func (v *SSAVar) String() string { return v.Name }
