package ir

import (
	"strconv"
)

// Arg is an instruction operand: *RegisterArg, *LiteralArg or *WrapArg.
type Arg interface {
	String() string
	isArg()
}

var (
	_ Arg = (*RegisterArg)(nil)
	_ Arg = (*LiteralArg)(nil)
	_ Arg = (*WrapArg)(nil)
)

// RegisterArg references an SSA variable, either as a use or as a result slot.
type RegisterArg struct {
	Var *SSAVar
}

// Reg creates a register operand for v.
func Reg(v *SSAVar) *RegisterArg {
	return &RegisterArg{Var: v}
}

// Type returns the static type of the referenced variable.
func (r *RegisterArg) Type() string {
	if r.Var == nil {
		return ""
	}
	return r.Var.Type
}

func (r *RegisterArg) String() string {
	if r.Var == nil {
		return "r?"
	}
	return r.Var.Name
}

func (*RegisterArg) isArg() {}

// LiteralArg is an inline constant. String literals have Type TypeString and
// carry their value in Str; every other literal carries Value.
type LiteralArg struct {
	Type  string
	Value int64
	Str   string
}

// Lit creates an integer literal.
func Lit(v int64) *LiteralArg {
	return &LiteralArg{Type: TypeInt, Value: v}
}

// StrLit creates a string literal.
func StrLit(s string) *LiteralArg {
	return &LiteralArg{Type: TypeString, Str: s}
}

// IsString reports whether the literal is a string.
func (l *LiteralArg) IsString() bool {
	return l.Type == TypeString
}

func (l *LiteralArg) String() string {
	if l.IsString() {
		return strconv.Quote(l.Str)
	}
	return strconv.FormatInt(l.Value, 10)
}

func (*LiteralArg) isArg() {}

// WrapArg is an inlined sub-expression: an instruction that is not part of
// any block's stream but evaluated in place as an operand.
type WrapArg struct {
	Insn *Insn
}

// Wrap creates a wrapped operand for insn.
func Wrap(insn *Insn) *WrapArg {
	return &WrapArg{Insn: insn}
}

func (w *WrapArg) String() string {
	return "(" + formatInsnBody(w.Insn) + ")"
}

func (*WrapArg) isArg() {}

// ArgVar returns the SSA variable referenced by a register operand, or nil.
func ArgVar(a Arg) *SSAVar {
	if r, ok := a.(*RegisterArg); ok {
		return r.Var
	}
	return nil
}

// StringValue returns the constant string an operand denotes: either an
// inline string literal or a wrapped constant-string producer.
func StringValue(a Arg) (string, bool) {
	switch a := a.(type) {
	case *LiteralArg:
		if a.IsString() {
			return a.Str, true
		}
	case *WrapArg:
		return a.Insn.ConstString()
	}
	return "", false
}
