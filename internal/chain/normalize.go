package chain

import (
	"github.com/mpyw/reflectfold/internal/ir"
)

// Normalize turns the operands of an invocation node into the operands of
// the equivalent direct call:
//
//   - a register holding the handle the node is called through is dropped
//   - a wrapped zero-length array allocation is dropped
//   - a wrapped filled array is replaced by its elements
//
// Everything else is kept in order. The input slice is not modified.
func Normalize(kind Kind, args []ir.Arg) []ir.Arg {
	handle := kind.HandleType()
	out := make([]ir.Arg, 0, len(args))
	for _, a := range args {
		switch a := a.(type) {
		case *ir.RegisterArg:
			if handle != "" && a.Type() == handle {
				continue
			}
		case *ir.WrapArg:
			switch a.Insn.Type {
			case ir.InsnNewArray:
				if isZeroLiteral(a.Insn.Arg(0)) {
					continue
				}
			case ir.InsnFilledNewArray:
				out = append(out, a.Insn.Args...)
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

// isZeroLiteral reports whether a is the integer 0, inline or as a wrapped
// constant.
func isZeroLiteral(a ir.Arg) bool {
	if w, ok := a.(*ir.WrapArg); ok && w.Insn.Type == ir.InsnConst {
		a = w.Insn.Arg(0)
	}
	lit, ok := a.(*ir.LiteralArg)
	return ok && !lit.IsString() && lit.Value == 0
}
