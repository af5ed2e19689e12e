package ir

// =============================================================================
// In-place Mutation
// =============================================================================

// ReplaceInsn replaces the occurrence of old with repl, keeping its position.
//
// Top-level occurrences in any block are replaced in the block's stream.
// Occurrences wrapped inside another instruction's operands are replaced in
// that operand. Returns false when old does not occur in the method.
func (m *Method) ReplaceInsn(old, repl *Insn) bool {
	if old == nil || repl == nil {
		return false
	}
	for _, b := range m.Blocks {
		for i, insn := range b.Insns {
			if insn == old {
				b.Insns[i] = repl
				return true
			}
		}
	}
	for _, b := range m.Blocks {
		for _, insn := range b.Insns {
			if replaceWrapped(insn, old, repl) {
				return true
			}
		}
	}
	return false
}

// replaceWrapped searches the operands of insn for a wrapped old.
func replaceWrapped(insn, old, repl *Insn) bool {
	for _, a := range insn.Args {
		w, ok := a.(*WrapArg)
		if !ok {
			continue
		}
		if w.Insn == old {
			w.Insn = repl
			return true
		}
		if replaceWrapped(w.Insn, old, repl) {
			return true
		}
	}
	return false
}

// RemoveInsn deletes a top-level occurrence of insn from its block.
//
// A wrapped instruction cannot be removed on its own (it is an operand of
// another instruction); RemoveInsn returns false for it, as it does when
// insn does not occur in the method at all.
func (m *Method) RemoveInsn(insn *Insn) bool {
	if insn == nil {
		return false
	}
	for _, b := range m.Blocks {
		for i, cur := range b.Insns {
			if cur == insn {
				b.Insns = append(b.Insns[:i:i], b.Insns[i+1:]...)
				return true
			}
		}
	}
	return false
}

// Contains reports whether insn occurs in the method, top-level or wrapped.
func (m *Method) Contains(insn *Insn) bool {
	found := false
	m.WalkInsns(func(cur *Insn) bool {
		if cur == insn {
			found = true
		}
		return !found
	})
	return found
}

// WalkInsns visits every instruction of every block in order, including
// wrapped instructions after the instruction that wraps them.
// Returning false from fn stops descent below the current instruction.
func (m *Method) WalkInsns(fn func(*Insn) bool) {
	for _, b := range m.Blocks {
		for _, insn := range b.Insns {
			insn.Walk(fn)
		}
	}
}

// =============================================================================
// Verification
// =============================================================================

// DanglingUse is a register operand whose SSA variable has no definition.
type DanglingUse struct {
	Block int     // Block ID of the using instruction
	Insn  *Insn   // Top-level instruction containing the use
	Var   *SSAVar // Variable without definition
}

// Verify reports register uses that are not defined by any instruction of
// the method. Parameter registers are defined on entry.
//
// Rewriting passes call this after removing instructions to detect operands
// left without a producer.
func Verify(m *Method) []DanglingUse {
	defined := make(map[*SSAVar]bool, len(m.vars))
	for _, p := range m.Params {
		defined[p] = true
	}
	m.WalkInsns(func(insn *Insn) bool {
		if v := insn.ResultVar(); v != nil {
			defined[v] = true
		}
		return true
	})

	var dangling []DanglingUse
	for _, b := range m.Blocks {
		for _, top := range b.Insns {
			top.Walk(func(insn *Insn) bool {
				for _, a := range insn.Args {
					if v := ArgVar(a); v != nil && !defined[v] {
						dangling = append(dangling, DanglingUse{Block: b.ID, Insn: top, Var: v})
					}
				}
				return true
			})
		}
	}
	return dangling
}
