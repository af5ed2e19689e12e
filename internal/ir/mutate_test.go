package ir

import (
	"testing"
)

// buildMethod assembles a one-block method:
//
//	r0 = const-string "x"
//	r1 = call (r0, (wrapped-op (inner-op)))
//	return (r1)
func buildMethod() (m *Method, constStr, call, wrapped, inner, ret *Insn) {
	m = NewMethod("m", nil, TypeVoid)
	b := m.AddBlock()
	r0 := m.Var("r0")
	r1 := m.Var("r1")

	constStr = NewConstString("x", Reg(r0))
	inner = NewOp("inner-op", nil)
	wrapped = NewOp("wrapped-op", nil, Wrap(inner))
	call = NewOp("call", Reg(r1), Reg(r0), Wrap(wrapped))
	ret = NewOp("return", nil, Reg(r1))

	b.Append(constStr)
	b.Append(call)
	b.Append(ret)
	return
}

func TestReplaceInsn(t *testing.T) {
	t.Run("top level", func(t *testing.T) {
		m, constStr, _, _, _, _ := buildMethod()
		repl := NewConstString("y", constStr.Result)
		if !m.ReplaceInsn(constStr, repl) {
			t.Fatal("ReplaceInsn() = false, want true")
		}
		if m.Blocks[0].Insns[0] != repl {
			t.Errorf("Insns[0] = %s, want replacement at same position", FormatInsn(m.Blocks[0].Insns[0]))
		}
		if m.Contains(constStr) {
			t.Error("old instruction still present after replacement")
		}
	})

	t.Run("wrapped", func(t *testing.T) {
		m, _, call, wrapped, _, _ := buildMethod()
		repl := NewOp("other-op", nil)
		if !m.ReplaceInsn(wrapped, repl) {
			t.Fatal("ReplaceInsn() = false, want true")
		}
		if got := call.Arg(1).(*WrapArg).Insn; got != repl {
			t.Errorf("wrapped operand = %s, want replacement", formatInsnBody(got))
		}
	})

	t.Run("nested wrapped", func(t *testing.T) {
		m, _, _, wrapped, inner, _ := buildMethod()
		repl := NewOp("other-op", nil)
		if !m.ReplaceInsn(inner, repl) {
			t.Fatal("ReplaceInsn() = false, want true")
		}
		if got := wrapped.Arg(0).(*WrapArg).Insn; got != repl {
			t.Errorf("nested operand = %s, want replacement", formatInsnBody(got))
		}
	})

	t.Run("absent", func(t *testing.T) {
		m, _, _, _, _, _ := buildMethod()
		if m.ReplaceInsn(NewOp("nop", nil), NewOp("nop", nil)) {
			t.Error("ReplaceInsn() of absent instruction = true, want false")
		}
		if m.ReplaceInsn(nil, NewOp("nop", nil)) {
			t.Error("ReplaceInsn(nil) = true, want false")
		}
	})
}

func TestRemoveInsn(t *testing.T) {
	m, constStr, call, wrapped, _, ret := buildMethod()

	if m.RemoveInsn(wrapped) {
		t.Error("RemoveInsn() of wrapped instruction = true, want false")
	}
	if !m.RemoveInsn(constStr) {
		t.Fatal("RemoveInsn() = false, want true")
	}
	insns := m.Blocks[0].Insns
	if len(insns) != 2 || insns[0] != call || insns[1] != ret {
		t.Errorf("remaining insns = %d, want [call, return]", len(insns))
	}
	if m.RemoveInsn(constStr) {
		t.Error("second RemoveInsn() = true, want false")
	}
}

func TestRemoveInsn_SameTextDifferentIdentity(t *testing.T) {
	m := NewMethod("m", nil, "")
	b := m.AddBlock()
	first := NewOp("nop", nil)
	second := NewOp("nop", nil)
	b.Append(first)
	b.Append(second)

	if !m.RemoveInsn(second) {
		t.Fatal("RemoveInsn() = false, want true")
	}
	if len(b.Insns) != 1 || b.Insns[0] != first {
		t.Error("RemoveInsn() removed the wrong occurrence")
	}
}

func TestWalkInsns_Order(t *testing.T) {
	m, _, _, _, _, _ := buildMethod()
	var ops []string
	m.WalkInsns(func(insn *Insn) bool {
		if insn.Type == InsnConstString {
			ops = append(ops, "const-string")
		} else {
			ops = append(ops, insn.Op)
		}
		return true
	})
	want := []string{"const-string", "call", "wrapped-op", "inner-op", "return"}
	if len(ops) != len(want) {
		t.Fatalf("visited %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Errorf("visit[%d] = %q, want %q", i, ops[i], want[i])
		}
	}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Method, constStr, call *Insn)
		want   []string
	}{
		{
			name:   "intact",
			mutate: func(*Method, *Insn, *Insn) {},
			want:   nil,
		},
		{
			name: "producer removed",
			mutate: func(m *Method, constStr, _ *Insn) {
				m.RemoveInsn(constStr)
			},
			want: []string{"r0"},
		},
		{
			name: "both producers removed",
			mutate: func(m *Method, constStr, call *Insn) {
				m.RemoveInsn(constStr)
				m.RemoveInsn(call)
			},
			want: []string{"r1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, constStr, call, _, _, _ := buildMethod()
			tt.mutate(m, constStr, call)
			got := Verify(m)
			if len(got) != len(tt.want) {
				t.Fatalf("Verify() = %d dangling uses, want %d", len(got), len(tt.want))
			}
			for i, d := range got {
				if d.Var.Name != tt.want[i] {
					t.Errorf("dangling[%d] = %s, want %s", i, d.Var, tt.want[i])
				}
			}
		})
	}
}

func TestVerify_ParamsAndWrappedDefs(t *testing.T) {
	m := NewMethod("m", []string{TypeInt}, TypeVoid)
	b := m.AddBlock()
	r0, r1, r2 := m.Var("r0"), m.Var("r1"), m.Var("r2")
	m.Params = []*SSAVar{r0}
	wrappedConst := &Insn{Type: InsnConst, Args: []Arg{Lit(1)}, Result: Reg(r2)}
	b.Append(NewOp("add", Reg(r1), Reg(r0), Wrap(wrappedConst)))
	b.Append(NewOp("return", nil, Reg(r1), Reg(r2)))

	if got := Verify(m); len(got) != 0 {
		t.Errorf("Verify() = %v, want no dangling uses", got)
	}
}
