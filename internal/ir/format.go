package ir

import (
	"fmt"
	"io"
	"strings"
)

// Format writes the program in text form. The output parses back to an
// equivalent program and formats identically.
func Format(w io.Writer, p *Program) error {
	var buf strings.Builder
	for _, d := range p.Directives {
		fmt.Fprintf(&buf, "; %s\n", d)
	}
	for i, c := range p.Classes {
		if i > 0 || len(p.Directives) > 0 {
			buf.WriteByte('\n')
		}
		formatClass(&buf, c)
	}
	_, err := io.WriteString(w, buf.String())
	return err
}

// FormatString is Format into a string.
func FormatString(p *Program) string {
	var sb strings.Builder
	_ = Format(&sb, p)
	return sb.String()
}

func formatClass(buf *strings.Builder, c *Class) {
	buf.WriteString("class " + c.Name)
	if c.Super != "" {
		buf.WriteString(" extends " + c.Super)
	}
	buf.WriteByte('\n')
	for _, m := range c.Methods {
		for _, d := range m.Directives {
			fmt.Fprintf(buf, "  ; %s\n", d)
		}
		buf.WriteString("  method ")
		formatMethodHeader(buf, m)
		if !m.HasBody() {
			buf.WriteByte('\n')
			continue
		}
		buf.WriteString(" {\n")
		formatBody(buf, m)
		buf.WriteString("  }\n")
	}
	buf.WriteString("end\n")
}

func formatMethodHeader(buf *strings.Builder, m *Method) {
	buf.WriteString(m.Ref.Name + "(" + strings.Join(m.Ref.Params, ", ") + ")")
	if m.Ref.Return != "" {
		buf.WriteString(" " + m.Ref.Return)
	}
}

// FormatMethod returns the text form of a single method body, as it appears
// inside its class.
func FormatMethod(m *Method) string {
	var buf strings.Builder
	buf.WriteString("method ")
	formatMethodHeader(&buf, m)
	if m.HasBody() {
		buf.WriteString(" {\n")
		formatBody(&buf, m)
		buf.WriteString("}")
	}
	buf.WriteByte('\n')
	return buf.String()
}

func formatBody(buf *strings.Builder, m *Method) {
	if len(m.Params) > 0 {
		params := make([]string, len(m.Params))
		for i, v := range m.Params {
			params[i] = formatDef(v)
		}
		buf.WriteString("    params " + strings.Join(params, ", ") + "\n")
	}
	for _, b := range m.Blocks {
		fmt.Fprintf(buf, "  b%d", b.ID)
		if len(b.Succs) > 0 {
			succs := make([]string, len(b.Succs))
			for i, s := range b.Succs {
				succs[i] = fmt.Sprintf("b%d", s.ID)
			}
			buf.WriteString(" -> " + strings.Join(succs, ", "))
		}
		buf.WriteString(":\n")
		for _, insn := range b.Insns {
			buf.WriteString("    " + FormatInsn(insn) + "\n")
		}
	}
}

// FormatInsn returns the text form of an instruction including its result.
func FormatInsn(insn *Insn) string {
	if insn.Result != nil && insn.Result.Var != nil {
		return formatDef(insn.Result.Var) + " = " + formatInsnBody(insn)
	}
	return formatInsnBody(insn)
}

func formatDef(v *SSAVar) string {
	if v.Type == "" {
		return v.Name
	}
	return v.Name + ":" + v.Type
}

// formatInsnBody returns the text form of an instruction without its result.
func formatInsnBody(insn *Insn) string {
	switch insn.Type {
	case InsnConstString:
		return "const-string " + (&LiteralArg{Type: TypeString, Str: insn.Str}).String()
	case InsnConst:
		return "const " + formatArgs(insn.Args)
	case InsnInvoke:
		return "invoke " + insn.Invoke.String() + " " + insn.Callee.String() + " " + formatArgs(insn.Args)
	case InsnConstructor:
		return "new " + insn.Callee.String() + " " + formatArgs(insn.Args)
	case InsnNewArray:
		return "new-array " + insn.Elem + " " + formatArgs(insn.Args)
	case InsnFilledNewArray:
		return "filled-new-array " + insn.Elem + " " + formatArgs(insn.Args)
	}
	return insn.Op + " " + formatArgs(insn.Args)
}

func formatArgs(args []Arg) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}
