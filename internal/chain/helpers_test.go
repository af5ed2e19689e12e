package chain

import (
	"strings"
	"testing"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/mpyw/reflectfold/internal/ir"
)

// classesA declares the target class used throughout the tests.
const classesA = `class pkg.A
  method <init>() void
  method <init>(int, int) void
  method run() java.lang.Object
  method run(int, int) java.lang.Object
end
`

// Instruction lines shared by the chain fixtures.
const (
	forNameA       = `r0:java.lang.Class = invoke static java.lang.Class.forName(java.lang.String) ("pkg.A")`
	forNameMissing = `r0:java.lang.Class = invoke static java.lang.Class.forName(java.lang.String) ("pkg.Missing")`
	getCtor        = `r1:java.lang.reflect.Constructor = invoke virtual java.lang.Class.getConstructor(java.lang.Class[]) (r0, (new-array java.lang.Class (0)))`
	newInst2       = `r2:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r1, (filled-new-array java.lang.Object (r3, r4)))`
	newInst0       = `r2:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r1, (new-array java.lang.Object (0)))`
	getMethodRun   = `r1:java.lang.reflect.Method = invoke virtual java.lang.Class.getMethod(java.lang.String, java.lang.Class[]) (r0, "run", (new-array java.lang.Class (0)))`
	invokeRun      = `r2:java.lang.Object = invoke virtual java.lang.reflect.Method.invoke(java.lang.Object, java.lang.Object[]) (r1, r5, (filled-new-array java.lang.Object (r3, r4)))`
	returnR2       = `return (r2)`

	// A second chain on r0 calling run() on the constructed r2.
	getMethodR6 = `r6:java.lang.reflect.Method = invoke virtual java.lang.Class.getMethod(java.lang.String, java.lang.Class[]) (r0, "run", (new-array java.lang.Class (0)))`
	invokeOnR2  = `r7:java.lang.Object = invoke virtual java.lang.reflect.Method.invoke(java.lang.Object, java.lang.Object[]) (r6, r2, (new-array java.lang.Object (0)))`
	directOnR2  = `r7:java.lang.Object = invoke virtual pkg.A.run() (r2)`
	returnR7    = `return (r7)`
)

// parseMain parses classesA plus a test.Main.main method whose single block
// holds the given instruction lines.
func parseMain(t *testing.T, params string, lines ...string) (*ir.Program, *ir.Method) {
	t.Helper()
	var sb strings.Builder
	sb.WriteString(classesA)
	sb.WriteString("\nclass test.Main\n  method main() java.lang.Object {\n")
	if params != "" {
		sb.WriteString("    params " + params + "\n")
	}
	sb.WriteString("  b0:\n")
	for _, l := range lines {
		sb.WriteString("    " + l + "\n")
	}
	sb.WriteString("  }\nend\n")

	prog, err := ir.ParseString(sb.String())
	if err != nil {
		t.Fatalf("ParseString() error = %v\n%s", err, sb.String())
	}
	return prog, prog.ResolveClass("test.Main").Methods[0]
}

// insnLines returns the text form of every top-level instruction.
func insnLines(m *ir.Method) []string {
	var out []string
	for _, b := range m.Blocks {
		for _, insn := range b.Insns {
			out = append(out, ir.FormatInsn(insn))
		}
	}
	return out
}

func assertLines(t *testing.T, m *ir.Method, want ...string) {
	t.Helper()
	got := insnLines(m)
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("instructions mismatch\n--- got ---\n%s\n--- want ---\n%s",
			strings.Join(got, "\n"), strings.Join(want, "\n"))
	}
}

func quietLogger() log.Interface {
	return &log.Logger{Handler: discard.Default, Level: log.DebugLevel}
}

func analyze(prog *ir.Program, m *ir.Method, strategy Strategy) Result {
	return NewAnalyzer(m, Config{
		Resolver: prog,
		Strategy: strategy,
		Logger:   quietLogger(),
	}).Analyze()
}

// buildGraph runs only the classification phase.
func buildGraph(prog *ir.Program, m *ir.Method) (*Graph, Result) {
	var res Result
	a := NewAnalyzer(m, Config{Resolver: prog, Logger: quietLogger()})
	return a.build(&res), res
}
