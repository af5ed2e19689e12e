package chain

import (
	"strings"
	"testing"

	"github.com/mpyw/reflectfold/internal/ir"
)

func TestAnalyze_Constructor(t *testing.T) {
	prog, m := parseMain(t, "r3:int, r4:int", forNameA, getCtor, newInst2, getMethodR6, invokeOnR2, returnR7)
	res := analyze(prog, m, nil)

	assertLines(t, m,
		`r2:java.lang.Object = new pkg.A.<init>(int, int) (r3, r4)`,
		directOnR2,
		returnR7,
	)
	if res.Constructions != 1 || res.Invocations != 1 {
		t.Errorf("Constructions = %d, Invocations = %d, want 1, 1", res.Constructions, res.Invocations)
	}
	if res.Removed != 3 {
		t.Errorf("Removed = %d, want 3 (getConstructor, getMethod, forName)", res.Removed)
	}
	if !res.Optimized || !res.Rewritten() {
		t.Error("result should report an optimized, rewritten method")
	}
	if got := m.Blocks[0].Insns[0].Result.Var; got != m.Var("r2") {
		t.Errorf("construction result = %v, want the original r2", got)
	}
	if d := ir.Verify(m); len(d) != 0 {
		t.Errorf("Verify() = %v, want no dangling uses", d)
	}
}

func TestAnalyze_ConstructorOnly(t *testing.T) {
	prog, m := parseMain(t, "r3:int, r4:int", forNameA, getCtor, newInst2, returnR2)
	res := analyze(prog, m, nil)

	assertLines(t, m, forNameA, getCtor, newInst2, returnR2)
	if res.Optimized || res.Rewritten() {
		t.Errorf("result = %+v, want untouched without an invoke", res)
	}
	if res.Roots != 1 || res.Nodes != 2 {
		t.Errorf("Roots = %d, Nodes = %d, want 1, 2", res.Roots, res.Nodes)
	}

	prog, m = parseMain(t, "r3:int, r4:int", forNameMissing, getCtor, newInst2, returnR2)
	res = analyze(prog, m, nil)
	assertLines(t, m, forNameMissing, getCtor, newInst2, returnR2)
	if res.Removed != 0 || len(res.Skips) != 0 {
		t.Errorf("unresolved result = %+v, want no removal and no skips", res)
	}
}

func TestAnalyze_Invoke(t *testing.T) {
	prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", forNameA, getMethodRun, invokeRun, returnR2)
	res := analyze(prog, m, nil)

	assertLines(t, m,
		`r2:java.lang.Object = invoke virtual pkg.A.run() (r5, r3, r4)`,
		returnR2,
	)
	if res.Invocations != 1 || res.Removed != 2 {
		t.Errorf("Invocations = %d, Removed = %d, want 1, 2", res.Invocations, res.Removed)
	}
}

func TestAnalyze_InvokeArityStrategy(t *testing.T) {
	prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", forNameA, getMethodRun, invokeRun, returnR2)
	analyze(prog, m, ArityMatch{})

	assertLines(t, m,
		`r2:java.lang.Object = invoke virtual pkg.A.run(int, int) (r5, r3, r4)`,
		returnR2,
	)
}

func TestAnalyze_UnresolvedClass(t *testing.T) {
	prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", forNameMissing, getMethodRun, invokeRun, returnR2)
	res := analyze(prog, m, nil)

	assertLines(t, m, getMethodRun, invokeRun, returnR2)
	if res.Unresolved != 1 || res.Invocations != 0 {
		t.Errorf("Unresolved = %d, Invocations = %d, want 1, 0", res.Unresolved, res.Invocations)
	}
	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1 (forName only)", res.Removed)
	}
	if len(res.Skips) != 1 || res.Skips[0].Kind != KindForName {
		t.Errorf("Skips = %+v, want one FORNAME skip", res.Skips)
	}
	if d := ir.Verify(m); len(d) != 1 || d[0].Var.Name != "r0" {
		t.Errorf("Verify() = %v, want r0 dangling", d)
	}
}

func TestAnalyze_HandleOnly(t *testing.T) {
	prog, m := parseMain(t, "", forNameA, getMethodRun, `return (r1)`)
	res := analyze(prog, m, nil)

	assertLines(t, m, forNameA, getMethodRun, `return (r1)`)
	if res.Optimized || res.Rewritten() {
		t.Errorf("result = %+v, want untouched", res)
	}
	if res.Roots != 1 || res.Nodes != 1 {
		t.Errorf("Roots = %d, Nodes = %d, want 1, 1", res.Roots, res.Nodes)
	}
}

func TestAnalyze_EmptyArguments(t *testing.T) {
	prog, m := parseMain(t, "", forNameA, getCtor, newInst0, getMethodR6, invokeOnR2, returnR7)
	analyze(prog, m, nil)

	assertLines(t, m,
		`r2:java.lang.Object = new pkg.A.<init>() ()`,
		directOnR2,
		returnR7,
	)
}

func TestAnalyze_Idempotent(t *testing.T) {
	fixtures := map[string][]string{
		"constructor":      {forNameA, getCtor, newInst2, getMethodR6, invokeOnR2, returnR7},
		"constructor only": {forNameA, getCtor, newInst2, returnR2},
		"invoke":           {forNameA, getMethodRun, invokeRun, returnR2},
		"unresolved":       {forNameMissing, getMethodRun, invokeRun, returnR2},
		"handle only":      {forNameA, getMethodRun, returnR2},
		"no constructor":   {forNameA, getCtor, `r2:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r1, (filled-new-array java.lang.Object (r3, r3, r3)))`, getMethodR6, invokeOnR2, returnR7},
	}
	for name, lines := range fixtures {
		t.Run(name, func(t *testing.T) {
			prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", lines...)
			analyze(prog, m, nil)
			first := strings.Join(insnLines(m), "\n")

			res := analyze(prog, m, nil)
			if second := strings.Join(insnLines(m), "\n"); second != first {
				t.Errorf("second run changed the method\n--- first ---\n%s\n--- second ---\n%s", first, second)
			}
			if res.Rewritten() {
				t.Errorf("second run result = %+v, want no rewrite", res)
			}
		})
	}
}

func TestAnalyze_NestedChain(t *testing.T) {
	nested := `r2:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (` +
		`(invoke virtual java.lang.Class.getConstructor(java.lang.Class[]) ((invoke static java.lang.Class.forName(java.lang.String) ("pkg.A")), (new-array java.lang.Class (0)))), ` +
		`(filled-new-array java.lang.Object (r3, r4)))`
	prog, m := parseMain(t, "r3:int, r4:int", nested, forNameA, getMethodR6, invokeOnR2, returnR7)
	res := analyze(prog, m, nil)

	assertLines(t, m,
		`r2:java.lang.Object = new pkg.A.<init>(int, int) (r3, r4)`,
		directOnR2,
		returnR7,
	)
	if res.Roots != 2 || res.Constructions != 1 || res.Invocations != 1 {
		t.Errorf("result = %+v, want 2 roots, 1 construction, 1 invocation", res)
	}
	if res.Removed != 2 {
		t.Errorf("Removed = %d, want 2 (wrapped bootstrap calls are not removed)", res.Removed)
	}
}

func TestAnalyze_WrappedInstanceAsReceiver(t *testing.T) {
	tests := []struct {
		name     string
		drop     bool
		expected string
	}{
		{"kept", false, `r2:java.lang.Object = invoke virtual pkg.A.run() ((new pkg.A.<init>() ()), r3, r4)`},
		{"dropped", true, `r2:java.lang.Object = invoke virtual pkg.A.run() (r3, r4)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, m := parseMain(t, "r3:int, r4:int",
				forNameA,
				`r6:java.lang.reflect.Constructor = invoke virtual java.lang.Class.getConstructor(java.lang.Class[]) (r0, (new-array java.lang.Class (0)))`,
				getMethodRun,
				`r2:java.lang.Object = invoke virtual java.lang.reflect.Method.invoke(java.lang.Object, java.lang.Object[]) (r1, `+
					`(invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r6, (new-array java.lang.Object (0)))), `+
					`(filled-new-array java.lang.Object (r3, r4)))`,
				returnR2,
			)
			res := NewAnalyzer(m, Config{
				Resolver:          prog,
				Logger:            quietLogger(),
				DropWrappedValues: tt.drop,
			}).Analyze()

			assertLines(t, m, tt.expected, returnR2)
			if res.Constructions != 1 || res.Invocations != 1 || res.Removed != 3 {
				t.Errorf("result = %+v, want 1 construction, 1 invocation, 3 removed", res)
			}
		})
	}
}

func TestAnalyze_PartialFailures(t *testing.T) {
	t.Run("method name not constant", func(t *testing.T) {
		getMethodReg := `r1:java.lang.reflect.Method = invoke virtual java.lang.Class.getMethod(java.lang.String, java.lang.Class[]) (r0, r7, (new-array java.lang.Class (0)))`
		prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int, r7:java.lang.String",
			forNameA, getMethodReg, invokeRun, returnR2)
		res := analyze(prog, m, nil)

		assertLines(t, m, getMethodReg, invokeRun, returnR2)
		if len(res.Skips) != 1 || res.Skips[0].Reason != "method name not constant" {
			t.Errorf("Skips = %+v", res.Skips)
		}
	})

	t.Run("no matching constructor", func(t *testing.T) {
		newInst3 := `r2:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r1, (filled-new-array java.lang.Object (r3, r3, r3)))`
		sibling := `r8:java.lang.Object = invoke virtual java.lang.reflect.Constructor.newInstance(java.lang.Object[]) (r1, (new-array java.lang.Object (0)))`
		prog, m := parseMain(t, "r3:int", forNameA, getCtor, newInst3, sibling, getMethodR6, invokeOnR2, returnR7)
		res := analyze(prog, m, nil)

		assertLines(t, m, newInst3, `r8:java.lang.Object = new pkg.A.<init>() ()`, directOnR2, returnR7)
		if res.Constructions != 1 || len(res.Skips) != 1 {
			t.Errorf("result = %+v, want 1 construction and 1 skip", res)
		}
	})

	t.Run("no matching method", func(t *testing.T) {
		getMethodStop := `r1:java.lang.reflect.Method = invoke virtual java.lang.Class.getMethod(java.lang.String, java.lang.Class[]) (r0, "stop", (new-array java.lang.Class (0)))`
		prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", forNameA, getMethodStop, invokeRun, returnR2)
		res := analyze(prog, m, nil)

		assertLines(t, m, invokeRun, returnR2)
		if res.Invocations != 0 || res.Removed != 2 {
			t.Errorf("result = %+v, want 0 invocations and 2 removed", res)
		}
	})
}

func TestAnalyze_FieldNeverRewritten(t *testing.T) {
	getField := `r7:java.lang.reflect.Field = invoke virtual java.lang.Class.getField(java.lang.String) (r0, "f")`
	prog, m := parseMain(t, "r3:int, r4:int", forNameA, getField, getCtor, newInst2, getMethodR6, invokeOnR2, returnR7)
	res := analyze(prog, m, nil)

	assertLines(t, m,
		getField,
		`r2:java.lang.Object = new pkg.A.<init>(int, int) (r3, r4)`,
		directOnR2,
		returnR7,
	)
	if res.Nodes != 5 {
		t.Errorf("Nodes = %d, want 5", res.Nodes)
	}
}

func TestAnalyze_DryRunAndSnapshot(t *testing.T) {
	prog, m := parseMain(t, "r5:pkg.A, r3:int, r4:int", forNameA, getMethodRun, invokeRun, returnR2)
	res := NewAnalyzer(m, Config{
		Resolver: prog,
		Logger:   quietLogger(),
		Snapshot: true,
		DryRun:   true,
	}).Analyze()

	assertLines(t, m, forNameA, getMethodRun, invokeRun, returnR2)
	if !res.Optimized || res.Rewritten() {
		t.Errorf("result = %+v, want optimizable but untouched", res)
	}
	if res.Snapshot == nil || len(res.Snapshot.Nodes) != 3 {
		t.Fatalf("Snapshot = %+v, want 3 nodes", res.Snapshot)
	}
	if res.Snapshot.Method != "test.Main.main" {
		t.Errorf("Snapshot.Method = %q", res.Snapshot.Method)
	}
}

func TestAnalyze_MultipleBlocks(t *testing.T) {
	prog, err := ir.ParseString(classesA + `
class test.Main
  method main() java.lang.Object {
    params r3:int, r4:int
  b0 -> b1, b2:
    ` + forNameA + `
    ` + getCtor + `
    ` + getMethodR6 + `
    if-eqz (r3)
  b1 -> b2:
    ` + newInst2 + `
    ` + invokeOnR2 + `
  b2:
    ` + returnR2 + `
  }
end
`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	m := prog.ResolveClass("test.Main").Methods[0]
	res := analyze(prog, m, nil)

	if res.Constructions != 1 || res.Invocations != 1 {
		t.Fatalf("result = %+v, want 1 construction and 1 invocation", res)
	}
	if len(m.Blocks[0].Insns) != 1 || m.Blocks[0].Insns[0].Op != "if-eqz" {
		t.Errorf("b0 = %v, want only the branch", insnLines(m))
	}
	if len(m.Blocks[0].Succs) != 2 || len(m.Blocks[1].Succs) != 1 {
		t.Error("control flow edges changed")
	}
}
