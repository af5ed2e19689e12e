package ir

// =============================================================================
// Instruction Kinds
// =============================================================================

// InsnType is the opcode kind of an instruction.
type InsnType int

const (
	// InsnOther is any instruction the passes do not inspect (move, return, ...).
	// Its mnemonic is kept in Insn.Op.
	InsnOther InsnType = iota
	// InsnConstString produces a string constant (Insn.Str).
	InsnConstString
	// InsnConst produces a literal constant (Args[0]).
	InsnConst
	// InsnInvoke calls Insn.Callee with Insn.Invoke dispatch.
	InsnInvoke
	// InsnConstructor is a direct construction: allocate and call Insn.Callee.
	InsnConstructor
	// InsnNewArray allocates an array of Insn.Elem with size Args[0].
	InsnNewArray
	// InsnFilledNewArray allocates an array of Insn.Elem holding Args.
	InsnFilledNewArray
)

// InvokeKind is the dispatch kind of an invoke instruction.
type InvokeKind int

const (
	InvokeStatic InvokeKind = iota
	InvokeVirtual
	InvokeDirect
	InvokeInterface
	InvokeSuper
)

var invokeKindNames = [...]string{
	InvokeStatic:    "static",
	InvokeVirtual:   "virtual",
	InvokeDirect:    "direct",
	InvokeInterface: "interface",
	InvokeSuper:     "super",
}

func (k InvokeKind) String() string {
	if int(k) < len(invokeKindNames) {
		return invokeKindNames[k]
	}
	return "invalid"
}

// parseInvokeKind maps a text-form dispatch kind back to InvokeKind.
func parseInvokeKind(s string) (InvokeKind, bool) {
	for k, name := range invokeKindNames {
		if name == s {
			return InvokeKind(k), true
		}
	}
	return 0, false
}

// =============================================================================
// Instructions
// =============================================================================

// Insn is a single instruction.
//
// Fields beyond Type, Args and Result are payload for specific kinds and are
// zero otherwise. Instructions are compared by identity.
type Insn struct {
	Type   InsnType
	Args   []Arg
	Result *RegisterArg

	Op     string     // Mnemonic for InsnOther
	Str    string     // Value for InsnConstString
	Elem   string     // Element type for array instructions
	Callee MethodRef  // Target for InsnInvoke and InsnConstructor
	Invoke InvokeKind // Dispatch for InsnInvoke
}

// NewInvoke creates an invoke instruction.
// For every kind but InvokeStatic, args[0] is the receiver.
func NewInvoke(kind InvokeKind, callee MethodRef, result *RegisterArg, args ...Arg) *Insn {
	return &Insn{
		Type:   InsnInvoke,
		Invoke: kind,
		Callee: callee,
		Result: result,
		Args:   args,
	}
}

// NewConstructor creates a direct construction of callee.Owner through callee.
func NewConstructor(callee MethodRef, result *RegisterArg, args ...Arg) *Insn {
	return &Insn{
		Type:   InsnConstructor,
		Callee: callee,
		Result: result,
		Args:   args,
	}
}

// NewConstString creates a string constant instruction.
func NewConstString(s string, result *RegisterArg) *Insn {
	return &Insn{Type: InsnConstString, Str: s, Result: result}
}

// NewArray creates an array allocation with the given size argument.
func NewArray(elem string, size Arg, result *RegisterArg) *Insn {
	return &Insn{Type: InsnNewArray, Elem: elem, Args: []Arg{size}, Result: result}
}

// NewFilledArray creates an array allocation holding elems.
func NewFilledArray(elem string, result *RegisterArg, elems ...Arg) *Insn {
	return &Insn{Type: InsnFilledNewArray, Elem: elem, Args: elems, Result: result}
}

// NewOp creates an instruction the passes treat as opaque.
func NewOp(op string, result *RegisterArg, args ...Arg) *Insn {
	return &Insn{Type: InsnOther, Op: op, Result: result, Args: args}
}

// Arg returns the i-th argument, or nil when out of range.
func (i *Insn) Arg(n int) Arg {
	if n < 0 || n >= len(i.Args) {
		return nil
	}
	return i.Args[n]
}

// IsInvokeOf reports whether the instruction invokes the named member
// with the given declared arity.
func (i *Insn) IsInvokeOf(fullName string, arity int) bool {
	return i.Type == InsnInvoke && i.Callee.FullName() == fullName && i.Callee.Arity() == arity
}

// ResultVar returns the SSA variable defined by the instruction, or nil.
func (i *Insn) ResultVar() *SSAVar {
	if i.Result == nil {
		return nil
	}
	return i.Result.Var
}

// ConstString returns the string the instruction produces when it is a
// constant-string producer.
func (i *Insn) ConstString() (string, bool) {
	if i.Type == InsnConstString {
		return i.Str, true
	}
	return "", false
}

// Walk calls fn for the instruction and then for every instruction wrapped in
// its arguments, depth-first in argument order. Returning false from fn stops
// descent below that instruction.
func (i *Insn) Walk(fn func(*Insn) bool) {
	if !fn(i) {
		return
	}
	for _, a := range i.Args {
		if w, ok := a.(*WrapArg); ok {
			w.Insn.Walk(fn)
		}
	}
}
