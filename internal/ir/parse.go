package ir

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Parse reads a program in text form.
//
// # Grammar
//
//	file     = { class }
//	class    = "class" NAME [ "extends" NAME ] NL { method } "end" NL
//	method   = "method" NAME "(" [ types ] ")" [ TYPE ] [ "{" NL body "}" ] NL
//	body     = [ "params" result { "," result } NL ] { block }
//	block    = LABEL [ "->" LABEL { "," LABEL } ] ":" NL { [ result "=" ] insn NL }
//	result   = REG [ ":" TYPE ]
//	insn     = "const-string" STRING
//	         | "invoke" KIND REF "(" [ types ] ")" args
//	         | "new" REF "(" [ types ] ")" args
//	         | ( "new-array" | "filled-new-array" ) TYPE args
//	         | OP [ args ]
//	args     = "(" [ operand { "," operand } ] ")"
//	operand  = REG | STRING | INT | "(" insn ")"
//
// Comments start with ';' and run to the end of the line. Comment lines
// directly before a "method" line become the method's directives; comment
// lines before the first "class" become the program's directives. Other
// comments are dropped.
func Parse(r io.Reader) (*Program, error) {
	p := &parser{prog: NewProgram()}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, errors.Wrapf(err, "line %d", p.line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, errors.Wrap(err, "read program")
	}
	if p.method != nil {
		return nil, errors.Errorf("line %d: unterminated body of method %s", p.line, p.method.FullName())
	}
	if p.class != nil {
		return nil, errors.Errorf("line %d: class %s is missing \"end\"", p.line, p.class.Name)
	}
	return p.prog, nil
}

// ParseString is Parse for in-memory text.
func ParseString(src string) (*Program, error) {
	return Parse(strings.NewReader(src))
}

// parser holds the state of the line-oriented parse.
type parser struct {
	prog    *Program
	line    int
	seenAny bool // a class header has been read

	class    *Class
	method   *Method // method whose body is open
	block    *BasicBlock
	labels   map[string]*BasicBlock
	pending  map[*BasicBlock][]string // successor labels resolved at body end
	comments []string                 // comments since the last non-comment line
}

func (p *parser) parseLine(line string) error {
	toks, comment, hasComment, err := lexLine(line)
	if err != nil {
		return err
	}
	if len(toks) == 0 {
		if hasComment {
			p.comments = append(p.comments, comment)
		}
		return nil
	}
	c := &cursor{toks: toks}

	switch {
	case p.method != nil:
		p.comments = nil
		return p.parseBodyLine(c)
	case p.class != nil:
		return p.parseClassLine(c)
	default:
		return p.parseTopLine(c)
	}
}

func (p *parser) parseTopLine(c *cursor) error {
	if !p.seenAny {
		p.prog.Directives = append(p.prog.Directives, p.comments...)
	}
	p.comments = nil

	kw, err := c.word()
	if err != nil {
		return err
	}
	if kw != "class" {
		return errors.Errorf("expected \"class\", found %q", kw)
	}
	name, err := c.word()
	if err != nil {
		return err
	}
	cls := &Class{Name: name}
	if c.peek().is(tokWord, "extends") {
		c.next()
		if cls.Super, err = c.word(); err != nil {
			return err
		}
	}
	if !c.done() {
		return errors.Errorf("unexpected %s after class header", describe(c.peek()))
	}
	p.seenAny = true
	p.class = cls
	p.prog.AddClass(cls)
	return nil
}

func (p *parser) parseClassLine(c *cursor) error {
	directives := p.comments
	p.comments = nil

	kw, err := c.word()
	if err != nil {
		return err
	}
	switch kw {
	case "end":
		p.class = nil
		return nil
	case "method":
	default:
		return errors.Errorf("expected \"method\" or \"end\", found %q", kw)
	}

	name, err := c.word()
	if err != nil {
		return err
	}
	params, err := parseTypeList(c)
	if err != nil {
		return err
	}
	m := NewMethod(name, params, "")
	m.Directives = directives
	if c.peek().kind == tokWord {
		m.Ref.Return = c.next().text
	}
	p.class.AddMethod(m)

	if c.accept("{") {
		m.body = true
		p.method = m
		p.block = nil
		p.labels = make(map[string]*BasicBlock)
		p.pending = make(map[*BasicBlock][]string)
	}
	if !c.done() {
		return errors.Errorf("unexpected %s after method header", describe(c.peek()))
	}
	return nil
}

// parseTypeList parses "(" [ TYPE { "," TYPE } ] ")".
func parseTypeList(c *cursor) ([]string, error) {
	if err := c.expect("("); err != nil {
		return nil, err
	}
	types := []string{}
	if c.accept(")") {
		return types, nil
	}
	for {
		t, err := c.word()
		if err != nil {
			return nil, err
		}
		types = append(types, t)
		if c.accept(")") {
			return types, nil
		}
		if err := c.expect(","); err != nil {
			return nil, err
		}
	}
}

// =============================================================================
// Method Bodies
// =============================================================================

func (p *parser) parseBodyLine(c *cursor) error {
	first := c.peek()
	switch {
	case first.is(tokPunct, "}"):
		c.next()
		if !c.done() {
			return errors.Errorf("unexpected %s after \"}\"", describe(c.peek()))
		}
		return p.closeBody()
	case first.is(tokWord, "params"):
		c.next()
		return p.parseParams(c)
	case c.toks[len(c.toks)-1].is(tokPunct, ":"):
		return p.parseLabel(c)
	}

	if p.block == nil {
		return errors.New("instruction outside of a block")
	}
	insn, err := p.parseInsnLine(c)
	if err != nil {
		return err
	}
	p.block.Append(insn)
	return nil
}

func (p *parser) parseParams(c *cursor) error {
	if len(p.method.Blocks) > 0 {
		return errors.New("\"params\" must precede the first block")
	}
	for {
		r, err := p.parseResult(c)
		if err != nil {
			return err
		}
		p.method.Params = append(p.method.Params, r.Var)
		if c.done() {
			return nil
		}
		if err := c.expect(","); err != nil {
			return err
		}
	}
}

func (p *parser) parseLabel(c *cursor) error {
	label, err := c.word()
	if err != nil {
		return err
	}
	if _, dup := p.labels[label]; dup {
		return errors.Errorf("duplicate block label %q", label)
	}
	b := p.method.AddBlock()
	p.labels[label] = b
	p.block = b

	if c.peek().is(tokWord, "->") {
		c.next()
		for {
			succ, err := c.word()
			if err != nil {
				return err
			}
			p.pending[b] = append(p.pending[b], succ)
			if !c.accept(",") {
				break
			}
		}
	}
	if err := c.expect(":"); err != nil {
		return err
	}
	if !c.done() {
		return errors.Errorf("unexpected %s after block label", describe(c.peek()))
	}
	return nil
}

func (p *parser) closeBody() error {
	for _, b := range p.method.Blocks {
		for _, label := range p.pending[b] {
			succ, ok := p.labels[label]
			if !ok {
				return errors.Errorf("unknown successor block %q in %s", label, p.method.FullName())
			}
			b.Succs = append(b.Succs, succ)
		}
	}
	p.method, p.block, p.labels, p.pending = nil, nil, nil, nil
	return nil
}

// parseResult parses REG [ ":" TYPE ] and records the type on the variable.
func (p *parser) parseResult(c *cursor) (*RegisterArg, error) {
	name, err := c.word()
	if err != nil {
		return nil, err
	}
	if !isRegister(name) {
		return nil, errors.Errorf("expected register, found %q", name)
	}
	v := p.method.Var(name)
	if c.accept(":") {
		if v.Type, err = c.word(); err != nil {
			return nil, err
		}
	}
	return Reg(v), nil
}

func (p *parser) parseInsnLine(c *cursor) (*Insn, error) {
	var result *RegisterArg
	if len(c.toks) > 1 && (c.toks[1].is(tokPunct, "=") || c.toks[1].is(tokPunct, ":")) {
		var err error
		if result, err = p.parseResult(c); err != nil {
			return nil, err
		}
		if err := c.expect("="); err != nil {
			return nil, err
		}
	}
	insn, err := p.parseInsn(c)
	if err != nil {
		return nil, err
	}
	if !c.done() {
		return nil, errors.Errorf("unexpected %s after instruction", describe(c.peek()))
	}
	insn.Result = result
	return insn, nil
}

func (p *parser) parseInsn(c *cursor) (*Insn, error) {
	op, err := c.word()
	if err != nil {
		return nil, err
	}

	switch op {
	case "const-string":
		t := c.next()
		if t.kind != tokString {
			return nil, errors.Errorf("const-string expects a string, found %s", describe(t))
		}
		return NewConstString(t.text, nil), nil

	case "invoke":
		kindName, err := c.word()
		if err != nil {
			return nil, err
		}
		kind, ok := parseInvokeKind(kindName)
		if !ok {
			return nil, errors.Errorf("unknown invoke kind %q", kindName)
		}
		ref, err := parseRef(c)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs(c)
		if err != nil {
			return nil, err
		}
		if kind != InvokeStatic && len(args) == 0 {
			return nil, errors.Errorf("%s invoke of %s has no receiver", kind, ref.FullName())
		}
		return NewInvoke(kind, ref, nil, args...), nil

	case "new":
		ref, err := parseRef(c)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs(c)
		if err != nil {
			return nil, err
		}
		return NewConstructor(ref, nil, args...), nil

	case "new-array", "filled-new-array":
		elem, err := c.word()
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs(c)
		if err != nil {
			return nil, err
		}
		if op == "filled-new-array" {
			return NewFilledArray(elem, nil, args...), nil
		}
		if len(args) != 1 {
			return nil, errors.Errorf("new-array takes one size operand, found %d", len(args))
		}
		return NewArray(elem, args[0], nil), nil

	case "const":
		args, err := p.parseArgs(c)
		if err != nil {
			return nil, err
		}
		if len(args) != 1 {
			return nil, errors.Errorf("const takes one operand, found %d", len(args))
		}
		return &Insn{Type: InsnConst, Args: args}, nil
	}

	insn := NewOp(op, nil)
	if c.peek().is(tokPunct, "(") {
		if insn.Args, err = p.parseArgs(c); err != nil {
			return nil, err
		}
	}
	return insn, nil
}

// parseRef parses Owner.name "(" [ types ] ")".
func parseRef(c *cursor) (MethodRef, error) {
	full, err := c.word()
	if err != nil {
		return MethodRef{}, err
	}
	dot := strings.LastIndexByte(full, '.')
	if dot <= 0 || dot == len(full)-1 {
		return MethodRef{}, errors.Errorf("method reference %q is not qualified", full)
	}
	params, err := parseTypeList(c)
	if err != nil {
		return MethodRef{}, err
	}
	return MethodRef{Owner: full[:dot], Name: full[dot+1:], Params: params}, nil
}

// parseArgs parses "(" [ operand { "," operand } ] ")".
func (p *parser) parseArgs(c *cursor) ([]Arg, error) {
	if err := c.expect("("); err != nil {
		return nil, err
	}
	var args []Arg
	if c.accept(")") {
		return args, nil
	}
	for {
		a, err := p.parseOperand(c)
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if c.accept(")") {
			return args, nil
		}
		if err := c.expect(","); err != nil {
			return nil, err
		}
	}
}

func (p *parser) parseOperand(c *cursor) (Arg, error) {
	t := c.peek()
	switch {
	case t.kind == tokString:
		c.next()
		return StrLit(t.text), nil
	case t.is(tokPunct, "("):
		c.next()
		insn, err := p.parseInsn(c)
		if err != nil {
			return nil, err
		}
		if err := c.expect(")"); err != nil {
			return nil, err
		}
		return Wrap(insn), nil
	case t.kind == tokWord && isRegister(t.text):
		c.next()
		return Reg(p.method.Var(t.text)), nil
	case t.kind == tokWord:
		v, err := strconv.ParseInt(t.text, 0, 64)
		if err != nil {
			return nil, errors.Errorf("bad operand %q", t.text)
		}
		c.next()
		return Lit(v), nil
	}
	return nil, errors.Errorf("expected operand, found %s", describe(t))
}

// isRegister reports whether s names a register: "r" followed by digits.
func isRegister(s string) bool {
	if len(s) < 2 || s[0] != 'r' {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
