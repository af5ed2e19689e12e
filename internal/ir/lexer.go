package ir

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// tokenKind classifies text-form tokens.
type tokenKind int

const (
	tokWord   tokenKind = iota // names, types, mnemonics, registers, integers
	tokString                  // Go-quoted string literal (already unquoted)
	tokPunct                   // one of ( ) , = : { }
)

type token struct {
	kind tokenKind
	text string
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

// isWordByte reports whether c can appear in a word token.
// Words cover qualified names ("java.lang.Class"), array types ("int[]"),
// constructor names ("<init>"), mnemonics ("new-array"), integers ("-1")
// and the successor arrow ("->").
func isWordByte(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("_.$<>[]/-", c) >= 0
}

// lexLine splits one line of text form into tokens and a trailing comment.
// The comment excludes the leading ';' and surrounding spaces; hasComment is false
// when the line has no comment.
func lexLine(line string) (toks []token, comment string, hasComment bool, err error) {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r':
			i++
		case c == ';':
			return toks, strings.TrimSpace(line[i+1:]), true, nil
		case c == '"':
			end, err := scanString(line, i)
			if err != nil {
				return nil, "", false, err
			}
			s, err := strconv.Unquote(line[i:end])
			if err != nil {
				return nil, "", false, errors.Wrapf(err, "bad string literal %s", line[i:end])
			}
			toks = append(toks, token{kind: tokString, text: s})
			i = end
		case strings.IndexByte("(),=:{}", c) >= 0:
			toks = append(toks, token{kind: tokPunct, text: string(c)})
			i++
		case isWordByte(c):
			start := i
			for i < len(line) && isWordByte(line[i]) {
				i++
			}
			toks = append(toks, token{kind: tokWord, text: line[start:i]})
		default:
			return nil, "", false, errors.Errorf("unexpected character %q", c)
		}
	}
	return toks, "", false, nil
}

// scanString returns the index just past the closing quote of the string
// literal starting at line[start].
func scanString(line string, start int) (int, error) {
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, errors.New("unterminated string literal")
}

// =============================================================================
// Token Cursor
// =============================================================================

// cursor walks the tokens of a single line.
type cursor struct {
	toks []token
	pos  int
}

func (c *cursor) done() bool { return c.pos >= len(c.toks) }

func (c *cursor) peek() token {
	if c.done() {
		return token{kind: tokPunct, text: ""}
	}
	return c.toks[c.pos]
}

func (c *cursor) next() token {
	t := c.peek()
	if !c.done() {
		c.pos++
	}
	return t
}

// accept consumes the next token if it is the given punctuation.
func (c *cursor) accept(punct string) bool {
	if c.peek().is(tokPunct, punct) {
		c.pos++
		return true
	}
	return false
}

func (c *cursor) expect(punct string) error {
	if !c.accept(punct) {
		return errors.Errorf("expected %q, found %s", punct, describe(c.peek()))
	}
	return nil
}

func (c *cursor) word() (string, error) {
	t := c.next()
	if t.kind != tokWord {
		return "", errors.Errorf("expected name, found %s", describe(t))
	}
	return t.text, nil
}

func describe(t token) string {
	switch {
	case t.kind == tokPunct && t.text == "":
		return "end of line"
	case t.kind == tokString:
		return strconv.Quote(t.text)
	}
	return "\"" + t.text + "\""
}
