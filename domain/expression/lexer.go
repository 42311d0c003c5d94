package expression

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokInt
	tokString
	tokIdent
	tokLBracket
	tokRBracket
	tokEq
)

func (k tokenKind) String() string {
	switch k {
	case tokEOF:
		return "end of input"
	case tokInt:
		return "integer"
	case tokString:
		return "string"
	case tokIdent:
		return "identifier"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokEq:
		return "'=='"
	default:
		return "unknown"
	}
}

type token struct {
	kind tokenKind
	text string
	pos  int
}

// SyntaxError describes malformed condition text.
type SyntaxError struct {
	Pos int
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at offset %d: %s", e.Pos, e.Msg)
}

type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	lx := &lexer{src: src}
	var tokens []token
	for {
		tok, err := lx.next()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.kind == tokEOF {
			return tokens, nil
		}
	}
}

func (lx *lexer) next() (token, error) {
	lx.skipSpace()
	if lx.pos >= len(lx.src) {
		return token{kind: tokEOF, pos: lx.pos}, nil
	}

	start := lx.pos
	c := lx.src[lx.pos]
	switch {
	case c == '[':
		lx.pos++
		return token{kind: tokLBracket, text: "[", pos: start}, nil
	case c == ']':
		lx.pos++
		return token{kind: tokRBracket, text: "]", pos: start}, nil
	case c == '=':
		if lx.pos+1 < len(lx.src) && lx.src[lx.pos+1] == '=' {
			lx.pos += 2
			return token{kind: tokEq, text: "==", pos: start}, nil
		}
		return token{}, &SyntaxError{Pos: start, Msg: "expected '=='"}
	case c == '"' || c == '\'':
		return lx.quoted(c)
	case c == '-' || isDigit(c):
		return lx.integer()
	case isIdentStart(c):
		for lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
			lx.pos++
		}
		return token{kind: tokIdent, text: lx.src[start:lx.pos], pos: start}, nil
	default:
		return token{}, &SyntaxError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", c)}
	}
}

func (lx *lexer) skipSpace() {
	for lx.pos < len(lx.src) {
		switch lx.src[lx.pos] {
		case ' ', '\t', '\n', '\r':
			lx.pos++
		default:
			return
		}
	}
}

func (lx *lexer) quoted(quote byte) (token, error) {
	start := lx.pos
	lx.pos++

	var sb strings.Builder
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == quote:
			lx.pos++
			return token{kind: tokString, text: sb.String(), pos: start}, nil
		case c == '\\':
			if lx.pos+1 >= len(lx.src) {
				return token{}, &SyntaxError{Pos: lx.pos, Msg: "dangling escape"}
			}
			sb.WriteByte(unescape(lx.src[lx.pos+1]))
			lx.pos += 2
		default:
			sb.WriteByte(c)
			lx.pos++
		}
	}
	return token{}, &SyntaxError{Pos: start, Msg: "unterminated string literal"}
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return c
	}
}

func (lx *lexer) integer() (token, error) {
	start := lx.pos
	if lx.src[lx.pos] == '-' {
		lx.pos++
	}
	digits := lx.pos
	for lx.pos < len(lx.src) && isDigit(lx.src[lx.pos]) {
		lx.pos++
	}
	if lx.pos == digits {
		return token{}, &SyntaxError{Pos: start, Msg: "expected digits after '-'"}
	}
	if lx.pos < len(lx.src) && isIdentPart(lx.src[lx.pos]) {
		return token{}, &SyntaxError{Pos: lx.pos, Msg: "malformed integer literal"}
	}
	return token{kind: tokInt, text: lx.src[start:lx.pos], pos: start}, nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }
