package expression

import (
	"fmt"
	"strconv"

	"treeservice/domain/core/valueobjects"
)

// Operand is one side of a comparison: either a literal or a config lookup.
type Operand struct {
	literal valueobjects.AttributeValue
	key     string
	lookup  bool
}

// IsLookup reports whether the operand reads config[key]
func (o Operand) IsLookup() bool { return o.lookup }

// Key returns the looked-up attribute name
func (o Operand) Key() string { return o.key }

// Literal returns the literal value; invalid for lookups
func (o Operand) Literal() valueobjects.AttributeValue { return o.literal }

func (o Operand) String() string {
	if o.lookup {
		return "config[" + strconv.Quote(o.key) + "]"
	}
	return o.literal.String()
}

// Expression is a parsed `operand == operand` condition.
type Expression struct {
	Left  Operand
	Right Operand
}

func (e Expression) String() string {
	return e.Left.String() + " == " + e.Right.String()
}

// Keys returns the configuration keys the expression reads
func (e Expression) Keys() []string {
	var keys []string
	for _, op := range []Operand{e.Left, e.Right} {
		if op.lookup {
			keys = append(keys, op.key)
		}
	}
	return keys
}

// Parse parses condition text. Empty text is not an expression and is
// rejected here; Evaluate handles it before parsing.
func Parse(text string) (Expression, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return Expression{}, err
	}

	p := &parser{tokens: tokens}
	left, err := p.operand()
	if err != nil {
		return Expression{}, err
	}
	if _, err := p.expect(tokEq); err != nil {
		return Expression{}, err
	}
	right, err := p.operand()
	if err != nil {
		return Expression{}, err
	}
	if _, err := p.expect(tokEOF); err != nil {
		return Expression{}, err
	}
	return Expression{Left: left, Right: right}, nil
}

type parser struct {
	tokens []token
	pos    int
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) advance() token {
	tok := p.tokens[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.advance()
	if tok.kind != kind {
		return tok, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected %s, found %s", kind, describe(tok))}
	}
	return tok, nil
}

func (p *parser) operand() (Operand, error) {
	tok := p.advance()
	switch tok.kind {
	case tokInt:
		v, err := strconv.ParseInt(tok.text, 10, 64)
		if err != nil {
			return Operand{}, &SyntaxError{Pos: tok.pos, Msg: "integer literal out of range"}
		}
		return Operand{literal: valueobjects.IntValue(v)}, nil
	case tokString:
		return Operand{literal: valueobjects.StringValue(tok.text)}, nil
	case tokIdent:
		switch tok.text {
		case "true":
			return Operand{literal: valueobjects.BoolValue(true)}, nil
		case "false":
			return Operand{literal: valueobjects.BoolValue(false)}, nil
		case "config":
			return p.lookup()
		}
		return Operand{}, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unknown identifier %q", tok.text)}
	default:
		return Operand{}, &SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("expected operand, found %s", describe(tok))}
	}
}

func (p *parser) lookup() (Operand, error) {
	if _, err := p.expect(tokLBracket); err != nil {
		return Operand{}, err
	}
	key, err := p.expect(tokString)
	if err != nil {
		return Operand{}, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return Operand{}, err
	}
	return Operand{key: key.text, lookup: true}, nil
}

func describe(tok token) string {
	if tok.kind == tokEOF {
		return tok.kind.String()
	}
	return fmt.Sprintf("%s %q", tok.kind, tok.text)
}
