package search

import "fmt"

// Parse builds the AST for criteria.
func Parse(criteria string) (Node, error) {
	p := &parser{lex: NewLexer(criteria)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	switch p.tok.Kind {
	case KindEOF:
		return nil, p.errorf("empty search criteria")
	case KindAsterisk:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.Kind != KindEOF {
			return nil, p.errorf("unexpected %s after '*'", p.tok)
		}
		return Asterisk{}, nil
	}

	node, err := p.orExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind != KindEOF {
		return nil, p.errorf("unexpected %s after expression", p.tok)
	}
	return node, nil
}

type parser struct {
	lex *Lexer
	tok Token
}

func (p *parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = tok
	return nil
}

func (p *parser) errorf(format string, args ...any) error {
	return &ParseError{Pos: p.tok.Pos, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(kind Kind) (Token, error) {
	if p.tok.Kind != kind {
		return Token{}, p.errorf("expected %s, got %s", kind, p.tok)
	}
	tok := p.tok
	return tok, p.advance()
}

func (p *parser) orExpr() (Node, error) {
	left, err := p.andExpr()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == KindOr {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.andExpr()
		if err != nil {
			return nil, err
		}
		left = &Or{L: left, R: right}
	}
	return left, nil
}

func (p *parser) andExpr() (Node, error) {
	left, err := p.predicate()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == KindAnd {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.predicate()
		if err != nil {
			return nil, err
		}
		left = &And{L: left, R: right}
	}
	return left, nil
}

func (p *parser) predicate() (Node, error) {
	switch p.tok.Kind {
	case KindLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.orExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(KindRParen); err != nil {
			return nil, err
		}
		return &Paren{Inner: inner}, nil
	case KindProperty:
	default:
		return nil, p.errorf("expected property or '(', got %s", p.tok)
	}

	property := p.tok.Value
	if err := p.advance(); err != nil {
		return nil, err
	}

	op := p.tok
	switch op.Kind {
	case KindCompareOp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.quotedString()
		if err != nil {
			return nil, err
		}
		return &Compare{Property: property, Op: op.Value, Value: value}, nil
	case KindStringOp:
		if err := p.advance(); err != nil {
			return nil, err
		}
		value, err := p.quotedString()
		if err != nil {
			return nil, err
		}
		return &StringMatch{Property: property, Op: op.Value, Value: value}, nil
	case KindExists:
		if err := p.advance(); err != nil {
			return nil, err
		}
		b, err := p.expect(KindBoolVal)
		if err != nil {
			return nil, err
		}
		return &Exists{Property: property, Want: b.Value == "true"}, nil
	}
	return nil, p.errorf("expected operator after property %q, got %s", property, op)
}

func (p *parser) quotedString() (string, error) {
	if _, err := p.expect(KindDQuote); err != nil {
		return "", err
	}
	s, err := p.expect(KindEscapedString)
	if err != nil {
		return "", err
	}
	if _, err := p.expect(KindDQuote); err != nil {
		return "", err
	}
	return s.Value, nil
}
