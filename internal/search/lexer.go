package search

import (
	"fmt"
	"strings"
)

type quoteState int

const (
	outsideQuotes quoteState = iota
	// openQuote: the opening quote was returned, the string body is next.
	openQuote
	// closeQuote: the string body was returned, the closing quote is next.
	closeQuote
)

// Lexer produces tokens from a criteria string on demand. After the input is
// exhausted every call to Next returns an EOF token.
type Lexer struct {
	input string
	pos   int
	quote quoteState
}

// NewLexer returns a lexer positioned at the start of input.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Reset rewinds the lexer to the start of its input.
func (l *Lexer) Reset() {
	l.pos = 0
	l.quote = outsideQuotes
}

// All returns every remaining token, excluding the final EOF.
func (l *Lexer) All() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		if tok.Kind == KindEOF {
			return tokens, nil
		}
		tokens = append(tokens, tok)
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	switch l.quote {
	case openQuote:
		return l.quotedString()
	case closeQuote:
		// quotedString only stops at an unescaped quote.
		l.quote = outsideQuotes
		tok := Token{Kind: KindDQuote, Value: `"`, Pos: l.pos}
		l.pos++
		return tok, nil
	}

	for l.pos < len(l.input) && isSpace(l.input[l.pos]) {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Kind: KindEOF, Pos: l.pos}, nil
	}

	start := l.pos
	ch := l.input[l.pos]
	switch ch {
	case '(':
		l.pos++
		return Token{Kind: KindLParen, Value: "(", Pos: start}, nil
	case ')':
		l.pos++
		return Token{Kind: KindRParen, Value: ")", Pos: start}, nil
	case '*':
		l.pos++
		return Token{Kind: KindAsterisk, Value: "*", Pos: start}, nil
	case '=':
		l.pos++
		return Token{Kind: KindCompareOp, Value: "=", Pos: start}, nil
	case '<', '>', '!':
		l.pos++
		if l.pos < len(l.input) && l.input[l.pos] == '=' {
			l.pos++
			return Token{Kind: KindCompareOp, Value: l.input[start:l.pos], Pos: start}, nil
		}
		if ch == '!' {
			return Token{}, &LexError{Pos: start, Msg: "'!' must be followed by '='"}
		}
		return Token{Kind: KindCompareOp, Value: string(ch), Pos: start}, nil
	case '"':
		l.pos++
		l.quote = openQuote
		return Token{Kind: KindDQuote, Value: `"`, Pos: start}, nil
	}

	if !isPropertyChar(ch) {
		return Token{}, &LexError{Pos: start, Msg: fmt.Sprintf("unexpected character %q", rune(ch))}
	}
	for l.pos < len(l.input) && isPropertyChar(l.input[l.pos]) {
		l.pos++
	}
	word := l.input[start:l.pos]
	lower := strings.ToLower(word)
	if kind, ok := keywords[lower]; ok {
		return Token{Kind: kind, Value: lower, Pos: start}, nil
	}
	return Token{Kind: KindProperty, Value: word, Pos: start}, nil
}

// quotedString reads the body of a quoted string up to, but not including,
// the closing quote.
func (l *Lexer) quotedString() (Token, error) {
	start := l.pos
	var b strings.Builder
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case ch == '"':
			l.quote = closeQuote
			return Token{Kind: KindEscapedString, Value: b.String(), Pos: start}, nil
		case ch == '\\' && l.pos+1 < len(l.input) && (l.input[l.pos+1] == '"' || l.input[l.pos+1] == '\\'):
			b.WriteByte(l.input[l.pos+1])
			l.pos += 2
		default:
			b.WriteByte(ch)
			l.pos++
		}
	}
	return Token{}, &LexError{Pos: start - 1, Msg: "unterminated quoted string"}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isPropertyChar(ch byte) bool {
	switch {
	case 'a' <= ch && ch <= 'z', 'A' <= ch && ch <= 'Z', '0' <= ch && ch <= '9':
		return true
	case ch == ':' || ch == '@' || ch == '.' || ch == '_' || ch == '-':
		return true
	}
	return false
}
