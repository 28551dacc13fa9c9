package search

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by errors.Is against LexError and ParseError.
var (
	ErrLex   = errors.New("search criteria lex error")
	ErrParse = errors.New("search criteria parse error")
)

// LexError reports input the lexer cannot tokenize.
type LexError struct {
	Pos int
	Msg string
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at position %d: %s", e.Pos, e.Msg)
}

// Is reports whether target is ErrLex.
func (e *LexError) Is(target error) bool { return target == ErrLex }

// ParseError reports a token sequence that does not match the grammar.
type ParseError struct {
	Pos int
	Msg string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at position %d: %s", e.Pos, e.Msg)
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool { return target == ErrParse }
