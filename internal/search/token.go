package search

import "fmt"

// Kind classifies a token.
type Kind int

// Token kinds.
const (
	KindEOF Kind = iota
	KindProperty
	KindCompareOp
	KindStringOp
	KindExists
	KindAnd
	KindOr
	KindBoolVal
	KindDQuote
	KindEscapedString
	KindLParen
	KindRParen
	KindAsterisk
)

var kindNames = [...]string{
	KindEOF:           "EOF",
	KindProperty:      "property",
	KindCompareOp:     "compare operator",
	KindStringOp:      "string operator",
	KindExists:        "exists",
	KindAnd:           "and",
	KindOr:            "or",
	KindBoolVal:       "boolean",
	KindDQuote:        "quote",
	KindEscapedString: "string",
	KindLParen:        "'('",
	KindRParen:        "')'",
	KindAsterisk:      "'*'",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Token is one lexical unit of a criteria string. Keyword values (operators,
// and/or, exists, booleans) are lower-cased; property names and strings keep
// their original spelling.
type Token struct {
	Kind  Kind
	Value string
	// Pos is the byte offset of the token in the input.
	Pos int
}

func (t Token) String() string {
	if t.Kind == KindEOF {
		return "EOF"
	}
	return fmt.Sprintf("%s %q", t.Kind, t.Value)
}

// String operators.
const (
	OpContains       = "contains"
	OpDoesNotContain = "doesnotcontain"
	OpStartsWith     = "startswith"
	OpDerivedFrom    = "derivedfrom"
)

var keywords = map[string]Kind{
	"and":            KindAnd,
	"or":             KindOr,
	"exists":         KindExists,
	"true":           KindBoolVal,
	"false":          KindBoolVal,
	OpContains:       KindStringOp,
	OpDoesNotContain: KindStringOp,
	OpStartsWith:     KindStringOp,
	OpDerivedFrom:    KindStringOp,
}
