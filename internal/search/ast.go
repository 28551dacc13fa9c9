package search

import (
	"fmt"
	"strconv"
	"strings"
)

// Node is one element of a parsed criteria expression.
type Node interface {
	// Emit renders the node as a SQL predicate.
	Emit(e Emitter) (string, error)
	// String renders the node back as criteria text.
	String() string
}

// Or matches when either side matches.
type Or struct{ L, R Node }

// And matches when both sides match.
type And struct{ L, R Node }

// Paren groups an expression.
type Paren struct{ Inner Node }

// Compare is a relational comparison of a property value.
type Compare struct {
	Property string
	Op       string
	Value    string
}

// StringMatch is a contains/doesnotcontain/startswith/derivedfrom predicate.
type StringMatch struct {
	Property string
	Op       string
	Value    string
}

// Exists tests whether a property is present (Want) or absent (!Want).
type Exists struct {
	Property string
	Want     bool
}

// Asterisk matches every object.
type Asterisk struct{}

func (n *Or) Emit(e Emitter) (string, error) {
	l, r, err := emitPair(e, n.L, n.R)
	if err != nil {
		return "", err
	}
	return e.Or(l, r), nil
}

func (n *Or) String() string { return n.L.String() + " or " + n.R.String() }

func (n *And) Emit(e Emitter) (string, error) {
	l, r, err := emitPair(e, n.L, n.R)
	if err != nil {
		return "", err
	}
	return e.And(l, r), nil
}

func (n *And) String() string { return n.L.String() + " and " + n.R.String() }

func (n *Paren) Emit(e Emitter) (string, error) {
	inner, err := n.Inner.Emit(e)
	if err != nil {
		return "", err
	}
	return e.Paren(inner), nil
}

func (n *Paren) String() string { return "(" + n.Inner.String() + ")" }

var compareOps = map[string]bool{"=": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}

func (n *Compare) Emit(e Emitter) (string, error) {
	if !compareOps[n.Op] {
		return "", fmt.Errorf("unsupported compare operator %q", n.Op)
	}
	cond := e.Lower(e.ValueColumn()) + " " + n.Op + " " + e.Lower(e.Literal(n.Value))
	return e.MetadataPredicate(n.Property, cond, false), nil
}

func (n *Compare) String() string {
	return n.Property + " " + n.Op + " " + quoteCriteria(n.Value)
}

func (n *StringMatch) Emit(e Emitter) (string, error) {
	value := e.Lower(e.ValueColumn())
	switch strings.ToLower(n.Op) {
	case OpContains:
		return e.MetadataPredicate(n.Property, value+" LIKE "+e.LikePattern("%", n.Value, "%"), false), nil
	case OpDoesNotContain:
		return e.MetadataPredicate(n.Property, value+" NOT LIKE "+e.LikePattern("%", n.Value, "%"), false), nil
	case OpStartsWith:
		return e.MetadataPredicate(n.Property, value+" LIKE "+e.LikePattern("", n.Value, "%"), false), nil
	case OpDerivedFrom:
		class := e.Lower(e.ClassColumn())
		return e.Paren(e.Or(
			class+" = "+e.Lower(e.Literal(n.Value)),
			class+" LIKE "+e.LikePattern("", n.Value, ".%"),
		)), nil
	}
	return "", fmt.Errorf("unsupported string operator %q", n.Op)
}

func (n *StringMatch) String() string {
	return n.Property + " " + strings.ToLower(n.Op) + " " + quoteCriteria(n.Value)
}

func (n *Exists) Emit(e Emitter) (string, error) {
	return e.MetadataPredicate(n.Property, e.ValueColumn()+" IS NOT NULL", !n.Want), nil
}

func (n *Exists) String() string {
	return n.Property + " exists " + strconv.FormatBool(n.Want)
}

func (Asterisk) Emit(e Emitter) (string, error) { return e.MatchAll(), nil }

func (Asterisk) String() string { return "*" }

func emitPair(e Emitter, l, r Node) (string, string, error) {
	ls, err := l.Emit(e)
	if err != nil {
		return "", "", err
	}
	rs, err := r.Emit(e)
	if err != nil {
		return "", "", err
	}
	return ls, rs, nil
}

var criteriaEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func quoteCriteria(s string) string {
	return `"` + criteriaEscaper.Replace(s) + `"`
}
