package search

import "strings"

// Emitter renders SQL fragments for one database dialect. AST nodes decide
// the shape of a predicate; the emitter decides how every piece is spelled.
type Emitter interface {
	// Literal returns value as a quoted SQL string literal.
	Literal(value string) string
	// Lower wraps expr in the dialect's lower-case function.
	Lower(expr string) string
	// LikePattern returns a lower-cased LIKE pattern literal followed by its
	// ESCAPE clause. value is escaped; prefix and suffix are raw pattern text.
	LikePattern(prefix, value, suffix string) string
	// ValueColumn is the metadata value column visible inside MetadataPredicate.
	ValueColumn() string
	// ClassColumn is the UPnP class column of the searched object.
	ClassColumn() string
	// MetadataPredicate wraps cond in a correlated subquery that holds when
	// the object has a metadata row named property satisfying cond. negate
	// inverts the whole predicate.
	MetadataPredicate(property, cond string, negate bool) string
	// SortColumn maps a sortable property to an object column.
	SortColumn(property string) (string, bool)
	// MatchAll is a predicate that is always true.
	MatchAll() string
	Paren(expr string) string
	And(lhs, rhs string) string
	Or(lhs, rhs string) string
}

// DefaultEmitter renders ANSI-flavored SQL against the catalog tables. Backends
// customize it through Quote and the table names.
type DefaultEmitter struct {
	// Quote turns a Go string into a SQL literal.
	Quote func(string) string

	ObjectAlias   string
	MetadataTable string
	MetadataAlias string
}

// NewDefaultEmitter returns an emitter for the standard catalog layout: object
// rows aliased as f, metadata rows in mt_metadata.
func NewDefaultEmitter(quote func(string) string) *DefaultEmitter {
	return &DefaultEmitter{
		Quote:         quote,
		ObjectAlias:   "f",
		MetadataTable: "mt_metadata",
		MetadataAlias: "m",
	}
}

var sortColumns = map[string]string{
	"@id":        "id",
	"@parentid":  "parent_id",
	"@refid":     "ref_id",
	"dc:title":   "dc_title",
	"upnp:class": "upnp_class",
}

func (e *DefaultEmitter) Literal(value string) string { return e.Quote(value) }

func (e *DefaultEmitter) Lower(expr string) string { return "LOWER(" + expr + ")" }

func (e *DefaultEmitter) LikePattern(prefix, value, suffix string) string {
	return e.Lower(e.Quote(prefix+escapeLike(value)+suffix)) + " ESCAPE " + e.Quote(`\`)
}

func (e *DefaultEmitter) ValueColumn() string { return e.MetadataAlias + ".property_value" }

func (e *DefaultEmitter) ClassColumn() string { return e.ObjectAlias + ".upnp_class" }

func (e *DefaultEmitter) MetadataPredicate(property, cond string, negate bool) string {
	m := e.MetadataAlias
	var b strings.Builder
	b.WriteByte('(')
	if negate {
		b.WriteString("NOT ")
	}
	b.WriteString("EXISTS (SELECT 1 FROM ")
	b.WriteString(e.MetadataTable)
	b.WriteByte(' ')
	b.WriteString(m)
	b.WriteString(" WHERE ")
	b.WriteString(m + ".item_id = " + e.ObjectAlias + ".id")
	b.WriteString(" AND ")
	b.WriteString(e.Lower(m+".property_name") + " = " + e.Lower(e.Quote(property)))
	b.WriteString(" AND ")
	b.WriteString(cond)
	b.WriteString("))")
	return b.String()
}

func (e *DefaultEmitter) SortColumn(property string) (string, bool) {
	col, ok := sortColumns[strings.ToLower(property)]
	if !ok {
		return "", false
	}
	return e.ObjectAlias + "." + col, true
}

func (e *DefaultEmitter) MatchAll() string { return "1 = 1" }

func (e *DefaultEmitter) Paren(expr string) string { return "(" + expr + ")" }

func (e *DefaultEmitter) And(lhs, rhs string) string { return lhs + " AND " + rhs }

func (e *DefaultEmitter) Or(lhs, rhs string) string { return lhs + " OR " + rhs }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
