// Package search compiles UPnP ContentDirectory search criteria into SQL
// predicates.
//
// Compilation runs in three stages. The [Lexer] splits the criteria string
// into tokens, the parser builds an AST of [Node] values by recursive descent,
// and each node renders itself through an [Emitter]. The emitter owns every
// dialect-specific decision (literal quoting, LIKE escaping, table and column
// names), so one AST serves every storage backend.
//
// Grammar, lowest precedence first:
//
//	orExpr       := andExpr ( "or" andExpr )*
//	andExpr      := predicate ( "and" predicate )*
//	predicate    := "(" orExpr ")"
//	              | property compareOp quotedString
//	              | property stringOp quotedString
//	              | property "exists" boolVal
//	quotedString := '"' escapedString '"'
//
// A criteria string consisting of a single "*" matches every object.
//
// Property comparisons become correlated EXISTS subqueries against the
// metadata side table. The one exception is "derivedfrom", which always
// compiles to a prefix match on the object's class column:
//
//	sql, err := search.Compile(`upnp:class derivedfrom "object.item.audioItem"`, emitter)
//
// Malformed input fails with a [*LexError] or [*ParseError]; the compiler
// never guesses or recovers.
package search
