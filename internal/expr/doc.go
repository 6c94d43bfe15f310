// Package expr parses and evaluates resolved rule expressions.
//
// Grammar (keywords case-insensitive):
//
//	expr       = or
//	or         = and { "or" and }
//	and        = unary { "and" unary }
//	unary      = "not" unary | primary
//	primary    = "(" expr ")" | comparison
//	comparison = fieldRef op ( fieldRef | literal )
//	fieldRef   = ( "internal" | "mis" ) "." ident
//	op         = "==" | "!=" | ">" | "<" | ">=" | "<="
//	literal    = number | string | "null"
//
// An expression is parsed once into a Program and evaluated against many
// record pairs - decision points never re-inspect raw strings.
//
// Two evaluation paths exist on purpose. Matches short-circuits at the
// boolean connectives and answers only the decision. Explain evaluates
// every leaf comparison and returns evidence for each one in source
// order, so a full failure report is always available; short-circuiting
// is a performance discipline for decision, never for evidence.
package expr
