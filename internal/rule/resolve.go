package rule

import (
	"strconv"
	"strings"
)

// Resolver expands a mapping entry's composed rule expression into fully
// self-contained rule text by substituting each referenced fragment ID
// with the fragment's expression in parentheses, recursively.
//
// Substitution is token-aware, not textual: an integer token counts as a
// fragment reference only in connective position (at the start of the
// expression or after "and", "or", "not", or "("), never as a comparison
// operand. This keeps numeric literals like the 100 in
// "internal.amount > 100" intact, and ID 1 can never corrupt the digits
// of ID 12.
//
// Each expansion pass substitutes every reference token left to right in
// one rebuild; since each pass touches each reference exactly once, the
// result is byte-identical to ascending-ID one-at-a-time substitution.
// Passes repeat until no reference tokens remain; exceeding the bound
// (fragment count + 1) signals a cyclic definition.
//
// A Resolver caches results per entry ID. It is not safe for concurrent
// use - resolve everything during snapshot construction, then share the
// resolved text freely.
type Resolver struct {
	store *Store
	cache map[int64]string
}

// NewResolver creates a Resolver over a fragment store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store, cache: make(map[int64]string)}
}

// Resolve expands the entry's rule expression. The result is cached per
// entry ID for the lifetime of the resolver.
func (r *Resolver) Resolve(entry MappingEntry) (string, error) {
	if cached, ok := r.cache[entry.ID]; ok {
		return cached, nil
	}

	expanded := canonicalize(entry.RuleExpression)
	bound := r.store.Len() + 1

	for pass := 0; ; pass++ {
		if pass > bound {
			return "", NewCyclicReferenceError(entry.ID, pass)
		}
		next, substituted, err := r.substituteOnce(entry.ID, expanded)
		if err != nil {
			return "", err
		}
		expanded = next
		if substituted == 0 {
			break
		}
	}

	r.cache[entry.ID] = expanded
	return expanded, nil
}

// substituteOnce performs one expansion pass: every reference-position
// integer token is replaced with its fragment's expression in
// parentheses. Returns the rebuilt expression and how many substitutions
// were made.
func (r *Resolver) substituteOnce(entryID int64, expr string) (string, int, error) {
	tokens := scanTokens(expr)
	var b exprBuilder
	substituted := 0

	for i, tok := range tokens {
		if !isReferenceToken(tokens, i) {
			b.write(tok)
			continue
		}
		id, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			// Integer overflow in a reference position cannot name a
			// stored fragment.
			return "", 0, NewUnknownReferenceError(entryID, 0)
		}
		frag, ok := r.store.Get(id)
		if !ok {
			return "", 0, NewUnknownReferenceError(entryID, id)
		}
		b.write("(")
		for _, inner := range scanTokens(frag.Expression) {
			b.write(inner)
		}
		b.write(")")
		substituted++
	}

	return b.String(), substituted, nil
}

// isReferenceToken reports whether the integer token at index i sits in
// connective position. Non-integer tokens are never references.
func isReferenceToken(tokens []string, i int) bool {
	if !isInteger(tokens[i]) {
		return false
	}
	if i > 0 && !isConnectiveBefore(tokens[i-1]) {
		return false
	}
	if i+1 < len(tokens) && !isConnectiveAfter(tokens[i+1]) {
		return false
	}
	return true
}

func isConnectiveBefore(tok string) bool {
	switch strings.ToLower(tok) {
	case "and", "or", "not", "(":
		return true
	}
	return false
}

func isConnectiveAfter(tok string) bool {
	switch strings.ToLower(tok) {
	case "and", "or", ")":
		return true
	}
	return false
}

func isInteger(tok string) bool {
	if tok == "" {
		return false
	}
	for _, c := range tok {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// canonicalize normalizes an expression's spacing so resolution output
// is byte-stable regardless of how the source rows were formatted.
func canonicalize(expr string) string {
	var b exprBuilder
	for _, tok := range scanTokens(expr) {
		b.write(tok)
	}
	return b.String()
}

// scanTokens splits rule text into coarse tokens: parens, comparison
// operators, quoted strings, and runs of everything else (identifiers,
// dotted field refs, numbers, keywords). It deliberately knows nothing
// about grammar - full parsing is internal/expr's job; the resolver only
// needs token boundaries.
func scanTokens(expr string) []string {
	var tokens []string
	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, string(c))
			i++
		case c == '\'' || c == '"':
			// Quoted string literal: consume through the closing quote.
			// An unterminated quote swallows the rest; the parser reports
			// the malformed expression later.
			quote := c
			j := i + 1
			for j < len(expr) && expr[j] != quote {
				j++
			}
			if j < len(expr) {
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		case isOpByte(c):
			j := i + 1
			if j < len(expr) && expr[j] == '=' {
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		default:
			j := i
			for j < len(expr) && !isBoundaryByte(expr[j]) {
				j++
			}
			tokens = append(tokens, expr[i:j])
			i = j
		}
	}
	return tokens
}

func isOpByte(c byte) bool {
	return c == '=' || c == '!' || c == '<' || c == '>'
}

func isBoundaryByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' ||
		c == '(' || c == ')' || c == '\'' || c == '"' || isOpByte(c)
}

// exprBuilder joins tokens with single spaces, tight against
// parentheses.
type exprBuilder struct {
	sb strings.Builder
}

func (b *exprBuilder) write(tok string) {
	if b.sb.Len() > 0 && tok != ")" {
		last := b.sb.String()[b.sb.Len()-1]
		if last != '(' {
			b.sb.WriteByte(' ')
		}
	}
	b.sb.WriteString(tok)
}

func (b *exprBuilder) String() string { return b.sb.String() }
