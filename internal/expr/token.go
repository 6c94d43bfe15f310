package expr

import (
	"strings"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokNull
	tokAnd
	tokOr
	tokNot
	tokLParen
	tokRParen
	tokOp // ==, !=, >, <, >=, <=
)

type token struct {
	kind   tokenKind
	text   string
	offset int
}

// lex splits an expression into tokens. Keywords are matched
// case-insensitively; identifiers keep their original spelling and may
// contain dots (field references arrive as one token).
func lex(src string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			tokens = append(tokens, token{tokLParen, "(", i})
			i++
		case c == ')':
			tokens = append(tokens, token{tokRParen, ")", i})
			i++

		case c == '\'' || c == '"':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				return nil, newMalformedError(i, "unterminated string literal")
			}
			tokens = append(tokens, token{tokString, src[i+1 : j], i})
			i = j + 1

		case c == '=' || c == '!':
			if i+1 >= len(src) || src[i+1] != '=' {
				return nil, newMalformedError(i, "unexpected character %q", string(c))
			}
			tokens = append(tokens, token{tokOp, src[i : i+2], i})
			i += 2

		case c == '<' || c == '>':
			j := i + 1
			if j < len(src) && src[j] == '=' {
				j++
			}
			tokens = append(tokens, token{tokOp, src[i:j], i})
			i = j

		case c >= '0' && c <= '9':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			tokens = append(tokens, token{tokNumber, src[i:j], i})
			i = j

		case isIdentByte(c):
			j := i
			for j < len(src) && (isIdentByte(src[j]) || src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			word := src[i:j]
			switch strings.ToLower(word) {
			case "and":
				tokens = append(tokens, token{tokAnd, word, i})
			case "or":
				tokens = append(tokens, token{tokOr, word, i})
			case "not":
				tokens = append(tokens, token{tokNot, word, i})
			case "null":
				tokens = append(tokens, token{tokNull, word, i})
			default:
				tokens = append(tokens, token{tokIdent, word, i})
			}
			i = j

		default:
			return nil, newMalformedError(i, "unexpected character %q", string(c))
		}
	}
	tokens = append(tokens, token{tokEOF, "", len(src)})
	return tokens, nil
}

func isIdentByte(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}
