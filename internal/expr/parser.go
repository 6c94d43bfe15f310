package expr

import (
	"strconv"
	"strings"

	"github.com/reconlens/reconlens/internal/recon"
)

// Program is a parsed rule expression, ready to evaluate against record
// pairs. Parse once, evaluate many times; a Program is immutable and
// safe for concurrent use.
type Program struct {
	src    string
	root   node
	leaves []*comparison
}

// Source returns the expression text the program was parsed from.
func (p *Program) Source() string { return p.src }

// LeafCount returns the number of atomic comparisons in the program.
func (p *Program) LeafCount() int { return len(p.leaves) }

// Parse compiles rule text into a Program. Errors carry the
// MALFORMED_EXPRESSION or UNKNOWN_FIELD_REFERENCE code and the byte
// offset of the problem.
func Parse(src string) (*Program, error) {
	tokens, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, newMalformedError(p.peek().offset, "unexpected %q after expression", p.peek().text)
	}
	return &Program{src: src, root: root, leaves: p.leaves}, nil
}

type parser struct {
	tokens []token
	pos    int
	leaves []*comparison
}

func (p *parser) peek() token { return p.tokens[p.pos] }

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	kids := []node{left}
	for p.peek().kind == tokOr {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		kids = append(kids, right)
	}
	if len(kids) == 1 {
		return left, nil
	}
	return &logicalNode{op: opOr, kids: kids}, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	kids := []node{left}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		kids = append(kids, right)
	}
	if len(kids) == 1 {
		return left, nil
	}
	return &logicalNode{op: opAnd, kids: kids}, nil
}

func (p *parser) parseUnary() (node, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notNode{x: inner}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	switch p.peek().kind {
	case tokLParen:
		open := p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, newMalformedError(open.offset, "unclosed parenthesis")
		}
		p.next()
		return inner, nil
	case tokIdent:
		return p.parseComparison()
	default:
		return nil, newMalformedError(p.peek().offset, "expected comparison or parenthesized expression, got %q", p.peek().text)
	}
}

func (p *parser) parseComparison() (node, error) {
	lhsTok := p.next()
	lhs, err := parseFieldRef(lhsTok)
	if err != nil {
		return nil, err
	}

	opTok := p.next()
	if opTok.kind != tokOp {
		return nil, newMalformedError(opTok.offset, "expected comparison operator, got %q", opTok.text)
	}
	op, ok := cmpOps[opTok.text]
	if !ok {
		return nil, newMalformedError(opTok.offset, "unknown operator %q", opTok.text)
	}

	cmp := &comparison{index: len(p.leaves), lhs: lhs, op: op}

	rhsTok := p.next()
	switch rhsTok.kind {
	case tokIdent:
		ref, err := parseFieldRef(rhsTok)
		if err != nil {
			return nil, err
		}
		cmp.rhsRef = &ref
	case tokNumber:
		f, err := strconv.ParseFloat(rhsTok.text, 64)
		if err != nil {
			return nil, newMalformedError(rhsTok.offset, "invalid number %q", rhsTok.text)
		}
		cmp.rhsLit = recon.Number(f)
	case tokString:
		cmp.rhsLit = recon.String(rhsTok.text)
	case tokNull:
		cmp.rhsLit = recon.Null{}
	default:
		return nil, newMalformedError(rhsTok.offset, "expected field reference or literal, got %q", rhsTok.text)
	}

	cmp.text = cmp.render()
	p.leaves = append(p.leaves, cmp)
	return cmp, nil
}

// fieldRef names a field on one side of the pair.
type fieldRef struct {
	side  recon.Side
	field string
}

func (r fieldRef) String() string { return string(r.side) + "." + r.field }

// parseFieldRef splits a dotted identifier into side and field name.
// Side names other than internal/mis fail with UNKNOWN_FIELD_REFERENCE:
// the evaluation context exposes exactly two sides.
func parseFieldRef(tok token) (fieldRef, error) {
	dot := strings.IndexByte(tok.text, '.')
	if dot < 0 {
		return fieldRef{}, newMalformedError(tok.offset, "field reference %q must be side.field", tok.text)
	}
	side := strings.ToLower(tok.text[:dot])
	field := tok.text[dot+1:]
	if field == "" || strings.Contains(field, ".") {
		return fieldRef{}, newMalformedError(tok.offset, "field reference %q must be side.field", tok.text)
	}
	switch recon.Side(side) {
	case recon.SideInternal, recon.SideMIS:
		return fieldRef{side: recon.Side(side), field: field}, nil
	default:
		return fieldRef{}, newUnknownFieldError(tok.offset, tok.text)
	}
}

type cmpOp int

const (
	opEq cmpOp = iota
	opNe
	opGt
	opLt
	opGe
	opLe
)

var cmpOps = map[string]cmpOp{
	"==": opEq,
	"!=": opNe,
	">":  opGt,
	"<":  opLt,
	">=": opGe,
	"<=": opLe,
}

var cmpOpText = map[cmpOp]string{
	opEq: "==",
	opNe: "!=",
	opGt: ">",
	opLt: "<",
	opGe: ">=",
	opLe: "<=",
}
