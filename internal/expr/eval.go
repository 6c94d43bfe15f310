package expr

import (
	"github.com/reconlens/reconlens/internal/recon"
)

// Matches evaluates the program against a pair and returns only the
// decision. Boolean connectives short-circuit; no evidence is collected.
func (p *Program) Matches(pair recon.RecordPair) bool {
	return p.root.matches(pair)
}

// Explain evaluates every leaf comparison against the pair and returns
// the decision together with evidence for each leaf in source order.
// Nothing short-circuits here: the full failure report is the point.
func (p *Program) Explain(pair recon.RecordPair) (bool, []recon.FieldEvidence) {
	results := make([]bool, len(p.leaves))
	evidence := make([]recon.FieldEvidence, len(p.leaves))
	for i, leaf := range p.leaves {
		matched, ev := leaf.evaluate(pair)
		results[i] = matched
		evidence[i] = ev
	}
	return p.root.combine(results), evidence
}

// node is the sealed AST node interface. matches is the short-circuit
// decision path; combine folds precomputed leaf results (indexed by
// comparison position) for the evidence path.
type node interface {
	matches(pair recon.RecordPair) bool
	combine(results []bool) bool
}

type logicOp int

const (
	opAnd logicOp = iota
	opOr
)

type logicalNode struct {
	op   logicOp
	kids []node
}

func (n *logicalNode) matches(pair recon.RecordPair) bool {
	for _, k := range n.kids {
		m := k.matches(pair)
		if n.op == opAnd && !m {
			return false
		}
		if n.op == opOr && m {
			return true
		}
	}
	return n.op == opAnd
}

func (n *logicalNode) combine(results []bool) bool {
	out := n.op == opAnd
	for _, k := range n.kids {
		m := k.combine(results)
		if n.op == opAnd {
			out = out && m
		} else {
			out = out || m
		}
	}
	return out
}

type notNode struct {
	x node
}

func (n *notNode) matches(pair recon.RecordPair) bool { return !n.x.matches(pair) }

func (n *notNode) combine(results []bool) bool { return !n.x.combine(results) }

// comparison is a leaf: fieldRef op (fieldRef | literal).
type comparison struct {
	index int
	lhs   fieldRef
	op    cmpOp

	// Exactly one of rhsRef / rhsLit is set.
	rhsRef *fieldRef
	rhsLit recon.Value

	// text is the canonical rendering used in evidence.
	text string
}

func (c *comparison) matches(pair recon.RecordPair) bool {
	matched, _ := c.evaluate(pair)
	return matched
}

func (c *comparison) combine(results []bool) bool { return results[c.index] }

// evaluate resolves both operands against the pair and applies the
// operator. A reference into an entirely absent side makes the
// comparison false and records which side had no value to compare -
// an absent side is never a plain mismatch.
func (c *comparison) evaluate(pair recon.RecordPair) (bool, recon.FieldEvidence) {
	ev := recon.FieldEvidence{
		Expr:     c.text,
		Field:    c.lhs.field,
		Internal: recon.Null{},
		MIS:      recon.Null{},
	}

	lhsVal, lhsAbsent := resolveRef(pair, c.lhs, &ev)

	var rhsVal recon.Value
	rhsAbsent := recon.AbsentNone
	if c.rhsRef != nil {
		rhsVal, rhsAbsent = resolveRef(pair, *c.rhsRef, &ev)
	} else {
		rhsVal = c.rhsLit
	}

	if lhsAbsent != recon.AbsentNone || rhsAbsent != recon.AbsentNone {
		ev.Absent = lhsAbsent
		if ev.Absent == recon.AbsentNone {
			ev.Absent = rhsAbsent
		}
		ev.Matched = false
		return false, ev
	}

	ev.Matched = compare(c.op, lhsVal, rhsVal)
	return ev.Matched, ev
}

// resolveRef reads a field reference from the pair, filling in the
// evidence value for the referenced side. An absent side reports which
// side was missing; a missing field on a present side reads as Null.
func resolveRef(pair recon.RecordPair, ref fieldRef, ev *recon.FieldEvidence) (recon.Value, recon.AbsentSide) {
	rec := pair.SideRecord(ref.side)
	if rec == nil {
		if ref.side == recon.SideInternal {
			return recon.Null{}, recon.AbsentInternal
		}
		return recon.Null{}, recon.AbsentMIS
	}
	v := rec.Get(ref.field)
	if ref.side == recon.SideInternal {
		ev.Internal = v
	} else {
		ev.MIS = v
	}
	return v, recon.AbsentNone
}

// compare applies a comparison operator. Equality is exact; ordered
// comparisons hold only for two values of the same orderable kind.
func compare(op cmpOp, a, b recon.Value) bool {
	switch op {
	case opEq:
		return recon.Equal(a, b)
	case opNe:
		return !recon.Equal(a, b)
	}
	cmp, ok := recon.Compare(a, b)
	if !ok {
		return false
	}
	switch op {
	case opGt:
		return cmp > 0
	case opLt:
		return cmp < 0
	case opGe:
		return cmp >= 0
	case opLe:
		return cmp <= 0
	}
	return false
}

// render produces the canonical comparison text used in evidence.
func (c *comparison) render() string {
	out := c.lhs.String() + " " + cmpOpText[c.op] + " "
	switch {
	case c.rhsRef != nil:
		out += c.rhsRef.String()
	default:
		switch lit := c.rhsLit.(type) {
		case recon.String:
			out += "'" + string(lit) + "'"
		default:
			out += lit.Display()
		}
	}
	return out
}
