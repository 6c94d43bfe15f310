package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlens/reconlens/internal/recon"
)

func pairOf(internal, mis recon.Record) recon.RecordPair {
	return recon.RecordPair{ID: "rec-1", Internal: internal, MIS: mis}
}

func mustParse(t *testing.T, src string) *Program {
	t.Helper()
	p, err := Parse(src)
	require.NoError(t, err)
	return p
}

func TestMatches_FieldToField(t *testing.T) {
	p := mustParse(t, "internal.amount == mis.amount")

	match := pairOf(
		recon.Record{"amount": recon.Number(100)},
		recon.Record{"amount": recon.Number(100)},
	)
	mismatch := pairOf(
		recon.Record{"amount": recon.Number(100)},
		recon.Record{"amount": recon.Number(99)},
	)

	assert.True(t, p.Matches(match))
	assert.False(t, p.Matches(mismatch))
}

func TestMatches_Logic(t *testing.T) {
	pair := pairOf(
		recon.Record{"a": recon.Number(1), "b": recon.Number(2)},
		recon.Record{"a": recon.Number(1), "b": recon.Number(3)},
	)

	tests := []struct {
		src  string
		want bool
	}{
		{"internal.a == mis.a and internal.b == mis.b", false},
		{"internal.a == mis.a or internal.b == mis.b", true},
		{"not internal.b == mis.b", true},
		{"not (internal.a == mis.a or internal.b == mis.b)", false},
		{"internal.b > mis.a", true},
		{"internal.b >= 2", true},
		{"internal.b <= 1", false},
		{"internal.a != mis.b", true},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, tt.src).Matches(pair))
		})
	}
}

func TestMatches_Literals(t *testing.T) {
	pair := pairOf(
		recon.Record{"status": recon.String("SETTLED"), "fee": recon.Number(2.5), "void": recon.Null{}},
		recon.Record{},
	)

	assert.True(t, mustParse(t, "internal.status == 'SETTLED'").Matches(pair))
	assert.False(t, mustParse(t, "internal.status == 'PENDING'").Matches(pair))
	assert.True(t, mustParse(t, "internal.fee == 2.5").Matches(pair))
	assert.True(t, mustParse(t, "internal.void == null").Matches(pair))
	assert.True(t, mustParse(t, "internal.status != null").Matches(pair))
}

func TestMatches_MissingFieldReadsAsNull(t *testing.T) {
	pair := pairOf(recon.Record{}, recon.Record{})

	// A present side with an absent field is Null, so comparing it to
	// null holds and comparing it to a value does not.
	assert.True(t, mustParse(t, "internal.ghost == null").Matches(pair))
	assert.False(t, mustParse(t, "internal.ghost == 5").Matches(pair))
}

func TestMatches_NumberStringNotEqual(t *testing.T) {
	pair := pairOf(
		recon.Record{"amount": recon.Number(100)},
		recon.Record{"amount": recon.String("100")},
	)

	assert.False(t, mustParse(t, "internal.amount == mis.amount").Matches(pair))
}

func TestMatches_AbsentSideFailsComparison(t *testing.T) {
	onlyInternal := recon.RecordPair{ID: "rec-1", Internal: recon.Record{"amount": recon.Number(100)}}

	p := mustParse(t, "internal.amount == mis.amount")
	assert.False(t, p.Matches(onlyInternal))

	// Negation still applies to the failed comparison.
	assert.True(t, mustParse(t, "not internal.amount == mis.amount").Matches(onlyInternal))
}

func TestExplain_EvidenceInSourceOrder(t *testing.T) {
	p := mustParse(t, "internal.amount == mis.amount and internal.rrn == mis.rrn")
	pair := pairOf(
		recon.Record{"amount": recon.Number(100), "rrn": recon.String("A1")},
		recon.Record{"amount": recon.Number(100), "rrn": recon.String("A2")},
	)

	matched, evidence := p.Explain(pair)

	assert.False(t, matched)
	require.Len(t, evidence, 2)

	assert.Equal(t, "internal.amount == mis.amount", evidence[0].Expr)
	assert.Equal(t, "amount", evidence[0].Field)
	assert.True(t, evidence[0].Matched)
	assert.Equal(t, recon.Number(100), evidence[0].Internal)
	assert.Equal(t, recon.Number(100), evidence[0].MIS)

	assert.Equal(t, "internal.rrn == mis.rrn", evidence[1].Expr)
	assert.False(t, evidence[1].Matched)
	assert.Equal(t, recon.String("A1"), evidence[1].Internal)
	assert.Equal(t, recon.String("A2"), evidence[1].MIS)
}

func TestExplain_EvaluatesAllLeavesDespiteShortCircuit(t *testing.T) {
	// The first disjunct already decides the outcome; evidence still
	// covers every leaf.
	p := mustParse(t, "internal.a == mis.a or internal.b == mis.b")
	pair := pairOf(
		recon.Record{"a": recon.Number(1), "b": recon.Number(2)},
		recon.Record{"a": recon.Number(1), "b": recon.Number(9)},
	)

	matched, evidence := p.Explain(pair)

	assert.True(t, matched)
	require.Len(t, evidence, 2)
	assert.True(t, evidence[0].Matched)
	assert.False(t, evidence[1].Matched)
}

func TestExplain_AbsentSideMarked(t *testing.T) {
	onlyMIS := recon.RecordPair{ID: "rec-1", MIS: recon.Record{"amount": recon.Number(50)}}

	p := mustParse(t, "internal.amount == mis.amount")
	matched, evidence := p.Explain(onlyMIS)

	assert.False(t, matched)
	require.Len(t, evidence, 1)
	assert.Equal(t, recon.AbsentInternal, evidence[0].Absent)
	assert.False(t, evidence[0].Matched)
	assert.Equal(t, recon.Null{}, evidence[0].Internal)
	assert.Equal(t, recon.Number(50), evidence[0].MIS)
}

func TestExplain_LiteralComparisonEvidence(t *testing.T) {
	p := mustParse(t, "internal.status == 'SETTLED'")
	pair := pairOf(recon.Record{"status": recon.String("PENDING")}, recon.Record{})

	matched, evidence := p.Explain(pair)

	assert.False(t, matched)
	require.Len(t, evidence, 1)
	assert.Equal(t, "internal.status == 'SETTLED'", evidence[0].Expr)
	assert.Equal(t, recon.String("PENDING"), evidence[0].Internal)
	// The MIS side never participated in this comparison.
	assert.Equal(t, recon.Null{}, evidence[0].MIS)
}

func TestExplain_RendersCanonicalText(t *testing.T) {
	// Evidence text is the canonical rendering, not the source spelling.
	p := mustParse(t, "internal.amount==mis.amount")
	_, evidence := p.Explain(pairOf(recon.Record{}, recon.Record{}))

	require.Len(t, evidence, 1)
	assert.Equal(t, "internal.amount == mis.amount", evidence[0].Expr)
}

func TestCompare_OrderingAcrossKinds(t *testing.T) {
	pair := pairOf(
		recon.Record{"n": recon.Number(5), "s": recon.String("b")},
		recon.Record{"n": recon.String("5"), "s": recon.String("a")},
	)

	// Ordered comparison across kinds never holds.
	assert.False(t, mustParse(t, "internal.n > mis.n").Matches(pair))
	assert.False(t, mustParse(t, "internal.n <= mis.n").Matches(pair))

	// Same-kind strings order lexicographically.
	assert.True(t, mustParse(t, "internal.s > mis.s").Matches(pair))
}
