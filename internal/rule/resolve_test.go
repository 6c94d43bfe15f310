package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, fragments ...Fragment) *Store {
	t.Helper()
	s, err := NewStore(fragments)
	require.NoError(t, err)
	return s
}

func TestResolver_SingleReference(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1"})

	require.NoError(t, err)
	assert.Equal(t, "(internal.amount == mis.amount)", resolved)
}

func TestResolver_Conjunction(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
		Fragment{ID: 2, Expression: "internal.rrn == mis.rrn"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1 and 2"})

	require.NoError(t, err)
	assert.Equal(t, "(internal.amount == mis.amount) and (internal.rrn == mis.rrn)", resolved)
}

func TestResolver_NestedReferences(t *testing.T) {
	// Fragment 3 itself references fragments 1 and 2.
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
		Fragment{ID: 2, Expression: "internal.rrn == mis.rrn"},
		Fragment{ID: 3, Expression: "1 and 2"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "3 or 2"})

	require.NoError(t, err)
	assert.Equal(t,
		"((internal.amount == mis.amount) and (internal.rrn == mis.rrn)) or (internal.rrn == mis.rrn)",
		resolved)
}

func TestResolver_PreservesNumericLiterals(t *testing.T) {
	// The 100 is a comparison operand, not a fragment reference, even
	// though fragment 100 exists.
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount > 100"},
		Fragment{ID: 100, Expression: "internal.rrn == mis.rrn"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1 and 100"})

	require.NoError(t, err)
	assert.Equal(t, "(internal.amount > 100) and (internal.rrn == mis.rrn)", resolved)
}

func TestResolver_MultiDigitReferenceNotCorrupted(t *testing.T) {
	// ID 1 must never touch the digits of ID 12.
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.a == mis.a"},
		Fragment{ID: 12, Expression: "internal.b == mis.b"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "12 and 1"})

	require.NoError(t, err)
	assert.Equal(t, "(internal.b == mis.b) and (internal.a == mis.a)", resolved)
}

func TestResolver_AlreadyConcreteExpression(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "internal.status == 'SETTLED'"})

	require.NoError(t, err)
	assert.Equal(t, "internal.status == 'SETTLED'", resolved)
}

func TestResolver_CanonicalizesSpacing(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount==mis.amount"},
	)
	r := NewResolver(s)

	resolved, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "  1   "})

	require.NoError(t, err)
	assert.Equal(t, "(internal.amount == mis.amount)", resolved)
}

func TestResolver_UnknownReference(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
	)
	r := NewResolver(s)

	_, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1 and 99"})

	require.Error(t, err)
	assert.True(t, IsUnknownReference(err))
	assert.False(t, IsCyclic(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Equal(t, int64(10), re.EntryID)
	assert.Equal(t, int64(99), re.FragmentID)
}

func TestResolver_SelfCycle(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "1 and internal.amount == mis.amount"},
	)
	r := NewResolver(s)

	_, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1"})

	require.Error(t, err)
	assert.True(t, IsCyclic(err))
}

func TestResolver_MutualCycle(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "2 and internal.a == mis.a"},
		Fragment{ID: 2, Expression: "1 or internal.b == mis.b"},
	)
	r := NewResolver(s)

	_, err := r.Resolve(MappingEntry{ID: 10, RuleExpression: "1"})

	require.Error(t, err)
	assert.True(t, IsCyclic(err))
}

func TestResolver_CachesPerEntry(t *testing.T) {
	s := newTestStore(t,
		Fragment{ID: 1, Expression: "internal.amount == mis.amount"},
	)
	r := NewResolver(s)
	entry := MappingEntry{ID: 10, RuleExpression: "1"}

	first, err := r.Resolve(entry)
	require.NoError(t, err)
	second, err := r.Resolve(entry)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScanTokens(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want []string
	}{
		{"simple comparison", "internal.a == mis.a", []string{"internal.a", "==", "mis.a"}},
		{"tight operator", "internal.a==mis.a", []string{"internal.a", "==", "mis.a"}},
		{"parens", "(1 and 2)", []string{"(", "1", "and", "2", ")"}},
		{"quoted string", "internal.s == 'a b'", []string{"internal.s", "==", "'a b'"}},
		{"inequality", "internal.a >= 10", []string{"internal.a", ">=", "10"}},
		{"not equal", "internal.a != mis.a", []string{"internal.a", "!=", "mis.a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scanTokens(tt.expr))
		})
	}
}

func TestIsReferenceToken(t *testing.T) {
	tests := []struct {
		name string
		expr string
		idx  int
		want bool
	}{
		{"lone integer", "1", 0, true},
		{"before and", "1 and 2", 0, true},
		{"after and", "1 and 2", 2, true},
		{"comparison operand", "internal.a > 100", 2, false},
		{"after open paren", "(1 or 2)", 1, true},
		{"before close paren", "(1 or 2)", 3, true},
		{"word token", "1 and internal.a", 2, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := scanTokens(tt.expr)
			assert.Equal(t, tt.want, isReferenceToken(tokens, tt.idx))
		})
	}
}
