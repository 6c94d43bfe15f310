package rule

import (
	"sort"

	"github.com/reconlens/reconlens/internal/recon"
)

// MappingEntry is a composed rule tied to a target reconciliation state
// and a priority. RuleExpression contains fragment-ID references combined
// with and/or and parentheses, e.g. "1 and (2 or 3)".
type MappingEntry struct {
	ID             int64
	RuleExpression string

	// FileType1ID and FileType2ID scope the entry to a file-type pair.
	FileType1ID string
	FileType2ID string

	// State is the target reconciliation state, joined from the state
	// table at load time.
	State recon.State

	// Seq is the entry's sequence number - lower wins. HasSeq is false
	// for entries with no explicit number; they sort last, in insertion
	// order.
	Seq    int64
	HasSeq bool

	// WorkflowID is opaque to the engine; carried through for display.
	WorkflowID string

	// EnrichmentOnly marks entries that only annotate unreconciled
	// records and never resolve a state on their own.
	EnrichmentOnly bool
}

// Ref summarizes the entry for a finding.
func (e MappingEntry) Ref(resolvedExpression string) *recon.RuleRef {
	return &recon.RuleRef{
		EntryID:    e.ID,
		Expression: resolvedExpression,
		Seq:        e.Seq,
		HasSeq:     e.HasSeq,
	}
}

// Table is the ordered set of mapping entries for a workspace. Built
// once per run from workspace rows, read-only afterward.
type Table struct {
	entries []MappingEntry
}

// NewTable builds a Table preserving the insertion order of entries -
// insertion order is the tie-break for equal or missing sequence
// numbers.
func NewTable(entries []MappingEntry) *Table {
	copied := make([]MappingEntry, len(entries))
	copy(copied, entries)
	return &Table{entries: copied}
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }

// All returns every entry in insertion order.
func (t *Table) All() []MappingEntry {
	out := make([]MappingEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// ByPriority returns every entry in priority order, without file-type
// scoping.
func (t *Table) ByPriority() []MappingEntry {
	out := t.All()
	sortByPriority(out)
	return out
}

// ForFileTypes returns the entries scoped to a file-type pair in
// priority order: ascending sequence number, entries without a sequence
// number last, ties and unnumbered entries in insertion order.
//
// An entry applies to (ft1, ft2) when its pair matches in either order,
// or when it is a self-rule on either of the two file types.
func (t *Table) ForFileTypes(ft1, ft2 string) []MappingEntry {
	var scoped []MappingEntry
	for _, e := range t.entries {
		switch {
		case e.FileType1ID == ft1 && e.FileType2ID == ft2:
			scoped = append(scoped, e)
		case e.FileType1ID == ft2 && e.FileType2ID == ft1:
			scoped = append(scoped, e)
		case e.FileType1ID == e.FileType2ID && (e.FileType1ID == ft1 || e.FileType1ID == ft2):
			scoped = append(scoped, e)
		}
	}
	sortByPriority(scoped)
	return scoped
}

// sortByPriority orders entries by ascending sequence number with
// unnumbered entries last. The sort is stable so insertion order breaks
// ties.
func sortByPriority(entries []MappingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.HasSeq != b.HasSeq {
			return a.HasSeq
		}
		if !a.HasSeq {
			return false
		}
		return a.Seq < b.Seq
	})
}
