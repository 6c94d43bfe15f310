package rule

import (
	"fmt"
	"sort"
)

// Fragment is an atomic, reusable boolean rule referenced by integer ID.
// The expression is raw comparison syntax ("internal.amount == mis.amount")
// and may itself reference other fragment IDs (nested composition).
//
// Fragments are immutable once loaded for an analysis run; identity is
// the ID.
type Fragment struct {
	ID         int64
	Expression string

	// FileType1ID and FileType2ID name the file-type pair the fragment
	// was authored for. SelfRule marks fragments comparing a file type
	// against itself.
	FileType1ID string
	FileType2ID string
	SelfRule    bool
}

// Store is an immutable in-memory index of fragments keyed by ID.
// Build once per workspace analysis run; safe for concurrent reads.
type Store struct {
	fragments map[int64]Fragment
	ids       []int64
}

// NewStore builds a Store from workspace fragment rows.
//
// Fragment IDs must be unique and >= 1 - duplicates or non-positive IDs
// indicate corrupt source data and fail construction outright.
func NewStore(fragments []Fragment) (*Store, error) {
	byID := make(map[int64]Fragment, len(fragments))
	for _, f := range fragments {
		if f.ID < 1 {
			return nil, fmt.Errorf("fragment ID must be >= 1, got %d", f.ID)
		}
		if _, exists := byID[f.ID]; exists {
			return nil, fmt.Errorf("duplicate fragment ID %d", f.ID)
		}
		byID[f.ID] = f
	}

	ids := make([]int64, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return &Store{fragments: byID, ids: ids}, nil
}

// Get returns the fragment for an ID.
func (s *Store) Get(id int64) (Fragment, bool) {
	f, ok := s.fragments[id]
	return f, ok
}

// Has reports whether the store holds a fragment with the given ID.
func (s *Store) Has(id int64) bool {
	_, ok := s.fragments[id]
	return ok
}

// Len returns the number of fragments in the store.
func (s *Store) Len() int { return len(s.fragments) }

// IDs returns all fragment IDs in ascending order.
func (s *Store) IDs() []int64 {
	out := make([]int64, len(s.ids))
	copy(out, s.ids)
	return out
}
