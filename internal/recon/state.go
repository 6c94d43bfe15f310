package recon

// State is a reconciliation state a mapping entry can resolve to.
//
// Internal states are not meant to be shown externally: their externally
// visible result is always the parent state. The parent chain is at most
// one hop deep - an internal state's parent must itself be non-internal.
// Snapshot construction enforces this and fails loudly on violation
// rather than chasing a chain.
type State struct {
	ID   int64
	Name string

	// Rank orders states by how "settled" they are. Ranks at or above a
	// workspace-defined threshold are terminal reconciled states.
	Rank int

	// IsInternal marks a state whose external result comes from ParentID.
	IsInternal bool

	// ParentID references the externally visible parent state. Only
	// meaningful when IsInternal is true.
	ParentID *int64

	// RemarkTemplate, when present, is the fallback human-readable remark
	// attached to findings that resolve to this state.
	RemarkTemplate string
}

// UnresolvedStateID is the sentinel ID of the Unresolved state.
// Negative so it can never collide with stored state rows.
const UnresolvedStateID int64 = -1

// UnresolvedStateName is the name carried by findings no rule matched.
const UnresolvedStateName = "Unresolved"

// Unresolved returns the sentinel state attached to findings for which
// no mapping entry's rule evaluated true. A legitimate terminal outcome,
// never conflated with a processing failure.
func Unresolved() State {
	return State{ID: UnresolvedStateID, Name: UnresolvedStateName}
}

// IsUnresolved reports whether the state is the no-match sentinel.
func (s State) IsUnresolved() bool { return s.ID == UnresolvedStateID }
