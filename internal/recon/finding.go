package recon

// AbsentSide marks which side of a comparison had no record at all,
// distinguishing "no value to compare" from "wrong value".
type AbsentSide int

const (
	// AbsentNone means both sides of the comparison were present.
	AbsentNone AbsentSide = iota

	// AbsentInternal means the internal record was entirely absent.
	AbsentInternal

	// AbsentMIS means the MIS record was entirely absent.
	AbsentMIS
)

// String renders the absent side for evidence output.
func (a AbsentSide) String() string {
	switch a {
	case AbsentInternal:
		return "internal"
	case AbsentMIS:
		return "mis"
	default:
		return ""
	}
}

// FieldEvidence records the outcome of one atomic comparison. Every leaf
// comparison of an explained rule produces evidence, matched or not, in
// the order the rule text defines - reproducible output is part of the
// contract.
type FieldEvidence struct {
	// Expr is the comparison as written in the resolved rule, e.g.
	// "internal.amount == mis.amount".
	Expr string

	// Field is the field name of the left-hand reference.
	Field string

	// Internal and MIS carry the values each side contributed. A side
	// that did not participate in the comparison holds Null.
	Internal Value
	MIS      Value

	// Matched reports whether the comparison held.
	Matched bool

	// Absent marks a side whose record was entirely missing. When set,
	// Matched is always false.
	Absent AbsentSide
}

// Confidence grades how decisive a finding's evidence is.
type Confidence int

const (
	// ConfidenceLow means no mapping entry matched at all.
	ConfidenceLow Confidence = iota

	// ConfidenceMedium means a rule matched but its leaves disagreed.
	ConfidenceMedium

	// ConfidenceHigh means the selected entry's leaves were uniform.
	ConfidenceHigh
)

// String implements fmt.Stringer.
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "High"
	case ConfidenceMedium:
		return "Medium"
	default:
		return "Low"
	}
}

// RuleRef summarizes the mapping entry a finding matched, enough for
// diagnostics without reaching back into the rule table.
type RuleRef struct {
	// EntryID is the mapping entry's ID.
	EntryID int64

	// Expression is the fully resolved rule text the entry evaluated.
	Expression string

	// Seq is the entry's sequence number; HasSeq is false for entries
	// with no explicit priority.
	Seq    int64
	HasSeq bool
}

// Finding is the resolved output of running the engine on one record
// pair: state, matched rule, evidence, confidence, remark.
type Finding struct {
	// RecordID identifies the pair the finding is about.
	RecordID string

	// Scenario tags which orchestrator produced the finding:
	// "timestamp_sync", "missing_counterpart", or "rule_failure".
	Scenario string

	// Issue is a machine-readable label for what was observed, e.g.
	// "rule_matching_failure" or "internal_data_missing".
	Issue string

	// Matched is the selected mapping entry, nil when no rule matched.
	Matched *RuleRef

	// State is the externally visible resolved state. When the selected
	// target state was internal, State is its parent and InternalState
	// retains the state that actually matched.
	State         State
	InternalState *State

	// Evidence lists every atomic comparison of the deciding rule - the
	// matched entry's, or the best near-miss when nothing matched.
	Evidence []FieldEvidence

	// Remark is the human-readable explanation. Best effort: an empty
	// remark never invalidates the finding.
	Remark string

	// Suggestion is the orchestrator's recommended operator action.
	Suggestion string

	Confidence Confidence
}

// MismatchedEvidence returns the evidence entries that failed, in rule
// order. Convenience for remark generation and rendering.
func (f Finding) MismatchedEvidence() []FieldEvidence {
	var out []FieldEvidence
	for _, ev := range f.Evidence {
		if !ev.Matched {
			out = append(out, ev)
		}
	}
	return out
}
