package engine

import (
	"go.uber.org/zap"

	"github.com/reconlens/reconlens/internal/recon"
)

// ConfidencePolicy grades how decisive a finding's evidence is. The
// thresholds are a policy knob surfaced through configuration rather
// than hard-coded in the resolver.
type ConfidencePolicy struct {
	// KeepMixedHigh keeps a matched finding at High even when a leaf
	// comparison failed despite the rule matching (a compensating OR
	// branch). The zero value downgrades such mixed evidence to Medium.
	KeepMixedHigh bool
}

// DefaultConfidencePolicy returns the standard grading: uniform leaves
// grade High, matched-but-mixed grades Medium, no match grades Low.
// It is the policy's zero value.
func DefaultConfidencePolicy() ConfidencePolicy {
	return ConfidencePolicy{}
}

// classify grades evidence for a finding. No match is always Low.
func (p ConfidencePolicy) classify(matched bool, evidence []recon.FieldEvidence) recon.Confidence {
	if !matched {
		return recon.ConfidenceLow
	}
	if p.KeepMixedHigh {
		return recon.ConfidenceHigh
	}
	for _, ev := range evidence {
		if !ev.Matched {
			return recon.ConfidenceMedium
		}
	}
	return recon.ConfidenceHigh
}

// Resolve runs the state resolution for one record pair: evaluate the
// pair's scoped mapping entries in priority order, select the first
// whose rule evaluates true, and map internal target states to their
// externally visible parent.
//
// When no entry matches, the finding carries the Unresolved sentinel
// state and the field evidence of the highest-priority entry - the best
// near-miss - so downstream remark generation has something concrete to
// point at. An unresolved record is rarely silent.
//
// Resolve is pure over the snapshot and the pair: no I/O, no mutation,
// safe to call concurrently.
func (s *Snapshot) Resolve(pair recon.RecordPair) recon.Finding {
	scoped := s.rulesFor(pair.FileType1ID, pair.FileType2ID)

	finding := recon.Finding{
		RecordID:   pair.ID,
		State:      recon.Unresolved(),
		Confidence: recon.ConfidenceLow,
	}

	for _, rr := range scoped {
		if !rr.Program.Matches(pair) {
			continue
		}
		matched, evidence := rr.Program.Explain(pair)

		finding.Matched = rr.Entry.Ref(rr.Expression)
		finding.Evidence = evidence
		finding.Confidence = s.policy.classify(matched, evidence)
		finding.State = rr.Entry.State

		if rr.Entry.State.IsInternal {
			// Parent resolved and validated at snapshot build; retain
			// the internal state for diagnosing which sub-condition
			// actually matched.
			internal := rr.Entry.State
			finding.InternalState = &internal
			finding.State = s.states[*internal.ParentID]
		}

		s.log.Debug("record pair resolved",
			zap.String("record_id", pair.ID),
			zap.Int64("entry_id", rr.Entry.ID),
			zap.String("state", finding.State.Name))
		return finding
	}

	// No match: attach the best near-miss evidence.
	if len(scoped) > 0 {
		best := scoped[0]
		_, evidence := best.Program.Explain(pair)
		finding.Evidence = evidence
		finding.Matched = nil
	}

	s.log.Debug("record pair unresolved",
		zap.String("record_id", pair.ID),
		zap.Int("candidate_rules", len(scoped)))
	return finding
}
