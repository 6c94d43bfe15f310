package engine

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/reconlens/reconlens/internal/expr"
	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/rule"
)

// ResolvedRule pairs a mapping entry with its fully expanded expression
// and the parsed program evaluated against record pairs.
type ResolvedRule struct {
	Entry      rule.MappingEntry
	Expression string
	Program    *expr.Program
}

// Options tunes snapshot behavior.
type Options struct {
	// Confidence grades finding evidence; the zero value applies the
	// default policy.
	Confidence ConfidencePolicy
}

// Snapshot is the per-run immutable view of a workspace's rule graph:
// fragment store, resolved mapping entries, and the state table. Build
// once with BuildSnapshot, share freely across concurrent evaluations,
// discard at end of run.
type Snapshot struct {
	runID  string
	log    *zap.Logger
	store  *rule.Store
	table  *rule.Table
	rules  map[int64]*ResolvedRule
	states map[int64]recon.State
	policy ConfidencePolicy

	// skipped counts entries dropped during resolution, for
	// introspection and tests.
	skipped int
}

// BuildSnapshot resolves and parses a workspace's mapping entries into
// an immutable snapshot. This is the run's one-time blocking
// preparation step.
//
// Entries that fail to resolve (unknown or cyclic fragment references)
// or to parse (malformed expressions, unknown field references) are
// skipped and logged; one bad entry never aborts the analysis. Cyclic
// references are logged as configuration defects since they indicate
// bad source data, not a transient fault.
//
// Construction fails outright on empty inputs (the caller distinguishes
// "nothing configured" from a retrieval failure beforehand) and on
// reconciliation states violating the one-hop parent invariant.
func BuildSnapshot(log *zap.Logger, fragments []rule.Fragment, entries []rule.MappingEntry, states []recon.State, opts Options) (*Snapshot, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if len(fragments) == 0 {
		return nil, ErrNoFragments
	}
	if len(entries) == 0 {
		return nil, ErrNoMappings
	}

	runID := uuid.NewString()
	log = log.With(zap.String("run_id", runID))

	stateIndex, err := indexStates(states, entries)
	if err != nil {
		return nil, err
	}

	store, err := rule.NewStore(fragments)
	if err != nil {
		return nil, err
	}

	resolver := rule.NewResolver(store)
	resolved := make(map[int64]*ResolvedRule, len(entries))
	var kept []rule.MappingEntry
	skipped := 0

	for _, entry := range entries {
		expanded, err := resolver.Resolve(entry)
		if err != nil {
			skipped++
			switch {
			case rule.IsCyclic(err):
				log.Warn("skipping mapping entry: cyclic rule definition (configuration defect)",
					zap.Int64("entry_id", entry.ID), zap.Error(err))
			default:
				log.Warn("skipping mapping entry: unresolvable rule expression",
					zap.Int64("entry_id", entry.ID), zap.Error(err))
			}
			continue
		}

		program, err := expr.Parse(expanded)
		if err != nil {
			skipped++
			log.Warn("skipping mapping entry: expression does not parse",
				zap.Int64("entry_id", entry.ID),
				zap.String("expression", expanded),
				zap.Error(err))
			continue
		}

		resolved[entry.ID] = &ResolvedRule{Entry: entry, Expression: expanded, Program: program}
		kept = append(kept, entry)
	}

	log.Info("snapshot built",
		zap.Int("fragments", store.Len()),
		zap.Int("entries", len(kept)),
		zap.Int("skipped", skipped),
		zap.Int("states", len(stateIndex)))

	return &Snapshot{
		runID:   runID,
		log:     log,
		store:   store,
		table:   rule.NewTable(kept),
		rules:   resolved,
		states:  stateIndex,
		policy:  opts.Confidence,
		skipped: skipped,
	}, nil
}

// indexStates builds the state lookup and enforces the parent
// invariant: an internal state's parent must exist and be non-internal.
// States referenced by entries but absent from the list are taken from
// the entries' embedded join.
func indexStates(states []recon.State, entries []rule.MappingEntry) (map[int64]recon.State, error) {
	index := make(map[int64]recon.State, len(states))
	for _, s := range states {
		index[s.ID] = s
	}
	for _, e := range entries {
		if _, ok := index[e.State.ID]; !ok {
			index[e.State.ID] = e.State
		}
	}

	for _, s := range index {
		if !s.IsInternal {
			continue
		}
		if s.ParentID == nil {
			return nil, &StateError{StateID: s.ID, Message: "internal state has no parent"}
		}
		parent, ok := index[*s.ParentID]
		if !ok {
			return nil, &StateError{StateID: s.ID, ParentID: *s.ParentID, Message: "internal state's parent not found"}
		}
		if parent.IsInternal {
			return nil, &StateError{StateID: s.ID, ParentID: parent.ID, Message: "internal state's parent is itself internal"}
		}
	}
	return index, nil
}

// RunID returns the snapshot's run token (tags all engine logging).
func (s *Snapshot) RunID() string { return s.runID }

// RuleCount returns the number of usable resolved rules.
func (s *Snapshot) RuleCount() int { return len(s.rules) }

// SkippedCount returns how many mapping entries were dropped during
// construction.
func (s *Snapshot) SkippedCount() int { return s.skipped }

// State returns a reconciliation state by ID.
func (s *Snapshot) State(id int64) (recon.State, bool) {
	st, ok := s.states[id]
	return st, ok
}

// ResolvedRules returns every usable resolved rule in mapping-table
// insertion order. Used by the CLI's resolve command and by tests.
func (s *Snapshot) ResolvedRules() []ResolvedRule {
	out := make([]ResolvedRule, 0, len(s.rules))
	for _, e := range s.table.All() {
		if rr, ok := s.rules[e.ID]; ok {
			out = append(out, *rr)
		}
	}
	return out
}

// rulesFor returns the resolved rules scoped to a file-type pair in
// priority order. Enrichment-only entries never participate in state
// selection.
func (s *Snapshot) rulesFor(ft1, ft2 string) []*ResolvedRule {
	entries := s.table.ForFileTypes(ft1, ft2)
	out := make([]*ResolvedRule, 0, len(entries))
	for _, e := range entries {
		if e.EnrichmentOnly {
			continue
		}
		if rr, ok := s.rules[e.ID]; ok {
			out = append(out, rr)
		}
	}
	return out
}
