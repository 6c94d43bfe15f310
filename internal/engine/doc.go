// Package engine resolves reconciliation outcomes for record pairs.
//
// The engine is the deterministic core of reconlens: given a workspace's
// rule fragments, its rule-to-state mapping table, and a record pair, it
// answers why the pair did or did not reconcile and which state should be
// attached to it.
//
// ARCHITECTURE:
//
// Per-Run Immutable Snapshot:
// All rule resolution and expression parsing happens once, up front, in
// BuildSnapshot - a blocking preparation step. The resulting Snapshot is
// read-only for the lifetime of the analysis run and discarded afterward.
// No cross-request mutation, no shared global cache: every run gets its
// own snapshot, which makes concurrent batch evaluation safe without
// locks and rules out staleness.
//
// Resolution Flow:
// 1. BuildSnapshot resolves every mapping entry (fragment substitution
//    with cycle protection) and parses it into an AST. Bad entries are
//    skipped and logged, never fatal.
// 2. Snapshot.Resolve scopes entries to the pair's file-type combination,
//    sorted by ascending sequence number, and selects the first entry
//    whose rule evaluates true - first applicable rule wins, mirroring
//    the single-state-per-record invariant of the mapping table.
// 3. Internal target states are substituted with their parent state for
//    display while the internal state stays on the finding for
//    diagnostics.
// 4. No match is a legitimate outcome: the finding carries the Unresolved
//    sentinel plus evidence from the best near-miss.
//
// The core path performs no I/O and never blocks. Suspension points are
// confined to the collaborator ports (transaction, ingestion, and payment
// sources; the remark provider), all of which are best-effort or
// explicitly propagated at the orchestration boundary.
//
// Per-record evaluation is the unit of parallelism: EvaluateBatch fans
// pairs out to a bounded worker pool. Evaluation order has no effect on
// results, but evidence order within one finding always follows the rule
// text.
package engine
