// Package rule holds the rule graph of a reconciliation workspace:
// atomic boolean fragments keyed by integer ID, the mapping table that
// composes fragments into prioritized expressions tied to target states,
// and the resolver that expands composed expressions into self-contained
// rule text.
//
// Everything in this package is pure data and pure functions over it.
// A Store and Table are built once per analysis run from workspace rows
// and are read-only afterward; the resolver is deterministic - resolving
// the same entry twice against an unchanged store yields byte-identical
// text (a cache and golden tests depend on this).
//
// Cycle protection: fragments may reference other fragments, so a bad
// workspace configuration can define a cycle. Expansion is bounded by
// the fragment count; exceeding the bound fails with
// CYCLIC_RULE_REFERENCE instead of hanging. Cycles are configuration
// defects, not transient faults.
package rule
