// Package recon defines the domain values shared by the reconciliation
// analysis engine: record pairs, reconciliation states, field evidence,
// and findings.
//
// The package holds no behavior beyond value construction and comparison.
// Everything here is immutable once built for an analysis run - the engine
// builds a snapshot of states and rules per run and hands out read-only
// references (see internal/engine).
//
// Value is a sealed interface: only Null, String, Number, and Bool
// implement it. This keeps field values constrained to what the rule
// expression grammar can actually compare and forces explicit coercion at
// the boundary (FromAny) rather than interface{} leaking through the
// evaluator.
package recon
