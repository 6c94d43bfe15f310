// Package store is the local workspace data source backing the engine:
// a SQLite database holding workspace configuration (file types, rule
// fragments, rule-to-state mappings, reconciliation states) and record
// data (journal rows, transactions, payments).
//
// The store is a collaborator, not part of the deterministic core: the
// engine consumes its rows through plain value types and the port
// interfaces in internal/engine, and never reaches back into SQL. Row
// shapes mirror the production reconciliation schema, including the
// journal layout of the data-lake mirror.
//
// Open applies WAL mode and a busy timeout, creates the schema
// idempotently, and restricts the pool to a single writer.
package store
