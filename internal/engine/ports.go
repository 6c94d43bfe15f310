package engine

import (
	"context"
)

// Transaction is the target-system row a reconciled record should have
// stamped. ReconciledAt is empty when the timestamp was never written.
type Transaction struct {
	EntityID     string
	ReconciledAt string
}

// Payment is the source-system row behind an internal record, with the
// timestamps needed to detect replication lag into the data lake.
type Payment struct {
	EntityID          string
	UpdatedAt         int64
	DatalakeUpdatedAt int64
}

// TransactionSource looks up target-system transactions by entity ID.
// Returns nil (no error) when no transaction row exists.
type TransactionSource interface {
	Transaction(ctx context.Context, entityID string) (*Transaction, error)
}

// IngestionSource answers whether a source file for a file type was
// ingested on a given date. Lets the missing-counterpart scenario
// distinguish "genuinely missing" from "not yet ingested".
type IngestionSource interface {
	FileIngested(ctx context.Context, fileTypeID, date string) (bool, error)
}

// PaymentSource looks up source-system payments by entity ID. Returns
// nil (no error) when the payment does not exist.
type PaymentSource interface {
	Payment(ctx context.Context, entityID string) (*Payment, error)
}
