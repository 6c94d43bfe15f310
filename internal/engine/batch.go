package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/reconlens/reconlens/internal/recon"
)

// DefaultWorkers bounds batch evaluation when no worker count is
// configured.
const DefaultWorkers = 8

// EvaluateBatch resolves a batch of record pairs concurrently with a
// bounded worker count. Findings are returned in input order; the
// evaluation order between records carries no meaning because Resolve
// is a pure function per pair.
//
// Cancellation is handled at the dispatch level: once ctx is done no
// further pairs are dispatched, but in-flight evaluations run to
// completion - they are cheap, bounded, pure computations not worth
// interrupting. The returned slice covers only the dispatched prefix,
// alongside ctx's error.
func EvaluateBatch(ctx context.Context, snap *Snapshot, pairs []recon.RecordPair, workers int) ([]recon.Finding, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	findings := make([]recon.Finding, len(pairs))
	var g errgroup.Group
	g.SetLimit(workers)

	dispatched := 0
	for i, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		i, pair := i, pair
		g.Go(func() error {
			findings[i] = snap.Resolve(pair)
			return nil
		})
		dispatched++
	}

	// Resolve never fails; Wait only synchronizes the pool.
	_ = g.Wait()

	return findings[:dispatched], ctx.Err()
}
