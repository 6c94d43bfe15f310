// Package remark turns resolved reconciliation outcomes into
// human-readable explanation strings.
//
// Remarks are strictly best-effort text: a provider never participates
// in state determination, and a provider failure never surfaces to the
// caller as an error - the composed fallback steps in instead. Call
// sites hold a single Provider and never branch on which implementation
// is active.
package remark

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/reconlens/reconlens/internal/recon"
)

// Request carries the already-resolved outcome a remark should explain.
// The provider is a pure text transform over it: nothing in the request
// may be re-decided.
type Request struct {
	// StateName is the resolved state's display name.
	StateName string

	// RuleText is the matched (or best near-miss) resolved rule, empty
	// when no rule applied.
	RuleText string

	// RemarkTemplate is the resolved state's configured remark, empty
	// when the state has none.
	RemarkTemplate string

	// Evidence lists the deciding rule's atomic comparisons in rule
	// order.
	Evidence []recon.FieldEvidence
}

// Provider produces an explanatory remark for a resolved outcome.
type Provider interface {
	Remark(ctx context.Context, req Request) (string, error)
}

// WithFallback composes two providers: primary's result when it
// succeeds within the timeout, fallback's otherwise. Failures of the
// primary are logged and fully recovered locally.
func WithFallback(primary, fallback Provider, timeout time.Duration, log *zap.Logger) Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &fallbackProvider{primary: primary, fallback: fallback, timeout: timeout, log: log}
}

type fallbackProvider struct {
	primary  Provider
	fallback Provider
	timeout  time.Duration
	log      *zap.Logger
}

func (p *fallbackProvider) Remark(ctx context.Context, req Request) (string, error) {
	if p.primary != nil {
		rctx := ctx
		if p.timeout > 0 {
			var cancel context.CancelFunc
			rctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		text, err := p.primary.Remark(rctx, req)
		if err == nil && text != "" {
			return text, nil
		}
		if err != nil {
			p.log.Warn("remark provider failed, falling back to template",
				zap.String("state", req.StateName), zap.Error(err))
		}
	}
	return p.fallback.Remark(ctx, req)
}
