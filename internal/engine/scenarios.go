package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/remark"
)

// Scenario tags carried on findings.
const (
	ScenarioTimestampSync      = "timestamp_sync"
	ScenarioMissingCounterpart = "missing_counterpart"
	ScenarioRuleFailure        = "rule_failure"
)

// Issue labels carried on findings.
const (
	IssueReconAtNotUpdated  = "recon_at_not_updated"
	IssueTransactionMissing = "transaction_record_missing"
	IssueInternalMissing    = "internal_data_missing"
	IssueMISMissing         = "mis_data_missing"
	IssuePaymentNotFound    = "payment_not_found"
	IssueDataLag            = "data_lag_detected"
	IssueRuleMatchFailure   = "rule_matching_failure"
)

// dataLagSeconds is how far the source and datalake update timestamps
// may drift before a missing internal record is blamed on replication
// lag rather than a missing file.
const dataLagSeconds = 3600

// ResolvedRecord is a record whose state was already resolved by a
// previous reconciliation run, as consumed by the timestamp-sync
// scenario. No rule re-evaluation happens for these.
type ResolvedRecord struct {
	RecordID string
	EntityID string
	State    recon.State

	// ReconAt is the reconciliation timestamp recorded alongside the
	// state, empty if absent.
	ReconAt string
}

// TimestampSync reports records that reached a terminal reconciled
// state (rank at or above the workspace threshold) but whose companion
// transaction row never got its reconciled-at timestamp - or has no
// transaction row at all. Records whose journal row lacks its own
// recon-at are out of scope.
//
// The state resolver is not invoked here: the scenario only consumes
// previously resolved states. Transaction-source failures propagate;
// they are retrieval faults, not analysis outcomes.
func TimestampSync(ctx context.Context, log *zap.Logger, records []ResolvedRecord, reconciledRank int, txs TransactionSource) ([]recon.Finding, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var findings []recon.Finding
	for _, rec := range records {
		if rec.State.Rank < reconciledRank {
			continue
		}
		// A journal row without its own recon-at never finished the
		// reconciliation write, so there is no timestamp to sync.
		if rec.ReconAt == "" {
			continue
		}

		tx, err := txs.Transaction(ctx, rec.EntityID)
		if err != nil {
			return nil, fmt.Errorf("look up transaction for %s: %w", rec.EntityID, err)
		}

		switch {
		case tx == nil:
			findings = append(findings, recon.Finding{
				RecordID:   rec.RecordID,
				Scenario:   ScenarioTimestampSync,
				Issue:      IssueTransactionMissing,
				State:      rec.State,
				Suggestion: fmt.Sprintf("Transaction record missing for entity %s. Create it with the reconciled-at timestamp.", rec.EntityID),
				Confidence: recon.ConfidenceHigh,
			})
		case tx.ReconciledAt == "":
			findings = append(findings, recon.Finding{
				RecordID:   rec.RecordID,
				Scenario:   ScenarioTimestampSync,
				Issue:      IssueReconAtNotUpdated,
				State:      rec.State,
				Suggestion: fmt.Sprintf("Update transaction %s with the reconciled-at timestamp.", rec.EntityID),
				Confidence: recon.ConfidenceHigh,
			})
		}
	}

	log.Info("timestamp-sync scenario completed",
		zap.Int("records", len(records)),
		zap.Int("findings", len(findings)))
	return findings, nil
}

// MissingCounterpart resolves pairs with an entirely absent side. The
// rule set naturally fails comparison-bearing rules against the absent
// side (recorded as absent evidence, not plain mismatches), so the pair
// falls into Unresolved or an explicit missing-counterpart state if the
// workspace defines one.
//
// The ingestion source distinguishes "genuinely missing" from "not yet
// ingested"; when a payment source is available and the internal side
// is the absent one, the scenario further separates unknown payments
// and replication lag. Both collaborator checks are best-effort - a
// lookup failure degrades the suggestion, never the resolved state.
func (s *Snapshot) MissingCounterpart(ctx context.Context, pairs []recon.RecordPair, ing IngestionSource, pay PaymentSource) []recon.Finding {
	var findings []recon.Finding
	for _, pair := range pairs {
		if !pair.OneSided() {
			continue
		}

		finding := s.Resolve(pair)
		finding.Scenario = ScenarioMissingCounterpart

		absentFileType := pair.FileType1ID
		absentName := "internal"
		if pair.HasInternal() {
			absentFileType = pair.FileType2ID
			absentName = "MIS"
			finding.Issue = IssueMISMissing
		} else {
			finding.Issue = IssueInternalMissing
		}

		ingested := false
		if ing != nil && pair.TransactionDate != "" {
			ok, err := ing.FileIngested(ctx, absentFileType, pair.TransactionDate)
			if err != nil {
				s.log.Warn("file ingestion check failed",
					zap.String("file_type_id", absentFileType),
					zap.String("date", pair.TransactionDate),
					zap.Error(err))
			} else {
				ingested = ok
			}
		}
		if ingested {
			finding.Suggestion = fmt.Sprintf("%s file was ingested for %s but record %s is missing. Re-ingest the %s file.",
				absentName, pair.TransactionDate, pair.ID, absentName)
		} else {
			finding.Suggestion = fmt.Sprintf("%s file not ingested for date %s.", absentName, pair.TransactionDate)
		}

		if !pair.HasInternal() && pay != nil {
			s.checkPayment(ctx, pay, pair, &finding)
		}

		findings = append(findings, finding)
	}

	s.log.Info("missing-counterpart scenario completed",
		zap.Int("pairs", len(pairs)),
		zap.Int("findings", len(findings)))
	return findings
}

// checkPayment refines a missing-internal finding using the source
// payments table: a payment that never existed is a different problem
// from one that exists but lags behind in the data lake.
func (s *Snapshot) checkPayment(ctx context.Context, pay PaymentSource, pair recon.RecordPair, finding *recon.Finding) {
	p, err := pay.Payment(ctx, pair.ID)
	if err != nil {
		s.log.Warn("payment lookup failed", zap.String("entity_id", pair.ID), zap.Error(err))
		return
	}
	switch {
	case p == nil:
		finding.Issue = IssuePaymentNotFound
		finding.Suggestion = fmt.Sprintf("Payment %s not found in the payments table; the payment may not exist in the source system.", pair.ID)
	case lagSeconds(p) > dataLagSeconds:
		finding.Issue = IssueDataLag
		finding.Suggestion = fmt.Sprintf("Payment %s exists but the data lake lags the source by %.2f hours. Re-ingest the internal file once replication catches up.",
			pair.ID, float64(lagSeconds(p))/3600)
	default:
		finding.Suggestion = fmt.Sprintf("Payment %s exists in the payments table; internal data should be present. Re-ingest the internal file.", pair.ID)
	}
}

func lagSeconds(p *Payment) int64 {
	lag := p.UpdatedAt - p.DatalakeUpdatedAt
	if lag < 0 {
		lag = -lag
	}
	return lag
}

// RuleFailure runs full resolution for pairs where both sides are
// present but the externally reported state is not terminal - the
// canonical use of the resolver, evaluator, and state resolver
// together. Each finding carries complete field evidence and a
// best-effort remark.
//
// A nil provider falls back to the built-in template provider. Provider
// failures never alter the finding beyond leaving the template remark
// in place.
func (s *Snapshot) RuleFailure(ctx context.Context, pairs []recon.RecordPair, provider remark.Provider) []recon.Finding {
	if provider == nil {
		provider = remark.NewTemplateProvider()
	}

	var findings []recon.Finding
	for _, pair := range pairs {
		if !pair.HasInternal() || !pair.HasMIS() {
			continue
		}

		finding := s.Resolve(pair)
		finding.Scenario = ScenarioRuleFailure
		finding.Issue = IssueRuleMatchFailure
		s.attachRemark(ctx, provider, &finding)
		findings = append(findings, finding)
	}

	s.log.Info("rule-failure scenario completed",
		zap.Int("pairs", len(pairs)),
		zap.Int("findings", len(findings)))
	return findings
}

// attachRemark asks the provider for an explanation of an
// already-resolved finding. Failures leave the remark empty; they are
// recovered here and never propagate.
func (s *Snapshot) attachRemark(ctx context.Context, provider remark.Provider, finding *recon.Finding) {
	req := remark.Request{
		StateName:      finding.State.Name,
		RemarkTemplate: finding.State.RemarkTemplate,
		Evidence:       finding.Evidence,
	}
	if finding.Matched != nil {
		req.RuleText = finding.Matched.Expression
	}

	text, err := provider.Remark(ctx, req)
	if err != nil {
		s.log.Warn("remark generation failed, leaving template remark",
			zap.String("record_id", finding.RecordID), zap.Error(err))
		finding.Remark = finding.State.RemarkTemplate
		return
	}
	finding.Remark = text
}
