package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlens/reconlens/internal/recon"
)

func sampleFindings() []recon.Finding {
	internalSettled := recon.State{ID: 3, Name: "InternalSettled", IsInternal: true}
	return []recon.Finding{
		{
			RecordID: "TXN1",
			Scenario: "rule_failure",
			Issue:    "rule_matching_failure",
			State:    recon.State{ID: 2, Name: "AmountOnlyMatch", Rank: 50},
			Matched:  &recon.RuleRef{EntryID: 20, Expression: "(internal.amount == mis.amount)", Seq: 2, HasSeq: true},
			Evidence: []recon.FieldEvidence{
				{Expr: "internal.amount == mis.amount", Field: "amount", Internal: recon.Number(100), MIS: recon.Number(100), Matched: true},
				{Expr: "internal.rrn == mis.rrn", Field: "rrn", Internal: recon.String("A1"), MIS: recon.String("A2")},
			},
			Remark:     "Amount matched but reference number differs.",
			Suggestion: "Fix the RRN mapping.",
			Confidence: recon.ConfidenceHigh,
		},
		{
			RecordID: "TXN2",
			Scenario: "missing_counterpart",
			Issue:    "mis_data_missing",
			State:    recon.Unresolved(),
			Evidence: []recon.FieldEvidence{
				{Expr: "internal.amount == mis.amount", Field: "amount", Internal: recon.Number(100), MIS: recon.Null{}, Absent: recon.AbsentMIS},
			},
			Suggestion: "MIS file not ingested for date 2026-08-01.",
			Confidence: recon.ConfidenceLow,
		},
		{
			RecordID:      "TXN3",
			Scenario:      "timestamp_sync",
			Issue:         "recon_at_not_updated",
			State:         recon.State{ID: 1, Name: "Reconciled", Rank: 100},
			InternalState: &internalSettled,
			Suggestion:    "Update transaction TXN3 with the reconciled-at timestamp.",
			Confidence:    recon.ConfidenceHigh,
		},
	}
}

func TestFindings_TextRendering(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, false)

	require.NoError(t, f.Findings("test-run", sampleFindings()))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "findings_text", buf.Bytes())
}

func TestFindings_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("text", &buf, false)

	require.NoError(t, f.Findings("test-run", nil))

	assert.Equal(t, "No findings.\n", buf.String())
}

func TestFindings_JSON(t *testing.T) {
	var buf bytes.Buffer
	f := NewFormatter("json", &buf, false)

	require.NoError(t, f.Findings("test-run", sampleFindings()))

	var resp struct {
		Status string        `json:"status"`
		RunID  string        `json:"run_id"`
		Data   []findingView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))

	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "test-run", resp.RunID)
	require.Len(t, resp.Data, 3)

	first := resp.Data[0]
	assert.Equal(t, "TXN1", first.RecordID)
	assert.Equal(t, "AmountOnlyMatch", first.State)
	assert.Equal(t, "(internal.amount == mis.amount)", first.Rule)
	assert.Equal(t, "High", first.Confidence)
	require.Len(t, first.Evidence, 2)
	assert.Equal(t, "A2", first.Evidence[1].MIS)
	assert.False(t, first.Evidence[1].Matched)

	second := resp.Data[1]
	assert.Equal(t, "Unresolved", second.State)
	assert.Empty(t, second.Rule)
	assert.Equal(t, "mis", second.Evidence[0].Absent)

	third := resp.Data[2]
	assert.Equal(t, "InternalSettled", third.Internal)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitCommandError, GetExitCode(WrapExitError(ExitCommandError, "bad flags", nil)))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
}
