package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/store"
)

// seedAnalyzeDB builds a database with one two-sided pair whose
// reference numbers disagree (TXN1) and one internal-only record
// (TXN2).
func seedAnalyzeDB(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recon.db")
	s, err := store.Open(path)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.InsertWorkspace(ctx, store.Workspace{ID: "ws_1", Name: "Acme"}))
	require.NoError(t, s.InsertFileType(ctx, store.FileType{
		ID: "ft_int", WorkspaceID: "ws_1", Name: "ledger",
		SourceCategory: "internal", UniqueColumn: "txn_id",
	}))
	require.NoError(t, s.InsertFileType(ctx, store.FileType{
		ID: "ft_mis", WorkspaceID: "ws_1", Name: "statement",
		SourceCategory: "bank_mis", UniqueColumn: "utr",
	}))

	require.NoError(t, s.InsertJournalRecord(ctx, store.JournalRecord{
		FileTypeID: "ft_int", EntityID: "e-1", TxnDate: "2026-08-01",
		ReconStatus: "Reconciled", ReconAt: "2026-08-01 10:00:00",
		Data: recon.Record{
			"txn_id": recon.String("TXN1"),
			"amount": recon.Number(100),
			"rrn":    recon.String("A1"),
		},
	}))
	require.NoError(t, s.InsertJournalRecord(ctx, store.JournalRecord{
		FileTypeID: "ft_mis", EntityID: "e-2", TxnDate: "2026-08-01",
		Data: recon.Record{
			"utr":    recon.String("TXN1"),
			"amount": recon.Number(100),
			"rrn":    recon.String("A2"),
		},
	}))
	require.NoError(t, s.InsertJournalRecord(ctx, store.JournalRecord{
		FileTypeID: "ft_int", EntityID: "e-3", TxnDate: "2026-08-02",
		Data: recon.Record{
			"txn_id": recon.String("TXN2"),
			"amount": recon.Number(55),
		},
	}))

	// Reconciled in the journal but the transaction row never got its
	// timestamp.
	require.NoError(t, s.InsertTransaction(ctx, "e-1", ""))

	return path
}

func decodeFindings(t *testing.T, out string) []findingView {
	t.Helper()
	var resp struct {
		Status string        `json:"status"`
		RunID  string        `json:"run_id"`
		Data   []findingView `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	return resp.Data
}

func TestAnalyzeCommand_RuleFailure(t *testing.T) {
	db := seedAnalyzeDB(t)

	out, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", "testdata/rulepack",
		"--scenario", "rules", "--format", "json", "TXN1")

	require.NoError(t, err)
	findings := decodeFindings(t, out)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "TXN1", f.RecordID)
	assert.Equal(t, "rule_failure", f.Scenario)
	assert.Equal(t, "rule_matching_failure", f.Issue)
	assert.Equal(t, "AmountOnlyMatch", f.State)
	assert.Equal(t, "(internal.amount == mis.amount)", f.Rule)
	assert.Equal(t, "Amount matched but reference number differs.", f.Remark)
	require.Len(t, f.Evidence, 1)
	assert.True(t, f.Evidence[0].Matched)
	assert.Equal(t, "100", f.Evidence[0].Internal)
}

func TestAnalyzeCommand_RuleFailureNoRemarks(t *testing.T) {
	db := seedAnalyzeDB(t)

	out, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", "testdata/rulepack",
		"--scenario", "rules", "--no-remarks", "--format", "json", "TXN1")

	require.NoError(t, err)
	findings := decodeFindings(t, out)
	require.Len(t, findings, 1)
	assert.Equal(t, "AmountOnlyMatch", findings[0].State)
	assert.Empty(t, findings[0].Remark)
}

func TestAnalyzeCommand_MixedEvidenceGradesMedium(t *testing.T) {
	db := seedAnalyzeDB(t)
	pack := writeRulepack(t, `
rulepack: {
	fragments: [
		{id: 1, expression: "internal.amount == mis.amount", fileType1: "ft_int", fileType2: "ft_mis"},
		{id: 2, expression: "internal.rrn == mis.rrn", fileType1: "ft_int", fileType2: "ft_mis"},
	]
	states: [{id: 2, name: "AmountOnlyMatch", rank: 50}]
	mappings: [{id: 10, expression: "1 or 2", fileType1: "ft_int", fileType2: "ft_mis", stateId: 2, seq: 1}]
}
`)

	out, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", pack,
		"--scenario", "rules", "--no-remarks", "--format", "json", "TXN1")

	require.NoError(t, err)
	findings := decodeFindings(t, out)
	require.Len(t, findings, 1)
	assert.Equal(t, "AmountOnlyMatch", findings[0].State)
	assert.Equal(t, "Medium", findings[0].Confidence)
}

func TestAnalyzeCommand_MissingCounterpart(t *testing.T) {
	db := seedAnalyzeDB(t)

	out, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", "testdata/rulepack",
		"--scenario", "missing", "--format", "json", "TXN2")

	require.NoError(t, err)
	findings := decodeFindings(t, out)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "missing_counterpart", f.Scenario)
	assert.Equal(t, "mis_data_missing", f.Issue)
	assert.Equal(t, "Unresolved", f.State)
	require.NotEmpty(t, f.Evidence)
	assert.Equal(t, "mis", f.Evidence[0].Absent)
}

func TestAnalyzeCommand_TimestampSync(t *testing.T) {
	db := seedAnalyzeDB(t)

	out, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", "testdata/rulepack",
		"--scenario", "timestamp", "--format", "json", "TXN1")

	require.NoError(t, err)
	findings := decodeFindings(t, out)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, "timestamp_sync", f.Scenario)
	assert.Equal(t, "recon_at_not_updated", f.Issue)
	assert.Equal(t, "Reconciled", f.State)
}

func TestAnalyzeCommand_UnknownWorkspace(t *testing.T) {
	db := seedAnalyzeDB(t)

	_, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_404",
		"--rulepack", "testdata/rulepack", "TXN1")

	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAnalyzeCommand_InvalidScenario(t *testing.T) {
	db := seedAnalyzeDB(t)

	_, err := runCommand(t, "analyze",
		"--db", db, "--workspace", "ws_1",
		"--rulepack", "testdata/rulepack",
		"--scenario", "everything", "TXN1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid scenario")
}

func TestLoadCommand_ImportsRulepack(t *testing.T) {
	db := filepath.Join(t.TempDir(), "recon.db")

	out, err := runCommand(t, "load",
		"--db", db, "--workspace", "ws_1", "testdata/rulepack")

	require.NoError(t, err)
	assert.Contains(t, out, "Imported 2 fragments, 2 states, 2 mappings")

	s, err := store.Open(db)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	fragments, err := s.Fragments(ctx, "ws_1")
	require.NoError(t, err)
	assert.Len(t, fragments, 2)

	entries, states, err := s.MappingEntries(ctx, "ws_1")
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, states, 2)
	assert.Equal(t, "Reconciled", entries[0].State.Name)
}

func TestLoadCommand_RejectsDuplicateImport(t *testing.T) {
	db := filepath.Join(t.TempDir(), "recon.db")

	_, err := runCommand(t, "load", "--db", db, "--workspace", "ws_1", "testdata/rulepack")
	require.NoError(t, err)

	_, err = runCommand(t, "load", "--db", db, "--workspace", "ws_1", "testdata/rulepack")
	require.Error(t, err)
}
