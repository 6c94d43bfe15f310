package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/rule"
)

// InsertWorkspace inserts a workspace row.
func (s *Store) InsertWorkspace(ctx context.Context, ws Workspace) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (id, merchant_id, name) VALUES (?, ?, ?)`,
		ws.ID, ws.MerchantID, ws.Name)
	if err != nil {
		return fmt.Errorf("insert workspace %s: %w", ws.ID, err)
	}
	return nil
}

// InsertFileType inserts a file type row. The unique column, when set,
// is encoded into the file_metadata name/value list.
func (s *Store) InsertFileType(ctx context.Context, ft FileType) error {
	metadata := ""
	if ft.UniqueColumn != "" {
		raw, err := json.Marshal([]map[string]string{{"name": "unique_column", "value": ft.UniqueColumn}})
		if err != nil {
			return fmt.Errorf("encode file metadata: %w", err)
		}
		metadata = string(raw)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO file_types (id, workspace_id, name, file_metadata, source_category) VALUES (?, ?, ?, ?, ?)`,
		ft.ID, ft.WorkspaceID, ft.Name, metadata, ft.SourceCategory)
	if err != nil {
		return fmt.Errorf("insert file type %s: %w", ft.ID, err)
	}
	return nil
}

// InsertFragment inserts a rule fragment row.
func (s *Store) InsertFragment(ctx context.Context, workspaceID string, f rule.Fragment) error {
	selfRule := 0
	if f.SelfRule {
		selfRule = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rules (id, workspace_id, rule, file_type1_id, file_type2_id, is_self_rule) VALUES (?, ?, ?, ?, ?, ?)`,
		f.ID, workspaceID, f.Expression, f.FileType1ID, f.FileType2ID, selfRule)
	if err != nil {
		return fmt.Errorf("insert rule %d: %w", f.ID, err)
	}
	return nil
}

// InsertState inserts a reconciliation state row.
func (s *Store) InsertState(ctx context.Context, st recon.State) error {
	internal := 0
	if st.IsInternal {
		internal = 1
	}
	var parent any
	if st.ParentID != nil {
		parent = *st.ParentID
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO recon_state (id, state, rank, is_internal, parent_id, art_remarks) VALUES (?, ?, ?, ?, ?, ?)`,
		st.ID, st.Name, st.Rank, internal, parent, st.RemarkTemplate)
	if err != nil {
		return fmt.Errorf("insert recon_state %d: %w", st.ID, err)
	}
	return nil
}

// InsertMappingEntry inserts a rule-to-state mapping row. A missing
// sequence number is stored as NULL.
func (s *Store) InsertMappingEntry(ctx context.Context, workspaceID string, e rule.MappingEntry) error {
	var seq any
	if e.HasSeq {
		seq = e.Seq
	}
	enrichment := 0
	if e.EnrichmentOnly {
		enrichment = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rule_recon_state_map
		 (id, workspace_id, rule_expression, file_type1_id, file_type2_id, recon_state_id, seq_number, workflow_id, is_unreconciled_enrichment_rule)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, workspaceID, e.RuleExpression, e.FileType1ID, e.FileType2ID, e.State.ID, seq, e.WorkflowID, enrichment)
	if err != nil {
		return fmt.Errorf("insert mapping entry %d: %w", e.ID, err)
	}
	return nil
}

// InsertJournalRecord inserts a journal row with its record data
// serialized to JSON.
func (s *Store) InsertJournalRecord(ctx context.Context, jr JournalRecord) error {
	data := map[string]any{}
	for k, v := range jr.Data {
		data[k] = displayable(v)
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode record data: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO journal (file_type_id, entity_id, txn_date, recon_status, recon_at, record_data) VALUES (?, ?, ?, ?, ?, ?)`,
		jr.FileTypeID, jr.EntityID, jr.TxnDate, jr.ReconStatus, jr.ReconAt, string(raw))
	if err != nil {
		return fmt.Errorf("insert journal row %s/%s: %w", jr.FileTypeID, jr.EntityID, err)
	}
	return nil
}

// displayable converts a Value back to a plain JSON-encodable form.
func displayable(v recon.Value) any {
	switch val := v.(type) {
	case recon.Null:
		return nil
	case recon.Number:
		return float64(val)
	case recon.Bool:
		return bool(val)
	case recon.String:
		return string(val)
	default:
		return v.Display()
	}
}

// InsertTransaction inserts a transaction row.
func (s *Store) InsertTransaction(ctx context.Context, entityID, reconciledAt string) error {
	var recAt any
	if reconciledAt != "" {
		recAt = reconciledAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transactions (id, entity_id, reconciled_at) VALUES (?, ?, ?)`, entityID, entityID, recAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", entityID, err)
	}
	return nil
}

// InsertPayment inserts a payment row.
func (s *Store) InsertPayment(ctx context.Context, entityID string, updatedAt, datalakeUpdatedAt int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payments (id, updated_at, _datalake_updated_at) VALUES (?, ?, ?)`,
		entityID, updatedAt, datalakeUpdatedAt)
	if err != nil {
		return fmt.Errorf("insert payment %s: %w", entityID, err)
	}
	return nil
}
