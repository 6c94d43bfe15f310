package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/reconlens/reconlens/internal/engine"
	"github.com/reconlens/reconlens/internal/recon"
	"github.com/reconlens/reconlens/internal/rule"
)

// Workspace is a reconciliation workspace row.
type Workspace struct {
	ID         string
	MerchantID string
	Name       string
}

// FileType is a workspace file type with the metadata the engine needs:
// its side classification and the unique column used to pair records
// across file types.
type FileType struct {
	ID             string
	WorkspaceID    string
	Name           string
	SourceCategory string
	UniqueColumn   string
}

// IsInternal classifies the file type as the internal side.
func (ft FileType) IsInternal() bool {
	return strings.Contains(strings.ToLower(ft.SourceCategory), "internal")
}

// IsMIS classifies the file type as the MIS (bank/counterpart) side.
func (ft FileType) IsMIS() bool {
	cat := strings.ToLower(ft.SourceCategory)
	return strings.Contains(cat, "bank") || strings.Contains(cat, "mis")
}

// JournalRecord is one record row from the journal mirror.
type JournalRecord struct {
	FileTypeID  string
	EntityID    string
	TxnDate     string
	ReconStatus string
	ReconAt     string
	Data        recon.Record
}

// Workspace loads a workspace by ID. Returns nil when no live row
// exists.
func (s *Store) Workspace(ctx context.Context, id string) (*Workspace, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(merchant_id, ''), COALESCE(name, '')
		 FROM workspaces WHERE id = ? AND deleted_at IS NULL`, id)

	var ws Workspace
	if err := row.Scan(&ws.ID, &ws.MerchantID, &ws.Name); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query workspace %s: %w", id, err)
	}
	return &ws, nil
}

// FileTypes loads the live file types of a workspace, with the unique
// column extracted from file_metadata.
func (s *Store) FileTypes(ctx context.Context, workspaceID string) ([]FileType, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workspace_id, COALESCE(name, ''), COALESCE(file_metadata, ''), COALESCE(source_category, '')
		 FROM file_types WHERE workspace_id = ? AND deleted_at IS NULL ORDER BY id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query file types: %w", err)
	}
	defer rows.Close()

	var out []FileType
	for rows.Next() {
		var ft FileType
		var metadata string
		if err := rows.Scan(&ft.ID, &ft.WorkspaceID, &ft.Name, &metadata, &ft.SourceCategory); err != nil {
			return nil, fmt.Errorf("scan file type: %w", err)
		}
		ft.UniqueColumn = uniqueColumnFromMetadata(metadata)
		out = append(out, ft)
	}
	return out, rows.Err()
}

// uniqueColumnFromMetadata extracts the unique_column entry from the
// file_metadata JSON list of {"name", "value"} pairs. Returns "" when
// absent or malformed - pairing then falls back to the journal entity
// ID.
func uniqueColumnFromMetadata(metadata string) string {
	if metadata == "" {
		return ""
	}
	var entries []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal([]byte(metadata), &entries); err != nil {
		return ""
	}
	for _, e := range entries {
		if e.Name == "unique_column" {
			return e.Value
		}
	}
	return ""
}

// Fragments loads the live rule fragments of a workspace.
func (s *Store) Fragments(ctx context.Context, workspaceID string) ([]rule.Fragment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(rule, ''), COALESCE(file_type1_id, ''), COALESCE(file_type2_id, ''), COALESCE(is_self_rule, 0)
		 FROM rules WHERE workspace_id = ? AND deleted_at IS NULL ORDER BY id`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	var out []rule.Fragment
	for rows.Next() {
		var f rule.Fragment
		var selfRule int
		if err := rows.Scan(&f.ID, &f.Expression, &f.FileType1ID, &f.FileType2ID, &selfRule); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		f.SelfRule = selfRule != 0
		out = append(out, f)
	}
	return out, rows.Err()
}

// MappingEntries loads the live rule-to-state mapping entries of a
// workspace joined with their reconciliation states, plus the full
// state table (the engine validates the parent invariant against it).
// Row order is by ID; priority ordering is the mapping table's concern.
func (s *Store) MappingEntries(ctx context.Context, workspaceID string) ([]rule.MappingEntry, []recon.State, error) {
	states, err := s.states(ctx)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]recon.State, len(states))
	for _, st := range states {
		byID[st.ID] = st
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, COALESCE(m.rule_expression, ''), COALESCE(m.file_type1_id, ''), COALESCE(m.file_type2_id, ''),
		        m.recon_state_id, m.seq_number, COALESCE(m.workflow_id, ''), COALESCE(m.is_unreconciled_enrichment_rule, 0)
		 FROM rule_recon_state_map m
		 JOIN recon_state rs ON m.recon_state_id = rs.id
		 WHERE m.workspace_id = ? AND m.deleted_at IS NULL AND rs.deleted_at IS NULL
		 ORDER BY m.id`, workspaceID)
	if err != nil {
		return nil, nil, fmt.Errorf("query rule_recon_state_map: %w", err)
	}
	defer rows.Close()

	var out []rule.MappingEntry
	for rows.Next() {
		var e rule.MappingEntry
		var stateID int64
		var seq sql.NullInt64
		var enrichment int
		if err := rows.Scan(&e.ID, &e.RuleExpression, &e.FileType1ID, &e.FileType2ID,
			&stateID, &seq, &e.WorkflowID, &enrichment); err != nil {
			return nil, nil, fmt.Errorf("scan mapping entry: %w", err)
		}
		e.State = byID[stateID]
		e.Seq, e.HasSeq = seq.Int64, seq.Valid
		e.EnrichmentOnly = enrichment != 0
		out = append(out, e)
	}
	return out, states, rows.Err()
}

// states loads the live reconciliation state table.
func (s *Store) states(ctx context.Context) ([]recon.State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, COALESCE(state, ''), COALESCE(rank, 0), COALESCE(is_internal, 0), parent_id, COALESCE(art_remarks, '')
		 FROM recon_state WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query recon_state: %w", err)
	}
	defer rows.Close()

	var out []recon.State
	for rows.Next() {
		var st recon.State
		var internal int
		var parent sql.NullInt64
		if err := rows.Scan(&st.ID, &st.Name, &st.Rank, &internal, &parent, &st.RemarkTemplate); err != nil {
			return nil, fmt.Errorf("scan recon_state: %w", err)
		}
		st.IsInternal = internal != 0
		if parent.Valid {
			id := parent.Int64
			st.ParentID = &id
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// JournalRecords loads journal rows for a file type whose unique column
// (inside record_data) carries the given value. An empty uniqueColumn
// falls back to the journal's entity ID.
func (s *Store) JournalRecords(ctx context.Context, fileTypeID, uniqueColumn, value string) ([]JournalRecord, error) {
	var rows *sql.Rows
	var err error
	if uniqueColumn == "" {
		rows, err = s.db.QueryContext(ctx,
			`SELECT file_type_id, entity_id, COALESCE(txn_date, ''), COALESCE(recon_status, ''), COALESCE(recon_at, ''), COALESCE(record_data, '')
			 FROM journal WHERE file_type_id = ? AND entity_id = ? ORDER BY txn_date`, fileTypeID, value)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT file_type_id, entity_id, COALESCE(txn_date, ''), COALESCE(recon_status, ''), COALESCE(recon_at, ''), COALESCE(record_data, '')
			 FROM journal WHERE file_type_id = ? AND json_extract(record_data, '$.' || ?) = ? ORDER BY txn_date`,
			fileTypeID, uniqueColumn, value)
	}
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var out []JournalRecord
	for rows.Next() {
		var jr JournalRecord
		var data string
		if err := rows.Scan(&jr.FileTypeID, &jr.EntityID, &jr.TxnDate, &jr.ReconStatus, &jr.ReconAt, &data); err != nil {
			return nil, fmt.Errorf("scan journal row: %w", err)
		}
		jr.Data = decodeRecord(data)
		out = append(out, jr)
	}
	return out, rows.Err()
}

// decodeRecord converts a record_data JSON object into a Record. A
// malformed payload yields an empty record rather than failing the
// analysis: record data is external input.
func decodeRecord(data string) recon.Record {
	rec := recon.Record{}
	if data == "" {
		return rec
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(data), &raw); err != nil {
		return rec
	}
	for k, v := range raw {
		rec[k] = recon.FromAny(v)
	}
	return rec
}

// Transaction implements engine.TransactionSource. Returns nil when no
// transaction row exists for the entity.
func (s *Store) Transaction(ctx context.Context, entityID string) (*engine.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT entity_id, COALESCE(reconciled_at, '') FROM transactions WHERE entity_id = ? LIMIT 1`, entityID)

	var tx engine.Transaction
	if err := row.Scan(&tx.EntityID, &tx.ReconciledAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query transaction %s: %w", entityID, err)
	}
	return &tx, nil
}

// Payment implements engine.PaymentSource. Returns nil when the payment
// does not exist.
func (s *Store) Payment(ctx context.Context, entityID string) (*engine.Payment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, COALESCE(updated_at, 0), COALESCE(_datalake_updated_at, 0) FROM payments WHERE id = ? LIMIT 1`, entityID)

	var p engine.Payment
	if err := row.Scan(&p.EntityID, &p.UpdatedAt, &p.DatalakeUpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query payment %s: %w", entityID, err)
	}
	return &p, nil
}

// FileIngested implements engine.IngestionSource: whether any journal
// row exists for the file type on the given date.
func (s *Store) FileIngested(ctx context.Context, fileTypeID, date string) (bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM journal WHERE file_type_id = ? AND txn_date = ?`, fileTypeID, date)

	var count int
	if err := row.Scan(&count); err != nil {
		return false, fmt.Errorf("check file ingestion: %w", err)
	}
	return count > 0, nil
}

// AssemblePair joins the internal and MIS journal records sharing a
// unique-column value into a RecordPair. Either side of the returned
// pair may be nil; the accompanying journal records feed the
// timestamp-sync scenario. The pairing key strategy is this source's
// concern - the engine only ever sees the explicit pair.
func (s *Store) AssemblePair(ctx context.Context, fileTypes []FileType, value string) (recon.RecordPair, []JournalRecord, error) {
	pair := recon.RecordPair{ID: value}
	var all []JournalRecord

	for _, ft := range fileTypes {
		if !ft.IsInternal() && !ft.IsMIS() {
			continue
		}
		records, err := s.JournalRecords(ctx, ft.ID, ft.UniqueColumn, value)
		if err != nil {
			return recon.RecordPair{}, nil, err
		}
		all = append(all, records...)
		if len(records) == 0 {
			// Remember the file type so the missing-counterpart scenario
			// can name the absent side even with no record.
			if ft.IsInternal() && pair.FileType1ID == "" {
				pair.FileType1ID = ft.ID
			}
			if ft.IsMIS() && pair.FileType2ID == "" {
				pair.FileType2ID = ft.ID
			}
			continue
		}

		first := records[0]
		if pair.TransactionDate == "" {
			pair.TransactionDate = first.TxnDate
		}
		if ft.IsInternal() && pair.Internal == nil {
			pair.Internal = first.Data
			pair.FileType1ID = ft.ID
		}
		if ft.IsMIS() && pair.MIS == nil {
			pair.MIS = first.Data
			pair.FileType2ID = ft.ID
		}
	}

	return pair, all, nil
}
