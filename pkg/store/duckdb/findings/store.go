package findings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vg-tools/ledger-audit/pkg/models/domain"
	"github.com/vg-tools/ledger-audit/pkg/models/store"
	"github.com/vg-tools/ledger-audit/pkg/services/lifecycle"
	"github.com/vg-tools/ledger-audit/pkg/store/duckdb"
	findingsstore "github.com/vg-tools/ledger-audit/pkg/store/findings"
)

type findingStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (findingsstore.Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &findingStore{db: db}, nil
}

func (s *findingStore) Save(ctx context.Context, f domain.Finding) error {
	evidence, err := json.Marshal(f.Evidence)
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO findings (
			id, unit_id, rule_id, severity, month, delta, evidence,
			narrative, evidence_incomplete, status, notes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = s.exec(ctx, query,
		f.ID,
		f.UnitID,
		f.RuleID,
		f.Severity.String(),
		f.Month.String(),
		f.Delta.String(),
		string(evidence),
		f.Narrative,
		f.EvidenceIncomplete,
		string(f.Status),
		f.Notes,
		f.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert finding: %w", err)
	}

	for _, rec := range f.History {
		if err := s.AppendOverride(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (s *findingStore) Get(ctx context.Context, findingID string) (domain.Finding, error) {
	query := `
		SELECT id, unit_id, rule_id, severity, month, delta, evidence,
			narrative, evidence_incomplete, status, notes, created_at
		FROM findings WHERE id = ?`

	f, err := s.scanFinding(s.db.QueryRowContext(ctx, query, findingID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Finding{}, findingsstore.ErrNotFound
		}
		return domain.Finding{}, fmt.Errorf("load finding: %w", err)
	}

	history, err := s.loadHistory(ctx, findingID)
	if err != nil {
		return domain.Finding{}, err
	}
	f.History = history
	return f, nil
}

func (s *findingStore) List(ctx context.Context, filter findingsstore.Filter) ([]domain.Finding, error) {
	query := `
		SELECT id, unit_id, rule_id, severity, month, delta, evidence,
			narrative, evidence_incomplete, status, notes, created_at
		FROM findings WHERE 1=1`
	var args []any

	if filter.UnitID != "" {
		query += " AND unit_id = ?"
		args = append(args, filter.UnitID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}
	if filter.RuleID != "" {
		query += " AND rule_id = ?"
		args = append(args, filter.RuleID)
	}
	if filter.Severity != nil {
		query += " AND severity = ?"
		args = append(args, filter.Severity.String())
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	defer rows.Close()

	var out []domain.Finding
	for rows.Next() {
		f, err := s.scanFinding(rows)
		if err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *findingStore) AppendOverride(ctx context.Context, rec domain.OverrideRecord) error {
	query := `
		INSERT INTO override_records (
			finding_id, from_status, to_status, actor, recorded_at, notes
		) VALUES (?, ?, ?, ?, ?, ?)`

	_, err := s.exec(ctx, query,
		rec.FindingID,
		string(rec.FromStatus),
		string(rec.ToStatus),
		rec.Actor,
		rec.Timestamp,
		rec.Notes,
	)
	if err != nil {
		return fmt.Errorf("append override: %w", err)
	}
	return nil
}

func (s *findingStore) UpdateStatus(
	ctx context.Context,
	findingID string,
	from, to domain.Status,
	notes string,
) error {
	query := `UPDATE findings SET status = ?, notes = ? WHERE id = ? AND status = ?`

	res, err := s.exec(ctx, query, string(to), notes, findingID, string(from))
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if affected == 0 {
		// Either the finding is gone or its status moved under us.
		current, err := s.Get(ctx, findingID)
		if err != nil {
			return err
		}
		return &lifecycle.ConcurrentModificationError{
			FindingID: findingID,
			Expected:  from,
			Actual:    current.Status,
		}
	}
	return nil
}

func (s *findingStore) Merge(ctx context.Context, detected []domain.Finding) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin merge: %w", err)
	}
	defer tx.Rollback()

	txCtx := duckdb.WithTransaction(ctx, tx)

	inserted := 0
	for _, f := range detected {
		var existing int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM findings WHERE unit_id = ? AND rule_id = ? AND month = ? AND status != ?`,
			f.UnitID, f.RuleID, f.Month.String(), string(domain.StatusClosed),
		).Scan(&existing)
		if err != nil {
			return 0, fmt.Errorf("merge lookup: %w", err)
		}
		if existing > 0 {
			continue
		}
		if err := s.Save(txCtx, f); err != nil {
			return 0, err
		}
		inserted++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit merge: %w", err)
	}
	return inserted, nil
}

// exec routes through an ambient transaction when one is on the context.
func (s *findingStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		return tx.ExecContext(ctx, query, args...)
	}
	return s.db.ExecContext(ctx, query, args...)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *findingStore) scanFinding(row rowScanner) (domain.Finding, error) {
	var rec store.FindingRow
	err := row.Scan(
		&rec.ID, &rec.UnitID, &rec.RuleID, &rec.Severity, &rec.Month, &rec.Delta,
		&rec.Evidence, &rec.Narrative, &rec.EvidenceIncomplete, &rec.Status,
		&rec.Notes, &rec.CreatedAt,
	)
	if err != nil {
		return domain.Finding{}, err
	}
	return toDomainFinding(rec)
}

func toDomainFinding(rec store.FindingRow) (domain.Finding, error) {
	f := domain.Finding{
		ID:                 rec.ID,
		UnitID:             rec.UnitID,
		RuleID:             rec.RuleID,
		Severity:           domain.ParseSeverity(rec.Severity),
		Narrative:          rec.Narrative,
		EvidenceIncomplete: rec.EvidenceIncomplete,
		Status:             domain.Status(rec.Status),
		Notes:              rec.Notes,
		CreatedAt:          rec.CreatedAt,
	}

	var err error
	if f.Month, err = domain.ParseYearMonth(rec.Month); err != nil {
		return domain.Finding{}, err
	}
	if f.Delta, err = decimal.NewFromString(rec.Delta); err != nil {
		return domain.Finding{}, fmt.Errorf("parse delta: %w", err)
	}
	if len(rec.Evidence) > 0 {
		if err := json.Unmarshal(rec.Evidence, &f.Evidence); err != nil {
			return domain.Finding{}, fmt.Errorf("unmarshal evidence: %w", err)
		}
	}
	return f, nil
}

func (s *findingStore) loadHistory(ctx context.Context, findingID string) ([]domain.OverrideRecord, error) {
	query := `
		SELECT finding_id, from_status, to_status, actor, recorded_at, notes
		FROM override_records WHERE finding_id = ? ORDER BY recorded_at, rowid`

	rows, err := s.db.QueryContext(ctx, query, findingID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	var history []domain.OverrideRecord
	for rows.Next() {
		var rec store.OverrideRow
		if err := rows.Scan(&rec.FindingID, &rec.FromStatus, &rec.ToStatus, &rec.Actor, &rec.Timestamp, &rec.Notes); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		history = append(history, domain.OverrideRecord{
			FindingID:  rec.FindingID,
			FromStatus: domain.Status(rec.FromStatus),
			ToStatus:   domain.Status(rec.ToStatus),
			Actor:      rec.Actor,
			Timestamp:  rec.Timestamp,
			Notes:      rec.Notes,
		})
	}
	return history, rows.Err()
}
