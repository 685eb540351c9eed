package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/akanksha05Singh/gemini-email-agent/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite
// database. A single agent process is assumed to own the database for
// the duration of a run.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// GetSendLog returns the persisted send timestamps in ascending order.
// Rows that fail to parse are skipped rather than failing the load; the
// rate limiter treats them as absent (fail-open).
func (s *SQLiteStore) GetSendLog(ctx context.Context) ([]time.Time, error) {
	var raw []string
	err := s.db.SelectContext(
		ctx, &raw, "SELECT sent_at FROM send_log ORDER BY sent_at ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("reading send log: %w", err)
	}

	timestamps := make([]time.Time, 0, len(raw))
	for _, r := range raw {
		ts, err := time.Parse(time.RFC3339Nano, r)
		if err != nil {
			continue
		}
		timestamps = append(timestamps, ts)
	}

	return timestamps, nil
}

// ReplaceSendLog rewrites the send log in full inside one transaction.
func (s *SQLiteStore) ReplaceSendLog(
	ctx context.Context, timestamps []time.Time,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM send_log"); err != nil {
		return fmt.Errorf("clearing send log: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, "INSERT INTO send_log (sent_at) VALUES (?)")
	if err != nil {
		return fmt.Errorf("preparing send log insert: %w", err)
	}
	defer stmt.Close()

	for _, ts := range timestamps {
		if _, err := stmt.ExecContext(ctx, ts.UTC().Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("inserting send timestamp: %w", err)
		}
	}

	return tx.Commit()
}

// AppendAudit writes one audit record.
func (s *SQLiteStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	classification, err := json.Marshal(rec.Classification)
	if err != nil {
		return fmt.Errorf("marshaling classification for audit %s: %w", rec.ID, err)
	}

	actions, err := json.Marshal(rec.Actions)
	if err != nil {
		return fmt.Errorf("marshaling actions for audit %s: %w", rec.ID, err)
	}

	const query = `
		INSERT INTO audit_log (
			id, email_id, subject, classification, actions, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = s.db.ExecContext(ctx, query,
		rec.ID, rec.EmailID, rec.Subject,
		string(classification), string(actions), rec.Status,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("appending audit record %s: %w", rec.ID, err)
	}

	return nil
}

// auditRow is the flat scan target for audit_log rows.
type auditRow struct {
	ID             string `db:"id"`
	EmailID        string `db:"email_id"`
	Subject        string `db:"subject"`
	Classification string `db:"classification"`
	Actions        string `db:"actions"`
	Status         string `db:"status"`
	CreatedAt      string `db:"created_at"`
}

// GetAuditRecords returns the most recent audit records, newest first.
func (s *SQLiteStore) GetAuditRecords(
	ctx context.Context, limit int,
) ([]model.AuditRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []auditRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, email_id, subject, classification, actions, status, created_at "+
			"FROM audit_log ORDER BY created_at DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}

	records := make([]model.AuditRecord, 0, len(rows))
	for _, row := range rows {
		rec := model.AuditRecord{
			ID:      row.ID,
			EmailID: row.EmailID,
			Subject: row.Subject,
			Status:  row.Status,
		}

		if err := json.Unmarshal([]byte(row.Classification), &rec.Classification); err != nil {
			return nil, fmt.Errorf("unmarshaling classification for audit %s: %w", row.ID, err)
		}
		if err := json.Unmarshal([]byte(row.Actions), &rec.Actions); err != nil {
			return nil, fmt.Errorf("unmarshaling actions for audit %s: %w", row.ID, err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, row.CreatedAt); err == nil {
			rec.CreatedAt = ts
		}

		records = append(records, rec)
	}

	return records, nil
}
