package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    operation TEXT NOT NULL,
    source_id INTEGER,
    prompt TEXT,
    shot_count INTEGER NOT NULL DEFAULT 1,
    credits INTEGER NOT NULL DEFAULT 0,
    status TEXT NOT NULL,
    detail TEXT,
    metadata_json TEXT,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS preferences (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_operations_timestamp ON operations(timestamp);
CREATE INDEX IF NOT EXISTS idx_operations_operation ON operations(operation);
CREATE INDEX IF NOT EXISTS idx_operations_session_id ON operations(session_id);
`

type Store struct {
	db *sql.DB
}

func NewStore(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Insert(ctx context.Context, e *Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO operations (id, session_id, operation, source_id, prompt, shot_count, credits, status, detail, metadata_json, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SessionID, string(e.Operation), nullInt(e.SourceID), nullString(e.Prompt),
		e.Count, e.Credits, string(e.Status), nullString(e.Detail), e.Metadata.ToJSON(), e.Timestamp)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, session_id, operation, source_id, prompt, shot_count, credits, status, detail, metadata_json, timestamp
		 FROM operations WHERE id = ?`, id)
	return scanEntry(row)
}

// Recent lists the newest entries first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, operation, source_id, prompt, shot_count, credits, status, detail, metadata_json, timestamp
		 FROM operations ORDER BY timestamp DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	e := &Entry{}
	var op, status string
	var sourceID sql.NullInt64
	var prompt, detail, metadataJSON sql.NullString
	if err := row.Scan(&e.ID, &e.SessionID, &op, &sourceID, &prompt, &e.Count,
		&e.Credits, &status, &detail, &metadataJSON, &e.Timestamp); err != nil {
		return nil, err
	}
	e.Operation = Operation(op)
	e.Status = Status(status)
	e.SourceID = sourceID.Int64
	e.Prompt = prompt.String
	e.Detail = detail.String
	e.Metadata = ParseMetadata(metadataJSON.String)
	return e, nil
}

func (s *Store) CreditsByDateRange(ctx context.Context, start, end time.Time) (*CreditSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COALESCE(SUM(shot_count), 0), COUNT(*)
		 FROM operations WHERE status = ? AND timestamp >= ? AND timestamp < ?`,
		string(StatusSuccess), start.UTC(), end.UTC())
	return scanSummary(row)
}

// CreditsForDays sums successful credits over the last days calendar days,
// today included.
func (s *Store) CreditsForDays(ctx context.Context, days int) (*CreditSummary, error) {
	start, end := DayRange(time.Now(), days)
	return s.CreditsByDateRange(ctx, start, end)
}

// DayRange returns the half-open span covering the days local calendar days
// ending with the day of now.
func DayRange(now time.Time, days int) (start, end time.Time) {
	end = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, 1)
	return end.AddDate(0, 0, -days), end
}

func (s *Store) CreditsByOperation(ctx context.Context) ([]OperationSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT operation, COALESCE(SUM(credits), 0), COALESCE(SUM(shot_count), 0), COUNT(*)
		 FROM operations WHERE status = ? GROUP BY operation ORDER BY operation`,
		string(StatusSuccess))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []OperationSummary
	for rows.Next() {
		var sum OperationSummary
		var op string
		if err := rows.Scan(&op, &sum.Credits, &sum.ShotCount, &sum.Entries); err != nil {
			return nil, err
		}
		sum.Operation = Operation(op)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

func (s *Store) TotalCredits(ctx context.Context) (*CreditSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COALESCE(SUM(shot_count), 0), COUNT(*)
		 FROM operations WHERE status = ?`, string(StatusSuccess))
	return scanSummary(row)
}

func (s *Store) SessionCredits(ctx context.Context, sessionID string) (*CreditSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(credits), 0), COALESCE(SUM(shot_count), 0), COUNT(*)
		 FROM operations WHERE status = ? AND session_id = ?`,
		string(StatusSuccess), sessionID)
	return scanSummary(row)
}

func scanSummary(row scanner) (*CreditSummary, error) {
	var summary CreditSummary
	if err := row.Scan(&summary.Credits, &summary.ShotCount, &summary.EntryCount); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *Store) SetPreference(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	return err
}

// Preference returns the stored value and whether it exists.
func (s *Store) Preference(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Store) Preferences(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM preferences`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	prefs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		prefs[k] = v
	}
	return prefs, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
