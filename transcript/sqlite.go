package transcript

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hupe1980/agentloop/core"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transcripts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL,
	status     TEXT NOT NULL,
	question   TEXT NOT NULL,
	answer     TEXT NOT NULL,
	messages   TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created_at ON transcripts(created_at);
`

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and creates if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create transcript dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate transcript db: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Save inserts or replaces rec.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	msgs, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO transcripts(id, run_id, status, question, answer, messages, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.RunID, rec.Status, rec.Question, rec.Answer, string(msgs), rec.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads the record with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, run_id, status, question, answer, messages, created_at FROM transcripts WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return rec, err
}

// List returns records newest first.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, status, question, answer, messages, created_at
		 FROM transcripts ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec     Record
		msgs    string
		created int64
	)
	if err := row.Scan(&rec.ID, &rec.RunID, &rec.Status, &rec.Question, &rec.Answer, &msgs, &created); err != nil {
		return Record{}, err
	}
	var messages []core.Message
	if err := json.Unmarshal([]byte(msgs), &messages); err != nil {
		return Record{}, fmt.Errorf("decode messages of %s: %w", rec.ID, err)
	}
	rec.Messages = messages
	rec.CreatedAt = time.Unix(0, created).UTC()
	return rec, nil
}
