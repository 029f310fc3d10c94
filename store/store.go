package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"hark/etc"
)

// Transcript is one saved recognition result.
type Transcript struct {
	ID        string
	Session   string
	Language  string
	Text      string
	OnDevice  bool
	CreatedAt time.Time
}

// Store keeps finished transcripts in a local SQLite file.
type Store struct {
	db    *sql.DB
	clock func() time.Time
}

func Open(ctx context.Context, path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db, clock: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	ddl := `
CREATE TABLE IF NOT EXISTS transcripts (
    id TEXT PRIMARY KEY,
    session_id TEXT NOT NULL,
    language TEXT NOT NULL,
    text TEXT NOT NULL,
    on_device INTEGER NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transcripts_created ON transcripts(created_at);
`
	_, err := s.db.ExecContext(ctx, ddl)
	return err
}

// Save records a finished transcript.
func (s *Store) Save(
	ctx context.Context,
	sessionID, language, text string,
	onDevice bool,
) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcripts (id, session_id, language, text, on_device, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		etc.NewFreshID(),
		sessionID,
		language,
		text,
		onDevice,
		s.clock().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save transcript: %w", err)
	}
	return nil
}

// List returns up to limit transcripts, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Transcript, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, session_id, language, text, on_device, created_at
		 FROM transcripts ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []Transcript
	for rows.Next() {
		var tr Transcript
		if err := rows.Scan(
			&tr.ID,
			&tr.Session,
			&tr.Language,
			&tr.Text,
			&tr.OnDevice,
			&tr.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		transcripts = append(transcripts, tr)
	}
	return transcripts, rows.Err()
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
