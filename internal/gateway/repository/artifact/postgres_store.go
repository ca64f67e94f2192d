package artifact

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

// PostgresStore keeps artifacts as BYTEA rows next to the idea tables.
type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS document_artifacts (
    id SERIAL PRIMARY KEY,
    idea_id TEXT NOT NULL,
    path TEXT NOT NULL,
    content BYTEA NOT NULL DEFAULT ''::bytea,
    size BIGINT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(idea_id, path)
);
CREATE INDEX IF NOT EXISTS idx_document_artifacts_idea ON document_artifacts(idea_id);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) Put(ctx context.Context, ideaID, p string, content []byte) error {
	ideaID, p, err := normalizeKey(ideaID, p)
	if err != nil {
		return err
	}
	if err := s.ensureSchema(); err != nil {
		return err
	}
	if content == nil {
		content = []byte{}
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO document_artifacts (idea_id, path, content, size, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (idea_id, path)
DO UPDATE SET content=EXCLUDED.content, size=EXCLUDED.size, updated_at=EXCLUDED.updated_at
`, ideaID, p, content, int64(len(content)), time.Now())
	return err
}

func (s *PostgresStore) Get(ctx context.Context, ideaID, p string) ([]byte, error) {
	ideaID, p, err := normalizeKey(ideaID, p)
	if err != nil {
		return nil, err
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	var content []byte
	err = s.db.QueryRowContext(ctx, `SELECT content FROM document_artifacts WHERE idea_id=$1 AND path=$2`, ideaID, p).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return content, err
}

func (s *PostgresStore) List(ctx context.Context, ideaID string) ([]string, error) {
	ideaID = strings.TrimSpace(ideaID)
	if ideaID == "" {
		return nil, fmt.Errorf("idea_id is required")
	}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT path FROM document_artifacts WHERE idea_id=$1 ORDER BY path`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetURL returns an empty string; rows are served by the API.
func (s *PostgresStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
