package idea

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
	"focalai/internal/prd"
)

type PostgresStore struct {
	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error

	docCache *lru.Cache[string, []entity.Document]
}

// OpenPostgres opens and pings dsn with the pgx driver.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	cache, err := lru.New[string, []entity.Document](1024)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db, docCache: cache}, nil
}

func (s *PostgresStore) ensureSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("db is nil")
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS ideas (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    text TEXT NOT NULL,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_ideas_user_created ON ideas(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS debate_entries (
    id SERIAL PRIMARY KEY,
    idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
    round_number INTEGER NOT NULL,
    seq INTEGER NOT NULL,
    persona_key TEXT NOT NULL,
    agent_name TEXT NOT NULL,
    message TEXT NOT NULL,
    fallback BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(idea_id, seq)
);

CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    idea_id TEXT NOT NULL REFERENCES ideas(id) ON DELETE CASCADE,
    iteration INTEGER NOT NULL,
    feedback TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL,
    sections JSONB NOT NULL DEFAULT '{}'::jsonb,
    used_fallback BOOLEAN NOT NULL DEFAULT FALSE,
    calls_made INTEGER NOT NULL DEFAULT 0,
    artifacts JSONB NOT NULL DEFAULT '[]'::jsonb,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
    UNIQUE(idea_id, iteration)
);
`)
	})
	return s.schemaErr
}

func (s *PostgresStore) CreateIdea(ctx context.Context, idea entity.Idea) (entity.Idea, error) {
	idea, err := prepareIdea(idea)
	if err != nil {
		return entity.Idea{}, err
	}
	if err := s.ensureSchema(); err != nil {
		return entity.Idea{}, err
	}
	res, err := s.db.ExecContext(ctx, `
INSERT INTO ideas (id, user_id, title, text, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING
`, idea.ID, idea.UserID.String(), idea.Title, idea.Text, idea.CreatedAt)
	if err != nil {
		return entity.Idea{}, fmt.Errorf("create idea: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return entity.Idea{}, fmt.Errorf("create idea: %w", err)
	}
	if n == 0 {
		return entity.Idea{}, fmt.Errorf("%w: %s", ErrExists, idea.ID)
	}
	return idea, nil
}

func (s *PostgresStore) GetIdea(ctx context.Context, id string) (entity.Idea, error) {
	if err := s.ensureSchema(); err != nil {
		return entity.Idea{}, err
	}
	var (
		idea   entity.Idea
		userID string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, title, text, created_at FROM ideas WHERE id=$1`, strings.TrimSpace(id)).
		Scan(&idea.ID, &userID, &idea.Title, &idea.Text, &idea.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.Idea{}, ErrNotFound
	}
	if err != nil {
		return entity.Idea{}, err
	}
	idea.UserID = entity.UserID(userID)
	return idea, nil
}

func (s *PostgresStore) ListIdeas(ctx context.Context, userID entity.UserID, limit int) ([]entity.Idea, error) {
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, title, text, created_at FROM ideas
WHERE user_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2
`, userID.String(), clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Idea, 0, 16)
	for rows.Next() {
		var (
			idea entity.Idea
			uid  string
		)
		if err := rows.Scan(&idea.ID, &uid, &idea.Title, &idea.Text, &idea.CreatedAt); err != nil {
			return nil, err
		}
		idea.UserID = entity.UserID(uid)
		out = append(out, idea)
	}
	return out, rows.Err()
}

func (s *PostgresStore) AppendDebate(ctx context.Context, ideaID string, entries debate.Log) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, e := range entries {
		_, err := tx.ExecContext(ctx, `
INSERT INTO debate_entries (idea_id, round_number, seq, persona_key, agent_name, message, fallback)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (idea_id, seq)
DO UPDATE SET round_number=EXCLUDED.round_number, message=EXCLUDED.message, fallback=EXCLUDED.fallback
`, ideaID, e.Round, e.Seq, e.PersonaKey, e.PersonaName, e.Response, e.Fallback)
		if err != nil {
			return fmt.Errorf("append debate entry %d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Debate(ctx context.Context, ideaID string) (debate.Log, error) {
	if _, err := s.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT round_number, seq, persona_key, agent_name, message, fallback
FROM debate_entries WHERE idea_id=$1 ORDER BY round_number, seq
`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := debate.Log{}
	for rows.Next() {
		var e debate.Entry
		if err := rows.Scan(&e.Round, &e.Seq, &e.PersonaKey, &e.PersonaName, &e.Response, &e.Fallback); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveDocument(ctx context.Context, doc entity.Document) (entity.Document, error) {
	if err := s.ensureSchema(); err != nil {
		return entity.Document{}, err
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	sections, err := json.Marshal(doc.Sections)
	if err != nil {
		return entity.Document{}, err
	}
	artifacts, err := json.Marshal(append([]string{}, doc.Artifacts...))
	if err != nil {
		return entity.Document{}, err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (id, idea_id, iteration, feedback, content, sections, used_fallback, calls_made, artifacts, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (idea_id, iteration)
DO UPDATE SET feedback=EXCLUDED.feedback, content=EXCLUDED.content, sections=EXCLUDED.sections,
    used_fallback=EXCLUDED.used_fallback, calls_made=EXCLUDED.calls_made, artifacts=EXCLUDED.artifacts
`, doc.ID, doc.IdeaID, doc.Iteration, doc.Feedback, doc.Content, sections, doc.UsedFallback, doc.CallsMade, artifacts, doc.CreatedAt)
	if err != nil {
		return entity.Document{}, fmt.Errorf("save document: %w", err)
	}
	s.docCache.Remove(doc.IdeaID)
	return doc, nil
}

func (s *PostgresStore) Documents(ctx context.Context, ideaID string) ([]entity.Document, error) {
	if cached, ok := s.docCache.Get(ideaID); ok {
		return append([]entity.Document(nil), cached...), nil
	}
	if _, err := s.GetIdea(ctx, ideaID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, idea_id, iteration, feedback, content, sections, used_fallback, calls_made, artifacts, created_at
FROM documents WHERE idea_id=$1 ORDER BY iteration
`, ideaID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.Document, 0, 4)
	for rows.Next() {
		var (
			doc       entity.Document
			sections  []byte
			artifacts []byte
		)
		if err := rows.Scan(&doc.ID, &doc.IdeaID, &doc.Iteration, &doc.Feedback, &doc.Content, &sections,
			&doc.UsedFallback, &doc.CallsMade, &artifacts, &doc.CreatedAt); err != nil {
			return nil, err
		}
		doc.Sections = prd.NewSections()
		if err := json.Unmarshal(sections, &doc.Sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
		if err := json.Unmarshal(artifacts, &doc.Artifacts); err != nil {
			return nil, fmt.Errorf("decode artifacts: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.docCache.Add(ideaID, out)
	return append([]entity.Document(nil), out...), nil
}
