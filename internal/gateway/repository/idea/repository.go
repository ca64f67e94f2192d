package idea

import (
	"context"
	"errors"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
)

var (
	ErrNotFound = errors.New("idea not found")
	ErrExists   = errors.New("idea already exists")
)

// Store persists ideas, their debate history and generated documents.
type Store interface {
	// CreateIdea inserts idea and fails with ErrExists when its id is taken.
	CreateIdea(ctx context.Context, idea entity.Idea) (entity.Idea, error)
	GetIdea(ctx context.Context, id string) (entity.Idea, error)
	ListIdeas(ctx context.Context, userID entity.UserID, limit int) ([]entity.Idea, error)
	AppendDebate(ctx context.Context, ideaID string, entries debate.Log) error
	Debate(ctx context.Context, ideaID string) (debate.Log, error)
	SaveDocument(ctx context.Context, doc entity.Document) (entity.Document, error)
	Documents(ctx context.Context, ideaID string) ([]entity.Document, error)
}

const defaultListLimit = 50

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return defaultListLimit
	}
	return limit
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
