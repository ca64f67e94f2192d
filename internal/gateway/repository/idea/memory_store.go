package idea

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"focalai/internal/debate"
	"focalai/internal/gateway/entity"
)

type MemoryStore struct {
	mu        sync.RWMutex
	ideas     map[string]entity.Idea
	debates   map[string]debate.Log
	documents map[string][]entity.Document
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ideas:     make(map[string]entity.Idea),
		debates:   make(map[string]debate.Log),
		documents: make(map[string][]entity.Document),
	}
}

func (s *MemoryStore) CreateIdea(_ context.Context, idea entity.Idea) (entity.Idea, error) {
	idea, err := prepareIdea(idea)
	if err != nil {
		return entity.Idea{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ideas[idea.ID]; ok {
		return entity.Idea{}, fmt.Errorf("%w: %s", ErrExists, idea.ID)
	}
	s.ideas[idea.ID] = idea
	return idea, nil
}

func prepareIdea(idea entity.Idea) (entity.Idea, error) {
	if strings.TrimSpace(idea.Text) == "" {
		return entity.Idea{}, fmt.Errorf("idea text is required")
	}
	idea.ID = strings.TrimSpace(idea.ID)
	if idea.ID == "" {
		idea.ID = uuid.NewString()
	}
	if idea.CreatedAt.IsZero() {
		idea.CreatedAt = time.Now().UTC()
	}
	return idea, nil
}

func (s *MemoryStore) GetIdea(_ context.Context, id string) (entity.Idea, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idea, ok := s.ideas[strings.TrimSpace(id)]
	if !ok {
		return entity.Idea{}, ErrNotFound
	}
	return idea, nil
}

func (s *MemoryStore) ListIdeas(_ context.Context, userID entity.UserID, limit int) ([]entity.Idea, error) {
	s.mu.RLock()
	out := make([]entity.Idea, 0, 16)
	for _, idea := range s.ideas {
		if idea.UserID == userID {
			out = append(out, idea)
		}
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) AppendDebate(_ context.Context, ideaID string, entries debate.Log) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ideas[ideaID]; !ok {
		return ErrNotFound
	}
	s.debates[ideaID] = append(s.debates[ideaID], entries...)
	return nil
}

func (s *MemoryStore) Debate(_ context.Context, ideaID string) (debate.Log, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ideas[ideaID]; !ok {
		return nil, ErrNotFound
	}
	out := s.debates[ideaID].Clone()
	if out == nil {
		out = debate.Log{}
	}
	out.Sort()
	return out, nil
}

func (s *MemoryStore) SaveDocument(_ context.Context, doc entity.Document) (entity.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ideas[doc.IdeaID]; !ok {
		return entity.Document{}, ErrNotFound
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	docs := s.documents[doc.IdeaID]
	for i := range docs {
		if docs[i].Iteration == doc.Iteration {
			docs[i] = doc
			return doc, nil
		}
	}
	s.documents[doc.IdeaID] = append(docs, doc)
	return doc, nil
}

func (s *MemoryStore) Documents(_ context.Context, ideaID string) ([]entity.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.ideas[ideaID]; !ok {
		return nil, ErrNotFound
	}
	out := append([]entity.Document(nil), s.documents[ideaID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Iteration < out[j].Iteration })
	return out, nil
}
