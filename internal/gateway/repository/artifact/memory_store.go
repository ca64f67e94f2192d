package artifact

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, ideaID, p string, content []byte) error {
	ideaID, p, err := normalizeKey(ideaID, p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(ideaID, p)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, ideaID, p string) ([]byte, error) {
	ideaID, p, err := normalizeKey(ideaID, p)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[objectKey(ideaID, p)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, ideaID string) ([]string, error) {
	ideaID = strings.TrimSpace(ideaID)
	if ideaID == "" {
		return nil, fmt.Errorf("idea_id is required")
	}
	prefix := ideaID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 16)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

// GetURL returns an empty string; memory artifacts are served by the API.
func (s *MemoryStore) GetURL(context.Context, string, string) (string, error) {
	return "", nil
}
