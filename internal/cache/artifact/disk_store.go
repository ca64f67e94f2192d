package artifact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	artifactrepo "focalai/internal/gateway/repository/artifact"
)

// DiskStore writes artifacts to <root>/<ideaID>/<path>. The CLI uses it to
// export documents next to the working directory.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) *DiskStore {
	return &DiskStore{root: strings.TrimSpace(root)}
}

func (s *DiskStore) Put(_ context.Context, ideaID, path string, content []byte) error {
	fullPath, err := s.pathFor(ideaID, path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(fullPath, content, 0o644)
}

func (s *DiskStore) Get(_ context.Context, ideaID, path string) ([]byte, error) {
	fullPath, err := s.pathFor(ideaID, path)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(fullPath)
	if os.IsNotExist(err) {
		return nil, artifactrepo.ErrNotFound
	}
	return raw, err
}

// GetURL returns the absolute file path of the artifact.
func (s *DiskStore) GetURL(_ context.Context, ideaID, path string) (string, error) {
	fullPath, err := s.pathFor(ideaID, path)
	if err != nil {
		return "", err
	}
	return filepath.Abs(fullPath)
}

func (s *DiskStore) List(_ context.Context, ideaID string) ([]string, error) {
	ideaRoot, err := s.ideaRoot(ideaID)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, 32)
	walkErr := filepath.WalkDir(ideaRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(ideaRoot, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if walkErr != nil {
		if os.IsNotExist(walkErr) {
			return []string{}, nil
		}
		return nil, walkErr
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *DiskStore) ideaRoot(ideaID string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	root := strings.TrimSpace(s.root)
	if root == "" {
		return "", fmt.Errorf("root is required")
	}
	ideaID = strings.TrimSpace(ideaID)
	if ideaID == "" {
		return "", fmt.Errorf("idea_id is required")
	}
	if strings.Contains(ideaID, "..") || filepath.IsAbs(ideaID) {
		return "", fmt.Errorf("invalid idea_id: %s", ideaID)
	}
	return filepath.Join(root, ideaID), nil
}

func (s *DiskStore) pathFor(ideaID, path string) (string, error) {
	ideaRoot, err := s.ideaRoot(ideaID)
	if err != nil {
		return "", err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	if strings.Contains(path, "..") || filepath.IsAbs(path) {
		return "", fmt.Errorf("invalid path: %s", path)
	}
	return filepath.Join(ideaRoot, filepath.FromSlash(path)), nil
}
