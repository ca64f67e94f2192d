package artifact

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"
)

// Store persists rendered documents under an idea's prefix.
type Store interface {
	Put(ctx context.Context, ideaID, path string, content []byte) error
	Get(ctx context.Context, ideaID, path string) ([]byte, error)
	GetURL(ctx context.Context, ideaID, path string) (string, error)
	List(ctx context.Context, ideaID string) ([]string, error)
}

var ErrNotFound = errors.New("artifact not found")

func normalizeKey(ideaID, p string) (string, string, error) {
	ideaID = strings.TrimSpace(ideaID)
	p = strings.TrimLeft(strings.TrimSpace(p), "/")
	if ideaID == "" {
		return "", "", fmt.Errorf("idea_id is required")
	}
	if p == "" {
		return "", "", fmt.Errorf("path is required")
	}
	return ideaID, p, nil
}

func objectKey(ideaID, p string) string {
	return strings.TrimSpace(ideaID) + "/" + strings.TrimLeft(strings.TrimSpace(p), "/")
}

func contentType(p string) string {
	switch strings.ToLower(path.Ext(p)) {
	case ".md":
		return "text/markdown; charset=utf-8"
	case ".yaml", ".yml":
		return "application/yaml"
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*S3Store)(nil)
	_ Store = (*PostgresStore)(nil)
)
