package artifact

import (
	"context"
	"fmt"
)

// File is one rendered form of a document.
type File struct {
	Name    string
	Content []byte
}

// IterationPath is the object path of name within a document iteration.
func IterationPath(iteration int, name string) string {
	return fmt.Sprintf("iteration-%d/%s", iteration, name)
}

// PutDocument writes files under the iteration prefix of ideaID and returns
// the stored paths in input order. It stops at the first failed write.
func PutDocument(ctx context.Context, store Store, ideaID string, iteration int, files []File) ([]string, error) {
	if store == nil {
		return nil, fmt.Errorf("artifact store is nil")
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := IterationPath(iteration, f.Name)
		if err := store.Put(ctx, ideaID, p, f.Content); err != nil {
			return paths, fmt.Errorf("put %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
