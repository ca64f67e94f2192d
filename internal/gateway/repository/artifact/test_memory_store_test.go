package artifact

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Put(ctx, "idea-1", "/iteration-0/document.md", []byte("# A")))
	require.NoError(t, s.Put(ctx, "idea-1", "iteration-0/document.yaml", []byte("a: 1")))
	require.NoError(t, s.Put(ctx, "idea-2", "iteration-0/document.md", []byte("# B")))

	got, err := s.Get(ctx, "idea-1", "iteration-0/document.md")
	require.NoError(t, err)
	assert.Equal(t, "# A", string(got))

	list, err := s.List(ctx, "idea-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"iteration-0/document.md", "iteration-0/document.yaml"}, list)

	_, err = s.Get(ctx, "idea-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Put(ctx, "", "a", nil))
	assert.Error(t, s.Put(ctx, "idea-1", " ", nil))
}

func TestMemoryStoreCopiesContent(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	raw := []byte("abc")
	require.NoError(t, s.Put(ctx, "i", "x.md", raw))
	raw[0] = 'z'

	got, err := s.Get(ctx, "i", "x.md")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestPutDocument(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	paths, err := PutDocument(ctx, s, "idea-1", 2, []File{
		{Name: "document.md", Content: []byte("# Doc")},
		{Name: "document.html", Content: []byte("<h1>Doc</h1>")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"iteration-2/document.md", "iteration-2/document.html"}, paths)

	list, err := s.List(ctx, "idea-1")
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = PutDocument(ctx, nil, "idea-1", 0, nil)
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/markdown; charset=utf-8", contentType("a/document.md"))
	assert.Equal(t, "application/yaml", contentType("document.YAML"))
	assert.Contains(t, contentType("document.html"), "text/html")
	assert.Equal(t, "application/octet-stream", contentType("blob"))
}
