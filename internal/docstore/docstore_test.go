package docstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/docstore"
)

func TestLocalStore_WriteRead(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	s := docstore.NewLocalStore(dir)

	require.NoError(t, s.Write(ctx, "class.json", []byte(`{"a":1}`)))
	require.NoError(t, s.Write(ctx, "class.json", []byte(`{"a":2}`)))

	b, err := s.Read(ctx, "class.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(b))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}

func TestLocalStore_NotFound(t *testing.T) {
	_, err := docstore.NewLocalStore(t.TempDir()).Read(context.Background(), "x.json")
	assert.ErrorIs(t, err, docstore.ErrDocumentNotFound)
}

func TestOpen(t *testing.T) {
	s, err := docstore.Open("s3://bucket/exports/daily")
	require.NoError(t, err)
	assert.Equal(t, "s3://bucket/exports/daily/class.json", s.Location("class.json"))

	s, err = docstore.Open("/tmp/docs")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/docs/class.json", s.Location("class.json"))

	_, err = docstore.Open("s3://")
	assert.Error(t, err)
}
