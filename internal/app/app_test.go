package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/app"
	"dsjson/internal/config"
	"dsjson/internal/domain"
	"dsjson/internal/secret"
	"dsjson/internal/storage"
)

func noSecrets() secret.SecretStore {
	return &secret.EnvStore{Lookup: func(string) (string, bool) { return "", false }}
}

func TestApp_RequiresOptions(t *testing.T) {
	a := app.New(noSecrets())
	_, err := a.Export(context.Background(), config.Options{Input: "lib.db", Dataset: "x"})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "output", cfgErr.Option)

	_, err = a.Import(context.Background(), config.Options{Input: "d", Output: "lib.db", Dataset: "x", Compare: true})
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "reference", cfgErr.Option)
}

func TestApp_Watch_ImportsNewDocuments(t *testing.T) {
	dir := t.TempDir()
	lib := filepath.Join(t.TempDir(), "lib.db")
	a := app.New(noSecrets())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Watch(ctx, app.WatchOptions{Dir: dir, Library: lib}) }()

	// give the watcher time to register the directory
	time.Sleep(200 * time.Millisecond)
	doc := `{"dataset_label":"Lab","metadata":[{"name":"x","type":1,"length":8,"varnum":1}],"data":[{"x":1},{"x":2}]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "results.json"), []byte(doc), 0644))

	assert.Eventually(t, func() bool {
		store, err := storage.Open(context.Background(), lib, nil)
		if err != nil {
			return false
		}
		defer store.Close()
		ds, err := store.ReadDataset(context.Background(), "results")
		return err == nil && len(ds.Rows) == 2
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}

func TestApp_Watch_RequiresDirs(t *testing.T) {
	a := app.New(noSecrets())
	err := a.Watch(context.Background(), app.WatchOptions{Library: "lib.db"})
	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "input", cfgErr.Option)
}

func TestApp_ExportImportWithCompare(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")

	store, err := storage.Open(ctx, src, nil)
	require.NoError(t, err)
	require.NoError(t, store.WriteDataset(ctx, &domain.Dataset{
		Name:    "t",
		Columns: []domain.Column{{Name: "v", Type: domain.ColumnNumeric, Length: 8, Varnum: 1}},
		Rows:    []domain.Row{{"v": 3.5}},
	}))
	require.NoError(t, store.Close())

	a := app.New(noSecrets())
	_, err = a.Export(ctx, config.Options{Input: src, Output: dir, Dataset: "t"})
	require.NoError(t, err)

	res, err := a.Import(ctx, config.Options{
		Input: dir, Output: filepath.Join(dir, "dst.db"), Dataset: "t", Compare: true, Reference: src,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Report)
	assert.True(t, res.Report.Equal())
}
