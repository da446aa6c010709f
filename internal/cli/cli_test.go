package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/domain"
	"dsjson/internal/secret"
	"dsjson/internal/storage"
)

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	noSecrets := &secret.EnvStore{Lookup: func(string) (string, bool) { return "", false }}
	code = NewRootCommand(&out, &errb, "test", noSecrets).Execute(args)
	return code, out.String(), errb.String()
}

func seed(t *testing.T, path string) {
	t.Helper()
	ctx := context.Background()
	lib, err := storage.Open(ctx, path, nil)
	require.NoError(t, err)
	defer lib.Close()
	require.NoError(t, lib.WriteDataset(ctx, &domain.Dataset{
		Name: "people",
		Columns: []domain.Column{
			{Name: "id", Type: domain.ColumnNumeric, Length: 8, Varnum: 1},
			{Name: "name", Type: domain.ColumnCharacter, Length: 20, Varnum: 2},
		},
		Rows: []domain.Row{{"id": 1.0, "name": "Alice"}, {"id": 2.0, "name": ""}},
	}))
}

func TestCLI_ExportImportCompare(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	seed(t, src)

	code, _, stderr := run(t, "export", "-i", src, "-o", dir, "-d", "people")
	require.Equal(t, 0, code, stderr)
	doc, err := os.ReadFile(filepath.Join(dir, "people.json"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"dataset_label"`)

	code, stdout, stderr := run(t, "import", "-i", dir, "-o", dst, "-d", "people", "--compare", "YES", "--reference", src)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "No differences found")

	code, stdout, stderr = run(t, "compare", "--base", src, "--base-dataset", "people", "--with", dst, "--fail-on-diff", "YES")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "No differences found")

	code, stdout, stderr = run(t, "describe", filepath.Join(dir, "people.json"))
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Rows:    2")
	assert.Contains(t, stdout, "name")
}

func TestCLI_MissingOptionFails(t *testing.T) {
	code, _, stderr := run(t, "export", "-i", "lib.db", "-d", "people")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "missing required option: output")
}

func TestCLI_ConfigFileAndDebug(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src)
	cfg := filepath.Join(dir, "dsjson.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("input: "+src+"\noutput: "+dir+"\ndataset: people\ndocument: out.json\n"), 0644))

	code, _, stderr := run(t, "--config", cfg, "--debug", "YES", "export")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(dir, "out.json"))
	assert.Contains(t, stderr, `"level":"debug"`)
	assert.Contains(t, stderr, `"runID"`)
}

func TestCLI_DebugNoKeepsInfoLevel(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	seed(t, src)

	code, _, stderr := run(t, "--debug", "NO", "export", "-i", src, "-o", dir, "-d", "people")
	require.Equal(t, 0, code, stderr)
	assert.FileExists(t, filepath.Join(dir, "people.json"))
	assert.NotContains(t, stderr, `"level":"debug"`)
	assert.Contains(t, stderr, "dataset exported")
}

func TestCLI_CompareReportsDifferences(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.db")
	b := filepath.Join(dir, "b.db")
	seed(t, a)
	ctx := context.Background()
	lib, err := storage.Open(ctx, b, nil)
	require.NoError(t, err)
	require.NoError(t, lib.WriteDataset(ctx, &domain.Dataset{
		Name:    "people",
		Columns: []domain.Column{{Name: "id", Type: domain.ColumnNumeric, Length: 8, Varnum: 1}},
		Rows:    []domain.Row{{"id": 1.0}, {"id": 3.0}},
	}))
	require.NoError(t, lib.Close())

	code, stdout, _ := run(t, "compare", "--base", a, "--base-dataset", "people", "--with", b)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Differences found")

	code, _, stderr := run(t, "compare", "--base", a, "--base-dataset", "people", "--with", b, "--fail-on-diff", "YES")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "datasets differ")
}

func TestSplitDocument(t *testing.T) {
	dir, name := splitDocument("s3://bucket/exports/class.json")
	assert.Equal(t, "s3://bucket/exports", dir)
	assert.Equal(t, "class.json", name)

	dir, name = splitDocument("class.json")
	assert.Equal(t, ".", dir)
	assert.Equal(t, "class.json", name)
}
