package dbclient_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/dbclient"
	"dsjson/internal/domain"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) (dbclient.Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lib.db")
	s, err := dbclient.NewStore(&domain.DatabaseConnection{Driver: domain.DatabaseDriverSQLite, Host: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t)

	ds := &domain.Dataset{
		Name:  "class",
		Label: "Roster",
		Columns: []domain.Column{
			{Name: "id", Type: domain.ColumnNumeric, Length: 8, Format: "BEST12.", Varnum: 1},
			{Name: "name", Type: domain.ColumnCharacter, Length: 20, Label: "Name", Varnum: 2},
		},
		Rows: []domain.Row{
			{"id": 2.0, "name": "Bob"},
			{"id": nil, "name": `quote " inside`},
			{"id": 1.5, "name": ""},
		},
	}
	require.NoError(t, s.WriteDataset(ctx, ds))

	got, err := s.ReadDataset(ctx, "class")
	require.NoError(t, err)
	if diff := cmp.Diff(ds, got); diff != "" {
		t.Errorf("read back (-want +got):\n%s", diff)
	}

	label, err := s.DatasetLabel(ctx, "class")
	require.NoError(t, err)
	assert.Equal(t, "Roster", label)

	names, err := s.ListDatasets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"class"}, names)
}

func TestSQLiteStore_Replace(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t)

	first := &domain.Dataset{Name: "t", Columns: []domain.Column{{Name: "a", Type: domain.ColumnNumeric, Length: 8, Varnum: 1}},
		Rows: []domain.Row{{"a": 1.0}, {"a": 2.0}}}
	require.NoError(t, s.WriteDataset(ctx, first))

	second := &domain.Dataset{Name: "t", Columns: []domain.Column{{Name: "b", Type: domain.ColumnCharacter, Length: 3, Varnum: 1}},
		Rows: []domain.Row{{"b": "x"}}}
	require.NoError(t, s.WriteDataset(ctx, second))

	got, err := s.ReadDataset(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, second.Columns, got.Columns)
	assert.Equal(t, second.Rows, got.Rows)
}

func TestSQLiteStore_NotFound(t *testing.T) {
	s, _ := openSQLite(t)
	_, err := s.ReadDataset(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)

	label, err := s.DatasetLabel(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "", label)
}

func TestSQLiteStore_ForeignTable(t *testing.T) {
	ctx := context.Background()
	s, path := openSQLite(t)

	raw, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer raw.Close()
	_, err = raw.Exec(`CREATE TABLE people (age INTEGER, city VARCHAR(40), score NUMERIC)`)
	require.NoError(t, err)
	_, err = raw.Exec(`INSERT INTO people VALUES (30, 'Lisbon', 1.5), (NULL, 'Rome', NULL)`)
	require.NoError(t, err)

	got, err := s.ReadDataset(ctx, "people")
	require.NoError(t, err)
	want := []domain.Column{
		{Name: "age", Type: domain.ColumnNumeric, Length: 8, Varnum: 1},
		{Name: "city", Type: domain.ColumnCharacter, Length: 6, Varnum: 2},
		{Name: "score", Type: domain.ColumnNumeric, Length: 8, Varnum: 3},
	}
	assert.Equal(t, want, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, domain.Row{"age": 30.0, "city": "Lisbon", "score": 1.5}, got.Rows[0])
	assert.Equal(t, domain.Row{"age": nil, "city": "Rome", "score": nil}, got.Rows[1])
}

func TestSQLiteStore_InvalidName(t *testing.T) {
	s, _ := openSQLite(t)
	_, err := s.ReadDataset(context.Background(), "drop table;")
	assert.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestSQLiteStore_RejectsReservedColumn(t *testing.T) {
	ctx := context.Background()
	s, _ := openSQLite(t)

	ds := &domain.Dataset{
		Name: "bad",
		Columns: []domain.Column{
			{Name: "DSJSON_ROWNUM", Type: domain.ColumnNumeric, Length: 8, Varnum: 1},
		},
		Rows: []domain.Row{{"DSJSON_ROWNUM": 1.0}},
	}
	err := s.WriteDataset(ctx, ds)
	assert.ErrorIs(t, err, dbclient.ErrReservedColumn)

	_, err = s.ReadDataset(ctx, "bad")
	assert.ErrorIs(t, err, domain.ErrDatasetNotFound)
}
