package compare_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/compare"
	"dsjson/internal/domain"
)

func sample() *domain.Dataset {
	return &domain.Dataset{
		Name: "class",
		Columns: []domain.Column{
			{Name: "id", Type: domain.ColumnNumeric, Length: 8, Varnum: 1},
			{Name: "name", Type: domain.ColumnCharacter, Length: 20, Varnum: 2},
		},
		Rows: []domain.Row{
			{"id": 1.0, "name": "Alice"},
			{"id": nil, "name": "Bob"},
		},
	}
}

func TestCompare_Equal(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	c := &compare.Exact{Now: func() time.Time { return fixed }}

	other := sample()
	other.Name = "class2"
	other.Rows[0]["id"] = int64(1)

	r, err := c.Compare(sample(), other)
	require.NoError(t, err)
	assert.True(t, r.Equal())
	assert.Equal(t, fixed, r.ComparedAt)
	assert.Equal(t, 2, r.BaseRows)
}

func TestCompare_Differences(t *testing.T) {
	other := sample()
	other.Columns[1].Length = 10
	other.Columns = append(other.Columns, domain.Column{Name: "extra", Type: domain.ColumnNumeric, Varnum: 3})
	other.Rows[0]["name"] = "Alicia"
	other.Rows[1]["id"] = 0.0
	other.Rows = append(other.Rows, domain.Row{"id": 3.0, "name": "Cy"})

	r, err := compare.New().Compare(sample(), other)
	require.NoError(t, err)
	assert.False(t, r.Equal())
	assert.Equal(t, []string{"extra"}, r.OnlyInCompare)
	require.Len(t, r.Attributes, 1)
	assert.Equal(t, domain.AttributeDiff{Column: "name", Attribute: "length", Base: "20", Compare: "10"}, r.Attributes[0])

	require.Len(t, r.Cells, 2)
	assert.Equal(t, domain.CellDiff{Row: 1, Column: "name", Base: "Alice", Compare: "Alicia"}, r.Cells[0])
	assert.Equal(t, domain.CellDiff{Row: 2, Column: "id", Base: nil, Compare: 0.0}, r.Cells[1])
}

func TestWriteText(t *testing.T) {
	color.NoColor = true

	r, err := compare.New().Compare(sample(), sample())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, compare.WriteText(&buf, r))
	assert.Contains(t, buf.String(), "No differences found")

	other := sample()
	other.Rows[1]["name"] = "Rob"
	r, err = compare.New().Compare(sample(), other)
	require.NoError(t, err)
	buf.Reset()
	require.NoError(t, compare.WriteText(&buf, r))
	assert.Contains(t, buf.String(), "Differences found: 0 attribute, 1 value")
	assert.Contains(t, buf.String(), `"Bob"`)
	assert.Contains(t, buf.String(), `"Rob"`)
}
