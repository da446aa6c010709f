package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/domain"
)

func TestNormalizeFormat(t *testing.T) {
	cases := []struct {
		format string
		typ    domain.ColumnType
		want   string
	}{
		{"COMMA", domain.ColumnCharacter, "$COMMA."},
		{"$CHAR20", domain.ColumnCharacter, "$CHAR20."},
		{"$CHAR20.", domain.ColumnCharacter, "$CHAR20."},
		{"8.2", domain.ColumnNumeric, "8.2."},
		{"DATE9.", domain.ColumnNumeric, "DATE9."},
		{"BEST12", domain.ColumnNumeric, "BEST12."},
		{"char", domain.ColumnCharacter, "$char."},
		{"", domain.ColumnCharacter, ""},
		{"  ", domain.ColumnNumeric, ""},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, domain.NormalizeFormat(c.format, c.typ), "format %q (%s)", c.format, c.typ)
	}
}

func TestSortColumns_ByVarnum(t *testing.T) {
	ds := &domain.Dataset{Columns: []domain.Column{
		{Name: "c", Varnum: 3},
		{Name: "a", Varnum: 1},
		{Name: "x", Varnum: 0},
		{Name: "b", Varnum: 2},
	}}
	ds.SortColumns()
	assert.Equal(t, []string{"a", "b", "c", "x"}, ds.ColumnNames())
}

func TestValidate(t *testing.T) {
	ds := &domain.Dataset{Name: "class", Columns: []domain.Column{{Name: "id"}, {Name: "ID"}}}
	err := ds.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidName))

	ds.Columns = nil
	assert.ErrorIs(t, ds.Validate(), domain.ErrNoColumns)

	ds.Name = "1bad"
	assert.ErrorIs(t, ds.Validate(), domain.ErrInvalidName)

	assert.NoError(t, domain.ValidateName("_valid_name_32_characters_long__"))
	assert.NoError(t, domain.ValidateName("this_name_is_definitely_over_32_chars"))
	assert.Error(t, domain.ValidateName("has space"))
	assert.Error(t, domain.ValidateName(""))
}

func TestToFloat(t *testing.T) {
	f, ok := domain.ToFloat(int64(3))
	assert.True(t, ok)
	assert.Equal(t, 3.0, f)

	f, ok = domain.ToFloat([]byte("2.5"))
	assert.True(t, ok)
	assert.Equal(t, 2.5, f)

	_, ok = domain.ToFloat(nil)
	assert.False(t, ok)
	_, ok = domain.ToFloat(".")
	assert.False(t, ok)
	_, ok = domain.ToFloat("abc")
	assert.False(t, ok)
	for _, s := range []string{"NaN", "Infinity", "-inf", "0x1p4", "1e400"} {
		_, ok = domain.ToFloat(s)
		assert.False(t, ok, s)
	}
}

func TestCellValue(t *testing.T) {
	num := domain.Column{Name: "n", Type: domain.ColumnNumeric}
	chr := domain.Column{Name: "s", Type: domain.ColumnCharacter}

	assert.Nil(t, domain.CellValue(num, nil))
	assert.Equal(t, 1.0, domain.CellValue(num, 1))
	assert.Equal(t, "", domain.CellValue(chr, nil))
	assert.Equal(t, "x", domain.CellValue(chr, []byte("x")))
}
