package jsondoc_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/domain"
	"dsjson/internal/jsondoc"
)

func classDataset() *domain.Dataset {
	return &domain.Dataset{
		Name:  "class",
		Label: "Student roster",
		Columns: []domain.Column{
			{Name: "id", Type: domain.ColumnNumeric, Length: 8, Format: "BEST12.", Varnum: 1},
			{Name: "name", Type: domain.ColumnCharacter, Length: 20, Format: "$CHAR20.", Label: "Full name", Varnum: 2},
		},
		Rows: []domain.Row{
			{"id": 1.0, "name": "Alice"},
			{"id": 2.0, "name": ""},
		},
	}
}

func TestEncode_Layout(t *testing.T) {
	out, err := jsondoc.Marshal(classDataset())
	require.NoError(t, err)

	s := string(out)
	label := strings.Index(s, `"dataset_label"`)
	meta := strings.Index(s, `"metadata"`)
	data := strings.Index(s, `"data"`)
	assert.True(t, label >= 0 && label < meta && meta < data, "top-level member order: %s", s)

	// descriptor member order
	order := []string{`"name"`, `"type"`, `"length"`, `"format"`, `"informat"`, `"label"`, `"varnum"`}
	pos := -1
	for _, k := range order {
		i := strings.Index(s[meta:], k)
		require.GreaterOrEqual(t, i, 0, "missing %s", k)
		assert.Greater(t, i, pos, "descriptor member %s out of order", k)
		pos = i
	}
	assert.Contains(t, s, `"id": 1`)
	assert.Contains(t, s, `"name": "Alice"`)
}

func TestRoundTrip(t *testing.T) {
	src := classDataset()
	out, err := jsondoc.Marshal(src)
	require.NoError(t, err)

	res, err := jsondoc.Decode(out)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	got := res.Dataset
	got.Name = src.Name
	if diff := cmp.Diff(src, got); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_EscapesText(t *testing.T) {
	ds := &domain.Dataset{
		Name:    "quotes",
		Label:   `He said "hi"`,
		Columns: []domain.Column{{Name: "txt", Type: domain.ColumnCharacter, Length: 40, Label: `a\b`, Varnum: 1}},
		Rows:    []domain.Row{{"txt": "say \"x\"\n<tab>\t & done"}},
	}
	out, err := jsondoc.Marshal(ds)
	require.NoError(t, err)
	assert.Contains(t, string(out), `<tab>`)
	assert.Contains(t, string(out), ` & done`)
	assert.NotContains(t, string(out), `\u003c`)
	assert.NotContains(t, string(out), `\u0026`)

	res, err := jsondoc.Decode(out)
	require.NoError(t, err)
	assert.Equal(t, ds.Label, res.Dataset.Label)
	assert.Equal(t, `a\b`, res.Dataset.Columns[0].Label)
	assert.Equal(t, "say \"x\"\n<tab>\t & done", res.Dataset.Rows[0]["txt"])
}

func TestEncode_MissingNumericIsNull(t *testing.T) {
	ds := &domain.Dataset{
		Name:    "m",
		Columns: []domain.Column{{Name: "x", Type: domain.ColumnNumeric, Length: 8, Varnum: 1}},
		Rows:    []domain.Row{{"x": nil}, {}},
	}
	out, err := jsondoc.Marshal(ds)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(out), `"x": null`))

	res, err := jsondoc.Decode(out)
	require.NoError(t, err)
	require.Len(t, res.Dataset.Rows, 2)
	assert.Nil(t, res.Dataset.Rows[0]["x"])
	assert.Nil(t, res.Dataset.Rows[1]["x"])
}

func TestDecode_SortsByVarnum(t *testing.T) {
	doc := `{
	  "dataset_label": "",
	  "metadata": [
	    {"name": "c", "type": 1, "length": 8, "varnum": 3},
	    {"name": "a", "type": 1, "length": 8, "varnum": 1},
	    {"name": "b", "type": 2, "length": 4, "varnum": 2}
	  ],
	  "data": [{"c": 3, "a": 1, "b": "two"}]
	}`
	res, err := jsondoc.Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, res.Dataset.ColumnNames())
	assert.Equal(t, domain.Row{"a": 1.0, "b": "two", "c": 3.0}, res.Dataset.Rows[0])
}

func TestDecode_EmptySchema(t *testing.T) {
	for _, doc := range []string{
		`{"dataset_label": "x", "metadata": [], "data": [{"a": 1}]}`,
		`{"dataset_label": "x", "data": []}`,
		`{"metadata": [{"label": "no name"}]}`,
		`{"metadata": {}}`,
	} {
		_, err := jsondoc.Decode([]byte(doc))
		assert.ErrorIs(t, err, jsondoc.ErrSchemaEmpty, doc)
	}
}

func TestDecode_Malformed(t *testing.T) {
	_, err := jsondoc.Decode([]byte(`[1, 2]`))
	assert.ErrorIs(t, err, jsondoc.ErrMalformedDocument)

	_, err = jsondoc.Decode([]byte(`{"metadata": [{"name": "a"`))
	assert.Error(t, err)
}

func TestDecode_EndToEndExample(t *testing.T) {
	doc := `{
	  "dataset_label": "",
	  "metadata": [
	    {"name": "id", "type": 1, "length": 8, "format": "", "informat": "", "label": "", "varnum": 1},
	    {"name": "name", "type": 2, "length": 20, "format": "", "informat": "", "label": "", "varnum": 2}
	  ],
	  "data": [
	    {"id": 1, "name": "Alice"},
	    {"id": 2, "name": ""}
	  ]
	}`
	res, err := jsondoc.Decode([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	want := []domain.Row{{"id": 1.0, "name": "Alice"}, {"id": 2.0, "name": ""}}
	if diff := cmp.Diff(want, res.Dataset.Rows); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}

	again, err := jsondoc.Marshal(res.Dataset)
	require.NoError(t, err)
	res2, err := jsondoc.Decode(again)
	require.NoError(t, err)
	assert.Equal(t, res.Dataset, res2.Dataset)
}

func TestDecode_Coercions(t *testing.T) {
	doc := `{
	  "metadata": [
	    {"NAME": "n", "TYPE": "1", "VARNUM": 1},
	    {"name": "s", "type": 2, "length": 3, "format": "char", "varnum": 2},
	    {"name": "u", "type": 9, "varnum": 3},
	    {"name": "N", "type": 2, "varnum": 4}
	  ],
	  "data": [
	    {"n": "42", "s": 12345, "u": "."},
	    {"n": "abc", "s": true, "extra": 1},
	    {"n": true, "s": null},
	    "not an object",
	    {"n": {"x": 1}, "s": "héllo"}
	  ]
	}`
	res, err := jsondoc.Decode([]byte(doc))
	require.NoError(t, err)
	ds := res.Dataset

	require.Len(t, ds.Columns, 3)
	assert.Equal(t, domain.ColumnNumeric, ds.Columns[0].Type)
	assert.Equal(t, domain.DefaultNumericLength, ds.Columns[0].Length)
	assert.Equal(t, "$char.", ds.Columns[1].Format, "prefix and period added, case kept")
	assert.Equal(t, domain.ColumnNumeric, ds.Columns[2].Type, "unknown code falls back to numeric")

	require.Len(t, ds.Rows, 4)
	assert.Equal(t, 42.0, ds.Rows[0]["n"])
	assert.Equal(t, "123", ds.Rows[0]["s"])
	assert.Nil(t, ds.Rows[0]["u"])
	assert.Nil(t, ds.Rows[1]["n"])
	assert.Equal(t, "tru", ds.Rows[1]["s"])
	assert.NotContains(t, ds.Rows[1], "extra")
	assert.Equal(t, "", ds.Rows[2]["s"])
	assert.Equal(t, "hé", ds.Rows[3]["s"], "truncation keeps whole runes")

	kinds := map[jsondoc.WarningKind]int{}
	for _, w := range res.Warnings {
		kinds[w.Kind]++
	}
	// 12345, true and héllo truncated; "abc" and true not numbers.
	assert.Equal(t, 5, kinds[jsondoc.WarnDataQuality])
	// unknown type, duplicate N, string row, object value.
	assert.Equal(t, 4, kinds[jsondoc.WarnMalformedField])
}

func TestDescribe(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, jsondoc.Encode(&buf, classDataset()))

	sum, err := jsondoc.Describe(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Student roster", sum.DatasetLabel)
	assert.Equal(t, 2, sum.Rows)
	assert.Equal(t, []string{"id", "name"}, []string{sum.Columns[0].Name, sum.Columns[1].Name})
}

func TestDecode_RejectsNonDecimalNumbers(t *testing.T) {
	doc := `{
	  "metadata": [{"name": "x", "type": 1, "varnum": 1}],
	  "data": [{"x": "NaN"}, {"x": "Infinity"}, {"x": "-inf"}, {"x": "0x1p4"}, {"x": " 2.5e1 "}]
	}`
	res, err := jsondoc.Decode([]byte(doc))
	require.NoError(t, err)

	rows := res.Dataset.Rows
	require.Len(t, rows, 5)
	for i := 0; i < 4; i++ {
		assert.Nil(t, rows[i]["x"], "row %d", i)
	}
	assert.Equal(t, 25.0, rows[4]["x"])

	require.Len(t, res.Warnings, 4)
	for _, w := range res.Warnings {
		assert.Equal(t, jsondoc.WarnDataQuality, w.Kind)
	}
}

func TestDecode_OutOfRangeDescriptorInts(t *testing.T) {
	doc := `{
	  "metadata": [
	    {"name": "a", "type": 2, "length": 1e300, "varnum": 1},
	    {"name": "b", "type": 1e20, "varnum": -9e18}
	  ],
	  "data": [{"a": "x", "b": 1}]
	}`
	res, err := jsondoc.Decode([]byte(doc))
	require.NoError(t, err)

	cols := res.Dataset.Columns
	require.Len(t, cols, 2)
	byName := map[string]domain.Column{cols[0].Name: cols[0], cols[1].Name: cols[1]}
	assert.Equal(t, 1, byName["a"].Length, "fitted to the longest value")
	assert.Equal(t, domain.ColumnNumeric, byName["b"].Type)

	malformed := 0
	for _, w := range res.Warnings {
		if w.Kind == jsondoc.WarnMalformedField {
			malformed++
		}
	}
	assert.Equal(t, 3, malformed)
}
