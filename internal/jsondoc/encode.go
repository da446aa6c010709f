package jsondoc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"dsjson/internal/domain"
)

// document is the wire layout; struct field order is the member order.
type document struct {
	DatasetLabel string       `json:"dataset_label"`
	Metadata     []Descriptor `json:"metadata"`
	Data         []dataRow    `json:"data"`
}

// dataRow writes its members in insertion order without HTML escaping,
// which the ordered map's own marshaler always applies.
type dataRow struct {
	m *orderedmap.OrderedMap[string, any]
}

func (r dataRow) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	buf.WriteByte('{')
	for pair := r.m.Oldest(); pair != nil; pair = pair.Next() {
		if pair != r.m.Oldest() {
			buf.WriteByte(',')
		}
		if err := enc.Encode(pair.Key); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(pair.Value); err != nil {
			return nil, fmt.Errorf("member %s: %w", pair.Key, err)
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// trimNewline drops the newline json.Encoder appends after each value.
func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// Encode writes ds as a JSON document. Columns are listed in their native
// order; Varnum carries the ordinal for consumers that re-sort.
func Encode(w io.Writer, ds *domain.Dataset) error {
	doc := document{
		DatasetLabel: ds.Label,
		Metadata:     make([]Descriptor, 0, len(ds.Columns)),
		Data:         make([]dataRow, 0, len(ds.Rows)),
	}
	for _, c := range ds.Columns {
		doc.Metadata = append(doc.Metadata, descriptorOf(c))
	}
	for _, row := range ds.Rows {
		om := orderedmap.New[string, any]()
		for _, c := range ds.Columns {
			om.Set(c.Name, domain.CellValue(c, lookup(row, c.Name)))
		}
		doc.Data = append(doc.Data, dataRow{m: om})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	return nil
}

// Marshal is Encode into a byte slice.
func Marshal(ds *domain.Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// lookup finds a cell by exact name, then case-insensitively.
func lookup(row domain.Row, name string) any {
	if v, ok := row[name]; ok {
		return v
	}
	for k, v := range row {
		if strings.EqualFold(k, name) {
			return v
		}
	}
	return nil
}
