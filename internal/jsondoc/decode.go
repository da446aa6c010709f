package jsondoc

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/buger/jsonparser"

	"dsjson/internal/domain"
)

// sections holds the raw top-level members of a document.
type sections struct {
	label    string
	metadata []byte
	metaType jsonparser.ValueType
	data     []byte
	dataType jsonparser.ValueType
}

func splitSections(doc []byte) (*sections, error) {
	s := &sections{metaType: jsonparser.NotExist, dataType: jsonparser.NotExist}
	err := jsonparser.ObjectEach(doc, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		switch strings.ToLower(string(key)) {
		case "dataset_label":
			s.label = scalarText(value, vt)
		case "metadata":
			s.metadata, s.metaType = value, vt
		case "data":
			s.data, s.dataType = value, vt
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	return s, nil
}

// Decode parses a document into a dataset. Columns come back sorted by
// Varnum with formats normalized. The dataset name is left for the caller.
func Decode(doc []byte) (*Result, error) {
	s, err := splitSections(doc)
	if err != nil {
		return nil, err
	}

	var warnings []Warning
	cols, err := decodeMetadata(s, &warnings)
	if err != nil {
		return nil, err
	}

	ds := &domain.Dataset{Label: s.label, Columns: cols, Rows: []domain.Row{}}
	p := newRowParser(cols)
	if s.dataType == jsonparser.Array {
		idx := 0
		_, err := jsonparser.ArrayEach(s.data, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
			idx++
			if vt != jsonparser.Object {
				warnings = append(warnings, Warning{Kind: WarnMalformedField, Section: "data", Index: idx, Message: "not an object, skipped"})
				return
			}
			row, ws := p.parse(idx, value)
			warnings = append(warnings, ws...)
			if row != nil {
				ds.Rows = append(ds.Rows, row)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrMalformedDocument, err)
		}
	} else if s.dataType != jsonparser.NotExist && s.dataType != jsonparser.Null {
		warnings = append(warnings, Warning{Kind: WarnMalformedField, Section: "data", Message: "data is not an array, no rows read"})
	}

	fillLengths(ds)
	return &Result{Dataset: ds, Warnings: warnings}, nil
}

// Describe reads the label and descriptors and counts the data objects.
func Describe(doc []byte) (*Summary, error) {
	s, err := splitSections(doc)
	if err != nil {
		return nil, err
	}
	var warnings []Warning
	cols, err := decodeMetadata(s, &warnings)
	if err != nil {
		return nil, err
	}
	sum := &Summary{DatasetLabel: s.label, Columns: cols, Warnings: warnings}
	if s.dataType == jsonparser.Array {
		_, err := jsonparser.ArrayEach(s.data, func(_ []byte, vt jsonparser.ValueType, _ int, _ error) {
			if vt == jsonparser.Object {
				sum.Rows++
			}
		})
		if err != nil {
			return nil, fmt.Errorf("%w: data: %v", ErrMalformedDocument, err)
		}
	}
	return sum, nil
}

// ── Metadata ──────────────────────────────────────────────

func decodeMetadata(s *sections, warnings *[]Warning) ([]domain.Column, error) {
	if s.metaType != jsonparser.Array {
		return nil, ErrSchemaEmpty
	}

	var cols []domain.Column
	seen := make(map[string]bool)
	idx := 0
	_, err := jsonparser.ArrayEach(s.metadata, func(value []byte, vt jsonparser.ValueType, _ int, _ error) {
		idx++
		if vt != jsonparser.Object {
			*warnings = append(*warnings, Warning{Kind: WarnMalformedField, Section: "metadata", Index: idx, Message: "not an object, skipped"})
			return
		}
		col, ws := decodeDescriptor(idx, value)
		*warnings = append(*warnings, ws...)
		if col.Name == "" {
			*warnings = append(*warnings, Warning{Kind: WarnMalformedField, Section: "metadata", Index: idx, Message: "descriptor without a name, skipped"})
			return
		}
		key := strings.ToUpper(col.Name)
		if seen[key] {
			*warnings = append(*warnings, Warning{Kind: WarnMalformedField, Section: "metadata", Index: idx, Field: "name", Value: col.Name, Message: "duplicate column name, skipped"})
			return
		}
		seen[key] = true
		cols = append(cols, col)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrMalformedDocument, err)
	}
	if len(cols) == 0 {
		return nil, ErrSchemaEmpty
	}

	domain.SortColumns(cols)
	for i := range cols {
		cols[i].Format = domain.NormalizeFormat(cols[i].Format, cols[i].Type)
		cols[i].Informat = domain.NormalizeFormat(cols[i].Informat, cols[i].Type)
	}
	return cols, nil
}

func decodeDescriptor(idx int, obj []byte) (domain.Column, []Warning) {
	var col domain.Column
	var ws []Warning
	warn := func(field string, value []byte, msg string) {
		ws = append(ws, Warning{Kind: WarnMalformedField, Section: "metadata", Index: idx, Field: field, Value: string(value), Message: msg})
	}

	err := jsonparser.ObjectEach(obj, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		field := strings.ToUpper(strings.TrimSpace(string(key)))
		if vt == jsonparser.Object || vt == jsonparser.Array {
			warn(strings.ToLower(field), value, "not a scalar, skipped")
			return nil
		}
		switch field {
		case "NAME":
			col.Name = strings.TrimSpace(scalarText(value, vt))
		case "TYPE":
			code, ok := scalarInt(value, vt)
			switch {
			case vt == jsonparser.Null:
			case !ok:
				warn("type", value, "unparsable type code, numeric assumed")
			case !domain.ColumnType(code).Valid():
				warn("type", value, "unknown type code, numeric assumed")
			default:
				col.Type = domain.ColumnType(code)
			}
		case "LENGTH":
			if n, ok := scalarInt(value, vt); ok {
				col.Length = n
			} else if vt != jsonparser.Null {
				warn("length", value, "unparsable or out of range length, ignored")
			}
		case "VARNUM":
			if n, ok := scalarInt(value, vt); ok {
				col.Varnum = n
			} else if vt != jsonparser.Null {
				warn("varnum", value, "unparsable or out of range varnum, ignored")
			}
		case "FORMAT":
			col.Format = scalarText(value, vt)
		case "INFORMAT":
			col.Informat = scalarText(value, vt)
		case "LABEL":
			col.Label = scalarText(value, vt)
		}
		return nil
	})
	if err != nil {
		warn("", nil, "unreadable descriptor: "+err.Error())
	}
	if col.Type == 0 {
		col.Type = domain.ColumnNumeric
	}
	return col, ws
}

// ── Rows ──────────────────────────────────────────────────

// setter assigns one member value to a row and may return a warning message.
type setter func(row domain.Row, value []byte, vt jsonparser.ValueType) (warnKind WarningKind, msg string)

type columnSetter struct {
	col domain.Column
	set setter
}

// rowParser holds the name → typed setter map, built once per document.
type rowParser struct {
	cols    []domain.Column
	setters map[string]columnSetter
}

func newRowParser(cols []domain.Column) *rowParser {
	p := &rowParser{cols: cols, setters: make(map[string]columnSetter, len(cols))}
	for _, c := range cols {
		var fn setter
		if c.IsNumeric() {
			fn = numericSetter(c.Name)
		} else {
			fn = characterSetter(c.Name, c.Length)
		}
		p.setters[strings.ToUpper(c.Name)] = columnSetter{col: c, set: fn}
	}
	return p
}

// parse resets every column to missing, then assigns matching members.
// Members that name no declared column are dropped.
func (p *rowParser) parse(idx int, obj []byte) (domain.Row, []Warning) {
	row := make(domain.Row, len(p.cols))
	for _, c := range p.cols {
		if c.IsNumeric() {
			row[c.Name] = nil
		} else {
			row[c.Name] = ""
		}
	}

	var ws []Warning
	err := jsonparser.ObjectEach(obj, func(key, value []byte, vt jsonparser.ValueType, _ int) error {
		cs, ok := p.setters[strings.ToUpper(strings.TrimSpace(string(key)))]
		if !ok {
			return nil
		}
		if kind, msg := cs.set(row, value, vt); msg != "" {
			ws = append(ws, Warning{Kind: kind, Section: "data", Index: idx, Field: cs.col.Name, Value: string(value), Message: msg})
		}
		return nil
	})
	if err != nil {
		ws = append(ws, Warning{Kind: WarnMalformedField, Section: "data", Index: idx, Message: "unreadable object, skipped: " + err.Error()})
		return nil, ws
	}
	return row, ws
}

func numericSetter(name string) setter {
	return func(row domain.Row, value []byte, vt jsonparser.ValueType) (WarningKind, string) {
		switch vt {
		case jsonparser.Null:
			row[name] = nil
		case jsonparser.Number:
			f, err := jsonparser.ParseFloat(value)
			if err != nil {
				row[name] = nil
				return WarnDataQuality, "not a number, set to missing"
			}
			row[name] = f
		case jsonparser.String:
			text, _ := jsonparser.ParseString(value)
			text = strings.TrimSpace(text)
			if text == "" || text == "." {
				row[name] = nil
				return "", ""
			}
			f, ok := domain.ToFloat(text)
			if !ok {
				row[name] = nil
				return WarnDataQuality, "not a number, set to missing"
			}
			row[name] = f
		case jsonparser.Boolean:
			row[name] = nil
			return WarnDataQuality, "not a number, set to missing"
		default:
			return WarnMalformedField, "not a scalar, skipped"
		}
		return "", ""
	}
}

func characterSetter(name string, length int) setter {
	return func(row domain.Row, value []byte, vt jsonparser.ValueType) (WarningKind, string) {
		var text string
		switch vt {
		case jsonparser.Null:
			text = ""
		case jsonparser.String:
			s, err := jsonparser.ParseString(value)
			if err != nil {
				return WarnMalformedField, "bad string escape, skipped"
			}
			text = s
		case jsonparser.Number, jsonparser.Boolean:
			text = string(value)
		default:
			return WarnMalformedField, "not a scalar, skipped"
		}
		if length > 0 && len(text) > length {
			row[name] = truncate(text, length)
			return WarnDataQuality, fmt.Sprintf("longer than %d bytes, truncated", length)
		}
		row[name] = text
		return "", ""
	}
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// fillLengths defaults non-positive lengths: numeric columns get 8,
// character columns the longest value seen (at least 1).
func fillLengths(ds *domain.Dataset) {
	for i, c := range ds.Columns {
		if c.Length > 0 {
			continue
		}
		if c.IsNumeric() {
			ds.Columns[i].Length = domain.DefaultNumericLength
			continue
		}
		ds.FitLength(i)
	}
}

// ── Scalars ───────────────────────────────────────────────

func scalarText(value []byte, vt jsonparser.ValueType) string {
	switch vt {
	case jsonparser.String:
		s, err := jsonparser.ParseString(value)
		if err != nil {
			return string(value)
		}
		return s
	case jsonparser.Null, jsonparser.NotExist:
		return ""
	default:
		return string(value)
	}
}

func scalarInt(value []byte, vt jsonparser.ValueType) (int, bool) {
	text := strings.TrimSpace(scalarText(value, vt))
	if vt != jsonparser.Number && vt != jsonparser.String || text == "" {
		return 0, false
	}
	f, ok := domain.ToFloat(text)
	if !ok || f < math.MinInt32 || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
