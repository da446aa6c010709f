package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"dsjson/internal/domain"
)

// Key/value metadata entries written into every dataset file.
const (
	metaLabel   = "dsjson.label"
	metaColumns = "dsjson.columns"
)

// ParquetLibrary stores each dataset as <dir>/<name>.parquet.
type ParquetLibrary struct {
	dir string
}

// NewParquetLibrary creates a library rooted at dir. The directory is
// created on the first write.
func NewParquetLibrary(dir string) *ParquetLibrary {
	return &ParquetLibrary{dir: dir}
}

func (l *ParquetLibrary) Close() error { return nil }

func (l *ParquetLibrary) path(name string) string {
	return filepath.Join(l.dir, name+".parquet")
}

// ── Schema ────────────────────────────────────────────────

type jsonSchema struct {
	Tag    string        `json:"Tag"`
	Fields []*jsonSchema `json:"Fields,omitempty"`
}

// schemaString builds the parquet-go JSON schema: numeric columns are
// OPTIONAL DOUBLE, character columns OPTIONAL UTF8 byte arrays.
func schemaString(cols []domain.Column) (string, error) {
	root := jsonSchema{Tag: "name=parquet_go_root, repetitiontype=REQUIRED"}
	for _, c := range cols {
		tag := "type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN"
		if c.IsNumeric() {
			tag = "type=DOUBLE"
		}
		root.Fields = append(root.Fields, &jsonSchema{Tag: tag + ", name=" + c.Name + ", repetitiontype=OPTIONAL"})
	}
	b, err := json.Marshal(root)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// ── Write ─────────────────────────────────────────────────

// WriteDataset writes a temp file next to the target and renames it over.
func (l *ParquetLibrary) WriteDataset(ctx context.Context, ds *domain.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return fmt.Errorf("create library directory: %w", err)
	}
	schema, err := schemaString(ds.Columns)
	if err != nil {
		return err
	}

	tmp := l.path(ds.Name) + ".tmp"
	if err := writeParquet(ctx, tmp, schema, ds); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, l.path(ds.Name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

func writeParquet(ctx context.Context, path, schema string, ds *domain.Dataset) error {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer fw.Close()

	pw, err := writer.NewJSONWriter(schema, fw, 4)
	if err != nil {
		return fmt.Errorf("error creating new JSON writer: %w", err)
	}

	for i, row := range ds.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		flat := make(map[string]any, len(ds.Columns))
		for _, c := range ds.Columns {
			flat[c.Name] = domain.CellValue(c, row[c.Name])
		}
		b, err := json.Marshal(flat)
		if err != nil {
			return fmt.Errorf("error in json.Marshal of row %d: %w", i+1, err)
		}
		if err := pw.Write(string(b)); err != nil {
			return fmt.Errorf("error in pw.Write for row %d: %w", i+1, err)
		}
	}

	descriptors, err := json.Marshal(ds.Columns)
	if err != nil {
		return fmt.Errorf("encode descriptors: %w", err)
	}
	label, cols := ds.Label, string(descriptors)
	pw.Footer.KeyValueMetadata = append(pw.Footer.KeyValueMetadata,
		&parquet.KeyValue{Key: metaLabel, Value: &label},
		&parquet.KeyValue{Key: metaColumns, Value: &cols},
	)
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}

// ── Read ──────────────────────────────────────────────────

type fileMeta struct {
	label   string
	columns []domain.Column
	tagged  bool
}

func readMeta(pr *reader.ParquetReader) (fileMeta, error) {
	var m fileMeta
	for _, kv := range pr.Footer.KeyValueMetadata {
		if kv == nil || kv.Value == nil {
			continue
		}
		switch kv.Key {
		case metaLabel:
			m.label = *kv.Value
		case metaColumns:
			if err := json.Unmarshal([]byte(*kv.Value), &m.columns); err != nil {
				return m, fmt.Errorf("decode descriptors: %w", err)
			}
			m.tagged = true
		}
	}
	if m.tagged {
		return m, nil
	}

	// foreign file: one column per leaf of a flat schema
	for i, el := range pr.Footer.Schema[1:] {
		if el.NumChildren != nil && *el.NumChildren > 0 {
			return m, fmt.Errorf("nested parquet schema is not supported (field %s)", el.Name)
		}
		col := domain.Column{Name: el.Name, Type: domain.ColumnCharacter, Varnum: i + 1}
		if el.Type != nil {
			switch *el.Type {
			case parquet.Type_BOOLEAN, parquet.Type_INT32, parquet.Type_INT64, parquet.Type_FLOAT, parquet.Type_DOUBLE:
				col.Type = domain.ColumnNumeric
				col.Length = domain.DefaultNumericLength
			}
		}
		m.columns = append(m.columns, col)
	}
	return m, nil
}

func (l *ParquetLibrary) open(name string) (*reader.ParquetReader, func(), error) {
	if err := domain.ValidateName(name); err != nil {
		return nil, nil, err
	}
	path := l.path(name)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("file %s: %w", path, domain.ErrDatasetNotFound)
	}
	fr, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	pr, err := reader.NewParquetReader(fr, nil, 4)
	if err != nil {
		fr.Close()
		return nil, nil, fmt.Errorf("error creating parquet reader for %s: %w", path, err)
	}
	return pr, func() {
		pr.ReadStop()
		fr.Close()
	}, nil
}

func (l *ParquetLibrary) ReadDataset(ctx context.Context, name string) (*domain.Dataset, error) {
	pr, done, err := l.open(name)
	if err != nil {
		return nil, err
	}
	defer done()

	meta, err := readMeta(pr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	ds := &domain.Dataset{Name: name, Label: meta.label, Columns: meta.columns, Rows: []domain.Row{}}

	num := int(pr.GetNumRows())
	if num == 0 {
		return ds, nil
	}
	items, err := pr.ReadByNumber(num)
	if err != nil {
		return nil, fmt.Errorf("error reading rows of %s: %w", name, err)
	}
	for _, item := range items {
		// row is a struct with one field per leaf, in schema order
		v := reflect.ValueOf(item)
		if v.Kind() == reflect.Ptr {
			v = v.Elem()
		}
		if v.NumField() != len(ds.Columns) {
			return nil, fmt.Errorf("%s: %d fields for %d columns", name, v.NumField(), len(ds.Columns))
		}
		row := make(domain.Row, len(ds.Columns))
		for i, c := range ds.Columns {
			row[c.Name] = domain.CellValue(c, fieldValue(v.Field(i)))
		}
		ds.Rows = append(ds.Rows, row)
	}

	if !meta.tagged {
		for i, c := range ds.Columns {
			if !c.IsNumeric() {
				ds.FitLength(i)
			}
		}
	}
	return ds, nil
}

func fieldValue(f reflect.Value) any {
	if f.Kind() == reflect.Ptr {
		if f.IsNil() {
			return nil
		}
		f = f.Elem()
	}
	return f.Interface()
}

func (l *ParquetLibrary) DatasetLabel(ctx context.Context, name string) (string, error) {
	pr, done, err := l.open(name)
	if errors.Is(err, domain.ErrDatasetNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	defer done()
	meta, err := readMeta(pr)
	return meta.label, err
}

func (l *ParquetLibrary) ListDatasets(ctx context.Context) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.parquet"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".parquet"))
	}
	sort.Strings(names)
	return names, nil
}
