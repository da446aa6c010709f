package domain

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ColumnType is the storage class of a column. The numeric codes are part of
// the JSON document contract.
type ColumnType int

const (
	ColumnNumeric   ColumnType = 1
	ColumnCharacter ColumnType = 2
)

func (t ColumnType) String() string {
	switch t {
	case ColumnNumeric:
		return "numeric"
	case ColumnCharacter:
		return "character"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

// Valid reports whether t is one of the known codes.
func (t ColumnType) Valid() bool {
	return t == ColumnNumeric || t == ColumnCharacter
}

// DefaultNumericLength is the storage width of a numeric column.
const DefaultNumericLength = 8

var (
	ErrDatasetNotFound = errors.New("dataset not found")
	ErrInvalidName     = errors.New("invalid name")
	ErrNoColumns       = errors.New("dataset has no columns")

	nameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Column describes a single column of a dataset.
type Column struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Length   int        `json:"length"`
	Format   string     `json:"format"`
	Informat string     `json:"informat"`
	Label    string     `json:"label"`
	Varnum   int        `json:"varnum"` // 1-based position
}

// IsNumeric reports whether the column holds numbers.
func (c Column) IsNumeric() bool { return c.Type != ColumnCharacter }

// Row maps a column name to its value. Numeric columns hold float64 or nil
// (numeric-missing); character columns hold string.
type Row map[string]any

// Dataset is a table held entirely in memory.
type Dataset struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Columns []Column `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// ColumnNames returns the column names in their current order.
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Column finds a column by name, ignoring case.
func (d *Dataset) Column(name string) (Column, bool) {
	for _, c := range d.Columns {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Column{}, false
}

// SortColumns orders columns by ascending Varnum. Columns without a positive
// Varnum keep their relative order and go last.
func (d *Dataset) SortColumns() {
	SortColumns(d.Columns)
}

// SortColumns orders cols by ascending Varnum, stable, non-positive last.
func SortColumns(cols []Column) {
	sort.SliceStable(cols, func(i, j int) bool {
		a, b := cols[i].Varnum, cols[j].Varnum
		if a <= 0 {
			return false
		}
		if b <= 0 {
			return true
		}
		return a < b
	})
}

// Renumber assigns Varnum 1..n following the current column order.
func (d *Dataset) Renumber() {
	for i := range d.Columns {
		d.Columns[i].Varnum = i + 1
	}
}

// FitLength sets the length of character column i to its longest value,
// at least 1.
func (d *Dataset) FitLength(i int) {
	c := &d.Columns[i]
	c.Length = 1
	for _, row := range d.Rows {
		if n := len(ToText(row[c.Name])); n > c.Length {
			c.Length = n
		}
	}
}

// Validate checks the dataset name and column set.
func (d *Dataset) Validate() error {
	if err := ValidateName(d.Name); err != nil {
		return err
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("%s: %w", d.Name, ErrNoColumns)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if err := ValidateName(c.Name); err != nil {
			return fmt.Errorf("column of %s: %w", d.Name, err)
		}
		key := strings.ToUpper(c.Name)
		if seen[key] {
			return fmt.Errorf("duplicate column %q in %s: %w", c.Name, d.Name, ErrInvalidName)
		}
		seen[key] = true
	}
	return nil
}

// ValidateName checks that name is usable as a dataset or column identifier.
func ValidateName(name string) error {
	if name == "" || !nameRe.MatchString(name) {
		return fmt.Errorf("%q: %w", name, ErrInvalidName)
	}
	return nil
}

// NormalizeFormat appends a trailing period when absent and, for character
// columns, prefixes a '$' when absent. Empty formats stay empty.
func NormalizeFormat(format string, t ColumnType) string {
	f := strings.TrimSpace(format)
	if f == "" {
		return ""
	}
	if t == ColumnCharacter && !strings.HasPrefix(f, "$") {
		f = "$" + f
	}
	if !strings.HasSuffix(f, ".") {
		f += "."
	}
	return f
}

// ToFloat converts a numeric cell to float64. ok is false for missing values.
func ToFloat(v any) (f float64, ok bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case bool:
		if n {
			f = 1
		}
	case []byte:
		return parseNumeric(string(n))
	case string:
		return parseNumeric(n)
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseNumeric(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == "." {
		return 0, false
	}
	// Decimal notation only; ParseFloat would also take hex floats.
	if strings.ContainsAny(s, "xX") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ToText converts a character cell to string. nil becomes "".
func ToText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}

// NumericValue normalizes a numeric cell: float64 or nil.
func NumericValue(v any) any {
	if f, ok := ToFloat(v); ok {
		return f
	}
	return nil
}

// CellValue normalizes v for a cell of column c.
func CellValue(c Column, v any) any {
	if c.IsNumeric() {
		return NumericValue(v)
	}
	return ToText(v)
}
