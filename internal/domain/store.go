package domain

import (
	"context"
	"time"
)

// TableStore reads and writes whole datasets at one location.
type TableStore interface {
	// ReadDataset loads schema and rows. Returns an error wrapping
	// ErrDatasetNotFound when the dataset does not exist.
	ReadDataset(ctx context.Context, name string) (*Dataset, error)

	// WriteDataset replaces the dataset with ds.
	WriteDataset(ctx context.Context, ds *Dataset) error

	// Close releases the underlying connection or files.
	Close() error
}

// SchemaCatalog looks up descriptive metadata of stored datasets.
type SchemaCatalog interface {
	DatasetLabel(ctx context.Context, name string) (string, error)
}

// Comparator reports differences between two datasets.
type Comparator interface {
	Compare(base, compare *Dataset) (*CompareReport, error)
}

// CompareReport is the outcome of an exact-match comparison.
type CompareReport struct {
	Base          string          `json:"base"`
	Compare       string          `json:"compare"`
	BaseRows      int             `json:"baseRows"`
	CompareRows   int             `json:"compareRows"`
	OnlyInBase    []string        `json:"onlyInBase,omitempty"`
	OnlyInCompare []string        `json:"onlyInCompare,omitempty"`
	Attributes    []AttributeDiff `json:"attributes,omitempty"`
	Cells         []CellDiff      `json:"cells,omitempty"`
	ComparedAt    time.Time       `json:"comparedAt"`
}

// AttributeDiff is a column whose descriptor differs between the datasets.
type AttributeDiff struct {
	Column    string `json:"column"`
	Attribute string `json:"attribute"` // "type" | "length" | "format" | "informat" | "label" | "varnum"
	Base      string `json:"base"`
	Compare   string `json:"compare"`
}

// CellDiff is a single differing value. Row is 1-based.
type CellDiff struct {
	Row     int    `json:"row"`
	Column  string `json:"column"`
	Base    any    `json:"base"`
	Compare any    `json:"compare"`
}

// Equal reports whether no difference of any kind was found.
func (r *CompareReport) Equal() bool {
	return r.BaseRows == r.CompareRows &&
		len(r.OnlyInBase) == 0 &&
		len(r.OnlyInCompare) == 0 &&
		len(r.Attributes) == 0 &&
		len(r.Cells) == 0
}
