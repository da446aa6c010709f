// Package jsondoc reads and writes the dataset JSON document:
//
//	{"dataset_label": ..., "metadata": [...], "data": [...]}
//
// Member order of the top-level object and of each descriptor is fixed.
// Data rows list their members in column order.
package jsondoc

import (
	"errors"
	"fmt"

	"dsjson/internal/domain"
)

var (
	// ErrSchemaEmpty is returned when the metadata section yields no
	// descriptors. Nothing may be written after it.
	ErrSchemaEmpty = errors.New("metadata section is missing or has no column descriptors")

	// ErrMalformedDocument is returned when the document is not a JSON object.
	ErrMalformedDocument = errors.New("malformed document")
)

// Descriptor is the wire form of a column.
type Descriptor struct {
	Name     string `json:"name"`
	Type     int    `json:"type"`
	Length   int    `json:"length"`
	Format   string `json:"format"`
	Informat string `json:"informat"`
	Label    string `json:"label"`
	Varnum   int    `json:"varnum"`
}

func descriptorOf(c domain.Column) Descriptor {
	return Descriptor{
		Name:     c.Name,
		Type:     int(c.Type),
		Length:   c.Length,
		Format:   c.Format,
		Informat: c.Informat,
		Label:    c.Label,
		Varnum:   c.Varnum,
	}
}

// WarningKind classifies a non-fatal decoding anomaly.
type WarningKind string

const (
	// WarnDataQuality: a value could not be used as-is and was coerced
	// (numeric text that does not parse, overlong character value).
	WarnDataQuality WarningKind = "data_quality"
	// WarnMalformedField: a member inside an object was unusable and skipped.
	WarnMalformedField WarningKind = "malformed_field"
)

// Warning is a data-level anomaly absorbed during decoding.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	Section string      `json:"section"` // "metadata" | "data"
	Index   int         `json:"index"`   // 1-based object position within the section
	Field   string      `json:"field,omitempty"`
	Value   string      `json:"value,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Field == "" {
		return fmt.Sprintf("%s %s[%d]: %s", w.Kind, w.Section, w.Index, w.Message)
	}
	return fmt.Sprintf("%s %s[%d].%s: %s (value %q)", w.Kind, w.Section, w.Index, w.Field, w.Message, w.Value)
}

// Result is a decoded document.
type Result struct {
	Dataset  *domain.Dataset
	Warnings []Warning
}

// Summary describes a document without materializing its rows.
type Summary struct {
	DatasetLabel string          `json:"datasetLabel"`
	Columns      []domain.Column `json:"columns"`
	Rows         int             `json:"rows"`
	Warnings     []Warning       `json:"warnings,omitempty"`
}
