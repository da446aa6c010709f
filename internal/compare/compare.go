// Package compare implements exact dataset comparison.
package compare

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"dsjson/internal/domain"
)

var _ domain.Comparator = (*Exact)(nil)

// Exact reports every attribute and cell difference between two datasets.
// Numbers compare by value, missing equals only missing.
type Exact struct {
	// Now stamps the report; defaults to time.Now.
	Now func() time.Time
}

// New returns an exact comparator.
func New() *Exact {
	return &Exact{Now: time.Now}
}

// Compare matches columns by name (case-insensitive) and rows by position.
func (e *Exact) Compare(base, compare *domain.Dataset) (*domain.CompareReport, error) {
	if base == nil || compare == nil {
		return nil, errors.New("compare: both datasets are required")
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}

	r := &domain.CompareReport{
		Base:        base.Name,
		Compare:     compare.Name,
		BaseRows:    len(base.Rows),
		CompareRows: len(compare.Rows),
		ComparedAt:  now().UTC(),
	}
	if base.Label != compare.Label {
		r.Attributes = append(r.Attributes, domain.AttributeDiff{
			Attribute: "dataset_label",
			Base:      base.Label,
			Compare:   compare.Label,
		})
	}

	type pair struct{ b, c domain.Column }
	var common []pair
	for _, bc := range base.Columns {
		cc, ok := compare.Column(bc.Name)
		if !ok {
			r.OnlyInBase = append(r.OnlyInBase, bc.Name)
			continue
		}
		common = append(common, pair{bc, cc})
		r.Attributes = append(r.Attributes, attributeDiffs(bc, cc)...)
	}
	for _, cc := range compare.Columns {
		if _, ok := base.Column(cc.Name); !ok {
			r.OnlyInCompare = append(r.OnlyInCompare, cc.Name)
		}
	}

	n := min(len(base.Rows), len(compare.Rows))
	for i := 0; i < n; i++ {
		br, cr := base.Rows[i], compare.Rows[i]
		for _, p := range common {
			bv, cv := cell(br, p.b.Name), cell(cr, p.c.Name)
			if !sameValue(p.b, p.c, bv, cv) {
				r.Cells = append(r.Cells, domain.CellDiff{
					Row:     i + 1,
					Column:  p.b.Name,
					Base:    domain.CellValue(p.b, bv),
					Compare: domain.CellValue(p.c, cv),
				})
			}
		}
	}
	return r, nil
}

func attributeDiffs(b, c domain.Column) []domain.AttributeDiff {
	var out []domain.AttributeDiff
	add := func(attr, bv, cv string) {
		if bv != cv {
			out = append(out, domain.AttributeDiff{Column: b.Name, Attribute: attr, Base: bv, Compare: cv})
		}
	}
	add("type", b.Type.String(), c.Type.String())
	add("length", strconv.Itoa(b.Length), strconv.Itoa(c.Length))
	add("format", b.Format, c.Format)
	add("informat", b.Informat, c.Informat)
	add("label", b.Label, c.Label)
	add("varnum", strconv.Itoa(b.Varnum), strconv.Itoa(c.Varnum))
	return out
}

func cell(row domain.Row, name string) any {
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

func sameValue(bc, cc domain.Column, bv, cv any) bool {
	if bc.IsNumeric() && cc.IsNumeric() {
		bf, bok := domain.ToFloat(bv)
		cf, cok := domain.ToFloat(cv)
		if !bok || !cok {
			return bok == cok
		}
		return bf == cf
	}
	return domain.ToText(bv) == domain.ToText(cv)
}
