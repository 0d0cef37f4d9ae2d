// Package rates maintains the county tax rate reference table.
package rates

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ridgeline-services/fieldops/internal/model"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// Table answers county rate lookups over an in-memory copy of the
// reference table.
type Table struct {
	rows []model.CountyTaxRate
}

// NewTable builds a lookup table from reference rows. County names are
// stored in canonical title case.
func NewTable(rows []model.CountyTaxRate) *Table {
	t := &Table{rows: make([]model.CountyTaxRate, 0, len(rows))}
	for _, r := range rows {
		r.County = Canonical(r.County)
		if r.TotalRate == 0 {
			r.TotalRate = r.StateRate + r.CountyRate
		}
		t.rows = append(t.rows, r)
	}
	return t
}

// Canonical normalizes a county name: trims whitespace, strips a trailing
// "County" qualifier, and title-cases the remainder.
func Canonical(county string) string {
	c := strings.TrimSpace(county)
	lower := strings.ToLower(c)
	lower = strings.TrimSuffix(lower, " county")
	return titleCaser.String(strings.TrimSpace(lower))
}

// RateFor finds the rate row for a county name. Matching is
// case-insensitive and tolerates a trailing qualifier on either side; an
// exact canonical match wins over a partial one. Not-found is reported
// explicitly — callers must never treat it as a zero rate.
func (t *Table) RateFor(county string) (*model.CountyTaxRate, bool) {
	want := strings.ToLower(Canonical(county))
	if want == "" {
		return nil, false
	}

	for i := range t.rows {
		if strings.ToLower(t.rows[i].County) == want {
			r := t.rows[i]
			return &r, true
		}
	}
	for i := range t.rows {
		have := strings.ToLower(t.rows[i].County)
		if strings.Contains(want, have) || strings.Contains(have, want) {
			r := t.rows[i]
			return &r, true
		}
	}
	return nil, false
}

// Len reports the number of counties in the table.
func (t *Table) Len() int {
	return len(t.rows)
}
