package rates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgeline-services/fieldops/internal/model"
)

func testTable() *Table {
	return NewTable([]model.CountyTaxRate{
		{County: "Wake", StateRate: 0.0475, CountyRate: 0.0250},
		{County: "durham county", StateRate: 0.0475, CountyRate: 0.0275},
		{County: "NEW HANOVER", StateRate: 0.0475, CountyRate: 0.0225},
	})
}

func TestCanonical(t *testing.T) {
	assert.Equal(t, "Wake", Canonical("  wake  "))
	assert.Equal(t, "Wake", Canonical("WAKE COUNTY"))
	assert.Equal(t, "New Hanover", Canonical("new hanover county"))
	assert.Equal(t, "", Canonical("   "))
}

func TestRateForExactMatch(t *testing.T) {
	tbl := testTable()

	for _, in := range []string{"Wake", "wake", "Wake County", "WAKE COUNTY", "  wake  "} {
		r, ok := tbl.RateFor(in)
		require.True(t, ok, "input %q", in)
		assert.Equal(t, "Wake", r.County, "input %q", in)
		assert.Equal(t, 0.0250, r.CountyRate, "input %q", in)
	}
}

func TestRateForMultiWordCounty(t *testing.T) {
	tbl := testTable()

	r, ok := tbl.RateFor("new hanover")
	require.True(t, ok)
	assert.Equal(t, "New Hanover", r.County)
}

func TestRateForPartialMatch(t *testing.T) {
	tbl := testTable()

	// Partial containment only kicks in when no canonical match exists.
	r, ok := tbl.RateFor("City of Durham County Durham")
	require.True(t, ok)
	assert.Equal(t, "Durham", r.County)
}

func TestRateForNotFound(t *testing.T) {
	tbl := testTable()

	r, ok := tbl.RateFor("Buncombe")
	assert.False(t, ok)
	assert.Nil(t, r)

	r, ok = tbl.RateFor("")
	assert.False(t, ok)
	assert.Nil(t, r)
}

func TestNewTableComputesTotal(t *testing.T) {
	tbl := NewTable([]model.CountyTaxRate{
		{County: "wake", StateRate: 0.0475, CountyRate: 0.0250},
		{County: "orange", StateRate: 0.0475, CountyRate: 0.0275, TotalRate: 0.09},
	})
	require.Equal(t, 2, tbl.Len())

	r, ok := tbl.RateFor("Wake")
	require.True(t, ok)
	assert.InDelta(t, 0.0725, r.TotalRate, 1e-9)

	// An explicit total is preserved.
	r, ok = tbl.RateFor("Orange")
	require.True(t, ok)
	assert.Equal(t, 0.09, r.TotalRate)
}
