package rates

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
)

func writeRateXLSX(t *testing.T, withHeader bool) string {
	t.Helper()

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Rates")
	require.NoError(t, err)

	if withHeader {
		header := sheet.AddRow()
		header.AddCell().SetString("County")
		header.AddCell().SetString("State Rate")
		header.AddCell().SetString("County Rate")
	}

	row := sheet.AddRow()
	row.AddCell().SetString("Wake")
	row.AddCell().SetFloat(0.0475)
	row.AddCell().SetFloat(0.0250)

	row = sheet.AddRow()
	row.AddCell().SetString("Durham")
	row.AddCell().SetFloat(0.0475)
	row.AddCell().SetFloat(0.0275)
	row.AddCell().SetFloat(0.0750)

	path := filepath.Join(t.TempDir(), "rates.xlsx")
	require.NoError(t, file.Save(path))
	return path
}

func TestLoadXLSX(t *testing.T) {
	rows, err := LoadXLSX(writeRateXLSX(t, true))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Wake", rows[0].County)
	assert.InDelta(t, 0.0475, rows[0].StateRate, 1e-9)
	assert.InDelta(t, 0.0250, rows[0].CountyRate, 1e-9)
	assert.Zero(t, rows[0].TotalRate)

	assert.Equal(t, "Durham", rows[1].County)
	assert.InDelta(t, 0.0750, rows[1].TotalRate, 1e-9)
}

func TestLoadXLSXNoHeader(t *testing.T) {
	rows, err := LoadXLSX(writeRateXLSX(t, false))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- county: Wake
  state_rate: 0.0475
  county_rate: 0.0250
- county: Durham
  state_rate: 0.0475
  county_rate: 0.0275
  total_rate: 0.0750
`), 0o644))

	rows, err := LoadYAML(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Wake", rows[0].County)
	assert.Equal(t, 0.0750, rows[1].TotalRate)
}

func TestLoadYAMLEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rates.yaml")
	require.NoError(t, os.WriteFile(path, []byte("[]\n"), 0o644))

	_, err := LoadYAML(path)
	assert.Error(t, err)
}

func TestLoadFileDispatch(t *testing.T) {
	_, err := LoadFile("rates.csv")
	assert.Error(t, err)

	rows, err := LoadFile(writeRateXLSX(t, true))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
