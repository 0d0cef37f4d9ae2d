package rates

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/ridgeline-services/fieldops/internal/model"
)

// LoadFile reads county tax rates from a reference file, dispatching on
// extension (.xlsx, .yaml, .yml).
func LoadFile(path string) ([]model.CountyTaxRate, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return LoadXLSX(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, eris.Errorf("rates: unsupported rate file %s", path)
	}
}

// LoadXLSX reads rates from the first sheet of a spreadsheet. Expected
// columns: county, state rate, county rate, optional total rate. The first
// row is treated as a header when its rate cells do not parse as numbers.
func LoadXLSX(path string) ([]model.CountyTaxRate, error) {
	file, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rates: open %s", path)
	}
	if len(file.Sheets) == 0 {
		return nil, eris.Errorf("rates: %s has no sheets", path)
	}

	var rows []model.CountyTaxRate
	for i, row := range file.Sheets[0].Rows {
		if len(row.Cells) < 3 {
			continue
		}

		county := strings.TrimSpace(row.Cells[0].String())
		if county == "" {
			continue
		}

		stateRate, sErr := row.Cells[1].Float()
		countyRate, cErr := row.Cells[2].Float()
		if sErr != nil || cErr != nil {
			if i == 0 {
				continue // header row
			}
			return nil, eris.Errorf("rates: %s row %d has non-numeric rates", path, i+1)
		}

		r := model.CountyTaxRate{
			County:     county,
			StateRate:  stateRate,
			CountyRate: countyRate,
		}
		if len(row.Cells) > 3 {
			if total, err := row.Cells[3].Float(); err == nil {
				r.TotalRate = total
			}
		}
		rows = append(rows, r)
	}

	if len(rows) == 0 {
		return nil, eris.Errorf("rates: %s contains no rate rows", path)
	}
	return rows, nil
}

// LoadYAML reads rates from a YAML list of {county, state_rate, county_rate,
// total_rate} entries.
func LoadYAML(path string) ([]model.CountyTaxRate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "rates: read %s", path)
	}

	var rows []model.CountyTaxRate
	if err := yaml.Unmarshal(data, &rows); err != nil {
		return nil, eris.Wrapf(err, "rates: parse %s", path)
	}
	if len(rows) == 0 {
		return nil, eris.Errorf("rates: %s contains no rate rows", path)
	}
	return rows, nil
}
