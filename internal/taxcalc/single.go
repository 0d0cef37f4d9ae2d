package taxcalc

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/ridgeline-services/fieldops/internal/rates"
)

// QuoteInput is a synchronous tax quote request for an invoice that may not
// exist in the mirror yet. County, when set, overrides geocoding.
type QuoteInput struct {
	Subtotal float64
	Address  string
	County   string
}

// TaxQuote mirrors the batch path's tax amounts. UsedDefaultRate flags the
// documented best-effort fallback to the default county rate; it is never
// applied silently.
type TaxQuote struct {
	StateTaxAmount  float64 `json:"state_tax_amount"`
	CountyTaxAmount float64 `json:"county_tax_amount"`
	TotalTaxAmount  float64 `json:"total_tax_amount"`
	County          string  `json:"county"`
	UsedDefaultRate bool    `json:"used_default_rate"`
}

// QuoteTax computes tax for a single invoice synchronously. Given the same
// subtotal and county as a batch run, the amounts match exactly: both paths
// share computeTax.
func (c *Calculator) QuoteTax(ctx context.Context, in QuoteInput) (*TaxQuote, error) {
	table, err := c.loadRates(ctx)
	if err != nil {
		return nil, err
	}

	county := in.County
	if county == "" && in.Address != "" {
		geo, err := c.geocoder.CountyLookup(ctx, in.Address)
		if err != nil {
			return nil, eris.Wrap(err, "taxcalc: quote geocode")
		}
		if geo.Success {
			county = geo.County
		}
	}

	quote := &TaxQuote{}
	stateRate := c.cfg.StateRate
	var countyRate float64

	if county == "" {
		// No override and no geocodable address: fall back to the
		// configured default county rate and say so.
		quote.County = rates.Canonical(c.cfg.DefaultCounty)
		quote.UsedDefaultRate = true
		countyRate = c.cfg.DefaultCountyRate
	} else {
		rate, ok := table.RateFor(county)
		if !ok {
			return nil, eris.Errorf("taxcalc: no rate for county %q", county)
		}
		quote.County = rate.County
		countyRate = rate.CountyRate
		if rate.StateRate > 0 {
			stateRate = rate.StateRate
		}
	}

	quote.StateTaxAmount, quote.CountyTaxAmount, quote.TotalTaxAmount = computeTax(in.Subtotal, stateRate, countyRate)
	return quote, nil
}
