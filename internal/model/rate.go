package model

// CountyTaxRate is a reference-table row mapping a county to its tax rates.
// Rates are decimal fractions (0.0475 means 4.75%).
type CountyTaxRate struct {
	County     string  `json:"county" yaml:"county"`
	StateRate  float64 `json:"state_rate" yaml:"state_rate"`
	CountyRate float64 `json:"county_rate" yaml:"county_rate"`
	TotalRate  float64 `json:"total_rate" yaml:"total_rate"`
}

// CustomerExclusion marks a customer whose invoices are never tax-counted.
type CustomerExclusion struct {
	ExternalCustomerID string `json:"external_customer_id"`
	Reason             string `json:"reason,omitempty"`
}

// CustomerInclusion restricts a calculation run to listed customers when the
// include filter mode is active.
type CustomerInclusion struct {
	ExternalCustomerID string `json:"external_customer_id"`
	Reason             string `json:"reason,omitempty"`
}
