package model

import "time"

// ResultStatus classifies the outcome of processing one invoice.
type ResultStatus string

const (
	ResultStatusCounted  ResultStatus = "counted"
	ResultStatusSkipped  ResultStatus = "skipped"
	ResultStatusExcluded ResultStatus = "excluded"
	ResultStatusFailed   ResultStatus = "failed"
)

// SkipReason explains why an invoice was not counted. Empty for counted rows.
type SkipReason string

const (
	SkipReasonNone               SkipReason = ""
	SkipReasonCustomerExcluded   SkipReason = "customer_excluded"
	SkipReasonUnpaid             SkipReason = "unpaid"
	SkipReasonNoAddress          SkipReason = "no_address"
	SkipReasonGeocodingFailed    SkipReason = "geocoding_failed"
	SkipReasonCountyRateNotFound SkipReason = "county_rate_not_found"
	SkipReasonCancelled          SkipReason = "cancelled"
)

// Confidence is the geocoder's self-reported certainty for an address match.
type Confidence string

const (
	ConfidenceMatch   Confidence = "Match"
	ConfidenceTie     Confidence = "Tie"
	ConfidenceNoMatch Confidence = "No_Match"
	ConfidenceError   Confidence = "Error"
)

// TaxResult is one row per invoice, unique on the external invoice id.
// Invoice fields are denormalized from the mirror at processing time so
// historical results survive later mirror changes. Reprocessing upserts the
// row in place; there is never more than one result per invoice.
type TaxResult struct {
	ExternalInvoiceID  string       `json:"external_invoice_id"`
	InvoiceNumber      string       `json:"invoice_number"`
	InvoiceDate        *time.Time   `json:"invoice_date,omitempty"`
	PaidDate           *time.Time   `json:"paid_date,omitempty"`
	ExternalCustomerID string       `json:"external_customer_id"`
	CustomerName       string       `json:"customer_name"`
	Subtotal           float64      `json:"subtotal"`
	Status             ResultStatus `json:"status"`
	Reason             SkipReason   `json:"reason,omitempty"`
	County             string       `json:"county,omitempty"`
	Confidence         Confidence   `json:"confidence,omitempty"`
	RawGeocode         []byte       `json:"raw_geocode,omitempty"`
	StateTaxRate       float64      `json:"state_tax_rate"`
	StateTaxAmount     float64      `json:"state_tax_amount"`
	CountyTaxRate      float64      `json:"county_tax_rate"`
	CountyTaxAmount    float64      `json:"county_tax_amount"`
	TotalTax           float64      `json:"total_tax"`
	ProcessedAt        time.Time    `json:"processed_at"`
}
