package model

import "time"

// PaymentStatus is the invoicing provider's payment state for an invoice.
// Values other than unpaid/paid pass through as-is; the pipeline only
// branches on Paid.
type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "unpaid"
	PaymentStatusPaid   PaymentStatus = "paid"
)

// SyncedInvoice is the local mirror of an external invoice. Customer fields
// are denormalized at sync time so results remain auditable against what the
// invoice looked like when it was synced. Rows are created and updated only
// by the sync stage and never deleted.
type SyncedInvoice struct {
	ExternalID         string        `json:"external_id"`
	InvoiceNumber      string        `json:"invoice_number"`
	InvoiceDate        *time.Time    `json:"invoice_date,omitempty"`
	DueDate            *time.Time    `json:"due_date,omitempty"`
	ExternalCustomerID string        `json:"external_customer_id"`
	CustomerName       string        `json:"customer_name"`
	CustomerAddress    string        `json:"customer_address"`
	CustomerEmail      string        `json:"customer_email"`
	Subtotal           float64       `json:"subtotal"`
	AmountDue          float64       `json:"amount_due"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	PaidDate           *time.Time    `json:"paid_date,omitempty"`
	LastSyncedAt       time.Time     `json:"last_synced_at"`
}

// Paid reports whether the invoice has been paid.
func (i SyncedInvoice) Paid() bool {
	return i.PaymentStatus == PaymentStatusPaid
}
