package invoicing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Date unmarshals the provider's "2006-01-02" date strings, tolerating
// empty and null values.
type Date struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return eris.Wrapf(err, "invoicing: parse date %q", s)
	}
	d.Time = t
	return nil
}

// TimePtr returns the date as *time.Time, nil when unset.
func (d Date) TimePtr() *time.Time {
	if d.IsZero() {
		return nil
	}
	t := d.Time
	return &t
}

// Invoice is one invoice record from the provider. External ids are opaque
// strings.
type Invoice struct {
	ID              string  `json:"id"`
	InvoiceNumber   string  `json:"invoice_number"`
	InvoiceDate     Date    `json:"invoice_date"`
	DueDate         Date    `json:"due_date"`
	CustomerID      string  `json:"customer_id"`
	CustomerName    string  `json:"customer_name"`
	CustomerAddress string  `json:"customer_address"`
	CustomerEmail   string  `json:"customer_email"`
	Amount          float64 `json:"amount"`
	AmountDue       float64 `json:"amount_due"`
	Status          string  `json:"status"`
	PaidDate        Date    `json:"paid_date"`
}

type invoiceListResponse struct {
	Invoices []Invoice `json:"invoices"`
}

// ListInvoices implements Client.
func (c *restClient) ListInvoices(ctx context.Context, offset, pageSize int) ([]Invoice, error) {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	params := url.Values{
		"offset": {fmt.Sprintf("%d", offset)},
		"limit":  {fmt.Sprintf("%d", pageSize)},
		"sort":   {"invoice_date:desc"},
	}

	body, err := c.get(ctx, "/api/v1/invoices?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var list invoiceListResponse
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, eris.Wrap(err, "invoicing: decode invoice list")
	}
	return list.Invoices, nil
}
