package invoicing

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/rotisserie/eris"
)

// Customer is one customer record from the provider.
type Customer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// GetCustomer implements Client.
func (c *restClient) GetCustomer(ctx context.Context, customerID string) (*Customer, error) {
	if customerID == "" {
		return nil, eris.New("invoicing: empty customer id")
	}

	body, err := c.get(ctx, "/api/v1/customers/"+url.PathEscape(customerID))
	if err != nil {
		return nil, err
	}

	var cust Customer
	if err := json.Unmarshal(body, &cust); err != nil {
		return nil, eris.Wrap(err, "invoicing: decode customer")
	}
	return &cust, nil
}
