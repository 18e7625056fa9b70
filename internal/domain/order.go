package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is what the client keeps of a placed order. It is never mutated locally.
type Order struct {
	ID         int64           `json:"id"`
	User       string          `json:"user,omitempty"`
	TotalPrice decimal.Decimal `json:"totalPrice"`
	Status     string          `json:"status"`
}

type OrderItem struct {
	ID       int64           `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderSummary is an entry of the order history.
type OrderSummary struct {
	ID         int64       `json:"id"`
	User       string      `json:"user"`
	CreatedAt  string      `json:"createdAt"`
	OrderItems []OrderItem `json:"orderItems"`
}

var orderDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999-07:00",
	"2006-01-02",
}

// FormatOrderDate renders a backend timestamp as "Jan 2, 2006". Values that do not
// parse are returned as they are.
func FormatOrderDate(raw string) string {
	if raw == "" {
		return "Date not available"
	}
	for _, layout := range orderDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("Jan 2, 2006")
		}
	}
	return raw
}
