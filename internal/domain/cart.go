package domain

import "github.com/shopspring/decimal"

// LineItem is one product + quantity entry of a cart. Subtotal is derived from
// Product.Price and Quantity; use NewLineItem or WithQuantity so it never drifts.
type LineItem struct {
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		Product:  p,
		Quantity: quantity,
		Subtotal: p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// WithQuantity returns a copy of the item with quantity and subtotal replaced.
func (l LineItem) WithQuantity(quantity int) LineItem {
	return NewLineItem(l.Product, quantity)
}

type Cart struct {
	ID    int64      `json:"id"`
	User  string     `json:"user"`
	Items []LineItem `json:"items"`
}
