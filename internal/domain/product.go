package domain

import "github.com/shopspring/decimal"

type Category struct {
	Name string `json:"name"`
}

type Product struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Category    Category        `json:"category"`
	Gender      string          `json:"gender,omitempty"`
	Image1      string          `json:"image1,omitempty"`
	Image2      string          `json:"image2,omitempty"`
}
