package cart

import (
	"slices"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	PlatformFee = decimal.NewFromInt(20)
	Shipping    = decimal.Zero
)

// DonationAmounts are the selectable donations; zero means none.
var DonationAmounts = []int64{10, 20, 50, 100}

// Totals is the price breakdown of a cart. The platform fee and shipping are shown
// but not added to Total.
type Totals struct {
	TotalMRP    decimal.Decimal
	PlatformFee decimal.Decimal
	Shipping    decimal.Decimal
	Donation    decimal.Decimal
	Total       decimal.Decimal
}

func ComputeTotals(items []domain.LineItem, donation int64) Totals {
	mrp := decimal.Zero
	for _, it := range items {
		mrp = mrp.Add(it.Subtotal)
	}
	d := decimal.NewFromInt(donation)
	return Totals{
		TotalMRP:    mrp,
		PlatformFee: PlatformFee,
		Shipping:    Shipping,
		Donation:    d,
		Total:       mrp.Add(d),
	}
}

func validDonation(amount int64) bool {
	return slices.Contains(DonationAmounts, amount)
}
