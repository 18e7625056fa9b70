package catalog

import (
	"slices"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	MinPrice = decimal.NewFromInt(1000)
	MaxPrice = decimal.NewFromInt(10000)
	// RangeGap is the narrowest price window the slider allows.
	RangeGap = decimal.NewFromInt(500)
)

// Filter narrows the catalog. Empty category and gender lists match everything; the
// price bounds are inclusive.
type Filter struct {
	Categories []string
	Genders    []string
	MinPrice   decimal.Decimal
	MaxPrice   decimal.Decimal
}

func DefaultFilter() Filter {
	return Filter{MinPrice: MinPrice, MaxPrice: MaxPrice}
}

func (f Filter) Apply(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category.Name) {
			continue
		}
		if len(f.Genders) > 0 && !slices.Contains(f.Genders, p.Gender) {
			continue
		}
		if p.Price.LessThan(f.MinPrice) || p.Price.GreaterThan(f.MaxPrice) {
			continue
		}
		out = append(out, p)
	}
	return out
}

func (f *Filter) ToggleCategory(name string) { f.Categories = toggle(f.Categories, name) }

func (f *Filter) ToggleGender(name string) { f.Genders = toggle(f.Genders, name) }

// SetMin moves the lower bound, keeping it at least RangeGap below the upper one.
func (f *Filter) SetMin(v decimal.Decimal) {
	if v.Add(RangeGap).LessThanOrEqual(f.MaxPrice) {
		f.MinPrice = v
		return
	}
	f.MinPrice = f.MaxPrice.Sub(RangeGap)
}

// SetMax moves the upper bound, keeping it at least RangeGap above the lower one.
func (f *Filter) SetMax(v decimal.Decimal) {
	if v.GreaterThanOrEqual(f.MinPrice.Add(RangeGap)) {
		f.MaxPrice = v
		return
	}
	f.MaxPrice = f.MinPrice.Add(RangeGap)
}

func (f *Filter) Reset() { *f = DefaultFilter() }

func toggle(list []string, v string) []string {
	if i := slices.Index(list, v); i >= 0 {
		return slices.Delete(slices.Clone(list), i, i+1)
	}
	return append(slices.Clone(list), v)
}

// Categories lists the distinct category names in first-seen order.
func Categories(products []domain.Product) []string {
	return distinct(products, func(p domain.Product) string { return p.Category.Name })
}

// Genders lists the distinct genders in first-seen order.
func Genders(products []domain.Product) []string {
	return distinct(products, func(p domain.Product) string { return p.Gender })
}

func distinct(products []domain.Product, key func(domain.Product) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range products {
		k := key(p)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
