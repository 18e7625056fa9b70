package catalog

import (
	"testing"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func item(id int64, category, gender string, price int64) domain.Product {
	return domain.Product{ID: id, Category: domain.Category{Name: category}, Gender: gender, Price: decimal.NewFromInt(price)}
}

var shelf = []domain.Product{
	item(1, "Shirts", "Men", 1500),
	item(2, "Dresses", "Women", 4000),
	item(3, "Shirts", "Women", 900),
	item(4, "Jackets", "Men", 10000),
	item(5, "Dresses", "Women", 12000),
}

func ids(products []domain.Product) []int64 {
	out := make([]int64, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter func() Filter
		want   []int64
	}{
		{
			name:   "default range is inclusive",
			filter: DefaultFilter,
			want:   []int64{1, 2, 4},
		},
		{
			name: "category",
			filter: func() Filter {
				f := DefaultFilter()
				f.ToggleCategory("Shirts")
				return f
			},
			want: []int64{1},
		},
		{
			name: "category and gender",
			filter: func() Filter {
				f := DefaultFilter()
				f.ToggleCategory("Dresses")
				f.ToggleCategory("Jackets")
				f.ToggleGender("Men")
				return f
			},
			want: []int64{4},
		},
		{
			name: "narrowed price",
			filter: func() Filter {
				f := DefaultFilter()
				f.SetMin(decimal.NewFromInt(2000))
				f.SetMax(decimal.NewFromInt(5000))
				return f
			},
			want: []int64{2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(tt.filter().Apply(shelf)))
		})
	}
}

func TestFilter_ToggleTwiceClears(t *testing.T) {
	f := DefaultFilter()
	f.ToggleGender("Women")
	f.ToggleGender("Women")
	assert.Empty(t, f.Genders)
}

func TestFilter_RangeGap(t *testing.T) {
	f := DefaultFilter()
	f.SetMax(decimal.NewFromInt(3000))

	f.SetMin(decimal.NewFromInt(2800))
	assert.True(t, f.MinPrice.Equal(decimal.NewFromInt(2500)), f.MinPrice.String())

	f.SetMax(decimal.NewFromInt(2600))
	assert.True(t, f.MaxPrice.Equal(decimal.NewFromInt(3000)), f.MaxPrice.String())

	f.Reset()
	assert.Equal(t, DefaultFilter(), f)
}

func TestCategoriesAndGenders(t *testing.T) {
	assert.Equal(t, []string{"Shirts", "Dresses", "Jackets"}, Categories(shelf))
	assert.Equal(t, []string{"Men", "Women"}, Genders(shelf))
	assert.Nil(t, Categories(nil))
}
