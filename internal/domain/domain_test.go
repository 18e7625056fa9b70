package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineItem_SubtotalFollowsQuantity(t *testing.T) {
	p := Product{ID: 1, Name: "Shirt", Price: decimal.RequireFromString("499.50")}

	item := NewLineItem(p, 2)
	assert.True(t, item.Subtotal.Equal(decimal.RequireFromString("999")))

	item = item.WithQuantity(3)
	assert.Equal(t, 3, item.Quantity)
	assert.True(t, item.Subtotal.Equal(decimal.RequireFromString("1498.5")))
}

func TestUser_UnmarshalJSON(t *testing.T) {
	var u User
	require.NoError(t, json.Unmarshal([]byte(`{"id":7,"username":"asha","email":"a@x.io"}`), &u))
	assert.Equal(t, int64(7), u.ID)
	assert.Equal(t, "asha", u.Username)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"12","username":"ravi"}`), &u))
	assert.Equal(t, int64(12), u.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"username":"ghost"}`), &u))
	assert.Error(t, json.Unmarshal([]byte(`{"id":"abc"}`), &u))
	assert.Error(t, json.Unmarshal([]byte(`{not json`), &u))
}

func TestFormatOrderDate(t *testing.T) {
	assert.Equal(t, "Mar 5, 2025", FormatOrderDate("2025-03-05T10:11:12.123456+00:00"))
	assert.Equal(t, "Mar 5, 2025", FormatOrderDate("2025-03-05T10:11:12.123456"))
	assert.Equal(t, "Date not available", FormatOrderDate(""))
	assert.Equal(t, "yesterday", FormatOrderDate("yesterday"))
}
