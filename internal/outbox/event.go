package outbox

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

// OrderPlaced is the payload of an order.placed outbox event.
type OrderPlaced struct {
	OrderID    int64           `json:"order_id"`
	UserID     int64           `json:"user_id"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     string          `json:"status"`
	PlacedAt   time.Time       `json:"placed_at"`
}

func NewOrderPlaced(userID int64, order *domain.Order, at time.Time) OrderPlaced {
	return OrderPlaced{
		OrderID:    order.ID,
		UserID:     userID,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
		PlacedAt:   at.UTC(),
	}
}

// AggregateID keys the event by order so a sink can keep per-order ordering.
func (e OrderPlaced) AggregateID() string {
	return strconv.FormatInt(e.OrderID, 10)
}

func (e OrderPlaced) Marshal() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal order.placed payload: %w", err)
	}
	return b, nil
}

func DecodeOrderPlaced(payload []byte) (OrderPlaced, error) {
	var e OrderPlaced
	if err := json.Unmarshal(payload, &e); err != nil {
		return OrderPlaced{}, fmt.Errorf("failed to unmarshal order.placed payload: %w", err)
	}
	if e.OrderID == 0 {
		return OrderPlaced{}, fmt.Errorf("order.placed payload has no order id")
	}
	return e, nil
}
