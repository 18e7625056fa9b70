package cart

import (
	"context"
	"sync"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/shopspring/decimal"
)

// MockBackend keeps a server-side cart in memory. The *Fn hooks, when set, run before the
// default behaviour and may block or fail the call.
type MockBackend struct {
	mu sync.Mutex

	Lines map[int64]int
	Order []domain.Product

	CartErr   error
	UpdateErr error
	DeleteErr error

	CartFn   func(call int) error
	UpdateFn func(call int, productID int64, quantity int) error

	CartCalls   int
	UpdateCalls int
	DeleteCalls int
}

func newMockBackend(products ...domain.Product) *MockBackend {
	m := &MockBackend{Lines: make(map[int64]int)}
	for _, p := range products {
		m.Order = append(m.Order, p)
		m.Lines[p.ID] = 1
	}
	return m
}

func (m *MockBackend) Cart(_ context.Context, _ int64) ([]domain.LineItem, error) {
	m.mu.Lock()
	m.CartCalls++
	call, fn := m.CartCalls, m.CartFn
	m.mu.Unlock()
	if fn != nil {
		if err := fn(call); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CartErr != nil {
		return nil, m.CartErr
	}
	items := []domain.LineItem{}
	for _, p := range m.Order {
		if q, ok := m.Lines[p.ID]; ok {
			items = append(items, domain.NewLineItem(p, q))
		}
	}
	return items, nil
}

func (m *MockBackend) UpdateCartProduct(_ context.Context, _ int64, productID int64, quantity int) error {
	m.mu.Lock()
	m.UpdateCalls++
	call, fn := m.UpdateCalls, m.UpdateFn
	m.mu.Unlock()
	if fn != nil {
		if err := fn(call, productID, quantity); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	m.Lines[productID] = quantity
	return nil
}

func (m *MockBackend) DeleteProductFromCart(_ context.Context, _ int64, productID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Lines, productID)
	return nil
}

func (m *MockBackend) calls() (cart, update, del int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CartCalls, m.UpdateCalls, m.DeleteCalls
}

func (m *MockBackend) quantity(productID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Lines[productID]
}

type recordedNotice struct {
	kind string
	msg  string
}

type MockNotifier struct {
	mu      sync.Mutex
	notices []recordedNotice
}

func (n *MockNotifier) Success(msg string) { n.add("success", msg) }
func (n *MockNotifier) Error(msg string)   { n.add("error", msg) }

func (n *MockNotifier) add(kind, msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, recordedNotice{kind: kind, msg: msg})
}

func (n *MockNotifier) all() []recordedNotice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedNotice(nil), n.notices...)
}

func product(id int64, name string, price int64) domain.Product {
	return domain.Product{ID: id, Name: name, Price: decimal.NewFromInt(price)}
}
