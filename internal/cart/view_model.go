// Package cart is the cart screen's state: the line items, per-row progress and the
// donation, kept in step with the remote cart.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"go.uber.org/zap"
)

var (
	ErrFetch           = errors.New("failed to fetch cart")
	ErrNoSuchItem      = errors.New("no such cart item")
	ErrInvalidDonation = errors.New("invalid donation amount")
	ErrClosed          = errors.New("cart view is closed")
)

// User-facing messages
const (
	MsgUpdateFailed = "Failed to update quantity. Please try again."
	MsgRemoveFailed = "Failed to remove item. Please try again."
	msgRemoved      = "Removed %s from your cart!"
)

// Backend is the part of the storefront API the cart needs.
type Backend interface {
	Cart(ctx context.Context, userID int64) ([]domain.LineItem, error)
	UpdateCartProduct(ctx context.Context, userID, productID int64, quantity int) error
	DeleteProductFromCart(ctx context.Context, userID, productID int64) error
}

// ViewModel owns the local copy of one user's cart. The server stays the source of truth:
// every successful mutation is followed by a reload.
//
// Quantity updates are optimistic and numbered per product. Only the newest update of a
// product may settle; older answers only move the quantity the row falls back to. While a
// product has updates in flight a reload keeps the optimistic quantity for it.
type ViewModel struct {
	backend Backend
	userID  int64
	notices notice.Notifier
	logger  *zap.Logger

	mu         sync.Mutex
	items      []domain.LineItem
	donation   int64
	fetchErr   error
	loaded     bool
	closed     bool
	loadGen    uint64
	appliedGen uint64
	seq        map[int64]uint64
	inflight   map[int64]int
	pending    map[int64]int
	// base is the last quantity the server is known to hold for a product with updates
	// in flight; reverted marks products whose newest update failed.
	base     map[int64]int
	reverted map[int64]bool
	removing map[int64]bool
}

func NewViewModel(backend Backend, userID int64, notices notice.Notifier, logger *zap.Logger) *ViewModel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewModel{
		backend:  backend,
		userID:   userID,
		notices:  notices,
		logger:   logger.With(zap.Int64("user_id", userID)),
		items:    []domain.LineItem{},
		seq:      make(map[int64]uint64),
		inflight: make(map[int64]int),
		pending:  make(map[int64]int),
		base:     make(map[int64]int),
		reverted: make(map[int64]bool),
		removing: make(map[int64]bool),
	}
}

func (vm *ViewModel) UserID() int64 { return vm.userID }

// Load replaces the local list with the server's. On failure the previous list is kept
// and Err reports the failure until the next successful load.
func (vm *ViewModel) Load(ctx context.Context) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	vm.loadGen++
	gen := vm.loadGen
	vm.mu.Unlock()

	items, err := vm.backend.Cart(ctx, vm.userID)

	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.closed {
		return ErrClosed
	}
	if gen < vm.appliedGen {
		vm.logger.Debug("dropping stale cart load", zap.Uint64("gen", gen), zap.Uint64("applied", vm.appliedGen))
		return nil
	}
	if err != nil {
		vm.fetchErr = err
		vm.logger.Warn("failed to fetch cart", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrFetch, err)
	}

	vm.appliedGen = gen
	vm.fetchErr = nil
	vm.loaded = true
	for i, it := range items {
		if vm.inflight[it.Product.ID] > 0 {
			items[i] = it.WithQuantity(vm.pending[it.Product.ID])
		}
	}
	vm.items = items
	return nil
}

// ChangeQuantity moves the quantity of row index by delta, never below 1.
func (vm *ViewModel) ChangeQuantity(ctx context.Context, index, delta int) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	if index < 0 || index >= len(vm.items) {
		vm.mu.Unlock()
		return ErrNoSuchItem
	}
	item := vm.items[index]
	newQuantity := max(1, item.Quantity+delta)
	if newQuantity == item.Quantity {
		vm.mu.Unlock()
		return nil
	}

	productID := item.Product.ID
	vm.items[index] = item.WithQuantity(newQuantity)
	vm.seq[productID]++
	seq := vm.seq[productID]
	if vm.inflight[productID] == 0 {
		vm.base[productID] = item.Quantity
	}
	vm.inflight[productID]++
	vm.pending[productID] = newQuantity
	delete(vm.reverted, productID)
	vm.mu.Unlock()

	err := vm.backend.UpdateCartProduct(ctx, vm.userID, productID, newQuantity)

	vm.mu.Lock()
	closed, newest := vm.settleUpdateLocked(productID, seq, newQuantity, err)
	vm.mu.Unlock()

	switch {
	case closed:
		return ErrClosed
	case !newest:
		vm.logger.Debug("dropping superseded quantity update",
			zap.Int64("product_id", productID), zap.Uint64("seq", seq))
		return nil
	case err != nil:
		vm.logger.Warn("failed to update quantity", zap.Int64("product_id", productID), zap.Error(err))
		vm.notices.Error(MsgUpdateFailed)
		return fmt.Errorf("update quantity: %w", err)
	}
	return vm.Load(ctx)
}

// settleUpdateLocked books the answer to update seq of productID. A failed newest update
// puts the row back to the last quantity the server accepted, and so does any older
// answer arriving after that failure.
func (vm *ViewModel) settleUpdateLocked(productID int64, seq uint64, quantity int, err error) (closed, newest bool) {
	defer func() {
		vm.inflight[productID]--
		if vm.inflight[productID] <= 0 {
			delete(vm.inflight, productID)
			delete(vm.pending, productID)
			delete(vm.base, productID)
			delete(vm.reverted, productID)
		}
	}()
	if vm.closed {
		return true, false
	}
	if err == nil {
		vm.base[productID] = quantity
	}
	newest = seq == vm.seq[productID]
	if newest && err != nil {
		vm.reverted[productID] = true
	}
	if vm.reverted[productID] {
		q := vm.base[productID]
		vm.pending[productID] = q
		if i := vm.indexOf(productID); i >= 0 {
			vm.items[i] = vm.items[i].WithQuantity(q)
		}
	}
	return false, newest
}

// RemoveItem deletes row index on the server first and only then locally.
func (vm *ViewModel) RemoveItem(ctx context.Context, index int) error {
	vm.mu.Lock()
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	if index < 0 || index >= len(vm.items) {
		vm.mu.Unlock()
		return ErrNoSuchItem
	}
	product := vm.items[index].Product
	vm.removing[product.ID] = true
	vm.mu.Unlock()

	err := vm.backend.DeleteProductFromCart(ctx, vm.userID, product.ID)

	vm.mu.Lock()
	delete(vm.removing, product.ID)
	if vm.closed {
		vm.mu.Unlock()
		return ErrClosed
	}
	if err != nil {
		vm.mu.Unlock()
		vm.logger.Warn("failed to remove item", zap.Int64("product_id", product.ID), zap.Error(err))
		vm.notices.Error(MsgRemoveFailed)
		return fmt.Errorf("remove item: %w", err)
	}
	if i := vm.indexOf(product.ID); i >= 0 {
		vm.items = append(vm.items[:i:i], vm.items[i+1:]...)
	}
	// answers to quantity updates still in flight for this product are now stale
	vm.seq[product.ID]++
	vm.mu.Unlock()

	vm.notices.Success(fmt.Sprintf(msgRemoved, product.Name))
	return nil
}

// ToggleDonation selects amount, or clears the donation if amount is already selected.
func (vm *ViewModel) ToggleDonation(amount int64) error {
	if !validDonation(amount) {
		return fmt.Errorf("%w: %d", ErrInvalidDonation, amount)
	}
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if vm.donation == amount {
		vm.donation = 0
	} else {
		vm.donation = amount
	}
	return nil
}

func (vm *ViewModel) Donation() int64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.donation
}

func (vm *ViewModel) Totals() Totals {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return ComputeTotals(vm.items, vm.donation)
}

// Items returns a copy of the current rows.
func (vm *ViewModel) Items() []domain.LineItem {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return append([]domain.LineItem(nil), vm.items...)
}

func (vm *ViewModel) Len() int {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return len(vm.items)
}

// Updating reports whether row index has a quantity update in flight.
func (vm *ViewModel) Updating(index int) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if index < 0 || index >= len(vm.items) {
		return false
	}
	return vm.inflight[vm.items[index].Product.ID] > 0
}

// Removing reports whether row index has a removal in flight.
func (vm *ViewModel) Removing(index int) bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	if index < 0 || index >= len(vm.items) {
		return false
	}
	return vm.removing[vm.items[index].Product.ID]
}

// Err returns the last fetch failure, or nil once a load succeeded.
func (vm *ViewModel) Err() error {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.fetchErr
}

func (vm *ViewModel) Loaded() bool {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	return vm.loaded
}

// Close detaches the view. Calls still in flight settle without touching state or
// raising notices.
func (vm *ViewModel) Close() {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.closed = true
}

func (vm *ViewModel) indexOf(productID int64) int {
	for i, it := range vm.items {
		if it.Product.ID == productID {
			return i
		}
	}
	return -1
}
