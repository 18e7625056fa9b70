// Package checkout places an order for the cart on screen.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/config"
	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/outbox"
	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"go.uber.org/zap"
)

var (
	ErrEmptyCart   = errors.New("cart is empty, nothing to checkout")
	ErrPlaceOrder  = errors.New("failed to place order")
	ErrInProgress  = errors.New("checkout already in progress")
	errNoOrderData = errors.New("placeOrder returned no order")
)

const (
	MsgEmptyCart   = "Your cart is empty. Please add items to place an order."
	MsgOrderFailed = "Failed to place your order. Please try again."
	msgOrderPlaced = "Order placed successfully! Order ID: %d"
)

type State int

const (
	StateIdle State = iota
	StatePlacing
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlacing:
		return "placing"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

type Backend interface {
	PlaceOrder(ctx context.Context, userID int64) (*domain.Order, error)
	NotifyOrder(ctx context.Context, orderID int64) (string, error)
}

// Cart is the cart view the order is placed from.
type Cart interface {
	UserID() int64
	Len() int
	Load(ctx context.Context) error
}

// Enqueuer queues a notify event for later delivery.
type Enqueuer interface {
	Enqueue(ctx context.Context, aggregateID, eventType string, payload []byte) (*repository.OutboxEvent, error)
}

type Flow struct {
	backend Backend
	cart    Cart
	notices notice.Notifier
	policy  config.NotifyPolicy
	outbox  Enqueuer
	logger  *zap.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State
	order *domain.Order
}

type Option func(*Flow)

// WithOutbox routes the notify step through q instead of calling notifyOrder inline.
func WithOutbox(q Enqueuer) Option {
	return func(f *Flow) {
		f.outbox = q
		f.policy = config.NotifyOutbox
	}
}

func WithNotifyPolicy(p config.NotifyPolicy) Option { return func(f *Flow) { f.policy = p } }

func WithLogger(l *zap.Logger) Option { return func(f *Flow) { f.logger = l } }

func NewFlow(backend Backend, cart Cart, notices notice.Notifier, opts ...Option) *Flow {
	f := &Flow{
		backend: backend,
		cart:    cart,
		notices: notices,
		policy:  config.NotifyBestEffort,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = f.logger.With(zap.Int64("user_id", cart.UserID()))
	return f
}

// PlaceOrder turns the remote cart into an order. The notify step that follows never
// fails the checkout.
func (f *Flow) PlaceOrder(ctx context.Context) (*domain.Order, error) {
	f.mu.Lock()
	if f.state == StatePlacing {
		f.mu.Unlock()
		return nil, ErrInProgress
	}
	if f.cart.Len() == 0 {
		f.mu.Unlock()
		f.notices.Error(MsgEmptyCart)
		return nil, ErrEmptyCart
	}
	f.state = StatePlacing
	f.mu.Unlock()

	userID := f.cart.UserID()
	order, err := f.backend.PlaceOrder(ctx, userID)
	if err == nil && order == nil {
		err = errNoOrderData
	}
	if err != nil {
		f.finish(StateFailed, nil)
		f.logger.Warn("failed to place order", zap.Error(err))
		f.notices.Error(MsgOrderFailed)
		return nil, fmt.Errorf("%w: %w", ErrPlaceOrder, err)
	}

	f.notify(ctx, userID, order)

	f.finish(StateSucceeded, order)
	f.logger.Info("order placed", zap.Int64("order_id", order.ID), zap.String("total", order.TotalPrice.String()))
	f.notices.Success(fmt.Sprintf(msgOrderPlaced, order.ID))

	if err := f.cart.Load(ctx); err != nil {
		f.logger.Warn("failed to reload cart after checkout", zap.Error(err))
	}
	return order, nil
}

func (f *Flow) notify(ctx context.Context, userID int64, order *domain.Order) {
	log := f.logger.With(zap.Int64("order_id", order.ID), zap.String("policy", string(f.policy)))
	switch f.policy {
	case config.NotifyNone:
		return
	case config.NotifyOutbox:
		if f.outbox == nil {
			log.Error("outbox notify policy without an outbox, notification dropped")
			return
		}
		e := outbox.NewOrderPlaced(userID, order, f.now())
		payload, err := e.Marshal()
		if err != nil {
			log.Error("failed to build notify event", zap.Error(err))
			return
		}
		if _, err := f.outbox.Enqueue(ctx, e.AggregateID(), repository.EventOrderPlaced, payload); err != nil {
			log.Error("failed to enqueue notify event", zap.Error(err))
		}
	default:
		status, err := f.backend.NotifyOrder(ctx, order.ID)
		if err != nil {
			log.Warn("failed to notify order", zap.Error(err))
			return
		}
		log.Debug("order notified", zap.String("status", status))
	}
}

func (f *Flow) finish(s State, order *domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
	f.order = order
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Order returns the last placed order, or nil.
func (f *Flow) Order() *domain.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.order
}
