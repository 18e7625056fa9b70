package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/aminexfrad/F-S-SHOP/internal/domain"
	"github.com/aminexfrad/F-S-SHOP/internal/notice"
	"github.com/aminexfrad/F-S-SHOP/internal/session"
	"go.uber.org/zap"
)

var (
	ErrInvalidProduct = errors.New("invalid product id")
	ErrLoginRequired  = errors.New("login required to add to cart")
	ErrAddToCart      = errors.New("failed to add to cart")
)

const (
	MsgInvalidProduct = "Invalid product ID"
	MsgLoginToAdd     = "You need to be logged in to add items to the cart"
	MsgAddFailed      = "Failed to add item to cart. Please try again."
	msgAdded          = "Added %d %s to your cart!"
)

type CartAdder interface {
	AddToCart(ctx context.Context, userID, productID int64, quantity int) error
}

// Detail is the product screen: it shows one product and puts it in the cart.
type Detail struct {
	adder   CartAdder
	session *session.Session
	notices notice.Notifier
	logger  *zap.Logger
}

func NewDetail(adder CartAdder, sess *session.Session, notices notice.Notifier, logger *zap.Logger) *Detail {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detail{adder: adder, session: sess, notices: notices, logger: logger.Named("detail")}
}

// AddToCart adds quantity of p to the signed-in user's cart. An anonymous user gets an
// error notice rather than a redirect. Quantities below 1 are raised to 1.
func (d *Detail) AddToCart(ctx context.Context, p domain.Product, quantity int) error {
	if p.ID <= 0 {
		d.notices.Error(MsgInvalidProduct)
		return ErrInvalidProduct
	}
	snap := d.session.Current()
	if !snap.IsAuthenticated() {
		d.notices.Error(MsgLoginToAdd)
		return ErrLoginRequired
	}
	quantity = max(quantity, 1)

	if err := d.adder.AddToCart(ctx, snap.User.ID, p.ID, quantity); err != nil {
		d.logger.Warn("failed to add to cart",
			zap.Int64("user_id", snap.User.ID), zap.Int64("product_id", p.ID), zap.Error(err))
		d.notices.Error(MsgAddFailed)
		return fmt.Errorf("%w: %w", ErrAddToCart, err)
	}
	d.notices.Success(fmt.Sprintf(msgAdded, quantity, p.Name))
	return nil
}

// Find returns the product with id from products.
func Find(products []domain.Product, id int64) (domain.Product, bool) {
	for _, p := range products {
		if p.ID == id {
			return p, true
		}
	}
	return domain.Product{}, false
}
