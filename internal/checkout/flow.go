package checkout

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/orders"
)

var ErrEmptyCart = errors.New("cart is empty")

type Flow struct {
	validator *Validator
	orders    *orders.Store
	cart      *cart.Store
	logger    *slog.Logger
}

func NewFlow(v *Validator, o *orders.Store, c *cart.Store, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Flow{validator: v, orders: o, cart: c, logger: logger}
}

// PlaceOrder validates the form, creates the order and then clears the cart.
// A failed clear does not undo the order; it only shows up in the cart
// store's LastError.
func (f *Flow) PlaceOrder(ctx context.Context, form domain.CheckoutForm) (domain.Order, error) {
	if err := f.validator.Validate(form); err != nil {
		return domain.Order{}, err
	}
	if len(f.cart.Snapshot().Items) == 0 {
		return domain.Order{}, ErrEmptyCart
	}

	order, err := f.orders.Create(ctx, form)
	if err != nil {
		return domain.Order{}, err
	}

	if err := f.cart.Clear(ctx); err != nil {
		f.logger.Warn("order placed but cart was not cleared", "order_id", order.ID, "error", err)
	}
	return order, nil
}
