package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joao-fontenele/storefront-sync/internal/checkout"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// NewOrdersCommand creates the orders command group.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "List, inspect and cancel orders",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List your orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.orders.List(ctx); err != nil {
					return err
				}
				orders := a.orders.Snapshot().Orders
				return out.Emit(orders, func(w io.Writer) error {
					return writeOrders(w, orders)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get <order-id>",
		Short: "Show one order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.orders.Get(ctx, args[0]); err != nil {
					return err
				}
				order := a.orders.Snapshot().Selected
				return out.Emit(order, func(w io.Writer) error {
					return writeOrder(w, *order)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "cancel <order-id>",
		Short: "Cancel a pending or processing order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				// Load first so a shipped order is refused without a request.
				if err := a.orders.Get(ctx, args[0]); err != nil {
					return err
				}
				if err := a.orders.Cancel(ctx, args[0]); err != nil {
					return err
				}
				order := a.orders.Snapshot().Selected
				return out.Emit(order, func(w io.Writer) error {
					return writeOrder(w, *order)
				})
			})
		},
	})

	var page, limit int
	history := &cobra.Command{
		Use:   "history",
		Short: "Page through order history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.orders.History(ctx, page, limit); err != nil {
					return err
				}
				state := a.orders.Snapshot()
				result := domain.OrderHistory{Orders: state.Orders, Total: state.HistoryTotal}
				return out.Emit(result, func(w io.Writer) error {
					if err := writeOrders(w, result.Orders); err != nil {
						return err
					}
					_, err := fmt.Fprintf(w, "%d orders in total\n", result.Total)
					return err
				})
			})
		},
	}
	history.Flags().IntVar(&page, "page", domain.DefaultPage, "page number")
	history.Flags().IntVar(&limit, "limit", 10, "page size")
	cmd.AddCommand(history)

	return cmd
}

// NewCheckoutCommand creates the checkout command.
func NewCheckoutCommand(rootOpts *RootOptions) *cobra.Command {
	var form domain.CheckoutForm

	cmd := &cobra.Command{
		Use:   "checkout",
		Short: "Place an order for the current cart",
		Long: `Place an order for the current cart.

Card details are required for credit and debit card payments only. On success
the cart is cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.cart.Load(ctx); err != nil {
					return err
				}
				flow := checkout.NewFlow(checkout.NewValidator(), a.orders, a.cart, a.logger)
				order, err := flow.PlaceOrder(ctx, form)
				if err != nil {
					return err
				}
				a.publish()
				return out.Emit(order, func(w io.Writer) error {
					return writeOrder(w, order)
				})
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&form.ShippingAddress.Street, "street", "", "shipping street")
	f.StringVar(&form.ShippingAddress.City, "city", "", "shipping city")
	f.StringVar(&form.ShippingAddress.State, "state", "", "shipping state")
	f.StringVar(&form.ShippingAddress.ZipCode, "zip", "", "shipping zip code")
	f.StringVar(&form.ShippingAddress.Country, "country", "US", "shipping country")
	f.StringVar(&form.PaymentMethod, "payment", domain.PaymentMethodCreditCard, "payment method")
	f.StringVar(&form.CardNumber, "card-number", "", "card number")
	f.StringVar(&form.CardExpiry, "card-expiry", "", "card expiry (MM/YY)")
	f.StringVar(&form.CardCVV, "card-cvv", "", "card security code")

	return cmd
}
