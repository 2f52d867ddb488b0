package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/view"
)

// cartOutput is the JSON shape of a cart snapshot.
type cartOutput struct {
	Items      []domain.CartItem `json:"items"`
	ItemCount  int               `json:"itemCount"`
	Total      float64           `json:"total"`
	Tax        decimal.Decimal   `json:"tax"`
	GrandTotal decimal.Decimal   `json:"grandTotal"`
	Pending    bool              `json:"pending,omitempty"`
	LastError  string            `json:"lastError,omitempty"`
}

func newCartOutput(state cart.State, taxRate float64) cartOutput {
	return cartOutput{
		Items:      state.Items,
		ItemCount:  state.ItemCount,
		Total:      state.Total,
		Tax:        state.EstimateTax(taxRate),
		GrandTotal: cart.EstimateGrandTotal(state.Cart(), taxRate),
		Pending:    state.Pending,
		LastError:  state.LastError,
	}
}

// NewCartCommand creates the cart command group.
func NewCartCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "Show and change the cart",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Load the cart from the server and print it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				return a.cart.Load(ctx)
			})
		},
	})

	var quantity int
	add := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				return a.cart.Add(ctx, args[0], quantity)
			})
		},
	}
	add.Flags().IntVarP(&quantity, "quantity", "q", 1, "quantity to add")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "update <item-id> <quantity>",
		Short: "Set the quantity of a cart item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				// Quantity bounds come from the loaded item's stock.
				if err := a.cart.Load(ctx); err != nil {
					return err
				}
				return a.cart.UpdateQuantity(ctx, args[0], q)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <item-id>",
		Short: "Remove an item from the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				return a.cart.Remove(ctx, args[0])
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Empty the cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				return a.cart.Clear(ctx)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "sync",
		Short: "Merge the locally mirrored cart into the server cart",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCart(rootOpts, cmd, func(ctx context.Context, a *app) error {
				return a.cart.Sync(ctx)
			})
		},
	})

	cmd.AddCommand(newCartWatchCommand(rootOpts))

	return cmd
}

// runCart opens the client, applies action and prints the resulting cart.
func runCart(opts *RootOptions, cmd *cobra.Command, action func(context.Context, *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := action(ctx, a); err != nil {
		return err
	}
	a.publish()

	renderer, err := a.cartRenderer(opts, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	return renderer.Render(a.cart.Snapshot())
}

func (a *app) cartRenderer(opts *RootOptions, w io.Writer) (view.Component, error) {
	if opts.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return view.ComponentFunc(func(state cart.State) error {
			return enc.Encode(newCartOutput(state, a.cfg.Checkout.TaxRate))
		}), nil
	}
	return view.NewTextCart(w, a.cfg.Checkout.Currency, a.cfg.Checkout.TaxRate)
}

func newCartWatchCommand(rootOpts *RootOptions) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Reload the cart periodically and print every change",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			renderer, err := a.cartRenderer(rootOpts, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			binder := view.NewBinder(a.cart, a.logger)
			defer binder.Close()
			binder.Bind("output", renderer)
			if a.publisher != nil {
				binder.Bind("publisher", a.publisher)
			}

			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				if err := a.cart.Load(ctx); err != nil && ctx.Err() == nil {
					a.logger.Warn("cart reload failed", "error", err)
				}
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
				}
			}
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "reload interval")
	return cmd
}
