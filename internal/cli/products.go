package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// withApp opens the client for the duration of fn.
func withApp(opts *RootOptions, cmd *cobra.Command, fn func(context.Context, *app, *OutputFormatter) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, opts, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a, newFormatter(opts, cmd.OutOrStdout()))
}

// NewProductsCommand creates the products command group.
func NewProductsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse the catalog",
	}

	var (
		filters     domain.ProductFilters
		sortBy      string
		page, limit int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List products with optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters.SortBy = domain.SortOrder(sortBy)
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				a.catalog.SetFilters(filters)
				if err := a.catalog.Fetch(ctx, page, limit); err != nil {
					return err
				}
				state := a.catalog.Snapshot()
				return out.Emit(domain.ProductPage{Products: state.Products, Pagination: state.Pagination}, func(w io.Writer) error {
					if err := writeProducts(w, state.Products); err != nil {
						return err
					}
					p := state.Pagination
					_, err := fmt.Fprintf(w, "Page %d of %d (%d products)\n", p.Page, p.TotalPages, p.Total)
					return err
				})
			})
		},
	}
	list.Flags().StringVar(&filters.Category, "category", "", "only this category")
	list.Flags().StringVar(&filters.Search, "search", "", "text to match in name or description")
	list.Flags().Float64Var(&filters.MinPrice, "min-price", 0, "minimum price")
	list.Flags().Float64Var(&filters.MaxPrice, "max-price", 0, "maximum price")
	list.Flags().StringVar(&sortBy, "sort", "", "price-asc, price-desc, name or rating")
	list.Flags().IntVar(&page, "page", domain.DefaultPage, "page number")
	list.Flags().IntVar(&limit, "limit", domain.DefaultPageSize, "page size")
	cmd.AddCommand(list)

	cmd.AddCommand(&cobra.Command{
		Use:   "get <product-id>",
		Short: "Show one product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.catalog.Get(ctx, args[0]); err != nil {
					return err
				}
				p := a.catalog.Snapshot().Selected
				return out.Emit(p, func(w io.Writer) error {
					return writeProduct(w, *p, a.cart.Snapshot())
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "featured",
		Short: "List featured products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.catalog.Featured(ctx); err != nil {
					return err
				}
				featured := a.catalog.Snapshot().Featured
				return out.Emit(featured, func(w io.Writer) error {
					return writeProducts(w, featured)
				})
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search products by name or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(ctx context.Context, a *app, out *OutputFormatter) error {
				if err := a.catalog.Search(ctx, args[0]); err != nil {
					return err
				}
				found := a.catalog.Snapshot().Products
				return out.Emit(found, func(w io.Writer) error {
					return writeProducts(w, found)
				})
			})
		},
	})

	return cmd
}

func writeProduct(w io.Writer, p domain.Product, state cart.State) error {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.ID)
	fmt.Fprintf(w, "%s\n", p.Description)
	fmt.Fprintf(w, "Category: %s\n", p.Category)
	fmt.Fprintf(w, "Price: %.2f\n", p.Price)
	fmt.Fprintf(w, "Rating: %.1f (%d reviews)\n", p.Rating, p.ReviewCount)
	if p.Stock == 0 {
		fmt.Fprintln(w, "Out of stock")
	} else {
		fmt.Fprintf(w, "In stock: %d\n", p.Stock)
	}
	if q := state.ItemQuantity(p.ID); q > 0 {
		fmt.Fprintf(w, "In your cart: %d\n", q)
	}
	return nil
}
