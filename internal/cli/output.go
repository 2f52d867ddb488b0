package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: w}
}

// Emit writes data as indented JSON, or calls text in text mode.
func (f *OutputFormatter) Emit(data any, text func(io.Writer) error) error {
	if f.Format == "json" {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	return text(f.Writer)
}

func writeProducts(w io.Writer, products []domain.Product) error {
	if len(products) == 0 {
		_, err := fmt.Fprintln(w, "No products found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tSTOCK\tRATING")
	for _, p := range products {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\t%d\t%.1f\n", p.ID, p.Name, p.Category, p.Price, p.Stock, p.Rating)
	}
	return tw.Flush()
}

func writeOrders(w io.Writer, orders []domain.Order) error {
	if len(orders) == 0 {
		_, err := fmt.Fprintln(w, "No orders yet")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tPAYMENT\tITEMS\tTOTAL\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n",
			o.ID, o.Status, o.PaymentStatus, len(o.Items), o.Total, o.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func writeOrder(w io.Writer, o domain.Order) error {
	fmt.Fprintf(w, "Order %s\n", o.ID)
	fmt.Fprintf(w, "Status: %s (payment %s)\n", o.Status, o.PaymentStatus)
	fmt.Fprintf(w, "Ship to: %s, %s, %s %s\n", o.ShippingAddress.Street, o.ShippingAddress.City, o.ShippingAddress.State, o.ShippingAddress.ZipCode)
	for _, item := range o.Items {
		fmt.Fprintf(w, "  %dx %s @ %.2f\n", item.Quantity, item.Product.Name, item.Price)
	}
	_, err := fmt.Fprintf(w, "Total: %.2f\n", o.Total)
	return err
}
