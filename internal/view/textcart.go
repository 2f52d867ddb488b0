package view

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
)

const (
	nameWidth  = 24
	moneyWidth = 14
	lineWidth  = nameWidth + 1 + 3 + 1 + moneyWidth
)

// TextCart renders the cart summary as a plain-text table.
type TextCart struct {
	mu      sync.Mutex
	w       io.Writer
	unit    currency.Unit
	printer *message.Printer
	taxRate float64
}

func NewTextCart(w io.Writer, currencyCode string, taxRate float64) (*TextCart, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}
	return &TextCart{
		w:       w,
		unit:    unit,
		printer: message.NewPrinter(language.English),
		taxRate: taxRate,
	}, nil
}

func (t *TextCart) Render(state cart.State) error {
	var b strings.Builder
	t.write(&b, state)

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.w, b.String())
	return err
}

func (t *TextCart) write(b *strings.Builder, state cart.State) {
	c := state.Cart()

	fmt.Fprintf(b, "Cart (%d items)\n", state.ItemCount)
	if state.Pending {
		b.WriteString("Updating...\n")
	}
	if state.LastError != "" {
		fmt.Fprintf(b, "Error: %s\n", state.LastError)
	}
	if len(state.Items) == 0 {
		b.WriteString("Your cart is empty\n")
		return
	}

	for _, item := range state.Items {
		name := item.Product.Name
		if name == "" {
			name = item.ProductID
		}
		if len(name) > nameWidth {
			name = name[:nameWidth-3] + "..."
		}
		fmt.Fprintf(b, "%-*s %3d %*s\n", nameWidth, name, item.Quantity, moneyWidth, t.money(cart.LineTotal(item)))
	}
	b.WriteString(strings.Repeat("-", lineWidth) + "\n")

	tax := cart.EstimateTax(c, t.taxRate)
	t.row(b, "Subtotal", t.money(decimal.NewFromFloat(c.Total)))
	t.row(b, "Shipping", "FREE")
	t.row(b, "Tax (estimate)", t.money(tax))
	t.row(b, "Total (estimate)", t.money(cart.EstimateGrandTotal(c, t.taxRate)))
}

func (t *TextCart) row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%-*s %*s\n", lineWidth-moneyWidth-1, label, moneyWidth, value)
}

func (t *TextCart) money(d decimal.Decimal) string {
	return t.printer.Sprint(currency.Symbol(t.unit.Amount(d.InexactFloat64())))
}
