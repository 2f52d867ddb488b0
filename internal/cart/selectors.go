package cart

import (
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// Pure accessors over a snapshot. None of them mutate their input, so they
// are safe to call while rendering.

// DefaultTaxRate is the rate the checkout preview has always shown.
const DefaultTaxRate = 0.08

func IsInCart(c domain.Cart, productID string) bool {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return true
		}
	}
	return false
}

// ItemQuantity returns the quantity held for productID, or 0.
func ItemQuantity(c domain.Cart, productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

func FindItem(c domain.Cart, itemID string) (domain.CartItem, bool) {
	for _, item := range c.Items {
		if item.ID == itemID {
			return item, true
		}
	}
	return domain.CartItem{}, false
}

// LineTotal is price × quantity for one item.
func LineTotal(item domain.CartItem) decimal.Decimal {
	return decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
}

// Subtotal recomputes the sum of line totals for display. The server's Total
// stays authoritative.
func Subtotal(c domain.Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range c.Items {
		sum = sum.Add(LineTotal(item))
	}
	return sum.Round(2)
}

// EstimateTax is a display-only estimate on the server total. The backend
// computes the real amount at checkout.
func EstimateTax(c domain.Cart, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(c.Total).Mul(decimal.NewFromFloat(rate)).Round(2)
}

// EstimateGrandTotal is Total plus the tax estimate. Shipping is free.
func EstimateGrandTotal(c domain.Cart, rate float64) decimal.Decimal {
	return decimal.NewFromFloat(c.Total).Add(EstimateTax(c, rate)).Round(2)
}

// QuantityInRange reports whether q may be requested for item.
func QuantityInRange(item domain.CartItem, q int) bool {
	return q >= 1 && q <= item.Product.Stock
}

func CanIncrement(item domain.CartItem) bool {
	return QuantityInRange(item, item.Quantity+1)
}

func CanDecrement(item domain.CartItem) bool {
	return QuantityInRange(item, item.Quantity-1)
}

func (s State) IsInCart(productID string) bool {
	return IsInCart(s.Cart(), productID)
}

func (s State) ItemQuantity(productID string) int {
	return ItemQuantity(s.Cart(), productID)
}

func (s State) FindItem(itemID string) (domain.CartItem, bool) {
	return FindItem(s.Cart(), itemID)
}

func (s State) Subtotal() decimal.Decimal {
	return Subtotal(s.Cart())
}

func (s State) EstimateTax(rate float64) decimal.Decimal {
	return EstimateTax(s.Cart(), rate)
}
