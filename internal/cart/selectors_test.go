package cart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

const (
	timeout = 2 * time.Second
	tick    = 5 * time.Millisecond
)

func TestSelectors(t *testing.T) {
	pen := domain.CartItem{ID: "itemB", ProductID: "p2", Product: domain.Product{ID: "p2", Stock: 1}, Quantity: 1, Price: 1.1}
	c := domain.Cart{Items: []domain.CartItem{itemA(2), pen}, Total: 21.1, ItemCount: 3}

	t.Run("membership", func(t *testing.T) {
		assert.True(t, IsInCart(c, "p1"))
		assert.False(t, IsInCart(c, "p3"))
		assert.Equal(t, 2, ItemQuantity(c, "p1"))
		assert.Equal(t, 0, ItemQuantity(c, "p3"))
	})

	t.Run("find item", func(t *testing.T) {
		item, ok := FindItem(c, "itemB")
		assert.True(t, ok)
		assert.Equal(t, "p2", item.ProductID)

		_, ok = FindItem(c, "missing")
		assert.False(t, ok)
	})

	t.Run("subtotal is exact", func(t *testing.T) {
		assert.Equal(t, "21.1", Subtotal(c).String())
	})

	t.Run("tax estimate", func(t *testing.T) {
		assert.Equal(t, "1.69", EstimateTax(c, DefaultTaxRate).String())
		assert.Equal(t, "22.79", EstimateGrandTotal(c, DefaultTaxRate).String())
	})

	t.Run("quantity bounds", func(t *testing.T) {
		assert.True(t, CanIncrement(itemA(4)))
		assert.False(t, CanIncrement(itemA(5)))
		assert.True(t, CanDecrement(itemA(2)))
		assert.False(t, CanDecrement(itemA(1)))
		assert.False(t, CanIncrement(pen))
	})

	t.Run("selectors do not mutate", func(t *testing.T) {
		before := c.Clone()
		_ = Subtotal(c)
		_ = EstimateTax(c, 0.1)
		assert.Equal(t, before, c)
	})
}
