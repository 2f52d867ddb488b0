package view

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

func TestTextCart_Render(t *testing.T) {
	tests := []struct {
		name  string
		state cart.State
	}{
		{
			name: "populated",
			state: cart.State{
				Items: []domain.CartItem{
					{ID: "i1", ProductID: "p1", Product: domain.Product{Name: "Mug"}, Quantity: 2, Price: 10},
					{ID: "i2", ProductID: "p2", Product: domain.Product{Name: "Blue Pen"}, Quantity: 1, Price: 1.1},
				},
				Total:     21.1,
				ItemCount: 3,
			},
		},
		{
			name:  "empty",
			state: cart.State{Items: []domain.CartItem{}},
		},
		{
			name: "pending",
			state: cart.State{
				Items: []domain.CartItem{
					{ID: "i1", ProductID: "p9", Product: domain.Product{Name: "A very long product name here"}, Quantity: 2, Price: 625},
				},
				Total:     1250,
				ItemCount: 2,
				Pending:   true,
				LastError: "Network error. Please check your connection.",
			},
		},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tc, err := NewTextCart(&buf, "USD", cart.DefaultTaxRate)
			require.NoError(t, err)

			require.NoError(t, tc.Render(tt.state))
			g.Assert(t, tt.name, buf.Bytes())
		})
	}
}

func TestNewTextCart_InvalidCurrency(t *testing.T) {
	_, err := NewTextCart(&bytes.Buffer{}, "NOPE", cart.DefaultTaxRate)
	require.Error(t, err)
}
