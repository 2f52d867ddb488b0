package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type CartService struct {
	client *Client
}

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (s *CartService) Get(ctx context.Context) (domain.Cart, error) {
	cart, err := do[domain.Cart](ctx, s.client, "cart.get", http.MethodGet, "/cart", nil)
	return normalizeCart(cart), err
}

func (s *CartService) AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	cart, err := do[domain.Cart](ctx, s.client, "cart.add", http.MethodPost, "/cart/items",
		addItemRequest{ProductID: productID, Quantity: quantity})
	return normalizeCart(cart), err
}

func (s *CartService) UpdateItem(ctx context.Context, itemID string, quantity int) (domain.Cart, error) {
	cart, err := do[domain.Cart](ctx, s.client, "cart.update", http.MethodPut, "/cart/items/"+url.PathEscape(itemID),
		updateItemRequest{Quantity: quantity})
	return normalizeCart(cart), err
}

func (s *CartService) RemoveItem(ctx context.Context, itemID string) (domain.Cart, error) {
	cart, err := do[domain.Cart](ctx, s.client, "cart.remove", http.MethodDelete, "/cart/items/"+url.PathEscape(itemID), nil)
	return normalizeCart(cart), err
}

func (s *CartService) Clear(ctx context.Context) error {
	_, err := do[json.RawMessage](ctx, s.client, "cart.clear", http.MethodDelete, "/cart", nil)
	return err
}

// Sync pushes a locally held cart (e.g. a guest cart) and returns the
// server's merged result.
func (s *CartService) Sync(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	synced, err := do[domain.Cart](ctx, s.client, "cart.sync", http.MethodPost, "/cart/sync", normalizeCart(cart))
	return normalizeCart(synced), err
}

func normalizeCart(c domain.Cart) domain.Cart {
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return c
}
