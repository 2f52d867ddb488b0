package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type OrderService struct {
	client *Client
}

func (s *OrderService) Create(ctx context.Context, form domain.CheckoutForm) (domain.Order, error) {
	return do[domain.Order](ctx, s.client, "orders.create", http.MethodPost, "/orders", form)
}

func (s *OrderService) List(ctx context.Context) ([]domain.Order, error) {
	orders, err := do[[]domain.Order](ctx, s.client, "orders.list", http.MethodGet, "/orders", nil)
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, err
}

func (s *OrderService) Get(ctx context.Context, id string) (domain.Order, error) {
	return do[domain.Order](ctx, s.client, "orders.get", http.MethodGet, "/orders/"+url.PathEscape(id), nil)
}

func (s *OrderService) Cancel(ctx context.Context, id string) (domain.Order, error) {
	return do[domain.Order](ctx, s.client, "orders.cancel", http.MethodPut, "/orders/"+url.PathEscape(id)+"/cancel", nil)
}

func (s *OrderService) History(ctx context.Context, page, limit int) (domain.OrderHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	path := fmt.Sprintf("/orders/history?page=%d&limit=%d", page, limit)
	return do[domain.OrderHistory](ctx, s.client, "orders.history", http.MethodGet, path, nil)
}
