package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type ProductService struct {
	client *Client
}

// List returns one page of products. Zero-valued filters are not sent.
func (s *ProductService) List(ctx context.Context, filters domain.ProductFilters, page, limit int) (domain.ProductPage, error) {
	if page < 1 {
		page = domain.DefaultPage
	}
	if limit < 1 {
		limit = domain.DefaultPageSize
	}

	params := url.Values{}
	if filters.Category != "" {
		params.Set("category", filters.Category)
	}
	if filters.MinPrice > 0 {
		params.Set("minPrice", strconv.FormatFloat(filters.MinPrice, 'f', -1, 64))
	}
	if filters.MaxPrice > 0 {
		params.Set("maxPrice", strconv.FormatFloat(filters.MaxPrice, 'f', -1, 64))
	}
	if filters.Search != "" {
		params.Set("search", filters.Search)
	}
	if filters.SortBy != "" {
		params.Set("sortBy", string(filters.SortBy))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	result, err := do[domain.ProductPage](ctx, s.client, "products.list", http.MethodGet, "/products?"+params.Encode(), nil)
	if result.Products == nil {
		result.Products = []domain.Product{}
	}
	return result, err
}

func (s *ProductService) Get(ctx context.Context, id string) (domain.Product, error) {
	return do[domain.Product](ctx, s.client, "products.get", http.MethodGet, "/products/"+url.PathEscape(id), nil)
}

func (s *ProductService) Featured(ctx context.Context) ([]domain.Product, error) {
	return do[[]domain.Product](ctx, s.client, "products.featured", http.MethodGet, "/products/featured", nil)
}

func (s *ProductService) ByCategory(ctx context.Context, category string) ([]domain.Product, error) {
	return do[[]domain.Product](ctx, s.client, "products.category", http.MethodGet, "/products/category/"+url.PathEscape(category), nil)
}

func (s *ProductService) Search(ctx context.Context, query string) ([]domain.Product, error) {
	return do[[]domain.Product](ctx, s.client, "products.search", http.MethodGet, "/products/search?q="+url.QueryEscape(query), nil)
}

// Recommendations returns general recommendations when productID is empty.
func (s *ProductService) Recommendations(ctx context.Context, productID string) ([]domain.Product, error) {
	path := "/products/recommendations"
	if productID != "" {
		path += "/" + url.PathEscape(productID)
	}
	return do[[]domain.Product](ctx, s.client, "products.recommendations", http.MethodGet, path, nil)
}
