// Package catalog holds the product listing state: the current page, the
// active filters and the product being viewed.
package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// Products is the product endpoint set. *api.ProductService satisfies it.
type Products interface {
	List(ctx context.Context, filters domain.ProductFilters, page, limit int) (domain.ProductPage, error)
	Get(ctx context.Context, id string) (domain.Product, error)
	Featured(ctx context.Context) ([]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)
}

type State struct {
	Products   []domain.Product
	Featured   []domain.Product
	Selected   *domain.Product
	Filters    domain.ProductFilters
	Pagination domain.Pagination
	Pending    bool
	LastError  string
}

type Store struct {
	products Products
	logger   *slog.Logger

	mu       sync.Mutex
	state    State
	inFlight int
}

func NewStore(products Products, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		products: products,
		logger:   logger,
		state: State{
			Products:   []domain.Product{},
			Featured:   []domain.Product{},
			Pagination: domain.Pagination{Page: domain.DefaultPage, Limit: domain.DefaultPageSize},
		},
	}
}

// Fetch loads one page using the stored filters.
func (s *Store) Fetch(ctx context.Context, page, limit int) error {
	s.begin()
	s.mu.Lock()
	filters := s.state.Filters
	s.mu.Unlock()

	result, err := s.products.List(ctx, filters, page, limit)
	s.end(err, func(st *State) {
		st.Products = result.Products
		st.Pagination = result.Pagination
	})
	return err
}

func (s *Store) Get(ctx context.Context, id string) error {
	s.begin()
	p, err := s.products.Get(ctx, id)
	s.end(err, func(st *State) {
		st.Selected = &p
	})
	return err
}

func (s *Store) Featured(ctx context.Context) error {
	s.begin()
	products, err := s.products.Featured(ctx)
	s.end(err, func(st *State) {
		if products == nil {
			products = []domain.Product{}
		}
		st.Featured = products
	})
	return err
}

// Search replaces the listing with the matches for query. Pagination is
// reset because search results are not paged.
func (s *Store) Search(ctx context.Context, query string) error {
	s.begin()
	products, err := s.products.Search(ctx, query)
	s.end(err, func(st *State) {
		if products == nil {
			products = []domain.Product{}
		}
		st.Products = products
		st.Filters.Search = query
		st.Pagination = domain.Pagination{Page: domain.DefaultPage, Limit: len(products), Total: len(products), TotalPages: 1}
	})
	return err
}

func (s *Store) SetFilters(f domain.ProductFilters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Filters = f
	s.state.Pagination.Page = domain.DefaultPage
}

func (s *Store) ClearFilters() {
	s.SetFilters(domain.ProductFilters{})
}

func (s *Store) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Selected = nil
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	st.Products = append([]domain.Product(nil), s.state.Products...)
	st.Featured = append([]domain.Product(nil), s.state.Featured...)
	if s.state.Selected != nil {
		p := *s.state.Selected
		st.Selected = &p
	}
	return st
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.state.Pending = true
	s.state.LastError = ""
}

func (s *Store) end(err error, apply func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.state.Pending = s.inFlight > 0
	if err != nil {
		s.state.LastError = api.Message(err)
		s.logger.Error("catalog request failed", "error", err)
		return
	}
	apply(&s.state)
}
