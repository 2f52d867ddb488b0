package fakeapi

import (
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

const recommendationLimit = 4

// DefaultProducts is the seeded catalog.
func DefaultProducts() []domain.Product {
	created := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)
	p := func(id, name, category string, price float64, stock int, rating float64, featured bool) domain.Product {
		return domain.Product{
			ID:          id,
			Name:        name,
			Description: name + " from the storefront catalog",
			Price:       price,
			Category:    category,
			Image:       "/images/" + id + ".jpg",
			Stock:       stock,
			Rating:      rating,
			ReviewCount: int(rating * 10),
			Featured:    featured,
			CreatedAt:   created,
			UpdatedAt:   created,
		}
	}
	return []domain.Product{
		p("p1", "Wireless Headphones", "Electronics", 99.99, 25, 4.5, true),
		p("p2", "Mechanical Keyboard", "Electronics", 149.5, 10, 4.7, true),
		p("p3", "Cotton T-Shirt", "Clothing", 19.99, 100, 4.1, false),
		p("p4", "Rain Jacket", "Clothing", 89, 15, 4.3, false),
		p("p5", "The Go Programming Language", "Books", 39.95, 30, 4.8, true),
		p("p6", "Ceramic Planter", "Home & Garden", 24.5, 40, 4, false),
		p("p7", "Yoga Mat", "Sports", 29.99, 0, 4.2, false),
		p("p8", "Building Blocks Set", "Toys", 59.99, 12, 4.6, false),
	}
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := domain.ProductFilters{
		Category: q.Get("category"),
		Search:   q.Get("search"),
		SortBy:   domain.SortOrder(q.Get("sortBy")),
	}
	filters.MinPrice, _ = strconv.ParseFloat(q.Get("minPrice"), 64)
	filters.MaxPrice, _ = strconv.ParseFloat(q.Get("maxPrice"), 64)

	page := positive(q.Get("page"), domain.DefaultPage)
	limit := positive(q.Get("limit"), domain.DefaultPageSize)

	found := s.filter(func(p domain.Product) bool { return matches(p, filters) })
	sortProducts(found, filters.SortBy)

	total := len(found)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)

	s.writeJSON(w, http.StatusOK, domain.ProductPage{
		Products: found[start:end],
		Pagination: domain.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	p, ok := s.products[id]
	var product domain.Product
	if ok {
		product = *p
	}
	s.mu.Unlock()

	if !ok {
		s.writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	s.writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleFeatured(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.filter(func(p domain.Product) bool { return p.Featured }))
}

func (s *Server) handleByCategory(w http.ResponseWriter, r *http.Request) {
	category := r.PathValue("category")
	s.writeJSON(w, http.StatusOK, s.filter(func(p domain.Product) bool {
		return strings.EqualFold(p.Category, category)
	}))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		s.writeError(w, http.StatusBadRequest, "missing search query")
		return
	}
	s.writeJSON(w, http.StatusOK, s.filter(func(p domain.Product) bool {
		return matches(p, domain.ProductFilters{Search: query})
	}))
}

// handleRecommendations returns products from the same category as id, or
// the best rated products when no id is given.
func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var recs []domain.Product
	if id == "" {
		recs = s.filter(func(domain.Product) bool { return true })
	} else {
		s.mu.Lock()
		base, ok := s.products[id]
		var category string
		if ok {
			category = base.Category
		}
		s.mu.Unlock()
		if !ok {
			s.writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		recs = s.filter(func(p domain.Product) bool { return p.ID != id && p.Category == category })
	}

	sortProducts(recs, domain.SortRating)
	if len(recs) > recommendationLimit {
		recs = recs[:recommendationLimit]
	}
	s.writeJSON(w, http.StatusOK, recs)
}

// filter returns copies of the catalog products accepted by keep, in
// catalog order.
func (s *Server) filter(keep func(domain.Product) bool) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Product{}
	for _, id := range s.catalog {
		p := *s.products[id]
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Product, f domain.ProductFilters) bool {
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice > 0 && p.Price < f.MinPrice {
		return false
	}
	if f.MaxPrice > 0 && p.Price > f.MaxPrice {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.Description), needle) {
			return false
		}
	}
	return true
}

func sortProducts(products []domain.Product, order domain.SortOrder) {
	var less func(a, b domain.Product) bool
	switch order {
	case domain.SortPriceAsc:
		less = func(a, b domain.Product) bool { return a.Price < b.Price }
	case domain.SortPriceDesc:
		less = func(a, b domain.Product) bool { return a.Price > b.Price }
	case domain.SortName:
		less = func(a, b domain.Product) bool { return a.Name < b.Name }
	case domain.SortRating:
		less = func(a, b domain.Product) bool { return a.Rating > b.Rating }
	default:
		return
	}
	sort.SliceStable(products, func(i, j int) bool { return less(products[i], products[j]) })
}

func positive(raw string, fallback int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
