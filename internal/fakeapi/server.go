// Package fakeapi is an in-memory implementation of the storefront REST API.
// It backs local development and the end-to-end tests of the client
// containers.
package fakeapi

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/joao-fontenele/storefront-sync/internal/checkout"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/telemetry"
)

const guestOwner = "guest"

type account struct {
	user         domain.User
	passwordHash []byte
}

type Server struct {
	logger     *slog.Logger
	secret     []byte
	tokenTTL   time.Duration
	now        func() time.Time
	cost       int
	validator  *checkout.Validator
	latency    time.Duration
	seedSource []domain.Product

	mu       sync.Mutex
	products map[string]*domain.Product
	catalog  []string
	accounts map[string]*account // by email
	users    map[string]*account // by id
	carts    map[string]*domain.Cart
	orders   map[string]*domain.Order
	byUser   map[string][]string
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithSecret sets the HMAC key tokens are signed with.
func WithSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// WithPasswordCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithPasswordCost(cost int) Option {
	return func(s *Server) {
		s.cost = cost
	}
}

// WithProducts replaces the seeded catalog.
func WithProducts(products []domain.Product) Option {
	return func(s *Server) {
		s.seedSource = products
	}
}

// WithLatency delays every response, which makes overlapping requests easy
// to reproduce by hand.
func WithLatency(d time.Duration) Option {
	return func(s *Server) {
		s.latency = d
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		secret:     []byte("storefront-dev-secret"),
		tokenTTL:   24 * time.Hour,
		now:        time.Now,
		cost:       bcrypt.DefaultCost,
		validator:  checkout.NewValidator(),
		seedSource: DefaultProducts(),
		products:   make(map[string]*domain.Product),
		accounts:   make(map[string]*account),
		users:      make(map[string]*account),
		carts:      make(map[string]*domain.Cart),
		orders:     make(map[string]*domain.Order),
		byUser:     make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	for _, p := range s.seedSource {
		p := p
		s.products[p.ID] = &p
		s.catalog = append(s.catalog, p.ID)
	}
	return s
}

// Routes returns the API handler. Paths are relative to the API base URL.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	route := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(s.delayed(h)))
	}

	route("GET /products", s.handleListProducts)
	route("GET /products/featured", s.handleFeatured)
	route("GET /products/search", s.handleSearch)
	route("GET /products/category/{category}", s.handleByCategory)
	route("GET /products/recommendations", s.handleRecommendations)
	route("GET /products/recommendations/{id}", s.handleRecommendations)
	route("GET /products/{id}", s.handleGetProduct)

	route("GET /cart", s.handleGetCart)
	route("POST /cart/items", s.handleAddItem)
	route("PUT /cart/items/{id}", s.handleUpdateItem)
	route("DELETE /cart/items/{id}", s.handleRemoveItem)
	route("DELETE /cart", s.handleClearCart)
	route("POST /cart/sync", s.handleSyncCart)

	route("POST /orders", s.requireUser(s.handleCreateOrder))
	route("GET /orders", s.requireUser(s.handleListOrders))
	route("GET /orders/history", s.requireUser(s.handleOrderHistory))
	route("GET /orders/{id}", s.requireUser(s.handleGetOrder))
	route("PUT /orders/{id}/cancel", s.requireUser(s.handleCancelOrder))
	route("PUT /orders/{id}/status", s.handleUpdateOrderStatus)

	route("POST /auth/register", s.handleRegister)
	route("POST /auth/login", s.handleLogin)
	route("POST /auth/logout", s.handleLogout)
	route("GET /auth/me", s.requireUser(s.handleMe))
	route("POST /auth/refresh", s.requireUser(s.handleRefresh))

	route("GET /health", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func (s *Server) delayed(h http.HandlerFunc) http.HandlerFunc {
	if s.latency <= 0 {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(s.latency):
		case <-r.Context().Done():
			return
		}
		h(w, r)
	}
}

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Message: message}); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func bearer(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}
