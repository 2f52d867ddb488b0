package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

func writeEnvelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": status < 300, "data": data})
}

func TestStore(t *testing.T) {
	mug := domain.Product{ID: "p1", Name: "Mug", Price: 10, Stock: 5, Category: "Home & Garden"}
	var lastQuery string

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		lastQuery = r.URL.RawQuery
		writeEnvelope(w, http.StatusOK, domain.ProductPage{
			Products:   []domain.Product{mug},
			Pagination: domain.Pagination{Page: 2, Limit: 1, Total: 3, TotalPages: 3},
		})
	})
	mux.HandleFunc("GET /products/featured", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []domain.Product{mug})
	})
	mux.HandleFunc("GET /products/search", func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, []domain.Product{})
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeEnvelope(w, http.StatusOK, mug)
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	store := NewStore(api.NewClient(server.URL).Products, nil)
	ctx := context.Background()

	t.Run("fetch applies filters and pagination", func(t *testing.T) {
		store.SetFilters(domain.ProductFilters{Category: "Home & Garden", SortBy: domain.SortPriceAsc})
		require.NoError(t, store.Fetch(ctx, 2, 1))

		state := store.Snapshot()
		assert.Len(t, state.Products, 1)
		assert.Equal(t, 3, state.Pagination.TotalPages)
		assert.Contains(t, lastQuery, "category=Home+%26+Garden")
		assert.Contains(t, lastQuery, "sortBy=price-asc")
		assert.False(t, state.Pending)
	})

	t.Run("clear filters", func(t *testing.T) {
		store.ClearFilters()
		require.NoError(t, store.Fetch(ctx, 0, 0))
		assert.NotContains(t, lastQuery, "category")
		assert.Contains(t, lastQuery, "limit=12")
	})

	t.Run("get selects product", func(t *testing.T) {
		require.NoError(t, store.Get(ctx, "p1"))
		state := store.Snapshot()
		require.NotNil(t, state.Selected)
		assert.Equal(t, "Mug", state.Selected.Name)
	})

	t.Run("get failure keeps selection", func(t *testing.T) {
		require.Error(t, store.Get(ctx, "missing"))
		state := store.Snapshot()
		require.NotNil(t, state.Selected)
		assert.Equal(t, api.MsgNotFound, state.LastError)
	})

	t.Run("featured", func(t *testing.T) {
		require.NoError(t, store.Featured(ctx))
		assert.Len(t, store.Snapshot().Featured, 1)
		assert.Empty(t, store.Snapshot().LastError)
	})

	t.Run("search replaces listing", func(t *testing.T) {
		require.NoError(t, store.Search(ctx, "nothing"))
		state := store.Snapshot()
		assert.Empty(t, state.Products)
		assert.Equal(t, "nothing", state.Filters.Search)
	})
}
