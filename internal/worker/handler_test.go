package worker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

func newWatcher(t *testing.T) *CartWatcher {
	t.Helper()
	w, err := NewCartWatcher(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return w
}

func payload(t *testing.T, event domain.CartUpdatedEvent) []byte {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return data
}

func TestCartWatcherKeepsLatest(t *testing.T) {
	w := newWatcher(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	first := domain.CartUpdatedEvent{UserID: "u1", Seq: 2, Reason: domain.CartReasonAdd, Timestamp: base,
		Cart: domain.Cart{ItemCount: 2, Total: 20}}
	stale := domain.CartUpdatedEvent{UserID: "u1", Seq: 1, Reason: domain.CartReasonLoad, Timestamp: base.Add(-time.Second),
		Cart: domain.Cart{ItemCount: 0}}

	require.NoError(t, w.Handle(ctx, "u1", payload(t, first)))
	require.NoError(t, w.Handle(ctx, "u1", payload(t, stale)))

	got, ok := w.Latest("u1")
	require.True(t, ok)
	assert.Equal(t, uint64(2), got.Seq)
	assert.Equal(t, 2, got.Cart.ItemCount)

	// A restarted client begins again at seq 1 with a later timestamp.
	restarted := domain.CartUpdatedEvent{UserID: "u1", Seq: 1, Reason: domain.CartReasonClear, Timestamp: base.Add(time.Minute)}
	require.NoError(t, w.Handle(ctx, "u1", payload(t, restarted)))
	got, _ = w.Latest("u1")
	assert.Equal(t, domain.CartReasonClear, got.Reason)
}

func TestCartWatcherGuestKeyAndMalformed(t *testing.T) {
	w := newWatcher(t)
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, "guest", payload(t, domain.CartUpdatedEvent{Seq: 1})))
	_, ok := w.Latest("guest")
	assert.True(t, ok)

	assert.NoError(t, w.Handle(ctx, "u9", []byte("{not json")))
	_, ok = w.Latest("u9")
	assert.False(t, ok)
}

func TestCartWatcherHTTP(t *testing.T) {
	w := newWatcher(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	require.NoError(t, w.Handle(ctx, "a", payload(t, domain.CartUpdatedEvent{UserID: "a", Seq: 1, Timestamp: base,
		Cart: domain.Cart{ItemCount: 1, Total: 9.5}})))
	require.NoError(t, w.Handle(ctx, "b", payload(t, domain.CartUpdatedEvent{UserID: "b", Seq: 1, Timestamp: base.Add(time.Second)})))
	assert.Equal(t, 1, w.activeCarts())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /carts", w.HandleList)
	mux.HandleFunc("GET /carts/{user}", w.HandleGet)

	t.Run("list newest first", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var rows []CartSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "b", rows[0].UserID)
		assert.Equal(t, "a", rows[1].UserID)
		assert.InDelta(t, 9.5, rows[1].Total, 0.001)
	})

	t.Run("get one", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts/a", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var event domain.CartUpdatedEvent
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&event))
		assert.Equal(t, 1, event.Cart.ItemCount)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/carts/nobody", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
