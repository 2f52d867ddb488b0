package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

// CartWatcher keeps the most recent cart.updated event per user. Events keyed
// to the same user arrive in partition order; an event whose seq is not newer
// than the stored one is only dropped when it comes from the same client run,
// identified by an equal or earlier timestamp.
type CartWatcher struct {
	logger *slog.Logger

	mu     sync.RWMutex
	latest map[string]domain.CartUpdatedEvent

	events  metric.Int64Counter
	value   metric.Float64Histogram
	dropped metric.Int64Counter
}

// CartSummary is one row of the watcher's listing.
type CartSummary struct {
	UserID    string                  `json:"user_id"`
	ItemCount int                     `json:"item_count"`
	Total     float64                 `json:"total"`
	Reason    domain.CartUpdateReason `json:"reason"`
	Seq       uint64                  `json:"seq"`
	UpdatedAt time.Time               `json:"updated_at"`
}

func NewCartWatcher(logger *slog.Logger) (*CartWatcher, error) {
	meter := otel.Meter("storefront/cartwatch")

	events, err := meter.Int64Counter("storefront.cartwatch.events",
		metric.WithDescription("Cart updated events consumed"),
	)
	if err != nil {
		return nil, err
	}
	value, err := meter.Float64Histogram("storefront.cartwatch.cart.total",
		metric.WithDescription("Cart total carried by consumed events"),
		metric.WithUnit("{USD}"),
	)
	if err != nil {
		return nil, err
	}
	dropped, err := meter.Int64Counter("storefront.cartwatch.events.dropped",
		metric.WithDescription("Cart updated events discarded as stale or malformed"),
	)
	if err != nil {
		return nil, err
	}

	w := &CartWatcher{
		logger:  logger,
		latest:  make(map[string]domain.CartUpdatedEvent),
		events:  events,
		value:   value,
		dropped: dropped,
	}

	_, err = meter.Int64ObservableGauge("storefront.cartwatch.active_carts",
		metric.WithDescription("Users whose latest cart is not empty"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(w.activeCarts()))
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// Handle is a messaging.Handler. Malformed payloads are logged and skipped so
// one bad message cannot wedge the partition.
func (w *CartWatcher) Handle(ctx context.Context, key string, payload []byte) error {
	var event domain.CartUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		w.logger.Error("failed to unmarshal cart updated event", "error", err, "key", key)
		w.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", "malformed")))
		return nil
	}

	user := event.UserID
	if user == "" {
		user = key
	}

	w.mu.Lock()
	prev, ok := w.latest[user]
	if ok && event.Seq <= prev.Seq && !event.Timestamp.After(prev.Timestamp) {
		w.mu.Unlock()
		w.logger.Debug("dropping stale cart event", "user_id", user, "seq", event.Seq, "latest_seq", prev.Seq)
		w.dropped.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", "stale")))
		return nil
	}
	w.latest[user] = event
	w.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("reason", string(event.Reason)))
	w.events.Add(ctx, 1, attrs)
	w.value.Record(ctx, event.Cart.Total, attrs)

	w.logger.Info("cart updated",
		"user_id", user,
		"reason", event.Reason,
		"seq", event.Seq,
		"items", event.Cart.ItemCount,
		"total", event.Cart.Total,
	)
	return nil
}

func (w *CartWatcher) Latest(userID string) (domain.CartUpdatedEvent, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	event, ok := w.latest[userID]
	return event, ok
}

// Summaries lists every known cart, most recently updated first.
func (w *CartWatcher) Summaries() []CartSummary {
	w.mu.RLock()
	out := make([]CartSummary, 0, len(w.latest))
	for user, event := range w.latest {
		out = append(out, CartSummary{
			UserID:    user,
			ItemCount: event.Cart.ItemCount,
			Total:     event.Cart.Total,
			Reason:    event.Reason,
			Seq:       event.Seq,
			UpdatedAt: event.Timestamp,
		})
	}
	w.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out
}

func (w *CartWatcher) activeCarts() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	n := 0
	for _, event := range w.latest {
		if event.Cart.ItemCount > 0 {
			n++
		}
	}
	return n
}

func (w *CartWatcher) HandleList(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, w.Summaries())
}

func (w *CartWatcher) HandleGet(rw http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	event, ok := w.Latest(user)
	if !ok {
		http.Error(rw, "cart not found", http.StatusNotFound)
		return
	}
	writeJSON(rw, http.StatusOK, event)
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}
