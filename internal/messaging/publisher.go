package messaging

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

const publishTimeout = 5 * time.Second

// EventPublisher is satisfied by *Producer.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// CartPublisher is a view component that turns applied cart snapshots into
// cart.updated events. Snapshots that did not apply a new server response
// (pending flips, error changes, hydration) are not published.
type CartPublisher struct {
	producer EventPublisher
	userID   func() string
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	lastSeq uint64
}

// NewCartPublisher publishes under the key returned by userID, or "guest"
// when it returns "".
func NewCartPublisher(p EventPublisher, userID func() string, logger *slog.Logger) *CartPublisher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if userID == nil {
		userID = func() string { return "" }
	}
	return &CartPublisher{producer: p, userID: userID, logger: logger, now: time.Now}
}

func (p *CartPublisher) Render(state cart.State) error {
	p.mu.Lock()
	if state.Seq == 0 || state.Seq <= p.lastSeq {
		p.mu.Unlock()
		return nil
	}
	p.lastSeq = state.Seq
	p.mu.Unlock()

	user := p.userID()
	key := user
	if key == "" {
		key = "guest"
	}
	event := domain.CartUpdatedEvent{
		UserID:    user,
		Cart:      state.Cart(),
		Reason:    state.Reason,
		Seq:       state.Seq,
		Timestamp: p.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := p.producer.Publish(ctx, key, event); err != nil {
		p.logger.Error("failed to publish cart updated event", "error", err, "seq", state.Seq, "reason", state.Reason)
		return err
	}
	p.logger.Debug("cart updated event published", "seq", state.Seq, "reason", state.Reason, "items", len(state.Items))
	return nil
}
