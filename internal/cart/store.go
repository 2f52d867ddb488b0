// Package cart holds the client-side cart state container. The remote cart is
// authoritative: every successful mutation replaces the local snapshot with
// the server's response wholesale, and the local mirror only seeds the view
// before the first remote load.
package cart

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
	ErrQuantityOutOfRange = errors.New("quantity out of range")
	ErrItemNotFound       = errors.New("item not in cart")
)

// Remote is the cart endpoint set. *api.CartService satisfies it.
type Remote interface {
	Get(ctx context.Context) (domain.Cart, error)
	AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error)
	UpdateItem(ctx context.Context, itemID string, quantity int) (domain.Cart, error)
	RemoveItem(ctx context.Context, itemID string) (domain.Cart, error)
	Clear(ctx context.Context) error
	Sync(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

// State is an immutable snapshot handed to readers and subscribers.
type State struct {
	Items     []domain.CartItem
	Total     float64
	ItemCount int
	// Pending is true while at least one request is in flight.
	Pending   bool
	LastError string
	// Version increases with every change, so observers can drop stale
	// notifications.
	Version uint64
	// Reason names the operation that produced this snapshot.
	Reason domain.CartUpdateReason
	// Seq is the request sequence of the last applied response.
	Seq uint64
}

func (s State) Cart() domain.Cart {
	return domain.Cart{Items: s.Items, Total: s.Total, ItemCount: s.ItemCount}
}

// Listener is called after every state change, in version order. It runs on
// the goroutine that caused the change and must not call back into the Store.
type Listener func(State)

type Store struct {
	remote  Remote
	mirror  *Mirror
	logger  *slog.Logger
	fencing bool
	metrics *storeMetrics

	mu           sync.Mutex
	cart         domain.Cart
	inFlight     int
	lastError    string
	version      uint64
	reason       domain.CartUpdateReason
	nextSeq      uint64
	appliedSeq   uint64
	remoteLoaded bool

	listenerMu   sync.Mutex
	listeners    map[int]Listener
	nextListener int
	notified     uint64
}

type Option func(*Store)

func WithMirror(m *Mirror) Option {
	return func(s *Store) {
		s.mirror = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithoutFencing applies every response as it completes, even when a newer
// request has already been applied.
func WithoutFencing() Option {
	return func(s *Store) {
		s.fencing = false
	}
}

func NewStore(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:    remote,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		fencing:   true,
		cart:      domain.EmptyCart(),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics = newStoreMetrics(s.logger)
	return s
}

// Load fetches the remote cart and replaces the snapshot with it.
func (s *Store) Load(ctx context.Context) error {
	return s.run(ctx, domain.CartReasonLoad, func(ctx context.Context) (domain.Cart, error) {
		return s.remote.Get(ctx)
	})
}

func (s *Store) Add(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	return s.run(ctx, domain.CartReasonAdd, func(ctx context.Context) (domain.Cart, error) {
		return s.remote.AddItem(ctx, productID, quantity)
	})
}

// UpdateQuantity sets an item's quantity. Quantities outside [1, stock] are
// rejected locally and no request is sent.
func (s *Store) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	s.mu.Lock()
	item, ok := FindItem(s.cart, itemID)
	s.mu.Unlock()
	if !ok {
		return ErrItemNotFound
	}
	if !QuantityInRange(item, quantity) {
		s.logger.Debug("ignoring out of range quantity", "item_id", itemID, "quantity", quantity, "stock", item.Product.Stock)
		return ErrQuantityOutOfRange
	}
	return s.run(ctx, domain.CartReasonUpdate, func(ctx context.Context) (domain.Cart, error) {
		return s.remote.UpdateItem(ctx, itemID, quantity)
	})
}

func (s *Store) Remove(ctx context.Context, itemID string) error {
	return s.run(ctx, domain.CartReasonRemove, func(ctx context.Context) (domain.Cart, error) {
		return s.remote.RemoveItem(ctx, itemID)
	})
}

// Clear empties the remote cart, then resets the snapshot and erases the
// mirror.
func (s *Store) Clear(ctx context.Context) error {
	return s.run(ctx, domain.CartReasonClear, func(ctx context.Context) (domain.Cart, error) {
		if err := s.remote.Clear(ctx); err != nil {
			return domain.Cart{}, err
		}
		return domain.EmptyCart(), nil
	})
}

// Sync pushes the mirrored cart to the server, typically right after sign-in,
// and applies the merged result.
func (s *Store) Sync(ctx context.Context) error {
	local := domain.EmptyCart()
	if s.mirror != nil {
		local = s.mirror.Read(ctx)
	}
	return s.run(ctx, domain.CartReasonSync, func(ctx context.Context) (domain.Cart, error) {
		return s.remote.Sync(ctx, local)
	})
}

// Hydrate seeds the snapshot from the mirror. It never overrides a cart that
// already came from the server.
func (s *Store) Hydrate(ctx context.Context) {
	if s.mirror == nil {
		return
	}
	c := s.mirror.Read(ctx)

	s.mu.Lock()
	if s.remoteLoaded {
		s.mu.Unlock()
		return
	}
	s.cart = c
	s.version++
	s.reason = domain.CartReasonLoad
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) ClearError() {
	s.mu.Lock()
	if s.lastError == "" {
		s.mu.Unlock()
		return
	}
	s.lastError = ""
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
}

func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn for state changes and returns a function that
// removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Store) run(ctx context.Context, reason domain.CartUpdateReason, call func(context.Context) (domain.Cart, error)) error {
	start := time.Now()
	seq := s.begin()

	c, err := call(ctx)
	applied := s.finish(ctx, seq, reason, c, err)

	s.metrics.record(ctx, reason, err, applied, time.Since(start))
	return err
}

func (s *Store) begin() uint64 {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.inFlight++
	s.lastError = ""
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return seq
}

// finish settles request seq. It reports whether a successful response was
// applied to the snapshot.
func (s *Store) finish(ctx context.Context, seq uint64, reason domain.CartUpdateReason, c domain.Cart, callErr error) bool {
	s.mu.Lock()
	s.inFlight--
	s.version++

	applied := false
	switch {
	case callErr != nil:
		s.lastError = api.Message(callErr)
		s.logger.Error("cart request failed", "reason", reason, "seq", seq, "error", callErr)
	case s.fencing && seq < s.appliedSeq:
		s.logger.Warn("dropping stale cart response", "reason", reason, "seq", seq, "applied_seq", s.appliedSeq)
	default:
		if c.Items == nil {
			c.Items = []domain.CartItem{}
		}
		s.cart = c
		s.appliedSeq = seq
		s.reason = reason
		s.remoteLoaded = true
		applied = true
		s.persistLocked(ctx, reason)
	}

	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return applied
}

// persistLocked mirrors the applied cart. Mirror failures never reach the
// caller.
func (s *Store) persistLocked(ctx context.Context, reason domain.CartUpdateReason) {
	if s.mirror == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	var err error
	if reason == domain.CartReasonClear {
		err = s.mirror.Erase(ctx)
	} else {
		err = s.mirror.Write(ctx, s.cart)
	}
	if err != nil {
		s.logger.Warn("failed to update cart mirror", "reason", reason, "error", err)
	}
}

func (s *Store) snapshotLocked() State {
	c := s.cart.Clone()
	return State{
		Items:     c.Items,
		Total:     c.Total,
		ItemCount: c.ItemCount,
		Pending:   s.inFlight > 0,
		LastError: s.lastError,
		Version:   s.version,
		Reason:    s.reason,
		Seq:       s.appliedSeq,
	}
}

func (s *Store) notify(snap State) {
	s.listenerMu.Lock()
	defer s.listenerMu.Unlock()

	if snap.Version <= s.notified {
		return
	}
	s.notified = snap.Version
	for _, fn := range s.listeners {
		fn(snap)
	}
}

type storeMetrics struct {
	ops      metric.Int64Counter
	duration metric.Float64Histogram
}

func newStoreMetrics(logger *slog.Logger) *storeMetrics {
	meter := otel.Meter("storefront/cart")
	m := &storeMetrics{}

	var err error
	m.ops, err = meter.Int64Counter("storefront.cart.operations",
		metric.WithDescription("Cart operations by reason and outcome"))
	if err != nil {
		logger.Warn("failed to create cart operations counter", "error", err)
	}
	m.duration, err = meter.Float64Histogram("storefront.cart.operation.duration",
		metric.WithDescription("Cart operation latency"),
		metric.WithUnit("s"))
	if err != nil {
		logger.Warn("failed to create cart duration histogram", "error", err)
	}
	return m
}

func (m *storeMetrics) record(ctx context.Context, reason domain.CartUpdateReason, err error, applied bool, elapsed time.Duration) {
	outcome := "applied"
	switch {
	case err != nil:
		outcome = "error"
	case !applied:
		outcome = "stale"
	}
	attrs := metric.WithAttributes(
		attribute.String("reason", string(reason)),
		attribute.String("outcome", outcome),
	)
	if m.ops != nil {
		m.ops.Add(ctx, 1, attrs)
	}
	if m.duration != nil {
		m.duration.Record(ctx, elapsed.Seconds(), attrs)
	}
}
