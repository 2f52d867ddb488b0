package orders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

var ErrNotCancellable = errors.New("order can no longer be cancelled")

// Remote is the order endpoint set. *api.OrderService satisfies it.
type Remote interface {
	Create(ctx context.Context, form domain.CheckoutForm) (domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	Get(ctx context.Context, id string) (domain.Order, error)
	Cancel(ctx context.Context, id string) (domain.Order, error)
	History(ctx context.Context, page, limit int) (domain.OrderHistory, error)
}

type State struct {
	Orders       []domain.Order
	Selected     *domain.Order
	HistoryTotal int
	Pending      bool
	LastError    string
}

// Store is the order-side counterpart of cart.Store: server responses are
// applied verbatim and failures end up in LastError.
type Store struct {
	remote Remote
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	inFlight int
}

func NewStore(remote Remote, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{
		remote: remote,
		logger: logger,
		state:  State{Orders: []domain.Order{}},
	}
}

// Create places an order. The new order goes to the front of the list and
// becomes the selection.
func (s *Store) Create(ctx context.Context, form domain.CheckoutForm) (domain.Order, error) {
	s.begin()
	order, err := s.remote.Create(ctx, form)
	s.end("create", err, func(st *State) {
		st.Orders = append([]domain.Order{order}, st.Orders...)
		st.Selected = &order
	})
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Info("order created", "order_id", order.ID, "total", order.Total)
	return order, nil
}

func (s *Store) List(ctx context.Context) error {
	s.begin()
	orders, err := s.remote.List(ctx)
	s.end("list", err, func(st *State) {
		st.Orders = append([]domain.Order{}, orders...)
	})
	return err
}

func (s *Store) Get(ctx context.Context, id string) error {
	s.begin()
	order, err := s.remote.Get(ctx, id)
	s.end("get", err, func(st *State) {
		st.Selected = &order
	})
	return err
}

// Cancel refuses orders whose known status is past processing without
// contacting the server.
func (s *Store) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	known, ok := s.findLocked(id)
	s.mu.Unlock()
	if ok && !known.Status.Cancellable() {
		return fmt.Errorf("cancel order %s in status %s: %w", id, known.Status, ErrNotCancellable)
	}

	s.begin()
	order, err := s.remote.Cancel(ctx, id)
	s.end("cancel", err, func(st *State) {
		for i := range st.Orders {
			if st.Orders[i].ID == order.ID {
				st.Orders[i] = order
			}
		}
		if st.Selected != nil && st.Selected.ID == order.ID {
			st.Selected = &order
		}
	})
	if err == nil {
		s.logger.Info("order cancelled", "order_id", id)
	}
	return err
}

func (s *Store) History(ctx context.Context, page, limit int) error {
	s.begin()
	history, err := s.remote.History(ctx, page, limit)
	s.end("history", err, func(st *State) {
		st.Orders = append([]domain.Order{}, history.Orders...)
		st.HistoryTotal = history.Total
	})
	return err
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
	st.Orders = append([]domain.Order(nil), s.state.Orders...)
	if s.state.Selected != nil {
		o := *s.state.Selected
		st.Selected = &o
	}
	return st
}

func (s *Store) findLocked(id string) (domain.Order, bool) {
	if s.state.Selected != nil && s.state.Selected.ID == id {
		return *s.state.Selected, true
	}
	for _, o := range s.state.Orders {
		if o.ID == id {
			return o, true
		}
	}
	return domain.Order{}, false
}

func (s *Store) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight++
	s.state.Pending = true
	s.state.LastError = ""
}

func (s *Store) end(op string, err error, apply func(*State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inFlight--
	s.state.Pending = s.inFlight > 0
	if err != nil {
		s.state.LastError = api.Message(err)
		s.logger.Error("order request failed", "op", op, "error", err)
		return
	}
	apply(&s.state)
}
