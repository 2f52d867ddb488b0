package fakeapi

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/joao-fontenele/storefront-sync/internal/checkout"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

const defaultHistoryLimit = 10

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	userID := userFrom(r.Context())

	var form domain.CheckoutForm
	if err := decode(r, &form); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validator.Validate(form); err != nil {
		var verr *checkout.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		s.logger.Error("failed to validate order", "error", err)
		s.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(userID)
	if len(c.Items) == 0 {
		s.writeError(w, http.StatusBadRequest, "Cart is empty")
		return
	}
	for _, item := range c.Items {
		if p, ok := s.products[item.ProductID]; !ok || item.Quantity > p.Stock {
			s.writeError(w, http.StatusUnprocessableEntity, "Insufficient stock for "+item.Product.Name)
			return
		}
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		UserID:          userID,
		Total:           c.Total,
		Status:          domain.OrderStatusPending,
		ShippingAddress: form.ShippingAddress,
		PaymentMethod:   form.PaymentMethod,
		PaymentStatus:   domain.PaymentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if form.PaymentMethod != domain.PaymentMethodCashOnDelivery {
		order.PaymentStatus = domain.PaymentStatusPaid
	}
	for _, item := range c.Items {
		s.products[item.ProductID].Stock -= item.Quantity
		order.Items = append(order.Items, domain.OrderItem{
			ID:        uuid.NewString(),
			ProductID: item.ProductID,
			Product:   item.Product,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	s.orders[order.ID] = order
	s.byUser[userID] = append(s.byUser[userID], order.ID)
	empty := domain.EmptyCart()
	s.carts[userID] = &empty

	s.logger.Info("order created", "order_id", order.ID, "user_id", userID, "total", order.Total)
	s.writeJSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	order, ok := s.orders[id]
	var out domain.Order
	if ok {
		out = *order
	}
	s.mu.Unlock()

	if !ok || out.UserID != userFrom(r.Context()) {
		s.writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.ordersOf(userFrom(r.Context()))
	s.logger.Info("orders listed", "count", len(orders))
	s.writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := positive(q.Get("page"), 1)
	limit := positive(q.Get("limit"), defaultHistoryLimit)

	orders := s.ordersOf(userFrom(r.Context()))
	start := min((page-1)*limit, len(orders))
	end := min(start+limit, len(orders))

	s.writeJSON(w, http.StatusOK, domain.OrderHistory{Orders: orders[start:end], Total: len(orders)})
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok || order.UserID != userFrom(r.Context()) {
		s.writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if !domain.CanTransition(order.Status, domain.OrderStatusCancelled) {
		s.writeError(w, http.StatusUnprocessableEntity, "Order can no longer be cancelled")
		return
	}

	for _, item := range order.Items {
		if p, ok := s.products[item.ProductID]; ok {
			p.Stock += item.Quantity
		}
	}
	order.Status = domain.OrderStatusCancelled
	order.UpdatedAt = s.now().UTC()

	s.logger.Info("order cancelled", "order_id", id)
	s.writeJSON(w, http.StatusOK, *order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

// handleUpdateOrderStatus moves an order along its lifecycle. It stands in
// for the fulfilment side and is not part of the customer API.
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Status.Valid() {
		s.writeError(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(req.Status)))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[id]
	if !ok {
		s.writeError(w, http.StatusNotFound, "Order not found")
		return
	}
	if !domain.CanTransition(order.Status, req.Status) {
		s.writeError(w, http.StatusConflict, "cannot move order from "+string(order.Status)+" to "+string(req.Status))
		return
	}
	order.Status = req.Status
	order.UpdatedAt = s.now().UTC()

	s.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	s.writeJSON(w, http.StatusOK, *order)
}

// ordersOf returns the user's orders, newest first.
func (s *Server) ordersOf(userID string) []domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Order{}
	ids := s.byUser[userID]
	for i := len(ids) - 1; i >= 0; i-- {
		out = append(out, *s.orders[ids[i]])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
