package fakeapi

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
)

type addItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

// cartLocked returns the owner's cart, creating it on first use.
func (s *Server) cartLocked(owner string) *domain.Cart {
	c, ok := s.carts[owner]
	if !ok {
		empty := domain.EmptyCart()
		c = &empty
		s.carts[owner] = c
	}
	return c
}

// recompute derives Total and ItemCount from the items.
func recompute(c *domain.Cart) {
	total := decimal.Zero
	count := 0
	for _, item := range c.Items {
		total = total.Add(decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity))))
		count += item.Quantity
	}
	c.Total = total.Round(2).InexactFloat64()
	c.ItemCount = count
}

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}

	s.mu.Lock()
	c := s.cartLocked(owner).Clone()
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}

	var req addItemRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		s.writeError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[req.ProductID]
	if !ok {
		s.writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	c := s.cartLocked(owner)
	idx := -1
	for i, item := range c.Items {
		if item.ProductID == req.ProductID {
			idx = i
			break
		}
	}

	held := 0
	if idx >= 0 {
		held = c.Items[idx].Quantity
	}
	if held+req.Quantity > product.Stock {
		s.writeError(w, http.StatusUnprocessableEntity, "Insufficient stock")
		return
	}

	if idx >= 0 {
		c.Items[idx].Quantity += req.Quantity
	} else {
		c.Items = append(c.Items, domain.CartItem{
			ID:        uuid.NewString(),
			ProductID: product.ID,
			Product:   *product,
			Quantity:  req.Quantity,
			Price:     product.Price,
		})
	}
	recompute(c)

	s.logger.Info("cart item added", "owner", owner, "product_id", req.ProductID, "quantity", req.Quantity)
	s.writeJSON(w, http.StatusOK, c.Clone())
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}
	itemID := r.PathValue("id")

	var req updateItemRequest
	if err := decode(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Quantity < 1 {
		s.writeError(w, http.StatusBadRequest, "Quantity must be at least 1")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(owner)
	for i := range c.Items {
		if c.Items[i].ID != itemID {
			continue
		}
		if product, ok := s.products[c.Items[i].ProductID]; ok && req.Quantity > product.Stock {
			s.writeError(w, http.StatusUnprocessableEntity, "Insufficient stock")
			return
		}
		c.Items[i].Quantity = req.Quantity
		recompute(c)
		s.logger.Info("cart item updated", "owner", owner, "item_id", itemID, "quantity", req.Quantity)
		s.writeJSON(w, http.StatusOK, c.Clone())
		return
	}
	s.writeError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}
	itemID := r.PathValue("id")

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(owner)
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			recompute(c)
			s.logger.Info("cart item removed", "owner", owner, "item_id", itemID)
			s.writeJSON(w, http.StatusOK, c.Clone())
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "Cart item not found")
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}

	s.mu.Lock()
	empty := domain.EmptyCart()
	s.carts[owner] = &empty
	s.mu.Unlock()

	s.logger.Info("cart cleared", "owner", owner)
	w.WriteHeader(http.StatusNoContent)
}

// handleSyncCart merges a client-held cart into the owner's cart. Quantities
// of the same product are summed and capped at stock; unknown products are
// dropped.
func (s *Server) handleSyncCart(w http.ResponseWriter, r *http.Request) {
	owner, ok := s.owner(r)
	if !ok {
		s.writeError(w, http.StatusUnauthorized, "Session expired. Please login again.")
		return
	}

	var incoming domain.Cart
	if err := decode(r, &incoming); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartLocked(owner)
	for _, in := range incoming.Items {
		product, ok := s.products[in.ProductID]
		if !ok || in.Quantity < 1 {
			continue
		}
		merged := false
		for i := range c.Items {
			if c.Items[i].ProductID == in.ProductID {
				c.Items[i].Quantity = min(c.Items[i].Quantity+in.Quantity, product.Stock)
				merged = true
				break
			}
		}
		if !merged && product.Stock > 0 {
			c.Items = append(c.Items, domain.CartItem{
				ID:        uuid.NewString(),
				ProductID: product.ID,
				Product:   *product,
				Quantity:  min(in.Quantity, product.Stock),
				Price:     product.Price,
			})
		}
	}
	recompute(c)

	s.logger.Info("cart synced", "owner", owner, "incoming_items", len(incoming.Items))
	s.writeJSON(w, http.StatusOK, c.Clone())
}
