package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/storage"
)

// Mirror is a best-effort durable copy of the last known cart. It is only a
// placeholder until the remote cart loads and is never a source of truth.
type Mirror struct {
	kv     storage.KV
	logger *slog.Logger
}

func NewMirror(kv storage.KV, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Mirror{kv: kv, logger: logger}
}

// Read returns the mirrored cart. Absent or corrupt data yields an empty cart.
func (m *Mirror) Read(ctx context.Context) domain.Cart {
	data, err := m.kv.Get(ctx, storage.KeyCart)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			m.logger.Warn("failed to read cart mirror", "error", err)
		}
		return domain.EmptyCart()
	}

	var c domain.Cart
	if err := json.Unmarshal(data, &c); err != nil {
		m.logger.Warn("discarding corrupt cart mirror", "error", err)
		return domain.EmptyCart()
	}
	if c.Items == nil {
		c.Items = []domain.CartItem{}
	}
	return c
}

func (m *Mirror) Write(ctx context.Context, c domain.Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	return m.kv.Set(ctx, storage.KeyCart, data)
}

func (m *Mirror) Erase(ctx context.Context) error {
	return m.kv.Delete(ctx, storage.KeyCart)
}
