package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/domain"
	"github.com/joao-fontenele/storefront-sync/internal/storage"
)

// fakeRemote answers from canned carts and records calls. A non-nil gate
// blocks AddItem until the test releases it.
type fakeRemote struct {
	mu    sync.Mutex
	calls []string

	cart    domain.Cart
	err     error
	addGate map[string]chan struct{}
	addResp map[string]domain.Cart
	synced  domain.Cart
}

func (f *fakeRemote) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) Get(context.Context) (domain.Cart, error) {
	f.record("get")
	return f.cart, f.err
}

func (f *fakeRemote) AddItem(ctx context.Context, productID string, quantity int) (domain.Cart, error) {
	f.record(fmt.Sprintf("add %s %d", productID, quantity))
	if gate, ok := f.addGate[productID]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Cart{}, ctx.Err()
		}
	}
	if c, ok := f.addResp[productID]; ok {
		return c, nil
	}
	return f.cart, f.err
}

func (f *fakeRemote) UpdateItem(_ context.Context, itemID string, quantity int) (domain.Cart, error) {
	f.record(fmt.Sprintf("update %s %d", itemID, quantity))
	return f.cart, f.err
}

func (f *fakeRemote) RemoveItem(_ context.Context, itemID string) (domain.Cart, error) {
	f.record("remove " + itemID)
	return f.cart, f.err
}

func (f *fakeRemote) Clear(context.Context) error {
	f.record("clear")
	return f.err
}

func (f *fakeRemote) Sync(_ context.Context, c domain.Cart) (domain.Cart, error) {
	f.record("sync")
	f.mu.Lock()
	f.synced = c
	f.mu.Unlock()
	return f.cart, f.err
}

func itemA(quantity int) domain.CartItem {
	return domain.CartItem{
		ID:        "itemA",
		ProductID: "p1",
		Product:   domain.Product{ID: "p1", Name: "Mug", Price: 10, Stock: 5},
		Quantity:  quantity,
		Price:     10,
	}
}

func cartOf(items ...domain.CartItem) domain.Cart {
	c := domain.Cart{Items: items}
	for _, item := range items {
		c.Total += item.Price * float64(item.Quantity)
		c.ItemCount += item.Quantity
	}
	return c
}

func TestStore_Load(t *testing.T) {
	t.Run("replaces snapshot with server cart", func(t *testing.T) {
		remote := &fakeRemote{cart: cartOf(itemA(2))}
		store := NewStore(remote)

		require.NoError(t, store.Load(context.Background()))

		state := store.Snapshot()
		assert.Len(t, state.Items, 1)
		assert.Equal(t, 20.0, state.Total)
		assert.Equal(t, 2, state.ItemCount)
		assert.False(t, state.Pending)
		assert.Empty(t, state.LastError)
	})

	t.Run("failure keeps items and sets last error", func(t *testing.T) {
		remote := &fakeRemote{cart: cartOf(itemA(2))}
		store := NewStore(remote)
		require.NoError(t, store.Load(context.Background()))

		remote.err = &api.Error{Op: "cart.get", Message: api.MsgNetwork, Err: api.ErrNetwork}
		err := store.Load(context.Background())
		require.Error(t, err)

		state := store.Snapshot()
		assert.Len(t, state.Items, 1)
		assert.Equal(t, 20.0, state.Total)
		assert.NotEmpty(t, state.LastError)
		assert.False(t, state.Pending)
	})

	t.Run("nil items become empty", func(t *testing.T) {
		store := NewStore(&fakeRemote{cart: domain.Cart{}})
		require.NoError(t, store.Load(context.Background()))
		assert.NotNil(t, store.Snapshot().Items)
	})
}

func TestStore_Add(t *testing.T) {
	t.Run("item is in cart after add resolves", func(t *testing.T) {
		p2 := domain.CartItem{ID: "itemB", ProductID: "p2", Product: domain.Product{ID: "p2", Stock: 3}, Quantity: 1, Price: 4.5}
		remote := &fakeRemote{cart: cartOf(itemA(2))}
		store := NewStore(remote)
		require.NoError(t, store.Load(context.Background()))

		assert.False(t, store.Snapshot().IsInCart("p2"))

		remote.cart = cartOf(itemA(2), p2)
		require.NoError(t, store.Add(context.Background(), "p2", 1))

		state := store.Snapshot()
		assert.True(t, state.IsInCart("p2"))
		assert.Equal(t, 1, state.ItemQuantity("p2"))
		assert.Equal(t, 24.5, state.Total)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		remote := &fakeRemote{}
		store := NewStore(remote)

		err := store.Add(context.Background(), "p2", 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		assert.Empty(t, remote.Calls())
	})
}

func TestStore_UpdateQuantity(t *testing.T) {
	tests := []struct {
		name      string
		quantity  int
		wantErr   error
		wantCalls []string
	}{
		{name: "within stock", quantity: 3, wantCalls: []string{"get", "update itemA 3"}},
		{name: "exceeds stock", quantity: 6, wantErr: ErrQuantityOutOfRange, wantCalls: []string{"get"}},
		{name: "zero", quantity: 0, wantErr: ErrQuantityOutOfRange, wantCalls: []string{"get"}},
		{name: "equals stock", quantity: 5, wantCalls: []string{"get", "update itemA 5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{cart: cartOf(itemA(2))}
			store := NewStore(remote)
			require.NoError(t, store.Load(context.Background()))

			remote.cart = cartOf(itemA(tt.quantity))
			err := store.UpdateQuantity(context.Background(), "itemA", tt.quantity)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, 2, store.Snapshot().ItemCount)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, remote.Calls())
		})
	}

	t.Run("applies server totals", func(t *testing.T) {
		remote := &fakeRemote{cart: cartOf(itemA(2))}
		store := NewStore(remote)
		require.NoError(t, store.Load(context.Background()))

		// A discounted total the client could not derive from the items.
		remote.cart = domain.Cart{Items: []domain.CartItem{itemA(3)}, Total: 27, ItemCount: 3}
		require.NoError(t, store.UpdateQuantity(context.Background(), "itemA", 3))

		state := store.Snapshot()
		require.Len(t, state.Items, 1)
		assert.Equal(t, 3, state.Items[0].Quantity)
		assert.Equal(t, 27.0, state.Total)
		assert.Equal(t, 3, state.ItemCount)
	})

	t.Run("unknown item", func(t *testing.T) {
		remote := &fakeRemote{}
		store := NewStore(remote)

		err := store.UpdateQuantity(context.Background(), "nope", 1)
		assert.ErrorIs(t, err, ErrItemNotFound)
		assert.Empty(t, remote.Calls())
	})
}

func TestStore_RemoveAndClear(t *testing.T) {
	kv := storage.NewMemory()
	remote := &fakeRemote{cart: cartOf(itemA(2))}
	store := NewStore(remote, WithMirror(NewMirror(kv, nil)))
	ctx := context.Background()

	require.NoError(t, store.Load(ctx))
	_, err := kv.Get(ctx, storage.KeyCart)
	require.NoError(t, err, "mirror should hold the loaded cart")

	remote.cart = domain.EmptyCart()
	require.NoError(t, store.Remove(ctx, "itemA"))
	assert.Empty(t, store.Snapshot().Items)

	remote.cart = cartOf(itemA(1))
	require.NoError(t, store.Add(ctx, "p1", 1))
	require.NoError(t, store.Clear(ctx))

	state := store.Snapshot()
	assert.Empty(t, state.Items)
	assert.Zero(t, state.Total)
	assert.Zero(t, state.ItemCount)

	_, err = kv.Get(ctx, storage.KeyCart)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ClearFailureKeepsCart(t *testing.T) {
	remote := &fakeRemote{cart: cartOf(itemA(2))}
	store := NewStore(remote)
	require.NoError(t, store.Load(context.Background()))

	remote.err = &api.Error{Op: "cart.clear", Status: 500, Message: api.MsgServer, Err: api.ErrStatus}
	require.Error(t, store.Clear(context.Background()))

	state := store.Snapshot()
	assert.Len(t, state.Items, 1)
	assert.Equal(t, api.MsgServer, state.LastError)

	store.ClearError()
	assert.Empty(t, store.Snapshot().LastError)
}

func TestStore_Hydrate(t *testing.T) {
	ctx := context.Background()

	t.Run("seeds from mirror", func(t *testing.T) {
		kv := storage.NewMemory()
		require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`{"items":[{"id":"itemA","productId":"p1","quantity":2,"price":10}],"total":20,"itemCount":2}`)))

		store := NewStore(&fakeRemote{}, WithMirror(NewMirror(kv, nil)))
		store.Hydrate(ctx)

		state := store.Snapshot()
		assert.True(t, state.IsInCart("p1"))
		assert.Equal(t, 20.0, state.Total)
	})

	t.Run("corrupt mirror yields empty cart", func(t *testing.T) {
		kv := storage.NewMemory()
		require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`{not json`)))

		store := NewStore(&fakeRemote{}, WithMirror(NewMirror(kv, nil)))
		store.Hydrate(ctx)

		assert.Empty(t, store.Snapshot().Items)
		assert.Empty(t, store.Snapshot().LastError)
	})

	t.Run("does not override remote cart", func(t *testing.T) {
		kv := storage.NewMemory()
		require.NoError(t, kv.Set(ctx, storage.KeyCart, []byte(`{"items":[],"total":0,"itemCount":0}`)))

		store := NewStore(&fakeRemote{cart: cartOf(itemA(2))}, WithMirror(NewMirror(kv, nil)))
		require.NoError(t, store.Load(ctx))
		store.Hydrate(ctx)

		assert.Equal(t, 2, store.Snapshot().ItemCount)
	})
}

func TestStore_Sync(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemory()
	mirror := NewMirror(kv, nil)
	require.NoError(t, mirror.Write(ctx, cartOf(itemA(1))))

	remote := &fakeRemote{cart: cartOf(itemA(4))}
	store := NewStore(remote, WithMirror(mirror))

	require.NoError(t, store.Sync(ctx))
	assert.Equal(t, 1, remote.synced.ItemCount)
	assert.Equal(t, 4, store.Snapshot().ItemCount)
	assert.Equal(t, 4, mirror.Read(ctx).ItemCount)
}

// overlapping starts two adds where the earlier one resolves last.
func overlapping(t *testing.T, opts ...Option) State {
	t.Helper()
	first := cartOf(itemA(1))
	second := cartOf(itemA(2))
	gate := make(chan struct{})
	remote := &fakeRemote{
		addGate: map[string]chan struct{}{"slow": gate},
		addResp: map[string]domain.Cart{"slow": first, "fast": second},
	}
	store := NewStore(remote, opts...)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		close(started)
		_ = store.Add(ctx, "slow", 1)
	}()
	<-started

	// Wait until the slow request has taken its sequence number.
	require.Eventually(t, func() bool { return store.Snapshot().Pending }, timeout, tick)
	require.NoError(t, store.Add(ctx, "fast", 1))
	assert.True(t, store.Snapshot().Pending)

	close(gate)
	wg.Wait()
	return store.Snapshot()
}

func TestStore_Fencing(t *testing.T) {
	t.Run("stale response is dropped", func(t *testing.T) {
		state := overlapping(t)
		assert.Equal(t, 2, state.ItemCount)
		assert.False(t, state.Pending)
	})

	t.Run("without fencing last response wins", func(t *testing.T) {
		state := overlapping(t, WithoutFencing())
		assert.Equal(t, 1, state.ItemCount)
		assert.False(t, state.Pending)
	})
}

func TestStore_Subscribe(t *testing.T) {
	remote := &fakeRemote{cart: cartOf(itemA(2))}
	store := NewStore(remote)

	var (
		mu     sync.Mutex
		states []State
	)
	unsubscribe := store.Subscribe(func(s State) {
		mu.Lock()
		states = append(states, s)
		mu.Unlock()
	})

	require.NoError(t, store.Load(context.Background()))

	mu.Lock()
	require.Len(t, states, 2)
	assert.True(t, states[0].Pending)
	assert.False(t, states[1].Pending)
	assert.Equal(t, domain.CartReasonLoad, states[1].Reason)
	assert.Less(t, states[0].Version, states[1].Version)
	mu.Unlock()

	unsubscribe()
	require.NoError(t, store.Load(context.Background()))

	mu.Lock()
	assert.Len(t, states, 2)
	mu.Unlock()
}

func TestStore_MirrorFailureIsNotSurfaced(t *testing.T) {
	store := NewStore(&fakeRemote{cart: cartOf(itemA(2))}, WithMirror(NewMirror(failingKV{}, nil)))

	require.NoError(t, store.Load(context.Background()))
	assert.Empty(t, store.Snapshot().LastError)
	assert.Equal(t, 2, store.Snapshot().ItemCount)
}

type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk gone") }
func (failingKV) Set(context.Context, string, []byte) error   { return errors.New("disk gone") }
func (failingKV) Delete(context.Context, string) error        { return errors.New("disk gone") }
func (failingKV) Close() error                                { return nil }
