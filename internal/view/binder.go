// Package view binds renderers and event sinks to a cart store. Each bound
// component gets its own goroutine and a one-slot mailbox holding the latest
// undelivered snapshot, so a slow component only ever skips intermediate
// states and never blocks the store.
package view

import (
	"io"
	"log/slog"
	"sync"

	"github.com/joao-fontenele/storefront-sync/internal/cart"
)

type Component interface {
	Render(state cart.State) error
}

// ComponentFunc adapts a function to Component.
type ComponentFunc func(cart.State) error

func (f ComponentFunc) Render(state cart.State) error {
	return f(state)
}

// Source is the part of *cart.Store the binder needs.
type Source interface {
	Snapshot() cart.State
	Subscribe(fn cart.Listener) func()
}

type Binder struct {
	source Source
	logger *slog.Logger

	mu       sync.Mutex
	bindings map[*binding]struct{}
}

func NewBinder(source Source, logger *slog.Logger) *Binder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Binder{
		source:   source,
		logger:   logger,
		bindings: make(map[*binding]struct{}),
	}
}

// Bind starts delivering snapshots to c, beginning with the current one. The
// returned function stops delivery and waits for an in-progress Render.
func (b *Binder) Bind(name string, c Component) func() {
	bd := &binding{
		name:      name,
		component: c,
		logger:    b.logger,
		mailbox:   make(chan cart.State, 1),
		done:      make(chan struct{}),
	}

	bd.wg.Add(1)
	go bd.loop()

	bd.unsubscribe = b.source.Subscribe(bd.offer)
	bd.offer(b.source.Snapshot())

	b.mu.Lock()
	b.bindings[bd] = struct{}{}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.bindings, bd)
		b.mu.Unlock()
		bd.stop()
	}
}

// Close unbinds every component.
func (b *Binder) Close() {
	b.mu.Lock()
	bindings := b.bindings
	b.bindings = make(map[*binding]struct{})
	b.mu.Unlock()

	for bd := range bindings {
		bd.stop()
	}
}

type binding struct {
	name        string
	component   Component
	logger      *slog.Logger
	unsubscribe func()

	mu      sync.Mutex
	offered bool
	latest  uint64
	mailbox chan cart.State

	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// offer replaces any undelivered snapshot with state. Snapshots older than
// the last one offered are ignored.
func (bd *binding) offer(state cart.State) {
	bd.mu.Lock()
	defer bd.mu.Unlock()

	if bd.offered && state.Version <= bd.latest {
		return
	}
	bd.offered = true
	bd.latest = state.Version

	select {
	case <-bd.mailbox:
	default:
	}
	bd.mailbox <- state
}

func (bd *binding) loop() {
	defer bd.wg.Done()
	for {
		select {
		case <-bd.done:
			return
		case state := <-bd.mailbox:
			if err := bd.component.Render(state); err != nil {
				bd.logger.Warn("component render failed", "component", bd.name, "version", state.Version, "error", err)
			}
		}
	}
}

func (bd *binding) stop() {
	bd.stopOnce.Do(func() {
		if bd.unsubscribe != nil {
			bd.unsubscribe()
		}
		close(bd.done)
		bd.wg.Wait()
	})
}
