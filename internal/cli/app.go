package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/joao-fontenele/storefront-sync/internal/api"
	"github.com/joao-fontenele/storefront-sync/internal/cart"
	"github.com/joao-fontenele/storefront-sync/internal/catalog"
	"github.com/joao-fontenele/storefront-sync/internal/config"
	"github.com/joao-fontenele/storefront-sync/internal/messaging"
	"github.com/joao-fontenele/storefront-sync/internal/orders"
	"github.com/joao-fontenele/storefront-sync/internal/session"
	"github.com/joao-fontenele/storefront-sync/internal/storage"
)

// app is the wired client for a single command invocation.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	kv      storage.KV
	client  *api.Client
	session *session.Session
	cart    *cart.Store
	catalog *catalog.Store
	orders  *orders.Store

	producer  *messaging.Producer
	publisher *messaging.CartPublisher
}

func openApp(ctx context.Context, opts *RootOptions, stderr io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	kv, err := storage.Open(ctx, cfg.Storage.URL, cfg.Storage.Origin)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	client := api.NewClient(cfg.API.BaseURL, api.WithTimeout(cfg.API.Timeout), api.WithLogger(logger))
	sess := session.New(client.Auth, kv, logger)
	if err := sess.Restore(ctx); err != nil {
		_ = kv.Close()
		return nil, fmt.Errorf("restore session: %w", err)
	}
	client.SetTokenSource(sess)

	a := &app{
		cfg:     cfg,
		logger:  logger,
		kv:      kv,
		client:  client,
		session: sess,
		cart:    cart.NewStore(client.Carts, cart.WithMirror(cart.NewMirror(kv, logger)), cart.WithLogger(logger)),
		catalog: catalog.NewStore(client.Products, logger),
		orders:  orders.NewStore(client.Orders, logger),
	}
	a.cart.Hydrate(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		a.producer = messaging.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		a.publisher = messaging.NewCartPublisher(a.producer, a.userID, logger)
	}
	return a, nil
}

func (a *app) userID() string {
	if user, ok := a.session.User(); ok {
		return user.ID
	}
	return ""
}

// publish reports the current cart on cart.updated when Kafka is configured.
// Failures are logged by the publisher and do not fail the command.
func (a *app) publish() {
	if a.publisher == nil {
		return
	}
	_ = a.publisher.Render(a.cart.Snapshot())
}

func (a *app) Close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("failed to close producer", "error", err)
		}
	}
	if err := a.kv.Close(); err != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
}
