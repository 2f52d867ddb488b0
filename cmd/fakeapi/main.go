package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/storefront-sync/internal/config"
	"github.com/joao-fontenele/storefront-sync/internal/fakeapi"
	"github.com/joao-fontenele/storefront-sync/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "fakeapi", "0.1.0", cfg.Telemetry.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("fakeapi", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter provider", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	opts := []fakeapi.Option{fakeapi.WithLogger(logger)}
	if secret := os.Getenv("FAKEAPI_JWT_SECRET"); secret != "" {
		opts = append(opts, fakeapi.WithSecret(secret))
	}
	if latency := os.Getenv("FAKEAPI_LATENCY"); latency != "" {
		d, err := time.ParseDuration(latency)
		if err != nil {
			logger.Error("invalid FAKEAPI_LATENCY", "error", err)
			os.Exit(1)
		}
		opts = append(opts, fakeapi.WithLatency(d))
	}
	api := fakeapi.New(opts...)

	mux := http.NewServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", api.Routes()))
	mux.Handle("GET /metrics", metricsHandler)

	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, "fakeapi",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting fake storefront api", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
