// Command server runs the payments backend: checkout session creation,
// Stripe webhook reconciliation, and waitlist signup.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/hellotelle/payments/pkg/api"
	"github.com/hellotelle/payments/pkg/checkout"
	stripegw "github.com/hellotelle/payments/pkg/gateway/stripe"
	"github.com/hellotelle/payments/pkg/identity/supabase"
	"github.com/hellotelle/payments/pkg/payments"
	zerologadapter "github.com/hellotelle/payments/pkg/payments/logger/zerolog"
	prommetrics "github.com/hellotelle/payments/pkg/payments/metrics/prometheus"
	"github.com/hellotelle/payments/pkg/reconcile"
	"github.com/hellotelle/payments/storage/memory"
	"github.com/hellotelle/payments/storage/postgres"
)

func main() {
	_ = godotenv.Load()

	zlog := newZerolog()

	if err := run(zlog); err != nil {
		zlog.Fatal().Err(err).Msg("server exited")
	}
}

func newZerolog() zerolog.Logger {
	if os.Getenv("LOG_FORMAT") == "console" {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func run(zlog zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := zerologadapter.NewLogger(zlog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := prommetrics.NewMetrics(registry, "hellotelle")

	store, closeStore, err := newStore(ctx, zlog)
	if err != nil {
		return err
	}
	defer closeStore()

	gw, err := stripegw.New(stripegw.Config{
		APIKey:        mustEnv(zlog, "STRIPE_SECRET_KEY"),
		WebhookSecret: mustEnv(zlog, "STRIPE_WEBHOOK_SECRET"),
		Metrics:       metrics,
	})
	if err != nil {
		return err
	}

	resolver, err := supabase.New(supabase.Config{
		BaseURL:        mustEnv(zlog, "SUPABASE_URL"),
		ServiceRoleKey: mustEnv(zlog, "SUPABASE_SERVICE_ROLE_KEY"),
	})
	if err != nil {
		return err
	}

	checkoutSvc, err := checkout.NewService(checkout.Config{
		Gateway:  gw,
		Store:    store,
		Resolver: resolver,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return err
	}

	reconciler, err := reconcile.NewService(reconcile.Config{
		Gateway: gw,
		Store:   store,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	handler, err := api.NewHandler(api.Config{
		Checkout:   checkoutSvc,
		Reconciler: reconciler,
		Store:      store,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Mount("/", handler.Routes())

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info().Str("addr", srv.Addr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zlog.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newStore connects to PostgreSQL when DATABASE_URL is set and falls back to
// the in-memory store otherwise. The in-memory store loses everything on
// restart; it exists for local development only.
func newStore(ctx context.Context, zlog zerolog.Logger) (payments.Store, func(), error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		zlog.Warn().Msg("DATABASE_URL not set, using in-memory store")
		return memory.New(), func() {}, nil
	}

	config := postgres.DefaultConfig()
	config.ConnectionString = dsn
	store, err := postgres.New(ctx, config)
	if err != nil {
		return nil, nil, err
	}
	return store, store.Close, nil
}

func mustEnv(zlog zerolog.Logger, key string) string {
	value := os.Getenv(key)
	if value == "" {
		zlog.Fatal().Str("key", key).Msg("required environment variable not set")
	}
	return value
}
