package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"identity-gateway/internal/identify"
	"identity-gateway/internal/identify/handler"
	identifymetrics "identity-gateway/internal/identify/metrics"
	"identity-gateway/internal/identify/resolver"
	"identity-gateway/internal/identify/service"
	"identity-gateway/internal/platform/config"
	"identity-gateway/internal/platform/httpserver"
	"identity-gateway/internal/platform/logger"
	"identity-gateway/internal/platform/metrics"
	"identity-gateway/internal/platform/otel"
	"identity-gateway/internal/platform/postgres"
	httptransport "identity-gateway/internal/transport/http"
)

const serviceName = "identity-gateway"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Request handling lives in internal/identify.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := cfg.Logging.SlogLevel()
	log := logger.New(level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	shutdownTracing, err := otel.Setup(ctx, serviceName, cfg.Tracing.Endpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("trace flush failed", "error", err)
		}
	}()

	reg := metrics.NewRegistry()
	pool, err := openPool(ctx, cfg.Database, reg)
	if err != nil {
		return err
	}
	defer pool.Close()

	invoker, err := resolver.New(resolver.Mode(cfg.Resolver.Mode), cfg.Resolver.Name)
	if err != nil {
		return fmt.Errorf("configure resolver: %w", err)
	}

	svc := service.New(pool, invoker, log,
		service.WithPolicy(identify.Policy(cfg.Identify.Validation)),
		service.WithTimeout(cfg.Resolver.Timeout),
		service.WithMetrics(identifymetrics.New(reg)),
	)
	// A failed probe is logged; requests fail with 500 until the database is reachable.
	_ = svc.Probe(ctx)

	opts := httptransport.Options{
		Logger:    log,
		Readiness: svc,
		Modules:   []httptransport.Registrar{handler.New(svc, log)},
	}
	if cfg.Server.MetricsEnabled {
		opts.Metrics = metrics.Handler(reg)
	}
	srv := httpserver.New(cfg.Server.Addr(), httptransport.NewRouter(opts), log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server running",
			"port", cfg.Server.Port,
			"driver", cfg.Database.Driver,
			"resolver_mode", invoker.Mode(),
			"resolver", cfg.Resolver.Name,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	})
	return g.Wait()
}

// openPool builds the configured driver's pool and registers its stats.
func openPool(ctx context.Context, cfg config.Database, reg *prometheus.Registry) (resolver.Pool, error) {
	switch cfg.Driver {
	case "pq":
		db, err := postgres.OpenSQL(cfg)
		if err != nil {
			return nil, err
		}
		metrics.RegisterSQLPool(reg, db)
		return resolver.NewSQLPool(db), nil
	default:
		pool, err := postgres.OpenPgx(ctx, cfg)
		if err != nil {
			return nil, err
		}
		metrics.RegisterPgxPool(reg, pool)
		return resolver.NewPgxPool(pool), nil
	}
}
