// Command analytics consumes query events published by queryengine,
// aggregates them in memory and serves the result over HTTP.
//
// Endpoints:
//
//	GET /api/v1/analytics             live statistics
//	GET /api/v1/analytics/snapshots   persisted snapshots (postgres enabled)
//	GET /health/live, /health/ready   probes
//	GET /metrics                      Prometheus
//
// Usage:
//
//	analytics [-config engine.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/postgres"
)

const (
	statsRoute     = "/api/v1/analytics"
	snapshotsRoute = "/api/v1/analytics/snapshots"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "analytics: %v\n", err)
		os.Exit(1)
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	if !cfg.Kafka.Enabled {
		fmt.Fprintln(os.Stderr, "analytics: kafka.enabled must be true, there is nothing to consume")
		os.Exit(1)
	}
	slog.Info("starting analytics service", "port", cfg.Server.Port, "topic", cfg.Kafka.Topics.QueryEvents)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	checker := health.NewChecker()
	aggregator := analytics.NewAggregator()

	var wg sync.WaitGroup
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents, analytics.HandleEvent(aggregator))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.Run(ctx); err != nil {
			slog.Error("consumer stopped", "error", err)
		}
	}()
	checker.Register("kafka", health.Static(health.StatusUp, "consuming %s", cfg.Kafka.Topics.QueryEvents))

	var lister analytics.SnapshotLister
	if cfg.Postgres.Enabled {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			slog.Warn("postgres unavailable, snapshots disabled", "error", err)
			checker.Register("postgres", health.Static(health.StatusDegraded, "unavailable"))
		} else {
			defer db.Close()
			if err := db.Migrate(ctx); err != nil {
				slog.Error("applying analytics schema failed", "error", err)
				os.Exit(1)
			}
			store := analytics.NewStore(db.DB)
			if last, err := store.LatestSnapshot(ctx); err != nil {
				slog.Warn("reading latest snapshot failed", "error", err)
			} else if last != nil {
				slog.Info("previous snapshot found", "captured_at", last.CapturedAt, "total_queries", last.Stats.TotalQueries)
			}
			lister = store
			wg.Add(1)
			go func() {
				defer wg.Done()
				store.Run(ctx, aggregator, cfg.Postgres.SnapshotEvery)
			}()
			checker.Register("postgres", health.Ping(db.Ping, health.StatusDegraded))
		}
	}

	h := analytics.NewHandler(aggregator, lister)
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+statsRoute, h.Stats)
	mux.HandleFunc("GET "+snapshotsRoute, h.Snapshots)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      middleware.Metrics(m, statsRoute, snapshotsRoute)(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	wg.Wait()
	slog.Info("analytics service stopped")
}
