// Command queryengine answers word-frequency queries against a directory of
// index shards.
//
// It reads one query word per line from standard input and, for each word,
// prints "<frequency> <filename>" lines ranked from most to least frequent.
// Warnings and logs go to standard error.
//
// Usage:
//
//	queryengine [-config engine.yaml] [-d DIR] [-m CAPACITY] [-p PARALLELISM]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/coordinator"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/discovery"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/query"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/config"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/redis"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to config file")
	rootDir := flag.String("d", "", "directory holding the shard directories (default \".\")")
	capacity := flag.Int("m", 0, "maximum number of results kept per query")
	parallelism := flag.Int("p", 0, "number of shard workers run at once")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: queryengine [-config FILE] [-d DIRECTORY] [-m CAPACITY] [-p PARALLELISM]")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queryengine: %v\n", err)
		return 1
	}
	if *rootDir != "" {
		cfg.Engine.RootDir = *rootDir
	}
	if *capacity != 0 {
		cfg.Engine.Capacity = *capacity
	}
	if *parallelism != 0 {
		cfg.Engine.Parallelism = *parallelism
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "queryengine: %v\n", err)
		return 1
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	shards, err := discovery.Shards(cfg.Engine.RootDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "queryengine: %v\n", err)
		return 1
	}
	slog.Info("shards discovered", "root", cfg.Engine.RootDir, "shards", len(shards))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	checker := health.NewChecker()
	checker.Register("shards", health.Static(health.StatusUp, "%d shards under %s", len(shards), cfg.Engine.RootDir))
	if cfg.Metrics.Enabled {
		m = metrics.New(nil)
		shutdown := metrics.StartServer(cfg.Metrics.Port, map[string]http.HandlerFunc{
			"/health/live":  checker.LiveHandler(),
			"/health/ready": checker.ReadyHandler(),
		})
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		}()
	}

	store := shardindex.NewStore(shardindex.StoreConfig{
		CacheIndexes:     cfg.Engine.CacheIndexes,
		LoadRetries:      cfg.Engine.LoadRetries,
		RetryDelay:       50 * time.Millisecond,
		BreakerThreshold: cfg.Engine.BreakerThreshold,
		BreakerReset:     cfg.Engine.BreakerReset,
	}, m)
	coord := coordinator.New(coordinator.Config{
		Capacity:     cfg.Engine.Capacity,
		Parallelism:  cfg.Engine.Parallelism,
		ShardTimeout: cfg.Engine.ShardTimeout,
		FailFast:     cfg.Engine.FailFast,
	}, shards, store, m)

	var answers *cache.AnswerCache
	if cfg.Redis.Enabled {
		client, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, answer cache disabled", "error", err)
			checker.Register("redis", health.Static(health.StatusDegraded, "unavailable"))
		} else {
			defer client.Close()
			answers = cache.New(client, cfg.Engine.RootDir, cfg.Engine.Capacity, cfg.Redis.CacheTTL, m)
			checker.Register("redis", health.Ping(client.Ping, health.StatusDegraded))
			slog.Info("answer cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var collector *analytics.Collector
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.QueryEvents)
		defer producer.Close()
		collector = analytics.NewCollector(producer, 0, 0, 0)
		collector.Start(ctx)
		defer collector.Close()
	}

	e := &engine{
		coord:     coord,
		answers:   answers,
		collector: collector,
		printer:   query.NewPrinter(os.Stdout, os.Stderr),
	}
	err = e.serve(ctx, query.NewReader(os.Stdin))
	if err != nil {
		fmt.Fprintf(os.Stderr, "queryengine: %v\n", err)
	}
	return pkgerrors.ExitCode(err)
}

// engine answers the query stream one word at a time.
type engine struct {
	coord     *coordinator.Coordinator
	answers   *cache.AnswerCache
	collector *analytics.Collector
	printer   *query.Printer
}

type readResult struct {
	word string
	err  error
}

// serve answers every word from r until end of input. Reading happens on
// its own goroutine so a signal interrupts a blocked read.
func (e *engine) serve(ctx context.Context, r *query.Reader) error {
	words := make(chan readResult)
	go func() {
		defer close(words)
		for {
			word, err := r.Next()
			select {
			case words <- readResult{word: word, err: err}:
			case <-ctx.Done():
				return
			}
			if err != nil && !errors.Is(err, query.ErrWordTooLong) {
				return
			}
		}
	}()

	for {
		var next readResult
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r, ok := <-words:
			if !ok {
				return ctx.Err()
			}
			next = r
		}
		switch {
		case next.err == io.EOF:
			return nil
		case errors.Is(next.err, query.ErrWordTooLong):
			e.printer.Warn(next.err)
			continue
		case next.err != nil:
			return next.err
		}

		ans, err := e.answer(ctx, next.word)
		if err != nil {
			return fmt.Errorf("query %q: %w", next.word, err)
		}
		if err := e.printer.Print(ans); err != nil {
			return err
		}
	}
}

func (e *engine) answer(ctx context.Context, word string) (*coordinator.Answer, error) {
	queryID := uuid.NewString()
	ctx = logger.WithQueryID(ctx, queryID)
	start := time.Now()

	var (
		ans *coordinator.Answer
		hit bool
		err error
	)
	if e.answers != nil {
		ans, hit, err = e.answers.GetOrCompute(ctx, word, e.coord.AnswerQuery)
	} else {
		ans, err = e.coord.AnswerQuery(ctx, word)
	}

	if e.collector != nil {
		e.collector.Track(analytics.NewQueryEvent(queryID, word, ans, time.Since(start), hit))
	}
	return ans, err
}
