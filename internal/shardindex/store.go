package shardindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/resilience"
)

// StoreConfig controls caching and failure handling of shard loads.
type StoreConfig struct {
	CacheIndexes     bool
	LoadRetries      int
	RetryDelay       time.Duration
	BreakerThreshold int
	BreakerReset     time.Duration
}

// Store loads shards on first use and, when caching is enabled, keeps them
// for the rest of the process. Failed loads are never cached.
type Store struct {
	cfg      StoreConfig
	group    singleflight.Group
	mu       sync.RWMutex
	indexes  map[string]*Index
	breakers map[string]*resilience.CircuitBreaker
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewStore creates a Store. m may be nil.
func NewStore(cfg StoreConfig, m *metrics.Metrics) *Store {
	if cfg.LoadRetries <= 0 {
		cfg.LoadRetries = 1
	}
	return &Store{
		cfg:      cfg,
		indexes:  make(map[string]*Index),
		breakers: make(map[string]*resilience.CircuitBreaker),
		metrics:  m,
		logger:   logger.WithComponent("shard-store"),
	}
}

// Get returns the loaded shard in dir, loading it if necessary.
func (s *Store) Get(ctx context.Context, dir string) (*Index, error) {
	s.mu.RLock()
	idx, ok := s.indexes[dir]
	s.mu.RUnlock()
	if ok {
		return idx, nil
	}
	val, err, _ := s.group.Do(dir, func() (interface{}, error) {
		s.mu.RLock()
		idx, ok := s.indexes[dir]
		s.mu.RUnlock()
		if ok {
			return idx, nil
		}
		idx, err := s.load(ctx, dir)
		if err != nil {
			return nil, err
		}
		if s.cfg.CacheIndexes {
			s.mu.Lock()
			s.indexes[dir] = idx
			s.mu.Unlock()
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	return val.(*Index), nil
}

func (s *Store) load(ctx context.Context, dir string) (*Index, error) {
	start := time.Now()
	var idx *Index
	err := s.breaker(dir).Execute(func() error {
		retryCfg := resilience.RetryConfig{
			MaxAttempts:  s.cfg.LoadRetries,
			InitialDelay: s.cfg.RetryDelay,
			Retryable: func(err error) bool {
				return errors.Is(err, pkgerrors.ErrIndexIO)
			},
		}
		return resilience.Retry(ctx, "load shard "+dir, retryCfg, func() error {
			loaded, err := Load(dir)
			if err != nil {
				return err
			}
			idx = loaded
			return nil
		})
	}, func(err error) bool {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	})
	if err != nil {
		s.observeLoad(loadStatus(err))
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrShardUnavailable, "%v", err)
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !pkgerrors.IsShardLevel(err) {
			return nil, fmt.Errorf("loading shard %s: %w", dir, ctxErr)
		}
		return nil, err
	}
	s.observeLoad("ok")
	s.logger.Info("shard loaded",
		"shard", dir,
		"files", idx.NumFiles(),
		"words", idx.NumWords(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return idx, nil
}

func (s *Store) breaker(dir string) *resilience.CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[dir]
	if !ok {
		cb = resilience.NewCircuitBreaker(dir, resilience.CircuitBreakerConfig{
			FailureThreshold: s.cfg.BreakerThreshold,
			ResetTimeout:     s.cfg.BreakerReset,
			OnStateChange: func(name string, to resilience.State) {
				if s.metrics != nil {
					s.metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		})
		s.breakers[dir] = cb
	}
	return cb
}

func (s *Store) observeLoad(status string) {
	if s.metrics != nil {
		s.metrics.ShardLoadsTotal.WithLabelValues(status).Inc()
	}
}

// Loaded returns the number of cached shards.
func (s *Store) Loaded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.indexes)
}

// Evict drops a cached shard so the next Get reloads it.
func (s *Store) Evict(dir string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.indexes, dir)
}

func loadStatus(err error) string {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, pkgerrors.ErrIndexFormat):
		return "format_error"
	case errors.Is(err, pkgerrors.ErrIndexIO):
		return "io_error"
	default:
		return "error"
	}
}
