package shardindex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
)

func TestStoreCachesLoadedShards(t *testing.T) {
	dir := writeShard(t, "apple 1\n", "a.txt")
	store := NewStore(StoreConfig{CacheIndexes: true}, nil)

	var wg sync.WaitGroup
	results := make([]*Index, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			idx, err := store.Get(context.Background(), dir)
			assert.NoError(t, err)
			results[i] = idx
		}(i)
	}
	wg.Wait()

	for _, idx := range results[1:] {
		assert.Same(t, results[0], idx)
	}
	assert.Equal(t, 1, store.Loaded())

	// Cached copy survives removal of the files.
	require.NoError(t, os.Remove(filepath.Join(dir, IndexFile)))
	_, err := store.Get(context.Background(), dir)
	require.NoError(t, err)

	store.Evict(dir)
	_, err = store.Get(context.Background(), dir)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexIO)
}

func TestStoreWithoutCacheReloads(t *testing.T) {
	dir := writeShard(t, "apple 1\n", "a.txt")
	store := NewStore(StoreConfig{CacheIndexes: false}, nil)

	first, err := store.Get(context.Background(), dir)
	require.NoError(t, err)
	second, err := store.Get(context.Background(), dir)
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Zero(t, store.Loaded())
}

func TestStoreBreakerShortCircuitsBrokenShard(t *testing.T) {
	dir := writeShard(t, "apple x\n", "a.txt")
	m := metrics.New(prometheus.NewRegistry())
	store := NewStore(StoreConfig{
		CacheIndexes:     true,
		BreakerThreshold: 2,
		BreakerReset:     time.Hour,
	}, m)

	for i := 0; i < 2; i++ {
		_, err := store.Get(context.Background(), dir)
		assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
	}
	_, err := store.Get(context.Background(), dir)
	assert.ErrorIs(t, err, pkgerrors.ErrShardUnavailable)
	assert.Equal(t, dir, pkgerrors.ShardOf(err))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ShardLoadsTotal.WithLabelValues("format_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ShardLoadsTotal.WithLabelValues("circuit_open")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues(dir)))
}

func TestStoreRetriesIOErrorsOnly(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(StoreConfig{LoadRetries: 3, RetryDelay: time.Millisecond, BreakerThreshold: 10}, nil)

	_, err := store.Get(context.Background(), dir)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexIO)
	assert.Contains(t, err.Error(), "all 3 attempts failed")

	bad := writeShard(t, "apple x\n", "a.txt")
	_, err = store.Get(context.Background(), bad)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
	assert.NotContains(t, err.Error(), "attempts")
}
