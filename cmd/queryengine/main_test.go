package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/coordinator"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/discovery"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/query"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
)

func writeShard(t *testing.T, dir, filenames, index string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, shardindex.FilenamesFile), []byte(filenames), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, shardindex.IndexFile), []byte(index), 0o644))
}

func newEngine(t *testing.T, capacity int, out, diag *bytes.Buffer) *engine {
	t.Helper()
	root := t.TempDir()
	writeShard(t, filepath.Join(root, "s1"), "a.txt\nb.txt\nc.txt\n", "apple 3 0 5\npear 0 2 0\n")
	writeShard(t, filepath.Join(root, "s2"), "x.txt\n", "apple 4\n")
	writeShard(t, filepath.Join(root, "s3"), "broken.txt\n", "apple 1 1\n")

	shards, err := discovery.Shards(root)
	require.NoError(t, err)
	store := shardindex.NewStore(shardindex.StoreConfig{CacheIndexes: true}, nil)
	coord := coordinator.New(coordinator.Config{Capacity: capacity, Parallelism: 2}, shards, store, nil)
	return &engine{coord: coord, printer: query.NewPrinter(out, diag)}
}

func TestServeAnswersEachWord(t *testing.T) {
	var out, diag bytes.Buffer
	e := newEngine(t, 2, &out, &diag)

	in := "apple\nplum\npear!\n" + strings.Repeat("z", 40) + "\n"
	err := e.serve(context.Background(), query.NewReader(strings.NewReader(in)))
	require.NoError(t, err)

	assert.Equal(t,
		"5 c.txt\n3 a.txt\nresults truncated: 1 dropped\n"+
			"2 b.txt\n",
		out.String())
	assert.Contains(t, diag.String(), "warning: shard ")
	assert.Contains(t, diag.String(), "malformed index")
	assert.Contains(t, diag.String(), "query word too long")
}

func TestServeStopsOnCancel(t *testing.T) {
	var out, diag bytes.Buffer
	e := newEngine(t, 10, &out, &diag)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()
	defer pw.Close()

	assert.ErrorIs(t, e.serve(ctx, query.NewReader(pr)), context.Canceled)
}
