// Package worker implements the per-shard lookup task.
package worker

import (
	"context"
	"fmt"
	"iter"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/channel"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

// IndexSource hands out loaded shard indexes. *shardindex.Store satisfies it.
type IndexSource interface {
	Get(ctx context.Context, dir string) (*shardindex.Index, error)
}

// Lookup yields one record per file of idx that contains word, in
// ascending local file id order, followed by the sentinel. Only the first
// entry for word is consulted.
func Lookup(idx *shardindex.Index, word string) iter.Seq[freq.Record] {
	return func(yield func(freq.Record) bool) {
		for _, e := range idx.Entries {
			if e.Word != word {
				continue
			}
			for id, n := range e.Frequencies {
				if n == 0 {
					continue
				}
				if !yield(freq.Record{Frequency: n, Filename: idx.Files[id]}) {
					return
				}
			}
			break
		}
		yield(freq.Sentinel())
	}
}

// Run is the worker task for one (query, shard) pair. It always releases
// end: a clean lookup ends with the sentinel, anything else with Fail.
func Run(ctx context.Context, src IndexSource, dir string, end *channel.WorkerEnd) {
	log := logger.FromContext(ctx).With("shard", dir)

	defer func() {
		if r := recover(); r != nil {
			log.Error("shard worker panicked", "panic", r)
			end.Fail(pkgerrors.NewShardf(dir, pkgerrors.ErrWorkerFailed, "panic: %v", r))
		}
	}()

	if err := run(ctx, src, dir, end); err != nil {
		log.Debug("shard worker failed", "error", err)
		end.Fail(err)
		return
	}
	end.Close()
}

func run(ctx context.Context, src IndexSource, dir string, end *channel.WorkerEnd) error {
	word, err := end.ReadWord(ctx)
	if err != nil {
		return fmt.Errorf("reading query word: %w", err)
	}

	idx, err := src.Get(ctx, dir)
	if err != nil {
		return err
	}

	var sent int
	for r := range Lookup(idx, word) {
		if err := end.Send(r); err != nil {
			return err
		}
		sent++
	}
	logger.FromContext(ctx).Debug("shard lookup complete", "shard", dir, "word", word, "records", sent-1)
	return nil
}
