// Package coordinator answers a query by scattering it to every shard worker
// and gathering their result streams into one bounded buffer.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/aggregator"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/channel"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/ranker"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/worker"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/tracing"
)

// Config controls how a query is dispatched.
type Config struct {
	// Capacity is the maximum number of records kept per query.
	Capacity int
	// Parallelism bounds the number of shard workers alive at once.
	Parallelism int
	// ShardTimeout abandons a shard whose stream has not ended in time.
	// Zero disables it.
	ShardTimeout time.Duration
	// FailFast turns the first shard failure into a query failure.
	FailFast bool
}

// ShardWarning records a shard that was skipped for one query.
type ShardWarning struct {
	Shard string
	Err   error
}

func (w ShardWarning) Error() string {
	var shardErr *pkgerrors.ShardError
	if errors.As(w.Err, &shardErr) {
		return shardErr.Error()
	}
	return fmt.Sprintf("shard %s: %v", w.Shard, w.Err)
}

func (w ShardWarning) Unwrap() error {
	return w.Err
}

// Answer is the outcome of one query.
type Answer struct {
	Word     string         `json:"word"`
	Results  []freq.Record  `json:"results"`
	Dropped  int            `json:"dropped"`
	Warnings []ShardWarning `json:"-"`
	Shards   int            `json:"shards"`
}

// Truncated reports whether records were dropped for lack of capacity.
func (a *Answer) Truncated() bool {
	return a.Dropped > 0
}

// Coordinator owns the shard list and the aggregation buffer. Queries are
// answered one at a time.
type Coordinator struct {
	cfg     Config
	shards  []string
	src     worker.IndexSource
	metrics *metrics.Metrics

	mu  sync.Mutex
	buf *aggregator.Buffer
}

// New creates a Coordinator over shards, which are visited in the given
// order for every query. m may be nil.
func New(cfg Config, shards []string, src worker.IndexSource, m *metrics.Metrics) *Coordinator {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 1
	}
	if m != nil {
		m.ActiveShards.Set(float64(len(shards)))
	}
	return &Coordinator{
		cfg:     cfg,
		shards:  slices.Clone(shards),
		src:     src,
		metrics: m,
		buf:     aggregator.New(cfg.Capacity),
	}
}

// Shards returns the shard directories in dispatch order.
func (c *Coordinator) Shards() []string {
	return slices.Clone(c.shards)
}

// AnswerQuery collects every record for word from all shards, keeps the
// first Capacity of them in shard-then-file order and returns them ranked
// by descending frequency. Shard failures become warnings unless FailFast
// is set.
func (c *Coordinator) AnswerQuery(ctx context.Context, word string) (*Answer, error) {
	if word == "" || len(word) >= freq.MaxWord {
		return nil, fmt.Errorf("%w: query word must be 1 to %d bytes", pkgerrors.ErrInvalidInput, freq.MaxWord-1)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	ctx, span := tracing.StartSpan(ctx, "answer_query", logger.QueryID(ctx))
	span.SetAttr("word", word)
	defer func() {
		span.End()
		span.Log()
	}()

	c.buf.Reset()
	defer c.buf.Reset()

	warnings, err := c.scatter(ctx, word)
	if err != nil {
		c.observeQuery("error", start, 0, 0)
		return nil, err
	}

	ans := &Answer{
		Word:     word,
		Results:  ranker.Rank(slices.Clone(c.buf.Records())),
		Dropped:  c.buf.Dropped(),
		Warnings: warnings,
		Shards:   len(c.shards),
	}
	span.SetAttr("results", len(ans.Results))
	span.SetAttr("dropped", ans.Dropped)

	c.observeQuery(outcome(ans), start, len(ans.Results), ans.Dropped)
	logger.FromContext(ctx).Debug("query answered",
		"word", word,
		"shards", len(c.shards),
		"results", len(ans.Results),
		"dropped", ans.Dropped,
		"warnings", len(warnings),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return ans, nil
}

// scatter runs one worker per shard and drains their streams into the
// buffer strictly in shard order. Workers are started in the same order
// under the parallelism limit; each blocks on its first frame until the
// coordinator reaches it.
func (c *Coordinator) scatter(ctx context.Context, word string) ([]ShardWarning, error) {
	ctx, cancel := context.WithCancel(ctx)

	shards := make([]*shardRun, len(c.shards))
	for i, dir := range c.shards {
		wctx, wcancel := context.WithCancelCause(ctx)
		w, end := channel.New(dir)
		if err := end.SendWord(word); err != nil {
			wcancel(err)
			cancel()
			for _, s := range shards[:i] {
				s.release()
			}
			return nil, err
		}
		shards[i] = &shardRun{
			dir:    dir,
			ctx:    wctx,
			cancel: wcancel,
			worker: w,
			end:    end,
			done:   make(chan struct{}),
		}
	}

	var g errgroup.Group
	g.SetLimit(c.cfg.Parallelism)
	dispatched := make(chan struct{})
	go func() {
		defer close(dispatched)
		for i, s := range shards {
			if err := ctx.Err(); err != nil {
				for _, rest := range shards[i:] {
					rest.worker.Fail(err)
					close(rest.done)
				}
				return
			}
			g.Go(func() error {
				defer close(s.done)
				worker.Run(s.ctx, c.src, s.dir, s.worker)
				return nil
			})
		}
	}()

	defer func() {
		cancel()
		for _, s := range shards {
			s.release()
		}
		<-dispatched
		_ = g.Wait()
	}()

	var warnings []ShardWarning
	for _, s := range shards {
		err := c.drain(ctx, s)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if c.cfg.FailFast {
			return nil, err
		}
		logger.FromContext(ctx).Warn("shard skipped", "shard", s.dir, "error", err)
		warnings = append(warnings, ShardWarning{Shard: s.dir, Err: err})
	}
	return warnings, nil
}

// shardRun is the per-query state of one shard.
type shardRun struct {
	dir    string
	ctx    context.Context
	cancel context.CancelCauseFunc
	worker *channel.WorkerEnd
	end    *channel.CoordinatorEnd
	done   chan struct{}
}

func (s *shardRun) release() {
	s.cancel(context.Canceled)
	s.end.Close()
}

// drain appends the shard's records to the buffer until the end-of-stream
// frame, then waits for the worker to finish.
func (c *Coordinator) drain(ctx context.Context, s *shardRun) error {
	ctx, span := tracing.StartChildSpan(ctx, "shard")
	span.SetAttr("shard", s.dir)
	defer span.End()
	start := time.Now()

	dctx := ctx
	if c.cfg.ShardTimeout > 0 {
		var cancel context.CancelFunc
		dctx, cancel = context.WithTimeoutCause(ctx, c.cfg.ShardTimeout, pkgerrors.ErrShardTimeout)
		defer cancel()
	}
	stop := context.AfterFunc(dctx, func() {
		cause := context.Cause(dctx)
		s.cancel(cause)
		s.end.Abort(cause)
	})
	defer stop()

	var received int
	err := func() error {
		for {
			r, err := s.end.Recv()
			if err != nil {
				return err
			}
			if r.IsSentinel() {
				return nil
			}
			c.buf.Append(r)
			received++
		}
	}()
	if err == nil {
		select {
		case <-s.done:
		case <-dctx.Done():
			err = dctx.Err()
		}
	}

	if err != nil && dctx.Err() != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = pkgerrors.NewShardf(s.dir, pkgerrors.ErrShardTimeout, "no end of stream within %s", c.cfg.ShardTimeout)
		}
	} else if err != nil && pkgerrors.ShardOf(err) == "" {
		err = &pkgerrors.ShardError{Shard: s.dir, Err: err}
	}

	status := "ok"
	switch {
	case err == nil:
	case errors.Is(err, pkgerrors.ErrShardTimeout):
		status = "timeout"
	default:
		status = "failed"
	}
	span.SetAttr("records", received)
	span.SetAttr("status", status)
	if c.metrics != nil {
		c.metrics.ShardLookupsTotal.WithLabelValues(status).Inc()
		c.metrics.ShardLookupLatency.Observe(time.Since(start).Seconds())
	}
	return err
}

func (c *Coordinator) observeQuery(outcome string, start time.Time, results, dropped int) {
	if c.metrics == nil {
		return
	}
	c.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	c.metrics.QueryLatency.Observe(time.Since(start).Seconds())
	if outcome == "error" {
		return
	}
	c.metrics.QueryResultsCount.Observe(float64(results))
	c.metrics.RecordsDroppedTotal.Add(float64(dropped))
}

func outcome(a *Answer) string {
	switch {
	case len(a.Warnings) > 0:
		return "partial"
	case a.Truncated():
		return "truncated"
	case len(a.Results) == 0:
		return "empty"
	default:
		return "ok"
	}
}
