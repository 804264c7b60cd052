package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

const maxLatencies = 10000

// Stats is a point-in-time summary of the query events seen so far.
type Stats struct {
	TotalQueries     int64       `json:"total_queries"`
	FailedQueries    int64       `json:"failed_queries"`
	CacheHits        int64       `json:"cache_hits"`
	CacheMisses      int64       `json:"cache_misses"`
	ZeroResultCount  int64       `json:"zero_result_count"`
	TruncatedCount   int64       `json:"truncated_count"`
	PartialCount     int64       `json:"partial_count"`
	RecordsDropped   int64       `json:"records_dropped"`
	ShardWarnings    int64       `json:"shard_warnings"`
	AvgLatencyMs     float64     `json:"avg_latency_ms"`
	P50LatencyMs     int64       `json:"p50_latency_ms"`
	P95LatencyMs     int64       `json:"p95_latency_ms"`
	P99LatencyMs     int64       `json:"p99_latency_ms"`
	TopWords         []WordCount `json:"top_words"`
	ZeroResultWords  []WordCount `json:"zero_result_words"`
	QueriesPerMinute float64     `json:"queries_per_minute"`
}

type WordCount struct {
	Word  string `json:"word"`
	Count int64  `json:"count"`
}

// Aggregator folds query events into Stats. Latency percentiles cover the
// most recent maxLatencies events.
type Aggregator struct {
	mu              sync.Mutex
	stats           Stats
	latencies       []int64
	next            int
	wordCounts      map[string]int64
	zeroResultWords map[string]int64
	startTime       time.Time
	now             func() time.Time
	logger          *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:       make([]int64, 0, 1024),
		wordCounts:      make(map[string]int64),
		zeroResultWords: make(map[string]int64),
		startTime:       time.Now(),
		now:             time.Now,
		logger:          logger.WithComponent("analytics-aggregator"),
	}
}

// HandleEvent adapts agg to a Kafka consumer. Undecodable messages are
// logged and acknowledged so they are not redelivered forever.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		ev, err := kafka.DecodeJSON[QueryEvent](value)
		if err != nil {
			agg.logger.Error("skipping undecodable query event", "key", string(key), "error", err)
			return nil
		}
		agg.Record(ev)
		return nil
	}
}

func (a *Aggregator) Record(ev QueryEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalQueries++
	if ev.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	a.wordCounts[ev.Word]++

	if len(a.latencies) < maxLatencies {
		a.latencies = append(a.latencies, ev.LatencyMs)
	} else {
		a.latencies[a.next] = ev.LatencyMs
		a.next = (a.next + 1) % maxLatencies
	}

	if ev.Failed {
		a.stats.FailedQueries++
		return
	}
	if ev.Results == 0 {
		a.stats.ZeroResultCount++
		a.zeroResultWords[ev.Word]++
	}
	if ev.Dropped > 0 {
		a.stats.TruncatedCount++
		a.stats.RecordsDropped += int64(ev.Dropped)
	}
	if ev.Warnings > 0 {
		a.stats.PartialCount++
		a.stats.ShardWarnings += int64(ev.Warnings)
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopWords = topN(a.wordCounts, 10)
	stats.ZeroResultWords = topN(a.zeroResultWords, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalQueries) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n most frequent words, ties broken alphabetically.
func topN(counts map[string]int64, n int) []WordCount {
	result := make([]WordCount, 0, len(counts))
	for word, count := range counts {
		result = append(result, WordCount{Word: word, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Word < result[j].Word
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
