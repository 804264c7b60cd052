// Package analytics publishes per-query events and aggregates them into
// usage statistics.
package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/coordinator"
)

// QueryEvent describes one answered (or failed) query.
type QueryEvent struct {
	QueryID   string    `json:"query_id"`
	Word      string    `json:"word"`
	Results   int       `json:"results"`
	Dropped   int       `json:"dropped"`
	Warnings  int       `json:"warnings"`
	Shards    int       `json:"shards"`
	LatencyMs int64     `json:"latency_ms"`
	CacheHit  bool      `json:"cache_hit"`
	Failed    bool      `json:"failed"`
	Timestamp time.Time `json:"timestamp"`
}

// NewQueryEvent summarises ans. A nil ans records a failed query.
func NewQueryEvent(queryID, word string, ans *coordinator.Answer, latency time.Duration, cacheHit bool) QueryEvent {
	ev := QueryEvent{
		QueryID:   queryID,
		Word:      word,
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
	}
	if ans == nil {
		ev.Failed = true
		return ev
	}
	ev.Results = len(ans.Results)
	ev.Dropped = ans.Dropped
	ev.Warnings = len(ans.Warnings)
	ev.Shards = ans.Shards
	return ev
}
