// Package aggregator holds the bounded per-query result buffer.
package aggregator

import "github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"

// Buffer collects at most a fixed number of records for one query. Records
// offered after it is full are counted but not stored. A Buffer is owned by
// a single goroutine.
type Buffer struct {
	records  []freq.Record
	capacity int
	dropped  int
}

// New returns an empty buffer holding up to capacity records. capacity must
// be positive.
func New(capacity int) *Buffer {
	if capacity < 1 {
		panic("aggregator: capacity must be positive")
	}
	return &Buffer{
		records:  make([]freq.Record, 0, min(capacity, 1024)),
		capacity: capacity,
	}
}

// Append stores r and reports whether it was kept. Sentinels are ignored.
func (b *Buffer) Append(r freq.Record) bool {
	if r.IsSentinel() {
		return false
	}
	if len(b.records) == b.capacity {
		b.dropped++
		return false
	}
	b.records = append(b.records, r)
	return true
}

func (b *Buffer) Len() int {
	return len(b.records)
}

func (b *Buffer) Cap() int {
	return b.capacity
}

// Overflowed reports whether any record has been dropped.
func (b *Buffer) Overflowed() bool {
	return b.dropped > 0
}

// Dropped is the number of records offered after the buffer filled.
func (b *Buffer) Dropped() int {
	return b.dropped
}

// Records returns the stored records in insertion order. The slice aliases
// the buffer until the next Reset.
func (b *Buffer) Records() []freq.Record {
	return b.records
}

// Reset empties the buffer for reuse by another query.
func (b *Buffer) Reset() {
	clear(b.records)
	b.records = b.records[:0]
	b.dropped = 0
}
