// Package ranker orders aggregated frequency records.
package ranker

import (
	"sort"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
)

// Rank sorts records in place by descending frequency. Records with equal
// frequency keep their relative order. Filenames are never compared.
func Rank(records []freq.Record) []freq.Record {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Frequency > records[j].Frequency
	})
	return records
}

// Top ranks records and returns at most limit of them. A non-positive limit
// returns everything.
func Top(records []freq.Record, limit int) []freq.Record {
	Rank(records)
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	return records
}
