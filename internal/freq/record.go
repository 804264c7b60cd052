// Package freq defines the frequency record exchanged between shard workers,
// the coordinator and the ranker.
package freq

import "fmt"

const (
	// MaxWord bounds a query word, terminator included.
	MaxWord = 32
	// MaxFilename bounds a file name, terminator included.
	MaxFilename = 256
)

// Record is one (frequency, filename) result. A zero Frequency marks the end
// of a result stream.
type Record struct {
	Frequency int    `json:"frequency"`
	Filename  string `json:"filename"`
}

// Sentinel returns the end-of-stream record.
func Sentinel() Record {
	return Record{}
}

func (r Record) IsSentinel() bool {
	return r.Frequency == 0
}

func (r Record) String() string {
	return fmt.Sprintf("%d %s", r.Frequency, r.Filename)
}
