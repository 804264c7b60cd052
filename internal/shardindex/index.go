// Package shardindex loads and holds the per-shard word→frequency table and
// file-name table, and caches loaded shards for the lifetime of the process.
package shardindex

// File names inside a shard directory.
const (
	IndexFile     = "index"
	ZstdIndexFile = "index.zst"
	FilenamesFile = "filenames"
)

// Entry is one distinct word of a shard. Frequencies is indexed by local
// file id and has one slot per file of the shard; 0 means absent.
type Entry struct {
	Word        string
	Frequencies []int
}

// Index is one loaded shard. Entries keep the order they were read in and
// are not sorted by word. An Index is never mutated after Load returns, so
// it may be shared by any number of goroutines.
type Index struct {
	Dir     string
	Files   []string
	Entries []Entry
}

// Stats summarises a shard.
type Stats struct {
	Files       int
	Words       int
	Occurrences int64
	Postings    int64
}

func (idx *Index) NumFiles() int {
	return len(idx.Files)
}

func (idx *Index) NumWords() int {
	return len(idx.Entries)
}

func (idx *Index) Stats() Stats {
	st := Stats{Files: len(idx.Files), Words: len(idx.Entries)}
	for _, e := range idx.Entries {
		for _, f := range e.Frequencies {
			if f > 0 {
				st.Occurrences += int64(f)
				st.Postings++
			}
		}
	}
	return st
}
