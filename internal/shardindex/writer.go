package shardindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"

	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
)

// WriteOptions controls how Write lays out a shard.
type WriteOptions struct {
	// Compress writes index.zst instead of index.
	Compress bool
}

// Write persists an in-memory Index into dir in the format Load reads. Each
// file is written to a .tmp sibling and renamed into place, and the table
// that is not being written (plain or compressed) is removed so Load cannot
// pick up a stale copy.
func Write(dir string, idx *Index, opts WriteOptions) error {
	if err := validate(idx); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating shard directory: %w", err)
	}
	err := writeAtomic(filepath.Join(dir, FilenamesFile), func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, name := range idx.Files {
			if _, err := bw.WriteString(name + "\n"); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", FilenamesFile, err)
	}

	target, stale := IndexFile, ZstdIndexFile
	if opts.Compress {
		target, stale = ZstdIndexFile, IndexFile
	}
	err = writeAtomic(filepath.Join(dir, target), func(w io.Writer) error {
		if !opts.Compress {
			return writeEntries(w, idx.Entries)
		}
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		if err := writeEntries(enc, idx.Entries); err != nil {
			enc.Close()
			return err
		}
		return enc.Close()
	})
	if err != nil {
		return fmt.Errorf("writing %s: %w", target, err)
	}
	if err := os.Remove(filepath.Join(dir, stale)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale %s: %w", stale, err)
	}
	return nil
}

func writeEntries(w io.Writer, entries []Entry) error {
	bw := bufio.NewWriter(w)
	var line []byte
	for _, e := range entries {
		line = append(line[:0], e.Word...)
		for _, f := range e.Frequencies {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(f), 10)
		}
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeAtomic(path string, fill func(io.Writer) error) error {
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)
	if err := fill(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

func validate(idx *Index) error {
	for i, name := range idx.Files {
		if strings.TrimSpace(name) == "" || strings.ContainsAny(name, "\r\n") {
			return fmt.Errorf("file %d: invalid name %q", i, name)
		}
		if len(name) >= freq.MaxFilename {
			return fmt.Errorf("file %d: name exceeds %d bytes", i, freq.MaxFilename-1)
		}
	}
	for _, e := range idx.Entries {
		if e.Word == "" || strings.ContainsFunc(e.Word, unicode.IsSpace) || strings.HasPrefix(e.Word, "#") {
			return fmt.Errorf("invalid word %q", e.Word)
		}
		if len(e.Word) >= freq.MaxWord {
			return fmt.Errorf("word %q exceeds %d bytes", e.Word, freq.MaxWord-1)
		}
		if len(e.Frequencies) != len(idx.Files) {
			return fmt.Errorf("word %q has %d counts, shard has %d files", e.Word, len(e.Frequencies), len(idx.Files))
		}
		for _, f := range e.Frequencies {
			if f < 0 {
				return fmt.Errorf("word %q has a negative count", e.Word)
			}
		}
	}
	return nil
}
