package shardindex

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

const maxLineSize = 16 << 20

// Load reads the file-name table and the word/frequency table of the shard
// in dir. Open and read failures wrap ErrIndexIO; malformed records wrap
// ErrIndexFormat and name the offending file and line.
func Load(dir string) (*Index, error) {
	files, err := loadFilenames(dir)
	if err != nil {
		return nil, err
	}
	entries, err := loadEntries(dir, len(files))
	if err != nil {
		return nil, err
	}
	return &Index{
		Dir:     dir,
		Files:   files,
		Entries: entries,
	}, nil
}

func loadFilenames(dir string) ([]string, error) {
	path := filepath.Join(dir, FilenamesFile)
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexIO, "opening %s: %v", FilenamesFile, err)
	}
	defer f.Close()

	files := make([]string, 0, 16)
	sc := newScanner(f)
	line := 0
	for sc.Scan() {
		line++
		name := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(name) == "" {
			return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexFormat, "%s:%d: empty file name", FilenamesFile, line)
		}
		if len(name) >= freq.MaxFilename {
			return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexFormat,
				"%s:%d: file name is %d bytes, limit is %d", FilenamesFile, line, len(name), freq.MaxFilename-1)
		}
		files = append(files, name)
	}
	if err := sc.Err(); err != nil {
		return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexIO, "reading %s: %v", FilenamesFile, err)
	}
	return files, nil
}

func loadEntries(dir string, numFiles int) ([]Entry, error) {
	r, name, err := openIndex(dir)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries := make([]Entry, 0, 256)
	sc := newScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		entry, err := parseEntry(text, numFiles)
		if err != nil {
			return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexFormat, "%s:%d: %v", name, line, err)
		}
		entries = append(entries, entry)
	}
	if err := sc.Err(); err != nil {
		if err == bufio.ErrTooLong {
			return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexFormat, "%s:%d: record too long", name, line+1)
		}
		return nil, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexIO, "reading %s: %v", name, err)
	}
	return entries, nil
}

func parseEntry(text string, numFiles int) (Entry, error) {
	fields := strings.Fields(text)
	word := fields[0]
	if len(word) >= freq.MaxWord {
		return Entry{}, fmt.Errorf("word %q is %d bytes, limit is %d", word, len(word), freq.MaxWord-1)
	}
	counts := fields[1:]
	if len(counts) != numFiles {
		return Entry{}, fmt.Errorf("word %q has %d counts, shard has %d files", word, len(counts), numFiles)
	}
	frequencies := make([]int, numFiles)
	for i, c := range counts {
		n, err := strconv.Atoi(c)
		if err != nil {
			return Entry{}, fmt.Errorf("word %q: count %d: %q is not an integer", word, i, c)
		}
		if n < 0 {
			return Entry{}, fmt.Errorf("word %q: count %d is negative", word, i)
		}
		frequencies[i] = n
	}
	return Entry{Word: word, Frequencies: frequencies}, nil
}

// openIndex prefers the plain table and falls back to the zstd-compressed one.
func openIndex(dir string) (io.ReadCloser, string, error) {
	plain := filepath.Join(dir, IndexFile)
	f, err := os.Open(plain)
	if err == nil {
		return f, IndexFile, nil
	}
	if !os.IsNotExist(err) {
		return nil, IndexFile, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexIO, "opening %s: %v", IndexFile, err)
	}
	zf, zerr := os.Open(filepath.Join(dir, ZstdIndexFile))
	if zerr != nil {
		return nil, IndexFile, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexIO, "opening %s: %v", IndexFile, err)
	}
	dec, zerr := zstd.NewReader(zf)
	if zerr != nil {
		zf.Close()
		return nil, ZstdIndexFile, pkgerrors.NewShardf(dir, pkgerrors.ErrIndexFormat, "opening %s: %v", ZstdIndexFile, zerr)
	}
	return &zstdReadCloser{dec: dec, file: zf}, ZstdIndexFile, nil
}

type zstdReadCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z *zstdReadCloser) Read(p []byte) (int, error) {
	return z.dec.Read(p)
}

func (z *zstdReadCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}

func newScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return sc
}
