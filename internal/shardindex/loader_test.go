package shardindex

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

func writeShard(t *testing.T, index string, filenames ...string) string {
	t.Helper()
	dir := t.TempDir()
	names := ""
	if len(filenames) > 0 {
		names = strings.Join(filenames, "\n") + "\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, FilenamesFile), []byte(names), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte(index), 0o644))
	return dir
}

func TestLoad(t *testing.T) {
	dir := writeShard(t, "apple 3 0 5\n\n# comment\nzebra 0 1 0\napple 9 9 9\n", "a.txt", "b.txt", "c.txt")

	idx, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, idx.Dir)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, idx.Files)
	require.Len(t, idx.Entries, 3)
	// Load order is kept and duplicates are not re-validated.
	assert.Equal(t, Entry{Word: "apple", Frequencies: []int{3, 0, 5}}, idx.Entries[0])
	assert.Equal(t, "zebra", idx.Entries[1].Word)
	assert.Equal(t, "apple", idx.Entries[2].Word)

	st := idx.Stats()
	assert.Equal(t, Stats{Files: 3, Words: 3, Occurrences: 36, Postings: 6}, st)
}

func TestLoadEmptyShard(t *testing.T) {
	dir := writeShard(t, "")
	idx, err := Load(dir)
	require.NoError(t, err)
	assert.Zero(t, idx.NumFiles())
	assert.Zero(t, idx.NumWords())
}

func TestLoadFormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		index   string
		files   []string
		wantMsg string
	}{
		{"too few counts", "apple 1\n", []string{"a", "b"}, "index:1: word \"apple\" has 1 counts, shard has 2 files"},
		{"too many counts", "ok 1 2\napple 1 2 3\n", []string{"a", "b"}, "index:2:"},
		{"not an integer", "apple 1 x\n", []string{"a", "b"}, "\"x\" is not an integer"},
		{"negative", "apple -1 2\n", []string{"a", "b"}, "count 0 is negative"},
		{"word too long", strings.Repeat("w", 40) + " 1\n", []string{"a"}, "limit is 31"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeShard(t, tt.index, tt.files...)
			_, err := Load(dir)
			require.Error(t, err)
			assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, dir, pkgerrors.ShardOf(err))
		})
	}
}

func TestLoadBadFilenames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FilenamesFile), []byte("a.txt\n\nc.txt\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("x 1 1 1\n"), 0o644))

	_, err := Load(dir)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
	assert.Contains(t, err.Error(), "filenames:2: empty file name")

	long := strings.Repeat("n", 300)
	require.NoError(t, os.WriteFile(filepath.Join(dir, FilenamesFile), []byte(long+"\n"), 0o644))
	_, err = Load(dir)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
}

func TestLoadIOErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope"))
		assert.ErrorIs(t, err, pkgerrors.ErrIndexIO)
	})
	t.Run("missing index", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FilenamesFile), []byte("a\n"), 0o644))
		_, err := Load(dir)
		assert.ErrorIs(t, err, pkgerrors.ErrIndexIO)
		assert.Contains(t, err.Error(), "opening index")
	})
}

func TestWriteThenLoad(t *testing.T) {
	idx := &Index{
		Files: []string{"a.txt", "b.txt"},
		Entries: []Entry{
			{Word: "pear", Frequencies: []int{0, 2}},
			{Word: "apple", Frequencies: []int{7, 1}},
		},
	}
	for _, compress := range []bool{false, true} {
		dir := t.TempDir()
		require.NoError(t, Write(dir, idx, WriteOptions{Compress: compress}))

		_, plainErr := os.Stat(filepath.Join(dir, IndexFile))
		_, zstErr := os.Stat(filepath.Join(dir, ZstdIndexFile))
		assert.Equal(t, compress, os.IsNotExist(plainErr))
		assert.Equal(t, !compress, os.IsNotExist(zstErr))

		got, err := Load(dir)
		require.NoError(t, err)
		assert.Equal(t, idx.Files, got.Files)
		assert.Equal(t, idx.Entries, got.Entries)
	}
}

func TestWriteRejectsInconsistentIndex(t *testing.T) {
	idx := &Index{
		Files:   []string{"a.txt"},
		Entries: []Entry{{Word: "pear", Frequencies: []int{1, 2}}},
	}
	assert.ErrorContains(t, Write(t.TempDir(), idx, WriteOptions{}), "shard has 1 files")

	idx = &Index{Files: []string{"a"}, Entries: []Entry{{Word: "two words", Frequencies: []int{1}}}}
	assert.ErrorContains(t, Write(t.TempDir(), idx, WriteOptions{}), "invalid word")
}
