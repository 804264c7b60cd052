package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
)

func TestStatAndCompress(t *testing.T) {
	root := t.TempDir()
	for name, index := range map[string]string{
		"s1": "apple 3 0\npear 0 2\n",
		"s2": "apple 1 1\n",
	} {
		dir := filepath.Join(root, name)
		require.NoError(t, os.Mkdir(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "filenames"), []byte("a.txt\nb.txt\n"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "index"), []byte(index), 0o644))
	}

	var out bytes.Buffer
	require.NoError(t, stat(&out, []string{root}))
	assert.Contains(t, out.String(), "SHARD")
	assert.Regexp(t, `total\s+4\s+3\s+4\s+7`, out.String())

	out.Reset()
	require.NoError(t, rewrite(&out, []string{filepath.Join(root, "s1")}, true))
	assert.FileExists(t, filepath.Join(root, "s1", shardindex.ZstdIndexFile))
	assert.NoFileExists(t, filepath.Join(root, "s1", shardindex.IndexFile))

	idx, err := shardindex.Load(filepath.Join(root, "s1"))
	require.NoError(t, err)
	assert.Equal(t, 2, idx.NumWords())
}
