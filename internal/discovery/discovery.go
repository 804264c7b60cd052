// Package discovery enumerates the shard directories under a root.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

// Shards returns the shard directories under root in lexical order. Hidden
// entries are ignored. A root that itself holds an index is its own single
// shard.
func Shards(root string) ([]string, error) {
	if isShard(root) {
		return []string{root}, nil
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("reading shard root %s: %w", root, err)
	}

	var shards []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			continue
		}
		path := filepath.Join(root, e.Name())
		// Stat follows symlinked shard directories.
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}
		if info.IsDir() {
			shards = append(shards, path)
		}
	}
	if len(shards) == 0 {
		return nil, fmt.Errorf("%w under %s", pkgerrors.ErrNoShards, root)
	}
	return shards, nil
}

func isShard(dir string) bool {
	for _, name := range []string{shardindex.IndexFile, shardindex.ZstdIndexFile} {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && info.Mode().IsRegular() {
			return true
		}
	}
	return false
}
