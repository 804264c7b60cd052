// Command shardtool inspects and rewrites index shards.
//
// Usage:
//
//	shardtool stat DIR...        print per-shard statistics
//	shardtool compress DIR...    rewrite index as index.zst
//	shardtool decompress DIR...  rewrite index.zst as index
//
// A DIR that is not itself a shard is expanded to the shards beneath it.
package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/discovery"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/logger"
)

func main() {
	logger.Setup("warn", "text")
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}
	var err error
	switch cmd, dirs := os.Args[1], os.Args[2:]; cmd {
	case "stat":
		err = stat(os.Stdout, dirs)
	case "compress":
		err = rewrite(os.Stdout, dirs, true)
	case "decompress":
		err = rewrite(os.Stdout, dirs, false)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "shardtool: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: shardtool stat|compress|decompress DIR...")
}

func expand(dirs []string) ([]string, error) {
	var shards []string
	for _, d := range dirs {
		found, err := discovery.Shards(d)
		if err != nil {
			return nil, err
		}
		shards = append(shards, found...)
	}
	return shards, nil
}

func stat(w io.Writer, dirs []string) error {
	shards, err := expand(dirs)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SHARD\tFILES\tWORDS\tPOSTINGS\tOCCURRENCES")
	var total shardindex.Stats
	for _, dir := range shards {
		idx, err := shardindex.Load(dir)
		if err != nil {
			return err
		}
		st := idx.Stats()
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", dir, st.Files, st.Words, st.Postings, st.Occurrences)
		total.Files += st.Files
		total.Words += st.Words
		total.Postings += st.Postings
		total.Occurrences += st.Occurrences
	}
	if len(shards) > 1 {
		fmt.Fprintf(tw, "total\t%d\t%d\t%d\t%d\n", total.Files, total.Words, total.Postings, total.Occurrences)
	}
	return tw.Flush()
}

func rewrite(w io.Writer, dirs []string, compress bool) error {
	shards, err := expand(dirs)
	if err != nil {
		return err
	}
	for _, dir := range shards {
		idx, err := shardindex.Load(dir)
		if err != nil {
			return err
		}
		if err := shardindex.Write(dir, idx, shardindex.WriteOptions{Compress: compress}); err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %d words rewritten\n", dir, idx.NumWords())
	}
	return nil
}
