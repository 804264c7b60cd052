package worker

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/channel"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/shardindex"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

var fruit = &shardindex.Index{
	Dir:   "fruit",
	Files: []string{"a.txt", "b.txt", "c.txt"},
	Entries: []shardindex.Entry{
		{Word: "apple", Frequencies: []int{3, 0, 5}},
		{Word: "pear", Frequencies: []int{0, 0, 0}},
		{Word: "apple", Frequencies: []int{9, 9, 9}},
	},
}

type sourceFunc func(ctx context.Context, dir string) (*shardindex.Index, error)

func (f sourceFunc) Get(ctx context.Context, dir string) (*shardindex.Index, error) {
	return f(ctx, dir)
}

func staticSource(idx *shardindex.Index) IndexSource {
	return sourceFunc(func(context.Context, string) (*shardindex.Index, error) { return idx, nil })
}

func TestLookup(t *testing.T) {
	tests := []struct {
		name string
		word string
		want []freq.Record
	}{
		{
			name: "ascending file id, zeros skipped, first entry wins",
			word: "apple",
			want: []freq.Record{{Frequency: 3, Filename: "a.txt"}, {Frequency: 5, Filename: "c.txt"}, freq.Sentinel()},
		},
		{name: "all-zero row", word: "pear", want: []freq.Record{freq.Sentinel()}},
		{name: "absent word", word: "plum", want: []freq.Record{freq.Sentinel()}},
		{name: "exact match only", word: "Apple", want: []freq.Record{freq.Sentinel()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slices.Collect(Lookup(fruit, tt.word)))
		})
	}
}

func TestLookupStopsEarly(t *testing.T) {
	var n int
	for range Lookup(fruit, "apple") {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

// drain runs a worker against src and collects what the coordinator sees.
func drain(t *testing.T, src IndexSource, word string) ([]freq.Record, error) {
	t.Helper()
	w, c := channel.New("fruit")
	defer c.Close()
	go Run(context.Background(), src, "fruit", w)

	require.NoError(t, c.SendWord(word))
	var got []freq.Record
	for {
		r, err := c.Recv()
		if err != nil {
			return got, err
		}
		if r.IsSentinel() {
			return got, nil
		}
		got = append(got, r)
	}
}

func TestRunStreamsLookup(t *testing.T) {
	got, err := drain(t, staticSource(fruit), "apple")
	require.NoError(t, err)
	assert.Equal(t, []freq.Record{{Frequency: 3, Filename: "a.txt"}, {Frequency: 5, Filename: "c.txt"}}, got)

	got, err = drain(t, staticSource(fruit), "plum")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestRunReportsLoadFailure(t *testing.T) {
	src := sourceFunc(func(_ context.Context, dir string) (*shardindex.Index, error) {
		return nil, pkgerrors.NewShard(dir, pkgerrors.ErrIndexFormat, "index:1: bad")
	})

	_, err := drain(t, src, "apple")
	assert.ErrorIs(t, err, pkgerrors.ErrWorkerFailed)
	assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
}

func TestRunRecoversPanic(t *testing.T) {
	src := sourceFunc(func(context.Context, string) (*shardindex.Index, error) {
		panic(errors.New("boom"))
	})

	_, err := drain(t, src, "apple")
	assert.ErrorIs(t, err, pkgerrors.ErrWorkerFailed)
	assert.ErrorContains(t, err, "boom")
}
