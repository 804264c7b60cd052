package channel

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

func TestFrameCodec(t *testing.T) {
	buf := make([]byte, FrameSize)
	require.NoError(t, EncodeRecord(buf, freq.Record{Frequency: 42, Filename: "docs/a.txt"}))

	got, err := DecodeRecord(buf)
	require.NoError(t, err)
	assert.Equal(t, freq.Record{Frequency: 42, Filename: "docs/a.txt"}, got)

	require.NoError(t, EncodeRecord(buf, freq.Sentinel()))
	got, err = DecodeRecord(buf)
	require.NoError(t, err)
	assert.True(t, got.IsSentinel())
}

func TestFrameCodecRejectsOversized(t *testing.T) {
	buf := make([]byte, FrameSize)
	err := EncodeRecord(buf, freq.Record{Frequency: 1, Filename: strings.Repeat("x", freq.MaxFilename)})
	assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)

	err = EncodeRecord(buf, freq.Record{Frequency: -1, Filename: "a"})
	assert.ErrorIs(t, err, pkgerrors.ErrProtocol)

	word := make([]byte, WordFrameSize)
	assert.ErrorIs(t, EncodeWord(word, strings.Repeat("w", freq.MaxWord)), pkgerrors.ErrInvalidInput)
	assert.ErrorIs(t, EncodeWord(word, ""), pkgerrors.ErrInvalidInput)

	require.NoError(t, EncodeWord(word, strings.Repeat("w", freq.MaxWord-1)))
	w, err := DecodeWord(word)
	require.NoError(t, err)
	assert.Len(t, w, freq.MaxWord-1)
}

// serve runs fn as the worker side of a fresh channel.
func serve(t *testing.T, fn func(w *WorkerEnd)) *CoordinatorEnd {
	t.Helper()
	w, c := New("shard-a")
	go fn(w)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestStreamDeliversRecordsThenSentinel(t *testing.T) {
	c := serve(t, func(w *WorkerEnd) {
		defer w.Close()
		word, err := w.ReadWord(context.Background())
		if err != nil || word != "apple" {
			w.Fail(errors.New("unexpected word"))
			return
		}
		_ = w.Send(freq.Record{Frequency: 3, Filename: "a.txt"})
		_ = w.Send(freq.Record{Frequency: 5, Filename: "c.txt"})
		_ = w.Send(freq.Sentinel())
	})

	require.NoError(t, c.SendWord("apple"))

	var got []freq.Record
	for {
		r, err := c.Recv()
		require.NoError(t, err)
		if r.IsSentinel() {
			break
		}
		got = append(got, r)
	}
	assert.Equal(t, []freq.Record{{Frequency: 3, Filename: "a.txt"}, {Frequency: 5, Filename: "c.txt"}}, got)
	assert.True(t, c.Finished())

	_, err := c.Recv()
	assert.ErrorIs(t, err, ErrStreamFinished)
}

func TestStreamAbnormalEndings(t *testing.T) {
	t.Run("closed without sentinel", func(t *testing.T) {
		c := serve(t, func(w *WorkerEnd) {
			_ = w.Send(freq.Record{Frequency: 1, Filename: "a"})
			w.Close()
		})
		r, err := c.Recv()
		require.NoError(t, err)
		assert.Equal(t, 1, r.Frequency)

		_, err = c.Recv()
		assert.ErrorIs(t, err, ErrMissingSentinel)
		assert.ErrorIs(t, err, pkgerrors.ErrProtocol)
	})

	t.Run("worker failure", func(t *testing.T) {
		cause := pkgerrors.NewShard("shard-a", pkgerrors.ErrIndexFormat, "index:2: bad count")
		c := serve(t, func(w *WorkerEnd) {
			w.Fail(cause)
		})
		_, err := c.Recv()
		assert.ErrorIs(t, err, pkgerrors.ErrWorkerFailed)
		assert.ErrorIs(t, err, pkgerrors.ErrIndexFormat)
		assert.Equal(t, "shard-a", pkgerrors.ShardOf(err))
	})

	t.Run("short frame", func(t *testing.T) {
		c := serve(t, func(w *WorkerEnd) {
			_, _ = w.out.Write([]byte{0, 0, 0, 7, 'a'})
			w.Close()
		})
		_, err := c.Recv()
		assert.ErrorIs(t, err, ErrShortFrame)
	})
}

func TestAbortUnblocksWorker(t *testing.T) {
	sendErr := make(chan error, 1)
	c := serve(t, func(w *WorkerEnd) {
		sendErr <- w.Send(freq.Record{Frequency: 1, Filename: "a"})
	})

	c.Abort(pkgerrors.ErrShardTimeout)
	assert.ErrorIs(t, <-sendErr, pkgerrors.ErrShardTimeout)
}

func TestReadWordHonoursContext(t *testing.T) {
	w, _ := New("s")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.ReadWord(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSendWordOnce(t *testing.T) {
	_, c := New("s")
	require.NoError(t, c.SendWord("pear"))
	assert.Error(t, c.SendWord("pear"))
}
