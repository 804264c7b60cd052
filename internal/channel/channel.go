// Package channel implements the one-shot transport between the coordinator
// and a shard worker: one query word in, a stream of fixed-size record
// frames out, terminated by the end-of-stream frame.
package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

var (
	// ErrMissingSentinel means the worker closed its end without sending
	// the end-of-stream frame.
	ErrMissingSentinel = fmt.Errorf("%w: stream closed before end-of-stream frame", pkgerrors.ErrProtocol)
	// ErrShortFrame means the stream ended in the middle of a frame.
	ErrShortFrame = fmt.Errorf("%w: truncated frame", pkgerrors.ErrProtocol)
	// ErrStreamFinished is returned for reads or writes after the
	// end-of-stream frame.
	ErrStreamFinished = fmt.Errorf("%w: stream already finished", pkgerrors.ErrProtocol)
	errWordSent       = fmt.Errorf("%w: query word already sent", pkgerrors.ErrProtocol)
)

// workerFailure is the close reason a worker attaches to the stream when it
// terminates abnormally.
type workerFailure struct {
	err error
}

func (f *workerFailure) Error() string { return f.err.Error() }
func (f *workerFailure) Unwrap() error { return f.err }

// New creates a connected pair of endpoints for one (query, shard)
// invocation.
func New(shard string) (*WorkerEnd, *CoordinatorEnd) {
	words := make(chan []byte, 1)
	pr, pw := io.Pipe()
	return &WorkerEnd{
			shard: shard,
			words: words,
			out:   pw,
		}, &CoordinatorEnd{
			shard: shard,
			words: words,
			in:    pr,
		}
}

// WorkerEnd is the worker's half: it receives the word and writes frames.
type WorkerEnd struct {
	shard     string
	words     <-chan []byte
	out       *io.PipeWriter
	buf       [FrameSize]byte
	finished  bool
	closeOnce sync.Once
}

// ReadWord blocks until the coordinator has sent the query word.
func (w *WorkerEnd) ReadWord(ctx context.Context) (string, error) {
	select {
	case frame, ok := <-w.words:
		if !ok {
			return "", fmt.Errorf("%w: word channel closed without a word", pkgerrors.ErrProtocol)
		}
		return DecodeWord(frame)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Send writes one record frame. It blocks until the coordinator has read
// the frame or abandoned the stream.
func (w *WorkerEnd) Send(r freq.Record) error {
	if w.finished {
		return ErrStreamFinished
	}
	if err := EncodeRecord(w.buf[:], r); err != nil {
		return err
	}
	if _, err := w.out.Write(w.buf[:]); err != nil {
		return fmt.Errorf("sending frame to coordinator: %w", err)
	}
	if r.IsSentinel() {
		w.finished = true
	}
	return nil
}

// Fail terminates the stream abnormally; the coordinator's next Recv
// returns an error wrapping ErrWorkerFailed and err.
func (w *WorkerEnd) Fail(err error) {
	w.closeOnce.Do(func() {
		w.out.CloseWithError(&workerFailure{err: err})
	})
}

// Close releases the worker's end. Closing before the end-of-stream frame
// was sent is reported to the coordinator as ErrMissingSentinel.
func (w *WorkerEnd) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.out.Close()
	})
	return err
}

// CoordinatorEnd is the coordinator's half: it sends the word and reads
// frames.
type CoordinatorEnd struct {
	shard     string
	words     chan<- []byte
	in        *io.PipeReader
	buf       [FrameSize]byte
	wordSent  bool
	finished  bool
	closeOnce sync.Once
}

// SendWord hands the query word to the worker. It never blocks.
func (c *CoordinatorEnd) SendWord(word string) error {
	if c.wordSent {
		return errWordSent
	}
	frame := make([]byte, WordFrameSize)
	if err := EncodeWord(frame, word); err != nil {
		return err
	}
	c.words <- frame
	c.wordSent = true
	close(c.words)
	return nil
}

// Recv blocks until the next frame arrives. The end-of-stream frame is
// returned as freq.Sentinel() with a nil error; every abnormal ending is an
// error distinguishable from it.
func (c *CoordinatorEnd) Recv() (freq.Record, error) {
	if c.finished {
		return freq.Record{}, ErrStreamFinished
	}
	_, err := io.ReadFull(c.in, c.buf[:])
	if err != nil {
		return freq.Record{}, c.classify(err)
	}
	r, err := DecodeRecord(c.buf[:])
	if err != nil {
		return freq.Record{}, err
	}
	if r.IsSentinel() {
		c.finished = true
	}
	return r, nil
}

// Finished reports whether the end-of-stream frame has been received.
func (c *CoordinatorEnd) Finished() bool {
	return c.finished
}

// Abort abandons the stream; a worker blocked in Send fails with reason.
func (c *CoordinatorEnd) Abort(reason error) {
	c.closeOnce.Do(func() {
		c.in.CloseWithError(reason)
	})
}

// Close releases the coordinator's end.
func (c *CoordinatorEnd) Close() error {
	c.Abort(io.ErrClosedPipe)
	return nil
}

func (c *CoordinatorEnd) classify(err error) error {
	var failure *workerFailure
	switch {
	case errors.As(err, &failure):
		if errors.Is(failure.err, pkgerrors.ErrWorkerFailed) {
			return failure.err
		}
		return fmt.Errorf("%w: %w", pkgerrors.ErrWorkerFailed, failure.err)
	case err == io.EOF:
		return ErrMissingSentinel
	case err == io.ErrUnexpectedEOF:
		return ErrShortFrame
	default:
		return fmt.Errorf("reading frame from shard %s: %w", c.shard, err)
	}
}
