package channel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

// Frame layout. A record frame is a big-endian int32 frequency followed by
// the NUL-padded file name. A word frame is the NUL-padded query word.
const (
	FrequencySize = 4
	FrameSize     = FrequencySize + freq.MaxFilename
	WordFrameSize = freq.MaxWord
)

// EncodeRecord writes r into buf, which must be FrameSize bytes long.
func EncodeRecord(buf []byte, r freq.Record) error {
	if len(buf) != FrameSize {
		return fmt.Errorf("%w: record frame buffer is %d bytes, want %d", pkgerrors.ErrInternal, len(buf), FrameSize)
	}
	if r.Frequency < 0 || r.Frequency > math.MaxInt32 {
		return fmt.Errorf("%w: frequency %d does not fit a frame", pkgerrors.ErrProtocol, r.Frequency)
	}
	if err := putPadded(buf[FrequencySize:], r.Filename); err != nil {
		return fmt.Errorf("filename %q: %w", r.Filename, err)
	}
	binary.BigEndian.PutUint32(buf[:FrequencySize], uint32(r.Frequency))
	return nil
}

// DecodeRecord parses a FrameSize-byte frame.
func DecodeRecord(buf []byte) (freq.Record, error) {
	if len(buf) != FrameSize {
		return freq.Record{}, fmt.Errorf("%w: record frame is %d bytes, want %d", pkgerrors.ErrProtocol, len(buf), FrameSize)
	}
	n := int32(binary.BigEndian.Uint32(buf[:FrequencySize]))
	if n < 0 {
		return freq.Record{}, fmt.Errorf("%w: negative frequency %d", pkgerrors.ErrProtocol, n)
	}
	if n == 0 {
		return freq.Sentinel(), nil
	}
	return freq.Record{
		Frequency: int(n),
		Filename:  padded(buf[FrequencySize:]),
	}, nil
}

// EncodeWord writes word into buf, which must be WordFrameSize bytes long.
func EncodeWord(buf []byte, word string) error {
	if len(buf) != WordFrameSize {
		return fmt.Errorf("%w: word frame buffer is %d bytes, want %d", pkgerrors.ErrInternal, len(buf), WordFrameSize)
	}
	if word == "" {
		return fmt.Errorf("%w: empty query word", pkgerrors.ErrInvalidInput)
	}
	if err := putPadded(buf, word); err != nil {
		return fmt.Errorf("query word %q: %w", word, err)
	}
	return nil
}

func DecodeWord(buf []byte) (string, error) {
	if len(buf) != WordFrameSize {
		return "", fmt.Errorf("%w: word frame is %d bytes, want %d", pkgerrors.ErrProtocol, len(buf), WordFrameSize)
	}
	word := padded(buf)
	if word == "" {
		return "", fmt.Errorf("%w: empty query word frame", pkgerrors.ErrProtocol)
	}
	return word, nil
}

// putPadded copies s into dst and zero-fills the rest. One byte is always
// left for the terminator.
func putPadded(dst []byte, s string) error {
	if len(s) >= len(dst) {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", pkgerrors.ErrInvalidInput, len(s), len(dst)-1)
	}
	if bytes.IndexByte([]byte(s), 0) >= 0 {
		return fmt.Errorf("%w: contains NUL byte", pkgerrors.ErrInvalidInput)
	}
	n := copy(dst, s)
	clear(dst[n:])
	return nil
}

func padded(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
