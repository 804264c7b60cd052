// Package query reads query words and prints answers.
package query

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
	pkgerrors "github.com/Adithya-Monish-Kumar-K/freqsearch/pkg/errors"
)

// ErrWordTooLong is returned for a query word that does not fit a word
// frame. The reader stays usable.
var ErrWordTooLong = fmt.Errorf("%w: query word too long", pkgerrors.ErrInvalidInput)

// Reader yields one query word per input line.
type Reader struct {
	sc   *bufio.Scanner
	line int
}

func NewReader(r io.Reader) *Reader {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	return &Reader{sc: sc}
}

// Next returns the next non-empty query word. It returns io.EOF at the end
// of input and ErrWordTooLong, naming the word, for oversized input.
func (r *Reader) Next() (string, error) {
	for r.sc.Scan() {
		r.line++
		word := Normalize(r.sc.Text())
		if word == "" {
			continue
		}
		if len(word) >= freq.MaxWord {
			return "", fmt.Errorf("line %d: %q: %w (limit %d bytes)", r.line, word, ErrWordTooLong, freq.MaxWord-1)
		}
		return word, nil
	}
	if err := r.sc.Err(); err != nil {
		return "", fmt.Errorf("reading queries: %w", err)
	}
	return "", io.EOF
}

// Normalize strips surrounding whitespace and anything after the last
// ASCII letter or digit.
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimRightFunc(s, func(r rune) bool {
		return !isAlnum(r)
	})
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
