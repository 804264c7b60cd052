package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/freqsearch/internal/freq"
)

func TestBufferOverflow(t *testing.T) {
	b := New(2)

	assert.True(t, b.Append(freq.Record{Frequency: 3, Filename: "a"}))
	assert.False(t, b.Append(freq.Sentinel()))
	assert.True(t, b.Append(freq.Record{Frequency: 5, Filename: "c"}))
	assert.False(t, b.Overflowed())

	assert.False(t, b.Append(freq.Record{Frequency: 4, Filename: "x"}))
	assert.False(t, b.Append(freq.Record{Frequency: 9, Filename: "y"}))

	assert.True(t, b.Overflowed())
	assert.Equal(t, 2, b.Dropped())
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []freq.Record{{Frequency: 3, Filename: "a"}, {Frequency: 5, Filename: "c"}}, b.Records())
}

func TestBufferReset(t *testing.T) {
	b := New(1)
	b.Append(freq.Record{Frequency: 1, Filename: "a"})
	b.Append(freq.Record{Frequency: 2, Filename: "b"})

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Zero(t, b.Dropped())
	assert.False(t, b.Overflowed())
	assert.Equal(t, 1, b.Cap())
}

func TestNewRejectsZeroCapacity(t *testing.T) {
	assert.Panics(t, func() { New(0) })
}
