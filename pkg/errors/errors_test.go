package errors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardErrorUnwrap(t *testing.T) {
	err := NewShardf("data/s1", ErrIndexFormat, "index:%d: expected %d counts", 3, 2)
	wrapped := fmt.Errorf("loading: %w", err)

	assert.True(t, Is(wrapped, ErrIndexFormat))
	assert.Equal(t, "data/s1", ShardOf(wrapped))
	assert.Equal(t, "shard data/s1: malformed index: index:3: expected 2 counts", err.Error())
	assert.Equal(t, "shard data/s2: shard timed out", NewShard("data/s2", ErrShardTimeout, "").Error())
}

func TestIsShardLevel(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrIndexIO, true},
		{ErrIndexFormat, true},
		{fmt.Errorf("x: %w", ErrWorkerFailed), true},
		{ErrProtocol, true},
		{ErrShardTimeout, true},
		{ErrNoShards, false},
		{ErrInvalidInput, false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsShardLevel(tt.err), "%v", tt.err)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(ErrNoShards))
	assert.Equal(t, 2, ExitCode(NewShard("s", ErrIndexIO, "")))
	assert.Equal(t, 130, ExitCode(fmt.Errorf("query: %w", context.Canceled)))
}
