// Package errors defines the sentinel errors shared across the engine and
// classifies them into fatal and shard-level failures.
package errors

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrIndexIO          = errors.New("index i/o error")
	ErrIndexFormat      = errors.New("malformed index")
	ErrShardUnavailable = errors.New("shard unavailable")
	ErrWorkerFailed     = errors.New("shard worker failed")
	ErrProtocol         = errors.New("result channel protocol violation")
	ErrShardTimeout     = errors.New("shard timed out")
	ErrInvalidInput     = errors.New("invalid input")
	ErrInternal         = errors.New("internal error")
	ErrNoShards         = errors.New("no shards found")
)

// ShardError attaches the failing shard location to an underlying error.
type ShardError struct {
	Shard   string
	Err     error
	Message string
}

func (e *ShardError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("shard %s: %s", e.Shard, e.Err.Error())
	}
	return fmt.Sprintf("shard %s: %s: %s", e.Shard, e.Err.Error(), e.Message)
}

func (e *ShardError) Unwrap() error {
	return e.Err
}

func NewShard(shard string, sentinel error, message string) *ShardError {
	return &ShardError{
		Shard:   shard,
		Err:     sentinel,
		Message: message,
	}
}

func NewShardf(shard string, sentinel error, format string, args ...any) *ShardError {
	return &ShardError{
		Shard:   shard,
		Err:     sentinel,
		Message: fmt.Sprintf(format, args...),
	}
}

// ShardOf returns the shard named by err, or "" when err carries none.
func ShardOf(err error) string {
	var shardErr *ShardError
	if errors.As(err, &shardErr) {
		return shardErr.Shard
	}
	return ""
}

// IsShardLevel reports whether err is confined to a single shard and can be
// surfaced as a partial-result warning instead of aborting the engine.
func IsShardLevel(err error) bool {
	switch {
	case errors.Is(err, ErrIndexIO),
		errors.Is(err, ErrIndexFormat),
		errors.Is(err, ErrShardUnavailable),
		errors.Is(err, ErrWorkerFailed),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrShardTimeout):
		return true
	default:
		return false
	}
}

// ExitCode maps a terminal error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return 130
	case IsShardLevel(err):
		return 2
	default:
		return 1
	}
}

// Is, As and Join re-export the standard helpers so callers need one import.
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target any) bool { return errors.As(err, target) }

func Join(errs ...error) error { return errors.Join(errs...) }
