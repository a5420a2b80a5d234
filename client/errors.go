package client

import (
	"errors"

	"github.com/heartbook/heartbook/client/internal/shardqueue"
	"github.com/heartbook/heartbook/internal/model"
)

// ErrBackPressure is returned when the client's write queue is full.
var ErrBackPressure = shardqueue.ErrQueueFull

// ErrClosed is returned by every mutating call after Close.
var ErrClosed = shardqueue.ErrExecutorClosed

// IsBackPressure reports whether err is a back-pressure error.
func IsBackPressure(err error) bool { return errors.Is(err, ErrBackPressure) }

// Re-exported so callers compare against a single symbol.
var (
	ErrNotFound   = model.ErrNotFound
	ErrValidation = model.ErrValidation
)
