// Package job adapts closures to the shard queue's Job interface.
package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNilJobFunc is returned when a job has no function to run.
var ErrNilJobFunc = errors.New("nil JobFunc")

// jobFunc lets us pass plain closures to the shard executor.
type jobFunc func(context.Context) error

func (f jobFunc) Run(ctx context.Context) error {
	if f == nil {
		return fmt.Errorf("jobfunc: %w", ErrNilJobFunc)
	}
	return f(ctx)
}

// New creates a new job function from a closure.
func New(fn func(context.Context) error) jobFunc {
	return jobFunc(fn)
}

// Tracked is a job whose final outcome can be awaited. The executor reports
// the outcome through Complete once retries are exhausted.
type Tracked struct {
	fn   jobFunc
	once sync.Once
	done chan struct{}
	err  error
}

// NewTracked wraps fn in a Tracked job.
func NewTracked(fn func(context.Context) error) *Tracked {
	return &Tracked{fn: jobFunc(fn), done: make(chan struct{})}
}

func (t *Tracked) Run(ctx context.Context) error { return t.fn.Run(ctx) }

// Complete records the final outcome. Only the first call has an effect.
func (t *Tracked) Complete(err error) {
	t.once.Do(func() {
		t.err = err
		close(t.done)
	})
}

// Done is closed once the outcome is known.
func (t *Tracked) Done() <-chan struct{} { return t.done }

// Err returns the final outcome; it is nil until Done is closed.
func (t *Tracked) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the outcome is known or ctx is done.
func (t *Tracked) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
