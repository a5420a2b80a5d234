package shardqueue

import "context"

// Job is a unit of work executed by a ShardExecutor.
type Job interface {
	Run(ctx context.Context) error
}

// Completer is implemented by jobs that want to learn their final outcome.
// Complete is called exactly once per accepted job, after the last attempt,
// with nil on success. It is also called when the job is skipped because its
// context was cancelled.
type Completer interface {
	Complete(err error)
}

// JobFunc is a helper to adapt a function to a Job.
type JobFunc func(ctx context.Context) error

// Run implements Job for JobFunc.
func (f JobFunc) Run(ctx context.Context) error { return f(ctx) }
