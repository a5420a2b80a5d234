// Package shardqueue provides a sharded work queue that keeps FIFO order per
// key while letting different keys run in parallel.
//
// Jobs of one key run in the order their Submit calls enqueued them. Submit
// may be called concurrently for the same key; racing calls are ordered by
// arrival, so a job that must observe earlier state should read it when it
// runs rather than when it is submitted.
package shardqueue

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	backoff "github.com/cenkalti/backoff/v4"

	cerrors "github.com/heartbook/heartbook/client/internal/errors"
)

type queuedJob struct {
	ctx context.Context
	job Job
}

// ShardExecutor executes Jobs on worker goroutines partitioned by a stable hash
// of the key (a collection filename). FIFO ordering is preserved within a
// shard; jobs with different keys may run in parallel.
type ShardExecutor struct {
	cfg    Config
	queues []chan queuedJob // len == cfg.Shards

	done   chan struct{} // closed in Stop()
	closed uint32        // 0 running, 1 closed

	wg sync.WaitGroup
}

// NewShardExecutor constructs the executor and starts its shard workers.
func NewShardExecutor(cfg Config) *ShardExecutor {
	cfg = cfg.withDefaults()

	p := &ShardExecutor{
		cfg:    cfg,
		queues: make([]chan queuedJob, cfg.Shards),
		done:   make(chan struct{}),
	}
	for i := 0; i < cfg.Shards; i++ {
		ch := make(chan queuedJob, cfg.QueueSize)
		p.queues[i] = ch
		p.wg.Add(1)
		go p.runWorker(i, ch)
	}
	return p
}

// Submit enqueues job for the shard derived from key.
//
//   - Returns nil on success.
//   - Returns ErrExecutorClosed if the executor is stopped.
//   - Returns ErrQueueFull (wrapped in *QueueFullError) if the shard is full
//     after EnqueueTimeout elapses.
//   - Returns ctx.Err() if the caller-provided context is cancelled first.
//
// A job that is not accepted never has Complete called.
func (p *ShardExecutor) Submit(ctx context.Context, key string, job Job) error {
	if atomic.LoadUint32(&p.closed) == 1 {
		return ErrExecutorClosed
	}
	select {
	case <-p.done:
		return ErrExecutorClosed
	default:
	}

	qj := queuedJob{ctx: ctx, job: job}
	shard := p.shardFor(key)
	ch := p.queues[shard]

	timer := time.NewTimer(p.cfg.EnqueueTimeout)
	defer timer.Stop()

	select {
	case ch <- qj:
		submissionsTotal.WithLabelValues(labelFor(shard)).Inc()
		return nil

	case <-p.done:
		return ErrExecutorClosed

	case <-ctx.Done():
		return ctx.Err()

	case <-timer.C:
		queueFullTotal.WithLabelValues(labelFor(shard)).Inc()
		return &QueueFullError{
			Shard:    shard,
			Length:   len(ch),
			Capacity: cap(ch),
		}
	}
}

// Barrier enqueues a no-op job on the shard for key and waits until it runs,
// ensuring all previously submitted jobs for that key have completed.
func (p *ShardExecutor) Barrier(ctx context.Context, key string) error {
	done := make(chan struct{})
	j := JobFunc(func(context.Context) error {
		close(done)
		return nil
	})
	if err := p.Submit(ctx, key, j); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// Stop signals every worker to finish draining its current queue, waits for
// them to terminate, and then returns. It is idempotent and safe for
// concurrent use.
func (p *ShardExecutor) Stop() {
	if !atomic.CompareAndSwapUint32(&p.closed, 0, 1) {
		return
	}
	p.cfg.Logger.Debug().Int("shards", p.cfg.Shards).Msg("shardqueue: stopping executor")
	close(p.done)
	p.wg.Wait()
	p.cfg.Logger.Debug().Msg("shardqueue: executor stopped, all queues drained")
}

// Close lets ShardExecutor satisfy io.Closer.
func (p *ShardExecutor) Close() error {
	p.Stop()
	return nil
}

// ------------------------- internals -------------------------

func (p *ShardExecutor) runWorker(idx int, ch <-chan queuedJob) {
	defer p.wg.Done()
	label := labelFor(idx)

	for {
		select {
		case qj := <-ch:
			if qj.job != nil {
				p.execute(label, qj, true)
			}
			queueDepth.WithLabelValues(label).Set(float64(len(ch)))

		case <-p.done:
			// Drain remaining jobs in FIFO order, one attempt each.
			drained := 0
			for {
				select {
				case qj := <-ch:
					if qj.job != nil {
						p.execute(label, qj, false)
						drained++
					}
				default:
					if drained > 0 {
						p.cfg.Logger.Debug().Int("worker", idx).Int("jobs", drained).Msg("shardqueue: drained")
					}
					queueDepth.WithLabelValues(label).Set(0)
					return
				}
			}
		}
	}
}

// execute runs one job to its final outcome and reports it.
func (p *ShardExecutor) execute(label string, qj queuedJob, retry bool) {
	// Honour caller context so a cancelled job doesn't stall the shard.
	if err := qj.ctx.Err(); err != nil {
		p.finish(qj.job, err)
		return
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = p.cfg.BaseBackoff
	exp.Multiplier = 2
	exp.MaxInterval = p.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	exp.Reset()

	var err error
	for attempt := 1; ; attempt++ {
		start := time.Now()
		err = p.runOnce(qj)
		runDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())

		if err == nil || isIrrecoverableError(err) || qj.ctx.Err() != nil || !retry || attempt >= p.cfg.MaxAttempts {
			break
		}

		retriesTotal.WithLabelValues(label).Inc()
		p.cfg.Logger.Debug().Err(err).Int("attempt", attempt).Msg("shardqueue: retrying job")
		wait := time.NewTimer(exp.NextBackOff())
		select {
		case <-wait.C:
		case <-p.done:
			wait.Stop()
			// Shutting down: one last attempt without further backoff.
			retry = false
		case <-qj.ctx.Done():
			wait.Stop()
			err = qj.ctx.Err()
			p.finish(qj.job, err)
			return
		}
	}
	p.finish(qj.job, err)
}

// runOnce converts a panicking job into an error so the worker survives.
func (p *ShardExecutor) runOnce(qj queuedJob) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: job panic")
			err = fmt.Errorf("%w: %v", ErrJobPanicked, r)
		}
	}()
	return qj.job.Run(qj.ctx)
}

func (p *ShardExecutor) finish(j Job, err error) {
	if c, ok := j.(Completer); ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: completion hook panic")
				}
			}()
			c.Complete(err)
		}()
	}
	p.safeHandleError(err)
}

func (p *ShardExecutor) safeHandleError(err error) {
	if err == nil || p.cfg.ErrorHandler == nil {
		return
	}
	func() {
		// Guard against panics in the user-supplied handler.
		defer func() {
			if r := recover(); r != nil {
				p.cfg.Logger.Error().Interface("panic", r).Msg("shardqueue: error handler panic")
			}
		}()
		p.cfg.ErrorHandler(err)
	}()
}

func (p *ShardExecutor) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % uint32(p.cfg.Shards))
}

// isIrrecoverableError checks if an error should not be retried.
func isIrrecoverableError(err error) bool {
	return cerrors.IsIrrecoverable(err) || errors.Is(err, ErrJobPanicked)
}
