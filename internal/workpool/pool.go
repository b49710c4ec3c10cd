// Package workpool bounds CPU-heavy request work such as PDF parsing.
//
// At most `workers` tasks run at once and at most `queue` callers wait for a slot.
// Callers beyond that are rejected immediately with ErrBusy.
package workpool

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ErrBusy is returned when every worker is busy and the wait queue is full.
var ErrBusy = errors.New("worker pool busy")

// Pool runs tasks with bounded concurrency.
type Pool struct {
	sem     *semaphore.Weighted
	waiting atomic.Int64
	queue   int64
}

// New returns a pool running up to workers tasks with up to queue waiting callers.
func New(workers, queue int) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers)), queue: int64(queue)}
}

type result struct {
	text string
	err  error
}

// Submit runs fn on its own goroutine once a worker is free and returns its result.
// If ctx ends first, Submit returns ctx.Err(); a task already running keeps its slot until it finishes.
func (p *Pool) Submit(ctx context.Context, fn func() (string, error)) (string, error) {
	if !p.sem.TryAcquire(1) {
		if p.waiting.Add(1) > p.queue {
			p.waiting.Add(-1)
			return "", ErrBusy
		}
		err := p.sem.Acquire(ctx, 1)
		p.waiting.Add(-1)
		if err != nil {
			return "", err
		}
	}

	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		text, err := fn()
		done <- result{text: text, err: err}
	}()

	select {
	case r := <-done:
		return r.text, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Waiting returns the number of callers queued for a worker.
func (p *Pool) Waiting() int {
	return int(p.waiting.Load())
}
