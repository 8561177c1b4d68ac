// Package pool bounds the concurrency of background work.
// This package is internal and should not be imported by external projects.
package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultMaxSessions is the default bound on concurrent background sessions.
const DefaultMaxSessions = 16

// Runner executes fire-and-forget functions while capping how many run at
// once. Submissions beyond the cap are not rejected; they wait for a slot
// inside their own goroutine, so Go never blocks the caller.
type Runner struct {
	sem chan struct{}
	wg  sync.WaitGroup

	started   atomic.Int64
	completed atomic.Int64
	active    atomic.Int32
}

// NewRunner creates a runner with the given concurrency cap. A cap below one
// falls back to DefaultMaxSessions.
func NewRunner(max int) *Runner {
	if max < 1 {
		max = DefaultMaxSessions
	}
	return &Runner{sem: make(chan struct{}, max)}
}

// Go schedules fn to run as soon as a slot is free.
func (r *Runner) Go(fn func()) {
	r.started.Add(1)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.sem <- struct{}{}
		r.active.Add(1)
		defer func() {
			r.active.Add(-1)
			r.completed.Add(1)
			<-r.sem
		}()
		fn()
	}()
}

// Wait blocks until all scheduled functions have returned.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Stats reports scheduling counters.
func (r *Runner) Stats() (started, completed int64, active int32) {
	return r.started.Load(), r.completed.Load(), r.active.Load()
}
