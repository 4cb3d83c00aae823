package corun

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// A Pool executes submitted units of work on a fixed set of background
// goroutines fed from one shared queue. Its whole contract is: an
// accepted unit of work eventually runs, exactly once. The rest of the
// runtime is indifferent to how.
type Pool struct {
	queue   chan func()
	quit    chan struct{}
	closed  atomic.Bool
	workers int
	group   errgroup.Group
}

// NewPool starts a pool with the given number of workers and queue
// capacity.
func NewPool(workers, capacity int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{
		queue:   make(chan func(), capacity),
		quit:    make(chan struct{}),
		workers: workers,
	}
	for range workers {
		p.group.Go(p.work)
	}
	return p
}

func (p *Pool) work() error {
	for {
		select {
		case <-p.quit:
			return nil
		case f := <-p.queue:
			f()
		}
	}
}

// Submit offers a unit of work to the pool without blocking. It reports
// false when the queue is full or the pool is closed; the caller keeps
// ownership of the work in that case.
func (p *Pool) Submit(f func()) bool {
	if f == nil || p.closed.Load() {
		return false
	}
	select {
	case p.queue <- f:
		return true
	default:
		return false
	}
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int {
	return p.workers
}

// Close stops the workers and waits for them to drain their in-flight
// work. Work still sitting in the queue is dropped. Idempotent.
//
// The process-wide runtime never closes its pool; Close exists for
// tests and embedders that construct their own.
func (p *Pool) Close() {
	if p.closed.Swap(true) {
		return
	}
	close(p.quit)
	_ = p.group.Wait()
}
