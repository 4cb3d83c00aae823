package corun

import (
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// The Manager is the central drive actor of the runtime. It owns four
// mailboxes, each under its own mutex: a min-heap of timers, a FIFO of
// ready continuations, a FIFO of frames pending destruction, and a FIFO
// of continuations to be offloaded to the worker pool. Its exported
// methods are the enqueue endpoints and [Manager.Drive]; the drive loop
// runs on one dedicated goroutine started by [EnableRuntime].
//
// Every continuation placed in the timer, ready or offload mailbox is
// either not yet started or suspended. A frame in the destroy mailbox
// may still be running a step on a worker when it is queued, which is
// why reaping touches only its flags and its promise. Queued
// continuations are borrows, not ownership transfers — except in the
// destroy mailbox, where ownership of the frame has been handed over
// by a released Task.
type Manager struct {
	tick time.Duration
	pool *Pool

	timerMu sync.Mutex
	timers  *binaryheap.Heap

	readyMu sync.Mutex
	ready   []*Coroutine

	offloadMu sync.Mutex
	offload   []*Coroutine

	destroyMu sync.Mutex
	destroy   []*Coroutine
}

type timerEntry struct {
	deadline time.Time
	co       *Coroutine
}

func timerCompare(a, b any) int {
	ta, tb := a.(*timerEntry), b.(*timerEntry)
	switch {
	case ta.deadline.Before(tb.deadline):
		return -1
	case ta.deadline.After(tb.deadline):
		return 1
	default:
		return 0
	}
}

func newManager(cfg Config) *Manager {
	return &Manager{
		tick:   cfg.tickInterval(),
		pool:   NewPool(cfg.Workers, cfg.QueueSize),
		timers: binaryheap.NewWith(timerCompare),
	}
}

// AddTimer registers co for resumption no earlier than d from now.
// The drive tick is the sole resumer of timed continuations.
func (m *Manager) AddTimer(d time.Duration, co *Coroutine) {
	entry := &timerEntry{deadline: time.Now().Add(d), co: co}
	m.timerMu.Lock()
	m.timers.Push(entry)
	m.timerMu.Unlock()
}

// Resume enqueues co for inline resumption on the drive goroutine at
// the next tick.
func (m *Manager) Resume(co *Coroutine) {
	m.readyMu.Lock()
	m.ready = append(m.ready, co)
	m.readyMu.Unlock()
}

// Offload enqueues co for background resumption: the next drive tick
// forwards it to the worker pool.
func (m *Manager) Offload(co *Coroutine) {
	m.offloadMu.Lock()
	m.offload = append(m.offload, co)
	m.offloadMu.Unlock()
}

// Reap enqueues a frame whose owner has released it mid-execution; the
// next drive tick tears it down. Destructions run strictly last within
// a tick, so every inline resumption of a tick has returned before any
// frame is torn down; a frame resumed in a tick can still be reaped
// later in that same tick.
func (m *Manager) Reap(co *Coroutine) {
	co.markShared()
	m.destroyMu.Lock()
	m.destroy = append(m.destroy, co)
	m.destroyMu.Unlock()
}

// submit hands co to the worker pool for immediate background
// resumption, falling back to the offload mailbox when the pool queue
// is full so that no wakeup is ever lost.
func (m *Manager) submit(co *Coroutine) {
	if !m.pool.Submit(func() { resume(co) }) {
		m.Offload(co)
	}
}

// Drive performs one tick: forward offloaded continuations to the
// worker pool, move expired timers to the ready queue, drain the ready
// queue resuming each continuation inline, and finally drain the
// destroy queue. Between ticks no ordering is promised.
//
// Drive is called by the runtime's drive goroutine; calling it
// reentrantly, or concurrently with itself, is undefined.
func (m *Manager) Drive() {
	m.drainOffload()
	m.fireTimers()
	m.drainReady()
	m.drainDestroy()
}

func (m *Manager) drainOffload() {
	m.offloadMu.Lock()
	batch := m.offload
	m.offload = nil
	m.offloadMu.Unlock()

	for i, co := range batch {
		if co == nil {
			continue
		}
		if !m.pool.Submit(func() { resume(co) }) {
			// Pool still saturated; requeue the rest for the next tick.
			m.offloadMu.Lock()
			m.offload = append(m.offload, batch[i:]...)
			m.offloadMu.Unlock()
			return
		}
	}
}

func (m *Manager) fireTimers() {
	now := time.Now()

	m.timerMu.Lock()
	var expired []*timerEntry
	for {
		v, ok := m.timers.Peek()
		if !ok {
			break
		}
		entry := v.(*timerEntry)
		if entry.deadline.After(now) {
			break
		}
		m.timers.Pop()
		expired = append(expired, entry)
	}
	m.timerMu.Unlock()

	if len(expired) == 0 {
		return
	}

	// Expired timers fire before anything already sitting in the ready
	// queue, so they go to the front.
	cos := make([]*Coroutine, 0, len(expired))
	for _, entry := range expired {
		cos = append(cos, entry.co)
	}
	m.readyMu.Lock()
	m.ready = append(cos, m.ready...)
	m.readyMu.Unlock()
}

func (m *Manager) drainReady() {
	m.readyMu.Lock()
	batch := m.ready
	m.ready = nil
	m.readyMu.Unlock()

	for _, co := range batch {
		resume(co)
	}
}

func (m *Manager) drainDestroy() {
	m.destroyMu.Lock()
	batch := m.destroy
	m.destroy = nil
	m.destroyMu.Unlock()

	for _, co := range batch {
		if co == nil {
			continue
		}
		logger().Debug("corun: reaping released frame")
		co.reap()
	}
}
