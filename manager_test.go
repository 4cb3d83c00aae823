package corun

import (
	"testing"
	"time"
)

// These tests exercise manager internals against a private instance,
// leaving the process-wide runtime untouched.

func drainTestManager(m *Manager, until func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.Drive()
		if until() {
			return true
		}
		time.Sleep(100 * time.Microsecond)
	}
	return until()
}

func TestOffloadRetriesWhenPoolSaturated(t *testing.T) {
	m := newManager(Config{TickMicros: 100, Workers: 1, QueueSize: 1})
	defer m.pool.Close()

	// Occupy the single worker and fill the one queue slot.
	block := make(chan struct{})
	started := make(chan struct{})
	if !m.pool.Submit(func() { close(started); <-block }) {
		t.Fatal("first submit refused")
	}
	<-started
	if !m.pool.Submit(func() {}) {
		t.Fatal("second submit refused")
	}

	p := newPromise[int]()
	co := newCoroutine().init(func(co *Coroutine) Result {
		return p.Return(7)
	}, p)
	co.markShared()

	// The saturated pool refuses the continuation; submit must park it
	// in the offload mailbox instead of dropping the wakeup.
	m.submit(co)

	m.offloadMu.Lock()
	parked := len(m.offload)
	m.offloadMu.Unlock()
	if parked != 1 {
		t.Fatalf("offload mailbox holds %d continuations, want 1", parked)
	}

	close(block)
	if !drainTestManager(m, p.isSettled) {
		t.Fatal("offloaded continuation never ran")
	}
	if v, _ := readSlot(p); v != 7 {
		t.Fatalf("continuation produced %d, want 7", v)
	}
}

func readSlot[T any](p *Promise[T]) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.err
}

func TestReapPublishesDestruction(t *testing.T) {
	m := newManager(Config{TickMicros: 100, Workers: 1, QueueSize: 4})
	defer m.pool.Close()

	p := newPromise[int]()
	co := newCoroutine().init(func(co *Coroutine) Result {
		return p.Return(1)
	}, p)

	m.Reap(co)
	m.Drive()

	if co.flag.Load()&flagDestroyed == 0 {
		t.Fatal("frame not destroyed after drive tick")
	}
	// The destroy path publishes the settle event so blocked readers
	// wake, with the slot still empty.
	select {
	case <-p.settled:
	default:
		t.Fatal("settle event not published on destruction")
	}
	if p.state != slotEmpty {
		t.Fatal("destruction must not write the result slot")
	}

	// A stale resume of the reaped frame is a checked no-op.
	resume(co)
}

func TestTimersFireInDeadlineOrder(t *testing.T) {
	m := newManager(Config{TickMicros: 100, Workers: 1, QueueSize: 4})
	defer m.pool.Close()

	var order []int
	mk := func(n int) *Coroutine {
		p := newPromise[int]()
		co := newCoroutine().init(func(co *Coroutine) Result {
			order = append(order, n)
			return p.Return(n)
		}, p)
		co.markShared()
		return co
	}

	// Registration order 3, 1, 2; deadline order 1, 2, 3. All expire
	// before the drive pass, which resumes inline on this goroutine.
	m.AddTimer(3*time.Millisecond, mk(3))
	m.AddTimer(1*time.Millisecond, mk(1))
	m.AddTimer(2*time.Millisecond, mk(2))

	time.Sleep(5 * time.Millisecond)
	m.Drive()

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("timers fired in order %v, want [1 2 3]", order)
	}
}

func TestDriveTickOrdering(t *testing.T) {
	m := newManager(Config{TickMicros: 100, Workers: 1, QueueSize: 4})
	defer m.pool.Close()

	var order []string
	note := func(s string) *Coroutine {
		p := newPromise[int]()
		co := newCoroutine().init(func(co *Coroutine) Result {
			order = append(order, s)
			return p.Return(0)
		}, p)
		co.markShared()
		return co
	}

	// An expired timer and a ready continuation queued in the same
	// tick: the timer moves to ready first and is resumed first.
	m.Resume(note("ready"))
	m.AddTimer(-time.Millisecond, note("timer"))

	m.Drive()

	if len(order) != 2 || order[0] != "timer" || order[1] != "ready" {
		t.Fatalf("drive resumed in order %v, want [timer ready]", order)
	}
}
