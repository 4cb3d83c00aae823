package corun

import "time"

// sleepAwaiter is the suspend point for [Sleep]. It registers with the
// manager's timer heap and nothing else: the drive tick is the sole
// resumer, so every suspended coroutine resumes through one code path.
type sleepAwaiter struct {
	d time.Duration
}

// Sleep returns an [Awaiter] that suspends the coroutine for at least d.
// The timer wheel is the runtime's only time source, so the actual delay
// is bounded below by d and above by d plus one drive tick.
//
// A zero or negative duration is already ready and does not suspend.
// Resumption carries no payload.
func Sleep(d time.Duration) Awaiter {
	return sleepAwaiter{d: d}
}

func (s sleepAwaiter) Ready() bool {
	return s.d <= 0
}

func (s sleepAwaiter) Suspend(co *Coroutine) bool {
	co.markShared()
	mgr().AddTimer(s.d, co)
	return true
}
