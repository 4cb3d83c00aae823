package corun

import (
	"sync"
	"sync/atomic"
	"time"
)

var (
	managerOnce    sync.Once
	managerBuilt   atomic.Bool
	defaultManager *Manager

	driveOnce sync.Once
)

// mgr returns the process-wide manager, constructing it from the
// current configuration on first use.
func mgr() *Manager {
	managerOnce.Do(func() {
		defaultManager = newManager(currentConfig())
		managerBuilt.Store(true)
	})
	return defaultManager
}

// EnableRuntime starts the manager's drive goroutine. It is idempotent:
// called twice, it starts exactly one drive thread. It must run before
// any task is awaited, or timers would never fire and awaited tasks
// could deadlock.
//
// The drive goroutine loops forever, sleeping one configured tick
// (100µs by default) between drive passes; that cadence bounds timer
// accuracy and is the sole real-time primitive in the runtime.
// Teardown is best-effort at process exit: the goroutine is not stopped
// and in-flight tasks are not drained. Deterministic shutdown is not
// supported.
func EnableRuntime() {
	driveOnce.Do(func() {
		m := mgr()
		go func() {
			for {
				m.Drive()
				time.Sleep(m.tick)
			}
		}()
	})
}

// Wait blocks the calling goroutine until t settles, then returns its
// value, degrading errors to the zero value the way [Task.Get] does.
// It is the blocking extractor for host code at the async/sync
// boundary.
//
// Wait enables the runtime if it is not yet running. It never drives
// the manager from the calling goroutine; reentrant driving is
// undefined.
func Wait[T any](t *Task[T]) T {
	EnableRuntime()
	return t.Get()
}

// WaitResult is [Wait] with the error-carrying readout of
// [Task.Result].
func WaitResult[T any](t *Task[T]) (T, error) {
	EnableRuntime()
	return t.Result()
}
