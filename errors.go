package corun

import "errors"

var (
	// ErrCanceled is surfaced when the cancel flag was set before the
	// result was written.
	ErrCanceled = errors.New("corun: task canceled")
	// ErrDestroyed is surfaced when the frame was torn down before a
	// result could be read.
	ErrDestroyed = errors.New("corun: coroutine destroyed")
	// ErrInvalid is surfaced by operations on a nil or released handle,
	// and by reading an unresolved [AsyncPromise].
	ErrInvalid = errors.New("corun: invalid operation")
	// ErrUnknown is surfaced when a task body failed with a recovered
	// panic. The panic value is wrapped into the returned error.
	ErrUnknown = errors.New("corun: unknown error")
	// ErrEnabled is returned by [Configure] once the runtime exists.
	ErrEnabled = errors.New("corun: runtime already enabled")
)
