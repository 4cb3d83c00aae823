package corun

import (
	"log/slog"
	"sync/atomic"
)

var pkgLogger atomic.Pointer[slog.Logger]

// SetLogger replaces the logger used by the runtime at its error and
// trace points. A nil logger restores the default (slog.Default).
// Logging calls are assumed non-blocking and side-effect-only; the
// runtime never makes control-flow decisions on them.
func SetLogger(l *slog.Logger) {
	pkgLogger.Store(l)
}

func logger() *slog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return slog.Default()
}
