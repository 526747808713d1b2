// Package async runs background work with panic recovery.
package async

import "runtime/debug"

// PanicLogger receives panic reports from background goroutines.
type PanicLogger interface {
	Error(format string, args ...any)
}

// LoggerFunc adapts a printf-style function such as logger.Error to PanicLogger.
type LoggerFunc func(format string, args ...any)

// Error implements PanicLogger.
func (f LoggerFunc) Error(format string, args ...any) {
	f(format, args...)
}

// Go runs fn in a goroutine guarded by panic recovery. Each onPanic hook is
// called with the recovered value after it has been logged.
func Go(logger PanicLogger, name string, fn func(), onPanic ...func(any)) {
	go func() {
		defer Recover(logger, name, onPanic...)
		fn()
	}()
}

// Recover logs panic details without crashing the process.
// It must be deferred directly.
func Recover(logger PanicLogger, name string, onPanic ...func(any)) {
	r := recover()
	if r == nil {
		return
	}
	if logger != nil {
		if name == "" {
			logger.Error("goroutine panic: %v, stack: %s", r, debug.Stack())
		} else {
			logger.Error("goroutine panic [%s]: %v, stack: %s", name, r, debug.Stack())
		}
	}
	for _, hook := range onPanic {
		if hook != nil {
			hook(r)
		}
	}
}
