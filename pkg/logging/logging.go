// Package logging defines the minimal logger hook shared by the engine
// packages. *log.Logger satisfies Logger.
package logging

// Logger records degraded renders, failed fetches and discarded results.
type Logger interface {
	Printf(format string, args ...any)
}

// Func adapts a function to Logger.
type Func func(format string, args ...any)

// Printf implements Logger.
func (f Func) Printf(format string, args ...any) {
	if f != nil {
		f(format, args...)
	}
}

type noop struct{}

func (noop) Printf(string, ...any) {}

// Noop returns a Logger that drops everything.
func Noop() Logger { return noop{} }

// OrNoop returns logger, or Noop when logger is nil.
func OrNoop(logger Logger) Logger {
	if logger == nil {
		return noop{}
	}
	return logger
}
