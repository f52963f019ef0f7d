package monitoring

import "log"

// Logf is the package-level diagnostic logger used across the pipeline. It
// defaults to log.Printf; SetLogger swaps it out so tests can capture or
// mute output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Prefixed returns a log function that routes through the current Logf with
// a fixed subsystem tag.
func Prefixed(tag string) func(format string, v ...interface{}) {
	return func(format string, v ...interface{}) {
		Logf(tag+" "+format, v...)
	}
}
