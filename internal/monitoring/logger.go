// Package monitoring holds the process-level diagnostic logger shared by the
// daemon and its tools.
package monitoring

import (
	"io"
	"log"
	"strings"
)

// Logf is the process-level diagnostic logger. It defaults to log.Printf but
// may be replaced by SetLogger so tests can capture or mute output.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Writer adapts Logf to an io.Writer so per-package log streams
// (SetLogWriters in the ambient packages) can be routed through it.
// Each Write is forwarded as one line with the trailing newline trimmed.
func Writer() io.Writer {
	return logfWriter{}
}

type logfWriter struct{}

func (logfWriter) Write(p []byte) (int, error) {
	Logf("%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
