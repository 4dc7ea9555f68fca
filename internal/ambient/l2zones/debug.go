package l2zones

import (
	"io"
	"log"
)

var (
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters routes the ops, diag and trace streams for l2zones.
// A nil writer silences that stream.
func SetLogWriters(ops, diag, trace io.Writer) {
	opsLogger = streamLogger(ops)
	diagLogger = streamLogger(diag)
	traceLogger = streamLogger(trace)
}

func streamLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[l2zones] ", log.LstdFlags|log.Lmicroseconds)
}

func opsf(format string, args ...any) {
	if opsLogger != nil {
		opsLogger.Printf(format, args...)
	}
}

func diagf(format string, args ...any) {
	if diagLogger != nil {
		diagLogger.Printf(format, args...)
	}
}

// tracef is for per-frame detail; keep it off in production.
func tracef(format string, args ...any) {
	if traceLogger != nil {
		traceLogger.Printf(format, args...)
	}
}
