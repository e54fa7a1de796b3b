// Package monitoring holds process-wide logging configuration. Each telemetry
// package exposes SetLogWriters for its ops/diag/trace streams; this package
// resolves a single verbosity setting into those writers, and keeps the
// swappable Logf hook for code without a package stream.
package monitoring

import (
	"fmt"
	"io"
	"log"
	"strings"
)

// Logf is the fallback diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger; tests can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the fallback logger. Passing nil installs a no-op.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Verbosity selects which logging streams are active.
type Verbosity int

const (
	// Quiet disables all streams.
	Quiet Verbosity = iota
	// Ops enables only actionable warnings and data-loss reports.
	Ops
	// Diag adds day-to-day diagnostics. The default.
	Diag
	// Trace adds per-packet telemetry. Very noisy.
	Trace
)

func (v Verbosity) String() string {
	switch v {
	case Quiet:
		return "quiet"
	case Ops:
		return "ops"
	case Diag:
		return "diag"
	case Trace:
		return "trace"
	}
	return "unknown"
}

// ParseVerbosity maps a config string to a verbosity level.
func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "quiet":
		return Quiet, nil
	case "ops":
		return Ops, nil
	case "", "diag":
		return Diag, nil
	case "trace":
		return Trace, nil
	}
	return Diag, fmt.Errorf("monitoring: unknown verbosity %q", s)
}

// Streams carries the three writers handed to each package's SetLogWriters.
// A nil writer disables that stream.
type Streams struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

// StreamsFor enables the streams covered by v, all writing to w.
func StreamsFor(v Verbosity, w io.Writer) Streams {
	var s Streams
	if v >= Ops {
		s.Ops = w
	}
	if v >= Diag {
		s.Diag = w
	}
	if v >= Trace {
		s.Trace = w
	}
	return s
}
