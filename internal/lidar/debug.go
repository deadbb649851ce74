package lidar

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream. A nil writer
// disables its stream.
type LogWriters struct {
	Ops   io.Writer // actionable: skipped packets, anomalies, failures
	Diag  io.Writer // lifecycle and frame summaries
	Trace io.Writer // per-packet telemetry
}

// Streams is one package's set of ops, diag and trace loggers. It is safe
// for concurrent use; a Streams with no writers set discards everything.
type Streams struct {
	prefix string

	mu    sync.RWMutex
	ops   *log.Logger
	diag  *log.Logger
	trace *log.Logger
}

// NewStreams returns disabled streams whose lines start with prefix.
func NewStreams(prefix string) *Streams {
	return &Streams{prefix: prefix}
}

// Set replaces all three writers.
func (s *Streams) Set(w LogWriters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = s.logger(w.Ops)
	s.diag = s.logger(w.Diag)
	s.trace = s.logger(w.Trace)
}

func (s *Streams) logger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, s.prefix, log.LstdFlags|log.Lmicroseconds)
}

func (s *Streams) printf(pick func(*Streams) *log.Logger, format string, args []interface{}) {
	s.mu.RLock()
	l := pick(s)
	s.mu.RUnlock()
	if l != nil {
		l.Printf(format, args...)
	}
}

func opsOf(s *Streams) *log.Logger   { return s.ops }
func diagOf(s *Streams) *log.Logger  { return s.diag }
func traceOf(s *Streams) *log.Logger { return s.trace }

// Opsf logs to the ops stream.
func (s *Streams) Opsf(format string, args ...interface{}) { s.printf(opsOf, format, args) }

// Diagf logs to the diag stream.
func (s *Streams) Diagf(format string, args ...interface{}) { s.printf(diagOf, format, args) }

// Tracef logs to the trace stream.
func (s *Streams) Tracef(format string, args ...interface{}) { s.printf(traceOf, format, args) }

var std = NewStreams("[lidar] ")

// SetLogWriters configures the streams of this package and of code that
// logs through Opsf, Diagf and Tracef.
func SetLogWriters(w LogWriters) { std.Set(w) }

// Opsf logs to the ops stream (skipped packets, anomalies, lifecycle events).
func Opsf(format string, args ...interface{}) { std.Opsf(format, args...) }

// Diagf logs to the diag stream (frame summaries, configuration context).
func Diagf(format string, args ...interface{}) { std.Diagf(format, args...) }

// Tracef logs to the trace stream (per-packet telemetry).
func Tracef(format string, args ...interface{}) { std.Tracef(format, args...) }
