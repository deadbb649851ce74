package monitoring

import (
	"io"
	"log"
)

// Logf is the process-level diagnostic logger used by packet sources and
// the CLI. It defaults to log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces Logf. Passing nil mutes it.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// SetOutput sends Logf to w with the given prefix and the same timestamp
// format as the lidar log streams. A nil writer mutes it.
func SetOutput(w io.Writer, prefix string) {
	if w == nil {
		SetLogger(nil)
		return
	}
	SetLogger(log.New(w, prefix, log.LstdFlags|log.Lmicroseconds).Printf)
}
