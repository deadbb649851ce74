package lidar

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogStreams(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops, Diag: &diag, Trace: &trace})
	defer SetLogWriters(LogWriters{})

	Opsf("skipped packet: %d bytes", 512)
	Diagf("frame %s", "vlp-frame-1")
	Tracef("packet %d", 7)

	assert.Contains(t, ops.String(), "[lidar] ")
	assert.Contains(t, ops.String(), "skipped packet: 512 bytes")
	assert.Contains(t, diag.String(), "frame vlp-frame-1")
	assert.Contains(t, trace.String(), "packet 7")
	assert.NotContains(t, ops.String(), "vlp-frame-1")
}

func TestLogStreams_NilWriterDisables(t *testing.T) {
	var ops bytes.Buffer
	SetLogWriters(LogWriters{Ops: &ops})
	defer SetLogWriters(LogWriters{})

	Diagf("should not appear")
	Tracef("should not appear")
	Opsf("visible")

	assert.Equal(t, 1, bytes.Count(ops.Bytes(), []byte("\n")))
	assert.NotContains(t, ops.String(), "should not appear")
}

func TestStreams_Prefix(t *testing.T) {
	s := NewStreams("[unit] ")
	s.Opsf("discarded before Set")

	var diag bytes.Buffer
	s.Set(LogWriters{Diag: &diag})
	s.Diagf("frame %d", 3)
	s.Opsf("still discarded")

	assert.Contains(t, diag.String(), "[unit] ")
	assert.Contains(t, diag.String(), "frame 3")
	assert.NotContains(t, diag.String(), "discarded")
}
