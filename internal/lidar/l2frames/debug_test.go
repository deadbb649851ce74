package l2frames

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetLogWriters(t *testing.T) {
	var ops, diag, trace bytes.Buffer
	SetLogWriters(&ops, &diag, &trace)
	defer SetLogWriters(nil, nil, nil)

	opsf("ordering anomaly %d", 1)
	diagf("frame %s", "vlp-16-frame-2")
	tracef("scan %d", 3)

	assert.Contains(t, ops.String(), "[l2frames] ")
	assert.Contains(t, ops.String(), "ordering anomaly 1")
	assert.Contains(t, diag.String(), "frame vlp-16-frame-2")
	assert.Contains(t, trace.String(), "scan 3")
}

func TestSetLogWriters_Disable(t *testing.T) {
	var buf bytes.Buffer
	SetLogWriters(&buf, nil, nil)
	SetLogWriters(nil, nil, nil)

	assert.NotPanics(t, func() {
		opsf("discarded %d", 1)
		diagf("discarded %d", 2)
		tracef("discarded %d", 3)
	})
	assert.Empty(t, buf.String())
}
