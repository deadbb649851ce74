package firing

import "github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"

// Extractor owns the carry for one Velodyne stream. It is not safe for
// concurrent use.
type Extractor struct {
	kind   velodyne.FormatKind
	timing Timing
	carry  *Carry
	buf    []Firing
}

// NewExtractor returns an extractor for a fixed format kind.
func NewExtractor(kind velodyne.FormatKind, timing Timing) *Extractor {
	return &Extractor{kind: kind, timing: timing}
}

// Kind returns the configured format kind.
func (e *Extractor) Kind() velodyne.FormatKind { return e.kind }

// Extract returns the firings completed by pkt. The returned slice is
// reused by the next call.
func (e *Extractor) Extract(pkt velodyne.Packet) []Firing {
	e.buf, e.carry = Extract(e.kind, e.timing, pkt, e.carry, e.buf[:0])
	return e.buf
}

// Finish returns the firings of the carried unit and clears it. A second
// call returns nothing.
func (e *Extractor) Finish() []Firing {
	if e.carry == nil {
		return nil
	}
	e.buf = Finish(e.timing, e.carry, e.buf[:0])
	e.carry = nil
	return e.buf
}

// Pending reports whether a unit is carried.
func (e *Extractor) Pending() bool { return e.carry != nil }

// Reset drops the carry and the clock state.
func (e *Extractor) Reset() {
	e.carry = nil
	e.buf = e.buf[:0]
}
