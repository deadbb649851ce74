package l2frames

import (
	"fmt"

	"github.com/banshee-data/spinframe/internal/lidar"
)

// Scan is one batcher input: the points of a single firing or column, one
// per beam, in beam order.
type Scan[P any] struct {
	Timestamp int64   // nanoseconds
	Azimuth   float64 // start azimuth, radians

	// Counter policy fields. Invalid scans move the counters but never
	// contribute points.
	FrameID       uint16
	MeasurementID uint16
	Valid         bool

	Points []P
}

// FrameIDRange is a run of frame counters that never arrived.
type FrameIDRange struct {
	First uint16
	Count int
}

// Frame is one sensor revolution. Points are stored column-major: the
// points of scan c occupy Points[c*RowStride : (c+1)*RowStride].
type Frame[P any] struct {
	ID             string // "<sensor>[-<run>]-frame-<seq>"
	SensorID       string
	Seq            int64 // 1-based per batcher
	StartTimestamp int64 // nanoseconds, first scan
	EndTimestamp   int64 // nanoseconds, last scan
	MinAzimuth     float64
	MaxAzimuth     float64
	RowStride      int // beams per scan
	Points         []P

	// Counter policy only.
	FrameID uint16
	Skipped FrameIDRange // frames lost immediately before this one
}

// Len returns the number of points.
func (f *Frame[P]) Len() int { return len(f.Points) }

// Rows returns the number of beams.
func (f *Frame[P]) Rows() int { return f.RowStride }

// Columns returns the number of scans.
func (f *Frame[P]) Columns() int {
	if f.RowStride == 0 {
		return 0
	}
	return len(f.Points) / f.RowStride
}

// At returns the point of beam row in scan col.
func (f *Frame[P]) At(row, col int) P {
	if row < 0 || row >= f.RowStride {
		panic(fmt.Sprintf("l2frames: row %d out of range [0,%d)", row, f.RowStride))
	}
	return f.Points[col*f.RowStride+row]
}

// AzimuthCoverage returns the degrees of azimuth between the smallest and
// largest scan start azimuths.
func (f *Frame[P]) AzimuthCoverage() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	return lidar.Degrees(f.MaxAzimuth - f.MinAzimuth)
}

// String summarises the frame for logs.
func (f *Frame[P]) String() string {
	return fmt.Sprintf("%s: %d points (%dx%d), %.1f° coverage, %.1f ms",
		f.ID, f.Len(), f.Rows(), f.Columns(), f.AzimuthCoverage(),
		float64(f.EndTimestamp-f.StartTimestamp)/1e6)
}
