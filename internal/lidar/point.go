package lidar

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// ErrDualMismatch is returned when two single-return points cannot be merged
// into one dual-return point because they do not describe the same beam
// firing.
var ErrDualMismatch = errors.New("dual return points disagree")

// Measurement is one return of one beam: range, intensity and the Cartesian
// position derived from them.
type Measurement struct {
	Distance  float64 // metres
	Intensity uint16  // Velodyne intensity (0-255) or Ouster reflectivity
	Position  r3.Vec  // sensor frame, X=right, Y=forward, Z=up
}

// Point is a calibrated single-return LiDAR point.
type Point struct {
	LaserID   int
	Timestamp int64   // nanoseconds; sensor clock
	Azimuth   float64 // radians in [0, 2π), clockwise from forward
	Measurement

	// Ouster auxiliary channels, zero for Velodyne sensors.
	Signal uint16
	Noise  uint16
}

// DualPoint carries both returns of one beam firing in dual-return mode.
type DualPoint struct {
	LaserID   int
	Timestamp int64
	Azimuth   float64
	Strongest Measurement
	Last      Measurement
}

// NewDualPoint merges the strongest and last returns of the same firing.
// Both points must share laser, timestamp and azimuth.
func NewDualPoint(strongest, last Point) (DualPoint, error) {
	switch {
	case strongest.LaserID != last.LaserID:
		return DualPoint{}, fmt.Errorf("%w: laser %d vs %d", ErrDualMismatch, strongest.LaserID, last.LaserID)
	case strongest.Timestamp != last.Timestamp:
		return DualPoint{}, fmt.Errorf("%w: timestamp %d vs %d", ErrDualMismatch, strongest.Timestamp, last.Timestamp)
	case strongest.Azimuth != last.Azimuth:
		return DualPoint{}, fmt.Errorf("%w: azimuth %.6f vs %.6f", ErrDualMismatch, strongest.Azimuth, last.Azimuth)
	}
	return DualPoint{
		LaserID:   strongest.LaserID,
		Timestamp: strongest.Timestamp,
		Azimuth:   strongest.Azimuth,
		Strongest: strongest.Measurement,
		Last:      last.Measurement,
	}, nil
}

// Split returns the two returns as independent single-return points.
func (d DualPoint) Split() (strongest, last Point) {
	strongest = Point{LaserID: d.LaserID, Timestamp: d.Timestamp, Azimuth: d.Azimuth, Measurement: d.Strongest}
	last = Point{LaserID: d.LaserID, Timestamp: d.Timestamp, Azimuth: d.Azimuth, Measurement: d.Last}
	return strongest, last
}
