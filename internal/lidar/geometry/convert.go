// Package geometry converts firings into calibrated Cartesian points.
//
// Every function here is pure: the calibration table is only read, so one
// table may be shared by any number of goroutines converting in parallel.
package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/firing"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"
)

// ErrIndexOutOfRange matches any IndexOutOfRangeError via errors.Is.
var ErrIndexOutOfRange = errors.New("index out of range")

// IndexOutOfRangeError reports a measurement index at or beyond the
// configured revolution width. It means the calibration's lidar mode does
// not match the sensor.
type IndexOutOfRangeError struct {
	Index int
	Limit int
}

func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("measurement id %d out of range: %d columns per revolution", e.Index, e.Limit)
}

// Is reports whether target is ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Is(target error) bool {
	return target == ErrIndexOutOfRange
}

func mustMatch(kind velodyne.FormatKind, table *calib.Table) {
	if table.BeamCount() != kind.Beams() {
		panic(fmt.Sprintf("geometry: %v firing with a %d-beam calibration", kind, table.BeamCount()))
	}
}

// beamPoint calibrates one raw return of beam i.
func beamPoint(table *calib.Table, i int, az firing.AzimuthRange, ts int64, ch velodyne.Channel) lidar.Point {
	b := &table.Beams[i]
	azimuth := lidar.WrapAngle(az.At(table.Ratio(i)) + b.AzimuthOffset)
	distance := float64(ch.Distance) * table.DistanceResolution
	return lidar.Point{
		LaserID:   i,
		Timestamp: ts + fireOffset(b.FireTime),
		Azimuth:   azimuth,
		Measurement: lidar.Measurement{
			Distance:  distance,
			Intensity: uint16(ch.Intensity),
			Position:  lidar.SphericalToCartesian(distance, azimuth, b.Elevation, b.VerticalOffset, b.HorizontalOffset),
		},
	}
}

func fireOffset(us float64) int64 {
	return int64(math.Round(us * 1000))
}

// ConvertFiring appends one point per beam to dst. Beams without a return
// are kept with zero distance so frames stay dense.
//
// It panics if the table's beam count differs from the firing's kind.
func ConvertFiring(f *firing.Firing, table *calib.Table, dst []lidar.Point) []lidar.Point {
	mustMatch(f.Kind, table)
	for i := 0; i < table.BeamCount(); i++ {
		dst = append(dst, beamPoint(table, i, f.Azimuth, f.Timestamp, f.Channels[i]))
	}
	return dst
}

// ConvertDualFiring appends one dual point per beam to dst, pairing the
// strongest and last return of each beam.
//
// It panics if the table's beam count differs from the firing's kind.
func ConvertDualFiring(f *firing.Firing, table *calib.Table, dst []lidar.DualPoint) []lidar.DualPoint {
	mustMatch(f.Kind, table)
	for i := 0; i < table.BeamCount(); i++ {
		s := beamPoint(table, i, f.Azimuth, f.Timestamp, f.Channels[i])
		l := beamPoint(table, i, f.Azimuth, f.Timestamp, f.Last[i])
		dp, err := lidar.NewDualPoint(s, l)
		if err != nil {
			// Both returns come from the same beam and firing.
			panic(err)
		}
		dst = append(dst, dp)
	}
	return dst
}
