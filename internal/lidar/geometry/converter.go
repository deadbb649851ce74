package geometry

import (
	"fmt"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/firing"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"
)

// Converter binds a validated calibration table. It holds no mutable state
// and is safe for concurrent use.
type Converter struct {
	table *calib.Table
	kind  velodyne.FormatKind // Velodyne tables only
}

// NewConverter validates the table and returns a converter for it. The
// table must not be modified afterwards.
func NewConverter(table *calib.Table) (*Converter, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid calibration: %w", err)
	}
	c := &Converter{table: table}
	if table.Family == calib.FamilyVelodyne {
		kind, ok := velodyne.KindFor(table.BeamCount(), table.Dual())
		if !ok {
			return nil, fmt.Errorf("no Velodyne format for %d beams", table.BeamCount())
		}
		c.kind = kind
	}
	return c, nil
}

// Table returns the calibration table.
func (c *Converter) Table() *calib.Table { return c.table }

// Kind returns the Velodyne format kind implied by the table, or zero for
// other families.
func (c *Converter) Kind() velodyne.FormatKind { return c.kind }

// Firing converts a single-return Velodyne firing.
func (c *Converter) Firing(f *firing.Firing, dst []lidar.Point) []lidar.Point {
	return ConvertFiring(f, c.table, dst)
}

// DualFiring converts a dual-return Velodyne firing.
func (c *Converter) DualFiring(f *firing.Firing, dst []lidar.DualPoint) []lidar.DualPoint {
	return ConvertDualFiring(f, c.table, dst)
}

// ConvertColumn appends one point per pixel of an Ouster column. The beam
// elevation is the calibrated altitude angle and the per-pixel azimuth
// correction is added to the encoder angle.
func (c *Converter) ConvertColumn(f firing.ColumnFiring, dst []lidar.Point) ([]lidar.Point, error) {
	if limit := c.table.ColumnsPerRevolution; int(f.MeasurementID) >= limit {
		return dst, &IndexOutOfRangeError{Index: int(f.MeasurementID), Limit: limit}
	}
	if n := f.Column.Pixels(); n != c.table.BeamCount() {
		return dst, fmt.Errorf("column has %d pixels, calibration has %d beams", n, c.table.BeamCount())
	}

	for i := range c.table.Beams {
		b := &c.table.Beams[i]
		px := f.Column.Pixel(i)
		azimuth := lidar.WrapAngle(f.Azimuth + b.AzimuthOffset)
		distance := float64(px.Range()) * c.table.DistanceResolution
		dst = append(dst, lidar.Point{
			LaserID:   i,
			Timestamp: f.Timestamp,
			Azimuth:   azimuth,
			Measurement: lidar.Measurement{
				Distance:  distance,
				Intensity: px.Reflectivity,
				Position:  lidar.SphericalToCartesian(distance, azimuth, b.Elevation, b.VerticalOffset, b.HorizontalOffset),
			},
			Signal: px.Signal,
			Noise:  px.Noise,
		})
	}
	return dst, nil
}
