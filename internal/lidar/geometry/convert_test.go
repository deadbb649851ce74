package geometry

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/firing"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/ouster"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"
)

const eps = 1e-9

// flatTable has every beam horizontal with no offsets.
func flatTable(beams int, mode calib.ReturnMode) *calib.Table {
	t := &calib.Table{
		Model:              "flat",
		Family:             calib.FamilyVelodyne,
		ReturnMode:         mode,
		DistanceResolution: 0.002,
		FiringPeriod:       55.296,
		Beams:              make([]calib.Beam, beams),
	}
	for i := range t.Beams {
		t.Beams[i].FireTime = t.FiringPeriod * float64(i) / float64(beams)
	}
	return t
}

func TestConvertFiring_ForwardPoint(t *testing.T) {
	table := flatTable(16, calib.ReturnStrongest)
	f := &firing.Firing{Kind: velodyne.FormatSingle16, Timestamp: 1_000}
	f.Channels[0] = velodyne.Channel{Distance: 5_000, Intensity: 77}

	points := ConvertFiring(f, table, nil)
	require.Len(t, points, 16)

	p := points[0]
	assert.Equal(t, 0, p.LaserID)
	assert.Equal(t, int64(1_000), p.Timestamp)
	assert.Equal(t, uint16(77), p.Intensity)
	assert.InDelta(t, 10.0, p.Distance, eps)
	assert.InDelta(t, 0, p.Position.X, eps)
	assert.InDelta(t, 10.0, p.Position.Y, eps)
	assert.InDelta(t, 0, p.Position.Z, eps)

	// Beams without a return stay in place at the origin.
	assert.Equal(t, 0.0, points[5].Distance)
	assert.Equal(t, r3.Vec{}, points[5].Position)
	assert.Equal(t, 5, points[5].LaserID)
}

func TestConvertFiring_InterpolatesAzimuthAndTime(t *testing.T) {
	table, err := calib.Preset("VLP-16")
	require.NoError(t, err)

	f := &firing.Firing{
		Kind:      velodyne.FormatSingle16,
		Timestamp: 2_000_000,
		Azimuth:   firing.AzimuthRange{Start: lidar.Radians(90), End: lidar.Radians(90.2)},
	}
	for i := 0; i < 16; i++ {
		f.Channels[i] = velodyne.Channel{Distance: 2_500}
	}

	points := ConvertFiring(f, table, nil)
	require.Len(t, points, 16)

	p := points[15]
	ratio := 34.56 / 55.296
	assert.InDelta(t, lidar.Radians(90+0.2*ratio), p.Azimuth, eps)
	assert.Equal(t, int64(2_000_000+34_560), p.Timestamp)

	el := lidar.Radians(15)
	vo := -0.0112
	want := lidar.SphericalToCartesian(5, p.Azimuth, el, vo, 0)
	assert.InDelta(t, want.X, p.Position.X, eps)
	assert.InDelta(t, 5*math.Sin(el)+vo*math.Cos(el), p.Position.Z, eps)

	for i := 1; i < len(points); i++ {
		assert.Greater(t, points[i].Timestamp, points[i-1].Timestamp)
		assert.GreaterOrEqual(t, points[i].Azimuth, points[i-1].Azimuth)
	}
}

func TestConvertFiring_WrapsPastFullTurn(t *testing.T) {
	table := flatTable(16, calib.ReturnStrongest)
	f := &firing.Firing{
		Kind:    velodyne.FormatSingle16,
		Azimuth: firing.AzimuthRange{Start: lidar.FullTurn - 0.001, End: lidar.FullTurn + 0.001},
	}
	for i := range f.Channels {
		f.Channels[i].Distance = 1_000
	}

	points := ConvertFiring(f, table, nil)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.Azimuth, 0.0)
		assert.Less(t, p.Azimuth, lidar.FullTurn)
		// Every point is within a few milliradians of straight ahead.
		assert.InDelta(t, 2.0, p.Position.Y, 1e-4)
		assert.InDelta(t, 0, p.Position.X, 0.005)
	}
	assert.Greater(t, points[0].Azimuth, math.Pi)
	assert.Less(t, points[15].Azimuth, math.Pi)
}

func TestConvertFiring_BeamCountMismatchPanics(t *testing.T) {
	table := flatTable(16, calib.ReturnStrongest)
	f := &firing.Firing{Kind: velodyne.FormatSingle32}
	assert.Panics(t, func() { ConvertFiring(f, table, nil) })
}

func TestConvertDualFiring(t *testing.T) {
	table := flatTable(32, calib.ReturnDual)
	f := &firing.Firing{
		Kind:      velodyne.FormatDual32,
		Timestamp: 500,
		Azimuth:   firing.AzimuthRange{Start: 1, End: 1.01},
	}
	for i := 0; i < 32; i++ {
		f.Channels[i] = velodyne.Channel{Distance: uint16(1_000 + i), Intensity: 200}
		f.Last[i] = velodyne.Channel{Distance: uint16(2_000 + i), Intensity: 20}
	}

	points := ConvertDualFiring(f, table, nil)
	require.Len(t, points, 32)
	for i, dp := range points {
		s, l := dp.Split()
		assert.Equal(t, i, dp.LaserID)
		assert.Equal(t, s.Timestamp, l.Timestamp)
		assert.Equal(t, s.Azimuth, l.Azimuth)
		assert.InDelta(t, float64(1_000+i)*0.002, dp.Strongest.Distance, eps)
		assert.InDelta(t, float64(2_000+i)*0.002, dp.Last.Distance, eps)
		assert.Equal(t, uint16(20), dp.Last.Intensity)
	}
}

func TestNewConverter(t *testing.T) {
	c, err := NewConverter(flatTable(16, calib.ReturnDual))
	require.NoError(t, err)
	assert.Equal(t, velodyne.FormatDual16, c.Kind())

	bad := flatTable(16, calib.ReturnStrongest)
	bad.DistanceResolution = 0
	_, err = NewConverter(bad)
	assert.ErrorContains(t, err, "invalid calibration")

	tbl, err := calib.Preset("OS1-16")
	require.NoError(t, err)
	c, err = NewConverter(tbl)
	require.NoError(t, err)
	assert.Zero(t, c.Kind())
	assert.Same(t, tbl, c.Table())
}

func makeColumn(t *testing.T, pixels int, measurement uint16, ticks uint32) firing.ColumnFiring {
	t.Helper()
	r := ouster.Record{Columns: make([]ouster.ColumnRecord, ouster.ColumnsPerPacket)}
	for i := range r.Columns {
		c := ouster.ColumnRecord{
			Timestamp:     9_000,
			MeasurementID: measurement,
			EncoderCount:  ticks,
			Pixels:        make([]ouster.Pixel, pixels),
			Status:        ouster.ValidStatus,
		}
		for p := range c.Pixels {
			// Upper bits must be masked off.
			c.Pixels[p] = ouster.Pixel{RawRange: 0xABC00000 | 5_000, Reflectivity: uint16(p), Signal: 300, Noise: 3}
		}
		r.Columns[i] = c
	}
	b, err := r.MarshalBinary()
	require.NoError(t, err)
	layout, err := ouster.LayoutFor(pixels)
	require.NoError(t, err)
	pkt, err := ouster.Decode(b, layout)
	require.NoError(t, err)
	return firing.FromColumn(pkt.Column(0))
}

func TestConvertColumn(t *testing.T) {
	table, err := calib.Preset("OS1-16")
	require.NoError(t, err)
	c, err := NewConverter(table)
	require.NoError(t, err)

	col := makeColumn(t, 16, 10, ouster.EncoderTicksPerRev/2)
	points, err := c.ConvertColumn(col, nil)
	require.NoError(t, err)
	require.Len(t, points, 16)

	p := points[0]
	assert.Equal(t, int64(9_000), p.Timestamp)
	assert.InDelta(t, 5.0, p.Distance, eps)
	assert.Equal(t, uint16(300), p.Signal)
	assert.Equal(t, uint16(3), p.Noise)
	assert.InDelta(t, lidar.WrapAngle(math.Pi-lidar.Radians(3.164)), p.Azimuth, eps)

	el := lidar.Radians(16.611)
	assert.InDelta(t, 5*math.Sin(el), p.Position.Z, eps)
	assert.InDelta(t, 5*math.Cos(el), math.Hypot(p.Position.X, p.Position.Y), eps)
	assert.Equal(t, uint16(15), points[15].Intensity)
}

func TestConvertColumn_IndexOutOfRange(t *testing.T) {
	table, err := calib.Preset("OS1-16")
	require.NoError(t, err)
	table.ColumnsPerRevolution = 512
	c, err := NewConverter(table)
	require.NoError(t, err)

	_, err = c.ConvertColumn(makeColumn(t, 16, 511, 0), nil)
	require.NoError(t, err)

	_, err = c.ConvertColumn(makeColumn(t, 16, 512, 0), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	var ioe *IndexOutOfRangeError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, 512, ioe.Index)
	assert.Equal(t, 512, ioe.Limit)
}

func TestConvertColumn_PixelMismatch(t *testing.T) {
	table, err := calib.Preset("OS1-64")
	require.NoError(t, err)
	c, err := NewConverter(table)
	require.NoError(t, err)

	_, err = c.ConvertColumn(makeColumn(t, 16, 0, 0), nil)
	assert.ErrorContains(t, err, "16 pixels")
}
