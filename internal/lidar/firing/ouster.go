package firing

import (
	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/ouster"
)

// ColumnFiring is one Ouster column seen as a firing: every pixel shares
// the column's timestamp and encoder azimuth.
type ColumnFiring struct {
	Timestamp     int64   // nanoseconds
	Azimuth       float64 // encoder angle, radians in [0, 2π)
	FrameID       uint16
	MeasurementID uint16
	Valid         bool

	// Column is a view into the packet buffer.
	Column ouster.Column
}

// FromColumn maps a column onto a firing. Nothing is split or carried.
func FromColumn(c ouster.Column) ColumnFiring {
	return ColumnFiring{
		Timestamp:     int64(c.Timestamp()),
		Azimuth:       EncoderAzimuth(c.EncoderCount()),
		FrameID:       c.FrameID(),
		MeasurementID: c.MeasurementID(),
		Valid:         c.Valid(),
		Column:        c,
	}
}

// EncoderAzimuth converts encoder ticks to radians in [0, 2π). Counts past
// one revolution are reduced before scaling.
func EncoderAzimuth(ticks uint32) float64 {
	return float64(ticks%ouster.EncoderTicksPerRev) / ouster.EncoderTicksPerRev * lidar.FullTurn
}

// ExtractColumns appends the firings of every column in pkt to dst.
func ExtractColumns(pkt ouster.Packet, dst []ColumnFiring) []ColumnFiring {
	for i := 0; i < ouster.ColumnsPerPacket; i++ {
		dst = append(dst, FromColumn(pkt.Column(i)))
	}
	return dst
}
