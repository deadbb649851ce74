package ouster

import (
	"encoding/binary"
	"fmt"
)

// ColumnRecord is an owned copy of one column.
type ColumnRecord struct {
	Timestamp     uint64
	MeasurementID uint16
	FrameID       uint16
	EncoderCount  uint32
	Pixels        []Pixel
	Status        uint32
}

// Record is an owned copy of a whole packet. All columns must hold the same
// number of pixels.
type Record struct {
	Columns []ColumnRecord
}

// AppendBinary appends the wire encoding of r to b.
func (r *Record) AppendBinary(b []byte) ([]byte, error) {
	if len(r.Columns) != ColumnsPerPacket {
		return b, fmt.Errorf("ouster: record has %d columns, want %d", len(r.Columns), ColumnsPerPacket)
	}
	pixels := len(r.Columns[0].Pixels)
	if _, err := LayoutFor(pixels); err != nil {
		return b, err
	}
	for i := range r.Columns {
		c := &r.Columns[i]
		if len(c.Pixels) != pixels {
			return b, fmt.Errorf("ouster: column %d has %d pixels, want %d", i, len(c.Pixels), pixels)
		}
		b = binary.LittleEndian.AppendUint64(b, c.Timestamp)
		b = binary.LittleEndian.AppendUint16(b, c.MeasurementID)
		b = binary.LittleEndian.AppendUint16(b, c.FrameID)
		b = binary.LittleEndian.AppendUint32(b, c.EncoderCount)
		for _, px := range c.Pixels {
			b = binary.LittleEndian.AppendUint32(b, px.RawRange)
			b = binary.LittleEndian.AppendUint16(b, px.Reflectivity)
			b = binary.LittleEndian.AppendUint16(b, px.Signal)
			b = binary.LittleEndian.AppendUint16(b, px.Noise)
			b = binary.LittleEndian.AppendUint16(b, px.Reserved)
		}
		b = binary.LittleEndian.AppendUint32(b, c.Status)
	}
	return b, nil
}

// MarshalBinary returns the wire encoding of r.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(nil)
}
