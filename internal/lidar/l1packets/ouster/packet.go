package ouster

import (
	"encoding/binary"
	"fmt"

	"github.com/banshee-data/spinframe/internal/lidar/l1packets"
)

/*
Ouster OS-1 Legacy Lidar Data Packet Layout

Each UDP payload carries 16 measurement columns. A column is one encoder
position, stamped with the frame counter and a per-revolution measurement
index. All integers are little-endian; there is no padding.

COLUMN STRUCTURE (16 + 12×N + 4 bytes, N = pixels per column):
├── Timestamp (8 bytes): nanoseconds
├── Measurement ID (2 bytes): column index within the revolution
├── Frame ID (2 bytes): revolution counter, wraps at 65536
├── Encoder count (4 bytes): 0..90111 per revolution
├── Pixels (N × 12 bytes)
│   └── Each pixel: 4-byte range (low 20 bits = mm) + 2-byte reflectivity +
│       2-byte signal + 2-byte noise + 2-byte reserved
└── Status (4 bytes): 0xFFFFFFFF when the column is valid

OS1-64 packets are therefore 16 × 788 = 12608 bytes.
*/

const (
	ColumnsPerPacket   = 16
	ColumnHeaderSize   = 16
	ColumnStatusSize   = 4
	PixelSize          = 12
	EncoderTicksPerRev = 90112
	RangeMask          = 0x000FFFFF // 20-bit range in millimetres
	ValidStatus        = 0xFFFFFFFF
)

// Layout fixes the pixels per column and therefore every record size.
type Layout struct {
	pixels int
}

// The four supported beam counts.
var (
	Layout16  = Layout{pixels: 16}
	Layout32  = Layout{pixels: 32}
	Layout64  = Layout{pixels: 64}
	Layout128 = Layout{pixels: 128}
)

// LayoutFor returns the layout for a beam count.
func LayoutFor(pixels int) (Layout, error) {
	switch pixels {
	case 16:
		return Layout16, nil
	case 32:
		return Layout32, nil
	case 64:
		return Layout64, nil
	case 128:
		return Layout128, nil
	}
	return Layout{}, fmt.Errorf("unsupported pixels per column: %d", pixels)
}

// PixelsPerColumn returns the beam count.
func (l Layout) PixelsPerColumn() int { return l.pixels }

// ColumnSize returns the byte size of one column.
func (l Layout) ColumnSize() int {
	return ColumnHeaderSize + l.pixels*PixelSize + ColumnStatusSize
}

// PacketSize returns the byte size of one packet.
func (l Layout) PacketSize() int {
	return ColumnsPerPacket * l.ColumnSize()
}

// Packet is a read-only view over one lidar data packet.
type Packet struct {
	b      []byte
	layout Layout
}

// Decode validates the buffer length for the layout and returns a zero-copy
// view over it.
func Decode(b []byte, layout Layout) (Packet, error) {
	if layout.pixels == 0 {
		return Packet{}, fmt.Errorf("ouster: zero layout")
	}
	if err := l1packets.CheckSize(b, layout.PacketSize()); err != nil {
		return Packet{}, err
	}
	return Packet{b: b, layout: layout}, nil
}

// Bytes returns the underlying buffer.
func (p Packet) Bytes() []byte { return p.b }

// Layout returns the layout the packet was decoded with.
func (p Packet) Layout() Layout { return p.layout }

// Column returns the i-th column view. i must be in [0, ColumnsPerPacket).
func (p Packet) Column(i int) Column {
	size := p.layout.ColumnSize()
	off := i * size
	return Column{b: p.b[off : off+size : off+size], pixels: p.layout.pixels}
}

// Record copies the packet into an owned struct.
func (p Packet) Record() Record {
	r := Record{Columns: make([]ColumnRecord, ColumnsPerPacket)}
	for i := range r.Columns {
		r.Columns[i] = p.Column(i).Record()
	}
	return r
}

// Column is a read-only view over one measurement column.
type Column struct {
	b      []byte
	pixels int
}

// Timestamp returns the column timestamp in nanoseconds.
func (c Column) Timestamp() uint64 { return binary.LittleEndian.Uint64(c.b[0:8]) }

// MeasurementID returns the column index within its revolution.
func (c Column) MeasurementID() uint16 { return binary.LittleEndian.Uint16(c.b[8:10]) }

// FrameID returns the revolution counter.
func (c Column) FrameID() uint16 { return binary.LittleEndian.Uint16(c.b[10:12]) }

// EncoderCount returns the raw encoder position.
func (c Column) EncoderCount() uint32 { return binary.LittleEndian.Uint32(c.b[12:16]) }

// Status returns the raw status word.
func (c Column) Status() uint32 {
	off := ColumnHeaderSize + c.pixels*PixelSize
	return binary.LittleEndian.Uint32(c.b[off : off+4])
}

// Valid reports whether the sensor flagged the column as valid.
func (c Column) Valid() bool { return c.Status() == ValidStatus }

// Pixels returns the number of pixels in the column.
func (c Column) Pixels() int { return c.pixels }

// Pixel returns the i-th pixel. i must be in [0, Pixels()).
func (c Column) Pixel(i int) Pixel {
	off := ColumnHeaderSize + i*PixelSize
	px := c.b[off : off+PixelSize]
	return Pixel{
		RawRange:     binary.LittleEndian.Uint32(px[0:4]),
		Reflectivity: binary.LittleEndian.Uint16(px[4:6]),
		Signal:       binary.LittleEndian.Uint16(px[6:8]),
		Noise:        binary.LittleEndian.Uint16(px[8:10]),
		Reserved:     binary.LittleEndian.Uint16(px[10:12]),
	}
}

// Record copies the column into an owned struct.
func (c Column) Record() ColumnRecord {
	r := ColumnRecord{
		Timestamp:     c.Timestamp(),
		MeasurementID: c.MeasurementID(),
		FrameID:       c.FrameID(),
		EncoderCount:  c.EncoderCount(),
		Pixels:        make([]Pixel, c.pixels),
		Status:        c.Status(),
	}
	for i := range r.Pixels {
		r.Pixels[i] = c.Pixel(i)
	}
	return r
}

// Pixel is one beam's raw return.
type Pixel struct {
	RawRange     uint32 // upper 12 bits are not range data
	Reflectivity uint16
	Signal       uint16
	Noise        uint16
	Reserved     uint16
}

// Range returns the range in millimetres with the unused bits masked off.
func (p Pixel) Range() uint32 { return p.RawRange & RangeMask }
