package velodyne

import (
	"encoding/binary"

	"github.com/banshee-data/spinframe/internal/lidar/l1packets"
)

/*
Velodyne HDL/VLP Data Packet Layout

Every rotating Velodyne sensor in the HDL-32E / VLP-16 / VLP-32C family sends
1206-byte UDP payloads (port 2368 by default). All integers are little-endian
and the structure is packed.

PACKET STRUCTURE (1206 bytes total):
├── Data Blocks (1200 bytes) - 12 blocks × 100 bytes each, starting at offset 0
│   └── Each block: 2-byte flag (0xFFEE) + 2-byte azimuth + 32 channels × 3 bytes
│       └── Each channel: 2-byte distance + 1-byte intensity
└── Trailer (6 bytes) - starting at offset 1200
    ├── Timestamp (4 bytes): microseconds past the top of the hour
    ├── Return mode (1 byte): 0x37 strongest, 0x38 last, 0x39 dual
    └── Product ID (1 byte): 0x21 HDL-32E, 0x22 VLP-16, 0x28 VLP-32C, ...

The block flag reads 0xEEFF when decoded little-endian. HDL-64 style
sensors use 0xDDFF for their lower laser bank; the value is preserved as-is.

The decoder never copies: a Packet is a bounds-checked view over the caller's
buffer and stays valid only as long as that buffer is not reused.
*/

const (
	PacketSize       = 1206                                           // UDP payload size in bytes
	BlocksPerPacket  = 12                                             // data blocks per packet
	ChannelsPerBlock = 32                                             // channel returns per data block
	ChannelSize      = 3                                              // 2 bytes distance + 1 byte intensity
	BlockHeaderSize  = 4                                              // 2 bytes flag + 2 bytes azimuth
	BlockSize        = BlockHeaderSize + ChannelsPerBlock*ChannelSize // 100 bytes
	TrailerOffset    = BlocksPerPacket * BlockSize                    // 1200
	TrailerSize      = PacketSize - TrailerOffset                     // 6 bytes

	UpperBlockID uint16 = 0xEEFF // 0xFFEE on the wire
	LowerBlockID uint16 = 0xDDFF // 0xFFDD on the wire

	AzimuthUnitsPerTurn = 36000 // azimuth counts are hundredths of a degree
)

// Channel is one laser's raw return inside a block.
type Channel struct {
	Distance  uint16 // sensor-specific units, 0 = no return
	Intensity uint8
}

// Packet is a read-only view over one decoded data packet.
type Packet struct {
	b []byte
}

// Decode validates the buffer length and returns a zero-copy view over it.
// No semantic validation is done: unknown return-mode and product bytes are
// preserved for the format resolver to reject.
func Decode(b []byte) (Packet, error) {
	if err := l1packets.CheckSize(b, PacketSize); err != nil {
		return Packet{}, err
	}
	return Packet{b: b}, nil
}

// Bytes returns the underlying buffer.
func (p Packet) Bytes() []byte { return p.b }

// Block returns the i-th data block view. i must be in [0, BlocksPerPacket).
func (p Packet) Block(i int) Block {
	off := i * BlockSize
	return Block{b: p.b[off : off+BlockSize : off+BlockSize]}
}

// Timestamp returns microseconds past the top of the hour.
func (p Packet) Timestamp() uint32 {
	return binary.LittleEndian.Uint32(p.b[TrailerOffset : TrailerOffset+4])
}

// ReturnMode returns the raw return-mode byte.
func (p Packet) ReturnMode() ReturnMode { return ReturnMode(p.b[TrailerOffset+4]) }

// ProductID returns the raw product (model) byte.
func (p Packet) ProductID() ProductID { return ProductID(p.b[TrailerOffset+5]) }

// Format resolves the packet's self-declared format kind.
func (p Packet) Format() (FormatKind, bool) {
	return Resolve(p.ProductID(), p.ReturnMode())
}

// Record copies the packet into an owned struct.
func (p Packet) Record() Record {
	r := Record{
		Timestamp:  p.Timestamp(),
		ReturnMode: p.ReturnMode(),
		ProductID:  p.ProductID(),
	}
	for i := range r.Blocks {
		r.Blocks[i] = p.Block(i).Record()
	}
	return r
}

// Block is a read-only view over one 100-byte data block.
type Block struct {
	b []byte
}

// ID returns the block flag, normally UpperBlockID.
func (b Block) ID() uint16 { return binary.LittleEndian.Uint16(b.b[0:2]) }

// Azimuth returns the encoder azimuth in hundredths of a degree (0..35999).
func (b Block) Azimuth() uint16 { return binary.LittleEndian.Uint16(b.b[2:4]) }

// Channel returns the i-th channel return. i must be in [0, ChannelsPerBlock).
func (b Block) Channel(i int) Channel {
	off := BlockHeaderSize + i*ChannelSize
	return Channel{
		Distance:  binary.LittleEndian.Uint16(b.b[off : off+2]),
		Intensity: b.b[off+2],
	}
}

// Record copies the block into an owned struct.
func (b Block) Record() BlockRecord {
	r := BlockRecord{ID: b.ID(), Azimuth: b.Azimuth()}
	for i := range r.Channels {
		r.Channels[i] = b.Channel(i)
	}
	return r
}
