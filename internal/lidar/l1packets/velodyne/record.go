package velodyne

import "encoding/binary"

// BlockRecord is an owned copy of one data block.
type BlockRecord struct {
	ID       uint16
	Azimuth  uint16
	Channels [ChannelsPerBlock]Channel
}

// Record is an owned copy of a whole data packet. It round-trips exactly
// through MarshalBinary and Decode.
type Record struct {
	Blocks     [BlocksPerPacket]BlockRecord
	Timestamp  uint32
	ReturnMode ReturnMode
	ProductID  ProductID
}

// AppendBinary appends the wire encoding of r to b.
func (r *Record) AppendBinary(b []byte) ([]byte, error) {
	for i := range r.Blocks {
		blk := &r.Blocks[i]
		b = binary.LittleEndian.AppendUint16(b, blk.ID)
		b = binary.LittleEndian.AppendUint16(b, blk.Azimuth)
		for _, ch := range blk.Channels {
			b = binary.LittleEndian.AppendUint16(b, ch.Distance)
			b = append(b, ch.Intensity)
		}
	}
	b = binary.LittleEndian.AppendUint32(b, r.Timestamp)
	b = append(b, byte(r.ReturnMode), byte(r.ProductID))
	return b, nil
}

// MarshalBinary returns the 1206-byte wire encoding of r.
func (r *Record) MarshalBinary() ([]byte, error) {
	return r.AppendBinary(make([]byte, 0, PacketSize))
}
