package velodyne

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/spinframe/internal/lidar/l1packets"
)

// createTestRecord builds a VLP-16 strongest-return packet whose blocks
// step 0.2° apart starting at startAzimuth.
func createTestRecord(startAzimuth uint16) Record {
	r := Record{
		Timestamp:  1_234_567,
		ReturnMode: ReturnStrongest,
		ProductID:  ProductVLP16,
	}
	for i := range r.Blocks {
		r.Blocks[i].ID = UpperBlockID
		r.Blocks[i].Azimuth = uint16((int(startAzimuth) + i*20) % AzimuthUnitsPerTurn)
		for ch := range r.Blocks[i].Channels {
			r.Blocks[i].Channels[ch] = Channel{
				Distance:  uint16(1000 + i*32 + ch),
				Intensity: uint8(ch * 7),
			}
		}
	}
	return r
}

func TestDecode_Fields(t *testing.T) {
	rec := createTestRecord(35990)
	data, err := rec.MarshalBinary()
	require.NoError(t, err)
	require.Len(t, data, PacketSize)

	pkt, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, uint32(1_234_567), pkt.Timestamp())
	assert.Equal(t, ReturnStrongest, pkt.ReturnMode())
	assert.Equal(t, ProductVLP16, pkt.ProductID())

	b0 := pkt.Block(0)
	assert.Equal(t, UpperBlockID, b0.ID())
	assert.Equal(t, uint16(35990), b0.Azimuth())
	assert.Equal(t, uint16(10), pkt.Block(1).Azimuth(), "azimuth wraps at 36000")

	ch := pkt.Block(3).Channel(5)
	assert.Equal(t, uint16(1000+3*32+5), ch.Distance)
	assert.Equal(t, uint8(35), ch.Intensity)

	// Flag bytes on the wire are FF EE.
	assert.Equal(t, []byte{0xFF, 0xEE}, data[0:2])
}

func TestDecode_ZeroCopy(t *testing.T) {
	rec := createTestRecord(0)
	data, err := rec.MarshalBinary()
	require.NoError(t, err)

	pkt, err := Decode(data)
	require.NoError(t, err)

	// The view aliases the caller's buffer.
	data[TrailerOffset] = 0x01
	assert.Equal(t, uint32(1_234_567)&^0xFF|0x01, pkt.Timestamp())
	assert.Same(t, &data[0], &pkt.Bytes()[0])
}

func TestDecode_SizeMismatch(t *testing.T) {
	for _, size := range []int{0, 1, PacketSize - 1, PacketSize + 1, 1262} {
		_, err := Decode(make([]byte, size))
		require.Error(t, err, "size %d", size)

		var sizeErr *l1packets.SizeMismatchError
		require.True(t, errors.As(err, &sizeErr))
		assert.Equal(t, PacketSize, sizeErr.Expected)
		assert.Equal(t, size, sizeErr.Actual)
		assert.True(t, errors.Is(err, l1packets.ErrSizeMismatch))
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		data := make([]byte, PacketSize)
		rng.Read(data)

		pkt, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, data, pkt.Bytes())

		rec := pkt.Record()
		out, err := rec.MarshalBinary()
		require.NoError(t, err)
		assert.True(t, bytes.Equal(data, out), "iteration %d: re-encoded packet differs", i)
	}
}

func TestDecode_PreservesUnknownTrailerBytes(t *testing.T) {
	rec := createTestRecord(0)
	rec.ReturnMode = 0x99
	rec.ProductID = 0x77
	data, err := rec.MarshalBinary()
	require.NoError(t, err)

	pkt, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, ReturnMode(0x99), pkt.ReturnMode())
	assert.Equal(t, ProductID(0x77), pkt.ProductID())

	_, ok := pkt.Format()
	assert.False(t, ok)
}
