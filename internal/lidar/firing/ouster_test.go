package firing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/spinframe/internal/lidar/l1packets/ouster"
)

func makeColumns(t *testing.T, frameID uint16) ouster.Packet {
	t.Helper()
	r := ouster.Record{Columns: make([]ouster.ColumnRecord, ouster.ColumnsPerPacket)}
	for i := range r.Columns {
		r.Columns[i] = ouster.ColumnRecord{
			Timestamp:     uint64(5_000 + i),
			MeasurementID: uint16(i),
			FrameID:       frameID,
			EncoderCount:  uint32(i) * ouster.EncoderTicksPerRev / 4,
			Pixels:        make([]ouster.Pixel, 16),
			Status:        ouster.ValidStatus,
		}
	}
	r.Columns[3].Status = 0

	b, err := r.MarshalBinary()
	require.NoError(t, err)
	pkt, err := ouster.Decode(b, ouster.Layout16)
	require.NoError(t, err)
	return pkt
}

func TestFromColumn(t *testing.T) {
	pkt := makeColumns(t, 42)

	f := FromColumn(pkt.Column(2))
	assert.Equal(t, int64(5_002), f.Timestamp)
	assert.Equal(t, uint16(42), f.FrameID)
	assert.Equal(t, uint16(2), f.MeasurementID)
	assert.True(t, f.Valid)
	assert.InDelta(t, math.Pi, f.Azimuth, 1e-12)
	assert.Equal(t, 16, f.Column.Pixels())

	assert.False(t, FromColumn(pkt.Column(3)).Valid)
}

func TestExtractColumns(t *testing.T) {
	pkt := makeColumns(t, 7)
	firings := ExtractColumns(pkt, nil)
	require.Len(t, firings, ouster.ColumnsPerPacket)
	for i, f := range firings {
		assert.Equal(t, uint16(i), f.MeasurementID)
		assert.GreaterOrEqual(t, f.Azimuth, 0.0)
		assert.Less(t, f.Azimuth, 2*math.Pi)
	}
	// Column 4 is at a full turn and wraps to zero.
	assert.InDelta(t, 0, firings[4].Azimuth, 1e-12)
}

func TestEncoderAzimuth(t *testing.T) {
	assert.Equal(t, 0.0, EncoderAzimuth(0))
	assert.InDelta(t, math.Pi/2, EncoderAzimuth(ouster.EncoderTicksPerRev/4), 1e-12)
	assert.InDelta(t, 0, EncoderAzimuth(ouster.EncoderTicksPerRev), 1e-12)
	assert.InDelta(t, math.Pi/2, EncoderAzimuth(ouster.EncoderTicksPerRev*5/4), 1e-12)
}
