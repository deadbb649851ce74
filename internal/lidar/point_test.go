package lidar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestNewDualPoint(t *testing.T) {
	strongest := Point{
		LaserID:     3,
		Timestamp:   1_000,
		Azimuth:     1.25,
		Measurement: Measurement{Distance: 12.5, Intensity: 90, Position: r3.Vec{X: 1, Y: 2, Z: 3}},
	}
	last := strongest
	last.Measurement = Measurement{Distance: 14, Intensity: 10, Position: r3.Vec{X: 1.1, Y: 2.2, Z: 3.3}}

	dp, err := NewDualPoint(strongest, last)
	require.NoError(t, err)
	assert.Equal(t, 3, dp.LaserID)
	assert.Equal(t, strongest.Measurement, dp.Strongest)
	assert.Equal(t, last.Measurement, dp.Last)

	s, l := dp.Split()
	assert.Equal(t, strongest, s)
	assert.Equal(t, last, l)
}

func TestNewDualPoint_Mismatch(t *testing.T) {
	base := Point{LaserID: 1, Timestamp: 10, Azimuth: 0.5}

	tests := []struct {
		name   string
		mutate func(p *Point)
	}{
		{"laser", func(p *Point) { p.LaserID = 2 }},
		{"timestamp", func(p *Point) { p.Timestamp = 11 }},
		{"azimuth", func(p *Point) { p.Azimuth = 0.51 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := base
			tt.mutate(&other)
			_, err := NewDualPoint(base, other)
			assert.ErrorIs(t, err, ErrDualMismatch)
			assert.Contains(t, err.Error(), tt.name)
		})
	}
}
