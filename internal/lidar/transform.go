package lidar

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// FullTurn is one revolution in radians.
const FullTurn = 2 * math.Pi

// SphericalToCartesian converts a range (metres), azimuth and elevation
// (radians) into sensor-frame coordinates, applying the beam's mechanical
// offsets (metres). Elevation is measured from the horizontal plane and
// azimuth clockwise from the forward (+Y) axis.
func SphericalToCartesian(distance, azimuth, elevation, verticalOffset, horizontalOffset float64) r3.Vec {
	sinEl, cosEl := math.Sincos(elevation)
	sinAz, cosAz := math.Sincos(azimuth)

	planar := distance*cosEl - verticalOffset*sinEl
	return r3.Vec{
		X: planar*sinAz - horizontalOffset*cosAz,
		Y: planar*cosAz + horizontalOffset*sinAz,
		Z: distance*sinEl + verticalOffset*cosEl,
	}
}

// WrapAngle maps any angle in radians into [0, 2π).
func WrapAngle(rad float64) float64 {
	rad = math.Mod(rad, FullTurn)
	if rad < 0 {
		rad += FullTurn
	}
	// math.Mod can return FullTurn after the negative correction for
	// values a hair below zero.
	if rad >= FullTurn {
		rad -= FullTurn
	}
	return rad
}

// Radians converts degrees to radians.
func Radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// Degrees converts radians to degrees.
func Degrees(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
