// Package calib holds per-beam geometric calibration for the supported
// sensor families, the built-in presets, and loaders for calibration files.
package calib

import (
	"fmt"
	"strconv"
	"strings"
)

// Family selects the wire format and frame boundary policy of a sensor.
type Family int

const (
	// FamilyVelodyne sensors have no frame counter; revolutions are found
	// by azimuth wraparound.
	FamilyVelodyne Family = iota + 1
	// FamilyOuster sensors stamp every column with a frame and
	// measurement counter.
	FamilyOuster
)

func (f Family) String() string {
	switch f {
	case FamilyVelodyne:
		return "velodyne"
	case FamilyOuster:
		return "ouster"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

// ParseFamily parses "velodyne" or "ouster".
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "velodyne":
		return FamilyVelodyne, nil
	case "ouster":
		return FamilyOuster, nil
	}
	return 0, fmt.Errorf("unknown sensor family %q", s)
}

// ReturnMode is the configured return mode of a sensor.
type ReturnMode int

const (
	ReturnStrongest ReturnMode = iota + 1
	ReturnLast
	ReturnDual
)

func (m ReturnMode) String() string {
	switch m {
	case ReturnStrongest:
		return "strongest"
	case ReturnLast:
		return "last"
	case ReturnDual:
		return "dual"
	}
	return fmt.Sprintf("ReturnMode(%d)", int(m))
}

// ParseReturnMode parses "strongest", "last" or "dual".
func ParseReturnMode(s string) (ReturnMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "strongest":
		return ReturnStrongest, nil
	case "last":
		return ReturnLast, nil
	case "dual":
		return ReturnDual, nil
	}
	return 0, fmt.Errorf("unknown return mode %q", s)
}

// ParseLidarMode parses an Ouster lidar mode such as "1024x10" and returns
// the number of columns per revolution.
func ParseLidarMode(s string) (int, error) {
	cols, rate, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, fmt.Errorf("invalid lidar mode %q", s)
	}
	n, err := strconv.Atoi(cols)
	if err != nil {
		return 0, fmt.Errorf("invalid lidar mode %q: %w", s, err)
	}
	switch s := strings.ToLower(strings.TrimSpace(s)); s {
	case "512x10", "512x20", "1024x10", "1024x20", "2048x10":
		return n, nil
	}
	return 0, fmt.Errorf("unsupported lidar mode %q (rate %s)", s, rate)
}

// Beam is the calibration of one laser index. Angles are radians and
// offsets metres.
type Beam struct {
	Elevation        float64 // above the horizontal plane
	AzimuthOffset    float64 // added to the interpolated firing azimuth
	VerticalOffset   float64
	HorizontalOffset float64
	FireTime         float64 // microseconds after the start of the firing
}

// Table is the full calibration of one sensor. A Table is immutable once
// handed to a converter and may be shared between goroutines.
type Table struct {
	Model              string
	Family             Family
	ReturnMode         ReturnMode
	DistanceResolution float64 // metres per raw distance unit

	// FiringPeriod is the nominal duration of one firing in microseconds.
	// Velodyne only; block timing and azimuth interpolation derive from it.
	FiringPeriod float64

	// ColumnsPerRevolution is the revolution width. Ouster only.
	ColumnsPerRevolution int

	Beams []Beam
}

// BeamCount returns the number of lasers.
func (t *Table) BeamCount() int { return len(t.Beams) }

// Dual reports whether both returns are kept per firing.
func (t *Table) Dual() bool { return t.ReturnMode == ReturnDual }

// Ratio returns the fraction of the firing period elapsed when beam i
// fires. It linearly interpolates azimuth within the firing.
func (t *Table) Ratio(i int) float64 {
	if t.FiringPeriod <= 0 {
		return 0
	}
	return t.Beams[i].FireTime / t.FiringPeriod
}

// Clone returns a deep copy, so presets can be modified safely.
func (t *Table) Clone() *Table {
	c := *t
	c.Beams = append([]Beam(nil), t.Beams...)
	return &c
}

// Validate checks that the table is complete for its family.
func (t *Table) Validate() error {
	if t.DistanceResolution <= 0 {
		return fmt.Errorf("distance_resolution must be positive, got %g", t.DistanceResolution)
	}
	switch t.ReturnMode {
	case ReturnStrongest, ReturnLast, ReturnDual:
	default:
		return fmt.Errorf("invalid return mode %v", t.ReturnMode)
	}

	n := len(t.Beams)
	switch t.Family {
	case FamilyVelodyne:
		if n != 16 && n != 32 {
			return fmt.Errorf("velodyne beam_count must be 16 or 32, got %d", n)
		}
		if t.FiringPeriod <= 0 {
			return fmt.Errorf("velodyne firing_period must be positive, got %g", t.FiringPeriod)
		}
		for i, b := range t.Beams {
			if b.FireTime < 0 || b.FireTime >= t.FiringPeriod {
				return fmt.Errorf("beam %d fire time %g outside firing period %g", i+1, b.FireTime, t.FiringPeriod)
			}
		}
	case FamilyOuster:
		if n != 16 && n != 32 && n != 64 && n != 128 {
			return fmt.Errorf("ouster beam_count must be 16, 32, 64 or 128, got %d", n)
		}
		if t.ColumnsPerRevolution <= 0 {
			return fmt.Errorf("ouster columns_per_revolution must be positive, got %d", t.ColumnsPerRevolution)
		}
		if t.ReturnMode == ReturnDual {
			return fmt.Errorf("ouster legacy packets carry a single return")
		}
	default:
		return fmt.Errorf("invalid sensor family %v", t.Family)
	}
	return nil
}
