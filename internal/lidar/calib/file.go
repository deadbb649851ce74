package calib

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/spinframe/internal/lidar"
)

// maxFileSize caps calibration files read from disk.
const maxFileSize = 1 * 1024 * 1024

// File is the on-disk calibration schema shared by the JSON and YAML
// loaders. Angles are degrees, offsets millimetres and times microseconds.
// When Preset is set, the preset supplies every field the file omits.
type File struct {
	Preset             string            `json:"preset,omitempty" yaml:"preset,omitempty"`
	Model              string            `json:"model,omitempty" yaml:"model,omitempty"`
	Family             string            `json:"family,omitempty" yaml:"family,omitempty"`
	BeamCount          int               `json:"beam_count,omitempty" yaml:"beam_count,omitempty"`
	ReturnMode         string            `json:"return_mode,omitempty" yaml:"return_mode,omitempty"`
	DistanceResolution float64           `json:"distance_resolution,omitempty" yaml:"distance_resolution,omitempty"`
	FiringPeriodUS     float64           `json:"firing_period_us,omitempty" yaml:"firing_period_us,omitempty"`
	LidarMode          string            `json:"lidar_mode,omitempty" yaml:"lidar_mode,omitempty"`
	PerBeam            []BeamEntry       `json:"per_beam,omitempty" yaml:"per_beam,omitempty"`
	PerPixel           *PixelCorrections `json:"per_pixel,omitempty" yaml:"per_pixel,omitempty"`
}

// BeamEntry is one row of a per-beam calibration.
type BeamEntry struct {
	Elevation        float64 `json:"elevation" yaml:"elevation"`
	AzimuthOffset    float64 `json:"azimuth_offset" yaml:"azimuth_offset"`
	VerticalOffset   float64 `json:"vertical_offset" yaml:"vertical_offset"`
	HorizontalOffset float64 `json:"horizontal_offset" yaml:"horizontal_offset"`
	FireTime         float64 `json:"fire_time_us" yaml:"fire_time_us"`
}

// PixelCorrections holds Ouster intrinsics as reported by the sensor
// metadata endpoint.
type PixelCorrections struct {
	BeamAltitudeAngles []float64 `json:"beam_altitude_angles" yaml:"beam_altitude_angles"`
	BeamAzimuthAngles  []float64 `json:"beam_azimuth_angles" yaml:"beam_azimuth_angles"`
}

// ParseJSON parses a JSON calibration document.
func ParseJSON(data []byte) (*Table, error) {
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse calibration JSON: %w", err)
	}
	return f.Table(nil)
}

// ParseYAML parses a YAML calibration document.
func ParseYAML(data []byte) (*Table, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse calibration YAML: %w", err)
	}
	return f.Table(nil)
}

// Load builds a calibration table from a preset name and an optional file.
// CSV files replace the preset's beam angles; JSON and YAML files use the
// preset as their base unless they name one themselves.
func Load(preset, path string) (*Table, error) {
	var base *Table
	if preset != "" {
		t, err := Preset(preset)
		if err != nil {
			return nil, err
		}
		base = t
	}

	if path == "" {
		if base == nil {
			return nil, fmt.Errorf("no calibration preset or file given")
		}
		return base, base.Validate()
	}

	cleanPath := filepath.Clean(path)
	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat calibration file: %w", err)
	}
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("calibration file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	ext := strings.ToLower(filepath.Ext(cleanPath))
	if ext == ".csv" {
		if base == nil {
			return nil, fmt.Errorf("CSV calibration %s needs a preset for the sensor model", cleanPath)
		}
		if err := ApplyCSVFile(base, cleanPath); err != nil {
			return nil, err
		}
		return base, base.Validate()
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read calibration file: %w", err)
	}

	var f File
	switch ext {
	case ".json":
		err = json.Unmarshal(data, &f)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &f)
	default:
		return nil, fmt.Errorf("calibration file must be .json, .yaml, .yml or .csv, got %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse calibration file %s: %w", cleanPath, err)
	}
	return f.Table(base)
}

// LoadFile loads a JSON or YAML calibration file without a preset base.
func LoadFile(path string) (*Table, error) {
	return Load("", path)
}

// Table converts the file into a validated table. base, or the preset the
// file names, supplies omitted fields.
func (f *File) Table(base *Table) (*Table, error) {
	t := &Table{}
	if f.Preset != "" {
		p, err := Preset(f.Preset)
		if err != nil {
			return nil, err
		}
		t = p
	} else if base != nil {
		t = base.Clone()
	}

	if f.Model != "" {
		t.Model = f.Model
	}
	if f.Family != "" {
		fam, err := ParseFamily(f.Family)
		if err != nil {
			return nil, err
		}
		t.Family = fam
	}
	if f.ReturnMode != "" {
		mode, err := ParseReturnMode(f.ReturnMode)
		if err != nil {
			return nil, err
		}
		t.ReturnMode = mode
	}
	if t.ReturnMode == 0 {
		t.ReturnMode = ReturnStrongest
	}
	if f.DistanceResolution != 0 {
		t.DistanceResolution = f.DistanceResolution
	}
	if f.FiringPeriodUS != 0 {
		t.FiringPeriod = f.FiringPeriodUS
	}
	if f.LidarMode != "" {
		cols, err := ParseLidarMode(f.LidarMode)
		if err != nil {
			return nil, err
		}
		t.ColumnsPerRevolution = cols
	}

	switch {
	case len(f.PerBeam) > 0 && f.PerPixel != nil:
		return nil, fmt.Errorf("calibration may set per_beam or per_pixel, not both")
	case len(f.PerBeam) > 0:
		t.Beams = make([]Beam, len(f.PerBeam))
		for i, e := range f.PerBeam {
			t.Beams[i] = Beam{
				Elevation:        lidar.Radians(e.Elevation),
				AzimuthOffset:    lidar.Radians(e.AzimuthOffset),
				VerticalOffset:   e.VerticalOffset / 1000.0,
				HorizontalOffset: e.HorizontalOffset / 1000.0,
				FireTime:         e.FireTime,
			}
		}
	case f.PerPixel != nil:
		pp := f.PerPixel
		if len(pp.BeamAzimuthAngles) != len(pp.BeamAltitudeAngles) {
			return nil, fmt.Errorf("per_pixel tables differ in length: %d altitude, %d azimuth",
				len(pp.BeamAltitudeAngles), len(pp.BeamAzimuthAngles))
		}
		t.Beams = PixelBeams(pp.BeamAltitudeAngles, pp.BeamAzimuthAngles)
		if t.Family == 0 {
			t.Family = FamilyOuster
		}
		if t.ColumnsPerRevolution == 0 {
			t.ColumnsPerRevolution = DefaultColumnsPerRevolution
		}
	}

	if f.BeamCount != 0 && f.BeamCount != len(t.Beams) {
		return nil, fmt.Errorf("beam_count %d does not match %d calibrated beams", f.BeamCount, len(t.Beams))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
