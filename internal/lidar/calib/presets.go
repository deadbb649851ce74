package calib

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/banshee-data/spinframe/internal/lidar"
)

//go:embed presets/*.csv
var embeddedPresets embed.FS

type presetInfo struct {
	family             Family
	distanceResolution float64 // metres per unit
	firingPeriod       float64 // µs
	file               string
}

// Velodyne timing: a VLP-16 fires its 16 lasers every 55.296 µs (2.304 µs
// apart), the HDL-32E fires 32 lasers every 46.08 µs (1.152 µs apart) and
// the VLP-32C fires lasers in pairs every 2.304 µs.
var velodynePresets = map[string]presetInfo{
	"VLP-16":     {FamilyVelodyne, 0.002, 55.296, "presets/VLP-16.csv"},
	"PUCK-HIRES": {FamilyVelodyne, 0.002, 55.296, "presets/PUCK-HIRES.csv"},
	"HDL-32E":    {FamilyVelodyne, 0.002, 46.080, "presets/HDL-32E.csv"},
	"VLP-32C":    {FamilyVelodyne, 0.004, 55.296, "presets/VLP-32C.csv"},
}

var ousterPresets = map[string]int{
	"OS1-16": 16,
	"OS1-64": 64,
}

// DefaultColumnsPerRevolution is the revolution width of the default
// 1024x10 Ouster lidar mode.
const DefaultColumnsPerRevolution = 1024

// PresetNames lists the built-in presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(velodynePresets)+len(ousterPresets))
	for n := range velodynePresets {
		names = append(names, n)
	}
	for n := range ousterPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Preset returns a fresh copy of a built-in calibration table. Names are
// case-insensitive. Velodyne presets use strongest return mode and Ouster
// presets the 1024x10 lidar mode.
func Preset(name string) (*Table, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	if info, ok := velodynePresets[key]; ok {
		return loadVelodynePreset(key, info)
	}
	if beams, ok := ousterPresets[key]; ok {
		return ousterPreset(key, beams), nil
	}
	return nil, fmt.Errorf("unknown calibration preset %q (known: %s)", name, strings.Join(PresetNames(), ", "))
}

func loadVelodynePreset(name string, info presetInfo) (*Table, error) {
	file, err := embeddedPresets.Open(info.file)
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded preset %s: %w", name, err)
	}
	defer file.Close()

	beams, err := ParseCSV(file)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded preset %s: %w", name, err)
	}
	return &Table{
		Model:              name,
		Family:             info.family,
		ReturnMode:         ReturnStrongest,
		DistanceResolution: info.distanceResolution,
		FiringPeriod:       info.firingPeriod,
		Beams:              beams,
	}, nil
}

// ousterPreset builds the factory-default OS1 intrinsics: beams spread
// evenly over ±16.611° with the four-column azimuth stagger.
func ousterPreset(name string, beams int) *Table {
	const maxAltitude = 16.611
	stagger := [4]float64{3.164, 1.055, -1.055, -3.164}

	altitudes := make([]float64, beams)
	azimuths := make([]float64, beams)
	step := 2 * maxAltitude / float64(beams-1)
	for i := range altitudes {
		altitudes[i] = maxAltitude - float64(i)*step
		azimuths[i] = stagger[i%4]
	}

	return &Table{
		Model:                name,
		Family:               FamilyOuster,
		ReturnMode:           ReturnStrongest,
		DistanceResolution:   0.001,
		ColumnsPerRevolution: DefaultColumnsPerRevolution,
		Beams:                PixelBeams(altitudes, azimuths),
	}
}

// PixelBeams converts Ouster per-pixel intrinsics (beam_altitude_angles and
// beam_azimuth_angles, degrees) into beams. The sensor reports azimuth
// angles as offsets to subtract from the encoder angle.
func PixelBeams(altitudeDeg, azimuthDeg []float64) []Beam {
	beams := make([]Beam, len(altitudeDeg))
	for i := range beams {
		beams[i].Elevation = lidar.Radians(altitudeDeg[i])
		if i < len(azimuthDeg) {
			beams[i].AzimuthOffset = -lidar.Radians(azimuthDeg[i])
		}
	}
	return beams
}
