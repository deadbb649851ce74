package calib

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/spinframe/internal/lidar"
)

func TestPresets_LoadAndValidate(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			table, err := Preset(name)
			require.NoError(t, err)
			require.NoError(t, table.Validate())
			assert.Equal(t, name, table.Model)
		})
	}
}

func TestPreset_VLP16(t *testing.T) {
	table, err := Preset("vlp-16")
	require.NoError(t, err)

	require.Equal(t, 16, table.BeamCount())
	assert.Equal(t, FamilyVelodyne, table.Family)
	assert.Equal(t, 0.002, table.DistanceResolution)
	assert.InDelta(t, lidar.Radians(-15), table.Beams[0].Elevation, 1e-12)
	assert.InDelta(t, lidar.Radians(15), table.Beams[15].Elevation, 1e-12)
	assert.InDelta(t, 0.0112, table.Beams[0].VerticalOffset, 1e-12)
	assert.InDelta(t, 2.304*15, table.Beams[15].FireTime, 1e-9)
	assert.InDelta(t, 2.304*15/55.296, table.Ratio(15), 1e-9)
	assert.Equal(t, 0.0, table.Ratio(0))
}

func TestPreset_VLP32CPairedFiring(t *testing.T) {
	table, err := Preset("VLP-32C")
	require.NoError(t, err)
	require.Equal(t, 32, table.BeamCount())
	assert.Equal(t, table.Beams[4].FireTime, table.Beams[5].FireTime)
	assert.InDelta(t, lidar.Radians(-4.2), table.Beams[1].AzimuthOffset, 1e-12)
}

func TestPreset_Ouster(t *testing.T) {
	table, err := Preset("OS1-64")
	require.NoError(t, err)
	require.Equal(t, 64, table.BeamCount())
	assert.Equal(t, FamilyOuster, table.Family)
	assert.Equal(t, DefaultColumnsPerRevolution, table.ColumnsPerRevolution)
	assert.InDelta(t, lidar.Radians(16.611), table.Beams[0].Elevation, 1e-12)
	assert.InDelta(t, lidar.Radians(-16.611), table.Beams[63].Elevation, 1e-12)
	assert.InDelta(t, -lidar.Radians(3.164), table.Beams[0].AzimuthOffset, 1e-12)
}

func TestPreset_Unknown(t *testing.T) {
	_, err := Preset("HDL-64E")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VLP-16")
}

func TestPreset_IsACopy(t *testing.T) {
	a, err := Preset("VLP-16")
	require.NoError(t, err)
	a.Beams[0].Elevation = 99

	b, err := Preset("VLP-16")
	require.NoError(t, err)
	assert.NotEqual(t, 99.0, b.Beams[0].Elevation)
}

func TestValidate(t *testing.T) {
	base, err := Preset("VLP-16")
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*Table)
		want   string
	}{
		{"bad resolution", func(t *Table) { t.DistanceResolution = 0 }, "distance_resolution"},
		{"bad beam count", func(t *Table) { t.Beams = t.Beams[:15] }, "beam_count"},
		{"bad firing period", func(t *Table) { t.FiringPeriod = 0 }, "firing_period"},
		{"fire time past period", func(t *Table) { t.Beams[3].FireTime = 60 }, "fire time"},
		{"bad return mode", func(t *Table) { t.ReturnMode = 0 }, "return mode"},
		{"bad family", func(t *Table) { t.Family = 0 }, "family"},
		{"ouster without width", func(t *Table) { t.Family = FamilyOuster }, "columns_per_revolution"},
		{"ouster dual", func(t *Table) {
			t.Family = FamilyOuster
			t.ColumnsPerRevolution = 512
			t.ReturnMode = ReturnDual
		}, "single return"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := base.Clone()
			tt.mutate(table)
			err := table.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParseHelpers(t *testing.T) {
	f, err := ParseFamily(" Ouster ")
	require.NoError(t, err)
	assert.Equal(t, FamilyOuster, f)
	_, err = ParseFamily("hesai")
	assert.Error(t, err)

	m, err := ParseReturnMode("DUAL")
	require.NoError(t, err)
	assert.Equal(t, ReturnDual, m)
	_, err = ParseReturnMode("both")
	assert.Error(t, err)

	cols, err := ParseLidarMode("2048x10")
	require.NoError(t, err)
	assert.Equal(t, 2048, cols)
	for _, bad := range []string{"2048x20", "1024", "abcx10"} {
		_, err := ParseLidarMode(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseCSV(t *testing.T) {
	input := "Channel,Elevation,Azimuth,Vertical Offset (mm)\n" +
		"1,1.5,-0.5\n"
	_, err := ParseCSV(strings.NewReader(input))
	require.ErrorContains(t, err, "expected 4 fields")

	input = "Channel,Elevation,Azimuth\n2,1.5,-0.5\n1,-2,0.25\n"
	beams, err := ParseCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, beams, 2)
	assert.InDelta(t, lidar.Radians(-2), beams[0].Elevation, 1e-12)
	assert.InDelta(t, lidar.Radians(-0.5), beams[1].AzimuthOffset, 1e-12)

	_, err = ParseCSV(strings.NewReader("Channel,Elevation,Azimuth\n1,0,0\n1,0,0\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = ParseCSV(strings.NewReader("Laser,Elevation,Azimuth\n1,0,0\n"))
	assert.ErrorContains(t, err, "header")

	_, err = ParseCSV(strings.NewReader("Channel,Elevation,Azimuth\n3,0,0\n"))
	assert.ErrorContains(t, err, "out of range")
}

func TestLoad_CSVOverridesPresetAngles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "angles.csv")

	var sb strings.Builder
	sb.WriteString("Channel,Elevation,Azimuth\n")
	for i := 1; i <= 16; i++ {
		sb.WriteString(strings.Join([]string{strconv.Itoa(i), "0.5", "0.1"}, ",") + "\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))

	table, err := Load("VLP-16", path)
	require.NoError(t, err)
	assert.InDelta(t, lidar.Radians(0.5), table.Beams[7].Elevation, 1e-12)
	assert.InDelta(t, lidar.Radians(0.1), table.Beams[7].AzimuthOffset, 1e-12)
	// Offsets and timing come from the preset.
	assert.InDelta(t, -0.0051, table.Beams[7].VerticalOffset, 1e-12)
	assert.InDelta(t, 2.304*7, table.Beams[7].FireTime, 1e-9)

	_, err = Load("HDL-32E", path)
	assert.ErrorContains(t, err, "16 channels")

	_, err = Load("", path)
	assert.ErrorContains(t, err, "preset")
}

func TestLoad_YAMLPerPixel(t *testing.T) {
	doc := `
model: OS1-16-custom
family: ouster
lidar_mode: 512x20
distance_resolution: 0.001
per_pixel:
  beam_altitude_angles: [15, 13, 11, 9, 7, 5, 3, 1, -1, -3, -5, -7, -9, -11, -13, -15]
  beam_azimuth_angles: [3, 1, -1, -3, 3, 1, -1, -3, 3, 1, -1, -3, 3, 1, -1, -3]
`
	path := filepath.Join(t.TempDir(), "os1.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "OS1-16-custom", table.Model)
	assert.Equal(t, 512, table.ColumnsPerRevolution)
	assert.Equal(t, ReturnStrongest, table.ReturnMode)
	require.Equal(t, 16, table.BeamCount())
	assert.InDelta(t, lidar.Radians(15), table.Beams[0].Elevation, 1e-12)
	assert.InDelta(t, -lidar.Radians(3), table.Beams[0].AzimuthOffset, 1e-12)
}

func TestParseJSON_PresetOverride(t *testing.T) {
	table, err := ParseJSON([]byte(`{"preset": "VLP-16", "return_mode": "dual"}`))
	require.NoError(t, err)
	assert.True(t, table.Dual())
	assert.Equal(t, 16, table.BeamCount())

	_, err = ParseJSON([]byte(`{"preset": "VLP-16", "beam_count": 32}`))
	assert.ErrorContains(t, err, "beam_count")

	_, err = ParseJSON([]byte(`{not json`))
	assert.Error(t, err)
}

func TestParseYAML_PerBeam(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("family: velodyne\nreturn_mode: last\ndistance_resolution: 0.002\nfiring_period_us: 46.08\nper_beam:\n")
	for i := 0; i < 32; i++ {
		sb.WriteString("  - {elevation: -10, azimuth_offset: 0, vertical_offset: 5, horizontal_offset: -2, fire_time_us: " +
			strconv.FormatFloat(1.152*float64(i), 'f', -1, 64) + "}\n")
	}
	table, err := ParseYAML([]byte(sb.String()))
	require.NoError(t, err)
	assert.Equal(t, ReturnLast, table.ReturnMode)
	assert.Equal(t, 32, table.BeamCount())
	assert.InDelta(t, 0.005, table.Beams[0].VerticalOffset, 1e-12)
	assert.InDelta(t, -0.002, table.Beams[0].HorizontalOffset, 1e-12)
	assert.InDelta(t, 31*1.152/46.08, table.Ratio(31), 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("", "")
	assert.Error(t, err)

	_, err = Load("", filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "stat")

	path := filepath.Join(t.TempDir(), "calib.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err = Load("VLP-16", path)
	assert.ErrorContains(t, err, ".json")

	both := `{"family":"ouster","lidar_mode":"1024x10","distance_resolution":0.001,
		"per_beam":[{"elevation":1}],"per_pixel":{"beam_altitude_angles":[1],"beam_azimuth_angles":[1]}}`
	_, err = ParseJSON([]byte(both))
	assert.ErrorContains(t, err, "not both")
}
