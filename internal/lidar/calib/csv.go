package calib

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/spinframe/internal/lidar"
)

// csvColumns are the recognised angle-correction columns. The first three
// are required.
var csvColumns = []string{"channel", "elevation", "azimuth", "verticaloffset", "horizontaloffset", "firetime"}

// ParseCSV parses an angle correction file:
//
//	Channel,Elevation,Azimuth[,VerticalOffset,HorizontalOffset,FireTime]
//
// Channels are 1-based, angles degrees, offsets millimetres and fire times
// microseconds.
func ParseCSV(r io.Reader) ([]Beam, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("insufficient data in angle correction file")
	}

	header := records[0]
	if len(header) < 3 || len(header) > len(csvColumns) {
		return nil, fmt.Errorf("invalid header in angle correction file, expected: Channel,Elevation,Azimuth[,VerticalOffset,HorizontalOffset,FireTime]")
	}
	for i, name := range header {
		if normaliseHeader(name) != csvColumns[i] {
			return nil, fmt.Errorf("invalid header column %d: got %q, want %q", i+1, name, csvColumns[i])
		}
	}

	rows := records[1:]
	beams := make([]Beam, len(rows))
	seen := make([]bool, len(rows))
	for i, record := range rows {
		line := i + 2
		if len(record) != len(header) {
			return nil, fmt.Errorf("invalid record at line %d: expected %d fields", line, len(header))
		}

		channel, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("invalid channel number at line %d: %w", line, err)
		}
		if channel < 1 || channel > len(rows) {
			return nil, fmt.Errorf("channel number %d out of range (1-%d) at line %d", channel, len(rows), line)
		}
		if seen[channel-1] {
			return nil, fmt.Errorf("duplicate channel %d at line %d", channel, line)
		}
		seen[channel-1] = true

		var values [5]float64
		for col := 1; col < len(record); col++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid %s at line %d: %w", csvColumns[col], line, err)
			}
			values[col-1] = v
		}

		beams[channel-1] = Beam{
			Elevation:        lidar.Radians(values[0]),
			AzimuthOffset:    lidar.Radians(values[1]),
			VerticalOffset:   values[2] / 1000.0,
			HorizontalOffset: values[3] / 1000.0,
			FireTime:         values[4],
		}
	}
	return beams, nil
}

// ApplyCSVFile replaces the beams of t with those from a correction file.
// The file must describe the same number of beams. Columns missing from
// the file keep the values already in t.
func ApplyCSVFile(t *Table, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open angle correction file: %w", err)
	}
	defer f.Close()

	header, beams, err := parseCSVWithHeader(f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if len(beams) != len(t.Beams) {
		return fmt.Errorf("%s: %d channels, calibration expects %d", path, len(beams), len(t.Beams))
	}
	for i := range beams {
		b := &t.Beams[i]
		b.Elevation = beams[i].Elevation
		b.AzimuthOffset = beams[i].AzimuthOffset
		if header > 3 {
			b.VerticalOffset = beams[i].VerticalOffset
		}
		if header > 4 {
			b.HorizontalOffset = beams[i].HorizontalOffset
		}
		if header > 5 {
			b.FireTime = beams[i].FireTime
		}
	}
	return nil
}

func parseCSVWithHeader(r io.Reader) (int, []Beam, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, nil, err
	}
	first, _, _ := strings.Cut(string(data), "\n")
	columns := len(strings.Split(strings.TrimSpace(first), ","))
	beams, err := ParseCSV(strings.NewReader(string(data)))
	return columns, beams, err
}

func normaliseHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, "\ufeff")
	if i := strings.IndexAny(s, "(["); i >= 0 {
		s = s[:i]
	}
	return strings.NewReplacer(" ", "", "_", "").Replace(s)
}
