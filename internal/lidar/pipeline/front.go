package pipeline

import (
	"fmt"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/firing"
	"github.com/banshee-data/spinframe/internal/lidar/geometry"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/ouster"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"
	"github.com/banshee-data/spinframe/internal/lidar/l2frames"
)

// job is the owned result of extracting one packet: everything conversion
// needs, with no reference to the source's buffer.
type job struct {
	firings []firing.Firing
	columns []firing.ColumnFiring
	buf     []byte // backs the column views
}

func (j job) empty() bool { return len(j.firings) == 0 && len(j.columns) == 0 }

// frontEnd is the family-specific part of a pipeline. extract and flush
// carry state and run in packet order; convert is pure.
type frontEnd[P any] interface {
	extract(b []byte, anomaly func(l2frames.AnomalyKind, string)) (job, error)
	flush() job
	convert(j job) ([]l2frames.Scan[P], error)
}

type velodyneFront[P any] struct {
	kind      velodyne.FormatKind
	extractor *firing.Extractor
	conv      *geometry.Converter
	point     func(c *geometry.Converter, f *firing.Firing, dst []P) []P
}

func (v *velodyneFront[P]) extract(b []byte, anomaly func(l2frames.AnomalyKind, string)) (job, error) {
	pkt, err := velodyne.Decode(b)
	if err != nil {
		return job{}, err
	}
	declared, ok := pkt.Format()
	if !ok {
		return job{}, fmt.Errorf("%w: product %v, return mode %v", ErrUnsupportedFormat, pkt.ProductID(), pkt.ReturnMode())
	}
	if declared != v.kind {
		anomaly(l2frames.FormatMismatch, fmt.Sprintf("packet declares %v (%v, %v), processing as %v",
			declared, pkt.ProductID(), pkt.ReturnMode(), v.kind))
	}
	firings := v.extractor.Extract(pkt)
	return job{firings: append([]firing.Firing(nil), firings...)}, nil
}

func (v *velodyneFront[P]) flush() job {
	return job{firings: append([]firing.Firing(nil), v.extractor.Finish()...)}
}

func (v *velodyneFront[P]) convert(j job) ([]l2frames.Scan[P], error) {
	beams := v.kind.Beams()
	points := make([]P, 0, len(j.firings)*beams)
	scans := make([]l2frames.Scan[P], len(j.firings))
	for i := range j.firings {
		f := &j.firings[i]
		start := len(points)
		points = v.point(v.conv, f, points)
		scans[i] = l2frames.Scan[P]{
			Timestamp: f.Timestamp,
			Azimuth:   f.Azimuth.Start,
			Valid:     true,
			Points:    points[start:len(points):len(points)],
		}
	}
	return scans, nil
}

type ousterFront struct {
	layout ouster.Layout
	conv   *geometry.Converter
}

func (o *ousterFront) extract(b []byte, _ func(l2frames.AnomalyKind, string)) (job, error) {
	buf := append([]byte(nil), b...)
	pkt, err := ouster.Decode(buf, o.layout)
	if err != nil {
		return job{}, err
	}
	return job{columns: firing.ExtractColumns(pkt, nil), buf: buf}, nil
}

func (o *ousterFront) flush() job { return job{} }

func (o *ousterFront) convert(j job) ([]l2frames.Scan[lidar.Point], error) {
	beams := o.layout.PixelsPerColumn()
	points := make([]lidar.Point, 0, len(j.columns)*beams)
	scans := make([]l2frames.Scan[lidar.Point], len(j.columns))
	for i, c := range j.columns {
		scans[i] = l2frames.Scan[lidar.Point]{
			Timestamp:     c.Timestamp,
			Azimuth:       c.Azimuth,
			FrameID:       c.FrameID,
			MeasurementID: c.MeasurementID,
			Valid:         c.Valid,
		}
		if !c.Valid {
			continue
		}
		start := len(points)
		var err error
		points, err = o.conv.ConvertColumn(c, points)
		if err != nil {
			return nil, err
		}
		scans[i].Points = points[start:len(points):len(points)]
	}
	return scans, nil
}
