package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/google/uuid"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/firing"
	"github.com/banshee-data/spinframe/internal/lidar/geometry"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/ouster"
	"github.com/banshee-data/spinframe/internal/lidar/l2frames"
	"github.com/banshee-data/spinframe/internal/monitoring"
)

// ErrUnsupportedFormat is returned for packets whose declared model and
// return mode have no supported layout.
var ErrUnsupportedFormat = errors.New("unsupported packet format")

// Skippable reports whether err only concerns one packet, so the stream
// can continue with the next.
func Skippable(err error) bool {
	return errors.Is(err, l1packets.ErrSizeMismatch) || errors.Is(err, ErrUnsupportedFormat)
}

// Options configures a pipeline. The zero value is usable.
type Options struct {
	SensorID string // default: the calibration model
	RunID    string // default: a random short ID

	Metrics   *monitoring.PipelineMetrics // optional
	Stats     *lidar.PacketStats          // optional
	OnAnomaly l2frames.AnomalyHandler     // default: l2frames.LogAnomaly

	// Parallel conversion for Run.
	Workers    int // default: DefaultWorkers
	QueueDepth int // per-worker queue length, default: DefaultQueueDepth
}

// Defaults for Options.
const (
	DefaultWorkers    = 4
	DefaultQueueDepth = 8
)

// Pipeline converts packets from one sensor into frames of P, either
// lidar.Point or lidar.DualPoint. A pipeline is not safe for concurrent
// use; Run manages its own goroutines.
type Pipeline[P any] struct {
	sensorID  string
	front     frontEnd[P]
	batcher   *l2frames.Batcher[P]
	metrics   *monitoring.PipelineMetrics
	stats     *lidar.PacketStats
	onAnomaly l2frames.AnomalyHandler
	workers   int
	depth     int
}

func newPipeline[P any](table *calib.Table, opts Options, policy l2frames.Policy, front frontEnd[P]) (*Pipeline[P], error) {
	p := &Pipeline[P]{
		sensorID:  opts.SensorID,
		front:     front,
		metrics:   opts.Metrics,
		stats:     opts.Stats,
		onAnomaly: opts.OnAnomaly,
		workers:   opts.Workers,
		depth:     opts.QueueDepth,
	}
	if p.sensorID == "" {
		p.sensorID = strings.ToLower(table.Model)
	}
	if p.onAnomaly == nil {
		p.onAnomaly = l2frames.LogAnomaly
	}
	if p.workers <= 0 {
		p.workers = DefaultWorkers
	}
	if p.depth <= 0 {
		p.depth = DefaultQueueDepth
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()[:8]
	}

	b, err := l2frames.NewBatcher[P](l2frames.Config{
		SensorID:             p.sensorID,
		RunID:                runID,
		Policy:               policy,
		RowStride:            table.BeamCount(),
		ColumnsPerRevolution: table.ColumnsPerRevolution,
		OnAnomaly:            p.handleAnomaly,
	})
	if err != nil {
		return nil, err
	}
	p.batcher = b

	diagf("sensor %s: %s pipeline, %d beams, %v return, %v policy, run %s",
		p.sensorID, table.Family, table.BeamCount(), table.ReturnMode, policy, runID)
	return p, nil
}

func velodyneConverter(table *calib.Table, dual bool) (*geometry.Converter, error) {
	if table.Family != calib.FamilyVelodyne {
		return nil, fmt.Errorf("calibration %s is for %v sensors, want velodyne", table.Model, table.Family)
	}
	if table.Dual() != dual {
		return nil, fmt.Errorf("calibration %s uses %v return mode", table.Model, table.ReturnMode)
	}
	return geometry.NewConverter(table)
}

// NewVelodyne returns a pipeline for a Velodyne sensor in strongest or last
// return mode. Frames are split on azimuth wraparound.
func NewVelodyne(table *calib.Table, opts Options) (*Pipeline[lidar.Point], error) {
	conv, err := velodyneConverter(table, false)
	if err != nil {
		return nil, err
	}
	front := &velodyneFront[lidar.Point]{
		kind:      conv.Kind(),
		extractor: firing.NewExtractor(conv.Kind(), firing.TimingFor(table)),
		conv:      conv,
		point:     (*geometry.Converter).Firing,
	}
	return newPipeline[lidar.Point](table, opts, l2frames.PolicyWrap, front)
}

// NewVelodyneDual returns a pipeline for a Velodyne sensor in dual return
// mode.
func NewVelodyneDual(table *calib.Table, opts Options) (*Pipeline[lidar.DualPoint], error) {
	conv, err := velodyneConverter(table, true)
	if err != nil {
		return nil, err
	}
	front := &velodyneFront[lidar.DualPoint]{
		kind:      conv.Kind(),
		extractor: firing.NewExtractor(conv.Kind(), firing.TimingFor(table)),
		conv:      conv,
		point:     (*geometry.Converter).DualFiring,
	}
	return newPipeline[lidar.DualPoint](table, opts, l2frames.PolicyWrap, front)
}

// NewOuster returns a pipeline for an Ouster sensor sending legacy
// packets. Frames follow the sensor's frame counter.
func NewOuster(table *calib.Table, opts Options) (*Pipeline[lidar.Point], error) {
	if table.Family != calib.FamilyOuster {
		return nil, fmt.Errorf("calibration %s is for %v sensors, want ouster", table.Model, table.Family)
	}
	conv, err := geometry.NewConverter(table)
	if err != nil {
		return nil, err
	}
	layout, err := ouster.LayoutFor(table.BeamCount())
	if err != nil {
		return nil, err
	}
	return newPipeline[lidar.Point](table, opts, l2frames.PolicyCounter, &ousterFront{layout: layout, conv: conv})
}

// SensorID returns the sensor label used in frame IDs and metrics.
func (p *Pipeline[P]) SensorID() string { return p.sensorID }

func (p *Pipeline[P]) handleAnomaly(a l2frames.Anomaly) {
	p.metrics.ObserveAnomaly(p.sensorID, a.Kind.String())
	p.onAnomaly(a)
}

func (p *Pipeline[P]) anomaly(kind l2frames.AnomalyKind, msg string) {
	p.handleAnomaly(l2frames.Anomaly{Kind: kind, SensorID: p.sensorID, Message: msg})
}

// extract runs the sequential front half for one packet and accounts for
// it. Skippable errors are logged and counted here.
func (p *Pipeline[P]) extract(b []byte) (job, error) {
	p.metrics.ObservePacket(p.sensorID, len(b))
	if p.stats != nil {
		p.stats.AddPacket(len(b))
	}
	tracef("sensor %s: packet %d bytes", p.sensorID, len(b))

	j, err := p.front.extract(b, p.anomaly)
	if err != nil {
		p.reject(err)
		return job{}, err
	}
	return j, nil
}

func (p *Pipeline[P]) reject(err error) {
	reason := "other"
	switch {
	case errors.Is(err, l1packets.ErrSizeMismatch):
		reason = monitoring.ReasonSizeMismatch
	case errors.Is(err, ErrUnsupportedFormat):
		reason = monitoring.ReasonUnsupportedFormat
	case errors.Is(err, geometry.ErrIndexOutOfRange):
		reason = monitoring.ReasonIndexOutOfRange
	}
	p.metrics.ObserveError(p.sensorID, reason)
	if p.stats != nil && Skippable(err) {
		p.stats.AddSkipped()
	}
	opsf("sensor %s: %v", p.sensorID, err)
}

// batch feeds converted scans to the batcher in order.
func (p *Pipeline[P]) batch(scans []l2frames.Scan[P], out []*l2frames.Frame[P]) []*l2frames.Frame[P] {
	for _, s := range scans {
		for _, f := range p.batcher.Push(s) {
			out = append(out, p.observe(f))
		}
	}
	return out
}

func (p *Pipeline[P]) observe(f *l2frames.Frame[P]) *l2frames.Frame[P] {
	p.metrics.ObserveFrame(p.sensorID, f.Len())
	if p.stats != nil {
		p.stats.AddFrame(f.Len())
	}
	return f
}

// Push processes one packet and returns the frames it completed. Packet
// level errors (see Skippable) leave the pipeline ready for the next
// packet; any other error means the calibration does not fit the sensor.
func (p *Pipeline[P]) Push(b []byte) ([]*l2frames.Frame[P], error) {
	j, err := p.extract(b)
	if err != nil {
		return nil, err
	}
	scans, err := p.front.convert(j)
	if err != nil {
		p.reject(err)
		return nil, err
	}
	return p.batch(scans, nil), nil
}

// Finish flushes carried firings and returns the remaining frames. Call it
// once the source is exhausted.
func (p *Pipeline[P]) Finish() ([]*l2frames.Frame[P], error) {
	var out []*l2frames.Frame[P]
	if j := p.front.flush(); !j.empty() {
		scans, err := p.front.convert(j)
		if err != nil {
			return nil, err
		}
		out = p.batch(scans, out)
	}
	if f := p.batcher.Finish(); f != nil {
		out = append(out, p.observe(f))
	}
	return out, nil
}

// Frames returns an iterator that pulls packets from src until io.EOF and
// yields frames as they complete, ending with the flushed partial frame.
// Skippable packet errors are logged and the stream continues; any other
// error, including ctx cancellation, is yielded once and ends the
// iteration.
func (p *Pipeline[P]) Frames(ctx context.Context, src Source) iter.Seq2[*l2frames.Frame[P], error] {
	return func(yield func(*l2frames.Frame[P], error) bool) {
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			b, err := src.ReadPacket()
			if errors.Is(err, io.EOF) {
				frames, err := p.Finish()
				if err != nil {
					yield(nil, err)
					return
				}
				for _, f := range frames {
					if !yield(f, nil) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(nil, fmt.Errorf("read packet: %w", err))
				return
			}

			frames, err := p.Push(b)
			if err != nil && !Skippable(err) {
				yield(nil, err)
				return
			}
			for _, f := range frames {
				if !yield(f, nil) {
					return
				}
			}
		}
	}
}
