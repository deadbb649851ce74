package l2frames

import "fmt"

// Policy selects how revolution boundaries are detected.
type Policy int

const (
	// PolicyWrap starts a new frame when a scan's start azimuth is strictly
	// less than the previous buffered scan's. For sensors without a frame
	// counter.
	PolicyWrap Policy = iota + 1
	// PolicyCounter follows the sensor's frame and measurement counters.
	PolicyCounter
)

func (p Policy) String() string {
	switch p {
	case PolicyWrap:
		return "wrap"
	case PolicyCounter:
		return "counter"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// frameIDHalfRange separates forward from backward frame counter steps
// across the 16-bit wrap.
const frameIDHalfRange = 1 << 15

// Config contains configuration for a Batcher.
type Config struct {
	SensorID  string // prefix for frame IDs
	RunID     string // optional, distinguishes frame IDs across runs
	Policy    Policy
	RowStride int // points per scan (beam count)

	// ColumnsPerRevolution is the measurement index range of one frame.
	// Required by PolicyCounter.
	ColumnsPerRevolution int

	OnAnomaly AnomalyHandler // default: LogAnomaly
}

// Batcher groups scans into frames. It is not safe for concurrent use;
// one batcher serves one ordered stream.
type Batcher[P any] struct {
	cfg     Config
	idBase  string
	seq     int64
	cur     *Frame[P]
	lastLen int // points in the previous frame, to size the next

	// wrap policy
	lastAzimuth float64

	// counter policy
	tracking        bool
	lastFrameID     uint16
	lastMeasurement uint16
	skipped         FrameIDRange
}

// NewBatcher validates cfg and returns an empty batcher.
func NewBatcher[P any](cfg Config) (*Batcher[P], error) {
	if cfg.RowStride <= 0 {
		return nil, fmt.Errorf("row stride must be positive, got %d", cfg.RowStride)
	}
	switch cfg.Policy {
	case PolicyWrap:
	case PolicyCounter:
		if cfg.ColumnsPerRevolution <= 0 {
			return nil, fmt.Errorf("counter policy needs columns per revolution, got %d", cfg.ColumnsPerRevolution)
		}
	default:
		return nil, fmt.Errorf("invalid boundary policy %v", cfg.Policy)
	}
	if cfg.OnAnomaly == nil {
		cfg.OnAnomaly = LogAnomaly
	}

	idBase := cfg.SensorID
	if cfg.RunID != "" {
		idBase += "-" + cfg.RunID
	}
	return &Batcher[P]{cfg: cfg, idBase: idBase}, nil
}

// Push adds one scan and returns the frames it completed, usually none.
// The scan's points are copied.
//
// It panics if a valid scan does not hold exactly RowStride points.
func (b *Batcher[P]) Push(s Scan[P]) []*Frame[P] {
	if s.Valid && len(s.Points) != b.cfg.RowStride {
		panic(fmt.Sprintf("l2frames: scan has %d points, row stride is %d", len(s.Points), b.cfg.RowStride))
	}
	if b.cfg.Policy == PolicyCounter {
		return b.pushCounter(s)
	}
	return b.pushWrap(s)
}

func (b *Batcher[P]) pushWrap(s Scan[P]) []*Frame[P] {
	if !s.Valid {
		return nil
	}
	var out []*Frame[P]
	// Equal azimuths are legal duplicates, not a wrap.
	if b.cur != nil && s.Azimuth < b.lastAzimuth {
		out = append(out, b.emit("azimuth_wrap"))
	}
	b.lastAzimuth = s.Azimuth
	b.add(s)
	return out
}

func (b *Batcher[P]) pushCounter(s Scan[P]) []*Frame[P] {
	var out []*Frame[P]

	if b.tracking {
		if s.FrameID != b.lastFrameID {
			if b.cur != nil {
				out = append(out, b.emit("frame_id"))
			}
			step := s.FrameID - b.lastFrameID
			switch {
			case step >= frameIDHalfRange:
				b.anomaly("frame_id went from %d to %d", b.lastFrameID, s.FrameID)
			case step > 1:
				b.skipped = FrameIDRange{First: b.lastFrameID + 1, Count: int(step) - 1}
				opsf("sensor %s skipped %d frame(s) from frame_id %d", b.cfg.SensorID, b.skipped.Count, b.skipped.First)
			}
		} else if s.MeasurementID <= b.lastMeasurement {
			b.anomaly("measurement_id %d after %d in frame_id %d", s.MeasurementID, b.lastMeasurement, s.FrameID)
		}
	}
	b.tracking = true
	b.lastFrameID = s.FrameID
	b.lastMeasurement = s.MeasurementID

	if !s.Valid {
		tracef("sensor %s frame_id %d measurement_id %d invalid", b.cfg.SensorID, s.FrameID, s.MeasurementID)
		return out
	}

	b.add(s)
	if int(s.MeasurementID) == b.cfg.ColumnsPerRevolution-1 {
		out = append(out, b.emit("last_measurement"))
	}
	return out
}

func (b *Batcher[P]) add(s Scan[P]) {
	f := b.cur
	if f == nil {
		b.seq++
		capacity := b.lastLen
		if b.cfg.Policy == PolicyCounter {
			capacity = b.cfg.ColumnsPerRevolution * b.cfg.RowStride
		}
		f = &Frame[P]{
			ID:             fmt.Sprintf("%s-frame-%d", b.idBase, b.seq),
			SensorID:       b.cfg.SensorID,
			Seq:            b.seq,
			StartTimestamp: s.Timestamp,
			MinAzimuth:     s.Azimuth,
			MaxAzimuth:     s.Azimuth,
			RowStride:      b.cfg.RowStride,
			Points:         make([]P, 0, capacity),
			FrameID:        s.FrameID,
			Skipped:        b.skipped,
		}
		b.skipped = FrameIDRange{}
		b.cur = f
	}

	f.Points = append(f.Points, s.Points...)
	f.EndTimestamp = s.Timestamp
	if s.Azimuth < f.MinAzimuth {
		f.MinAzimuth = s.Azimuth
	}
	if s.Azimuth > f.MaxAzimuth {
		f.MaxAzimuth = s.Azimuth
	}
}

func (b *Batcher[P]) emit(reason string) *Frame[P] {
	f := b.cur
	b.cur = nil
	b.lastLen = len(f.Points)
	diagf("frame complete (%s): %s", reason, f)
	return f
}

func (b *Batcher[P]) anomaly(format string, args ...interface{}) {
	b.cfg.OnAnomaly(Anomaly{
		Kind:     OrderingAnomaly,
		SensorID: b.cfg.SensorID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// Finish returns the buffered partial frame, or nil if nothing is
// buffered. Calling it again returns nil until more scans are pushed.
func (b *Batcher[P]) Finish() *Frame[P] {
	if b.cur == nil || len(b.cur.Points) == 0 {
		return nil
	}
	return b.emit("finish")
}

// Buffered returns the number of scans in the frame being built.
func (b *Batcher[P]) Buffered() int {
	if b.cur == nil {
		return 0
	}
	return len(b.cur.Points) / b.cfg.RowStride
}

// Reset discards the frame being built and all boundary tracking. The frame
// sequence keeps counting so IDs stay unique.
func (b *Batcher[P]) Reset() {
	if b.cur != nil {
		diagf("reset: discarding %d buffered scans for sensor=%s", b.Buffered(), b.cfg.SensorID)
	}
	b.cur = nil
	b.lastAzimuth = 0
	b.tracking = false
	b.lastFrameID = 0
	b.lastMeasurement = 0
	b.skipped = FrameIDRange{}
}
