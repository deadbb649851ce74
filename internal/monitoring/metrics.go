package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Decode error reasons used as the "reason" label.
const (
	ReasonSizeMismatch      = "size_mismatch"
	ReasonUnsupportedFormat = "unsupported_format"
	ReasonIndexOutOfRange   = "index_out_of_range"
)

// PipelineMetrics holds the Prometheus collectors for one packet-to-frame
// pipeline. All metrics carry a "sensor" label.
type PipelineMetrics struct {
	packets   *prometheus.CounterVec // packets received
	bytes     *prometheus.CounterVec // payload bytes received
	errors    *prometheus.CounterVec // packets skipped, by reason
	frames    *prometheus.CounterVec // frames emitted
	points    *prometheus.CounterVec // points in emitted frames
	anomalies *prometheus.CounterVec // non-fatal anomalies, by kind
	lastFrame *prometheus.GaugeVec   // points in the most recent frame
}

// NewPipelineMetrics registers the pipeline collectors with reg. Pass
// prometheus.DefaultRegisterer to expose them on the default /metrics
// handler, or a fresh registry in tests.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	f := promauto.With(reg)
	return &PipelineMetrics{
		packets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_packets_total",
				Help: "LiDAR packets received",
			},
			[]string{"sensor"},
		),
		bytes: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_packet_bytes_total",
				Help: "LiDAR payload bytes received",
			},
			[]string{"sensor"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_packet_errors_total",
				Help: "LiDAR packets skipped, by reason",
			},
			[]string{"sensor", "reason"},
		),
		frames: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_frames_total",
				Help: "Frames emitted",
			},
			[]string{"sensor"},
		),
		points: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_points_total",
				Help: "Points in emitted frames",
			},
			[]string{"sensor"},
		),
		anomalies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spinframe_anomalies_total",
				Help: "Recoverable stream anomalies, by kind",
			},
			[]string{"sensor", "kind"},
		),
		lastFrame: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "spinframe_last_frame_points",
				Help: "Points in the most recently emitted frame",
			},
			[]string{"sensor"},
		),
	}
}

// The recorders below accept a nil receiver so callers can run without
// metrics.

// ObservePacket counts one received packet.
func (m *PipelineMetrics) ObservePacket(sensor string, size int) {
	if m == nil {
		return
	}
	m.packets.WithLabelValues(sensor).Inc()
	m.bytes.WithLabelValues(sensor).Add(float64(size))
}

// ObserveError counts one skipped packet.
func (m *PipelineMetrics) ObserveError(sensor, reason string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(sensor, reason).Inc()
}

// ObserveFrame counts one emitted frame.
func (m *PipelineMetrics) ObserveFrame(sensor string, points int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(sensor).Inc()
	m.points.WithLabelValues(sensor).Add(float64(points))
	m.lastFrame.WithLabelValues(sensor).Set(float64(points))
}

// ObserveAnomaly counts one anomaly.
func (m *PipelineMetrics) ObserveAnomaly(sensor, kind string) {
	if m == nil {
		return
	}
	m.anomalies.WithLabelValues(sensor, kind).Inc()
}
