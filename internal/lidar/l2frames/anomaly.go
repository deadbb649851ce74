package l2frames

import "fmt"

// AnomalyKind classifies a recoverable stream anomaly.
type AnomalyKind int

const (
	// OrderingAnomaly: a measurement or frame counter did not increase.
	OrderingAnomaly AnomalyKind = iota + 1
	// FormatMismatch: a packet declared a different format than the
	// configured one and was processed as configured.
	FormatMismatch
)

func (k AnomalyKind) String() string {
	switch k {
	case OrderingAnomaly:
		return "ordering"
	case FormatMismatch:
		return "format_mismatch"
	}
	return fmt.Sprintf("AnomalyKind(%d)", int(k))
}

// Anomaly is a non-fatal problem found while processing the stream.
type Anomaly struct {
	Kind     AnomalyKind
	SensorID string
	Message  string
}

func (a Anomaly) String() string {
	return fmt.Sprintf("%s anomaly on %s: %s", a.Kind, a.SensorID, a.Message)
}

// AnomalyHandler receives anomalies. It is called synchronously from the
// goroutine that detects the anomaly; a parallel pipeline reports format
// anomalies from its reader and ordering anomalies from its batcher, so
// handlers shared with one must be safe for concurrent use.
type AnomalyHandler func(Anomaly)

// LogAnomaly writes the anomaly to the ops stream.
func LogAnomaly(a Anomaly) {
	opsf("%s", a)
}
