package lidar

import (
	"fmt"
	"sync"
	"time"
)

// PacketStats tracks packet statistics with thread-safe operations
type PacketStats struct {
	mu           sync.Mutex
	packetCount  int64
	byteCount    int64
	skippedCount int64
	pointCount   int64
	frameCount   int64
	lastReset    time.Time
}

// NewPacketStats creates a new PacketStats instance
func NewPacketStats() *PacketStats {
	return &PacketStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (ps *PacketStats) AddPacket(bytes int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.packetCount++
	ps.byteCount += int64(bytes)
}

// AddSkipped counts a packet that could not be decoded or resolved.
func (ps *PacketStats) AddSkipped() {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.skippedCount++
}

// AddFrame counts an emitted frame and its points.
func (ps *PacketStats) AddFrame(points int) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.frameCount++
	ps.pointCount += int64(points)
}

// StatsSnapshot is one reporting interval worth of counters.
type StatsSnapshot struct {
	Packets  int64
	Bytes    int64
	Skipped  int64
	Points   int64
	Frames   int64
	Duration time.Duration
}

// GetAndReset returns current stats and resets counters
func (ps *PacketStats) GetAndReset() StatsSnapshot {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	now := time.Now()
	s := StatsSnapshot{
		Packets:  ps.packetCount,
		Bytes:    ps.byteCount,
		Skipped:  ps.skippedCount,
		Points:   ps.pointCount,
		Frames:   ps.frameCount,
		Duration: now.Sub(ps.lastReset),
	}

	ps.packetCount = 0
	ps.byteCount = 0
	ps.skippedCount = 0
	ps.pointCount = 0
	ps.frameCount = 0
	ps.lastReset = now

	return s
}

// LogStats writes the interval rates to the diag stream and resets counters.
func (ps *PacketStats) LogStats() {
	s := ps.GetAndReset()
	if s.Packets == 0 && s.Skipped == 0 {
		return
	}
	Diagf("%s", s.Format())
}

// Format renders a snapshot as per-second rates.
func (s StatsSnapshot) Format() string {
	secs := s.Duration.Seconds()
	if secs <= 0 {
		secs = 1
	}
	msg := fmt.Sprintf("Lidar stats (/sec): %.2f MB, %.1f packets, %.2f frames, %s points",
		float64(s.Bytes)/secs/(1024*1024), float64(s.Packets)/secs,
		float64(s.Frames)/secs, FormatWithCommas(int64(float64(s.Points)/secs)))
	if s.Skipped > 0 {
		msg += fmt.Sprintf(", %d skipped", s.Skipped)
	}
	return msg
}

// FormatWithCommas formats a number with thousands separators
func FormatWithCommas(n int64) string {
	if n < 0 {
		return "-" + FormatWithCommas(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	result := ""
	for i, char := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(char)
	}
	return result
}
