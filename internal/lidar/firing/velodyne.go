package firing

import (
	"math"

	"github.com/banshee-data/spinframe/internal/lidar"
	"github.com/banshee-data/spinframe/internal/lidar/calib"
	"github.com/banshee-data/spinframe/internal/lidar/l1packets/velodyne"
)

const (
	azimuthUnitsPerTurn = velodyne.AzimuthUnitsPerTurn
	radiansPerUnit      = lidar.FullTurn / azimuthUnitsPerTurn

	// usPerHour is the range of the packet timestamp.
	usPerHour = 3_600_000_000
	nsPerHour = usPerHour * 1000
)

// AzimuthRange is the azimuth swept during one firing, in radians. Start is
// in [0, 2π); End is unwrapped and may exceed 2π so that End >= Start always
// holds.
type AzimuthRange struct {
	Start float64
	End   float64
}

// At returns the azimuth reached after the given fraction of the firing.
func (r AzimuthRange) At(ratio float64) float64 {
	return r.Start + (r.End-r.Start)*ratio
}

// Firing is one Velodyne firing sequence. Channels holds the only return,
// or the strongest return of a dual firing; Last is used by dual kinds
// only. Entries past Kind.Beams() are zero.
type Firing struct {
	Kind      velodyne.FormatKind
	Timestamp int64 // nanoseconds, sensor clock with hour rollovers unwrapped
	Azimuth   AzimuthRange
	Channels  [velodyne.MaxBeams]velodyne.Channel
	Last      [velodyne.MaxBeams]velodyne.Channel
}

// Beams returns the number of populated channels.
func (f *Firing) Beams() int { return f.Kind.Beams() }

// Timing holds the nominal firing period of a sensor.
type Timing struct {
	FiringPeriod float64 // microseconds
}

// TimingFor returns the timing of a calibrated Velodyne sensor.
func TimingFor(t *calib.Table) Timing {
	return Timing{FiringPeriod: t.FiringPeriod}
}

// unitPeriod is the time between consecutive blocks (or block pairs),
// which is one firing for 32-beam sensors and two for 16-beam sensors.
func (t Timing) unitPeriod(kind velodyne.FormatKind) float64 {
	return t.FiringPeriod * float64(firingsPerUnit(kind))
}

// Carry is the look-back state between packets: the trailing block, or
// (strongest, last) pair, of the previous packet together with its clock.
type Carry struct {
	Kind      velodyne.FormatKind
	Strongest velodyne.BlockRecord
	Last      velodyne.BlockRecord // dual kinds only
	Timestamp int64                // nanoseconds at the start of the carried unit

	// Step is the last observed azimuth advance between units, in
	// hundredths of a degree. Finish uses it to close the final unit.
	Step int

	raw  uint32 // packet timestamp the unit came from
	hour int64  // hour rollovers seen so far
}

// Azimuth returns the carried unit's encoder azimuth.
func (c *Carry) Azimuth() uint16 { return c.Strongest.Azimuth }

// unit is a block or a (strongest, last) block pair.
type unit struct {
	strongest velodyne.Block
	last      velodyne.Block
	dual      bool
}

func (u unit) azimuth() uint16 { return u.strongest.Azimuth() }

func unitsPerPacket(kind velodyne.FormatKind) int {
	if kind.Dual() {
		return velodyne.BlocksPerPacket / 2
	}
	return velodyne.BlocksPerPacket
}

func firingsPerUnit(kind velodyne.FormatKind) int {
	return velodyne.ChannelsPerBlock / kind.Beams()
}

func unitAt(pkt velodyne.Packet, kind velodyne.FormatKind, i int) unit {
	if kind.Dual() {
		return unit{strongest: pkt.Block(2 * i), last: pkt.Block(2*i + 1), dual: true}
	}
	return unit{strongest: pkt.Block(i)}
}

// azimuthStep returns the forward distance from a to b in encoder units,
// treating b < a as a wrap through zero.
func azimuthStep(a, b uint16) int {
	d := int(b) - int(a)
	if d < 0 {
		d += azimuthUnitsPerTurn
	}
	return d
}

// Extract appends the firings of pkt to dst and returns the carry for the
// next packet. carry may be nil for the first packet of a stream; when it is
// not nil its trailing unit is emitted first, closed at pkt's first azimuth.
// The returned carry reuses the storage of the one passed in.
//
// kind must be valid; use velodyne.Resolve or the calibrated kind.
func Extract(kind velodyne.FormatKind, timing Timing, pkt velodyne.Packet, carry *Carry, dst []Firing) ([]Firing, *Carry) {
	n := unitsPerPacket(kind)
	raw := pkt.Timestamp()

	var hour int64
	if carry != nil {
		hour = carry.hour
		// The sensor clock restarts every hour. A jump back of more than
		// half an hour is a rollover rather than reordering.
		if int64(raw)+usPerHour/2 < int64(carry.raw) {
			hour++
		}
		if carry.Kind != kind {
			lidar.Opsf("format changed from %v to %v; dropping carried block", carry.Kind, kind)
		} else {
			dst = appendCarried(dst, timing, carry, unitAt(pkt, kind, 0).azimuth())
		}
	}

	base := hour*nsPerHour + int64(raw)*1000
	period := timing.unitPeriod(kind)

	for i := 0; i < n-1; i++ {
		u := unitAt(pkt, kind, i)
		next := unitAt(pkt, kind, i+1).azimuth()
		ts := base + usToNs(float64(i)*period)
		dst = appendUnit(dst, kind, timing, u.strongest.Record(), recordOf(u), ts, u.azimuth(), next)
	}

	tail := unitAt(pkt, kind, n-1)
	if carry == nil {
		carry = &Carry{}
	}
	*carry = Carry{
		Kind:      kind,
		Strongest: tail.strongest.Record(),
		Timestamp: base + usToNs(float64(n-1)*period),
		Step:      azimuthStep(unitAt(pkt, kind, n-2).azimuth(), tail.azimuth()),
		raw:       raw,
		hour:      hour,
	}
	if tail.dual {
		carry.Last = tail.last.Record()
	}
	return dst, carry
}

// Finish emits the carried unit using the last observed azimuth step to
// close its range. It returns dst unchanged when carry is nil.
func Finish(timing Timing, carry *Carry, dst []Firing) []Firing {
	if carry == nil {
		return dst
	}
	next := uint16((int(carry.Azimuth()) + carry.Step) % azimuthUnitsPerTurn)
	return appendCarried(dst, timing, carry, next)
}

func appendCarried(dst []Firing, timing Timing, c *Carry, next uint16) []Firing {
	var last *velodyne.BlockRecord
	if c.Kind.Dual() {
		last = &c.Last
	}
	return appendUnit(dst, c.Kind, timing, c.Strongest, last, c.Timestamp, c.Azimuth(), next)
}

func recordOf(u unit) *velodyne.BlockRecord {
	if !u.dual {
		return nil
	}
	r := u.last.Record()
	return &r
}

// appendUnit splits one unit into its firings. The unit spans the azimuth
// range [az, next), which is divided evenly between its firings.
func appendUnit(dst []Firing, kind velodyne.FormatKind, timing Timing, strongest velodyne.BlockRecord, last *velodyne.BlockRecord, ts int64, az, next uint16) []Firing {
	beams := kind.Beams()
	per := firingsPerUnit(kind)

	start := float64(az)
	span := float64(azimuthStep(az, next))

	for j := 0; j < per; j++ {
		from := start + span*float64(j)/float64(per)
		to := start + span*float64(j+1)/float64(per)
		if from >= azimuthUnitsPerTurn {
			from -= azimuthUnitsPerTurn
			to -= azimuthUnitsPerTurn
		}
		f := Firing{
			Kind:      kind,
			Timestamp: ts + usToNs(float64(j)*timing.FiringPeriod),
			Azimuth:   AzimuthRange{Start: from * radiansPerUnit, End: to * radiansPerUnit},
		}
		copy(f.Channels[:beams], strongest.Channels[j*beams:(j+1)*beams])
		if last != nil {
			copy(f.Last[:beams], last.Channels[j*beams:(j+1)*beams])
		}
		dst = append(dst, f)
	}
	return dst
}

func usToNs(us float64) int64 {
	return int64(math.Round(us * 1000))
}
