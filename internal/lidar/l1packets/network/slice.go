package network

import "io"

// SliceSource replays an in-memory list of payloads.
type SliceSource struct {
	packets [][]byte
	next    int
}

// NewSliceSource returns a source yielding packets in order. The slices
// are not copied.
func NewSliceSource(packets [][]byte) *SliceSource {
	return &SliceSource{packets: packets}
}

// ReadPacket returns the next payload or io.EOF.
func (s *SliceSource) ReadPacket() ([]byte, error) {
	if s.next >= len(s.packets) {
		return nil, io.EOF
	}
	b := s.packets[s.next]
	s.next++
	return b, nil
}

// Remaining returns the number of payloads not yet read.
func (s *SliceSource) Remaining() int { return len(s.packets) - s.next }

// Rewind restarts the replay from the first payload.
func (s *SliceSource) Rewind() { s.next = 0 }
