package network

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/spinframe/internal/monitoring"
)

var (
	gzipMagic   = []byte{0x1f, 0x8b}
	pcapngMagic = []byte{0x0a, 0x0d, 0x0d, 0x0a}
)

// PCAPOptions configures a PCAPSource.
type PCAPOptions struct {
	// Port keeps only UDP datagrams with this source or destination port.
	// Zero keeps every UDP datagram.
	Port int

	// Speed paces replay by capture timestamps: 1.0 is real time, 2.0
	// twice as fast. Zero replays as fast as the consumer reads.
	Speed float64

	Forwarder *Forwarder // optional
}

type captureReader interface {
	gopacket.PacketDataSource
	LinkType() layers.LinkType
}

// PCAPSource replays the UDP payloads of a capture file.
type PCAPSource struct {
	ctx     context.Context
	path    string
	file    *os.File
	gz      *gzip.Reader
	reader  captureReader
	opts    PCAPOptions
	started time.Time

	// Pacing anchors: the first capture timestamp and when it was replayed.
	firstCapture time.Time
	firstReplay  time.Time

	read    int
	matched int
}

// OpenPCAP opens a pcap or pcapng capture, gzip-compressed or not. The
// format is detected from the file contents.
func OpenPCAP(ctx context.Context, path string, opts PCAPOptions) (*PCAPSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PCAP file %s: %w", path, err)
	}
	s := &PCAPSource{ctx: ctx, path: path, file: f, opts: opts, started: time.Now()}

	br := bufio.NewReader(f)
	magic, err := br.Peek(4)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read PCAP file %s: %w", path, err)
	}
	var r io.Reader = br
	if bytes.HasPrefix(magic, gzipMagic) {
		gz, err := gzip.NewReader(br)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to decompress %s: %w", path, err)
		}
		s.gz = gz
		zr := bufio.NewReader(gz)
		if magic, err = zr.Peek(4); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to read PCAP file %s: %w", path, err)
		}
		r = zr
	}

	if bytes.Equal(magic, pcapngMagic) {
		s.reader, err = pcapgo.NewNgReader(r, pcapgo.DefaultNgReaderOptions)
	} else {
		s.reader, err = pcapgo.NewReader(r)
	}
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to parse PCAP file %s: %w", path, err)
	}

	filter := "udp"
	if opts.Port != 0 {
		filter = fmt.Sprintf("udp port %d", opts.Port)
	}
	monitoring.Logf("PCAP replay of %s: link type %v, filter %q, speed %.1fx",
		path, s.reader.LinkType(), filter, opts.Speed)
	return s, nil
}

// ReadPacket returns the payload of the next matching UDP datagram, or
// io.EOF at the end of the capture.
func (s *PCAPSource) ReadPacket() ([]byte, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			monitoring.Logf("PCAP reader stopping due to context cancellation (processed %d packets)", s.read)
			return nil, err
		}

		data, ci, err := s.reader.ReadPacketData()
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			monitoring.Logf("PCAP file reading complete: %d of %d packets matched in %v",
				s.matched, s.read, time.Since(s.started))
			return nil, io.EOF
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", s.path, err)
		}
		s.read++

		payload, ok := s.udpPayload(data)
		if !ok {
			continue
		}
		if err := s.pace(ci.Timestamp); err != nil {
			return nil, err
		}
		s.matched++
		if s.opts.Forwarder != nil {
			s.opts.Forwarder.ForwardAsync(payload)
		}
		return payload, nil
	}
}

func (s *PCAPSource) udpPayload(data []byte) ([]byte, bool) {
	pkt := gopacket.NewPacket(data, s.reader.LinkType(), gopacket.DecodeOptions{Lazy: true, NoCopy: true})
	udp, ok := pkt.Layer(layers.LayerTypeUDP).(*layers.UDP)
	if !ok || len(udp.Payload) == 0 {
		return nil, false
	}
	if p := s.opts.Port; p != 0 && int(udp.SrcPort) != p && int(udp.DstPort) != p {
		return nil, false
	}
	return udp.Payload, true
}

// pace sleeps until the capture timestamp, scaled by Speed, is due.
func (s *PCAPSource) pace(ts time.Time) error {
	if s.opts.Speed <= 0 {
		return nil
	}
	if s.firstCapture.IsZero() {
		s.firstCapture, s.firstReplay = ts, time.Now()
		return nil
	}
	due := s.firstReplay.Add(time.Duration(float64(ts.Sub(s.firstCapture)) / s.opts.Speed))
	wait := time.Until(due)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Matched returns the number of payloads returned so far.
func (s *PCAPSource) Matched() int { return s.matched }

// Close releases the file.
func (s *PCAPSource) Close() error {
	if s.gz != nil {
		s.gz.Close()
	}
	return s.file.Close()
}
