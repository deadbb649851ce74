package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/banshee-data/spinframe/internal/monitoring"
)

// MaxDatagram bounds the payload size a UDPSource can receive. Ouster
// OS1-128 packets are the largest supported at 24896 bytes.
const MaxDatagram = 32 * 1024

// DefaultPollInterval is the read deadline used to notice cancellation.
const DefaultPollInterval = 100 * time.Millisecond

// UDPConfig configures a UDPSource.
type UDPConfig struct {
	Address      string        // host:port to bind, e.g. ":2368"
	RcvBuf       int           // socket receive buffer in bytes, 0 keeps the OS default
	PollInterval time.Duration // default DefaultPollInterval
	Sockets      UDPSocketFactory
	Forwarder    *Forwarder // optional copy of every payload
}

// UDPSource reads LiDAR payloads from a bound UDP socket. The slice
// returned by ReadPacket is reused by the next call.
type UDPSource struct {
	ctx       context.Context
	sock      UDPSocket
	buf       []byte
	poll      time.Duration
	forwarder *Forwarder
	packets   int64
}

// NewUDPSource binds cfg.Address. ReadPacket returns ctx.Err() once ctx is
// cancelled and io.EOF after Close.
func NewUDPSource(ctx context.Context, cfg UDPConfig) (*UDPSource, error) {
	addr, err := net.ResolveUDPAddr("udp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP address: %w", err)
	}
	sockets := cfg.Sockets
	if sockets == nil {
		sockets = SystemSockets{}
	}
	sock, err := sockets.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on UDP address: %w", err)
	}
	if cfg.RcvBuf > 0 {
		if err := sock.SetReadBuffer(cfg.RcvBuf); err != nil {
			monitoring.Logf("Warning: failed to set UDP receive buffer size to %d: %v", cfg.RcvBuf, err)
		}
	}
	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	monitoring.Logf("UDP listener started on %s with receive buffer %d bytes", sock.LocalAddr(), cfg.RcvBuf)

	return &UDPSource{
		ctx:       ctx,
		sock:      sock,
		buf:       make([]byte, MaxDatagram),
		poll:      poll,
		forwarder: cfg.Forwarder,
	}, nil
}

// ReadPacket blocks until a datagram arrives, the context is cancelled or
// the socket is closed. Transient read errors are logged and skipped.
func (s *UDPSource) ReadPacket() ([]byte, error) {
	for {
		if err := s.ctx.Err(); err != nil {
			monitoring.Logf("UDP listener stopping after %d packets: %v", s.packets, err)
			return nil, err
		}

		s.sock.SetReadDeadline(time.Now().Add(s.poll))
		n, addr, err := s.sock.ReadFromUDP(s.buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil, io.EOF
			}
			if s.ctx.Err() != nil {
				return nil, s.ctx.Err()
			}
			monitoring.Logf("UDP read error from %v: %v", addr, err)
			continue
		}
		if n == 0 {
			continue
		}

		s.packets++
		payload := s.buf[:n]
		if s.forwarder != nil {
			s.forwarder.ForwardAsync(payload)
		}
		return payload, nil
	}
}

// LocalAddr returns the bound address.
func (s *UDPSource) LocalAddr() net.Addr { return s.sock.LocalAddr() }

// Close closes the socket.
func (s *UDPSource) Close() error { return s.sock.Close() }
