package network

import (
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/banshee-data/spinframe/internal/monitoring"
)

// Forwarder re-sends raw payloads to another UDP address without blocking
// the reader. Payloads that do not fit in the queue are dropped and
// counted.
type Forwarder struct {
	conn        net.Conn
	queue       chan []byte
	logInterval time.Duration
	address     string
	dropped     atomic.Int64
	failed      atomic.Int64
}

// ForwardQueueSize is the number of payloads buffered for sending.
const ForwardQueueSize = 1000

// NewForwarder dials addr ("host:port").
func NewForwarder(addr string, logInterval time.Duration) (*Forwarder, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve forward address: %w", err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to create forward connection: %w", err)
	}
	if logInterval <= 0 {
		logInterval = time.Minute
	}
	return &Forwarder{
		conn:        conn,
		queue:       make(chan []byte, ForwardQueueSize),
		logInterval: logInterval,
		address:     addr,
	}, nil
}

// Start sends queued payloads until ctx is done, logging send failures
// once per interval.
func (f *Forwarder) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.logInterval)
		defer ticker.Stop()

		var failed int64
		var lastErr error
		for {
			select {
			case <-ctx.Done():
				return
			case b := <-f.queue:
				if _, err := f.conn.Write(b); err != nil {
					failed++
					f.failed.Add(1)
					lastErr = err
				}
			case <-ticker.C:
				if failed > 0 {
					monitoring.Logf("Dropped %d forwarded packets due to errors (latest: %v)", failed, lastErr)
					failed, lastErr = 0, nil
				}
			}
		}
	}()
	monitoring.Logf("Forwarding packets to %s", f.address)
}

// ForwardAsync queues a copy of b.
func (f *Forwarder) ForwardAsync(b []byte) {
	select {
	case f.queue <- append([]byte(nil), b...):
	default:
		f.dropped.Add(1)
	}
}

// Dropped returns the number of payloads discarded because the queue was
// full or the send failed.
func (f *Forwarder) Dropped() int64 { return f.dropped.Load() + f.failed.Load() }

// Close closes the outbound connection.
func (f *Forwarder) Close() error { return f.conn.Close() }
