package network

import (
	"net"
	"time"
)

// UDPSocket is the subset of *net.UDPConn a UDPSource uses. Tests
// substitute a scripted socket.
type UDPSocket interface {
	ReadFromUDP(b []byte) (n int, addr *net.UDPAddr, err error)
	SetReadBuffer(bytes int) error
	SetReadDeadline(t time.Time) error
	Close() error
	LocalAddr() net.Addr
}

// UDPSocketFactory opens UDP sockets.
type UDPSocketFactory interface {
	ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error)
}

// SystemSockets opens real sockets with net.ListenUDP.
type SystemSockets struct{}

// ListenUDP implements UDPSocketFactory.
func (SystemSockets) ListenUDP(network string, laddr *net.UDPAddr) (UDPSocket, error) {
	conn, err := net.ListenUDP(network, laddr)
	if err != nil {
		return nil, err
	}
	return conn, nil
}
