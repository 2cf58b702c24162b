package transport

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/rtype-net/rtgp/internal/wire"
)

var timeZero time.Time

// UDPSocket is the production Socket backend: one bound *net.UDPConn.
type UDPSocket struct {
	conn *net.UDPConn
}

// ListenUDP binds a UDP socket at addr ("host:port"), following the
// teacher's Start()/net.ListenUDP pattern (source/server/server.go).
func ListenUDP(addr string) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrBindFailed, err)
	}
	return &UDPSocket{conn: conn}, nil
}

// DialUDP connects a UDP socket to a fixed remote addr — the client's
// pattern, since every datagram it sends goes to the one server endpoint.
func DialUDP(addr string) (*UDPSocket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", wire.ErrBindFailed, err)
	}
	return &UDPSocket{conn: conn}, nil
}

func (u *UDPSocket) Send(ctx context.Context, endpoint string, data []byte) error {
	// A dialed (connected) socket only sends to its fixed remote address;
	// net rejects WriteToUDP on it, so endpoint is ignored there.
	if endpoint == "" || u.conn.RemoteAddr() != nil {
		_, err := u.conn.Write(data)
		return err
	}
	addr, err := net.ResolveUDPAddr("udp", endpoint)
	if err != nil {
		return fmt.Errorf("transport: resolve %q: %w", endpoint, err)
	}
	_, err = u.conn.WriteToUDP(data, addr)
	return err
}

func (u *UDPSocket) Recv(ctx context.Context) (Datagram, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = u.conn.SetReadDeadline(deadline)
	} else {
		_ = u.conn.SetReadDeadline(timeZero)
	}
	buf := make([]byte, wire.MaxDatagramSize)
	n, addr, err := u.conn.ReadFromUDP(buf)
	if err != nil {
		if ctx.Err() != nil {
			return Datagram{}, ctx.Err()
		}
		return Datagram{}, err
	}
	return Datagram{Data: buf[:n], From: addr.String()}, nil
}

func (u *UDPSocket) LocalEndpoint() string {
	return u.conn.LocalAddr().String()
}

func (u *UDPSocket) Close() error {
	return u.conn.Close()
}
