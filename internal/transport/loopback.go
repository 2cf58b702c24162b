package transport

import (
	"context"
	"math/rand"
	"sync"
)

// LoopbackSocket is an in-memory Socket used by tests: datagrams sent to it
// are pushed onto its inbound channel by whichever peer Send was called on,
// optionally dropped according to DropRate, so Section 8's "drops every Nth
// datagram" / randomized-loss properties are testable without a real
// network.
type LoopbackSocket struct {
	endpoint string
	inbox    chan Datagram
	peers    map[string]*LoopbackSocket

	mu       sync.Mutex
	closed   bool
	dropRate float64
	rng      *rand.Rand
}

// NewLoopbackNetwork builds a fully-connected set of LoopbackSockets, one
// per name in endpoints, each able to Send to any other by name.
func NewLoopbackNetwork(endpoints ...string) map[string]*LoopbackSocket {
	sockets := make(map[string]*LoopbackSocket, len(endpoints))
	for _, name := range endpoints {
		sockets[name] = &LoopbackSocket{
			endpoint: name,
			inbox:    make(chan Datagram, 256),
			rng:      rand.New(rand.NewSource(1)),
		}
	}
	for _, s := range sockets {
		s.peers = sockets
	}
	return sockets
}

// SetDropRate configures the fraction (0..1) of datagrams sent *to* this
// socket that are silently discarded, deterministically (seeded rand.Rand),
// for reproducible loss-handling tests.
func (s *LoopbackSocket) SetDropRate(rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropRate = rate
}

func (s *LoopbackSocket) Send(ctx context.Context, endpoint string, data []byte) error {
	peer, ok := s.peers[endpoint]
	if !ok {
		return ErrClosed
	}
	peer.mu.Lock()
	closed := peer.closed
	drop := peer.dropRate > 0 && peer.rng.Float64() < peer.dropRate
	peer.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if drop {
		return nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	select {
	case peer.inbox <- Datagram{Data: buf, From: s.endpoint}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *LoopbackSocket) Recv(ctx context.Context) (Datagram, error) {
	select {
	case dg, ok := <-s.inbox:
		if !ok {
			return Datagram{}, ErrClosed
		}
		return dg, nil
	case <-ctx.Done():
		return Datagram{}, ctx.Err()
	}
}

func (s *LoopbackSocket) LocalEndpoint() string { return s.endpoint }

func (s *LoopbackSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.inbox)
	return nil
}
