package rtgpserver

import (
	"context"
	"time"

	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/reliable"
	"github.com/rtype-net/rtgp/internal/security"
	"github.com/rtype-net/rtgp/internal/telemetry"
	"github.com/rtype-net/rtgp/internal/transport"
	"github.com/rtype-net/rtgp/internal/wire"
)

// Server is the server-side endpoint for every client of one RTGP session.
type Server struct {
	cfg    Config
	socket transport.Socket

	security *security.Context

	peers      map[string]*peer
	byUserID   map[uint32]string
	nextUserID uint32

	events chan Event
	log    telemetry.Sink
}

// New builds a Server bound to socket (a real transport.UDPSocket or a
// transport.LoopbackSocket in tests).
func New(socket transport.Socket, opts ...Option) *Server {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	log := cfg.Logger
	if log == nil {
		log = telemetry.NoopSink{}
	}
	log = log.With("role", "server")

	return &Server{
		cfg:        cfg,
		socket:     socket,
		security:   security.New(),
		peers:      make(map[string]*peer),
		byUserID:   make(map[uint32]string),
		nextUserID: wire.MinClientUserID,
		events:     make(chan Event, cfg.EventQueueSize),
		log:        log,
	}
}

// PeerCount reports the number of currently connected peers.
func (s *Server) PeerCount() int {
	return len(s.peers)
}

// Events returns the channel Poll reads from.
func (s *Server) Events() <-chan Event {
	return s.events
}

// Poll drains at most one pending event, returning ok=false if none is
// queued.
func (s *Server) Poll() (Event, bool) {
	select {
	case ev := <-s.events:
		return ev, true
	default:
		return Event{}, false
	}
}

func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warnw("event queue full, dropping event", "kind", ev.Kind)
	}
}

func (s *Server) assignUserID() (uint32, bool) {
	span := wire.MaxClientUserID - wire.MinClientUserID + 1
	for i := uint32(0); i < span; i++ {
		id := s.nextUserID
		s.nextUserID++
		if s.nextUserID > wire.MaxClientUserID {
			s.nextUserID = wire.MinClientUserID
		}
		if _, used := s.byUserID[id]; !used {
			return id, true
		}
	}
	return 0, false
}

// Run pumps the socket and the tick timer until ctx is cancelled or the
// socket reports a terminal error.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	type recvResult struct {
		dg  transport.Datagram
		err error
	}
	recvCh := make(chan recvResult)
	go func() {
		for {
			dg, err := s.socket.Recv(ctx)
			select {
			case recvCh <- recvResult{dg, err}:
			case <-ctx.Done():
				return
			}
			if err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-recvCh:
			if r.err != nil {
				return r.err
			}
			s.ingress(ctx, r.dg)
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Server) ingress(ctx context.Context, dg transport.Datagram) {
	h, err := wire.Validate(dg.Data, false)
	if err != nil {
		s.observeRejection(err)
		return
	}

	now := time.Now()
	if err := s.security.ValidateSequenceID(dg.From, h.SeqID, now); err != nil {
		s.observeRejection(err)
		return
	}
	if err := s.security.ValidateUserIDMapping(dg.From, h.UserID); err != nil {
		s.observeRejection(err)
		return
	}

	if h.Opcode == wire.OpConnect {
		s.handleConnect(ctx, dg.From, now)
		return
	}

	p, ok := s.peers[dg.From]
	if !ok {
		s.observeRejection(wire.ErrNotConnected)
		return
	}

	payload := dg.Data[wire.HeaderSize:]

	if h.Opcode != wire.OpAck && h.IsReliable() {
		if !p.channel.RecordReceived(h.SeqID) {
			s.observeRejection(wire.ErrDuplicatePacket)
			_ = s.sendTo(ctx, p, wire.OpAck, nil)
			return
		}
		// Ack immediately, even though our next outgoing frame would
		// piggyback the same AckID: the peer may have nothing else to send
		// and needs this to disarm its retransmit timer (Section 5.3).
		_ = s.sendTo(ctx, p, wire.OpAck, nil)
	}
	p.channel.RecordAck(h.AckID)
	p.machine.RecordActivity(now)
	if s.cfg.Collector != nil {
		s.cfg.Collector.ObservePacket(wire.Name(h.Opcode), "in")
	}

	switch h.Opcode {
	case wire.OpDisconnect:
		dp, err := wire.DecodeDisconnectPayload(payload)
		if err != nil {
			s.log.Warnw("malformed DISCONNECT", "err", err)
			return
		}
		s.removePeer(p, dp.Reason)
	case wire.OpAck:
		// Piggyback ack already applied above.
	case wire.OpPing:
		_ = s.sendTo(ctx, p, wire.OpPong, nil)
	default:
		decoded, err := wire.DecodePayload(h.Opcode, payload)
		if err != nil {
			s.log.Warnw("malformed payload", "opcode", wire.Name(h.Opcode), "err", err)
			return
		}
		s.emit(Event{Kind: EventMessage, UserID: p.userID, Opcode: h.Opcode, Payload: decoded})
	}
}

func (s *Server) handleConnect(ctx context.Context, endpoint string, now time.Time) {
	if existing, ok := s.peers[endpoint]; ok {
		// A retransmitted C_CONNECT because our S_ACCEPT was lost: just
		// resend it, idempotently.
		s.sendAccept(ctx, existing)
		return
	}

	if s.cfg.IsBanned != nil && s.cfg.IsBanned(endpoint, wire.UnassignedUserID) {
		s.observeRejection(wire.ErrBanned)
		return
	}
	if len(s.peers) >= s.cfg.MaxPlayers {
		s.observeRejection(ErrServerFull)
		return
	}

	userID, ok := s.assignUserID()
	if !ok {
		s.observeRejection(ErrNoFreeUserIDs)
		return
	}

	machine := connstate.New(s.cfg.ConnState)
	p := &peer{
		endpoint: endpoint,
		userID:   userID,
		traceID:  telemetry.NewTraceID(),
		machine:  machine,
		channel:  reliable.New(s.cfg.Reliable),
	}
	machine.SetCallbacks(connstate.Callbacks{
		OnDisconnected: func(reason wire.DisconnectReason) {
			s.forgetPeer(p, reason)
		},
	})
	// The server does not wait on itself: it moves straight from
	// Disconnected -> Connecting -> Connected within this one call, since
	// there is no handshake latency on the accepting side.
	_ = machine.InitiateConnect(now)
	_ = machine.HandleAccept(now)

	s.peers[endpoint] = p
	s.byUserID[userID] = endpoint
	s.security.RegisterConnection(endpoint, userID, now)

	if s.cfg.Collector != nil {
		s.cfg.Collector.SetConnectedPeers(len(s.peers))
		s.cfg.Collector.ObserveConnectionEvent("connected")
	}
	s.log.Infow("peer connected", "user_id", userID, "endpoint", endpoint, "trace_id", p.traceID)

	s.sendAccept(ctx, p)
	s.emit(Event{Kind: EventPeerConnected, UserID: userID})
}

func (s *Server) sendAccept(ctx context.Context, p *peer) {
	payload := wire.AcceptPayload{AssignedUserID: p.userID}.Encode()
	_ = s.sendTo(ctx, p, wire.OpAccept, payload)
}

func (s *Server) removePeer(p *peer, reason wire.DisconnectReason) {
	_ = p.machine.HandleRemoteDisconnect(time.Now(), reason)
}

// forgetPeer is the connstate.Callbacks.OnDisconnected hook: it runs
// whether the disconnect was remote-initiated, locally forced, or timed
// out, so all bookkeeping cleanup lives in exactly one place.
func (s *Server) forgetPeer(p *peer, reason wire.DisconnectReason) {
	delete(s.peers, p.endpoint)
	delete(s.byUserID, p.userID)
	s.security.RemoveConnection(p.endpoint)
	if s.cfg.Collector != nil {
		s.cfg.Collector.SetConnectedPeers(len(s.peers))
		s.cfg.Collector.ObserveConnectionEvent("disconnected")
	}
	s.log.Infow("peer disconnected", "user_id", p.userID, "reason", reason.String())
	s.emit(Event{Kind: EventPeerDisconnected, UserID: p.userID, Reason: reason})
}

// DisconnectPeer administratively ends userID's connection (e.g. a kick or
// ban decision made above this package).
func (s *Server) DisconnectPeer(ctx context.Context, userID uint32, reason wire.DisconnectReason) error {
	endpoint, ok := s.byUserID[userID]
	if !ok {
		return wire.ErrNotConnected
	}
	p := s.peers[endpoint]
	payload := wire.DisconnectPayload{Reason: reason}.Encode()
	_ = s.sendTo(ctx, p, wire.OpDisconnect, payload)
	p.machine.ForceDisconnect(time.Now(), reason)
	return nil
}

func (s *Server) observeRejection(err error) {
	if s.cfg.Collector != nil {
		s.cfg.Collector.ObserveRejection(err.Error())
	}
	s.log.Debugw("rejected datagram", "err", err)
}

func (s *Server) tick(now time.Time) {
	ctx := context.Background()
	for _, p := range s.peers {
		due, expired := p.channel.Tick(now)
		for _, d := range due {
			if s.cfg.Collector != nil {
				s.cfg.Collector.ObserveRetransmit()
			}
			_ = s.socket.Send(ctx, p.endpoint, d.Data)
		}
		if len(expired) > 0 {
			p.machine.ForceDisconnect(now, wire.ReasonProtocolError)
			continue
		}
		p.machine.Tick(now)
	}
	removed := s.security.CleanupStale(s.cfg.StaleConnectionTimeout, now)
	if removed > 0 {
		s.log.Debugw("swept stale security contexts", "count", removed)
	}
}

// Close releases the underlying socket.
func (s *Server) Close() error {
	return s.socket.Close()
}
