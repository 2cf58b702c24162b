package rtgpclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rtype-net/rtgp/internal/connstate"
	"github.com/rtype-net/rtgp/internal/reliable"
	"github.com/rtype-net/rtgp/internal/telemetry"
	"github.com/rtype-net/rtgp/internal/transport"
	"github.com/rtype-net/rtgp/internal/wire"
)

// Client is the client-side connection to a single RTGP server.
type Client struct {
	cfg            Config
	socket         transport.Socket
	serverEndpoint string

	machine *connstate.Machine
	channel *reliable.Channel

	mu     sync.Mutex
	userID uint32

	events  chan Event
	traceID string
	log     telemetry.Sink
}

// New builds a Client that will speak to serverEndpoint over socket. socket
// is injected so tests can pass a transport.LoopbackSocket instead of a
// real UDP connection.
func New(socket transport.Socket, serverEndpoint string, opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	traceID := telemetry.NewTraceID()
	log := cfg.Logger
	if log == nil {
		log = telemetry.NoopSink{}
	}
	log = log.With("trace_id", traceID, "role", "client")

	c := &Client{
		cfg:            cfg,
		socket:         socket,
		serverEndpoint: serverEndpoint,
		machine:        connstate.New(cfg.ConnState),
		channel:        reliable.New(cfg.Reliable),
		events:         make(chan Event, cfg.EventQueueSize),
		traceID:        traceID,
		log:            log,
		userID:         wire.UnassignedUserID,
	}
	c.machine.SetCallbacks(connstate.Callbacks{
		OnConnected:    c.onConnected,
		OnDisconnected: c.onDisconnected,
	})
	return c
}

// UserID returns the id the server assigned at accept time, or
// wire.UnassignedUserID before that.
func (c *Client) UserID() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// State reports the connection's current lifecycle state.
func (c *Client) State() connstate.State {
	return c.machine.State()
}

// Events returns the channel Poll reads from, for callers that want to
// select on it directly alongside other channels.
func (c *Client) Events() <-chan Event {
	return c.events
}

// Poll drains at most one pending event, returning ok=false if none is
// queued. Call this from the application's own thread/frame loop — all
// dispatch is deferred here, off the socket's read goroutine (Section 4.6).
func (c *Client) Poll() (Event, bool) {
	select {
	case ev := <-c.events:
		return ev, true
	default:
		return Event{}, false
	}
}

func (c *Client) emit(ev Event) {
	select {
	case c.events <- ev:
	default:
		c.log.Warnw("event queue full, dropping event", "kind", ev.Kind)
	}
}

// Connect starts the connect handshake: it sends C_CONNECT and returns
// immediately. Progress is observed through Poll once Run is pumping the
// socket: EventConnected on S_ACCEPT, or EventDisconnected with
// ReasonMaxRetriesExceeded once every connect retry has timed out.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.machine.InitiateConnect(time.Now()); err != nil {
		return err
	}
	return c.sendConnect(ctx)
}

func (c *Client) sendConnect(ctx context.Context) error {
	return c.sendFrame(ctx, wire.OpConnect, wire.ConnectPayload{}.Encode())
}

// Disconnect starts a local graceful disconnect, sending DISCONNECT with
// reason. Completion is observed via EventDisconnected.
func (c *Client) Disconnect(ctx context.Context, reason wire.DisconnectReason) error {
	if err := c.machine.InitiateDisconnect(time.Now()); err != nil {
		return err
	}
	return c.sendFrame(ctx, wire.OpDisconnect, wire.DisconnectPayload{Reason: reason}.Encode())
}

// SendInput sends this tick's button state (unreliable).
func (c *Client) SendInput(ctx context.Context, buttons uint8) error {
	return c.sendFrame(ctx, wire.OpInput, wire.InputPayload{Buttons: buttons}.Encode())
}

// Ping sends an unreliable PING; the application matches the resulting
// EventMessage{Opcode: wire.OpPong} to measure round-trip time itself.
func (c *Client) Ping(ctx context.Context) error {
	return c.sendFrame(ctx, wire.OpPing, nil)
}

// SendReady tells the server whether the local player is ready to start.
func (c *Client) SendReady(ctx context.Context, ready bool) error {
	return c.sendFrame(ctx, wire.OpReady, wire.ReadyPayload{Ready: ready}.Encode())
}

// SendChat sends a chat message, truncated to fit the wire field.
func (c *Client) SendChat(ctx context.Context, message string) error {
	p := wire.NewChatPayload(c.UserID(), message)
	return c.sendFrame(ctx, wire.OpChat, p.Encode())
}

// RequestLobbyList asks the server for its current open lobbies.
func (c *Client) RequestLobbyList(ctx context.Context) error {
	return c.sendFrame(ctx, wire.OpRequestLobbies, nil)
}

// JoinLobby asks to join the lobby identified by code.
func (c *Client) JoinLobby(ctx context.Context, code [6]byte) error {
	return c.sendFrame(ctx, wire.OpJoinLobby, wire.JoinLobbyPayload{Code: code}.Encode())
}

// GetUsers asks the server for the current connected-user list.
func (c *Client) GetUsers(ctx context.Context) error {
	return c.sendFrame(ctx, wire.OpGetUsers, nil)
}

// SetBandwidthMode requests the server change its tick/batch rate.
func (c *Client) SetBandwidthMode(ctx context.Context, mode uint8) error {
	return c.sendFrame(ctx, wire.OpSetBandwidthMode, wire.BandwidthModePayload{Mode: mode}.Encode())
}

func (c *Client) sendFrame(ctx context.Context, op wire.OpCode, payload []byte) error {
	if len(payload) > wire.MaxPayloadSize {
		return wire.ErrPacketTooLarge
	}
	c.mu.Lock()
	userID := c.userID
	c.mu.Unlock()

	seq := c.channel.NextSeq()
	ackID, _ := c.channel.LastReceivedSeqID()
	h := wire.NewHeader(op, userID, seq, len(payload))
	h.AckID = ackID

	buf := make([]byte, wire.HeaderSize+len(payload))
	h.Encode(buf)
	copy(buf[wire.HeaderSize:], payload)

	if h.IsReliable() {
		c.channel.TrackOutgoing(seq, buf, time.Now())
	}
	if c.cfg.Collector != nil {
		c.cfg.Collector.ObservePacket(wire.Name(op), "out")
	}
	if err := c.socket.Send(ctx, c.serverEndpoint, buf); err != nil {
		c.log.Errorw("send failed", "opcode", wire.Name(op), "err", err)
		return fmt.Errorf("rtgpclient: send %s: %w", wire.Name(op), err)
	}
	return nil
}

// Run pumps the socket and the tick timer until ctx is cancelled or the
// socket reports a terminal error. Run is meant to be started in its own
// goroutine; Poll drains the events it produces on the caller's thread.
func (c *Client) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	type recvResult struct {
		dg  transport.Datagram
		err error
	}
	recvCh := make(chan recvResult)
	go func() {
		for {
			dg, err := c.socket.Recv(ctx)
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
			c.ingress(ctx, r.dg)
		case now := <-ticker.C:
			c.tick(now)
		}
	}
}

func (c *Client) ingress(ctx context.Context, dg transport.Datagram) {
	h, err := wire.Validate(dg.Data, true)
	if err != nil {
		if c.cfg.Collector != nil {
			c.cfg.Collector.ObserveRejection(err.Error())
		}
		c.log.Debugw("dropped invalid datagram", "err", err)
		return
	}

	payload := dg.Data[wire.HeaderSize:]
	now := time.Now()

	if h.Opcode != wire.OpAck && h.IsReliable() {
		if !c.channel.RecordReceived(h.SeqID) {
			if c.cfg.Collector != nil {
				c.cfg.Collector.ObserveRejection(wire.ErrDuplicatePacket.Error())
			}
			_ = c.sendFrame(ctx, wire.OpAck, nil)
			return
		}
		// Ack immediately, even though our next outgoing frame would
		// piggyback the same AckID: the server may have nothing else to
		// send and needs this to disarm its retransmit timer (Section 5.3).
		_ = c.sendFrame(ctx, wire.OpAck, nil)
	}
	c.channel.RecordAck(h.AckID)
	c.machine.RecordActivity(now)
	if c.cfg.Collector != nil {
		c.cfg.Collector.ObservePacket(wire.Name(h.Opcode), "in")
	}

	switch h.Opcode {
	case wire.OpAccept:
		p, err := wire.DecodeAcceptPayload(payload)
		if err != nil {
			c.log.Warnw("malformed S_ACCEPT", "err", err)
			return
		}
		c.mu.Lock()
		c.userID = p.AssignedUserID
		c.mu.Unlock()
		if err := c.machine.HandleAccept(now); err != nil {
			c.log.Warnw("S_ACCEPT in unexpected state", "err", err)
		}
	case wire.OpDisconnect:
		p, err := wire.DecodeDisconnectPayload(payload)
		if err != nil {
			c.log.Warnw("malformed DISCONNECT", "err", err)
			return
		}
		_ = c.machine.HandleRemoteDisconnect(now, p.Reason)
	case wire.OpAck:
		// Piggyback ack already applied above; nothing further to do.
	default:
		decoded, err := wire.DecodePayload(h.Opcode, payload)
		if err != nil {
			c.log.Warnw("malformed payload", "opcode", wire.Name(h.Opcode), "err", err)
			return
		}
		c.emit(Event{Kind: EventMessage, Opcode: h.Opcode, Payload: decoded})
	}
}

func (c *Client) onConnected() {
	if c.cfg.Collector != nil {
		c.cfg.Collector.ObserveConnectionEvent("connected")
	}
	c.emit(Event{Kind: EventConnected})
}

func (c *Client) onDisconnected(reason wire.DisconnectReason) {
	if c.cfg.Collector != nil {
		c.cfg.Collector.ObserveConnectionEvent("disconnected")
	}
	c.channel.Clear()
	c.emit(Event{Kind: EventDisconnected, Reason: reason})
}

func (c *Client) tick(now time.Time) {
	due, expired := c.channel.Tick(now)
	for _, d := range due {
		if c.cfg.Collector != nil {
			c.cfg.Collector.ObserveRetransmit()
		}
		_ = c.socket.Send(context.Background(), c.serverEndpoint, d.Data)
	}
	if len(expired) > 0 {
		c.machine.ForceDisconnect(now, wire.ReasonProtocolError)
		return
	}

	// ConnectionTimedOut and DisconnectComplete both drive their own
	// notification through the Callbacks the Machine was built with
	// (onDisconnected emits EventDisconnected); only the retry case needs
	// action here.
	if c.machine.Tick(now) == connstate.ShouldRetryConnect {
		_ = c.sendConnect(context.Background())
	}
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.socket.Close()
}
