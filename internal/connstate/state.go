// Package connstate implements the four-state connection lifecycle state
// machine (Section 4.5): Disconnected, Connecting, Connected, Disconnecting,
// with the timers and retry budget that drive automatic transitions. The
// machine sends nothing and owns no socket; the orchestrator calls its
// Initiate*/Handle* methods in response to local intent and inbound frames,
// and polls Tick on its own schedule to learn when a timer has fired.
package connstate

import (
	"sync"
	"time"

	"github.com/rtype-net/rtgp/internal/wire"
)

// State is one of the four lifecycle states named in Section 4.5.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateDisconnecting
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "Disconnected"
	case StateConnecting:
		return "Connecting"
	case StateConnected:
		return "Connected"
	case StateDisconnecting:
		return "Disconnecting"
	default:
		return "Unknown"
	}
}

// UpdateResult reports what, if anything, Tick decided needs to happen.
// This set matches spec.md's four values exactly; the original C++ source's
// ShouldSendConnect/ShouldSendDisconnect are not surfaced here — the
// orchestrator issues those sends directly from InitiateConnect/
// InitiateDisconnect instead of waiting on a tick result (see DESIGN.md).
type UpdateResult int

const (
	NoAction UpdateResult = iota
	ShouldRetryConnect
	ConnectionTimedOut
	DisconnectComplete
)

// Config tunes the machine's timers and retry budget (Section 4.5 defaults).
type Config struct {
	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
	HeartbeatTimeout  time.Duration
	MaxConnectRetries int
}

// DefaultConfig returns the protocol's documented defaults.
func DefaultConfig() Config {
	return Config{
		ConnectTimeout:    2 * time.Second,
		DisconnectTimeout: 1 * time.Second,
		HeartbeatTimeout:  10 * time.Second,
		MaxConnectRetries: 3,
	}
}

// Callbacks are invoked synchronously from within the machine's own
// Initiate*/Handle*/Tick calls. They live as a plain struct owned by the
// Machine (ConnectionEvents.hpp in the original source) rather than the
// orchestrator holding a second, separate reference back into the
// connection — resolving the cyclic-ownership concern in design note §9.
type Callbacks struct {
	OnConnected    func()
	OnDisconnected func(reason wire.DisconnectReason)
}

// Machine is the connection lifecycle state machine for a single peer.
type Machine struct {
	cfg Config

	mu        sync.Mutex
	state     State
	callbacks Callbacks

	connectStartedAt    time.Time
	connectRetries      int
	lastActivityAt      time.Time
	disconnectStartedAt time.Time
}

// New creates a Machine in StateDisconnected.
func New(cfg Config) *Machine {
	return &Machine{cfg: cfg, state: StateDisconnected}
}

// SetCallbacks installs cb, replacing any previously set callbacks.
func (m *Machine) SetCallbacks(cb Callbacks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = cb
}

// State reports the current lifecycle state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func canInitiateConnect(s State) bool    { return s == StateDisconnected }
func canReceiveAccept(s State) bool      { return s == StateConnecting }
func canInitiateDisconnect(s State) bool { return s == StateConnecting || s == StateConnected }
func canCompleteDisconnect(s State) bool { return s == StateDisconnecting || s == StateConnecting }

// InitiateConnect moves Disconnected -> Connecting and starts the connect
// timer. Returns ErrInvalidStateTransition if the machine is not currently
// Disconnected.
func (m *Machine) InitiateConnect(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !canInitiateConnect(m.state) {
		return wire.ErrInvalidStateTransition
	}
	m.state = StateConnecting
	m.connectStartedAt = now
	m.connectRetries = 0
	return nil
}

// HandleAccept moves Connecting -> Connected on receipt of S_ACCEPT.
func (m *Machine) HandleAccept(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !canReceiveAccept(m.state) {
		return wire.ErrInvalidStateTransition
	}
	m.state = StateConnected
	m.lastActivityAt = now
	cb := m.callbacks.OnConnected
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
	m.mu.Lock()
	return nil
}

// InitiateDisconnect moves Connecting or Connected -> Disconnecting and
// starts the disconnect timer.
func (m *Machine) InitiateDisconnect(now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !canInitiateDisconnect(m.state) {
		return wire.ErrInvalidStateTransition
	}
	m.state = StateDisconnecting
	m.disconnectStartedAt = now
	return nil
}

// HandleDisconnectAck completes a locally-initiated disconnect once the
// peer's own DISCONNECT (acting as the ack) arrives.
func (m *Machine) HandleDisconnectAck(now time.Time, reason wire.DisconnectReason) error {
	return m.completeDisconnect(now, reason, canCompleteDisconnect)
}

// HandleRemoteDisconnect ends the connection because the peer sent an
// unsolicited DISCONNECT: valid from Connecting or Connected, same as a
// local InitiateDisconnect would be, since the remote side does not wait
// for our permission to leave. It is also accepted from Disconnecting,
// where the peer's DISCONNECT completes our own pending disconnect.
func (m *Machine) HandleRemoteDisconnect(now time.Time, reason wire.DisconnectReason) error {
	return m.completeDisconnect(now, reason, func(s State) bool {
		return canInitiateDisconnect(s) || canCompleteDisconnect(s)
	})
}

// ForceDisconnect unconditionally ends the connection — used for local
// administrative action (kick/ban) where there is no handshake to wait for.
func (m *Machine) ForceDisconnect(now time.Time, reason wire.DisconnectReason) {
	_ = m.completeDisconnect(now, reason, func(State) bool { return true })
}

func (m *Machine) completeDisconnect(now time.Time, reason wire.DisconnectReason, guard func(State) bool) error {
	m.mu.Lock()
	if !guard(m.state) {
		m.mu.Unlock()
		return wire.ErrInvalidStateTransition
	}
	m.state = StateDisconnected
	cb := m.callbacks.OnDisconnected
	m.mu.Unlock()
	if cb != nil {
		cb(reason)
	}
	return nil
}

// RecordActivity resets the heartbeat timer; call this whenever any valid
// frame is received from the peer while Connected.
func (m *Machine) RecordActivity(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == StateConnected {
		m.lastActivityAt = now
	}
}

// Tick evaluates the active timer for the current state and reports what
// the orchestrator should do next. Tick itself performs the Connecting ->
// Disconnected and Connected -> Disconnected and Disconnecting ->
// Disconnected transitions when a timer has expired; ShouldRetryConnect
// does not change state (the orchestrator resends C_CONNECT and the timer
// keeps running from the new connectStartedAt this call sets).
func (m *Machine) Tick(now time.Time) UpdateResult {
	m.mu.Lock()

	switch m.state {
	case StateConnecting:
		if now.Sub(m.connectStartedAt) < m.cfg.ConnectTimeout {
			m.mu.Unlock()
			return NoAction
		}
		if m.connectRetries < m.cfg.MaxConnectRetries {
			m.connectRetries++
			m.connectStartedAt = now
			m.mu.Unlock()
			return ShouldRetryConnect
		}
		m.state = StateDisconnected
		cb := m.callbacks.OnDisconnected
		m.mu.Unlock()
		if cb != nil {
			cb(wire.ReasonMaxRetriesExceeded)
		}
		return ConnectionTimedOut

	case StateConnected:
		if now.Sub(m.lastActivityAt) < m.cfg.HeartbeatTimeout {
			m.mu.Unlock()
			return NoAction
		}
		m.state = StateDisconnected
		cb := m.callbacks.OnDisconnected
		m.mu.Unlock()
		if cb != nil {
			cb(wire.ReasonTimeout)
		}
		return ConnectionTimedOut

	case StateDisconnecting:
		if now.Sub(m.disconnectStartedAt) < m.cfg.DisconnectTimeout {
			m.mu.Unlock()
			return NoAction
		}
		m.state = StateDisconnected
		cb := m.callbacks.OnDisconnected
		m.mu.Unlock()
		if cb != nil {
			cb(wire.ReasonLocalRequest)
		}
		return DisconnectComplete

	default:
		m.mu.Unlock()
		return NoAction
	}
}
