package connstate

import (
	"testing"
	"time"

	"github.com/rtype-net/rtgp/internal/wire"
)

func TestConnectLifecycleHappyPath(t *testing.T) {
	m := New(DefaultConfig())
	now := time.Unix(0, 0)

	connected := false
	m.SetCallbacks(Callbacks{OnConnected: func() { connected = true }})

	if err := m.InitiateConnect(now); err != nil {
		t.Fatalf("InitiateConnect: %v", err)
	}
	if m.State() != StateConnecting {
		t.Fatalf("state = %v, want Connecting", m.State())
	}

	if err := m.HandleAccept(now); err != nil {
		t.Fatalf("HandleAccept: %v", err)
	}
	if m.State() != StateConnected {
		t.Fatalf("state = %v, want Connected", m.State())
	}
	if !connected {
		t.Error("OnConnected callback was not invoked")
	}
}

func TestInitiateConnectRejectedWhenNotDisconnected(t *testing.T) {
	m := New(DefaultConfig())
	now := time.Unix(0, 0)
	_ = m.InitiateConnect(now)

	if err := m.InitiateConnect(now); err != wire.ErrInvalidStateTransition {
		t.Errorf("err = %v, want ErrInvalidStateTransition", err)
	}
}

func TestTickRetriesConnectBeforeGivingUp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxConnectRetries = 2
	m := New(cfg)
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)

	var reason wire.DisconnectReason
	m.SetCallbacks(Callbacks{OnDisconnected: func(r wire.DisconnectReason) { reason = r }})

	t1 := start.Add(cfg.ConnectTimeout + time.Millisecond)
	if got := m.Tick(t1); got != ShouldRetryConnect {
		t.Fatalf("Tick 1 = %v, want ShouldRetryConnect", got)
	}
	t2 := t1.Add(cfg.ConnectTimeout + time.Millisecond)
	if got := m.Tick(t2); got != ShouldRetryConnect {
		t.Fatalf("Tick 2 = %v, want ShouldRetryConnect", got)
	}
	t3 := t2.Add(cfg.ConnectTimeout + time.Millisecond)
	if got := m.Tick(t3); got != ConnectionTimedOut {
		t.Fatalf("Tick 3 = %v, want ConnectionTimedOut", got)
	}
	if m.State() != StateDisconnected {
		t.Errorf("state after timeout = %v, want Disconnected", m.State())
	}
	if reason != wire.ReasonMaxRetriesExceeded {
		t.Errorf("reason = %v, want ReasonMaxRetriesExceeded", reason)
	}
}

func TestTickReportsHeartbeatTimeout(t *testing.T) {
	m := New(DefaultConfig())
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)
	_ = m.HandleAccept(start)

	var reason wire.DisconnectReason
	m.SetCallbacks(Callbacks{OnDisconnected: func(r wire.DisconnectReason) { reason = r }})

	if got := m.Tick(start.Add(5 * time.Second)); got != NoAction {
		t.Fatalf("Tick before heartbeat timeout = %v, want NoAction", got)
	}
	if got := m.Tick(start.Add(11 * time.Second)); got != ConnectionTimedOut {
		t.Fatalf("Tick after heartbeat timeout = %v, want ConnectionTimedOut", got)
	}
	if reason != wire.ReasonTimeout {
		t.Errorf("reason = %v, want ReasonTimeout", reason)
	}
}

func TestRecordActivityResetsHeartbeat(t *testing.T) {
	m := New(DefaultConfig())
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)
	_ = m.HandleAccept(start)

	m.RecordActivity(start.Add(8 * time.Second))
	if got := m.Tick(start.Add(15 * time.Second)); got != NoAction {
		t.Fatalf("Tick after fresh activity = %v, want NoAction", got)
	}
}

func TestDisconnectHandshakeCompletesOnAck(t *testing.T) {
	m := New(DefaultConfig())
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)
	_ = m.HandleAccept(start)

	if err := m.InitiateDisconnect(start); err != nil {
		t.Fatalf("InitiateDisconnect: %v", err)
	}
	if m.State() != StateDisconnecting {
		t.Fatalf("state = %v, want Disconnecting", m.State())
	}

	if err := m.HandleDisconnectAck(start, wire.ReasonLocalRequest); err != nil {
		t.Fatalf("HandleDisconnectAck: %v", err)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v, want Disconnected", m.State())
	}
}

func TestDisconnectTimesOutWithoutAck(t *testing.T) {
	cfg := DefaultConfig()
	m := New(cfg)
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)
	_ = m.HandleAccept(start)
	_ = m.InitiateDisconnect(start)

	var reason wire.DisconnectReason
	m.SetCallbacks(Callbacks{OnDisconnected: func(r wire.DisconnectReason) { reason = r }})

	if got := m.Tick(start.Add(cfg.DisconnectTimeout + time.Millisecond)); got != DisconnectComplete {
		t.Fatalf("Tick = %v, want DisconnectComplete", got)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v, want Disconnected", m.State())
	}
	if reason != wire.ReasonLocalRequest {
		t.Errorf("reason = %v, want ReasonLocalRequest", reason)
	}
}

func TestHandleRemoteDisconnectFromConnected(t *testing.T) {
	m := New(DefaultConfig())
	start := time.Unix(0, 0)
	_ = m.InitiateConnect(start)
	_ = m.HandleAccept(start)

	if err := m.HandleRemoteDisconnect(start, wire.ReasonRemoteRequest); err != nil {
		t.Fatalf("HandleRemoteDisconnect: %v", err)
	}
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v, want Disconnected", m.State())
	}
}

func TestForceDisconnectAlwaysSucceeds(t *testing.T) {
	m := New(DefaultConfig())
	m.ForceDisconnect(time.Unix(0, 0), wire.ReasonBanned)
	if m.State() != StateDisconnected {
		t.Fatalf("state = %v, want Disconnected", m.State())
	}
}
