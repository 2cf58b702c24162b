package rtgpserver

import "github.com/rtype-net/rtgp/internal/wire"

// EventKind classifies an Event delivered through Poll.
type EventKind int

const (
	EventPeerConnected EventKind = iota
	EventPeerDisconnected
	EventMessage
)

// Event is produced by the ingress pipeline on the socket's read goroutine
// and drained by the caller via Poll (Section 4.7 — dispatch deferred off
// the I/O thread, same contract as the client orchestrator).
type Event struct {
	Kind    EventKind
	UserID  uint32
	Opcode  wire.OpCode
	Payload interface{}
	Reason  wire.DisconnectReason
}
