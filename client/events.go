package rtgpclient

import "github.com/rtype-net/rtgp/internal/wire"

// EventKind classifies an Event delivered through Poll.
type EventKind int

const (
	// EventConnected fires once S_ACCEPT has been processed.
	EventConnected EventKind = iota
	// EventDisconnected fires when the connection ends, for any reason.
	EventDisconnected
	// EventMessage wraps every other decoded server opcode; Payload holds
	// the typed struct from wire.DecodePayload (switch on Opcode to assert
	// its concrete type).
	EventMessage
)

// Event is produced by the ingress pipeline on the socket's read goroutine
// and drained by the caller via Poll, which defers all dispatch onto the
// caller's own thread (Section 4.6).
type Event struct {
	Kind    EventKind
	Opcode  wire.OpCode
	Payload interface{}
	Reason  wire.DisconnectReason
}
