// Package wire implements the RTGP binary frame format: the byte codec, the
// 16-byte header, the opcode registry, payload encode/decode, and the
// stateless datagram validator.
package wire

import "errors"

// Internal error taxonomy (RFC RTGP v1.1.0 Section 6.3). These are values,
// not exceptions: the validator, codec, and registry return them directly
// and the orchestrators decide policy (see package doc in client/server).
var (
	ErrInvalidMagic          = errors.New("wire: invalid magic byte")
	ErrUnknownOpcode         = errors.New("wire: unknown opcode")
	ErrPacketTooSmall        = errors.New("wire: packet too small")
	ErrPacketTooLarge        = errors.New("wire: packet too large")
	ErrMalformedPacket       = errors.New("wire: malformed packet")
	ErrInvalidUserID         = errors.New("wire: invalid user id")
	ErrInvalidSequence       = errors.New("wire: invalid sequence id")
	ErrDuplicatePacket       = errors.New("wire: duplicate packet")
	ErrInvalidStateTransition = errors.New("wire: invalid state transition")
	ErrNotConnected          = errors.New("wire: not connected")
	ErrRetryLimitExceeded    = errors.New("wire: retry limit exceeded")
	ErrBindFailed            = errors.New("wire: socket bind failed")
	ErrSocketClosed          = errors.New("wire: socket closed")
	ErrCancelled             = errors.New("wire: operation cancelled")
	ErrBanned                = errors.New("wire: endpoint banned")
)

// DisconnectReason is the stable 8-bit reason code carried in a DISCONNECT
// payload (RFC RTGP v1.1.0, ConnectionEvents.hpp in the original source).
type DisconnectReason uint8

const (
	ReasonTimeout            DisconnectReason = 0
	ReasonMaxRetriesExceeded DisconnectReason = 1
	ReasonProtocolError      DisconnectReason = 2
	ReasonRemoteRequest      DisconnectReason = 3
	ReasonLocalRequest       DisconnectReason = 4
	ReasonBanned             DisconnectReason = 5
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonTimeout:
		return "Timeout"
	case ReasonMaxRetriesExceeded:
		return "MaxRetriesExceeded"
	case ReasonProtocolError:
		return "ProtocolError"
	case ReasonRemoteRequest:
		return "RemoteRequest"
	case ReasonLocalRequest:
		return "LocalRequest"
	case ReasonBanned:
		return "Banned"
	default:
		return "Unknown"
	}
}
