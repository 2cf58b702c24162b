package wire

// Validate runs the nine ordered, stateless checks every inbound datagram
// must pass before it reaches per-connection processing (Section 4.3). It
// never consults connection state — duplicate/replay detection and user-id
// binding against a specific peer are the security package's job, layered
// on top of this. fromServer tells the validator which side sent data, so
// it can enforce the opcode origin rules (Section 6.1) without a connection
// table: a client-run validator passes fromServer=true for datagrams it
// reads off its server socket, a server-run validator passes false.
func Validate(data []byte, fromServer bool) (Header, error) {
	// 1. Overall size bounds: must fit a header and never exceed a datagram.
	if len(data) < HeaderSize {
		return Header{}, ErrPacketTooSmall
	}
	if len(data) > MaxDatagramSize {
		return Header{}, ErrPacketTooLarge
	}

	// 2. Magic byte.
	if data[0] != MagicByte {
		return Header{}, ErrInvalidMagic
	}

	h, err := DecodeHeader(data)
	if err != nil {
		return Header{}, err
	}

	// 3. Declared payload_size must itself fit within the max payload bound,
	// independent of what the datagram actually carries.
	if h.PayloadSize > MaxPayloadSize {
		return Header{}, ErrPacketTooLarge
	}

	// 4. Opcode must be one of the closed set.
	if !IsKnown(h.Opcode) {
		return Header{}, ErrUnknownOpcode
	}

	// 5. Reserved bytes must be zero.
	if !HasZeroReserved(data) {
		return Header{}, ErrMalformedPacket
	}

	// 6. Declared payload_size must match the bytes actually present.
	payload := data[HeaderSize:]
	if int(h.PayloadSize) != len(payload) {
		return Header{}, ErrMalformedPacket
	}

	// 7. Fixed-size opcodes must carry exactly their declared size; variable
	// ones must at least carry a count byte and never exceed their cap.
	if fixed, ok := FixedPayloadSize(h.Opcode); ok {
		if int(h.PayloadSize) != fixed {
			return Header{}, ErrMalformedPacket
		}
	} else {
		if err := validateVariablePayload(h.Opcode, payload); err != nil {
			return Header{}, err
		}
	}

	// 8. Origin / user-id authority rules.
	origin := OriginOf(h.Opcode)
	switch origin {
	case OriginClient:
		if fromServer {
			return Header{}, ErrInvalidUserID
		}
	case OriginServer:
		if !fromServer {
			return Header{}, ErrInvalidUserID
		}
	}
	if fromServer {
		if h.UserID != ServerUserID && h.UserID != UnassignedUserID {
			return Header{}, ErrInvalidUserID
		}
	} else {
		// A still-unassigned client (pre-S_ACCEPT) may only speak with
		// UserID == UnassignedUserID, and only for the connect handshake.
		if h.UserID == UnassignedUserID && h.Opcode != OpConnect {
			return Header{}, ErrInvalidUserID
		}
		if h.UserID != UnassignedUserID && (h.UserID < MinClientUserID || h.UserID > MaxClientUserID) {
			return Header{}, ErrInvalidUserID
		}
	}

	// 9. Frames with opcode ACK must carry no payload.
	if h.Opcode == OpAck && h.PayloadSize != 0 {
		return Header{}, ErrMalformedPacket
	}

	return h, nil
}

func validateVariablePayload(op OpCode, payload []byte) error {
	if len(payload) < 1 {
		return ErrMalformedPacket
	}
	count := int(payload[0])
	rest := payload[1:]
	switch op {
	case OpUsersList:
		if count > usersListMaxCount || len(rest) != count*usersListEntrySize {
			return ErrMalformedPacket
		}
	case OpLobbyList:
		if count > lobbyListMaxCount || len(rest) != count*lobbyListEntrySize {
			return ErrMalformedPacket
		}
	case OpEntityMoveBatch:
		if count > moveBatchMaxCount || len(rest) != count*moveBatchEntrySize {
			return ErrMalformedPacket
		}
	default:
		return ErrUnknownOpcode
	}
	return nil
}
