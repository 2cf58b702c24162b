package wire

import "encoding/binary"

// Wire-level constants (RFC RTGP v1.1.0 Section 6.2).
const (
	MagicByte  byte = 0xA1
	HeaderSize      = 16

	MaxDatagramSize = 1400
	MaxPayloadSize  = MaxDatagramSize - HeaderSize

	DefaultPort = 4242

	ServerUserID     uint32 = 0xFFFFFFFF
	UnassignedUserID uint32 = 0x00000000
	MinClientUserID  uint32 = 0x00000001
	MaxClientUserID  uint32 = 0xFFFFFFFE
)

// Flag bits carried in Header.Flags.
const (
	FlagReliable   uint8 = 1 << 0
	FlagIsAck      uint8 = 1 << 1
	FlagCompressed uint8 = 1 << 2
)

// Header is the in-memory representation of the 16-byte RTGP frame prefix.
// It mirrors the fields of the wire layout one-to-one but is not itself
// `unsafe`-cast onto a byte buffer: Encode/Decode below do the byte-order
// conversion field by field, so the wire layout is independent of any
// in-memory layout.
type Header struct {
	Opcode      OpCode
	PayloadSize uint16
	UserID      uint32
	SeqID       uint16
	AckID       uint16
	Flags       uint8
}

// NewHeader builds a header for op with the RELIABLE flag set according to
// the opcode registry and IS_ACK always set per the client/server orchestrator
// contract (Section 4.6); callers fill in AckID before sending.
func NewHeader(op OpCode, userID uint32, seq uint16, payloadSize int) Header {
	h := Header{
		Opcode:      op,
		PayloadSize: uint16(payloadSize),
		UserID:      userID,
		SeqID:       seq,
		Flags:       FlagIsAck,
	}
	if IsReliable(op) {
		h.Flags |= FlagReliable
	}
	return h
}

func (h Header) IsReliable() bool   { return h.Flags&FlagReliable != 0 }
func (h Header) IsAck() bool        { return h.Flags&FlagIsAck != 0 }
func (h Header) IsCompressed() bool { return h.Flags&FlagCompressed != 0 }

// Encode writes the 16-byte header into dst (which must be at least
// HeaderSize bytes) in network byte order.
func (h Header) Encode(dst []byte) {
	_ = dst[HeaderSize-1]
	dst[0] = MagicByte
	dst[1] = byte(h.Opcode)
	binary.BigEndian.PutUint16(dst[2:4], h.PayloadSize)
	binary.BigEndian.PutUint32(dst[4:8], h.UserID)
	binary.BigEndian.PutUint16(dst[8:10], h.SeqID)
	binary.BigEndian.PutUint16(dst[10:12], h.AckID)
	dst[12] = h.Flags
	dst[13], dst[14], dst[15] = 0, 0, 0
}

// DecodeHeader parses the first HeaderSize bytes of data. The caller is
// expected to have already validated overall size; DecodeHeader itself only
// checks that data is at least HeaderSize long and starts with MagicByte.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, ErrPacketTooSmall
	}
	if data[0] != MagicByte {
		return Header{}, ErrInvalidMagic
	}
	h := Header{
		Opcode:      OpCode(data[1]),
		PayloadSize: binary.BigEndian.Uint16(data[2:4]),
		UserID:      binary.BigEndian.Uint32(data[4:8]),
		SeqID:       binary.BigEndian.Uint16(data[8:10]),
		AckID:       binary.BigEndian.Uint16(data[10:12]),
		Flags:       data[12],
	}
	return h, nil
}

// HasZeroReserved reports whether the three reserved bytes of a raw frame
// are all zero, as required by Section 3.
func HasZeroReserved(data []byte) bool {
	if len(data) < HeaderSize {
		return false
	}
	return data[13] == 0 && data[14] == 0 && data[15] == 0
}
