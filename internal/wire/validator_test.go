package wire

import "testing"

func buildFrame(t *testing.T, h Header, payload []byte) []byte {
	t.Helper()
	buf := make([]byte, HeaderSize+len(payload))
	h.PayloadSize = uint16(len(payload))
	h.Encode(buf)
	copy(buf[HeaderSize:], payload)
	return buf
}

func TestValidateAcceptsWellFormedClientFrame(t *testing.T) {
	h := NewHeader(OpInput, 3, 1, 1)
	frame := buildFrame(t, h, InputPayload{Buttons: InputLeft}.Encode())

	got, err := Validate(frame, false)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got.Opcode != OpInput {
		t.Errorf("Opcode = %v, want OpInput", got.Opcode)
	}
}

func TestValidateRejectsShortPacket(t *testing.T) {
	_, err := Validate(make([]byte, HeaderSize-1), false)
	if err != ErrPacketTooSmall {
		t.Errorf("err = %v, want ErrPacketTooSmall", err)
	}
}

func TestValidateRejectsOversizedPacket(t *testing.T) {
	_, err := Validate(make([]byte, MaxDatagramSize+1), false)
	if err != ErrPacketTooLarge {
		t.Errorf("err = %v, want ErrPacketTooLarge", err)
	}
}

func TestValidateRejectsBadMagic(t *testing.T) {
	h := NewHeader(OpPing, 1, 0, 0)
	frame := buildFrame(t, h, nil)
	frame[0] = 0x00

	_, err := Validate(frame, false)
	if err != ErrInvalidMagic {
		t.Errorf("err = %v, want ErrInvalidMagic", err)
	}
}

func TestValidateRejectsUnknownOpcode(t *testing.T) {
	h := NewHeader(OpPing, 1, 0, 0)
	frame := buildFrame(t, h, nil)
	frame[1] = 0x99

	_, err := Validate(frame, false)
	if err != ErrUnknownOpcode {
		t.Errorf("err = %v, want ErrUnknownOpcode", err)
	}
}

func TestValidateRejectsNonZeroReserved(t *testing.T) {
	h := NewHeader(OpPing, 1, 0, 0)
	frame := buildFrame(t, h, nil)
	frame[15] = 0x01

	_, err := Validate(frame, false)
	if err != ErrMalformedPacket {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestValidateRejectsDeclaredSizeMismatch(t *testing.T) {
	h := NewHeader(OpAccept, ServerUserID, 0, 4)
	frame := buildFrame(t, h, AcceptPayload{AssignedUserID: 1}.Encode())
	// Lie about the payload size in the header without changing the buffer.
	frame[2], frame[3] = 0, 5

	_, err := Validate(frame, true)
	if err != ErrMalformedPacket {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestValidateRejectsFixedSizeMismatch(t *testing.T) {
	h := NewHeader(OpAccept, ServerUserID, 0, 0)
	frame := buildFrame(t, h, []byte{1, 2, 3})

	_, err := Validate(frame, true)
	if err != ErrMalformedPacket {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestValidateRejectsVariablePayloadOverCap(t *testing.T) {
	payload := make([]byte, 1+(moveBatchMaxCount+1)*moveBatchEntrySize)
	payload[0] = moveBatchMaxCount + 1
	h := NewHeader(OpEntityMoveBatch, ServerUserID, 0, len(payload))
	frame := buildFrame(t, h, payload)

	_, err := Validate(frame, true)
	if err != ErrMalformedPacket {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}

func TestValidateEnforcesOpcodeOrigin(t *testing.T) {
	h := NewHeader(OpAccept, ServerUserID, 0, 4)
	frame := buildFrame(t, h, AcceptPayload{}.Encode())

	if _, err := Validate(frame, false); err != ErrInvalidUserID {
		t.Errorf("client-claimed S_ACCEPT: err = %v, want ErrInvalidUserID", err)
	}
	if _, err := Validate(frame, true); err != nil {
		t.Errorf("server-claimed S_ACCEPT: err = %v, want nil", err)
	}
}

func TestValidateRejectsOutOfRangeClientUserID(t *testing.T) {
	h := NewHeader(OpInput, ServerUserID, 0, 1)
	frame := buildFrame(t, h, InputPayload{}.Encode())

	_, err := Validate(frame, false)
	if err != ErrInvalidUserID {
		t.Errorf("err = %v, want ErrInvalidUserID", err)
	}
}

func TestValidateAllowsUnassignedUserIDOnlyForConnect(t *testing.T) {
	h := NewHeader(OpConnect, UnassignedUserID, 0, 0)
	frame := buildFrame(t, h, nil)
	if _, err := Validate(frame, false); err != nil {
		t.Errorf("C_CONNECT with unassigned id: err = %v, want nil", err)
	}

	h2 := NewHeader(OpInput, UnassignedUserID, 0, 1)
	frame2 := buildFrame(t, h2, InputPayload{}.Encode())
	if _, err := Validate(frame2, false); err != ErrInvalidUserID {
		t.Errorf("C_INPUT with unassigned id: err = %v, want ErrInvalidUserID", err)
	}
}

func TestValidateRejectsAckWithPayload(t *testing.T) {
	h := NewHeader(OpAck, ServerUserID, 0, 1)
	frame := buildFrame(t, h, []byte{0})

	_, err := Validate(frame, true)
	if err != ErrMalformedPacket {
		t.Errorf("err = %v, want ErrMalformedPacket", err)
	}
}
