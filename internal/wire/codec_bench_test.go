package wire

import "testing"

func BenchmarkValidateEntityMoveBatch(b *testing.B) {
	entries := make([]MoveBatchEntry, moveBatchMaxCount)
	for i := range entries {
		entries[i] = MoveBatchEntry{EntityID: uint32(i), X: int16(i), Y: int16(-i), VX: 1, VY: -1}
	}
	payload := EntityMoveBatchPayload{Entries: entries}.Encode()
	h := NewHeader(OpEntityMoveBatch, ServerUserID, 0, len(payload))
	frame := make([]byte, HeaderSize+len(payload))
	h.Encode(frame)
	copy(frame[HeaderSize:], payload)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Validate(frame, true); err != nil {
			b.Fatalf("Validate: %v", err)
		}
	}
}

func BenchmarkHeaderEncodeDecode(b *testing.B) {
	h := NewHeader(OpInput, 7, 42, 1)
	buf := make([]byte, HeaderSize)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h.Encode(buf)
		if _, err := DecodeHeader(buf); err != nil {
			b.Fatalf("DecodeHeader: %v", err)
		}
	}
}
