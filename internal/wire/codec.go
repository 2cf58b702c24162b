package wire

import (
	"encoding/binary"
	"math"
)

// reader is a small bounds-checked cursor over a payload buffer, used by the
// payload Decode methods below. It plays the same role as the teacher's
// BitStream (source/protocol/raknet.go) but reports errors instead of
// panicking, and always reads network (big-endian) byte order per the RFC.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if r.remaining() < n {
		return nil, false
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *reader) u8() (uint8, bool) {
	b, ok := r.bytes(1)
	if !ok {
		return 0, false
	}
	return b[0], true
}

func (r *reader) u16() (uint16, bool) {
	b, ok := r.bytes(2)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint16(b), true
}

func (r *reader) u32() (uint32, bool) {
	b, ok := r.bytes(4)
	if !ok {
		return 0, false
	}
	return binary.BigEndian.Uint32(b), true
}

func (r *reader) i16() (int16, bool) {
	v, ok := r.u16()
	return int16(v), ok
}

func (r *reader) i32() (int32, bool) {
	v, ok := r.u32()
	return int32(v), ok
}

// f32 reads an IEEE-754 single-precision float, bit-cast through u32 so
// that NaN payloads survive the round trip bit for bit (Section 4.1).
func (r *reader) f32() (float32, bool) {
	v, ok := r.u32()
	if !ok {
		return 0, false
	}
	return math.Float32frombits(v), true
}

// writer is the encode-side counterpart of reader.
type writer struct {
	buf []byte
}

func newWriter(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *writer) u16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) u32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }
func (w *writer) i32(v int32) { w.u32(uint32(v)) }

func (w *writer) f32(v float32) {
	w.u32(math.Float32bits(v))
}

func (w *writer) raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// fixedBytes copies src into a field of exactly n bytes, truncating and
// zero-padding as needed — used for the NUL-padded string fields (chat
// messages, level names, lobby codes).
func (w *writer) fixedBytes(src []byte, n int) {
	field := make([]byte, n)
	copy(field, src)
	w.buf = append(w.buf, field...)
}

// ToNetworkFloat32 / FromNetworkFloat32 expose the bit-cast used above for
// callers (e.g. quantization helpers) that need it outside a payload codec.
func ToNetworkFloat32(v float32) uint32   { return math.Float32bits(v) }
func FromNetworkFloat32(v uint32) float32 { return math.Float32frombits(v) }

// QuantizePosition converts a floating-point coordinate/velocity component
// into the saturated i16 fixed-point representation used by S_ENTITY_MOVE
// and S_ENTITY_MOVE_BATCH (Section 6.1): i16 = round(f * scale), saturated
// to the int16 range.
func QuantizePosition(f float32, scale float32) int16 {
	scaled := math.Round(float64(f) * float64(scale))
	if scaled > math.MaxInt16 {
		return math.MaxInt16
	}
	if scaled < math.MinInt16 {
		return math.MinInt16
	}
	return int16(scaled)
}

// DequantizePosition is the inverse of QuantizePosition.
func DequantizePosition(v int16, scale float32) float32 {
	return float32(v) / scale
}
