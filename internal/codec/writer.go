package codec

import (
	"encoding/binary"
	"math"
)

// writer accumulates an encoded route. All multi-byte values are
// little-endian.
type writer struct {
	buf []byte
}

func newWriter(capacity int) *writer {
	return &writer{buf: make([]byte, 0, capacity)}
}

func (w *writer) writeByte(b byte) {
	w.buf = append(w.buf, b)
}

func (w *writer) writeUint32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *writer) writeInt32(v int32) {
	w.writeUint32(uint32(v))
}

func (w *writer) writeFloat32(v float32) {
	w.writeUint32(math.Float32bits(v))
}

// writeText writes s followed by a single space delimiter.
func (w *writer) writeText(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, textDelimiter)
}

// grow extends the buffer by n zero bytes and returns the new tail.
func (w *writer) grow(n int) []byte {
	start := len(w.buf)
	w.buf = append(w.buf, make([]byte, n)...)
	return w.buf[start:]
}

func (w *writer) Bytes() []byte {
	return w.buf
}
