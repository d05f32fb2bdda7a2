package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"
)

// reader walks a route buffer. All multi-byte values are little-endian.
type reader struct {
	data []byte
	pos  int
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) truncated(field string, need int) error {
	return &DecodeError{
		Field:  field,
		Offset: r.pos,
		Err:    fmt.Errorf("%w: need %d bytes, have %d", ErrTruncatedInput, need, r.Remaining()),
	}
}

// readByte reads a single byte.
func (r *reader) readByte(field string) (byte, error) {
	if r.Remaining() < 1 {
		return 0, r.truncated(field, 1)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// readUint32 reads a uint32 (4 bytes, LE).
func (r *reader) readUint32(field string) (uint32, error) {
	if r.Remaining() < 4 {
		return 0, r.truncated(field, 4)
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

// readInt32 reads an int32 (4 bytes, LE).
func (r *reader) readInt32(field string) (int32, error) {
	v, err := r.readUint32(field)
	return int32(v), err
}

// readFloat32 reads an IEEE 754 float32 (4 bytes, LE).
func (r *reader) readFloat32(field string) (float32, error) {
	v, err := r.readUint32(field)
	return math.Float32frombits(v), err
}

// readText reads bytes up to a space or NUL delimiter. The delimiter is
// consumed and not part of the result.
func (r *reader) readText(field string) (string, error) {
	start := r.pos
	for i := start; i < len(r.data); i++ {
		if r.data[i] != ' ' && r.data[i] != 0 {
			continue
		}
		raw := r.data[start:i]
		if !utf8.Valid(raw) {
			return "", &DecodeError{Field: field, Offset: start, Err: ErrInvalidEncoding}
		}
		r.pos = i + 1
		return string(raw), nil
	}
	return "", &DecodeError{
		Field:  field,
		Offset: start,
		Err:    fmt.Errorf("%w: no delimiter before end of data", ErrTruncatedInput),
	}
}

// next returns the next n bytes without copying and advances past them.
func (r *reader) next(n int) []byte {
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Remaining returns the number of unread bytes.
func (r *reader) Remaining() int {
	return len(r.data) - r.pos
}
