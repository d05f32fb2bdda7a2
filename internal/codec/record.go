package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/tamods/routekit/pkg/core"
)

// RecordSize is the on-disk size of one position record.
const RecordSize = 52

// Byte offsets inside a position record. The game client writes the
// record straight from its in-memory struct, so the three single-byte
// fields are followed by one alignment byte before Health.
const (
	offTime    = 0
	offLocX    = 4
	offLocY    = 8
	offLocZ    = 12
	offVelX    = 16
	offVelY    = 20
	offVelZ    = 24
	offPitch   = 28
	offYaw     = 32
	offPhys    = 36
	offSkiing  = 37
	offJetting = 38
	offPadding = 39
	offHealth  = 40
	offEnergy  = 44
	offETA     = 48
)

// DecodeRecord unpacks a single position record. b must hold at least
// RecordSize bytes.
func DecodeRecord(b []byte) (core.Position, error) {
	if len(b) < RecordSize {
		return core.Position{}, fmt.Errorf("%w: record needs %d bytes, have %d", ErrTruncatedInput, RecordSize, len(b))
	}
	return decodeRecord(b), nil
}

func decodeRecord(b []byte) core.Position {
	return core.Position{
		Time: f32(b, offTime),
		Loc: core.Vec3{
			X: f32(b, offLocX),
			Y: f32(b, offLocY),
			Z: f32(b, offLocZ),
		},
		Vel: core.Vec3{
			X: f32(b, offVelX),
			Y: f32(b, offVelY),
			Z: f32(b, offVelZ),
		},
		Pitch:   int32(binary.LittleEndian.Uint32(b[offPitch:])),
		Yaw:     int32(binary.LittleEndian.Uint32(b[offYaw:])),
		Phys:    b[offPhys],
		Skiing:  b[offSkiing] != 0,
		Jetting: b[offJetting] != 0,
		Health:  binary.LittleEndian.Uint32(b[offHealth:]),
		Energy:  f32(b, offEnergy),
		ETA:     int32(binary.LittleEndian.Uint32(b[offETA:])),
	}
}

// EncodeRecord packs p into dst, which must hold at least RecordSize
// bytes. The padding byte is written as zero.
func EncodeRecord(dst []byte, p core.Position) {
	_ = dst[RecordSize-1]

	putF32(dst, offTime, p.Time)
	putF32(dst, offLocX, p.Loc.X)
	putF32(dst, offLocY, p.Loc.Y)
	putF32(dst, offLocZ, p.Loc.Z)
	putF32(dst, offVelX, p.Vel.X)
	putF32(dst, offVelY, p.Vel.Y)
	putF32(dst, offVelZ, p.Vel.Z)
	binary.LittleEndian.PutUint32(dst[offPitch:], uint32(p.Pitch))
	binary.LittleEndian.PutUint32(dst[offYaw:], uint32(p.Yaw))
	dst[offPhys] = p.Phys
	dst[offSkiing] = boolByte(p.Skiing)
	dst[offJetting] = boolByte(p.Jetting)
	dst[offPadding] = 0
	binary.LittleEndian.PutUint32(dst[offHealth:], p.Health)
	putF32(dst, offEnergy, p.Energy)
	binary.LittleEndian.PutUint32(dst[offETA:], uint32(p.ETA))
}

func f32(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

func putF32(b []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(b[off:], math.Float32bits(v))
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}
