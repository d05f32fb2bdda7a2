// Package codec reads and writes the binary route format.
//
// Layout, little-endian, no alignment in the header:
//
//	version      float32
//	mapName      text, terminated by 0x20 or 0x00
//	classAbbr    text
//	playerName   text
//	description  text
//	teamNum      uint8
//	classID      int32
//	classHealth  uint32
//	flagGrabTime float32
//	routeLength  uint32
//	positions    52-byte records until end of file
//
// The encoder always terminates text with 0x20. A trailing partial record
// is dropped on decode.
package codec

import (
	"fmt"
	"strings"

	"github.com/tamods/routekit/pkg/core"
)

const textDelimiter = ' '

// fixedHeaderSize is the header size excluding the text fields.
const fixedHeaderSize = 4 + 1 + 4 + 4 + 4 + 4

// Decode parses a complete route file held in data.
func Decode(data []byte) (core.RouteFile, error) {
	var route core.RouteFile
	var err error

	r := newReader(data)

	if route.Version, err = r.readFloat32("version"); err != nil {
		return core.RouteFile{}, err
	}

	texts := []struct {
		field string
		dst   *string
	}{
		{"mapName", &route.MapName},
		{"classAbbr", &route.ClassAbbr},
		{"playerName", &route.PlayerName},
		{"description", &route.Description},
	}
	for _, t := range texts {
		if *t.dst, err = r.readText(t.field); err != nil {
			return core.RouteFile{}, err
		}
	}

	if route.TeamNum, err = r.readByte("teamNum"); err != nil {
		return core.RouteFile{}, err
	}
	if route.ClassID, err = r.readInt32("classID"); err != nil {
		return core.RouteFile{}, err
	}
	if route.ClassHealth, err = r.readUint32("classHealth"); err != nil {
		return core.RouteFile{}, err
	}
	if route.FlagGrabTime, err = r.readFloat32("flagGrabTime"); err != nil {
		return core.RouteFile{}, err
	}
	if route.RouteLength, err = r.readUint32("routeLength"); err != nil {
		return core.RouteFile{}, err
	}

	if n := r.Remaining() / RecordSize; n > 0 {
		route.Positions = make([]core.Position, 0, n)
	}
	for r.Remaining() >= RecordSize {
		route.Positions = append(route.Positions, decodeRecord(r.next(RecordSize)))
	}

	return route, nil
}

// Encode serializes route. Text fields are written verbatim, so a field
// containing a space or NUL byte will not survive a later Decode; use
// EncodeStrict to reject such values.
func Encode(route core.RouteFile) []byte {
	w := newWriter(EncodedSize(route))

	w.writeFloat32(route.Version)
	w.writeText(route.MapName)
	w.writeText(route.ClassAbbr)
	w.writeText(route.PlayerName)
	w.writeText(route.Description)

	w.writeByte(route.TeamNum)
	w.writeInt32(route.ClassID)
	w.writeUint32(route.ClassHealth)
	w.writeFloat32(route.FlagGrabTime)
	w.writeUint32(route.RouteLength)

	for _, p := range route.Positions {
		EncodeRecord(w.grow(RecordSize), p)
	}

	return w.Bytes()
}

// EncodeStrict is Encode but fails when a text field would not round-trip.
func EncodeStrict(route core.RouteFile) ([]byte, error) {
	fields := []struct {
		name  string
		value string
	}{
		{"mapName", route.MapName},
		{"classAbbr", route.ClassAbbr},
		{"playerName", route.PlayerName},
		{"description", route.Description},
	}
	for _, f := range fields {
		if strings.ContainsAny(f.value, " \x00") {
			return nil, fmt.Errorf("encode %s %q: %w", f.name, f.value, ErrUnencodableText)
		}
	}
	return Encode(route), nil
}

// EncodedSize returns the number of bytes Encode will produce for route.
func EncodedSize(route core.RouteFile) int {
	n := fixedHeaderSize
	n += len(route.MapName) + 1
	n += len(route.ClassAbbr) + 1
	n += len(route.PlayerName) + 1
	n += len(route.Description) + 1
	n += len(route.Positions) * RecordSize
	return n
}
