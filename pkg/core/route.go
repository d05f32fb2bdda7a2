// pkg/core/route.go
package core

// Team numbers as stored in the route header.
const (
	TeamDiamondSword uint8 = 0
	TeamBloodEagle   uint8 = 1
)

// Vec3 is a world-space vector in Unreal units.
type Vec3 struct {
	X float32 `json:"x" yaml:"x" cbor:"x"`
	Y float32 `json:"y" yaml:"y" cbor:"y"`
	Z float32 `json:"z" yaml:"z" cbor:"z"`
}

// RouteFile is a decoded route recording: a header followed by the
// position samples in the order they were recorded.
type RouteFile struct {
	Version      float32    `json:"version" yaml:"version" cbor:"version"`
	MapName      string     `json:"mapName" yaml:"mapName" cbor:"mapName"`
	ClassAbbr    string     `json:"classAbbr" yaml:"classAbbr" cbor:"classAbbr"`
	PlayerName   string     `json:"playerName" yaml:"playerName" cbor:"playerName"`
	Description  string     `json:"description" yaml:"description" cbor:"description"`
	TeamNum      uint8      `json:"teamNum" yaml:"teamNum" cbor:"teamNum"`
	ClassID      int32      `json:"classId" yaml:"classId" cbor:"classId"`
	ClassHealth  uint32     `json:"classHealth" yaml:"classHealth" cbor:"classHealth"`
	FlagGrabTime float32    `json:"flagGrabTime" yaml:"flagGrabTime" cbor:"flagGrabTime"`
	RouteLength  uint32     `json:"routeLength" yaml:"routeLength" cbor:"routeLength"`
	Positions    []Position `json:"positions" yaml:"positions" cbor:"positions"`
}

// Position is a single timestamped sample of a route.
type Position struct {
	Time    float32 `json:"time" yaml:"time" cbor:"time"`
	Loc     Vec3    `json:"loc" yaml:"loc" cbor:"loc"`
	Vel     Vec3    `json:"vel" yaml:"vel" cbor:"vel"`
	Pitch   int32   `json:"pitch" yaml:"pitch" cbor:"pitch"`
	Yaw     int32   `json:"yaw" yaml:"yaw" cbor:"yaw"`
	Phys    uint8   `json:"phys" yaml:"phys" cbor:"phys"`
	Skiing  bool    `json:"skiing" yaml:"skiing" cbor:"skiing"`
	Jetting bool    `json:"jetting" yaml:"jetting" cbor:"jetting"`
	Health  uint32  `json:"health" yaml:"health" cbor:"health"`
	Energy  float32 `json:"energy" yaml:"energy" cbor:"energy"`
	ETA     int32   `json:"eta" yaml:"eta" cbor:"eta"`
}

// Duration returns the time of the last sample, or 0 for an empty route.
func (r RouteFile) Duration() float32 {
	if len(r.Positions) == 0 {
		return 0
	}
	return r.Positions[len(r.Positions)-1].Time
}

// Clone returns a deep copy of r. The positions slice of the copy does not
// share backing storage with r.
func (r RouteFile) Clone() RouteFile {
	out := r
	if r.Positions != nil {
		out.Positions = make([]Position, len(r.Positions))
		copy(out.Positions, r.Positions)
	}
	return out
}
