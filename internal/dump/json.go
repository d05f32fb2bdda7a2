package dump

import (
	"encoding/json"
	"math"

	"github.com/tamods/routekit/pkg/core"
)

// jsonFloat writes NaN and the infinities as the strings "NaN", "+Inf"
// and "-Inf", which plain JSON numbers cannot express. Finite values stay
// numbers.
type jsonFloat float32

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	switch {
	case math.IsNaN(v):
		return []byte(`"NaN"`), nil
	case math.IsInf(v, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(v, -1):
		return []byte(`"-Inf"`), nil
	}
	return json.Marshal(float32(f))
}

type jsonVec struct {
	X jsonFloat `json:"x"`
	Y jsonFloat `json:"y"`
	Z jsonFloat `json:"z"`
}

type jsonPosition struct {
	Time    jsonFloat `json:"time"`
	Loc     jsonVec   `json:"loc"`
	Vel     jsonVec   `json:"vel"`
	Pitch   int32     `json:"pitch"`
	Yaw     int32     `json:"yaw"`
	Phys    uint8     `json:"phys"`
	Skiing  bool      `json:"skiing"`
	Jetting bool      `json:"jetting"`
	Health  uint32    `json:"health"`
	Energy  jsonFloat `json:"energy"`
	ETA     int32     `json:"eta"`
}

type jsonRoute struct {
	Version      jsonFloat      `json:"version"`
	MapName      string         `json:"mapName"`
	ClassAbbr    string         `json:"classAbbr"`
	PlayerName   string         `json:"playerName"`
	Description  string         `json:"description"`
	TeamNum      uint8          `json:"teamNum"`
	ClassID      int32          `json:"classId"`
	ClassHealth  uint32         `json:"classHealth"`
	FlagGrabTime jsonFloat      `json:"flagGrabTime"`
	RouteLength  uint32         `json:"routeLength"`
	Positions    []jsonPosition `json:"positions"`
}

func vecJSON(v core.Vec3) jsonVec {
	return jsonVec{X: jsonFloat(v.X), Y: jsonFloat(v.Y), Z: jsonFloat(v.Z)}
}

func toJSON(r core.RouteFile) jsonRoute {
	out := jsonRoute{
		Version:      jsonFloat(r.Version),
		MapName:      r.MapName,
		ClassAbbr:    r.ClassAbbr,
		PlayerName:   r.PlayerName,
		Description:  r.Description,
		TeamNum:      r.TeamNum,
		ClassID:      r.ClassID,
		ClassHealth:  r.ClassHealth,
		FlagGrabTime: jsonFloat(r.FlagGrabTime),
		RouteLength:  r.RouteLength,
		Positions:    make([]jsonPosition, len(r.Positions)),
	}
	for i, p := range r.Positions {
		out.Positions[i] = jsonPosition{
			Time:    jsonFloat(p.Time),
			Loc:     vecJSON(p.Loc),
			Vel:     vecJSON(p.Vel),
			Pitch:   p.Pitch,
			Yaw:     p.Yaw,
			Phys:    p.Phys,
			Skiing:  p.Skiing,
			Jetting: p.Jetting,
			Health:  p.Health,
			Energy:  jsonFloat(p.Energy),
			ETA:     p.ETA,
		}
	}
	return out
}
