package geo

import (
	"math"

	"github.com/tamods/routekit/pkg/core"
)

// Box is an axis-aligned bounding box in world units.
type Box struct {
	Min core.Vec3 `json:"min"`
	Max core.Vec3 `json:"max"`
}

// Bounds returns the box enclosing every sampled location. ok is false for
// a route without positions.
func Bounds(route core.RouteFile) (box Box, ok bool) {
	if len(route.Positions) == 0 {
		return Box{}, false
	}

	box.Min = route.Positions[0].Loc
	box.Max = route.Positions[0].Loc
	for _, p := range route.Positions[1:] {
		box.Min.X = min(box.Min.X, p.Loc.X)
		box.Min.Y = min(box.Min.Y, p.Loc.Y)
		box.Min.Z = min(box.Min.Z, p.Loc.Z)
		box.Max.X = max(box.Max.X, p.Loc.X)
		box.Max.Y = max(box.Max.Y, p.Loc.Y)
		box.Max.Z = max(box.Max.Z, p.Loc.Z)
	}
	return box, true
}

// PathLength is the horizontal distance travelled along the track.
func PathLength(route core.RouteFile) (float64, error) {
	ls, err := Track(route)
	if err != nil {
		return 0, err
	}
	return ls.Length(), nil
}

// Summary condenses a route into the figures shown in listings and stored
// in the catalog.
type Summary struct {
	Points   int     `json:"points"`
	Duration float64 `json:"duration"`
	Length   float64 `json:"length"`
	MaxSpeed float64 `json:"maxSpeed"`
	Bounds   Box     `json:"bounds"`
}

// Summarize computes the Summary of route. MaxSpeed is the largest
// recorded velocity magnitude. A non-finite location fails with
// ErrNonFinite.
func Summarize(route core.RouteFile) (Summary, error) {
	length, err := PathLength(route)
	if err != nil {
		return Summary{}, err
	}
	s := Summary{
		Points:   len(route.Positions),
		Duration: float64(route.Duration()),
		Length:   length,
	}
	s.Bounds, _ = Bounds(route)

	for _, p := range route.Positions {
		v := p.Vel
		speed := math.Sqrt(float64(v.X)*float64(v.X) + float64(v.Y)*float64(v.Y) + float64(v.Z)*float64(v.Z))
		s.MaxSpeed = math.Max(s.MaxSpeed, speed)
	}
	return s, nil
}
