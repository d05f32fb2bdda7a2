package geo

import (
	"errors"
	"fmt"
	"math"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tamods/routekit/pkg/core"
)

// ROUTE GEOMETRY
// Route locations are Unreal world units with Z up. They are kept as-is in
// an XYZ geometry; there is no projection to apply.

// ErrNonFinite is returned for a location with a NaN or infinite component.
// The codec accepts such samples but they have no geometry.
var ErrNonFinite = errors.New("non-finite location")

func finite(v core.Vec3) bool {
	for _, c := range [...]float32{v.X, v.Y, v.Z} {
		f := float64(c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Point converts a location into an XYZ point.
func Point(v core.Vec3) (geom.Point, error) {
	if !finite(v) {
		return geom.Point{}, fmt.Errorf("%w: %v", ErrNonFinite, v)
	}
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: float64(v.X), Y: float64(v.Y)},
		Z:    float64(v.Z),
		Type: geom.DimXYZ,
	})
}

// Track builds the XYZ line string through every sampled location. Routes
// with fewer than two samples, or that never move horizontally, give an
// empty line string.
func Track(route core.RouteFile) (geom.LineString, error) {
	empty := geom.LineString{}.ForceCoordinatesType(geom.DimXYZ)

	moved := false
	flatCoords := make([]float64, 0, len(route.Positions)*3)
	for i, p := range route.Positions {
		if !finite(p.Loc) {
			return empty, fmt.Errorf("%w: sample %d %v", ErrNonFinite, i, p.Loc)
		}
		if i > 0 && (p.Loc.X != route.Positions[0].Loc.X || p.Loc.Y != route.Positions[0].Loc.Y) {
			moved = true
		}
		flatCoords = append(flatCoords, float64(p.Loc.X), float64(p.Loc.Y), float64(p.Loc.Z))
	}
	if !moved {
		return empty, nil
	}

	ls, err := geom.NewLineString(geom.NewSequence(flatCoords, geom.DimXYZ))
	if err != nil {
		return empty, fmt.Errorf("route track: %w", err)
	}
	return ls, nil
}
