// Package mirror reflects a recorded route so it can be run from the
// opposing team's base.
package mirror

import "github.com/tamods/routekit/pkg/core"

// Mirror returns a copy of route with every location reflected across
// axis and the team flipped. Z and velocity are left as recorded.
// route is not modified.
func Mirror(route core.RouteFile, axis Axis) core.RouteFile {
	out := route.Clone()
	out.TeamNum = FlipTeam(route.TeamNum)

	for i := range out.Positions {
		loc := &out.Positions[i].Loc
		if axis.Has(AxisX) {
			loc.X = -loc.X
		}
		if axis.Has(AxisY) {
			loc.Y = -loc.Y
		}
	}

	return out
}

// FlipTeam swaps Diamond Sword and Blood Eagle. Any other value is
// returned unchanged.
func FlipTeam(team uint8) uint8 {
	switch team {
	case core.TeamDiamondSword:
		return core.TeamBloodEagle
	case core.TeamBloodEagle:
		return core.TeamDiamondSword
	}
	return team
}
