package naming

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tamods/routekit/pkg/core"
)

// DefaultPrefix is prepended to mirrored route names.
const DefaultPrefix = "m_"

// ErrUnknownStrategy is returned by ForStrategy.
var ErrUnknownStrategy = errors.New("unknown naming strategy")

// Namer picks the output file name for a mirrored route. src is the base
// name of the file the route was read from and route is the mirrored
// result.
type Namer interface {
	Name(src string, route core.RouteFile) string
}

// Prefix prepends a fixed string to the source name.
type Prefix struct {
	Prefix string
}

func (p Prefix) Name(src string, _ core.RouteFile) string {
	return p.Prefix + src
}

// TeamTag rewrites the side segment of a parsed name (DS or BE) to the
// team of the mirrored route. Names without a side tag, or whose tag would
// not change, fall back to Fallback.
type TeamTag struct {
	Fallback Prefix
}

func (t TeamTag) Name(src string, route core.RouteFile) string {
	fallback := t.Fallback
	if fallback.Prefix == "" {
		fallback.Prefix = DefaultPrefix
	}

	n, ok := Parse(src)
	if !ok {
		return fallback.Name(src, route)
	}

	want, ok := TeamTagFor(route.TeamNum)
	if !ok {
		want, ok = swapTag(n.Side)
	}
	if !ok || !isTeamTag(n.Side) || strings.EqualFold(want, n.Side) {
		return fallback.Name(src, route)
	}

	// Replace only the side segment so the rest of the name keeps its layout.
	start := len(n.GameMode) + 1 + len(n.Map) + 1
	return src[:start] + want + src[start+len(n.Side):]
}

// TeamTagFor returns the file name tag for a team number.
func TeamTagFor(team uint8) (string, bool) {
	switch team {
	case core.TeamDiamondSword:
		return "DS", true
	case core.TeamBloodEagle:
		return "BE", true
	}
	return "", false
}

func isTeamTag(s string) bool {
	return strings.EqualFold(s, "DS") || strings.EqualFold(s, "BE")
}

func swapTag(s string) (string, bool) {
	switch strings.ToUpper(s) {
	case "DS":
		return "BE", true
	case "BE":
		return "DS", true
	}
	return "", false
}

// ForStrategy returns the Namer configured by name ("prefix" or "teamtag").
func ForStrategy(name, prefix string) (Namer, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	switch strings.ToLower(name) {
	case "", "prefix":
		return Prefix{Prefix: prefix}, nil
	case "teamtag":
		return TeamTag{Fallback: Prefix{Prefix: prefix}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}
