// Package naming parses route file names and decides where mirrored
// routes are written.
package naming

import (
	"fmt"
	"strings"
)

// Ext is the file extension of route recordings.
const Ext = ".route"

// RouteName holds the parts encoded in a route file name, e.g.
// "CTF-ArxNovena_DS_PTH_player_(cap route)_52.37.route".
type RouteName struct {
	GameMode  string `json:"gameMode"`
	Map       string `json:"map"`
	Side      string `json:"side"`
	Class     string `json:"class"`
	Username  string `json:"username"`
	RouteName string `json:"routeName"`
	Time      string `json:"time"`
	FileName  string `json:"fileName"`
}

// Parse splits fileName into its parts. Two layouts exist for the tail:
// "user_route name_time.route" and "user_(route name)_time.route".
// It reports false when the leading mode-map_side_class_ part is missing.
func Parse(fileName string) (RouteName, bool) {
	if !HasExt(fileName) {
		return RouteName{}, false
	}
	stem := fileName[:len(fileName)-len(Ext)]

	mode, rest, ok := strings.Cut(stem, "-")
	if !ok {
		return RouteName{}, false
	}
	parts := strings.SplitN(rest, "_", 4)
	if len(parts) < 4 {
		return RouteName{}, false
	}

	n := RouteName{
		GameMode: mode,
		Map:      parts[0],
		Side:     parts[1],
		Class:    parts[2],
		Username: parts[3],
		FileName: fileName,
	}

	tail := parts[3]
	// user_(route name)_time: RouteName is stored without the brackets.
	if user, bracketed, ok := strings.Cut(tail, "_("); ok {
		n.Username = user
		if route, time, ok := cutLast(bracketed, ")_"); ok {
			n.RouteName, n.Time = route, time
		} else {
			n.RouteName = strings.TrimSuffix(bracketed, ")")
		}
		return n, true
	}

	if user, remaining, ok := strings.Cut(tail, "_"); ok {
		n.Username = user
		if route, time, ok := cutLast(remaining, "_"); ok {
			n.RouteName, n.Time = route, time
		} else {
			n.RouteName = remaining
		}
	}
	return n, true
}

// String formats n using the bracketed layout.
func (n RouteName) String() string {
	return fmt.Sprintf("%s-%s_%s_%s_%s_(%s)_%s%s",
		n.GameMode, n.Map, n.Side, n.Class, n.Username, n.RouteName, n.Time, Ext)
}

// HasExt reports whether name ends in .route, ignoring case.
func HasExt(name string) bool {
	return len(name) > len(Ext) && strings.EqualFold(name[len(name)-len(Ext):], Ext)
}

func cutLast(s, sep string) (before, after string, found bool) {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[:i], s[i+len(sep):], true
	}
	return s, "", false
}
