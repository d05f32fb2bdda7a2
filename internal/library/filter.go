package library

import (
	"strings"

	"github.com/tamods/routekit/internal/naming"
)

// Filter narrows a listing. Every non-empty field must be a
// case-insensitive substring of the matching part of the file name.
type Filter struct {
	GameMode  string
	Map       string
	Side      string
	Class     string
	Username  string
	RouteName string
	Time      string
}

// IsZero reports whether f matches everything.
func (f Filter) IsZero() bool {
	return f == Filter{}
}

// Match reports whether e passes f. Unparsed entries only match an
// empty filter.
func (f Filter) Match(e Entry) bool {
	return f.MatchName(e.Route, e.Parsed)
}

// MatchName is Match for a bare parsed name.
func (f Filter) MatchName(r naming.RouteName, parsed bool) bool {
	if f.IsZero() {
		return true
	}
	if !parsed {
		return false
	}
	return contains(r.GameMode, f.GameMode) &&
		contains(r.Map, f.Map) &&
		contains(r.Side, f.Side) &&
		contains(r.Class, f.Class) &&
		contains(r.Username, f.Username) &&
		contains(r.RouteName, f.RouteName) &&
		contains(r.Time, f.Time)
}

// Apply returns the entries that pass f.
func (f Filter) Apply(entries []Entry) []Entry {
	var out []Entry
	for _, e := range entries {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

func contains(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
