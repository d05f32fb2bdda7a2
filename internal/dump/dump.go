// Package dump renders decoded routes for inspection.
package dump

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fxamacker/cbor/v2"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/tamods/routekit/internal/geo"
	"github.com/tamods/routekit/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format string

const (
	FormatText    Format = "text"
	FormatJSON    Format = "json"
	FormatYAML    Format = "yaml"
	FormatCBOR    Format = "cbor"
	FormatGeoJSON Format = "geojson"
)

// ErrUnknownFormat is returned by ParseFormat and Write.
var ErrUnknownFormat = errors.New("unknown dump format")

// Formats lists every supported format.
func Formats() []Format {
	return []Format{FormatText, FormatJSON, FormatYAML, FormatCBOR, FormatGeoJSON}
}

// ParseFormat maps a format name, in any case, to a Format. "yml" is
// accepted for YAML.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML, FormatCBOR, FormatGeoJSON:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Ext returns the file extension used for f.
func (f Format) Ext() string {
	switch f {
	case FormatText:
		return ".txt"
	case FormatGeoJSON:
		return ".geojson"
	}
	return "." + string(f)
}

// OutputName derives the dump file name for a route file, e.g.
// "a.route" -> "a_decoded.txt".
func OutputName(src string, f Format) string {
	stem := src
	if i := strings.LastIndexByte(src, '.'); i > 0 {
		stem = src[:i]
	}
	return stem + "_decoded" + f.Ext()
}

// Write renders route to w in format f.
func Write(w io.Writer, route core.RouteFile, f Format) error {
	switch f {
	case FormatText:
		return writeText(w, route)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(toJSON(route))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(route); err != nil {
			return err
		}
		return enc.Close()
	case FormatCBOR:
		return cbor.NewEncoder(w).Encode(route)
	case FormatGeoJSON:
		return writeGeoJSON(w, route)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

const separator = "--------------------------------------------------"

func writeText(w io.Writer, route core.RouteFile) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "version: %s\n", ftoa(route.Version))
	fmt.Fprintf(bw, "mapName: %s\n", route.MapName)
	fmt.Fprintf(bw, "classAbbr: %s\n", route.ClassAbbr)
	fmt.Fprintf(bw, "playerName: %s\n", route.PlayerName)
	fmt.Fprintf(bw, "description: %s\n", route.Description)
	fmt.Fprintf(bw, "teamNum: %d\n", route.TeamNum)
	fmt.Fprintf(bw, "classID: %d\n", route.ClassID)
	fmt.Fprintf(bw, "classHealth: %d\n", route.ClassHealth)
	fmt.Fprintf(bw, "flagGrabTime: %s\n", ftoa(route.FlagGrabTime))
	fmt.Fprintf(bw, "routeLength: %d\n", route.RouteLength)
	fmt.Fprintln(bw, separator)

	for _, p := range route.Positions {
		fmt.Fprintf(bw,
			"time=%s loc=%s vel=%s pitch=%d yaw=%d phys=%d skiing=%t jetting=%t health=%d energy=%s eta=%d\n",
			ftoa(p.Time), vec(p.Loc), vec(p.Vel), p.Pitch, p.Yaw, p.Phys,
			p.Skiing, p.Jetting, p.Health, ftoa(p.Energy), p.ETA)
	}

	return bw.Flush()
}

func ftoa(v float32) string {
	return strconv.FormatFloat(float64(v), 'g', -1, 32)
}

func vec(v core.Vec3) string {
	return "(" + ftoa(v.X) + "," + ftoa(v.Y) + "," + ftoa(v.Z) + ")"
}

type feature struct {
	Type       string          `json:"type"`
	Geometry   geom.LineString `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

// writeGeoJSON fails with geo.ErrNonFinite for a route GeoJSON cannot hold.
func writeGeoJSON(w io.Writer, route core.RouteFile) error {
	summary, err := geo.Summarize(route)
	if err != nil {
		return fmt.Errorf("geojson: %w", err)
	}
	track, err := geo.Track(route)
	if err != nil {
		return fmt.Errorf("geojson: %w", err)
	}
	f := feature{
		Type:     "Feature",
		Geometry: track,
		Properties: map[string]any{
			"version":      route.Version,
			"mapName":      route.MapName,
			"classAbbr":    route.ClassAbbr,
			"playerName":   route.PlayerName,
			"description":  route.Description,
			"teamNum":      route.TeamNum,
			"classId":      route.ClassID,
			"classHealth":  route.ClassHealth,
			"flagGrabTime": route.FlagGrabTime,
			"routeLength":  route.RouteLength,
			"points":       summary.Points,
			"duration":     summary.Duration,
			"length":       summary.Length,
		},
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(f)
}
