// internal/storage/storage.go
package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tamods/routekit/internal/geo"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/naming"
	"github.com/tamods/routekit/pkg/core"
	"github.com/zeebo/blake3"
	"gorm.io/datatypes"
)

// ErrNotFound is returned when no record exists for a file name.
var ErrNotFound = errors.New("catalog record not found")

// Backend is the interface all catalog implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, fileName string) (Record, error)
	List(ctx context.Context, q Query) ([]Record, error)
	Delete(ctx context.Context, fileName string) error
}

// Record is the catalog entry for one route file.
type Record struct {
	FileName string `json:"fileName" gorm:"primaryKey"`

	// Parts of the file name
	Parsed       bool   `json:"parsed"`
	GameMode     string `json:"gameMode"`
	Map          string `json:"map" gorm:"index"`
	Side         string `json:"side"`
	Class        string `json:"class"`
	Username     string `json:"username"`
	RouteName    string `json:"routeName"`
	RecordedTime string `json:"recordedTime"`

	// Header
	Version      float32 `json:"version"`
	MapName      string  `json:"mapName"`
	ClassAbbr    string  `json:"classAbbr"`
	PlayerName   string  `json:"playerName"`
	Description  string  `json:"description"`
	TeamNum      uint8   `json:"teamNum"`
	ClassID      int32   `json:"classId"`
	ClassHealth  uint32  `json:"classHealth"`
	FlagGrabTime float32 `json:"flagGrabTime"`
	RouteLength  uint32  `json:"routeLength"`

	// Derived
	Positions  int            `json:"positions"`
	Duration   float64        `json:"duration"`
	PathLength float64        `json:"pathLength"`
	MaxSpeed   float64        `json:"maxSpeed"`
	Bounds     datatypes.JSON `json:"bounds"`
	Size       int64          `json:"size"`
	Hash       string         `json:"hash" gorm:"index"`
	ModTime    time.Time      `json:"modTime"`
	IndexedAt  time.Time      `json:"indexedAt"`
}

// TableName keeps the table name stable across gorm naming strategies.
func (Record) TableName() string {
	return "routes"
}

// Name returns the parsed file name parts held by r.
func (r Record) Name() naming.RouteName {
	return naming.RouteName{
		GameMode:  r.GameMode,
		Map:       r.Map,
		Side:      r.Side,
		Class:     r.Class,
		Username:  r.Username,
		RouteName: r.RouteName,
		Time:      r.RecordedTime,
		FileName:  r.FileName,
	}
}

// Query narrows List. Zero fields match everything.
type Query struct {
	Filter library.Filter
	Team   *uint8
	Limit  int
}

// Match reports whether r passes q, ignoring Limit.
func (q Query) Match(r Record) bool {
	if q.Team != nil && r.TeamNum != *q.Team {
		return false
	}
	return q.Filter.MatchName(r.Name(), r.Parsed)
}

// Hash returns the hex BLAKE3 digest of a route file's bytes.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// RecordFrom builds the catalog record for a library entry, its decoded
// route and the raw bytes it was decoded from. Routes with a non-finite
// location have no geometry and are refused with geo.ErrNonFinite.
func RecordFrom(e library.Entry, route core.RouteFile, data []byte) (Record, error) {
	summary, err := geo.Summarize(route)
	if err != nil {
		return Record{}, fmt.Errorf("%s: %w", e.Name, err)
	}
	bounds, err := json.Marshal(summary.Bounds)
	if err != nil {
		return Record{}, fmt.Errorf("%s: bounds: %w", e.Name, err)
	}

	return Record{
		FileName:     e.Name,
		Parsed:       e.Parsed,
		GameMode:     e.Route.GameMode,
		Map:          e.Route.Map,
		Side:         e.Route.Side,
		Class:        e.Route.Class,
		Username:     e.Route.Username,
		RouteName:    e.Route.RouteName,
		RecordedTime: e.Route.Time,

		Version:      route.Version,
		MapName:      route.MapName,
		ClassAbbr:    route.ClassAbbr,
		PlayerName:   route.PlayerName,
		Description:  route.Description,
		TeamNum:      route.TeamNum,
		ClassID:      route.ClassID,
		ClassHealth:  route.ClassHealth,
		FlagGrabTime: route.FlagGrabTime,
		RouteLength:  route.RouteLength,

		Positions:  summary.Points,
		Duration:   summary.Duration,
		PathLength: summary.Length,
		MaxSpeed:   summary.MaxSpeed,
		Bounds:     datatypes.JSON(bounds),
		Size:       int64(len(data)),
		Hash:       Hash(data),
		ModTime:    e.ModTime,
		IndexedAt:  time.Now().UTC(),
	}, nil
}
