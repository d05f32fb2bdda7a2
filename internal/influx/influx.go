// Package influx reports per-route processing metrics to InfluxDB.
package influx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/tamods/routekit/internal/config"
)

// Measurement is the InfluxDB measurement every point is written to.
const Measurement = "route_mirror"

// ErrUnavailable is returned when the server does not answer a ping.
var ErrUnavailable = errors.New("influxdb server unavailable")

// Point is the outcome of processing one route file.
type Point struct {
	Map       string
	Class     string
	Axis      string
	Positions int
	Bytes     int
	Duration  time.Duration
	OK        bool
	Time      time.Time
}

// Sink receives one point per processed route.
type Sink interface {
	Record(ctx context.Context, p Point) error
	Close()
}

// NopSink discards every point.
type NopSink struct{}

func (NopSink) Record(context.Context, Point) error { return nil }
func (NopSink) Close()                              {}

// Writer is a Sink backed by the blocking write API of influxdb-client-go.
type Writer struct {
	client influxdb2.Client
	api    influxdb2_api.WriteAPIBlocking
	logger *slog.Logger
}

// Connect builds a Writer for cfg and checks the server is reachable.
func Connect(ctx context.Context, cfg config.InfluxConfig, logger *slog.Logger) (*Writer, error) {
	client := influxdb2.NewClient(cfg.URL(), cfg.Token)

	running, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !running {
		client.Close()
		return nil, ErrUnavailable
	}

	logger.Debug("InfluxDB client initialized", "url", cfg.URL(), "bucket", cfg.Bucket)
	return &Writer{
		client: client,
		api:    client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger: logger,
	}, nil
}

// NewSink returns a Writer when cfg is enabled and the server answers,
// and a NopSink otherwise.
func NewSink(ctx context.Context, cfg config.InfluxConfig, logger *slog.Logger) Sink {
	if !cfg.Enabled {
		return NopSink{}
	}
	w, err := Connect(ctx, cfg, logger)
	if err != nil {
		logger.Warn("InfluxDB disabled", "error", err)
		return NopSink{}
	}
	return w
}

// Record writes p synchronously.
func (w *Writer) Record(ctx context.Context, p Point) error {
	if err := w.api.WritePoint(ctx, NewPoint(p)); err != nil {
		return fmt.Errorf("error sending data to InfluxDB: %w", err)
	}
	return nil
}

// Close releases the client.
func (w *Writer) Close() {
	w.client.Close()
}

// NewPoint converts p to an InfluxDB point. A zero Time means now.
func NewPoint(p Point) *influxdb2_write.Point {
	ts := p.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	tags := map[string]string{"axis": p.Axis}
	if p.Map != "" {
		tags["map"] = p.Map
	}
	if p.Class != "" {
		tags["class"] = p.Class
	}

	return influxdb2.NewPoint(Measurement, tags, map[string]any{
		"positions":   p.Positions,
		"bytes":       p.Bytes,
		"duration_ms": float64(p.Duration) / float64(time.Millisecond),
		"ok":          p.OK,
	}, ts)
}

// LineProtocol renders p the way it is sent on the wire, without the
// trailing newline.
func LineProtocol(p Point) string {
	return strings.TrimSuffix(influxdb2_write.PointToLineProtocol(NewPoint(p), time.Nanosecond), "\n")
}
