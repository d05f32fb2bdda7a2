// Package batch mirrors many route files from a library concurrently.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tamods/routekit/internal/codec"
	"github.com/tamods/routekit/internal/influx"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/mirror"
	"github.com/tamods/routekit/internal/naming"
	"github.com/tamods/routekit/internal/storage"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is used when Options.Workers is not positive.
const DefaultWorkers = 4

// ErrSkipped marks files not attempted because the run was cancelled.
var ErrSkipped = errors.New("skipped")

// Options controls a mirror run.
type Options struct {
	Axis      mirror.Axis
	Namer     naming.Namer
	Overwrite bool
	Workers   int
}

// Dependencies holds what a Processor reads from and reports to. Catalog
// and Sink are optional.
type Dependencies struct {
	Library *library.Library
	Catalog storage.Backend
	Sink    influx.Sink
	Logger  *slog.Logger
}

// Result is the outcome for one source file.
type Result struct {
	Source      string        `json:"source"`
	Destination string        `json:"destination,omitempty"`
	Positions   int           `json:"positions"`
	Bytes       int           `json:"bytes"`
	Duration    time.Duration `json:"duration"`
	Err         error         `json:"-"`
}

// OK reports whether the mirrored file was written.
func (r Result) OK() bool {
	return r.Err == nil
}

// Processor runs the load, mirror, encode, name and write pipeline.
type Processor struct {
	deps Dependencies
	opts Options
}

// New creates a Processor. A nil Namer uses the default prefix.
func New(deps Dependencies, opts Options) *Processor {
	if opts.Namer == nil {
		opts.Namer = naming.Prefix{Prefix: naming.DefaultPrefix}
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if deps.Sink == nil {
		deps.Sink = influx.NopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Processor{deps: deps, opts: opts}
}

// Run mirrors every file in names. Results come back in the order of
// names; a failure on one file does not stop the others. The returned
// error is non-nil only when ctx ends before every file was handled.
func (p *Processor) Run(ctx context.Context, names []string) ([]Result, error) {
	results := make([]Result, len(names))
	for i, name := range names {
		results[i] = Result{Source: name, Err: ErrSkipped}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Workers)

	for i, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			results[i] = p.One(gctx, name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// One mirrors a single file.
func (p *Processor) One(ctx context.Context, name string) Result {
	start := time.Now()
	res := Result{Source: name}

	route, err := p.deps.Library.Load(name)
	if err != nil {
		res.Err = err
		return p.finish(ctx, res, "", "", start)
	}

	mirrored := mirror.Mirror(route, p.opts.Axis)
	data := codec.Encode(mirrored)
	dest := p.opts.Namer.Name(name, mirrored)

	res.Positions = len(mirrored.Positions)
	res.Bytes = len(data)

	switch {
	case dest == name:
		res.Err = fmt.Errorf("%s: output name equals source", name)
	default:
		res.Destination = dest
		res.Err = p.deps.Library.Write(dest, data, p.opts.Overwrite)
	}

	if res.Err == nil && p.deps.Catalog != nil {
		if err := p.index(ctx, dest, data); err != nil {
			p.deps.Logger.Warn("Failed to catalog mirrored route", "route", dest, "error", err)
		}
	}

	return p.finish(ctx, res, route.MapName, route.ClassAbbr, start)
}

func (p *Processor) index(ctx context.Context, name string, data []byte) error {
	entry, err := p.deps.Library.Stat(name)
	if err != nil {
		return err
	}
	route, err := codec.Decode(data)
	if err != nil {
		return err
	}
	rec, err := storage.RecordFrom(entry, route, data)
	if err != nil {
		return err
	}
	return p.deps.Catalog.Upsert(ctx, rec)
}

func (p *Processor) finish(ctx context.Context, res Result, mapName, class string, start time.Time) Result {
	res.Duration = time.Since(start)

	if res.Err != nil {
		level := slog.LevelError
		if errors.Is(res.Err, library.ErrExists) {
			level = slog.LevelWarn
		}
		p.deps.Logger.Log(ctx, level, "Mirror failed", "route", res.Source, "error", res.Err)
	} else {
		p.deps.Logger.Debug("Mirrored route",
			"route", res.Source,
			"output", res.Destination,
			"positions", res.Positions,
			"duration", res.Duration)
	}

	err := p.deps.Sink.Record(ctx, influx.Point{
		Map:       mapName,
		Class:     class,
		Axis:      p.opts.Axis.String(),
		Positions: res.Positions,
		Bytes:     res.Bytes,
		Duration:  res.Duration,
		OK:        res.OK(),
	})
	if err != nil {
		p.deps.Logger.Warn("Failed to record metrics", "route", res.Source, "error", err)
	}

	return res
}

// Summary counts the outcomes in results.
func Summary(results []Result) (ok, failed int) {
	for _, r := range results {
		if r.OK() {
			ok++
		} else {
			failed++
		}
	}
	return ok, failed
}
