package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/pflag"
	"github.com/tamods/routekit/internal/batch"
	"github.com/tamods/routekit/internal/codec"
	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/dispatcher"
	"github.com/tamods/routekit/internal/dump"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/mirror"
	"github.com/tamods/routekit/internal/naming"
	"github.com/tamods/routekit/internal/storage"
	sqlitestorage "github.com/tamods/routekit/internal/storage/sqlite"
)

// indexQueueSize bounds the catalog.index job queue.
const indexQueueSize = 64

func (a *app) registerCommands(d *dispatcher.Dispatcher) {
	d.Register("list", a.cmdList, dispatcher.Logged())
	d.Register("decode", a.cmdDecode, dispatcher.Logged())
	d.Register("mirror", a.cmdMirror, dispatcher.Logged())
	d.Register("delete", a.cmdDelete, dispatcher.Logged())
	d.Register("catalog", a.cmdCatalog, dispatcher.Logged())
	d.Register("version", a.cmdVersion)

	d.Register("catalog.index", a.indexRoute, dispatcher.Buffered(indexQueueSize), dispatcher.Blocking())
}

func (a *app) newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

func addFilterFlags(fs *pflag.FlagSet) *library.Filter {
	f := &library.Filter{}
	fs.StringVar(&f.GameMode, "mode", "", "filter by game mode")
	fs.StringVar(&f.Map, "map", "", "filter by map")
	fs.StringVar(&f.Side, "side", "", "filter by side tag (DS or BE)")
	fs.StringVar(&f.Class, "class", "", "filter by class")
	fs.StringVar(&f.Username, "user", "", "filter by player name")
	fs.StringVar(&f.RouteName, "route", "", "filter by route name")
	fs.StringVar(&f.Time, "time", "", "filter by recording time")
	return f
}

// resolve maps a command argument to a library and file name. Plain names
// refer to the routes directory; anything with a directory part is read
// from where it points.
func (a *app) resolve(arg string) (*library.Library, string) {
	dir, name := filepath.Split(arg)
	if dir == "" {
		return a.lib, name
	}
	return library.New(a.fs, filepath.Clean(dir)), name
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *app) cmdVersion(_ context.Context, _ dispatcher.Event) (any, error) {
	fmt.Fprintf(a.stdout, "%s %s (built %s)\n", AppName, CurrentVersion, BuildDate)
	return CurrentVersion, nil
}

func (a *app) cmdList(_ context.Context, e dispatcher.Event) (any, error) {
	fs := a.newFlagSet("list")
	filter := addFilterFlags(fs)
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(e.Args); err != nil {
		return nil, err
	}

	entries, err := a.lib.List()
	if err != nil {
		return nil, err
	}
	entries = filter.Apply(entries)

	if *asJSON {
		return entries, a.printJSON(entries)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMAP\tSIDE\tCLASS\tPLAYER\tSIZE\tMODIFIED")
	for _, entry := range entries {
		r := entry.Route
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			entry.Name, dash(r.Map), dash(r.Side), dash(r.Class), dash(r.Username),
			humanize.Bytes(uint64(entry.Size)), humanize.Time(entry.ModTime))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	fmt.Fprintf(a.stdout, "%d routes in %s\n", len(entries), a.lib.Dir())
	return entries, nil
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *app) cmdDecode(_ context.Context, e dispatcher.Event) (any, error) {
	fs := a.newFlagSet("decode")
	formatName := fs.StringP("format", "f", "text", "output format: text, json, yaml, cbor or geojson")
	out := fs.StringP("out", "o", "", "write to this file instead of stdout")
	save := fs.Bool("save", false, "write <name>_decoded.<ext> next to each route")
	if err := fs.Parse(e.Args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, errors.New("no route files given")
	}
	if *out != "" && fs.NArg() > 1 {
		return nil, errors.New("--out takes a single route file")
	}
	format, err := dump.ParseFormat(*formatName)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, arg := range fs.Args() {
		lib, name := a.resolve(arg)
		route, err := lib.Load(name)
		if err != nil {
			return written, err
		}

		var buf bytes.Buffer
		if err := dump.Write(&buf, route, format); err != nil {
			return written, fmt.Errorf("%s: %w", name, err)
		}

		switch {
		case *out != "":
			if err := os.WriteFile(*out, buf.Bytes(), 0o644); err != nil {
				return written, err
			}
			written = append(written, *out)
		case *save:
			dest := dump.OutputName(name, format)
			if err := lib.Write(dest, buf.Bytes(), true); err != nil {
				return written, err
			}
			written = append(written, dest)
			fmt.Fprintf(a.stdout, "%s -> %s\n", name, dest)
		default:
			if _, err := a.stdout.Write(buf.Bytes()); err != nil {
				return written, err
			}
		}
	}
	return written, nil
}

func (a *app) cmdMirror(ctx context.Context, e dispatcher.Event) (any, error) {
	defaults := config.GetMirrorConfig()

	fs := a.newFlagSet("mirror")
	axisName := fs.String("axis", defaults.Axis, "axis to mirror: xy, x or y")
	strategy := fs.String("naming", defaults.Naming, "output naming: prefix or teamtag")
	prefix := fs.String("prefix", defaults.Prefix, "prefix for mirrored file names")
	overwrite := fs.Bool("overwrite", defaults.Overwrite, "replace existing output files")
	workers := fs.Int("workers", defaults.Workers, "files to process in parallel")
	all := fs.Bool("all", false, "mirror every route in the routes directory that matches the filters")
	filter := addFilterFlags(fs)
	if err := fs.Parse(e.Args); err != nil {
		return nil, err
	}

	axis, err := mirror.ParseAxis(*axisName)
	if err != nil {
		return nil, err
	}
	namer, err := naming.ForStrategy(*strategy, *prefix)
	if err != nil {
		return nil, err
	}

	groups, order, err := a.mirrorTargets(fs.Args(), *all, *filter)
	if err != nil {
		return nil, err
	}

	catalog, err := a.persistentCatalog(ctx)
	if err != nil {
		a.logger.Warn("Catalog unavailable, mirrored routes will not be indexed", "error", err)
	}

	files := 0
	for _, g := range groups {
		files += len(g.names)
	}
	a.logger.Info("Mirroring routes", "axis", axis.String(), "naming", *strategy, "files", files)

	var results []batch.Result
	for _, dir := range order {
		p := batch.New(batch.Dependencies{
			Library: groups[dir].lib,
			Catalog: catalog,
			Sink:    a.sink,
			Logger:  a.logger,
		}, batch.Options{
			Axis:      axis,
			Namer:     namer,
			Overwrite: *overwrite,
			Workers:   *workers,
		})
		res, err := p.Run(ctx, groups[dir].names)
		results = append(results, res...)
		if err != nil {
			return results, err
		}
	}

	for _, r := range results {
		if r.OK() {
			fmt.Fprintf(a.stdout, "%s -> %s (%d positions, %s)\n",
				r.Source, r.Destination, r.Positions, humanize.Bytes(uint64(r.Bytes)))
		} else {
			fmt.Fprintf(a.stdout, "%s: %v\n", r.Source, r.Err)
		}
	}

	ok, failed := batch.Summary(results)
	a.logger.Info("Mirror complete", "ok", ok, "failed", failed)
	if failed > 0 {
		return results, fmt.Errorf("%d of %d routes failed", failed, len(results))
	}
	return results, nil
}

type mirrorGroup struct {
	lib   *library.Library
	names []string
}

// mirrorTargets groups the files to mirror by directory, keeping the
// order directories were first named in.
func (a *app) mirrorTargets(args []string, all bool, filter library.Filter) (map[string]*mirrorGroup, []string, error) {
	groups := map[string]*mirrorGroup{}
	var order []string

	add := func(lib *library.Library, name string) {
		g, ok := groups[lib.Dir()]
		if !ok {
			g = &mirrorGroup{lib: lib}
			groups[lib.Dir()] = g
			order = append(order, lib.Dir())
		}
		g.names = append(g.names, name)
	}

	if all {
		entries, err := a.lib.List()
		if err != nil {
			return nil, nil, err
		}
		for _, entry := range filter.Apply(entries) {
			add(a.lib, entry.Name)
		}
	}
	for _, arg := range args {
		lib, name := a.resolve(arg)
		add(lib, name)
	}

	if len(order) == 0 {
		return nil, nil, errors.New("no route files given")
	}
	return groups, order, nil
}

func (a *app) cmdDelete(ctx context.Context, e dispatcher.Event) (any, error) {
	fs := a.newFlagSet("delete")
	if err := fs.Parse(e.Args); err != nil {
		return nil, err
	}
	if fs.NArg() == 0 {
		return nil, errors.New("no route files given")
	}

	catalog, err := a.persistentCatalog(ctx)
	if err != nil {
		a.logger.Warn("Catalog unavailable, records will not be removed", "error", err)
	}

	var deleted []string
	var errs []error
	for _, arg := range fs.Args() {
		lib, name := a.resolve(arg)
		if err := lib.Delete(name); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted = append(deleted, name)
		fmt.Fprintf(a.stdout, "deleted %s\n", name)

		if catalog != nil && lib == a.lib {
			if err := catalog.Delete(ctx, name); err != nil && !errors.Is(err, storage.ErrNotFound) {
				a.logger.Warn("Failed to remove catalog record", "route", name, "error", err)
			}
		}
	}
	return deleted, errors.Join(errs...)
}

func (a *app) cmdCatalog(ctx context.Context, e dispatcher.Event) (any, error) {
	sub := "list"
	args := e.Args
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = strings.ToLower(args[0]), args[1:]
	}

	switch sub {
	case "sync":
		return a.catalogSync(ctx)
	case "list":
		return a.catalogList(ctx, args)
	case "backup":
		return a.catalogBackup(ctx, args)
	}
	return nil, fmt.Errorf("unknown catalog command %q (want sync, list or backup)", sub)
}

func (a *app) catalogSync(ctx context.Context) (any, error) {
	// A new memory catalog is filled as it is opened.
	fresh := a.storageBackend == nil && isMemoryCatalog()
	if _, err := a.openCatalog(ctx); err != nil {
		return nil, err
	}

	indexed, removed := a.lastSync.indexed, a.lastSync.removed
	if !fresh {
		var err error
		if indexed, removed, err = a.syncCatalog(ctx); err != nil {
			return nil, err
		}
	}

	fmt.Fprintf(a.stdout, "indexed %d routes, removed %d stale records\n", indexed, removed)
	return indexed, nil
}

func isMemoryCatalog() bool {
	t := config.GetStorageConfig().Type
	return t == "memory" || t == ""
}

// syncCatalog queues every route in the library for indexing, waits for
// the queue to drain and removes records whose file is gone.
func (a *app) syncCatalog(ctx context.Context) (indexed, removed int, err error) {
	started := time.Now().UTC().Truncate(time.Millisecond)
	entries, err := a.lib.List()
	if err != nil {
		return 0, 0, err
	}

	present := make(map[string]bool, len(entries))
	for _, entry := range entries {
		present[entry.Name] = true

		a.indexWG.Add(1)
		_, err := a.eventDispatcher.Dispatch(ctx, dispatcher.Event{
			Command: "catalog.index",
			Args:    []string{entry.Name},
		})
		if err != nil {
			a.indexWG.Done()
			a.indexWG.Wait()
			return 0, 0, err
		}
	}
	a.indexWG.Wait()

	records, err := a.storageBackend.List(ctx, storage.Query{})
	if err != nil {
		return 0, 0, err
	}
	for _, rec := range records {
		if present[rec.FileName] {
			if !rec.IndexedAt.Before(started) {
				indexed++
			}
			continue
		}
		if err := a.storageBackend.Delete(ctx, rec.FileName); err != nil {
			return indexed, removed, err
		}
		removed++
	}

	a.lastSync.indexed, a.lastSync.removed = indexed, removed
	a.logger.Info("Catalog synced", "indexed", indexed, "failed", len(entries)-indexed, "removed", removed)
	return indexed, removed, nil
}

// indexRoute is the catalog.index job: it reads one route from the
// library and upserts its record.
func (a *app) indexRoute(ctx context.Context, e dispatcher.Event) (any, error) {
	defer a.indexWG.Done()

	if len(e.Args) != 1 {
		return nil, fmt.Errorf("catalog.index wants one route name, got %d", len(e.Args))
	}
	name := e.Args[0]

	entry, err := a.lib.Stat(name)
	if err != nil {
		return nil, err
	}
	data, err := a.lib.Read(name)
	if err != nil {
		return nil, err
	}
	route, err := codec.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	rec, err := storage.RecordFrom(entry, route, data)
	if err != nil {
		return nil, err
	}
	if err := a.storageBackend.Upsert(ctx, rec); err != nil {
		return nil, err
	}
	return rec.FileName, nil
}

func (a *app) catalogList(ctx context.Context, args []string) (any, error) {
	fs := a.newFlagSet("catalog list")
	filter := addFilterFlags(fs)
	team := fs.Int("team", -1, "filter by team number (0 Diamond Sword, 1 Blood Eagle)")
	limit := fs.Int("limit", 0, "maximum records to show")
	asJSON := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return nil, err
	}

	q := storage.Query{Filter: *filter, Limit: *limit}
	if *team >= 0 {
		t := uint8(*team)
		q.Team = &t
	}
	records, err := catalog.List(ctx, q)
	if err != nil {
		return nil, err
	}

	if *asJSON {
		return records, a.printJSON(records)
	}

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tMAP\tCLASS\tTEAM\tPOSITIONS\tDURATION\tLENGTH\tSIZE")
	for _, r := range records {
		teamName, ok := naming.TeamTagFor(r.TeamNum)
		if !ok {
			teamName = fmt.Sprint(r.TeamNum)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.1fs\t%s\t%s\n",
			r.FileName, dash(r.MapName), dash(r.ClassAbbr), teamName, r.Positions,
			r.Duration, humanize.FormatFloat("#,###.", r.PathLength), humanize.Bytes(uint64(r.Size)))
	}
	if err := tw.Flush(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *app) catalogBackup(ctx context.Context, args []string) (any, error) {
	if len(args) != 1 {
		return nil, errors.New("catalog backup wants one destination path")
	}
	catalog, err := a.openCatalog(ctx)
	if err != nil {
		return nil, err
	}
	sqlite, ok := catalog.(*sqlitestorage.Backend)
	if !ok {
		return nil, fmt.Errorf("backup needs the sqlite catalog, storage.type is %q", config.GetStorageConfig().Type)
	}
	if err := sqlite.Backup(args[0]); err != nil {
		return nil, err
	}
	fmt.Fprintf(a.stdout, "catalog written to %s\n", args[0])
	return args[0], nil
}
