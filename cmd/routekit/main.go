package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/tamods/routekit/internal/config"
	"github.com/tamods/routekit/internal/dispatcher"
	"github.com/tamods/routekit/internal/influx"
	"github.com/tamods/routekit/internal/library"
	"github.com/tamods/routekit/internal/logging"
	intOtel "github.com/tamods/routekit/internal/otel"
	"github.com/tamods/routekit/internal/storage"

	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "routekit"
)

const usage = `Usage: routekit [global flags] <command> [args]

Commands:
  list              list routes in the routes directory
  decode <file>...  print a route in text, json, yaml, cbor or geojson
  mirror <file>...  write mirrored copies of routes
  delete <file>...  delete routes
  catalog <sub>     sync, list or backup the route catalog
  version           print the version

Global flags:
`

// app holds the services shared by every command of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	fs     afero.Fs

	sessionStart time.Time
	runID        string

	slogManager  *logging.SlogManager
	logger       *slog.Logger
	otelProvider *intOtel.Provider
	logFile      *os.File
	gelfCloser   io.Closer

	lib             *library.Library
	sink            influx.Sink
	eventDispatcher *dispatcher.Dispatcher

	// catalog is opened on first use
	storageBackend storage.Backend
	indexWG        sync.WaitGroup
	lastSync       struct{ indexed, removed int }
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command line and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet(AppName, pflag.ContinueOnError)
	flags.SetInterspersed(false)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "path to "+config.FileName+" (default: ./"+config.FileName+" if present)")
	flags.String("routes-dir", "", "routes directory (default: the game's routes folder)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Usage = func() {
		fmt.Fprint(stderr, usage)
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}
	rest := flags.Args()
	if len(rest) == 0 {
		flags.Usage()
		return 2
	}

	a := &app{
		stdout:       stdout,
		stderr:       stderr,
		fs:           afero.NewOsFs(),
		sessionStart: time.Now(),
	}
	if err := a.setup(ctx, flags, *configPath); err != nil {
		fmt.Fprintf(stderr, "%s: %v\n", AppName, err)
		a.shutdown()
		return 1
	}
	defer a.shutdown()

	command := strings.ToLower(rest[0])
	if !isUserCommand(command) || !a.eventDispatcher.HasHandler(command) {
		fmt.Fprintf(stderr, "%s: unknown command %q\n\n", AppName, rest[0])
		flags.Usage()
		return 2
	}

	_, err := a.eventDispatcher.Dispatch(ctx, dispatcher.Event{
		Command: command,
		Args:    rest[1:],
	})
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "%s %s: %v\n", AppName, command, err)
		return 1
	}
	return 0
}

// setup loads config and brings up logging, telemetry, metrics and the
// command dispatcher.
func (a *app) setup(ctx context.Context, flags *pflag.FlagSet, configPath string) error {
	// Startup messages go to stderr until the log file is open.
	a.slogManager = logging.NewSlogManager()
	a.slogManager.Setup(a.stderr, "warn", nil)
	a.logger = a.slogManager.Logger()

	var err error
	if configPath != "" {
		err = config.LoadFile(configPath)
	} else {
		err = config.Load(".")
	}
	if err != nil {
		return err
	}
	if err := config.BindFlags(flags); err != nil {
		return err
	}
	logLevel := config.GetString("logLevel")

	var logOut io.Writer = a.stderr
	if logsDir := config.GetString("logsDir"); logsDir != "" {
		if err := os.MkdirAll(logsDir, 0o755); err != nil {
			a.logger.Warn("Failed to create logs directory", "error", err, "path", logsDir)
		} else {
			logPath := logging.LogFilePath(logsDir, AppName, a.sessionStart)
			a.logFile, err = os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
			if err != nil {
				a.logger.Warn("Failed to create/open log file!", "error", err, "path", logPath)
			} else {
				logOut = a.logFile
			}
		}
	}

	a.otelProvider, err = intOtel.New(ctx, intOtel.ConfigFrom(config.GetOTelConfig(), CurrentVersion, logOut))
	if err != nil {
		a.logger.Error("Failed to initialize OTel provider", "error", err)
	}
	var otelLogProvider *sdklog.LoggerProvider
	if a.otelProvider != nil {
		otelLogProvider = a.otelProvider.LoggerProvider()
	}

	var extra []slog.Handler
	if graylog := config.GetGraylogConfig(); graylog.Enabled {
		h, closer, err := logging.NewGELFHandler(graylog.Address, logLevel)
		if err != nil {
			a.logger.Warn("Graylog disabled", "error", err)
		} else {
			extra = append(extra, h)
			a.gelfCloser = closer
		}
	}

	a.slogManager.Setup(logOut, logLevel, otelLogProvider, extra...)

	routesDir := config.GetString("routesDir")
	if routesDir == "" {
		routesDir = library.DefaultRoutesDir()
	}
	runID, runContext := logging.RunContext()
	a.runID = runID
	a.slogManager.SetContext(func() []slog.Attr {
		return append(runContext(), slog.String("routesDir", routesDir))
	})
	a.logger = a.slogManager.Logger()
	a.logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	a.lib = library.New(a.fs, routesDir)
	a.sink = influx.NewSink(ctx, config.GetInfluxConfig(), a.logger)

	a.eventDispatcher, err = dispatcher.New(a.logger.With("component", "dispatcher"))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	a.registerCommands(a.eventDispatcher)

	return nil
}

// shutdown waits for queued jobs and releases everything setup opened.
func (a *app) shutdown() {
	if a.eventDispatcher != nil {
		a.eventDispatcher.Close()
	}
	if a.storageBackend != nil {
		if err := a.storageBackend.Close(); err != nil {
			a.logger.Error("Failed to close catalog", "error", err)
		}
	}
	if a.sink != nil {
		a.sink.Close()
	}
	if a.otelProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelProvider.Shutdown(ctx); err != nil {
			a.logger.Error("Failed to shut down OTel provider", "error", err)
		}
		cancel()
	}
	if a.logger != nil {
		a.logger.Debug("Shut down", "duration", time.Since(a.sessionStart))
	}
	if a.gelfCloser != nil {
		a.gelfCloser.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
}

// isUserCommand excludes internal jobs such as catalog.index.
func isUserCommand(command string) bool {
	return command != "" && !strings.Contains(command, ".")
}
