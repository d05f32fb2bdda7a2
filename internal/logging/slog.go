package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// Replaced in tests.
var osStdout io.Writer = os.Stdout

// SlogManager owns the process logger: a text handler on the run's log
// file, the OTel bridge and any extra sinks such as Graylog.
type SlogManager struct {
	logger      *slog.Logger
	logProvider *sdklog.LoggerProvider
}

func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// parseLevel accepts the slog level names in any case. Anything else is info.
func parseLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// handlerOptions filters below level and writes timestamps in UTC.
func handlerOptions(level string) *slog.HandlerOptions {
	return &slog.HandlerOptions{Level: parseLevel(level), ReplaceAttr: utcTime}
}

func utcTime(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.TimeKey {
		return a
	}
	if t, ok := a.Value.Any().(time.Time); ok {
		a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
	}
	return a
}

// Setup replaces the logger. Text records go to w, or to stdout when w is
// nil. A non-nil provider adds the OTel bridge. Every extra handler
// receives each record as well.
func (m *SlogManager) Setup(w io.Writer, level string, provider *sdklog.LoggerProvider, extra ...slog.Handler) {
	if w == nil {
		w = osStdout
	}
	m.logProvider = provider

	handlers := []slog.Handler{
		slog.NewTextHandler(w, handlerOptions(level)),
	}
	if provider != nil {
		handlers = append(handlers, otelslog.NewHandler("routekit", otelslog.WithLoggerProvider(provider)))
	}
	handlers = append(handlers, extra...)

	m.logger = slog.New(NewMultiHandler(handlers...))
	m.logger.Debug("logger ready", "level", level, "sinks", len(handlers))
}

// SetContext stamps the attributes of provider on every later record.
// It has no effect before Setup.
func (m *SlogManager) SetContext(provider ContextProvider) {
	if m.logger == nil {
		return
	}
	m.logger = slog.New(NewContextHandler(m.logger.Handler(), provider))
}

// Logger falls back to slog.Default until Setup runs.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		return slog.Default()
	}
	return m.logger
}

// Flush pushes pending OTel records.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider == nil {
		return nil
	}
	return m.logProvider.ForceFlush(ctx)
}

// WriteLog logs data at the named level with the calling function as an
// attribute. It is dropped before Setup.
func (m *SlogManager) WriteLog(function, data, level string) {
	if m.logger == nil {
		return
	}
	m.logger.Log(context.Background(), parseLevel(level), data, "function", function)
}
