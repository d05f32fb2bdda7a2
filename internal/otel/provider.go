// Package otel wires the OpenTelemetry log pipeline used by routekit runs.
package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tamods/routekit/internal/config"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ErrNoExporter is returned when the pipeline is enabled with nowhere to send records.
var ErrNoExporter = errors.New("otel: enabled but no log writer or endpoint configured")

// Config selects the exporters of a Provider.
type Config struct {
	Enabled      bool
	ServiceName  string
	Version      string
	BatchTimeout time.Duration
	LogWriter    io.Writer // JSON records, usually the run's log file
	Endpoint     string    // OTLP/HTTP collector
	Insecure     bool
}

// ConfigFrom builds a Config from the loaded settings. Records are mirrored
// into w when it is non-nil.
func ConfigFrom(cfg config.OTelConfig, version string, w io.Writer) Config {
	return Config{
		Enabled:      cfg.Enabled,
		ServiceName:  cfg.ServiceName,
		Version:      version,
		BatchTimeout: cfg.BatchTimeout,
		LogWriter:    w,
		Endpoint:     cfg.Endpoint,
		Insecure:     cfg.Insecure,
	}
}

// Provider owns the log pipeline for one run. The zero pipeline of a
// disabled Provider makes every method a no-op.
type Provider struct {
	enabled bool
	logs    *sdklog.LoggerProvider
}

// New builds the pipeline described by cfg.
func New(ctx context.Context, cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{}, nil
	}

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	exporters, err := logExporters(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if len(exporters) == 0 {
		return nil, ErrNoExporter
	}

	opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
	for _, exp := range exporters {
		opts = append(opts, sdklog.WithProcessor(
			sdklog.NewBatchProcessor(exp, sdklog.WithExportTimeout(cfg.BatchTimeout)),
		))
	}

	return &Provider{enabled: true, logs: sdklog.NewLoggerProvider(opts...)}, nil
}

func newResource(ctx context.Context, cfg Config) (*resource.Resource, error) {
	attrs := []resource.Option{resource.WithAttributes(semconv.ServiceName(cfg.ServiceName))}
	if cfg.Version != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(cfg.Version)))
	}
	res, err := resource.New(ctx, attrs...)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}
	return res, nil
}

func logExporters(ctx context.Context, cfg Config) ([]sdklog.Exporter, error) {
	var out []sdklog.Exporter

	if cfg.LogWriter != nil {
		exp, err := stdoutlog.New(stdoutlog.WithWriter(cfg.LogWriter), stdoutlog.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("otel writer exporter: %w", err)
		}
		out = append(out, exp)
	}

	if cfg.Endpoint != "" {
		opts := []otlploghttp.Option{otlploghttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlploghttp.WithInsecure())
		}
		exp, err := otlploghttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel OTLP exporter: %w", err)
		}
		out = append(out, exp)
	}

	return out, nil
}

// LoggerProvider is nil when the pipeline is disabled.
func (p *Provider) LoggerProvider() *sdklog.LoggerProvider {
	return p.logs
}

// Enabled reports whether records are exported.
func (p *Provider) Enabled() bool {
	return p.enabled
}

// Flush exports every pending record.
func (p *Provider) Flush(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.ForceFlush(ctx); err != nil {
		return fmt.Errorf("otel flush: %w", err)
	}
	return nil
}

// Shutdown flushes and stops the pipeline. Later records are discarded.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.logs == nil {
		return nil
	}
	if err := p.logs.Shutdown(ctx); err != nil {
		return fmt.Errorf("otel shutdown: %w", err)
	}
	return nil
}
