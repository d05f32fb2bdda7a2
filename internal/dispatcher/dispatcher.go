// Package dispatcher routes routekit commands and background jobs to their
// handlers. Handlers may run inline or behind a bounded queue drained by a
// single worker.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/tamods/routekit/internal/dispatcher"

// Queued is the result of a buffered handler once its event is accepted.
const Queued = "queued"

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("queue full")
)

// Event is one command invocation: a CLI subcommand or an internal job
// such as cataloguing a freshly written route.
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
}

type HandlerFunc func(context.Context, Event) (any, error)

// Logger is satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a handler at registration.
type Option func(*options)

type options struct {
	queue  int
	block  bool
	logged bool
}

// Buffered runs the handler on a worker fed by a queue of size events.
// Dispatch returns Queued without waiting for the handler.
func Buffered(size int) Option {
	return func(o *options) { o.queue = size }
}

// Blocking makes Dispatch wait for room in a full queue instead of
// failing with ErrQueueFull.
func Blocking() Option {
	return func(o *options) { o.block = true }
}

// Logged records the start, outcome and duration of every event.
func Logged() Option {
	return func(o *options) { o.logged = true }
}

type queued struct {
	ctx context.Context
	e   Event
}

type instruments struct {
	depth   metric.Int64ObservableGauge
	handled metric.Int64Counter
	failed  metric.Int64Counter
	dropped metric.Int64Counter
}

// Dispatcher is safe for concurrent Dispatch once registration is done.
type Dispatcher struct {
	logger   Logger
	handlers map[string]HandlerFunc
	inst     instruments

	mu      sync.RWMutex
	queues  map[string]chan queued
	workers sync.WaitGroup
}

// New reports metrics through the global OTel meter provider.
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		logger:   logger,
		handlers: make(map[string]HandlerFunc),
		queues:   make(map[string]chan queued),
	}
	if err := d.instrument(otel.Meter(meterName)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dispatcher) instrument(m metric.Meter) error {
	var err error
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&d.inst.handled, "routekit.dispatch.handled", "Events handled"},
		{&d.inst.failed, "routekit.dispatch.failed", "Events whose handler returned an error"},
		{&d.inst.dropped, "routekit.dispatch.dropped", "Events rejected by a full queue"},
	}
	for _, c := range counters {
		if *c.dst, err = m.Int64Counter(c.name, metric.WithDescription(c.desc)); err != nil {
			return fmt.Errorf("counter %s: %w", c.name, err)
		}
	}

	d.inst.depth, err = m.Int64ObservableGauge("routekit.dispatch.queue_depth",
		metric.WithDescription("Events waiting in a handler queue"))
	if err != nil {
		return fmt.Errorf("queue depth gauge: %w", err)
	}
	_, err = m.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		d.mu.RLock()
		defer d.mu.RUnlock()
		for cmd, q := range d.queues {
			o.ObserveInt64(d.inst.depth, int64(len(q)), commandAttr(cmd))
		}
		return nil
	}, d.inst.depth)
	if err != nil {
		return fmt.Errorf("queue depth callback: %w", err)
	}
	return nil
}

func commandAttr(command string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("command", command))
}

// Register binds h to command, replacing any earlier handler.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	h = d.counted(command, h)
	if o.queue > 0 {
		h = d.enqueue(command, o, h)
	}
	if o.logged {
		h = d.traced(command, h)
	}
	d.handlers[command] = h
}

// Dispatch runs the handler of e.Command, stamping e.Timestamp when unset.
func (d *Dispatcher) Dispatch(ctx context.Context, e Event) (any, error) {
	h, ok := d.handlers[e.Command]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(ctx, e)
}

func (d *Dispatcher) HasHandler(command string) bool {
	_, ok := d.handlers[command]
	return ok
}

// Commands lists registered commands in sorted order.
func (d *Dispatcher) Commands() []string {
	return slices.Sorted(maps.Keys(d.handlers))
}

// Close waits until every queued event has been handled. Dispatch must not
// be called concurrently with or after Close.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	for cmd, q := range d.queues {
		close(q)
		delete(d.queues, cmd)
	}
	d.mu.Unlock()

	d.workers.Wait()
}

func (d *Dispatcher) counted(command string, h HandlerFunc) HandlerFunc {
	attr := commandAttr(command)
	return func(ctx context.Context, e Event) (any, error) {
		result, err := h(ctx, e)
		d.inst.handled.Add(ctx, 1, attr)
		if err != nil {
			d.inst.failed.Add(ctx, 1, attr)
		}
		return result, err
	}
}

func (d *Dispatcher) enqueue(command string, o options, h HandlerFunc) HandlerFunc {
	q := make(chan queued, o.queue)
	d.mu.Lock()
	d.queues[command] = q
	d.mu.Unlock()

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for item := range q {
			if _, err := h(item.ctx, item.e); err != nil {
				d.logger.Error("queued event failed", "command", command, "error", err)
			}
		}
	}()

	return func(ctx context.Context, e Event) (any, error) {
		item := queued{ctx: context.WithoutCancel(ctx), e: e}
		if o.block {
			select {
			case q <- item:
				return Queued, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		select {
		case q <- item:
			return Queued, nil
		default:
			d.inst.dropped.Add(ctx, 1, commandAttr(command))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, command)
		}
	}
}

func (d *Dispatcher) traced(command string, h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "args", e.Args)

		result, err := h(ctx, e)
		if err != nil {
			d.logger.Error("event failed", "command", command, "duration", time.Since(start), "error", err)
			return result, err
		}
		d.logger.Debug("event complete", "command", command, "duration", time.Since(start))
		return result, nil
	}
}
