package router

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/vango-dev/liveroute/pkg/router"

// TeardownPolicy decides what happens when closing a scope fails.
type TeardownPolicy uint8

const (
	// TeardownLog logs teardown failures at warn level and continues.
	TeardownLog TeardownPolicy = iota

	// TeardownPropagate fails the content stream with the teardown error.
	TeardownPropagate
)

// String returns the policy name used in configuration files.
func (p TeardownPolicy) String() string {
	switch p {
	case TeardownPropagate:
		return "propagate"
	default:
		return "log"
	}
}

// ParseTeardownPolicy parses "log" or "propagate".
func ParseTeardownPolicy(s string) (TeardownPolicy, bool) {
	switch s {
	case "", "log":
		return TeardownLog, true
	case "propagate":
		return TeardownPropagate, true
	default:
		return TeardownLog, false
	}
}

// Option configures a Router.
type Option func(*options)

type options struct {
	logger       *slog.Logger
	tracer       trace.Tracer
	observer     Observer
	teardown     TeardownPolicy
	maxRedirects int
}

func defaultOptions() options {
	return options{
		logger:       slog.Default().With("component", "router"),
		tracer:       otel.Tracer(tracerName),
		observer:     NopObserver{},
		teardown:     TeardownLog,
		maxRedirects: 8,
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTracer sets the tracer used for transition spans. By default the
// global OpenTelemetry tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		if tracer != nil {
			o.tracer = tracer
		}
	}
}

// WithObserver sets the lifecycle observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		if observer != nil {
			o.observer = observer
		}
	}
}

// WithTeardownPolicy sets how teardown failures are handled.
func WithTeardownPolicy(policy TeardownPolicy) Option {
	return func(o *options) {
		o.teardown = policy
	}
}

// WithMaxRedirects caps consecutive guard redirects. Values below 1 are
// ignored.
func WithMaxRedirects(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxRedirects = n
		}
	}
}
