package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/liveroute/pkg/router"
)

// Config configures the Prometheus observer.
type Config struct {
	// Namespace is the metrics namespace (default: "liveroute").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the Prometheus observer.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "liveroute",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Observer is a router.Observer backed by Prometheus collectors.
type Observer struct {
	transitions        *prometheus.CounterVec
	transitionDuration *prometheus.HistogramVec
	inFlight           prometheus.Gauge
	layerBuilds        *prometheus.CounterVec
	layerBuildDuration *prometheus.HistogramVec
	layerReleases      *prometheus.CounterVec
	mounted            *prometheus.GaugeVec
	caught             *prometheus.CounterVec
}

var _ router.Observer = (*Observer)(nil)

// New registers the router collectors and returns an observer feeding
// them. Registering twice on the same registry panics, so create one
// Observer per registry and share it between routers.
func New(opts ...Option) *Observer {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Observer{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transitions_total",
			Help:        "Total number of finished route transitions",
			ConstLabels: config.ConstLabels,
		}, []string{"route", "outcome"}),

		transitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transition_duration_seconds",
			Help:        "Route transition duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"outcome"}),

		inFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transitions_in_flight",
			Help:        "Number of route transitions being resolved",
			ConstLabels: config.ConstLabels,
		}),

		layerBuilds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "layer_builds_total",
			Help:        "Total number of layer builds",
			ConstLabels: config.ConstLabels,
		}, []string{"layer", "status"}),

		layerBuildDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "layer_build_duration_seconds",
			Help:        "Layer build duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"layer"}),

		layerReleases: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "layer_releases_total",
			Help:        "Total number of released layers",
			ConstLabels: config.ConstLabels,
		}, []string{"layer"}),

		mounted: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mounted",
			Help:        "Number of mounted routes, layouts and catch boundaries",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		caught: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "caught_total",
			Help:        "Total number of failures handled by catch boundaries",
			ConstLabels: config.ConstLabels,
		}, []string{"boundary", "code"}),
	}
}

// TransitionStarted implements router.Observer.
func (o *Observer) TransitionStarted(string, string) {
	o.inFlight.Inc()
}

// TransitionFinished implements router.Observer.
func (o *Observer) TransitionFinished(ev router.TransitionEvent) {
	o.inFlight.Dec()
	route := ev.Template
	if route == "" {
		route = "none"
	}
	o.transitions.WithLabelValues(route, string(ev.Outcome)).Inc()
	o.transitionDuration.WithLabelValues(string(ev.Outcome)).Observe(ev.Duration.Seconds())
}

// LayerBuilt implements router.Observer.
func (o *Observer) LayerBuilt(name string, d time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	o.layerBuilds.WithLabelValues(name, status).Inc()
	o.layerBuildDuration.WithLabelValues(name).Observe(d.Seconds())
}

// LayerReleased implements router.Observer.
func (o *Observer) LayerReleased(name string) {
	o.layerReleases.WithLabelValues(name).Inc()
}

// Mounted implements router.Observer.
func (o *Observer) Mounted(kind router.MountKind, _ string) {
	o.mounted.WithLabelValues(string(kind)).Inc()
}

// Unmounted implements router.Observer.
func (o *Observer) Unmounted(kind router.MountKind, _ string) {
	o.mounted.WithLabelValues(string(kind)).Dec()
}

// Caught implements router.Observer.
func (o *Observer) Caught(boundary string, err error) {
	code := router.Code(err)
	if code == "" {
		code = "unknown"
	}
	o.caught.WithLabelValues(boundary, code).Inc()
}
