// Package metrics exports router lifecycle events to Prometheus.
//
// An Observer is passed to the router with router.WithObserver:
//
//	obs := metrics.New(metrics.WithNamespace("shop"))
//	r, err := router.New(routes, router.WithObserver(obs))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
//
// Metrics collected (default namespace "liveroute"):
//   - liveroute_transitions_total: Counter of finished transitions by route and outcome
//   - liveroute_transition_duration_seconds: Histogram of transition duration by outcome
//   - liveroute_transitions_in_flight: Gauge of transitions being resolved
//   - liveroute_layer_builds_total: Counter of layer builds by layer and status
//   - liveroute_layer_build_duration_seconds: Histogram of layer build duration
//   - liveroute_layer_releases_total: Counter of released layers
//   - liveroute_mounted: Gauge of mounted routes, layouts and catch boundaries
//   - liveroute_caught_total: Counter of failures caught by boundary and error code
package metrics
