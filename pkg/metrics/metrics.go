// Package metrics exposes Prometheus instrumentation for a control surface.
//
// A Collector is created once per process (or per test with its own
// registry) and handed to the transport and the binder. Every recording
// method is safe on a nil *Collector, so instrumentation is optional.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config configures the collector.
type Config struct {
	// Namespace is the metrics namespace (default: "surface").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
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

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "surface",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector holds the surface metrics.
type Collector struct {
	framesReceived   *prometheus.CounterVec
	framesDropped    prometheus.Counter
	framesSent       *prometheus.CounterVec
	updatesApplied   *prometheus.CounterVec
	updatesUnbound   prometheus.Counter
	styleErrors      prometheus.Counter
	listeners        prometheus.Gauge
	boundChannels    prometheus.Gauge
	connected        prometheus.Gauge
	reconnectsTotal  prometheus.Counter
	interactionTotal *prometheus.CounterVec
}

// New registers the surface metrics:
//   - surface_frames_received_total{kind}: inbound frames by kind
//     (ping, connected, registration, update, unknown)
//   - surface_frames_dropped_total: malformed inbound frames
//   - surface_frames_sent_total{kind}: outbound frames (subscribe, publish, pong)
//   - surface_updates_applied_total{kind}: element mutations by attribute kind
//   - surface_updates_unbound_total: updates for channels no element binds
//   - surface_style_errors_total: style payloads that failed to parse
//   - surface_listeners: attached event listeners
//   - surface_bound_channels: distinct bound channels
//   - surface_connected: 1 while the websocket is open
//   - surface_reconnects_total: reconnect attempts
//   - surface_interactions_total{type}: user events handled by element type
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}

	return &Collector{
		framesReceived:   counterVec("frames_received_total", "Inbound websocket frames by kind", "kind"),
		framesDropped:    counter("frames_dropped_total", "Inbound frames dropped because they could not be decoded"),
		framesSent:       counterVec("frames_sent_total", "Outbound websocket frames by kind", "kind"),
		updatesApplied:   counterVec("updates_applied_total", "Element mutations applied by attribute kind", "kind"),
		updatesUnbound:   counter("updates_unbound_total", "Updates for channels not bound by any element"),
		styleErrors:      counter("style_errors_total", "Style payloads that failed to parse"),
		listeners:        gauge("listeners", "Attached event listeners"),
		boundChannels:    gauge("bound_channels", "Distinct channels bound by the page"),
		connected:        gauge("connected", "1 while the update connection is open"),
		reconnectsTotal:  counter("reconnects_total", "Reconnect attempts"),
		interactionTotal: counterVec("interactions_total", "User events handled by element type", "type"),
	}
}

// FrameReceived records an inbound frame of the given kind.
func (c *Collector) FrameReceived(kind string) {
	if c != nil {
		c.framesReceived.WithLabelValues(kind).Inc()
	}
}

// FrameDropped records an inbound frame that failed to decode.
func (c *Collector) FrameDropped() {
	if c != nil {
		c.framesDropped.Inc()
	}
}

// FrameSent records an outbound frame of the given kind.
func (c *Collector) FrameSent(kind string) {
	if c != nil {
		c.framesSent.WithLabelValues(kind).Inc()
	}
}

// UpdateApplied records a mutation of one element through an attribute kind.
func (c *Collector) UpdateApplied(kind string) {
	if c != nil {
		c.updatesApplied.WithLabelValues(kind).Inc()
	}
}

// UpdateUnbound records an update for a channel without bound elements.
func (c *Collector) UpdateUnbound() {
	if c != nil {
		c.updatesUnbound.Inc()
	}
}

// StyleError records a style payload that failed to parse.
func (c *Collector) StyleError() {
	if c != nil {
		c.styleErrors.Inc()
	}
}

// ListenersAttached adds n attached listeners.
func (c *Collector) ListenersAttached(n int) {
	if c != nil && n > 0 {
		c.listeners.Add(float64(n))
	}
}

// SetBoundChannels records the number of distinct bound channels.
func (c *Collector) SetBoundChannels(n int) {
	if c != nil {
		c.boundChannels.Set(float64(n))
	}
}

// SetConnected records the connection state.
func (c *Collector) SetConnected(up bool) {
	if c == nil {
		return
	}
	if up {
		c.connected.Set(1)
	} else {
		c.connected.Set(0)
	}
}

// Reconnect records a reconnect attempt.
func (c *Collector) Reconnect() {
	if c != nil {
		c.reconnectsTotal.Inc()
	}
}

// Interaction records a handled user event for an element type.
func (c *Collector) Interaction(elementType string) {
	if c != nil {
		c.interactionTotal.WithLabelValues(elementType).Inc()
	}
}
