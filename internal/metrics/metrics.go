// Package metrics exports Prometheus metrics for an engine.Runtime.
//
// A Collector is an engine.Observer: install it with engine.WithObserver
// and serve Handler on /metrics.
//
// Metrics collected:
//   - formsync_commands_total: commands applied, by type and outcome
//   - formsync_transition_duration_seconds: time spent in Apply, by type
//   - formsync_forms: live forms after the last command
//   - formsync_fields: live fields across all forms after the last command
//   - formsync_seq: seq of the last applied command
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/formsync/internal/engine"
)

// OutcomeOK labels commands applied without a transition error.
const OutcomeOK = "OK"

// Config configures a Collector.
type Config struct {
	// Namespace prefixes every metric name (default: "formsync").
	Namespace string

	// ConstLabels are added to every metric.
	ConstLabels prometheus.Labels

	// Buckets are the transition duration histogram buckets.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the metrics and backs Handler.
	// Default: a fresh registry, so collectors never collide.
	Registry *prometheus.Registry
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
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
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "formsync",
		Buckets:   prometheus.DefBuckets,
	}
}

// Collector records applied commands.
type Collector struct {
	registry *prometheus.Registry

	commands *prometheus.CounterVec
	duration *prometheus.HistogramVec
	forms    prometheus.Gauge
	fields   prometheus.Gauge
	seq      prometheus.Gauge
}

var _ engine.Observer = (*Collector)(nil)

// New creates a Collector and registers its metrics.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		registry: config.Registry,

		commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "commands_total",
			Help:        "Total number of commands applied, by type and outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"type", "outcome"}),

		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "transition_duration_seconds",
			Help:        "Time spent applying a command, in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"type"}),

		forms: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "forms",
			Help:        "Number of live forms",
			ConstLabels: config.ConstLabels,
		}),

		fields: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "fields",
			Help:        "Number of live fields across all forms",
			ConstLabels: config.ConstLabels,
		}),

		seq: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "seq",
			Help:        "Seq of the last applied command",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Observe implements engine.Observer.
func (c *Collector) Observe(a engine.Applied) {
	typ := string(a.Command.Type())
	c.commands.WithLabelValues(typ, outcome(a.Err)).Inc()
	c.duration.WithLabelValues(typ).Observe(a.Duration.Seconds())

	fields := 0
	for _, f := range a.State {
		fields += len(f.Fields)
	}
	c.forms.Set(float64(len(a.State)))
	c.fields.Set(float64(fields))
	c.seq.Set(float64(a.Seq))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// outcome keeps label cardinality bounded by the engine's error codes.
func outcome(err error) string {
	if err == nil {
		return OutcomeOK
	}
	if code := engine.Code(err); code != "" {
		return string(code)
	}
	return "ERROR"
}
