package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push triggers
const (
	PushInitial  = "initial"
	PushExplicit = "explicit"
	PushEcho     = "echo"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Command surface metrics
	Commands        *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec

	// State sync metrics
	StateReplaces *prometheus.CounterVec
	StatePushes   *prometheus.CounterVec
	ReadySignals  prometheus.Counter
	FrontendLogs  prometheus.Counter

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// NewMetrics creates a metrics collector backed by its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		Commands: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_commands_total",
				Help: "Total number of invoked commands",
			},
			[]string{"command", "transport", "status"},
		),
		CommandDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backend_command_duration_seconds",
				Help:    "Command handling duration in seconds",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		StateReplaces: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_state_replaces_total",
				Help: "Total number of UI state replacements",
			},
			[]string{"result"},
		),
		StatePushes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_state_pushes_total",
				Help: "Total number of state pushes to the UI",
			},
			[]string{"trigger", "result"},
		),
		ReadySignals: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_ready_signals_total",
				Help: "Total number of ready commands received",
			},
		),
		FrontendLogs: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "backend_frontend_log_lines_total",
				Help: "Total number of log lines forwarded by the UI",
			},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_ws_connections",
				Help: "Number of active WebSocket connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backend_ws_messages_total",
				Help: "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),

		Uptime: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "backend_uptime_seconds",
				Help: "Backend uptime in seconds",
			},
		),
	}
}

// Run updates the uptime gauge until ctx is done.
func (m *Metrics) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Uptime.Set(time.Since(m.startTime).Seconds())
		}
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCommand records one command invocation
func (m *Metrics) RecordCommand(command, transport, status string, duration time.Duration) {
	m.Commands.WithLabelValues(command, transport, status).Inc()
	m.CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordReplace records a replace_state outcome
func (m *Metrics) RecordReplace(result string) {
	m.StateReplaces.WithLabelValues(result).Inc()
}

// RecordPush records a push attempt
func (m *Metrics) RecordPush(trigger, result string) {
	m.StatePushes.WithLabelValues(trigger, result).Inc()
}

// IncReadySignals increments the ready command counter
func (m *Metrics) IncReadySignals() {
	m.ReadySignals.Inc()
}

// IncFrontendLogs increments the forwarded log line counter
func (m *Metrics) IncFrontendLogs() {
	m.FrontendLogs.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// IncWSConnections increments WebSocket connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
}

// DecWSConnections decrements WebSocket connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
}
