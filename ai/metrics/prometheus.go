// Package metrics provides Prometheus metrics export for the assistant.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "angelo"
	subsystem = "assistant"
)

// PrometheusExporter exports assistant metrics in Prometheus format.
// A nil *PrometheusExporter is valid and records nothing.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Turn metrics
	turns       *prometheus.CounterVec
	turnLatency *prometheus.HistogramVec
	routeRules  *prometheus.CounterVec
	fallbacks   *prometheus.CounterVec

	// Tool call metrics
	toolCalls   *prometheus.CounterVec
	toolLatency *prometheus.HistogramVec

	// LLM metrics
	llmRequests *prometheus.CounterVec
	llmLatency  *prometheus.HistogramVec
	llmTokens   *prometheus.CounterVec

	// Session and speech metrics
	sessionsActive prometheus.Gauge
	speech         *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
		}, labels)
	}
	histogram := func(name, help string, labels ...string) *prometheus.HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: subsystem, Name: name, Help: help,
			Buckets: cfg.LatencyBuckets,
		}, labels)
	}

	e := &PrometheusExporter{
		registry:    registry,
		turns:       counter("turns_total", "Total number of handled conversation turns", "source", "intent"),
		turnLatency: histogram("turn_latency_seconds", "Turn latency in seconds, simulated delay included", "source"),
		routeRules:  counter("route_rules_total", "Deterministic router rule hits", "rule"),
		fallbacks:   counter("bridge_fallbacks_total", "Turns where the tool bridge gave no usable intent", "reason"),
		toolCalls:   counter("tool_calls_total", "Total number of tool calls", "tool_name", "status"),
		toolLatency: histogram("tool_latency_seconds", "Tool call latency in seconds", "tool_name"),
		llmRequests: counter("llm_requests_total", "Total number of LLM requests", "provider", "status"),
		llmLatency:  histogram("llm_latency_seconds", "LLM request latency in seconds", "model", "provider"),
		llmTokens:   counter("llm_tokens_total", "Total LLM tokens consumed", "model", "token_type"),
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: subsystem,
			Name: "sessions_active", Help: "Number of live conversation sessions",
		}),
		speech: counter("speech_requests_total", "Speech recognition and synthesis requests", "direction", "status"),
	}

	registry.MustRegister(
		e.turns,
		e.turnLatency,
		e.routeRules,
		e.fallbacks,
		e.toolCalls,
		e.toolLatency,
		e.llmRequests,
		e.llmLatency,
		e.llmTokens,
		e.sessionsActive,
		e.speech,
	)

	return e
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordTurn records one handled turn. source is llm, agent or router.
func (e *PrometheusExporter) RecordTurn(source, intent string, latency time.Duration) {
	if e == nil {
		return
	}
	e.turns.WithLabelValues(source, intent).Inc()
	e.turnLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordRouteRule records which deterministic rule fired.
func (e *PrometheusExporter) RecordRouteRule(rule string) {
	if e == nil {
		return
	}
	e.routeRules.WithLabelValues(rule).Inc()
}

// RecordFallback records a bridge miss that fell back to the router.
func (e *PrometheusExporter) RecordFallback(reason string) {
	if e == nil {
		return
	}
	e.fallbacks.WithLabelValues(reason).Inc()
}

// RecordToolCall records a tool call metric.
func (e *PrometheusExporter) RecordToolCall(toolName string, latency time.Duration, success bool) {
	if e == nil {
		return
	}
	e.toolCalls.WithLabelValues(toolName, statusLabel(success)).Inc()
	e.toolLatency.WithLabelValues(toolName).Observe(latency.Seconds())
}

// RecordLLMCall records one LLM request and its token usage.
func (e *PrometheusExporter) RecordLLMCall(model, provider string, latency time.Duration, success bool, promptTokens, completionTokens int) {
	if e == nil {
		return
	}
	e.llmRequests.WithLabelValues(provider, statusLabel(success)).Inc()
	e.llmLatency.WithLabelValues(model, provider).Observe(latency.Seconds())
	if promptTokens > 0 {
		e.llmTokens.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		e.llmTokens.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
}

// SetActiveSessions sets the number of live sessions.
func (e *PrometheusExporter) SetActiveSessions(count int) {
	if e == nil {
		return
	}
	e.sessionsActive.Set(float64(count))
}

// RecordSpeech records a speech request. direction is stt or tts.
func (e *PrometheusExporter) RecordSpeech(direction string, success bool) {
	if e == nil {
		return
	}
	e.speech.WithLabelValues(direction, statusLabel(success)).Inc()
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
