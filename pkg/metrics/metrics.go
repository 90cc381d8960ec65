// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ActiveCalls tracks calls with a live media stream.
	ActiveCalls = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "calls_active",
			Help: "Number of calls with an open media stream",
		},
	)

	// CallsTotal tracks calls accepted since start.
	CallsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "calls_total",
			Help: "Total calls accepted",
		},
	)

	// CallDuration tracks how long calls last.
	CallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "call_duration_seconds",
			Help:    "Duration of completed calls",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// CallerAudioFrames tracks audio frames received from the telephony leg.
	CallerAudioFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "caller_audio_frames_total",
			Help: "Audio frames received from the telephony provider",
		},
	)

	// AgentAudioFrames tracks audio frames sent back to the caller.
	AgentAudioFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "agent_audio_frames_total",
			Help: "Audio frames forwarded to the telephony provider",
		},
	)

	// InterruptionsTotal tracks caller barge-ins.
	InterruptionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "interruptions_total",
			Help: "Times the caller interrupted the agent mid-utterance",
		},
	)

	// UpstreamEventsTotal tracks normalized events from the realtime provider.
	UpstreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstream_events_total",
			Help: "Normalized events received from the realtime provider",
		},
		[]string{"type"},
	)

	// ToolDispatchDuration tracks tool execution time.
	ToolDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tool_dispatch_duration_seconds",
			Help:    "Tool execution duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"tool"},
	)

	// ToolDispatchTotal tracks tool invocations by outcome.
	ToolDispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tool_dispatch_total",
			Help: "Tool invocations",
		},
		[]string{"tool", "status"},
	)

	// CallEventsPublished tracks call events published to JetStream.
	CallEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "call_events_published_total",
			Help: "Call events published to the stream",
		},
		[]string{"type", "status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordToolDispatch records metrics for one tool invocation.
func RecordToolDispatch(tool, status string, duration float64) {
	ToolDispatchDuration.WithLabelValues(tool).Observe(duration)
	ToolDispatchTotal.WithLabelValues(tool, status).Inc()
}

// CallStarted records an accepted call.
func CallStarted() {
	CallsTotal.Inc()
	ActiveCalls.Inc()
}

// CallEnded records a completed call.
func CallEnded(duration float64) {
	ActiveCalls.Dec()
	CallDuration.Observe(duration)
}
