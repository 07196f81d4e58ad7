// Package metrics contains the Prometheus metrics for voicedesk.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every metric the service exposes.
type Metrics struct {
	// Call lifecycle
	ActiveCalls  prometheus.Gauge
	TotalCalls   *prometheus.CounterVec // label: status (completed|dropped|idle_timeout|error)
	CallDuration prometheus.Histogram

	// Recognition
	Transcriptions     *prometheus.CounterVec // label: kind (interim|final)
	RecognitionErrors  prometheus.Counter
	RecognitionReopens prometheus.Counter

	// Synthesis
	SynthesisUtterances prometheus.Counter
	SynthesisErrors     prometheus.Counter
	SynthesisFirstChunk prometheus.Histogram

	// Transport
	MediaFramesIn   prometheus.Counter
	MediaFramesOut  prometheus.Counter
	WebsocketErrors prometheus.Counter

	// Dialogue
	PhaseTransitions *prometheus.CounterVec // label: phase
	RetryExhaustions *prometheus.CounterVec // label: phase
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith creates and registers all metrics on the given registerer.
// Tests pass a private registry so parallel packages do not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Name: "voicedesk_active_calls",
			Help: "Current number of active calls",
		}),
		TotalCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_calls_total",
			Help: "Total calls handled, by terminal status",
		}, []string{"status"}),
		CallDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicedesk_call_duration_seconds",
			Help:    "Distribution of call durations",
			Buckets: []float64{15, 30, 60, 120, 180, 300, 600},
		}),
		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_transcriptions_total",
			Help: "Transcript events received, by kind",
		}, []string{"kind"}),
		RecognitionErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_recognition_errors_total",
			Help: "Recognition connection failures",
		}),
		RecognitionReopens: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_recognition_reopens_total",
			Help: "Successful recognition reconnects after a drop",
		}),
		SynthesisUtterances: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_synthesis_utterances_total",
			Help: "Utterances sent to the synthesis service",
		}),
		SynthesisErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_synthesis_errors_total",
			Help: "Synthesis failures, including mid-stream aborts",
		}),
		SynthesisFirstChunk: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicedesk_synthesis_first_chunk_seconds",
			Help:    "Time to first synthesized audio chunk",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 8),
		}),
		MediaFramesIn: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_media_frames_in_total",
			Help: "Inbound media frames read from the telephony transport",
		}),
		MediaFramesOut: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_media_frames_out_total",
			Help: "Outbound media frames written to the telephony transport",
		}),
		WebsocketErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "voicedesk_websocket_errors_total",
			Help: "Telephony websocket read/write failures",
		}),
		PhaseTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_phase_transitions_total",
			Help: "Conversation phase transitions, by destination phase",
		}, []string{"phase"}),
		RetryExhaustions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "voicedesk_retry_exhaustions_total",
			Help: "Phases that hit their retry limit and accepted best-effort data",
		}, []string{"phase"}),
	}
}
