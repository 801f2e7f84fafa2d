package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Call metrics
	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "talkinator_active_calls",
		Help: "Number of admitted calls in progress",
	})

	CallsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkinator_calls_total",
		Help: "Finished calls by final stage and result",
	}, []string{"stage", "result"})

	CallStageTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkinator_call_stage_transitions_total",
		Help: "Call state machine transitions by target stage",
	}, []string{"stage"})

	RecognitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkinator_recognitions_total",
		Help: "Speech recognition results by grammar and whether they passed the confidence threshold",
	}, []string{"grammar", "accepted"})

	// Remote guessing service metrics
	GuessRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "talkinator_guess_requests_total",
		Help: "Requests sent to the guessing service",
	}, []string{"kind", "status"})

	GuessLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "talkinator_guess_latency_seconds",
		Help:    "Latency of guessing service requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)
