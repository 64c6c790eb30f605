package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	debatesStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debategraph_debates_started_total",
		Help: "Number of debates started.",
	})

	debatesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debategraph_debates_completed_total",
		Help: "Number of debates that ran to completion.",
	})

	debatesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "debategraph_debates_failed_total",
		Help: "Number of debates aborted by an error or disconnect.",
	})

	eventsRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "debategraph_events_relayed_total",
		Help: "Number of debate events relayed to clients, by event type.",
	}, []string{"type"})

	debateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "debategraph_debate_duration_seconds",
		Help:    "Wall-clock duration of completed debates.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
	})
)
