// Package metrics declares the bot's Prometheus collectors. They register
// with the default registry, which the ops server exposes on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts incoming updates by kind (start, callback, other).
	UpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_updates_total",
			Help: "Incoming updates by kind.",
		},
		[]string{"kind"},
	)

	// HandlerPanicsTotal counts panics recovered at the per-update boundary.
	HandlerPanicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_handler_panics_total",
		Help: "Panics recovered while handling an update.",
	})

	GateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_gate_decisions_total",
			Help: "Access gate outcomes.",
		},
		[]string{"decision"},
	)

	// FSubAutoDisabledTotal counts force-subscribe channels cleared because
	// the bot could no longer probe them.
	FSubAutoDisabledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_fsub_auto_disabled_total",
		Help: "Force-subscribe channels automatically disabled.",
	})

	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_deliveries_total",
			Help: "File delivery attempts by result.",
		},
		[]string{"result"},
	)

	VerificationClaimsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_verification_claims_total",
		Help: "Verification grants claimed.",
	})

	GrantsSweptTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filegate_grants_swept_total",
		Help: "Expired verification grants removed by the sweeper.",
	})

	EphemeralPending = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "filegate_ephemeral_pending",
		Help: "Delivered copies waiting for automatic deletion.",
	})

	EphemeralFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_ephemeral_fired_total",
			Help: "Ephemeral deletions fired by result.",
		},
		[]string{"result"},
	)

	ShortenerRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_shortener_requests_total",
			Help: "Link shortener calls by result.",
		},
		[]string{"result"},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_cache_hits_total",
			Help: "Read-through cache hits.",
		},
		[]string{"cache"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_cache_misses_total",
			Help: "Read-through cache misses.",
		},
		[]string{"cache"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filegate_events_published_total",
			Help: "Domain events published by type and result.",
		},
		[]string{"type", "result"},
	)
)
