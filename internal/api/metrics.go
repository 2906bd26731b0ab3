package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumentation for the ingest-side hot paths. Registered on the
// default registry and served from /metrics.
var (
	assignmentsServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosplit_assignments_served_total",
		Help: "Variant lookups that resolved to a variant, by experiment.",
	}, []string{"experiment"})

	assignmentsDeclined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosplit_assignments_declined_total",
		Help: "Variant lookups that resolved to no treatment, by experiment.",
	}, []string{"experiment"})

	metricEventsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosplit_metric_events_total",
		Help: "Metric events accepted for append, by experiment.",
	}, []string{"experiment"})

	flagEvaluations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gosplit_flag_evaluations_total",
		Help: "Feature flag evaluations, by key and outcome.",
	}, []string{"key", "outcome"})
)
