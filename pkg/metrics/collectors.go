package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts requests served through a tenant scope,
	// labelled by the tenant's schema name.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nero",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Handled HTTP requests by tenant schema, method and status.",
	}, []string{"tenant", "method", "status"})

	// ResolverLookups counts host-to-tenant resolution attempts.
	ResolverLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nero",
		Subsystem: "resolver",
		Name:      "lookups_total",
		Help:      "Host resolution attempts by outcome (ok, unknown_host, unavailable, error).",
	}, []string{"outcome"})

	// MigrationDuration observes per-schema migration runs.
	MigrationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nero",
		Subsystem: "schema",
		Name:      "migration_duration_seconds",
		Help:      "Duration of tenant schema migration runs by outcome.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"outcome"})
)
