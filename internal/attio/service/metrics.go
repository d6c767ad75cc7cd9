package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payline_attio_sync_runs_total",
		Help: "Reconciliation runs by outcome.",
	}, []string{"status"})

	syncDealsUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payline_attio_sync_deals_upserted_total",
		Help: "Deals created or refreshed by sync runs.",
	})

	syncIdentityRepairs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payline_attio_sync_identity_repairs_total",
		Help: "Stale member rows repaired by email identity.",
	})

	syncConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payline_attio_sync_conflicts_total",
		Help: "Linkage and repair conflicts skipped during sync runs.",
	})
)
