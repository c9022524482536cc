// Package metrics defines and registers all custom Prometheus metrics for
// the incident logger API. It is the single source of truth for metric
// names, labels, and help strings.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "incident_logger"

// IncidentsCreatedTotal counts incidents successfully reported.
// Labels:
//   - type: the incident type (e.g. "Injury")
//   - impact: the impact level (e.g. "Critical")
var IncidentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "incidents_created_total",
		Help:      "Total number of incidents created, by type and impact.",
	},
	[]string{"type", "impact"},
)

// IncidentsDeletedTotal counts incident deletions.
// Label:
//   - actor: "owner" (self-service path) or "admin"
var IncidentsDeletedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "incidents_deleted_total",
		Help:      "Total number of incidents deleted, by acting role.",
	},
	[]string{"actor"},
)

// AuthFailuresTotal counts rejected authentication attempts at the gate.
// Label:
//   - reason: "missing_token", "invalid_token", or "unknown_user"
var AuthFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_failures_total",
		Help:      "Total number of requests rejected by the auth middleware.",
	},
	[]string{"reason"},
)
