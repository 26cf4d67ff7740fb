// Package metrics defines the custom Prometheus metrics of the identity
// service. Metrics register with the default registry on package load and
// are exposed by the /metrics route.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "identity"

// Registration results.
const (
	ResultCreated   = "created"
	ResultDuplicate = "duplicate"
	ResultInvalid   = "invalid"
	ResultForbidden = "forbidden"
	ResultError     = "error"
)

// Login results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// RegistrationsTotal counts registration attempts.
// Label:
//   - result: "created", "duplicate", "invalid", "forbidden" or "error"
var RegistrationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "registrations_total",
		Help:      "Total number of registration attempts, by result.",
	},
	[]string{"result"},
)

// LoginsTotal counts login attempts.
// Label:
//   - result: "success", "failure" (typed authentication failure) or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// LoginDuration measures end-to-end login handling, dominated by the
// password hash comparison.
var LoginDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "login_duration_seconds",
		Help:      "Duration of login requests from bind to response.",
		Buckets:   prometheus.DefBuckets,
	},
)

// RoleAssignmentsTotal counts successful administrative role assignments.
var RoleAssignmentsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "role_assignments_total",
		Help:      "Total number of roles assigned through the admin endpoint.",
	},
)

// ── Event metrics ─────────────────────────────────────────────────────────────

// EventsPublishedTotal counts auth events handed to the publisher.
// Labels:
//   - type: the event type (e.g. "user.registered")
//   - result: "ok" or "error"
var EventsPublishedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Total number of auth events published, by type and result.",
	},
	[]string{"type", "result"},
)

// EventsDroppedTotal counts events dropped because a worker queue was full.
var EventsDroppedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Total number of auth events dropped on a full dispatcher queue.",
	},
	[]string{"type"},
)
