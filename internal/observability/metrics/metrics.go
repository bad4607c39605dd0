package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "staffdesk_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	authzDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_authz_decisions_total",
		Help: "Authorization decisions by action and outcome",
	}, []string{"action", "outcome"})

	invitationTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_invitation_transitions_total",
		Help: "Invitation workflow transitions (invited, accepted, noop, declined, expired)",
	}, []string{"event"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_registrations_total",
		Help: "User registrations by invitation link result",
	}, []string{"invitation_link"})

	roleCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "staffdesk_role_cache_lookups_total",
		Help: "Business-role cache lookups by result (hit, miss, bypass)",
	}, []string{"result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveAuthzDecision counts one policy decision
func ObserveAuthzDecision(action, outcome string) {
	authzDecisions.WithLabelValues(action, outcome).Inc()
}

// ObserveInvitation counts one invitation workflow transition
func ObserveInvitation(event string) {
	invitationTransitions.WithLabelValues(event).Inc()
}

// ObserveRegistration counts one registration with its invitation link result
func ObserveRegistration(invitationLink string) {
	registrations.WithLabelValues(invitationLink).Inc()
}

// ObserveRoleCache counts a role cache lookup result
func ObserveRoleCache(result string) {
	roleCacheLookups.WithLabelValues(result).Inc()
}
