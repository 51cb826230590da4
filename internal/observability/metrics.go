package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	loginsTotal             *prometheus.CounterVec
	sessionsIssuedTotal     prometheus.Counter
	sessionsRevokedTotal    *prometheus.CounterVec
	invitesCreatedTotal     prometheus.Counter
	inviteConsumptionsTotal *prometheus.CounterVec
	requestsTotal           *prometheus.CounterVec
	requestLatencySeconds   *prometheus.HistogramVec
)

// RegisterMetrics initialises the Prometheus collectors used for auth observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		loginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_logins_total",
			Help: "Total number of login attempts by outcome.",
		}, []string{"outcome"})

		sessionsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_sessions_issued_total",
			Help: "Total number of bearer sessions issued.",
		})

		sessionsRevokedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_sessions_revoked_total",
			Help: "Total number of sessions revoked by trigger.",
		}, []string{"trigger"})

		invitesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "invites_created_total",
			Help: "Total number of student invites created.",
		})

		inviteConsumptionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "invite_consumptions_total",
			Help: "Total number of invite consumption attempts by outcome.",
		}, []string{"outcome"})

		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		requestLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		prometheus.MustRegister(
			loginsTotal,
			sessionsIssuedTotal,
			sessionsRevokedTotal,
			invitesCreatedTotal,
			inviteConsumptionsTotal,
			requestsTotal,
			requestLatencySeconds,
		)
	})
}

// Logins exposes the login attempt counter.
func Logins() *prometheus.CounterVec {
	RegisterMetrics()
	return loginsTotal
}

// SessionsIssued exposes the issued-session counter.
func SessionsIssued() prometheus.Counter {
	RegisterMetrics()
	return sessionsIssuedTotal
}

// SessionsRevoked exposes the revoked-session counter.
func SessionsRevoked() *prometheus.CounterVec {
	RegisterMetrics()
	return sessionsRevokedTotal
}

// InvitesCreated exposes the invite creation counter.
func InvitesCreated() prometheus.Counter {
	RegisterMetrics()
	return invitesCreatedTotal
}

// InviteConsumptions exposes the invite consumption counter.
func InviteConsumptions() *prometheus.CounterVec {
	RegisterMetrics()
	return inviteConsumptionsTotal
}

// Requests exposes the counter for API requests.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// RequestLatency exposes the latency histogram for API requests.
func RequestLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return requestLatencySeconds
}
