package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "secrets", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "secrets", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	AuthAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "secrets", Name: "auth_attempts_total", Help: "Authentication attempts by method and outcome."},
		[]string{"method", "outcome"},
	)
	Registrations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "secrets", Name: "registrations_total", Help: "Account registrations by outcome."},
		[]string{"outcome"},
	)
	SessionsEstablished = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "secrets", Name: "sessions_established_total", Help: "Number of sessions established."},
	)
	SessionsDestroyed = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "secrets", Name: "sessions_destroyed_total", Help: "Number of sessions destroyed by logout."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(Registrations)
	reg.MustRegister(SessionsEstablished)
	reg.MustRegister(SessionsDestroyed)
}
