package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var (
	TokensIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_tokens_issued_total",
		Help: "Total number of session tokens issued.",
	})
	TokenValidationFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_token_validation_failures_total",
		Help: "Total number of session tokens rejected by validation.",
	})
	LoginSuccessTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_success_total",
		Help: "Total number of successful local logins.",
	})
	LoginFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_logins_failure_total",
		Help: "Total number of failed local logins.",
	})
	UserRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_users_registered_total",
		Help: "Total number of users registered.",
	})
	FederatedLoginsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_federated_logins_total",
		Help: "Total number of federated logins by provider and outcome.",
	}, []string{"provider", "outcome"})
	RedirectsRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "auth_redirects_rejected_total",
		Help: "Total number of post-login redirects rejected by the allow-list.",
	})
)

// Register registers the custom metrics with reg.
// It should be called once at application startup.
func Register(reg prometheus.Registerer) {
	if reg == nil {
		log.Error().Msg("Prometheus registry is nil, cannot register custom metrics.")
		return
	}

	collectors := map[string]prometheus.Collector{
		"TokensIssuedTotal":            TokensIssuedTotal,
		"TokenValidationFailuresTotal": TokenValidationFailuresTotal,
		"LoginSuccessTotal":            LoginSuccessTotal,
		"LoginFailureTotal":            LoginFailureTotal,
		"UserRegisteredTotal":          UserRegisteredTotal,
		"FederatedLoginsTotal":         FederatedLoginsTotal,
		"RedirectsRejectedTotal":       RedirectsRejectedTotal,
	}
	for name, c := range collectors {
		if err := reg.Register(c); err != nil {
			log.Warn().Err(err).Str("metric", name).Msg("Failed to register metric")
		}
	}
	log.Info().Msg("Custom Prometheus metrics registered.")
}
