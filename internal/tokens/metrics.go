package tokens

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tokenResolveFailures = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "starkindexor_token_resolve_failures_total",
		Help: "Total number of token metadata lookups that fell back to defaults",
	},
)

func TokenResolveFailureInc() {
	tokenResolveFailures.Inc()
}
