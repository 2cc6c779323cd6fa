package handlers

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	missingReferents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_missing_referent_total",
			Help: "Events skipped because the entity they reference is not indexed",
		},
		[]string{"entity"},
	)

	liquidityClamps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_liquidity_clamp_total",
			Help: "Burns that exceeded the recorded liquidity and were floored at zero",
		},
	)

	stakeClamps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_stake_clamp_total",
			Help: "Withdrawals that exceeded the recorded deposits and were floored at zero",
		},
	)

	rewardPoolUnderflows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "starkindexor_reward_pool_underflow_total",
			Help: "Reward payouts larger than the recorded remaining amount",
		},
	)

	decodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_decode_errors_total",
			Help: "Events whose payload could not be decoded",
		},
		[]string{"kind", "event"},
	)

	configChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "starkindexor_config_changes_total",
			Help: "Configuration changes appended to an audit trail",
		},
		[]string{"entity", "known"},
	)
)

func MissingReferentInc(entity string) {
	missingReferents.WithLabelValues(entity).Inc()
}

func LiquidityClampInc() {
	liquidityClamps.Inc()
}

func StakeClampInc() {
	stakeClamps.Inc()
}

func RewardPoolUnderflowInc() {
	rewardPoolUnderflows.Inc()
}

func DecodeErrorInc(kind, event string) {
	decodeErrors.WithLabelValues(kind, event).Inc()
}

func ConfigChangeInc(entity string, known bool) {
	label := "false"
	if known {
		label = "true"
	}
	configChanges.WithLabelValues(entity, label).Inc()
}
