package handlers

import (
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/store"
)

var ten = big.NewInt(10) //nolint:mnd

func pow10(decimals uint8) *big.Int {
	return new(big.Int).Exp(ten, big.NewInt(int64(decimals)), nil)
}

// earned returns staked * (stored - paid) / 10^decimals, truncated toward zero.
func earned(staked, stored, paid *big.Int, decimals uint8) *big.Int {
	delta := new(big.Int).Sub(stored, paid)
	incr := new(big.Int).Mul(staked, delta)
	return incr.Quo(incr, pow10(decimals))
}

// accrue checkpoints stake on token at the farm's reward-per-token value stored.
// Rewards are credited only for a positive stake; paid moves up to stored either way.
// It reports whether the stake changed. A stored value at or below paid is a no-op.
func accrue(stake *store.AgentStake, token string, stored *big.Int, decimals uint8) bool {
	initRewardMaps(stake)

	paid := stake.RewardPerTokenPaid.Get(token)
	if stored == nil || stored.Cmp(paid) <= 0 {
		return false
	}

	staked := zeroIfNil(stake.StakedAmount)
	if staked.Sign() > 0 {
		rewards := stake.Rewards.Get(token)
		stake.Rewards.Set(token, rewards.Add(rewards, earned(staked, stored, paid, decimals)))
	}
	stake.RewardPerTokenPaid.Set(token, stored)

	return true
}

func initRewardMaps(stake *store.AgentStake) {
	if stake.RewardPerTokenPaid == nil {
		stake.RewardPerTokenPaid = store.TokenAmounts{}
	}
	if stake.Rewards == nil {
		stake.Rewards = store.TokenAmounts{}
	}
}

// syncRewardPerAgent mirrors the stake's checkpoint of token into reward_per_agent.
func syncRewardPerAgent(tx *store.Tx, stake *store.AgentStake, token string) error {
	return tx.UpsertRewardPerAgent(stake.AgentAddress, token, stake.FarmAddress,
		stake.RewardPerTokenPaid.Get(token), stake.Rewards.Get(token))
}

// accrueFarm checkpoints every staking agent of farm on token at stored.
// It returns the number of stakes credited.
func accrueFarm(tx *store.Tx, farm, token string, stored *big.Int, decimals uint8) (int, error) {
	stakes, err := tx.ListAgentStakes(farm)
	if err != nil {
		return 0, err
	}

	credited := 0
	for _, stake := range stakes {
		if zeroIfNil(stake.StakedAmount).Sign() <= 0 {
			continue
		}
		if !accrue(stake, token, stored, decimals) {
			continue
		}

		if err := tx.SaveAgentStake(stake); err != nil {
			return credited, err
		}
		if err := syncRewardPerAgent(tx, stake, token); err != nil {
			return credited, err
		}
		credited++
	}

	return credited, nil
}

// accrueStake checkpoints one stake on every reward token of its farm before its balance changes.
func accrueStake(tx *store.Tx, stake *store.AgentStake) error {
	rewards, err := tx.ListRewards(stake.FarmAddress)
	if err != nil {
		return err
	}

	for _, r := range rewards {
		if !accrue(stake, r.TokenAddress, r.RewardPerTokenStored, r.TokenDecimals) {
			continue
		}
		if err := syncRewardPerAgent(tx, stake, r.TokenAddress); err != nil {
			return err
		}
	}

	return nil
}

// maxBig returns the larger of a and b.
func maxBig(a, b *big.Int) *big.Int {
	a, b = zeroIfNil(a), zeroIfNil(b)
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
