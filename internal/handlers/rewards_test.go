package handlers

import (
	"math/big"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

func TestEarned(t *testing.T) {
	b := big.NewInt
	five := new(big.Int).Mul(b(5), e18)

	tests := []struct {
		name     string
		staked   *big.Int
		stored   *big.Int
		paid     *big.Int
		decimals uint8
		want     string
	}{
		{name: "whole tokens", staked: b(1000), stored: five, paid: b(0), decimals: 18, want: "5000"},
		{name: "truncates", staked: b(3), stored: b(10), paid: b(0), decimals: 1, want: "3"},
		{name: "small stake rounds to zero", staked: b(1), stored: b(99), paid: b(0), decimals: 2, want: "0"},
		{name: "delta only", staked: b(10), stored: b(500), paid: b(300), decimals: 2, want: "20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, earned(tt.staked, tt.stored, tt.paid, tt.decimals).String())
		})
	}
}

func TestAccrue(t *testing.T) {
	t.Run("credits staked agent", func(t *testing.T) {
		stake := store.NewAgentStake("0xf", "0xa")
		stake.StakedAmount = big.NewInt(1000)

		require.True(t, accrue(stake, "0x1", new(big.Int).Mul(big.NewInt(2), e18), 18))
		require.Equal(t, "2000", stake.Rewards.Get("0x1").String())
	})

	t.Run("stored at paid is a no-op", func(t *testing.T) {
		stake := store.NewAgentStake("0xf", "0xa")
		stake.StakedAmount = big.NewInt(1000)
		stake.RewardPerTokenPaid = store.TokenAmounts{"0x1": big.NewInt(7)}

		require.False(t, accrue(stake, "0x1", big.NewInt(7), 0))
		require.False(t, accrue(stake, "0x1", big.NewInt(3), 0))
		require.Zero(t, stake.Rewards.Get("0x1").Sign())
	})

	t.Run("zero stake moves paid only", func(t *testing.T) {
		stake := store.NewAgentStake("0xf", "0xa")

		require.True(t, accrue(stake, "0x1", big.NewInt(9), 0))
		require.Zero(t, stake.Rewards.Get("0x1").Sign())
		require.Equal(t, "9", stake.RewardPerTokenPaid.Get("0x1").String())
	})
}

func TestMaxBig(t *testing.T) {
	require.Equal(t, "5", maxBig(big.NewInt(5), big.NewInt(2)).String())
	require.Equal(t, "5", maxBig(nil, big.NewInt(5)).String())
	require.Equal(t, "0", maxBig(nil, nil).String())
}
