package handlers

import (
	"math/big"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
)

const (
	pairAddr = "0xb01"
	token0   = "0x10"
	token1   = "0x11"
	lpAgent  = "0xa9e47"
)

func setupPair(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t, staticTokens{
		token0: {Name: "Helium-3", Symbol: "He3", Decimals: 18, Resolved: true},
		token1: {Name: "Graphite", Symbol: "GPH", Decimals: 6, Resolved: true},
	})

	f.emit(ammFactoryAddr, "FactoryInitialized", 1000, map[string]any{
		"factory_address":          ammFactoryAddr,
		"owner":                    "0x1",
		"fee_to":                   "0x2",
		"pair_contract_class_hash": "0x3",
	})
	f.emit(ammFactoryAddr, "PairCreated", 1010, map[string]any{
		"token0":                   token0,
		"token1":                   token1,
		"pair":                     pairAddr,
		"total_pairs":              1,
		"pair_contract_class_hash": "0x3",
		"factory_address":          ammFactoryAddr,
		"game_session_id":          7,
	})

	return f
}

func liquidityPayload(amount0, amount1, liquidity, reserve0, reserve1, supply int64) map[string]any {
	return map[string]any{
		"sender":         lpAgent,
		"amount0":        amount0,
		"amount1":        amount1,
		"user_liquidity": liquidity,
		"reserve0":       reserve0,
		"reserve1":       reserve1,
		"total_supply":   supply,
	}
}

func TestPairCreated_RegistersChild(t *testing.T) {
	f := setupPair(t)

	kind, ok := f.d.Route(pairAddr)
	require.True(t, ok)
	require.Equal(t, indexer.KindPair, kind)

	f.view(func(tx *store.Tx) {
		factory, err := tx.GetAmmFactory(ammFactoryAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(1), factory.NumOfPairs)
		require.Equal(t, "0x1", factory.Owner)

		pair, err := tx.GetPair(pairAddr)
		require.NoError(t, err)
		require.Equal(t, "He3", pair.Token0Symbol)
		require.Equal(t, "GPH", pair.Token1Symbol)
		require.Equal(t, uint8(6), pair.Token1Decimals)
		require.Equal(t, uint64(7), pair.GameSessionID)
		require.Equal(t, uint64(1010), pair.BlockTimestampLast)
		require.Equal(t, int64(1010), pair.CreatedAt)

		reg, err := tx.GetRegisteredContract(pairAddr)
		require.NoError(t, err)
		require.Equal(t, "pair_00000b01", reg.Name)
		require.Equal(t, "pair_00000b01_events", reg.IndexName)
		require.Equal(t, indexer.KindPair.Template(), reg.Template)
		require.Equal(t, string(indexer.KindPair), reg.Kind)
	})
}

func TestPairCreated_Duplicate(t *testing.T) {
	f := setupPair(t)

	f.emit(ammFactoryAddr, "PairCreated", 1020, map[string]any{
		"token0":                   token0,
		"token1":                   token1,
		"pair":                     pairAddr,
		"total_pairs":              1,
		"pair_contract_class_hash": "0x3",
		"factory_address":          ammFactoryAddr,
		"game_session_id":          9,
	})

	f.view(func(tx *store.Tx) {
		pairs, err := tx.ListPairs()
		require.NoError(t, err)
		require.Len(t, pairs, 1)
		require.Equal(t, uint64(9), pairs[0].GameSessionID)

		contracts, err := tx.ListRegisteredContracts()
		require.NoError(t, err)
		require.Len(t, contracts, len(testRoots)+1)
	})
}

func TestPair_MintBurn(t *testing.T) {
	f := setupPair(t)

	f.emit(pairAddr, "Mint", 1100, liquidityPayload(100, 200, 50, 100, 200, 50))
	f.emit(pairAddr, "Burn", 1200, liquidityPayload(40, 80, 20, 60, 120, 30))

	f.view(func(tx *store.Tx) {
		pos, err := tx.GetLiquidityPosition(pairAddr, lpAgent)
		require.NoError(t, err)
		require.Equal(t, "30", pos.Liquidity.String())
		require.Equal(t, "100", pos.DepositsToken0.String())
		require.Equal(t, "200", pos.DepositsToken1.String())
		require.Equal(t, "40", pos.WithdrawalsToken0.String())
		require.Equal(t, "80", pos.WithdrawalsToken1.String())

		events, err := tx.ListLiquidityEvents(pairAddr)
		require.NoError(t, err)
		require.Len(t, events, 2)
		require.Equal(t, store.LiquidityMint, events[0].EventType)
		require.Equal(t, store.LiquidityBurn, events[1].EventType)
		require.Equal(t, pos.ID, events[1].PositionID)

		pair, err := tx.GetPair(pairAddr)
		require.NoError(t, err)
		require.Equal(t, "60", pair.Reserve0.String())
		require.Equal(t, "30", pair.TotalSupply.String())
	})
}

func TestPair_BurnClampsLiquidity(t *testing.T) {
	f := setupPair(t)

	f.emit(pairAddr, "Mint", 1100, liquidityPayload(10, 10, 10, 10, 10, 10))
	f.emit(pairAddr, "Burn", 1200, liquidityPayload(10, 10, 25, 0, 0, 0))

	f.view(func(tx *store.Tx) {
		pos, err := tx.GetLiquidityPosition(pairAddr, lpAgent)
		require.NoError(t, err)
		require.Zero(t, pos.Liquidity.Sign())
	})
}

func TestPair_SwapPriceImpact(t *testing.T) {
	f := setupPair(t)

	f.emit(pairAddr, "Sync", 1100, map[string]any{
		"reserve0":                1000,
		"reserve1":                1000,
		"balance0":                1000,
		"balance1":                1000,
		"price_0_cumulative_last": 0,
		"price_1_cumulative_last": 0,
		"factory_address":         ammFactoryAddr,
	})
	f.emit(pairAddr, "Swap", 1200, map[string]any{
		"sender":          lpAgent,
		"amount0_in":      100,
		"amount1_in":      0,
		"amount0_out":     0,
		"amount1_out":     90,
		"balance0":        1100,
		"balance1":        910,
		"reserve0":        1100,
		"reserve1":        910,
		"factory_address": ammFactoryAddr,
	})

	f.view(func(tx *store.Tx) {
		swaps, err := tx.ListSwapEvents(pairAddr)
		require.NoError(t, err)
		require.Len(t, swaps, 1)
		require.Equal(t, lpAgent, swaps[0].Recipient)
		require.NotNil(t, swaps[0].PriceImpact)
		require.InDelta(t, 1-997.0/1099.7, *swaps[0].PriceImpact, 1e-9)

		pair, err := tx.GetPair(pairAddr)
		require.NoError(t, err)
		require.Equal(t, "910", pair.Reserve1.String())
	})
}

func TestPriceImpact(t *testing.T) {
	b := big.NewInt
	zero := b(0)

	tests := []struct {
		name   string
		r0, r1 *big.Int
		in0    *big.Int
		in1    *big.Int
		out0   *big.Int
		out1   *big.Int
		want   *float64
	}{
		{name: "no direction", r0: b(10), r1: b(10), in0: zero, in1: zero, out0: zero, out1: zero},
		{name: "empty reserves", r0: zero, r1: b(10), in0: b(1), in1: zero, out0: zero, out1: b(1)},
		{
			name: "token1 in", r0: b(2000), r1: b(1000), in0: zero, in1: b(1000), out0: b(1), out1: zero,
			want: func() *float64 { v := 1 - 997.0/1997.0; return &v }(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := priceImpact(tt.r0, tt.r1, tt.in0, tt.in1, tt.out0, tt.out1)
			if tt.want == nil {
				require.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			require.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestPair_EventsBeforePairAreSkipped(t *testing.T) {
	f := newFixture(t, nil)

	f.emit(pairAddr, "Mint", 1100, liquidityPayload(1, 1, 1, 1, 1, 1))

	f.view(func(tx *store.Tx) {
		_, err := tx.GetLiquidityPosition(pairAddr, lpAgent)
		require.True(t, store.IsNotFound(err))
	})
}

func TestAmmFactory_ConfigUpdated(t *testing.T) {
	f := setupPair(t)

	f.emit(ammFactoryAddr, "ConfigUpdated", 1300, map[string]any{
		"field_name":      shortString(t, "fee_to"),
		"old_value":       "0x2",
		"new_value":       "0x22",
		"factory_address": ammFactoryAddr,
	})
	f.emit(ammFactoryAddr, "ConfigUpdated", 1400, map[string]any{
		"field_name":      3,
		"old_value":       0,
		"new_value":       5,
		"factory_address": ammFactoryAddr,
	})
	f.emit(ammFactoryAddr, "FeeToUpdated", 1500, map[string]any{
		"factory_address": ammFactoryAddr,
		"previous_fee_to": "0x22",
		"new_fee_to":      "0x23",
	})

	f.view(func(tx *store.Tx) {
		factory, err := tx.GetAmmFactory(ammFactoryAddr)
		require.NoError(t, err)
		require.Equal(t, "0x23", factory.FeeTo)
		require.Equal(t, uint64(5), factory.GameSessionID)
		require.Equal(t, store.ConfigHistory{
			{Field: "fee_to", OldValue: "0x2", NewValue: "0x22", Timestamp: 1300},
			{Field: "game_session_id", OldValue: "0", NewValue: "5", Timestamp: 1400},
			{Field: "fee_to", OldValue: "0x22", NewValue: "0x23", Timestamp: 1500},
		}, factory.ConfigHistory)
	})
}

func TestPairCreated_DefaultMetadata(t *testing.T) {
	f := newFixture(t, nil)

	f.emit(ammFactoryAddr, "FactoryInitialized", 1000, map[string]any{
		"factory_address":          ammFactoryAddr,
		"owner":                    "0x1",
		"fee_to":                   "0x2",
		"pair_contract_class_hash": "0x3",
	})
	f.emit(ammFactoryAddr, "PairCreated", 1010, map[string]any{
		"token0":                   token0,
		"token1":                   token1,
		"pair":                     pairAddr,
		"total_pairs":              1,
		"pair_contract_class_hash": "0x3",
		"factory_address":          ammFactoryAddr,
		"game_session_id":          1,
	})

	f.view(func(tx *store.Tx) {
		pair, err := tx.GetPair(pairAddr)
		require.NoError(t, err)
		require.Equal(t, tokens.DefaultSymbol, pair.Token0Symbol)
		require.Equal(t, uint8(tokens.DefaultDecimals), pair.Token0Decimals)
	})
}
