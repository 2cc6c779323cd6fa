package handlers

import (
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

func TestConfigTable_Field(t *testing.T) {
	named := func(s string) starknet.Felt {
		f, err := starknet.EncodeShortString(s)
		require.NoError(t, err)
		return f
	}

	tests := []struct {
		name string
		id   starknet.Felt
		want ConfigField
	}{
		{name: "by name", id: named("penalty_receiver"), want: ConfigField{Ordinal: 4, Name: "penalty_receiver"}},
		{name: "by ordinal", id: starknet.FeltFromUint64(1), want: ConfigField{Ordinal: 1, Name: "multiplier"}},
		{name: "unknown name", id: named("color"), want: ConfigField{Ordinal: FieldUnknown, Name: "color"}},
		{
			name: "ordinal out of range", id: starknet.FeltFromUint64(17),
			want: ConfigField{Ordinal: FieldUnknown, Name: "0x11"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := farmConfig.field(tt.id)
			require.Equal(t, tt.want, got)
			require.Equal(t, tt.want.Ordinal != FieldUnknown, got.Known())
		})
	}
}

func TestConfigTable_Apply(t *testing.T) {
	farm := &store.Farm{PenaltyDuration: 60}

	field, err := farmConfig.apply(farm, &farm.ConfigHistory, "farm",
		starknet.FeltFromUint64(2), starknet.FeltFromUint64(60), starknet.FeltFromUint64(120), 10)
	require.NoError(t, err)
	require.True(t, field.Known())
	require.Equal(t, uint64(120), farm.PenaltyDuration)

	_, err = farmConfig.apply(farm, &farm.ConfigHistory, "farm",
		starknet.FeltFromUint64(0), starknet.FeltFromUint64(0), starknet.FeltFromUint64(1), 11)
	require.NoError(t, err)
	require.True(t, farm.Locked)

	// unknown fields render as integers
	field, err = farmConfig.apply(farm, &farm.ConfigHistory, "farm",
		starknet.FeltFromUint64(7), starknet.MustParseFelt("0xab"), starknet.MustParseFelt("0xcd"), 12)
	require.NoError(t, err)
	require.False(t, field.Known())

	require.Equal(t, store.ConfigHistory{
		{Field: "penalty_duration", OldValue: "60", NewValue: "120", Timestamp: 10},
		{Field: "locked", OldValue: "false", NewValue: "true", Timestamp: 11},
		{Field: "0x7", OldValue: "171", NewValue: "205", Timestamp: 12},
	}, farm.ConfigHistory)
}

func TestConfigTable_ApplyRejectsUint64Overflow(t *testing.T) {
	farm := &store.Farm{PenaltyDuration: 60, GameSessionID: 3}
	huge := starknet.MustParseFelt("0x10000000000000000")

	tests := []struct {
		name string
		id   uint64
	}{
		{name: "penalty_duration", id: 2},
		{name: "game_session_id", id: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, err := farmConfig.apply(farm, &farm.ConfigHistory, "farm",
				starknet.FeltFromUint64(tt.id), starknet.FeltFromUint64(1), huge, 10)
			require.ErrorContains(t, err, "overflows uint64")
			require.Equal(t, tt.name, field.Name)
		})
	}

	require.Equal(t, uint64(60), farm.PenaltyDuration)
	require.Equal(t, uint64(3), farm.GameSessionID)
	require.Empty(t, farm.ConfigHistory)

	// wide integer fields take any felt
	_, err := farmConfig.apply(farm, &farm.ConfigHistory, "farm",
		starknet.FeltFromUint64(3), starknet.FeltFromUint64(0), huge, 11)
	require.NoError(t, err)
	require.Equal(t, "18446744073709551616", farm.WithdrawPenalty.String())
	require.Len(t, farm.ConfigHistory, 1)
}

func TestSetUint64(t *testing.T) {
	v := uint64(5)
	setUint64(&v, starknet.FeltFromUint64(9))
	require.Equal(t, uint64(9), v)

	setUint64(&v, starknet.MustParseFelt("0x10000000000000000"))
	require.Equal(t, uint64(9), v)
}
