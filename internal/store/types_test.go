package store

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressSet(t *testing.T) {
	var s AddressSet
	require.True(t, s.Add("0x1"))
	require.True(t, s.Add("0x2"))
	require.False(t, s.Add("0x1"))
	require.True(t, s.Add("0x3"))
	require.Equal(t, AddressSet{"0x1", "0x2", "0x3"}, s)

	require.True(t, s.Remove("0x2"))
	require.False(t, s.Remove("0x2"))
	require.Equal(t, AddressSet{"0x1", "0x3"}, s)

	var empty AddressSet
	b, err := json.Marshal(empty)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(b))
}

func TestConfigHistory(t *testing.T) {
	var h ConfigHistory
	_, ok := h.Last()
	require.False(t, ok)

	b, err := json.Marshal(h)
	require.NoError(t, err)
	require.JSONEq(t, `[]`, string(b))

	h.Append("owner", "0x1", "0x2", 10)
	h.Append("fee_to", "0x0", "0x3", 11)

	last, ok := h.Last()
	require.True(t, ok)
	require.Equal(t, ConfigChange{Field: "fee_to", OldValue: "0x0", NewValue: "0x3", Timestamp: 11}, last)
}

func TestTokenAmountsJSON(t *testing.T) {
	huge, _ := new(big.Int).SetString("115792089237316195423570985008687907853269984665640564039457584007913129639935", 10)
	m := TokenAmounts{"0xa": huge, "0xb": big.NewInt(1)}

	b, err := json.Marshal(m)
	require.NoError(t, err)
	require.Contains(t, string(b), `"0xa":"1157920892373161954235709850086879078532699846656405640394575840`)

	var back TokenAmounts
	require.NoError(t, json.Unmarshal(b, &back))
	require.Equal(t, 0, huge.Cmp(back.Get("0xa")))
	require.Equal(t, []string{"0xa", "0xb"}, back.Tokens())

	require.Error(t, json.Unmarshal([]byte(`{"0xa":"nope"}`), &back))
}

func TestActiveRewardJSON(t *testing.T) {
	in := ActiveRewards{"0xt": {RewardRate: big.NewInt(3), PeriodFinish: big.NewInt(9)}}

	b, err := json.Marshal(in)
	require.NoError(t, err)
	require.JSONEq(t, `{"0xt":{"reward_rate":"3","reward_duration":"0","period_finish":"9","reward_per_token_stored":"0"}}`, string(b))

	var out ActiveRewards
	require.NoError(t, json.Unmarshal(b, &out))
	require.Equal(t, "9", out["0xt"].PeriodFinish.String())
	require.Equal(t, "0", out["0xt"].RewardPerTokenStored.String())
}
