package store

import (
	"encoding/json"
	"fmt"
	"math/big"
	"sort"
)

// ConfigChange is one entry of an entity's configuration audit trail.
type ConfigChange struct {
	Field     string `json:"field"`
	OldValue  string `json:"old_value"`
	NewValue  string `json:"new_value"`
	Timestamp uint64 `json:"timestamp"`
}

// ConfigHistory is an append-only list of configuration changes.
type ConfigHistory []ConfigChange

// Append adds a change to the end of the history.
func (h *ConfigHistory) Append(field, oldValue, newValue string, ts uint64) {
	*h = append(*h, ConfigChange{Field: field, OldValue: oldValue, NewValue: newValue, Timestamp: ts})
}

// Last returns the most recent change, if any.
func (h ConfigHistory) Last() (ConfigChange, bool) {
	if len(h) == 0 {
		return ConfigChange{}, false
	}
	return h[len(h)-1], true
}

func (h ConfigHistory) MarshalJSON() ([]byte, error) {
	if h == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]ConfigChange(h))
}

// AddressSet is an ordered set of addresses without duplicates.
type AddressSet []string

// Add appends addr unless it is already present. It reports whether the set changed.
func (s *AddressSet) Add(addr string) bool {
	if s.Contains(addr) {
		return false
	}
	*s = append(*s, addr)
	return true
}

// Remove deletes addr from the set, keeping the order of the remaining entries.
func (s *AddressSet) Remove(addr string) bool {
	for i, a := range *s {
		if a == addr {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

func (s AddressSet) Contains(addr string) bool {
	for _, a := range s {
		if a == addr {
			return true
		}
	}
	return false
}

func (s AddressSet) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(s))
}

// TokenAmounts maps a token address to a 256-bit amount.
// Amounts are serialized as decimal strings.
type TokenAmounts map[string]*big.Int

// Get returns a copy of the amount for token, zero when absent.
func (m TokenAmounts) Get(token string) *big.Int {
	if v, ok := m[token]; ok && v != nil {
		return new(big.Int).Set(v)
	}
	return new(big.Int)
}

// Set stores a copy of v under token. The map must be non-nil.
func (m TokenAmounts) Set(token string, v *big.Int) {
	m[token] = new(big.Int).Set(v)
}

func (m TokenAmounts) MarshalJSON() ([]byte, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = bigString(v)
	}
	return json.Marshal(out)
}

func (m *TokenAmounts) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*m = make(TokenAmounts, len(raw))
	for k, s := range raw {
		v, err := parseBig(s)
		if err != nil {
			return fmt.Errorf("token %s: %w", k, err)
		}
		(*m)[k] = v
	}
	return nil
}

// Tokens returns the map keys in sorted order.
func (m TokenAmounts) Tokens() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ActiveReward is the farm-level snapshot of one reward token's schedule.
type ActiveReward struct {
	RewardRate           *big.Int
	RewardDuration       *big.Int
	PeriodFinish         *big.Int
	RewardPerTokenStored *big.Int
}

type activeRewardJSON struct {
	RewardRate           string `json:"reward_rate"`
	RewardDuration       string `json:"reward_duration"`
	PeriodFinish         string `json:"period_finish"`
	RewardPerTokenStored string `json:"reward_per_token_stored"`
}

func (a ActiveReward) MarshalJSON() ([]byte, error) {
	return json.Marshal(activeRewardJSON{
		RewardRate:           bigString(a.RewardRate),
		RewardDuration:       bigString(a.RewardDuration),
		PeriodFinish:         bigString(a.PeriodFinish),
		RewardPerTokenStored: bigString(a.RewardPerTokenStored),
	})
}

func (a *ActiveReward) UnmarshalJSON(data []byte) error {
	var raw activeRewardJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var err error
	if a.RewardRate, err = parseBig(raw.RewardRate); err != nil {
		return err
	}
	if a.RewardDuration, err = parseBig(raw.RewardDuration); err != nil {
		return err
	}
	if a.PeriodFinish, err = parseBig(raw.PeriodFinish); err != nil {
		return err
	}
	a.RewardPerTokenStored, err = parseBig(raw.RewardPerTokenStored)
	return err
}

// ActiveRewards maps a reward token address to its schedule.
type ActiveRewards map[string]ActiveReward

func (m ActiveRewards) MarshalJSON() ([]byte, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]ActiveReward(m))
}

// ScoreBreakdown is the per-source detail stored next to an agent score.
type ScoreBreakdown struct {
	ResourceBalances     map[string]BalanceScore    `json:"resource_balances"`
	LPPositions          map[string]BalanceScore    `json:"lp_positions"`
	FarmingActivities    map[string]FarmingActivity `json:"farming_activities"`
	CalculationTimestamp int64                      `json:"calculation_timestamp"`
}

// BalanceScore is one weighted balance contribution.
type BalanceScore struct {
	Symbol   string  `json:"symbol"`
	Balance  string  `json:"balance"`
	Decimals uint8   `json:"decimals"`
	Weight   float64 `json:"weight"`
	Score    float64 `json:"score"`
}

// FarmingActivity holds the earned rewards of one farm.
type FarmingActivity struct {
	Rewards map[string]BalanceScore `json:"rewards"`
	Score   float64                 `json:"score"`
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10) //nolint:mnd
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
