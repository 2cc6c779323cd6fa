package store

import "math/big"

// Table names.
const (
	TableSyncState           = "sync_state"
	TableRegisteredContracts = "registered_contracts"
	TableAmmFactories        = "amm_factories"
	TablePairs               = "pairs"
	TableLiquidityPositions  = "liquidity_positions"
	TableLiquidityEvents     = "liquidity_events"
	TableSwapEvents          = "swap_events"
	TableFarmFactories       = "farm_factories"
	TableFarms               = "farms"
	TableRewarders           = "rewarders"
	TableAgentStakes         = "agent_stakes"
	TableRewards             = "rewards"
	TableRewardPerAgent      = "reward_per_agent"
	TableAgentStakeEvents    = "agent_stake_events"
	TableRewardEvents        = "reward_events"
	TableFaucetFactories     = "faucet_factories"
	TableFaucets             = "faucets"
	TableFaucetTokens        = "faucet_tokens"
	TableWhitelistedUsers    = "whitelisted_users"
	TableClaimEvents         = "claim_events"
	TableGameFactories       = "game_factories"
	TableGameSessions        = "game_sessions"
	TableAgents              = "agents"
	TableStakeWindows        = "stake_windows"
	TableUserDeposits        = "user_deposits"
	TableGameEvents          = "game_events"
	TableAgentScores         = "agent_scores"
)

// Event log types.
const (
	LiquidityMint = "MINT"
	LiquidityBurn = "BURN"

	StakeDeposit  = "DEPOSIT"
	StakeWithdraw = "WITHDRAW"

	RewardAdded              = "REWARD_ADDED"
	RewardHarvest            = "HARVEST"
	RewardUnallocatedClaimed = "UNALLOCATED_CLAIMED"

	GameInitialized       = "GAME_INITIALIZED"
	GameUserDeposited     = "USER_DEPOSITED"
	GameEmergencyWithdraw = "EMERGENCY_WITHDRAW"
	GameRewardsClaimed    = "REWARDS_CLAIMED"
	GameSuspended         = "GAME_SUSPENDED"
	GameOver              = "GAME_OVER"
)

// SyncState is the single-row indexing cursor.
type SyncState struct {
	ID                 int64  `meddler:"id,pk"`
	LastProcessedBlock uint64 `meddler:"last_processed_block"`
	UpdatedAt          int64  `meddler:"updated_at"`
}

// RegisteredContract is a contract whose events are routed to handlers.
type RegisteredContract struct {
	ID             int64  `meddler:"id,pk"`
	Address        string `meddler:"address"`
	Name           string `meddler:"name"`
	Kind           string `meddler:"kind"`
	IndexName      string `meddler:"index_name"`
	Template       string `meddler:"template"`
	CreatedAtBlock uint64 `meddler:"created_at_block"`
	CreatedAt      int64  `meddler:"created_at"`
}

// AMM

type AmmFactory struct {
	ID                    int64         `meddler:"id,pk"`
	Address               string        `meddler:"address"`
	Owner                 string        `meddler:"owner"`
	FeeTo                 string        `meddler:"fee_to"`
	PairContractClassHash string        `meddler:"pair_contract_class_hash"`
	NumOfPairs            uint64        `meddler:"num_of_pairs"`
	GameSessionID         uint64        `meddler:"game_session_id"`
	ConfigHistory         ConfigHistory `meddler:"config_history,json"`
	CreatedAt             int64         `meddler:"created_at"`
	UpdatedAt             int64         `meddler:"updated_at"`
}

type Pair struct {
	ID                   int64         `meddler:"id,pk"`
	Address              string        `meddler:"address"`
	FactoryAddress       string        `meddler:"factory_address"`
	Token0Address        string        `meddler:"token0_address"`
	Token1Address        string        `meddler:"token1_address"`
	Token0Symbol         string        `meddler:"token0_symbol"`
	Token1Symbol         string        `meddler:"token1_symbol"`
	Token0Decimals       uint8         `meddler:"token0_decimals"`
	Token1Decimals       uint8         `meddler:"token1_decimals"`
	Reserve0             *big.Int      `meddler:"reserve0,u256"`
	Reserve1             *big.Int      `meddler:"reserve1,u256"`
	TotalSupply          *big.Int      `meddler:"total_supply,u256"`
	KLast                *big.Int      `meddler:"klast,u256"`
	Price0CumulativeLast *big.Int      `meddler:"price_0_cumulative_last,u256"`
	Price1CumulativeLast *big.Int      `meddler:"price_1_cumulative_last,u256"`
	BlockTimestampLast   uint64        `meddler:"block_timestamp_last"`
	GameSessionID        uint64        `meddler:"game_session_id"`
	ConfigHistory        ConfigHistory `meddler:"config_history,json"`
	CreatedAt            int64         `meddler:"created_at"`
	UpdatedAt            int64         `meddler:"updated_at"`
}

type LiquidityPosition struct {
	ID                int64    `meddler:"id,pk"`
	PairAddress       string   `meddler:"pair_address"`
	AgentAddress      string   `meddler:"agent_address"`
	Liquidity         *big.Int `meddler:"liquidity,u256"`
	DepositsToken0    *big.Int `meddler:"deposits_token0,u256"`
	DepositsToken1    *big.Int `meddler:"deposits_token1,u256"`
	WithdrawalsToken0 *big.Int `meddler:"withdrawals_token0,u256"`
	WithdrawalsToken1 *big.Int `meddler:"withdrawals_token1,u256"`
	CreatedAt         int64    `meddler:"created_at"`
	UpdatedAt         int64    `meddler:"updated_at"`
}

type LiquidityEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	EventType       string   `meddler:"event_type"`
	PairAddress     string   `meddler:"pair_address"`
	PositionID      int64    `meddler:"position_id"`
	Sender          string   `meddler:"sender"`
	Amount0         *big.Int `meddler:"amount0,u256"`
	Amount1         *big.Int `meddler:"amount1,u256"`
	Liquidity       *big.Int `meddler:"liquidity,u256"`
}

type SwapEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	BlockNumber     uint64   `meddler:"block_number"`
	PairAddress     string   `meddler:"pair_address"`
	Sender          string   `meddler:"sender"`
	Recipient       string   `meddler:"recipient"`
	Amount0In       *big.Int `meddler:"amount0_in,u256"`
	Amount1In       *big.Int `meddler:"amount1_in,u256"`
	Amount0Out      *big.Int `meddler:"amount0_out,u256"`
	Amount1Out      *big.Int `meddler:"amount1_out,u256"`
	PriceImpact     *float64 `meddler:"price_impact"`
}

// Farming

type FarmFactory struct {
	ID            int64         `meddler:"id,pk"`
	Address       string        `meddler:"address"`
	Owner         string        `meddler:"owner"`
	FarmClassHash string        `meddler:"farm_class_hash"`
	FarmCount     uint64        `meddler:"farm_count"`
	GameSessionID uint64        `meddler:"game_session_id"`
	ConfigHistory ConfigHistory `meddler:"config_history,json"`
	CreatedAt     int64         `meddler:"created_at"`
	UpdatedAt     int64         `meddler:"updated_at"`
}

type Farm struct {
	ID                  int64         `meddler:"id,pk"`
	Address             string        `meddler:"address"`
	FactoryAddress      string        `meddler:"factory_address"`
	LPTokenAddress      string        `meddler:"lp_token_address"`
	FarmIndex           uint64        `meddler:"farm_index"`
	GameSessionID       uint64        `meddler:"game_session_id"`
	Owner               string        `meddler:"owner"`
	TotalStaked         *big.Int      `meddler:"total_staked,u256"`
	Multiplier          *big.Int      `meddler:"multiplier,u256"`
	PenaltyDuration     uint64        `meddler:"penalty_duration"`
	WithdrawPenalty     *big.Int      `meddler:"withdraw_penalty,u256"`
	PenaltyReceiver     string        `meddler:"penalty_receiver"`
	Locked              bool          `meddler:"locked"`
	ActiveRewards       ActiveRewards `meddler:"active_rewards,json"`
	RewardTokens        AddressSet    `meddler:"reward_tokens,json"`
	AuthorizedRewarders AddressSet    `meddler:"authorized_rewarders,json"`
	ConfigHistory       ConfigHistory `meddler:"config_history,json"`
	CreatedAt           int64         `meddler:"created_at"`
	UpdatedAt           int64         `meddler:"updated_at"`
}

type Rewarder struct {
	ID           int64  `meddler:"id,pk"`
	FarmAddress  string `meddler:"farm_address"`
	Address      string `meddler:"address"`
	IsAuthorized bool   `meddler:"is_authorized"`
	CreatedAt    int64  `meddler:"created_at"`
	UpdatedAt    int64  `meddler:"updated_at"`
}

type AgentStake struct {
	ID                 int64        `meddler:"id,pk"`
	FarmAddress        string       `meddler:"farm_address"`
	AgentAddress       string       `meddler:"agent_address"`
	StakedAmount       *big.Int     `meddler:"staked_amount,u256"`
	PenaltyEndTime     uint64       `meddler:"penalty_end_time"`
	RewardPerTokenPaid TokenAmounts `meddler:"reward_per_token_paid,json"`
	Rewards            TokenAmounts `meddler:"rewards,json"`
	CreatedAt          int64        `meddler:"created_at"`
	UpdatedAt          int64        `meddler:"updated_at"`
}

type Reward struct {
	ID                   int64    `meddler:"id,pk"`
	FarmAddress          string   `meddler:"farm_address"`
	TokenAddress         string   `meddler:"token_address"`
	TokenDecimals        uint8    `meddler:"token_decimals"`
	RewardRate           *big.Int `meddler:"reward_rate,u256"`
	RewardDuration       *big.Int `meddler:"reward_duration,u256"`
	PeriodFinish         *big.Int `meddler:"period_finish,u256"`
	RewardPerTokenStored *big.Int `meddler:"reward_per_token_stored,u256"`
	UnallocatedRewards   *big.Int `meddler:"unallocated_rewards,u256"`
	RemainingAmount      *big.Int `meddler:"remaining_amount,u256"`
	CreatedAt            int64    `meddler:"created_at"`
	UpdatedAt            int64    `meddler:"updated_at"`
}

type RewardPerAgent struct {
	ID                 int64    `meddler:"id,pk"`
	AgentAddress       string   `meddler:"agent_address"`
	TokenAddress       string   `meddler:"token_address"`
	FarmAddress        string   `meddler:"farm_address"`
	RewardPerTokenPaid *big.Int `meddler:"reward_per_token_paid,u256"`
	LastPendingRewards *big.Int `meddler:"last_pending_rewards,u256"`
	CreatedAt          int64    `meddler:"created_at"`
	UpdatedAt          int64    `meddler:"updated_at"`
}

type AgentStakeEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	EventType       string   `meddler:"event_type"`
	FarmAddress     string   `meddler:"farm_address"`
	AgentAddress    string   `meddler:"agent_address"`
	StakedAmount    *big.Int `meddler:"staked_amount,u256"`
	PenaltyAmount   *big.Int `meddler:"penalty_amount,u256"`
}

type RewardEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	EventType       string   `meddler:"event_type"`
	FarmAddress     string   `meddler:"farm_address"`
	AgentAddress    string   `meddler:"agent_address"`
	RewardToken     string   `meddler:"reward_token"`
	RewardAmount    *big.Int `meddler:"reward_amount,u256"`
	RewardRate      *big.Int `meddler:"reward_rate,u256"`
	RewardDuration  *big.Int `meddler:"reward_duration,u256"`
	PeriodFinish    *big.Int `meddler:"period_finish,u256"`
}

// Faucets

type FaucetFactory struct {
	ID              int64         `meddler:"id,pk"`
	Address         string        `meddler:"address"`
	Owner           string        `meddler:"owner"`
	FaucetClassHash string        `meddler:"faucet_class_hash"`
	FaucetCount     uint64        `meddler:"faucet_count"`
	GameSessionID   uint64        `meddler:"game_session_id"`
	ConfigHistory   ConfigHistory `meddler:"config_history,json"`
	CreatedAt       int64         `meddler:"created_at"`
	UpdatedAt       int64         `meddler:"updated_at"`
}

type Faucet struct {
	ID             int64         `meddler:"id,pk"`
	Address        string        `meddler:"address"`
	FactoryAddress string        `meddler:"factory_address"`
	FaucetIndex    uint64        `meddler:"faucet_index"`
	Owner          string        `meddler:"owner"`
	ClaimInterval  uint64        `meddler:"claim_interval"`
	GameSessionID  uint64        `meddler:"game_session_id"`
	TokensList     AddressSet    `meddler:"tokens_list,json"`
	ConfigHistory  ConfigHistory `meddler:"config_history,json"`
	CreatedAt      int64         `meddler:"created_at"`
	UpdatedAt      int64         `meddler:"updated_at"`
}

type FaucetToken struct {
	ID            int64    `meddler:"id,pk"`
	FaucetAddress string   `meddler:"faucet_address"`
	TokenAddress  string   `meddler:"token_address"`
	Amount        *big.Int `meddler:"amount,u256"`
	ClaimAmount   *big.Int `meddler:"claim_amount,u256"`
	ClaimedAmount *big.Int `meddler:"claimed_amount,u256"`
	CreatedAt     int64    `meddler:"created_at"`
	UpdatedAt     int64    `meddler:"updated_at"`
}

type WhitelistedUser struct {
	ID            int64  `meddler:"id,pk"`
	FaucetAddress string `meddler:"faucet_address"`
	UserAddress   string `meddler:"user_address"`
	IsWhitelisted bool   `meddler:"is_whitelisted"`
	LastClaim     uint64 `meddler:"last_claim"`
	CreatedAt     int64  `meddler:"created_at"`
	UpdatedAt     int64  `meddler:"updated_at"`
}

type ClaimEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	FaucetAddress   string   `meddler:"faucet_address"`
	UserAddress     string   `meddler:"user_address"`
	TokenAddress    string   `meddler:"token_address"`
	Amount          *big.Int `meddler:"amount,u256"`
}

// Games

type GameFactory struct {
	ID                   int64         `meddler:"id,pk"`
	Address              string        `meddler:"address"`
	Owner                string        `meddler:"owner"`
	GameSessionClassHash string        `meddler:"game_session_class_hash"`
	GameSessionCount     uint64        `meddler:"game_session_count"`
	ConfigHistory        ConfigHistory `meddler:"config_history,json"`
	CreatedAt            int64         `meddler:"created_at"`
	UpdatedAt            int64         `meddler:"updated_at"`
}

type GameSession struct {
	ID                         int64         `meddler:"id,pk"`
	Address                    string        `meddler:"address"`
	FactoryAddress             string        `meddler:"factory_address"`
	GameSessionIndex           uint64        `meddler:"game_session_index"`
	Owner                      string        `meddler:"owner"`
	UserStakeTokenAddress      string        `meddler:"user_stake_token_address"`
	StakeTokenName             string        `meddler:"stake_token_name"`
	StakeTokenSymbol           string        `meddler:"stake_token_symbol"`
	StakeTokenDecimals         uint8         `meddler:"stake_token_decimals"`
	TokenWinConditionAddress   string        `meddler:"token_win_condition_address"`
	WinTokenName               string        `meddler:"win_token_name"`
	WinTokenSymbol             string        `meddler:"win_token_symbol"`
	WinTokenDecimals           uint8         `meddler:"win_token_decimals"`
	TokenWinConditionThreshold *big.Int      `meddler:"token_win_condition_threshold,u256"`
	BurnFeePercentage          uint64        `meddler:"burn_fee_percentage"`
	PlatformFeePercentage      uint64        `meddler:"platform_fee_percentage"`
	FeeRecipient               string        `meddler:"fee_recipient"`
	NumberOfStakeWindows       uint64        `meddler:"number_of_stake_windows"`
	NumberOfAgents             uint64        `meddler:"number_of_agents"`
	CurrentWindowIndex         uint64        `meddler:"current_window_index"`
	GameSuspended              bool          `meddler:"game_suspended"`
	GameOver                   bool          `meddler:"game_over"`
	WinningAgentIndex          *uint64       `meddler:"winning_agent_index"`
	TotalRewards               *big.Int      `meddler:"total_rewards,u256"`
	BurnFeeAmount              *big.Int      `meddler:"burn_fee_amount,u256"`
	PlatformFeeAmount          *big.Int      `meddler:"platform_fee_amount,u256"`
	TotalFeesAmount            *big.Int      `meddler:"total_fees_amount,u256"`
	ConfigHistory              ConfigHistory `meddler:"config_history,json"`
	EndedAt                    int64         `meddler:"ended_at"`
	CreatedAt                  int64         `meddler:"created_at"`
	UpdatedAt                  int64         `meddler:"updated_at"`
}

// Active reports whether the session is neither suspended nor over.
func (s *GameSession) Active() bool {
	return !s.GameSuspended && !s.GameOver
}

type Agent struct {
	ID             int64    `meddler:"id,pk"`
	Address        string   `meddler:"address"`
	SessionAddress string   `meddler:"session_address"`
	AgentIndex     uint64   `meddler:"agent_index"`
	TotalDeposited *big.Int `meddler:"total_deposited,u256"`
	TotalScore     *big.Int `meddler:"total_score,u256"`
	CreatedAt      int64    `meddler:"created_at"`
	UpdatedAt      int64    `meddler:"updated_at"`
}

type StakeWindow struct {
	ID             int64  `meddler:"id,pk"`
	SessionAddress string `meddler:"session_address"`
	WindowIndex    uint64 `meddler:"window_index"`
	StartTime      uint64 `meddler:"start_time"`
	EndTime        uint64 `meddler:"end_time"`
	IsActive       bool   `meddler:"is_active"`
	CreatedAt      int64  `meddler:"created_at"`
	UpdatedAt      int64  `meddler:"updated_at"`
}

type UserDeposit struct {
	ID               int64    `meddler:"id,pk"`
	SessionAddress   string   `meddler:"session_address"`
	UserAddress      string   `meddler:"user_address"`
	AgentIndex       uint64   `meddler:"agent_index"`
	Amount           *big.Int `meddler:"amount,u256"`
	AccumulatedScore *big.Int `meddler:"accumulated_score,u256"`
	LastScoreUpdate  int64    `meddler:"last_score_update"`
	CreatedAt        int64    `meddler:"created_at"`
	UpdatedAt        int64    `meddler:"updated_at"`
}

type GameEvent struct {
	ID              int64    `meddler:"id,pk"`
	TransactionHash string   `meddler:"transaction_hash"`
	CreatedAt       int64    `meddler:"created_at"`
	EventType       string   `meddler:"event_type"`
	SessionAddress  string   `meddler:"session_address"`
	UserAddress     string   `meddler:"user_address"`
	AgentIndex      *uint64  `meddler:"agent_index"`
	Amount          *big.Int `meddler:"amount,u256"`
}

type AgentScore struct {
	ID                   int64          `meddler:"id,pk"`
	AgentAddress         string         `meddler:"agent_address"`
	SessionAddress       string         `meddler:"session_address"`
	AgentIndex           uint64         `meddler:"agent_index"`
	ResourceBalanceScore float64        `meddler:"resource_balance_score"`
	LPPositionScore      float64        `meddler:"lp_position_score"`
	FarmingScore         float64        `meddler:"farming_score"`
	TotalScore           float64        `meddler:"total_score"`
	ScoreBreakdown       ScoreBreakdown `meddler:"score_breakdown,json"`
	LastCalculatedAt     int64          `meddler:"last_calculated_at"`
}
