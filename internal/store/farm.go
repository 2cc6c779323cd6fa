package store

import "math/big"

func (tx *Tx) GetFarmFactory(address string) (*FarmFactory, error) {
	return getOne[FarmFactory](tx.q, `SELECT * FROM farm_factories WHERE address = ?`, address)
}

func (tx *Tx) SaveFarmFactory(f *FarmFactory) error {
	return tx.save(TableFarmFactories, f, &f.CreatedAt, &f.UpdatedAt)
}

func (tx *Tx) GetFarm(address string) (*Farm, error) {
	return getOne[Farm](tx.q, `SELECT * FROM farms WHERE address = ?`, address)
}

func (tx *Tx) SaveFarm(f *Farm) error {
	return tx.save(TableFarms, f, &f.CreatedAt, &f.UpdatedAt)
}

// ListFarmsBySession returns the farms bound to a game session index.
func (tx *Tx) ListFarmsBySession(sessionID uint64) ([]*Farm, error) {
	return getAll[Farm](tx.q, `SELECT * FROM farms WHERE game_session_id = ? ORDER BY id ASC`, sessionID)
}

func (tx *Tx) GetRewarder(farm, address string) (*Rewarder, error) {
	return getOne[Rewarder](tx.q, `SELECT * FROM rewarders WHERE farm_address = ? AND address = ?`, farm, address)
}

func (tx *Tx) SaveRewarder(r *Rewarder) error {
	return tx.save(TableRewarders, r, &r.CreatedAt, &r.UpdatedAt)
}

func (tx *Tx) GetAgentStake(farm, agent string) (*AgentStake, error) {
	return getOne[AgentStake](tx.q,
		`SELECT * FROM agent_stakes WHERE farm_address = ? AND agent_address = ?`, farm, agent)
}

// NewAgentStake returns an empty, unsaved stake.
func NewAgentStake(farm, agent string) *AgentStake {
	return &AgentStake{
		FarmAddress:        farm,
		AgentAddress:       agent,
		StakedAmount:       new(big.Int),
		RewardPerTokenPaid: TokenAmounts{},
		Rewards:            TokenAmounts{},
	}
}

func (tx *Tx) SaveAgentStake(s *AgentStake) error {
	return tx.save(TableAgentStakes, s, &s.CreatedAt, &s.UpdatedAt)
}

// ListAgentStakes returns every stake of farm.
func (tx *Tx) ListAgentStakes(farm string) ([]*AgentStake, error) {
	return getAll[AgentStake](tx.q, `SELECT * FROM agent_stakes WHERE farm_address = ? ORDER BY id ASC`, farm)
}

// AgentStakeExists reports whether agent has ever staked in farm.
func (tx *Tx) AgentStakeExists(farm, agent string) (bool, error) {
	return tx.exists(`SELECT 1 FROM agent_stakes WHERE farm_address = ? AND agent_address = ?`, farm, agent)
}

func (tx *Tx) GetReward(farm, token string) (*Reward, error) {
	return getOne[Reward](tx.q, `SELECT * FROM rewards WHERE farm_address = ? AND token_address = ?`, farm, token)
}

// NewReward returns an empty, unsaved reward schedule.
func NewReward(farm, token string, decimals uint8) *Reward {
	return &Reward{
		FarmAddress:          farm,
		TokenAddress:         token,
		TokenDecimals:        decimals,
		RewardRate:           new(big.Int),
		RewardDuration:       new(big.Int),
		PeriodFinish:         new(big.Int),
		RewardPerTokenStored: new(big.Int),
		UnallocatedRewards:   new(big.Int),
		RemainingAmount:      new(big.Int),
	}
}

func (tx *Tx) SaveReward(r *Reward) error {
	return tx.save(TableRewards, r, &r.CreatedAt, &r.UpdatedAt)
}

func (tx *Tx) ListRewards(farm string) ([]*Reward, error) {
	return getAll[Reward](tx.q, `SELECT * FROM rewards WHERE farm_address = ? ORDER BY id ASC`, farm)
}

func (tx *Tx) GetRewardPerAgent(agent, token, farm string) (*RewardPerAgent, error) {
	return getOne[RewardPerAgent](tx.q,
		`SELECT * FROM reward_per_agent WHERE agent_address = ? AND token_address = ? AND farm_address = ?`,
		agent, token, farm)
}

// UpsertRewardPerAgent writes the pending rewards cache of one agent and token.
func (tx *Tx) UpsertRewardPerAgent(agent, token, farm string, paid, pending *big.Int) error {
	row, err := tx.GetRewardPerAgent(agent, token, farm)
	if IsNotFound(err) {
		row = &RewardPerAgent{AgentAddress: agent, TokenAddress: token, FarmAddress: farm}
	} else if err != nil {
		return err
	}

	row.RewardPerTokenPaid = new(big.Int).Set(paid)
	row.LastPendingRewards = new(big.Int).Set(pending)

	return tx.save(TableRewardPerAgent, row, &row.CreatedAt, &row.UpdatedAt)
}

func (tx *Tx) InsertAgentStakeEvent(e *AgentStakeEvent) error {
	return tx.insert(TableAgentStakeEvents, e)
}

func (tx *Tx) ListAgentStakeEvents(farm string) ([]*AgentStakeEvent, error) {
	return getAll[AgentStakeEvent](tx.q,
		`SELECT * FROM agent_stake_events WHERE farm_address = ? ORDER BY id ASC`, farm)
}

func (tx *Tx) InsertRewardEvent(e *RewardEvent) error {
	return tx.insert(TableRewardEvents, e)
}

func (tx *Tx) ListRewardEvents(farm string) ([]*RewardEvent, error) {
	return getAll[RewardEvent](tx.q, `SELECT * FROM reward_events WHERE farm_address = ? ORDER BY id ASC`, farm)
}
