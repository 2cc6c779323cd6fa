package handlers

import (
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

type FarmFactoryInitialized struct {
	FarmFactory   starknet.Felt `json:"farm_factory"`
	Owner         starknet.Felt `json:"owner"`
	FarmClassHash starknet.Felt `json:"farm_class_hash"`
}

type FarmCreated struct {
	Farm            starknet.Felt `json:"farm"`
	FarmFactory     starknet.Felt `json:"farm_factory"`
	LPToken         starknet.Felt `json:"lp_token"`
	FarmIndex       uint64        `json:"farm_index"`
	GameSessionID   uint64        `json:"game_session_id"`
	Multiplier      *big.Int      `json:"multiplier"`
	PenaltyDuration uint64        `json:"penalty_duration"`
	WithdrawPenalty *big.Int      `json:"withdraw_penalty"`
	PenaltyReceiver starknet.Felt `json:"penalty_receiver"`
	FarmCount       *uint64       `json:"farm_count" starknet:"optional"`
}

type FarmFactoryConfigUpdated struct {
	FarmFactory starknet.Felt `json:"farm_factory"`
	FieldName   starknet.Felt `json:"field_name"`
	OldValue    starknet.Felt `json:"old_value"`
	NewValue    starknet.Felt `json:"new_value"`
}

type FarmFactoryOwnershipTransferred struct {
	FarmFactory   starknet.Felt `json:"farm_factory"`
	PreviousOwner starknet.Felt `json:"previous_owner"`
	NewOwner      starknet.Felt `json:"new_owner"`
}

type FarmClassHashUpdated struct {
	FarmFactory starknet.Felt `json:"farm_factory"`
	OldHash     starknet.Felt `json:"old_hash"`
	NewHash     starknet.Felt `json:"new_hash"`
}

type farmFactoryHandler struct {
	*handlerSet
	deps indexer.Deps
}

func newFarmFactoryHandler(deps indexer.Deps) indexer.Handler {
	h := &farmFactoryHandler{handlerSet: newHandlerSet(indexer.KindFarmFactory, deps.Log), deps: deps}

	on(h.handlerSet, "FarmFactoryInitialized", h.onInitialized)
	on(h.handlerSet, "FarmCreated", h.onFarmCreated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)
	on(h.handlerSet, "FarmClassHashUpdated", h.onClassHashUpdated)

	return h
}

func (h *farmFactoryHandler) factory(c *call) (*store.FarmFactory, error) {
	f, err := c.tx.GetFarmFactory(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("farm factory", c.contract)
	}
	return f, err
}

func (h *farmFactoryHandler) onInitialized(c *call, p *FarmFactoryInitialized) error {
	f, err := c.tx.GetFarmFactory(c.contract)
	if store.IsNotFound(err) {
		f = &store.FarmFactory{Address: c.contract}
	} else if err != nil {
		return err
	}

	f.Owner = p.Owner.Hex()
	f.FarmClassHash = p.FarmClassHash.Hex()

	c.log.Infow("farm factory initialized", "factory", c.contract, "owner", f.Owner)
	return c.tx.SaveFarmFactory(f)
}

func (h *farmFactoryHandler) onFarmCreated(c *call, p *FarmCreated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	if p.FarmCount != nil {
		f.FarmCount = *p.FarmCount
	} else {
		f.FarmCount = p.FarmIndex + 1
	}
	if err := c.tx.SaveFarmFactory(f); err != nil {
		return err
	}

	addr := p.Farm.Hex()
	farm, err := c.tx.GetFarm(addr)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	created := farm == nil
	if created {
		farm = &store.Farm{
			Address:       addr,
			Owner:         f.Owner,
			GameSessionID: p.GameSessionID,
			TotalStaked:   new(big.Int),
			ActiveRewards: store.ActiveRewards{},
		}
	}

	farm.FactoryAddress = c.contract
	farm.LPTokenAddress = p.LPToken.Hex()
	farm.FarmIndex = p.FarmIndex
	farm.Multiplier = zeroIfNil(p.Multiplier)
	farm.PenaltyDuration = p.PenaltyDuration
	farm.WithdrawPenalty = zeroIfNil(p.WithdrawPenalty)
	farm.PenaltyReceiver = p.PenaltyReceiver.Hex()
	if err := c.tx.SaveFarm(farm); err != nil {
		return err
	}

	if !created {
		c.log.Debugf("farm %s already indexed, updated from FarmCreated", addr)
		return nil
	}

	c.log.Infow("farm created", "farm", addr, "lp_token", farm.LPTokenAddress,
		"index", p.FarmIndex, "game_session_id", p.GameSessionID)

	return registerChild(c, h.deps.Registrar, indexer.KindFarm, addr)
}

func (h *farmFactoryHandler) onConfigUpdated(c *call, p *FarmFactoryConfigUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	applyConfig(c, farmFactoryConfig, f, &f.ConfigHistory, "farm_factory", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveFarmFactory(f)
}

func (h *farmFactoryHandler) onOwnershipTransferred(c *call, p *FarmFactoryOwnershipTransferred) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.Owner = p.NewOwner.Hex()
	recordChange(&f.ConfigHistory, "farm_factory", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveFarmFactory(f)
}

func (h *farmFactoryHandler) onClassHashUpdated(c *call, p *FarmClassHashUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.FarmClassHash = p.NewHash.Hex()
	recordChange(&f.ConfigHistory, "farm_factory", "farm_class_hash", valueAddress, p.OldHash, p.NewHash, c.ts)
	return c.tx.SaveFarmFactory(f)
}

type Deposit struct {
	UserAddress    starknet.Felt `json:"user_address"`
	StakedAmount   *big.Int      `json:"staked_amount"`
	UserStaked     *big.Int      `json:"user_staked"`
	TotalStaked    *big.Int      `json:"total_staked"`
	Multiplier     *big.Int      `json:"multiplier"`
	PenaltyEndTime uint64        `json:"penalty_end_time"`
}

type Withdraw struct {
	UserAddress    starknet.Felt `json:"user_address"`
	StakedAmount   *big.Int      `json:"staked_amount"`
	UserStaked     *big.Int      `json:"user_staked"`
	TotalStaked    *big.Int      `json:"total_staked"`
	PenaltyAmount  *big.Int      `json:"penalty_amount"`
	PenaltyEndTime uint64        `json:"penalty_end_time"`
}

type Harvest struct {
	UserAddress          starknet.Felt `json:"user_address"`
	RewardToken          starknet.Felt `json:"reward_token"`
	RewardAmount         *big.Int      `json:"reward_amount"`
	RewardPerTokenStored *big.Int      `json:"reward_per_token_stored"`
	UserStaked           *big.Int      `json:"user_staked"`
	TotalStaked          *big.Int      `json:"total_staked"`
}

type RewardAdded struct {
	RewardToken          starknet.Felt `json:"reward_token"`
	Rewarder             starknet.Felt `json:"rewarder"`
	RewardAmount         *big.Int      `json:"reward_amount"`
	RewardRate           *big.Int      `json:"reward_rate"`
	RewardDuration       *big.Int      `json:"reward_duration"`
	PeriodFinish         *big.Int      `json:"period_finish"`
	RewardPerTokenStored *big.Int      `json:"reward_per_token_stored"`
	UnallocatedRewards   *big.Int      `json:"unallocated_rewards"`
	TokenDecimals        uint8         `json:"token_decimals"`
}

type RewardPerTokenUpdated struct {
	RewardToken   starknet.Felt `json:"reward_token"`
	PreviousValue *big.Int      `json:"previous_value"`
	NewValue      *big.Int      `json:"new_value"`
}

type RewardStateUpdated struct {
	UserAddress        starknet.Felt `json:"user_address"`
	RewardToken        starknet.Felt `json:"reward_token"`
	RewardPerTokenPaid *big.Int      `json:"reward_per_token_paid"`
	Rewards            *big.Int      `json:"rewards"`
}

type UnallocatedRewardsUpdated struct {
	RewardToken    starknet.Felt `json:"reward_token"`
	PreviousAmount *big.Int      `json:"previous_amount"`
	NewAmount      *big.Int      `json:"new_amount"`
}

type UnallocatedRewardsClaimed struct {
	RewardToken        starknet.Felt `json:"reward_token"`
	Claimer            starknet.Felt `json:"claimer"`
	Amount             *big.Int      `json:"amount"`
	UnallocatedRewards *big.Int      `json:"unallocated_rewards"`
}

type RewarderChanged struct {
	Rewarder starknet.Felt `json:"rewarder"`
}

type FarmConfigUpdated struct {
	FieldName starknet.Felt `json:"field_name"`
	OldValue  starknet.Felt `json:"old_value"`
	NewValue  starknet.Felt `json:"new_value"`
}

type OwnershipTransferred struct {
	PreviousOwner starknet.Felt `json:"previous_owner"`
	NewOwner      starknet.Felt `json:"new_owner"`
}

type PenaltyReceiverUpdated struct {
	PreviousReceiver starknet.Felt `json:"previous_receiver"`
	NewReceiver      starknet.Felt `json:"new_receiver"`
}

type PenaltyEndTimeUpdated struct {
	UserAddress starknet.Felt `json:"user_address"`
	OldEndTime  uint64        `json:"old_end_time"`
	NewEndTime  uint64        `json:"new_end_time"`
}

type ERC20Recovered struct {
	TokenAddress starknet.Felt `json:"token_address"`
	To           starknet.Felt `json:"to"`
	TokenAmount  *big.Int      `json:"token_amount"`
}

type farmHandler struct {
	*handlerSet
	deps indexer.Deps
}

func newFarmHandler(deps indexer.Deps) indexer.Handler {
	h := &farmHandler{handlerSet: newHandlerSet(indexer.KindFarm, deps.Log), deps: deps}

	on(h.handlerSet, "Deposit", h.onDeposit)
	on(h.handlerSet, "Withdraw", h.onWithdraw)
	on(h.handlerSet, "Harvest", h.onHarvest)
	on(h.handlerSet, "RewardAdded", h.onRewardAdded)
	on(h.handlerSet, "RewardPerTokenUpdated", h.onRewardPerTokenUpdated)
	on(h.handlerSet, "RewardStateUpdated", h.onRewardStateUpdated)
	on(h.handlerSet, "UnallocatedRewardsUpdated", h.onUnallocatedRewardsUpdated)
	on(h.handlerSet, "UnallocatedRewardsClaimed", h.onUnallocatedRewardsClaimed)
	on(h.handlerSet, "RewarderAdded", h.onRewarderAdded)
	on(h.handlerSet, "RewarderRemoved", h.onRewarderRemoved)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)
	on(h.handlerSet, "PenaltyReceiverUpdated", h.onPenaltyReceiverUpdated)
	on(h.handlerSet, "PenaltyEndTimeUpdated", h.onPenaltyEndTimeUpdated)
	on(h.handlerSet, "ERC20Recovered", h.onERC20Recovered)
	on(h.handlerSet, "Erc20Recovered", h.onERC20Recovered)

	return h
}

func (h *farmHandler) farm(c *call) (*store.Farm, error) {
	f, err := c.tx.GetFarm(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("farm", c.contract)
	}
	return f, err
}

func (h *farmHandler) stake(c *call, agent string) (*store.AgentStake, error) {
	s, err := c.tx.GetAgentStake(c.contract, agent)
	if store.IsNotFound(err) {
		return store.NewAgentStake(c.contract, agent), nil
	}
	return s, err
}

// stakeChanged accrues the agent's rewards, then adopts the stake reported by the farm.
func (h *farmHandler) stakeChanged(c *call, farm *store.Farm, agent string, userStaked *big.Int, penaltyEnd uint64) error {
	stake, err := h.stake(c, agent)
	if err != nil {
		return err
	}

	if err := accrueStake(c.tx, stake); err != nil {
		return err
	}

	stake.StakedAmount = zeroIfNil(userStaked)
	stake.PenaltyEndTime = penaltyEnd
	if err := c.tx.SaveAgentStake(stake); err != nil {
		return err
	}

	return c.tx.SaveFarm(farm)
}

func (h *farmHandler) onDeposit(c *call, p *Deposit) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	agent := p.UserAddress.Hex()
	farm.TotalStaked = zeroIfNil(p.TotalStaked)
	farm.Multiplier = zeroIfNil(p.Multiplier)
	if err := h.stakeChanged(c, farm, agent, p.UserStaked, p.PenaltyEndTime); err != nil {
		return err
	}

	c.log.Debugw("deposit", "farm", c.contract, "agent", agent, "amount", p.StakedAmount)

	return c.tx.InsertAgentStakeEvent(&store.AgentStakeEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.StakeDeposit,
		FarmAddress:     c.contract,
		AgentAddress:    agent,
		StakedAmount:    zeroIfNil(p.StakedAmount),
	})
}

func (h *farmHandler) onWithdraw(c *call, p *Withdraw) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	agent := p.UserAddress.Hex()
	farm.TotalStaked = zeroIfNil(p.TotalStaked)
	if err := h.stakeChanged(c, farm, agent, p.UserStaked, p.PenaltyEndTime); err != nil {
		return err
	}

	c.log.Debugw("withdraw", "farm", c.contract, "agent", agent, "amount", p.StakedAmount,
		"penalty", p.PenaltyAmount)

	return c.tx.InsertAgentStakeEvent(&store.AgentStakeEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.StakeWithdraw,
		FarmAddress:     c.contract,
		AgentAddress:    agent,
		StakedAmount:    zeroIfNil(p.StakedAmount),
		PenaltyAmount:   zeroIfNil(p.PenaltyAmount),
	})
}

// payOut lowers the reward's remaining amount. A payout larger than the remaining amount is
// reported and leaves the field unchanged.
func payOut(c *call, reward *store.Reward, amount *big.Int) {
	remaining := zeroIfNil(reward.RemainingAmount)
	if amount.Cmp(remaining) > 0 {
		c.log.Errorf("payout of %s %s from farm %s exceeds remaining rewards %s (tx %s)",
			amount, reward.TokenAddress, reward.FarmAddress, remaining, c.txHash)
		RewardPoolUnderflowInc()
		return
	}
	reward.RemainingAmount = remaining.Sub(remaining, amount)
}

func (h *farmHandler) onHarvest(c *call, p *Harvest) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	agent := p.UserAddress.Hex()
	token := p.RewardToken.Hex()
	stored := zeroIfNil(p.RewardPerTokenStored)
	amount := zeroIfNil(p.RewardAmount)

	farm.TotalStaked = zeroIfNil(p.TotalStaked)
	if active, ok := farm.ActiveRewards[token]; ok {
		active.RewardPerTokenStored = maxBig(active.RewardPerTokenStored, stored)
		farm.ActiveRewards[token] = active
	}
	if err := c.tx.SaveFarm(farm); err != nil {
		return err
	}

	stake, err := c.tx.GetAgentStake(c.contract, agent)
	switch {
	case store.IsNotFound(err):
		c.log.Warnf("agent stake %s not found in farm %s for harvest", agent, c.contract)
		MissingReferentInc("agent stake")
	case err != nil:
		return err
	default:
		// the other reward tokens are checkpointed at the old balance
		if err := accrueStake(c.tx, stake); err != nil {
			return err
		}
		stake.StakedAmount = zeroIfNil(p.UserStaked)
		stake.Rewards.Set(token, new(big.Int))
		stake.RewardPerTokenPaid.Set(token, stored)
		if err := c.tx.SaveAgentStake(stake); err != nil {
			return err
		}
		if err := syncRewardPerAgent(c.tx, stake, token); err != nil {
			return err
		}
	}

	reward, err := c.tx.GetReward(c.contract, token)
	switch {
	case store.IsNotFound(err):
		c.log.Warnf("reward %s not found in farm %s for harvest", token, c.contract)
		MissingReferentInc("reward")
	case err != nil:
		return err
	default:
		reward.RewardPerTokenStored = maxBig(reward.RewardPerTokenStored, stored)
		payOut(c, reward, amount)
		if err := c.tx.SaveReward(reward); err != nil {
			return err
		}
	}

	return c.tx.InsertRewardEvent(&store.RewardEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.RewardHarvest,
		FarmAddress:     c.contract,
		AgentAddress:    agent,
		RewardToken:     token,
		RewardAmount:    amount,
	})
}

func (h *farmHandler) onRewardAdded(c *call, p *RewardAdded) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	token := p.RewardToken.Hex()
	farm.RewardTokens.Add(token)
	if farm.ActiveRewards == nil {
		farm.ActiveRewards = store.ActiveRewards{}
	}
	farm.ActiveRewards[token] = store.ActiveReward{
		RewardRate:           zeroIfNil(p.RewardRate),
		RewardDuration:       zeroIfNil(p.RewardDuration),
		PeriodFinish:         zeroIfNil(p.PeriodFinish),
		RewardPerTokenStored: zeroIfNil(p.RewardPerTokenStored),
	}
	if err := c.tx.SaveFarm(farm); err != nil {
		return err
	}

	reward, err := c.tx.GetReward(c.contract, token)
	if store.IsNotFound(err) {
		reward = store.NewReward(c.contract, token, p.TokenDecimals)
	} else if err != nil {
		return err
	}

	reward.TokenDecimals = p.TokenDecimals
	reward.RewardRate = zeroIfNil(p.RewardRate)
	reward.RewardDuration = zeroIfNil(p.RewardDuration)
	reward.PeriodFinish = zeroIfNil(p.PeriodFinish)
	reward.RewardPerTokenStored = zeroIfNil(p.RewardPerTokenStored)
	reward.UnallocatedRewards = zeroIfNil(p.UnallocatedRewards)
	reward.RemainingAmount = add(reward.RemainingAmount, p.RewardAmount)
	if err := c.tx.SaveReward(reward); err != nil {
		return err
	}

	c.log.Infow("reward added", "farm", c.contract, "token", token, "amount", p.RewardAmount,
		"rewarder", p.Rewarder.Hex())

	return c.tx.InsertRewardEvent(&store.RewardEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.RewardAdded,
		FarmAddress:     c.contract,
		RewardToken:     token,
		RewardAmount:    zeroIfNil(p.RewardAmount),
		RewardRate:      zeroIfNil(p.RewardRate),
		RewardDuration:  zeroIfNil(p.RewardDuration),
		PeriodFinish:    zeroIfNil(p.PeriodFinish),
	})
}

func (h *farmHandler) onRewardPerTokenUpdated(c *call, p *RewardPerTokenUpdated) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	token := p.RewardToken.Hex()
	reward, err := c.tx.GetReward(c.contract, token)
	if store.IsNotFound(err) {
		return c.missing("reward", token)
	} else if err != nil {
		return err
	}

	newValue := zeroIfNil(p.NewValue)
	if newValue.Cmp(zeroIfNil(reward.RewardPerTokenStored)) < 0 {
		c.log.Warnf("reward per token of %s in farm %s went back from %s to %s, ignoring",
			token, c.contract, reward.RewardPerTokenStored, newValue)
		return nil
	}

	credited, err := accrueFarm(c.tx, c.contract, token, newValue, reward.TokenDecimals)
	if err != nil {
		return err
	}

	reward.RewardPerTokenStored = newValue
	if err := c.tx.SaveReward(reward); err != nil {
		return err
	}

	if active, ok := farm.ActiveRewards[token]; ok {
		active.RewardPerTokenStored = newValue
		farm.ActiveRewards[token] = active
	} else {
		if farm.ActiveRewards == nil {
			farm.ActiveRewards = store.ActiveRewards{}
		}
		farm.ActiveRewards[token] = store.ActiveReward{
			RewardRate:           reward.RewardRate,
			RewardDuration:       reward.RewardDuration,
			PeriodFinish:         reward.PeriodFinish,
			RewardPerTokenStored: newValue,
		}
	}

	c.log.Debugw("reward per token updated", "farm", c.contract, "token", token,
		"stored", newValue, "agents", credited)

	return c.tx.SaveFarm(farm)
}

func (h *farmHandler) onRewardStateUpdated(c *call, p *RewardStateUpdated) error {
	agent := p.UserAddress.Hex()
	token := p.RewardToken.Hex()

	stake, err := c.tx.GetAgentStake(c.contract, agent)
	if store.IsNotFound(err) {
		return c.missing("agent stake", agent)
	} else if err != nil {
		return err
	}

	if _, err := c.tx.GetReward(c.contract, token); store.IsNotFound(err) {
		return c.missing("reward", token)
	} else if err != nil {
		return err
	}

	initRewardMaps(stake)
	stake.RewardPerTokenPaid.Set(token, zeroIfNil(p.RewardPerTokenPaid))
	stake.Rewards.Set(token, zeroIfNil(p.Rewards))
	if err := c.tx.SaveAgentStake(stake); err != nil {
		return err
	}

	return syncRewardPerAgent(c.tx, stake, token)
}

func (h *farmHandler) onUnallocatedRewardsUpdated(c *call, p *UnallocatedRewardsUpdated) error {
	token := p.RewardToken.Hex()
	reward, err := c.tx.GetReward(c.contract, token)
	if store.IsNotFound(err) {
		return c.missing("reward", token)
	} else if err != nil {
		return err
	}

	reward.UnallocatedRewards = zeroIfNil(p.NewAmount)
	return c.tx.SaveReward(reward)
}

func (h *farmHandler) onUnallocatedRewardsClaimed(c *call, p *UnallocatedRewardsClaimed) error {
	token := p.RewardToken.Hex()
	reward, err := c.tx.GetReward(c.contract, token)
	if store.IsNotFound(err) {
		return c.missing("reward", token)
	} else if err != nil {
		return err
	}

	amount := zeroIfNil(p.Amount)
	reward.UnallocatedRewards = zeroIfNil(p.UnallocatedRewards)
	payOut(c, reward, amount)
	if err := c.tx.SaveReward(reward); err != nil {
		return err
	}

	return c.tx.InsertRewardEvent(&store.RewardEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.RewardUnallocatedClaimed,
		FarmAddress:     c.contract,
		AgentAddress:    p.Claimer.Hex(),
		RewardToken:     token,
		RewardAmount:    amount,
	})
}

func (h *farmHandler) setRewarder(c *call, rewarder string, authorized bool) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	if authorized {
		farm.AuthorizedRewarders.Add(rewarder)
	} else {
		farm.AuthorizedRewarders.Remove(rewarder)
	}
	if err := c.tx.SaveFarm(farm); err != nil {
		return err
	}

	r, err := c.tx.GetRewarder(c.contract, rewarder)
	if store.IsNotFound(err) {
		r = &store.Rewarder{FarmAddress: c.contract, Address: rewarder}
	} else if err != nil {
		return err
	}

	r.IsAuthorized = authorized
	return c.tx.SaveRewarder(r)
}

func (h *farmHandler) onRewarderAdded(c *call, p *RewarderChanged) error {
	return h.setRewarder(c, p.Rewarder.Hex(), true)
}

func (h *farmHandler) onRewarderRemoved(c *call, p *RewarderChanged) error {
	return h.setRewarder(c, p.Rewarder.Hex(), false)
}

func (h *farmHandler) onConfigUpdated(c *call, p *FarmConfigUpdated) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	applyConfig(c, farmConfig, farm, &farm.ConfigHistory, "farm", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveFarm(farm)
}

func (h *farmHandler) onOwnershipTransferred(c *call, p *OwnershipTransferred) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	farm.Owner = p.NewOwner.Hex()
	recordChange(&farm.ConfigHistory, "farm", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveFarm(farm)
}

func (h *farmHandler) onPenaltyReceiverUpdated(c *call, p *PenaltyReceiverUpdated) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	farm.PenaltyReceiver = p.NewReceiver.Hex()
	recordChange(&farm.ConfigHistory, "farm", "penalty_receiver", valueAddress,
		p.PreviousReceiver, p.NewReceiver, c.ts)
	return c.tx.SaveFarm(farm)
}

func (h *farmHandler) onPenaltyEndTimeUpdated(c *call, p *PenaltyEndTimeUpdated) error {
	agent := p.UserAddress.Hex()
	stake, err := c.tx.GetAgentStake(c.contract, agent)
	if store.IsNotFound(err) {
		return c.missing("agent stake", agent)
	} else if err != nil {
		return err
	}

	stake.PenaltyEndTime = p.NewEndTime
	return c.tx.SaveAgentStake(stake)
}

func (h *farmHandler) onERC20Recovered(c *call, p *ERC20Recovered) error {
	farm, err := h.farm(c)
	if farm == nil {
		return err
	}

	c.log.Infow("erc20 recovered", "farm", c.contract, "token", p.TokenAddress.Hex(),
		"to", p.To.Hex(), "amount", p.TokenAmount)
	return c.tx.SaveFarm(farm)
}

func init() {
	indexer.Register(indexer.KindFarmFactory, newFarmFactoryHandler)
	indexer.Register(indexer.KindFarm, newFarmHandler)
}
