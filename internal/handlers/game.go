package handlers

import (
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

type GameFactoryInitialized struct {
	FactoryAddress       starknet.Felt `json:"factory_address"`
	Owner                starknet.Felt `json:"owner"`
	GameSessionClassHash starknet.Felt `json:"game_session_class_hash"`
}

type GameSessionCreated struct {
	GameSession                starknet.Felt `json:"game_session"`
	TokenWinCondition          starknet.Felt `json:"token_win_condition"`
	StakeToken                 starknet.Felt `json:"stake_token"`
	TokenWinConditionThreshold *big.Int      `json:"token_win_condition_threshold"`
	BurnFeePercentage          uint64        `json:"burn_fee_percentage"`
	PlatformFeePercentage      uint64        `json:"platform_fee_percentage"`
	Creator                    starknet.Felt `json:"creator"`
	FactoryAddress             starknet.Felt `json:"factory_address"`
	SessionIndex               uint64        `json:"session_index"`
	TotalSessions              uint64        `json:"total_sessions"`
}

type GameFactoryConfigUpdated struct {
	FactoryAddress starknet.Felt `json:"factory_address"`
	FieldName      starknet.Felt `json:"field_name"`
	OldValue       starknet.Felt `json:"old_value"`
	NewValue       starknet.Felt `json:"new_value"`
}

type GameFactoryOwnershipTransferred struct {
	PreviousOwner  starknet.Felt `json:"previous_owner"`
	NewOwner       starknet.Felt `json:"new_owner"`
	FactoryAddress starknet.Felt `json:"factory_address"`
}

type gameFactoryHandler struct {
	*handlerSet
	deps indexer.Deps
}

func newGameFactoryHandler(deps indexer.Deps) indexer.Handler {
	h := &gameFactoryHandler{handlerSet: newHandlerSet(indexer.KindGameFactory, deps.Log), deps: deps}

	on(h.handlerSet, "FactoryInitialized", h.onInitialized)
	on(h.handlerSet, "GameFactoryInitialized", h.onInitialized)
	on(h.handlerSet, "GameSessionCreated", h.onGameSessionCreated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)
	on(h.handlerSet, "GameSessionClassHashUpdated", h.onClassHashUpdated)

	return h
}

func (h *gameFactoryHandler) factory(c *call) (*store.GameFactory, error) {
	f, err := c.tx.GetGameFactory(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("game factory", c.contract)
	}
	return f, err
}

func (h *gameFactoryHandler) onInitialized(c *call, p *GameFactoryInitialized) error {
	f, err := c.tx.GetGameFactory(c.contract)
	if store.IsNotFound(err) {
		f = &store.GameFactory{Address: c.contract}
	} else if err != nil {
		return err
	}

	f.Owner = p.Owner.Hex()
	f.GameSessionClassHash = p.GameSessionClassHash.Hex()

	c.log.Infow("game factory initialized", "factory", c.contract, "owner", f.Owner)
	return c.tx.SaveGameFactory(f)
}

func (h *gameFactoryHandler) onGameSessionCreated(c *call, p *GameSessionCreated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.GameSessionCount = p.TotalSessions
	if err := c.tx.SaveGameFactory(f); err != nil {
		return err
	}

	addr := p.GameSession.Hex()
	session, err := c.tx.GetGameSession(addr)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	created := session == nil
	if created {
		win := resolveToken(c, h.deps.Tokens, p.TokenWinCondition.Hex())
		stake := resolveToken(c, h.deps.Tokens, p.StakeToken.Hex())

		session = &store.GameSession{
			Address:            addr,
			FeeRecipient:       p.Creator.Hex(),
			WinTokenName:       win.Name,
			WinTokenSymbol:     win.Symbol,
			WinTokenDecimals:   win.Decimals,
			StakeTokenName:     stake.Name,
			StakeTokenSymbol:   stake.Symbol,
			StakeTokenDecimals: stake.Decimals,
		}
	}

	session.FactoryAddress = c.contract
	session.GameSessionIndex = p.SessionIndex
	session.Owner = p.Creator.Hex()
	session.UserStakeTokenAddress = p.StakeToken.Hex()
	session.TokenWinConditionAddress = p.TokenWinCondition.Hex()
	session.TokenWinConditionThreshold = zeroIfNil(p.TokenWinConditionThreshold)
	session.BurnFeePercentage = p.BurnFeePercentage
	session.PlatformFeePercentage = p.PlatformFeePercentage
	if err := c.tx.SaveGameSession(session); err != nil {
		return err
	}

	if !created {
		c.log.Debugf("game session %s already indexed, updated from GameSessionCreated", addr)
		return nil
	}

	c.log.Infow("game session created", "session", addr, "index", p.SessionIndex,
		"stake_token", session.StakeTokenSymbol, "win_token", session.WinTokenSymbol)

	return registerChild(c, h.deps.Registrar, indexer.KindGameSession, addr)
}

func (h *gameFactoryHandler) onConfigUpdated(c *call, p *GameFactoryConfigUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	applyConfig(c, gameFactoryConfig, f, &f.ConfigHistory, "game_factory", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveGameFactory(f)
}

func (h *gameFactoryHandler) onOwnershipTransferred(c *call, p *GameFactoryOwnershipTransferred) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.Owner = p.NewOwner.Hex()
	recordChange(&f.ConfigHistory, "game_factory", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveGameFactory(f)
}

func (h *gameFactoryHandler) onClassHashUpdated(c *call, p *ClassHashUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.GameSessionClassHash = p.NewHash.Hex()
	recordChange(&f.ConfigHistory, "game_factory", "game_session_class_hash", valueAddress,
		p.OldHash, p.NewHash, c.ts)
	return c.tx.SaveGameFactory(f)
}

type GameInitialized struct {
	Owner                      starknet.Felt `json:"owner"`
	UserStakeTokenAddress      starknet.Felt `json:"user_stake_token_address"`
	TokenWinConditionAddress   starknet.Felt `json:"token_win_condition_address"`
	TokenWinConditionThreshold *big.Int      `json:"token_win_condition_threshold"`
	BurnFeePercentage          uint64        `json:"burn_fee_percentage"`
	PlatformFeePercentage      uint64        `json:"platform_fee_percentage"`
	FeeRecipient               starknet.Felt `json:"fee_recipient"`
	NumberOfStakeWindows       uint64        `json:"number_of_stake_windows"`
	NumberOfAgents             uint64        `json:"number_of_agents"`
}

type StakeWindowCreated struct {
	WindowIndex uint64 `json:"window_index"`
	StartTime   uint64 `json:"start_time"`
	EndTime     uint64 `json:"end_time"`
}

type AgentCreated struct {
	AgentIndex     uint64        `json:"agent_index"`
	AgentAddress   starknet.Felt `json:"agent_address"`
	SessionAddress starknet.Felt `json:"session_address"`
}

type AgentUpdated struct {
	AgentIndex        uint64        `json:"agent_index"`
	AgentAddress      starknet.Felt `json:"agent_address"`
	OldTotalDeposited *big.Int      `json:"old_total_deposited"`
	NewTotalDeposited *big.Int      `json:"new_total_deposited"`
	SessionAddress    starknet.Felt `json:"session_address"`
	TotalScore        *big.Int      `json:"total_score" starknet:"optional"`
}

type UserDeposited struct {
	User       starknet.Felt `json:"user"`
	AgentIndex uint64        `json:"agent_index"`
	Amount     *big.Int      `json:"amount"`
	OldScore   *big.Int      `json:"old_score"`
	NewScore   *big.Int      `json:"new_score"`
}

type UserAmount struct {
	User   starknet.Felt `json:"user"`
	Amount *big.Int      `json:"amount"`
}

type GameSuspended struct{}

type GameOver struct {
	WinningAgentIndex uint64   `json:"winning_agent_index"`
	TotalRewards      *big.Int `json:"total_rewards"`
	BurnFeeAmount     *big.Int `json:"burn_fee_amount"`
	PlatformFeeAmount *big.Int `json:"platform_fee_amount"`
	TotalFeesAmount   *big.Int `json:"total_fees_amount"`
}

type GameConfigUpdated struct {
	FieldName      starknet.Felt `json:"field_name"`
	OldValue       starknet.Felt `json:"old_value"`
	NewValue       starknet.Felt `json:"new_value"`
	SessionAddress starknet.Felt `json:"session_address"`
}

type FeeRecipientUpdated struct {
	PreviousRecipient starknet.Felt `json:"previous_recipient"`
	NewRecipient      starknet.Felt `json:"new_recipient"`
}

type gameSessionHandler struct {
	*handlerSet
}

func newGameSessionHandler(deps indexer.Deps) indexer.Handler {
	h := &gameSessionHandler{handlerSet: newHandlerSet(indexer.KindGameSession, deps.Log)}

	on(h.handlerSet, "GameInitialized", h.onGameInitialized)
	on(h.handlerSet, "StakeWindowCreated", h.onStakeWindowCreated)
	on(h.handlerSet, "AgentCreated", h.onAgentCreated)
	on(h.handlerSet, "AgentUpdated", h.onAgentUpdated)
	on(h.handlerSet, "UserDeposited", h.onUserDeposited)
	on(h.handlerSet, "EmergencyWithdraw", h.onEmergencyWithdraw)
	on(h.handlerSet, "RewardsClaimed", h.onRewardsClaimed)
	on(h.handlerSet, "GameSuspended", h.onGameSuspended)
	on(h.handlerSet, "GameOver", h.onGameOver)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "FeeRecipientUpdated", h.onFeeRecipientUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)

	return h
}

func (h *gameSessionHandler) session(c *call) (*store.GameSession, error) {
	s, err := c.tx.GetGameSession(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("game session", c.contract)
	}
	return s, err
}

func (h *gameSessionHandler) gameEvent(c *call, eventType, user string, agentIndex *uint64, amount *big.Int) error {
	return c.tx.InsertGameEvent(&store.GameEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       eventType,
		SessionAddress:  c.contract,
		UserAddress:     user,
		AgentIndex:      agentIndex,
		Amount:          zeroIfNil(amount),
	})
}

func (h *gameSessionHandler) onGameInitialized(c *call, p *GameInitialized) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	s.Owner = p.Owner.Hex()
	s.UserStakeTokenAddress = p.UserStakeTokenAddress.Hex()
	s.TokenWinConditionAddress = p.TokenWinConditionAddress.Hex()
	s.TokenWinConditionThreshold = zeroIfNil(p.TokenWinConditionThreshold)
	s.BurnFeePercentage = p.BurnFeePercentage
	s.PlatformFeePercentage = p.PlatformFeePercentage
	s.FeeRecipient = p.FeeRecipient.Hex()
	s.NumberOfStakeWindows = p.NumberOfStakeWindows
	s.NumberOfAgents = p.NumberOfAgents
	if err := c.tx.SaveGameSession(s); err != nil {
		return err
	}

	c.log.Infow("game initialized", "session", c.contract, "windows", p.NumberOfStakeWindows,
		"agents", p.NumberOfAgents)

	return h.gameEvent(c, store.GameInitialized, s.Owner, nil, p.TokenWinConditionThreshold)
}

func (h *gameSessionHandler) onStakeWindowCreated(c *call, p *StakeWindowCreated) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	w, err := c.tx.GetStakeWindow(c.contract, p.WindowIndex)
	if store.IsNotFound(err) {
		w = &store.StakeWindow{SessionAddress: c.contract, WindowIndex: p.WindowIndex}
	} else if err != nil {
		return err
	}

	w.StartTime = p.StartTime
	w.EndTime = p.EndTime
	return c.tx.SaveStakeWindow(w)
}

func (h *gameSessionHandler) onAgentCreated(c *call, p *AgentCreated) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	addr := p.AgentAddress.Hex()
	agent, err := c.tx.GetAgent(addr, c.contract)
	if err == nil {
		if agent.AgentIndex != p.AgentIndex {
			c.log.Warnf("agent %s of session %s keeps index %d, ignoring %d",
				addr, c.contract, agent.AgentIndex, p.AgentIndex)
		}
		return nil
	} else if !store.IsNotFound(err) {
		return err
	}

	c.log.Debugw("agent created", "session", c.contract, "agent", addr, "index", p.AgentIndex)

	return c.tx.SaveAgent(&store.Agent{
		Address:        addr,
		SessionAddress: c.contract,
		AgentIndex:     p.AgentIndex,
		TotalDeposited: new(big.Int),
		TotalScore:     new(big.Int),
	})
}

func (h *gameSessionHandler) onAgentUpdated(c *call, p *AgentUpdated) error {
	addr := p.AgentAddress.Hex()
	agent, err := c.tx.GetAgent(addr, c.contract)
	if store.IsNotFound(err) {
		return c.missing("agent", addr)
	} else if err != nil {
		return err
	}

	agent.TotalDeposited = zeroIfNil(p.NewTotalDeposited)
	if p.TotalScore != nil {
		agent.TotalScore = p.TotalScore
	}
	return c.tx.SaveAgent(agent)
}

func (h *gameSessionHandler) onUserDeposited(c *call, p *UserDeposited) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	if _, err := c.tx.GetAgentByIndex(c.contract, p.AgentIndex); store.IsNotFound(err) {
		return c.missing("agent", starknet.FeltFromUint64(p.AgentIndex).Decimal())
	} else if err != nil {
		return err
	}

	user := p.User.Hex()
	d, err := c.tx.GetUserDeposit(c.contract, user, p.AgentIndex)
	if store.IsNotFound(err) {
		d = &store.UserDeposit{SessionAddress: c.contract, UserAddress: user, AgentIndex: p.AgentIndex}
	} else if err != nil {
		return err
	}

	d.Amount = add(d.Amount, p.Amount)
	d.AccumulatedScore = zeroIfNil(p.NewScore)
	d.LastScoreUpdate = c.at()
	if err := c.tx.SaveUserDeposit(d); err != nil {
		return err
	}

	index := p.AgentIndex
	return h.gameEvent(c, store.GameUserDeposited, user, &index, p.Amount)
}

func (h *gameSessionHandler) onEmergencyWithdraw(c *call, p *UserAmount) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	user := p.User.Hex()
	deposits, err := c.tx.ListUserDeposits(c.contract, user)
	if err != nil {
		return err
	}

	recorded := new(big.Int)
	for _, d := range deposits {
		recorded.Add(recorded, zeroIfNil(d.Amount))
		d.Amount = new(big.Int)
		if err := c.tx.SaveUserDeposit(d); err != nil {
			return err
		}
	}

	amount := zeroIfNil(p.Amount)
	if amount.Cmp(recorded) > 0 {
		c.log.Warnf("emergency withdraw of %s by %s exceeds recorded deposits %s in session %s",
			amount, user, recorded, c.contract)
		StakeClampInc()
	}

	return h.gameEvent(c, store.GameEmergencyWithdraw, user, nil, amount)
}

func (h *gameSessionHandler) onRewardsClaimed(c *call, p *UserAmount) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	return h.gameEvent(c, store.GameRewardsClaimed, p.User.Hex(), nil, p.Amount)
}

func (h *gameSessionHandler) onGameSuspended(c *call, _ *GameSuspended) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	s.GameSuspended = true
	if err := c.tx.SaveGameSession(s); err != nil {
		return err
	}

	c.log.Infow("game suspended", "session", c.contract)
	return h.gameEvent(c, store.GameSuspended, s.Owner, nil, nil)
}

func (h *gameSessionHandler) onGameOver(c *call, p *GameOver) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	if s.WinningAgentIndex == nil {
		winner := p.WinningAgentIndex
		s.WinningAgentIndex = &winner
	} else if *s.WinningAgentIndex != p.WinningAgentIndex {
		c.log.Warnf("game %s already won by agent %d, ignoring winner %d",
			c.contract, *s.WinningAgentIndex, p.WinningAgentIndex)
	}

	s.GameOver = true
	s.TotalRewards = zeroIfNil(p.TotalRewards)
	s.BurnFeeAmount = zeroIfNil(p.BurnFeeAmount)
	s.PlatformFeeAmount = zeroIfNil(p.PlatformFeeAmount)
	s.TotalFeesAmount = zeroIfNil(p.TotalFeesAmount)
	s.EndedAt = c.at()
	if err := c.tx.SaveGameSession(s); err != nil {
		return err
	}

	c.log.Infow("game over", "session", c.contract, "winner", *s.WinningAgentIndex, "rewards", s.TotalRewards)
	return h.gameEvent(c, store.GameOver, s.Owner, s.WinningAgentIndex, p.TotalRewards)
}

func (h *gameSessionHandler) onConfigUpdated(c *call, p *GameConfigUpdated) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	applyConfig(c, gameSessionConfig, s, &s.ConfigHistory, "game_session", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveGameSession(s)
}

func (h *gameSessionHandler) onFeeRecipientUpdated(c *call, p *FeeRecipientUpdated) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	s.FeeRecipient = p.NewRecipient.Hex()
	recordChange(&s.ConfigHistory, "game_session", "fee_recipient", valueAddress,
		p.PreviousRecipient, p.NewRecipient, c.ts)
	return c.tx.SaveGameSession(s)
}

func (h *gameSessionHandler) onOwnershipTransferred(c *call, p *OwnershipTransferred) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}

	s.Owner = p.NewOwner.Hex()
	recordChange(&s.ConfigHistory, "game_session", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveGameSession(s)
}

func init() {
	indexer.Register(indexer.KindGameFactory, newGameFactoryHandler)
	indexer.Register(indexer.KindGameSession, newGameSessionHandler)
}
