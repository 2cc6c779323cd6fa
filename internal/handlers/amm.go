package handlers

import (
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

type FactoryInitialized struct {
	FactoryAddress        starknet.Felt `json:"factory_address"`
	Owner                 starknet.Felt `json:"owner"`
	FeeTo                 starknet.Felt `json:"fee_to"`
	PairContractClassHash starknet.Felt `json:"pair_contract_class_hash"`
}

type PairCreated struct {
	Token0                starknet.Felt `json:"token0"`
	Token1                starknet.Felt `json:"token1"`
	Pair                  starknet.Felt `json:"pair"`
	TotalPairs            uint64        `json:"total_pairs"`
	PairContractClassHash starknet.Felt `json:"pair_contract_class_hash"`
	FactoryAddress        starknet.Felt `json:"factory_address"`
	GameSessionID         uint64        `json:"game_session_id"`
}

type AmmFactoryConfigUpdated struct {
	FieldName      starknet.Felt `json:"field_name"`
	OldValue       starknet.Felt `json:"old_value"`
	NewValue       starknet.Felt `json:"new_value"`
	FactoryAddress starknet.Felt `json:"factory_address"`
}

type OwnerUpdated struct {
	PreviousOwner  starknet.Felt `json:"previous_owner"`
	NewOwner       starknet.Felt `json:"new_owner"`
	FactoryAddress starknet.Felt `json:"factory_address" starknet:"optional"`
}

type FeesReceiverUpdated struct {
	FactoryAddress starknet.Felt `json:"factory_address"`
	PreviousFeeTo  starknet.Felt `json:"previous_fee_to"`
	NewFeeTo       starknet.Felt `json:"new_fee_to"`
}

type ClassHashUpdated struct {
	FactoryAddress starknet.Felt `json:"factory_address"`
	OldHash        starknet.Felt `json:"old_hash"`
	NewHash        starknet.Felt `json:"new_hash"`
}

type ammFactoryHandler struct {
	*handlerSet
	deps indexer.Deps
}

func newAmmFactoryHandler(deps indexer.Deps) indexer.Handler {
	h := &ammFactoryHandler{handlerSet: newHandlerSet(indexer.KindAmmFactory, deps.Log), deps: deps}

	on(h.handlerSet, "FactoryInitialized", h.onFactoryInitialized)
	on(h.handlerSet, "PairCreated", h.onPairCreated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnerUpdated", h.onOwnerUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnerUpdated)
	on(h.handlerSet, "FeesReceiverUpdated", h.onFeesReceiverUpdated)
	on(h.handlerSet, "FeeToUpdated", h.onFeesReceiverUpdated)
	on(h.handlerSet, "PairContractClassHashUpdated", h.onClassHashUpdated)

	return h
}

func (h *ammFactoryHandler) factory(c *call) (*store.AmmFactory, error) {
	f, err := c.tx.GetAmmFactory(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("amm factory", c.contract)
	}
	return f, err
}

func (h *ammFactoryHandler) onFactoryInitialized(c *call, p *FactoryInitialized) error {
	f, err := c.tx.GetAmmFactory(c.contract)
	if store.IsNotFound(err) {
		f = &store.AmmFactory{Address: c.contract}
	} else if err != nil {
		return err
	}

	f.Owner = p.Owner.Hex()
	f.FeeTo = p.FeeTo.Hex()
	f.PairContractClassHash = p.PairContractClassHash.Hex()

	c.log.Infow("amm factory initialized", "factory", c.contract, "owner", f.Owner)
	return c.tx.SaveAmmFactory(f)
}

func (h *ammFactoryHandler) onPairCreated(c *call, p *PairCreated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.NumOfPairs = p.TotalPairs
	if err := c.tx.SaveAmmFactory(f); err != nil {
		return err
	}

	addr := p.Pair.Hex()
	pair, err := c.tx.GetPair(addr)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	if pair != nil {
		pair.FactoryAddress = c.contract
		pair.GameSessionID = p.GameSessionID
		c.log.Debugf("pair %s already indexed, updated from PairCreated", addr)
		return c.tx.SavePair(pair)
	}

	token0 := resolveToken(c, h.deps.Tokens, p.Token0.Hex())
	token1 := resolveToken(c, h.deps.Tokens, p.Token1.Hex())

	pair = &store.Pair{
		Address:            addr,
		FactoryAddress:     c.contract,
		Token0Address:      p.Token0.Hex(),
		Token1Address:      p.Token1.Hex(),
		Token0Symbol:       token0.Symbol,
		Token1Symbol:       token1.Symbol,
		Token0Decimals:     token0.Decimals,
		Token1Decimals:     token1.Decimals,
		BlockTimestampLast: c.ts,
		GameSessionID:      p.GameSessionID,
	}
	if err := c.tx.SavePair(pair); err != nil {
		return err
	}

	c.log.Infow("pair created", "pair", addr, "token0", token0.Symbol, "token1", token1.Symbol,
		"game_session_id", p.GameSessionID)

	return registerChild(c, h.deps.Registrar, indexer.KindPair, addr)
}

func (h *ammFactoryHandler) onConfigUpdated(c *call, p *AmmFactoryConfigUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	applyConfig(c, ammFactoryConfig, f, &f.ConfigHistory, "amm_factory", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveAmmFactory(f)
}

func (h *ammFactoryHandler) onOwnerUpdated(c *call, p *OwnerUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.Owner = p.NewOwner.Hex()
	recordChange(&f.ConfigHistory, "amm_factory", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveAmmFactory(f)
}

func (h *ammFactoryHandler) onFeesReceiverUpdated(c *call, p *FeesReceiverUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.FeeTo = p.NewFeeTo.Hex()
	recordChange(&f.ConfigHistory, "amm_factory", "fee_to", valueAddress, p.PreviousFeeTo, p.NewFeeTo, c.ts)
	return c.tx.SaveAmmFactory(f)
}

func (h *ammFactoryHandler) onClassHashUpdated(c *call, p *ClassHashUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.PairContractClassHash = p.NewHash.Hex()
	recordChange(&f.ConfigHistory, "amm_factory", "pair_contract_class_hash", valueAddress, p.OldHash, p.NewHash, c.ts)
	return c.tx.SaveAmmFactory(f)
}

type Mint struct {
	Sender        starknet.Felt `json:"sender"`
	Amount0       *big.Int      `json:"amount0"`
	Amount1       *big.Int      `json:"amount1"`
	UserLiquidity *big.Int      `json:"user_liquidity"`
	Reserve0      *big.Int      `json:"reserve0"`
	Reserve1      *big.Int      `json:"reserve1"`
	TotalSupply   *big.Int      `json:"total_supply"`
}

// Burn has the same layout as Mint.
type Burn Mint

type Swap struct {
	Sender         starknet.Felt  `json:"sender"`
	Amount0In      *big.Int       `json:"amount0_in"`
	Amount1In      *big.Int       `json:"amount1_in"`
	Amount0Out     *big.Int       `json:"amount0_out"`
	Amount1Out     *big.Int       `json:"amount1_out"`
	Balance0       *big.Int       `json:"balance0"`
	Balance1       *big.Int       `json:"balance1"`
	Reserve0       *big.Int       `json:"reserve0"`
	Reserve1       *big.Int       `json:"reserve1"`
	FactoryAddress starknet.Felt  `json:"factory_address"`
	To             *starknet.Felt `json:"to" starknet:"optional"`
}

type Sync struct {
	Reserve0             *big.Int      `json:"reserve0"`
	Reserve1             *big.Int      `json:"reserve1"`
	Balance0             *big.Int      `json:"balance0"`
	Balance1             *big.Int      `json:"balance1"`
	Price0CumulativeLast *big.Int      `json:"price_0_cumulative_last"`
	Price1CumulativeLast *big.Int      `json:"price_1_cumulative_last"`
	FactoryAddress       starknet.Felt `json:"factory_address"`
}

type Skim struct {
	Sender   starknet.Felt `json:"sender"`
	Amount0  *big.Int      `json:"amount0"`
	Amount1  *big.Int      `json:"amount1"`
	Reserve0 *big.Int      `json:"reserve0"`
	Reserve1 *big.Int      `json:"reserve1"`
}

type ReserveUpdated struct {
	PairAddress starknet.Felt `json:"pair_address"`
	OldReserve0 *big.Int      `json:"old_reserve0"`
	OldReserve1 *big.Int      `json:"old_reserve1"`
	NewReserve0 *big.Int      `json:"new_reserve0"`
	NewReserve1 *big.Int      `json:"new_reserve1"`
}

type KLastUpdated struct {
	PairAddress starknet.Felt `json:"pair_address"`
	OldKLast    *big.Int      `json:"old_klast"`
	NewKLast    *big.Int      `json:"new_klast"`
}

type PriceAccumulatorUpdated struct {
	PairAddress          starknet.Felt `json:"pair_address"`
	Price0CumulativeLast *big.Int      `json:"price_0_cumulative_last"`
	Price1CumulativeLast *big.Int      `json:"price_1_cumulative_last"`
}

type PairConfigUpdated struct {
	FieldName   starknet.Felt `json:"field_name"`
	OldValue    starknet.Felt `json:"old_value"`
	NewValue    starknet.Felt `json:"new_value"`
	PairAddress starknet.Felt `json:"pair_address"`
}

type pairHandler struct {
	*handlerSet
}

func newPairHandler(deps indexer.Deps) indexer.Handler {
	h := &pairHandler{handlerSet: newHandlerSet(indexer.KindPair, deps.Log)}

	on(h.handlerSet, "Mint", h.onMint)
	on(h.handlerSet, "Burn", h.onBurn)
	on(h.handlerSet, "Swap", h.onSwap)
	on(h.handlerSet, "Sync", h.onSync)
	on(h.handlerSet, "Skim", h.onSkim)
	on(h.handlerSet, "ReserveUpdated", h.onReserveUpdated)
	on(h.handlerSet, "KLastUpdated", h.onKLastUpdated)
	on(h.handlerSet, "PriceAccumulatorUpdated", h.onPriceAccumulatorUpdated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)

	return h
}

func (h *pairHandler) pair(c *call) (*store.Pair, error) {
	p, err := c.tx.GetPair(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("pair", c.contract)
	}
	return p, err
}

func (h *pairHandler) position(c *call, agent string) (*store.LiquidityPosition, error) {
	pos, err := c.tx.GetLiquidityPosition(c.contract, agent)
	if store.IsNotFound(err) {
		return store.NewLiquidityPosition(c.contract, agent), nil
	}
	return pos, err
}

func (h *pairHandler) onMint(c *call, p *Mint) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Reserve0 = zeroIfNil(p.Reserve0)
	pair.Reserve1 = zeroIfNil(p.Reserve1)
	pair.TotalSupply = zeroIfNil(p.TotalSupply)
	if err := c.tx.SavePair(pair); err != nil {
		return err
	}

	sender := p.Sender.Hex()
	pos, err := h.position(c, sender)
	if err != nil {
		return err
	}

	pos.Liquidity = add(pos.Liquidity, p.UserLiquidity)
	pos.DepositsToken0 = add(pos.DepositsToken0, p.Amount0)
	pos.DepositsToken1 = add(pos.DepositsToken1, p.Amount1)
	if err := c.tx.SaveLiquidityPosition(pos); err != nil {
		return err
	}

	c.log.Debugw("mint", "pair", c.contract, "sender", sender, "liquidity", p.UserLiquidity)

	return c.tx.InsertLiquidityEvent(&store.LiquidityEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.LiquidityMint,
		PairAddress:     c.contract,
		PositionID:      pos.ID,
		Sender:          sender,
		Amount0:         zeroIfNil(p.Amount0),
		Amount1:         zeroIfNil(p.Amount1),
		Liquidity:       zeroIfNil(p.UserLiquidity),
	})
}

func (h *pairHandler) onBurn(c *call, p *Burn) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Reserve0 = zeroIfNil(p.Reserve0)
	pair.Reserve1 = zeroIfNil(p.Reserve1)
	pair.TotalSupply = zeroIfNil(p.TotalSupply)
	if err := c.tx.SavePair(pair); err != nil {
		return err
	}

	sender := p.Sender.Hex()
	pos, err := h.position(c, sender)
	if err != nil {
		return err
	}

	burned := zeroIfNil(p.UserLiquidity)
	liquidity := zeroIfNil(pos.Liquidity)
	if burned.Cmp(liquidity) > 0 {
		c.log.Warnf("burn of %s exceeds liquidity %s of %s in pair %s, clamping to zero",
			burned, liquidity, sender, c.contract)
		LiquidityClampInc()
		pos.Liquidity = new(big.Int)
	} else {
		pos.Liquidity = liquidity.Sub(liquidity, burned)
	}
	pos.WithdrawalsToken0 = add(pos.WithdrawalsToken0, p.Amount0)
	pos.WithdrawalsToken1 = add(pos.WithdrawalsToken1, p.Amount1)
	if err := c.tx.SaveLiquidityPosition(pos); err != nil {
		return err
	}

	c.log.Debugw("burn", "pair", c.contract, "sender", sender, "liquidity", burned)

	return c.tx.InsertLiquidityEvent(&store.LiquidityEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		EventType:       store.LiquidityBurn,
		PairAddress:     c.contract,
		PositionID:      pos.ID,
		Sender:          sender,
		Amount0:         zeroIfNil(p.Amount0),
		Amount1:         zeroIfNil(p.Amount1),
		Liquidity:       burned,
	})
}

func (h *pairHandler) onSwap(c *call, p *Swap) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	impact := priceImpact(
		zeroIfNil(pair.Reserve0), zeroIfNil(pair.Reserve1),
		zeroIfNil(p.Amount0In), zeroIfNil(p.Amount1In),
		zeroIfNil(p.Amount0Out), zeroIfNil(p.Amount1Out),
	)

	pair.Reserve0 = zeroIfNil(p.Reserve0)
	pair.Reserve1 = zeroIfNil(p.Reserve1)
	if err := c.tx.SavePair(pair); err != nil {
		return err
	}

	sender := p.Sender.Hex()
	recipient := sender
	if p.To != nil {
		recipient = p.To.Hex()
	}

	return c.tx.InsertSwapEvent(&store.SwapEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		BlockNumber:     c.ev.BlockNumber,
		PairAddress:     c.contract,
		Sender:          sender,
		Recipient:       recipient,
		Amount0In:       zeroIfNil(p.Amount0In),
		Amount1In:       zeroIfNil(p.Amount1In),
		Amount0Out:      zeroIfNil(p.Amount0Out),
		Amount1Out:      zeroIfNil(p.Amount1Out),
		PriceImpact:     impact,
	})
}

func (h *pairHandler) onSync(c *call, p *Sync) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Reserve0 = zeroIfNil(p.Reserve0)
	pair.Reserve1 = zeroIfNil(p.Reserve1)
	pair.Price0CumulativeLast = zeroIfNil(p.Price0CumulativeLast)
	pair.Price1CumulativeLast = zeroIfNil(p.Price1CumulativeLast)
	pair.BlockTimestampLast = c.ts
	return c.tx.SavePair(pair)
}

func (h *pairHandler) onSkim(c *call, p *Skim) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Reserve0 = zeroIfNil(p.Reserve0)
	pair.Reserve1 = zeroIfNil(p.Reserve1)
	return c.tx.SavePair(pair)
}

func (h *pairHandler) onReserveUpdated(c *call, p *ReserveUpdated) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Reserve0 = zeroIfNil(p.NewReserve0)
	pair.Reserve1 = zeroIfNil(p.NewReserve1)
	return c.tx.SavePair(pair)
}

func (h *pairHandler) onKLastUpdated(c *call, p *KLastUpdated) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.KLast = zeroIfNil(p.NewKLast)
	return c.tx.SavePair(pair)
}

func (h *pairHandler) onPriceAccumulatorUpdated(c *call, p *PriceAccumulatorUpdated) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	pair.Price0CumulativeLast = zeroIfNil(p.Price0CumulativeLast)
	pair.Price1CumulativeLast = zeroIfNil(p.Price1CumulativeLast)
	pair.BlockTimestampLast = c.ts
	return c.tx.SavePair(pair)
}

func (h *pairHandler) onConfigUpdated(c *call, p *PairConfigUpdated) error {
	pair, err := h.pair(c)
	if pair == nil {
		return err
	}

	applyConfig(c, pairConfig, pair, &pair.ConfigHistory, "pair", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SavePair(pair)
}

func init() {
	indexer.Register(indexer.KindAmmFactory, newAmmFactoryHandler)
	indexer.Register(indexer.KindPair, newPairHandler)
}
