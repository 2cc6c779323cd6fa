package handlers

import (
	"math/big"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
)

type FaucetFactoryInitialized struct {
	FaucetFactory   starknet.Felt `json:"faucet_factory"`
	Owner           starknet.Felt `json:"owner"`
	FaucetClassHash starknet.Felt `json:"faucet_class_hash"`
}

type FaucetCreated struct {
	Faucet        starknet.Felt `json:"faucet"`
	FaucetFactory starknet.Felt `json:"faucet_factory"`
	FaucetIndex   uint64        `json:"faucet_index"`
	FaucetCount   uint64        `json:"faucet_count"`
	ClaimInterval uint64        `json:"claim_interval"`
	GameSessionID uint64        `json:"game_session_id"`
}

type FaucetFactoryConfigUpdated struct {
	FaucetFactory starknet.Felt `json:"faucet_factory"`
	FieldName     starknet.Felt `json:"field_name"`
	OldValue      starknet.Felt `json:"old_value"`
	NewValue      starknet.Felt `json:"new_value"`
}

type FaucetFactoryOwnershipTransferred struct {
	FaucetFactory starknet.Felt `json:"faucet_factory"`
	PreviousOwner starknet.Felt `json:"previous_owner"`
	NewOwner      starknet.Felt `json:"new_owner"`
}

type FaucetClassHashUpdated struct {
	FaucetFactory starknet.Felt `json:"faucet_factory"`
	OldHash       starknet.Felt `json:"old_hash"`
	NewHash       starknet.Felt `json:"new_hash"`
}

type faucetFactoryHandler struct {
	*handlerSet
	deps indexer.Deps
}

func newFaucetFactoryHandler(deps indexer.Deps) indexer.Handler {
	h := &faucetFactoryHandler{handlerSet: newHandlerSet(indexer.KindFaucetFactory, deps.Log), deps: deps}

	on(h.handlerSet, "FaucetFactoryInitialized", h.onInitialized)
	on(h.handlerSet, "FaucetCreated", h.onFaucetCreated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)
	on(h.handlerSet, "FaucetClassHashUpdated", h.onClassHashUpdated)

	return h
}

func (h *faucetFactoryHandler) factory(c *call) (*store.FaucetFactory, error) {
	f, err := c.tx.GetFaucetFactory(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("faucet factory", c.contract)
	}
	return f, err
}

func (h *faucetFactoryHandler) onInitialized(c *call, p *FaucetFactoryInitialized) error {
	f, err := c.tx.GetFaucetFactory(c.contract)
	if store.IsNotFound(err) {
		f = &store.FaucetFactory{Address: c.contract}
	} else if err != nil {
		return err
	}

	f.Owner = p.Owner.Hex()
	f.FaucetClassHash = p.FaucetClassHash.Hex()

	c.log.Infow("faucet factory initialized", "factory", c.contract, "owner", f.Owner)
	return c.tx.SaveFaucetFactory(f)
}

func (h *faucetFactoryHandler) onFaucetCreated(c *call, p *FaucetCreated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	// faucet_count is emitted before the factory increments it.
	f.FaucetCount = p.FaucetCount + 1
	if err := c.tx.SaveFaucetFactory(f); err != nil {
		return err
	}

	addr := p.Faucet.Hex()
	faucet, err := c.tx.GetFaucet(addr)
	if err != nil && !store.IsNotFound(err) {
		return err
	}

	created := faucet == nil
	if created {
		faucet = &store.Faucet{Address: addr, Owner: f.Owner}
	}

	faucet.FactoryAddress = c.contract
	faucet.FaucetIndex = p.FaucetIndex
	faucet.ClaimInterval = p.ClaimInterval
	faucet.GameSessionID = p.GameSessionID
	if err := c.tx.SaveFaucet(faucet); err != nil {
		return err
	}

	if !created {
		c.log.Debugf("faucet %s already indexed, updated from FaucetCreated", addr)
		return nil
	}

	c.log.Infow("faucet created", "faucet", addr, "index", p.FaucetIndex, "game_session_id", p.GameSessionID)

	return registerChild(c, h.deps.Registrar, indexer.KindFaucet, addr)
}

func (h *faucetFactoryHandler) onConfigUpdated(c *call, p *FaucetFactoryConfigUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	applyConfig(c, faucetFactoryConfig, f, &f.ConfigHistory, "faucet_factory", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveFaucetFactory(f)
}

func (h *faucetFactoryHandler) onOwnershipTransferred(c *call, p *FaucetFactoryOwnershipTransferred) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.Owner = p.NewOwner.Hex()
	recordChange(&f.ConfigHistory, "faucet_factory", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveFaucetFactory(f)
}

func (h *faucetFactoryHandler) onClassHashUpdated(c *call, p *FaucetClassHashUpdated) error {
	f, err := h.factory(c)
	if f == nil {
		return err
	}

	f.FaucetClassHash = p.NewHash.Hex()
	recordChange(&f.ConfigHistory, "faucet_factory", "faucet_class_hash", valueAddress, p.OldHash, p.NewHash, c.ts)
	return c.tx.SaveFaucetFactory(f)
}

type FaucetInitialized struct {
	FaucetAddress starknet.Felt `json:"faucet_address"`
	Owner         starknet.Felt `json:"owner"`
	ClaimInterval uint64        `json:"claim_interval"`
	GameSessionID uint64        `json:"game_session_id"`
}

type TokenAdded struct {
	Token       starknet.Felt `json:"token"`
	Amount      *big.Int      `json:"amount"`
	ClaimAmount *big.Int      `json:"claim_amount"`
}

type TokenRemoved struct {
	Token starknet.Felt `json:"token"`
}

type Claim struct {
	Sender           starknet.Felt `json:"sender"`
	Token            starknet.Felt `json:"token"`
	Amount           *big.Int      `json:"amount"`
	FaucetAddress    starknet.Felt `json:"faucet_address"`
	TotalTokenAmount *big.Int      `json:"total_token_amount"`
	ClaimedAt        uint64        `json:"claimed_at"`
}

type WhitelistChanged struct {
	Address starknet.Felt `json:"address"`
}

type LastClaimUpdated struct {
	UserAddress       starknet.Felt `json:"user_address"`
	PreviousTimestamp uint64        `json:"previous_timestamp"`
	NewTimestamp      uint64        `json:"new_timestamp"`
}

type ClaimIntervalUpdated struct {
	OldInterval starknet.Felt `json:"old_interval"`
	NewInterval starknet.Felt `json:"new_interval"`
}

type FaucetConfigUpdated struct {
	FieldName     starknet.Felt `json:"field_name"`
	OldValue      starknet.Felt `json:"old_value"`
	NewValue      starknet.Felt `json:"new_value"`
	FaucetAddress starknet.Felt `json:"faucet_address"`
}

type faucetHandler struct {
	*handlerSet
}

func newFaucetHandler(deps indexer.Deps) indexer.Handler {
	h := &faucetHandler{handlerSet: newHandlerSet(indexer.KindFaucet, deps.Log)}

	on(h.handlerSet, "FaucetInitialized", h.onInitialized)
	on(h.handlerSet, "TokenAdded", h.onTokenAdded)
	on(h.handlerSet, "TokenRemoved", h.onTokenRemoved)
	on(h.handlerSet, "Claim", h.onClaim)
	on(h.handlerSet, "AddedToWhitelist", h.onAddedToWhitelist)
	on(h.handlerSet, "RemovedFromWhitelist", h.onRemovedFromWhitelist)
	on(h.handlerSet, "LastClaimUpdated", h.onLastClaimUpdated)
	on(h.handlerSet, "ClaimIntervalUpdated", h.onClaimIntervalUpdated)
	on(h.handlerSet, "ConfigUpdated", h.onConfigUpdated)
	on(h.handlerSet, "OwnershipTransferred", h.onOwnershipTransferred)

	return h
}

func (h *faucetHandler) faucet(c *call) (*store.Faucet, error) {
	f, err := c.tx.GetFaucet(c.contract)
	if store.IsNotFound(err) {
		return nil, c.missing("faucet", c.contract)
	}
	return f, err
}

func (h *faucetHandler) onInitialized(c *call, p *FaucetInitialized) error {
	f, err := c.tx.GetFaucet(c.contract)
	if store.IsNotFound(err) {
		f = &store.Faucet{Address: c.contract}
	} else if err != nil {
		return err
	}

	f.Owner = p.Owner.Hex()
	f.ClaimInterval = p.ClaimInterval
	f.GameSessionID = p.GameSessionID
	return c.tx.SaveFaucet(f)
}

func (h *faucetHandler) onTokenAdded(c *call, p *TokenAdded) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	token := p.Token.Hex()
	if f.TokensList.Add(token) {
		if err := c.tx.SaveFaucet(f); err != nil {
			return err
		}
	}

	t, err := c.tx.GetFaucetToken(c.contract, token)
	if store.IsNotFound(err) {
		t = &store.FaucetToken{FaucetAddress: c.contract, TokenAddress: token, ClaimedAmount: new(big.Int)}
	} else if err != nil {
		return err
	}

	t.Amount = zeroIfNil(p.Amount)
	t.ClaimAmount = zeroIfNil(p.ClaimAmount)
	return c.tx.SaveFaucetToken(t)
}

func (h *faucetHandler) onTokenRemoved(c *call, p *TokenRemoved) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	token := p.Token.Hex()
	if _, err := c.tx.GetFaucetToken(c.contract, token); store.IsNotFound(err) {
		return c.missing("faucet token", token)
	} else if err != nil {
		return err
	}

	if f.TokensList.Remove(token) {
		if err := c.tx.SaveFaucet(f); err != nil {
			return err
		}
	}

	return c.tx.DeleteFaucetToken(c.contract, token)
}

func (h *faucetHandler) onClaim(c *call, p *Claim) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	sender := p.Sender.Hex()
	user, err := c.tx.GetWhitelistedUser(c.contract, sender)
	if store.IsNotFound(err) || (err == nil && !user.IsWhitelisted) {
		c.log.Warnf("claim by %s on faucet %s ignored, user is not whitelisted (tx %s)", sender, c.contract, c.txHash)
		return nil
	} else if err != nil {
		return err
	}

	token := p.Token.Hex()
	t, err := c.tx.GetFaucetToken(c.contract, token)
	if store.IsNotFound(err) {
		return c.missing("faucet token", token)
	} else if err != nil {
		return err
	}

	amount := zeroIfNil(p.Amount)
	t.Amount = zeroIfNil(p.TotalTokenAmount)
	t.ClaimedAmount = add(t.ClaimedAmount, amount)
	if err := c.tx.SaveFaucetToken(t); err != nil {
		return err
	}

	user.LastClaim = p.ClaimedAt
	if err := c.tx.SaveWhitelistedUser(user); err != nil {
		return err
	}

	return c.tx.InsertClaimEvent(&store.ClaimEvent{
		TransactionHash: c.txHash,
		CreatedAt:       c.at(),
		FaucetAddress:   c.contract,
		UserAddress:     sender,
		TokenAddress:    token,
		Amount:          amount,
	})
}

func (h *faucetHandler) setWhitelisted(c *call, addr string, whitelisted bool) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	user, err := c.tx.GetWhitelistedUser(c.contract, addr)
	if store.IsNotFound(err) {
		if !whitelisted {
			return c.missing("whitelisted user", addr)
		}
		user = &store.WhitelistedUser{FaucetAddress: c.contract, UserAddress: addr}
	} else if err != nil {
		return err
	}

	user.IsWhitelisted = whitelisted
	return c.tx.SaveWhitelistedUser(user)
}

func (h *faucetHandler) onAddedToWhitelist(c *call, p *WhitelistChanged) error {
	return h.setWhitelisted(c, p.Address.Hex(), true)
}

func (h *faucetHandler) onRemovedFromWhitelist(c *call, p *WhitelistChanged) error {
	return h.setWhitelisted(c, p.Address.Hex(), false)
}

func (h *faucetHandler) onLastClaimUpdated(c *call, p *LastClaimUpdated) error {
	addr := p.UserAddress.Hex()
	user, err := c.tx.GetWhitelistedUser(c.contract, addr)
	if store.IsNotFound(err) {
		return c.missing("whitelisted user", addr)
	} else if err != nil {
		return err
	}

	user.LastClaim = p.NewTimestamp
	return c.tx.SaveWhitelistedUser(user)
}

func (h *faucetHandler) onClaimIntervalUpdated(c *call, p *ClaimIntervalUpdated) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	setUint64(&f.ClaimInterval, p.NewInterval)
	recordChange(&f.ConfigHistory, "faucet", "claim_interval", valueInteger, p.OldInterval, p.NewInterval, c.ts)
	return c.tx.SaveFaucet(f)
}

func (h *faucetHandler) onConfigUpdated(c *call, p *FaucetConfigUpdated) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	applyConfig(c, faucetConfig, f, &f.ConfigHistory, "faucet", p.FieldName, p.OldValue, p.NewValue)
	return c.tx.SaveFaucet(f)
}

func (h *faucetHandler) onOwnershipTransferred(c *call, p *OwnershipTransferred) error {
	f, err := h.faucet(c)
	if f == nil {
		return err
	}

	f.Owner = p.NewOwner.Hex()
	recordChange(&f.ConfigHistory, "faucet", "owner", valueAddress, p.PreviousOwner, p.NewOwner, c.ts)
	return c.tx.SaveFaucet(f)
}

func init() {
	indexer.Register(indexer.KindFaucetFactory, newFaucetFactoryHandler)
	indexer.Register(indexer.KindFaucet, newFaucetHandler)
}
