package handlers

import (
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	faucetAddr  = "0xd01"
	faucetToken = "0x30"
	claimer     = "0xc1a"
)

func setupFaucet(t *testing.T) *fixture {
	t.Helper()

	f := newFixture(t, nil)

	f.emit(faucetFactoryAddr, "FaucetFactoryInitialized", 1000, map[string]any{
		"faucet_factory":    faucetFactoryAddr,
		"owner":             "0x1",
		"faucet_class_hash": "0x5",
	})
	f.emit(faucetFactoryAddr, "FaucetCreated", 1010, map[string]any{
		"faucet":          faucetAddr,
		"faucet_factory":  faucetFactoryAddr,
		"faucet_index":    0,
		"faucet_count":    0,
		"claim_interval":  3600,
		"game_session_id": 7,
	})
	f.emit(faucetAddr, "TokenAdded", 1020, map[string]any{
		"token":        faucetToken,
		"amount":       1000,
		"claim_amount": 10,
	})

	return f
}

func (f *fixture) claim(ts uint64, amount, remaining int64) {
	f.emit(faucetAddr, "Claim", ts, map[string]any{
		"sender":             claimer,
		"token":              faucetToken,
		"amount":             amount,
		"faucet_address":     faucetAddr,
		"total_token_amount": remaining,
		"claimed_at":         ts,
	})
}

func TestFaucet_ClaimByWhitelistedUser(t *testing.T) {
	f := setupFaucet(t)

	f.emit(faucetAddr, "AddedToWhitelist", 1030, map[string]any{"address": claimer})
	f.claim(1100, 10, 990)
	f.claim(4700, 10, 980)

	f.view(func(tx *store.Tx) {
		factory, err := tx.GetFaucetFactory(faucetFactoryAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(1), factory.FaucetCount)

		faucet, err := tx.GetFaucet(faucetAddr)
		require.NoError(t, err)
		require.Equal(t, store.AddressSet{faucetToken}, faucet.TokensList)
		require.Equal(t, "0x1", faucet.Owner)

		token, err := tx.GetFaucetToken(faucetAddr, faucetToken)
		require.NoError(t, err)
		require.Equal(t, "980", token.Amount.String())
		require.Equal(t, "20", token.ClaimedAmount.String())

		user, err := tx.GetWhitelistedUser(faucetAddr, claimer)
		require.NoError(t, err)
		require.Equal(t, uint64(4700), user.LastClaim)

		claims, err := tx.ListClaimEvents(faucetAddr)
		require.NoError(t, err)
		require.Len(t, claims, 2)
		require.Equal(t, int64(4700), claims[1].CreatedAt)
	})
}

func TestFaucet_ClaimAfterWhitelistRemoval(t *testing.T) {
	f := setupFaucet(t)

	f.emit(faucetAddr, "AddedToWhitelist", 1030, map[string]any{"address": claimer})
	f.emit(faucetAddr, "RemovedFromWhitelist", 1040, map[string]any{"address": claimer})
	f.claim(1100, 10, 990)

	f.view(func(tx *store.Tx) {
		user, err := tx.GetWhitelistedUser(faucetAddr, claimer)
		require.NoError(t, err)
		require.False(t, user.IsWhitelisted)

		users, err := tx.ListWhitelistedUsers(faucetAddr)
		require.NoError(t, err)
		require.Empty(t, users)

		claims, err := tx.ListClaimEvents(faucetAddr)
		require.NoError(t, err)
		require.Empty(t, claims)

		token, err := tx.GetFaucetToken(faucetAddr, faucetToken)
		require.NoError(t, err)
		require.Equal(t, "1000", token.Amount.String())
		require.Zero(t, token.ClaimedAmount.Sign())
	})
}

func TestFaucet_TokenRemoved(t *testing.T) {
	f := setupFaucet(t)

	f.emit(faucetAddr, "TokenRemoved", 1100, map[string]any{"token": faucetToken})
	// removing it again is a missing referent, not an error
	f.emit(faucetAddr, "TokenRemoved", 1200, map[string]any{"token": faucetToken})

	f.view(func(tx *store.Tx) {
		faucet, err := tx.GetFaucet(faucetAddr)
		require.NoError(t, err)
		require.Empty(t, faucet.TokensList)

		tokens, err := tx.ListFaucetTokens(faucetAddr)
		require.NoError(t, err)
		require.Empty(t, tokens)
	})
}

func TestFaucet_ClaimIntervalUpdated(t *testing.T) {
	f := setupFaucet(t)

	f.emit(faucetAddr, "ClaimIntervalUpdated", 1100, map[string]any{
		"old_interval": 3600,
		"new_interval": 7200,
	})

	f.view(func(tx *store.Tx) {
		faucet, err := tx.GetFaucet(faucetAddr)
		require.NoError(t, err)
		require.Equal(t, uint64(7200), faucet.ClaimInterval)
		require.Equal(t, store.ConfigHistory{
			{Field: "claim_interval", OldValue: "3600", NewValue: "7200", Timestamp: 1100},
		}, faucet.ConfigHistory)
	})
}
