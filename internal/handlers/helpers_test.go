package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/store/storetest"
	"github.com/goran-ethernal/StarkIndexor/internal/tokens"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
)

const (
	ammFactoryAddr    = "0xa00"
	farmFactoryAddr   = "0xf00"
	faucetFactoryAddr = "0xfa00"
	gameFactoryAddr   = "0x6a00"
)

var testRoots = []config.ContractConfig{
	{Name: "amm", Address: ammFactoryAddr, Type: config.ContractTypeAmmFactory},
	{Name: "farms", Address: farmFactoryAddr, Type: config.ContractTypeFarmFactory},
	{Name: "faucets", Address: faucetFactoryAddr, Type: config.ContractTypeFaucetFactory},
	{Name: "games", Address: gameFactoryAddr, Type: config.ContractTypeGameFactory},
}

// staticTokens resolves every token to fixed metadata keyed by address.
type staticTokens map[string]tokens.Metadata

func (s staticTokens) Get(_ context.Context, token string) tokens.Metadata {
	if md, ok := s[token]; ok {
		return md
	}
	return tokens.DefaultMetadata()
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *store.Store
	d     *Dispatcher
	block uint64
	tx    uint64
}

func newFixture(t *testing.T, src staticTokens) *fixture {
	t.Helper()

	st := storetest.NewStore(t)
	var tokenSource indexer.TokenSource
	if src != nil {
		tokenSource = src
	}

	d, err := NewDispatcher(st, tokenSource, logger.NewNopLogger())
	require.NoError(t, err)
	require.NoError(t, d.Load(context.Background(), testRoots))

	return &fixture{t: t, ctx: context.Background(), store: st, d: d, block: 100}
}

// event builds a named-payload event emitted by contract at timestamp ts.
func (f *fixture) event(contract, name string, ts uint64, payload map[string]any) *starknet.Event {
	f.t.Helper()

	raw, err := json.Marshal(payload)
	require.NoError(f.t, err)

	f.block++
	f.tx++

	return &starknet.Event{
		ContractAddress: starknet.MustParseFelt(contract),
		TransactionHash: starknet.FeltFromUint64(0x7000 + f.tx),
		BlockNumber:     f.block,
		BlockTimestamp:  ts,
		Name:            name,
		Payload:         raw,
	}
}

// emit applies one event and requires it to succeed.
func (f *fixture) emit(contract, name string, ts uint64, payload map[string]any) {
	f.t.Helper()
	require.NoError(f.t, f.d.HandleEvents(f.ctx, []*starknet.Event{f.event(contract, name, ts, payload)}))
}

func (f *fixture) view(fn func(tx *store.Tx)) {
	f.t.Helper()
	require.NoError(f.t, f.store.View(f.ctx, func(tx *store.Tx) error {
		fn(tx)
		return nil
	}))
}

func shortString(t *testing.T, s string) string {
	t.Helper()
	f, err := starknet.EncodeShortString(s)
	require.NoError(t, err)
	return f.Hex()
}
