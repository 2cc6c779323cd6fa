package jobs

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

const (
	sessionAddr = "0x5e55"
	agentAddr   = "0xa1"
)

// fakeCaller answers contract calls keyed by "address.entrypoint(calldata...)".
type fakeCaller struct {
	mu      sync.Mutex
	results map[string][]starknet.Felt
	calls   int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{results: make(map[string][]starknet.Felt)}
}

func callKey(contract starknet.Felt, entrypoint string, calldata []starknet.Felt) string {
	args := make([]string, len(calldata))
	for i, f := range calldata {
		args[i] = f.Hex()
	}
	return contract.Hex() + "." + entrypoint + "(" + strings.Join(args, ",") + ")"
}

func (f *fakeCaller) set(address, entrypoint string, calldata []string, res ...starknet.Felt) {
	f.mu.Lock()
	defer f.mu.Unlock()

	args := make([]starknet.Felt, len(calldata))
	for i, s := range calldata {
		args[i] = starknet.MustParseFelt(s)
	}
	f.results[callKey(starknet.MustParseFelt(address), entrypoint, args)] = res
}

func (f *fakeCaller) setToken(t *testing.T, address, name, symbol string, decimals uint64) {
	t.Helper()

	f.set(address, "name", nil, short(t, name))
	f.set(address, "symbol", nil, short(t, symbol))
	f.set(address, "decimals", nil, starknet.FeltFromUint64(decimals))
}

func (f *fakeCaller) setU256(address, entrypoint string, calldata []string, v *big.Int) {
	low, high := starknet.SplitU256(v)
	f.set(address, entrypoint, calldata, low, high)
}

func (f *fakeCaller) Call(
	_ context.Context, contract starknet.Felt, entrypoint string, calldata []starknet.Felt,
) ([]starknet.Felt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	res, ok := f.results[callKey(contract, entrypoint, calldata)]
	if !ok {
		return nil, errors.New("entrypoint not found")
	}
	return res, nil
}

func short(t *testing.T, s string) starknet.Felt {
	t.Helper()

	f, err := starknet.EncodeShortString(s)
	require.NoError(t, err)
	return f
}

// e18 returns n * 10^18.
func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

func save(t *testing.T, st *store.Store, fn func(tx *store.Tx) error) {
	t.Helper()
	require.NoError(t, st.WithTx(context.Background(), fn))
}
