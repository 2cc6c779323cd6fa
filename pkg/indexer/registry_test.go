package indexer

import (
	"context"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

type mockHandler struct {
	kind ContractKind
	name string
}

func (m *mockHandler) Kind() ContractKind { return m.kind }
func (m *mockHandler) Events() []string   { return []string{m.name} }
func (m *mockHandler) Handle(context.Context, *store.Tx, *starknet.Event) error {
	return nil
}

// resetRegistry clears the factory registry for testing
func resetRegistry() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[ContractKind]Factory)
}

func TestRegister(t *testing.T) {
	// Cannot use t.Parallel() because it modifies the global registry

	tests := []struct {
		name          string
		kind          ContractKind
		factory       Factory
		setupExisting func()
		validate      func(t *testing.T)
	}{
		{
			name: "register new kind",
			kind: KindPair,
			factory: func(Deps) Handler {
				return &mockHandler{kind: KindPair, name: "Swap"}
			},
			validate: func(t *testing.T) {
				t.Helper()

				h, err := Create(KindPair, Deps{})
				require.NoError(t, err)
				require.Equal(t, KindPair, h.Kind())
			},
		},
		{
			name: "overwrite existing registration",
			kind: KindFarm,
			factory: func(Deps) Handler {
				return &mockHandler{kind: KindFarm, name: "new"}
			},
			setupExisting: func() {
				Register(KindFarm, func(Deps) Handler {
					return &mockHandler{kind: KindFarm, name: "old"}
				})
			},
			validate: func(t *testing.T) {
				t.Helper()

				h, err := Create(KindFarm, Deps{})
				require.NoError(t, err)
				require.Equal(t, []string{"new"}, h.Events())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetRegistry()

			if tt.setupExisting != nil {
				tt.setupExisting()
			}

			Register(tt.kind, tt.factory)
			tt.validate(t)
		})
	}
}

func TestCreate_UnknownKind(t *testing.T) {
	resetRegistry()
	Register(KindPair, func(Deps) Handler { return &mockHandler{kind: KindPair} })

	_, err := Create(KindFaucet, Deps{})
	require.ErrorContains(t, err, "unknown contract kind: faucet")
	require.Equal(t, []ContractKind{KindPair}, ListRegistered())
}

func TestContractKind(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind     ContractKind
		template string
		child    ContractKind
	}{
		{KindAmmFactory, "amm_factory_events", KindPair},
		{KindPair, "pair_events", ""},
		{KindFarmFactory, "farm_factory_events", KindFarm},
		{KindFarm, "farm_events", ""},
		{KindFaucetFactory, "faucet_factory_events", KindFaucet},
		{KindFaucet, "faucet_events", ""},
		{KindGameFactory, "game_factory_events", KindGameSession},
		{KindGameSession, "game_session_events", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			t.Parallel()

			require.True(t, tt.kind.Valid())
			require.Equal(t, tt.template, tt.kind.Template())

			child, ok := tt.kind.Child()
			require.Equal(t, tt.child != "", ok)
			require.Equal(t, tt.child, child)
		})
	}

	_, err := ParseKind("erc20")
	require.Error(t, err)
}

func TestChildName(t *testing.T) {
	t.Parallel()

	require.Equal(t, "pair_deadbeef", ChildName(KindPair, "0x1234deadbeef"))
	require.Equal(t, "farm_0000abcd", ChildName(KindFarm, "0xabcd"))
	require.Equal(t, "faucet_00000000", ChildName(KindFaucet, "0x"))
}
