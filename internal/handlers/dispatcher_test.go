package handlers

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/starknet"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/store/storetest"
	"github.com/goran-ethernal/StarkIndexor/pkg/indexer"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	regs []Registration
}

func (r *recordingSubscriber) ContractRegistered(reg Registration) {
	r.regs = append(r.regs, reg)
}

func TestDispatcher_Load(t *testing.T) {
	f := newFixture(t, nil)

	require.Equal(t, []string{"0x6a00", "0xa00", "0xf00", "0xfa00"}, f.d.Addresses())

	// loading again keeps one row per root
	require.NoError(t, f.d.Load(f.ctx, testRoots))
	f.view(func(tx *store.Tx) {
		contracts, err := tx.ListRegisteredContracts()
		require.NoError(t, err)
		require.Len(t, contracts, len(testRoots))

		c, err := tx.GetRegisteredContract(ammFactoryAddr)
		require.NoError(t, err)
		require.Equal(t, "amm_events", c.IndexName)
		require.Equal(t, indexer.KindAmmFactory.Template(), c.Template)
	})
}

func TestDispatcher_LoadRejectsUnknownType(t *testing.T) {
	st := storetest.NewStore(t)
	d, err := NewDispatcher(st, nil, logger.NewNopLogger())
	require.NoError(t, err)

	roots := append(testRoots[:0:0], testRoots...)
	roots[0].Type = "vault"
	require.Error(t, d.Load(context.Background(), roots))
}

func TestDispatcher_SkipsUnroutedAndUnknown(t *testing.T) {
	f := newFixture(t, nil)

	events := []*starknet.Event{
		f.event("0xdead", "FactoryInitialized", 1000, map[string]any{}),
		f.event(ammFactoryAddr, "NotAnEvent", 1000, map[string]any{}),
	}
	require.NoError(t, f.d.HandleEvents(f.ctx, events))

	f.view(func(tx *store.Tx) {
		_, err := tx.GetAmmFactory(ammFactoryAddr)
		require.True(t, store.IsNotFound(err))
	})
}

// rawEvent builds a node-style event whose data ends with the block timestamp felt.
func (f *fixture) rawEvent(contract, name string, ts uint64, data ...starknet.Felt) *starknet.Event {
	f.block++
	f.tx++

	return &starknet.Event{
		ContractAddress: starknet.MustParseFelt(contract),
		TransactionHash: starknet.FeltFromUint64(0x9000 + f.tx),
		BlockNumber:     f.block,
		BlockTimestamp:  ts,
		Keys:            []starknet.Felt{starknet.Selector(name)},
		Data:            append(data, starknet.FeltFromUint64(ts)),
	}
}

func felts(values ...string) []starknet.Felt {
	out := make([]starknet.Felt, len(values))
	for i, v := range values {
		out[i] = starknet.MustParseFelt(v)
	}
	return out
}

func u256(v int64) []starknet.Felt {
	low, high := starknet.SplitU256(big.NewInt(v))
	return []starknet.Felt{low, high}
}

func concat(parts ...[]starknet.Felt) []starknet.Felt {
	var out []starknet.Felt
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func TestDispatcher_DecodesRawEvents(t *testing.T) {
	f := newFixture(t, nil)

	ev := f.rawEvent(ammFactoryAddr, "FactoryInitialized", 1234, felts(ammFactoryAddr, "0x1", "0x2", "0x3")...)
	require.NoError(t, f.d.HandleEvents(f.ctx, []*starknet.Event{ev}))
	require.Equal(t, "FactoryInitialized", ev.Name)

	f.view(func(tx *store.Tx) {
		factory, err := tx.GetAmmFactory(ammFactoryAddr)
		require.NoError(t, err)
		require.Equal(t, "0x2", factory.FeeTo)
		require.Equal(t, int64(1234), factory.CreatedAt)
	})
}

func TestDispatcher_RawOptionalFieldsSkipTimestamp(t *testing.T) {
	t.Run("AgentUpdated without total_score", func(t *testing.T) {
		f := setupGame(t)

		data := concat(felts("0x0", agentAddr), u256(0), u256(250), felts(sessionAddr))
		require.NoError(t, f.d.HandleEvents(f.ctx, []*starknet.Event{
			f.rawEvent(sessionAddr, "AgentUpdated", 1100, data...),
		}))

		f.view(func(tx *store.Tx) {
			agent, err := tx.GetAgent(agentAddr, sessionAddr)
			require.NoError(t, err)
			require.Equal(t, "250", agent.TotalDeposited.String())
			require.Equal(t, "0", agent.TotalScore.String())
		})
	})

	t.Run("AgentUpdated with total_score", func(t *testing.T) {
		f := setupGame(t)

		data := concat(felts("0x0", agentAddr), u256(0), u256(250), felts(sessionAddr), u256(900))
		require.NoError(t, f.d.HandleEvents(f.ctx, []*starknet.Event{
			f.rawEvent(sessionAddr, "AgentUpdated", 1100, data...),
		}))

		f.view(func(tx *store.Tx) {
			agent, err := tx.GetAgent(agentAddr, sessionAddr)
			require.NoError(t, err)
			require.Equal(t, "900", agent.TotalScore.String())
		})
	})

	t.Run("Swap without to", func(t *testing.T) {
		f := setupPair(t)

		data := concat(felts("0x5e"),
			u256(100), u256(0), u256(0), u256(90),
			u256(1100), u256(910), u256(1100), u256(910),
			felts(ammFactoryAddr))
		require.NoError(t, f.d.HandleEvents(f.ctx, []*starknet.Event{
			f.rawEvent(pairAddr, "Swap", 1300, data...),
		}))

		f.view(func(tx *store.Tx) {
			swaps, err := tx.ListSwapEvents(pairAddr)
			require.NoError(t, err)
			require.Len(t, swaps, 1)
			require.Equal(t, "0x5e", swaps[0].Recipient)
			require.Equal(t, int64(1300), swaps[0].CreatedAt)
		})
	})

	t.Run("FarmCreated without farm_count", func(t *testing.T) {
		f := newFixture(t, nil)

		f.emit(farmFactoryAddr, "FarmFactoryInitialized", 1000, map[string]any{
			"farm_factory":    farmFactoryAddr,
			"owner":           "0x1",
			"farm_class_hash": "0x4",
		})

		data := concat(felts(farmAddr, farmFactoryAddr, pairAddr, "0x0", "0x7"),
			u256(1), felts("0xe10"), u256(10), felts("0x9"))
		require.NoError(t, f.d.HandleEvents(f.ctx, []*starknet.Event{
			f.rawEvent(farmFactoryAddr, "FarmCreated", 1300, data...),
		}))

		f.view(func(tx *store.Tx) {
			factory, err := tx.GetFarmFactory(farmFactoryAddr)
			require.NoError(t, err)
			require.Equal(t, uint64(1), factory.FarmCount)

			farm, err := tx.GetFarm(farmAddr)
			require.NoError(t, err)
			require.Equal(t, uint64(3600), farm.PenaltyDuration)
			require.Equal(t, "0x9", farm.PenaltyReceiver)
		})
	})
}

func TestDispatcher_UndecodablePayloadIsSkipped(t *testing.T) {
	f := newFixture(t, nil)

	f.emit(ammFactoryAddr, "FactoryInitialized", 1000, map[string]any{"owner": "0x1"})

	f.view(func(tx *store.Tx) {
		_, err := tx.GetAmmFactory(ammFactoryAddr)
		require.True(t, store.IsNotFound(err))
	})
}

func TestDispatcher_StopsOnCancelledContext(t *testing.T) {
	f := newFixture(t, nil)

	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	err := f.d.HandleEvents(ctx, []*starknet.Event{
		f.event(ammFactoryAddr, "FactoryInitialized", 1000, map[string]any{}),
	})
	require.ErrorIs(t, err, context.Canceled)
}

func TestRegistrar_CommitAndDiscard(t *testing.T) {
	st := storetest.NewStore(t)
	ctx := context.Background()

	r := NewRegistrar(logger.NewNopLogger())
	sub := &recordingSubscriber{}
	r.Subscribe(sub)

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(tx *store.Tx) error {
		require.NoError(t, r.RegisterContract(tx, "pair_00000001", indexer.KindPair, "0x1", 5))
		return boom
	})
	require.ErrorIs(t, err, boom)
	r.Discard()
	r.Commit()
	require.Empty(t, sub.regs)

	err = st.WithTx(ctx, func(tx *store.Tx) error {
		if err := r.RegisterContract(tx, "pair_00000001", indexer.KindPair, "0x01", 5); err != nil {
			return err
		}
		// a second registration of the same address is a no-op
		if err := r.RegisterContract(tx, "pair_00000001", indexer.KindPair, "0x1", 6); err != nil {
			return err
		}
		return r.RegisterIndex(tx, "pair_00000001_events", indexer.KindPair.Template(),
			map[string]string{ParamContract: "pair_00000001"})
	})
	require.NoError(t, err)
	r.Commit()

	require.Equal(t, []Registration{
		{Name: "pair_00000001", Kind: indexer.KindPair, Address: "0x1", Block: 5},
	}, sub.regs)

	require.NoError(t, st.View(ctx, func(tx *store.Tx) error {
		c, err := tx.GetRegisteredContract("0x1")
		require.NoError(t, err)
		require.Equal(t, "pair_00000001_events", c.IndexName)
		require.Equal(t, uint64(5), c.CreatedAtBlock)
		return nil
	}))
}

func TestRegistrar_Rejects(t *testing.T) {
	st := storetest.NewStore(t)
	r := NewRegistrar(logger.NewNopLogger())

	require.NoError(t, st.WithTx(context.Background(), func(tx *store.Tx) error {
		require.Error(t, r.RegisterContract(tx, "x", indexer.ContractKind("vault"), "0x1", 0))
		require.Error(t, r.RegisterContract(tx, "x", indexer.KindPair, "not-hex", 0))
		require.Error(t, r.RegisterIndex(tx, "x_events", "t", map[string]string{}))
		require.Error(t, r.RegisterIndex(tx, "x_events", "t", map[string]string{ParamContract: "missing"}))
		return nil
	}))
}
