package source

import (
	"context"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/goran-ethernal/StarkIndexor/internal/store/storetest"
	"github.com/stretchr/testify/require"
)

func TestSyncManager(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := storetest.NewStore(t)
	sm := NewSyncManager(st, logger.NewNopLogger())

	last, err := sm.LastProcessedBlock(ctx)
	require.NoError(t, err)
	require.Zero(t, last)
	require.Equal(t, ModeBackfill, sm.Mode())

	require.NoError(t, sm.SaveCheckpoint(ctx, 1234))
	last, err = sm.LastProcessedBlock(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(1234), last)

	sm.SetMode(ModeLive)
	require.Equal(t, ModeLive, sm.Mode())

	// reset drops derived rows as well as the cursor
	require.NoError(t, st.WithTx(ctx, func(tx *store.Tx) error {
		_, err := tx.InsertRegisteredContract(&store.RegisteredContract{
			Address: "0xa00", Name: "amm", Kind: "amm_factory",
		})
		return err
	}))

	require.NoError(t, sm.Reset(ctx))
	require.Equal(t, ModeBackfill, sm.Mode())

	last, err = sm.LastProcessedBlock(ctx)
	require.NoError(t, err)
	require.Zero(t, last)

	require.NoError(t, st.View(ctx, func(tx *store.Tx) error {
		contracts, err := tx.ListRegisteredContracts()
		require.NoError(t, err)
		require.Empty(t, contracts)
		return nil
	}))
}
