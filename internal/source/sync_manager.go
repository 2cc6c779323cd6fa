package source

import (
	"context"
	"sync"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/metrics"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
)

// SyncManager manages the indexing cursor stored in sync_state.
type SyncManager struct {
	store *store.Store
	log   *logger.Logger

	mu   sync.RWMutex
	mode FetchMode
}

// NewSyncManager creates a new SyncManager instance.
func NewSyncManager(st *store.Store, log *logger.Logger) *SyncManager {
	sm := &SyncManager{
		store: st,
		log:   log.WithComponent(common.ComponentSyncManager),
		mode:  ModeBackfill,
	}

	sm.log.Debug("sync manager initialized")

	return sm
}

// LastProcessedBlock returns the last block whose events were all applied.
// Zero means nothing has been indexed yet.
func (sm *SyncManager) LastProcessedBlock(ctx context.Context) (uint64, error) {
	var block uint64
	err := sm.store.View(ctx, func(tx *store.Tx) error {
		var err error
		block, err = tx.LastProcessedBlock()
		return err
	})
	if err != nil {
		return 0, err
	}

	return block, nil
}

// SaveCheckpoint moves the cursor to block.
func (sm *SyncManager) SaveCheckpoint(ctx context.Context, block uint64) error {
	err := sm.store.WithTx(ctx, func(tx *store.Tx) error {
		return tx.SaveSyncState(block)
	})
	if err != nil {
		return err
	}

	metrics.LastProcessedBlockSet(block)
	sm.log.Debugf("saved checkpoint: block=%d, mode=%s", block, sm.Mode())

	return nil
}

// Mode returns the current fetch mode.
func (sm *SyncManager) Mode() FetchMode {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.mode
}

// SetMode updates the fetch mode. The mode is not persisted; every start begins in backfill.
func (sm *SyncManager) SetMode(mode FetchMode) {
	sm.mu.Lock()
	changed := sm.mode != mode
	sm.mode = mode
	sm.mu.Unlock()

	if changed {
		sm.log.Infof("sync mode updated: mode=%s", mode)
	}
}

// Reset deletes every derived row and rewinds the cursor to zero.
func (sm *SyncManager) Reset(ctx context.Context) error {
	if err := sm.store.Reset(ctx); err != nil {
		return err
	}

	sm.SetMode(ModeBackfill)
	metrics.LastProcessedBlockSet(0)

	return nil
}
