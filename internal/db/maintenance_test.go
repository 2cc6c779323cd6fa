package db

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCoordinator(t *testing.T, cfg config.MaintenanceConfig) (*MaintenanceCoordinator, string) {
	t.Helper()

	sqlDB, dbPath := setupTestDB(t, "WAL")
	return newMaintenanceCoordinator(dbPath, sqlDB, cfg, logger.NewNopLogger()), dbPath
}

func TestNewMaintenanceCoordinator_NilConfig(t *testing.T) {
	t.Parallel()

	m := NewMaintenanceCoordinator("x.sqlite", nil, nil, logger.NewNopLogger())
	require.IsType(t, NoOpMaintenance{}, m)
	require.NoError(t, m.Start(context.Background()))
	m.AcquireOperationLock()()
	require.NoError(t, m.Stop())
}

func TestMaintenanceCoordinator_RunMaintenance(t *testing.T) {
	t.Parallel()

	coordinator, dbPath := newTestCoordinator(t, config.MaintenanceConfig{WALCheckpointMode: "TRUNCATE"})

	walInfo, err := os.Stat(dbPath + "-wal")
	require.NoError(t, err)
	require.Positive(t, walInfo.Size())

	require.NoError(t, coordinator.RunMaintenance(context.Background()))

	metrics := coordinator.GetMetrics()
	require.Equal(t, uint64(1), metrics.MaintenanceCount)
	require.False(t, metrics.LastMaintenanceTime.IsZero())
	require.NoError(t, metrics.LastMaintenanceError)

	if after, err := os.Stat(dbPath + "-wal"); err == nil {
		require.LessOrEqual(t, after.Size(), walInfo.Size())
	}
}

func TestMaintenanceCoordinator_MaintenanceWaitsForOperations(t *testing.T) {
	t.Parallel()

	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{WALCheckpointMode: "PASSIVE"})

	unlock := coordinator.AcquireOperationLock()

	var finished atomic.Bool
	done := make(chan struct{})
	go func() {
		defer close(done)
		assert.NoError(t, coordinator.RunMaintenance(context.Background()))
		finished.Store(true)
	}()

	time.Sleep(50 * time.Millisecond)
	require.False(t, finished.Load(), "maintenance must wait for the in-flight operation")

	unlock()
	<-done
	require.True(t, finished.Load())
}

func TestMaintenanceCoordinator_Background(t *testing.T) {
	t.Parallel()

	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{
		Enabled:           true,
		CheckInterval:     common.NewDuration(30 * time.Millisecond),
		VacuumOnStartup:   true,
		WALCheckpointMode: "PASSIVE",
	})

	require.NoError(t, coordinator.Start(context.Background()))
	require.Eventually(t, func() bool {
		return coordinator.GetMetrics().MaintenanceCount >= 2
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, coordinator.Stop())

	count := coordinator.GetMetrics().MaintenanceCount
	time.Sleep(80 * time.Millisecond)
	require.Equal(t, count, coordinator.GetMetrics().MaintenanceCount, "no runs after Stop")
}

func TestMaintenanceCoordinator_Disabled(t *testing.T) {
	t.Parallel()

	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{Enabled: false})

	require.NoError(t, coordinator.Start(context.Background()))
	require.NoError(t, coordinator.Stop())
	require.Zero(t, coordinator.GetMetrics().MaintenanceCount)
}

func TestMaintenanceCoordinator_CancelledContext(t *testing.T) {
	t.Parallel()

	coordinator, _ := newTestCoordinator(t, config.MaintenanceConfig{WALCheckpointMode: "TRUNCATE"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, coordinator.RunMaintenance(ctx), context.Canceled)
}
