package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/common"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
)

// Maintenance runs periodic WAL checkpoints and VACUUM against the entity store.
// Writers (event handlers, scheduled jobs) wrap their work in AcquireOperationLock so
// maintenance only runs while no write is in flight.
type Maintenance interface {
	Start(ctx context.Context) error
	Stop() error
	// AcquireOperationLock takes a shared lock and returns the matching unlock function.
	AcquireOperationLock() func()
	GetMetrics() MaintenanceMetrics
	RunMaintenance(ctx context.Context) error
}

// MaintenanceMetrics provides visibility into maintenance operations.
type MaintenanceMetrics struct {
	LastMaintenanceTime  time.Time
	MaintenanceCount     uint64
	LastMaintenanceError error
}

// NoOpMaintenance is used when maintenance is not configured.
type NoOpMaintenance struct{}

func (NoOpMaintenance) Start(context.Context) error          { return nil }
func (NoOpMaintenance) Stop() error                          { return nil }
func (NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (NoOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (NoOpMaintenance) GetMetrics() MaintenanceMetrics       { return MaintenanceMetrics{} }

// MaintenanceCoordinator serializes maintenance against regular operations with a RWMutex:
// operations take the read side, maintenance takes the write side.
type MaintenanceCoordinator struct {
	db     *sql.DB
	dbPath string
	cfg    config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	statsMu sync.Mutex
	stats   MaintenanceMetrics
}

// NewMaintenanceCoordinator returns a NoOpMaintenance when cfg is nil.
func NewMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		db:     db,
		dbPath: dbPath,
		cfg:    cfg,
		log:    log.WithComponent(common.ComponentMaintenance),
	}
}

// Start launches the background worker. It is a no-op when maintenance is disabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.cfg.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}

	if m.cfg.CheckInterval.Duration <= 0 {
		return fmt.Errorf("maintenance check interval must be positive, got %s", m.cfg.CheckInterval)
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.cfg.VacuumOnStartup {
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		ticker := time.NewTicker(m.cfg.CheckInterval.Duration)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.RunMaintenance(ctx); err != nil {
					m.log.Warnf("periodic maintenance failed: %v", err)
				}
			}
		}
	}()

	m.log.Infow("background maintenance started",
		"interval", m.cfg.CheckInterval.Duration, "checkpoint_mode", m.cfg.WALCheckpointMode)

	return nil
}

// Stop cancels the worker and waits for an in-flight run to finish.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("background maintenance stopped")

	return nil
}

// RunMaintenance checkpoints the WAL and vacuums the database under the exclusive lock.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	MaintenanceRunsInc()
	start := time.Now().UTC()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	sizeBefore, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get initial DB size: %v", err)
	}

	var runErr error
	if err := m.walCheckpoint(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("WAL checkpoint failed: %w", err))
	}
	if err := m.vacuum(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("VACUUM failed: %w", err))
	}

	sizeAfter, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to get final DB size: %v", err)
	}

	elapsed := time.Since(start)

	m.statsMu.Lock()
	m.stats.LastMaintenanceTime = time.Now().UTC()
	m.stats.MaintenanceCount++
	m.stats.LastMaintenanceError = runErr
	m.statsMu.Unlock()

	MaintenanceDurationLog(elapsed)
	MaintenanceLastRunLog()
	DBSizeLog(sizeAfter)

	if runErr != nil {
		MaintenanceErrorInc()
		return runErr
	}

	MaintenanceSuccessInc()

	if sizeBefore > sizeAfter {
		reclaimed := uint64(sizeBefore - sizeAfter)
		MaintenanceSpaceReclaimedLog(reclaimed)
		m.log.Infow("maintenance completed", "duration", elapsed, "reclaimed_mb", common.BytesToMB(reclaimed))
	} else {
		m.log.Infow("maintenance completed", "duration", elapsed)
	}

	return nil
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to check journal mode: %w", err)
	}

	if !strings.EqualFold(mode, "wal") {
		m.log.Debug("database not in WAL mode, skipping checkpoint")
		return nil
	}

	var busy, logFrames, checkpointed int
	err := m.db.QueryRow(fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.cfg.WALCheckpointMode)).
		Scan(&busy, &logFrames, &checkpointed)
	if err != nil {
		return err
	}

	WALCheckpointInc(strings.ToLower(m.cfg.WALCheckpointMode))

	if busy > 0 {
		m.log.Warnf("WAL checkpoint left %d busy pages", busy)
	}
	m.log.Debugw("WAL checkpoint complete", "log_frames", logFrames, "checkpointed", checkpointed)

	return nil
}

func (m *MaintenanceCoordinator) vacuum() error {
	if _, err := m.db.Exec("VACUUM"); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			return fmt.Errorf("database is locked (retry later)")
		}
		return err
	}

	VacuumRunsInc()
	return nil
}

// AcquireOperationLock takes the shared side of the maintenance lock.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// GetMetrics returns a snapshot of the run statistics.
func (m *MaintenanceCoordinator) GetMetrics() MaintenanceMetrics {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	return m.stats
}
