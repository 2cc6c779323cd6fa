package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goran-ethernal/StarkIndexor/internal/db"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	"github.com/russross/meddler"
)

// ErrNotFound is returned by getters when no row matches the key.
var ErrNotFound = errors.New("not found")

// Store is the entity store. All handler writes for one event run inside a single WithTx call.
type Store struct {
	db          *sql.DB
	maintenance db.Maintenance
	log         *logger.Logger
}

// Tx gives access to the repositories. It is bound to a SQL transaction inside WithTx
// and to the plain connection pool inside View.
type Tx struct {
	ctx context.Context
	q   meddler.DB
	now func() time.Time
	at  int64
}

// New wraps an already migrated database.
func New(sqlDB *sql.DB, maintenance db.Maintenance, log *logger.Logger) *Store {
	if maintenance == nil {
		maintenance = db.NoOpMaintenance{}
	}

	return &Store{db: sqlDB, maintenance: maintenance, log: log}
}

// Open opens the database described by cfg and applies the store migrations.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	migrations, err := Migrations()
	if err != nil {
		return nil, fmt.Errorf("failed to load store migrations: %w", err)
	}

	sqlDB, err := db.Open(cfg, migrations, log)
	if err != nil {
		return nil, err
	}

	return New(sqlDB, nil, log), nil
}

// UseMaintenance makes every transaction hold the maintenance operation lock.
func (s *Store) UseMaintenance(m db.Maintenance) {
	s.maintenance = m
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn in one transaction. The transaction commits when fn returns nil
// and rolls back otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(*Tx) error) (err error) {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	start := time.Now()
	defer func() { db.TxDurationLog(time.Since(start)) }()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		db.TxRollbackInc()
		if rbErr := sqlTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.log.Errorf("failed to rollback transaction: %v", rbErr)
		}
	}()

	if err = fn(&Tx{ctx: ctx, q: sqlTx, now: time.Now}); err != nil {
		return err
	}

	if err = sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// View runs read-only fn outside a transaction.
func (s *Store) View(ctx context.Context, fn func(*Tx) error) error {
	unlock := s.maintenance.AcquireOperationLock()
	defer unlock()

	return fn(&Tx{ctx: ctx, q: s.db, now: time.Now})
}

// resetTables lists every derived table, children before parents.
var resetTables = []string{
	TableAgentScores,
	TableGameEvents,
	TableUserDeposits,
	TableStakeWindows,
	TableAgents,
	TableGameSessions,
	TableGameFactories,
	TableClaimEvents,
	TableWhitelistedUsers,
	TableFaucetTokens,
	TableFaucets,
	TableFaucetFactories,
	TableRewardEvents,
	TableAgentStakeEvents,
	TableRewardPerAgent,
	TableRewards,
	TableAgentStakes,
	TableRewarders,
	TableFarms,
	TableFarmFactories,
	TableSwapEvents,
	TableLiquidityEvents,
	TableLiquidityPositions,
	TablePairs,
	TableAmmFactories,
	TableRegisteredContracts,
}

// Reset deletes all indexed state and rewinds the cursor to zero.
func (s *Store) Reset(ctx context.Context) error {
	err := s.WithTx(ctx, func(tx *Tx) error {
		for _, table := range resetTables {
			//nolint:gosec // table names are constants
			if _, err := tx.q.Exec("DELETE FROM " + table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}

		return tx.SaveSyncState(0)
	})
	if err != nil {
		return err
	}

	s.log.Warn("entity store reset, indexing restarts from the configured start block")
	return nil
}

// Context returns the context the transaction was opened with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// At pins the timestamp written to created_at/updated_at, usually the block timestamp of
// the event being applied, so a replay produces identical rows.
func (tx *Tx) At(ts uint64) *Tx {
	tx.at = int64(ts) //nolint:gosec
	return tx
}

// Now returns the timestamp in unix seconds used for created_at/updated_at.
func (tx *Tx) Now() int64 {
	if tx.at != 0 {
		return tx.at
	}
	return tx.now().Unix()
}

func getOne[T any](q meddler.DB, query string, args ...any) (*T, error) {
	dst := new(T)
	if err := meddler.QueryRow(q, dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return dst, nil
}

func getAll[T any](q meddler.DB, query string, args ...any) ([]*T, error) {
	var dst []*T
	if err := meddler.QueryAll(q, &dst, query, args...); err != nil {
		return nil, err
	}

	return dst, nil
}

func (tx *Tx) exists(query string, args ...any) (bool, error) {
	var ok bool
	//nolint:gosec // query is assembled from constants
	if err := tx.q.QueryRow("SELECT EXISTS("+query+")", args...).Scan(&ok); err != nil {
		return false, err
	}

	return ok, nil
}

// save inserts or updates row and maintains its created_at/updated_at columns.
func (tx *Tx) save(table string, row any, createdAt, updatedAt *int64) error {
	now := tx.Now()
	if *createdAt == 0 {
		*createdAt = now
	}
	*updatedAt = now

	if err := meddler.Save(tx.q, table, row); err != nil {
		return fmt.Errorf("failed to save %s row: %w", table, err)
	}

	return nil
}

func (tx *Tx) insert(table string, row any) error {
	if err := meddler.Insert(tx.q, table, row); err != nil {
		return fmt.Errorf("failed to insert %s row: %w", table, err)
	}

	return nil
}

func (tx *Tx) delete(table, where string, args ...any) error {
	//nolint:gosec // table and where come from constants
	if _, err := tx.q.Exec("DELETE FROM "+table+" WHERE "+where, args...); err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}

	return nil
}

// IsNotFound reports whether err is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
